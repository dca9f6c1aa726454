package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/sahayog/shg_management_app/internal/apperrors"
	"github.com/sahayog/shg_management_app/internal/core/domain"
	portsrepo "github.com/sahayog/shg_management_app/internal/core/ports/repositories"
	portssvc "github.com/sahayog/shg_management_app/internal/core/ports/services"
	"github.com/sahayog/shg_management_app/internal/core/services"
	"github.com/sahayog/shg_management_app/internal/dto"
)

// MockCloseTxRepository is a mock implementation of repositories.CloseTxRepository.
type MockCloseTxRepository struct {
	mock.Mock
}

var _ portsrepo.CloseTxRepository = (*MockCloseTxRepository)(nil)

func (m *MockCloseTxRepository) FindPeriodByID(ctx context.Context, periodID string) (*domain.PeriodRecord, error) {
	args := m.Called(ctx, periodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PeriodRecord), args.Error(1)
}

func (m *MockCloseTxRepository) ListPeriodsByGroup(ctx context.Context, groupID string) ([]domain.PeriodRecord, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PeriodRecord), args.Error(1)
}

func (m *MockCloseTxRepository) FindOpenPeriods(ctx context.Context, groupID string) ([]domain.PeriodRecord, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PeriodRecord), args.Error(1)
}

func (m *MockCloseTxRepository) FindPeriodByGroupAndSequence(ctx context.Context, groupID string, sequenceNumber int) (*domain.PeriodRecord, error) {
	args := m.Called(ctx, groupID, sequenceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PeriodRecord), args.Error(1)
}

func (m *MockCloseTxRepository) FindNewerSiblingPeriod(ctx context.Context, groupID string, minSequence int, createdAfter time.Time, excludePeriodID string) (*domain.PeriodRecord, error) {
	args := m.Called(ctx, groupID, minSequence, createdAfter, excludePeriodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PeriodRecord), args.Error(1)
}

func (m *MockCloseTxRepository) SavePeriod(ctx context.Context, period domain.PeriodRecord) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

func (m *MockCloseTxRepository) ClosePeriod(ctx context.Context, closing domain.PeriodClosing) error {
	args := m.Called(ctx, closing)
	return args.Error(0)
}

func (m *MockCloseTxRepository) UpdateStartingBalances(ctx context.Context, periodID string, cashInHand, cashInBank, standing decimal.Decimal, updatedBy string, updatedAt time.Time) error {
	args := m.Called(ctx, periodID, cashInHand, cashInBank, standing, updatedBy, updatedAt)
	return args.Error(0)
}

func (m *MockCloseTxRepository) UpdateStartingStanding(ctx context.Context, periodID string, standing decimal.Decimal) error {
	args := m.Called(ctx, periodID, standing)
	return args.Error(0)
}

func (m *MockCloseTxRepository) FindContributionsByPeriod(ctx context.Context, periodID string) ([]domain.MemberContribution, error) {
	args := m.Called(ctx, periodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MemberContribution), args.Error(1)
}

func (m *MockCloseTxRepository) CountContributionsByPeriod(ctx context.Context, periodID string) (int, error) {
	args := m.Called(ctx, periodID)
	return args.Int(0), args.Error(1)
}

func (m *MockCloseTxRepository) SaveContributions(ctx context.Context, contributions []domain.MemberContribution) error {
	args := m.Called(ctx, contributions)
	return args.Error(0)
}

func (m *MockCloseTxRepository) ApplyContributionCorrections(ctx context.Context, corrections []domain.ContributionCorrection) error {
	args := m.Called(ctx, corrections)
	return args.Error(0)
}

func (m *MockCloseTxRepository) UpdateContributionPayment(ctx context.Context, contribution domain.MemberContribution) error {
	args := m.Called(ctx, contribution)
	return args.Error(0)
}

func (m *MockCloseTxRepository) ListMembershipsByGroup(ctx context.Context, groupID string) ([]domain.MemberGroupMembership, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MemberGroupMembership), args.Error(1)
}

func (m *MockCloseTxRepository) SumActiveLoanBalances(ctx context.Context, groupID string) (decimal.Decimal, error) {
	args := m.Called(ctx, groupID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockCloseTxRepository) SumMembershipLoanAmounts(ctx context.Context, groupID string) (decimal.Decimal, error) {
	args := m.Called(ctx, groupID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockCloseTxRepository) SumMemberLoanAmounts(ctx context.Context, groupID string) (decimal.Decimal, error) {
	args := m.Called(ctx, groupID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockCloseTxRepository) UpdateGroupBalances(ctx context.Context, groupID string, cashInHand, cashInBank decimal.Decimal, updatedBy string, updatedAt time.Time) error {
	args := m.Called(ctx, groupID, cashInHand, cashInBank, updatedBy, updatedAt)
	return args.Error(0)
}

// MockPeriodRepository is a mock implementation of repositories.PeriodRepositoryWithTx.
// Its WithCloseTx runs the callback against the Tx mock so transaction-scoped
// expectations are set there.
type MockPeriodRepository struct {
	MockCloseTxRepository
	Tx *MockCloseTxRepository
}

var _ portsrepo.PeriodRepositoryWithTx = (*MockPeriodRepository)(nil)

func (m *MockPeriodRepository) WithCloseTx(ctx context.Context, timeout time.Duration, fn func(tx portsrepo.CloseTxRepository) error) error {
	args := m.Called(ctx, timeout)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m.Tx)
}

// MockGroupRepository is a mock implementation of repositories.GroupRepositoryFacade.
type MockGroupRepository struct {
	mock.Mock
}

var _ portsrepo.GroupRepositoryFacade = (*MockGroupRepository)(nil)

func (m *MockGroupRepository) FindGroupByID(ctx context.Context, groupID string) (*domain.Group, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Group), args.Error(1)
}

func (m *MockGroupRepository) ListGroups(ctx context.Context, memberID string) ([]domain.Group, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Group), args.Error(1)
}

func (m *MockGroupRepository) SaveGroup(ctx context.Context, group domain.Group) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockGroupRepository) UpdateGroup(ctx context.Context, group domain.Group) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockGroupRepository) DeleteGroup(ctx context.Context, groupID string) error {
	args := m.Called(ctx, groupID)
	return args.Error(0)
}

func (m *MockGroupRepository) UpdateGroupBalances(ctx context.Context, groupID string, cashInHand, cashInBank decimal.Decimal, updatedBy string, updatedAt time.Time) error {
	args := m.Called(ctx, groupID, cashInHand, cashInBank, updatedBy, updatedAt)
	return args.Error(0)
}

func (m *MockGroupRepository) FindEnabledFineRule(ctx context.Context, groupID string) (*domain.LateFineRule, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LateFineRule), args.Error(1)
}

func (m *MockGroupRepository) ListFineRules(ctx context.Context, groupID string) ([]domain.LateFineRule, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LateFineRule), args.Error(1)
}

func (m *MockGroupRepository) ReplaceFineRule(ctx context.Context, rule domain.LateFineRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

// MockGroupAuthorizer is a mock implementation of services.GroupAuthorizerSvc.
type MockGroupAuthorizer struct {
	mock.Mock
}

var _ portssvc.GroupAuthorizerSvc = (*MockGroupAuthorizer)(nil)

func (m *MockGroupAuthorizer) AuthorizeLeader(ctx context.Context, groupID string, requestingUserID string) (*domain.Group, error) {
	args := m.Called(ctx, groupID, requestingUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Group), args.Error(1)
}

// decEq matches a decimal argument by value. Decimals with equal value can
// differ in internal representation, so plain argument equality is unusable.
func decEq(want decimal.Decimal) interface{} {
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

type PeriodCloseServiceTestSuite struct {
	suite.Suite
	ctx        context.Context
	tx         *MockCloseTxRepository
	periodRepo *MockPeriodRepository
	groupRepo  *MockGroupRepository
	auth       *MockGroupAuthorizer
	service    portssvc.PeriodCloseSvcFacade

	group *domain.Group
}

const (
	testGroupID  = "group-1"
	testPeriodID = "period-3"
	testLeaderID = "user-leader"
)

func (s *PeriodCloseServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.tx = new(MockCloseTxRepository)
	s.periodRepo = &MockPeriodRepository{Tx: s.tx}
	s.groupRepo = new(MockGroupRepository)
	s.auth = new(MockGroupAuthorizer)
	s.service = services.NewPeriodCloseService(s.periodRepo, s.groupRepo, s.auth)

	s.group = &domain.Group{
		GroupID:             testGroupID,
		Name:                "Savings Circle",
		LeaderMemberID:      "member-leader",
		Frequency:           domain.Monthly,
		MonthlyContribution: decimal.NewFromInt(100),
		InterestRatePercent: decimal.NewFromInt(12),
		CashInHand:          decimal.NewFromInt(50),
		CashInBank:          decimal.NewFromInt(20),
	}
}

// openPeriod returns an open period created createdAgo in the past. Recent
// creation keeps the recalculated days-late at zero, so closes in these
// tests produce no fine corrections unless a test arranges otherwise.
func (s *PeriodCloseServiceTestSuite) openPeriod(seq int, createdAgo time.Duration) *domain.PeriodRecord {
	created := time.Now().UTC().Add(-createdAgo)
	return &domain.PeriodRecord{
		PeriodID:           testPeriodID,
		GroupID:            testGroupID,
		SequenceNumber:     seq,
		MeetingDate:        created,
		StartingStanding:   decimal.NewFromInt(70),
		StartingCashInHand: decimal.NewFromInt(50),
		StartingCashInBank: decimal.NewFromInt(20),
		AuditFields: domain.AuditFields{
			CreatedAt:     created,
			CreatedBy:     testLeaderID,
			LastUpdatedAt: created,
			LastUpdatedBy: testLeaderID,
		},
	}
}

func (s *PeriodCloseServiceTestSuite) closeRequest() dto.ClosePeriodRequest {
	return dto.ClosePeriodRequest{
		MemberContributions: []dto.CloseContributionSnapshot{
			{
				ContributionID:   "contrib-1",
				MemberID:         "member-1",
				DueContribution:  decimal.NewFromInt(100),
				LateFineAmount:   decimal.Zero,
				DaysLate:         0,
				RemainingBalance: decimal.NewFromInt(20),
			},
		},
		ActualContributions: map[string]dto.ActualContribution{
			"member-1": {
				TotalPaid:        decimal.NewFromInt(100),
				ContributionPaid: decimal.NewFromInt(90),
				InterestPaid:     decimal.NewFromInt(10),
			},
		},
	}
}

func (s *PeriodCloseServiceTestSuite) expectNoFineRule() {
	s.groupRepo.On("FindEnabledFineRule", s.ctx, testGroupID).Return(nil, apperrors.ErrNotFound)
}

func (s *PeriodCloseServiceTestSuite) TestClosePeriod_SuccessCreatesSuccessor() {
	period := s.openPeriod(3, time.Hour)

	s.auth.On("AuthorizeLeader", s.ctx, testGroupID, testLeaderID).Return(s.group, nil)
	s.periodRepo.On("FindPeriodByID", s.ctx, testPeriodID).Return(period, nil)
	s.expectNoFineRule()
	s.periodRepo.On("WithCloseTx", s.ctx, mock.Anything).Return(nil)

	s.tx.On("FindPeriodByID", s.ctx, testPeriodID).Return(period, nil)
	s.tx.On("FindNewerSiblingPeriod", s.ctx, testGroupID, 3, mock.Anything, testPeriodID).Return(nil, apperrors.ErrNotFound)
	s.tx.On("SumMembershipLoanAmounts", s.ctx, testGroupID).Return(decimal.NewFromInt(500), nil)

	// Collection 100 with the default 30/70 split on top of starting 50/20.
	endingHand := decimal.NewFromInt(80)
	endingBank := decimal.NewFromInt(90)
	standing := decimal.NewFromInt(670)

	s.tx.On("ClosePeriod", s.ctx, mock.MatchedBy(func(c domain.PeriodClosing) bool {
		return c.PeriodID == testPeriodID &&
			c.TotalCollection.Equal(decimal.NewFromInt(100)) &&
			c.TotalLoanInterest.Equal(decimal.NewFromInt(10)) &&
			c.TotalLateFine.IsZero() &&
			c.NewContribution.Equal(decimal.NewFromInt(90)) &&
			c.CashInHandAtEnd.Equal(endingHand) &&
			c.CashInBankAtEnd.Equal(endingBank) &&
			c.GroupStandingAtEnd.Equal(standing) &&
			c.MembersPresentCount == 1
	})).Return(nil)

	s.tx.On("FindPeriodByGroupAndSequence", s.ctx, testGroupID, 4).Return(nil, apperrors.ErrNotFound)

	var savedPeriod domain.PeriodRecord
	s.tx.On("SavePeriod", s.ctx, mock.AnythingOfType("domain.PeriodRecord")).
		Run(func(args mock.Arguments) { savedPeriod = args.Get(1).(domain.PeriodRecord) }).
		Return(nil)

	s.tx.On("CountContributionsByPeriod", s.ctx, mock.AnythingOfType("string")).Return(0, nil)
	s.tx.On("ListMembershipsByGroup", s.ctx, testGroupID).Return([]domain.MemberGroupMembership{
		{MembershipID: "ms-1", GroupID: testGroupID, MemberID: "member-1", CurrentLoanAmount: decimal.NewFromInt(1200), IsActive: true},
		{MembershipID: "ms-2", GroupID: testGroupID, MemberID: "member-2", CurrentLoanAmount: decimal.Zero, IsActive: false},
	}, nil)

	var seededRows []domain.MemberContribution
	s.tx.On("SaveContributions", s.ctx, mock.AnythingOfType("[]domain.MemberContribution")).
		Run(func(args mock.Arguments) { seededRows = args.Get(1).([]domain.MemberContribution) }).
		Return(nil)

	s.tx.On("UpdateGroupBalances", s.ctx, testGroupID, decEq(endingHand), decEq(endingBank), testLeaderID, mock.Anything).Return(nil)
	s.periodRepo.On("FindOpenPeriods", s.ctx, testGroupID).Return([]domain.PeriodRecord{{PeriodID: "period-4"}}, nil)

	resp, err := s.service.ClosePeriod(s.ctx, testGroupID, testPeriodID, s.closeRequest(), testLeaderID)

	s.Require().NoError(err)
	s.Require().NotNil(resp)
	s.True(resp.Success)
	s.False(resp.AlreadyClosed)
	s.True(resp.IsAutoCreatedPeriod)
	s.Equal(testPeriodID, resp.Transition.ClosedPeriodID)
	s.True(resp.Transition.NextPeriodCreated)
	s.Equal(1, resp.Transition.RowsSeeded)
	s.Require().NotNil(resp.NewPeriod)
	s.Equal(4, resp.NewPeriod.SequenceNumber)
	s.Require().NotNil(resp.Record.TotalCollection)
	s.True(resp.Record.TotalCollection.Equal(decimal.NewFromInt(100)))

	s.Equal(4, savedPeriod.SequenceNumber)
	s.True(savedPeriod.StartingCashInHand.Equal(endingHand))
	s.True(savedPeriod.StartingCashInBank.Equal(endingBank))
	s.True(savedPeriod.StartingStanding.Equal(standing))

	// Only the active membership gets a row: base contribution plus the
	// carried-over balance, with one period of loan interest charged.
	s.Require().Len(seededRows, 1)
	s.Equal("member-1", seededRows[0].MemberID)
	s.True(seededRows[0].DueContribution.Equal(decimal.NewFromInt(120)), "got %s", seededRows[0].DueContribution)
	s.True(seededRows[0].DueLoanInterest.Equal(decimal.NewFromInt(12)), "got %s", seededRows[0].DueLoanInterest)
	s.Equal(domain.ContributionPending, seededRows[0].Status)

	s.tx.AssertNotCalled(s.T(), "SumActiveLoanBalances", mock.Anything, mock.Anything)
	s.tx.AssertExpectations(s.T())
	s.periodRepo.AssertExpectations(s.T())
}

func (s *PeriodCloseServiceTestSuite) TestClosePeriod_AuthorizationFail() {
	s.auth.On("AuthorizeLeader", s.ctx, testGroupID, "user-other").Return(nil, apperrors.ErrForbidden)

	resp, err := s.service.ClosePeriod(s.ctx, testGroupID, testPeriodID, s.closeRequest(), "user-other")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
	s.Nil(resp)
	s.periodRepo.AssertNotCalled(s.T(), "FindPeriodByID", mock.Anything, mock.Anything)
}

func (s *PeriodCloseServiceTestSuite) TestClosePeriod_PeriodNotInGroup() {
	period := s.openPeriod(3, time.Hour)
	period.GroupID = "group-other"

	s.auth.On("AuthorizeLeader", s.ctx, testGroupID, testLeaderID).Return(s.group, nil)
	s.periodRepo.On("FindPeriodByID", s.ctx, testPeriodID).Return(period, nil)

	resp, err := s.service.ClosePeriod(s.ctx, testGroupID, testPeriodID, s.closeRequest(), testLeaderID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrNotFound)
	s.Nil(resp)
}

func (s *PeriodCloseServiceTestSuite) TestClosePeriod_DuplicateRecentCloseIsIdempotent() {
	period := s.openPeriod(3, time.Hour)
	closed := *period
	collection := decimal.NewFromInt(100)
	closed.TotalCollection = &collection
	closed.LastUpdatedAt = time.Now().UTC().Add(-10 * time.Minute)

	s.auth.On("AuthorizeLeader", s.ctx, testGroupID, testLeaderID).Return(s.group, nil)
	s.periodRepo.On("FindPeriodByID", s.ctx, testPeriodID).Return(&closed, nil)
	s.expectNoFineRule()
	s.periodRepo.On("WithCloseTx", s.ctx, mock.Anything).Return(nil)
	s.tx.On("FindPeriodByID", s.ctx, testPeriodID).Return(&closed, nil)
	s.periodRepo.On("FindOpenPeriods", s.ctx, testGroupID).Return([]domain.PeriodRecord{{PeriodID: "period-4", GroupID: testGroupID, SequenceNumber: 4}}, nil)

	resp, err := s.service.ClosePeriod(s.ctx, testGroupID, testPeriodID, s.closeRequest(), testLeaderID)

	s.Require().NoError(err)
	s.Require().NotNil(resp)
	s.True(resp.Success)
	s.True(resp.AlreadyClosed, "duplicate closes must carry the alreadyClosed flag")
	s.Equal("Period was already closed", resp.Message)
	s.Require().NotNil(resp.CurrentPeriod)
	s.Equal("period-4", resp.CurrentPeriod.PeriodID)
	s.Equal("period-4", resp.Transition.NextPeriodID)

	s.tx.AssertNotCalled(s.T(), "ClosePeriod", mock.Anything, mock.Anything)
	s.tx.AssertNotCalled(s.T(), "SavePeriod", mock.Anything, mock.Anything)
}

func (s *PeriodCloseServiceTestSuite) TestClosePeriod_StaleCloseConflicts() {
	period := s.openPeriod(3, 72*time.Hour)
	closed := *period
	collection := decimal.NewFromInt(100)
	closed.TotalCollection = &collection
	closed.LastUpdatedAt = time.Now().UTC().Add(-48 * time.Hour)

	s.auth.On("AuthorizeLeader", s.ctx, testGroupID, testLeaderID).Return(s.group, nil)
	s.periodRepo.On("FindPeriodByID", s.ctx, testPeriodID).Return(&closed, nil)
	s.expectNoFineRule()
	s.periodRepo.On("WithCloseTx", s.ctx, mock.Anything).Return(nil)
	s.tx.On("FindPeriodByID", s.ctx, testPeriodID).Return(&closed, nil)

	req := s.closeRequest()
	// The snapshot still carries the figures from when the period was open;
	// keep them aligned with the recomputation so no corrections fire.
	req.MemberContributions[0].DaysLate = 0

	resp, err := s.service.ClosePeriod(s.ctx, testGroupID, testPeriodID, req, testLeaderID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.Nil(resp)
	s.tx.AssertNotCalled(s.T(), "ClosePeriod", mock.Anything, mock.Anything)
}

func (s *PeriodCloseServiceTestSuite) TestClosePeriod_ConcurrentCloseConflicts() {
	period := s.openPeriod(3, time.Hour)

	s.auth.On("AuthorizeLeader", s.ctx, testGroupID, testLeaderID).Return(s.group, nil)
	s.periodRepo.On("FindPeriodByID", s.ctx, testPeriodID).Return(period, nil)
	s.expectNoFineRule()
	s.periodRepo.On("WithCloseTx", s.ctx, mock.Anything).Return(nil)
	s.tx.On("FindPeriodByID", s.ctx, testPeriodID).Return(period, nil)
	s.tx.On("FindNewerSiblingPeriod", s.ctx, testGroupID, 3, mock.Anything, testPeriodID).
		Return(&domain.PeriodRecord{PeriodID: "period-racing", GroupID: testGroupID, SequenceNumber: 4}, nil)

	resp, err := s.service.ClosePeriod(s.ctx, testGroupID, testPeriodID, s.closeRequest(), testLeaderID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.Nil(resp)
	s.tx.AssertNotCalled(s.T(), "ClosePeriod", mock.Anything, mock.Anything)
}

func (s *PeriodCloseServiceTestSuite) TestClosePeriod_ReusesOpenSuccessor() {
	period := s.openPeriod(3, time.Hour)
	successor := &domain.PeriodRecord{
		PeriodID:       "period-4",
		GroupID:        testGroupID,
		SequenceNumber: 4,
		MeetingDate:    time.Now().UTC().Add(30 * 24 * time.Hour),
	}

	s.auth.On("AuthorizeLeader", s.ctx, testGroupID, testLeaderID).Return(s.group, nil)
	s.periodRepo.On("FindPeriodByID", s.ctx, testPeriodID).Return(period, nil)
	s.expectNoFineRule()
	s.periodRepo.On("WithCloseTx", s.ctx, mock.Anything).Return(nil)

	s.tx.On("FindPeriodByID", s.ctx, testPeriodID).Return(period, nil)
	s.tx.On("FindNewerSiblingPeriod", s.ctx, testGroupID, 3, mock.Anything, testPeriodID).Return(nil, apperrors.ErrNotFound)
	s.tx.On("SumMembershipLoanAmounts", s.ctx, testGroupID).Return(decimal.NewFromInt(500), nil)
	s.tx.On("ClosePeriod", s.ctx, mock.Anything).Return(nil)
	s.tx.On("FindPeriodByGroupAndSequence", s.ctx, testGroupID, 4).Return(successor, nil)
	s.tx.On("UpdateStartingBalances", s.ctx, "period-4", decEq(decimal.NewFromInt(80)), decEq(decimal.NewFromInt(90)), decEq(decimal.NewFromInt(670)), testLeaderID, mock.Anything).Return(nil)

	// Successor already holds a row for member-1; only member-2 is missing
	// and the reconciled row charges no interest.
	s.tx.On("CountContributionsByPeriod", s.ctx, "period-4").Return(1, nil)
	s.tx.On("ListMembershipsByGroup", s.ctx, testGroupID).Return([]domain.MemberGroupMembership{
		{MembershipID: "ms-1", GroupID: testGroupID, MemberID: "member-1", CurrentLoanAmount: decimal.NewFromInt(1200), IsActive: true},
		{MembershipID: "ms-2", GroupID: testGroupID, MemberID: "member-2", CurrentLoanAmount: decimal.NewFromInt(800), IsActive: true},
	}, nil)
	s.tx.On("FindContributionsByPeriod", s.ctx, "period-4").Return([]domain.MemberContribution{
		{ContributionID: "contrib-existing", PeriodID: "period-4", MemberID: "member-1"},
	}, nil)

	var seededRows []domain.MemberContribution
	s.tx.On("SaveContributions", s.ctx, mock.AnythingOfType("[]domain.MemberContribution")).
		Run(func(args mock.Arguments) { seededRows = args.Get(1).([]domain.MemberContribution) }).
		Return(nil)

	s.tx.On("UpdateGroupBalances", s.ctx, testGroupID, decEq(decimal.NewFromInt(80)), decEq(decimal.NewFromInt(90)), testLeaderID, mock.Anything).Return(nil)
	s.periodRepo.On("FindOpenPeriods", s.ctx, testGroupID).Return([]domain.PeriodRecord{*successor}, nil)

	resp, err := s.service.ClosePeriod(s.ctx, testGroupID, testPeriodID, s.closeRequest(), testLeaderID)

	s.Require().NoError(err)
	s.Require().NotNil(resp)
	s.False(resp.IsAutoCreatedPeriod)
	s.False(resp.Transition.NextPeriodCreated)
	s.Equal("period-4", resp.Transition.NextPeriodID)
	s.Equal(1, resp.Transition.RowsSeeded)

	s.Require().Len(seededRows, 1)
	s.Equal("member-2", seededRows[0].MemberID)
	s.True(seededRows[0].DueLoanInterest.IsZero(), "reconciled rows must not charge interest again")

	s.tx.AssertNotCalled(s.T(), "SavePeriod", mock.Anything, mock.Anything)
	s.tx.AssertExpectations(s.T())
}

func (s *PeriodCloseServiceTestSuite) TestClosePeriod_RepairsCorruptFirstPeriodStanding() {
	period := s.openPeriod(1, time.Hour)
	period.StartingStanding = decimal.NewFromInt(1000000)

	s.auth.On("AuthorizeLeader", s.ctx, testGroupID, testLeaderID).Return(s.group, nil)
	s.periodRepo.On("FindPeriodByID", s.ctx, testPeriodID).Return(period, nil)
	s.expectNoFineRule()
	s.periodRepo.On("WithCloseTx", s.ctx, mock.Anything).Return(nil)

	s.tx.On("FindPeriodByID", s.ctx, testPeriodID).Return(period, nil)
	s.tx.On("FindNewerSiblingPeriod", s.ctx, testGroupID, 1, mock.Anything, testPeriodID).Return(nil, apperrors.ErrNotFound)
	s.tx.On("SumMembershipLoanAmounts", s.ctx, testGroupID).Return(decimal.Zero, nil)
	s.tx.On("SumActiveLoanBalances", s.ctx, testGroupID).Return(decimal.Zero, nil)
	s.tx.On("SumMemberLoanAmounts", s.ctx, testGroupID).Return(decimal.Zero, nil)

	// Recorded 1,000,000 against a computed standing of 170 trips the repair:
	// the starting standing is rewritten to ending hand plus bank.
	s.tx.On("UpdateStartingStanding", s.ctx, testPeriodID, decEq(decimal.NewFromInt(170))).Return(nil)

	s.tx.On("ClosePeriod", s.ctx, mock.MatchedBy(func(c domain.PeriodClosing) bool {
		return c.GroupStandingAtEnd.Equal(decimal.NewFromInt(170))
	})).Return(nil)
	s.tx.On("FindPeriodByGroupAndSequence", s.ctx, testGroupID, 2).Return(nil, apperrors.ErrNotFound)
	s.tx.On("SavePeriod", s.ctx, mock.AnythingOfType("domain.PeriodRecord")).Return(nil)
	s.tx.On("CountContributionsByPeriod", s.ctx, mock.AnythingOfType("string")).Return(0, nil)
	s.tx.On("ListMembershipsByGroup", s.ctx, testGroupID).Return([]domain.MemberGroupMembership{}, nil)
	s.tx.On("UpdateGroupBalances", s.ctx, testGroupID, decEq(decimal.NewFromInt(80)), decEq(decimal.NewFromInt(90)), testLeaderID, mock.Anything).Return(nil)
	s.periodRepo.On("FindOpenPeriods", s.ctx, testGroupID).Return([]domain.PeriodRecord{{PeriodID: "period-2"}}, nil)

	resp, err := s.service.ClosePeriod(s.ctx, testGroupID, testPeriodID, s.closeRequest(), testLeaderID)

	s.Require().NoError(err)
	s.Require().NotNil(resp)
	s.tx.AssertExpectations(s.T())
}

func (s *PeriodCloseServiceTestSuite) TestClosePeriod_AppliesFineCorrections() {
	// Weekly group, period created ten days ago: the contribution came due
	// seven days in, so every row is three days late.
	s.group.Frequency = domain.Weekly
	period := s.openPeriod(3, 10*24*time.Hour)

	rule := &domain.LateFineRule{
		RuleID:      "rule-1",
		GroupID:     testGroupID,
		RuleType:    domain.DailyFixed,
		Enabled:     true,
		DailyAmount: decimal.NewFromInt(5),
	}

	s.auth.On("AuthorizeLeader", s.ctx, testGroupID, testLeaderID).Return(s.group, nil)
	s.periodRepo.On("FindPeriodByID", s.ctx, testPeriodID).Return(period, nil)
	s.groupRepo.On("FindEnabledFineRule", s.ctx, testGroupID).Return(rule, nil)
	s.periodRepo.On("WithCloseTx", s.ctx, mock.Anything).Return(nil)

	var corrected []domain.ContributionCorrection
	s.tx.On("ApplyContributionCorrections", s.ctx, mock.AnythingOfType("[]domain.ContributionCorrection")).
		Run(func(args mock.Arguments) { corrected = args.Get(1).([]domain.ContributionCorrection) }).
		Return(nil)

	s.tx.On("FindPeriodByID", s.ctx, testPeriodID).Return(period, nil)
	s.tx.On("FindNewerSiblingPeriod", s.ctx, testGroupID, 3, mock.Anything, testPeriodID).Return(nil, apperrors.ErrNotFound)
	s.tx.On("SumMembershipLoanAmounts", s.ctx, testGroupID).Return(decimal.Zero, nil)
	s.tx.On("SumActiveLoanBalances", s.ctx, testGroupID).Return(decimal.Zero, nil)
	s.tx.On("SumMemberLoanAmounts", s.ctx, testGroupID).Return(decimal.Zero, nil)

	// Collection 100, interest 10, corrected fine 15.
	s.tx.On("ClosePeriod", s.ctx, mock.MatchedBy(func(c domain.PeriodClosing) bool {
		return c.TotalLateFine.Equal(decimal.NewFromInt(15)) &&
			c.NewContribution.Equal(decimal.NewFromInt(75))
	})).Return(nil)
	s.tx.On("FindPeriodByGroupAndSequence", s.ctx, testGroupID, 4).Return(nil, apperrors.ErrNotFound)
	s.tx.On("SavePeriod", s.ctx, mock.AnythingOfType("domain.PeriodRecord")).Return(nil)
	s.tx.On("CountContributionsByPeriod", s.ctx, mock.AnythingOfType("string")).Return(0, nil)
	s.tx.On("ListMembershipsByGroup", s.ctx, testGroupID).Return([]domain.MemberGroupMembership{}, nil)
	s.tx.On("UpdateGroupBalances", s.ctx, testGroupID, mock.Anything, mock.Anything, testLeaderID, mock.Anything).Return(nil)
	s.periodRepo.On("FindOpenPeriods", s.ctx, testGroupID).Return([]domain.PeriodRecord{{PeriodID: "period-4"}}, nil)

	// The snapshot claims the row is on time; the server recomputes.
	resp, err := s.service.ClosePeriod(s.ctx, testGroupID, testPeriodID, s.closeRequest(), testLeaderID)

	s.Require().NoError(err)
	s.Require().NotNil(resp)
	s.Require().Len(corrected, 1)
	s.Equal("contrib-1", corrected[0].ContributionID)
	s.Equal(3, corrected[0].DaysLate)
	s.True(corrected[0].LateFineAmount.Equal(decimal.NewFromInt(15)), "got %s", corrected[0].LateFineAmount)
	s.tx.AssertExpectations(s.T())
}

func (s *PeriodCloseServiceTestSuite) TestClosePeriod_SkipsRolloverWhenSuccessorClosed() {
	period := s.openPeriod(3, time.Hour)
	collection := decimal.NewFromInt(200)
	closedSuccessor := &domain.PeriodRecord{
		PeriodID:        "period-4",
		GroupID:         testGroupID,
		SequenceNumber:  4,
		TotalCollection: &collection,
	}

	s.auth.On("AuthorizeLeader", s.ctx, testGroupID, testLeaderID).Return(s.group, nil)
	s.periodRepo.On("FindPeriodByID", s.ctx, testPeriodID).Return(period, nil)
	s.expectNoFineRule()
	s.periodRepo.On("WithCloseTx", s.ctx, mock.Anything).Return(nil)

	s.tx.On("FindPeriodByID", s.ctx, testPeriodID).Return(period, nil)
	s.tx.On("FindNewerSiblingPeriod", s.ctx, testGroupID, 3, mock.Anything, testPeriodID).Return(nil, apperrors.ErrNotFound)
	s.tx.On("SumMembershipLoanAmounts", s.ctx, testGroupID).Return(decimal.NewFromInt(500), nil)
	s.tx.On("ClosePeriod", s.ctx, mock.Anything).Return(nil)
	s.tx.On("FindPeriodByGroupAndSequence", s.ctx, testGroupID, 4).Return(closedSuccessor, nil)
	s.tx.On("UpdateGroupBalances", s.ctx, testGroupID, mock.Anything, mock.Anything, testLeaderID, mock.Anything).Return(nil)
	s.periodRepo.On("FindOpenPeriods", s.ctx, testGroupID).Return([]domain.PeriodRecord{{PeriodID: "period-5"}}, nil)

	resp, err := s.service.ClosePeriod(s.ctx, testGroupID, testPeriodID, s.closeRequest(), testLeaderID)

	s.Require().NoError(err)
	s.Require().NotNil(resp)
	s.Equal(0, resp.Transition.RowsSeeded)
	s.tx.AssertNotCalled(s.T(), "UpdateStartingBalances", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	s.tx.AssertNotCalled(s.T(), "SaveContributions", mock.Anything, mock.Anything)
}

func (s *PeriodCloseServiceTestSuite) TestClosePeriod_SafetyNetSeedsReplacementPeriod() {
	period := s.openPeriod(3, time.Hour)
	collection := decimal.NewFromInt(200)
	closedSuccessor := &domain.PeriodRecord{
		PeriodID:        "period-4",
		GroupID:         testGroupID,
		SequenceNumber:  4,
		TotalCollection: &collection,
	}

	s.auth.On("AuthorizeLeader", s.ctx, testGroupID, testLeaderID).Return(s.group, nil)
	s.periodRepo.On("FindPeriodByID", s.ctx, testPeriodID).Return(period, nil)
	s.expectNoFineRule()
	s.periodRepo.On("WithCloseTx", s.ctx, mock.Anything).Return(nil)

	s.tx.On("FindPeriodByID", s.ctx, testPeriodID).Return(period, nil)
	s.tx.On("FindNewerSiblingPeriod", s.ctx, testGroupID, 3, mock.Anything, testPeriodID).Return(nil, apperrors.ErrNotFound)
	s.tx.On("SumMembershipLoanAmounts", s.ctx, testGroupID).Return(decimal.NewFromInt(500), nil)
	s.tx.On("ClosePeriod", s.ctx, mock.Anything).Return(nil)
	s.tx.On("FindPeriodByGroupAndSequence", s.ctx, testGroupID, 4).Return(closedSuccessor, nil)
	s.tx.On("UpdateGroupBalances", s.ctx, testGroupID, mock.Anything, mock.Anything, testLeaderID, mock.Anything).Return(nil)

	// The successor was closed under us and nothing is open after the
	// commit; the safety net must synthesize a replacement period complete
	// with contribution rows, or the group could never collect again.
	s.periodRepo.On("FindOpenPeriods", s.ctx, testGroupID).Return([]domain.PeriodRecord{}, nil)

	var replacement domain.PeriodRecord
	s.tx.On("SavePeriod", s.ctx, mock.AnythingOfType("domain.PeriodRecord")).
		Run(func(args mock.Arguments) { replacement = args.Get(1).(domain.PeriodRecord) }).
		Return(nil)
	s.tx.On("CountContributionsByPeriod", s.ctx, mock.AnythingOfType("string")).Return(0, nil)
	s.tx.On("ListMembershipsByGroup", s.ctx, testGroupID).Return([]domain.MemberGroupMembership{
		{MembershipID: "ms-1", GroupID: testGroupID, MemberID: "member-1", CurrentLoanAmount: decimal.NewFromInt(1200), IsActive: true},
	}, nil)

	var seededRows []domain.MemberContribution
	s.tx.On("SaveContributions", s.ctx, mock.AnythingOfType("[]domain.MemberContribution")).
		Run(func(args mock.Arguments) { seededRows = args.Get(1).([]domain.MemberContribution) }).
		Return(nil)

	resp, err := s.service.ClosePeriod(s.ctx, testGroupID, testPeriodID, s.closeRequest(), testLeaderID)

	s.Require().NoError(err)
	s.Require().NotNil(resp)

	s.Equal(4, replacement.SequenceNumber)
	s.True(replacement.StartingCashInHand.Equal(decimal.NewFromInt(80)), "got %s", replacement.StartingCashInHand)
	s.True(replacement.StartingCashInBank.Equal(decimal.NewFromInt(90)), "got %s", replacement.StartingCashInBank)
	s.True(replacement.StartingStanding.Equal(decimal.NewFromInt(670)), "got %s", replacement.StartingStanding)

	// Full seed: base contribution plus carried balance, one period of
	// loan interest, rows attached to the synthesized period.
	s.Require().Len(seededRows, 1)
	s.Equal(replacement.PeriodID, seededRows[0].PeriodID)
	s.Equal("member-1", seededRows[0].MemberID)
	s.True(seededRows[0].DueContribution.Equal(decimal.NewFromInt(120)), "got %s", seededRows[0].DueContribution)
	s.True(seededRows[0].DueLoanInterest.Equal(decimal.NewFromInt(12)), "got %s", seededRows[0].DueLoanInterest)
	s.Equal(domain.ContributionPending, seededRows[0].Status)
	s.tx.AssertExpectations(s.T())
}

func TestPeriodCloseService(t *testing.T) {
	suite.Run(t, new(PeriodCloseServiceTestSuite))
}
