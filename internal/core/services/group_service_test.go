package services_test

import (
	"context"
	"testing"

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

// MockMemberRepository is a mock implementation of repositories.MemberRepositoryFacade.
type MockMemberRepository struct {
	mock.Mock
}

var _ portsrepo.MemberRepositoryFacade = (*MockMemberRepository)(nil)

func (m *MockMemberRepository) FindMemberByID(ctx context.Context, memberID string) (*domain.Member, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

func (m *MockMemberRepository) FindMemberByUserID(ctx context.Context, userID string) (*domain.Member, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

func (m *MockMemberRepository) SaveMember(ctx context.Context, member domain.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) SaveMembership(ctx context.Context, membership domain.MemberGroupMembership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMemberRepository) ListMembershipsByGroup(ctx context.Context, groupID string) ([]domain.MemberGroupMembership, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MemberGroupMembership), args.Error(1)
}

type GroupServiceTestSuite struct {
	suite.Suite
	ctx        context.Context
	groupRepo  *MockGroupRepository
	memberRepo *MockMemberRepository
	loanRepo   *MockLoanRepository
	service    portssvc.GroupSvcFacade
	group      *domain.Group
}

func (s *GroupServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.groupRepo = new(MockGroupRepository)
	s.memberRepo = new(MockMemberRepository)
	s.loanRepo = new(MockLoanRepository)
	s.service = services.NewGroupService(s.groupRepo, s.memberRepo, s.loanRepo)
	s.group = &domain.Group{
		GroupID:        testGroupID,
		Name:           "Savings Circle",
		LeaderMemberID: "member-leader",
		Frequency:      domain.Monthly,
		CashInHand:     decimal.NewFromInt(150),
		CashInBank:     decimal.NewFromInt(350),
	}
}

func (s *GroupServiceTestSuite) TestAuthorizeLeader_Success() {
	s.groupRepo.On("FindGroupByID", s.ctx, testGroupID).Return(s.group, nil)
	s.memberRepo.On("FindMemberByUserID", s.ctx, testLeaderID).Return(&domain.Member{MemberID: "member-leader"}, nil)

	group, err := s.service.AuthorizeLeader(s.ctx, testGroupID, testLeaderID)

	s.Require().NoError(err)
	s.Equal(testGroupID, group.GroupID)
}

func (s *GroupServiceTestSuite) TestAuthorizeLeader_NotLeader() {
	s.groupRepo.On("FindGroupByID", s.ctx, testGroupID).Return(s.group, nil)
	s.memberRepo.On("FindMemberByUserID", s.ctx, "user-other").Return(&domain.Member{MemberID: "member-other"}, nil)

	group, err := s.service.AuthorizeLeader(s.ctx, testGroupID, "user-other")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
	s.Nil(group)
}

func (s *GroupServiceTestSuite) TestAuthorizeLeader_NoMemberRecord() {
	s.groupRepo.On("FindGroupByID", s.ctx, testGroupID).Return(s.group, nil)
	s.memberRepo.On("FindMemberByUserID", s.ctx, testLeaderID).Return(nil, apperrors.ErrNotFound)

	group, err := s.service.AuthorizeLeader(s.ctx, testGroupID, testLeaderID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
	s.Nil(group)
}

func (s *GroupServiceTestSuite) TestAuthorizeLeader_GroupNotFound() {
	s.groupRepo.On("FindGroupByID", s.ctx, "missing").Return(nil, apperrors.ErrNotFound)

	group, err := s.service.AuthorizeLeader(s.ctx, "missing", testLeaderID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrNotFound)
	s.Nil(group)
	s.memberRepo.AssertNotCalled(s.T(), "FindMemberByUserID", mock.Anything, mock.Anything)
}

func (s *GroupServiceTestSuite) TestListGroups_NoMemberRecordMeansNoGroups() {
	s.memberRepo.On("FindMemberByUserID", s.ctx, "user-new").Return(nil, apperrors.ErrNotFound)

	groups, err := s.service.ListGroups(s.ctx, "user-new")

	s.Require().NoError(err)
	s.Empty(groups)
	s.groupRepo.AssertNotCalled(s.T(), "ListGroups", mock.Anything, mock.Anything)
}

func (s *GroupServiceTestSuite) TestGetGroupSummary() {
	s.groupRepo.On("FindGroupByID", s.ctx, testGroupID).Return(s.group, nil)
	s.loanRepo.On("SumMembershipLoanAmounts", s.ctx, testGroupID).Return(decimal.NewFromInt(500), nil)

	summary, err := s.service.GetGroupSummary(s.ctx, testGroupID)

	s.Require().NoError(err)
	s.True(summary.TotalLoanAssets.Equal(decimal.NewFromInt(500)))
	s.True(summary.GroupStanding.Equal(decimal.NewFromInt(1000)), "150 + 350 + 500, got %s", summary.GroupStanding)
}

func (s *GroupServiceTestSuite) TestCreateGroup_EnrollsLeader() {
	s.memberRepo.On("FindMemberByID", s.ctx, "member-leader").Return(&domain.Member{MemberID: "member-leader"}, nil)
	s.groupRepo.On("SaveGroup", s.ctx, mock.AnythingOfType("domain.Group")).Return(nil)

	var membership domain.MemberGroupMembership
	s.memberRepo.On("SaveMembership", s.ctx, mock.AnythingOfType("domain.MemberGroupMembership")).
		Run(func(args mock.Arguments) { membership = args.Get(1).(domain.MemberGroupMembership) }).
		Return(nil)

	req := dto.CreateGroupRequest{
		Name:                "New Circle",
		LeaderMemberID:      "member-leader",
		Frequency:           string(domain.Monthly),
		MonthlyContribution: decimal.NewFromInt(100),
	}
	group, err := s.service.CreateGroup(s.ctx, req, testLeaderID)

	s.Require().NoError(err)
	s.Require().NotNil(group)
	s.True(group.CashInHand.IsZero())
	s.Equal(group.GroupID, membership.GroupID)
	s.Equal("member-leader", membership.MemberID)
	s.True(membership.IsActive)
}

func (s *GroupServiceTestSuite) TestCreateGroup_UnknownLeader() {
	s.memberRepo.On("FindMemberByID", s.ctx, "member-ghost").Return(nil, apperrors.ErrNotFound)

	req := dto.CreateGroupRequest{Name: "New Circle", LeaderMemberID: "member-ghost", Frequency: string(domain.Monthly)}
	group, err := s.service.CreateGroup(s.ctx, req, testLeaderID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrNotFound)
	s.Nil(group)
	s.groupRepo.AssertNotCalled(s.T(), "SaveGroup", mock.Anything, mock.Anything)
}

func (s *GroupServiceTestSuite) TestReplaceFineRule_TierValidation() {
	s.groupRepo.On("FindGroupByID", s.ctx, testGroupID).Return(s.group, nil)
	s.memberRepo.On("FindMemberByUserID", s.ctx, testLeaderID).Return(&domain.Member{MemberID: "member-leader"}, nil)

	req := dto.ReplaceFineRuleRequest{
		RuleType: string(domain.TierBased),
		Enabled:  true,
	}
	resp, err := s.service.ReplaceFineRule(s.ctx, testGroupID, req, testLeaderID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Nil(resp)
	s.groupRepo.AssertNotCalled(s.T(), "ReplaceFineRule", mock.Anything, mock.Anything)
}

func TestGroupService(t *testing.T) {
	suite.Run(t, new(GroupServiceTestSuite))
}
