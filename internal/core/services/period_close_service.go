package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sahayog/shg_management_app/internal/apperrors"
	"github.com/sahayog/shg_management_app/internal/core/domain"
	portsrepo "github.com/sahayog/shg_management_app/internal/core/ports/repositories"
	portssvc "github.com/sahayog/shg_management_app/internal/core/ports/services"
	"github.com/sahayog/shg_management_app/internal/dto"
	"github.com/sahayog/shg_management_app/internal/middleware"
	"github.com/sahayog/shg_management_app/internal/utils/finance"
)

const (
	// correctionBatchSize keeps fine correction transactions small so a
	// single bad row cannot poison the whole recalculation pass.
	correctionBatchSize = 5

	correctionTxTimeout = 5 * time.Second

	// closeTxTimeout bounds the main close transaction and the safety
	// net's replacement-period transaction.
	closeTxTimeout = 10 * time.Second

	// duplicateCloseGrace is how recently a period must have been closed
	// for a repeated close request to be treated as a duplicate submission
	// rather than a stale client.
	duplicateCloseGrace = time.Hour

	// siblingGuardWindow is the lookback for the concurrent-close guard: a
	// same-or-higher sequence period created this recently by someone else
	// means another close is in flight.
	siblingGuardWindow = 10 * time.Second

	// standingRepairFactor triggers the sequence-1 bad-seed-data repair: a
	// first period whose recorded starting standing exceeds the computed
	// standing by this factor was seeded from corrupt migration data.
	standingRepairFactor = 10
)

// conservationTolerance is the allowed drift between allocated cash and the
// reported collection total before a warning is logged.
var conservationTolerance = decimal.NewFromFloat(0.01)

// periodCloseService is the period closing orchestrator. Closing a period
// is the system's one genuinely transactional procedure: it recalculates
// late fines, writes the period's closing aggregates, rolls the group into
// a successor period and updates the group's cash balances.
type periodCloseService struct {
	periodRepo portsrepo.PeriodRepositoryWithTx
	groupRepo  portsrepo.GroupRepositoryFacade
	groupAuth  portssvc.GroupAuthorizerSvc
	now        func() time.Time
}

// NewPeriodCloseService creates a new PeriodCloseService.
func NewPeriodCloseService(periodRepo portsrepo.PeriodRepositoryWithTx, groupRepo portsrepo.GroupRepositoryFacade, groupAuth portssvc.GroupAuthorizerSvc) portssvc.PeriodCloseSvcFacade {
	return &periodCloseService{
		periodRepo: periodRepo,
		groupRepo:  groupRepo,
		groupAuth:  groupAuth,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

var _ portssvc.PeriodCloseSvcFacade = (*periodCloseService)(nil)

// ClosePeriod runs the full closing procedure for a period.
//
// The procedure has three phases. First, late fines are recalculated
// server-side and corrections applied in small batches, each in its own
// short transaction; a correction failure aborts the close before anything
// irreversible happens. Second, the main bounded transaction re-reads the
// period, guards against duplicate and concurrent closes, allocates cash,
// computes the group standing, writes the closing aggregates, resolves or
// creates the successor period with its contribution rows and updates the
// group balances. Third, a best-effort safety net outside the transaction
// makes sure the group is never left without an open period.
func (s *periodCloseService) ClosePeriod(ctx context.Context, groupID, periodID string, req dto.ClosePeriodRequest, requestingUserID string) (*dto.ClosePeriodResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	group, err := s.groupAuth.AuthorizeLeader(ctx, groupID, requestingUserID)
	if err != nil {
		return nil, err
	}

	period, err := s.periodRepo.FindPeriodByID(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if period.GroupID != groupID {
		return nil, fmt.Errorf("%w: period %s does not belong to group %s", apperrors.ErrNotFound, periodID, groupID)
	}

	rule, err := s.groupRepo.FindEnabledFineRule(ctx, groupID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to load fine rule: %w", err)
		}
		rule = nil
	}

	now := s.now()
	cfg := finance.ScheduleConfigFromGroup(*group)

	// Phase one: server-side fine recalculation. The period's creation
	// instant is the canonical period start.
	corrections := RecalculateContributions(period.CreatedAt, now, cfg, rule, req.MemberContributions, requestingUserID)
	if err := s.applyCorrections(ctx, corrections); err != nil {
		return nil, fmt.Errorf("failed to apply fine corrections: %w", err)
	}
	if len(corrections) > 0 {
		logger.Info("Late fine corrections applied",
			slog.String("period_id", periodID),
			slog.Int("corrected_rows", len(corrections)))
	}
	fines := correctedFines(req.MemberContributions, corrections)

	payments := make(map[string]domain.PaymentRecord, len(req.ActualContributions))
	for memberID, actual := range req.ActualContributions {
		payments[memberID] = domain.PaymentRecord{
			TotalPaid:        actual.TotalPaid,
			InterestPaid:     actual.InterestPaid,
			ContributionPaid: actual.ContributionPaid,
			CashAllocation:   actual.CashAllocation,
		}
	}

	totalCollection := decimal.Zero
	totalInterest := decimal.Zero
	for _, p := range payments {
		totalCollection = totalCollection.Add(p.TotalPaid)
		totalInterest = totalInterest.Add(p.InterestPaid)
	}
	totalLateFine := decimal.Zero
	for _, f := range fines {
		totalLateFine = totalLateFine.Add(f.LateFineAmount)
	}
	newContribution := totalCollection.Sub(totalInterest).Sub(totalLateFine)

	remainingByMember := make(map[string]decimal.Decimal, len(req.MemberContributions))
	for _, snap := range req.MemberContributions {
		remainingByMember[snap.MemberID] = snap.RemainingBalance
	}

	// Phase two: the main bounded transaction.
	var (
		closedPeriod    domain.PeriodRecord
		successorPeriod *domain.PeriodRecord
		successorNew    bool
		rowsSeeded      int
		duplicateClose  bool
	)

	txErr := s.periodRepo.WithCloseTx(ctx, closeTxTimeout, func(tx portsrepo.CloseTxRepository) error {
		fresh, err := tx.FindPeriodByID(ctx, periodID)
		if err != nil {
			return err
		}

		if fresh.IsClosed() {
			// A close that finished within the last hour means this request
			// is a duplicate submission; answer idempotently. Anything
			// older is a stale client looking at a long-closed period.
			if now.Sub(fresh.LastUpdatedAt) <= duplicateCloseGrace {
				duplicateClose = true
				closedPeriod = *fresh
				return nil
			}
			return fmt.Errorf("%w: period %s is already closed", apperrors.ErrConflict, periodID)
		}

		sibling, err := tx.FindNewerSiblingPeriod(ctx, groupID, fresh.SequenceNumber, now.Add(-siblingGuardWindow), periodID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("failed to check for concurrent close: %w", err)
		}
		if sibling != nil {
			return fmt.Errorf("%w: another close for group %s is in progress", apperrors.ErrConflict, groupID)
		}

		hand, bank := finance.AllocateCash(payments)
		endingHand := fresh.StartingCashInHand.Add(hand)
		endingBank := fresh.StartingCashInBank.Add(bank)

		if drift := hand.Add(bank).Sub(totalCollection).Abs(); drift.GreaterThan(conservationTolerance) {
			logger.Warn("Cash allocation does not conserve the collection total",
				slog.String("period_id", periodID),
				slog.String("allocated", hand.Add(bank).String()),
				slog.String("collected", totalCollection.String()),
				slog.String("drift", drift.String()))
		}

		loanAssets, err := ComputeTotalLoanAssets(ctx, tx, groupID)
		if err != nil {
			return err
		}
		standing := endingHand.Add(endingBank).Add(loanAssets)

		// First-period records seeded by old migrations sometimes carry an
		// absurd starting standing. Repair rather than propagate it.
		if fresh.SequenceNumber == 1 &&
			fresh.StartingStanding.GreaterThan(standing.Mul(decimal.NewFromInt(standingRepairFactor))) {
			repaired := endingHand.Add(endingBank)
			logger.Warn("Repairing corrupt starting standing on first period",
				slog.String("period_id", periodID),
				slog.String("recorded", fresh.StartingStanding.String()),
				slog.String("repaired", repaired.String()))
			if err := tx.UpdateStartingStanding(ctx, periodID, repaired); err != nil {
				return fmt.Errorf("failed to repair starting standing: %w", err)
			}
			fresh.StartingStanding = repaired
		}

		closing := domain.PeriodClosing{
			PeriodID:            periodID,
			TotalCollection:     totalCollection,
			TotalLoanInterest:   totalInterest,
			TotalLateFine:       totalLateFine,
			NewContribution:     newContribution,
			CashInHandAtEnd:     endingHand,
			CashInBankAtEnd:     endingBank,
			GroupStandingAtEnd:  standing,
			MembersPresentCount: len(req.ActualContributions),
			UpdatedBy:           requestingUserID,
			UpdatedAt:           now,
		}
		if err := tx.ClosePeriod(ctx, closing); err != nil {
			return fmt.Errorf("failed to write period closing: %w", err)
		}

		closedPeriod = *fresh
		closedPeriod.TotalCollection = &totalCollection
		closedPeriod.TotalLoanInterest = &totalInterest
		closedPeriod.TotalLateFine = &totalLateFine
		closedPeriod.NewContribution = &newContribution
		closedPeriod.CashInHandAtEnd = &endingHand
		closedPeriod.CashInBankAtEnd = &endingBank
		closedPeriod.GroupStandingAtEnd = &standing
		membersPresent := closing.MembersPresentCount
		closedPeriod.MembersPresentCount = &membersPresent
		closedPeriod.LastUpdatedAt = now
		closedPeriod.LastUpdatedBy = requestingUserID

		// Successor resolution: reuse an open successor if one already
		// exists (a previous close attempt may have created it), otherwise
		// create it.
		successor, err := tx.FindPeriodByGroupAndSequence(ctx, groupID, fresh.SequenceNumber+1)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("failed to look up successor period: %w", err)
		}
		switch {
		case successor != nil && successor.IsClosed():
			// The successor is itself already closed; nothing to roll into.
			logger.Warn("Successor period is already closed, skipping rollover",
				slog.String("period_id", periodID),
				slog.String("successor_id", successor.PeriodID))
			successorPeriod = successor
		case successor != nil:
			if err := tx.UpdateStartingBalances(ctx, successor.PeriodID, endingHand, endingBank, standing, requestingUserID, now); err != nil {
				return fmt.Errorf("failed to refresh successor balances: %w", err)
			}
			successor.StartingCashInHand = endingHand
			successor.StartingCashInBank = endingBank
			successor.StartingStanding = standing
			successorPeriod = successor
		default:
			created := domain.PeriodRecord{
				PeriodID:           uuid.NewString(),
				GroupID:            groupID,
				SequenceNumber:     fresh.SequenceNumber + 1,
				MeetingDate:        finance.NextDueDate(cfg, fresh.MeetingDate, now),
				StartingStanding:   standing,
				StartingCashInHand: endingHand,
				StartingCashInBank: endingBank,
				AuditFields: domain.AuditFields{
					CreatedAt:     now,
					CreatedBy:     requestingUserID,
					LastUpdatedAt: now,
					LastUpdatedBy: requestingUserID,
				},
			}
			if err := tx.SavePeriod(ctx, created); err != nil {
				return fmt.Errorf("failed to create successor period: %w", err)
			}
			successorPeriod = &created
			successorNew = true
		}

		if successorPeriod != nil && !successorPeriod.IsClosed() {
			seeded, err := s.seedSuccessorContributions(ctx, tx, group, successorPeriod, remainingByMember, requestingUserID, now)
			if err != nil {
				return err
			}
			rowsSeeded = seeded
		}

		if err := tx.UpdateGroupBalances(ctx, groupID, endingHand, endingBank, requestingUserID, now); err != nil {
			return fmt.Errorf("failed to update group balances: %w", err)
		}
		return nil
	})
	if txErr != nil {
		logger.Error("Period close transaction failed",
			slog.String("period_id", periodID),
			slog.String("error", txErr.Error()))
		return nil, txErr
	}

	if duplicateClose {
		return s.duplicateCloseResponse(ctx, groupID, &closedPeriod)
	}

	// Phase three: safety net. The group must always have an open period;
	// if the commit raced something that closed the successor, synthesize
	// one. Failures here are logged, never surfaced: the close succeeded.
	s.ensureOpenPeriod(ctx, group, &closedPeriod, remainingByMember, requestingUserID)

	logger.Info("Period closed",
		slog.String("period_id", periodID),
		slog.String("group_id", groupID),
		slog.Int("sequence", closedPeriod.SequenceNumber),
		slog.String("total_collection", totalCollection.String()),
		slog.Bool("successor_created", successorNew))

	resp := &dto.ClosePeriodResponse{
		Success:             true,
		Message:             "Period closed successfully",
		Record:              dto.ToPeriodResponse(&closedPeriod),
		IsAutoCreatedPeriod: successorNew,
		Transition: dto.PeriodTransition{
			ClosedPeriodID:    closedPeriod.PeriodID,
			NextPeriodCreated: successorNew,
			RowsSeeded:        rowsSeeded,
		},
	}
	if successorPeriod != nil {
		next := dto.ToPeriodResponse(successorPeriod)
		resp.NewPeriod = &next
		resp.CurrentPeriod = &next
		resp.Transition.NextPeriodID = successorPeriod.PeriodID
	}
	return resp, nil
}

// applyCorrections persists fine corrections in small batches, each in its
// own short transaction.
func (s *periodCloseService) applyCorrections(ctx context.Context, corrections []domain.ContributionCorrection) error {
	for start := 0; start < len(corrections); start += correctionBatchSize {
		end := start + correctionBatchSize
		if end > len(corrections) {
			end = len(corrections)
		}
		batch := corrections[start:end]
		err := s.periodRepo.WithCloseTx(ctx, correctionTxTimeout, func(tx portsrepo.CloseTxRepository) error {
			return tx.ApplyContributionCorrections(ctx, batch)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// seedSuccessorContributions makes sure the successor period has one
// contribution row per active membership. An empty successor gets a full
// seed with carried-over balances and per-period loan interest; a partially
// seeded one is reconciled by adding the missing rows only, with zero
// interest since the original seeding already charged it.
func (s *periodCloseService) seedSuccessorContributions(ctx context.Context, tx portsrepo.CloseTxRepository, group *domain.Group, successor *domain.PeriodRecord, remainingByMember map[string]decimal.Decimal, updatedBy string, now time.Time) (int, error) {
	count, err := tx.CountContributionsByPeriod(ctx, successor.PeriodID)
	if err != nil {
		return 0, fmt.Errorf("failed to count successor contributions: %w", err)
	}

	memberships, err := tx.ListMembershipsByGroup(ctx, group.GroupID)
	if err != nil {
		return 0, fmt.Errorf("failed to list memberships: %w", err)
	}

	seeded := make(map[string]bool)
	if count > 0 {
		existing, err := tx.FindContributionsByPeriod(ctx, successor.PeriodID)
		if err != nil {
			return 0, fmt.Errorf("failed to load successor contributions: %w", err)
		}
		for _, c := range existing {
			seeded[c.MemberID] = true
		}
	}

	var rows []domain.MemberContribution
	for _, m := range memberships {
		if !m.IsActive || seeded[m.MemberID] {
			continue
		}
		due := group.MonthlyContribution
		if carried, ok := remainingByMember[m.MemberID]; ok && carried.IsPositive() {
			due = due.Add(carried)
		}
		interest := decimal.Zero
		if count == 0 {
			interest = finance.PeriodInterest(group.InterestRatePercent, m.CurrentLoanAmount, group.Frequency)
		}
		rows = append(rows, domain.MemberContribution{
			ContributionID:  uuid.NewString(),
			PeriodID:        successor.PeriodID,
			MemberID:        m.MemberID,
			DueContribution: due,
			DueLoanInterest: interest,
			Status:          domain.ContributionPending,
			DueDate:         successor.MeetingDate,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     updatedBy,
				LastUpdatedAt: now,
				LastUpdatedBy: updatedBy,
			},
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := tx.SaveContributions(ctx, rows); err != nil {
		return 0, fmt.Errorf("failed to seed successor contributions: %w", err)
	}
	return len(rows), nil
}

// ensureOpenPeriod is the post-close safety net: if the group somehow ended
// up without any open period, synthesize one in its own transaction, seeded
// with contribution rows the same way a regular successor is. Best-effort
// only.
func (s *periodCloseService) ensureOpenPeriod(ctx context.Context, group *domain.Group, closed *domain.PeriodRecord, remainingByMember map[string]decimal.Decimal, updatedBy string) {
	logger := middleware.GetLoggerFromCtx(ctx)

	open, err := s.periodRepo.FindOpenPeriods(ctx, group.GroupID)
	if err != nil {
		logger.Error("Open-period safety net check failed", slog.String("group_id", group.GroupID), slog.String("error", err.Error()))
		return
	}
	if len(open) > 0 {
		return
	}

	logger.Warn("Group left without an open period after close, synthesizing one",
		slog.String("group_id", group.GroupID),
		slog.String("closed_period_id", closed.PeriodID))

	now := s.now()
	cfg := finance.ScheduleConfigFromGroup(*group)
	standing := decimal.Zero
	if closed.GroupStandingAtEnd != nil {
		standing = *closed.GroupStandingAtEnd
	}
	hand, bank := decimal.Zero, decimal.Zero
	if closed.CashInHandAtEnd != nil {
		hand = *closed.CashInHandAtEnd
	}
	if closed.CashInBankAtEnd != nil {
		bank = *closed.CashInBankAtEnd
	}

	replacement := domain.PeriodRecord{
		PeriodID:           uuid.NewString(),
		GroupID:            group.GroupID,
		SequenceNumber:     closed.SequenceNumber + 1,
		MeetingDate:        finance.NextDueDate(cfg, closed.MeetingDate, now),
		StartingStanding:   standing,
		StartingCashInHand: hand,
		StartingCashInBank: bank,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     updatedBy,
			LastUpdatedAt: now,
			LastUpdatedBy: updatedBy,
		},
	}

	err = s.periodRepo.WithCloseTx(ctx, closeTxTimeout, func(tx portsrepo.CloseTxRepository) error {
		if err := tx.SavePeriod(ctx, replacement); err != nil {
			return err
		}
		seeded, err := s.seedSuccessorContributions(ctx, tx, group, &replacement, remainingByMember, updatedBy, now)
		if err != nil {
			return err
		}
		logger.Info("Safety net created replacement period",
			slog.String("group_id", group.GroupID),
			slog.String("period_id", replacement.PeriodID),
			slog.Int("rows_seeded", seeded))
		return nil
	})
	if err != nil {
		logger.Error("Open-period safety net failed to create period",
			slog.String("group_id", group.GroupID),
			slog.String("error", err.Error()))
	}
}

// duplicateCloseResponse answers a repeated close of a just-closed period
// idempotently, pointing the client at the currently open period. The
// AlreadyClosed flag makes the handler respond 409 so clients can tell the
// duplicate apart from a fresh close.
func (s *periodCloseService) duplicateCloseResponse(ctx context.Context, groupID string, closed *domain.PeriodRecord) (*dto.ClosePeriodResponse, error) {
	resp := &dto.ClosePeriodResponse{
		Success:       true,
		AlreadyClosed: true,
		Message:       "Period was already closed",
		Record:        dto.ToPeriodResponse(closed),
		Transition: dto.PeriodTransition{
			ClosedPeriodID: closed.PeriodID,
		},
	}
	open, err := s.periodRepo.FindOpenPeriods(ctx, groupID)
	if err == nil && len(open) > 0 {
		current := dto.ToPeriodResponse(&open[0])
		resp.CurrentPeriod = &current
		resp.Transition.NextPeriodID = open[0].PeriodID
	}
	return resp, nil
}
