package services

import (
	"time"

	"github.com/sahayog/shg_management_app/internal/core/domain"
	"github.com/sahayog/shg_management_app/internal/dto"
	"github.com/sahayog/shg_management_app/internal/utils/finance"
)

// RecalculateContributions recomputes late fine figures for the submitted
// contribution snapshots and returns corrections for the rows whose stored
// figures disagree. Client-submitted fines are advisory only; the server's
// calculation wins.
//
// The period's collection due date is derived from its start: the first
// scheduled collection date after the period opened. Days late count from
// that due date to now. A nil or disabled rule yields zero fines, which
// still produces corrections when the snapshot carried stale nonzero ones.
func RecalculateContributions(periodStart, now time.Time, cfg finance.ScheduleConfig, rule *domain.LateFineRule, snapshots []dto.CloseContributionSnapshot, updatedBy string) []domain.ContributionCorrection {
	dueDate := finance.NextDueDate(cfg, periodStart, periodStart)
	daysLate := finance.DaysLate(dueDate, now)

	var corrections []domain.ContributionCorrection
	for _, snap := range snapshots {
		fine := finance.FineAmount(daysLate, snap.DueContribution, rule)
		if snap.DaysLate == daysLate && snap.LateFineAmount.Equal(fine) {
			continue
		}
		corrections = append(corrections, domain.ContributionCorrection{
			ContributionID: snap.ContributionID,
			LateFineAmount: fine,
			DaysLate:       daysLate,
			UpdatedBy:      updatedBy,
			UpdatedAt:      now,
		})
	}
	return corrections
}

// correctedFines returns the authoritative per-contribution fine figures
// after corrections: the recalculated value where one exists, the snapshot
// value otherwise.
func correctedFines(snapshots []dto.CloseContributionSnapshot, corrections []domain.ContributionCorrection) map[string]domain.ContributionCorrection {
	fines := make(map[string]domain.ContributionCorrection, len(snapshots))
	for _, snap := range snapshots {
		fines[snap.ContributionID] = domain.ContributionCorrection{
			ContributionID: snap.ContributionID,
			LateFineAmount: snap.LateFineAmount,
			DaysLate:       snap.DaysLate,
		}
	}
	for _, c := range corrections {
		fines[c.ContributionID] = c
	}
	return fines
}
