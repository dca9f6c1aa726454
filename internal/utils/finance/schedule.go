// Package finance holds the pure calculation helpers shared by the period
// closing service and the contribution endpoints: collection schedules,
// late fines, cash allocation and period interest.
package finance

import (
	"time"

	"github.com/sahayog/shg_management_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ScheduleConfig is the slice of group configuration the schedule
// calculator needs. Missing anchors are permissively defaulted here;
// they are validated at the group-edit boundary, not in this layer.
type ScheduleConfig struct {
	Frequency   domain.CollectionFrequency
	DayOfMonth  *int // 1-31, MONTHLY/YEARLY
	DayOfWeek   *int // 0 = Sunday, WEEKLY/FORTNIGHTLY
	WeekOfMonth *int // informational, not used for date math
}

// ScheduleConfigFromGroup extracts the schedule configuration of a group.
func ScheduleConfigFromGroup(g domain.Group) ScheduleConfig {
	return ScheduleConfig{
		Frequency:   g.Frequency,
		DayOfMonth:  g.CollectionDayOfMonth,
		DayOfWeek:   g.CollectionDayOfWeek,
		WeekOfMonth: g.CollectionWeekOfMonth,
	}
}

// NextDueDate computes the next collection due date after the given anchor.
//
// WEEKLY and FORTNIGHTLY advance the anchor by 7 or 14 days. MONTHLY and
// YEARLY keep the configured day of month and advance by one month/year;
// if the computed date is not strictly after now it is advanced again so
// the schedule always makes forward progress. Unknown frequencies behave
// as MONTHLY. The function is total: malformed config falls back to the
// anchor's own day.
//
// now is passed explicitly so callers (and tests) are deterministic about
// the forward-progress re-advance.
func NextDueDate(cfg ScheduleConfig, anchor time.Time, now time.Time) time.Time {
	switch cfg.Frequency {
	case domain.Weekly:
		return anchor.AddDate(0, 0, 7)
	case domain.Fortnightly:
		return anchor.AddDate(0, 0, 14)
	case domain.Yearly:
		due := addCalendar(anchor, 1, 0, cfg.DayOfMonth)
		if !due.After(now) {
			due = addCalendar(due, 1, 0, cfg.DayOfMonth)
		}
		return due
	default: // MONTHLY and anything unrecognised
		due := addCalendar(anchor, 0, 1, cfg.DayOfMonth)
		if !due.After(now) {
			due = addCalendar(due, 0, 1, cfg.DayOfMonth)
		}
		return due
	}
}

// addCalendar advances t by the given years/months keeping the configured
// day of month (or t's own day when nil), clamping to the target month's
// last day. Shifting from the first of the month avoids AddDate's overflow
// normalization: Jan 31 plus one month lands on Feb 28, not Mar 3.
func addCalendar(t time.Time, years, months int, day *int) time.Time {
	d := t.Day()
	if day != nil {
		d = *day
	}
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	return withDayOfMonth(first.AddDate(years, months, 0), &d)
}

// withDayOfMonth pins a date to the configured day of month, clamping to
// the month's last day. A nil day keeps the date's own day.
func withDayOfMonth(t time.Time, day *int) time.Time {
	if day == nil {
		return t
	}
	d := *day
	if d < 1 {
		d = 1
	}
	lastDay := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).
		AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(t.Year(), t.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysLate returns the number of whole days reference is past dueDate,
// floored, with negative values clamped to zero.
func DaysLate(dueDate, reference time.Time) int {
	diff := reference.Sub(dueDate)
	if diff <= 0 {
		return 0
	}
	return int(diff / (24 * time.Hour))
}

// PeriodInterest computes the loan interest due for one collection period
// on the given outstanding principal, splitting the annual rate across the
// frequency's periods per year.
func PeriodInterest(annualRatePercent decimal.Decimal, principal decimal.Decimal, frequency domain.CollectionFrequency) decimal.Decimal {
	if principal.LessThanOrEqual(decimal.Zero) || annualRatePercent.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	periods := decimal.NewFromInt(frequency.PeriodsPerYear())
	return principal.Mul(annualRatePercent).Div(decimal.NewFromInt(100)).Div(periods).Round(2)
}
