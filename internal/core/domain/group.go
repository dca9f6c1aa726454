package domain

import "github.com/shopspring/decimal"

// CollectionFrequency describes how often a group collects contributions.
type CollectionFrequency string

const (
	Weekly      CollectionFrequency = "WEEKLY"
	Fortnightly CollectionFrequency = "FORTNIGHTLY"
	Monthly     CollectionFrequency = "MONTHLY"
	Yearly      CollectionFrequency = "YEARLY"
)

// PeriodsPerYear returns how many collection periods the frequency yields in a year.
// Unknown frequencies behave as MONTHLY, mirroring the schedule calculator.
func (f CollectionFrequency) PeriodsPerYear() int64 {
	switch f {
	case Weekly:
		return 52
	case Fortnightly:
		return 26
	case Yearly:
		return 1
	default:
		return 12
	}
}

// Group is the organizational unit everything else hangs off: members,
// periodic records, fine rules and loans all belong to a group.
type Group struct {
	GroupID        string              `json:"groupID"`
	Name           string              `json:"name"`
	Description    string              `json:"description,omitempty"`
	LeaderMemberID string              `json:"leaderMemberID"`
	Frequency      CollectionFrequency `json:"frequency"`

	// Schedule anchors. Which of these is meaningful depends on Frequency;
	// missing anchors are permissively defaulted by the schedule calculator.
	CollectionDayOfMonth  *int `json:"collectionDayOfMonth,omitempty"`  // 1-31
	CollectionDayOfWeek   *int `json:"collectionDayOfWeek,omitempty"`   // 0 = Sunday
	CollectionWeekOfMonth *int `json:"collectionWeekOfMonth,omitempty"` // 1-5

	MonthlyContribution decimal.Decimal `json:"monthlyContribution"`
	InterestRatePercent decimal.Decimal `json:"interestRatePercent"` // annual loan interest

	CashInHand decimal.Decimal `json:"cashInHand"`
	CashInBank decimal.Decimal `json:"cashInBank"`

	LoanInsuranceEnabled bool `json:"loanInsuranceEnabled"`
	GroupSocialEnabled   bool `json:"groupSocialEnabled"`

	AuditFields
}
