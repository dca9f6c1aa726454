package domain

// User is a login account. A user may be linked to a member record, which
// is how group-leader authorization resolves the caller's member identity.
type User struct {
	UserID       string  `json:"userID"`
	Username     string  `json:"username"`
	Name         string  `json:"name"`
	PasswordHash string  `json:"-"`
	MemberID     *string `json:"memberID,omitempty"`
	AuditFields
}
