package dto

// RegisterRequest is the payload for creating a login account.
type RegisterRequest struct {
	Username string  `json:"username" binding:"required,min=3"`
	Name     string  `json:"name" binding:"required"`
	Password string  `json:"password" binding:"required,min=8"`
	MemberID *string `json:"memberID,omitempty"`
}

// LoginRequest is the payload for username/password login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	UserID      string `json:"userID"`
	Name        string `json:"name"`
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn"` // seconds
}
