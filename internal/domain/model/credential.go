package model

import "time"

// Credential is the OAuth2 token pair used to call the Basecamp API.
// Exactly one credential exists per installation.
type Credential struct {
	AccessToken  string
	RefreshToken string
	UpdatedAt    time.Time
}

// IsZero reports whether the credential has never been authorized.
func (c Credential) IsZero() bool {
	return c.AccessToken == ""
}

// Age returns how long ago the access token was last issued.
func (c Credential) Age(now time.Time) time.Duration {
	return now.Sub(c.UpdatedAt)
}

// TokenGrant is a token endpoint response. RefreshToken is empty when the
// provider did not rotate the refresh token.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// Identity is the authenticated Basecamp user behind the current credential.
type Identity struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	EmailAddress string `json:"email_address"`
	Client       bool   `json:"client"`
}
