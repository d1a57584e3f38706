package domain

import "time"

// TokenSet holds one account's OAuth2 token material. The access token is
// short-lived and replaceable; the refresh token is long-lived and may rotate
// when the provider issues a replacement on refresh.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
}

// ExpiresWithin reports whether the access token is already expired or will
// expire within the given margin. A zero Expiry counts as expired.
func (t TokenSet) ExpiresWithin(margin time.Duration) bool {
	return !t.Expiry.After(time.Now().Add(margin))
}
