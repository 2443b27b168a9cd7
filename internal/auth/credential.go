package auth

import (
	"time"

	"golang.org/x/oauth2"
)

// ExpiryMargin is subtracted from the server-reported token expiry so that
// staleness checks leave headroom for refresh latency. A credential is
// treated as expired ExpiryMargin before the provider would reject it.
const ExpiryMargin = 5 * time.Minute

// Credential is the access/refresh token pair used to authenticate outbound
// requests. ExpiresAt is always stored margin-adjusted; see [ExpiryMargin].
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// NewCredential builds a Credential from an [oauth2.Token], applying the
// expiry margin. Tokens without a reported expiry are treated as already
// stale so the next use triggers a refresh.
func NewCredential(tok *oauth2.Token) Credential {
	var expiresAt time.Time
	if !tok.Expiry.IsZero() {
		expiresAt = tok.Expiry.Add(-ExpiryMargin)
	}
	return Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt,
	}
}

// Fresh reports whether the credential can still be used at the given time.
func (c Credential) Fresh(now time.Time) bool {
	return c.AccessToken != "" && now.Before(c.ExpiresAt)
}

// Token converts the credential back to an [oauth2.Token]. The expiry is the
// margin-adjusted value, so the oauth2 transport agrees with this package on
// when a refresh is due.
func (c Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		Expiry:       c.ExpiresAt,
	}
}
