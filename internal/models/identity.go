package models

import "time"

// Identity holds the decoded identity-token claims of the signed-in user.
type Identity struct {
	Issuer        string `json:"iss,omitempty"`
	AuthorizedBy  string `json:"azp,omitempty"`
	Audience      string `json:"aud,omitempty"`
	Subject       string `json:"sub"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
	GivenName     string `json:"given_name,omitempty"`
	FamilyName    string `json:"family_name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	IssuedAt      int64  `json:"iat,omitempty"`
	NotBefore     int64  `json:"nbf,omitempty"`
	ExpiresAt     int64  `json:"exp,omitempty"`
	TokenID       string `json:"jti,omitempty"`
}

// Expiry returns the expiry claim as a time, zero when absent.
func (i Identity) Expiry() time.Time {
	if i.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(i.ExpiresAt, 0)
}

// DisplayName prefers the full name, then the email, then the subject.
func (i Identity) DisplayName() string {
	switch {
	case i.Name != "":
		return i.Name
	case i.Email != "":
		return i.Email
	default:
		return i.Subject
	}
}

// TokenResponse is returned by the gateway after an authorization code exchange.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	IDToken     string    `json:"id_token"`
	UserInfo    *Identity `json:"user_info,omitempty"`
	ExpiresIn   int       `json:"expires_in,omitempty"`
}
