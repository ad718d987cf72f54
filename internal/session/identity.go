package session

import (
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/desertthunder/bkx/internal/models"
	"github.com/desertthunder/bkx/internal/shared"
)

// DecodeIdentity reads the claims of an identity token without verifying its signature.
// The result is for display only.
func DecodeIdentity(idToken string) (*models.Identity, error) {
	tok, err := jwt.ParseString(idToken, jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable identity token: %w", shared.ErrAuthFailed, err)
	}

	id := &models.Identity{
		Issuer:  tok.Issuer(),
		Subject: tok.Subject(),
		TokenID: tok.JwtID(),
	}
	if aud := tok.Audience(); len(aud) > 0 {
		id.Audience = aud[0]
	}
	if t := tok.IssuedAt(); !t.IsZero() {
		id.IssuedAt = t.Unix()
	}
	if t := tok.NotBefore(); !t.IsZero() {
		id.NotBefore = t.Unix()
	}
	if t := tok.Expiration(); !t.IsZero() {
		id.ExpiresAt = t.Unix()
	}

	claims := tok.PrivateClaims()
	id.AuthorizedBy, _ = claims["azp"].(string)
	id.Email, _ = claims["email"].(string)
	id.Name, _ = claims["name"].(string)
	id.GivenName, _ = claims["given_name"].(string)
	id.FamilyName, _ = claims["family_name"].(string)
	id.Picture, _ = claims["picture"].(string)
	switch v := claims["email_verified"].(type) {
	case bool:
		id.EmailVerified = v
	case string:
		id.EmailVerified = v == "true"
	}

	if id.Subject == "" {
		return nil, fmt.Errorf("%w: identity token has no subject", shared.ErrAuthFailed)
	}
	return id, nil
}
