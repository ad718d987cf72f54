package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/bkx/internal/models"
)

// HeaderAccessToken carries the upstream catalog access token next to the identity bearer token.
const HeaderAccessToken = "X-Google-Access-Token"

// Gateway paths. Shelf paths take the shelf id.
const (
	PathExchange     = "/api/auth/google/exchange"
	PathSearch       = "/api/books/search"
	PathShelves      = "/api/my-library/bookshelves"
	pathShelfVolumes = "/api/my-library/bookshelves/%s/volumes"
	pathShelfAdd     = "/api/my-library/bookshelves/%s/add"
	pathShelfRemove  = "/api/my-library/bookshelves/%s/remove"
)

// Gateway defines the calls the client makes against the API gateway.
type Gateway interface {
	// Exchange trades an authorization code for access/identity tokens and the user's claims.
	Exchange(ctx context.Context, code, redirectURI string) (*models.TokenResponse, error)

	// Search queries the public catalog. No credentials are sent.
	Search(ctx context.Context, req models.SearchRequest) ([]models.BookSummary, error)

	// Shelves lists the signed-in user's shelves.
	Shelves(ctx context.Context, creds Credentials) ([]models.Shelf, error)

	// ShelfVolumes lists the volumes on one shelf.
	ShelfVolumes(ctx context.Context, creds Credentials, shelfID string) ([]models.Volume, error)

	// AddVolume puts a volume on a shelf.
	AddVolume(ctx context.Context, creds Credentials, shelfID, volumeID string) error

	// RemoveVolume takes a volume off a shelf.
	RemoveVolume(ctx context.Context, creds Credentials, shelfID, volumeID string) error
}

// Credentials are the two tokens every authenticated gateway call needs.
type Credentials struct {
	AccessToken string
	IDToken     string
}

// Valid reports whether both tokens are present.
func (c Credentials) Valid() bool {
	return c.AccessToken != "" && c.IDToken != ""
}

func (c Credentials) apply(h http.Header) {
	h.Set("Authorization", "Bearer "+c.IDToken)
	h.Set(HeaderAccessToken, c.AccessToken)
}
