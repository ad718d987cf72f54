// Package fakegw provides an in-memory [services.Gateway] for tests.
package fakegw

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/desertthunder/bkx/internal/models"
	"github.com/desertthunder/bkx/internal/services"
	"github.com/desertthunder/bkx/internal/shared"
)

var _ services.Gateway = (*Gateway)(nil)

// Gateway behaves like a small bookshelf service. Adds and removes update the stored shelves so reconciling fetches observe them.
//
// Hooks, when set, replace the built-in behavior of their call.
type Gateway struct {
	mu sync.Mutex

	Tokens      *models.TokenResponse
	ExchangeErr error

	Books     []models.BookSummary
	SearchErr error

	ShelfList  []models.Shelf
	ShelvesErr error

	Volumes    map[string][]models.Volume
	VolumesErr error

	AddErr    error
	RemoveErr error

	ExchangeHook func(ctx context.Context, code string) (*models.TokenResponse, error)
	ShelvesHook  func(ctx context.Context, call int) ([]models.Shelf, error)
	VolumesHook  func(ctx context.Context, shelfID string, call int) ([]models.Volume, error)

	// MutationHook runs before an add or remove is applied; op is "add" or "remove". A non-nil error fails the call.
	MutationHook func(ctx context.Context, op, shelfID, volumeID string) error

	calls        []string
	shelvesCalls int
	volumeCalls  int
}

// New returns a gateway with a signed-in user and the given shelves.
func New(shelves ...models.Shelf) *Gateway {
	return &Gateway{
		Tokens: &models.TokenResponse{
			AccessToken: "access-token",
			IDToken:     "id-token",
			UserInfo:    &models.Identity{Subject: "user-1", Email: "reader@example.com", Name: "Reader"},
			ExpiresIn:   3599,
		},
		ShelfList: shelves,
		Volumes:   map[string][]models.Volume{},
	}
}

// Unauthorized returns the error the real client produces for a 401.
func Unauthorized() error {
	return &services.APIError{StatusCode: 401, Message: "Token has been expired or revoked."}
}

// Failure returns a non-401 gateway error with msg.
func Failure(status int, msg string) error {
	return &services.APIError{StatusCode: status, Message: msg}
}

// Calls returns a copy of the recorded calls, e.g. "shelves" or "add:1:abc".
func (g *Gateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

// Count returns how many recorded calls equal name.
func (g *Gateway) Count(name string) int {
	n := 0
	for _, c := range g.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

// SetShelves replaces the stored shelves.
func (g *Gateway) SetShelves(shelves ...models.Shelf) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ShelfList = shelves
}

func (g *Gateway) record(call string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
}

func (g *Gateway) Exchange(ctx context.Context, code, redirectURI string) (*models.TokenResponse, error) {
	g.record("exchange:" + code)

	g.mu.Lock()
	hook := g.ExchangeHook
	g.mu.Unlock()
	if hook != nil {
		return hook(ctx, code)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ExchangeErr != nil {
		return nil, g.ExchangeErr
	}
	tokens := *g.Tokens
	return &tokens, nil
}

func (g *Gateway) Search(ctx context.Context, req models.SearchRequest) ([]models.BookSummary, error) {
	g.record(fmt.Sprintf("search:%s:%s", req.Type, req.Query))
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.SearchErr != nil {
		return nil, g.SearchErr
	}
	return append([]models.BookSummary(nil), g.Books...), nil
}

func (g *Gateway) Shelves(ctx context.Context, creds services.Credentials) ([]models.Shelf, error) {
	if !creds.Valid() {
		return nil, shared.ErrNotAuthenticated
	}
	g.record("shelves")

	g.mu.Lock()
	g.shelvesCalls++
	call, hook := g.shelvesCalls, g.ShelvesHook
	g.mu.Unlock()

	if hook != nil {
		return hook(ctx, call)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ShelvesErr != nil {
		return nil, g.ShelvesErr
	}
	return append([]models.Shelf(nil), g.ShelfList...), nil
}

func (g *Gateway) ShelfVolumes(ctx context.Context, creds services.Credentials, shelfID string) ([]models.Volume, error) {
	if !creds.Valid() {
		return nil, shared.ErrNotAuthenticated
	}
	g.record("volumes:" + shelfID)

	g.mu.Lock()
	g.volumeCalls++
	call, hook := g.volumeCalls, g.VolumesHook
	g.mu.Unlock()

	if hook != nil {
		return hook(ctx, shelfID, call)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.VolumesErr != nil {
		return nil, g.VolumesErr
	}
	return append([]models.Volume(nil), g.Volumes[shelfID]...), nil
}

func (g *Gateway) AddVolume(ctx context.Context, creds services.Credentials, shelfID, volumeID string) error {
	if !creds.Valid() {
		return shared.ErrNotAuthenticated
	}
	g.record(fmt.Sprintf("add:%s:%s", shelfID, volumeID))

	g.mu.Lock()
	hook := g.MutationHook
	g.mu.Unlock()
	if hook != nil {
		if err := hook(ctx, "add", shelfID, volumeID); err != nil {
			return err
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.AddErr != nil {
		return g.AddErr
	}
	g.Volumes[shelfID] = append(g.Volumes[shelfID], models.Volume{ID: volumeID, VolumeInfo: &models.VolumeInfo{Title: volumeID}})
	g.adjust(shelfID, 1)
	return nil
}

func (g *Gateway) RemoveVolume(ctx context.Context, creds services.Credentials, shelfID, volumeID string) error {
	if !creds.Valid() {
		return shared.ErrNotAuthenticated
	}
	g.record(fmt.Sprintf("remove:%s:%s", shelfID, volumeID))

	g.mu.Lock()
	hook := g.MutationHook
	g.mu.Unlock()
	if hook != nil {
		if err := hook(ctx, "remove", shelfID, volumeID); err != nil {
			return err
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.RemoveErr != nil {
		return g.RemoveErr
	}
	kept := g.Volumes[shelfID][:0]
	for _, v := range g.Volumes[shelfID] {
		if v.ID != volumeID {
			kept = append(kept, v)
		}
	}
	g.Volumes[shelfID] = kept
	g.adjust(shelfID, -1)
	return nil
}

func (g *Gateway) adjust(shelfID string, delta int) {
	id, err := strconv.Atoi(shelfID)
	if err != nil {
		return
	}
	for i := range g.ShelfList {
		if g.ShelfList[i].ID == id {
			g.ShelfList[i].VolumeCount += delta
			if g.ShelfList[i].VolumeCount < 0 {
				g.ShelfList[i].VolumeCount = 0
			}
		}
	}
}
