package session

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/bkx/internal/models"
	"github.com/desertthunder/bkx/internal/services"
	"github.com/desertthunder/bkx/internal/shared"
)

// Shelf view messages.
const (
	MsgShelfLogIn  = "Please log in again."
	MsgShelfFailed = "Failed to fetch shelf."
	MsgShelfEmpty  = "No books on this shelf."
)

// ShelfSnapshot is a copy of a [ShelfView]'s state.
type ShelfSnapshot struct {
	Active  *models.Shelf
	Volumes []models.Volume // nil while loading or when no shelf is open
	Loading bool
	Error   string
}

// ShelfView tracks the shelf the user is browsing and its volumes.
type ShelfView struct {
	m     *Manager
	group singleflight.Group

	mu      sync.Mutex
	active  *models.Shelf
	volumes []models.Volume
	loading bool
	err     string
	gen     uint64
	synced  int
}

// NewShelfView creates a view over m's library.
func NewShelfView(m *Manager) *ShelfView {
	return &ShelfView{m: m}
}

// Snapshot returns a copy of the view.
func (v *ShelfView) Snapshot() ShelfSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := ShelfSnapshot{Loading: v.loading, Error: v.err}
	if v.active != nil {
		s := *v.active
		snap.Active = &s
	}
	if v.volumes != nil {
		snap.Volumes = append([]models.Volume{}, v.volumes...)
	}
	return snap
}

// Open makes shelf active and loads its volumes.
//
// Concurrent opens of the same shelf share one request. A response for a shelf that is no longer active is dropped.
func (v *ShelfView) Open(ctx context.Context, shelf models.Shelf) error {
	creds := v.m.Credentials()
	if !creds.Valid() {
		v.mu.Lock()
		v.err = MsgShelfLogIn
		v.mu.Unlock()
		return shared.ErrNotAuthenticated
	}

	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.active = &shelf
	v.volumes = nil
	v.loading = true
	v.err = ""
	v.mu.Unlock()

	return v.load(ctx, creds, shelf, gen, true)
}

// Refresh reloads the active shelf, keeping the current volumes on screen until the response arrives.
//
// It always sends a new request: a fetch already in flight may predate the change being refreshed for.
func (v *ShelfView) Refresh(ctx context.Context) error {
	creds := v.m.Credentials()

	v.mu.Lock()
	if v.active == nil || !creds.Valid() {
		v.mu.Unlock()
		return nil
	}
	v.gen++
	gen, shelf := v.gen, *v.active
	v.loading = true
	v.mu.Unlock()

	v.group.Forget(shelf.Key())
	return v.load(ctx, creds, shelf, gen, false)
}

func (v *ShelfView) load(ctx context.Context, creds services.Credentials, shelf models.Shelf, gen uint64, clearOnError bool) error {
	key := shelf.Key()
	res, err, dup := v.group.Do(key, func() (any, error) {
		return v.m.gw.ShelfVolumes(ctx, creds, key)
	})
	if dup {
		v.m.logger.Debug("shelf fetch shared", "shelf", key)
	}

	v.mu.Lock()
	if gen != v.gen || v.active == nil || v.active.ID != shelf.ID {
		v.mu.Unlock()
		return nil
	}
	v.loading = false

	if err != nil {
		v.err = services.Message(err, MsgShelfFailed)
		if clearOnError || services.IsUnauthorized(err) {
			v.active = nil
			v.volumes = nil
		}
		v.mu.Unlock()

		if services.IsUnauthorized(err) {
			v.m.handleUnauthorized(ctx)
		}
		return err
	}

	vols, _ := res.([]models.Volume)
	v.volumes = append([]models.Volume{}, vols...)
	v.err = ""
	v.mu.Unlock()
	return nil
}

// Close clears the active shelf.
func (v *ShelfView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	v.active = nil
	v.volumes = nil
	v.loading = false
	v.err = ""
}

// Remove takes volumeID off the active shelf.
//
// The volume disappears from the view at once. If the gateway refuses, the shelf is re-fetched so it comes back.
func (v *ShelfView) Remove(ctx context.Context, volumeID string) error {
	v.mu.Lock()
	if v.active == nil {
		v.mu.Unlock()
		return nil
	}
	shelfID := v.active.Key()
	kept := v.volumes[:0:0]
	for _, vol := range v.volumes {
		if vol.ID != volumeID {
			kept = append(kept, vol)
		}
	}
	v.volumes = kept
	v.mu.Unlock()

	err := v.m.RemoveBookFromShelf(ctx, volumeID, shelfID)
	if err != nil && v.m.SignedIn() {
		if rerr := v.Refresh(ctx); rerr != nil {
			v.m.logger.Warn("shelf restore failed", "shelf", shelfID, "err", rerr)
		}
	}
	return err
}

// Sync reacts to a manager event: a newer library version reloads the active shelf and a sign out clears the view.
func (v *ShelfView) Sync(ctx context.Context, ev Event) {
	if !v.m.SignedIn() {
		v.Close()
		v.mu.Lock()
		v.synced = 0
		v.mu.Unlock()
		return
	}
	if ev.Kind != EventLibrary {
		return
	}

	v.mu.Lock()
	if ev.Version <= v.synced {
		v.mu.Unlock()
		return
	}
	v.synced = ev.Version
	active := v.active
	if active != nil {
		for _, s := range v.m.Snapshot().Shelves {
			if s.ID == active.ID {
				updated := s
				v.active = &updated
			}
		}
	}
	v.mu.Unlock()

	if active != nil {
		if err := v.Refresh(ctx); err != nil {
			v.m.logger.Debug("shelf resync failed", "shelf", strconv.Itoa(active.ID), "err", err)
		}
	}
}

// Watch calls [ShelfView.Sync] for every manager event until ctx ends.
func (v *ShelfView) Watch(ctx context.Context) {
	events, stop := v.m.Subscribe()
	defer stop()

	v.mu.Lock()
	v.synced = v.m.Version()
	v.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			v.Sync(ctx, ev)
		}
	}
}
