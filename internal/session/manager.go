package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/bkx/internal/models"
	"github.com/desertthunder/bkx/internal/oauth"
	"github.com/desertthunder/bkx/internal/services"
	"github.com/desertthunder/bkx/internal/shared"
	"github.com/desertthunder/bkx/internal/validation"
)

// Display messages set by the manager.
const (
	MsgLoginNotReady  = "Google Login is not ready. Please try again in a moment."
	MsgExchangeFailed = "Code exchange failed"
	MsgTokenExpired   = "Token invalid/expired. Please log in again."
	MsgPleaseLogIn    = "Please log in."
	MsgLibraryFailed  = "Failed to fetch library."
	MsgAdded          = "Added ✅"
	MsgRemoved        = "Removed 🗑️"
	MsgAddFailed      = "Failed to add book."
	MsgRemoveFailed   = "Failed to remove book."
)

// DefaultResetDelay is how long a finished add or remove keeps its status before returning to idle.
const DefaultResetDelay = 2 * time.Second

const subscriptionBuffer = 16

// LoginFlow is the interactive part of signing in, implemented by [oauth.CodeFlow].
type LoginFlow interface {
	IsReady() bool
	StartLogin(ctx context.Context, cb oauth.Callbacks)
	RedirectURL() string
	Revoke(ctx context.Context, token string) error
	DisableAutoSelect()
}

// EventKind says which part of the state changed.
type EventKind string

const (
	EventAuth     EventKind = "auth"
	EventLibrary  EventKind = "library"
	EventMutation EventKind = "mutation"
)

// Event is published after every state change. Version is the library version at the time.
type Event struct {
	Kind    EventKind
	Version int
	BookID  string
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	Identity       *models.Identity
	Shelves        []models.Shelf // nil until the first successful fetch
	AuthLoading    bool
	LibraryLoading bool
	AuthError      string
	LibraryError   string
	Version        int
	Mutations      map[string]models.MutationState
}

// SignedIn reports whether the snapshot has an identity.
func (s Snapshot) SignedIn() bool { return s.Identity != nil }

// Options configure a [Manager]. Gateway is required.
type Options struct {
	Gateway    services.Gateway
	Flow       LoginFlow
	Logger     *log.Logger
	ResetDelay time.Duration
}

type mutation struct {
	state models.MutationState
	token uint64
}

// Manager owns the session. It is safe for concurrent use.
type Manager struct {
	gw         services.Gateway
	flow       LoginFlow
	logger     *log.Logger
	validator  *validation.Validator
	resetDelay time.Duration

	mu             sync.Mutex
	identity       *models.Identity
	creds          services.Credentials
	shelves        []models.Shelf
	authLoading    bool
	libraryLoading bool
	authErr        string
	libraryErr     string
	version        int
	mutations      map[string]mutation
	timers         map[string]*time.Timer
	opSeq          uint64
	epoch          uint64 // bumped on sign in and sign out
	fetchSeq       uint64
	cancelFetch    context.CancelFunc

	subMu sync.Mutex
	subs  map[chan Event]struct{}
}

// NewManager creates a signed-out manager.
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.ResetDelay <= 0 {
		opts.ResetDelay = DefaultResetDelay
	}
	return &Manager{
		gw:         opts.Gateway,
		flow:       opts.Flow,
		logger:     shared.WithLogger(opts.Logger, "component", "session"),
		validator:  validation.New(),
		resetDelay: opts.ResetDelay,
		mutations:  map[string]mutation{},
		timers:     map[string]*time.Timer{},
		subs:       map[chan Event]struct{}{},
	}
}

// Subscribe returns a channel of state change events and a function that ends the subscription.
//
// Events are dropped for a subscriber whose buffer is full; a later event still prompts a fresh snapshot.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriptionBuffer)

	m.subMu.Lock()
	m.subs[ch] = struct{}{}
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, ch)
			m.subMu.Unlock()
			close(ch)
		})
	}
}

func (m *Manager) publish(kind EventKind, bookID string) {
	m.mu.Lock()
	ev := Event{Kind: kind, Version: m.version, BookID: bookID}
	m.mu.Unlock()

	m.subMu.Lock()
	defer m.subMu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- ev:
		default:
			m.logger.Debug("subscriber lagging, event dropped", "kind", kind)
		}
	}
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		AuthLoading:    m.authLoading,
		LibraryLoading: m.libraryLoading,
		AuthError:      m.authErr,
		LibraryError:   m.libraryErr,
		Version:        m.version,
		Mutations:      make(map[string]models.MutationState, len(m.mutations)),
	}
	if m.identity != nil {
		id := *m.identity
		snap.Identity = &id
	}
	if m.shelves != nil {
		snap.Shelves = append([]models.Shelf{}, m.shelves...)
	}
	for id, mu := range m.mutations {
		snap.Mutations[id] = mu.state
	}
	return snap
}

// Credentials returns the current tokens, empty when signed out.
func (m *Manager) Credentials() services.Credentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds
}

// SignedIn reports whether both tokens and an identity are held.
func (m *Manager) SignedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity != nil && m.creds.Valid()
}

// Version returns the library version, bumped after each applied shelf fetch.
func (m *Manager) Version() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// MutationState returns the state of the latest action on bookID, idle when there is none.
func (m *Manager) MutationState(bookID string) models.MutationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutations[bookID].state.Normalized()
}

// AddableShelves returns the shelves volumes may be added to from search.
func (m *Manager) AddableShelves() []models.Shelf {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Shelf
	for _, s := range m.shelves {
		if models.IsAddable(s) {
			out = append(out, s)
		}
	}
	return out
}

// LoginReady reports whether [Manager.Login] can start a login now.
func (m *Manager) LoginReady() bool {
	return m.flow != nil && m.flow.IsReady()
}

// Login runs the interactive login, blocking until it settles. Failures are recorded as the auth error.
func (m *Manager) Login(ctx context.Context) {
	if !m.LoginReady() {
		m.setAuthError(MsgLoginNotReady)
		return
	}

	m.mu.Lock()
	m.authLoading = true
	m.authErr = ""
	m.mu.Unlock()
	m.publish(EventAuth, "")

	m.flow.StartLogin(ctx, oauth.Callbacks{
		OnSuccess: func(code string) {
			if err := m.CompleteLogin(ctx, code); err != nil {
				m.logger.Warn("login failed", "err", err)
			}
		},
		OnError: m.FailLogin,
	})
}

// CompleteLogin exchanges code for tokens, signs the user in and loads the library.
//
// If the user signs out while the exchange is in flight, its result is discarded.
func (m *Manager) CompleteLogin(ctx context.Context, code string) error {
	m.mu.Lock()
	m.authLoading = true
	m.authErr = ""
	epoch := m.epoch
	m.mu.Unlock()

	redirect := ""
	if m.flow != nil {
		redirect = m.flow.RedirectURL()
	}

	tokens, err := m.gw.Exchange(ctx, code, redirect)
	if m.epochChanged(epoch) {
		m.logger.Debug("dropping code exchange after sign out", "err", err)
		return nil
	}
	if err != nil {
		m.setAuthError(services.Message(err, MsgExchangeFailed))
		return err
	}

	identity := tokens.UserInfo
	if identity == nil {
		identity, err = DecodeIdentity(tokens.IDToken)
		if err != nil {
			m.setAuthError(MsgExchangeFailed)
			return err
		}
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		m.logger.Debug("dropping code exchange after sign out")
		return nil
	}
	m.identity = identity
	m.creds = services.Credentials{AccessToken: tokens.AccessToken, IDToken: tokens.IDToken}
	m.authLoading = false
	m.authErr = ""
	m.libraryErr = ""
	m.epoch++
	m.mu.Unlock()

	m.logger.Info("signed in", "user", identity.DisplayName())
	m.publish(EventAuth, "")

	if err := m.FetchLibrary(ctx); err != nil {
		m.logger.Warn("initial library fetch failed", "err", err)
	}
	return nil
}

func (m *Manager) epochChanged(epoch uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch != epoch
}

// FailLogin records a login failure reported by the login flow.
func (m *Manager) FailLogin(msg string) {
	m.setAuthError(msg)
}

func (m *Manager) setAuthError(msg string) {
	m.mu.Lock()
	m.authLoading = false
	m.authErr = msg
	m.mu.Unlock()
	m.publish(EventAuth, "")
}

// Logout clears identity, tokens, shelves, errors and mutation state, then revokes the access token.
//
// Safe to call when signed out.
func (m *Manager) Logout(ctx context.Context) {
	m.logout(ctx, "")
}

// logout clears the session and leaves libraryErr set to reason.
func (m *Manager) logout(ctx context.Context, reason string) {
	m.mu.Lock()
	token := m.creds.AccessToken
	wasSignedIn := m.identity != nil || m.creds.Valid()

	m.identity = nil
	m.creds = services.Credentials{}
	m.shelves = nil
	m.authLoading = false
	m.libraryLoading = false
	m.authErr = ""
	m.libraryErr = reason
	m.mutations = map[string]mutation{}
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
	if m.cancelFetch != nil {
		m.cancelFetch()
		m.cancelFetch = nil
	}
	m.epoch++
	m.mu.Unlock()

	if m.flow != nil {
		m.flow.DisableAutoSelect()
		if token != "" {
			if err := m.flow.Revoke(ctx, token); err != nil {
				m.logger.Debug("token revoke failed", "err", err)
			}
		}
	}

	if wasSignedIn {
		m.logger.Info("signed out")
	}
	m.publish(EventAuth, "")
}

// handleUnauthorized signs out after a 401 and reports the expired session.
func (m *Manager) handleUnauthorized(ctx context.Context) {
	m.logger.Warn("gateway rejected credentials, signing out")
	m.logout(ctx, MsgTokenExpired)
	m.publish(EventLibrary, "")
}

// FetchLibrary replaces the shelf list with the gateway's.
//
// A fetch started while another is in flight cancels it, and only the newest response is applied.
// A superseded call returns nil.
func (m *Manager) FetchLibrary(ctx context.Context) error {
	m.mu.Lock()
	creds := m.creds
	if !creds.Valid() {
		m.mu.Unlock()
		return shared.ErrNotAuthenticated
	}
	if m.cancelFetch != nil {
		m.cancelFetch()
	}
	m.fetchSeq++
	seq, epoch := m.fetchSeq, m.epoch
	fetchCtx, cancel := context.WithCancel(ctx)
	m.cancelFetch = cancel
	m.libraryLoading = true
	m.libraryErr = ""
	m.mu.Unlock()
	defer cancel()

	m.publish(EventLibrary, "")

	shelves, err := m.gw.Shelves(fetchCtx, creds)

	m.mu.Lock()
	if seq != m.fetchSeq || epoch != m.epoch {
		m.mu.Unlock()
		m.logger.Debug("library fetch superseded", "seq", seq)
		return nil
	}
	m.cancelFetch = nil
	m.libraryLoading = false

	if err != nil {
		if services.IsUnauthorized(err) {
			m.mu.Unlock()
			m.handleUnauthorized(ctx)
			return err
		}
		m.libraryErr = services.Message(err, MsgLibraryFailed)
		m.mu.Unlock()
		m.logger.Warn("library fetch failed", "err", err)
		m.publish(EventLibrary, "")
		return err
	}

	if shelves == nil {
		shelves = []models.Shelf{}
	}
	m.shelves = shelves
	m.version++
	m.mu.Unlock()

	m.logger.Debug("library loaded", "shelves", len(shelves))
	m.publish(EventLibrary, "")
	return nil
}

type mutationKind struct {
	delta    int
	success  string
	fallback string
	call     func(services.Gateway, context.Context, services.Credentials, string, string) error
}

var (
	addMutation = mutationKind{
		delta:    1,
		success:  MsgAdded,
		fallback: MsgAddFailed,
		call:     services.Gateway.AddVolume,
	}
	removeMutation = mutationKind{
		delta:    -1,
		success:  MsgRemoved,
		fallback: MsgRemoveFailed,
		call:     services.Gateway.RemoveVolume,
	}
)

// AddBookToShelf adds bookID to shelfID. The returned error's message is also recorded as the book's mutation state.
func (m *Manager) AddBookToShelf(ctx context.Context, bookID, shelfID string) error {
	return m.mutate(ctx, addMutation, bookID, shelfID)
}

// RemoveBookFromShelf removes bookID from shelfID. Errors are reported as for [Manager.AddBookToShelf].
func (m *Manager) RemoveBookFromShelf(ctx context.Context, bookID, shelfID string) error {
	return m.mutate(ctx, removeMutation, bookID, shelfID)
}

// MutationError carries the message recorded for a failed add or remove.
type MutationError struct {
	BookID  string
	Message string
	Err     error
}

func (e *MutationError) Error() string { return e.Message }
func (e *MutationError) Unwrap() error { return e.Err }

func (m *Manager) mutate(ctx context.Context, kind mutationKind, bookID, shelfID string) error {
	if err := m.validator.Validate(models.ShelfMutation{BookID: bookID, ShelfID: shelfID}); err != nil {
		if bookID != "" {
			token := m.beginMutation(bookID)
			m.finishMutation(bookID, token, models.MutationState{Status: models.MutationError, Message: err.Error()})
		}
		return err
	}

	creds := m.Credentials()
	if !creds.Valid() {
		m.setAuthError(MsgPleaseLogIn)
		return shared.ErrNotAuthenticated
	}

	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()

	token := m.beginMutation(bookID)
	err := kind.call(m.gw, ctx, creds, shelfID, bookID)

	m.mu.Lock()
	stale := epoch != m.epoch
	m.mu.Unlock()
	if stale {
		m.logger.Debug("mutation finished after sign out", "book", bookID)
		return err
	}

	if err != nil {
		msg := services.Message(err, kind.fallback)
		m.finishMutation(bookID, token, models.MutationState{Status: models.MutationError, Message: msg})
		if services.IsUnauthorized(err) {
			m.handleUnauthorized(ctx)
		}
		return &MutationError{BookID: bookID, Message: msg, Err: err}
	}

	m.adjustCount(shelfID, kind.delta)
	m.finishMutation(bookID, token, models.MutationState{Status: models.MutationSuccess, Message: kind.success})

	if err := m.FetchLibrary(ctx); err != nil {
		m.logger.Warn("library reconcile failed", "err", err)
	}
	return nil
}

// beginMutation marks bookID loading and returns the action's token.
func (m *Manager) beginMutation(bookID string) uint64 {
	m.mu.Lock()
	m.opSeq++
	token := m.opSeq
	if t, ok := m.timers[bookID]; ok {
		t.Stop()
		delete(m.timers, bookID)
	}
	m.mutations[bookID] = mutation{state: models.MutationState{Status: models.MutationLoading}, token: token}
	m.mu.Unlock()

	m.publish(EventMutation, bookID)
	return token
}

// finishMutation records the outcome and schedules the reset to idle.
func (m *Manager) finishMutation(bookID string, token uint64, state models.MutationState) {
	m.mu.Lock()
	if cur, ok := m.mutations[bookID]; !ok || cur.token != token {
		m.mu.Unlock()
		return
	}
	m.mutations[bookID] = mutation{state: state, token: token}
	m.timers[bookID] = time.AfterFunc(m.resetDelay, func() { m.resetMutation(bookID, token) })
	m.mu.Unlock()

	m.publish(EventMutation, bookID)
}

func (m *Manager) resetMutation(bookID string, token uint64) {
	m.mu.Lock()
	cur, ok := m.mutations[bookID]
	if !ok || cur.token != token {
		m.mu.Unlock()
		return
	}
	delete(m.mutations, bookID)
	delete(m.timers, bookID)
	m.mu.Unlock()

	m.publish(EventMutation, bookID)
}

func (m *Manager) adjustCount(shelfID string, delta int) {
	m.mu.Lock()
	for i := range m.shelves {
		if m.shelves[i].Key() == shelfID {
			m.shelves[i].VolumeCount = max(0, m.shelves[i].VolumeCount+delta)
		}
	}
	m.mu.Unlock()

	m.publish(EventLibrary, "")
}

// Message returns the display text for an error returned by the manager.
func Message(err error) string {
	var mutErr *MutationError
	if errors.As(err, &mutErr) {
		return mutErr.Message
	}
	return services.Message(err, fmt.Sprint(err))
}
