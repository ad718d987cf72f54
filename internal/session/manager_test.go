package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/bkx/internal/models"
	"github.com/desertthunder/bkx/internal/oauth"
	"github.com/desertthunder/bkx/internal/shared"
	tu "github.com/desertthunder/bkx/internal/testing"
	"github.com/desertthunder/bkx/internal/testing/fakegw"
)

type fakeFlow struct {
	mu       sync.Mutex
	ready    bool
	code     string
	errMsg   string
	revoked  []string
	disabled int
}

func (f *fakeFlow) IsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeFlow) StartLogin(_ context.Context, cb oauth.Callbacks) {
	f.mu.Lock()
	code, msg := f.code, f.errMsg
	f.mu.Unlock()
	if msg != "" {
		cb.OnError(msg)
		return
	}
	cb.OnSuccess(code)
}

func (f *fakeFlow) RedirectURL() string { return "http://127.0.0.1:8085/callback" }

func (f *fakeFlow) Revoke(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, token)
	return nil
}

func (f *fakeFlow) DisableAutoSelect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disabled++
}

const testResetDelay = 100 * time.Millisecond

func favorites() []models.Shelf {
	return []models.Shelf{
		{ID: 0, Title: "Favorites", VolumeCount: 2},
		{ID: 3, Title: "Reading now", VolumeCount: 0},
		{ID: 7, Title: "Have read", VolumeCount: 12},
	}
}

// signedIn returns a manager that has completed a login against gw.
func signedIn(t *testing.T, gw *fakegw.Gateway) (*Manager, *fakeFlow) {
	t.Helper()
	flow := &fakeFlow{ready: true, code: "4/code"}
	m := NewManager(Options{Gateway: gw, Flow: flow, ResetDelay: testResetDelay})
	m.Login(context.Background())
	require.True(t, m.SignedIn(), "login should succeed")
	return m, flow
}

func TestMutationState_DefaultsToIdle(t *testing.T) {
	m := NewManager(Options{Gateway: fakegw.New()})

	state := m.MutationState("never-touched")
	assert.Equal(t, models.MutationIdle, state.Status)
	assert.Empty(t, state.Message)
}

func TestLogin_NotReady(t *testing.T) {
	flow := &fakeFlow{}
	m := NewManager(Options{Gateway: fakegw.New(), Flow: flow})

	m.Login(context.Background())

	snap := m.Snapshot()
	assert.False(t, snap.SignedIn())
	assert.Equal(t, MsgLoginNotReady, snap.AuthError)
}

func TestLogin_NoFlow(t *testing.T) {
	m := NewManager(Options{Gateway: fakegw.New()})
	m.Login(context.Background())
	assert.Equal(t, MsgLoginNotReady, m.Snapshot().AuthError)
}

func TestLogin_LoadsIdentityAndLibrary(t *testing.T) {
	gw := fakegw.New(favorites()...)
	m, _ := signedIn(t, gw)

	snap := m.Snapshot()
	require.NotNil(t, snap.Identity)
	assert.Equal(t, "reader@example.com", snap.Identity.Email)
	assert.Len(t, snap.Shelves, 3)
	assert.Equal(t, 1, snap.Version)
	assert.Empty(t, snap.AuthError)
	assert.False(t, snap.AuthLoading)

	creds := m.Credentials()
	assert.Equal(t, "access-token", creds.AccessToken)
	assert.Equal(t, "id-token", creds.IDToken)
	assert.Equal(t, []string{"exchange:4/code", "shelves"}, gw.Calls())
}

func TestLogin_FlowError(t *testing.T) {
	m := NewManager(Options{Gateway: fakegw.New(), Flow: &fakeFlow{ready: true, errMsg: oauth.MsgNoCode}})
	m.Login(context.Background())

	snap := m.Snapshot()
	assert.False(t, snap.SignedIn())
	assert.Equal(t, oauth.MsgNoCode, snap.AuthError)
}

func TestCompleteLogin_ExchangeFailure(t *testing.T) {
	t.Run("server message", func(t *testing.T) {
		gw := fakegw.New()
		gw.ExchangeErr = fakegw.Failure(400, "invalid_grant")
		m := NewManager(Options{Gateway: gw})

		err := m.CompleteLogin(context.Background(), "bad")
		require.Error(t, err)
		assert.Equal(t, "invalid_grant", m.Snapshot().AuthError)
		assert.False(t, m.SignedIn())
	})

	t.Run("fallback message", func(t *testing.T) {
		gw := fakegw.New()
		gw.ExchangeErr = shared.ErrAPIRequest
		m := NewManager(Options{Gateway: gw})

		require.Error(t, m.CompleteLogin(context.Background(), "code"))
		assert.Equal(t, MsgExchangeFailed, m.Snapshot().AuthError)
	})
}

func TestCompleteLogin_DecodesIdentityToken(t *testing.T) {
	tok, err := jwt.NewBuilder().
		Issuer("https://accounts.google.com").
		Subject("1234567890").
		Audience([]string{"client-123"}).
		Expiration(time.Unix(1900000000, 0)).
		Claim("email", "ada@example.com").
		Claim("email_verified", true).
		Claim("name", "Ada Lovelace").
		Claim("picture", "https://example.com/ada.png").
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("test-secret")))
	require.NoError(t, err)

	gw := fakegw.New()
	gw.Tokens = &models.TokenResponse{AccessToken: "acc", IDToken: string(signed)}
	m := NewManager(Options{Gateway: gw})

	require.NoError(t, m.CompleteLogin(context.Background(), "code"))

	id := m.Snapshot().Identity
	require.NotNil(t, id)
	assert.Equal(t, "1234567890", id.Subject)
	assert.Equal(t, "ada@example.com", id.Email)
	assert.True(t, id.EmailVerified)
	assert.Equal(t, "Ada Lovelace", id.DisplayName())
	assert.Equal(t, "client-123", id.Audience)
	assert.Equal(t, int64(1900000000), id.ExpiresAt)
}

func TestCompleteLogin_UndecodableToken(t *testing.T) {
	gw := fakegw.New()
	gw.Tokens = &models.TokenResponse{AccessToken: "acc", IDToken: "not-a-jwt"}
	m := NewManager(Options{Gateway: gw})

	err := m.CompleteLogin(context.Background(), "code")
	assert.ErrorIs(t, err, shared.ErrAuthFailed)
	assert.Equal(t, MsgExchangeFailed, m.Snapshot().AuthError)
	assert.False(t, m.SignedIn())
}

func TestCompleteLogin_SignOutDuringExchange(t *testing.T) {
	gw := fakegw.New(favorites()...)
	started := make(chan struct{})
	release := make(chan struct{})
	gw.ExchangeHook = func(context.Context, string) (*models.TokenResponse, error) {
		close(started)
		<-release
		return &models.TokenResponse{
			AccessToken: "late-access",
			IDToken:     "late-id",
			UserInfo:    &models.Identity{Subject: "user-1", Name: "Reader"},
		}, nil
	}
	flow := &fakeFlow{ready: true}
	m := NewManager(Options{Gateway: gw, Flow: flow, ResetDelay: testResetDelay})

	done := make(chan error, 1)
	go func() { done <- m.CompleteLogin(context.Background(), "4/code") }()
	<-started

	m.Logout(context.Background())
	close(release)
	require.NoError(t, <-done)

	snap := m.Snapshot()
	assert.False(t, m.SignedIn())
	assert.Nil(t, snap.Identity)
	assert.False(t, m.Credentials().Valid())
	assert.False(t, snap.AuthLoading)
	assert.Zero(t, gw.Count("shelves"), "no library fetch for a discarded login")
}

func TestLogout_ClearsEverything(t *testing.T) {
	gw := fakegw.New(favorites()...)
	gw.AddErr = fakegw.Failure(500, "boom")
	m, flow := signedIn(t, gw)

	_ = m.AddBookToShelf(context.Background(), "vol-1", "0")
	require.Equal(t, models.MutationError, m.MutationState("vol-1").Status)

	m.Logout(context.Background())

	snap := m.Snapshot()
	assert.Nil(t, snap.Identity)
	assert.Nil(t, snap.Shelves)
	assert.Empty(t, snap.Mutations)
	assert.Empty(t, snap.AuthError)
	assert.Empty(t, snap.LibraryError)
	assert.False(t, m.Credentials().Valid())
	assert.Equal(t, models.IdleMutation, m.MutationState("vol-1"))

	assert.Equal(t, []string{"access-token"}, flow.revoked)
	assert.Equal(t, 1, flow.disabled)

	t.Run("idempotent", func(t *testing.T) {
		m.Logout(context.Background())
		m.Logout(context.Background())

		snap := m.Snapshot()
		assert.Nil(t, snap.Identity)
		assert.Nil(t, snap.Shelves)
		assert.Len(t, flow.revoked, 1, "nothing left to revoke")
	})
}

func TestFetchLibrary_RequiresTokens(t *testing.T) {
	gw := fakegw.New(favorites()...)
	m := NewManager(Options{Gateway: gw})

	err := m.FetchLibrary(context.Background())
	assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
	assert.Empty(t, gw.Calls())
}

func TestFetchLibrary_ReplacesShelves(t *testing.T) {
	gw := fakegw.New(favorites()...)
	m, _ := signedIn(t, gw)

	gw.SetShelves(models.Shelf{ID: 1, Title: "Favorites", VolumeCount: 2})
	require.NoError(t, m.FetchLibrary(context.Background()))

	snap := m.Snapshot()
	require.Len(t, snap.Shelves, 1)
	assert.Equal(t, "Favorites (2)", snap.Shelves[0].Label())
	assert.Equal(t, 2, snap.Version)
}

func TestFetchLibrary_NewestRequestWins(t *testing.T) {
	gw := fakegw.New(favorites()...)
	m, _ := signedIn(t, gw)

	started := make(chan struct{})
	gw.ShelvesHook = func(ctx context.Context, call int) ([]models.Shelf, error) {
		if call == 2 {
			close(started)
			<-ctx.Done()
			return []models.Shelf{{ID: 99, Title: "stale"}}, nil
		}
		return []models.Shelf{{ID: 1, Title: "fresh", VolumeCount: 5}}, nil
	}

	slowDone := make(chan error, 1)
	go func() { slowDone <- m.FetchLibrary(context.Background()) }()
	<-started

	require.NoError(t, m.FetchLibrary(context.Background()))
	require.NoError(t, <-slowDone, "superseded fetch is not an error")

	snap := m.Snapshot()
	require.Len(t, snap.Shelves, 1)
	assert.Equal(t, "fresh", snap.Shelves[0].Title)
	assert.Empty(t, snap.LibraryError)
	assert.False(t, snap.LibraryLoading)
}

func TestFetchLibrary_Unauthorized(t *testing.T) {
	gw := fakegw.New(favorites()...)
	m, _ := signedIn(t, gw)

	gw.ShelvesErr = fakegw.Unauthorized()
	err := m.FetchLibrary(context.Background())
	require.Error(t, err)

	snap := m.Snapshot()
	assert.Nil(t, snap.Identity)
	assert.Nil(t, snap.Shelves)
	assert.False(t, m.Credentials().Valid())
	assert.Equal(t, MsgTokenExpired, snap.LibraryError)
}

func TestFetchLibrary_ServerError(t *testing.T) {
	gw := fakegw.New(favorites()...)
	m, _ := signedIn(t, gw)

	gw.ShelvesErr = fakegw.Failure(503, "Backend unavailable")
	require.Error(t, m.FetchLibrary(context.Background()))

	snap := m.Snapshot()
	assert.True(t, snap.SignedIn())
	assert.Equal(t, "Backend unavailable", snap.LibraryError)
	assert.Len(t, snap.Shelves, 3, "previous shelves are kept")
}

func TestAddBookToShelf_Success(t *testing.T) {
	gw := fakegw.New(favorites()...)
	m, _ := signedIn(t, gw)

	var during models.MutationState
	gw.MutationHook = func(context.Context, string, string, string) error {
		during = m.MutationState("vol-1")
		return nil
	}

	require.NoError(t, m.AddBookToShelf(context.Background(), "vol-1", "0"))

	assert.Equal(t, models.MutationLoading, during.Status)
	assert.Equal(t, models.MutationState{Status: models.MutationSuccess, Message: MsgAdded}, m.MutationState("vol-1"))

	snap := m.Snapshot()
	assert.Equal(t, "Favorites (3)", snap.Shelves[0].Label())
	assert.Equal(t, 2, snap.Version, "reconciled with a fresh fetch")
	assert.Equal(t, 2, gw.Count("shelves"))

	tu.Eventually(t, time.Second, func() bool {
		return m.MutationState("vol-1").Status == models.MutationIdle
	}, "status should reset to idle")
}

func TestRemoveBookFromShelf_Success(t *testing.T) {
	gw := fakegw.New(favorites()...)
	gw.Volumes["0"] = []models.Volume{{ID: "vol-1"}, {ID: "vol-2"}}
	m, _ := signedIn(t, gw)

	require.NoError(t, m.RemoveBookFromShelf(context.Background(), "vol-1", "0"))
	assert.Equal(t, MsgRemoved, m.MutationState("vol-1").Message)
	assert.Equal(t, 1, m.Snapshot().Shelves[0].VolumeCount)
}

func TestAddBookToShelf_Failure(t *testing.T) {
	gw := fakegw.New(favorites()...)
	gw.AddErr = fakegw.Failure(500, "Upstream exploded")
	m, _ := signedIn(t, gw)

	err := m.AddBookToShelf(context.Background(), "vol-1", "0")
	require.Error(t, err)

	state := m.MutationState("vol-1")
	assert.Equal(t, models.MutationError, state.Status)
	assert.Equal(t, "Upstream exploded", state.Message)
	assert.Equal(t, state.Message, err.Error())
	assert.Equal(t, state.Message, Message(err))

	assert.Equal(t, 2, m.Snapshot().Shelves[0].VolumeCount, "count untouched on failure")
	assert.Equal(t, 1, gw.Count("shelves"), "no reconcile on failure")

	tu.Eventually(t, time.Second, func() bool {
		return m.MutationState("vol-1") == models.IdleMutation
	}, "error should reset to idle")
}

func TestAddBookToShelf_Unauthorized(t *testing.T) {
	gw := fakegw.New(favorites()...)
	gw.AddErr = fakegw.Unauthorized()
	m, _ := signedIn(t, gw)

	require.Error(t, m.AddBookToShelf(context.Background(), "vol-1", "0"))
	assert.False(t, m.SignedIn())
	assert.Nil(t, m.Snapshot().Shelves)
	assert.Equal(t, MsgTokenExpired, m.Snapshot().LibraryError)
}

func TestAddBookToShelf_NotSignedIn(t *testing.T) {
	gw := fakegw.New(favorites()...)
	m := NewManager(Options{Gateway: gw})

	err := m.AddBookToShelf(context.Background(), "vol-1", "0")
	assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
	assert.Equal(t, MsgPleaseLogIn, m.Snapshot().AuthError)
	assert.Empty(t, gw.Calls())
	assert.Equal(t, models.IdleMutation, m.MutationState("vol-1"))
}

func TestAddBookToShelf_InvalidInput(t *testing.T) {
	gw := fakegw.New(favorites()...)
	m, _ := signedIn(t, gw)

	err := m.AddBookToShelf(context.Background(), "vol-1", "")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Equal(t, models.MutationError, m.MutationState("vol-1").Status)
	assert.Zero(t, gw.Count("add::vol-1"))

	err = m.RemoveBookFromShelf(context.Background(), "", "0")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestMutation_StaleTimerDoesNotResetNewerAction(t *testing.T) {
	gw := fakegw.New(favorites()...)
	gw.AddErr = fakegw.Failure(500, "first failed")
	m, _ := signedIn(t, gw)

	require.Error(t, m.AddBookToShelf(context.Background(), "vol-1", "0"))

	release := make(chan struct{})
	gw.MutationHook = func(context.Context, string, string, string) error {
		<-release
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- m.RemoveBookFromShelf(context.Background(), "vol-1", "0") }()

	tu.Eventually(t, time.Second, func() bool { return m.MutationState("vol-1").Busy() }, "second action should be loading")
	time.Sleep(2 * testResetDelay)
	assert.Equal(t, models.MutationLoading, m.MutationState("vol-1").Status, "first timer must not reset the second action")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, MsgRemoved, m.MutationState("vol-1").Message)
}

func TestAddableShelves(t *testing.T) {
	gw := fakegw.New(append(favorites(), models.Shelf{ID: 2, Title: "  to READ "})...)
	m, _ := signedIn(t, gw)

	var titles []string
	for _, s := range m.AddableShelves() {
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{"Favorites", "Reading now", "  to READ "}, titles)
}

func TestSubscribe(t *testing.T) {
	gw := fakegw.New(favorites()...)
	m := NewManager(Options{Gateway: gw, Flow: &fakeFlow{ready: true, code: "c"}})

	events, stop := m.Subscribe()
	m.Login(context.Background())

	var kinds []EventKind
	var last Event
	for len(events) > 0 {
		last = <-events
		kinds = append(kinds, last.Kind)
	}
	assert.Contains(t, kinds, EventAuth)
	assert.Contains(t, kinds, EventLibrary)
	assert.Equal(t, 1, last.Version)

	stop()
	stop()
	_, open := <-events
	assert.False(t, open)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, MsgPleaseLogIn, Message(shared.ErrNotAuthenticated))
	assert.Equal(t, "boom", Message(errors.New("boom")))
	assert.Equal(t, "gone", Message(fakegw.Failure(410, "gone")))
}
