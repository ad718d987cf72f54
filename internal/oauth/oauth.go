// Package oauth runs the OAuth2 authorization code flow against Google through a loopback redirect.
//
// The flow only obtains the authorization code. Exchanging it for tokens is the gateway's job, so the client secret
// (when there is one) never has to leave the gateway.
package oauth

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/bkx/internal/server"
	"github.com/desertthunder/bkx/internal/shared"
)

// Messages reported through [Callbacks.OnError].
const (
	MsgNotReady   = "Login client not ready. Please wait a moment and try again."
	MsgFailed     = "Google login failed."
	MsgNoCode     = "Google login failed: No authorization code received."
	MsgInProgress = "Google login is already in progress."
	MsgTimedOut   = "Google login failed: timed out waiting for authorization."
)

// Google endpoints.
const (
	GoogleAuthURL   = "https://accounts.google.com/o/oauth2/auth"
	GoogleTokenURL  = "https://oauth2.googleapis.com/token"
	GoogleRevokeURL = "https://oauth2.googleapis.com/revoke"
)

// Scopes requested on every login.
var Scopes = []string{"openid", "email", "profile", "https://www.googleapis.com/auth/books"}

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultLoginTimeout = 2 * time.Minute
)

// Callbacks receive the outcome of one login. Exactly one of them is called.
type Callbacks struct {
	OnSuccess func(code string)
	OnError   func(msg string)
}

// Options configure a [CodeFlow]. Only ClientID and RedirectURL are required.
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // loopback URL, e.g. http://127.0.0.1:8085/callback; port 0 picks a free port

	PollInterval time.Duration
	LoginTimeout time.Duration

	Endpoint  oauth2.Endpoint // defaults to Google
	RevokeURL string

	HTTPClient *http.Client
	Logger     *log.Logger

	// OpenBrowser defaults to [shared.OpenBrowser]. ShowURL is called when it fails.
	OpenBrowser func(url string) error
	ShowURL     func(url string)

	// Listen binds the callback address; defaults to TCP.
	Listen func(addr string) (net.Listener, error)
}

// CodeFlow performs interactive logins. Call [CodeFlow.Init] once before [CodeFlow.StartLogin].
type CodeFlow struct {
	opts    Options
	config  *oauth2.Config
	handler *server.CallbackHandler
	logger  *log.Logger

	initOnce  sync.Once
	readyOnce sync.Once
	ready     chan struct{}

	mu            sync.Mutex
	loading       bool
	selectAccount bool
}

// NewCodeFlow validates opts and builds a flow. It does not bind the callback listener.
func NewCodeFlow(opts Options) (*CodeFlow, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: oauth client id is required", shared.ErrMissingConfig)
	}
	u, err := url.Parse(opts.RedirectURL)
	if err != nil || u.Scheme != "http" || u.Host == "" {
		return nil, fmt.Errorf("%w: redirect url must be an http loopback URL, got %q", shared.ErrInvalidConfig, opts.RedirectURL)
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.LoginTimeout <= 0 {
		opts.LoginTimeout = defaultLoginTimeout
	}
	if opts.Endpoint.AuthURL == "" {
		opts.Endpoint = oauth2.Endpoint{AuthURL: GoogleAuthURL, TokenURL: GoogleTokenURL}
	}
	if opts.RevokeURL == "" {
		opts.RevokeURL = GoogleRevokeURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.Listen == nil {
		opts.Listen = func(addr string) (net.Listener, error) { return net.Listen("tcp", addr) }
	}

	path := u.Path
	if path == "" {
		path = "/callback"
	}

	return &CodeFlow{
		opts: opts,
		config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes:       Scopes,
			Endpoint:     opts.Endpoint,
		},
		handler: server.NewCallbackHandler(path),
		logger:  shared.WithLogger(opts.Logger, "component", "oauth"),
		ready:   make(chan struct{}),
	}, nil
}

// Init binds the callback listener in the background, retrying every poll interval until it succeeds or ctx ends.
//
// Failures are logged, never returned. [CodeFlow.Ready] is closed once the listener is serving.
// Calls after the first do nothing.
func (f *CodeFlow) Init(ctx context.Context) {
	f.initOnce.Do(func() {
		go f.bind(ctx)
	})
}

func (f *CodeFlow) bind(ctx context.Context) {
	u, _ := url.Parse(f.opts.RedirectURL)

	ticker := time.NewTicker(f.opts.PollInterval)
	defer ticker.Stop()

	attempts := 0
	for {
		attempts++
		ln, err := f.opts.Listen(u.Host)
		if err == nil {
			f.serve(ctx, ln, u)
			return
		}
		f.logger.Debug("callback listener not ready", "addr", u.Host, "attempt", attempts, "err", err)
		if attempts == 1 {
			f.logger.Warn("waiting for callback address to become available", "addr", u.Host)
		}

		select {
		case <-ctx.Done():
			f.logger.Error("login client init abandoned", "err", ctx.Err())
			return
		case <-ticker.C:
		}
	}
}

func (f *CodeFlow) serve(ctx context.Context, ln net.Listener, u *url.URL) {
	if strings.HasSuffix(u.Host, ":0") {
		bound := *u
		bound.Host = ln.Addr().String()
		f.mu.Lock()
		f.config.RedirectURL = bound.String()
		f.mu.Unlock()
	}

	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(f.logger))
	router.Handler(f.handler)

	go func() {
		if err := server.Serve(ctx, ln, router); err != nil {
			f.logger.Error("callback server stopped", "err", err)
		}
	}()

	f.logger.Debug("callback listener ready", "addr", ln.Addr().String())
	f.readyOnce.Do(func() { close(f.ready) })
}

// Ready is closed once the flow can start logins.
func (f *CodeFlow) Ready() <-chan struct{} { return f.ready }

// IsReady reports whether [CodeFlow.Ready] has been closed.
func (f *CodeFlow) IsReady() bool {
	select {
	case <-f.ready:
		return true
	default:
		return false
	}
}

// IsLoading reports whether a login is waiting on the user.
func (f *CodeFlow) IsLoading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

// RedirectURL returns the redirect URL sent to the provider. It reflects the bound port once ready.
func (f *CodeFlow) RedirectURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config.RedirectURL
}

// DisableAutoSelect makes the next login show the account chooser instead of reusing the last account.
func (f *CodeFlow) DisableAutoSelect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selectAccount = true
}

// AuthURL builds the consent URL for state.
func (f *CodeFlow) AuthURL(state string, selectAccount bool) string {
	f.mu.Lock()
	cfg := *f.config
	f.mu.Unlock()

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	if selectAccount {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", "select_account"))
	}
	return cfg.AuthCodeURL(state, opts...)
}

// StartLogin opens the consent page and blocks until the callback arrives, the login times out or ctx ends.
//
// Exactly one of cb's functions is called before it returns.
func (f *CodeFlow) StartLogin(ctx context.Context, cb Callbacks) {
	if !f.IsReady() {
		cb.fail(MsgNotReady)
		return
	}

	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		cb.fail(MsgInProgress)
		return
	}
	f.loading = true
	selectAccount := f.selectAccount
	f.selectAccount = false
	f.mu.Unlock()

	code, msg := f.await(ctx, selectAccount)

	f.mu.Lock()
	f.loading = false
	f.mu.Unlock()

	if msg != "" {
		cb.fail(msg)
		return
	}
	if cb.OnSuccess != nil {
		cb.OnSuccess(code)
	}
}

func (f *CodeFlow) await(ctx context.Context, selectAccount bool) (string, string) {
	state := shared.GenerateID()
	results := f.handler.Expect(state)
	defer f.handler.Cancel(state)

	authURL := f.AuthURL(state, selectAccount)
	f.logger.Info("opening browser for Google login")
	if err := f.opts.OpenBrowser(authURL); err != nil {
		f.logger.Warn("failed to open browser automatically", "err", err)
		if f.opts.ShowURL != nil {
			f.opts.ShowURL(authURL)
		}
	}

	timeout := time.NewTimer(f.opts.LoginTimeout)
	defer timeout.Stop()

	select {
	case res, ok := <-results:
		if !ok {
			return "", MsgFailed
		}
		return callbackOutcome(res)
	case <-timeout.C:
		f.logger.Warn("login timed out", "after", f.opts.LoginTimeout)
		return "", MsgTimedOut
	case <-ctx.Done():
		f.logger.Debug("login cancelled", "err", ctx.Err())
		return "", MsgFailed
	}
}

// callbackOutcome maps a callback to a code or a display message.
func callbackOutcome(res server.CallbackResult) (string, string) {
	switch {
	case res.ErrorDescription != "":
		return "", res.ErrorDescription
	case res.Error != "":
		return "", res.Error
	case res.Code == "":
		return "", MsgNoCode
	default:
		return res.Code, ""
	}
}

func (cb Callbacks) fail(msg string) {
	if cb.OnError != nil {
		cb.OnError(msg)
	}
}

// Revoke asks the provider to revoke token. An empty token is a no-op.
func (f *CodeFlow) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.opts.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: revoke failed: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: revoke returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	return nil
}
