package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/bkx/internal/shared"
)

// CallbackResult is what the provider sent back for one login.
type CallbackResult struct {
	Code             string
	Error            string // provider error code, e.g. access_denied
	ErrorDescription string
}

// OK reports whether the callback carried a code.
func (r CallbackResult) OK() bool {
	return r.Error == "" && r.Code != ""
}

// CallbackHandler handles the OAuth redirect for the login currently in progress.
type CallbackHandler struct {
	path string

	mu      sync.Mutex
	state   string
	pending chan CallbackResult
}

// NewCallbackHandler creates a handler serving path, e.g. "/callback".
func NewCallbackHandler(path string) *CallbackHandler {
	if path == "" {
		path = "/callback"
	}
	return &CallbackHandler{path: path}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{h.path}
}

// Expect arms the handler for a login using state and returns the channel its result arrives on.
//
// Arming again abandons the previous login; its channel is closed without a result.
func (h *CallbackHandler) Expect(state string) <-chan CallbackResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pending != nil {
		close(h.pending)
	}
	h.state = state
	h.pending = make(chan CallbackResult, 1)
	return h.pending
}

// Cancel disarms the handler if it is still waiting on state.
func (h *CallbackHandler) Cancel(state string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pending != nil && h.state == state {
		close(h.pending)
		h.pending = nil
		h.state = ""
	}
}

// Waiting reports whether a login is armed.
func (h *CallbackHandler) Waiting() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pending != nil
}

// ServeHTTP settles the armed login with the callback's code or error.
//
// A callback carrying another state is rejected and the login stays armed.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	h.mu.Lock()
	pending := h.pending
	if pending == nil {
		h.mu.Unlock()
		http.Error(w, "No login in progress", http.StatusBadRequest)
		return
	}
	if q.Get("state") != h.state {
		h.mu.Unlock()
		http.Error(w, shared.ErrInvalidState.Error(), http.StatusBadRequest)
		return
	}
	h.pending, h.state = nil, ""
	h.mu.Unlock()

	result := CallbackResult{
		Code:             q.Get("code"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
	pending <- result
	close(pending)

	if !result.OK() {
		writePage(w, http.StatusBadRequest, "Sign-in failed", "Return to the terminal for details.")
		return
	}
	writePage(w, http.StatusOK, "Signed in", "You can close this window and return to the terminal.")
}

func writePage(w http.ResponseWriter, status int, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>%[1]s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1a73e8; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%[1]s</h1>
        <p>%[2]s</p>
    </div>
</body>
</html>
`, title, body)
}
