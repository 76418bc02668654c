package server

import (
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/session"
)

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Tokens session.Tokens
	err    error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler handles OAuth2 callback requests for authorization code flow.
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	service     services.OAuthService
	state       string
	store       session.CredentialStore
	logger      *log.Logger
	resultChan  chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

type OAuthOption func(*OAuthHandler)

// WithCredentialStore also logs the exchanged tokens into store, so they outlive the callback response.
func WithCredentialStore(store session.CredentialStore) OAuthOption {
	return func(h *OAuthHandler) { h.store = store }
}

func WithLogger(l *log.Logger) OAuthOption {
	return func(h *OAuthHandler) { h.logger = l }
}

// NewOAuthHandler creates a new OAuth handler for service with the given state token.
// The state token should be cryptographically random for CSRF protection.
func NewOAuthHandler(service services.OAuthService, state string, opts ...OAuthOption) *OAuthHandler {
	h := &OAuthHandler{
		service:    service,
		state:      state,
		logger:     log.New(io.Discard),
		resultChan: make(chan OAuthResult, 1),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"GET /callback"}
}

// ServeHTTP handles the OAuth callback request.
//
// Validates the state parameter, exchanges the code, sets both credential cookies on the response and sends the
// tokens through the result channel.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	state := r.URL.Query().Get("state")
	if state != h.state {
		h.Send(OAuthResult{err: fmt.Errorf("invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errParam := r.URL.Query().Get("error")
		errDesc := r.URL.Query().Get("error_description")
		h.Send(OAuthResult{err: fmt.Errorf("authorization failed: %s - %s", errParam, errDesc)})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.service.Exchange(r.Context(), code)
	if err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}
	tokens := session.FromOAuth(token)

	cookies := session.NewCookieStore(r).WithWriter(w)
	if err := session.New(cookies, nil).Login(r.Context(), tokens); err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("failed to start session: %w", err)})
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}
	if h.store != nil {
		if err := session.New(h.store, nil).Login(r.Context(), tokens); err != nil {
			h.Send(OAuthResult{err: fmt.Errorf("failed to store session: %w", err)})
			http.Error(w, "Failed to store session", http.StatusInternalServerError)
			return
		}
	}

	h.logger.Info("authorization complete", "expires", tokens.Expiry)
	h.Send(OAuthResult{Tokens: tokens})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>mixtape</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #121212; color: #eee; }
        .card { text-align: center; padding: 2rem; border-radius: 8px; background: #1e1e1e; }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
    </style>
</head>
<body>
    <div class="card">
        <h1>✓ Connected to Spotify</h1>
        <p>You can close this window and return to mixtape.</p>
    </div>
</body>
</html>
`
