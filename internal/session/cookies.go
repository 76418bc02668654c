package session

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// CookieStore keeps the credential cookies of one request/response pair. Cookies are read from the request
// and every change is written to the response.
type CookieStore struct {
	mu      sync.Mutex
	access  *http.Cookie
	refresh *http.Cookie
	w       http.ResponseWriter
	secure  bool
}

// NewCookieStore reads the credential cookies of r. A nil r starts empty.
func NewCookieStore(r *http.Request) *CookieStore {
	s := &CookieStore{}
	if r == nil {
		return s
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		s.access = c
	}
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		s.refresh = c
	}
	s.secure = r.TLS != nil
	return s
}

// WithWriter sends later Save and Clear calls to w as Set-Cookie headers.
func (s *CookieStore) WithWriter(w http.ResponseWriter) *CookieStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
	return s
}

// Load returns the stored tokens. An access cookie past its Expires is treated as absent.
func (s *CookieStore) Load(context.Context) (Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var t Tokens
	if s.refresh != nil {
		t.RefreshToken = s.refresh.Value
	}
	if s.access != nil {
		if s.access.Expires.IsZero() || time.Now().Before(s.access.Expires) {
			t.AccessToken = s.access.Value
			t.Expiry = s.access.Expires
		}
	}
	return t, nil
}

func (s *CookieStore) Save(_ context.Context, t Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = s.cookie(AccessTokenCookie, t.AccessToken)
	s.access.Expires = t.Expiry
	s.refresh = s.cookie(RefreshTokenCookie, t.RefreshToken)
	s.write(s.access, s.refresh)
	return nil
}

func (s *CookieStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access, s.refresh = nil, nil
	gone := []*http.Cookie{s.cookie(AccessTokenCookie, ""), s.cookie(RefreshTokenCookie, "")}
	for _, c := range gone {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	}
	s.write(gone...)
	return nil
}

// Cookies returns the cookies currently held, for tests and for copying into a jar.
func (s *CookieStore) Cookies() []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*http.Cookie
	for _, c := range []*http.Cookie{s.access, s.refresh} {
		if c != nil {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out
}

func (s *CookieStore) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *CookieStore) write(cookies ...*http.Cookie) {
	if s.w == nil {
		return
	}
	for _, c := range cookies {
		http.SetCookie(s.w, c)
	}
}
