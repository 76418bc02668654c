package server

import (
	"net/http"
)

// Middleware decorates an [http.Handler], e.g. [LogRequests].
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows its own routes. Routes are ServeMux patterns and may carry a method
// prefix such as "GET /callback".
type Handler interface {
	http.Handler
	Routes() []string
}

// Router registers handlers behind a shared middleware stack.
type Router interface {
	http.Handler
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
}

var (
	_ Router  = (*BasicRouter)(nil)
	_ Handler = (*OAuthHandler)(nil)
)
