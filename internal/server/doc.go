// Package server provides HTTP routing, middleware, and the OAuth callback for Spotify login.
//
// # Routing
//
// [Router] registers [Handler] values, which carry their own ServeMux patterns, behind one middleware stack.
//
// [Middleware] runs in the order it was added: the first added is the outermost wrapper.
//
// [BasicRouter] is backed by [http.ServeMux] method patterns.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// sets the accessToken and refreshToken cookies on the response, optionally saves them to a durable
// credential store, and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Current Usage
//
// `mixtape auth login` starts a temporary [Listener] on localhost:3000, opens the authorization page, waits for
// the callback and shuts the listener down.
package server
