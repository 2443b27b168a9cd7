// Package server provides the temporary local HTTP server used by the
// interactive login flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support;
// [BasicRouter] implements it over [http.ServeMux] with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization-code callback with
// PKCE. It validates the state parameter (CSRF protection), exchanges the
// authorization code for tokens with a bounded wait, and delivers exactly
// one result over a channel that is then closed. Only the first callback is
// processed, preventing replay.
//
// When the user runs `cadence auth login`, a server starts on the configured
// localhost address, handles the callback, and shuts down after the token is
// delivered to the authority.
package server
