// Package services implements the resilient Spotify Web API access layer.
//
// # Layering
//
// [RateLimitTracker] keeps an advisory snapshot of the quota the service
// last advertised. [Executor] consults it before sending, attaches a
// credential from the token authority, and classifies every response into
// the error taxonomy (throttled, transient server failure, auth expiry,
// terminal API error, network failure), retrying only within hard caps.
// [SpotifyClient] is a thin typed wrapper mapping resource endpoints onto
// the executor.
//
// # Error taxonomy
//
// Typed errors ([RateLimitError], [ServerError], [APIError]) carry payloads
// for user-facing messages and Unwrap to sentinels in internal/shared, so
// callers match with errors.Is regardless of layer:
//
//   - shared.ErrNotAuthenticated : no usable credential, login required
//   - shared.ErrReauthRequired   : refresh grant revoked, login required
//   - shared.ErrTokenExpired     : 401 persisted through one refresh
//   - shared.ErrRateLimited      : throttled beyond the retry budget
//   - shared.ErrServerFailure    : 5xx persisted through the retry
//   - shared.ErrAPIRequest       : terminal 4xx
//   - shared.ErrNetwork          : transport-level failure, not retried
//
// No classified error is a crash; each maps to a defined next action.
package services
