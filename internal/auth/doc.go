// Package auth implements the credential lifecycle for the Spotify Web API.
//
// # Authority
//
// [Authority] owns the in-memory [Credential] exclusively. Reads go through
// [Authority.Credential], which returns a cached credential while it is fresh
// (per the margin-adjusted expiry) and otherwise coordinates a refresh.
//
// # Refresh coordination
//
// Refreshes are deduplicated with [singleflight.Group]: the first caller to
// observe a stale credential owns the exchange, late callers attach to the
// same in-flight result. Duplicate refresh calls would rotate the refresh
// token out from under each other on most OAuth providers.
//
// # Failure classification
//
//   - invalid_grant, or 400/401 from the token endpoint: the grant is revoked.
//     Memory and storage are cleared and [shared.ErrReauthRequired] is
//     surfaced; the user must log in again.
//   - 5xx, network error, timeout: retried once after a short delay. The
//     previous credential is kept so a later attempt can still refresh.
//
// # Notifications
//
// Credential transitions fan out to [Authority.Subscribe] channels with
// best-effort delivery, letting the CLI prompt for re-login without polling.
package auth
