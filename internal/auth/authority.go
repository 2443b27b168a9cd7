package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cadence/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	// refreshTimeout bounds each call to the token endpoint so a slow
	// provider cannot stall every request waiting on a credential.
	refreshTimeout = 10 * time.Second

	// refreshRetryDelay is the pause before the single retry of a refresh
	// that failed transiently (5xx, network error, timeout).
	refreshRetryDelay = 2 * time.Second
)

// Store persists credentials across process restarts. Load returns nil when
// no credential has been saved.
type Store interface {
	Load(ctx context.Context) (*Credential, error)
	Save(ctx context.Context, cred Credential) error
	Clear(ctx context.Context) error
}

// Event describes a credential transition, delivered to subscribers so the
// UI layer can react (e.g. prompt for re-login).
type Event int

const (
	EventUpdated Event = iota
	EventCleared
	EventReauthRequired
)

func (e Event) String() string {
	switch e {
	case EventUpdated:
		return "updated"
	case EventCleared:
		return "cleared"
	case EventReauthRequired:
		return "reauth_required"
	default:
		return ""
	}
}

// Authority owns the in-memory credential and coordinates refreshes.
//
// All mutation funnels through its methods; concurrent callers that observe
// an expired credential share a single in-flight refresh instead of issuing
// duplicates, which would invalidate each other's refresh tokens on most
// OAuth providers.
type Authority struct {
	config     *oauth2.Config
	store      Store
	httpClient *http.Client
	logger     *log.Logger

	mu   sync.RWMutex
	cred *Credential

	group singleflight.Group

	subsMu sync.Mutex
	subs   []chan Event
}

// AuthorityOpts contains construction options for an Authority.
type AuthorityOpts struct {
	Config     *oauth2.Config
	Store      Store
	HTTPClient *http.Client // used for token endpoint calls
	Logger     *log.Logger
}

// NewAuthority creates an Authority. Config and Store are required.
func NewAuthority(opts AuthorityOpts) (*Authority, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: oauth2 config is required", shared.ErrInvalidArgument)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: credential store is required", shared.ErrInvalidArgument)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: refreshTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Authority{
		config:     opts.Config,
		store:      opts.Store,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
	}, nil
}

// Hydrate loads a persisted credential into memory. Called once at startup;
// a missing credential is not an error.
func (a *Authority) Hydrate(ctx context.Context) error {
	cred, err := a.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load credential: %w", err)
	}
	if cred == nil {
		return nil
	}

	a.mu.Lock()
	a.cred = cred
	a.mu.Unlock()
	return nil
}

// Credential returns a credential guaranteed not yet expired per the margin.
//
// A fresh cached credential is returned without I/O. An expired credential
// with a refresh token triggers exactly one refresh shared by all concurrent
// callers. Without a usable credential, [shared.ErrNotAuthenticated] is
// returned and no network call is made.
func (a *Authority) Credential(ctx context.Context) (Credential, error) {
	a.mu.RLock()
	cred := a.cred
	a.mu.RUnlock()

	if cred == nil {
		return Credential{}, shared.ErrNotAuthenticated
	}
	if cred.Fresh(time.Now()) {
		return *cred, nil
	}
	if cred.RefreshToken == "" {
		return Credential{}, fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, shared.ErrNoRefreshToken)
	}

	return a.Refresh(ctx)
}

// Refresh forces a token refresh, sharing the in-flight refresh with any
// concurrent callers. Used directly by the request executor when the remote
// service rejects a credential that still looked fresh locally.
func (a *Authority) Refresh(ctx context.Context) (Credential, error) {
	v, err, _ := a.group.Do("refresh", func() (any, error) {
		return a.refresh(ctx)
	})
	if err != nil {
		return Credential{}, err
	}
	return v.(Credential), nil
}

// refresh performs the token-endpoint exchange with classification: definite
// failures (revoked grant) clear state, transient ones are retried once and
// leave the previous credential untouched.
func (a *Authority) refresh(ctx context.Context) (Credential, error) {
	a.mu.RLock()
	cred := a.cred
	a.mu.RUnlock()

	if cred == nil || cred.RefreshToken == "" {
		return Credential{}, shared.ErrNotAuthenticated
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			a.logger.Warn("token refresh failed, retrying", "error", lastErr)
			select {
			case <-time.After(refreshRetryDelay):
			case <-ctx.Done():
				return Credential{}, ctx.Err()
			}
		}

		tok, err := a.exchange(ctx, cred)
		if err == nil {
			next := NewCredential(tok)
			if next.RefreshToken == "" {
				next.RefreshToken = cred.RefreshToken
			}
			a.commit(ctx, next)
			return next, nil
		}

		if definite(err) {
			a.logger.Error("refresh token rejected, clearing credentials", "error", err)
			a.clear(ctx, EventReauthRequired)
			return Credential{}, fmt.Errorf("%w: %v", shared.ErrReauthRequired, err)
		}

		lastErr = err
	}

	// Transient failure after retry: keep the previous credential so a later
	// attempt can still use its refresh token.
	return Credential{}, fmt.Errorf("%w: %w: %v", shared.ErrRefreshFailed, shared.ErrServerFailure, lastErr)
}

// exchange calls the token endpoint with a bounded wait.
func (a *Authority) exchange(ctx context.Context, cred *Credential) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	stale := &oauth2.Token{RefreshToken: cred.RefreshToken, Expiry: time.Now().Add(-time.Minute)}
	return a.config.TokenSource(ctx, stale).Token()
}

// definite reports whether a refresh failure means the grant is gone for
// good (invalid_grant, 400/401 from the token endpoint) rather than a
// transient server or network problem.
func definite(err error) bool {
	var rErr *oauth2.RetrieveError
	if !errors.As(err, &rErr) {
		return false
	}
	if rErr.ErrorCode == "invalid_grant" {
		return true
	}
	if rErr.Response != nil {
		code := rErr.Response.StatusCode
		return code == http.StatusBadRequest || code == http.StatusUnauthorized
	}
	return false
}

// Update atomically replaces the credential, persists it, and notifies
// subscribers. Called after interactive login completes.
func (a *Authority) Update(ctx context.Context, cred Credential) error {
	a.mu.Lock()
	a.cred = &cred
	a.mu.Unlock()

	if err := a.store.Save(ctx, cred); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}

	a.notify(EventUpdated)
	return nil
}

// Invalidate clears the in-memory and persisted credential (logout).
func (a *Authority) Invalidate(ctx context.Context) error {
	a.clear(ctx, EventCleared)
	return nil
}

// Subscribe returns a channel receiving credential transition events.
// Delivery is best-effort; a slow subscriber drops events rather than
// blocking the authority.
func (a *Authority) Subscribe() <-chan Event {
	ch := make(chan Event, 4)
	a.subsMu.Lock()
	a.subs = append(a.subs, ch)
	a.subsMu.Unlock()
	return ch
}

// commit stores a freshly issued credential. Persistence failure is logged
// but does not fail the refresh; the credential is still valid in memory.
func (a *Authority) commit(ctx context.Context, cred Credential) {
	a.mu.Lock()
	a.cred = &cred
	a.mu.Unlock()

	if err := a.store.Save(ctx, cred); err != nil {
		a.logger.Warn("failed to persist refreshed credential", "error", err)
	}
	a.notify(EventUpdated)
}

func (a *Authority) clear(ctx context.Context, event Event) {
	a.mu.Lock()
	a.cred = nil
	a.mu.Unlock()

	if err := a.store.Clear(ctx); err != nil {
		a.logger.Warn("failed to clear persisted credential", "error", err)
	}
	a.notify(event)
}

func (a *Authority) notify(event Event) {
	a.subsMu.Lock()
	defer a.subsMu.Unlock()
	for _, ch := range a.subs {
		select {
		case ch <- event:
		default:
			// Subscriber not keeping up, skip this event
		}
	}
}
