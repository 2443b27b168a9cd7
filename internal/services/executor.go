package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cadence/internal/auth"
	"github.com/desertthunder/cadence/internal/shared"
)

const (
	// defaultRetryAfter is assumed when a 429 arrives without a Retry-After
	// header; retryAfterCap bounds whatever the server asks for.
	defaultRetryAfter = 30 * time.Second
	retryAfterCap     = 60 * time.Second

	// maxRateLimitRetries caps retries of a throttled request before the
	// failure is surfaced to the caller.
	maxRateLimitRetries = 3

	// serverRetryDelay is the fixed pause before the single 5xx retry.
	serverRetryDelay = time.Second
)

// RequestSpec describes one outbound API call.
type RequestSpec struct {
	Method string
	Path   string     // relative to the executor's base URL
	Query  url.Values // optional query parameters
	Body   any        // JSON-encoded when non-nil
}

// Response is a classified API response. 204 bodies are empty successes.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// CredentialSource supplies valid credentials and forced refreshes. Satisfied
// by *auth.Authority.
type CredentialSource interface {
	Credential(ctx context.Context) (auth.Credential, error)
	Refresh(ctx context.Context) (auth.Credential, error)
}

// Executor sends authenticated requests with bounded, classified retries:
// throttling and transient server failures are absorbed up to hard caps,
// authentication failures trigger one transparent refresh, everything else
// surfaces as a typed error. No retry path is unbounded.
type Executor struct {
	baseURL    string
	httpClient *http.Client
	authority  CredentialSource
	tracker    *RateLimitTracker
	logger     *log.Logger
	jitter     func() time.Duration
}

// ExecutorOpts contains construction options for an Executor.
type ExecutorOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	Authority  CredentialSource
	Tracker    *RateLimitTracker
	Logger     *log.Logger
	Jitter     func() time.Duration // overridable for tests
}

// NewExecutor creates an Executor. Authority is required; the tracker and
// client default when absent.
func NewExecutor(opts ExecutorOpts) (*Executor, error) {
	if opts.Authority == nil {
		return nil, fmt.Errorf("%w: credential source is required", shared.ErrInvalidArgument)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Tracker == nil {
		opts.Tracker = NewRateLimitTracker()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Jitter == nil {
		opts.Jitter = func() time.Duration { return rand.N(time.Second) }
	}

	return &Executor{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		authority:  opts.Authority,
		tracker:    opts.Tracker,
		logger:     opts.Logger,
		jitter:     opts.Jitter,
	}, nil
}

// Tracker exposes the executor's rate-limit tracker (shared with callers
// that want to display quota state).
func (e *Executor) Tracker() *RateLimitTracker {
	return e.tracker
}

// retryState tracks backoff bookkeeping for one logical operation. It lives
// for a single Do call and is never shared.
type retryState struct {
	attempt         int
	rateLimitHits   int
	serverRetries   int
	refreshAttempts int
	currentDelay    time.Duration
}

// Do executes the request described by spec and classifies the outcome.
//
//   - 2xx (204 included): success, tracker updated from headers.
//   - 401: one forced token refresh, one retry, then shared.ErrTokenExpired.
//   - 429: wait Retry-After (default 30s, cap 60s) plus linear backoff and
//     jitter, retry up to 3 times, then *RateLimitError.
//   - 5xx: one retry after a fixed delay, then *ServerError.
//   - other 4xx: *APIError with the body's message when present.
//   - transport failure: shared.ErrNetwork without retry; the caller decides
//     whether to rerun the whole operation.
func (e *Executor) Do(ctx context.Context, spec RequestSpec) (*Response, error) {
	// Gate on the advertised limit before the first attempt only; retries
	// compute their own waits from the response that triggered them.
	if limited, wait := e.tracker.Status(); limited && wait > 0 {
		e.logger.Debug("rate limit gate open, waiting", "wait", wait)
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	var body []byte
	if spec.Body != nil {
		var err error
		if body, err = json.Marshal(spec.Body); err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	state := retryState{}
	for {
		cred, err := e.authority.Credential(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := e.send(ctx, spec, body, cred)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
		}

		e.tracker.Record(resp.Header, resp.StatusCode)
		state.attempt++

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil

		case resp.StatusCode == http.StatusUnauthorized:
			if state.refreshAttempts >= 1 {
				return nil, fmt.Errorf("%w: request unauthorized after refresh", shared.ErrTokenExpired)
			}
			state.refreshAttempts++
			e.logger.Info("credential rejected, refreshing", "path", spec.Path)
			if _, err := e.authority.Refresh(ctx); err != nil {
				return nil, err
			}

		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := retryAfterFrom(resp.Header)
			if state.rateLimitHits >= maxRateLimitRetries {
				return nil, &RateLimitError{RetryAfter: retryAfter}
			}
			state.currentDelay = retryAfter +
				time.Duration(state.rateLimitHits)*2*time.Second + e.jitter()
			state.rateLimitHits++
			e.logger.Warn("throttled, backing off",
				"path", spec.Path, "delay", state.currentDelay, "hit", state.rateLimitHits)
			if err := sleep(ctx, state.currentDelay); err != nil {
				return nil, err
			}

		case resp.StatusCode >= 500:
			if state.serverRetries >= 1 {
				return nil, &ServerError{Status: resp.StatusCode}
			}
			state.serverRetries++
			e.logger.Warn("server failure, retrying once", "path", spec.Path, "status", resp.StatusCode)
			if err := sleep(ctx, serverRetryDelay); err != nil {
				return nil, err
			}

		default:
			return nil, &APIError{Status: resp.StatusCode, Message: apiMessage(resp)}
		}
	}
}

// send performs one HTTP round trip with the credential attached.
func (e *Executor) send(ctx context.Context, spec RequestSpec, body []byte, cred auth.Credential) (*Response, error) {
	fullURL := e.baseURL + spec.Path
	if len(spec.Query) > 0 {
		fullURL += "?" + spec.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       raw,
	}

	var jsonData any
	if err := json.Unmarshal(raw, &jsonData); err == nil {
		resp.IsJSON = true
		resp.JSONData = jsonData
	}

	return resp, nil
}

// retryAfterFrom reads the advisory wait from a 429 response, applying the
// default and cap.
func retryAfterFrom(header http.Header) time.Duration {
	raw := header.Get("Retry-After")
	if raw == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	wait := time.Duration(secs) * time.Second
	if wait > retryAfterCap {
		return retryAfterCap
	}
	return wait
}

// apiMessage extracts a human-readable message from an error response body,
// falling back to the status text.
func apiMessage(resp *Response) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err == nil {
		if payload.Error.Message != "" {
			return payload.Error.Message
		}
		if payload.ErrorDescription != "" {
			return payload.ErrorDescription
		}
	}
	return http.StatusText(resp.StatusCode)
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
