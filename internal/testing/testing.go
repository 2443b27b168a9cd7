// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/desertthunder/cadence/internal/auth"
)

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// SequenceRoundTripper returns canned responses in order, repeating the last
// one once the sequence is exhausted.
type SequenceRoundTripper struct {
	mu        sync.Mutex
	responses []*http.Response
	errs      []error
	calls     int
}

func NewSequenceRoundTripper(responses []*http.Response, errs []error) *SequenceRoundTripper {
	return &SequenceRoundTripper{responses: responses, errs: errs}
}

func (s *SequenceRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.responses[i], err
}

// Calls reports how many requests the sequence has served.
func (s *SequenceRoundTripper) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// MemoryStore is an in-memory auth.Store for authority tests.
type MemoryStore struct {
	mu     sync.Mutex
	cred   *auth.Credential
	saves  int
	clears int

	SaveErr error
}

func NewMemoryStore(cred *auth.Credential) *MemoryStore {
	return &MemoryStore{cred: cred}
}

func (m *MemoryStore) Load(ctx context.Context) (*auth.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return nil, nil
	}
	c := *m.cred
	return &c, nil
}

func (m *MemoryStore) Save(ctx context.Context, cred auth.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.cred = &cred
	m.saves++
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = nil
	m.clears++
	return nil
}

// Credential returns a copy of the stored credential, or nil.
func (m *MemoryStore) Credential() *auth.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return nil
	}
	c := *m.cred
	return &c
}

func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryStore) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

// StaticAuthority is a services.CredentialSource double returning fixed
// values and counting refreshes.
type StaticAuthority struct {
	mu        sync.Mutex
	Cred      auth.Credential
	CredErr   error
	RefreshFn func(ctx context.Context) (auth.Credential, error)
	refreshes int
}

func (s *StaticAuthority) Credential(ctx context.Context) (auth.Credential, error) {
	if s.CredErr != nil {
		return auth.Credential{}, s.CredErr
	}
	return s.Cred, nil
}

func (s *StaticAuthority) Refresh(ctx context.Context) (auth.Credential, error) {
	s.mu.Lock()
	s.refreshes++
	s.mu.Unlock()
	if s.RefreshFn != nil {
		return s.RefreshFn(ctx)
	}
	if s.CredErr != nil {
		return auth.Credential{}, s.CredErr
	}
	return s.Cred, nil
}

func (s *StaticAuthority) Refreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}
