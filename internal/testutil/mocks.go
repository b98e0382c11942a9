package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
)

// MockModelClient implements core.ModelClient for testing.
type MockModelClient struct {
	name         string
	generateFunc func(context.Context, core.GenerateRequest) (string, error)
	calls        []MockCall
	mu           sync.Mutex
}

// MockCall records a call to the mock.
type MockCall struct {
	Method    string
	Args      interface{}
	Timestamp time.Time
}

// NewMockModelClient creates a new mock client.
func NewMockModelClient(name string) *MockModelClient {
	return &MockModelClient{
		name:  name,
		calls: make([]MockCall, 0),
	}
}

// Name returns the mock name.
func (m *MockModelClient) Name() string {
	return m.name
}

// Generate mocks a generation request. Without a configured response it
// returns a minimal structured payload.
func (m *MockModelClient) Generate(ctx context.Context, req core.GenerateRequest) (string, error) {
	m.recordCall("Generate", req)
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return `{"headline":"Mock headline","analysis":"Mock analysis"}`, nil
}

// WithGenerateFunc sets a custom generate function.
func (m *MockModelClient) WithGenerateFunc(fn func(context.Context, core.GenerateRequest) (string, error)) *MockModelClient {
	m.generateFunc = fn
	return m
}

// WithError configures the mock to return an error.
func (m *MockModelClient) WithError(err error) *MockModelClient {
	m.generateFunc = func(context.Context, core.GenerateRequest) (string, error) {
		return "", err
	}
	return m
}

// WithResponse configures a fixed response.
func (m *MockModelClient) WithResponse(output string) *MockModelClient {
	m.generateFunc = func(context.Context, core.GenerateRequest) (string, error) {
		return output, nil
	}
	return m
}

// WithResponses returns the outputs in order, repeating the last one.
func (m *MockModelClient) WithResponses(outputs ...string) *MockModelClient {
	var (
		mu sync.Mutex
		i  int
	)
	m.generateFunc = func(context.Context, core.GenerateRequest) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		out := outputs[i]
		if i < len(outputs)-1 {
			i++
		}
		return out, nil
	}
	return m
}

// WithDelay makes Generate block for d or until the context is done.
func (m *MockModelClient) WithDelay(d time.Duration, output string) *MockModelClient {
	m.generateFunc = func(ctx context.Context, _ core.GenerateRequest) (string, error) {
		select {
		case <-time.After(d):
			return output, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m
}

func (m *MockModelClient) recordCall(method string, args interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method:    method,
		Args:      args,
		Timestamp: time.Now(),
	})
}

// Calls returns recorded calls.
func (m *MockModelClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of calls.
func (m *MockModelClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastRequest returns the most recent request, if any.
func (m *MockModelClient) LastRequest() (core.GenerateRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return core.GenerateRequest{}, false
	}
	req, ok := m.calls[len(m.calls)-1].Args.(core.GenerateRequest)
	return req, ok
}

// Reset clears recorded calls.
func (m *MockModelClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make([]MockCall, 0)
}

// MemoryStore implements core.HistoryStore in memory.
type MemoryStore struct {
	mu        sync.Mutex
	doc       *core.HistoryDocument
	saves     int
	saveErr   error
	lockErr   error
	locked    bool
	lockCalls int
}

// NewMemoryStore creates a store holding doc (nil means empty).
func NewMemoryStore(doc *core.HistoryDocument) *MemoryStore {
	if doc != nil {
		doc = doc.Clone()
	}
	return &MemoryStore{doc: doc}
}

// WithSaveError makes every Save fail with err.
func (s *MemoryStore) WithSaveError(err error) *MemoryStore {
	s.saveErr = err
	return s
}

// WithLockError makes AcquireLock fail with err.
func (s *MemoryStore) WithLockError(err error) *MemoryStore {
	s.lockErr = err
	return s
}

// Load returns a copy of the stored document.
func (s *MemoryStore) Load(_ context.Context) (*core.HistoryDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return core.NewHistoryDocument(time.Now()), nil
	}
	return s.doc.Clone(), nil
}

// Save stores a copy of doc.
func (s *MemoryStore) Save(_ context.Context, doc *core.HistoryDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.doc = doc.Clone()
	s.saves++
	return nil
}

// Location returns a fixed description.
func (s *MemoryStore) Location() string { return "memory" }

// AcquireLock marks the store as locked.
func (s *MemoryStore) AcquireLock(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockCalls++
	if s.lockErr != nil {
		return s.lockErr
	}
	if s.locked {
		return core.ErrPersistence(core.CodeLockHeld, "memory store already locked")
	}
	s.locked = true
	return nil
}

// ReleaseLock clears the lock.
func (s *MemoryStore) ReleaseLock(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = false
	return nil
}

// Saves returns the number of successful saves.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Locked reports whether the lock is currently held.
func (s *MemoryStore) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Document returns a copy of the stored document, or nil if never saved.
func (s *MemoryStore) Document() *core.HistoryDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil
	}
	return s.doc.Clone()
}

var (
	_ core.ModelClient   = (*MockModelClient)(nil)
	_ core.HistoryStore  = (*MemoryStore)(nil)
	_ core.HistoryLocker = (*MemoryStore)(nil)
)
