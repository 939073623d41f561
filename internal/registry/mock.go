package registry

import (
	"context"
	"sync"
)

// MockClient is a deterministic in-memory registry for tests and local runs.
type MockClient struct {
	mu        sync.RWMutex
	companies map[string]CompanyRecord
	failWith  error
}

func NewMockClient() *MockClient {
	return &MockClient{companies: make(map[string]CompanyRecord)}
}

// Register seeds a company record.
func (m *MockClient) Register(record CompanyRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[record.RegistrationNumber] = record
}

// FailWith makes every subsequent Lookup return err. Pass nil to recover.
func (m *MockClient) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *MockClient) Lookup(_ context.Context, registrationNumber string) (*CompanyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failWith != nil {
		return nil, m.failWith
	}
	record, ok := m.companies[registrationNumber]
	if !ok {
		return nil, ErrNotFound
	}
	clone := record
	return &clone, nil
}
