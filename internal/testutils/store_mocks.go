package testutils

import (
	"context"
	"sync"

	"marketsync/internal/domain/model"
)

// MockQuoteStore is an in-memory QuoteStore.
type MockQuoteStore struct {
	Quotes  map[string]model.Quote
	Saved   []model.Quote
	LoadErr error
	SaveErr error
	PingErr error
	Mu      sync.Mutex
}

func NewMockQuoteStore(quotes ...model.Quote) *MockQuoteStore {
	m := &MockQuoteStore{Quotes: make(map[string]model.Quote)}
	for _, q := range quotes {
		m.Quotes[q.Symbol] = q
	}
	return m
}

func (m *MockQuoteStore) SaveQuote(ctx context.Context, q model.Quote) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Quotes[q.Symbol] = q
	m.Saved = append(m.Saved, q)
	return nil
}

func (m *MockQuoteStore) LoadQuotes(ctx context.Context, symbols []string) ([]model.Quote, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	var out []model.Quote
	for _, s := range symbols {
		if q, ok := m.Quotes[s]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *MockQuoteStore) Ping(ctx context.Context) error { return m.PingErr }
func (m *MockQuoteStore) Close() error                   { return nil }

func (m *MockQuoteStore) SavedCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Saved)
}

// MockTransactionSource serves a fixed history.
type MockTransactionSource struct {
	Transactions []model.Transaction
	Err          error
	PingErr      error
	Calls        int
	Mu           sync.Mutex
}

func (m *MockTransactionSource) ListTransactions(ctx context.Context, account string) ([]model.Transaction, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]model.Transaction(nil), m.Transactions...), nil
}

func (m *MockTransactionSource) Ping(ctx context.Context) error { return m.PingErr }
func (m *MockTransactionSource) Close() error                   { return nil }

// MockRecorder keeps every recorded snapshot.
type MockRecorder struct {
	Snapshots []model.PortfolioSummary
	Accounts  []string
	Err       error
	Mu        sync.Mutex
}

func (m *MockRecorder) RecordSnapshot(ctx context.Context, account string, s model.PortfolioSummary) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Accounts = append(m.Accounts, account)
	m.Snapshots = append(m.Snapshots, s)
	return nil
}

func (m *MockRecorder) Close() error { return nil }

func (m *MockRecorder) Count() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Snapshots)
}

// MockSink collects quotes submitted for persistence.
type MockSink struct {
	Quotes []model.Quote
	Full   bool
	Mu     sync.Mutex
}

func (m *MockSink) Submit(q model.Quote) bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Full {
		return false
	}
	m.Quotes = append(m.Quotes, q)
	return true
}

func (m *MockSink) Count() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Quotes)
}
