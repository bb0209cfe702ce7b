package testutils

import (
	"sync"

	"marketsync/internal/domain/model"
	"marketsync/internal/domain/port"
)

// MockController is a Controller whose lifecycle is driven by the test.
// With HoldDone set, Close does not close Done until Release is called.
type MockController struct {
	State      model.ReadyState
	CloseCount int
	HoldDone   bool
	done       chan struct{}
	once       sync.Once
	Mu         sync.Mutex
}

func NewMockController() *MockController {
	return &MockController{State: model.Connecting, done: make(chan struct{})}
}

func (c *MockController) Close() {
	c.Mu.Lock()
	c.CloseCount++
	c.State = model.Closed
	hold := c.HoldDone
	c.Mu.Unlock()
	if !hold {
		c.Release()
	}
}

func (c *MockController) Release() { c.once.Do(func() { close(c.done) }) }

func (c *MockController) ReadyState() model.ReadyState {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	return c.State
}

func (c *MockController) Done() <-chan struct{} { return c.done }

func (c *MockController) Stats() model.FeedStats { return model.FeedStats{SessionID: "mock"} }

func (c *MockController) Closed() bool {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	return c.CloseCount > 0
}

// MockOpen is one recorded PriceSource.Open call.
type MockOpen struct {
	Symbols    []string
	Handlers   port.FeedHandlers
	Controller *MockController
}

// MockSource records Open calls; tests fire callbacks through the captured
// handlers.
type MockSource struct {
	NameVal  string
	HoldDone bool
	Opens    []*MockOpen
	Mu       sync.Mutex
}

func (m *MockSource) Name() string {
	if m.NameVal == "" {
		return "mock"
	}
	return m.NameVal
}

func (m *MockSource) Open(symbols []string, h port.FeedHandlers) port.Controller {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	ctrl := NewMockController()
	ctrl.HoldDone = m.HoldDone
	m.Opens = append(m.Opens, &MockOpen{Symbols: append([]string(nil), symbols...), Handlers: h, Controller: ctrl})
	return ctrl
}

func (m *MockSource) OpenCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Opens)
}

func (m *MockSource) Last() *MockOpen {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Opens) == 0 {
		return nil
	}
	return m.Opens[len(m.Opens)-1]
}
