package inference

import (
	"context"
	"sync"
)

// Mock is a scripted Provider for tests. Each Vision call returns the next
// answer; the last answer repeats. Set VisionFunc to take over completely.
type Mock struct {
	// NameValue is returned by Name; "mock" when empty.
	NameValue string

	VisionFunc func(ctx context.Context, req *VisionRequest) (*VisionResponse, error)
	HealthFunc func(ctx context.Context) error
	CloseFunc  func() error

	mu       sync.Mutex
	answers  []string
	requests []*VisionRequest
	counts   map[string]int
}

// NewMock returns a mock answering with answers in order.
func NewMock(answers ...string) *Mock {
	return &Mock{answers: answers}
}

// NewFailing returns a mock whose Vision and Health fail with err.
func NewFailing(err error) *Mock {
	return &Mock{
		VisionFunc: func(context.Context, *VisionRequest) (*VisionResponse, error) {
			return nil, err
		},
		HealthFunc: func(context.Context) error { return err },
	}
}

// Name implements Provider.
func (m *Mock) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock"
}

// Vision implements Provider.
func (m *Mock) Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
	m.mu.Lock()
	m.count("Vision")
	n := len(m.requests)
	m.requests = append(m.requests, req)
	fn := m.VisionFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(m.answers) == 0 {
		return nil, WrapError(m.Name(), ErrEmptyResponse)
	}
	return &VisionResponse{
		Content:  m.answers[min(n, len(m.answers)-1)],
		Model:    req.Model,
		Provider: m.Name(),
		Usage:    Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
	}, nil
}

// Health implements Provider.
func (m *Mock) Health(ctx context.Context) error {
	m.mu.Lock()
	m.count("Health")
	m.mu.Unlock()
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close implements Provider.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.count("Close")
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// count must be called with mu held.
func (m *Mock) count(method string) {
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[method]++
}

// CallCount returns how often method ("Vision", "Health", "Close") ran.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[method]
}

// Requests returns the vision requests received so far.
func (m *Mock) Requests() []*VisionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*VisionRequest(nil), m.requests...)
}

// LastRequest returns the most recent vision request, or nil.
func (m *Mock) LastRequest() *VisionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Reset forgets recorded calls and restarts the script.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.counts = nil
}

var _ Provider = (*Mock)(nil)
