package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockTurn scripts a single response from the mock adapter.
type MockTurn struct {
	Fragments []string      // deltas to stream; the adapter emits cumulative text
	Final     string        // final text; defaults to the joined fragments
	Delay     time.Duration // optional delay before responding
	Error     error         // return this error instead of responding
}

// MockAdapter is a scripted adapter for tests. It replays configured turns
// and records every request for verification.
type MockAdapter struct {
	name         string
	capabilities Capabilities
	turns        []MockTurn
	turnIndex    int
	Requests     []Request
	mu           sync.Mutex
}

func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{
		name:         name,
		capabilities: Capabilities{Streaming: true},
	}
}

func (m *MockAdapter) Name() string { return m.name }

func (m *MockAdapter) Capabilities() Capabilities { return m.capabilities }

// WithCapabilities overrides the capabilities and returns m for chaining.
func (m *MockAdapter) WithCapabilities(c Capabilities) *MockAdapter {
	m.capabilities = c
	return m
}

// AddTurn appends a scripted turn and returns m for chaining.
func (m *MockAdapter) AddTurn(t MockTurn) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, t)
	return m
}

// AddTextResponse scripts a streamed response with the given fragments.
func (m *MockAdapter) AddTextResponse(fragments ...string) *MockAdapter {
	return m.AddTurn(MockTurn{Fragments: fragments})
}

// AddError scripts a failing turn.
func (m *MockAdapter) AddError(err error) *MockAdapter {
	return m.AddTurn(MockTurn{Error: err})
}

// Reset clears recorded requests and rewinds the turn index.
func (m *MockAdapter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turnIndex = 0
	m.Requests = nil
}

func (m *MockAdapter) Stream(ctx context.Context, req Request) (Stream, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)

	if m.turnIndex >= len(m.turns) {
		m.mu.Unlock()
		return nil, fmt.Errorf("mock adapter: no more turns configured (turn %d of %d)", m.turnIndex, len(m.turns))
	}

	turn := m.turns[m.turnIndex]
	m.turnIndex++
	m.mu.Unlock()

	return newEventStream(ctx, func(ctx context.Context, ch chan<- Event) error {
		if turn.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(turn.Delay):
			}
		}

		if turn.Error != nil {
			return turn.Error
		}

		var full string
		for _, fragment := range turn.Fragments {
			full += fragment
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ch <- Event{Type: EventText, Text: full}:
			}
		}

		final := turn.Final
		if final == "" {
			final = full
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch <- Event{Type: EventDone, Text: final}:
		}
		return nil
	}), nil
}
