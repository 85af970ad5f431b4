// Package llm defines the adapter contract shared by the three chat
// backends and the event stream they produce.
package llm

import (
	"context"
	"errors"

	"panelbridge/internal/media"
	"panelbridge/internal/registry"
)

type EventType int

const (
	// EventText carries the cumulative text so far, not the delta.
	EventText EventType = iota
	// EventDone is terminal; Text carries the final text.
	EventDone
	// EventError is terminal; Err carries the failure.
	EventError
)

type Event struct {
	Type EventType
	Text string
	Err  error
}

// Stream yields the events of one request. Recv returns io.EOF once the
// terminal event has been consumed. Close cancels the producing call.
type Stream interface {
	Recv() (Event, error)
	Close() error
}

type Capabilities struct {
	// Streaming adapters emit EventText updates before the terminal event;
	// non-streaming adapters emit exactly one EventDone or EventError.
	Streaming bool
	// Media adapters accept an attachment; others ignore it.
	Media bool
}

// Request is one prompt submission, already resolved against the registry.
type Request struct {
	Prompt string
	Model  registry.ModelDescriptor
	Media  *media.Attachment
}

// Adapter translates a Request into one provider's wire protocol. Adapters
// convert every failure into a terminal EventError; nothing escapes the
// stream.
type Adapter interface {
	Name() string
	Capabilities() Capabilities
	Stream(ctx context.Context, req Request) (Stream, error)
}

var (
	ErrMissingConfiguration = errors.New("missing configuration")
	ErrNoMatchingModel      = errors.New("no matching model")
)
