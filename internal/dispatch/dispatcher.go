// Package dispatch routes a normalized chat request to the matching provider
// adapter and relays the resulting events to the UI.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"os"

	"panelbridge/internal/llm"
	"panelbridge/internal/media"
	"panelbridge/internal/registry"
)

// Request is one user submission, as received from the panel.
type Request struct {
	Prompt   string
	Provider string // provider tag from the wire, e.g. "local"
	ModelKey string
	Media    *media.Attachment
}

// Sink receives the outcome events of a request. Implementations own the
// disposed-channel problem: posting after the panel closed must be a silent
// no-op, and no Sink method may panic back into the dispatcher's caller.
type Sink interface {
	Partial(text string)
	Final(text, mediaType string)
	Fail(message string)
}

// Dispatcher owns the adapter table and the per-request lifecycle:
// validate, select adapter, relay events, terminate exactly once.
type Dispatcher struct {
	registry *registry.Registry
	adapters map[registry.Provider]llm.Adapter
	debug    bool
}

func New(reg *registry.Registry, adapters map[registry.Provider]llm.Adapter) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		adapters: adapters,
	}
}

// SetDebug enables request tracing to stderr.
func (d *Dispatcher) SetDebug(debug bool) { d.debug = debug }

// Handle runs one request to its terminal event. Every failure, including a
// panicking adapter, becomes a single Fail on the sink; nothing propagates
// to the caller.
func (d *Dispatcher) Handle(ctx context.Context, req Request, sink Sink) {
	defer func() {
		if r := recover(); r != nil {
			sink.Fail(fmt.Sprintf("internal error: %v", r))
		}
	}()

	provider, err := registry.ParseProvider(req.Provider)
	if err != nil {
		sink.Fail(err.Error())
		return
	}

	desc, err := d.registry.Lookup(provider, req.ModelKey)
	if err != nil {
		sink.Fail(err.Error())
		return
	}

	if req.Media != nil {
		if err := media.Validate(*req.Media, desc.Kinds, desc.MaxInputBytes); err != nil {
			sink.Fail(err.Error())
			return
		}
	}

	adapter, ok := d.adapters[provider]
	if !ok {
		sink.Fail(fmt.Sprintf("no adapter registered for provider %q", provider))
		return
	}
	d.debugf("dispatching to %s (model %s)", adapter.Name(), desc.WireCode)

	stream, err := adapter.Stream(ctx, llm.Request{
		Prompt: req.Prompt,
		Model:  desc,
		Media:  req.Media,
	})
	if err != nil {
		sink.Fail(err.Error())
		return
	}
	defer stream.Close()

	mediaType := ""
	if req.Media != nil {
		mediaType = req.Media.MIMEType
	}

	for {
		event, err := stream.Recv()
		if err == io.EOF {
			// Adapters always end with a terminal event; reaching EOF
			// without one means the stream broke mid-flight.
			sink.Fail("stream ended without a result")
			return
		}
		if err != nil {
			sink.Fail(err.Error())
			return
		}

		switch event.Type {
		case llm.EventText:
			sink.Partial(event.Text)
		case llm.EventDone:
			d.debugf("done (%d chars)", len(event.Text))
			sink.Final(event.Text, mediaType)
			return
		case llm.EventError:
			message := "request failed"
			if event.Err != nil {
				message = event.Err.Error()
			}
			d.debugf("failed: %s", message)
			sink.Fail(message)
			return
		}
	}
}

func (d *Dispatcher) debugf(format string, args ...any) {
	if !d.debug {
		return
	}
	fmt.Fprintf(os.Stderr, "[dispatch] "+format+"\n", args...)
}
