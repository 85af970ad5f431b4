package llm

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestEventStreamRunErrorBecomesTerminal(t *testing.T) {
	boom := errors.New("boom")
	stream := newEventStream(context.Background(), func(ctx context.Context, ch chan<- Event) error {
		ch <- Event{Type: EventText, Text: "partial"}
		return boom
	})
	defer stream.Close()

	events := collectEvents(t, stream)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %+v", events)
	}
	if events[1].Type != EventError || !errors.Is(events[1].Err, boom) {
		t.Fatalf("expected terminal error, got %+v", events[1])
	}
}

func TestEventStreamDrainsBufferedBeforeCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stream := newEventStream(ctx, func(ctx context.Context, ch chan<- Event) error {
		ch <- Event{Type: EventDone, Text: "done"}
		return nil
	})
	defer stream.Close()

	// Give the producer time to buffer, then cancel. The buffered terminal
	// event must still be delivered.
	time.Sleep(10 * time.Millisecond)
	cancel()

	event, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if event.Type != EventDone {
		t.Fatalf("expected buffered EventDone, got %+v", event)
	}
}

func TestEventStreamClose(t *testing.T) {
	started := make(chan struct{})
	stream := newEventStream(context.Background(), func(ctx context.Context, ch chan<- Event) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	<-started
	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for {
		_, err := stream.Recv()
		if err == io.EOF || errors.Is(err, context.Canceled) {
			return
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
	}
}
