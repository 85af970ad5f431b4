package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestHostModelMissingSelector(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	adapter := NewHostModelAdapter(srv.URL, func() string { return "" })
	stream, err := adapter.Stream(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	events := collectEvents(t, stream)
	if len(events) != 1 || events[0].Type != EventError {
		t.Fatalf("expected a single EventError, got %+v", events)
	}
	if !errors.Is(events[0].Err, ErrMissingConfiguration) {
		t.Fatalf("expected ErrMissingConfiguration, got %v", events[0].Err)
	}
	if calls.Load() != 0 {
		t.Fatalf("no network call should be attempted, saw %d", calls.Load())
	}
}

func TestHostModelNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"models": []any{}})
	}))
	defer srv.Close()

	adapter := NewHostModelAdapter(srv.URL, func() string { return "copilot/gpt" })
	stream, err := adapter.Stream(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	events := collectEvents(t, stream)
	if len(events) != 1 || events[0].Type != EventError {
		t.Fatalf("expected a single EventError, got %+v", events)
	}
	if !errors.Is(events[0].Err, ErrNoMatchingModel) {
		t.Fatalf("expected ErrNoMatchingModel, got %v", events[0].Err)
	}
}

func TestHostModelStreamsFirstCandidate(t *testing.T) {
	var chatModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/models/select":
			var req hostSelectRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode select: %v", err)
			}
			if req.Selector != "copilot/gpt" {
				t.Errorf("selector=%q, want copilot/gpt", req.Selector)
			}
			json.NewEncoder(w).Encode(hostSelectResponse{Models: []hostModelHandle{
				{ID: "gpt-4o", Name: "GPT-4o"},
				{ID: "gpt-4o-mini", Name: "GPT-4o mini"},
			}})
		case "/v1/models/gpt-4o/chat":
			chatModel = "gpt-4o"
			io.WriteString(w, `{"part":"Hel"}`+"\n")
			io.WriteString(w, `{"part":"lo"}`+"\n")
			io.WriteString(w, `{"done":true}`+"\n")
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	adapter := NewHostModelAdapter(srv.URL, func() string { return "copilot/gpt" })
	stream, err := adapter.Stream(context.Background(), Request{Prompt: "say hello"})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	events := collectEvents(t, stream)
	want := []Event{
		{Type: EventText, Text: "Hel"},
		{Type: EventText, Text: "Hello"},
		{Type: EventDone, Text: "Hello"},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(want), events)
	}
	for i, event := range events {
		if event.Type != want[i].Type || event.Text != want[i].Text {
			t.Fatalf("event %d = %+v, want %+v", i, event, want[i])
		}
	}
	if chatModel != "gpt-4o" {
		t.Fatalf("chat sent to %q, want the first candidate gpt-4o", chatModel)
	}
}

func TestHostModelSelectFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bridge unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	adapter := NewHostModelAdapter(srv.URL, func() string { return "copilot/gpt" })
	stream, err := adapter.Stream(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	events := collectEvents(t, stream)
	if len(events) != 1 || events[0].Type != EventError {
		t.Fatalf("expected a single EventError, got %+v", events)
	}
}
