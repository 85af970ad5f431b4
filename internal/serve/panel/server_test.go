package panel

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"panelbridge/internal/dispatch"
	"panelbridge/internal/llm"
	"panelbridge/internal/registry"
)

func newTestServer(t *testing.T, cfg Config, local *llm.MockAdapter) *httptest.Server {
	t.Helper()
	dispatcher := dispatch.New(registry.New(), map[registry.Provider]llm.Adapter{
		registry.ProviderLocal: local,
	})
	manager := NewSessionManager(cfg, dispatcher)
	srv := httptest.NewServer(manager.HTTPHandler())
	t.Cleanup(srv.Close)
	return srv
}

func dialPanel(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := strings.Replace(srv.URL, "http", "ws", 1) + "/panel"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readOutbound(t *testing.T, conn *websocket.Conn) Outbound {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg Outbound
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestChatRoundTrip(t *testing.T) {
	local := llm.NewMockAdapter("local").AddTextResponse("Hel", "lo")
	srv := newTestServer(t, Config{}, local)
	conn := dialPanel(t, srv)

	if err := conn.WriteJSON(Inbound{Command: CommandChat, Text: "say hello", Model: "local"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	want := []Outbound{
		{Command: CommandResponse, Text: "Hel"},
		{Command: CommandResponse, Text: "Hello"},
		{Command: CommandResponse, Text: "Hello"},
	}
	for i, expected := range want {
		got := readOutbound(t, conn)
		if got != expected {
			t.Fatalf("message %d = %+v, want %+v", i, got, expected)
		}
	}
}

func TestChatFailureEnvelope(t *testing.T) {
	local := llm.NewMockAdapter("local")
	srv := newTestServer(t, Config{}, local)
	conn := dialPanel(t, srv)

	// Unknown provider tag: the dispatcher rejects before any adapter runs.
	if err := conn.WriteJSON(Inbound{Command: CommandChat, Text: "hi", Model: "acme"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := readOutbound(t, conn)
	if got.Command != CommandError {
		t.Fatalf("command=%q, want error", got.Command)
	}
	if !strings.Contains(got.Text, "unknown provider") {
		t.Fatalf("error text=%q", got.Text)
	}
}

func TestRejectWhileBusy(t *testing.T) {
	local := llm.NewMockAdapter("local")
	local.AddTurn(llm.MockTurn{Fragments: []string{"slow"}, Delay: 300 * time.Millisecond})
	srv := newTestServer(t, Config{}, local)
	conn := dialPanel(t, srv)

	first := Inbound{Command: CommandChat, Text: "one", Model: "local"}
	second := Inbound{Command: CommandChat, Text: "two", Model: "local"}
	if err := conn.WriteJSON(first); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteJSON(second); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The busy rejection arrives before the delayed first response.
	got := readOutbound(t, conn)
	if got.Command != CommandError || !strings.Contains(got.Text, "already in progress") {
		t.Fatalf("first message = %+v, want the busy rejection", got)
	}

	got = readOutbound(t, conn)
	if got.Command != CommandResponse || got.Text != "slow" {
		t.Fatalf("second message = %+v, want the first request's response", got)
	}
}

func TestUnrecognizedCommandIgnored(t *testing.T) {
	local := llm.NewMockAdapter("local").AddTextResponse("ok")
	srv := newTestServer(t, Config{}, local)
	conn := dialPanel(t, srv)

	if err := conn.WriteJSON(Inbound{Command: "telemetry", Text: "x"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteJSON(Inbound{Command: CommandChat, Text: "hi", Model: "local"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The first reply corresponds to the chat; the unknown command
	// produced nothing, not an error.
	got := readOutbound(t, conn)
	if got.Command != CommandResponse || got.Text != "ok" {
		t.Fatalf("got %+v, want the chat response", got)
	}
}

func TestEmptyPromptIgnored(t *testing.T) {
	local := llm.NewMockAdapter("local").AddTextResponse("ok")
	srv := newTestServer(t, Config{}, local)
	conn := dialPanel(t, srv)

	if err := conn.WriteJSON(Inbound{Command: CommandChat, Text: "   ", Model: "local"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteJSON(Inbound{Command: CommandChat, Text: "hi", Model: "local"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := readOutbound(t, conn)
	if got.Command != CommandResponse || got.Text != "ok" {
		t.Fatalf("got %+v, want the chat response", got)
	}
	if len(local.Requests) != 1 {
		t.Fatalf("blank prompts must not dispatch, saw %d requests", len(local.Requests))
	}
}

func TestPostAfterDisposeIsNoOp(t *testing.T) {
	sess := &Session{ID: "test"}

	// A disposed session has no connection; posting must complete without
	// a fault.
	sess.Partial("partial text")
	sess.Final("final text", "image/png")
	sess.Fail("some failure")
}

func TestAuthToken(t *testing.T) {
	local := llm.NewMockAdapter("local")
	srv := newTestServer(t, Config{Token: "secret"}, local)

	resp, err := http.Get(srv.URL + "/panel/sessions")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/panel/sessions", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}
}
