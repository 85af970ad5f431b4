// Package panel exposes the chat bridge to the editor panel over WebSocket.
// One connection is one session; each session runs at most one request at a
// time and rejects submissions while busy.
package panel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"panelbridge/internal/dispatch"
	"panelbridge/internal/media"
)

// Config carries the server-level settings consumed here.
type Config struct {
	// Token, when set, is required as a Bearer token on every request.
	Token string
	Debug bool
}

// Session tracks a connected panel.
type Session struct {
	ID           string
	LastActiveAt time.Time

	mu            sync.Mutex
	conn          *websocket.Conn
	cancelRequest context.CancelFunc
}

// SessionManager owns the panel sessions and hands their requests to the
// dispatcher.
type SessionManager struct {
	cfg        Config
	dispatcher *dispatch.Dispatcher

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionManager(cfg Config, dispatcher *dispatch.Dispatcher) *SessionManager {
	return &SessionManager{
		cfg:        cfg,
		dispatcher: dispatcher,
		sessions:   make(map[string]*Session),
	}
}

// HTTPHandler returns the handler for the panel endpoints.
func (m *SessionManager) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/panel", m.auth(m.handlePanel))
	mux.HandleFunc("/panel/sessions", m.auth(m.handleListSessions))
	return mux
}

func (m *SessionManager) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]map[string]any, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sess.mu.Lock()
		items = append(items, map[string]any{
			"id":          sess.ID,
			"last_active": sess.LastActiveAt.Format(time.RFC3339Nano),
		})
		sess.mu.Unlock()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"sessions": items})
}

func (m *SessionManager) handlePanel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sess := &Session{
		ID:           uuid.NewString(),
		LastActiveAt: time.Now(),
		conn:         conn,
	}
	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	m.debugf("session %s connected", sess.ID)

	m.runSessionLoop(sess)

	m.mu.Lock()
	delete(m.sessions, sess.ID)
	m.mu.Unlock()
	m.debugf("session %s disconnected", sess.ID)
}

func (m *SessionManager) runSessionLoop(sess *Session) {
	defer m.dispose(sess)

	for {
		var msg Inbound
		if err := sess.conn.ReadJSON(&msg); err != nil {
			return
		}

		sess.mu.Lock()
		sess.LastActiveAt = time.Now()
		sess.mu.Unlock()

		switch msg.Command {
		case CommandChat:
			if strings.TrimSpace(msg.Text) == "" {
				continue
			}
			m.startRequest(sess, msg)
		default:
			// Unrecognized commands are ignored, not errors.
		}
	}
}

// startRequest launches the request handling task, rejecting while another
// request on this session is still in flight.
func (m *SessionManager) startRequest(sess *Session, msg Inbound) {
	ctx, cancel := context.WithCancel(context.Background())

	sess.mu.Lock()
	if sess.cancelRequest != nil {
		sess.mu.Unlock()
		cancel()
		sess.post(Outbound{Command: CommandError, Text: "a request is already in progress"})
		return
	}
	sess.cancelRequest = cancel
	sess.mu.Unlock()

	req := dispatch.Request{
		Prompt:   msg.Text,
		Provider: msg.Model,
		ModelKey: msg.ModelKey,
	}
	if msg.MediaData != "" {
		req.Media = &media.Attachment{
			DataURL:  msg.MediaData,
			MIMEType: msg.MediaType,
			Kind:     media.KindFromMIME(msg.MediaType),
		}
	}

	go func() {
		defer func() {
			cancel()
			sess.mu.Lock()
			sess.cancelRequest = nil
			sess.mu.Unlock()
		}()
		m.dispatcher.Handle(ctx, req, sess)
	}()
}

// dispose drops the connection and cancels any in-flight request. Writes
// after this point are silently discarded.
func (m *SessionManager) dispose(sess *Session) {
	sess.mu.Lock()
	cancel := sess.cancelRequest
	if sess.conn != nil {
		_ = sess.conn.Close()
	}
	sess.conn = nil
	sess.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Partial implements dispatch.Sink.
func (s *Session) Partial(text string) {
	s.post(Outbound{Command: CommandResponse, Text: text})
}

// Final implements dispatch.Sink.
func (s *Session) Final(text, mediaType string) {
	s.post(Outbound{Command: CommandResponse, Text: text, MediaType: mediaType})
}

// Fail implements dispatch.Sink.
func (s *Session) Fail(message string) {
	s.post(Outbound{Command: CommandError, Text: message})
}

// post writes one envelope to the panel. A disposed or failing connection is
// not an error: the user closed the panel and there is nobody left to tell.
func (s *Session) post(msg Outbound) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (m *SessionManager) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (m *SessionManager) authorized(r *http.Request) bool {
	token := strings.TrimSpace(m.cfg.Token)
	if token == "" {
		return true
	}
	value := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(value, prefix) {
		return false
	}
	return strings.TrimSpace(strings.TrimPrefix(value, prefix)) == token
}

func (m *SessionManager) debugf(format string, args ...any) {
	if !m.cfg.Debug {
		return
	}
	fmt.Fprintf(os.Stderr, "[panel] "+format+"\n", args...)
}
