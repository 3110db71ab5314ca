package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voyageur-express/internal/app"
	"voyageur-express/internal/dataset"
	"voyageur-express/internal/domain"
	"voyageur-express/internal/infra/memory"
)

func fastRules() app.Rules {
	rules := app.DefaultRules()
	rules.StartDelay = 10 * time.Millisecond
	rules.FeedbackDelay = 20 * time.Millisecond
	return rules
}

func dial(t *testing.T, serverURL, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// readUntil skips messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string, accept func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read while waiting for %s: %v", typ, err)
		}
		if msg.Type == typ && (accept == nil || accept(msg.Payload)) {
			return msg.Payload
		}
	}
}

func stateWith(pred func(app.Snapshot) bool) func(json.RawMessage) bool {
	return func(raw json.RawMessage) bool {
		var snap app.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return false
		}
		return pred(snap)
	}
}

func TestWebSocketGameFlow(t *testing.T) {
	server, completions := newTestServer(t, dataset.Countries()[:1], fastRules(), nil)
	conn := dial(t, server.URL, "")

	var session sessionPayload
	if err := json.Unmarshal(readUntil(t, conn, "session", nil), &session); err != nil || session.SessionID == "" {
		t.Fatalf("expected session id, got %v", err)
	}
	readUntil(t, conn, "state", stateWith(func(s app.Snapshot) bool { return s.Screen == domain.ScreenMenu }))

	send(t, conn, "modeSelect", nil)
	readUntil(t, conn, "state", stateWith(func(s app.Snapshot) bool { return s.Screen == domain.ScreenModeSelect }))

	send(t, conn, "start", startPayload{Mode: domain.ModeTraining, QuestionType: domain.QuestionCountry})
	readUntil(t, conn, "state", stateWith(func(s app.Snapshot) bool {
		return s.Question != nil && s.Question.Prompt == "Where is the country: France?"
	}))

	france := dataset.Countries()[0]
	send(t, conn, "click", map[string]float64{"x": france.X * 8, "y": france.Y * 6, "width": 800, "height": 600})

	var feedback app.RoundResult
	if err := json.Unmarshal(readUntil(t, conn, "feedback", nil), &feedback); err != nil {
		t.Fatalf("decode feedback: %v", err)
	}
	if !feedback.Correct || feedback.Points != 100 || feedback.Banner != "Correct! France - Paris" {
		t.Fatalf("unexpected feedback %+v", feedback)
	}

	var completion domain.Completion
	if err := json.Unmarshal(readUntil(t, conn, "completion", nil), &completion); err != nil {
		t.Fatalf("decode completion: %v", err)
	}
	if completion.Type != "BLOCK_COMPLETION" || completion.Score != 100 || completion.SessionID != session.SessionID {
		t.Fatalf("unexpected completion %+v", completion)
	}

	// The external publisher runs after the session lock is released.
	deadline := time.Now().Add(2 * time.Second)
	for {
		recent, _ := completions.Recent(context.Background(), 0)
		if len(recent) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected completion published once, got %d", len(recent))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketRejectsInvalidTransitions(t *testing.T) {
	server, _ := newTestServer(t, dataset.Countries(), fastRules(), nil)
	conn := dial(t, server.URL, "")
	readUntil(t, conn, "session", nil)

	send(t, conn, "pause", nil)
	var errMsg errorPayload
	if err := json.Unmarshal(readUntil(t, conn, "error", nil), &errMsg); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !strings.Contains(errMsg.Message, "invalid screen transition") {
		t.Fatalf("unexpected error %q", errMsg.Message)
	}

	send(t, conn, "modeSelect", nil)
	send(t, conn, "start", startPayload{Mode: "arcade"})
	if err := json.Unmarshal(readUntil(t, conn, "error", nil), &errMsg); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !strings.Contains(errMsg.Message, "arcade") {
		t.Fatalf("expected unknown mode error, got %q", errMsg.Message)
	}

	send(t, conn, "dance", nil)
	if err := json.Unmarshal(readUntil(t, conn, "error", nil), &errMsg); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if errMsg.Message != errUnsupportedMessage.Error() {
		t.Fatalf("unexpected error %q", errMsg.Message)
	}
}

func TestWebSocketResumesSession(t *testing.T) {
	server, _ := newTestServer(t, dataset.Countries(), fastRules(), nil)
	first := dial(t, server.URL, "")

	var session sessionPayload
	if err := json.Unmarshal(readUntil(t, first, "session", nil), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	send(t, first, "modeSelect", nil)
	readUntil(t, first, "state", stateWith(func(s app.Snapshot) bool { return s.Screen == domain.ScreenModeSelect }))

	second := dial(t, server.URL, "?sessionId="+session.SessionID)
	var resumed sessionPayload
	if err := json.Unmarshal(readUntil(t, second, "session", nil), &resumed); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if resumed.SessionID != session.SessionID {
		t.Fatalf("expected same session, got %s", resumed.SessionID)
	}
	readUntil(t, second, "state", stateWith(func(s app.Snapshot) bool { return s.Screen == domain.ScreenModeSelect }))
}

func TestWebSocketUnknownSession(t *testing.T) {
	server, _ := newTestServer(t, dataset.Countries(), fastRules(), nil)
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?sessionId=nope"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %+v", resp)
	}
}

func TestWebSocketChecksOrigin(t *testing.T) {
	repo := memory.NewCountryRepository(memory.NewBuiltInLoader(), time.Minute)
	service := app.NewGameService(memory.NewSessionStore(), repo, nil, app.WithRules(fastRules()))
	server := httptest.NewServer(NewRouter(RouterConfig{
		Service:        service,
		AllowedOrigins: []string{"https://voyageur.example"},
	}))
	defer server.Close()
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(u, http.Header{"Origin": {"https://evil.example"}})
	if err == nil {
		t.Fatalf("expected foreign origin to be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u, http.Header{"Origin": {"https://voyageur.example"}})
	if err != nil {
		t.Fatalf("dial from allowed origin: %v", err)
	}
	defer conn.Close()
	readUntil(t, conn, "session", nil)
}
