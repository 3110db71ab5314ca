package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voyageur-express/internal/app"
	"voyageur-express/internal/dataset"
	"voyageur-express/internal/domain"
	"voyageur-express/internal/game"
)

type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWSHandler accepts browser connections from the allowed origins only.
// An empty list or "*" allows any origin.
func NewWSHandler(service *app.GameService, logger *zap.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			allowed = nil
			break
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients send no Origin.
		if len(allowed) == 0 || origin == "" {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Mode         domain.GameMode     `json:"mode"`
	QuestionType domain.QuestionType `json:"questionType"`
	Continent    string              `json:"continent"`
}

type answerPayload struct {
	Code string `json:"code"`
}

type sessionPayload struct {
	SessionID string `json:"sessionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and binds them to a game
// session: a new one, or the one named by the sessionId query parameter.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if !h.upgrader.CheckOrigin(r) {
		h.logger.Warn("ws origin rejected", zap.String("origin", r.Header.Get("Origin")))
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		session, err := h.service.Open(r.Context())
		if err != nil {
			h.logger.Error("open session failed", zap.Error(err))
			http.Error(w, "dataset unavailable", http.StatusServiceUnavailable)
			return
		}
		sessionID = session.ID()
	}

	session, err := h.service.Attach(sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer h.service.Detach(sessionID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.logger.With(zap.String("session_id", sessionID))
	events, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// Only this goroutine writes to the connection.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "session", Payload: sessionPayload{SessionID: sessionID}}

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- toOutbound(ev):
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(session, inbound); err != nil {
			select {
			case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}:
			case <-writerDone:
			}
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

var errUnsupportedMessage = errors.New("unsupported message type")

func (h *WSHandler) dispatch(session *app.Session, inbound inboundMessage) error {
	switch inbound.Type {
	case "modeSelect":
		return session.OpenModeSelect()
	case "start":
		var payload startPayload
		if err := decodePayload(inbound.Payload, &payload); err != nil {
			return errors.New("invalid start payload")
		}
		if payload.QuestionType == "" {
			payload.QuestionType = domain.QuestionCountry
		}
		if payload.Continent == "" {
			payload.Continent = dataset.World
		}
		return session.StartGame(payload.Mode, payload.QuestionType, payload.Continent)
	case "click":
		var p game.Pointer
		if err := decodePayload(inbound.Payload, &p); err != nil {
			return errors.New("invalid click payload")
		}
		session.Click(p)
	case "answer":
		var payload answerPayload
		if err := decodePayload(inbound.Payload, &payload); err != nil {
			return errors.New("invalid answer payload")
		}
		session.Answer(payload.Code)
	case "pause":
		return session.Pause()
	case "resume":
		return session.Resume()
	case "restart":
		return session.Restart()
	case "menu":
		session.ReturnToMenu()
	default:
		return errUnsupportedMessage
	}
	return nil
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("missing payload")
	}
	return json.Unmarshal(raw, v)
}

func toOutbound(ev app.Event) outboundMessage[any] {
	switch ev.Type {
	case app.EventFeedback:
		return outboundMessage[any]{Type: "feedback", Payload: ev.Feedback}
	case app.EventCompletion:
		return outboundMessage[any]{Type: "completion", Payload: ev.Completion}
	default:
		return outboundMessage[any]{Type: "state", Payload: ev.State}
	}
}
