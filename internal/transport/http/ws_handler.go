package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"quizwhiz-service/internal/app"
	"quizwhiz-service/internal/session"

	"github.com/gorilla/websocket"
)

var errInvalidAnswerPayload = errors.New("invalid answer payload")

// WSHandler runs interactive quiz sessions over a websocket: one connection
// owns one session, receives its event stream, and drives it with
// start/answer/restart messages.
type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Option string `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and binds a fresh session to the connection.
// Session teardown on disconnect cancels the active countdown, so a stale
// tick can never outlive its connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("playerId")
	category := r.URL.Query().Get("category")
	categoryID, _ := strconv.Atoi(r.URL.Query().Get("categoryId"))
	if playerID == "" {
		http.Error(w, "missing playerId", http.StatusBadRequest)
		return
	}
	if category == "" {
		category = "Any Category"
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sess, err := h.service.NewSession(r.Context(), playerID, category, categoryID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer sess.Close()

	updates, cancel := sess.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case event, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- toOutbound(event):
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
		switch inbound.Type {
		case "start":
			if err := sess.Start(); err != nil {
				send <- errorMessage(err)
			}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage(errInvalidAnswerPayload)
				continue
			}
			if _, err := sess.Submit(payload.Option); err != nil {
				send <- errorMessage(err)
			}
		case "restart":
			sess.Restart()
			send <- outboundMessage[any]{Type: string(session.EventState), Payload: sessionEvent{Snapshot: sess.Snapshot()}}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

type sessionEvent struct {
	session.Snapshot
	Answer any `json:"answer,omitempty"`
}

func toOutbound(event session.Event) outboundMessage[any] {
	payload := sessionEvent{Snapshot: event.Snapshot}
	if event.Answer != nil {
		payload.Answer = event.Answer
	}
	return outboundMessage[any]{Type: string(event.Type), Payload: payload}
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}
