package http

import (
	"encoding/json"
	"net/http"
	"time"

	"exam-session-service/internal/app"
	"exam-session-service/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type WSHandler struct {
	service  *app.ExamService
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewWSHandler builds the candidate-facing handler. An empty origin list accepts any origin.
func NewWSHandler(service *app.ExamService, allowedOrigins []string, log zerolog.Logger) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &WSHandler{
		service: service,
		log:     log.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type navigatePayload struct {
	Index int `json:"index"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

type flagPayload struct {
	QuestionID string `json:"questionId"`
}

type violationPayload struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

type sessionPayload struct {
	SessionID string            `json:"sessionId"`
	Questions []domain.Question `json:"questions"`
	View      domain.View       `json:"view"`
}

type warningPayload struct {
	Message string `json:"message"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request, starts a session for examId and relays events both ways.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	examID := r.URL.Query().Get("examId")
	if examID == "" {
		http.Error(w, "missing examId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	sessionID, err := h.service.StartExam(ctx, examID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	log := h.log.With().Str("session_id", sessionID).Str("exam_id", examID).Logger()

	questions, err := h.service.Questions(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	views, stopViews, err := h.service.Watch(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer stopViews()
	results, stopResults, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer stopResults()

	initial := <-views

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	relayDone := make(chan struct{})

	// only the writer goroutine touches conn for writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Msg("ws write failed")
				// unblock the reader
				_ = conn.Close()
				for range send {
				}
				return
			}
		}
	}()

	push := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-closeSignals:
			return false
		}
	}

	send <- outboundMessage[any]{Type: "session", Payload: sessionPayload{
		SessionID: sessionID,
		Questions: questions,
		View:      initial,
	}}

	go func() {
		defer close(relayDone)
		for views != nil || results != nil {
			select {
			case view, ok := <-views:
				if !ok {
					views = nil
					continue
				}
				if !push(outboundMessage[any]{Type: "state", Payload: view}) {
					return
				}
			case result, ok := <-results:
				if !ok {
					results = nil
					continue
				}
				if !push(outboundMessage[any]{Type: "result", Payload: result}) {
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
		if inbound.Type == "overview" {
			overview, err := h.service.Overview(ctx, sessionID)
			if err != nil {
				push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			push(outboundMessage[any]{Type: "overview", Payload: overview})
			continue
		}

		event, err := decodeEvent(inbound, time.Now())
		if err != nil {
			push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			continue
		}
		view, err := h.service.Dispatch(ctx, sessionID, event)
		if err != nil {
			push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			continue
		}
		if view.Warning != "" {
			push(outboundMessage[any]{Type: "warning", Payload: warningPayload{Message: view.Warning}})
		}
	}

	// An abandoned session keeps running; the clock submits it on expiry.
	log.Debug().Msg("candidate disconnected")

	close(closeSignals)
	<-relayDone
	close(send)
	<-writerDone
}

func decodeEvent(msg inboundMessage, now time.Time) (domain.Event, error) {
	switch msg.Type {
	case "navigate":
		var p navigatePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, errInvalidPayload(msg.Type)
		}
		return domain.NavigateTo{Index: p.Index}, nil
	case "next":
		return domain.NextQuestion{}, nil
	case "prev":
		return domain.PrevQuestion{}, nil
	case "answer":
		var p answerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, errInvalidPayload(msg.Type)
		}
		return domain.SetAnswer{QuestionID: p.QuestionID, Text: p.Answer}, nil
	case "flag":
		var p flagPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, errInvalidPayload(msg.Type)
		}
		return domain.ToggleFlag{QuestionID: p.QuestionID}, nil
	case "violation":
		var p violationPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Kind == "" {
			return nil, errInvalidPayload(msg.Type)
		}
		return domain.ViolationSignal{Signal: domain.Signal{
			Kind:   domain.SignalKind(p.Kind),
			Detail: p.Detail,
			At:     now,
		}}, nil
	case "submit":
		return domain.ManualSubmit{}, nil
	default:
		return nil, errUnsupportedMessage
	}
}
