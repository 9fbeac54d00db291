package server

import (
	"chat-presence/domain"
	"chat-presence/errors"
	"chat-presence/observability"
	"chat-presence/services"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// userHeader carries the name of the participant issuing the request.
const userHeader = "user"

type ChatServer struct {
	log         *slog.Logger
	chatService services.IChatService
	metrics     *observability.Metrics
	gatherer    prometheus.Gatherer
	security    SecurityConfig
}

func NewChatServer(log *slog.Logger, chatService services.IChatService, metrics *observability.Metrics,
	gatherer prometheus.Gatherer, security SecurityConfig) *ChatServer {
	return &ChatServer{
		log:         log,
		chatService: chatService,
		metrics:     metrics,
		gatherer:    gatherer,
		security:    security,
	}
}

// Handler builds the full HTTP surface.
// CORS and rate limiting wrap the router so preflight and unmatched requests go through them too.
func (s *ChatServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/participants", s.join).Methods(http.MethodPost)
	r.HandleFunc("/participants", s.listParticipants).Methods(http.MethodGet)
	r.HandleFunc("/messages", s.postMessage).Methods(http.MethodPost)
	r.HandleFunc("/messages", s.getMessages).Methods(http.MethodGet)
	r.HandleFunc("/messages/{id}", s.updateMessage).Methods(http.MethodPut)
	r.HandleFunc("/messages/{id}", s.deleteMessage).Methods(http.MethodDelete)
	r.HandleFunc("/status", s.heartbeat).Methods(http.MethodPost)

	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return cors(s.security.AllowedOrigins, s.rateLimit(r))
}

func (s *ChatServer) join(w http.ResponseWriter, r *http.Request) {
	var body JoinRequest
	if err := decode(r.Body, &body); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.chatService.Join(r.Context(), body.Name); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *ChatServer) listParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := s.chatService.ListParticipants(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toParticipantResponse(participants))
}

func (s *ChatServer) postMessage(w http.ResponseWriter, r *http.Request) {
	var body MessageRequest
	if err := decode(r.Body, &body); err != nil {
		s.writeError(w, err)
		return
	}
	message, err := s.chatService.PostMessage(r.Context(), domain.PostMessageCommand{
		From: r.Header.Get(userHeader),
		To:   body.To,
		Text: body.Text,
		Kind: domain.Kind(body.Type),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toMessageResponse(message))
}

func (s *ChatServer) getMessages(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	messages, err := s.chatService.GetMessages(r.Context(), domain.GetMessagesCommand{
		Viewer: r.Header.Get(userHeader),
		Limit:  limit,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toMessagesResponse(messages))
}

func (s *ChatServer) heartbeat(w http.ResponseWriter, r *http.Request) {
	if err := s.chatService.Heartbeat(r.Context(), r.Header.Get(userHeader)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *ChatServer) updateMessage(w http.ResponseWriter, r *http.Request) {
	id, err := messageID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var body MessageRequest
	if err = decode(r.Body, &body); err != nil {
		s.writeError(w, err)
		return
	}
	message, err := s.chatService.UpdateMessage(r.Context(), domain.UpdateMessageCommand{
		ID:        id,
		Requester: r.Header.Get(userHeader),
		To:        body.To,
		Text:      body.Text,
		Kind:      domain.Kind(body.Type),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toMessageResponse(message))
}

func (s *ChatServer) deleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := messageID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	err = s.chatService.DeleteMessage(r.Context(), domain.DeleteMessageCommand{
		ID:        id,
		Requester: r.Header.Get(userHeader),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// messageID parses the {id} path variable. An id that is not a UUID cannot exist.
func messageID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, errors.ErrMessageNotFound
	}
	return id, nil
}

func (s *ChatServer) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("Unable to write response", "error", err)
	}
}

// writeError translates err into its status code.
// Internal errors are logged and answered with an opaque body.
func (s *ChatServer) writeError(w http.ResponseWriter, err error) {
	code := errors.MapToHTTPStatus(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		s.log.Error("Request failed", "error", err)
		message = http.StatusText(code)
	}
	s.writeJSON(w, code, ErrorResponse{Error: message})
}
