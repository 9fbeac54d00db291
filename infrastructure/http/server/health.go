package server

import (
	"chat-presence/observability"
	"net/http"
)

type HealthResponse struct {
	Status       string                      `json:"status"`
	Participants int                         `json:"participants"`
	Process      *observability.ProcessStats `json:"process,omitempty"`
}

// healthz reports liveness with the participant count and the process self stats.
// Missing process stats do not make the service unhealthy.
func (s *ChatServer) healthz(w http.ResponseWriter, r *http.Request) {
	participants, err := s.chatService.ListParticipants(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	response := HealthResponse{Status: "ok", Participants: len(participants)}
	stats, err := observability.SelfStats()
	if err != nil {
		s.log.Warn("Unable to read process stats", "error", err)
	} else {
		response.Process = &stats
	}
	s.writeJSON(w, http.StatusOK, response)
}
