// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	stderrors "portlink-orchestrator/internal/common/errors"
	"portlink-orchestrator/internal/common/logger"
	"portlink-orchestrator/internal/models"
	"portlink-orchestrator/internal/session"
)

// Orchestrator is the request pipeline as seen by the HTTP layer.
type Orchestrator interface {
	Process(ctx context.Context, req *models.OrchestrationRequest) *models.OrchestrationResponse
	Chat(ctx context.Context, message, userID, userRole string) (string, error)
}

// Server exposes the pipeline over HTTP. Sessions are optional; without a
// store every request runs unauthenticated.
type Server struct {
	orchestrator Orchestrator
	sessions     *session.Store
	logger       logger.Logger
}

func New(orchestrator Orchestrator, sessions *session.Store, log logger.Logger) *Server {
	return &Server{
		orchestrator: orchestrator,
		sessions:     sessions,
		logger:       log,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/requests", s.handleRequests)
	mux.HandleFunc("/api/v1/chat", s.handleChat)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.OrchestrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, stderrors.NewInvalidInputError("request body is not valid JSON"))
		return
	}

	ctx, ok := s.resolveSession(r.Context(), w, req.SessionID)
	if !ok {
		return
	}

	resp := s.orchestrator.Process(ctx, &req)
	status := http.StatusOK
	if !resp.Success {
		status = statusForCode(resp.Code)
	}
	s.writeJSON(w, status, resp)
}

type chatRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"userId"`
	UserRole  string `json:"userRole,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, stderrors.NewInvalidInputError("request body is not valid JSON"))
		return
	}

	ctx, ok := s.resolveSession(r.Context(), w, req.SessionID)
	if !ok {
		return
	}

	reply, err := s.orchestrator.Chat(ctx, req.Message, req.UserID, req.UserRole)
	if err != nil {
		stdErr := stderrors.Normalize(err)
		s.writeError(w, statusForCode(string(stdErr.Code)), stdErr)
		return
	}
	s.writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// resolveSession validates the session id when one is supplied and attaches
// it to the context for provider token lookups. A false return means the
// error response was already written.
func (s *Server) resolveSession(ctx context.Context, w http.ResponseWriter, sessionID string) (context.Context, bool) {
	if sessionID == "" || s.sessions == nil {
		return ctx, true
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		stdErr := stderrors.Normalize(err)
		s.writeError(w, statusForCode(string(stdErr.Code)), stdErr)
		return ctx, false
	}
	if err := s.sessions.Touch(ctx, sess); err != nil {
		s.logger.WithError(err).Warn("session touch failed", map[string]interface{}{
			"sessionId": sessionID,
		})
	}
	return session.WithID(ctx, sessionID), true
}

func statusForCode(code string) int {
	switch stderrors.ErrorCode(code) {
	case stderrors.ErrCodeInvalidInput, stderrors.ErrCodeInjectionRejected:
		return http.StatusBadRequest
	case stderrors.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case stderrors.ErrCodeExecutionTimeout, stderrors.ErrCodeClassificationTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, stdErr *stderrors.StandardError) {
	s.writeJSON(w, status, &models.OrchestrationResponse{
		Success: false,
		Error:   stdErr.Message,
		Code:    string(stdErr.Code),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("response encode failed", nil)
	}
}
