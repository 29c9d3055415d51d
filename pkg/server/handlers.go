package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/analysis"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/generation"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/pipeline"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/store"
)

// errorResponse is the JSON body for every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// handleProcess runs one turn through the pipeline.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	// History is assembled here, explicitly: the pipeline itself never
	// reads the store.
	if req.ConversationID != "" && s.store != nil {
		req.History = s.loadHistory(r, req.ConversationID)
	}

	resp := s.pipeline.Process(r.Context(), &req)
	writeJSON(w, http.StatusOK, resp)
}

// loadHistory turns a conversation's prior exchanges into transcript
// messages. Blocked turns are excluded; their inputs were never answered.
func (s *Server) loadHistory(r *http.Request, conversationID string) []generation.Message {
	conv, err := s.store.Get(r.Context(), conversationID)
	if err != nil {
		var notFound *store.NotFoundError
		if !errors.As(err, &notFound) {
			s.logger.WarnContext(r.Context(), "failed to load conversation history",
				"conversation_id", conversationID,
				"error", err,
			)
		}
		return nil
	}

	var history []generation.Message
	for _, ex := range conv.Exchanges {
		if pipeline.Status(ex.Status).Blocked() || ex.Response == "" {
			continue
		}
		history = append(history,
			generation.Message{Role: generation.RoleUser, Content: ex.Input},
			generation.Message{Role: generation.RoleAssistant, Content: ex.Response},
		)
	}
	return history
}

// handleAnalyzers reports the registry's descriptors and status counts.
func (s *Server) handleAnalyzers(w http.ResponseWriter, _ *http.Request) {
	descriptors := s.registry.Descriptors()

	counts := map[string]int{}
	for _, d := range descriptors {
		counts[string(d.Status)]++
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"analyzers": descriptors,
		"counts":    counts,
		"standard":  analysis.StandardAnalyzers,
	})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "conversation storage is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	summaries, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to list conversations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": summaries})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "conversation storage is disabled")
		return
	}

	conv, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		var notFound *store.NotFoundError
		if errors.As(err, &notFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "failed to load conversation", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "conversation storage is disabled")
		return
	}

	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		var notFound *store.NotFoundError
		if errors.As(err, &notFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "failed to delete conversation", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

// handleReady reports readiness. With a provider configured, readiness
// includes upstream reachability; without one the pipeline is always
// ready (synthesizer path).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.provider != nil {
		if err := s.provider.HealthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not ready",
				"reason": "generation provider unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
