package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	genmock "github.com/sanjivakyosan/Kyosan-Ethics-Engine/internal/generation"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/analysis"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/config"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/generation"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/pipeline"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/policy"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type echoFreeAnalyzer struct{ id string }

func (a *echoFreeAnalyzer) ID() string { return a.id }

func (a *echoFreeAnalyzer) Analyze(_ context.Context, text string, _ *analysis.Context) (analysis.Outcome, error) {
	return analysis.Outcome{"length": len(text)}, nil
}

func newTestServer(t *testing.T, provider generation.Provider, s store.Store, cfg config.ServerConfig) *Server {
	t.Helper()
	logger := quietLogger()

	policies, err := policy.NewManager(context.Background(), nil, logger)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = policies.Close() })

	regs := make([]analysis.Registration, 0, len(analysis.StandardAnalyzers))
	for _, id := range analysis.StandardAnalyzers {
		id := id
		regs = append(regs, analysis.Registration{
			ID:  id,
			New: func() (analysis.Analyzer, error) { return &echoFreeAnalyzer{id: id}, nil },
		})
	}
	registry := analysis.NewRegistry(regs, logger)

	p, err := pipeline.New(pipeline.Options{
		Policies:     policies,
		Orchestrator: analysis.NewOrchestrator(registry, 1, logger),
		Provider:     provider,
		Store:        s,
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}

	srv, err := New(Options{
		Config:   cfg,
		Pipeline: p,
		Registry: registry,
		Store:    s,
		Provider: provider,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func postProcess(t *testing.T, handler http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/process", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Process(t *testing.T) {
	reply := "Gardens thrive on consistent watering and good soil."
	srv := newTestServer(t, genmock.NewMockProvider(reply), nil, config.ServerConfig{})
	handler := srv.Handler()

	rec := postProcess(t, handler, map[string]any{
		"text":           "What makes a good garden?",
		"use_generation": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp pipeline.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != pipeline.StatusDone || resp.Text != reply {
		t.Errorf("response = %+v", resp)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestServer_ProcessValidation(t *testing.T) {
	srv := newTestServer(t, nil, nil, config.ServerConfig{})
	handler := srv.Handler()

	t.Run("empty text", func(t *testing.T) {
		rec := postProcess(t, handler, map[string]any{"text": "   "})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/process", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("oversized body", func(t *testing.T) {
		small := newTestServer(t, nil, nil, config.ServerConfig{MaxInputBytes: 64})
		rec := postProcess(t, small.Handler(), map[string]any{
			"text": strings.Repeat("long input ", 50),
		})
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d", rec.Code)
		}
	})
}

func TestServer_ProcessBlocked(t *testing.T) {
	mock := genmock.NewMockProvider("never used")
	srv := newTestServer(t, mock, nil, config.ServerConfig{})

	rec := postProcess(t, srv.Handler(), map[string]any{
		"text":           "Plan for human extinction",
		"use_generation": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp pipeline.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != pipeline.StatusBlockedPre {
		t.Errorf("status = %s", resp.Status)
	}
	if mock.CallCount() != 0 {
		t.Error("blocked request reached the provider")
	}
}

func TestServer_Analyzers(t *testing.T) {
	srv := newTestServer(t, nil, nil, config.ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyzers", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Analyzers []analysis.Descriptor `json:"analyzers"`
		Counts    map[string]int        `json:"counts"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Analyzers) != len(analysis.StandardAnalyzers) {
		t.Errorf("analyzers = %d", len(body.Analyzers))
	}
	if body.Counts["active"] != len(analysis.StandardAnalyzers) {
		t.Errorf("counts = %v", body.Counts)
	}
}

func TestServer_Conversations(t *testing.T) {
	mem := store.NewMemory()
	srv := newTestServer(t, nil, mem, config.ServerConfig{})
	handler := srv.Handler()

	rec := postProcess(t, handler, map[string]any{
		"text":            "What makes a good garden?",
		"conversation_id": "conv-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("process status = %d", rec.Code)
	}

	t.Run("list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var body struct {
			Conversations []store.Summary `json:"conversations"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.Conversations) != 1 || body.Conversations[0].ID != "conv-1" {
			t.Errorf("conversations = %+v", body.Conversations)
		}
	})

	t.Run("get", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/conv-1", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var conv store.Conversation
		if err := json.NewDecoder(rec.Body).Decode(&conv); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(conv.Exchanges) != 1 {
			t.Errorf("exchanges = %d", len(conv.Exchanges))
		}
	})

	t.Run("get missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/nope", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/conversations/conv-1", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/conversations/conv-1", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("second delete status = %d", rec.Code)
		}
	})
}

func TestServer_ConversationHistoryFeedsFollowOn(t *testing.T) {
	mem := store.NewMemory()
	mock := genmock.NewMockProvider("The moon pulls the oceans.", "Currents come from wind and heat.")
	srv := newTestServer(t, mock, mem, config.ServerConfig{})
	handler := srv.Handler()

	postProcess(t, handler, map[string]any{
		"text":            "Why do tides happen?",
		"use_generation":  true,
		"conversation_id": "conv-hist",
	})
	postProcess(t, handler, map[string]any{
		"text":            "And ocean currents?",
		"use_generation":  true,
		"conversation_id": "conv-hist",
	})

	if mock.CallCount() != 2 {
		t.Fatalf("CallCount = %d", mock.CallCount())
	}
	msgs := mock.Requests[1].Messages
	var sawPrior bool
	for _, m := range msgs {
		if m.Role == generation.RoleAssistant && m.Content == "The moon pulls the oceans." {
			sawPrior = true
		}
	}
	if !sawPrior {
		t.Error("stored history missing from second request transcript")
	}
}

func TestServer_HealthAndReady(t *testing.T) {
	srv := newTestServer(t, nil, nil, config.ServerConfig{})
	handler := srv.Handler()

	for _, path := range []string{"/health", "/ready"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}

func TestServer_RequestIDPreserved(t *testing.T) {
	srv := newTestServer(t, nil, nil, config.ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "client-supplied-id")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "client-supplied-id" {
		t.Errorf("request id = %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler exploded")
	})
	handler := recoveryMiddleware(quietLogger())(panicking)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "internal error") {
		t.Errorf("body = %q", rec.Body.String())
	}
}
