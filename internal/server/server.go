package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"atelier/internal/agent"
	"atelier/internal/capability"
	"atelier/internal/config"
	"atelier/internal/db"
	"atelier/internal/executor"
	"atelier/internal/models"
	"atelier/internal/transcript"
	"atelier/internal/wire"

	"github.com/google/uuid"
)

// Server exposes the agent run endpoint and the narrow collaborator
// surfaces (conversation ingest/list, component publish/fetch).
type Server struct {
	cfg         config.Config
	logger      *slog.Logger
	conn        *sql.DB
	model       agent.ModelClient
	transcripts transcript.Store
	tester      executor.Tester
}

func New(cfg config.Config, logger *slog.Logger, conn *sql.DB, model agent.ModelClient, transcripts transcript.Store, tester executor.Tester) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		cfg:         cfg,
		logger:      logger,
		conn:        conn,
		model:       model,
		transcripts: transcripts,
		tester:      tester,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /api/agent/run", s.handleRun)
	mux.HandleFunc("POST /api/conversations", s.handleCreateConversation)
	mux.HandleFunc("GET /api/conversations", s.handleListConversations)
	mux.HandleFunc("POST /api/components/{id}/publish", s.handlePublishComponent)
	mux.HandleFunc("GET /api/components/{id}", s.handleGetComponent)
	return requestLogging(s.logger)(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleRun streams one agent run as text/event-stream. The stream ends
// after exactly one agent_complete or error event.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req models.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.UserPrompt) == "" {
		writeError(w, http.StatusBadRequest, "userPrompt is required")
		return
	}
	if strings.TrimSpace(req.ConversationID) == "" {
		writeError(w, http.StatusBadRequest, "conversationId is required")
		return
	}

	_, meta, err := s.transcripts.Transcript(r.Context(), req.ConversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.logger.Error("transcript lookup failed", "conversation_id", req.ConversationID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	sse, err := wire.NewSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// One run per request: the draft lives on this stack and is owned by
	// the driver until the terminal event.
	draft := req.CurrentState
	exec := executor.New(&draft, req.ConversationID, s.transcripts, s.tester, s.logger)
	driver := agent.NewDriver(
		s.model,
		exec,
		capability.Tools(req.EditModes),
		s.cfg.MaxIterations,
		s.cfg.StreamTimeout,
		s.logger,
	)

	emit := func(evt wire.Event) {
		if err := sse.Write(evt); err != nil {
			s.logger.Warn("event write failed", "event", evt.Type, "error", err)
		}
	}

	s.logger.Info("agent run starting",
		"component_id", req.ComponentID,
		"conversation_id", req.ConversationID,
		"tools", capability.Names(req.EditModes),
	)
	if _, err := driver.Run(r.Context(), agent.RunInput{
		UserPrompt:        req.UserPrompt,
		ComponentTitle:    req.ComponentTitle,
		ConversationTitle: req.ConversationTitle,
		Meta:              meta,
	}, emit); err != nil {
		if errors.Is(err, agent.ErrMaxIterations) {
			s.logger.Warn("agent run hit iteration cap", "component_id", req.ComponentID)
		} else {
			s.logger.Error("agent run failed", "component_id", req.ComponentID, "error", err)
		}
		return
	}
	s.logger.Info("agent run completed", "component_id", req.ComponentID)
}

type createConversationRequest struct {
	Title           string `json:"title"`
	Transcript      string `json:"transcript"`
	DurationSeconds int    `json:"durationSeconds"`
	SpeakerCount    int    `json:"speakerCount"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		writeError(w, http.StatusBadRequest, "transcript is required")
		return
	}

	meta := models.ConversationMeta{
		DurationSeconds: req.DurationSeconds,
		SpeakerCount:    req.SpeakerCount,
		WordCount:       len(strings.Fields(req.Transcript)),
		CharCount:       utf8.RuneCountInString(req.Transcript),
	}
	id := uuid.NewString()
	now := time.Now()
	if err := db.InsertConversation(s.conn, id, req.Title, req.Transcript, meta, now.Unix()); err != nil {
		s.logger.Error("conversation insert failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store conversation")
		return
	}
	writeJSON(w, http.StatusCreated, models.ConversationListItem{ID: id, Title: req.Title, Meta: meta, CreatedAt: now})
}

func (s *Server) handleListConversations(w http.ResponseWriter, _ *http.Request) {
	items, err := db.ListConversations(s.conn, 100)
	if err != nil {
		s.logger.Error("conversation list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type publishComponentRequest struct {
	Title string                `json:"title"`
	State models.ComponentDraft `json:"state"`
}

func (s *Server) handlePublishComponent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req publishComponentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := db.PublishComponent(s.conn, id, req.Title, req.State, time.Now().Unix()); err != nil {
		s.logger.Error("component publish failed", "component_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to publish component")
		return
	}
	s.logger.Info("component published", "component_id", id)
	writeJSON(w, http.StatusOK, map[string]bool{"published": true})
}

func (s *Server) handleGetComponent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	title, draft, err := db.GetComponent(s.conn, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "component not found")
			return
		}
		s.logger.Error("component fetch failed", "component_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load component")
		return
	}
	writeJSON(w, http.StatusOK, publishComponentRequest{Title: title, State: draft})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"duration", time.Since(start),
			)
		})
	}
}
