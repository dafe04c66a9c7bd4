package daemon

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"sceneforge/internal/api"
	"sceneforge/internal/config"
	"sceneforge/internal/logging"
	"sceneforge/internal/queue"
	"sceneforge/internal/render"
	"sceneforge/internal/sceneinspect"
)

//go:embed index.html
var indexHTML []byte

type apiServer struct {
	bind       string
	logger     *slog.Logger
	daemon     *Daemon
	historySvc *api.HistoryService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:       bind,
		logger:     logging.NewComponentLogger(logger, "api"),
		daemon:     d,
		historySvc: api.NewHistoryService(d.store),
	}

	token := cfg.Paths.APIToken
	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.handleIndex)
	mux.HandleFunc("/api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("/api/inspect", authMiddleware(token, srv.handleInspect))
	mux.HandleFunc("/api/render", authMiddleware(token, srv.handleRender))
	mux.HandleFunc("/api/render/", authMiddleware(token, srv.handleRenderItem))
	mux.HandleFunc("/api/history", authMiddleware(token, srv.handleHistory))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound address once the server started.
func (s *apiServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:       status.Running,
		PID:           status.PID,
		HistoryDBPath: status.HistoryDBPath,
		LockFilePath:  status.LockFilePath,
		Dependencies:  make([]api.DependencyStatus, len(status.Dependencies)),
	}
	for i, dep := range status.Dependencies {
		payload.Dependencies[i] = api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	if status.Active != nil {
		payload.ActiveRender = sessionStatus(status.Active)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleInspect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.InspectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Syntax errors are reported against the submitted source, before the
	// manim import is patched in, so line numbers match what the user sees.
	raw := []byte(req.Source)
	resp := api.InspectResponse{SyntaxValid: true}
	if err := sceneinspect.CheckSyntax(raw); err != nil {
		resp.SyntaxValid = false
		var synErr *sceneinspect.SyntaxError
		if errors.As(err, &synErr) {
			resp.SyntaxError = synErr.Message
			resp.SyntaxLine = synErr.Line
		} else {
			resp.SyntaxError = err.Error()
		}
		resp.SceneClasses = sceneinspect.SceneClasses(raw)
		resp.TotalAnimations = sceneinspect.CountAnimations(raw)
	} else {
		source := sceneinspect.EnsureImport(raw)
		resp.SceneClasses = sceneinspect.SceneClasses(source)
		resp.TotalAnimations = sceneinspect.CountAnimations(source)
		resp.FormattedSource = string(sceneinspect.FormatSource(source))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session, err := s.daemon.StartRender(r.Context(), render.Request{
		Source:  req.Source,
		Scene:   req.Scene,
		Quality: req.Quality,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrRenderBusy):
			s.writeError(w, http.StatusConflict, err.Error())
		default:
			var synErr *sceneinspect.SyntaxError
			if errors.As(err, &synErr) {
				s.writeError(w, http.StatusUnprocessableEntity, synErr.Error())
				return
			}
			s.writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	s.writeJSON(w, http.StatusAccepted, api.RenderAccepted{ID: session.ID(), Scene: session.Scene()})
}

// handleRenderItem routes /api/render/{id}[/stop|/artifact|/events].
func (s *apiServer) handleRenderItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/render/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		s.writeError(w, http.StatusNotFound, "render not found")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch action {
	case "":
		s.handleRenderStatus(w, r, id)
	case "stop":
		s.handleRenderStop(w, r, id)
	case "artifact":
		s.handleRenderArtifact(w, r, id)
	case "events":
		s.handleRenderEvents(w, r, id)
	default:
		s.writeError(w, http.StatusNotFound, "unknown render action")
	}
}

func (s *apiServer) handleRenderStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if session, ok := s.daemon.Session(id); ok {
		if _, done := session.Result(); !done {
			s.writeJSON(w, http.StatusOK, sessionStatus(session))
			return
		}
	}

	record, err := s.historySvc.Get(r.Context(), id)
	if errors.Is(err, queue.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "render not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *apiServer) handleRenderStop(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.daemon.StopRender(id); err != nil {
		s.writeError(w, http.StatusNotFound, "render not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleRenderArtifact(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	record, err := s.historySvc.Get(r.Context(), id)
	if errors.Is(err, queue.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "render not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if record.ArtifactPath == "" {
		s.writeError(w, http.StatusNotFound, "render produced no artifact")
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.Scene+".mp4"))
	http.ServeFile(w, r, record.ArtifactPath)
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}
	records, err := s.historySvc.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.HistoryListResponse{Records: records})
}

func sessionStatus(session *render.Session) *api.RenderStatus {
	snap := session.Snapshot()
	return &api.RenderStatus{
		ID:        session.ID(),
		Scene:     session.Scene(),
		Quality:   session.Quality(),
		Status:    string(queue.StatusRendering),
		Percent:   snap.Percent,
		Message:   snap.Status,
		Stage:     string(snap.Stage),
		StartedAt: session.StartedAt(),
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
