package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"signflow/internal/config"
	"signflow/internal/logging"
)

const maxRequestBody = 1 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

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
		bind:   bind,
		logger: logger,
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(cfg.Paths.APIToken),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// log follow requests hold the connection open
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes(token string) *http.ServeMux {
	mux := http.NewServeMux()
	sessionID := s.daemon.orch.SessionID()
	handle := func(pattern string, h http.HandlerFunc) {
		if strings.HasPrefix(pattern, http.MethodPost+" ") {
			h = requireJSON(h)
		}
		mux.HandleFunc(pattern, withRequestContext(sessionID, requireToken(token, s.log(), h)))
	}

	handle("GET /api/status", s.handleStatus)
	handle("GET /api/state", s.handleState)
	handle("GET /api/history", s.handleHistory)
	handle("GET /api/notices", s.handleNotices)
	handle("GET /api/logs", s.handleLogs)

	handle("POST /api/text", s.handleText)
	handle("POST /api/spoken-language", s.handleSpokenLanguage)
	handle("POST /api/signed-language", s.handleSignedLanguage)
	handle("POST /api/flip", s.handleFlip)
	handle("POST /api/input-mode", s.handleInputMode)
	handle("POST /api/suggest", s.handleSuggest)
	handle("POST /api/pivot", s.handlePivot)
	handle("POST /api/recompute", s.handleRecompute)
	handle("POST /api/describe", s.handleDescribe)
	handle("POST /api/pose", s.handlePose)
	handle("POST /api/video", s.handleVideo)
	handle("DELETE /api/video", s.handleResetVideo)
	handle("POST /api/frame", s.handleFrame)
	handle("POST /api/init", s.handleInit)
	handle("POST /api/export", s.handleExport)
	handle("POST /api/connectivity", s.handleConnectivity)
	return mux
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
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
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
	}
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
