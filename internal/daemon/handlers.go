package daemon

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"signflow/internal/api"
	"signflow/internal/history"
	"signflow/internal/logging"
	"signflow/internal/services"
	"signflow/internal/translate"
)

const (
	settleTimeout = 30 * time.Second
	// followTimeout stays below the server write timeout.
	followTimeout = 55 * time.Second
)

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:       status.Running,
		PID:           status.PID,
		SessionID:     status.SessionID,
		LockFilePath:  status.LockFilePath,
		HistoryDBPath: status.HistoryDBPath,
		Initialized:   status.Initialized,
		Connectivity:  status.Connectivity,
	})
}

// handleState returns the snapshot. With settle=1 it first waits for
// in-flight remote work to finish.
func (s *apiServer) handleState(w http.ResponseWriter, r *http.Request) {
	if truthy(r.URL.Query().Get("settle")) {
		ctx, cancel := context.WithTimeout(r.Context(), settleTimeout)
		defer cancel()
		if err := s.daemon.orch.Wait(ctx); err != nil {
			s.writeError(w, http.StatusGatewayTimeout, "translation still in progress")
			return
		}
	}
	s.writeState(w)
}

func (s *apiServer) writeState(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusOK, api.StateResponse{State: s.daemon.orch.Snapshot()})
}

// intent runs a state transition and responds with the resulting snapshot.
func (s *apiServer) intent(w http.ResponseWriter, apply func()) {
	apply()
	s.writeState(w)
}

func (s *apiServer) handleText(w http.ResponseWriter, r *http.Request) {
	var req api.TextRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.intent(w, func() { s.daemon.orch.SetSourceText(req.Text) })
}

func (s *apiServer) handleSpokenLanguage(w http.ResponseWriter, r *http.Request) {
	var req api.LanguageRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.intent(w, func() { s.daemon.orch.SetSpokenLanguage(req.Language) })
}

func (s *apiServer) handleSignedLanguage(w http.ResponseWriter, r *http.Request) {
	var req api.LanguageRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Language == nil || strings.TrimSpace(*req.Language) == "" {
		s.writeError(w, http.StatusBadRequest, "signed language is required")
		return
	}
	s.intent(w, func() { s.daemon.orch.SetSignedLanguage(*req.Language) })
}

func (s *apiServer) handleFlip(w http.ResponseWriter, _ *http.Request) {
	s.intent(w, s.daemon.orch.FlipDirection)
}

func (s *apiServer) handleInputMode(w http.ResponseWriter, r *http.Request) {
	var req api.InputModeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.daemon.orch.SetInputMode(translate.InputMode(req.Mode)); err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}
	s.writeState(w)
}

func (s *apiServer) handleSuggest(w http.ResponseWriter, _ *http.Request) {
	s.intent(w, s.daemon.orch.SuggestAlternativeText)
}

func (s *apiServer) handlePivot(w http.ResponseWriter, _ *http.Request) {
	s.intent(w, s.daemon.orch.TranslateToPivot)
}

func (s *apiServer) handleRecompute(w http.ResponseWriter, _ *http.Request) {
	s.intent(w, s.daemon.orch.RecomputeTranslation)
}

func (s *apiServer) handleDescribe(w http.ResponseWriter, r *http.Request) {
	var req api.DescribeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.FSW) == "" {
		s.writeError(w, http.StatusBadRequest, "fsw is required")
		return
	}
	s.intent(w, func() { s.daemon.orch.RequestSignNotationDescription(req.FSW) })
}

func (s *apiServer) handlePose(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.reference(w, r)
	if !ok {
		return
	}
	s.intent(w, func() { s.daemon.orch.ImportPoseArtifact(ref) })
}

func (s *apiServer) handleVideo(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.reference(w, r)
	if !ok {
		return
	}
	s.intent(w, func() { s.daemon.orch.SetVideoReference(ref) })
}

func (s *apiServer) handleResetVideo(w http.ResponseWriter, _ *http.Request) {
	s.intent(w, s.daemon.orch.ResetVideoReference)
}

func (s *apiServer) reference(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req api.ReferenceRequest
	if !s.decode(w, r, &req) {
		return "", false
	}
	ref := strings.TrimSpace(req.Reference)
	if ref == "" {
		s.writeError(w, http.StatusBadRequest, "reference is required")
		return "", false
	}
	return ref, true
}

func (s *apiServer) handleFrame(w http.ResponseWriter, r *http.Request) {
	var req api.FrameRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.daemon.orch.RecordCapturedFrame(req.ToFrame())
	s.writeJSON(w, http.StatusAccepted, nil)
}

func (s *apiServer) handleInit(w http.ResponseWriter, r *http.Request) {
	var req api.InitRequest
	if !s.decode(w, r, &req) {
		return
	}
	var values translate.InitValues
	if strings.TrimSpace(req.URL) != "" {
		parsed, err := translate.ParseInitURL(req.URL)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		values = parsed
	}
	if req.SignedLanguage != "" {
		values.SignedLanguage = req.SignedLanguage
	}
	if req.SpokenLanguage != "" {
		values.SpokenLanguage = req.SpokenLanguage
	}
	if req.Text != "" {
		values.Text = req.Text
	}
	if err := s.daemon.orch.Initialize(values); err != nil {
		if errors.Is(err, translate.ErrAlreadyInitialized) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeState(w)
}

func (s *apiServer) handleExport(w http.ResponseWriter, r *http.Request) {
	var req api.ExportRequest
	if !s.decode(w, r, &req) {
		return
	}
	dir := strings.TrimSpace(req.Dir)
	if dir == "" || !filepath.IsAbs(dir) {
		s.writeError(w, http.StatusBadRequest, "an absolute export directory is required")
		return
	}
	path, err := s.daemon.orch.Export(r.Context(), s.daemon.client, dir)
	if err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}
	s.daemon.push("export_saved", func(ctx context.Context) error {
		return s.daemon.notify.NotifyExportSaved(ctx, path)
	})
	s.writeJSON(w, http.StatusOK, api.ExportResponse{Path: path})
}

func (s *apiServer) handleConnectivity(w http.ResponseWriter, r *http.Request) {
	var req api.ConnectivityRequest
	if !s.decode(w, r, &req) {
		return
	}
	status, err := s.daemon.SetConnectivity(req.Online)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	entries, err := s.daemon.History(r.Context(), history.ListOptions{
		Limit:     limit,
		SessionID: strings.TrimSpace(query.Get("session")),
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.HistoryResponse{Entries: api.FromHistoryEntries(entries)})
}

func (s *apiServer) handleNotices(w http.ResponseWriter, r *http.Request) {
	since, _ := strconv.ParseUint(r.URL.Query().Get("since"), 10, 64)
	notices, next := s.daemon.notices.since(since)
	s.writeJSON(w, http.StatusOK, api.NoticesResponse{Notices: notices, Next: next})
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	hub := s.daemon.LogStream()
	if hub == nil {
		s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: nil, Next: 0})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := truthy(query.Get("follow"))
	tail := truthy(query.Get("tail"))
	component := strings.TrimSpace(query.Get("component"))

	var (
		events []logging.LogEvent
		next   uint64
	)
	if tail && since == 0 && !follow {
		events, next = hub.Tail(limit)
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), followTimeout)
		defer cancel()
		var err error
		events, next, err = hub.Fetch(ctx, since, limit, follow)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	converted := api.FromLogEvents(events)
	filtered := make([]api.LogEvent, 0, len(converted))
	for _, evt := range converted {
		if component != "" && !strings.EqualFold(component, evt.Component) {
			continue
		}
		filtered = append(filtered, evt)
	}
	s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: filtered, Next: next})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrOffline):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrTransient):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func truthy(value string) bool {
	return value == "1" || strings.EqualFold(value, "true")
}
