package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"signflow/internal/api"
	"signflow/internal/config"
	"signflow/internal/connectivity"
	"signflow/internal/history"
	"signflow/internal/logging"
	"signflow/internal/testsupport"
	"signflow/internal/translate"
)

const testTranscript = "M518x529S14c20481x471S27106503x489 M518x533S1870a489x515S18701482x490"

// newUpstream fakes every remote enhancement service.
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/signwriting", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"text": testTranscript})
	})
	mux.HandleFunc("/normalize", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"text": r.URL.Query().Get("text")})
	})
	mux.HandleFunc("/describe", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"description":"flat hand"}}`))
	})
	mux.HandleFunc("/pivot", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[["` + r.URL.Query().Get("q") + `","x"]]]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testDaemon struct {
	d   *Daemon
	cfg *config.Config
	api *httptest.Server
}

func newTestDaemon(t *testing.T, opts ...testsupport.ConfigOption) *testDaemon {
	t.Helper()
	upstream := newUpstream(t)
	opts = append([]testsupport.ConfigOption{testsupport.WithEndpoints(upstream.URL)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Translation.DefaultSpokenLanguage = "en"
	cfg.Translation.DefaultSignedLanguage = "ase"

	var store *history.Store
	var recorder translate.Recorder
	if cfg.History.Enabled {
		store = testsupport.MustOpenHistory(t, cfg)
		recorder = store
	}
	monitor := connectivity.New(connectivity.Options{Offline: cfg.Network.Offline}, nil)
	hub := logging.NewStreamHub(64)
	orch := translate.Build(cfg, nil, monitor, recorder, "daemon-test")

	d, err := New(cfg, nil, Options{
		Orchestrator: orch,
		History:      store,
		Monitor:      monitor,
		LogStream:    hub,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	srv := &apiServer{daemon: d}
	ts := httptest.NewServer(srv.routes(cfg.Paths.APIToken))
	t.Cleanup(ts.Close)
	return &testDaemon{d: d, cfg: cfg, api: ts}
}

func (td *testDaemon) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, td.api.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := td.cfg.Paths.APIToken; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := td.api.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s response: %v", path, err)
		}
	}
	return resp.StatusCode
}

func (td *testDaemon) settledState(t *testing.T) translate.Snapshot {
	t.Helper()
	var resp api.StateResponse
	if code := td.do(t, http.MethodGet, "/api/state?settle=1", nil, &resp); code != http.StatusOK {
		t.Fatalf("state returned %d", code)
	}
	return resp.State
}

func TestDaemonStartStop(t *testing.T) {
	td := newTestDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := td.d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if status := td.d.Status(ctx); !status.Running || status.SessionID != "daemon-test" {
		t.Fatalf("unexpected status %+v", status)
	}
	if err := td.d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	other, err := New(td.cfg, nil, Options{Orchestrator: translate.Build(td.cfg, nil, nil, nil, "other")})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	defer other.Close()
	if err := other.Start(ctx); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock conflict, got %v", err)
	}

	td.d.Stop()
	if td.d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestAPIRequiresToken(t *testing.T) {
	td := newTestDaemon(t, testsupport.WithAPIToken("secret"))

	resp, err := td.api.Client().Get(td.api.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("WWW-Authenticate"), "Bearer") {
		t.Fatalf("missing bearer challenge: %q", resp.Header.Get("WWW-Authenticate"))
	}

	var status api.DaemonStatus
	if code := td.do(t, http.MethodGet, "/api/status", nil, &status); code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", code)
	}
	if status.SessionID != "daemon-test" || !status.Connectivity.Online {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestAPIRequestIDHeader(t *testing.T) {
	td := newTestDaemon(t)

	req, err := http.NewRequest(http.MethodGet, td.api.URL+"/api/status", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set(requestIDHeader, "req-42")
	resp, err := td.api.Client().Do(req)
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(requestIDHeader); got != "req-42" {
		t.Fatalf("expected echoed request id, got %q", got)
	}

	resp, err = td.api.Client().Get(td.api.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatal("expected a generated request id")
	}
}

func TestAPITextProducesTranslation(t *testing.T) {
	td := newTestDaemon(t, testsupport.WithHistory(true))

	if code := td.do(t, http.MethodPost, "/api/text", api.TextRequest{Text: "good morning"}, nil); code != http.StatusOK {
		t.Fatalf("text returned %d", code)
	}
	state := td.settledState(t)
	if len(state.SignNotation) != 2 {
		t.Fatalf("expected 2 sign tokens, got %+v", state.SignNotation)
	}
	if state.PoseReference == nil || !strings.Contains(*state.PoseReference, "text=good%20morning") {
		t.Fatalf("unexpected pose reference %v", state.PoseReference)
	}

	var hist api.HistoryResponse
	if code := td.do(t, http.MethodGet, "/api/history?limit=5", nil, &hist); code != http.StatusOK {
		t.Fatalf("history returned %d", code)
	}
	if len(hist.Entries) != 1 || hist.Entries[0].SourceText != "good morning" || len(hist.Entries[0].Notation) != 2 {
		t.Fatalf("unexpected history %+v", hist.Entries)
	}
}

func TestAPIDescribeFillsDescription(t *testing.T) {
	td := newTestDaemon(t)
	td.do(t, http.MethodPost, "/api/text", api.TextRequest{Text: "hello"}, nil)
	state := td.settledState(t)
	if len(state.SignNotation) == 0 {
		t.Fatal("expected sign tokens")
	}
	fsw := state.SignNotation[0].FSW

	if code := td.do(t, http.MethodPost, "/api/describe", api.DescribeRequest{FSW: fsw}, nil); code != http.StatusOK {
		t.Fatalf("describe returned %d", code)
	}
	state = td.settledState(t)
	desc := state.SignNotation[0].Description
	if desc == nil || *desc != "flat hand" {
		t.Fatalf("unexpected description %v", desc)
	}

	if code := td.do(t, http.MethodPost, "/api/describe", api.DescribeRequest{}, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty fsw, got %d", code)
	}
}

func TestAPIValidation(t *testing.T) {
	td := newTestDaemon(t)

	cases := []struct {
		name string
		path string
		body any
		want int
	}{
		{name: "signed language required", path: "/api/signed-language", body: api.LanguageRequest{}, want: http.StatusBadRequest},
		{name: "unknown input mode", path: "/api/input-mode", body: api.InputModeRequest{Mode: "hologram"}, want: http.StatusBadRequest},
		{name: "pose reference required", path: "/api/pose", body: api.ReferenceRequest{}, want: http.StatusBadRequest},
		{name: "export dir must be absolute", path: "/api/export", body: api.ExportRequest{Dir: "relative"}, want: http.StatusBadRequest},
		{name: "malformed body", path: "/api/text", body: "not an object", want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if code := td.do(t, http.MethodPost, tc.path, tc.body, nil); code != tc.want {
				t.Fatalf("POST %s = %d, want %d", tc.path, code, tc.want)
			}
		})
	}

	if code := td.do(t, http.MethodGet, "/api/text", nil, nil); code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET /api/text, got %d", code)
	}
}

func TestAPIRejectsNonJSONPosts(t *testing.T) {
	td := newTestDaemon(t)

	for _, contentType := range []string{"", "text/plain", "application/x-www-form-urlencoded"} {
		req, err := http.NewRequest(http.MethodPost, td.api.URL+"/api/text", strings.NewReader(`{"text":"hi"}`))
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := td.api.Client().Do(req)
		if err != nil {
			t.Fatalf("POST text: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnsupportedMediaType {
			t.Fatalf("content type %q: expected 415, got %d", contentType, resp.StatusCode)
		}
	}
	if state := td.settledState(t); state.SourceText != "" {
		t.Fatalf("rejected request changed state: %q", state.SourceText)
	}

	req, err := http.NewRequest(http.MethodPost, td.api.URL+"/api/text", strings.NewReader(`{"text":"hi"}`))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	resp, err := td.api.Client().Do(req)
	if err != nil {
		t.Fatalf("POST text: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with charset parameter, got %d", resp.StatusCode)
	}
}

func TestAPIExportRefusesLocalFiles(t *testing.T) {
	td := newTestDaemon(t)
	secret := testsupport.WriteArtifact(t, t.TempDir(), "secret.txt", []byte("SECRET"))

	td.do(t, http.MethodPost, "/api/text", api.TextRequest{Text: "hello"}, nil)
	td.settledState(t)
	var resp api.StateResponse
	if code := td.do(t, http.MethodPost, "/api/pose", api.ReferenceRequest{Reference: secret}, &resp); code != http.StatusOK {
		t.Fatalf("pose returned %d", code)
	}
	if resp.State.PoseReference == nil || *resp.State.PoseReference != secret {
		t.Fatalf("unexpected pose reference %v", resp.State.PoseReference)
	}

	dir := t.TempDir()
	if code := td.do(t, http.MethodPost, "/api/export", api.ExportRequest{Dir: dir}, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 exporting a local file, got %d", code)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read export dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("local file was exported: %v", entries)
	}
}

func TestAPIInitOnlyOnce(t *testing.T) {
	td := newTestDaemon(t)

	var resp api.StateResponse
	code := td.do(t, http.MethodPost, "/api/init", api.InitRequest{URL: "https://sign.mt/?sil=bfi&spl=en&text=hi"}, &resp)
	if code != http.StatusOK {
		t.Fatalf("init returned %d", code)
	}
	if resp.State.SignedLanguage == nil || *resp.State.SignedLanguage != "bfi" || resp.State.SourceText != "hi" {
		t.Fatalf("unexpected state %+v", resp.State)
	}
	if code := td.do(t, http.MethodPost, "/api/init", api.InitRequest{Text: "again"}, nil); code != http.StatusConflict {
		t.Fatalf("expected 409 on second init, got %d", code)
	}
}

func TestAPIFlipAndVideo(t *testing.T) {
	td := newTestDaemon(t)

	var resp api.StateResponse
	td.do(t, http.MethodPost, "/api/video", api.ReferenceRequest{Reference: "/tmp/render.mp4"}, &resp)
	if resp.State.VideoReference == nil {
		t.Fatal("expected video reference")
	}
	td.do(t, http.MethodDelete, "/api/video", nil, &resp)
	if resp.State.VideoReference != nil {
		t.Fatal("expected video reference cleared")
	}
	td.do(t, http.MethodPost, "/api/flip", nil, &resp)
	if resp.State.Direction != translate.SignedToSpoken {
		t.Fatalf("expected signedToSpoken, got %s", resp.State.Direction)
	}
}

func TestAPIConnectivityOverrideAndExportNotice(t *testing.T) {
	td := newTestDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := td.d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	offline := false
	var status connectivity.Status
	if code := td.do(t, http.MethodPost, "/api/connectivity", api.ConnectivityRequest{Online: &offline}, &status); code != http.StatusOK {
		t.Fatalf("connectivity returned %d", code)
	}
	if status.Online || status.Override == nil {
		t.Fatalf("expected offline override, got %+v", status)
	}

	if code := td.do(t, http.MethodPost, "/api/export", api.ExportRequest{Dir: t.TempDir()}, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 with nothing to export, got %d", code)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		var notices api.NoticesResponse
		td.do(t, http.MethodGet, "/api/notices", nil, &notices)
		if len(notices.Notices) > 0 {
			if notices.Notices[0].Level != "error" || notices.Next == 0 {
				t.Fatalf("unexpected notices %+v", notices)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("notice never reached the API")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAPILogsTailAndFilter(t *testing.T) {
	td := newTestDaemon(t)
	hub := td.d.LogStream()
	hub.Publish(logging.LogEvent{Message: "detect ready", Component: "detect"})
	hub.Publish(logging.LogEvent{Message: "pivot failed", Component: "translate"})

	var resp api.LogStreamResponse
	if code := td.do(t, http.MethodGet, "/api/logs?tail=1&limit=10", nil, &resp); code != http.StatusOK {
		t.Fatalf("logs returned %d", code)
	}
	if len(resp.Events) != 2 || resp.Next != 2 {
		t.Fatalf("unexpected tail %+v", resp)
	}

	if code := td.do(t, http.MethodGet, "/api/logs?since=0&component=translate", nil, &resp); code != http.StatusOK {
		t.Fatalf("logs returned %d", code)
	}
	if len(resp.Events) != 1 || resp.Events[0].Message != "pivot failed" {
		t.Fatalf("unexpected filtered events %+v", resp.Events)
	}
}
