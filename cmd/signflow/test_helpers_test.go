package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"signflow/internal/config"
	"signflow/internal/connectivity"
	"signflow/internal/daemon"
	"signflow/internal/history"
	"signflow/internal/logging"
	"signflow/internal/testsupport"
	"signflow/internal/translate"
)

const testTranscript = "M518x529S14c20481x471S27106503x489 M518x533S1870a489x515S18701482x490"

// newUpstream fakes the remote enhancement services.
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
	mux.HandleFunc("/pose", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("POSE"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	daemon     *daemon.Daemon
	logs       *logging.StreamHub
}

// newTestConfig returns a config against a fake upstream, written to disk
// so the CLI can load it.
func newTestConfig(t *testing.T, opts ...testsupport.ConfigOption) (*config.Config, string) {
	t.Helper()
	upstream := newUpstream(t)
	opts = append([]testsupport.ConfigOption{testsupport.WithEndpoints(upstream.URL)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Translation.DefaultSpokenLanguage = "en"
	cfg.Translation.DefaultSignedLanguage = "ase"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return cfg, configPath
}

// setupCLITestEnv runs a daemon in-process and points the CLI config at its
// API address.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	cfg, configPath := newTestConfig(t, opts...)

	hub := logging.NewStreamHub(256)
	logger, err := logging.New(logging.Options{Level: "debug", OutputPaths: []string{"discard"}, Stream: hub})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}

	var store *history.Store
	var recorder translate.Recorder
	if cfg.History.Enabled {
		store = testsupport.MustOpenHistory(t, cfg)
		recorder = store
	}
	monitor := connectivity.New(connectivity.Options{Offline: cfg.Network.Offline}, logger)
	orch := translate.Build(cfg, logger, monitor, recorder, "cli-test")

	d, err := daemon.New(cfg, logger, daemon.Options{
		Orchestrator: orch,
		History:      store,
		Monitor:      monitor,
		LogStream:    hub,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		_ = d.Close()
	})

	cfg.Paths.APIBind = d.APIAddress()
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, daemon: d, logs: hub}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func decodeJSON[T any](t *testing.T, data string) T {
	t.Helper()
	var out T
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return out
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
