// Package daemonrun assembles and runs the signflow daemon process.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"signflow/internal/config"
	"signflow/internal/connectivity"
	"signflow/internal/daemon"
	"signflow/internal/history"
	"signflow/internal/logging"
	"signflow/internal/logs"
	"signflow/internal/translate"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// InitURL applies the one-time sil/spl/text overrides at startup.
	InitURL string
}

// Run starts the signflow daemon and blocks until ctx ends or a signal
// arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("signflow-%s.log", runID))
	logHub := logging.NewStreamHub(4096)
	sessionID := uuid.NewString()

	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
		Stream:           logHub,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String(logging.FieldSessionID, sessionID))

	logEndpointSnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update signflow.log link: %v\n", err)
	}
	if pruned := logs.PruneRunLogs(signalCtx, cfg.Paths.LogDir, cfg.LogRetention(), logger, logPath); len(pruned.Removed) > 0 {
		logger.Info("pruned old run logs",
			logging.Int("removed", len(pruned.Removed)),
			logging.Int("retention_days", cfg.Logging.RetentionDays),
			logging.String(logging.FieldEventType, "log_retention"),
		)
	}
	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	var (
		store    *history.Store
		recorder translate.Recorder
	)
	if cfg.History.Enabled {
		store, err = history.Open(cfg)
		if err != nil {
			logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run signflow history clear to reset the database"),
				logging.String(logging.FieldImpact, "translations are not recorded"),
			)
			store = nil
		} else {
			recorder = store
		}
	}

	monitor := connectivity.New(connectivity.Options{
		Offline:       cfg.Network.Offline,
		ProbeURL:      cfg.Network.ProbeURL,
		ProbeInterval: cfg.ProbeInterval(),
		Timeout:       cfg.HTTPTimeout(),
	}, logger)
	orch := translate.Build(cfg, logger, monitor, recorder, sessionID)

	d, err := daemon.New(cfg, logger, daemon.Options{
		Orchestrator: orch,
		History:      store,
		Monitor:      monitor,
		LogStream:    logHub,
	})
	if err != nil {
		orch.Close()
		if store != nil {
			_ = store.Close()
		}
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check api_bind and that no other signflowd is running"),
		)
		return err
	}

	if strings.TrimSpace(opts.InitURL) != "" {
		applyInitURL(logger, orch, opts.InitURL)
	}

	<-signalCtx.Done()
	logger.Info("signflow daemon shutting down")
	return nil
}

func applyInitURL(logger *slog.Logger, orch *translate.Orchestrator, raw string) {
	values, err := translate.ParseInitURL(raw)
	if err == nil {
		err = orch.Initialize(values)
	}
	if err != nil {
		logging.WarnWithContext(logger, "initial values ignored", "init_url_failed",
			logging.Error(err),
			logging.String("init_url", raw),
		)
		return
	}
	logger.Info("initial values applied",
		logging.String(logging.FieldEventType, "session_initialized"),
		logging.String("signed", values.SignedLanguage),
		logging.String("spoken", values.SpokenLanguage),
	)
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "signflow.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logEndpointSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("endpoint snapshot",
		logging.String(logging.FieldEventType, "endpoint_snapshot"),
		logging.String("signwriting_url", cfg.Endpoints.SignWritingURL),
		logging.String("pose_url", cfg.Endpoints.PoseURL),
		logging.String("pivot_url", cfg.Endpoints.PivotURL),
		logging.Bool("offline", cfg.Network.Offline),
		logging.Bool("probe_enabled", strings.TrimSpace(cfg.Network.ProbeURL) != ""),
		logging.Bool("history_enabled", cfg.History.Enabled),
		logging.String("detector_engine", cfg.Detector.Engine),
	)
}
