package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"signflow/internal/config"
	"signflow/internal/connectivity"
	"signflow/internal/history"
	"signflow/internal/logging"
	"signflow/internal/notifications"
	"signflow/internal/translate"
)

// Options carries the collaborators a Daemon serves. Only Orchestrator is
// required.
type Options struct {
	Orchestrator *translate.Orchestrator
	History      *history.Store
	Monitor      *connectivity.Monitor
	LogStream    *logging.StreamHub
	// HTTPClient downloads exported artifacts. Defaults to a client using
	// the configured network timeout.
	HTTPClient *http.Client
	// Notifier defaults to notifications.NewService(cfg).
	Notifier notifications.Service
}

// Daemon hosts one translation session behind the HTTP API and enforces
// single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	orch    *translate.Orchestrator
	history *history.Store
	monitor *connectivity.Monitor
	stream  *logging.StreamHub
	client  *http.Client
	notices *noticeLog
	notify  notifications.Service

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	SessionID     string
	LockFilePath  string
	HistoryDBPath string
	Initialized   bool
	Connectivity  connectivity.Status
}

// New constructs a daemon around an orchestrator.
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil || opts.Orchestrator == nil {
		return nil, errors.New("daemon requires config and orchestrator")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout()}
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		orch:     opts.Orchestrator,
		history:  opts.History,
		monitor:  opts.Monitor,
		stream:   opts.LogStream,
		client:   client,
		notices:  newNoticeLog(noticeCapacity),
		notify:   notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, starts background loops and the API
// server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another signflow daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})

	api, err := newAPIServer(d.cfg, d, d.logger)
	if err == nil {
		err = api.start(d.ctx)
	}
	if err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx, d.cancel = nil, nil
		return fmt.Errorf("start api server: %w", err)
	}
	d.api = api

	if d.monitor != nil {
		go d.monitor.Run(d.ctx)
	}
	d.pruneHistory(d.ctx)
	go d.collectNotices(d.ctx, d.done)

	d.running.Store(true)
	d.logger.Info("signflow daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.APIAddress()),
	)
	sessionID, address := d.orch.SessionID(), d.APIAddress()
	d.push("daemon_started", func(ctx context.Context) error {
		return d.notify.NotifyDaemonStarted(ctx, sessionID, address)
	})
	return nil
}

// Stop stops the API server and background loops and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if d.done != nil {
		<-d.done
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("signflow daemon stopped")
}

// Close releases resources held by the daemon, including the orchestrator
// and history store.
func (d *Daemon) Close() error {
	d.Stop()
	d.orch.Close()
	if d.history != nil {
		return d.history.Close()
	}
	return nil
}

// APIAddress returns the bound API address, or the configured bind when the
// server is not listening.
func (d *Daemon) APIAddress() string {
	if d.api != nil && d.api.listener != nil {
		return d.api.listener.Addr().String()
	}
	return d.cfg.Paths.APIBind
}

// LogStream returns the in-memory log hub, if any.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.stream
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		SessionID:    d.orch.SessionID(),
		LockFilePath: d.lockPath,
		Initialized:  d.orch.Initialized(),
	}
	if d.history != nil {
		status.HistoryDBPath = d.history.Path()
	}
	if d.monitor != nil {
		status.Connectivity = d.monitor.Status()
	} else {
		status.Connectivity = connectivity.Status{Online: true, ProbeOnline: true}
	}
	return status
}

// History lists recorded translations. It returns nil when history is
// disabled.
func (d *Daemon) History(ctx context.Context, opts history.ListOptions) ([]history.Entry, error) {
	if d.history == nil {
		return nil, nil
	}
	return d.history.List(ctx, opts)
}

// SetConnectivity pins connectivity online or offline; nil clears the
// override.
func (d *Daemon) SetConnectivity(online *bool) (connectivity.Status, error) {
	if d.monitor == nil {
		return connectivity.Status{}, errors.New("connectivity monitor unavailable")
	}
	d.monitor.SetOverride(online)
	status := d.monitor.Status()
	d.logger.Info("connectivity override changed",
		logging.String(logging.FieldEventType, "connectivity_override"),
		logging.Bool("online", status.Online),
	)
	return status, nil
}

func (d *Daemon) pruneHistory(ctx context.Context) {
	retention := d.cfg.HistoryRetention()
	if d.history == nil || retention <= 0 {
		return
	}
	pruneCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	removed, err := d.history.Prune(pruneCtx, retention)
	if err != nil {
		logging.WarnWithContext(d.logger, "history prune failed", "history_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run signflow history clear if the database is damaged"),
			logging.String(logging.FieldImpact, "old translations are kept"),
		)
		return
	}
	if removed > 0 {
		d.logger.Info("history pruned", logging.Int64("removed", removed))
	}
}

func (d *Daemon) collectNotices(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	notices := d.orch.Notices()
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-notices:
			d.notices.add(n, time.Now())
			attrs := []logging.Attr{
				logging.String(logging.FieldEventType, "session_notice"),
				logging.String("notice", n.Message),
			}
			if n.Level == "error" {
				d.logger.Error("session notice", logging.Args(attrs...)...)
			} else {
				d.logger.Warn("session notice", logging.Args(attrs...)...)
			}
			d.push("session_notice", func(ctx context.Context) error {
				return d.notify.NotifySessionNotice(ctx, n.Level, n.Message)
			})
		}
	}
}

// push delivers a notification in the background. Failures are only logged.
func (d *Daemon) push(event string, send func(context.Context) error) {
	parent := d.ctx
	if parent == nil {
		parent = context.Background()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), 15*time.Second)
		defer cancel()
		if err := send(ctx); err != nil {
			logging.WarnWithContext(d.logger, "notification failed", "notification_failed",
				logging.Error(err),
				logging.String("notification", event),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			)
		}
	}()
}
