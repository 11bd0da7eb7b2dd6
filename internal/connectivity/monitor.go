// Package connectivity tracks whether remote enhancement services should be
// contacted at all.
package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"signflow/internal/logging"
)

// Options configures a Monitor.
type Options struct {
	// Offline forces the monitor offline regardless of probes.
	Offline       bool
	ProbeURL      string
	ProbeInterval time.Duration
	Timeout       time.Duration
}

// Status describes the monitor state.
type Status struct {
	Online      bool      `json:"online"`
	Forced      bool      `json:"forced"`
	Override    *bool     `json:"override,omitempty"`
	LastProbe   time.Time `json:"last_probe,omitempty"`
	ProbeOnline bool      `json:"probe_online"`
}

// Monitor reports connectivity from a static flag, an optional manual
// override, and an optional periodic HEAD probe.
type Monitor struct {
	opts   Options
	client *http.Client
	logger *slog.Logger

	mu          sync.RWMutex
	override    *bool
	probeOnline bool
	lastProbe   time.Time
}

// New returns a monitor. Without a probe URL the monitor is online unless
// forced offline.
func New(opts Options, logger *slog.Logger) *Monitor {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Monitor{
		opts:        opts,
		client:      &http.Client{Timeout: timeout},
		logger:      logging.NewComponentLogger(logger, "connectivity"),
		probeOnline: true,
	}
}

// Online reports whether remote calls should be attempted.
func (m *Monitor) Online() bool {
	if m == nil {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.override != nil {
		return *m.override
	}
	if m.opts.Offline {
		return false
	}
	return m.probeOnline
}

// SetOverride pins the monitor online or offline. nil clears the override.
func (m *Monitor) SetOverride(online *bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if online == nil {
		m.override = nil
		return
	}
	value := *online
	m.override = &value
}

// Status returns a snapshot of the monitor state.
func (m *Monitor) Status() Status {
	online := m.Online()
	m.mu.RLock()
	defer m.mu.RUnlock()
	status := Status{
		Online:      online,
		Forced:      m.opts.Offline,
		LastProbe:   m.lastProbe,
		ProbeOnline: m.probeOnline,
	}
	if m.override != nil {
		value := *m.override
		status.Override = &value
	}
	return status
}

// Probe issues one HEAD request against the probe URL and records the result.
func (m *Monitor) Probe(ctx context.Context) bool {
	if m.opts.ProbeURL == "" {
		return true
	}
	online := false
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.opts.ProbeURL, nil)
	if err == nil {
		resp, doErr := m.client.Do(req)
		if doErr == nil {
			resp.Body.Close()
			online = resp.StatusCode < http.StatusInternalServerError
		} else {
			err = doErr
		}
	}

	m.mu.Lock()
	changed := m.probeOnline != online
	m.probeOnline = online
	m.lastProbe = time.Now()
	m.mu.Unlock()

	if changed {
		if online {
			m.logger.Info("connectivity restored", logging.String("probe_url", m.opts.ProbeURL))
		} else {
			attrs := []logging.Attr{
				logging.String("probe_url", m.opts.ProbeURL),
				logging.String(logging.FieldImpact, "suggestions, pivot translation and notation requests are skipped"),
			}
			if err != nil {
				attrs = append(attrs, logging.Error(err))
			}
			logging.WarnWithContext(m.logger, "connectivity lost", "connectivity_lost", attrs...)
		}
	}
	return online
}

// Run probes periodically until ctx ends. It returns immediately when no
// probe is configured.
func (m *Monitor) Run(ctx context.Context) {
	if m.opts.ProbeURL == "" || m.opts.ProbeInterval <= 0 {
		return
	}
	m.Probe(ctx)
	ticker := time.NewTicker(m.opts.ProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}
