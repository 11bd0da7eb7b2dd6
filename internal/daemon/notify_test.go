package daemon

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"testing"
	"time"

	"signflow/internal/api"
)

type recordingNotifier struct {
	mu      sync.Mutex
	started []string
	notices []string
	exports []string
}

func (r *recordingNotifier) NotifyDaemonStarted(_ context.Context, sessionID, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, sessionID)
	return nil
}

func (r *recordingNotifier) NotifySessionNotice(_ context.Context, level, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, level+": "+message)
	return nil
}

func (r *recordingNotifier) NotifyExportSaved(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exports = append(r.exports, path)
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func (r *recordingNotifier) snapshot() (started, notices, exports []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.started...), append([]string(nil), r.notices...), append([]string(nil), r.exports...)
}

func TestDaemonPushesNotifications(t *testing.T) {
	td := newTestDaemon(t)
	rec := &recordingNotifier{}
	td.d.notify = rec

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := td.d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if code := td.do(t, http.MethodPost, "/api/export", api.ExportRequest{Dir: t.TempDir()}, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 with nothing to export, got %d", code)
	}
	if code := td.do(t, http.MethodPost, "/api/text", api.TextRequest{Text: "hi"}, nil); code != http.StatusOK {
		t.Fatalf("text returned %d", code)
	}
	// the fake upstream has no /pose handler
	if code := td.do(t, http.MethodPost, "/api/export", api.ExportRequest{Dir: t.TempDir()}, nil); code == http.StatusOK {
		t.Fatal("expected failed download")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		started, notices, _ := rec.snapshot()
		if len(started) == 1 && len(notices) == 2 {
			if started[0] != "daemon-test" || !slices.Contains(notices, "error: nothing to download yet") {
				t.Fatalf("unexpected notifications started=%v notices=%v", started, notices)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("notifications not delivered: started=%v notices=%v", started, notices)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
