package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"signflow/internal/detect"
	"signflow/internal/history"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckHistory opens the history database and runs an integrity check. A
// database that does not exist yet passes.
func CheckHistory(ctx context.Context, path string) Result {
	const name = "History database"
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first use)", path)}
	}
	store, err := history.OpenPath(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()
	health, err := store.CheckHealth(ctx)
	if err != nil || !health.IntegrityCheck {
		detail := health.Error
		if err != nil {
			detail = err.Error()
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", path, detail)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d entries)", path, health.Entries)}
}

// CheckEndpoint issues a HEAD request against rawURL. Any response below 500
// counts as reachable; these APIs usually reject HEAD with 4xx.
func CheckEndpoint(ctx context.Context, name, rawURL string, timeout time.Duration) Result {
	target := strings.TrimSpace(rawURL)
	if target == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, target, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url (%v)", err)}
	}
	resp, err := (&http.Client{Timeout: timeout}).Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (%d)", resp.StatusCode)}
}

// CheckDetector builds the language detector backend.
func CheckDetector(ctx context.Context, opts detect.Options) Result {
	const name = "Language detector"
	start := time.Now()
	if err := detect.New(opts, nil).Init(ctx); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s ready in %s", opts.Engine, time.Since(start).Round(time.Millisecond))}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Sprintf("dns lookup failed (%s)", dnsErr.Name)
	}
	return err.Error()
}
