package translate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"signflow/internal/fileutil"
	"signflow/internal/logging"
	"signflow/internal/services"
	"signflow/internal/services/posegen"
)

const maxExportName = 250

// ExportFileName derives a file name stem from the source text.
func ExportFileName(text string) string {
	name := strings.ReplaceAll(posegen.EscapeComponent(strings.TrimSpace(text)), "%20", "-")
	if len(name) > maxExportName {
		name = name[:maxExportName]
		// do not leave a dangling partial escape
		if i := strings.LastIndexByte(name, '%'); i >= len(name)-2 {
			name = name[:i]
		}
	}
	if name == "" {
		return "translation"
	}
	return name
}

// Export saves the rendered video, or the pose artifact when no video
// exists, into dir and returns the written path. Failures are also
// published as notices.
func (o *Orchestrator) Export(ctx context.Context, client *http.Client, dir string) (string, error) {
	snap := o.Snapshot()
	ref, ext := "", ".pose"
	switch {
	case snap.VideoReference != nil:
		ref, ext = *snap.VideoReference, ".mp4"
	case snap.PoseReference != nil:
		ref = *snap.PoseReference
	}
	if ref == "" {
		err := services.Wrap(services.ErrValidation, "translate", "export", "no artifact to export", nil)
		o.notice("error", "nothing to download yet")
		return "", err
	}

	if u, err := url.Parse(ref); err == nil {
		if e := path.Ext(u.Path); e != "" && len(e) <= 5 {
			ext = e
		}
	}
	dst := filepath.Join(dir, ExportFileName(snap.SourceText)+ext)

	written, digest, err := o.fetchArtifact(ctx, client, ref, dst)
	if err != nil {
		o.notice("error", "download failed: "+err.Error())
		logging.WarnWithContext(o.logger, "artifact export failed", "export_failed",
			logging.Error(err),
			logging.String("reference", ref),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
			logging.String(logging.FieldImpact, "artifact not saved"),
		)
		return "", err
	}
	o.logger.Info("artifact exported",
		logging.String("path", dst),
		logging.Int64("bytes", written),
		logging.String("sha256", digest),
	)
	return dst, nil
}

func (o *Orchestrator) fetchArtifact(ctx context.Context, client *http.Client, ref, dst string) (int64, string, error) {
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return 0, "", services.Wrap(services.ErrValidation, "translate", "export", "only http(s) artifacts can be exported", err)
	}
	if !o.online() {
		return 0, "", services.Wrap(services.ErrOffline, "translate", "export", "", nil)
	}
	if client == nil {
		client = http.DefaultClient
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, "", fmt.Errorf("create export dir: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return 0, "", services.Wrap(services.ErrConfiguration, "translate", "export", "build request", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", services.Wrap(services.ErrTransient, "translate", "export", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, "", services.Wrap(services.ErrTransient, "translate", "export", fmt.Sprintf("http %d", resp.StatusCode), nil)
	}
	return fileutil.WriteAtomic(dst, resp.Body, 0o644)
}
