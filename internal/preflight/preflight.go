package preflight

import (
	"context"

	"signflow/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional failures degrade features but do not block a session.
	Optional bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.History.Enabled {
		results = append(results, CheckHistory(ctx, cfg.HistoryDBPath()))
	}

	if cfg.Network.Offline {
		results = append(results, Result{Name: "Remote services", Passed: true, Optional: true, Detail: "skipped (offline)"})
		return results
	}
	endpoints := []struct {
		name string
		url  string
	}{
		{"SignWriting service", cfg.Endpoints.SignWritingURL},
		{"Pose service", cfg.Endpoints.PoseURL},
		{"Normalization service", cfg.Endpoints.NormalizationURL},
		{"Description service", cfg.Endpoints.DescriptionURL},
		{"Pivot translation service", cfg.Endpoints.PivotURL},
	}
	for _, ep := range endpoints {
		result := CheckEndpoint(ctx, ep.name, ep.url, cfg.HTTPTimeout())
		result.Optional = true
		results = append(results, result)
	}
	return results
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
