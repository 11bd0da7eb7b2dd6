package translate

import (
	"log/slog"
	"math"

	"signflow/internal/config"
	"signflow/internal/connectivity"
	"signflow/internal/detect"
	"signflow/internal/fsw"
	"signflow/internal/segment"
	"signflow/internal/services/describer"
	"signflow/internal/services/normalizer"
	"signflow/internal/services/pivot"
	"signflow/internal/services/posegen"
	"signflow/internal/services/remote"
	"signflow/internal/services/signwriting"
)

// Build wires an Orchestrator from configuration. monitor and recorder may
// be nil.
func Build(cfg *config.Config, logger *slog.Logger, monitor *connectivity.Monitor, recorder Recorder, sessionID string) *Orchestrator {
	burst := int(math.Ceil(cfg.Network.RequestsPerSecond))
	clientOpts := []remote.Option{
		remote.WithTimeout(cfg.HTTPTimeout()),
		remote.WithRetryMaxAttempts(cfg.Network.RetryAttempts),
		remote.WithRateLimit(cfg.Network.RequestsPerSecond, burst),
	}
	newClient := func(component string) *remote.Client {
		return remote.New(component, clientOpts...)
	}

	deps := Dependencies{
		Detector: detect.New(detect.Options{
			Engine:              cfg.Detector.Engine,
			Languages:           cfg.Detector.Languages,
			MinRelativeDistance: cfg.Detector.MinRelativeDistance,
		}, logger),
		Segmenter:  segment.New(cfg.Translation.LocaleAwareSegmentation),
		Normalizer: normalizer.New(cfg.Endpoints.NormalizationURL, newClient("normalizer")),
		Pivot: pivot.New(cfg.Endpoints.PivotURL, cfg.Endpoints.PivotClient, cfg.Translation.PivotLanguage,
			newClient("pivot"), logger),
		Describer: describer.New(cfg.Endpoints.DescriptionURL, newClient("describer")),
		Notation:  signwriting.New(cfg.Endpoints.SignWritingURL, newClient("signwriting")),
		Pose:      posegen.New(cfg.Endpoints.PoseURL),
		Metrics:   fsw.NewLoader(logger),
		History:   recorder,
		Logger:    logger,
	}
	if monitor != nil {
		deps.Connectivity = monitor
	}

	return New(deps, Options{
		SessionID:      sessionID,
		SpokenLanguage: cfg.Translation.DefaultSpokenLanguage,
		SignedLanguage: cfg.Translation.DefaultSignedLanguage,
		PivotSources:   cfg.Translation.PivotSources,
		PreloadMetrics: cfg.Translation.NotationMetricsAutoload,
	})
}
