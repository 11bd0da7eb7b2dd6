package detect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/pemistahl/lingua-go"

	"signflow/internal/language"
	"signflow/internal/logging"
	"signflow/internal/services"
)

const (
	EngineLingua   = "lingua"
	EngineWhatlang = "whatlang"
)

// Options configures the detector backend.
type Options struct {
	Engine string
	// Languages restricts candidates to these ISO 639-1 codes. Empty means
	// every supported spoken language the engine knows.
	Languages           []string
	MinRelativeDistance float64
}

type engine interface {
	detect(text string) (string, bool)
}

// Detector identifies the spoken language of a text. The backend is built
// once on first use; Init may be called early to warm it up.
type Detector struct {
	opts   Options
	logger *slog.Logger

	once   sync.Once
	ready  chan struct{}
	engine engine
	err    error
}

// New returns a detector that builds its backend lazily.
func New(opts Options, logger *slog.Logger) *Detector {
	if strings.TrimSpace(opts.Engine) == "" {
		opts.Engine = EngineLingua
	}
	return &Detector{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "detect"),
		ready:  make(chan struct{}),
	}
}

// Init builds the backend if needed and waits for it to be ready. Concurrent
// callers share one build; later calls return immediately.
func (d *Detector) Init(ctx context.Context) error {
	d.once.Do(func() {
		go d.build()
	})
	select {
	case <-d.ready:
		return d.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Detect returns the ISO 639-1 code of the most likely language of text, or
// an empty string when no language could be determined with confidence.
func (d *Detector) Detect(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if err := d.Init(ctx); err != nil {
		return "", err
	}
	code, ok := d.engine.detect(text)
	if !ok {
		d.logger.Debug("language undetermined", logging.Int("text_runes", len([]rune(text))))
		return "", nil
	}
	return code, nil
}

func (d *Detector) build() {
	defer close(d.ready)
	start := time.Now()
	switch strings.ToLower(d.opts.Engine) {
	case EngineLingua:
		d.engine, d.err = newLinguaEngine(d.opts)
	case EngineWhatlang:
		d.engine, d.err = newWhatlangEngine(d.opts)
	default:
		d.err = services.Wrap(services.ErrConfiguration, "detect", "init", fmt.Sprintf("unknown engine %q", d.opts.Engine), nil)
	}
	if d.err != nil {
		logging.ErrorWithContext(d.logger, "language detector unavailable", "detector_init_failed",
			logging.Error(d.err),
			logging.String(logging.FieldErrorHint, "check detector.engine in the config file"),
		)
		return
	}
	d.logger.Info("language detector ready",
		logging.String("engine", d.opts.Engine),
		logging.Duration("elapsed", time.Since(start)),
	)
}

func candidateCodes(opts Options) []string {
	if len(opts.Languages) > 0 {
		return opts.Languages
	}
	return language.Spoken()
}

type linguaEngine struct {
	detector lingua.LanguageDetector
}

func newLinguaEngine(opts Options) (engine, error) {
	byCode := make(map[string]lingua.Language)
	for _, lang := range lingua.AllLanguages() {
		byCode[strings.ToLower(lang.IsoCode639_1().String())] = lang
	}
	var selected []lingua.Language
	for _, code := range candidateCodes(opts) {
		if lang, ok := byCode[language.Base(code)]; ok {
			selected = append(selected, lang)
		}
	}

	builder := lingua.NewLanguageDetectorBuilder()
	var configured lingua.LanguageDetectorBuilder
	if len(selected) >= 2 {
		configured = builder.FromLanguages(selected...)
	} else {
		configured = builder.FromAllLanguages()
	}
	distance := opts.MinRelativeDistance
	if distance < 0 || distance > 0.99 {
		return nil, services.Wrap(services.ErrConfiguration, "detect", "init", "min relative distance out of range", nil)
	}
	if distance > 0 {
		configured = configured.WithMinimumRelativeDistance(distance)
	}
	return &linguaEngine{detector: configured.WithPreloadedLanguageModels().Build()}, nil
}

func (e *linguaEngine) detect(text string) (string, bool) {
	lang, ok := e.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

type whatlangEngine struct {
	options whatlanggo.Options
}

func newWhatlangEngine(opts Options) (engine, error) {
	byCode := make(map[string]whatlanggo.Lang)
	for lang := range whatlanggo.Langs {
		if code := lang.Iso6391(); code != "" {
			byCode[code] = lang
		}
	}
	whitelist := make(map[whatlanggo.Lang]bool)
	for _, code := range candidateCodes(opts) {
		if lang, ok := byCode[language.Base(code)]; ok {
			whitelist[lang] = true
		}
	}
	if len(whitelist) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "detect", "init", "no detector languages are known to whatlang", nil)
	}
	return &whatlangEngine{options: whatlanggo.Options{Whitelist: whitelist}}, nil
}

func (e *whatlangEngine) detect(text string) (string, bool) {
	info := whatlanggo.DetectWithOptions(text, e.options)
	if !info.IsReliable() {
		return "", false
	}
	code := info.Lang.Iso6391()
	return code, code != ""
}
