package translate

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"signflow/internal/fsw"
	"signflow/internal/history"
	"signflow/internal/language"
	"signflow/internal/logging"
	"signflow/internal/pose"
	"signflow/internal/services"
	"signflow/internal/services/signwriting"
)

// DefaultSignedLanguage is used when no signed language is configured.
const DefaultSignedLanguage = "csl"

const noticeBuffer = 16

// Detector identifies the spoken language of a text.
type Detector interface {
	Detect(ctx context.Context, text string) (string, error)
}

// Segmenter splits text into sentences.
type Segmenter interface {
	Segment(lang, text string) []string
}

// Normalizer proposes a normalized rewrite of spoken-language text.
type Normalizer interface {
	Normalize(ctx context.Context, lang, text string) (string, error)
}

// PivotTranslator renders text in the pivot language.
type PivotTranslator interface {
	Translate(ctx context.Context, text, source string) (string, error)
	Target() string
}

// Describer explains a sign token in prose.
type Describer interface {
	Describe(ctx context.Context, fsw string) (string, error)
}

// NotationTranslator generates a sign-notation transcript.
type NotationTranslator interface {
	Translate(ctx context.Context, req signwriting.Request) (string, error)
}

// PoseReferencer builds the pose artifact reference for a text.
type PoseReferencer interface {
	Reference(text, spoken, signed string) string
}

// MetricsLoader provides the symbol metrics used to normalize tokens.
type MetricsLoader interface {
	Load(ctx context.Context) (*fsw.Metrics, error)
}

// Connectivity reports whether remote services should be attempted.
type Connectivity interface {
	Online() bool
}

// Capture drives the camera or video source. Implementations must not call
// back into the Orchestrator.
type Capture interface {
	Start(ctx context.Context) error
	Stop()
	Load(ctx context.Context, ref string) error
}

// Recorder persists completed translations.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) (int64, error)
}

// Dependencies are the collaborators of an Orchestrator. Detector, Metrics,
// Connectivity, Capture and History are optional.
type Dependencies struct {
	Detector     Detector
	Segmenter    Segmenter
	Normalizer   Normalizer
	Pivot        PivotTranslator
	Describer    Describer
	Notation     NotationTranslator
	Pose         PoseReferencer
	Metrics      MetricsLoader
	Connectivity Connectivity
	Capture      Capture
	History      Recorder
	Logger       *slog.Logger
}

// Options hold session defaults.
type Options struct {
	SessionID string
	// SpokenLanguage is the initial spoken language; empty means detect.
	SpokenLanguage string
	SignedLanguage string
	// PivotSources lists language prefixes translated through the pivot
	// language before sign generation.
	PivotSources   []string
	PreloadMetrics bool
}

type kind int

const (
	kindDetect kind = iota
	kindSuggest
	kindPivot
	kindRecompute
	kindDescribe
	kindCount
)

func (k kind) String() string {
	switch k {
	case kindDetect:
		return "detect"
	case kindSuggest:
		return "suggest"
	case kindPivot:
		return "pivot"
	case kindRecompute:
		return "recompute"
	case kindDescribe:
		return "describe"
	}
	return "unknown"
}

// Orchestrator owns the translation session state. Every intent applies its
// synchronous part under mu; remote work runs in continuations that re-check
// their generation under mu before writing.
type Orchestrator struct {
	deps   Dependencies
	opts   Options
	logger *slog.Logger

	base context.Context
	stop context.CancelFunc

	mu          sync.Mutex
	state       Snapshot
	initialized bool
	gens        [kindCount]atomic.Uint64
	cancels     [kindCount]context.CancelFunc
	subs        map[uint64]chan Snapshot
	nextSub     uint64

	notices  chan Notice
	inflight *tracker

	lastDetection detection
}

type detection struct {
	text string
	code string
}

// New returns an Orchestrator with default state.
func New(deps Dependencies, opts Options) *Orchestrator {
	if deps.Segmenter == nil {
		deps.Segmenter = wholeText{}
	}
	logger := logging.NewComponentLogger(deps.Logger, "translate")
	base := context.Background()
	if id := strings.TrimSpace(opts.SessionID); id != "" {
		base = services.WithSessionID(base, id)
		logger = logger.With(logging.String(logging.FieldSessionID, id))
	}
	base, stop := context.WithCancel(base)

	signed := language.Normalize(opts.SignedLanguage)
	if signed == "" {
		signed = DefaultSignedLanguage
	}
	o := &Orchestrator{
		deps:   deps,
		opts:   opts,
		logger: logger,
		base:   base,
		stop:   stop,
		state: Snapshot{
			Direction:      SpokenToSigned,
			InputMode:      InputText,
			SignedLanguage: ptr(signed),
		},
		subs:     make(map[uint64]chan Snapshot),
		notices:  make(chan Notice, noticeBuffer),
		inflight: newTracker(),
	}
	if spoken := language.Normalize(opts.SpokenLanguage); spoken != "" {
		o.state.SpokenLanguage = ptr(spoken)
	}
	if opts.PreloadMetrics && deps.Metrics != nil {
		o.spawn(func() {
			if _, err := deps.Metrics.Load(base); err != nil {
				logging.WarnWithContext(logger, "symbol metrics preload failed", "metrics_load_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "sign tokens are kept unnormalized"),
				)
			}
		})
	}
	return o
}

// Close cancels every in-flight continuation and stops capture.
func (o *Orchestrator) Close() {
	o.stop()
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.deps.Capture != nil {
		o.deps.Capture.Stop()
	}
}

// SessionID returns the session identifier the Orchestrator was built with.
func (o *Orchestrator) SessionID() string {
	return strings.TrimSpace(o.opts.SessionID)
}

// Initialized reports whether Initialize has run.
func (o *Orchestrator) Initialized() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.initialized
}

// SetSourceText stores new user input and recomputes everything derived
// from it.
func (o *Orchestrator) SetSourceText(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.setSourceTextLocked(text)
	o.publishLocked()
}

func (o *Orchestrator) setSourceTextLocked(text string) {
	o.state.SourceText = text
	o.state.PivotText = nil
	o.state.SuggestedText = nil
	o.invalidate(kindSuggest)
	o.invalidate(kindPivot)
	o.invalidate(kindRecompute)
	if o.state.Direction != SpokenToSigned {
		return
	}

	trimmed := strings.TrimSpace(text)
	if o.state.SpokenLanguage == nil {
		o.detectLocked(trimmed, false)
		return
	}
	o.pivotOrRecomputeLocked(trimmed, o.state.SpokenLanguage)
}

// SetSpokenLanguage selects the spoken language. nil switches to detection.
func (o *Orchestrator) SetSpokenLanguage(lang *string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if lang != nil {
		if normalized := language.Normalize(*lang); normalized != "" {
			lang = ptr(normalized)
		} else {
			lang = nil
		}
	}
	o.state.SpokenLanguage = lang
	o.state.PivotText = nil
	o.invalidate(kindPivot)
	o.invalidate(kindSuggest)
	if lang != nil {
		o.invalidate(kindDetect)
		o.state.DetectedLanguage = nil
	}
	if o.state.Direction != SpokenToSigned {
		o.publishLocked()
		return
	}

	trimmed := strings.TrimSpace(o.state.SourceText)
	if lang == nil {
		o.detectLocked(trimmed, true)
		o.publishLocked()
		return
	}
	o.pivotOrRecomputeLocked(trimmed, lang)
	o.suggestLocked()
	o.publishLocked()
}

// detectLocked identifies the language of trimmed and continues with pivot
// translation or a direct recompute. Empty text clears the detected
// language without a remote call.
func (o *Orchestrator) detectLocked(trimmed string, suggest bool) {
	ctx, gen := o.begin(kindDetect)
	if trimmed == "" || o.deps.Detector == nil {
		o.state.DetectedLanguage = nil
		o.afterDetectionLocked(trimmed, suggest)
		return
	}
	logger := o.continuationLogger(kindDetect, gen)

	o.spawn(func() {
		code, err := o.deps.Detector.Detect(ctx, trimmed)

		o.mu.Lock()
		defer o.mu.Unlock()
		if err == nil {
			o.recordDetectionLocked(trimmed, code)
		}
		if !o.current(kindDetect, gen) || o.state.SpokenLanguage != nil {
			logger.Debug("discarding superseded detection")
			return
		}
		if err != nil {
			logging.WarnWithContext(logger, "language detection failed", "detection_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "spoken language left undetermined"),
			)
			code = ""
		}
		o.state.DetectedLanguage = nil
		if code != "" {
			o.state.DetectedLanguage = ptr(code)
		}
		o.afterDetectionLocked(trimmed, suggest)
		o.publishLocked()
	})
}

func (o *Orchestrator) afterDetectionLocked(trimmed string, suggest bool) {
	if o.state.Direction != SpokenToSigned {
		return
	}
	o.pivotOrRecomputeLocked(trimmed, o.state.DetectedLanguage)
	if suggest {
		o.suggestLocked()
	}
}

// pivotOrRecomputeLocked sends text through the pivot language when lang
// requires it and remote services are reachable. Otherwise the source text is
// segmented and recomputed directly.
func (o *Orchestrator) pivotOrRecomputeLocked(trimmed string, lang *string) {
	if trimmed != "" && o.requiresPivot(lang) && o.online() {
		o.translateToPivotLocked()
		return
	}
	o.state.PivotText = nil
	o.state.Sentences = o.deps.Segmenter.Segment(deref(lang), trimmed)
	o.recomputeLocked()
}

// SetSignedLanguage selects the signed language and recomputes.
func (o *Orchestrator) SetSignedLanguage(lang string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.SignedLanguage = ptr(language.Normalize(lang))
	o.recomputeLocked()
	o.publishLocked()
}

// FlipDirection toggles between spoken-to-signed and signed-to-spoken.
func (o *Orchestrator) FlipDirection() {
	o.mu.Lock()
	defer o.mu.Unlock()

	wasSpokenToSigned := o.state.Direction == SpokenToSigned
	video := o.state.VideoReference

	o.state.Direction = o.state.Direction.flipped()
	if o.state.SpokenLanguage == nil {
		o.state.SpokenLanguage = clonePtr(o.state.DetectedLanguage)
	}
	if o.state.SignedLanguage == nil {
		o.state.SignedLanguage = clonePtr(o.state.DetectedLanguage)
	}
	o.state.DetectedLanguage = nil
	o.state.VideoReference = nil
	o.invalidate(kindDetect)
	o.invalidate(kindSuggest)
	o.invalidate(kindPivot)

	switch {
	case wasSpokenToSigned && video != nil:
		o.setInputModeLocked(InputUpload)
		if c := o.deps.Capture; c != nil {
			if err := c.Load(o.base, *video); err != nil {
				o.notice("warn", "could not load the rendered video: "+err.Error())
			}
		}
	case wasSpokenToSigned:
		o.setInputModeLocked(InputWebcam)
	default:
		o.setInputModeLocked(InputText)
	}
	o.publishLocked()
}

// SetInputMode changes the input source. Unknown modes are rejected.
func (o *Orchestrator) SetInputMode(mode InputMode) error {
	mode, err := ParseInputMode(string(mode))
	if err != nil {
		return services.Wrap(services.ErrValidation, "translate", "set input mode", "", err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.setInputModeLocked(mode)
	o.publishLocked()
	return nil
}

func (o *Orchestrator) setInputModeLocked(mode InputMode) {
	if o.state.InputMode == mode {
		return
	}
	o.state.InputMode = mode
	capture := o.deps.Capture
	if capture != nil {
		capture.Stop()
	}
	o.recomputeLocked()
	if mode == InputWebcam && capture != nil {
		if err := capture.Start(o.base); err != nil {
			o.notice("warn", "camera unavailable: "+err.Error())
		}
	}
}

// SuggestAlternativeText asks the normalization service for a rewrite of
// the current text.
func (o *Orchestrator) SuggestAlternativeText() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.suggestLocked()
}

func (o *Orchestrator) suggestLocked() {
	ctx, gen := o.begin(kindSuggest)
	trimmed := strings.TrimSpace(o.state.SourceText)
	if o.state.Direction != SpokenToSigned || trimmed == "" || o.deps.Normalizer == nil {
		return
	}
	effective := o.state.EffectiveSpokenLanguage()
	if effective == nil {
		return
	}
	lang := *effective
	detected, known := o.detectionFor(trimmed)
	if known && language.Base(detected) != language.Base(lang) {
		return
	}
	if !known && o.deps.Detector == nil {
		return
	}
	logger := o.continuationLogger(kindSuggest, gen)
	if !o.online() {
		logger.Debug("offline, suggestion skipped")
		return
	}

	o.spawn(func() {
		if !known {
			code, err := o.deps.Detector.Detect(ctx, trimmed)
			o.mu.Lock()
			if err == nil {
				o.recordDetectionLocked(trimmed, code)
			}
			proceed := err == nil && o.current(kindSuggest, gen) && language.Base(code) == language.Base(lang)
			o.mu.Unlock()
			if !proceed {
				logger.Debug("suggestion skipped, language not confirmed by detection",
					logging.String("detected", code),
				)
				return
			}
		}

		suggestion, err := o.deps.Normalizer.Normalize(ctx, lang, trimmed)

		o.mu.Lock()
		defer o.mu.Unlock()
		if !o.current(kindSuggest, gen) {
			logger.Debug("discarding superseded suggestion")
			return
		}
		if err != nil {
			logging.WarnWithContext(logger, "text suggestion failed", "suggestion_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, services.Hint(err)),
				logging.String(logging.FieldImpact, "no alternative text offered"),
			)
			return
		}
		if suggestion == trimmed {
			return
		}
		o.state.SuggestedText = ptr(suggestion)
		o.publishLocked()
	})
}

// detectionFor returns the last detection result for text, if any. It
// survives an explicit language choice so the choice can be confirmed.
func (o *Orchestrator) detectionFor(text string) (string, bool) {
	if o.lastDetection.code == "" || o.lastDetection.text != text {
		return "", false
	}
	return o.lastDetection.code, true
}

func (o *Orchestrator) recordDetectionLocked(text, code string) {
	if code == "" {
		return
	}
	o.lastDetection = detection{text: text, code: code}
}

// TranslateToPivot renders the current text in the pivot language and then
// recomputes the translation from it.
func (o *Orchestrator) TranslateToPivot() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.translateToPivotLocked()
	o.publishLocked()
}

func (o *Orchestrator) translateToPivotLocked() {
	ctx, gen := o.begin(kindPivot)
	trimmed := strings.TrimSpace(o.state.SourceText)
	lang := o.state.EffectiveSpokenLanguage()
	if o.state.Direction != SpokenToSigned || trimmed == "" || !o.requiresPivot(lang) {
		return
	}
	source := *lang
	logger := o.continuationLogger(kindPivot, gen)
	if !o.online() {
		logger.Debug("offline, pivot translation skipped")
		return
	}

	o.spawn(func() {
		translated, err := o.deps.Pivot.Translate(ctx, trimmed, source)

		o.mu.Lock()
		defer o.mu.Unlock()
		if !o.current(kindPivot, gen) || o.state.Direction != SpokenToSigned {
			logger.Debug("discarding superseded pivot translation")
			return
		}
		if err != nil {
			logging.WarnWithContext(logger, "pivot translation failed", "pivot_failed",
				logging.Error(err),
				logging.String("source_language", source),
				logging.String(logging.FieldErrorHint, services.Hint(err)),
				logging.String(logging.FieldImpact, "translating from source text"),
			)
			o.state.PivotText = nil
			o.state.Sentences = o.deps.Segmenter.Segment(source, trimmed)
		} else {
			o.state.PivotText = ptr(translated)
			o.state.Sentences = o.deps.Segmenter.Segment(o.deps.Pivot.Target(), translated)
		}
		o.recomputeLocked()
		o.publishLocked()
	})
}

// RecomputeTranslation rebuilds the pose reference and sign notation for
// the current text.
func (o *Orchestrator) RecomputeTranslation() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recomputeLocked()
	o.publishLocked()
}

func (o *Orchestrator) recomputeLocked() {
	ctx, gen := o.begin(kindRecompute)
	if o.state.Direction != SpokenToSigned {
		return
	}
	o.state.PoseReference = nil
	o.state.VideoReference = nil
	o.state.SignNotation = nil

	trimmed := strings.TrimSpace(o.state.SourceText)
	if trimmed == "" {
		o.state.SignNotation = []SignNotation{}
		return
	}

	text, lang := trimmed, deref(o.state.EffectiveSpokenLanguage())
	sentences := append([]string(nil), o.state.Sentences...)
	if o.state.PivotText != nil {
		text, lang = *o.state.PivotText, o.deps.Pivot.Target()
		sentences = o.deps.Segmenter.Segment(lang, text)
	}
	signed := deref(o.state.SignedLanguage)
	if o.deps.Pose != nil {
		o.state.PoseReference = ptr(o.deps.Pose.Reference(text, lang, signed))
	}

	logger := o.continuationLogger(kindRecompute, gen)
	if !o.online() || o.deps.Notation == nil {
		logger.Debug("offline, sign notation skipped")
		return
	}
	req := signwriting.Request{
		Text:           text,
		Sentences:      sentences,
		SourceLanguage: lang,
		SignedLanguage: signed,
	}

	o.spawn(func() {
		transcript, err := o.deps.Notation.Translate(ctx, req)
		if err != nil {
			o.mu.Lock()
			defer o.mu.Unlock()
			if !o.current(kindRecompute, gen) {
				return
			}
			logging.WarnWithContext(logger, "sign notation generation failed", "notation_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, services.Hint(err)),
				logging.String(logging.FieldImpact, "sign notation left empty"),
			)
			o.state.SignNotation = []SignNotation{}
			o.publishLocked()
			return
		}
		tokens := o.normalizeTokens(ctx, logger, signwriting.Tokens(transcript))

		o.mu.Lock()
		if !o.current(kindRecompute, gen) {
			o.mu.Unlock()
			logger.Debug("discarding superseded sign notation")
			return
		}
		notation := make([]SignNotation, 0, len(tokens))
		for _, token := range tokens {
			notation = append(notation, SignNotation{FSW: token})
		}
		o.state.SignNotation = notation
		entry := o.historyEntryLocked(tokens)
		o.publishLocked()
		o.mu.Unlock()

		o.record(logger, entry)
	})
}

func (o *Orchestrator) normalizeTokens(ctx context.Context, logger *slog.Logger, tokens []string) []string {
	var metrics *fsw.Metrics
	if o.deps.Metrics != nil && len(tokens) > 0 {
		m, err := o.deps.Metrics.Load(ctx)
		if err != nil {
			logging.WarnWithContext(logger, "symbol metrics unavailable", "metrics_load_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "sign tokens are kept unnormalized"),
			)
		}
		metrics = m
	}

	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		prepared := fsw.Prepare(token)
		if metrics == nil {
			out = append(out, prepared)
			continue
		}
		normalized, err := fsw.Normalize(prepared, metrics)
		if err != nil {
			logger.Debug("sign token kept as is", logging.String("token", prepared), logging.Error(err))
			out = append(out, prepared)
			continue
		}
		out = append(out, normalized)
	}
	return out
}

func (o *Orchestrator) historyEntryLocked(tokens []string) history.Entry {
	return history.Entry{
		SessionID:      o.opts.SessionID,
		SourceText:     strings.TrimSpace(o.state.SourceText),
		SpokenLanguage: deref(o.state.EffectiveSpokenLanguage()),
		SignedLanguage: deref(o.state.SignedLanguage),
		PivotText:      deref(o.state.PivotText),
		PoseReference:  deref(o.state.PoseReference),
		Notation:       tokens,
	}
}

func (o *Orchestrator) record(logger *slog.Logger, entry history.Entry) {
	if o.deps.History == nil {
		return
	}
	if _, err := o.deps.History.Record(o.base, entry); err != nil {
		logging.WarnWithContext(logger, "history record failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "translation missing from history"),
		)
	}
}

// RequestSignNotationDescription fills in the description of every token
// matching fsw.
func (o *Orchestrator) RequestSignNotationDescription(fsw string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx, gen := o.begin(kindDescribe)
	logger := o.continuationLogger(kindDescribe, gen)
	if o.deps.Describer == nil {
		return
	}
	if !o.online() {
		logger.Debug("offline, description skipped")
		return
	}

	o.spawn(func() {
		description, err := o.deps.Describer.Describe(ctx, fsw)

		o.mu.Lock()
		defer o.mu.Unlock()
		if !o.current(kindDescribe, gen) {
			logger.Debug("discarding superseded description")
			return
		}
		if err != nil {
			logging.WarnWithContext(logger, "sign description failed", "description_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "error shown in place of the description"),
			)
			description = err.Error()
		}
		for i := range o.state.SignNotation {
			if o.state.SignNotation[i].FSW == fsw {
				o.state.SignNotation[i].Description = ptr(description)
			}
		}
		o.publishLocked()
	})
}

// ImportPoseArtifact replaces the pose reference with an uploaded one.
func (o *Orchestrator) ImportPoseArtifact(ref string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Direction != SpokenToSigned {
		return
	}
	o.state.PoseReference = ptr(ref)
	o.state.VideoReference = nil
	o.publishLocked()
}

// RecordCapturedFrame normalizes a captured holistic frame. The result is
// only logged.
func (o *Orchestrator) RecordCapturedFrame(frame pose.Frame) {
	normalized := pose.NormalizeHolistic(frame, pose.HolisticComponents)
	o.logger.Debug("captured frame normalized",
		logging.Int("points", len(normalized.Points)),
		logging.Int("missing", normalized.Missing),
	)
}

// SetVideoReference stores the rendered video of the current translation.
func (o *Orchestrator) SetVideoReference(ref string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.VideoReference = ptr(ref)
	o.publishLocked()
}

// ResetVideoReference drops the rendered video.
func (o *Orchestrator) ResetVideoReference() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.VideoReference = nil
	o.publishLocked()
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.clone()
}

// Subscribe returns a channel that receives the current state and then a
// snapshot after each change. Slow readers only see the latest snapshot.
// The channel is closed when ctx ends.
func (o *Orchestrator) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch
	ch <- o.state.clone()
	o.mu.Unlock()

	go func() {
		<-ctx.Done()
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
		close(ch)
	}()
	return ch
}

// Notices delivers user-visible notices. Old notices are dropped when
// nobody reads.
func (o *Orchestrator) Notices() <-chan Notice {
	return o.notices
}

// Wait blocks until no continuation is in flight.
func (o *Orchestrator) Wait(ctx context.Context) error {
	return o.inflight.wait(ctx)
}

func (o *Orchestrator) begin(k kind) (context.Context, uint64) {
	gen := o.gens[k].Add(1)
	if cancel := o.cancels[k]; cancel != nil {
		cancel()
	}
	ctx, cancel := context.WithCancel(services.WithIntent(o.base, k.String()))
	o.cancels[k] = cancel
	return ctx, gen
}

func (o *Orchestrator) invalidate(k kind) {
	o.gens[k].Add(1)
	if cancel := o.cancels[k]; cancel != nil {
		cancel()
		o.cancels[k] = nil
	}
}

func (o *Orchestrator) current(k kind, gen uint64) bool {
	return o.gens[k].Load() == gen
}

func (o *Orchestrator) continuationLogger(k kind, gen uint64) *slog.Logger {
	return o.logger.With(
		logging.Intent(k.String()),
		logging.Generation(gen),
	)
}

func (o *Orchestrator) spawn(fn func()) {
	o.inflight.add()
	go func() {
		defer o.inflight.done()
		fn()
	}()
}

func (o *Orchestrator) online() bool {
	return o.deps.Connectivity == nil || o.deps.Connectivity.Online()
}

func (o *Orchestrator) requiresPivot(lang *string) bool {
	if lang == nil || o.deps.Pivot == nil {
		return false
	}
	if language.MatchesAny(*lang, []string{o.deps.Pivot.Target()}) {
		return false
	}
	return language.MatchesAny(*lang, o.opts.PivotSources)
}

func (o *Orchestrator) publishLocked() {
	for _, ch := range o.subs {
		offer(ch, o.state.clone())
	}
}

func (o *Orchestrator) notice(level, message string) {
	offer(o.notices, Notice{Level: level, Message: message})
}

// offer sends v without blocking, replacing a value the reader has not
// taken yet.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

type wholeText struct{}

func (wholeText) Segment(_, text string) []string {
	return []string{text}
}
