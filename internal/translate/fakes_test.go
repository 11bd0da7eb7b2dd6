package translate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"signflow/internal/fsw"
	"signflow/internal/history"
	"signflow/internal/segment"
	"signflow/internal/services/posegen"
	"signflow/internal/services/signwriting"
)

const testPoseEndpoint = "https://pose.test/generate"

// The fakes below ignore cancellation so superseded results still arrive and
// must be discarded by the generation check. A gate keyed by input text holds
// the call until it is closed.

type fakeDetector struct {
	mu      sync.Mutex
	results map[string]string
	gates   map[string]chan struct{}
	calls   []string
}

func (f *fakeDetector) Detect(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	gate, result := f.gates[text], f.results[text]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return result, nil
}

func (f *fakeDetector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeNormalizer struct {
	mu          sync.Mutex
	suggestions map[string]string
	gates       map[string]chan struct{}
	langs       []string
}

func (f *fakeNormalizer) Normalize(_ context.Context, lang string, text string) (string, error) {
	f.mu.Lock()
	f.langs = append(f.langs, lang)
	gate := f.gates[text]
	suggestion, ok := f.suggestions[text]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if ok {
		return suggestion, nil
	}
	return text, nil
}

func (f *fakeNormalizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.langs)
}

func (f *fakeNormalizer) languages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.langs...)
}

type fakePivot struct {
	mu           sync.Mutex
	translations map[string]string
	gates        map[string]chan struct{}
	err          error
	calls        int
}

func (f *fakePivot) Translate(_ context.Context, text, _ string) (string, error) {
	f.mu.Lock()
	f.calls++
	gate, err := f.gates[text], f.err
	out, ok := f.translations[text]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return text, err
	}
	if ok {
		return out, nil
	}
	return text, nil
}

func (f *fakePivot) Target() string { return "en" }

func (f *fakePivot) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDescriber struct {
	mu           sync.Mutex
	descriptions map[string]string
	failures     map[string]error
	gates        map[string]chan struct{}
	calls        int
}

func (f *fakeDescriber) Describe(_ context.Context, token string) (string, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gates[token]
	desc, failure := f.descriptions[token], f.failures[token]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return desc, failure
}

func (f *fakeDescriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotation struct {
	mu        sync.Mutex
	responses map[string]string
	gates     map[string]chan struct{}
	err       error
	requests  []signwriting.Request
}

func (f *fakeNotation) Translate(_ context.Context, req signwriting.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	gate := f.gates[req.Text]
	resp, err := f.responses[req.Text], f.err
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return resp, err
}

func (f *fakeNotation) snapshot() []signwriting.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]signwriting.Request(nil), f.requests...)
}

type fakeConnectivity struct{ online atomic.Bool }

func (f *fakeConnectivity) Online() bool { return f.online.Load() }

type fakeCapture struct {
	mu     sync.Mutex
	starts int
	stops  int
	loaded []string
}

func (f *fakeCapture) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return nil
}

func (f *fakeCapture) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeCapture) Load(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = append(f.loaded, ref)
	return nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (f *fakeRecorder) Record(_ context.Context, entry history.Entry) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return int64(len(f.entries)), nil
}

func (f *fakeRecorder) snapshot() []history.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]history.Entry(nil), f.entries...)
}

var errServiceDown = errors.New("service down")

type harness struct {
	o          *Orchestrator
	detector   *fakeDetector
	normalizer *fakeNormalizer
	pivot      *fakePivot
	describer  *fakeDescriber
	notation   *fakeNotation
	conn       *fakeConnectivity
	capture    *fakeCapture
	recorder   *fakeRecorder
}

type harnessOption func(*harness, *Options)

func withSpoken(lang string) harnessOption {
	return func(_ *harness, opts *Options) { opts.SpokenLanguage = lang }
}

func withOffline() harnessOption {
	return func(h *harness, _ *Options) { h.conn.online.Store(false) }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		detector:   &fakeDetector{results: map[string]string{}, gates: map[string]chan struct{}{}},
		normalizer: &fakeNormalizer{suggestions: map[string]string{}, gates: map[string]chan struct{}{}},
		pivot:      &fakePivot{translations: map[string]string{}, gates: map[string]chan struct{}{}},
		describer:  &fakeDescriber{descriptions: map[string]string{}, failures: map[string]error{}, gates: map[string]chan struct{}{}},
		notation:   &fakeNotation{responses: map[string]string{}, gates: map[string]chan struct{}{}},
		conn:       &fakeConnectivity{},
		capture:    &fakeCapture{},
		recorder:   &fakeRecorder{},
	}
	h.conn.online.Store(true)

	options := Options{
		SessionID:      "test-session",
		SignedLanguage: "ase",
		PivotSources:   []string{"zh"},
	}
	for _, opt := range opts {
		opt(h, &options)
	}

	h.o = New(Dependencies{
		Detector:     h.detector,
		Segmenter:    segment.New(true),
		Normalizer:   h.normalizer,
		Pivot:        h.pivot,
		Describer:    h.describer,
		Notation:     h.notation,
		Pose:         posegen.New(testPoseEndpoint),
		Metrics:      fsw.NewLoader(nil),
		Connectivity: h.conn,
		Capture:      h.capture,
		History:      h.recorder,
	}, options)
	t.Cleanup(h.o.Close)
	return h
}

func (h *harness) settle(t *testing.T) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.o.Wait(ctx); err != nil {
		t.Fatalf("wait for continuations: %v", err)
	}
	return h.o.Snapshot()
}
