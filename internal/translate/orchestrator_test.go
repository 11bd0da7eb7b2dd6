package translate

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"signflow/internal/pose"
)

func TestNewAppliesDefaults(t *testing.T) {
	o := New(Dependencies{}, Options{SpokenLanguage: "ZH"})
	defer o.Close()

	snap := o.Snapshot()
	if snap.Direction != SpokenToSigned || snap.InputMode != InputText {
		t.Fatalf("unexpected direction/mode: %s/%s", snap.Direction, snap.InputMode)
	}
	if deref(snap.SpokenLanguage) != "zh" {
		t.Fatalf("spoken language = %v, want zh", snap.SpokenLanguage)
	}
	if deref(snap.SignedLanguage) != DefaultSignedLanguage {
		t.Fatalf("signed language = %v, want %s", snap.SignedLanguage, DefaultSignedLanguage)
	}
	if snap.SignNotation != nil || snap.PoseReference != nil {
		t.Fatalf("expected no derived output yet: %#v", snap)
	}
}

func TestSetSourceTextBuildsOutputs(t *testing.T) {
	h := newHarness(t, withSpoken("en"))
	h.notation.responses["Hello world. Bye."] = "M518x529S14c20481x471 S33e00482x483"

	h.o.SetSourceText("  Hello world. Bye.  ")
	snap := h.settle(t)

	if len(snap.Sentences) != 2 {
		t.Fatalf("sentences = %q, want 2 entries", snap.Sentences)
	}
	if snap.PoseReference == nil || !strings.Contains(*snap.PoseReference, "text=Hello%20world.%20Bye.&spoken=en&signed=ase") {
		t.Fatalf("unexpected pose reference %v", snap.PoseReference)
	}

	reqs := h.notation.snapshot()
	if len(reqs) != 1 {
		t.Fatalf("expected one notation request, got %d", len(reqs))
	}
	if reqs[0].SourceLanguage != "en" || reqs[0].SignedLanguage != "ase" || len(reqs[0].Sentences) != 2 {
		t.Fatalf("unexpected request %#v", reqs[0])
	}

	if len(snap.SignNotation) != 2 {
		t.Fatalf("sign notation = %#v, want 2 tokens", snap.SignNotation)
	}
	for _, n := range snap.SignNotation {
		if !strings.ContainsAny(n.FSW[:1], "ABLMR") {
			t.Fatalf("token %q is not a full sign", n.FSW)
		}
	}
	if !strings.HasPrefix(snap.SignNotation[1].FSW, "M") {
		t.Fatalf("bare symbol should gain a box marker, got %q", snap.SignNotation[1].FSW)
	}

	entries := h.recorder.snapshot()
	if len(entries) != 1 || entries[0].SourceText != "Hello world. Bye." || len(entries[0].Notation) != 2 {
		t.Fatalf("unexpected history entries %#v", entries)
	}
}

func TestRapidSourceTextLastWins(t *testing.T) {
	h := newHarness(t, withSpoken("en"))
	gate := make(chan struct{})
	h.notation.gates["first"] = gate
	h.notation.responses["first"] = "M500x500S10000490x490"
	h.notation.responses["second"] = "M500x500S20000490x490"

	h.o.SetSourceText("first")
	h.o.SetSourceText("second")
	close(gate)
	snap := h.settle(t)

	if snap.SourceText != "second" {
		t.Fatalf("source text = %q", snap.SourceText)
	}
	if len(snap.SignNotation) != 1 || !strings.Contains(snap.SignNotation[0].FSW, "S20000") {
		t.Fatalf("stale notation leaked: %#v", snap.SignNotation)
	}
	entries := h.recorder.snapshot()
	if len(entries) != 1 || entries[0].SourceText != "second" {
		t.Fatalf("history should only hold the latest text: %#v", entries)
	}
	if len(h.notation.snapshot()) != 2 {
		t.Fatalf("expected both requests to be issued")
	}
}

func TestSetSpokenLanguageIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.detector.results["hallo welt"] = "de"
	h.notation.responses["hallo welt"] = "M500x500S10000490x490"

	h.o.SetSourceText("hallo welt")
	h.settle(t)

	lang := "en"
	h.o.SetSpokenLanguage(&lang)
	first := h.settle(t)
	h.o.SetSpokenLanguage(&lang)
	second := h.settle(t)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("state changed on repeated SetSpokenLanguage:\n%#v\n%#v", first, second)
	}
	if first.DetectedLanguage != nil {
		t.Fatalf("detected language should be cleared once a language is chosen, got %q", *first.DetectedLanguage)
	}
	if deref(first.SpokenLanguage) != "en" {
		t.Fatalf("spoken language = %v", first.SpokenLanguage)
	}
}

func TestDetectionFillsEffectiveLanguage(t *testing.T) {
	h := newHarness(t)
	h.detector.results["bonjour"] = "fr"

	h.o.SetSourceText("bonjour")
	snap := h.settle(t)

	if snap.SpokenLanguage != nil {
		t.Fatalf("spoken language should stay unset, got %q", *snap.SpokenLanguage)
	}
	if deref(snap.DetectedLanguage) != "fr" {
		t.Fatalf("detected language = %v, want fr", snap.DetectedLanguage)
	}
	if eff := snap.EffectiveSpokenLanguage(); deref(eff) != "fr" {
		t.Fatalf("effective language = %v", eff)
	}
	if !strings.Contains(deref(snap.PoseReference), "spoken=fr") {
		t.Fatalf("pose reference should use detected language: %v", snap.PoseReference)
	}
}

func TestDoubleFlipRestoresDirection(t *testing.T) {
	h := newHarness(t)
	h.detector.results["hallo"] = "de"
	h.o.SetSourceText("hallo")
	h.settle(t)

	h.o.FlipDirection()
	flipped := h.settle(t)
	if flipped.Direction != SignedToSpoken {
		t.Fatalf("direction = %s", flipped.Direction)
	}
	if deref(flipped.SpokenLanguage) != "de" {
		t.Fatalf("detected language should collapse into spoken language, got %v", flipped.SpokenLanguage)
	}
	if flipped.DetectedLanguage != nil {
		t.Fatal("detected language should be cleared after flip")
	}
	if flipped.InputMode != InputWebcam {
		t.Fatalf("input mode = %s, want webcam", flipped.InputMode)
	}
	if h.capture.starts != 1 {
		t.Fatalf("capture starts = %d, want 1", h.capture.starts)
	}

	h.o.FlipDirection()
	back := h.settle(t)
	if back.Direction != SpokenToSigned || back.InputMode != InputText {
		t.Fatalf("unexpected state after second flip: %s/%s", back.Direction, back.InputMode)
	}
	if back.DetectedLanguage != nil {
		t.Fatal("detected language should remain unset after two flips")
	}
}

func TestFlipWithVideoSwitchesToUpload(t *testing.T) {
	h := newHarness(t, withSpoken("en"))
	h.o.SetSourceText("hi")
	h.settle(t)
	h.o.SetVideoReference("https://render.test/hi.mp4")

	h.o.FlipDirection()
	snap := h.settle(t)

	if snap.InputMode != InputUpload {
		t.Fatalf("input mode = %s, want upload", snap.InputMode)
	}
	if snap.VideoReference != nil {
		t.Fatal("video reference should be cleared on flip")
	}
	if len(h.capture.loaded) != 1 || h.capture.loaded[0] != "https://render.test/hi.mp4" {
		t.Fatalf("capture loaded %v", h.capture.loaded)
	}
}

func TestPivotTranslationScenario(t *testing.T) {
	h := newHarness(t, withSpoken("zh"))
	h.pivot.translations["你好"] = "Hello"
	h.notation.responses["Hello"] = "M500x500S10000490x490"

	h.o.SetSourceText("你好")
	snap := h.settle(t)

	if deref(snap.PivotText) != "Hello" {
		t.Fatalf("pivot text = %v, want Hello", snap.PivotText)
	}
	if !reflect.DeepEqual(snap.Sentences, []string{"Hello"}) {
		t.Fatalf("sentences = %q", snap.Sentences)
	}
	reqs := h.notation.snapshot()
	if len(reqs) != 1 || reqs[0].Text != "Hello" || reqs[0].SourceLanguage != "en" {
		t.Fatalf("notation should be generated from the pivot text: %#v", reqs)
	}
	if !strings.Contains(deref(snap.PoseReference), "text=Hello&spoken=en&signed=ase") {
		t.Fatalf("unexpected pose reference %v", snap.PoseReference)
	}
	if len(snap.SignNotation) != 1 {
		t.Fatalf("sign notation = %#v", snap.SignNotation)
	}
}

func TestPivotFailureFallsBackToSource(t *testing.T) {
	h := newHarness(t, withSpoken("zh"))
	h.pivot.err = errServiceDown

	h.o.SetSourceText("你好")
	snap := h.settle(t)

	if snap.PivotText != nil {
		t.Fatalf("pivot text should stay unset, got %q", *snap.PivotText)
	}
	reqs := h.notation.snapshot()
	if len(reqs) != 1 || reqs[0].Text != "你好" || reqs[0].SourceLanguage != "zh" {
		t.Fatalf("expected fallback request over source text: %#v", reqs)
	}
}

func TestDetectedPivotLanguageTriggersPivot(t *testing.T) {
	h := newHarness(t)
	h.detector.results["谢谢"] = "zh"
	h.pivot.translations["谢谢"] = "Thanks"

	h.o.SetSourceText("谢谢")
	snap := h.settle(t)

	if h.pivot.callCount() != 1 {
		t.Fatalf("pivot calls = %d, want 1", h.pivot.callCount())
	}
	if deref(snap.PivotText) != "Thanks" {
		t.Fatalf("pivot text = %v", snap.PivotText)
	}
}

func TestEmptyTextClearsOutputs(t *testing.T) {
	h := newHarness(t)

	h.o.SetSourceText("   ")
	snap := h.settle(t)

	if snap.PoseReference != nil {
		t.Fatalf("pose reference should be unset, got %q", *snap.PoseReference)
	}
	if snap.SignNotation == nil || len(snap.SignNotation) != 0 {
		t.Fatalf("sign notation should be computed empty, got %#v", snap.SignNotation)
	}
	if snap.DetectedLanguage != nil {
		t.Fatal("detected language should be cleared for empty text")
	}
	if h.detector.callCount() != 0 || len(h.notation.snapshot()) != 0 {
		t.Fatal("empty text must not reach remote services")
	}
}

func TestOfflineSkipsRemoteCalls(t *testing.T) {
	h := newHarness(t, withSpoken("zh"), withOffline())

	h.o.SetSourceText("你好")
	h.o.SuggestAlternativeText()
	h.o.RequestSignNotationDescription("M500x500S10000490x490")
	snap := h.settle(t)

	if h.pivot.callCount() != 0 || h.normalizer.callCount() != 0 || h.describer.callCount() != 0 {
		t.Fatal("remote services were called while offline")
	}
	if len(h.notation.snapshot()) != 0 {
		t.Fatal("notation generated while offline")
	}
	if !strings.Contains(deref(snap.PoseReference), "spoken=zh") {
		t.Fatalf("pose reference should still be built offline: %v", snap.PoseReference)
	}
	if snap.SignNotation != nil {
		t.Fatalf("sign notation should stay unset offline, got %#v", snap.SignNotation)
	}
}

func TestDescriptionFailureOnlyAffectsItsEntry(t *testing.T) {
	h := newHarness(t, withSpoken("en"))
	h.notation.responses["two signs"] = "M518x529S14c20481x471 M518x533S1870a489x515"
	h.o.SetSourceText("two signs")
	snap := h.settle(t)
	if len(snap.SignNotation) != 2 {
		t.Fatalf("sign notation = %#v", snap.SignNotation)
	}
	first, second := snap.SignNotation[0].FSW, snap.SignNotation[1].FSW
	h.describer.failures[first] = errServiceDown
	h.describer.descriptions[second] = "flat hand moves forward"

	h.o.RequestSignNotationDescription(first)
	snap = h.settle(t)
	if deref(snap.SignNotation[0].Description) != errServiceDown.Error() {
		t.Fatalf("failed description should hold the error message, got %v", snap.SignNotation[0].Description)
	}
	if snap.SignNotation[1].Description != nil {
		t.Fatal("other entries must be untouched")
	}

	h.o.RequestSignNotationDescription(second)
	snap = h.settle(t)
	if deref(snap.SignNotation[1].Description) != "flat hand moves forward" {
		t.Fatalf("description = %v", snap.SignNotation[1].Description)
	}
	if deref(snap.SignNotation[0].Description) != errServiceDown.Error() {
		t.Fatal("earlier description was overwritten")
	}
}

func TestSupersededDescriptionIsDiscarded(t *testing.T) {
	h := newHarness(t, withSpoken("en"))
	h.notation.responses["two signs"] = "M518x529S14c20481x471 M518x533S1870a489x515"
	h.o.SetSourceText("two signs")
	snap := h.settle(t)
	first, second := snap.SignNotation[0].FSW, snap.SignNotation[1].FSW

	gate := make(chan struct{})
	h.describer.gates[first] = gate
	h.describer.descriptions[first] = "late"
	h.describer.descriptions[second] = "fresh"

	h.o.RequestSignNotationDescription(first)
	h.o.RequestSignNotationDescription(second)
	close(gate)
	snap = h.settle(t)

	if snap.SignNotation[0].Description != nil {
		t.Fatalf("superseded description was stored: %q", *snap.SignNotation[0].Description)
	}
	if deref(snap.SignNotation[1].Description) != "fresh" {
		t.Fatalf("description = %v", snap.SignNotation[1].Description)
	}
}

func TestSuggestionForDetectedLanguage(t *testing.T) {
	h := newHarness(t)
	h.detector.results["helo world"] = "en"
	h.normalizer.suggestions["helo world"] = "Hello world."

	h.o.SetSourceText("helo world")
	if snap := h.settle(t); deref(snap.DetectedLanguage) != "en" {
		t.Fatalf("detected language = %v", snap.DetectedLanguage)
	}
	h.o.SuggestAlternativeText()
	snap := h.settle(t)

	if deref(snap.SuggestedText) != "Hello world." {
		t.Fatalf("suggested text = %v", snap.SuggestedText)
	}
	if got := h.normalizer.languages(); !reflect.DeepEqual(got, []string{"en"}) {
		t.Fatalf("normalizer languages = %q", got)
	}
}

func TestSuggestionForConfirmedLanguage(t *testing.T) {
	h := newHarness(t)
	h.detector.results["helo world"] = "en"
	h.normalizer.suggestions["helo world"] = "Hello world."

	h.o.SetSourceText("helo world")
	h.settle(t)
	lang := "en"
	h.o.SetSpokenLanguage(&lang)
	snap := h.settle(t)

	if deref(snap.SuggestedText) != "Hello world." {
		t.Fatalf("suggested text = %v", snap.SuggestedText)
	}
	if got := h.normalizer.languages(); !reflect.DeepEqual(got, []string{"en"}) {
		t.Fatalf("normalizer languages = %q", got)
	}
}

func TestSuggestionDetectsChosenLanguageOnDemand(t *testing.T) {
	h := newHarness(t, withSpoken("en"))
	h.detector.results["helo"] = "en"
	h.normalizer.suggestions["helo"] = "hello"

	h.o.SetSourceText("helo")
	h.settle(t)
	if h.detector.callCount() != 0 {
		t.Fatal("an explicit language should not trigger detection on text input")
	}
	h.o.SuggestAlternativeText()
	snap := h.settle(t)

	if h.detector.callCount() != 1 {
		t.Fatalf("detector calls = %d, want 1", h.detector.callCount())
	}
	if deref(snap.SuggestedText) != "hello" {
		t.Fatalf("suggested text = %v", snap.SuggestedText)
	}
	if snap.DetectedLanguage != nil {
		t.Fatalf("detected language must stay unset with an explicit choice, got %q", *snap.DetectedLanguage)
	}
}

func TestSuggestionStoredOnlyWhenDifferent(t *testing.T) {
	h := newHarness(t)
	h.detector.results["Hello world."] = "en"

	h.o.SetSourceText("Hello world.")
	h.settle(t)
	h.o.SuggestAlternativeText()
	snap := h.settle(t)

	if h.normalizer.callCount() != 1 {
		t.Fatalf("normalizer calls = %d, want 1", h.normalizer.callCount())
	}
	if snap.SuggestedText != nil {
		t.Fatalf("identical suggestion should not be stored, got %q", *snap.SuggestedText)
	}
}

func TestSuggestionRequiresMatchingLanguages(t *testing.T) {
	h := newHarness(t, withSpoken("de"))
	h.detector.results["helo"] = "en"
	h.o.SetSourceText("helo")
	h.settle(t)

	h.o.SuggestAlternativeText()
	h.settle(t)
	if h.normalizer.callCount() != 0 {
		t.Fatal("suggestion should be skipped when a language was chosen against detection")
	}
}

func TestSuggestionSkippedWithoutLanguage(t *testing.T) {
	h := newHarness(t)

	h.o.SetSourceText("zzqx")
	if snap := h.settle(t); snap.DetectedLanguage != nil {
		t.Fatalf("detected language = %q", *snap.DetectedLanguage)
	}
	h.o.SuggestAlternativeText()
	snap := h.settle(t)

	if h.normalizer.callCount() != 0 || snap.SuggestedText != nil {
		t.Fatalf("no suggestion expected without a language, calls=%d", h.normalizer.callCount())
	}
}

func TestSupersededSuggestionIsDiscarded(t *testing.T) {
	h := newHarness(t)
	h.detector.results["helo"] = "en"
	h.detector.results["wrld"] = "en"
	h.normalizer.suggestions["helo"] = "hello"
	h.normalizer.suggestions["wrld"] = "world"
	gate := make(chan struct{})
	h.normalizer.gates["helo"] = gate

	h.o.SetSourceText("helo")
	h.settle(t)
	h.o.SuggestAlternativeText()
	h.o.SetSourceText("wrld")
	close(gate)
	snap := h.settle(t)
	if snap.SuggestedText != nil {
		t.Fatalf("stale suggestion leaked: %q", *snap.SuggestedText)
	}

	h.o.SuggestAlternativeText()
	snap = h.settle(t)
	if deref(snap.SuggestedText) != "world" {
		t.Fatalf("suggested text = %v", snap.SuggestedText)
	}
}

func TestSupersededDetectionIsDiscarded(t *testing.T) {
	h := newHarness(t)
	h.detector.results["hola amigo"] = "es"
	h.detector.results["hello friend"] = "en"
	gate := make(chan struct{})
	h.detector.gates["hola amigo"] = gate

	h.o.SetSourceText("hola amigo")
	h.o.SetSourceText("hello friend")
	close(gate)
	snap := h.settle(t)

	if deref(snap.DetectedLanguage) != "en" {
		t.Fatalf("detected language = %v, want en", snap.DetectedLanguage)
	}
	for _, req := range h.notation.snapshot() {
		if req.Text == "hola amigo" {
			t.Fatalf("superseded detection triggered generation: %#v", req)
		}
	}
}

func TestRapidSourceTextUnderPivotLastWins(t *testing.T) {
	h := newHarness(t, withSpoken("zh"))
	h.pivot.translations["一"] = "one"
	h.pivot.translations["二"] = "two"
	h.notation.responses["two"] = "M500x500S20000490x490"
	gate := make(chan struct{})
	h.pivot.gates["一"] = gate

	h.o.SetSourceText("一")
	h.o.SetSourceText("二")
	close(gate)
	snap := h.settle(t)

	if h.pivot.callCount() != 2 {
		t.Fatalf("pivot calls = %d, want 2", h.pivot.callCount())
	}
	if deref(snap.PivotText) != "two" {
		t.Fatalf("pivot text = %v, want two", snap.PivotText)
	}
	if !reflect.DeepEqual(snap.Sentences, []string{"two"}) {
		t.Fatalf("sentences = %q", snap.Sentences)
	}
	if !strings.Contains(deref(snap.PoseReference), "text=two&") {
		t.Fatalf("unexpected pose reference %v", snap.PoseReference)
	}
	for _, req := range h.notation.snapshot() {
		if req.Text == "one" {
			t.Fatalf("superseded pivot result reached generation: %#v", req)
		}
	}
}

func TestOfflinePivotKeepsExistingTranslation(t *testing.T) {
	h := newHarness(t, withSpoken("zh"))
	h.pivot.translations["你好"] = "Hello"
	h.notation.responses["Hello"] = "M500x500S10000490x490"

	h.o.SetSourceText("你好")
	before := h.settle(t)
	if deref(before.PivotText) != "Hello" || len(before.SignNotation) != 1 {
		t.Fatalf("unexpected online state %#v", before)
	}

	h.conn.online.Store(false)
	h.o.TranslateToPivot()
	after := h.settle(t)

	if !reflect.DeepEqual(before, after) {
		t.Fatalf("offline pivot request changed state:\nbefore %#v\nafter  %#v", before, after)
	}
	if h.pivot.callCount() != 1 {
		t.Fatalf("pivot calls = %d, want 1", h.pivot.callCount())
	}
}

func TestNotationFailureLeavesEmptyList(t *testing.T) {
	h := newHarness(t, withSpoken("en"))
	h.notation.err = errServiceDown

	h.o.SetSourceText("hello")
	snap := h.settle(t)

	if snap.SignNotation == nil || len(snap.SignNotation) != 0 {
		t.Fatalf("sign notation should be an empty list after failure, got %#v", snap.SignNotation)
	}
	if snap.PoseReference == nil {
		t.Fatal("pose reference should still be built")
	}
}

func TestSetInputMode(t *testing.T) {
	h := newHarness(t)

	if err := h.o.SetInputMode("hologram"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if err := h.o.SetInputMode(InputText); err != nil {
		t.Fatalf("SetInputMode: %v", err)
	}
	if h.capture.stops != 0 {
		t.Fatal("unchanged mode must not tear down capture")
	}
	if err := h.o.SetInputMode(InputWebcam); err != nil {
		t.Fatalf("SetInputMode: %v", err)
	}
	if h.capture.stops != 1 || h.capture.starts != 1 {
		t.Fatalf("capture stops/starts = %d/%d", h.capture.stops, h.capture.starts)
	}
	if got := h.o.Snapshot().InputMode; got != InputWebcam {
		t.Fatalf("input mode = %s", got)
	}
}

func TestImportPoseArtifact(t *testing.T) {
	h := newHarness(t, withSpoken("en"))
	h.o.SetVideoReference("video.mp4")

	h.o.ImportPoseArtifact("upload.pose")
	snap := h.o.Snapshot()
	if deref(snap.PoseReference) != "upload.pose" || snap.VideoReference != nil {
		t.Fatalf("unexpected state %#v", snap)
	}

	h.o.FlipDirection()
	h.o.ImportPoseArtifact("ignored.pose")
	if deref(h.o.Snapshot().PoseReference) == "ignored.pose" {
		t.Fatal("pose import must be ignored in signed-to-spoken direction")
	}
}

func TestResetVideoReference(t *testing.T) {
	h := newHarness(t)
	h.o.SetVideoReference("video.mp4")
	h.o.ResetVideoReference()
	if h.o.Snapshot().VideoReference != nil {
		t.Fatal("video reference should be cleared")
	}
}

func TestRecordCapturedFrameDoesNotTouchState(t *testing.T) {
	h := newHarness(t)
	before := h.o.Snapshot()
	h.o.RecordCapturedFrame(pose.Frame{
		pose.PoseLandmarks: {{X: 0.4, Y: 0.5}, {X: 0.6, Y: 0.5}},
	})
	if !reflect.DeepEqual(before, h.o.Snapshot()) {
		t.Fatal("captured frames must not mutate state")
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	h := newHarness(t, withSpoken("en"))
	h.notation.responses["hi"] = "M500x500S10000490x490"
	h.o.SetSourceText("hi")
	snap := h.settle(t)

	*snap.SpokenLanguage = "xx"
	snap.SignNotation[0].FSW = "mutated"
	snap.Sentences[0] = "mutated"

	fresh := h.o.Snapshot()
	if deref(fresh.SpokenLanguage) != "en" || fresh.SignNotation[0].FSW == "mutated" || fresh.Sentences[0] == "mutated" {
		t.Fatalf("snapshot shares memory with state: %#v", fresh)
	}
}

func TestSubscribeDeliversLatest(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	updates := h.o.Subscribe(ctx)

	select {
	case snap := <-updates:
		if deref(snap.SignedLanguage) != "ase" {
			t.Fatalf("initial snapshot signed language = %v", snap.SignedLanguage)
		}
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	h.o.SetSignedLanguage("bfi")
	h.o.SetSignedLanguage("gsg")
	h.settle(t)

	select {
	case snap := <-updates:
		if deref(snap.SignedLanguage) != "gsg" {
			t.Fatalf("latest snapshot signed language = %v", snap.SignedLanguage)
		}
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}

	cancel()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-updates:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription channel not closed")
		}
	}
}

func TestInitializeAppliesOnce(t *testing.T) {
	h := newHarness(t, withSpoken("zh"))
	h.notation.responses["Hi"] = "M500x500S10000490x490"

	values, err := ParseInitURL("https://sign.test/translate?sil=BFI&spl=en&text=Hi")
	if err != nil {
		t.Fatalf("ParseInitURL: %v", err)
	}
	if values.SignedLanguage != "bfi" || values.SpokenLanguage != "en" || values.Text != "Hi" {
		t.Fatalf("unexpected init values %#v", values)
	}

	if err := h.o.Initialize(values); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	snap := h.settle(t)
	if deref(snap.SignedLanguage) != "bfi" || deref(snap.SpokenLanguage) != "en" || snap.SourceText != "Hi" {
		t.Fatalf("init values not applied: %#v", snap)
	}
	if len(snap.SignNotation) != 1 {
		t.Fatalf("expected first recomputation to run, got %#v", snap.SignNotation)
	}

	if err := h.o.Initialize(InitValues{Text: "again"}); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second Initialize error = %v", err)
	}
}

func TestParseInitURLAcceptsBareQuery(t *testing.T) {
	values, err := ParseInitURL("?spl=de&text=Guten%20Tag")
	if err != nil {
		t.Fatalf("ParseInitURL: %v", err)
	}
	if values.SpokenLanguage != "de" || values.Text != "Guten Tag" || values.SignedLanguage != "" {
		t.Fatalf("unexpected values %#v", values)
	}
}

func TestSignedToSpokenIgnoresTextPipeline(t *testing.T) {
	h := newHarness(t, withSpoken("en"))
	h.o.FlipDirection()
	h.o.SetSourceText("hello")
	snap := h.settle(t)

	if snap.SourceText != "hello" {
		t.Fatalf("source text = %q", snap.SourceText)
	}
	if len(h.notation.snapshot()) != 0 || snap.PoseReference != nil {
		t.Fatal("signed-to-spoken direction must not run the spoken pipeline")
	}
}
