package translate

import (
	"fmt"
	"slices"
	"strings"
)

// Direction selects which way the session translates.
type Direction string

const (
	SpokenToSigned Direction = "spokenToSigned"
	SignedToSpoken Direction = "signedToSpoken"
)

func (d Direction) flipped() Direction {
	if d == SignedToSpoken {
		return SpokenToSigned
	}
	return SignedToSpoken
}

// InputMode selects where input comes from.
type InputMode string

const (
	InputWebcam InputMode = "webcam"
	InputUpload InputMode = "upload"
	InputText   InputMode = "text"
)

// ParseInputMode validates a user supplied input mode.
func ParseInputMode(value string) (InputMode, error) {
	switch mode := InputMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case InputWebcam, InputUpload, InputText:
		return mode, nil
	}
	return "", fmt.Errorf("unknown input mode %q", value)
}

// SignNotation is one generated sign token with its lazily filled extras.
type SignNotation struct {
	FSW          string  `json:"fsw"`
	Description  *string `json:"description,omitempty"`
	Illustration *string `json:"illustration,omitempty"`
}

// Snapshot is an immutable copy of the session state.
//
// Optional fields use pointers: nil means absent. SignNotation is nil while a
// recomputation is pending or when generation was skipped offline. It is
// empty once computed with no tokens or after generation failed.
type Snapshot struct {
	Direction        Direction      `json:"direction"`
	InputMode        InputMode      `json:"inputMode"`
	SpokenLanguage   *string        `json:"spokenLanguage"`
	SignedLanguage   *string        `json:"signedLanguage"`
	DetectedLanguage *string        `json:"detectedLanguage"`
	SourceText       string         `json:"sourceText"`
	PivotText        *string        `json:"pivotText"`
	Sentences        []string       `json:"sentences"`
	SuggestedText    *string        `json:"suggestedText"`
	SignNotation     []SignNotation `json:"signNotation"`
	PoseReference    *string        `json:"poseReference"`
	VideoReference   *string        `json:"videoReference"`
}

// EffectiveSpokenLanguage returns SpokenLanguage, falling back to the
// detected language.
func (s Snapshot) EffectiveSpokenLanguage() *string {
	if s.SpokenLanguage != nil {
		return s.SpokenLanguage
	}
	return s.DetectedLanguage
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.SpokenLanguage = clonePtr(s.SpokenLanguage)
	out.SignedLanguage = clonePtr(s.SignedLanguage)
	out.DetectedLanguage = clonePtr(s.DetectedLanguage)
	out.PivotText = clonePtr(s.PivotText)
	out.SuggestedText = clonePtr(s.SuggestedText)
	out.PoseReference = clonePtr(s.PoseReference)
	out.VideoReference = clonePtr(s.VideoReference)
	out.Sentences = slices.Clone(s.Sentences)
	if s.SignNotation != nil {
		out.SignNotation = make([]SignNotation, len(s.SignNotation))
		for i, n := range s.SignNotation {
			out.SignNotation[i] = SignNotation{
				FSW:          n.FSW,
				Description:  clonePtr(n.Description),
				Illustration: clonePtr(n.Illustration),
			}
		}
	}
	return out
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func ptr(s string) *string {
	return &s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Notice is a user-visible message about a failed or degraded action.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// InitValues are the one-time initial overrides (sil, spl, text).
type InitValues struct {
	SignedLanguage string
	SpokenLanguage string
	Text           string
}
