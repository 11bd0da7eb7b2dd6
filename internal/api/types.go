package api

import (
	"signflow/internal/connectivity"
	"signflow/internal/translate"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// StateResponse wraps the current session snapshot.
type StateResponse struct {
	State translate.Snapshot `json:"state"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool                `json:"running"`
	PID           int                 `json:"pid"`
	SessionID     string              `json:"sessionId"`
	LockFilePath  string              `json:"lockFilePath"`
	HistoryDBPath string              `json:"historyDbPath,omitempty"`
	Initialized   bool                `json:"initialized"`
	Connectivity  connectivity.Status `json:"connectivity"`
}

// TextRequest sets the source text.
type TextRequest struct {
	Text string `json:"text"`
}

// LanguageRequest sets a language. A null or empty spoken language means
// detect automatically.
type LanguageRequest struct {
	Language *string `json:"language"`
}

// InputModeRequest switches the input mode.
type InputModeRequest struct {
	Mode string `json:"mode"`
}

// DescribeRequest asks for the description of one sign token.
type DescribeRequest struct {
	FSW string `json:"fsw"`
}

// ReferenceRequest carries a pose or video reference.
type ReferenceRequest struct {
	Reference string `json:"reference"`
}

// FrameRequest carries one captured holistic frame.
type FrameRequest struct {
	Frame map[string][]Landmark `json:"frame"`
}

// Landmark is one captured point.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// InitRequest applies the one-time initial overrides. URL may be a full URL
// or a bare query string; the explicit fields win over values parsed from it.
type InitRequest struct {
	URL            string `json:"url,omitempty"`
	SignedLanguage string `json:"signedLanguage,omitempty"`
	SpokenLanguage string `json:"spokenLanguage,omitempty"`
	Text           string `json:"text,omitempty"`
}

// ConnectivityRequest pins connectivity online or offline. Null clears the
// override.
type ConnectivityRequest struct {
	Online *bool `json:"online"`
}

// ExportRequest selects the export directory.
type ExportRequest struct {
	Dir string `json:"dir"`
}

// ExportResponse reports the written artifact.
type ExportResponse struct {
	Path string `json:"path"`
}

// HistoryEntry is a recorded translation.
type HistoryEntry struct {
	ID             int64    `json:"id"`
	SessionID      string   `json:"sessionId,omitempty"`
	SourceText     string   `json:"sourceText"`
	SpokenLanguage string   `json:"spokenLanguage,omitempty"`
	SignedLanguage string   `json:"signedLanguage"`
	PivotText      string   `json:"pivotText,omitempty"`
	PoseReference  string   `json:"poseReference,omitempty"`
	Notation       []string `json:"notation"`
	CreatedAt      string   `json:"createdAt"`
}

// HistoryResponse wraps a page of history entries.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// Notice is a user-visible message raised by the session.
type Notice struct {
	Sequence uint64 `json:"seq"`
	Time     string `json:"time"`
	Level    string `json:"level"`
	Message  string `json:"message"`
}

// NoticesResponse wraps notices newer than the requested sequence.
type NoticesResponse struct {
	Notices []Notice `json:"notices"`
	Next    uint64   `json:"next"`
}

// LogEvent is a structured log line for live tailing.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     string            `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	Intent        string            `json:"intent,omitempty"`
	SessionID     string            `json:"sessionId,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// LogStreamResponse wraps a batch of log events and the cursor for the next
// request.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}
