package api

import (
	"time"

	"signflow/internal/history"
	"signflow/internal/logging"
	"signflow/internal/pose"
)

// FromHistoryEntry converts a stored entry to its API representation.
func FromHistoryEntry(entry history.Entry) HistoryEntry {
	notation := entry.Notation
	if notation == nil {
		notation = []string{}
	}
	return HistoryEntry{
		ID:             entry.ID,
		SessionID:      entry.SessionID,
		SourceText:     entry.SourceText,
		SpokenLanguage: entry.SpokenLanguage,
		SignedLanguage: entry.SignedLanguage,
		PivotText:      entry.PivotText,
		PoseReference:  entry.PoseReference,
		Notation:       notation,
		CreatedAt:      formatTime(entry.CreatedAt),
	}
}

// FromHistoryEntries converts a slice of stored entries.
func FromHistoryEntries(entries []history.Entry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromHistoryEntry(entry))
	}
	return out
}

// FromLogEvents converts hub events to their API representation.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, LogEvent{
			Sequence:      evt.Sequence,
			Timestamp:     formatTime(evt.Timestamp),
			Level:         evt.Level,
			Message:       evt.Message,
			Component:     evt.Component,
			Intent:        evt.Intent,
			SessionID:     evt.SessionID,
			CorrelationID: evt.CorrelationID,
			Fields:        evt.Fields,
		})
	}
	return out
}

// NewNotice stamps a notice for transport.
func NewNotice(seq uint64, at time.Time, level, message string) Notice {
	return Notice{Sequence: seq, Time: formatTime(at), Level: level, Message: message}
}

// ToFrame converts a captured frame to the pose package representation.
func (r FrameRequest) ToFrame() pose.Frame {
	frame := make(pose.Frame, len(r.Frame))
	for component, points := range r.Frame {
		converted := make([]pose.Landmark, len(points))
		for i, p := range points {
			converted[i] = pose.Landmark{X: p.X, Y: p.Y, Z: p.Z}
		}
		frame[component] = converted
	}
	return frame
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
