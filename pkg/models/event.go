package models

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// EventListResponse is the wrapped form of GET /events.
// The backend may also answer with a bare array, see DecodeEventCollection.
type EventListResponse struct {
	Count  int     `json:"count,omitempty"`
	Events []Event `json:"events"`
}

// Event is a single detection reported by the backend.
// Any field may be missing; an empty TxHash means anchoring is still pending.
type Event struct {
	CameraID   string   `json:"camera_id,omitempty"`
	EventType  string   `json:"event_type,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"` // 0..1
	StartTime  string   `json:"start_time,omitempty"` // ISO 8601, kept as sent
	EndTime    string   `json:"end_time,omitempty"`
	ClipPath   string   `json:"clip_path,omitempty"`
	EncPath    string   `json:"enc_path,omitempty"`
	Hash       string   `json:"hash,omitempty"` // evidence hash anchored on chain
	TxHash     string   `json:"tx_hash,omitempty"`
	User       string   `json:"user,omitempty"`
}

// Pending reports whether blockchain anchoring has not completed yet.
func (e Event) Pending() bool {
	return e.TxHash == ""
}

// TxStatus returns the transaction hash, or "pending".
func (e Event) TxStatus() string {
	if e.Pending() {
		return "pending"
	}
	return e.TxHash
}

// ConfidenceString formats the confidence with two decimals, "N/A" when absent.
func (e Event) ConfidenceString() string {
	if e.Confidence == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*e.Confidence, 'f', 2, 64)
}

// StartedAt parses StartTime. The backend emits both RFC3339 and naive
// ISO timestamps (no zone), the latter are read as UTC.
func (e Event) StartedAt() (time.Time, bool) {
	if e.StartTime == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, e.StartTime); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DecodeEventCollection normalizes the two response shapes of GET /events
// (bare array or {"events": [...]}) into a slice. Server order is kept.
func DecodeEventCollection(body []byte) ([]Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Event{}, nil
	}

	switch trimmed[0] {
	case '[':
		var events []Event
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("decode event array: %w", err)
		}
		if events == nil {
			events = []Event{}
		}
		return events, nil
	case '{':
		var wrapped EventListResponse
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("decode event object: %w", err)
		}
		if wrapped.Events == nil {
			return []Event{}, nil
		}
		return wrapped.Events, nil
	default:
		return nil, fmt.Errorf("unexpected events payload starting with %q", trimmed[0])
	}
}
