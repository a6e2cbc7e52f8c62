// Package filter narrows an event collection to what the operator asked for.
// Criteria never leave the client.
package filter

import (
	"net/url"
	"strings"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/pkg/models"
)

// Criteria are independent predicates, ANDed. An empty field matches everything.
type Criteria struct {
	Camera string `json:"camera,omitempty"` // case-insensitive substring of camera_id
	Type   string `json:"type,omitempty"`   // case-insensitive substring of event_type
	Date   string `json:"date,omitempty"`   // prefix of start_time, e.g. "2024-01-01"
}

// FromQuery reads camera, type and date query parameters.
func FromQuery(q url.Values) Criteria {
	return Criteria{
		Camera: q.Get("camera"),
		Type:   q.Get("type"),
		Date:   q.Get("date"),
	}
}

func (c Criteria) normalized() Criteria {
	return Criteria{
		Camera: strings.ToLower(strings.TrimSpace(c.Camera)),
		Type:   strings.ToLower(strings.TrimSpace(c.Type)),
		Date:   strings.TrimSpace(c.Date),
	}
}

func (c Criteria) IsZero() bool {
	return c.normalized() == Criteria{}
}

// Matches reports whether e passes all predicates.
func (c Criteria) Matches(e models.Event) bool {
	return c.normalized().matches(e)
}

func (c Criteria) matches(e models.Event) bool {
	if c.Camera != "" && !strings.Contains(strings.ToLower(e.CameraID), c.Camera) {
		return false
	}
	if c.Type != "" && !strings.Contains(strings.ToLower(e.EventType), c.Type) {
		return false
	}
	if c.Date != "" && !strings.HasPrefix(e.StartTime, c.Date) {
		return false
	}
	return true
}

// Apply returns the events matching c, in their original order. The input is
// never modified and the result is always a fresh slice, so it is safe to
// hold on to while the next poll replaces the collection.
func Apply(events []models.Event, c Criteria) []models.Event {
	n := c.normalized()
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if n.matches(e) {
			out = append(out, e)
		}
	}
	return out
}
