package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/client"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/poller"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/pkg/models"
)

func conf(v float64) *float64 { return &v }

func TestWriteEventTable(t *testing.T) {
	var buf bytes.Buffer
	writeEventTable(&buf, []models.Event{
		{CameraID: "cam1", EventType: "loitering", Confidence: conf(0.92), StartTime: "not-a-time", ClipPath: "clips/a.mp4", TxHash: "0xabc"},
		{CameraID: "cam2"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, rule and 2 rows, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "CAMERA") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	for _, want := range []string{"cam1", "loitering", "0.92", "not-a-time", "clips/a.mp4", "0xabc"} {
		if !strings.Contains(lines[2], want) {
			t.Errorf("row %q missing %q", lines[2], want)
		}
	}
	// absent fields render as placeholders
	for _, want := range []string{"N/A", "pending", "-"} {
		if !strings.Contains(lines[3], want) {
			t.Errorf("row %q missing %q", lines[3], want)
		}
	}
}

func TestRenderWatch(t *testing.T) {
	events := []models.Event{{CameraID: "cam1", EventType: "loitering"}}
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	last := renderWatch(&buf, poller.Snapshot{State: poller.StateFetching}, time.Time{})
	if buf.Len() != 0 || !last.IsZero() {
		t.Fatal("fetching snapshot should not render")
	}

	last = renderWatch(&buf, poller.Snapshot{State: poller.StateIdle, Events: events, UpdatedAt: at}, last)
	if !last.Equal(at) || !strings.Contains(buf.String(), "1 of 1 events") {
		t.Fatalf("expected a redraw, got %q", buf.String())
	}

	buf.Reset()
	last = renderWatch(&buf, poller.Snapshot{State: poller.StateIdle, Events: events, UpdatedAt: at}, last)
	if buf.Len() != 0 {
		t.Fatalf("unchanged snapshot should not redraw, got %q", buf.String())
	}

	buf.Reset()
	failed := poller.Snapshot{
		State:     poller.StateIdle,
		Events:    events,
		UpdatedAt: at,
		Err:       &client.NetworkError{Op: "fetch events", Err: errors.New("connection refused")},
	}
	renderWatch(&buf, failed, last)
	if !strings.Contains(buf.String(), "showing previous events") {
		t.Fatalf("expected a warning, got %q", buf.String())
	}
}

func TestDescribeError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&client.ValidationError{Field: "file", Reason: "no file selected"}, "no file selected"},
		{client.ErrUnauthorized, "Session expired"},
		{&client.NetworkError{Op: "x", Err: errors.New("refused")}, "Backend unreachable"},
		{&client.ServerError{Op: "login", StatusCode: 401, Detail: "Invalid username or password"}, "Invalid username or password"},
	}
	for _, tc := range cases {
		if got := describeError(tc.err); !strings.Contains(got, tc.want) {
			t.Errorf("describeError(%v) = %q, want it to contain %q", tc.err, got, tc.want)
		}
	}
}
