package apperr

import (
	"errors"
	"strings"
	"testing"
)

func TestTrackerRecordCollapsesNewlines(t *testing.T) {
	tracker := NewTracker()
	tracker.Record("10.0.0.1", "svc", errors.New("line one\nline two\r\n"))

	lines := tracker.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected 1 line but got %d", len(lines))
	}
	if strings.Contains(lines[0], "\n") {
		t.Errorf("expected embedded newlines to be collapsed, got %q", lines[0])
	}
}

func TestTrackerIgnoresNilError(t *testing.T) {
	tracker := NewTracker()
	tracker.Record("10.0.0.1", "svc", nil)

	if len(tracker.Lines()) != 0 {
		t.Errorf("expected no lines recorded for a nil error")
	}
}
