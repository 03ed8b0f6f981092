package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppendDeduplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "complete.txt")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}

	if err := l.Append("10.0.0.1"); err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}
	if err := l.Append("10.0.0.1"); err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}
	if err := l.Append("10.0.0.2"); err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read ledger: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) != 2 {
		t.Errorf("expected 2 lines but got %d: %v", len(lines), lines)
	}
}

func TestOpenClearsExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "complete.txt")
	if err := os.WriteFile(path, []byte("stale.host\n"), 0o644); err != nil {
		t.Fatalf("failed to seed fixture: %v", err)
	}

	l, err := Open(path)
	if err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}

	if err := l.Append("fresh.host"); err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read ledger: %v", err)
	}
	if strings.Contains(string(raw), "stale.host") {
		t.Errorf("expected ledger to be cleared at open, but found stale entry: %s", raw)
	}
}
