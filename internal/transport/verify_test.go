package transport

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalSHA256(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.bin")
	content := []byte("the quick brown fox jumps over the lazy dog")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	expectedSum := sha256.Sum256(content)
	expected := hex.EncodeToString(expectedSum[:])

	got, err := localSHA256(path)
	if err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}
	if got != expected {
		t.Errorf("expected hash %s but got %s", expected, got)
	}
}

func TestLocalSHA256MissingFile(t *testing.T) {
	_, err := localSHA256(filepath.Join(t.TempDir(), "missing.bin"))
	if err == nil {
		t.Errorf("expected error but got none")
	}
}

func TestLocalSHA256EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	expectedSum := sha256.Sum256(nil)
	expected := hex.EncodeToString(expectedSum[:])

	got, err := localSHA256(path)
	if err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}
	if got != expected {
		t.Errorf("expected hash %s but got %s", expected, got)
	}
}
