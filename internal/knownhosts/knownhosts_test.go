package knownhosts

import (
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

func TestCallbackCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_hosts")

	_, err := Callback(path)
	if err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}

	if _, statErr := os.Stat(path); statErr != nil {
		t.Errorf("expected known_hosts file to be created: %v", statErr)
	}
}

func TestCallbackAcceptsAndRecordsUnknownHostKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_hosts")

	callback, err := Callback(path)
	if err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}

	_, pub, genErr := ed25519.GenerateKey(rand.Reader)
	if genErr != nil {
		t.Fatalf("failed to generate test key: %v", genErr)
	}

	publicKey, pkErr := ssh.NewPublicKey(pub)
	if pkErr != nil {
		t.Fatalf("failed to wrap test key: %v", pkErr)
	}

	addr := &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 22}

	// First sight of this host's key: base callback has no entry for it, so
	// Callback must trust it and append it rather than refusing the handshake.
	if err := callback("10.0.0.5:22", addr, publicKey); err != nil {
		t.Fatalf("expected an unknown host key to be accepted, got: %v", err)
	}

	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("failed to read known_hosts after accept: %v", readErr)
	}
	if !strings.Contains(string(raw), publicKey.Type()) {
		t.Errorf("expected accepted key to be appended to known_hosts, got: %q", string(raw))
	}

	// Second connection to the same host with the same key must also succeed,
	// whether served from the in-memory cache or the freshly written line.
	if err := callback("10.0.0.5:22", addr, publicKey); err != nil {
		t.Errorf("expected a previously accepted host key to keep succeeding, got: %v", err)
	}
}

func TestSanitizeNeverAbortsOnMissingEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_hosts")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	// No entry for this host exists - Sanitize must not panic or error out.
	Sanitize(path, []string{"10.0.0.1"}, 22)
}
