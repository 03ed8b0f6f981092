package sshconf

import (
	"testing"

	"golang.org/x/crypto/ssh"
)

func TestBuildUsesPasswordAuthOnly(t *testing.T) {
	cfg := Build("deploy", "secret", ssh.InsecureIgnoreHostKey())

	if cfg.User != "deploy" {
		t.Errorf("expected user deploy but got %s", cfg.User)
	}
	if len(cfg.Auth) != 1 {
		t.Fatalf("expected exactly one auth method but got %d", len(cfg.Auth))
	}
	if cfg.Timeout != connectTimeout {
		t.Errorf("expected timeout %v but got %v", connectTimeout, cfg.Timeout)
	}
}
