// Package sshconf builds the standard SSH client configuration shared by the
// readiness gate and every transport backend that dials out directly.
package sshconf

import (
	"time"

	"golang.org/x/crypto/ssh"
)

// connectTimeout bounds the SSH handshake (spec §5 Timeouts: "SSH handshake: <=5 s").
const connectTimeout = 5 * time.Second

// Build returns a ClientConfig authenticating with password only (spec §1 Non-goals:
// no auth schemes beyond password SSH).
func Build(user, password string, hostKeyCallback ssh.HostKeyCallback) *ssh.ClientConfig {
	return &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
		},
		HostKeyCallback: hostKeyCallback,
		Timeout:         connectTimeout,
	}
}
