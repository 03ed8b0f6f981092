// Package transport implements the three interchangeable SFTP backends (spec §4.C)
// and their integrity verification (spec §4.D).
package transport

import (
	"fmt"
	"time"

	"golang.org/x/crypto/ssh"

	"fleetdeploy/m/v2/internal/logging"
)

// HostConn bundles what a backend needs to reach one host for one file operation.
// No connection is reused across operations (spec §5 "Transport ownership").
type HostConn struct {
	Address         string // host:port
	User            string
	Password        string
	HostKeyCallback ssh.HostKeyCallback
}

// Backend is the common capability every transport implements (spec §9 Design Notes:
// "Model the three transports as variants of a single capability").
type Backend interface {
	Name() string
	Send(conn HostConn, localPath, remotePath string) bool
}

// Backends lists the three transports in their documented fallback preference order
// (spec §4.C): interactive expect-driven sftp, native sftp client library, then the
// non-interactive sftp subprocess.
func Backends(sink *logging.Sink) []Backend {
	return []Backend{
		&interactiveBackend{sink: sink},
		&libraryBackend{sink: sink},
		&batchBackend{sink: sink},
	}
}

// SendWithFallback tries each backend in order, returning on the first success.
// A backend that fails for any reason yields to the next (spec §4.C).
func SendWithFallback(backends []Backend, conn HostConn, localPath, remotePath string, sink *logging.Sink) bool {
	for _, backend := range backends {
		ok := backend.Send(conn, localPath, remotePath)
		if ok {
			return true
		}
		sink.Printf(logging.VerbosityData, logging.IconInfo, "Transport %s failed for %s, trying next backend\n", backend.Name(), remotePath)
	}
	return false
}

// remoteDir returns the parent directory of an absolute remote path.
func remoteDir(remotePath string) string {
	idx := lastSlash(remotePath)
	if idx <= 0 {
		return "/"
	}
	return remotePath[:idx]
}

func lastSlash(path string) int {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return i
		}
	}
	return -1
}

// ensureRemoteDir creates the remote directory tree dir over an existing
// SSH client, one segment at a time - "already exists" is never an error (spec §4.C).
func ensureRemoteDir(client *ssh.Client, dir string) error {
	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to open session for mkdir: %v", err)
	}
	defer session.Close()

	// mkdir -p already satisfies "missing segments created one at a time, existing
	// segments are not an error" - it is the shell-native expression of that loop.
	err = session.Run(fmt.Sprintf("mkdir -p %q", dir))
	if err != nil {
		return fmt.Errorf("failed to create remote directory %s: %v", dir, err)
	}
	return nil
}

func dialSSH(conn HostConn) (*ssh.Client, error) {
	clientConfig := &ssh.ClientConfig{
		User:            conn.User,
		Auth:            []ssh.AuthMethod{ssh.Password(conn.Password)},
		HostKeyCallback: conn.HostKeyCallback,
		Timeout:         5 * time.Second,
	}
	return ssh.Dial("tcp", conn.Address, clientConfig)
}
