// Package fleet implements the per-host worker (spec §4.F) and the fleet
// orchestrator (spec §4.G) that drives one worker per host concurrently.
package fleet

import (
	"context"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"

	"fleetdeploy/m/v2/internal/logging"
	"fleetdeploy/m/v2/internal/manifest"
	"fleetdeploy/m/v2/internal/probe"
	"fleetdeploy/m/v2/internal/remoteaction"
	"fleetdeploy/m/v2/internal/sshconf"
	"fleetdeploy/m/v2/internal/transport"
)

// Mode is the Deployment Mode enum from spec §3.
type Mode int

const (
	ModeMove Mode = iota
	ModeNoMove
)

// fileRetryBackoff and moveRetryBackoff match spec §5's named sleep cadences.
const (
	fileRetryBackoff = 5 * time.Second
	moveRetryBackoff = 2 * time.Second
)

// HostSpec bundles everything a worker needs for one host's run (spec §4.F).
type HostSpec struct {
	Host         string
	Port         int
	User         string
	Password     string
	Mode         Mode
	LocalFileDir string
	Entries      []manifest.Entry
}

// Deps bundles the shared, read-only collaborators every worker uses.
type Deps struct {
	HostKeyCallback     ssh.HostKeyCallback
	Backends            []transport.Backend
	Sink                *logging.Sink
	PingInterval        time.Duration
	PingTimeout         time.Duration
	SSHAttemptsPerRound int
	SSHAttemptInterval  time.Duration
}

// RunHost composes readiness, transfer, and move-mode handling for one host
// (spec §4.F). It returns true once every manifest entry has completed or been
// skipped for missing local content; the only way it returns false is when ctx
// is cancelled, since readiness and transfer otherwise retry without limit.
func RunHost(ctx context.Context, spec HostSpec, deps Deps) (elapsed time.Duration, success bool) {
	start := time.Now()

	address := net.JoinHostPort(spec.Host, strconv.Itoa(spec.Port))

	probe.WaitReady(spec.Host, probe.Config{
		PingInterval:        deps.PingInterval,
		PingTimeout:         deps.PingTimeout,
		SSHAttemptsPerRound: deps.SSHAttemptsPerRound,
		SSHAttemptInterval:  deps.SSHAttemptInterval,
		SSHPort:             spec.Port,
		SSHClientConfigForHost: func(host string) *ssh.ClientConfig {
			return sshconf.Build(spec.User, spec.Password, deps.HostKeyCallback)
		},
	}, deps.Sink)

	if ctx.Err() != nil {
		return time.Since(start), false
	}

	conn := transport.HostConn{
		Address:         address,
		User:            spec.User,
		Password:        spec.Password,
		HostKeyCallback: deps.HostKeyCallback,
	}

	for _, entry := range spec.Entries {
		descriptor := manifest.Derive(entry, spec.LocalFileDir)

		_, statErr := os.Stat(descriptor.LocalPath)
		if statErr != nil {
			// Missing local file: logged and skipped, not retried (spec §4.F).
			deps.Sink.Warn("Host %s: local file %s missing, skipping entry", spec.Host, descriptor.LocalPath)
			continue
		}

		ok := deliverEntry(ctx, spec, conn, descriptor, deps)
		if !ok {
			// Only a cancellation can abort the infinite-retry loop early.
			return time.Since(start), false
		}
	}

	return time.Since(start), true
}

// deliverEntry drives send_with_infinite_retry plus, in move mode, the
// post-transfer action, re-entering the whole file loop on a move failure
// (spec §4.E, §4.F). It returns false only on cooperative cancellation.
func deliverEntry(ctx context.Context, spec HostSpec, conn transport.HostConn, descriptor manifest.Descriptor, deps Deps) bool {
	for {
		sent := sendWithInfiniteRetry(ctx, conn, descriptor, deps)
		if !sent {
			return false // cancelled while waiting on a backend
		}

		if spec.Mode == ModeNoMove {
			return true
		}

		client, err := ssh.Dial("tcp", conn.Address, sshconf.Build(conn.User, conn.Password, conn.HostKeyCallback))
		if err != nil {
			deps.Sink.Printf(logging.VerbosityData, logging.IconInfo, "Host %s: move-mode dial failed, retrying upload: %v\n", spec.Host, err)
			if !sleepOrCancel(ctx, moveRetryBackoff) {
				return false
			}
			continue
		}

		applyErr := remoteaction.Apply(client, descriptor.RemotePath, descriptor.FinalRemotePath, deps.Sink)
		client.Close()
		if applyErr != nil {
			deps.Sink.Printf(logging.VerbosityData, logging.IconInfo, "Host %s: %v, retrying upload+move\n", spec.Host, applyErr)
			if !sleepOrCancel(ctx, moveRetryBackoff) {
				return false
			}
			continue // re-enter the per-file loop: re-upload, re-move (spec §4.E)
		}

		return true
	}
}

// sendWithInfiniteRetry tries the backend fallback chain, sleeping and looping
// on failure with no attempt cap (spec §4.C, §9 "Infinite retry as a first-class pattern").
func sendWithInfiniteRetry(ctx context.Context, conn transport.HostConn, descriptor manifest.Descriptor, deps Deps) bool {
	for {
		ok := transport.SendWithFallback(deps.Backends, conn, descriptor.LocalPath, descriptor.RemotePath, deps.Sink)
		if ok {
			return true
		}

		if !sleepOrCancel(ctx, fileRetryBackoff) {
			return false
		}
	}
}

// sleepOrCancel sleeps for d, returning false early if ctx is cancelled - the
// only way a worker's loop exits before success (spec §5 "Cancellation").
func sleepOrCancel(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
