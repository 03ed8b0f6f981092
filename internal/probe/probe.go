// Package probe implements the reachability prober and the SSH readiness gate
// (spec §4.A, §4.B) - the two-stage ladder that decides when a host is worth
// an expensive SFTP dial.
package probe

import (
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"

	"fleetdeploy/m/v2/internal/logging"
)

// Reachable pings host once, treating a zero exit status as success. Any OS error
// or timeout is non-fatal and reported simply as false (spec §4.A).
func Reachable(host string, timeout time.Duration) bool {
	timeoutSeconds := fmt.Sprintf("%d", int(timeout.Seconds()))
	if timeoutSeconds == "0" {
		timeoutSeconds = "1"
	}

	cmd := exec.Command("ping", "-c", "1", "-W", timeoutSeconds, host)
	err := cmd.Run()
	return err == nil
}

// Config bundles the tunables the readiness ladder needs out of the Configuration Record.
type Config struct {
	PingInterval          time.Duration
	PingTimeout           time.Duration
	SSHAttemptsPerRound   int
	SSHAttemptInterval    time.Duration
	SSHClientConfigForHost func(host string) *ssh.ClientConfig
	SSHPort               int
}

// WaitReady blocks until host is reachable by ping and, when an SSH client config
// is available, has answered a trivial `echo test` command within the connect
// budget. It returns only on success, never on failure (spec §4.B).
func WaitReady(host string, cfg Config, sink *logging.Sink) {
	failedPings := 0

	for {
		for !Reachable(host, cfg.PingTimeout) {
			failedPings++
			if failedPings%10 == 0 {
				sink.Printf(logging.VerbosityProgress, logging.IconInfo, "Host %s: still unreachable after %d ping attempts\n", host, failedPings)
			}
			time.Sleep(cfg.PingInterval)
		}

		sink.Printf(logging.VerbosityProgress, logging.IconInfo, "Host %s: ping succeeded, attempting SSH readiness\n", host)

		if cfg.SSHClientConfigForHost == nil {
			// Library-absent fallback (spec §4.B): no SSH client available, return as
			// soon as ping succeeds.
			return
		}

		if sshRoundSucceeds(host, cfg, sink) {
			return
		}

		// Every attempt in the round failed - the host likely rebooted mid-ladder.
		// Go back to pinging (spec §4.B step 3).
		sink.Printf(logging.VerbosityProgress, logging.IconInfo, "Host %s: SSH round exhausted, returning to ping phase\n", host)
		failedPings = 0
	}
}

func sshRoundSucceeds(host string, cfg Config, sink *logging.Sink) bool {
	sshConfig := cfg.SSHClientConfigForHost(host)
	address := net.JoinHostPort(host, strconv.Itoa(cfg.SSHPort))

	for attempt := 0; attempt < cfg.SSHAttemptsPerRound; attempt++ {
		ok := trySSHEcho(address, sshConfig)
		if ok {
			return true
		}
		time.Sleep(cfg.SSHAttemptInterval)
	}
	return false
}

// echoExecTimeout bounds the `echo test` probe command (spec §5 Timeouts).
const echoExecTimeout = 3 * time.Second

// trySSHEcho opens a connection and runs `echo test`, requiring exit status 0
// within a short connect budget (spec §4.B step 2).
func trySSHEcho(address string, sshConfig *ssh.ClientConfig) bool {
	client, err := ssh.Dial("tcp", address, sshConfig)
	if err != nil {
		return false
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return false
	}
	defer session.Close()

	done := make(chan error, 1)
	go func() {
		done <- session.Run("echo test")
	}()

	select {
	case err = <-done:
		return err == nil
	case <-time.After(echoExecTimeout):
		session.Signal(ssh.SIGKILL)
		session.Close()
		return false
	}
}
