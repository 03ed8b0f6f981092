package fleet

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/sys/unix"

	"fleetdeploy/m/v2/internal/apperr"
	"fleetdeploy/m/v2/internal/config"
	"fleetdeploy/m/v2/internal/knownhosts"
	"fleetdeploy/m/v2/internal/ledger"
	"fleetdeploy/m/v2/internal/logging"
	"fleetdeploy/m/v2/internal/manifest"
	"fleetdeploy/m/v2/internal/metrics"
	"fleetdeploy/m/v2/internal/notify"
	"fleetdeploy/m/v2/internal/transport"
)

// RunConfig bundles everything the orchestrator needs to run a full deployment
// (spec §4.G).
type RunConfig struct {
	Hosts           []string
	Entries         []manifest.Entry
	LocalFileDir    string
	Mode            Mode
	Cfg             config.Config
	HostKeyCallback ssh.HostKeyCallback
	Sink            *logging.Sink
	Ledger          *ledger.Ledger
	Notifier        *notify.Notifier
	Failures        *apperr.Tracker
}

// Run drives round after round of worker goroutines until every host has
// completed or the process receives an interrupt (spec §4.G). It returns the
// set of hosts that never completed, empty on a clean finish.
func Run(rc RunConfig) (incomplete []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		rc.Sink.Printf(logging.VerbosityStandard, logging.IconWarning, "received %v, finishing in-flight transfers and stopping new rounds\n", sig)
		cancel()
	}()

	aggregator := metrics.New(len(rc.Hosts))
	backends := transport.Backends(rc.Sink)

	remaining := make(map[string]struct{}, len(rc.Hosts))
	for _, host := range rc.Hosts {
		remaining[host] = struct{}{}
	}

	rc.Notifier.Notify(notify.EventStart, fmt.Sprintf("deployment starting for %d hosts", len(rc.Hosts)))

	roundInterval := time.Duration(rc.Cfg.Retry.RoundIntervalSeconds) * time.Second

	for len(remaining) > 0 {
		if ctx.Err() != nil {
			break
		}

		hostsThisRound := make([]string, 0, len(remaining))
		for host := range remaining {
			hostsThisRound = append(hostsThisRound, host)
		}

		completedThisRound := runRound(ctx, rc, hostsThisRound, backends, aggregator)

		for _, host := range completedThisRound {
			delete(remaining, host)
			err := rc.Ledger.Append(host)
			if err != nil {
				rc.Sink.Warn("failed to append %s to completion ledger: %v", host, err)
			}
			rc.Notifier.Notify(notify.EventIPSuccess, fmt.Sprintf("host %s completed deployment", host))
		}

		if len(remaining) == 0 || ctx.Err() != nil {
			break
		}

		successCount, failCount, total := aggregator.Snapshot()
		rc.Sink.Printf(logging.VerbosityProgress, logging.IconInfo, "round complete: %d/%d succeeded, %d remaining, sleeping %v before next round\n", successCount, total, failCount, roundInterval)

		select {
		case <-time.After(roundInterval):
		case <-ctx.Done():
		}
	}

	for host := range remaining {
		incomplete = append(incomplete, host)
		if rc.Failures != nil {
			rc.Failures.Record(host, "", fmt.Errorf("deployment interrupted before completion"))
		}
	}

	successCount, _, total := aggregator.Snapshot()
	rc.Notifier.Notify(notify.EventComplete, fmt.Sprintf("deployment finished: %d/%d hosts succeeded", successCount, total))

	return incomplete
}

// runRound spawns exactly one worker goroutine per host in hosts - the pool
// for a round is sized to |remaining| with no further cap (spec §4.G, §5
// "Scheduling") - and returns the hosts that completed successfully.
func runRound(ctx context.Context, rc RunConfig, hosts []string, backends []transport.Backend, aggregator *metrics.Aggregator) (completed []string) {
	var wg sync.WaitGroup
	resultCh := make(chan string, len(hosts))

	deps := Deps{
		HostKeyCallback:     rc.HostKeyCallback,
		Backends:            backends,
		Sink:                rc.Sink,
		PingInterval:        time.Duration(rc.Cfg.Ping.IntervalSeconds) * time.Second,
		PingTimeout:         time.Duration(rc.Cfg.Ping.TimeoutSeconds) * time.Second,
		SSHAttemptsPerRound: rc.Cfg.Retry.SSHAttemptsPerRound,
		SSHAttemptInterval:  time.Duration(rc.Cfg.Retry.SSHAttemptIntervalSeconds) * time.Second,
	}

	for _, host := range hosts {
		host := host
		wg.Add(1)

		go func() {
			defer wg.Done()
			defer apperr.RecoverWorker(host, rc.Sink)

			spec := HostSpec{
				Host:         host,
				Port:         rc.Cfg.SSH.Port,
				User:         rc.Cfg.SSH.User,
				Password:     rc.Cfg.SSH.Password,
				Mode:         rc.Mode,
				LocalFileDir: rc.LocalFileDir,
				Entries:      rc.Entries,
			}

			elapsed, success := RunHost(ctx, spec, deps)
			if !success {
				return
			}

			aggregator.RecordSuccess(host, elapsed)
			if aggregator.ShouldEmit() {
				successCount, _, total := aggregator.Snapshot()
				rc.Sink.Printf(logging.VerbosityStandard, logging.IconSuccess, "progress: %d/%d hosts complete\n", successCount, total)
			}
			resultCh <- host
		}()
	}

	wg.Wait()
	close(resultCh)

	for host := range resultCh {
		completed = append(completed, host)
	}
	return completed
}

// SanitizeKnownHosts removes any stale host key for every host before the first
// round starts, matching the teacher's pre-flight ssh-keygen -R sweep (spec §4.B).
func SanitizeKnownHosts(knownHostsPath string, hosts []string, port int, sink *logging.Sink) {
	knownhosts.Sanitize(knownHostsPath, hosts, port)
}
