package fleet

import (
	"context"
	"testing"
	"time"

	"fleetdeploy/m/v2/internal/logging"
	"fleetdeploy/m/v2/internal/manifest"
	"fleetdeploy/m/v2/internal/transport"
)

type fakeBackend struct {
	succeedAfter int
	attempts     int
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Send(conn transport.HostConn, localPath, remotePath string) bool {
	f.attempts++
	return f.attempts > f.succeedAfter
}

func TestSendWithInfiniteRetrySucceedsEventually(t *testing.T) {
	sink, _ := logging.New(logging.VerbosityNone, "")
	backend := &fakeBackend{succeedAfter: 2}
	deps := Deps{Backends: []transport.Backend{backend}, Sink: sink}

	// The backoff is not shortened here: with a context that is never cancelled,
	// sendWithInfiniteRetry sleeps the full fileRetryBackoff between attempts,
	// so this test only exercises the eventual-success path, not timing.
	ctx := context.Background()

	done := make(chan bool, 1)
	go func() { done <- sendWithInfiniteRetry(ctx, transport.HostConn{}, manifest.Descriptor{}, deps) }()

	select {
	case ok := <-done:
		if !ok {
			t.Errorf("expected eventual success")
		}
	case <-time.After(20 * time.Second):
		t.Fatalf("sendWithInfiniteRetry did not return in time")
	}

	if backend.attempts != 3 {
		t.Errorf("expected 3 attempts but got %d", backend.attempts)
	}
}

func TestSleepOrCancelReturnsFalseOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if sleepOrCancel(ctx, time.Minute) {
		t.Errorf("expected sleepOrCancel to return false for an already-cancelled context")
	}
}

func TestSleepOrCancelReturnsTrueOnElapse(t *testing.T) {
	ctx := context.Background()
	if !sleepOrCancel(ctx, time.Millisecond) {
		t.Errorf("expected sleepOrCancel to return true once the duration elapses")
	}
}
