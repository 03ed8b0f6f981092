package transport

import (
	"testing"

	"fleetdeploy/m/v2/internal/logging"
)

type fakeBackend struct {
	name    string
	succeed bool
	called  bool
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Send(conn HostConn, localPath, remotePath string) bool {
	f.called = true
	return f.succeed
}

func TestSendWithFallbackStopsAtFirstSuccess(t *testing.T) {
	sink, _ := logging.New(logging.VerbosityNone, "")

	first := &fakeBackend{name: "first", succeed: false}
	second := &fakeBackend{name: "second", succeed: true}
	third := &fakeBackend{name: "third", succeed: true}

	ok := SendWithFallback([]Backend{first, second, third}, HostConn{}, "local", "remote", sink)
	if !ok {
		t.Fatalf("expected overall success")
	}
	if !first.called || !second.called {
		t.Errorf("expected first and second backends to be tried")
	}
	if third.called {
		t.Errorf("expected third backend to be skipped once second succeeded")
	}
}

func TestSendWithFallbackAllFail(t *testing.T) {
	sink, _ := logging.New(logging.VerbosityNone, "")

	backends := []Backend{
		&fakeBackend{name: "first", succeed: false},
		&fakeBackend{name: "second", succeed: false},
	}

	ok := SendWithFallback(backends, HostConn{}, "local", "remote", sink)
	if ok {
		t.Errorf("expected overall failure when every backend fails")
	}
}

func TestRemoteDir(t *testing.T) {
	tests := []struct {
		name       string
		remotePath string
		expected   string
	}{
		{name: "Nested path", remotePath: "/usr/local/bin/svc.BMT", expected: "/usr/local/bin"},
		{name: "Root-level file", remotePath: "/svc.BMT", expected: "/"},
		{name: "No leading slash", remotePath: "svc.BMT", expected: "/"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := remoteDir(test.remotePath)
			if got != test.expected {
				t.Errorf("expected %s but got %s", test.expected, got)
			}
		})
	}
}
