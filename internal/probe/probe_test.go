package probe

import (
	"testing"
	"time"
)

func TestReachableLoopbackSucceeds(t *testing.T) {
	if !Reachable("127.0.0.1", 2*time.Second) {
		t.Errorf("expected loopback to be reachable")
	}
}

func TestReachableUnroutableFails(t *testing.T) {
	// TEST-NET-1 reserved block, never routed - ping should fail within the timeout.
	if Reachable("192.0.2.1", 1*time.Second) {
		t.Errorf("expected unroutable test address to be unreachable")
	}
}
