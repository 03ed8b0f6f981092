package metrics

import (
	"testing"
	"time"
)

func TestRecordSuccessIsIdempotentPerHost(t *testing.T) {
	agg := New(3)

	agg.RecordSuccess("host1", 5*time.Second)
	agg.RecordSuccess("host1", 9*time.Second) // duplicate record must not double-count

	successCount, failCount, total := agg.Snapshot()
	if successCount != 1 {
		t.Errorf("expected successCount 1 but got %d", successCount)
	}
	if failCount != 2 {
		t.Errorf("expected failCount 2 but got %d", failCount)
	}
	if total != 3 {
		t.Errorf("expected total 3 but got %d", total)
	}
}

func TestShouldEmitThrottles(t *testing.T) {
	agg := New(1)

	if !agg.ShouldEmit() {
		t.Errorf("expected first call to ShouldEmit to return true")
	}
	if agg.ShouldEmit() {
		t.Errorf("expected immediate second call to ShouldEmit to return false")
	}
}
