// Package apperr mirrors the teacher's broad-catch error propagation policy:
// per-host goroutines never let a panic escape, and a failed host's error is
// recorded onto a shared, mutex-guarded tracker rather than aborting the run
// (spec §7 "Error Handling Design").
package apperr

import (
	"encoding/json"
	"strings"
	"sync"

	"fleetdeploy/m/v2/internal/logging"
)

// HostFailure is one line of the run's parseable failure tracker, grounded on
// the teacher's ErrorInfo/recordDeploymentFailure shape.
type HostFailure struct {
	Host    string `json:"host"`
	File    string `json:"file,omitempty"`
	Message string `json:"message"`
}

// Tracker accumulates HostFailure entries across concurrent worker goroutines.
type Tracker struct {
	mutex   sync.Mutex
	entries []HostFailure
}

// NewTracker returns an empty, ready-to-use Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Record appends a failure, collapsing embedded newlines so each tracker line
// stays parseable as a single JSON object (spec §7, teacher's recordDeploymentFailure).
func (t *Tracker) Record(host, file string, err error) {
	if err == nil {
		return
	}
	message := err.Error()
	message = strings.ReplaceAll(message, "\n", " ")
	message = strings.ReplaceAll(message, "\r", " ")

	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.entries = append(t.entries, HostFailure{Host: host, File: file, Message: message})
}

// Lines renders every recorded failure as one JSON object per line.
func (t *Tracker) Lines() []string {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	lines := make([]string, 0, len(t.entries))
	for _, entry := range t.entries {
		encoded, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		lines = append(lines, string(encoded))
	}
	return lines
}

// RecoverWorker installs a deferred recover() guard around a per-host
// goroutine body, logging a panic instead of letting it take the process
// down, exactly as the teacher's sshDeploy does for each deployment routine.
func RecoverWorker(host string, sink *logging.Sink) {
	if fatalError := recover(); fatalError != nil {
		sink.Printf(logging.VerbosityNone, logging.IconFailed, "panic during deployment to host %s: %v\n", host, fatalError)
	}
}
