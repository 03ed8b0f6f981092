// Package logging implements the engine's console+file log sink.
//
// Modeled on the teacher's printMessage/eventLog pattern: a small startup
// object with explicit init/teardown rather than a bare package global,
// per spec.md design note on wrapping process-wide resources.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/journal"
)

// Descriptive verbosity levels, mirroring the teacher's own constant block.
const (
	VerbosityNone int = iota
	VerbosityStandard
	VerbosityProgress
	VerbosityData
	VerbosityDebug
)

// Status icons used on every state-change line (spec §7).
const (
	IconRunning = "▶ RUNNING"
	IconSuccess = "✓ SUCCESS"
	IconFailed  = "✗ FAILED"
	IconWarning = "⚠ WARNING"
	IconInfo    = ">> INFO"
)

// Sink is the process-wide log destination: stdout plus an optional flush-after-write file.
type Sink struct {
	verbosity int

	printMutex sync.Mutex
	file       *os.File
}

// New opens logPath (if non-empty) and returns a Sink at the given verbosity.
func New(verbosity int, logPath string) (sink *Sink, err error) {
	sink = &Sink{verbosity: verbosity}

	if logPath == "" {
		return
	}

	sink.file, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		err = fmt.Errorf("failed to open deploy log %s: %v", logPath, err)
		return
	}
	return
}

// Close releases the log file, if any.
func (s *Sink) Close() {
	if s.file != nil {
		s.file.Close()
	}
}

// Printf writes a line at the given icon/level, guarded so concurrent worker
// goroutines never interleave a partial line.
func (s *Sink) Printf(level int, icon string, format string, vars ...interface{}) {
	if level > s.verbosity {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("%s %s "+format, append([]interface{}{timestamp, icon}, vars...)...)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}

	s.printMutex.Lock()
	defer s.printMutex.Unlock()

	fmt.Print(line)

	if s.file != nil {
		s.file.WriteString(line)
		s.file.Sync()
	}
}

// Warn logs a non-fatal problem and mirrors it into the local systemd journal,
// exactly as the teacher's recordDeploymentFailure does for its failure tracker.
func (s *Sink) Warn(format string, vars ...interface{}) {
	s.Printf(VerbosityStandard, IconWarning, format, vars...)
	message := fmt.Sprintf(format, vars...)
	journalErr := journal.Send(message, journal.PriWarning, nil)
	if journalErr != nil && !strings.Contains(journalErr.Error(), "could not initialize socket") {
		s.Printf(VerbosityDebug, IconWarning, "failed to mirror to journal: %v\n", journalErr)
	}
}

// Fatal logs a startup error and exits the process with status 1 (spec §6 CLI surface).
func (s *Sink) Fatal(description string, err error) {
	if err == nil {
		return
	}
	s.Printf(VerbosityNone, IconFailed, "%s: %v\n", description, err)
	os.Exit(1)
}
