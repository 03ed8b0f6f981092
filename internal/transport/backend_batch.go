package transport

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"fleetdeploy/m/v2/internal/logging"
)

// batchBackend is transport #3: the non-interactive sftp subprocess, fed
// "put"+"quit" on stdin, verified only by exit code (spec §4.C, §4.D).
type batchBackend struct {
	sink *logging.Sink
}

func (b *batchBackend) Name() string { return "batch sftp" }

// batchTotalTimeout bounds the entire subprocess (spec §5 Timeouts: "Subprocess SFTP: 30 s total").
const batchTotalTimeout = 30 * time.Second

func (b *batchBackend) Send(conn HostConn, localPath, remotePath string) bool {
	dir := remoteDir(remotePath)

	var script strings.Builder
	for _, segment := range remoteDirSegments(dir) {
		// The "-" prefix keeps batch mode going when the segment already exists.
		fmt.Fprintf(&script, "-mkdir %s\n", segment)
	}
	fmt.Fprintf(&script, "put %s %s\n", localPath, remotePath)
	fmt.Fprintf(&script, "quit\n")

	// Batch mode has no prompt to answer, so password auth is supplied through
	// sshpass rather than typed interactively (contrast with the interactive
	// backend, which answers the "Password:" prompt itself).
	args := []string{
		"-p", conn.Password, "sftp",
		"-b", "-",
		"-o", "HostKeyAlgorithms=ssh-rsa",
		"-o", "StrictHostKeyChecking=no",
		"-o", "ConnectTimeout=10",
		"-P", portOnly(conn.Address),
		fmt.Sprintf("%s@%s", conn.User, hostOnly(conn.Address)),
	}
	cmd := exec.Command("sshpass", args...)
	cmd.Stdin = strings.NewReader(script.String())

	done := make(chan error, 1)
	err := cmd.Start()
	if err != nil {
		b.sink.Printf(logging.VerbosityData, logging.IconInfo, "%s: failed to spawn sftp binary: %v\n", b.Name(), err)
		return false
	}
	go func() { done <- cmd.Wait() }()

	select {
	case err = <-done:
		if err != nil {
			b.sink.Printf(logging.VerbosityData, logging.IconInfo, "%s: exited non-zero: %v\n", b.Name(), err)
			return false
		}
		return true
	case <-time.After(batchTotalTimeout):
		cmd.Process.Kill()
		b.sink.Printf(logging.VerbosityData, logging.IconInfo, "%s: timed out\n", b.Name())
		return false
	}
}
