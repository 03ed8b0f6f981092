package transport

import (
	"bufio"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"fleetdeploy/m/v2/internal/logging"
)

// interactiveBackend is transport #1: the system sftp binary driven through its
// interactive prompt dialog, verified by local+remote SHA-256 comparison (spec §4.C,
// §4.D) - the strongest evidence of the three backends.
type interactiveBackend struct {
	sink *logging.Sink
}

func (b *interactiveBackend) Name() string { return "interactive sftp" }

// expectSegmentTimeout bounds each prompt round-trip; interactivePutTimeout bounds the put itself
// (spec §5 Timeouts: "10 s per expect segment, 30 s for the put itself").
const (
	expectSegmentTimeout = 10 * time.Second
	interactivePutTimeout = 30 * time.Second
)

func (b *interactiveBackend) Send(conn HostConn, localPath, remotePath string) bool {
	localHash, err := localSHA256(localPath)
	if err != nil {
		b.sink.Printf(logging.VerbosityStandard, logging.IconWarning, "%s: local file missing: %v\n", b.Name(), err)
		return false
	}

	dir := remoteDir(remotePath)

	cmd := exec.Command("sftp",
		"-o", "HostKeyAlgorithms=ssh-rsa",
		"-o", "StrictHostKeyChecking=no",
		"-o", "ConnectTimeout=10",
		"-P", portOnly(conn.Address),
		fmt.Sprintf("%s@%s", conn.User, hostOnly(conn.Address)),
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		b.sink.Printf(logging.VerbosityData, logging.IconInfo, "%s: stdin pipe failed: %v\n", b.Name(), err)
		return false
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		b.sink.Printf(logging.VerbosityData, logging.IconInfo, "%s: stdout pipe failed: %v\n", b.Name(), err)
		return false
	}
	cmd.Stderr = nil

	err = cmd.Start()
	if err != nil {
		b.sink.Printf(logging.VerbosityData, logging.IconInfo, "%s: failed to spawn sftp binary: %v\n", b.Name(), err)
		return false
	}

	reader := bufio.NewReader(stdout)

	ok := waitForPrompt(reader, "assword:", expectSegmentTimeout)
	if !ok {
		stdin.Close()
		cmd.Process.Kill()
		cmd.Wait()
		b.sink.Printf(logging.VerbosityData, logging.IconInfo, "%s: never saw password prompt\n", b.Name())
		return false
	}
	fmt.Fprintf(stdin, "%s\n", conn.Password)

	for _, segment := range remoteDirSegments(dir) {
		fmt.Fprintf(stdin, "mkdir %s\n", segment) // "already exists" errors are ignored, same as rm below
	}
	fmt.Fprintf(stdin, "rm %s\n", remotePath) // ignored errors - best-effort cleanup of a stale upload
	fmt.Fprintf(stdin, "put %s %s\n", localPath, remotePath)
	fmt.Fprintf(stdin, "quit\n")

	waitForPrompt(reader, "sftp>", interactivePutTimeout)
	stdin.Close()

	err = cmd.Wait()
	if err != nil {
		b.sink.Printf(logging.VerbosityData, logging.IconInfo, "%s: exited non-zero: %v\n", b.Name(), err)
		return false
	}

	// Remote hash is obtained over a fresh SSH channel, distinct from the sftp
	// subsystem session which has no shell exec capability (spec §4.D).
	client, err := dialSSH(conn)
	if err != nil {
		b.sink.Printf(logging.VerbosityStandard, logging.IconWarning, "%s: cannot verify hash, dial failed: %v\n", b.Name(), err)
		return true // exit-code evidence only, per spec fallback for unobtainable remote hash
	}
	defer client.Close()

	remoteHash, err := remoteSHA256(client, remotePath)
	if err != nil || remoteHash == "" {
		b.sink.Printf(logging.VerbosityStandard, logging.IconWarning, "%s: cannot verify hash: %v\n", b.Name(), err)
		return true
	}

	if remoteHash != localHash {
		b.sink.Printf(logging.VerbosityData, logging.IconInfo, "%s: hash mismatch local=%s remote=%s\n", b.Name(), localHash, remoteHash)
		return false
	}

	return true
}

// waitForPrompt reads from reader until marker appears in a line, or timeout elapses.
func waitForPrompt(reader *bufio.Reader, marker string, timeout time.Duration) bool {
	lineChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				lineChan <- line
			}
			if err != nil {
				errChan <- err
				return
			}
		}
	}()

	deadline := time.After(timeout)
	for {
		select {
		case line := <-lineChan:
			if strings.Contains(line, marker) {
				return true
			}
		case <-errChan:
			return false
		case <-deadline:
			return false
		}
	}
}

func hostOnly(address string) string {
	idx := strings.LastIndex(address, ":")
	if idx < 0 {
		return address
	}
	return address[:idx]
}

// remoteDirSegments returns every path prefix of dir from the top down, so the
// interactive session can mkdir one missing segment at a time (spec §4.C).
func remoteDirSegments(dir string) []string {
	var segments []string
	parts := strings.Split(strings.Trim(dir, "/"), "/")

	current := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		current += "/" + part
		segments = append(segments, current)
	}
	return segments
}

func portOnly(address string) string {
	idx := strings.LastIndex(address, ":")
	if idx < 0 || idx == len(address)-1 {
		return "22"
	}
	return address[idx+1:]
}
