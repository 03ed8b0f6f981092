// Package remoteaction implements the move-mode post-transfer step: an atomic
// rename off the .BMT suffix followed by killing any process whose argv
// references the deployed filename (spec §4.E).
package remoteaction

import (
	"fmt"
	"path"
	"strings"

	"golang.org/x/crypto/ssh"

	"fleetdeploy/m/v2/internal/logging"
)


// Apply renames remotePath (still carrying the .BMT suffix) onto finalPath and kills
// any process matching the deployed filename. Failure of the rename aborts the step
// with an error; the caller is responsible for the file-level retry (spec §4.E).
func Apply(client *ssh.Client, remotePath, finalPath string, sink *logging.Sink) error {
	err := rename(client, remotePath, finalPath)
	if err != nil {
		return fmt.Errorf("failed to rename %s to %s: %v", remotePath, finalPath, err)
	}

	err = killMatchingProcesses(client, path.Base(finalPath), sink)
	if err != nil {
		// Failures to kill individual PIDs are logged but not fatal (spec §4.E step 2).
		sink.Warn("failed to kill processes for %s: %v", finalPath, err)
	}

	return nil
}

// rename moves remotePath onto finalPath. finalPath is computed by the manifest
// package directly from the Transfer Descriptor, not by stripping the .BMT suffix
// with a literal substring replacement - this sidesteps the source's bug of
// corrupting paths that legitimately contain ".BMT" elsewhere (spec §9 Open
// Question), without needing any suffix logic here at all.
func rename(client *ssh.Client, remotePath, finalPath string) error {
	session, err := client.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()

	return session.Run(fmt.Sprintf("mv %q %q", remotePath, finalPath))
}

func killMatchingProcesses(client *ssh.Client, filename string, sink *logging.Sink) error {
	session, err := client.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()

	command := fmt.Sprintf("ps | grep %q | grep -v grep | awk '{print $1}'", filename)
	output, err := session.Output(command)
	if err != nil {
		// A failed listing is treated like no matching processes, not as an error.
		// (An empty match alone does not land here: the pipeline's status is awk's.)
		return nil
	}

	var killErrs []string
	for _, token := range strings.Fields(string(output)) {
		if !isAllDigits(token) {
			continue
		}
		killErr := killPID(client, token)
		if killErr != nil {
			killErrs = append(killErrs, fmt.Sprintf("pid %s: %v", token, killErr))
		}
	}

	if len(killErrs) > 0 {
		return fmt.Errorf("%s", strings.Join(killErrs, "; "))
	}
	return nil
}

func killPID(client *ssh.Client, pid string) error {
	session, err := client.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()

	return session.Run(fmt.Sprintf("kill -9 %s", pid))
}

func isAllDigits(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
