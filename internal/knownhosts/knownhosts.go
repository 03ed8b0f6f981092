// Package knownhosts builds SSH host-key callbacks and pre-sanitizes stale entries
// from the local known_hosts store (spec §4.H).
package knownhosts

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"sync"

	"golang.org/x/crypto/ssh"
	xknownhosts "golang.org/x/crypto/ssh/knownhosts"
)

// Callback builds a trust-on-first-use host key verification callback backed by
// path, creating the file first if it does not yet exist. Any key the file does
// not already recognize - which, right after Sanitize's pre-flight sweep, is
// every host's key on its very next connection - is accepted and appended to
// path rather than rejected. This mirrors the teacher's own
// createCustomHostKeyCallback (controller.go), minus its interactive y/N
// prompt: workers here run unattended and concurrently, so there is no
// terminal to prompt against.
func Callback(path string) (callback ssh.HostKeyCallback, err error) {
	_, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		var file *os.File
		file, err = os.Create(path)
		if err != nil {
			err = fmt.Errorf("failed to create known_hosts file %s: %v", path, err)
			return
		}
		file.Close()
	} else if statErr != nil {
		err = fmt.Errorf("failed to stat known_hosts file %s: %v", path, statErr)
		return
	}

	base, buildErr := xknownhosts.New(path)
	if buildErr != nil {
		err = fmt.Errorf("failed to parse known_hosts file %s: %v", path, buildErr)
		return
	}

	var mutex sync.Mutex
	accepted := make(map[string][]byte)

	callback = func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		mutex.Lock()
		defer mutex.Unlock()

		marshaled := key.Marshal()
		if cached, ok := accepted[hostname]; ok && bytes.Equal(cached, marshaled) {
			return nil
		}

		verifyErr := base(hostname, remote, key)
		if verifyErr == nil {
			accepted[hostname] = marshaled
			return nil
		}

		var keyErr *xknownhosts.KeyError
		if !errors.As(verifyErr, &keyErr) {
			return verifyErr
		}

		// keyErr.Want empty means the host is simply new to the file; non-empty
		// means the presented key differs from a recorded one, which after a
		// Sanitize sweep means the host was re-imaged since the last run.
		// Either way the key is trusted and recorded (spec §4.H).
		if appendErr := appendHostKey(path, hostname, key); appendErr != nil {
			return fmt.Errorf("failed to record host key for %s: %v", hostname, appendErr)
		}
		accepted[hostname] = marshaled
		return nil
	}
	return
}

func appendHostKey(path, hostname string, key ssh.PublicKey) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	line := xknownhosts.Line([]string{xknownhosts.Normalize(hostname)}, key)
	_, err = file.WriteString(line + "\n")
	return err
}

// Sanitize removes any known_hosts entry matching "[host]:port" for every host in the
// fleet before the run starts, so a re-imaged device's new host key is not rejected.
// Failure and "not found" are both acceptable - this never aborts startup (spec §4.H).
func Sanitize(knownHostsPath string, hosts []string, port int) {
	for _, host := range hosts {
		entry := fmt.Sprintf("[%s]:%d", host, port)
		cmd := exec.Command("ssh-keygen", "-R", entry, "-f", knownHostsPath)
		// ssh-keygen writes a ".old" backup next to known_hosts on every invocation;
		// redirect its chatter away from the deployment log.
		cmd.Stdout = nil
		cmd.Stderr = nil
		_ = cmd.Run() // errors (missing entry, missing binary) are non-fatal by design
	}

	// ssh-keygen leaves a known_hosts.old backup file behind on every run; it is
	// harmless but clutters the config directory across repeated invocations.
	backupPath := knownHostsPath + ".old"
	if _, statErr := os.Stat(backupPath); statErr == nil {
		os.Remove(backupPath)
	}
}
