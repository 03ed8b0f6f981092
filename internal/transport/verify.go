package transport

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
)

// hashingBufferSize matches the teacher's streaming hash buffer.
const hashingBufferSize = 4 * 1024

// localSHA256 streams localPath in 4 KiB chunks and returns its hex SHA-256 (spec §4.D).
func localSHA256(localPath string) (hash string, err error) {
	file, err := os.Open(localPath)
	if err != nil {
		return
	}
	defer file.Close()

	hasher := sha256.New()
	buffer := make([]byte, hashingBufferSize)
	for {
		var n int
		n, err = file.Read(buffer)
		if err != nil && err != io.EOF {
			return
		}
		if n == 0 {
			err = nil
			break
		}
		hasher.Write(buffer[:n])
	}

	hash = hex.EncodeToString(hasher.Sum(nil))
	return
}

// remoteSHA256 executes `sha256sum <remote>` over SSH and parses the first
// whitespace-separated token (spec §4.D). A non-nil error means the remote hash
// could not be obtained (including empty command output); the caller then
// accepts on exit-code evidence alone.
func remoteSHA256(client *ssh.Client, remotePath string) (hash string, err error) {
	session, err := client.NewSession()
	if err != nil {
		return
	}
	defer session.Close()

	output, err := session.Output(fmt.Sprintf("sha256sum %q", remotePath))
	if err != nil {
		err = fmt.Errorf("failed to compute remote hash: %v", err)
		return
	}

	fields := strings.Fields(string(output))
	if len(fields) == 0 {
		err = fmt.Errorf("empty sha256sum output")
		return
	}

	hash = fields[0]
	return
}
