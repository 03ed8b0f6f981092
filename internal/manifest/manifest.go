// Package manifest parses and represents the fixed set of files to deploy to every host.
package manifest

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// defaultRemoteDir is used for bare manifest lines with no explicit remote directory.
const defaultRemoteDir = "/usr/local/bin/"

// bmtSuffix is appended to the remote basename during upload (spec §3 Transfer Descriptor).
const bmtSuffix = ".BMT"

// Entry is a single File Manifest Entry: a local filename mapped to a remote directory.
type Entry struct {
	LocalFilename string // bare name, resolved against the local file/ directory by the caller
	RemoteDir     string // always trailing-slash normalized
}

// Load reads path line by line in declared order, producing one Entry per non-blank,
// non-comment line. Accepts "name=/remote/dir/" or bare "name".
func Load(path string) (entries []Entry, err error) {
	file, err := os.Open(path)
	if err != nil {
		err = fmt.Errorf("failed to open manifest %s: %v", path, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry, parseErr := parseLine(line)
		if parseErr != nil {
			err = fmt.Errorf("manifest %s line %d: %v", path, lineNum, parseErr)
			return
		}
		entries = append(entries, entry)
	}

	err = scanner.Err()
	if err != nil {
		err = fmt.Errorf("failed reading manifest %s: %v", path, err)
		return
	}

	return
}

func parseLine(line string) (entry Entry, err error) {
	name, remoteDir, hasDir := strings.Cut(line, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		err = fmt.Errorf("empty filename")
		return
	}

	if !hasDir {
		entry = Entry{LocalFilename: name, RemoteDir: defaultRemoteDir}
		return
	}

	remoteDir = strings.TrimSpace(remoteDir)
	if remoteDir == "" {
		remoteDir = defaultRemoteDir
	}
	if !strings.HasSuffix(remoteDir, "/") {
		remoteDir += "/"
	}

	entry = Entry{LocalFilename: name, RemoteDir: remoteDir}
	return
}

// Descriptor is the per host x file Transfer Descriptor derived from an Entry (spec §3).
type Descriptor struct {
	LocalPath       string // absolute local path, under the file/ directory
	RemotePath      string // remote absolute path with the .BMT suffix appended
	FinalRemotePath string // remote absolute path without the .BMT suffix, used in move mode
}

// Derive builds the Transfer Descriptor for entry, given the local file/ directory.
// LocalPath is made absolute against the working directory when localFileDir is relative.
func Derive(entry Entry, localFileDir string) Descriptor {
	localPath := path.Join(localFileDir, entry.LocalFilename)
	if absPath, absErr := filepath.Abs(localPath); absErr == nil {
		localPath = absPath
	}
	finalRemotePath := path.Join(entry.RemoteDir, entry.LocalFilename)
	return Descriptor{
		LocalPath:       localPath,
		RemotePath:      finalRemotePath + bmtSuffix,
		FinalRemotePath: finalRemotePath,
	}
}
