package transport

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/sftp"

	"fleetdeploy/m/v2/internal/logging"
)

// libraryBackend is transport #2: the native SFTP client library, verified by
// comparing remote and local byte counts (spec §4.C, §4.D).
type libraryBackend struct {
	sink *logging.Sink
}

func (b *libraryBackend) Name() string { return "pkg/sftp client" }

const sftpPutTimeout = 30 * time.Second

func (b *libraryBackend) Send(conn HostConn, localPath, remotePath string) bool {
	client, err := dialSSH(conn)
	if err != nil {
		b.sink.Printf(logging.VerbosityData, logging.IconInfo, "%s: dial failed: %v\n", b.Name(), err)
		return false
	}
	defer client.Close()

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		b.sink.Printf(logging.VerbosityData, logging.IconInfo, "%s: session failed: %v\n", b.Name(), err)
		return false
	}
	defer sftpClient.Close()

	err = sftpClient.MkdirAll(remoteDir(remotePath))
	if err != nil {
		b.sink.Printf(logging.VerbosityData, logging.IconInfo, "%s: mkdir failed: %v\n", b.Name(), err)
		return false
	}

	localInfo, err := os.Stat(localPath)
	if err != nil {
		b.sink.Printf(logging.VerbosityStandard, logging.IconWarning, "%s: local file missing: %v\n", b.Name(), err)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), sftpPutTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- b.upload(sftpClient, localPath, remotePath)
	}()

	select {
	case err = <-done:
		if err != nil {
			b.sink.Printf(logging.VerbosityData, logging.IconInfo, "%s: upload failed: %v\n", b.Name(), err)
			return false
		}
	case <-ctx.Done():
		b.sink.Printf(logging.VerbosityData, logging.IconInfo, "%s: upload timed out\n", b.Name())
		return false
	}

	remoteInfo, err := sftpClient.Stat(remotePath)
	if err != nil {
		b.sink.Printf(logging.VerbosityData, logging.IconInfo, "%s: stat failed: %v\n", b.Name(), err)
		return false
	}

	if remoteInfo.Size() != localInfo.Size() {
		b.sink.Printf(logging.VerbosityData, logging.IconInfo, "%s: size mismatch local=%d remote=%d\n", b.Name(), localInfo.Size(), remoteInfo.Size())
		return false
	}

	return true
}

func (b *libraryBackend) upload(sftpClient *sftp.Client, localPath, remotePath string) error {
	localFile, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer localFile.Close()

	remoteFile, err := sftpClient.Create(remotePath)
	if err != nil {
		return err
	}
	defer remoteFile.Close()

	_, err = io.Copy(remoteFile, localFile)
	return err
}
