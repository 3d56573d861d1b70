// Package transfer moves whole files over the file channel: one fresh
// connection per transfer, a length-prefixed header, then the raw bytes.
// No checksum, no resume.
package transfer

import (
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"os"
	"path/filepath"
	"time"

	"deskhop/internal/protocol"
)

const chunkSize = 64 << 10

// Sender pushes a single file to a remote file server.
type Sender struct {
	dialTimeout  time.Duration
	writeTimeout time.Duration
}

func NewSender(dialTimeout, writeTimeout time.Duration) *Sender {
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Sender{dialTimeout: dialTimeout, writeTimeout: writeTimeout}
}

// Send opens a connection to addr, writes the header and streams the
// file in fixed-size chunks. The connection is closed when the transfer
// completes or fails.
func (s *Sender) Send(addr, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > math.MaxUint32 {
		return fmt.Errorf("file too large for transfer: %d bytes", info.Size())
	}
	name := filepath.Base(path)

	conn, err := net.DialTimeout("tcp", addr, s.dialTimeout)
	if err != nil {
		return fmt.Errorf("connect file channel: %w", err)
	}
	defer conn.Close()

	w := &deadlineWriter{conn: conn, timeout: s.writeTimeout}
	if err := protocol.WriteVersion(w); err != nil {
		return fmt.Errorf("file channel: %w", err)
	}
	if err := protocol.WriteFileHeader(w, name, uint32(info.Size())); err != nil {
		return fmt.Errorf("send file header: %w", err)
	}

	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(w, f, buf); err != nil {
		return fmt.Errorf("send file content: %w", err)
	}
	log.Printf("[file] sent %s (%d bytes) to %s", name, info.Size(), addr)
	return nil
}

// deadlineWriter refreshes the write deadline before every chunk so a
// stalled peer cannot block the transfer indefinitely.
type deadlineWriter struct {
	conn    net.Conn
	timeout time.Duration
}

func (w *deadlineWriter) Write(p []byte) (int, error) {
	w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	return w.conn.Write(p)
}
