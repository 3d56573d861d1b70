package transfer

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"deskhop/internal/protocol"
)

// ReceiverConfig configures the file server. SaveDir is created on first
// use.
type ReceiverConfig struct {
	Addr        string
	SaveDir     string
	IdleTimeout time.Duration
}

// Receiver accepts inbound file transfers, one goroutine per connection.
type Receiver struct {
	cfg ReceiverConfig

	ln       net.Listener
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewReceiver(cfg ReceiverConfig) *Receiver {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	return &Receiver{cfg: cfg, stop: make(chan struct{})}
}

func (r *Receiver) Start() error {
	ln, err := net.Listen("tcp", r.cfg.Addr)
	if err != nil {
		return err
	}
	r.ln = ln
	log.Printf("[file] listening on %s, saving to %s", ln.Addr(), r.cfg.SaveDir)

	r.wg.Add(1)
	go r.acceptLoop()
	return nil
}

func (r *Receiver) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	if r.ln != nil {
		r.ln.Close()
	}
	r.wg.Wait()
}

func (r *Receiver) Addr() net.Addr {
	if r.ln == nil {
		return nil
	}
	return r.ln.Addr()
}

func (r *Receiver) acceptLoop() {
	defer r.wg.Done()
	for {
		conn, err := r.ln.Accept()
		if err != nil {
			select {
			case <-r.stop:
			default:
				log.Println("[file] accept:", err)
			}
			return
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer conn.Close()
			if err := r.receive(conn); err != nil {
				log.Println("[file] receive from", conn.RemoteAddr(), "failed:", err)
			}
		}()
	}
}

func (r *Receiver) receive(conn net.Conn) error {
	dr := &deadlineReader{conn: conn, timeout: r.cfg.IdleTimeout}
	if err := protocol.ExpectVersion(dr); err != nil {
		return err
	}
	wireName, size, err := protocol.ReadFileHeader(dr)
	if err != nil {
		return err
	}

	// The transmitted name is untrusted input: reduce it to a bare
	// filename and refuse traversal attempts.
	name, err := sanitizeName(wireName)
	if err != nil {
		return fmt.Errorf("rejecting filename %q: %w", wireName, err)
	}

	if err := os.MkdirAll(r.cfg.SaveDir, 0o755); err != nil {
		return fmt.Errorf("create save dir: %w", err)
	}
	dst := filepath.Join(r.cfg.SaveDir, name)
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer f.Close()

	if _, err := io.CopyN(f, dr, int64(size)); err != nil {
		return fmt.Errorf("read file content: %w", err)
	}
	log.Printf("[file] received %s (%d bytes) from %s", name, size, conn.RemoteAddr())
	return nil
}

// sanitizeName strips directory components from a transmitted filename
// and rejects anything that could escape the save directory.
func sanitizeName(wireName string) (string, error) {
	if wireName == "" {
		return "", errors.New("empty filename")
	}
	// Normalize both separator styles before taking the base name.
	name := path.Base(strings.ReplaceAll(wireName, "\\", "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", errors.New("no usable filename component")
	}
	return name, nil
}

// deadlineReader refreshes the read deadline before every read so a
// stalled sender times out instead of pinning the goroutine forever.
type deadlineReader struct {
	conn    net.Conn
	timeout time.Duration
}

func (r *deadlineReader) Read(p []byte) (int, error) {
	r.conn.SetReadDeadline(time.Now().Add(r.timeout))
	return r.conn.Read(p)
}
