// Package broadcast owns the screen-streaming server: an accept loop
// feeding a locked viewer set, and a ticker-driven loop pushing encoded
// frames to every viewer. Slow viewers are not throttled; a viewer whose
// write fails is dropped after the broadcast pass.
package broadcast

import (
	"log"
	"net"
	"sync"
	"time"

	"deskhop/internal/protocol"
)

// FrameSource yields the next wire-ready frame payload.
type FrameSource interface {
	NextFrame() (payload []byte, scalePercent uint32, err error)
}

type Config struct {
	Addr         string
	FPS          int
	WriteTimeout time.Duration
}

type Broadcaster struct {
	cfg    Config
	source FrameSource

	ln       net.Listener
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu      sync.Mutex
	viewers []net.Conn
}

func New(cfg Config, source FrameSource) *Broadcaster {
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Broadcaster{
		cfg:    cfg,
		source: source,
		stop:   make(chan struct{}),
	}
}

// Start binds the screen port and launches the accept and broadcast
// loops. A bind failure is fatal to the channel and returned here.
func (b *Broadcaster) Start() error {
	ln, err := net.Listen("tcp", b.cfg.Addr)
	if err != nil {
		return err
	}
	b.ln = ln
	log.Println("[screen] listening on", ln.Addr())

	b.wg.Add(2)
	go b.acceptLoop()
	go b.broadcastLoop()
	return nil
}

// Stop closes the listener and every viewer, unblocking both loops.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
	if b.ln != nil {
		b.ln.Close()
	}
	b.mu.Lock()
	for _, v := range b.viewers {
		v.Close()
	}
	b.viewers = nil
	b.mu.Unlock()
	b.wg.Wait()
}

// Addr reports the bound listener address, useful when the configured
// port is 0.
func (b *Broadcaster) Addr() net.Addr {
	if b.ln == nil {
		return nil
	}
	return b.ln.Addr()
}

func (b *Broadcaster) ViewerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.viewers)
}

func (b *Broadcaster) acceptLoop() {
	defer b.wg.Done()
	for {
		conn, err := b.ln.Accept()
		if err != nil {
			select {
			case <-b.stop:
			default:
				log.Println("[screen] accept:", err)
			}
			return
		}
		conn.SetWriteDeadline(time.Now().Add(b.cfg.WriteTimeout))
		if err := protocol.WriteVersion(conn); err != nil {
			log.Println("[screen] version write to", conn.RemoteAddr(), "failed:", err)
			conn.Close()
			continue
		}
		b.mu.Lock()
		b.viewers = append(b.viewers, conn)
		n := len(b.viewers)
		b.mu.Unlock()
		log.Printf("[screen] viewer connected: %s (%d total)", conn.RemoteAddr(), n)
	}
}

func (b *Broadcaster) broadcastLoop() {
	defer b.wg.Done()
	interval := time.Second / time.Duration(b.cfg.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			// Capture and encode even with zero viewers to keep the
			// cadence warm.
			payload, scale, err := b.source.NextFrame()
			if err != nil {
				log.Println("[screen] capture error:", err)
				continue
			}
			b.broadcast(protocol.MarshalFrame(payload, scale))
		}
	}
}

// broadcast writes one marshaled frame to every viewer. Dead viewers are
// collected during the pass and removed afterwards so the set is never
// mutated while being iterated.
func (b *Broadcaster) broadcast(frame []byte) {
	b.mu.Lock()
	viewers := make([]net.Conn, len(b.viewers))
	copy(viewers, b.viewers)
	b.mu.Unlock()

	if len(viewers) == 0 {
		return
	}

	var dead []net.Conn
	for _, v := range viewers {
		v.SetWriteDeadline(time.Now().Add(b.cfg.WriteTimeout))
		if _, err := v.Write(frame); err != nil {
			log.Println("[screen] write to", v.RemoteAddr(), "failed:", err)
			dead = append(dead, v)
		}
	}
	if len(dead) > 0 {
		b.removeViewers(dead)
	}
}

func (b *Broadcaster) removeViewers(dead []net.Conn) {
	gone := make(map[net.Conn]bool, len(dead))
	for _, d := range dead {
		gone[d] = true
	}
	b.mu.Lock()
	kept := b.viewers[:0]
	for _, v := range b.viewers {
		if !gone[v] {
			kept = append(kept, v)
		}
	}
	b.viewers = kept
	n := len(kept)
	b.mu.Unlock()

	for _, d := range dead {
		d.Close()
	}
	log.Printf("[screen] dropped %d dead viewer(s), %d remaining", len(dead), n)
}
