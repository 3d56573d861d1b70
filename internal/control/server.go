// Package control carries input-event commands between the viewer and
// the controlled machine: the server decodes command records and executes
// them through an Injector, the client serializes user input.
package control

import (
	"errors"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"deskhop/internal/protocol"
)

// Injector abstracts the OS input-injection primitives so the server can
// be tested without moving the real cursor.
type Injector interface {
	MouseMove(x, y int)
	MouseButton(button string, press bool)
	MouseScroll(dx, dy int)
	KeyToggle(key string, press bool)
}

type ServerConfig struct {
	Addr        string
	IdleTimeout time.Duration
}

type Server struct {
	cfg      ServerConfig
	injector Injector

	ln       net.Listener
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func NewServer(cfg ServerConfig, injector Injector) *Server {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	return &Server{
		cfg:      cfg,
		injector: injector,
		stop:     make(chan struct{}),
		conns:    make(map[net.Conn]struct{}),
	}
}

// Start binds the control port and accepts connections, each served by
// its own command-reading loop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	log.Println("[control] listening on", ln.Addr())

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and all live connections; blocked reads fail
// fast and their loops exit.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.ln != nil {
		s.ln.Close()
	}
	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.stop:
			default:
				log.Println("[control] accept:", err)
			}
			return
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
	if err := protocol.ExpectVersion(conn); err != nil {
		log.Println("[control] rejecting", conn.RemoteAddr(), ":", err)
		return
	}
	log.Println("[control] client connected:", conn.RemoteAddr())

	for {
		conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		cmd, err := protocol.ReadCommand(conn)
		if err != nil {
			if errors.Is(err, protocol.ErrMalformedCommand) {
				// Bad record, stream still in sync: drop and keep going.
				log.Println("[control] dropping malformed command:", err)
				continue
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Println("[control] read from", conn.RemoteAddr(), ":", err)
			}
			return
		}
		s.execute(cmd)
	}
}

func (s *Server) execute(cmd *protocol.Command) {
	switch cmd.Type {
	case protocol.CmdMouseMove:
		s.injector.MouseMove(cmd.X, cmd.Y)
	case protocol.CmdMouseClick:
		if cmd.Action != protocol.ActionPress && cmd.Action != protocol.ActionRelease {
			log.Println("[control] dropping click with bad action:", cmd.Action)
			return
		}
		s.injector.MouseButton(cmd.Button, cmd.Action == protocol.ActionPress)
	case protocol.CmdMouseScroll:
		s.injector.MouseScroll(cmd.DX, cmd.DY)
	case protocol.CmdKey:
		key := ResolveKey(cmd.Key)
		if key == "" {
			log.Println("[control] ignoring unknown key:", cmd.Key)
			return
		}
		if cmd.Action != protocol.ActionPress && cmd.Action != protocol.ActionRelease {
			log.Println("[control] dropping key with bad action:", cmd.Action)
			return
		}
		s.injector.KeyToggle(key, cmd.Action == protocol.ActionPress)
	default:
		log.Println("[control] dropping unknown command type:", cmd.Type)
	}
}
