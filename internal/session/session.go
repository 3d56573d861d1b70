// Package session bundles the outbound connections to one remote peer:
// the screen receiver, the control client, and a file sender used for
// per-transfer connections. A local instance holds at most one active
// outbound session.
package session

import (
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"time"

	"deskhop/internal/control"
	"deskhop/internal/stream"
	"deskhop/internal/transfer"
)

// ErrSessionActive is returned when a session is already established.
var ErrSessionActive = errors.New("another session is already active")

// Peer identifies a remote instance.
type Peer struct {
	Address  string
	Hostname string
}

type Config struct {
	ScreenPort   int
	ControlPort  int
	FilePort     int
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// Session owns the screen and control connections to one peer. The file
// channel is dialed fresh per transfer.
type Session struct {
	peer    Peer
	cfg     Config
	screen  *stream.Receiver
	control *control.Client
	files   *transfer.Sender
}

func (s *Session) Peer() Peer { return s.peer }

// Control exposes the control client so the display layer can forward
// input and update the fit-to-window scale.
func (s *Session) Control() *control.Client { return s.control }

// SendFile transfers one file to the session peer over a fresh file
// connection.
func (s *Session) SendFile(path string) error {
	addr := net.JoinHostPort(s.peer.Address, strconv.Itoa(s.cfg.FilePort))
	return s.files.Send(addr, path)
}

// Done is closed when the screen channel dies; a dead screen channel is
// fatal to the session.
func (s *Session) Done() <-chan struct{} { return s.screen.Done() }

func (s *Session) close() {
	s.screen.Disconnect()
	s.control.Disconnect()
}

// Manager enforces the single active outbound session.
type Manager struct {
	cfg Config

	mu     sync.Mutex
	active *Session
}

func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// Connect establishes the screen and control channels to peer. The
// session tears itself down if the screen channel fails.
func (m *Manager) Connect(peer Peer, onFrame stream.FrameFunc) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return nil, ErrSessionActive
	}

	screen := stream.NewReceiver(onFrame, m.cfg.DialTimeout)
	screenAddr := net.JoinHostPort(peer.Address, strconv.Itoa(m.cfg.ScreenPort))
	if err := screen.Connect(screenAddr); err != nil {
		return nil, err
	}

	ctl := control.NewClient(m.cfg.DialTimeout, m.cfg.WriteTimeout)
	controlAddr := net.JoinHostPort(peer.Address, strconv.Itoa(m.cfg.ControlPort))
	if err := ctl.Connect(controlAddr); err != nil {
		screen.Disconnect()
		return nil, fmt.Errorf("session to %s: %w", peer.Address, err)
	}

	s := &Session{
		peer:    peer,
		cfg:     m.cfg,
		screen:  screen,
		control: ctl,
		files:   transfer.NewSender(m.cfg.DialTimeout, m.cfg.WriteTimeout),
	}
	m.active = s

	go func() {
		<-s.Done()
		m.mu.Lock()
		if m.active == s {
			log.Printf("[session] screen channel to %s closed, tearing down", peer.Address)
			s.control.Disconnect()
			m.active = nil
		}
		m.mu.Unlock()
	}()

	log.Printf("[session] connected to %s (%s)", peer.Hostname, peer.Address)
	return s, nil
}

// Active returns the current session, or nil.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Close tears down the active session, if any.
func (m *Manager) Close() {
	m.mu.Lock()
	s := m.active
	m.active = nil
	m.mu.Unlock()
	if s != nil {
		s.close()
	}
}
