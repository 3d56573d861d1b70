package control

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"deskhop/internal/protocol"
)

// Client sends input-event commands to a remote control server. After a
// write failure the client marks itself disconnected and silently drops
// further commands; reconnection is the caller's decision.
type Client struct {
	dialTimeout  time.Duration
	writeTimeout time.Duration

	mu        sync.Mutex
	conn      net.Conn
	connected bool
	scale     float64
}

func NewClient(dialTimeout, writeTimeout time.Duration) *Client {
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Client{
		dialTimeout:  dialTimeout,
		writeTimeout: writeTimeout,
		scale:        1.0,
	}
}

// Connect dials the control port and announces the channel version.
func (c *Client) Connect(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, c.dialTimeout)
	if err != nil {
		return fmt.Errorf("connect control channel: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := protocol.WriteVersion(conn); err != nil {
		conn.Close()
		return fmt.Errorf("control channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	log.Println("[control] connected to", addr)
	return nil
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// SetScale records the display-side fit-to-window scale. Mouse-move
// coordinates are divided by it so the remote cursor lands on the same
// logical screen point regardless of local window size.
func (c *Client) SetScale(scale float64) {
	if scale <= 0 {
		return
	}
	c.mu.Lock()
	c.scale = scale
	c.mu.Unlock()
}

func (c *Client) Scale() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scale
}

func (c *Client) SendMouseMove(x, y int) {
	c.mu.Lock()
	scale := c.scale
	c.mu.Unlock()
	c.send(&protocol.Command{
		Type: protocol.CmdMouseMove,
		X:    int(float64(x) / scale),
		Y:    int(float64(y) / scale),
	})
}

func (c *Client) SendMouseClick(button, action string) {
	c.send(&protocol.Command{Type: protocol.CmdMouseClick, Button: button, Action: action})
}

func (c *Client) SendMouseScroll(dx, dy int) {
	c.send(&protocol.Command{Type: protocol.CmdMouseScroll, DX: dx, DY: dy})
}

func (c *Client) SendKey(key, action string) {
	c.send(&protocol.Command{Type: protocol.CmdKey, Key: key, Action: action})
}

func (c *Client) send(cmd *protocol.Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.conn == nil {
		return
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := protocol.WriteCommand(c.conn, cmd); err != nil {
		log.Println("[control] send failed, marking disconnected:", err)
		c.connected = false
		c.conn.Close()
		c.conn = nil
	}
}
