// Package stream implements the viewing side of the screen channel: a
// TCP client that reads framed packets, decodes them and hands bitmaps
// to a display callback.
package stream

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"net"
	"time"

	"deskhop/internal/capture"
	"deskhop/internal/protocol"
)

// FrameFunc receives each decoded bitmap together with the capture-side
// scale percent, so the display can map local coordinates back to
// source-screen pixel space.
type FrameFunc func(img image.Image, scalePercent uint32)

type Receiver struct {
	onFrame     FrameFunc
	dialTimeout time.Duration

	conn net.Conn
	done chan struct{}
}

func NewReceiver(onFrame FrameFunc, dialTimeout time.Duration) *Receiver {
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	return &Receiver{onFrame: onFrame, dialTimeout: dialTimeout}
}

// Connect dials the screen port, verifies the channel version and starts
// the read loop.
func (r *Receiver) Connect(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, r.dialTimeout)
	if err != nil {
		return fmt.Errorf("connect screen channel: %w", err)
	}
	conn.SetReadDeadline(time.Now().Add(r.dialTimeout))
	if err := protocol.ExpectVersion(conn); err != nil {
		conn.Close()
		return fmt.Errorf("screen channel: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	r.conn = conn
	r.done = make(chan struct{})
	go r.readLoop()
	log.Println("[screen] connected to", addr)
	return nil
}

// Disconnect closes the socket; the read loop exits on its next read.
func (r *Receiver) Disconnect() {
	if r.conn != nil {
		r.conn.Close()
	}
	if r.done != nil {
		<-r.done
	}
}

// Done is closed when the read loop exits, whether by Disconnect or a
// peer-side failure.
func (r *Receiver) Done() <-chan struct{} {
	return r.done
}

func (r *Receiver) readLoop() {
	defer close(r.done)
	defer r.conn.Close()

	for {
		payload, scale, err := protocol.ReadFrame(r.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Println("[screen] read:", err)
			}
			return
		}
		if len(payload) == 0 {
			continue
		}
		img, err := capture.Decode(payload)
		if err != nil {
			// A corrupt frame must not kill the connection.
			log.Println("[screen] dropping corrupt frame:", err)
			continue
		}
		if r.onFrame != nil {
			r.onFrame(img, scale)
		}
	}
}
