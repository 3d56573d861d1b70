package broadcast

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"deskhop/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource counts frames so tests can verify the cadence stays warm
// even with no viewers.
type stubSource struct {
	frames atomic.Int64
}

func (s *stubSource) NextFrame() ([]byte, uint32, error) {
	n := s.frames.Add(1)
	return []byte{byte(n)}, 100, nil
}

func startBroadcaster(t *testing.T, src FrameSource) *Broadcaster {
	t.Helper()
	b := New(Config{Addr: "127.0.0.1:0", FPS: 100, WriteTimeout: time.Second}, src)
	require.NoError(t, b.Start())
	t.Cleanup(b.Stop)
	return b
}

func dialViewer(t *testing.T, b *Broadcaster) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", b.Addr().String())
	require.NoError(t, err)
	require.NoError(t, protocol.ExpectVersion(conn))
	return conn
}

func TestViewersReceiveFramesInOrder(t *testing.T) {
	src := &stubSource{}
	b := startBroadcaster(t, src)

	conn := dialViewer(t, b)
	defer conn.Close()

	var last byte
	for i := 0; i < 5; i++ {
		payload, scale, err := protocol.ReadFrame(conn)
		require.NoError(t, err)
		require.Len(t, payload, 1)
		assert.Equal(t, uint32(100), scale)
		assert.Greater(t, payload[0], last, "frames must arrive in send order")
		last = payload[0]
	}
}

func TestDeadViewerIsDroppedOthersKeepReceiving(t *testing.T) {
	src := &stubSource{}
	b := startBroadcaster(t, src)

	dead := dialViewer(t, b)
	alive := dialViewer(t, b)
	defer alive.Close()

	require.Eventually(t, func() bool { return b.ViewerCount() == 2 },
		time.Second, 10*time.Millisecond)

	dead.Close()

	// A closed socket fails a write within a cycle or two; it must be
	// removed without disturbing the remaining viewer.
	require.Eventually(t, func() bool { return b.ViewerCount() == 1 },
		5*time.Second, 10*time.Millisecond)

	_, _, err := protocol.ReadFrame(alive)
	assert.NoError(t, err)
}

func TestCaptureContinuesWithZeroViewers(t *testing.T) {
	src := &stubSource{}
	startBroadcaster(t, src)

	require.Eventually(t, func() bool { return src.frames.Load() >= 3 },
		time.Second, 10*time.Millisecond)
}

func TestStopClosesViewers(t *testing.T) {
	src := &stubSource{}
	b := New(Config{Addr: "127.0.0.1:0", FPS: 100, WriteTimeout: time.Second}, src)
	require.NoError(t, b.Start())

	conn := dialViewer(t, b)
	defer conn.Close()

	b.Stop()

	// Reads drain whatever was buffered, then hit EOF.
	for {
		if _, _, err := protocol.ReadFrame(conn); err != nil {
			return
		}
	}
}
