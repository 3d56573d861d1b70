package control

import (
	"encoding/binary"
	"net"
	"sync"
	"testing"
	"time"

	"deskhop/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name   string
	x, y   int
	button string
	key    string
	press  bool
}

type fakeInjector struct {
	mu    sync.Mutex
	calls []call
}

func (f *fakeInjector) MouseMove(x, y int) {
	f.record(call{name: "move", x: x, y: y})
}

func (f *fakeInjector) MouseButton(button string, press bool) {
	f.record(call{name: "button", button: button, press: press})
}

func (f *fakeInjector) MouseScroll(dx, dy int) {
	f.record(call{name: "scroll", x: dx, y: dy})
}

func (f *fakeInjector) KeyToggle(key string, press bool) {
	f.record(call{name: "key", key: key, press: press})
}

func (f *fakeInjector) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeInjector) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]call, len(f.calls))
	copy(out, f.calls)
	return out
}

func startServer(t *testing.T) (*Server, *fakeInjector) {
	t.Helper()
	inj := &fakeInjector{}
	srv := NewServer(ServerConfig{Addr: "127.0.0.1:0", IdleTimeout: 5 * time.Second}, inj)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return srv, inj
}

func TestMouseMoveScaleRoundTrip(t *testing.T) {
	srv, inj := startServer(t)

	client := NewClient(time.Second, time.Second)
	require.NoError(t, client.Connect(srv.Addr().String()))
	defer client.Disconnect()

	client.SetScale(0.5)
	client.SendMouseMove(100, 200)

	require.Eventually(t, func() bool { return len(inj.snapshot()) == 1 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, call{name: "move", x: 200, y: 400}, inj.snapshot()[0])
}

func TestCommandSequence(t *testing.T) {
	srv, inj := startServer(t)

	client := NewClient(time.Second, time.Second)
	require.NoError(t, client.Connect(srv.Addr().String()))
	defer client.Disconnect()

	client.SendMouseClick("left", protocol.ActionPress)
	client.SendMouseClick("left", protocol.ActionRelease)
	client.SendMouseScroll(0, -3)
	client.SendKey("escape", protocol.ActionPress)
	client.SendKey("a", protocol.ActionRelease)

	require.Eventually(t, func() bool { return len(inj.snapshot()) == 5 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []call{
		{name: "button", button: "left", press: true},
		{name: "button", button: "left", press: false},
		{name: "scroll", x: 0, y: -3},
		{name: "key", key: "esc", press: true},
		{name: "key", key: "a", press: false},
	}, inj.snapshot())
}

func TestMalformedCommandLeavesConnectionUsable(t *testing.T) {
	srv, inj := startServer(t)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, protocol.WriteVersion(conn))

	// A well-framed record full of garbage.
	garbage := []byte("truncated{{{")
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(garbage)))
	_, err = conn.Write(append(lenBuf[:], garbage...))
	require.NoError(t, err)

	// A valid command on the same connection must still be processed.
	require.NoError(t, protocol.WriteCommand(conn, &protocol.Command{
		Type: protocol.CmdMouseMove, X: 7, Y: 9,
	}))

	require.Eventually(t, func() bool { return len(inj.snapshot()) == 1 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, call{name: "move", x: 7, y: 9}, inj.snapshot()[0])
}

func TestUnknownCommandAndKeyAreDropped(t *testing.T) {
	srv, inj := startServer(t)

	client := NewClient(time.Second, time.Second)
	require.NoError(t, client.Connect(srv.Addr().String()))
	defer client.Disconnect()

	client.SendKey("hyper_mega_key", protocol.ActionPress)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, protocol.WriteVersion(conn))
	require.NoError(t, protocol.WriteCommand(conn, &protocol.Command{Type: "teleport"}))

	// Follow with a real command so we know the junk was processed.
	client.SendKey("f5", protocol.ActionPress)

	require.Eventually(t, func() bool { return len(inj.snapshot()) == 1 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, call{name: "key", key: "f5", press: true}, inj.snapshot()[0])
}

func TestClientDropsCommandsAfterWriteFailure(t *testing.T) {
	srv, _ := startServer(t)

	client := NewClient(time.Second, time.Second)
	require.NoError(t, client.Connect(srv.Addr().String()))

	srv.Stop()

	// Write failures may take a couple of sends to surface.
	require.Eventually(t, func() bool {
		client.SendMouseMove(1, 1)
		return !client.Connected()
	}, 5*time.Second, 50*time.Millisecond)

	// Further sends are silent no-ops.
	client.SendMouseMove(2, 2)
	client.SendKey("a", protocol.ActionPress)
}

func TestResolveKey(t *testing.T) {
	cases := map[string]string{
		"shift":     "shift",
		"CTRL":      "ctrl",
		"escape":    "esc",
		"page_up":   "pageup",
		"page_down": "pagedown",
		"f1":        "f1",
		"F12":       "f12",
		"a":         "a",
		"Z":         "z",
		"7":         "7",
		"@":         "@",
		"volume_up": "",
		"":          "",
		" ":         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ResolveKey(in), "key %q", in)
	}
}
