package remote

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// startTestListener starts a Listener on an ephemeral port and returns it
// together with a channel of forwarded button bytes.
func startTestListener(t *testing.T) (*Listener, chan byte) {
	t.Helper()

	buttons := make(chan byte, 16)
	l := NewListener(ListenerConfig{
		Address: "localhost:0",
		OnButton: func(_ *Conn, b byte) {
			buttons <- b
		},
	})
	require.NoError(t, l.Start())
	t.Cleanup(func() {
		_ = l.Stop()
		l.Wait()
	})
	return l, buttons
}

func waitButton(t *testing.T, ch chan byte) byte {
	t.Helper()
	select {
	case b := <-ch:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a button byte")
		return 0
	}
}

func TestListenerForwardsButtonBytes(t *testing.T) {
	l, buttons := startTestListener(t)

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	// Byte 0 is ignored, everything non-zero is forwarded.
	_, err = conn.Write([]byte{3, 0, 5})
	require.NoError(t, err)

	require.Equal(t, byte(3), waitButton(t, buttons))
	require.Equal(t, byte(5), waitButton(t, buttons))
}

func TestListenerSurvivesConnectionClose(t *testing.T) {
	l, buttons := startTestListener(t)

	conn1, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	_, err = conn1.Write([]byte{1})
	require.NoError(t, err)
	require.Equal(t, byte(1), waitButton(t, buttons))
	conn1.Close()

	// A closed connection ends only its own loop; the listener still
	// accepts new connections.
	conn2, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer conn2.Close()
	_, err = conn2.Write([]byte{6})
	require.NoError(t, err)
	require.Equal(t, byte(6), waitButton(t, buttons))
}

func TestListenerConnectDisconnectCallbacks(t *testing.T) {
	connected := make(chan *Conn, 1)
	disconnected := make(chan *Conn, 1)

	l := NewListener(ListenerConfig{
		Address:      "localhost:0",
		OnConnect:    func(c *Conn) { connected <- c },
		OnDisconnect: func(c *Conn) { disconnected <- c },
	})
	require.NoError(t, l.Start())
	t.Cleanup(func() {
		_ = l.Stop()
		l.Wait()
	})

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)

	var tracked *Conn
	select {
	case tracked = <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("OnConnect not called")
	}
	require.NotEmpty(t, tracked.ConnID())

	conn.Close()
	select {
	case gone := <-disconnected:
		require.Equal(t, tracked.ConnID(), gone.ConnID())
	case <-time.After(2 * time.Second):
		t.Fatal("OnDisconnect not called")
	}
}

func TestListenerStopEndsAcceptLoop(t *testing.T) {
	l := NewListener(ListenerConfig{Address: "localhost:0"})
	require.NoError(t, l.Start())

	require.NoError(t, l.Stop())

	done := make(chan struct{})
	go func() {
		l.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("accept loop did not end after Stop")
	}

	// Stop is idempotent.
	require.NoError(t, l.Stop())
}

func TestListenerClosingTrackedConnEndsReadLoop(t *testing.T) {
	connected := make(chan *Conn, 1)
	disconnected := make(chan struct{}, 1)

	l := NewListener(ListenerConfig{
		Address:      "localhost:0",
		OnConnect:    func(c *Conn) { connected <- c },
		OnDisconnect: func(*Conn) { disconnected <- struct{}{} },
	})
	require.NoError(t, l.Start())
	t.Cleanup(func() {
		_ = l.Stop()
		l.Wait()
	})

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	var tracked *Conn
	select {
	case tracked = <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("OnConnect not called")
	}

	// The application closes the tracked connection during teardown; the
	// read loop must end on its own.
	require.NoError(t, tracked.Close())
	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not end after Close")
	}
}
