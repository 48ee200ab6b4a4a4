// Package remote implements the TCP remote-control listener.
//
// The wire protocol is deliberately minimal so any companion program can
// drive the board: each accepted connection is read as a stream of single
// bytes, and every non-zero byte is forwarded as a button identifier. Byte
// value 0 is ignored; end-of-stream or a read error ends that connection's
// loop only. The accept loop runs until the listener itself is closed.
package remote

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rpiui-project/rpiui-go/pkg/log"
)

// DefaultPort is the default remote-control listening port.
const DefaultPort = 19054

// ListenerConfig configures a remote-control Listener.
type ListenerConfig struct {
	// Address to listen on (default ":19054").
	Address string

	// EventLogger records connection state changes (optional).
	EventLogger log.Logger

	// OnConnect is called when a new connection is established. The
	// application uses it to track the connection for teardown; tracking is
	// best-effort and rejected connections still get their bytes read.
	OnConnect func(conn *Conn)

	// OnDisconnect is called when a connection's read loop ends.
	OnDisconnect func(conn *Conn)

	// OnButton is called for every non-zero byte read from a connection.
	OnButton func(conn *Conn, button byte)

	// OnError is called when an accept or read error occurs (conn may be nil).
	OnError func(conn *Conn, err error)
}

// Listener accepts remote-control connections and forwards button bytes.
type Listener struct {
	config   ListenerConfig
	listener net.Listener

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewListener creates a new remote-control listener.
func NewListener(config ListenerConfig) *Listener {
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.EventLogger == nil {
		config.EventLogger = log.NoopLogger{}
	}
	return &Listener{config: config}
}

// Start binds the listening endpoint and begins accepting connections.
func (l *Listener) Start() error {
	if l.running.Load() {
		return fmt.Errorf("listener already running")
	}

	ln, err := net.Listen("tcp", l.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.config.Address, err)
	}
	l.listener = ln
	l.running.Store(true)

	l.wg.Add(1)
	go l.acceptLoop()

	return nil
}

// Stop closes the listening endpoint. Per-connection read loops end on their
// own when the peer or the application closes the connection; Stop does not
// wait for them so it can be called from inside a dispatch.
func (l *Listener) Stop() error {
	if !l.running.Load() {
		return nil
	}
	l.running.Store(false)
	return l.listener.Close()
}

// Wait blocks until the accept loop and all connection loops have ended.
func (l *Listener) Wait() {
	l.wg.Wait()
}

// Addr returns the listener's bound address, or nil before Start.
func (l *Listener) Addr() net.Addr {
	if l.listener != nil {
		return l.listener.Addr()
	}
	return nil
}

// acceptLoop accepts incoming connections until the listener is closed.
func (l *Listener) acceptLoop() {
	defer l.wg.Done()

	for l.running.Load() {
		conn, err := l.listener.Accept()
		if err != nil {
			if l.running.Load() && l.config.OnError != nil {
				l.config.OnError(nil, fmt.Errorf("accept error: %w", err))
			}
			continue
		}

		l.wg.Add(1)
		go l.handleConnection(conn)
	}
}

// handleConnection reads button bytes from a single connection.
func (l *Listener) handleConnection(nc net.Conn) {
	defer l.wg.Done()

	conn := &Conn{
		conn:       nc,
		connID:     uuid.New().String(),
		remoteAddr: nc.RemoteAddr(),
	}

	l.logConnState(conn, "", "CONNECTED")

	if l.config.OnConnect != nil {
		l.config.OnConnect(conn)
	}

	var buf [1]byte
	for {
		n, err := nc.Read(buf[:])
		if err != nil {
			// EOF or I/O error: ends this connection's loop only.
			break
		}
		if n == 0 || buf[0] == 0 {
			continue
		}
		if l.config.OnButton != nil {
			l.config.OnButton(conn, buf[0])
		}
	}

	conn.Close()
	l.logConnState(conn, "CONNECTED", "DISCONNECTED")

	if l.config.OnDisconnect != nil {
		l.config.OnDisconnect(conn)
	}
}

// logConnState records a connection state change event.
func (l *Listener) logConnState(conn *Conn, oldState, newState string) {
	l.config.EventLogger.Log(log.Event{
		Timestamp:    time.Now(),
		Source:       log.SourceRemote,
		Layer:        log.LayerRemote,
		Category:     log.CategoryState,
		ConnectionID: conn.connID,
		RemoteAddr:   conn.remoteAddr.String(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: oldState,
			NewState: newState,
		},
	})
}

// Conn represents one accepted remote-control connection. A net.Conn carries
// both directions, so closing it also closes what the protocol calls the
// connection's input stream.
type Conn struct {
	conn       net.Conn
	connID     string
	remoteAddr net.Addr
	closeOnce  sync.Once
}

// ConnID returns the unique connection identifier.
func (c *Conn) ConnID() string { return c.connID }

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr { return c.remoteAddr }

// Close closes the connection. Safe to call multiple times and from a
// goroutine other than the read loop; the read loop then ends with an error
// and cleans up.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}
