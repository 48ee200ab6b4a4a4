package app

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpiui-project/rpiui-go/pkg/board"
)

// fakeChannel emulates the board's command/reply behavior: writes are
// recorded, and reads answer according to the last command written.
type fakeChannel struct {
	mu      sync.Mutex
	writes  [][]byte
	lastCmd byte

	mask   byte   // pushed-buttons register
	adcInt uint16 // channel 0 raw sample
	adcExt uint16 // channel 1 raw sample

	writeErr error
	readErr  error
	closed   bool
}

func (c *fakeChannel) Write(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	w := make([]byte, len(p))
	copy(w, p)
	c.writes = append(c.writes, w)
	c.lastCmd = p[0]
	return nil
}

func (c *fakeChannel) Read(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return c.readErr
	}
	switch c.lastCmd {
	case 0x30:
		p[0] = c.mask
	case 0x68:
		p[0], p[1] = byte(c.adcInt), byte(c.adcInt>>8)
	case 0x69:
		p[0], p[1] = byte(c.adcExt), byte(c.adcExt>>8)
	}
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) setMask(mask byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mask = mask
}

func (c *fakeChannel) setWriteErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// textWrites returns the payloads of all display-text commands, in order.
func (c *fakeChannel) textWrites() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var texts []string
	for _, w := range c.writes {
		if w[0] == 0x00 {
			texts = append(texts, string(w[1:]))
		}
	}
	return texts
}

func (c *fakeChannel) hasText(text string) bool {
	for _, t := range c.textWrites() {
		if t == text {
			return true
		}
	}
	return false
}

// fakeBus hands out fake channels and remembers them, so tests can inspect
// every lifecycle's channel.
type fakeBus struct {
	mu       sync.Mutex
	channels []*fakeChannel
}

func (b *fakeBus) open() (board.Channel, error) {
	ch := &fakeChannel{}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.channels = append(b.channels, ch)
	return ch, nil
}

func (b *fakeBus) channel(i int) *fakeChannel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.channels[i]
}

func (b *fakeBus) opens() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.channels)
}

// fakeFetcher records lookups without completing them; tests complete or
// fail them explicitly.
type fakeFetcher struct {
	mu    sync.Mutex
	calls []fakeLookup
}

type fakeLookup struct {
	url       string
	onSuccess func([]byte)
	onFailure func(error)
}

func (f *fakeFetcher) Fetch(url string, onSuccess func([]byte), onFailure func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeLookup{url, onSuccess, onFailure})
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) call(i int) fakeLookup {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

var testTime = time.Date(2016, time.March, 12, 14, 30, 5, 0, time.UTC)

func testConfig(bus *fakeBus, fetcher *fakeFetcher) Config {
	return Config{
		OpenChannel:   bus.open,
		ListenAddress: "127.0.0.1:0",
		PollInterval:  10 * time.Millisecond,
		RestartDelay:  50 * time.Millisecond,
		Fetcher:       fetcher,
		ResolveIP:     func() (string, bool) { return "192.168.1.7", true },
		Now:           func() time.Time { return testTime },
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// newRunningController initializes a controller without the Run supervisor,
// so teardown tests are not raced by automatic restarts.
func newRunningController(t *testing.T, cfg Config) *Controller {
	t.Helper()
	c, err := NewController(cfg)
	require.NoError(t, err)
	require.NoError(t, c.initialize())
	t.Cleanup(func() { c.Shutdown("test cleanup") })
	return c
}

func TestControllerInitialize(t *testing.T) {
	bus := &fakeBus{}
	c := newRunningController(t, testConfig(bus, &fakeFetcher{}))

	assert.Equal(t, StateRunning, c.State())
	assert.Equal(t, CycleGreeting, c.Cycle())
	assert.NotNil(t, c.ListenerAddr())
	assert.True(t, bus.channel(0).hasText("  Hello World!"))
}

func TestControllerDoubleInitializeRejected(t *testing.T) {
	bus := &fakeBus{}
	c := newRunningController(t, testConfig(bus, &fakeFetcher{}))

	err := c.initialize()
	require.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Equal(t, 1, bus.opens())
}

func TestControllerShutdown(t *testing.T) {
	bus := &fakeBus{}
	c := newRunningController(t, testConfig(bus, &fakeFetcher{}))
	addr := c.ListenerAddr()

	c.Shutdown("test")

	assert.Equal(t, StateUninitialized, c.State())
	assert.Equal(t, CycleGreeting, c.Cycle())
	assert.True(t, bus.channel(0).isClosed())

	// Listener is gone.
	_, err := net.DialTimeout("tcp", addr.String(), 200*time.Millisecond)
	assert.Error(t, err)

	// Dispatch after teardown is a logged no-op.
	c.Dispatch(1)
	assert.Equal(t, CycleGreeting, c.Cycle())
}

func TestControllerRunAndRestart(t *testing.T) {
	bus := &fakeBus{}
	fetcher := &fakeFetcher{}
	c, err := NewController(testConfig(bus, fetcher))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return c.State() == StateRunning },
		5*time.Second, 10*time.Millisecond)

	// Advance the cycle so the restart's reset to the greeting is visible.
	c.Dispatch(1)
	require.Equal(t, CycleShowIP, c.Cycle())
	firstAddr := c.ListenerAddr()

	// Button 6: teardown now, restart after the delay.
	c.Dispatch(6)
	require.Equal(t, StateUninitialized, c.State())
	require.True(t, bus.channel(0).isClosed())

	require.Eventually(t, func() bool { return c.State() == StateRunning },
		5*time.Second, 10*time.Millisecond)

	assert.Equal(t, CycleGreeting, c.Cycle())
	assert.Equal(t, 2, bus.opens(), "restart must open a fresh channel")
	assert.False(t, bus.channel(1).isClosed())
	assert.NotNil(t, c.ListenerAddr())
	_ = firstAddr

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, StateUninitialized, c.State())
	assert.True(t, bus.channel(1).isClosed())
}

func TestPollDispatchesEdges(t *testing.T) {
	bus := &fakeBus{}
	c := newRunningController(t, testConfig(bus, &fakeFetcher{}))
	ch := bus.channel(0)

	// Button 1 is bit 5 of the mask. Held press advances exactly once.
	ch.setMask(0x20)
	require.Eventually(t, func() bool { return c.Cycle() == CycleShowIP },
		5*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, CycleShowIP, c.Cycle())

	// Release, press again: one more advance.
	ch.setMask(0x00)
	time.Sleep(50 * time.Millisecond)
	ch.setMask(0x20)
	require.Eventually(t, func() bool { return c.Cycle() == CycleShowDate },
		5*time.Second, 5*time.Millisecond)
}

func TestRemoteBytesDispatch(t *testing.T) {
	bus := &fakeBus{}
	c := newRunningController(t, testConfig(bus, &fakeFetcher{}))

	conn, err := net.Dial("tcp", c.ListenerAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte{1})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.Cycle() == CycleShowIP },
		5*time.Second, 5*time.Millisecond)

	// Byte 0 is ignored.
	_, err = conn.Write([]byte{0, 1})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.Cycle() == CycleShowDate },
		5*time.Second, 5*time.Millisecond)
}

func TestRemoteResetClosesConnection(t *testing.T) {
	bus := &fakeBus{}
	c := newRunningController(t, testConfig(bus, &fakeFetcher{}))

	conn, err := net.Dial("tcp", c.ListenerAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	// Byte 6 over the wire tears everything down, including this
	// connection: the next read reports EOF.
	_, err = conn.Write([]byte{6})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var buf [1]byte
	_, err = conn.Read(buf[:])
	assert.Error(t, err)

	require.Eventually(t, func() bool { return c.State() == StateUninitialized },
		5*time.Second, 10*time.Millisecond)
	assert.True(t, bus.channel(0).isClosed())
}

func TestTeardownBestEffort(t *testing.T) {
	bus := &fakeBus{}
	c := newRunningController(t, testConfig(bus, &fakeFetcher{}))
	addr := c.ListenerAddr()

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.remoteConn != nil
	}, 5*time.Second, 5*time.Millisecond)

	// Make the device reinit fail mid-teardown: every step must still run.
	bus.channel(0).setWriteErr(io.ErrClosedPipe)

	c.Dispatch(6)

	assert.Equal(t, StateUninitialized, c.State())
	assert.True(t, bus.channel(0).isClosed(), "channel must be closed despite reinit failure")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var buf [1]byte
	_, err = conn.Read(buf[:])
	assert.Error(t, err, "tracked connection must be closed")

	_, err = net.DialTimeout("tcp", addr.String(), 200*time.Millisecond)
	assert.Error(t, err, "listener must be stopped")
}

func TestTemperatures(t *testing.T) {
	bus := &fakeBus{}
	c := newRunningController(t, testConfig(bus, &fakeFetcher{}))
	ch := bus.channel(0)

	ch.mu.Lock()
	ch.adcInt = 1023
	ch.adcExt = 0
	ch.mu.Unlock()

	internal, external, err := c.Temperatures()
	require.NoError(t, err)
	assert.InDelta(t, 60.0, internal, 0.001)
	assert.InDelta(t, -50.0, external, 0.001)

	c.Shutdown("test")
	_, _, err = c.Temperatures()
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	var cfg Config
	_, err := NewController(cfg)
	assert.Error(t, err)
}
