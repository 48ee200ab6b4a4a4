package app

import (
	"sync"
	"time"

	"github.com/rpiui-project/rpiui-go/pkg/log"
)

// poller drives the periodic button poll. Stop never joins the goroutine:
// teardown runs inside a dispatch, which may itself be a poll tick, and the
// next tick is harmless anyway — PollOnce drops ticks that race with
// teardown because the controller is no longer Running.
type poller struct {
	c        *Controller
	interval time.Duration

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newPoller(c *Controller, interval time.Duration) *poller {
	return &poller{
		c:        c,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start launches the poll loop. The first poll runs immediately.
func (p *poller) Start() {
	p.wg.Add(1)
	go p.loop()
}

func (p *poller) loop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.c.PollOnce()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.c.PollOnce()
		}
	}
}

// Stop ends the poll loop without waiting for it.
func (p *poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
}

// Wait blocks until the poll loop has exited.
func (p *poller) Wait() {
	p.wg.Wait()
}

// PollOnce performs one poll tick: sample the pushed-buttons register, feed
// the edge detector and dispatch a detected press. A tick arriving while the
// controller is not Running is a no-op.
func (c *Controller) PollOnce() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return
	}

	mask, err := c.dev.ReadPushedButtonsMask()
	if err != nil {
		c.logger.Error("button poll failed", "error", err)
		c.logErrorLocked(err, "button poll")
		return
	}

	button, ok := c.edges.Detect(mask)
	if !ok {
		return
	}

	c.logButtonLocked(uint8(button), mask, log.SourceLocal, nil)
	c.notifyButton(uint8(button), log.SourceLocal)
	c.dispatchLocked(uint8(button), log.SourceLocal)
}
