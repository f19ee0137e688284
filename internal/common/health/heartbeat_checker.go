package health

import (
	"fmt"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// HeartbeatChecker fails if Beat has not been called within timeout. The first beat is implied
// at construction so a freshly started process is considered alive.
type HeartbeatChecker struct {
	name    string
	timeout time.Duration
	clock   clock.PassiveClock

	mu       sync.Mutex
	lastBeat time.Time
}

func NewHeartbeatChecker(name string, timeout time.Duration, clock clock.PassiveClock) *HeartbeatChecker {
	return &HeartbeatChecker{
		name:     name,
		timeout:  timeout,
		clock:    clock,
		lastBeat: clock.Now(),
	}
}

func (c *HeartbeatChecker) Beat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastBeat = c.clock.Now()
}

func (c *HeartbeatChecker) Check() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if since := c.clock.Since(c.lastBeat); since > c.timeout {
		return fmt.Errorf("%s has not reported for %s (timeout %s)", c.name, since, c.timeout)
	}
	return nil
}
