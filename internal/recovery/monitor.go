package recovery

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Prober is a lightweight connectivity check, normally the API health
// endpoint.
type Prober interface {
	Ping(ctx context.Context) error
}

// Monitor watches connectivity and reports when a lost connection has come
// back and stayed back. A single successful probe after an outage is not
// enough: the link must answer two consecutive probes one interval apart
// before a restored event fires, so recovery never starts a burst of doomed
// requests on a still-flaky link.
type Monitor struct {
	probe    Prober
	interval time.Duration
	online   atomic.Bool

	started  atomic.Bool
	restored chan struct{}
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// NewMonitor creates a monitor probing at the given interval.
func NewMonitor(probe Prober, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	m := &Monitor{
		probe:    probe,
		interval: interval,
		restored: make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	m.online.Store(true)
	return m
}

// Online reports the last observed connectivity state. While false, callers
// should defer network work until a restored event arrives.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Restored delivers one event each time connectivity is confirmed stable
// after an outage.
func (m *Monitor) Restored() <-chan struct{} {
	return m.restored
}

// Start launches the probe loop. Calling Start more than once is a no-op.
func (m *Monitor) Start() {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go m.run()
}

// Stop cancels the probe loop. Safe to call repeatedly, and returns
// immediately if Start was never called.
func (m *Monitor) Stop() {
	m.once.Do(func() { close(m.stop) })
	if m.started.Load() {
		<-m.done
	}
}

func (m *Monitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	successes := 0

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), m.interval)
		err := m.probe.Ping(ctx)
		cancel()

		if err != nil {
			m.online.Store(false)
			successes = 0
			continue
		}

		if m.online.Load() {
			continue
		}

		successes++
		if successes < 2 {
			continue
		}

		// Two consecutive successes: the link is considered stable.
		m.online.Store(true)
		successes = 0
		select {
		case m.restored <- struct{}{}:
		default:
		}
	}
}
