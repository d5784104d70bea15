// Package connectivity tracks network reachability. A periodic probe
// through a Pinger catches false-positive "online" states such as captive
// portals; platform network events can be fed in as additional
// observations. Subscribers are notified synchronously, exactly once per
// transition, debounced against flapping.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/lotbook/lotbook/internal/logging"
)

// Status is the current reachability state.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Pinger probes the remote backend for reachability. A non-nil error is
// treated as offline.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor observes network reachability and notifies subscribers of
// transitions. The monitor itself never returns an error: probe failures
// simply read as offline.
type Monitor struct {
	pinger       Pinger
	interval     time.Duration
	probeTimeout time.Duration
	log          logging.Logger

	mu             sync.Mutex
	started        bool
	status         Status
	observed       bool
	candidate      Status
	candidateCount int
	nextSubID      int
	subs           map[int]func(Status)
}

// confirmations is how many consecutive identical observations are needed
// before a transition is accepted. The first observation after start is
// applied directly.
const confirmations = 2

// NewMonitor returns a Monitor probing through pinger every interval. The
// status starts as offline until the first probe says otherwise.
func NewMonitor(pinger Pinger, interval time.Duration, log logging.Logger) *Monitor {
	return &Monitor{
		pinger:       pinger,
		interval:     interval,
		probeTimeout: 3 * time.Second,
		log:          log,
		status:       StatusOffline,
		subs:         make(map[int]func(Status)),
	}
}

// Status returns the current reachability state.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Online is a convenience shorthand for Status() == StatusOnline.
func (m *Monitor) Online() bool {
	return m.Status() == StatusOnline
}

// OnStatusChange registers a callback invoked synchronously on every
// transition. The returned function removes the subscription; calling it
// more than once is harmless.
func (m *Monitor) OnStatusChange(fn func(Status)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// NotifyPlatformEvent feeds a platform network-change event into the
// monitor as one observation. It is subject to the same debounce as probe
// results.
func (m *Monitor) NotifyPlatformEvent(online bool) {
	if online {
		m.observe(StatusOnline)
	} else {
		m.observe(StatusOffline)
	}
}

// Start probes immediately and then on every tick until ctx is done. It
// blocks; run it on its own goroutine.
func (m *Monitor) Start(ctx context.Context) {
	m.probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	err := m.pinger.Ping(probeCtx)
	cancel()

	if err != nil {
		m.observe(StatusOffline)
	} else {
		m.observe(StatusOnline)
	}
}

// observe applies one reachability observation. The very first observation
// sets the status directly; afterwards a differing status must be seen
// confirmations times in a row before the transition is accepted.
func (m *Monitor) observe(s Status) {
	m.mu.Lock()

	if m.observed && s == m.status {
		m.candidateCount = 0
		m.mu.Unlock()
		return
	}

	if m.observed {
		if s != m.candidate {
			m.candidate = s
			m.candidateCount = 0
		}
		m.candidateCount++
		if m.candidateCount < confirmations {
			m.mu.Unlock()
			return
		}
	}

	m.observed = true
	m.status = s
	m.candidateCount = 0

	listeners := make([]func(Status), 0, len(m.subs))
	for _, fn := range m.subs {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	m.log.Info(context.Background(), "connectivity changed", "status", string(s))
	for _, fn := range listeners {
		fn(s)
	}
}
