package connectivity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Prober performs the actual reachability check against the remote store.
type Prober interface {
	Ping(ctx context.Context) error
}

const (
	probeTimeout  = 5 * time.Second
	initialDelay  = 5 * time.Second
	probeInterval = 10 * time.Second
)

// Monitor tracks whether the remote store is reachable. The network
// interface saying "up" is not trusted on its own; every online verdict
// comes from a real probe. An interface-down signal is authoritative for
// the offline direction and flips the state without probing.
type Monitor struct {
	prober Prober
	log    *zap.Logger

	mu          sync.Mutex
	online      bool
	transitions chan bool

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMonitor creates a monitor whose initial state mirrors the platform's
// interface signal (true when the caller has no better information).
func NewMonitor(prober Prober, initialOnline bool, log *zap.Logger) *Monitor {
	return &Monitor{
		prober:      prober,
		log:         log,
		online:      initialOnline,
		transitions: make(chan bool, 1),
		stop:        make(chan struct{}),
	}
}

// Start launches the periodic probe loop: first probe after the initial
// delay, each following probe scheduled only once the previous one finished,
// so a slow probe never overlaps the next.
func (m *Monitor) Start() {
	go func() {
		timer := time.NewTimer(initialDelay)
		defer timer.Stop()
		for {
			select {
			case <-timer.C:
				m.probe()
				timer.Reset(probeInterval)
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop ends the probe loop.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Monitor) probe() bool {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	err := m.prober.Ping(ctx)
	if err != nil {
		m.log.Debug("connectivity probe failed", zap.Error(err))
	}
	connected := err == nil
	m.setOnline(connected)
	return connected
}

func (m *Monitor) setOnline(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	if changed {
		// Latest transition wins; the drain and send stay under the lock so
		// interleaved callers cannot leave an older verdict buffered.
		select {
		case <-m.transitions:
		default:
		}
		select {
		case m.transitions <- online:
		default:
		}
	}
	m.mu.Unlock()

	if changed {
		m.log.Info("connectivity changed", zap.Bool("online", online))
	}
}

// IsOnline reports the last known reachability verdict.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Transitions delivers state changes (true = came online). Buffered with
// latest-wins semantics; intended for a single consumer.
func (m *Monitor) Transitions() <-chan bool {
	return m.transitions
}

// CheckConnection probes on demand (manual retry triggers) and returns the
// fresh verdict. Probe errors mean "not connected", never a failure.
func (m *Monitor) CheckConnection(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	connected := m.prober.Ping(probeCtx) == nil
	m.setOnline(connected)
	return connected
}

// InterfaceUp tells the monitor the platform reported the network interface
// coming up; reachability is verified with an immediate probe.
func (m *Monitor) InterfaceUp() {
	m.probe()
}

// InterfaceDown marks the monitor offline immediately; the interface being
// down is proof enough.
func (m *Monitor) InterfaceDown() {
	m.setOnline(false)
}
