// Package connectivity tracks whether the network path to the API is
// usable. A monitor probes periodically and publishes transitions to
// subscribers; the request pipeline consults it to decide whether retrying
// is worthwhile.
package connectivity

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/introspect-io/insights-client/internal/constants"
	"github.com/introspect-io/insights-client/pkg/insights"
)

// Prober performs a single connectivity check. It returns (false, nil)
// when the check definitively shows the endpoint unreachable, and a
// non-nil error only when the probe itself could not run. Setup errors
// must not be read as "offline".
type Prober interface {
	Probe(ctx context.Context) (bool, error)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context) (bool, error)

// Probe implements Prober.
func (f ProberFunc) Probe(ctx context.Context) (bool, error) {
	return f(ctx)
}

// HTTPProber probes by issuing a HEAD request against the given URL. Any
// HTTP status counts as reachable; only a transport failure means offline.
func HTTPProber(url string) Prober {
	client := &http.Client{Timeout: constants.ProbeTimeout}

	return ProberFunc(func(ctx context.Context) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return false, fmt.Errorf("failed to create probe request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return false, nil
		}

		_ = resp.Body.Close()

		return true, nil
	})
}

// Monitor implements insights.ConnectivityMonitor by probing on an
// interval. The state defaults to connected: an inconclusive probe never
// flips the monitor offline, so requests fail open rather than being
// suppressed on monitor trouble.
type Monitor struct {
	prober   Prober
	interval time.Duration
	logger   insights.Logger

	online atomic.Bool

	mu          sync.Mutex
	subscribers []chan bool

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the probe interval.
func WithInterval(interval time.Duration) Option {
	return func(m *Monitor) {
		m.interval = interval
	}
}

// WithLogger sets the logger.
func WithLogger(logger insights.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// New creates a monitor using the given prober. Call Start to begin
// probing.
func New(prober Prober, opts ...Option) *Monitor {
	monitor := &Monitor{
		prober:   prober,
		interval: constants.DefaultProbeInterval,
		logger:   insights.NopLogger{},
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	monitor.online.Store(true)

	for _, opt := range opts {
		opt(monitor)
	}

	return monitor
}

// Start seeds the state with an immediate probe and launches the probe
// loop.
func (m *Monitor) Start(ctx context.Context) {
	m.started.Store(true)
	m.check(ctx)

	go m.run(ctx)
}

// IsConnected returns the last known connectivity state.
func (m *Monitor) IsConnected() bool {
	return m.online.Load()
}

// Changes returns a channel receiving the new state on each transition.
func (m *Monitor) Changes() <-chan bool {
	ch := make(chan bool, 1)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch
}

// Close stops the probe loop. It is safe to call more than once.
func (m *Monitor) Close() error {
	m.stopOnce.Do(func() {
		close(m.stop)

		// The probe loop only runs after Start; waiting for a loop that
		// never existed would block forever.
		if m.started.Load() {
			<-m.done
		}
	})

	return nil
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check(ctx)
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, constants.ProbeTimeout)
	defer cancel()

	online, err := m.prober.Probe(probeCtx)
	if err != nil {
		m.logger.Warn("connectivity probe failed to run", map[string]interface{}{
			"error": err.Error(),
		})

		return
	}

	m.setOnline(online)
}

func (m *Monitor) setOnline(online bool) {
	if m.online.Swap(online) == online {
		return
	}

	m.logger.Info("connectivity changed", map[string]interface{}{
		"online": online,
	})

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ch := range m.subscribers {
		// Replace a pending notification so subscribers always see the
		// latest state.
		select {
		case ch <- online:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- online
		}
	}
}
