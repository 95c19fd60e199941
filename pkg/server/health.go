package server

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultHealthInterval is how often dependency checks are refreshed.
	DefaultHealthInterval = 15 * time.Second

	// DefaultCheckTimeout bounds a single dependency check.
	DefaultCheckTimeout = 5 * time.Second
)

// CheckFunc reports the readiness of one dependency.
type CheckFunc func(ctx context.Context) error

// HealthMonitor runs dependency checks in the background and caches the last
// result, so health endpoints never call a dependency on the request path.
type HealthMonitor struct {
	checks  map[string]CheckFunc
	names   []string
	timeout time.Duration
	logger  *logrus.Logger

	refreshMu sync.Mutex

	mu          sync.RWMutex
	results     map[string]string
	healthy     bool
	checked     bool
	subscribers []func(healthy bool)
}

// NewHealthMonitor creates a monitor over checks. Each check runs with its own timeout.
func NewHealthMonitor(checks map[string]CheckFunc, timeout time.Duration, logger *logrus.Logger) *HealthMonitor {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return &HealthMonitor{
		checks:  checks,
		names:   names,
		timeout: timeout,
		logger:  logger,
		results: map[string]string{},
		healthy: true,
	}
}

// Subscribe registers fn to be called with the overall result after every refresh.
func (m *HealthMonitor) Subscribe(fn func(healthy bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subscribers = append(m.subscribers, fn)
}

// Refresh runs every check once, caches the results and notifies subscribers.
func (m *HealthMonitor) Refresh(ctx context.Context) (map[string]string, bool) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	results := make(map[string]string, len(m.names))
	healthy := true

	for _, name := range m.names {
		if err := m.runCheck(ctx, name); err != nil {
			m.logger.WithError(err).WithFields(logrus.Fields{
				"check": name,
			}).Debug("Health check failed")
			results[name] = err.Error()
			healthy = false
			continue
		}
		results[name] = "ok"
	}

	m.mu.Lock()
	wasHealthy, wasChecked := m.healthy, m.checked
	m.results = results
	m.healthy = healthy
	m.checked = true
	subscribers := append([]func(bool){}, m.subscribers...)
	m.mu.Unlock()

	if wasChecked && wasHealthy != healthy {
		entry := m.logger.WithFields(logrus.Fields{
			"checks": results,
		})
		if healthy {
			entry.Info("Dependencies recovered")
		} else {
			entry.Warn("Dependencies unhealthy")
		}
	}

	for _, fn := range subscribers {
		fn(healthy)
	}

	return results, healthy
}

func (m *HealthMonitor) runCheck(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	return m.checks[name](ctx)
}

// Status returns the cached results. The first call refreshes when nothing
// has been checked yet. The returned map must not be modified.
func (m *HealthMonitor) Status(ctx context.Context) (map[string]string, bool) {
	m.mu.RLock()
	results, healthy, checked := m.results, m.healthy, m.checked
	m.mu.RUnlock()

	if !checked {
		return m.Refresh(ctx)
	}
	return results, healthy
}

// Run refreshes immediately and then every interval until ctx is done.
func (m *HealthMonitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}

	m.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}
