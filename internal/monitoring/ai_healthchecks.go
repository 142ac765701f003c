package monitoring

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	HEALTHCHECK_INTERVAL = 15 * time.Second
	HEALTHCHECK_TIMEOUT  = 5 * time.Second
)

type ProbeFunc func(ctx context.Context) error

// Health tracks the latest probe result per component.
type Health struct {
	mu         sync.RWMutex
	components map[string]*atomic.Bool
}

func NewHealth() *Health {
	return &Health{components: make(map[string]*atomic.Bool)}
}

// Register adds a component, initially healthy.
func (h *Health) Register(name string) *atomic.Bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	flag, ok := h.components[name]
	if !ok {
		flag = &atomic.Bool{}
		flag.Store(true)
		h.components[name] = flag
	}
	return flag
}

func (h *Health) Snapshot() map[string]bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]bool, len(h.components))
	for name, flag := range h.components {
		out[name] = flag.Load()
	}
	return out
}

func (h *Health) Healthy() bool {
	for _, ok := range h.Snapshot() {
		if !ok {
			return false
		}
	}
	return true
}

func (h *Health) Unhealthy() []string {
	var names []string
	for name, ok := range h.Snapshot() {
		if !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// MonitorHealth runs probe now and then on every tick until ctx ends.
func MonitorHealth(ctx context.Context, name string, probe ProbeFunc, healthy *atomic.Bool, interval time.Duration) {
	if interval <= 0 {
		interval = HEALTHCHECK_INTERVAL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	check := func() {
		probeCtx, cancel := context.WithTimeout(ctx, HEALTHCHECK_TIMEOUT)
		defer cancel()

		err := probe(probeCtx)
		wasHealthy := healthy.Swap(err == nil)
		switch {
		case err != nil && wasHealthy:
			slog.Warn("[HealthCheck] Component is unhealthy",
				slog.String("component", name),
				slog.String("error", err.Error()))
		case err == nil && !wasHealthy:
			slog.Info("[HealthCheck] Component recovered", slog.String("component", name))
		}
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
