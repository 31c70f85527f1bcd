package utils

import (
	"context"
	"sync"
	"time"
)

// ReadyCheck is a named dependency probe.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Healthy   bool              `json:"healthy"`
	Failures  map[string]string `json:"failures,omitempty"`
	CheckedAt time.Time         `json:"checkedAt"`
}

var (
	currentHealth HealthStatus
	mu            sync.RWMutex
)

// GetHealthStatus returns latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	mu.RLock()
	defer mu.RUnlock()
	return currentHealth
}

// RunChecks probes every dependency once and records the snapshot.
func RunChecks(ctx context.Context, checks []ReadyCheck) HealthStatus {
	status := HealthStatus{Healthy: true, CheckedAt: time.Now()}
	for _, check := range checks {
		if check.Check == nil {
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := check.Check(cctx)
		cancel()
		if err != nil {
			if status.Failures == nil {
				status.Failures = map[string]string{}
			}
			status.Healthy = false
			status.Failures[check.Name] = err.Error()
		}
	}

	mu.Lock()
	currentHealth = status
	mu.Unlock()
	return status
}

// StartHealthMonitor performs periodic health checks until ctx is done.
func StartHealthMonitor(ctx context.Context, interval time.Duration, checks []ReadyCheck) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		RunChecks(ctx, checks)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				RunChecks(ctx, checks)
			}
		}
	}()
}
