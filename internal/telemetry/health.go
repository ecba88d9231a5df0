package telemetry

import (
	"context"
	"time"
)

// ComponentStatus reports the health of a single dependency.
type ComponentStatus struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Message   string    `json:"message,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// HealthReport aggregates the status of every dependency the engine relies on.
type HealthReport struct {
	Healthy    bool              `json:"healthy"`
	Components []ComponentStatus `json:"components"`
}

// HealthChecker is implemented by any dependency that can self-report
// availability (the store, the vectorizer, the caches).
type HealthChecker interface {
	Name() string
	CheckHealth(ctx context.Context) error
}

// CheckHealth runs every checker and aggregates the results. The overall
// report is healthy only if every component reports healthy; a single
// unhealthy dependency does not stop the remaining checks from running.
func CheckHealth(ctx context.Context, checkers ...HealthChecker) HealthReport {
	report := HealthReport{Healthy: true}

	for _, checker := range checkers {
		status := ComponentStatus{
			Name:      checker.Name(),
			CheckedAt: time.Now(),
		}

		if err := checker.CheckHealth(ctx); err != nil {
			status.Healthy = false
			status.Message = err.Error()
			report.Healthy = false
		} else {
			status.Healthy = true
		}

		report.Components = append(report.Components, status)
	}

	return report
}
