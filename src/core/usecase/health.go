package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"statapi/src/core/domain"
	"statapi/src/core/ports"
)

const pingTimeout = 3 * time.Second

// HealthService handles health check logic.
type HealthService struct {
	dbs ports.DatabasePinger
	log *slog.Logger
}

// NewHealthService creates a new HealthService.
func NewHealthService(dbs ports.DatabasePinger, log *slog.Logger) *HealthService {
	return &HealthService{
		dbs: dbs,
		log: log,
	}
}

// HealthStatus represents the health of the application.
type HealthStatus struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// ComponentHealth represents the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Check pings every configured database in parallel. The overall status is
// "degraded" when any of them is unreachable.
func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	names := s.dbs.Names()
	results := make([]domain.DatabaseHealth, len(names))

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			results[i] = domain.DatabaseHealth{Name: name, Healthy: true}
			if err := s.dbs.Ping(ctx, name); err != nil {
				s.log.WarnContext(ctx, "database health check failed", "database", name, "error", err)
				results[i].Healthy = false
				results[i].Message = "unreachable"
			}
			return nil
		})
	}
	_ = g.Wait()

	status := &HealthStatus{
		Status:     "ok",
		Components: make(map[string]ComponentHealth, len(results)),
	}
	for _, r := range results {
		if !r.Healthy {
			status.Status = "degraded"
			status.Components["database:"+r.Name] = ComponentHealth{Status: "unhealthy", Message: r.Message}
			continue
		}
		status.Components["database:"+r.Name] = ComponentHealth{Status: "healthy"}
	}
	return status
}
