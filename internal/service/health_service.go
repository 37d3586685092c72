package service

import (
	"context"
	"sort"
	"time"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
	"github.com/boddenberg/workshop-registration-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var healthTracer = otel.Tracer("service/health")

// Dependency is a named readiness probe. A failing critical dependency makes
// the service unhealthy, any other failure only degrades it.
type Dependency struct {
	Name     string
	Pinger   port.Pinger
	Critical bool
}

// HealthService probes dependencies for /readyz.
type HealthService struct {
	deps    []Dependency
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealthService creates the readiness checker.
func NewHealthService(deps []Dependency, timeout time.Duration, logger *zap.Logger) *HealthService {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthService{deps: deps, timeout: timeout, logger: logger}
}

// Check pings every dependency concurrently.
func (s *HealthService) Check(ctx context.Context) *domain.HealthStatus {
	ctx, span := healthTracer.Start(ctx, "HealthService.Check")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results := make([]domain.ServiceHealth, len(s.deps))
	var g errgroup.Group
	for i, dep := range s.deps {
		i, dep := i, dep
		g.Go(func() error {
			start := time.Now()
			err := dep.Pinger.Ping(ctx)
			h := domain.ServiceHealth{
				Name:        dep.Name,
				Status:      "up",
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: time.Now().UTC().Format(time.RFC3339),
			}
			if err != nil {
				h.Status = "down"
				h.Error = err.Error()
				s.logger.Warn("dependency unhealthy", zap.String("dependency", dep.Name), zap.Error(err))
			}
			results[i] = h
			return nil
		})
	}
	_ = g.Wait()

	status := "healthy"
	for i, h := range results {
		if h.Status == "up" {
			continue
		}
		if s.deps[i].Critical {
			status = "unhealthy"
			break
		}
		status = "degraded"
	}

	sort.Slice(results, func(a, b int) bool { return results[a].Name < results[b].Name })
	return &domain.HealthStatus{Status: status, Services: results}
}
