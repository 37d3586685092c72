package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/workshop-registration-go/internal/service"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestHealthCheck(t *testing.T) {
	down := mockPinger{err: errors.New("connection refused")}

	tests := []struct {
		name   string
		deps   []service.Dependency
		status string
	}{
		{"all up", []service.Dependency{
			{Name: "store", Pinger: mockPinger{}, Critical: true},
			{Name: "asaas", Pinger: mockPinger{}},
		}, "healthy"},
		{"optional down", []service.Dependency{
			{Name: "store", Pinger: mockPinger{}, Critical: true},
			{Name: "asaas", Pinger: down},
		}, "degraded"},
		{"critical down", []service.Dependency{
			{Name: "store", Pinger: down, Critical: true},
			{Name: "asaas", Pinger: mockPinger{}},
		}, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := service.NewHealthService(tt.deps, time.Second, zap.NewNop()).Check(context.Background())
			assert.Equal(t, tt.status, h.Status)
			assert.Len(t, h.Services, 2)
			assert.Equal(t, "asaas", h.Services[0].Name)
		})
	}
}
