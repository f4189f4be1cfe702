package app

import (
	"context"
	"fmt"
	"time"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	// Check Database
	if s.app.DB == nil {
		status.Status = "down"
		status.Components["database"] = "missing"
	} else if err := s.app.DB.PingContext(ctx); err != nil {
		status.Status = "down"
		status.Components["database"] = fmt.Sprintf("unreachable: %v", err)
	} else {
		status.Components["database"] = "ok (" + s.app.Config.DB.Driver + ")"
	}

	// Check Dialect
	if s.app.Dialect == nil {
		status.Status = "degraded"
		status.Components["dialect"] = "missing"
	} else {
		status.Components["dialect"] = s.app.Dialect.Name()
	}

	// Check Optimizer
	if s.app.Optimizer != nil {
		status.Components["optimizer"] = "enabled"
	} else if s.app.Config.Optimizer.IsEnabled() {
		status.Status = "degraded"
		status.Components["optimizer"] = "missing but enabled in config"
	} else {
		status.Components["optimizer"] = "disabled"
	}

	return status
}
