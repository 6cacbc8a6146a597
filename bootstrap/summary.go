package bootstrap

import (
	"context"
	"time"

	"github.com/kbukum/reactivekit/component"
	"github.com/kbukum/reactivekit/logger"
)

// ComponentInfo is one component line of the startup summary.
type ComponentInfo struct {
	Name    string
	Type    string
	Details string
	Status  component.HealthStatus
	Message string
}

// Summary collects what a service started with and logs it once startup
// finishes.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	components      []ComponentInfo
	routes          []component.Route
}

// NewSummary creates an empty summary.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// Collect reads descriptions, health and routes from the registry.
func (s *Summary) Collect(ctx context.Context, reg *component.Registry) {
	if reg == nil {
		return
	}
	s.components = s.components[:0]
	s.routes = s.routes[:0]
	for _, c := range reg.All() {
		h := c.Health(ctx)
		info := ComponentInfo{Name: c.Name(), Status: h.Status, Message: h.Message}
		if d, ok := c.(component.Describable); ok {
			desc := d.Describe()
			if desc.Name != "" {
				info.Name = desc.Name
			}
			info.Type = desc.Type
			info.Details = desc.Details
		}
		s.components = append(s.components, info)
		if rp, ok := c.(component.RouteProvider); ok {
			s.routes = append(s.routes, rp.Routes()...)
		}
	}
}

// Components returns the collected component lines.
func (s *Summary) Components() []ComponentInfo { return s.components }

// Routes returns the collected routes.
func (s *Summary) Routes() []component.Route { return s.routes }

// Log writes the summary: one line for the service, one per component and
// one per route.
func (s *Summary) Log(log *logger.Logger) {
	healthy := 0
	for _, c := range s.components {
		if c.Status == component.StatusHealthy {
			healthy++
		}
	}
	log.Info("Service started", logger.Fields(
		logger.FieldService, s.serviceName,
		"version", s.version,
		"components", len(s.components),
		"healthy", healthy,
		"routes", len(s.routes),
		logger.FieldDuration, s.startupDuration.Milliseconds(),
	))
	for _, c := range s.components {
		fields := logger.Fields(logger.FieldComponent, c.Name, "type", c.Type, logger.FieldStatus, string(c.Status))
		if c.Details != "" {
			fields["details"] = c.Details
		}
		if c.Message != "" {
			fields["message"] = c.Message
		}
		if c.Status == component.StatusUnhealthy {
			log.Warn("Component", fields)
		} else {
			log.Info("Component", fields)
		}
	}
	for _, r := range s.routes {
		log.Info("Route", logger.Fields("method", r.Method, "path", r.Path, "handler", r.Handler))
	}
}
