package sse

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/reactivekit/component"
)

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component exposes a Tracker to the component lifecycle. Register it after
// the HTTP server so it stops first and open streams end before the server
// waits for connections to drain.
type Component struct {
	tracker *Tracker
	path    string
}

// NewComponent creates a component with a fresh Tracker for streams served
// under path.
func NewComponent(path string) *Component {
	return &Component{tracker: NewTracker(), path: path}
}

// Tracker returns the tracker handlers pass to Serve.
func (c *Component) Tracker() *Tracker { return c.tracker }

// Name returns the component name.
func (c *Component) Name() string { return "sse" }

// Start is a no-op; streams attach on demand.
func (c *Component) Start(context.Context) error { return nil }

// Stop cancels every open stream and waits briefly for them to release.
func (c *Component) Stop(ctx context.Context) error {
	c.tracker.Close()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for c.tracker.Count() > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%d streams still open: %w", c.tracker.Count(), ctx.Err())
		case <-tick.C:
		}
	}
	return nil
}

// Health reports the number of open streams.
func (c *Component) Health(context.Context) component.Health {
	if c.tracker.Closed() {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "stopped"}
	}
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d streams open", c.tracker.Count()),
	}
}

// Describe returns the startup log entry.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "SSE Streams",
		Type:    "stream",
		Details: fmt.Sprintf("path %s", c.path),
	}
}
