package server

import (
	"context"
	"fmt"
	"sort"

	"github.com/kbukum/reactivekit/component"
)

const componentName = "http-server"

var (
	_ component.Component     = (*Component)(nil)
	_ component.Describable   = (*Component)(nil)
	_ component.RouteProvider = (*Component)(nil)
)

// Probe and info paths, listed after the API routes.
var systemPaths = map[string]bool{
	"/health": true,
	"/info":   true,
	"/live":   true,
	"/ready":  true,
}

// Component adapts Server to the component lifecycle.
type Component struct {
	server *Server
}

// NewComponent returns a lifecycle component backed by s.
func NewComponent(s *Server) *Component {
	return &Component{server: s}
}

// Name returns the registration name.
func (sc *Component) Name() string { return componentName }

// Start starts the underlying HTTP server.
func (sc *Component) Start(ctx context.Context) error {
	return sc.server.Start(ctx)
}

// Stop gracefully shuts down the underlying HTTP server.
func (sc *Component) Stop(ctx context.Context) error {
	return sc.server.Stop(ctx)
}

// Health reports healthy once the listener is bound.
func (sc *Component) Health(context.Context) component.Health {
	if sc.server.Started() {
		return component.Health{Name: componentName, Status: component.StatusHealthy}
	}
	return component.Health{
		Name:    componentName,
		Status:  component.StatusUnhealthy,
		Message: "listener not bound",
	}
}

// Describe reports the listen address for the startup log.
func (sc *Component) Describe() component.Description {
	cfg := sc.server.config
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: fmt.Sprintf("%s h2c", sc.server.Addr()),
		Port:    cfg.Port,
	}
}

// Routes returns the registered gin routes, API routes first.
func (sc *Component) Routes() []component.Route {
	ginRoutes := sc.server.engine.Routes()
	sort.SliceStable(ginRoutes, func(i, j int) bool {
		iSys, jSys := systemPaths[ginRoutes[i].Path], systemPaths[ginRoutes[j].Path]
		if iSys != jSys {
			return !iSys
		}
		if ginRoutes[i].Path != ginRoutes[j].Path {
			return ginRoutes[i].Path < ginRoutes[j].Path
		}
		return ginRoutes[i].Method < ginRoutes[j].Method
	})

	routes := make([]component.Route, 0, len(ginRoutes))
	for _, r := range ginRoutes {
		routes = append(routes, component.Route{
			Method:  r.Method,
			Path:    r.Path,
			Handler: shortHandlerName(r.Handler),
		})
	}
	return routes
}

// shortHandlerName trims the import path from a gin handler name:
// "github.com/x/api.(*Handler).Flux-fm" becomes "api.(*Handler).Flux".
func shortHandlerName(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			name = name[i+1:]
			break
		}
	}
	if n := len(name); n > 3 && name[n-3:] == "-fm" {
		name = name[:n-3]
	}
	return name
}
