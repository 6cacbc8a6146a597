// Command movies-info-service serves the sequence endpoints over HTTP.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/reactivekit/api"
	"github.com/kbukum/reactivekit/bootstrap"
	"github.com/kbukum/reactivekit/component"
	"github.com/kbukum/reactivekit/config"
	"github.com/kbukum/reactivekit/generator"
	"github.com/kbukum/reactivekit/logger"
	"github.com/kbukum/reactivekit/observability"
	"github.com/kbukum/reactivekit/server"
	"github.com/kbukum/reactivekit/sse"
)

const serviceName = "movies-info-service"

// Config is the service configuration read from config.yml and the
// environment.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Server               server.Config        `yaml:"server" mapstructure:"server"`
	Telemetry            observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
	API                  api.Config           `yaml:"api" mapstructure:"api"`
	Generator            generator.Config     `yaml:"generator" mapstructure:"generator"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
	c.API.ApplyDefaults()
	c.Generator.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Generator.Validate(); err != nil {
		return fmt.Errorf("generator: %w", err)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	var cfg Config
	if err := config.LoadConfig(serviceName, &cfg); err != nil {
		return err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}

	telemetry := observability.NewComponent(cfg.Telemetry, observability.Identity{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Environment: cfg.Environment,
	})
	streams := sse.NewComponent("/stream")

	names, err := generator.New(cfg.Generator)
	if err != nil {
		return err
	}
	handler, err := api.NewHandler(cfg.API,
		api.WithGenerator(names),
		api.WithTracker(streams.Tracker()),
		api.WithMetrics(telemetry),
	)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, logger.Get("server"))
	srv.ApplyDefaults(cfg.Name, app.Components.HealthAll)
	handler.Register(srv.GinEngine())

	// Streams are registered after the server so they stop first and
	// Shutdown does not wait on open /stream connections.
	for _, c := range []component.Component{telemetry, server.NewComponent(srv), streams} {
		if err := app.RegisterComponent(c); err != nil {
			return err
		}
	}

	return app.Run(context.Background())
}
