package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/reactivekit/bootstrap"
	"github.com/kbukum/reactivekit/config"
	"github.com/kbukum/reactivekit/generator"
	"github.com/kbukum/reactivekit/logger"
	"github.com/kbukum/reactivekit/pipeline"
	"github.com/kbukum/reactivekit/version"
)

const serviceName = "names-demo"

const (
	configFlag    = "config"
	thresholdFlag = "n"
	maxDelayFlag  = "max-delay"
	seedFlag      = "seed"
)

// Config is the demo configuration read from config.yml and the environment.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Generator            generator.Config `yaml:"generator" mapstructure:"generator"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Generator.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Generator.Validate(); err != nil {
		return fmt.Errorf("generator: %w", err)
	}
	return nil
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          serviceName,
		Short:        "Drive the names sequences and print what they emit",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String(configFlag, "", "path to config.yml (searched under cmd/names-demo and config/ by default)")
	return cmd
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [operation...]",
		Short: "Drive the named sequences in order; all of them when none is given",
		RunE:  runOperations,
	}
	cmd.Flags().Int(thresholdFlag, 3, "length threshold for the filtering operations")
	cmd.Flags().Duration(maxDelayFlag, 0, "override generator.max_delay")
	cmd.Flags().Int64(seedFlag, 0, "override generator.seed for repeatable delays")
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available operations",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range generator.OperationNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", serviceName, version.Get())
		},
	}
}

func loadConfig(cmd *cobra.Command) (*Config, error) {
	var opts []config.LoaderOption
	if path, _ := cmd.Flags().GetString(configFlag); path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	cfg := &Config{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	if cmd.Flags().Changed(maxDelayFlag) {
		cfg.Generator.MaxDelay, _ = cmd.Flags().GetDuration(maxDelayFlag)
	}
	if cmd.Flags().Changed(seedFlag) {
		cfg.Generator.Seed, _ = cmd.Flags().GetInt64(seedFlag)
	}
	return cfg, nil
}

func runOperations(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	n, _ := cmd.Flags().GetInt(thresholdFlag)

	operations := args
	if len(operations) == 0 {
		operations = generator.OperationNames()
	}
	for _, name := range operations {
		if !slices.Contains(generator.OperationNames(), name) {
			return fmt.Errorf("unknown operation %q, see %s list", name, serviceName)
		}
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	svc, err := generator.New(cfg.Generator)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	return app.RunTask(cmd.Context(), func(ctx context.Context) error {
		for _, name := range operations {
			p, _ := svc.Operation(name, n)
			items, elapsed, err := generator.Elapsed(ctx, p)
			switch {
			case err == nil:
				app.Logger.Debug("Sequence driven", logger.DriveFields(name, len(items), pipeline.TerminalComplete.String(), elapsed))
			case pipeline.IsCancellation(err):
				return ctx.Err()
			default:
				return fmt.Errorf("%s: %w", name, err)
			}
			fmt.Fprintf(out, "%-28s %s  (%s)\n", name, strings.Join(items, " "), elapsed.Round(time.Millisecond))
		}
		return nil
	})
}
