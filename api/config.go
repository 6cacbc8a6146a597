package api

import (
	"time"

	"github.com/kbukum/reactivekit/validation"
)

// Config configures the sequence endpoints. MinStreamPeriod and
// MaxStreamLimit bound the /stream query parameters.
type Config struct {
	FluxValues      []int         `mapstructure:"flux_values" validate:"required,min=1"`
	MonoMessage     string        `mapstructure:"mono_message" validate:"required"`
	StreamPeriod    time.Duration `mapstructure:"stream_period" validate:"gt=0"`
	MinStreamPeriod time.Duration `mapstructure:"min_stream_period" validate:"gt=0"`
	MaxStreamLimit  int           `mapstructure:"max_stream_limit" validate:"gte=0"`
	KeepAlive       time.Duration `mapstructure:"keep_alive" validate:"gte=0"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if len(c.FluxValues) == 0 {
		c.FluxValues = []int{1, 2, 3, 4, 5}
	}
	if c.MonoMessage == "" {
		c.MonoMessage = "Hello, Reactor!"
	}
	if c.StreamPeriod == 0 {
		c.StreamPeriod = time.Second
	}
	if c.MinStreamPeriod == 0 {
		c.MinStreamPeriod = 10 * time.Millisecond
	}
	if c.MaxStreamLimit == 0 {
		c.MaxStreamLimit = 10000
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = 15 * time.Second
	}
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
