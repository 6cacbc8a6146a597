package generator

import (
	"time"

	"github.com/kbukum/reactivekit/pipeline"
	"github.com/kbukum/reactivekit/validation"
)

// Config configures the names generator. Delays are upper bounds for the
// random per-item latency of the async operations; the merge delays are fixed.
type Config struct {
	Names            []string      `mapstructure:"names" validate:"required,min=1,dive,required"`
	MaxDelay         time.Duration `mapstructure:"max_delay" validate:"gte=0"`
	Seed             int64         `mapstructure:"seed"`
	Concurrency      int           `mapstructure:"concurrency" validate:"gte=0"`
	MergeDelayFirst  time.Duration `mapstructure:"merge_delay_first" validate:"gte=0"`
	MergeDelaySecond time.Duration `mapstructure:"merge_delay_second" validate:"gte=0"`
}

// DefaultNames is the sample data every teaching sequence starts from.
var DefaultNames = []string{"John", "Alice", "Bob", "Charlie", "David"}

// ApplyDefaults fills zero values. A zero Seed keeps the time-seeded source.
func (c *Config) ApplyDefaults() {
	if len(c.Names) == 0 {
		c.Names = append([]string(nil), DefaultNames...)
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = time.Second
	}
	if c.Concurrency == 0 {
		c.Concurrency = pipeline.DefaultConcurrency
	}
	if c.MergeDelayFirst == 0 {
		c.MergeDelayFirst = 100 * time.Millisecond
	}
	if c.MergeDelaySecond == 0 {
		c.MergeDelaySecond = 125 * time.Millisecond
	}
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
