package generator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/kbukum/reactivekit/logger"
	"github.com/kbukum/reactivekit/pipeline"
)

// DefaultName replaces an empty result in the *IfEmpty operations.
const DefaultName = "default"

// Service builds the names sequences. Every method returns a fresh, undriven
// pipeline; nothing runs until the caller drives it.
type Service struct {
	cfg Config
	log *logger.Logger
}

// New validates cfg and returns a Service.
func New(cfg Config) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service{cfg: cfg, log: logger.Get("generator")}, nil
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// randomDelay returns a per-item delay below MaxDelay. With a non-zero Seed
// every pipeline gets its own source seeded identically, so runs repeat.
func (s *Service) randomDelay() pipeline.DelayFunc {
	var src *rand.Rand
	if s.cfg.Seed != 0 {
		src = rand.New(rand.NewSource(s.cfg.Seed))
	}
	return pipeline.RandomDelay(s.cfg.MaxDelay, src)
}

// NamesFlux emits every configured name and logs each signal.
func (s *Service) NamesFlux() *pipeline.Pipeline[string] {
	return pipeline.Log(pipeline.FromSlice(s.cfg.Names), s.log, "namesFlux")
}

// NameMono emits the first name only.
func (s *Service) NameMono() *pipeline.Pipeline[string] {
	return pipeline.Single(s.cfg.Names[0])
}

// NamesFluxWithMap emits the names in upper case.
func (s *Service) NamesFluxWithMap() *pipeline.Pipeline[string] {
	return pipeline.Map(s.NamesFlux(), upper)
}

// NamesFluxImmutability applies Map to a separately held reference and
// returns the original. The result still emits the names unchanged.
func (s *Service) NamesFluxImmutability() *pipeline.Pipeline[string] {
	names := s.NamesFlux()
	_ = pipeline.Map(names, upper)
	return names
}

// NamesFluxWithFilter keeps names longer than n and emits them as
// "<length>-<NAME>".
func (s *Service) NamesFluxWithFilter(n int) *pipeline.Pipeline[string] {
	long := pipeline.Filter(pipeline.Map(s.NamesFlux(), upper), longerThan(n))
	return pipeline.Map(long, func(_ context.Context, name string) (string, error) {
		return fmt.Sprintf("%d-%s", len(name), name), nil
	})
}

// NamesFluxWithFlatMap splits every upper-cased name longer than n into its
// letters, in order.
func (s *Service) NamesFluxWithFlatMap(n int) *pipeline.Pipeline[string] {
	long := pipeline.Filter(pipeline.Map(s.NamesFlux(), upper), longerThan(n))
	return pipeline.ConcatMap(long, s.split)
}

// NamesFluxWithFlatMapAsync is NamesFluxWithFlatMap with a random delay on
// every letter and names split concurrently. Letters of different names may
// interleave.
func (s *Service) NamesFluxWithFlatMapAsync(n int) *pipeline.Pipeline[string] {
	long := pipeline.Filter(pipeline.Map(s.NamesFlux(), upper), longerThan(n))
	return pipeline.FlatMap(long, s.split,
		pipeline.WithDelay(s.randomDelay()),
		pipeline.WithConcurrency(s.cfg.Concurrency))
}

// NamesFluxWithConcatMapAsync delays every letter like
// NamesFluxWithFlatMapAsync but keeps strict name-then-letter order.
func (s *Service) NamesFluxWithConcatMapAsync(n int) *pipeline.Pipeline[string] {
	long := pipeline.Filter(pipeline.Map(s.NamesFlux(), upper), longerThan(n))
	return pipeline.ConcatMap(long, s.split, pipeline.WithDelay(s.randomDelay()))
}

// upperLongSplit is the reusable stage combination behind the Transform and
// *IfEmpty operations.
func (s *Service) upperLongSplit(n int) func(*pipeline.Pipeline[string]) *pipeline.Pipeline[string] {
	return func(p *pipeline.Pipeline[string]) *pipeline.Pipeline[string] {
		long := pipeline.Filter(pipeline.Map(p, upper), longerThan(n))
		return pipeline.ConcatMap(long, s.split)
	}
}

// NamesFluxWithTransform is NamesFluxWithFlatMap expressed through Transform.
func (s *Service) NamesFluxWithTransform(n int) *pipeline.Pipeline[string] {
	return pipeline.Transform(s.NamesFlux(), s.upperLongSplit(n))
}

// NamesFluxWithDefaultIfEmpty emits DefaultName when no name is longer than n.
func (s *Service) NamesFluxWithDefaultIfEmpty(n int) *pipeline.Pipeline[string] {
	return pipeline.DefaultIfEmpty(pipeline.Transform(s.NamesFlux(), s.upperLongSplit(n)), DefaultName)
}

// NamesFluxWithSwitchIfEmpty falls back to the letters of DefaultName, run
// through the same stages, when no name is longer than n.
func (s *Service) NamesFluxWithSwitchIfEmpty(n int) *pipeline.Pipeline[string] {
	split := s.upperLongSplit(n)
	alternate := pipeline.Transform(pipeline.Single(DefaultName), split)
	return pipeline.SwitchIfEmpty(pipeline.Transform(s.NamesFlux(), split), alternate)
}

// NameMonoWithFilter emits the first name upper-cased, or nothing when it is
// not longer than n.
func (s *Service) NameMonoWithFilter(n int) *pipeline.Pipeline[string] {
	return pipeline.Filter(pipeline.Map(s.NameMono(), upper), longerThan(n))
}

// ExploreConcat joins A,B,C and D,E,F in order.
func (s *Service) ExploreConcat() *pipeline.Pipeline[string] {
	return pipeline.Concat(pipeline.Just("A", "B", "C"), pipeline.Just("D", "E", "F"))
}

// ExploreConcatWith is ExploreConcat written with ConcatWith.
func (s *Service) ExploreConcatWith() *pipeline.Pipeline[string] {
	return pipeline.ConcatWith(pipeline.Just("A", "B", "C"), pipeline.Just("D", "E", "F"))
}

func (s *Service) delayedPair() (*pipeline.Pipeline[string], *pipeline.Pipeline[string]) {
	abc := pipeline.Delay(pipeline.Just("A", "B", "C"), pipeline.FixedDelay(s.cfg.MergeDelayFirst))
	def := pipeline.Delay(pipeline.Just("D", "E", "F"), pipeline.FixedDelay(s.cfg.MergeDelaySecond))
	return abc, def
}

// ExploreMerge interleaves A,B,C and D,E,F by arrival. With the default
// delays the order is A,D,B,E,C,F.
func (s *Service) ExploreMerge() *pipeline.Pipeline[string] {
	abc, def := s.delayedPair()
	return pipeline.MergeWith(abc, def, false)
}

// ExploreMergeSequential subscribes to both sources at once but emits them
// in source order: A,B,C,D,E,F.
func (s *Service) ExploreMergeSequential() *pipeline.Pipeline[string] {
	abc, def := s.delayedPair()
	return pipeline.MergeWith(abc, def, true)
}

// SplitString emits the letters of name.
func (s *Service) SplitString(name string) *pipeline.Pipeline[string] {
	return pipeline.FromSlice(strings.Split(name, ""))
}

// SplitStringWithDelay emits the letters of name, each after a random delay.
func (s *Service) SplitStringWithDelay(name string) *pipeline.Pipeline[string] {
	return pipeline.Delay(s.SplitString(name), s.randomDelay())
}

func (s *Service) split(_ context.Context, name string) (*pipeline.Pipeline[string], error) {
	return s.SplitString(name), nil
}

func upper(_ context.Context, s string) (string, error) {
	return strings.ToUpper(s), nil
}

func longerThan(n int) func(string) bool {
	return func(s string) bool { return len(s) > n }
}

// Elapsed drives p and reports the items with the time it took.
func Elapsed[T any](ctx context.Context, p *pipeline.Pipeline[T]) ([]T, time.Duration, error) {
	start := time.Now()
	items, err := pipeline.Collect(ctx, p)
	return items, time.Since(start), err
}
