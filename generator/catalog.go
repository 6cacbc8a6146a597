package generator

import (
	"sort"

	"github.com/kbukum/reactivekit/pipeline"
)

// Operation builds one named sequence. n is the length threshold for the
// operations that filter by it and is ignored by the rest.
type Operation func(s *Service, n int) *pipeline.Pipeline[string]

var operations = map[string]Operation{
	"namesFlux":                   func(s *Service, _ int) *pipeline.Pipeline[string] { return s.NamesFlux() },
	"nameMono":                    func(s *Service, _ int) *pipeline.Pipeline[string] { return s.NameMono() },
	"namesFluxWithMap":            func(s *Service, _ int) *pipeline.Pipeline[string] { return s.NamesFluxWithMap() },
	"namesFluxImmutability":       func(s *Service, _ int) *pipeline.Pipeline[string] { return s.NamesFluxImmutability() },
	"namesFluxWithFilter":         (*Service).NamesFluxWithFilter,
	"namesFluxWithFlatMap":        (*Service).NamesFluxWithFlatMap,
	"namesFluxWithFlatMapAsync":   (*Service).NamesFluxWithFlatMapAsync,
	"namesFluxWithConcatMapAsync": (*Service).NamesFluxWithConcatMapAsync,
	"namesFluxWithTransform":      (*Service).NamesFluxWithTransform,
	"namesFluxWithDefaultIfEmpty": (*Service).NamesFluxWithDefaultIfEmpty,
	"namesFluxWithSwitchIfEmpty":  (*Service).NamesFluxWithSwitchIfEmpty,
	"nameMonoWithFilter":          (*Service).NameMonoWithFilter,
	"exploreConcat":               func(s *Service, _ int) *pipeline.Pipeline[string] { return s.ExploreConcat() },
	"exploreConcatWith":           func(s *Service, _ int) *pipeline.Pipeline[string] { return s.ExploreConcatWith() },
	"exploreMerge":                func(s *Service, _ int) *pipeline.Pipeline[string] { return s.ExploreMerge() },
	"exploreMergeSequential":      func(s *Service, _ int) *pipeline.Pipeline[string] { return s.ExploreMergeSequential() },
}

// OperationNames lists the named sequences in alphabetical order.
func OperationNames() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Operation returns the named sequence, or false if name is unknown.
func (s *Service) Operation(name string, n int) (*pipeline.Pipeline[string], bool) {
	op, ok := operations[name]
	if !ok {
		return nil, false
	}
	return op(s, n), true
}
