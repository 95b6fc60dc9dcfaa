package engine

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/syllabify/internal/config"
	"github.com/MrWong99/syllabify/internal/corrector"
	"github.com/MrWong99/syllabify/internal/syllabifier"
)

// ErrCorrectorNotRegistered is returned by [Registry.CreateCorrector] when no
// factory has been registered under the requested method.
var ErrCorrectorNotRegistered = errors.New("engine: corrector not registered")

// CorrectorFactory builds a corrector from its configuration.
type CorrectorFactory func(config.CorrectionConfig) (syllabifier.Corrector, error)

// Registry maps correction methods to their constructor functions. It is
// safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	correctors map[config.CorrectionMethod]CorrectorFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{correctors: make(map[config.CorrectionMethod]CorrectorFactory)}
}

// DefaultRegistry returns a [Registry] with the built-in correctors
// registered under [config.CorrectionNearSearch] and
// [config.CorrectionEditDistance].
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterCorrector(config.CorrectionNearSearch, func(config.CorrectionConfig) (syllabifier.Corrector, error) {
		return corrector.NewNearSearch(), nil
	})
	r.RegisterCorrector(config.CorrectionEditDistance, func(c config.CorrectionConfig) (syllabifier.Corrector, error) {
		return corrector.NewEditDistance(corrector.WithMaxDistance(c.MaxDistance)), nil
	})
	return r
}

// RegisterCorrector registers factory under method. Subsequent calls with
// the same method overwrite the previous registration.
func (r *Registry) RegisterCorrector(method config.CorrectionMethod, factory CorrectorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.correctors[method] = factory
}

// CreateCorrector instantiates the corrector registered under c.Method.
func (r *Registry) CreateCorrector(c config.CorrectionConfig) (syllabifier.Corrector, error) {
	r.mu.RLock()
	factory, ok := r.correctors[c.Method]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCorrectorNotRegistered, c.Method)
	}
	return factory(c)
}

// Methods returns the registered methods in sorted order.
func (r *Registry) Methods() []config.CorrectionMethod {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]config.CorrectionMethod, 0, len(r.correctors))
	for m := range r.correctors {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}
