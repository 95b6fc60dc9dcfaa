package algebra

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/syllabify/pkg/spelling"
)

// ErrLoadFormula is wrapped by [Projection.Load] when a rule fails to compile.
var ErrLoadFormula = errors.New("algebra: error loading spelling algebra definition")

// Projection is an ordered pipeline of compiled rules.
type Projection struct {
	calculus     *Calculus
	calculations []*Calculation
}

// ProjectionOption configures a [Projection].
type ProjectionOption func(*Projection)

// WithCalculus replaces the default rule registry.
func WithCalculus(c *Calculus) ProjectionOption {
	return func(p *Projection) {
		if c != nil {
			p.calculus = c
		}
	}
}

// NewProjection returns an empty Projection.
func NewProjection(opts ...ProjectionOption) *Projection {
	p := &Projection{}
	for _, opt := range opts {
		opt(p)
	}
	if p.calculus == nil {
		p.calculus = NewCalculus()
	}
	return p
}

// Load compiles rules in order, replacing any previously loaded pipeline. If
// any rule fails, nothing is kept.
func (p *Projection) Load(rules []string) error {
	p.calculations = p.calculations[:0]
	compiled := make([]*Calculation, 0, len(rules))
	for i, formula := range rules {
		c, err := p.calculus.Parse(formula)
		if err != nil {
			slog.Error("error loading spelling algebra definition",
				"index", i+1,
				"formula", formula,
				"err", err,
			)
			return fmt.Errorf("%w #%d %q: %w", ErrLoadFormula, i+1, formula, err)
		}
		compiled = append(compiled, c)
	}
	p.calculations = compiled
	return nil
}

// Len returns the number of compiled rules.
func (p *Projection) Len() int { return len(p.calculations) }

// Apply runs every rule over s in sequence and returns the final text and
// whether any rule changed it.
func (p *Projection) Apply(s string) (string, bool) {
	if s == "" {
		return s, false
	}
	sp := spelling.New(s)
	modified := false
	for _, c := range p.calculations {
		if c.Apply(&sp) {
			modified = true
		}
	}
	if !modified {
		return s, false
	}
	return sp.Str, true
}

// ApplyScript rewrites script in place, one round per rule. Each round reads
// the previous round's output and builds a fresh Script. It reports whether
// any rule applied to any key.
func (p *Projection) ApplyScript(script *Script) bool {
	if script == nil || script.Len() == 0 {
		return false
	}
	modified := false
	for round, c := range p.calculations {
		slog.Debug("applying spelling algebra", "round", round+1, "rule", c.Kind(), "keys", script.Len())
		next := NewScript()
		for _, key := range script.Keys() {
			list := script.Get(key)
			s := spelling.New(key)
			if !c.Apply(&s) {
				next.Merge(key, spelling.Properties{}, list)
				continue
			}
			modified = true
			if !c.Deletion() {
				next.Merge(key, spelling.Properties{}, list)
			}
			if c.Addition() && s.Str != "" {
				next.Merge(s.Str, s.Properties, list)
			}
		}
		*script = *next
	}
	return modified
}
