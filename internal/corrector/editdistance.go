package corrector

import (
	"github.com/antzucaro/matchr"

	"github.com/MrWong99/syllabify/internal/prism"
)

// EditDistance scores every prism key against input prefixes of similar
// length using Damerau-Levenshtein distance, so transposed letters such as
// "cahng" are caught as well as substitutions.
type EditDistance struct {
	maxDistance int
}

// EditDistanceOption configures an [EditDistance] corrector.
type EditDistanceOption func(*EditDistance)

// WithMaxDistance caps the edit distance regardless of the tolerance passed
// to ToleranceSearch. The default is 1.
func WithMaxDistance(d int) EditDistanceOption {
	return func(e *EditDistance) {
		if d > 0 {
			e.maxDistance = d
		}
	}
}

// NewEditDistance returns an edit-distance corrector.
func NewEditDistance(opts ...EditDistanceOption) *EditDistance {
	e := &EditDistance{maxDistance: 1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ToleranceSearch records every key within min(tolerance, max distance)
// edits of a prefix of key. A key must be longer than twice its distance,
// otherwise one- and two-letter keys would match almost anything.
func (e *EditDistance) ToleranceSearch(p *prism.Prism, key string, results Corrections, tolerance int) {
	if p == nil || !p.Built() || key == "" {
		return
	}
	limit := min(tolerance, e.maxDistance)
	if limit <= 0 {
		return
	}
	for _, k := range p.Keys() {
		value, _ := p.GetValue(k)
		for _, n := range [...]int{len(k), len(k) - 1, len(k) + 1} {
			if n <= 0 || n > len(key) {
				continue
			}
			d := matchr.DamerauLevenshtein(k, key[:n])
			if d < 1 || d > limit || len(k) <= 2*d {
				continue
			}
			results.Alter(value, Correction{Distance: d, Value: value, Length: n})
		}
	}
}
