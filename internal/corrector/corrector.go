// Package corrector proposes typo-tolerant matches against a prism. Results
// are layered on top of exact prefix matches; callers decide which of them
// are genuine corrections.
package corrector

import (
	"github.com/MrWong99/syllabify/internal/prism"
)

// Correction is an approximate match of a prism key against a prefix of the
// input.
type Correction struct {
	// Distance is the number of edits needed.
	Distance int
	// Value is the prism match value of the corrected key.
	Value int
	// Length is the number of input bytes the correction consumes.
	Length int
}

// Corrections collects the best correction per prism value.
type Corrections map[int]Correction

// Alter records c under value unless an equal or closer correction is
// already present.
func (cs Corrections) Alter(value int, c Correction) {
	if prev, ok := cs[value]; ok && prev.Distance <= c.Distance {
		return
	}
	cs[value] = c
}

// NearSearch finds keys reachable by substituting physically adjacent keys.
type NearSearch struct{}

// NewNearSearch returns a keyboard-adjacency corrector.
func NewNearSearch() *NearSearch {
	return &NearSearch{}
}

// ToleranceSearch walks p's trie along key. At every position the typed
// byte is followed as is, and while fewer than tolerance substitutions have
// been made each adjacent key is tried too. Every key reached with at least
// one substitution is recorded with the input length it consumes.
func (*NearSearch) ToleranceSearch(p *prism.Prism, key string, results Corrections, tolerance int) {
	if p == nil || !p.Built() || key == "" || tolerance <= 0 {
		return
	}
	// frontier maps a spelled prefix to the fewest substitutions used to
	// reach it.
	frontier := map[string]int{"": 0}
	for i := 0; i < len(key) && len(frontier) > 0; i++ {
		next := make(map[string]int, len(frontier))
		extend := func(prefix string, dist int) {
			if !p.HasPrefix(prefix) {
				return
			}
			if d, ok := next[prefix]; !ok || dist < d {
				next[prefix] = dist
			}
		}
		for prefix, dist := range frontier {
			extend(prefix+key[i:i+1], dist)
			if dist >= tolerance {
				continue
			}
			for _, n := range Neighbors(key[i]) {
				extend(prefix+string(n), dist+1)
			}
		}
		for prefix, dist := range next {
			if dist == 0 {
				continue
			}
			if v, ok := p.GetValue(prefix); ok {
				results.Alter(v, Correction{Distance: dist, Value: v, Length: i + 1})
			}
		}
		frontier = next
	}
}
