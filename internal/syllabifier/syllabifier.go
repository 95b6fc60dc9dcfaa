// Package syllabifier segments an input string into every plausible
// sequence of known syllables and returns the result as a [SyllableGraph].
package syllabifier

import (
	"log/slog"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/MrWong99/syllabify/internal/corrector"
	"github.com/MrWong99/syllabify/internal/prism"
	"github.com/MrWong99/syllabify/pkg/spelling"
)

// Scores are log-probabilities.
var (
	// CorrectionCredibility is assigned to every corrected interpretation.
	CorrectionCredibility = math.Log(0.01)
	// AmbiguityPenalty is added to the second half of a split that
	// coincides with a longer single syllable.
	AmbiguityPenalty = math.Log(1e-10)
	// CompletionPenalty is added to interpretations completed from a prefix.
	CompletionPenalty = -math.Ln2
)

const (
	// DefaultDelimiters are skipped after each syllable.
	DefaultDelimiters = " '"
	// DefaultTolerance bounds the corrector's edit budget.
	DefaultTolerance = 5
	// DefaultExpandSearchLimit caps completion candidates.
	DefaultExpandSearchLimit = 512
)

// Corrector proposes approximate matches of key's prefixes against p.
type Corrector interface {
	ToleranceSearch(p *prism.Prism, key string, results corrector.Corrections, tolerance int)
}

var (
	_ Corrector = (*corrector.NearSearch)(nil)
	_ Corrector = (*corrector.EditDistance)(nil)
)

// Syllabifier builds syllable graphs. It holds no per-call state and is
// safe for concurrent use.
type Syllabifier struct {
	delimiters        string
	enableCompletion  bool
	strictSpelling    bool
	corrector         Corrector
	tolerance         int
	expandSearchLimit int
}

// Option configures a [Syllabifier].
type Option func(*Syllabifier)

// WithDelimiters sets the characters skipped after each syllable.
func WithDelimiters(d string) Option {
	return func(s *Syllabifier) { s.delimiters = d }
}

// WithCompletion enables completing the unconsumed tail of the input.
func WithCompletion(enabled bool) Option {
	return func(s *Syllabifier) { s.enableCompletion = enabled }
}

// WithStrictSpelling rejects fuzzy or abbreviated spellings that would
// cover the whole input as a single syllable.
func WithStrictSpelling(enabled bool) Option {
	return func(s *Syllabifier) { s.strictSpelling = enabled }
}

// WithCorrector enables typo correction.
func WithCorrector(c Corrector) Option {
	return func(s *Syllabifier) { s.corrector = c }
}

// WithTolerance sets the edit budget passed to the corrector.
func WithTolerance(n int) Option {
	return func(s *Syllabifier) {
		if n >= 0 {
			s.tolerance = n
		}
	}
}

// WithExpandSearchLimit caps the number of completion candidates examined.
func WithExpandSearchLimit(n int) Option {
	return func(s *Syllabifier) {
		if n > 0 {
			s.expandSearchLimit = n
		}
	}
}

// New returns a Syllabifier with the given options applied.
func New(opts ...Option) *Syllabifier {
	s := &Syllabifier{
		delimiters:        DefaultDelimiters,
		tolerance:         DefaultTolerance,
		expandSearchLimit: DefaultExpandSearchLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildSyllableGraph segments input against p and returns the graph along
// with the number of input bytes it interprets. An interpreted length short
// of len(input) means segmentation failed past that point.
func (s *Syllabifier) BuildSyllableGraph(input string, p *prism.Prism) (*SyllableGraph, int) {
	g := newGraph()
	if input == "" {
		return g, 0
	}

	farthest := 0
	var q vertexQueue
	q.push(0, spelling.Normal)

	for {
		v, ok := q.pop()
		if !ok {
			break
		}
		if _, seen := g.Vertices[v.pos]; seen {
			continue
		}
		g.Vertices[v.pos] = v.typ
		farthest = max(farthest, v.pos)

		for _, next := range s.advance(g, input, p, v) {
			q.push(next.pos, next.typ)
		}
	}

	s.prune(g, farthest)

	if s.enableCompletion && farthest < len(input) {
		if s.complete(g, input, p, farthest) {
			farthest = len(input)
		}
	}

	g.InputLength = len(input)
	g.InterpretedLength = farthest
	slog.Debug("syllabified",
		"input_length", g.InputLength,
		"interpreted_length", g.InterpretedLength,
		"vertices", len(g.Vertices),
	)
	transpose(g)
	return g, farthest
}

// advance adds every edge leaving v and returns the vertices they reach.
func (s *Syllabifier) advance(g *SyllableGraph, input string, p *prism.Prism, v vertex) []vertex {
	rest := input[v.pos:]
	matches := p.CommonPrefixSearch(rest)

	var corrected map[int]bool
	if s.corrector != nil {
		exact := make(map[int]bool, len(matches))
		for _, m := range matches {
			exact[m.Value] = true
		}
		results := corrector.Corrections{}
		s.corrector.ToleranceSearch(p, rest, results, s.tolerance)
		for _, value := range slices.Sorted(maps.Keys(results)) {
			c := results[value]
			if exact[value] || !hasNormalSpelling(p.QuerySpelling(value)) {
				continue
			}
			if corrected == nil {
				corrected = make(map[int]bool)
			}
			corrected[value] = true
			matches = append(matches, prism.Match{Value: value, Offset: c.Length})
		}
	}
	if len(matches) == 0 {
		return nil
	}

	ends := g.Edges[v.pos]
	if ends == nil {
		ends = make(map[int]SpellingMap)
		g.Edges[v.pos] = ends
	}
	var reached []vertex
	for _, m := range matches {
		if m.Offset == 0 {
			continue
		}
		end := v.pos + m.Offset
		for end < len(input) && strings.IndexByte(s.delimiters, input[end]) >= 0 {
			end++
		}
		wholeInput := v.pos == 0 && end == len(input)
		isCorrection := corrected[m.Value]

		spellings := ends[end]
		if spellings == nil {
			spellings = make(SpellingMap)
			ends[end] = spellings
		}
		endType := spelling.Invalid
		for _, d := range p.QuerySpelling(m.Value) {
			if s.strictSpelling && wholeInput && d.Type != spelling.Normal {
				continue
			}
			props := EdgeProperties{Properties: spelling.Properties{
				Type:        d.Type,
				EndPos:      end,
				Credibility: d.Credibility,
				Tips:        d.Tips,
			}}
			if isCorrection {
				props.IsCorrection = true
				props.Credibility = CorrectionCredibility
			} else {
				endType = min(endType, props.Type)
			}
			if existing, ok := spellings[d.SyllableID]; ok {
				existing.Type = min(existing.Type, props.Type)
				spellings[d.SyllableID] = existing
				continue
			}
			spellings[d.SyllableID] = props
		}
		if len(spellings) == 0 {
			delete(ends, end)
			continue
		}
		reached = append(reached, vertex{pos: end, typ: max(endType, v.typ)})
	}
	if len(ends) == 0 {
		delete(g.Edges, v.pos)
	}
	return reached
}

func hasNormalSpelling(list []prism.SpellingDescriptor) bool {
	for _, d := range list {
		if d.Type == spelling.Normal {
			return true
		}
	}
	return false
}

// prune walks back from farthest and drops every vertex and edge that cannot
// reach it, then flags ambiguous joints.
func (s *Syllabifier) prune(g *SyllableGraph, farthest int) {
	good := map[int]bool{farthest: true}
	// Fuzzy spellings are exempt from invalidation by normal spellings.
	lastType := max(g.Vertices[farthest], spelling.Fuzzy)
	type span struct{ start, end int }
	var overlaps []span

	for i := farthest - 1; i >= 0; i-- {
		if _, ok := g.Vertices[i]; !ok {
			continue
		}
		ends := g.Edges[i]
		for _, end := range g.EndPositions(i) {
			if !good[end] {
				delete(ends, end)
				continue
			}
			spellings := ends[end]
			edgeType := spelling.Invalid
			for id, props := range spellings {
				if props.IsCorrection {
					continue
				}
				if props.Type > lastType {
					delete(spellings, id)
					continue
				}
				edgeType = min(edgeType, props.Type)
			}
			if len(spellings) == 0 {
				delete(ends, end)
				continue
			}
			if edgeType < spelling.Abbreviation {
				overlaps = append(overlaps, span{i, end})
			}
		}
		if g.Vertices[i] > lastType || len(ends) == 0 {
			slog.Debug("removing stale vertex", "pos", i)
			delete(g.Vertices, i)
			delete(g.Edges, i)
			continue
		}
		good[i] = true
	}

	for _, o := range overlaps {
		checkOverlappedSpellings(g, o.start, o.end)
	}
}

// checkOverlappedSpellings handles "Z = YX": when start reaches end both
// directly and through a joint, the joint is marked ambiguous and the X half
// is penalised.
func checkOverlappedSpellings(g *SyllableGraph, start, end int) {
	if _, ok := g.Edges[start]; !ok {
		return
	}
	var joints []int
	for _, joint := range g.EndPositions(start) {
		if joint >= end {
			break
		}
		for _, e := range g.EndPositions(joint) {
			if e < end {
				continue
			}
			if e == end {
				joints = append(joints, joint)
			}
			break
		}
	}
	for _, joint := range joints {
		spellings := g.Edges[joint][end]
		for id, props := range spellings {
			props.Credibility += AmbiguityPenalty
			spellings[id] = props
		}
		g.Vertices[joint] = spelling.Ambiguous
		slog.Debug("ambiguous syllable joint", "pos", joint)
	}
}

// complete adds a single completion edge [farthest, len(input)) built from
// prism keys that extend the unconsumed tail. It reports whether any
// interpretation survived.
func (s *Syllabifier) complete(g *SyllableGraph, input string, p *prism.Prism, farthest int) bool {
	tail := input[farthest:]
	keys := p.ExpandSearch(tail, s.expandSearchLimit)
	if len(keys) == 0 {
		return false
	}
	end := len(input)
	spellings := make(SpellingMap)
	for _, m := range keys {
		if m.Offset < len(tail) {
			continue
		}
		for _, d := range p.QuerySpelling(m.Value) {
			if d.Type >= spelling.Abbreviation {
				continue
			}
			props := EdgeProperties{Properties: spelling.Properties{
				Type:        spelling.Completion,
				EndPos:      end,
				Credibility: d.Credibility + CompletionPenalty,
				Tips:        d.Tips,
			}}
			if existing, ok := spellings[d.SyllableID]; ok && existing.Credibility >= props.Credibility {
				continue
			}
			spellings[d.SyllableID] = props
		}
	}
	if len(spellings) == 0 {
		slog.Debug("no completion could be made", "tail", tail)
		return false
	}
	ends := g.Edges[farthest]
	if ends == nil {
		ends = make(map[int]SpellingMap)
		g.Edges[farthest] = ends
	}
	ends[end] = spellings
	g.Vertices[end] = spelling.Completion
	return true
}

// transpose fills Indices, visiting the edges of each start from the
// farthest end to the nearest.
func transpose(g *SyllableGraph) {
	for start, ends := range g.Edges {
		index := make(map[spelling.SyllableID][]EdgeProperties)
		positions := g.EndPositions(start)
		for i := len(positions) - 1; i >= 0; i-- {
			spellings := ends[positions[i]]
			for _, id := range spellings.SyllableIDs() {
				index[id] = append(index[id], spellings[id])
			}
		}
		g.Indices[start] = index
	}
}
