package syllabifier

import (
	"maps"
	"slices"

	"github.com/MrWong99/syllabify/pkg/spelling"
)

// EdgeProperties describes one syllable interpretation of an edge.
type EdgeProperties struct {
	spelling.Properties
	// IsCorrection marks interpretations found only by the corrector.
	IsCorrection bool
}

// SpellingMap holds the interpretations of one edge, keyed by syllable.
type SpellingMap map[spelling.SyllableID]EdgeProperties

// SyllableGraph is the segmentation lattice of one input string. Positions
// are byte offsets into the input.
type SyllableGraph struct {
	InputLength       int
	InterpretedLength int
	// Vertices maps each reachable position to the best spelling type of
	// the paths reaching it.
	Vertices map[int]spelling.Type
	// Edges maps start -> end -> syllable -> properties. An edge entry is
	// never left empty.
	Edges map[int]map[int]SpellingMap
	// Indices maps start -> syllable -> properties of every edge leaving
	// start, longest edge first.
	Indices map[int]map[spelling.SyllableID][]EdgeProperties
}

func newGraph() *SyllableGraph {
	return &SyllableGraph{
		Vertices: make(map[int]spelling.Type),
		Edges:    make(map[int]map[int]SpellingMap),
		Indices:  make(map[int]map[spelling.SyllableID][]EdgeProperties),
	}
}

// VertexPositions returns all vertex positions in ascending order.
func (g *SyllableGraph) VertexPositions() []int {
	return slices.Sorted(maps.Keys(g.Vertices))
}

// EndPositions returns the end positions of edges leaving start, ascending.
func (g *SyllableGraph) EndPositions(start int) []int {
	return slices.Sorted(maps.Keys(g.Edges[start]))
}

// Edge returns the interpretations of [start, end), or nil.
func (g *SyllableGraph) Edge(start, end int) SpellingMap {
	return g.Edges[start][end]
}

// SyllableIDs returns the syllables of an edge map in ascending order.
func (m SpellingMap) SyllableIDs() []spelling.SyllableID {
	return slices.Sorted(maps.Keys(m))
}
