package engine

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/MrWong99/syllabify/internal/syllabifier"
)

// Segmentation is a self-contained, serialisable view of a syllable graph
// with syllable IDs resolved to their text.
type Segmentation struct {
	Input             string   `json:"input"`
	InterpretedLength int      `json:"interpreted_length"`
	Complete          bool     `json:"complete"`
	Vertices          []Vertex `json:"vertices"`
	Edges             []Edge   `json:"edges"`
}

// Vertex is a reachable position and its best spelling type.
type Vertex struct {
	Pos  int    `json:"pos"`
	Type string `json:"type"`
}

// Edge is the byte range [Start, End) and its candidate syllables.
type Edge struct {
	Start      int         `json:"start"`
	End        int         `json:"end"`
	Candidates []Candidate `json:"candidates"`
}

// Candidate is one syllable interpretation of an edge.
type Candidate struct {
	Syllable    string  `json:"syllable"`
	Type        string  `json:"type"`
	Credibility float64 `json:"credibility"`
	Tips        string  `json:"tips,omitempty"`
	Correction  bool    `json:"correction,omitempty"`
}

// Summarize resolves g, built from input, into a [Segmentation]. The input
// is recorded in NFC, matching the form [Engine.Segment] segments.
// Vertices and edges are ordered by position, candidates by syllable ID.
func (e *Engine) Summarize(input string, g *syllabifier.SyllableGraph) Segmentation {
	s := Segmentation{
		Input:             norm.NFC.String(input),
		InterpretedLength: g.InterpretedLength,
		Complete:          g.InterpretedLength == g.InputLength,
		Vertices:          []Vertex{},
		Edges:             []Edge{},
	}
	for _, pos := range g.VertexPositions() {
		s.Vertices = append(s.Vertices, Vertex{Pos: pos, Type: g.Vertices[pos].String()})
		for _, end := range g.EndPositions(pos) {
			m := g.Edge(pos, end)
			edge := Edge{Start: pos, End: end}
			for _, id := range m.SyllableIDs() {
				props := m[id]
				edge.Candidates = append(edge.Candidates, Candidate{
					Syllable:    e.Syllable(id),
					Type:        props.Type.String(),
					Credibility: props.Credibility,
					Tips:        props.Tips,
					Correction:  props.IsCorrection,
				})
			}
			s.Edges = append(s.Edges, edge)
		}
	}
	return s
}

// WriteText renders s in a line-oriented human-readable form:
//
//	changan (7/7)
//	  [0,5) chang
//	  [5,7) an
func (s Segmentation) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d/%d)\n", s.Input, s.InterpretedLength, len(s.Input))
	for _, edge := range s.Edges {
		names := make([]string, 0, len(edge.Candidates))
		for _, c := range edge.Candidates {
			name := c.Syllable
			if c.Type != "normal" {
				name += "(" + c.Type + ")"
			}
			if c.Correction {
				name += "*"
			}
			if c.Credibility != 0 {
				name += ":" + strconv.FormatFloat(c.Credibility, 'g', 4, 64)
			}
			names = append(names, name)
		}
		fmt.Fprintf(&b, "  [%d,%d) %s\n", edge.Start, edge.End, strings.Join(names, " "))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
