// Package spelling defines the leaf value types shared by the rule algebra,
// the prism and the syllabifier: spelling types, spelling properties and the
// spelling record itself.
package spelling

import (
	"fmt"
	"math"
)

// SyllableID identifies a canonical syllable by its index in the sorted
// syllabary.
type SyllableID int32

// Type classifies how a spelling relates to the canonical syllable it
// represents. Values are ordered: a smaller Type is more preferred.
type Type int

const (
	// Normal is an exact spelling of the syllable.
	Normal Type = iota
	// Fuzzy is a spelling produced by a fuzzy equivalence rule.
	Fuzzy
	// Abbreviation is a shortened spelling, e.g. an initial.
	Abbreviation
	// Completion is an unfinished spelling completed by prefix expansion.
	Completion
	// Ambiguous marks a vertex whose segmentation overlaps another one.
	Ambiguous
	// Invalid is the sentinel upper bound.
	Invalid
)

var typeNames = [...]string{"normal", "fuzzy", "abbreviation", "completion", "ambiguous", "invalid"}

// String returns the lower-case name of t.
func (t Type) String() string {
	if t < Normal || t > Invalid {
		return fmt.Sprintf("type(%d)", int(t))
	}
	return typeNames[t]
}

// Marker returns the single character used for t in script dumps.
func (t Type) Marker() byte {
	const markers = "-ac?!"
	if t < Normal || int(t) >= len(markers) {
		return 'x'
	}
	return markers[t]
}

// ParseType converts a persisted integer back into a [Type].
func ParseType(v int) (Type, error) {
	if v < int(Normal) || v > int(Invalid) {
		return Invalid, fmt.Errorf("spelling: type %d out of range", v)
	}
	return Type(v), nil
}

// Penalties are log-probabilities added to a spelling's credibility.
var (
	FuzzyPenalty        = -math.Ln2
	AbbreviationPenalty = -math.Ln2
)

// Properties carries the metadata attached to a spelling or a graph edge.
type Properties struct {
	Type Type
	// EndPos is the input offset where the spelling ends; only meaningful
	// on syllable graph edges.
	EndPos int
	// Credibility is a log-probability; 0 means fully credible.
	Credibility float64
	// Tips is a free-form hint shown to the user, such as "〔模糊〕".
	Tips string
}

// Spelling is a text form of a syllable together with its properties.
type Spelling struct {
	Str string
	Properties
}

// New returns a Normal spelling of s with zero credibility penalty.
func New(s string) Spelling {
	return Spelling{Str: s}
}

// Less orders spellings by text only.
func (s Spelling) Less(o Spelling) bool { return s.Str < o.Str }

// Equal compares spellings by text only.
func (s Spelling) Equal(o Spelling) bool { return s.Str == o.Str }
