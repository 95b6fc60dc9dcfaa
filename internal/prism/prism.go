// Package prism provides the compiled, read-only spelling index: a
// double-array trie from spelling keys to values plus a descriptor table that
// resolves each value to the syllables it spells.
//
// A Prism is built once and is safe for concurrent queries afterwards.
package prism

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash/v2"

	"github.com/MrWong99/syllabify/internal/algebra"
	"github.com/MrWong99/syllabify/pkg/spelling"
)

// FormatVersion identifies the on-disk layout written by [Prism.Save].
const FormatVersion = "syllabify::prism/1.0"

var (
	// ErrEmptyKeySet is returned by [Prism.Build] when there is nothing to index.
	ErrEmptyKeySet = errors.New("prism: empty key set")
	// ErrAlreadyBuilt is returned when Build is called twice on the same Prism.
	ErrAlreadyBuilt = errors.New("prism: already built")
)

// Match is one trie hit. Offset is the byte length of the matched key.
type Match struct {
	Value  int
	Offset int
}

// SpellingDescriptor describes one syllable reachable through a spelling key.
type SpellingDescriptor struct {
	SyllableID  spelling.SyllableID
	Type        spelling.Type
	Credibility float64
	Tips        string
}

// Metadata summarises how a Prism was built.
type Metadata struct {
	Format         string
	DictChecksum   uint64
	SchemaChecksum uint64
	NumSyllables   int
	NumSpellings   int
	Alphabet       string
}

// Prism is the spelling index.
type Prism struct {
	trie        *doubleArray
	descriptors [][]SpellingDescriptor
	keys        []string
	meta        Metadata
}

// New returns an unbuilt Prism. Queries on it return empty results.
func New() *Prism {
	return &Prism{}
}

// BuildOption configures [Prism.Build].
type BuildOption func(*Metadata)

// WithSchemaChecksum records a checksum of the rules that produced the
// script, so a cached prism can be matched against its configuration.
func WithSchemaChecksum(sum uint64) BuildOption {
	return func(m *Metadata) { m.SchemaChecksum = sum }
}

// SyllabaryChecksum hashes the syllable set.
func SyllabaryChecksum(syllabary algebra.Syllabary) uint64 {
	h := xxhash.New()
	for _, s := range syllabary {
		_, _ = h.WriteString(s)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// RulesChecksum hashes an ordered rule list.
func RulesChecksum(rules []string) uint64 {
	h := xxhash.New()
	for _, r := range rules {
		_, _ = h.WriteString(r)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// Build indexes the script's keys, or the syllabary itself when script is
// nil. With a script, descriptors follow the script's sorted key order and
// each entry's syllable is resolved through syllabary.
func (p *Prism) Build(syllabary algebra.Syllabary, script *algebra.Script, opts ...BuildOption) error {
	if p.trie != nil {
		return ErrAlreadyBuilt
	}

	var keys []string
	if script != nil {
		keys = script.Keys()
	} else {
		keys = []string(syllabary)
	}
	if len(keys) == 0 {
		return ErrEmptyKeySet
	}

	trie := buildDoubleArray(keys)
	descriptors := make([][]SpellingDescriptor, len(keys))
	for i, key := range keys {
		if script == nil {
			descriptors[i] = []SpellingDescriptor{{SyllableID: spelling.SyllableID(i), Type: spelling.Normal}}
			continue
		}
		for _, sp := range script.Get(key) {
			id, ok := syllabary.ID(sp.Str)
			if !ok {
				slog.Warn("prism: spelling refers to unknown syllable", "key", key, "syllable", sp.Str)
				continue
			}
			descriptors[i] = append(descriptors[i], SpellingDescriptor{
				SyllableID:  id,
				Type:        sp.Type,
				Credibility: sp.Credibility,
				Tips:        sp.Tips,
			})
		}
	}

	meta := Metadata{
		Format:       FormatVersion,
		DictChecksum: SyllabaryChecksum(syllabary),
		NumSyllables: len(syllabary),
		NumSpellings: len(keys),
		Alphabet:     string(trie.alphabet),
	}
	for _, opt := range opts {
		opt(&meta)
	}

	p.trie = trie
	p.descriptors = descriptors
	p.keys = keys
	p.meta = meta
	slog.Debug("prism built",
		"syllables", meta.NumSyllables,
		"spellings", meta.NumSpellings,
		"states", len(trie.check),
	)
	return nil
}

// Built reports whether the Prism holds an index.
func (p *Prism) Built() bool { return p.trie != nil }

// Metadata returns the build metadata.
func (p *Prism) Metadata() Metadata { return p.meta }

// Keys returns all indexed spelling keys in ascending order. The slice must
// not be modified.
func (p *Prism) Keys() []string { return p.keys }

// HasKey reports whether key is an indexed spelling.
func (p *Prism) HasKey(key string) bool {
	_, ok := p.GetValue(key)
	return ok
}

// GetValue returns the value stored for key.
func (p *Prism) GetValue(key string) (int, bool) {
	if p.trie == nil {
		return 0, false
	}
	s, ok := p.trie.walk(key)
	if !ok || p.trie.value[s] < 0 {
		return 0, false
	}
	return int(p.trie.value[s]), true
}

// HasPrefix reports whether some indexed key starts with prefix.
func (p *Prism) HasPrefix(prefix string) bool {
	if p.trie == nil {
		return false
	}
	_, ok := p.trie.walk(prefix)
	return ok
}

// CommonPrefixSearch returns every indexed key that is a prefix of key, in
// increasing offset order.
func (p *Prism) CommonPrefixSearch(key string) []Match {
	if p.trie == nil || key == "" {
		return nil
	}
	var out []Match
	s := int32(rootState)
	for i := 0; i < len(key); i++ {
		var ok bool
		if s, ok = p.trie.transition(s, key[i]); !ok {
			break
		}
		if v := p.trie.value[s]; v >= 0 {
			out = append(out, Match{Value: int(v), Offset: i + 1})
		}
	}
	return out
}

// ExpandSearch returns indexed keys that start with key, breadth first,
// with key itself first when it is indexed. At most limit matches are
// returned when limit > 0.
func (p *Prism) ExpandSearch(key string, limit int) []Match {
	if p.trie == nil {
		return nil
	}
	start, ok := p.trie.walk(key)
	if !ok {
		return nil
	}
	var out []Match
	if v := p.trie.value[start]; v >= 0 {
		out = append(out, Match{Value: int(v), Offset: len(key)})
		if limit > 0 && len(out) >= limit {
			return out
		}
	}

	type node struct {
		state  int32
		length int
	}
	queue := []node{{start, len(key)}}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, c := range p.trie.alphabet {
			t, ok := p.trie.transition(n.state, c)
			if !ok {
				continue
			}
			if v := p.trie.value[t]; v >= 0 {
				out = append(out, Match{Value: int(v), Offset: n.length + 1})
				if limit > 0 && len(out) >= limit {
					return out
				}
			}
			queue = append(queue, node{t, n.length + 1})
		}
	}
	return out
}

// QuerySpelling returns the descriptors behind a match value, or nil when
// the value is out of range.
func (p *Prism) QuerySpelling(value int) []SpellingDescriptor {
	if value < 0 || value >= len(p.descriptors) {
		return nil
	}
	return p.descriptors[value]
}

// String renders metadata for logs.
func (m Metadata) String() string {
	return fmt.Sprintf("%s syllables=%d spellings=%d alphabet=%q",
		m.Format, m.NumSyllables, m.NumSpellings, m.Alphabet)
}
