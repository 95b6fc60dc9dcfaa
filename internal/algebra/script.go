package algebra

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/MrWong99/syllabify/pkg/spelling"
)

// Syllabary is the sorted, deduplicated set of canonical syllables. A
// syllable's id is its index in the set.
type Syllabary []string

// NewSyllabary sorts and deduplicates syllables. Empty strings are dropped.
func NewSyllabary(syllables ...string) Syllabary {
	s := make([]string, 0, len(syllables))
	for _, x := range syllables {
		if x != "" {
			s = append(s, x)
		}
	}
	slices.Sort(s)
	return Syllabary(slices.Compact(s))
}

// ID returns the id of syllable, or false when it is not in the set.
func (s Syllabary) ID(syllable string) (spelling.SyllableID, bool) {
	i, ok := slices.BinarySearch(s, syllable)
	if !ok {
		return -1, false
	}
	return spelling.SyllableID(i), true
}

// Script maps a spelling key to the spellings of every syllable reachable
// through it. Each list entry's Str is the originating syllable.
type Script struct {
	m map[string][]spelling.Spelling
}

// NewScript returns an empty Script.
func NewScript() *Script {
	return &Script{m: make(map[string][]spelling.Spelling)}
}

// NewScriptFromSyllabary seeds a Script with one Normal entry per syllable.
func NewScriptFromSyllabary(syllabary Syllabary) *Script {
	s := NewScript()
	for _, syl := range syllabary {
		s.AddSyllable(syl)
	}
	return s
}

// AddSyllable adds syllable as its own Normal spelling. It reports false when
// the key already exists.
func (s *Script) AddSyllable(syllable string) bool {
	if _, ok := s.m[syllable]; ok {
		return false
	}
	s.m[syllable] = []spelling.Spelling{spelling.New(syllable)}
	return true
}

// Merge folds spellings into key. Each incoming entry is first degraded by
// props: its type becomes at least props.Type, props.Credibility is added and
// non-empty props.Tips replace its tips. An entry for a syllable already
// listed under key then keeps the smaller type and the larger credibility,
// and loses its tips if the two disagree.
func (s *Script) Merge(key string, props spelling.Properties, spellings []spelling.Spelling) {
	list := s.m[key]
	for _, x := range spellings {
		y := x
		y.Type = max(y.Type, props.Type)
		y.Credibility += props.Credibility
		if props.Tips != "" {
			y.Tips = props.Tips
		}
		i := slices.IndexFunc(list, x.Equal)
		if i < 0 {
			list = append(list, y)
			continue
		}
		e := &list[i]
		e.Type = min(e.Type, y.Type)
		e.Credibility = max(e.Credibility, y.Credibility)
		if e.Tips != y.Tips {
			e.Tips = ""
		}
	}
	s.m[key] = list
}

// Len returns the number of keys.
func (s *Script) Len() int { return len(s.m) }

// Has reports whether key is present.
func (s *Script) Has(key string) bool {
	_, ok := s.m[key]
	return ok
}

// Get returns the spellings listed under key. The slice must not be modified.
func (s *Script) Get(key string) []spelling.Spelling {
	return s.m[key]
}

// Keys returns all keys in ascending order.
func (s *Script) Keys() []string {
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Dump writes the script as tab-separated lines of key, syllable, type
// marker, credibility and tips. The key is printed only on the first line of
// its group.
func (s *Script) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, key := range s.Keys() {
		for i, sp := range s.m[key] {
			k := key
			if i > 0 {
				k = ""
			}
			if _, err := fmt.Fprintf(bw, "%s\t%s\t%c\t%s\t%s\n",
				k, sp.Str, sp.Type.Marker(),
				strconv.FormatFloat(sp.Credibility, 'g', -1, 64), sp.Tips); err != nil {
				return fmt.Errorf("algebra: dump script: %w", err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("algebra: dump script: %w", err)
	}
	return nil
}
