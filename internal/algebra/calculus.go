// Package algebra implements the spelling algebra: rule strings compiled into
// [Calculation]s, the [Script] they expand and the [Projection] pipeline that
// runs them.
//
// A rule has the shape <op><sep><left><sep><right>, where sep is the first
// character that is not a lower-case ASCII letter:
//
//	xlit/abc/ABC/
//	xform/^([zcs])h(.*)$/$1$2/
//	erase/^[wxy].*$/
//	derive/^([zcs])h/$1/
//	fuzz/^([nl])ve$/$1ue/
//	abbrev/^([a-z]).+$/$1/
package algebra

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/MrWong99/syllabify/pkg/spelling"
)

// Sentinel errors returned by [Calculus.Parse].
var (
	ErrNoSeparator      = errors.New("algebra: rule has no separator")
	ErrUnknownOperator  = errors.New("algebra: unknown rule operator")
	ErrInvalidArguments = errors.New("algebra: invalid rule arguments")
)

// Kind enumerates the closed set of rule operators.
type Kind int

const (
	KindTransliterate Kind = iota
	KindTransform
	KindErase
	KindDerive
	KindFuzz
	KindAbbreviate
)

var kindTokens = [...]string{"xlit", "xform", "erase", "derive", "fuzz", "abbrev"}

// String returns the rule token for k.
func (k Kind) String() string {
	if k < KindTransliterate || int(k) >= len(kindTokens) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindTokens[k]
}

// Calculation is one compiled rule. The zero value is not usable; obtain one
// from [Calculus.Parse] or the New* constructors.
type Calculation struct {
	kind Kind

	// xlit
	charMap map[rune]rune

	// xform, erase, derive, fuzz, abbrev
	pattern     *regexp.Regexp
	replacement string
}

// Kind reports the rule operator of c.
func (c *Calculation) Kind() Kind { return c.kind }

// Addition reports whether applying c can introduce a new key.
func (c *Calculation) Addition() bool {
	return c.kind != KindErase
}

// Deletion reports whether applying c removes the original key.
func (c *Calculation) Deletion() bool {
	switch c.kind {
	case KindDerive, KindFuzz, KindAbbreviate:
		return false
	}
	return true
}

// Apply runs c over s in place and reports whether s changed. An empty
// spelling never changes.
func (c *Calculation) Apply(s *spelling.Spelling) bool {
	if s == nil || s.Str == "" {
		return false
	}
	switch c.kind {
	case KindTransliterate:
		return c.transliterate(s)
	case KindErase:
		if !c.pattern.MatchString(s.Str) {
			return false
		}
		s.Str = ""
		return true
	case KindTransform, KindDerive:
		return c.replace(s)
	case KindFuzz:
		if !c.replace(s) {
			return false
		}
		s.Type = max(s.Type, spelling.Fuzzy)
		s.Credibility += spelling.FuzzyPenalty
		return true
	case KindAbbreviate:
		if !c.replace(s) {
			return false
		}
		s.Type = max(s.Type, spelling.Abbreviation)
		s.Credibility += spelling.AbbreviationPenalty
		return true
	}
	return false
}

func (c *Calculation) transliterate(s *spelling.Spelling) bool {
	var b strings.Builder
	b.Grow(len(s.Str))
	modified := false
	for _, r := range s.Str {
		if to, ok := c.charMap[r]; ok {
			b.WriteRune(to)
			modified = true
			continue
		}
		b.WriteRune(r)
	}
	if modified {
		s.Str = b.String()
	}
	return modified
}

func (c *Calculation) replace(s *spelling.Spelling) bool {
	result := c.pattern.ReplaceAllString(s.Str, c.replacement)
	if result == s.Str {
		return false
	}
	s.Str = result
	return true
}

// NewTransliteration builds a character-for-character substitution. left and
// right must hold the same number of characters.
func NewTransliteration(left, right string) (*Calculation, error) {
	if left == "" || utf8.RuneCountInString(left) != utf8.RuneCountInString(right) {
		return nil, fmt.Errorf("%w: xlit %q -> %q: character sets differ in length", ErrInvalidArguments, left, right)
	}
	m := make(map[rune]rune, len(left))
	rr := []rune(right)
	i := 0
	for _, l := range left {
		m[l] = rr[i]
		i++
	}
	return &Calculation{kind: KindTransliterate, charMap: m}, nil
}

// NewPatternRule builds a regex-based rule of the given kind. replacement is
// ignored for [KindErase].
func NewPatternRule(kind Kind, pattern, replacement string) (*Calculation, error) {
	switch kind {
	case KindTransform, KindErase, KindDerive, KindFuzz, KindAbbreviate:
	default:
		return nil, fmt.Errorf("%w: %v is not a pattern rule", ErrInvalidArguments, kind)
	}
	if pattern == "" {
		return nil, fmt.Errorf("%w: %v: empty pattern", ErrInvalidArguments, kind)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("algebra: %v: compile %q: %w", kind, pattern, err)
	}
	c := &Calculation{kind: kind, pattern: re}
	if kind != KindErase {
		c.replacement = normalizeTemplate(replacement)
	}
	return c, nil
}

var groupRef = regexp.MustCompile(`\$\$|\$[0-9]+`)

// normalizeTemplate braces numbered group references so that "$1ve" means
// group 1 followed by "ve" rather than a group named "1ve".
func normalizeTemplate(tmpl string) string {
	return groupRef.ReplaceAllStringFunc(tmpl, func(ref string) string {
		if ref == "$$" {
			return ref
		}
		return "${" + ref[1:] + "}"
	})
}

// Factory builds a Calculation from the split rule tokens; args[0] is the
// operator token.
type Factory func(args []string) (*Calculation, error)

// Calculus maps rule tokens to factories.
type Calculus struct {
	factories map[string]Factory
}

// NewCalculus returns a registry preloaded with the six built-in operators.
func NewCalculus() *Calculus {
	c := &Calculus{factories: make(map[string]Factory, len(kindTokens))}
	c.Register(KindTransliterate.String(), func(args []string) (*Calculation, error) {
		if len(args) < 3 {
			return nil, fmt.Errorf("%w: xlit needs two character sets", ErrInvalidArguments)
		}
		return NewTransliteration(args[1], args[2])
	})
	for _, k := range []Kind{KindTransform, KindDerive, KindFuzz, KindAbbreviate} {
		c.Register(k.String(), func(args []string) (*Calculation, error) {
			if len(args) < 3 {
				return nil, fmt.Errorf("%w: %v needs a pattern and a replacement", ErrInvalidArguments, k)
			}
			return NewPatternRule(k, args[1], args[2])
		})
	}
	c.Register(KindErase.String(), func(args []string) (*Calculation, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("%w: erase needs a pattern", ErrInvalidArguments)
		}
		return NewPatternRule(KindErase, args[1], "")
	})
	return c
}

// Register binds token to f, replacing any previous binding.
func (c *Calculus) Register(token string, f Factory) {
	c.factories[token] = f
}

// Parse compiles a single rule definition.
func (c *Calculus) Parse(definition string) (*Calculation, error) {
	sep := strings.IndexFunc(definition, func(r rune) bool {
		return r < 'a' || r > 'z'
	})
	if sep < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoSeparator, definition)
	}
	r, _ := utf8.DecodeRuneInString(definition[sep:])
	args := strings.Split(definition, string(r))
	f, ok := c.factories[args[0]]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, args[0])
	}
	return f(args)
}
