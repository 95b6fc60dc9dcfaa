package algebra_test

import (
	"errors"
	"math"
	"testing"

	"github.com/MrWong99/syllabify/internal/algebra"
	"github.com/MrWong99/syllabify/pkg/spelling"
)

func mustParse(t *testing.T, def string) *algebra.Calculation {
	t.Helper()
	c, err := algebra.NewCalculus().Parse(def)
	if err != nil {
		t.Fatalf("Parse(%q): %v", def, err)
	}
	return c
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		def  string
		want error
	}{
		{"no separator", "xform", algebra.ErrNoSeparator},
		{"unknown op", "rot13/a/b/", algebra.ErrUnknownOperator},
		{"leading separator", "/a/b/", algebra.ErrUnknownOperator},
		{"missing replacement", "xform/abc", algebra.ErrInvalidArguments},
		{"empty pattern", "derive//x/", algebra.ErrInvalidArguments},
		{"erase without pattern", "erase", algebra.ErrNoSeparator},
		{"erase empty pattern", "erase//", algebra.ErrInvalidArguments},
		{"xlit length mismatch", "xlit/abc/AB/", algebra.ErrInvalidArguments},
		{"xlit missing target", "xlit/abc", algebra.ErrInvalidArguments},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := algebra.NewCalculus().Parse(tc.def)
			if !errors.Is(err, tc.want) {
				t.Errorf("Parse(%q) error = %v, want %v", tc.def, err, tc.want)
			}
		})
	}
}

func TestParse_BadRegex(t *testing.T) {
	t.Parallel()
	if _, err := algebra.NewCalculus().Parse("xform/([a-z/$1/"); err == nil {
		t.Error("expected regex compile error")
	}
}

func TestTransliteration(t *testing.T) {
	t.Parallel()
	c := mustParse(t, "xlit abcdefghijklmnopqrstuvwxyz ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	if c.Kind() != algebra.KindTransliterate {
		t.Fatalf("Kind() = %v, want xlit", c.Kind())
	}
	s := spelling.New("abracadabra")
	if !c.Apply(&s) {
		t.Fatal("Apply returned false")
	}
	if s.Str != "ABRACADABRA" {
		t.Errorf("Apply: got %q, want %q", s.Str, "ABRACADABRA")
	}

	s = spelling.New("123")
	if c.Apply(&s) || s.Str != "123" {
		t.Errorf("Apply on unmapped input: got %q changed", s.Str)
	}
}

func TestTransliteration_Unicode(t *testing.T) {
	t.Parallel()
	c := mustParse(t, "xlit|āáǎà|aaaa|")
	s := spelling.New("mā")
	if !c.Apply(&s) || s.Str != "ma" {
		t.Errorf("Apply(mā) = %q, want %q", s.Str, "ma")
	}
}

func TestTransformation(t *testing.T) {
	t.Parallel()
	c := mustParse(t, "xform/^([zcs])h(.*)$/$1$2/")
	s := spelling.New("shang")
	if !c.Apply(&s) {
		t.Fatal("Apply returned false")
	}
	if s.Str != "sang" {
		t.Errorf("Apply: got %q, want %q", s.Str, "sang")
	}
	if !c.Addition() || !c.Deletion() {
		t.Error("xform should both add and delete")
	}

	s = spelling.New("bang")
	if c.Apply(&s) || s.Str != "bang" {
		t.Errorf("non-matching input changed to %q", s.Str)
	}
}

func TestTransformation_GroupFollowedByLetters(t *testing.T) {
	t.Parallel()
	c := mustParse(t, "xform/^([nl])ue$/$1ve/")
	s := spelling.New("lue")
	if !c.Apply(&s) || s.Str != "lve" {
		t.Errorf("Apply(lue) = %q, want %q", s.Str, "lve")
	}
}

func TestErasure(t *testing.T) {
	t.Parallel()
	c := mustParse(t, "erase/^[czs]h[aoe]ng?$/")
	if c.Addition() {
		t.Error("erase must not add")
	}
	if !c.Deletion() {
		t.Error("erase must delete")
	}
	s := spelling.New("zhang")
	if !c.Apply(&s) {
		t.Fatal("Apply returned false")
	}
	if s.Str != "" {
		t.Errorf("Apply: got %q, want empty", s.Str)
	}

	s = spelling.New("zhuang")
	if c.Apply(&s) || s.Str != "zhuang" {
		t.Errorf("non-matching input changed to %q", s.Str)
	}
}

func TestDerivation(t *testing.T) {
	t.Parallel()
	c := mustParse(t, "derive/^([zcs])h/$1/")
	if c.Deletion() {
		t.Error("derive must keep the original key")
	}
	s := spelling.New("shang")
	if !c.Apply(&s) || s.Str != "sang" {
		t.Errorf("Apply(shang) = %q, want %q", s.Str, "sang")
	}
	if s.Type != spelling.Normal {
		t.Errorf("derive changed type to %v", s.Type)
	}
}

func TestFuzzing(t *testing.T) {
	t.Parallel()
	c := mustParse(t, "fuzz/^([zcs])h(.*)$/$1$2/")
	s := spelling.New("shang")
	if !c.Apply(&s) || s.Str != "sang" {
		t.Fatalf("Apply(shang) = %q, want %q", s.Str, "sang")
	}
	if s.Type != spelling.Fuzzy {
		t.Errorf("type = %v, want fuzzy", s.Type)
	}
	if !approxEqual(s.Credibility, math.Log(0.5)) {
		t.Errorf("credibility = %v, want %v", s.Credibility, math.Log(0.5))
	}
}

func TestAbbreviation(t *testing.T) {
	t.Parallel()
	c := mustParse(t, "abbrev/^([zcs]h).*$/$1/")
	if c.Deletion() {
		t.Error("abbrev must keep the original key")
	}
	s := spelling.New("shang")
	if !c.Apply(&s) {
		t.Fatal("Apply returned false")
	}
	if s.Str != "sh" {
		t.Errorf("Apply: got %q, want %q", s.Str, "sh")
	}
	if s.Type != spelling.Abbreviation {
		t.Errorf("type = %v, want abbreviation", s.Type)
	}
	if !approxEqual(s.Credibility, math.Log(0.5)) {
		t.Errorf("credibility = %v, want %v", s.Credibility, math.Log(0.5))
	}
}

func TestPatternRules_NoOpOnMismatch(t *testing.T) {
	t.Parallel()
	defs := []string{
		"xform/^q(.*)$/k$1/",
		"derive/^q(.*)$/k$1/",
		"fuzz/^q(.*)$/k$1/",
		"abbrev/^q(.*)$/k/",
	}
	for _, def := range defs {
		c := mustParse(t, def)
		s := spelling.Spelling{Str: "zhang", Properties: spelling.Properties{Credibility: -1, Tips: "t"}}
		orig := s
		if c.Apply(&s) {
			t.Errorf("%s: Apply returned true on non-matching input", def)
		}
		if s != orig {
			t.Errorf("%s: spelling changed: got %+v, want %+v", def, s, orig)
		}
	}
}

func TestApply_EmptySpelling(t *testing.T) {
	t.Parallel()
	for _, def := range []string{"xlit/a/b/", "xform/^$/x/", "erase/.*/"} {
		c := mustParse(t, def)
		s := spelling.New("")
		if c.Apply(&s) {
			t.Errorf("%s: Apply on empty spelling returned true", def)
		}
	}
}

func TestCalculus_Register(t *testing.T) {
	t.Parallel()
	calc := algebra.NewCalculus()
	calc.Register("upper", func(args []string) (*algebra.Calculation, error) {
		return algebra.NewTransliteration("ab", "AB")
	})
	c, err := calc.Parse("upper/")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s := spelling.New("abc")
	if !c.Apply(&s) || s.Str != "ABc" {
		t.Errorf("Apply = %q, want %q", s.Str, "ABc")
	}
}
