package prism_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MrWong99/syllabify/internal/algebra"
	"github.com/MrWong99/syllabify/internal/prism"
	"github.com/MrWong99/syllabify/pkg/spelling"
)

func buildCompanies(t *testing.T) *prism.Prism {
	t.Helper()
	p := prism.New()
	syllabary := algebra.NewSyllabary(
		"google", "good", "goodbye", "microsoft", "macrosoft", "adobe", "yahoo", "baidu",
	)
	if err := p.Build(syllabary, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return p
}

func TestPrism_HasKeyAndGetValue(t *testing.T) {
	t.Parallel()
	p := buildCompanies(t)

	if !p.HasKey("google") {
		t.Error(`HasKey("google") = false`)
	}
	if p.HasKey("goog") {
		t.Error(`HasKey("goog") = true for a bare prefix`)
	}
	if p.HasKey("googles") {
		t.Error(`HasKey("googles") = true`)
	}
	tests := []struct {
		key  string
		want int
	}{
		{"adobe", 0},
		{"baidu", 1},
		{"good", 2},
		{"yahoo", 7},
	}
	for _, tc := range tests {
		got, ok := p.GetValue(tc.key)
		if !ok || got != tc.want {
			t.Errorf("GetValue(%q) = %d, %v; want %d, true", tc.key, got, ok, tc.want)
		}
	}
	if !p.HasPrefix("micro") || p.HasPrefix("mo") {
		t.Error("HasPrefix mismatch")
	}
}

func TestPrism_CommonPrefixSearch(t *testing.T) {
	t.Parallel()
	p := buildCompanies(t)
	want := []prism.Match{{Value: 2, Offset: 4}, {Value: 3, Offset: 7}}
	if diff := cmp.Diff(want, p.CommonPrefixSearch("goodbye")); diff != "" {
		t.Errorf("CommonPrefixSearch(goodbye) mismatch (-want +got):\n%s", diff)
	}
	if got := p.CommonPrefixSearch("goodness"); len(got) != 1 || got[0].Offset != 4 {
		t.Errorf("CommonPrefixSearch(goodness) = %v, want one match at offset 4", got)
	}
	if got := p.CommonPrefixSearch(""); got != nil {
		t.Errorf("CommonPrefixSearch(\"\") = %v, want nil", got)
	}
	if got := p.CommonPrefixSearch("zzz"); got != nil {
		t.Errorf("CommonPrefixSearch(zzz) = %v, want nil", got)
	}
}

func TestPrism_ExpandSearch(t *testing.T) {
	t.Parallel()
	p := buildCompanies(t)

	tests := []struct {
		name  string
		key   string
		limit int
		want  []prism.Match
	}{
		{
			name:  "breadth first",
			key:   "goo",
			limit: 10,
			want:  []prism.Match{{Value: 2, Offset: 4}, {Value: 4, Offset: 6}, {Value: 3, Offset: 7}},
		},
		{
			name:  "exact key first",
			key:   "good",
			limit: 0,
			want:  []prism.Match{{Value: 2, Offset: 4}, {Value: 3, Offset: 7}},
		},
		{
			name:  "limit is a hard stop",
			key:   "goo",
			limit: 2,
			want:  []prism.Match{{Value: 2, Offset: 4}, {Value: 4, Offset: 6}},
		},
		{
			name:  "no such prefix",
			key:   "x",
			limit: 10,
			want:  nil,
		},
		{
			name:  "empty key enumerates everything",
			key:   "",
			limit: 0,
			want: []prism.Match{
				{Value: 2, Offset: 4},
				{Value: 0, Offset: 5}, {Value: 1, Offset: 5}, {Value: 7, Offset: 5},
				{Value: 4, Offset: 6},
				{Value: 3, Offset: 7},
				{Value: 5, Offset: 9}, {Value: 6, Offset: 9},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := p.ExpandSearch(tc.key, tc.limit)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ExpandSearch(%q, %d) mismatch (-want +got):\n%s", tc.key, tc.limit, diff)
			}
		})
	}
}

func TestPrism_ExpandSearchNeverExceedsLimit(t *testing.T) {
	t.Parallel()
	var words []string
	for a := 'a'; a <= 'z'; a++ {
		for b := 'a'; b <= 'z'; b++ {
			words = append(words, "q"+string(a)+string(b))
		}
	}
	p := prism.New()
	if err := p.Build(algebra.NewSyllabary(words...), nil); err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, limit := range []int{1, 7, 100, 512} {
		if got := len(p.ExpandSearch("q", limit)); got != limit {
			t.Errorf("len(ExpandSearch(q, %d)) = %d, want %d", limit, got, limit)
		}
	}
	if got := len(p.ExpandSearch("q", 0)); got != len(words) {
		t.Errorf("unbounded ExpandSearch returned %d, want %d", got, len(words))
	}
}

func TestPrism_QuerySpellingWithoutScript(t *testing.T) {
	t.Parallel()
	p := buildCompanies(t)
	v, _ := p.GetValue("yahoo")
	want := []prism.SpellingDescriptor{{SyllableID: 7, Type: spelling.Normal}}
	if diff := cmp.Diff(want, p.QuerySpelling(v)); diff != "" {
		t.Errorf("QuerySpelling mismatch (-want +got):\n%s", diff)
	}
	if got := p.QuerySpelling(99); got != nil {
		t.Errorf("QuerySpelling(99) = %v, want nil", got)
	}
	if got := p.QuerySpelling(-1); got != nil {
		t.Errorf("QuerySpelling(-1) = %v, want nil", got)
	}
}

func TestPrism_QuerySpellingWithScript(t *testing.T) {
	t.Parallel()
	syllabary := algebra.NewSyllabary("zhang", "zang")
	proj := algebra.NewProjection()
	if err := proj.Load([]string{"derive/^zh/z/", "abbrev/^([a-z]).+$/$1/"}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	script := algebra.NewScriptFromSyllabary(syllabary)
	proj.ApplyScript(script)

	p := prism.New()
	if err := p.Build(syllabary, script, prism.WithSchemaChecksum(42)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if diff := cmp.Diff([]string{"z", "zang", "zhang"}, p.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}

	v, ok := p.GetValue("zang")
	if !ok {
		t.Fatal(`GetValue("zang") not found`)
	}
	want := []prism.SpellingDescriptor{
		{SyllableID: 0, Type: spelling.Normal},
		{SyllableID: 1, Type: spelling.Normal},
	}
	if diff := cmp.Diff(want, p.QuerySpelling(v)); diff != "" {
		t.Errorf("QuerySpelling(zang) mismatch (-want +got):\n%s", diff)
	}

	v, _ = p.GetValue("z")
	for _, d := range p.QuerySpelling(v) {
		if d.Type != spelling.Abbreviation {
			t.Errorf("z -> %d: type = %v, want abbreviation", d.SyllableID, d.Type)
		}
		if math.Abs(d.Credibility-math.Log(0.5)) > 1e-9 {
			t.Errorf("z -> %d: credibility = %v, want ln(0.5)", d.SyllableID, d.Credibility)
		}
	}

	meta := p.Metadata()
	if meta.NumSyllables != 2 || meta.NumSpellings != 3 {
		t.Errorf("metadata counts = %d/%d, want 2/3", meta.NumSyllables, meta.NumSpellings)
	}
	if meta.SchemaChecksum != 42 {
		t.Errorf("SchemaChecksum = %d, want 42", meta.SchemaChecksum)
	}
	if meta.DictChecksum != prism.SyllabaryChecksum(syllabary) {
		t.Error("DictChecksum does not match the syllabary")
	}
	if meta.Alphabet != "aghnz" {
		t.Errorf("Alphabet = %q, want %q", meta.Alphabet, "aghnz")
	}
}

func TestPrism_Unbuilt(t *testing.T) {
	t.Parallel()
	p := prism.New()
	if p.Built() {
		t.Error("Built() = true for a new prism")
	}
	if p.HasKey("a") || p.HasPrefix("a") {
		t.Error("unbuilt prism reports keys")
	}
	if _, ok := p.GetValue("a"); ok {
		t.Error("unbuilt prism returned a value")
	}
	if p.CommonPrefixSearch("a") != nil || p.ExpandSearch("a", 1) != nil || p.QuerySpelling(0) != nil {
		t.Error("unbuilt prism returned search results")
	}
}

func TestPrism_BuildErrors(t *testing.T) {
	t.Parallel()
	if err := prism.New().Build(nil, nil); !errors.Is(err, prism.ErrEmptyKeySet) {
		t.Errorf("Build(empty) = %v, want ErrEmptyKeySet", err)
	}
	p := buildCompanies(t)
	if err := p.Build(algebra.NewSyllabary("a"), nil); !errors.Is(err, prism.ErrAlreadyBuilt) {
		t.Errorf("second Build = %v, want ErrAlreadyBuilt", err)
	}
}

func TestPrism_RandomKeySets(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(7, 11))
	const letters = "abcdefghijklmnopqrstuvwxyz'"
	for round := range 20 {
		var words []string
		for range 50 + rng.IntN(300) {
			n := 1 + rng.IntN(7)
			b := make([]byte, n)
			for i := range b {
				b[i] = letters[rng.IntN(len(letters))]
			}
			words = append(words, string(b))
		}
		syllabary := algebra.NewSyllabary(words...)
		p := prism.New()
		if err := p.Build(syllabary, nil); err != nil {
			t.Fatalf("round %d: Build: %v", round, err)
		}
		if diff := cmp.Diff([]string(syllabary), p.Keys()); diff != "" {
			t.Fatalf("round %d: Keys() mismatch (-want +got):\n%s", round, diff)
		}
		for i, w := range syllabary {
			if v, ok := p.GetValue(w); !ok || v != i {
				t.Fatalf("round %d: GetValue(%q) = %d, %v; want %d", round, w, v, ok, i)
			}
			if _, found := slices.BinarySearch(syllabary, w+"~"); p.HasKey(w+"~") != found {
				t.Fatalf("round %d: HasKey(%q) disagrees with the key set", round, w+"~")
			}
		}
	}
}

func TestPrism_SaveLoad(t *testing.T) {
	t.Parallel()
	syllabary := algebra.NewSyllabary("chang", "chan", "an", "a", "tuan", "tu")
	proj := algebra.NewProjection()
	if err := proj.Load([]string{"fuzz/^ch/c/", "abbrev/^([a-z]).+$/$1/"}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	script := algebra.NewScriptFromSyllabary(syllabary)
	proj.ApplyScript(script)
	script.Merge("twan", spelling.Properties{Type: spelling.Fuzzy, Tips: "hint"}, []spelling.Spelling{spelling.New("tuan")})

	orig := prism.New()
	if err := orig.Build(syllabary, script, prism.WithSchemaChecksum(prism.RulesChecksum([]string{"x"}))); err != nil {
		t.Fatalf("Build: %v", err)
	}
	path := filepath.Join(t.TempDir(), "test.prism.bin")
	if err := orig.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := prism.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(orig.Metadata(), loaded.Metadata()); diff != "" {
		t.Errorf("Metadata mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(orig.Keys(), loaded.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
	for _, key := range orig.Keys() {
		v, _ := orig.GetValue(key)
		lv, ok := loaded.GetValue(key)
		if !ok || lv != v {
			t.Errorf("GetValue(%q) = %d, %v; want %d", key, lv, ok, v)
		}
		if diff := cmp.Diff(orig.QuerySpelling(v), loaded.QuerySpelling(lv)); diff != "" {
			t.Errorf("QuerySpelling(%q) mismatch (-want +got):\n%s", key, diff)
		}
	}
	if diff := cmp.Diff(orig.ExpandSearch("c", 0), loaded.ExpandSearch("c", 0)); diff != "" {
		t.Errorf("ExpandSearch mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_BadFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	p := buildCompanies(t)
	good := filepath.Join(dir, "good.bin")
	if err := p.Save(good); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(good)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	files := map[string][]byte{
		"short":     []byte("SYL"),
		"magic":     []byte("NOTAPRISM-------------------"),
		"truncated": data[:len(data)/2],
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		if _, err := prism.Load(path); !errors.Is(err, prism.ErrBadFormat) {
			t.Errorf("Load(%s) error = %v, want ErrBadFormat", name, err)
		}
	}

	if _, err := prism.Load(filepath.Join(dir, "missing.bin")); err == nil {
		t.Error("Load(missing) succeeded")
	}
	if err := prism.New().Save(filepath.Join(dir, "unbuilt.bin")); err == nil {
		t.Error("Save on unbuilt prism succeeded")
	}
}
