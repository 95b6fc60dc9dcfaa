package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ilyakaznacheev/cleanenv"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/MrWong99/syllabify/internal/algebra"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default], applies
// environment overrides, normalises syllables and rules to NFC and validates
// the result. Useful in tests where configs are constructed from string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize converts every syllable and rule to Unicode NFC so that
// precomposed and decomposed input spell the same key.
func normalize(cfg *Config) {
	for i, s := range cfg.Syllabary.Syllables {
		cfg.Syllabary.Syllables[i] = norm.NFC.String(strings.TrimSpace(s))
	}
	for i, r := range cfg.Speller.Algebra {
		cfg.Speller.Algebra[i] = norm.NFC.String(r)
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Speller
	for i := 0; i < len(cfg.Speller.Delimiter); i++ {
		if cfg.Speller.Delimiter[i] >= utf8.RuneSelf {
			errs = append(errs, fmt.Errorf("speller.delimiter %q must contain ASCII characters only", cfg.Speller.Delimiter))
			break
		}
	}
	calc := algebra.NewCalculus()
	for i, rule := range cfg.Speller.Algebra {
		if _, err := calc.Parse(rule); err != nil {
			errs = append(errs, fmt.Errorf("speller.algebra[%d] %q: %w", i, rule, err))
		}
	}
	if cfg.Speller.ExpandSearchLimit < 0 {
		errs = append(errs, fmt.Errorf("speller.expand_search_limit %d must not be negative", cfg.Speller.ExpandSearchLimit))
	}
	corr := cfg.Speller.Correction
	if corr.Method != "" && !corr.Method.IsValid() {
		errs = append(errs, fmt.Errorf("speller.correction.method %q is invalid; valid values: near_search, edit_distance", corr.Method))
	}
	if corr.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("speller.correction.tolerance %d must not be negative", corr.Tolerance))
	}
	if corr.MaxDistance < 0 {
		errs = append(errs, fmt.Errorf("speller.correction.max_distance %d must not be negative", corr.MaxDistance))
	}
	if corr.Enabled && corr.Method == CorrectionEditDistance && corr.MaxDistance > corr.Tolerance {
		slog.Warn("speller.correction.max_distance exceeds tolerance; tolerance wins",
			"max_distance", corr.MaxDistance,
			"tolerance", corr.Tolerance,
		)
	}

	// Syllabary
	if len(cfg.Syllabary.Syllables) == 0 && cfg.Syllabary.File == "" {
		errs = append(errs, errors.New("syllabary: either syllables or file is required"))
	}
	for i, s := range cfg.Syllabary.Syllables {
		if s == "" {
			errs = append(errs, fmt.Errorf("syllabary.syllables[%d] is empty", i))
			continue
		}
		if strings.ContainsAny(s, cfg.Speller.Delimiter) {
			slog.Warn("syllable contains a delimiter character and can never be matched",
				"syllable", s,
				"delimiter", cfg.Speller.Delimiter,
			)
		}
	}

	return errors.Join(errs...)
}

// ReadSyllables parses a syllable list: one syllable per line, blank lines
// and '#' comments ignored, every entry normalised to NFC.
func ReadSyllables(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, norm.NFC.String(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("config: read syllables: %w", err)
	}
	return out, nil
}

// AllSyllables returns the inline syllables followed by those listed in
// Syllabary.File, if set.
func (c *Config) AllSyllables() ([]string, error) {
	out := append([]string(nil), c.Syllabary.Syllables...)
	if c.Syllabary.File == "" {
		return out, nil
	}
	f, err := os.Open(c.Syllabary.File)
	if err != nil {
		return nil, fmt.Errorf("config: open syllabary %q: %w", c.Syllabary.File, err)
	}
	defer f.Close()
	fromFile, err := ReadSyllables(f)
	if err != nil {
		return nil, fmt.Errorf("config: syllabary %q: %w", c.Syllabary.File, err)
	}
	return append(out, fromFile...), nil
}
