// Package config provides the configuration schema and loader for the
// syllabify segmentation engine.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// CorrectionMethod selects the typo corrector.
type CorrectionMethod string

const (
	// CorrectionNearSearch substitutes physically adjacent keys.
	CorrectionNearSearch CorrectionMethod = "near_search"

	// CorrectionEditDistance scores keys by Damerau-Levenshtein distance.
	CorrectionEditDistance CorrectionMethod = "edit_distance"
)

// IsValid reports whether m is a recognised correction method.
func (m CorrectionMethod) IsValid() bool {
	return m == CorrectionNearSearch || m == CorrectionEditDistance
}

// Defaults applied by [Config.ApplyDefaults].
const (
	DefaultDelimiter         = " '"
	DefaultTolerance         = 5
	DefaultMaxDistance       = 1
	DefaultExpandSearchLimit = 512
)

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	LogLevel  LogLevel        `yaml:"log_level" env:"SYLLABIFY_LOG_LEVEL"`
	Speller   SpellerConfig   `yaml:"speller"`
	Syllabary SyllabaryConfig `yaml:"syllabary"`
	Prism     PrismConfig     `yaml:"prism"`
}

// SpellerConfig controls how input is segmented.
type SpellerConfig struct {
	// Delimiter lists the characters skipped after each syllable. When
	// omitted it is [DefaultDelimiter]; an explicit "" disables skipping.
	Delimiter string `yaml:"delimiter"`

	// Algebra is the ordered list of spelling rules, e.g.
	// "derive/^([zcs])h/$1/".
	Algebra []string `yaml:"algebra"`

	// EnableCompletion completes an unfinished final syllable.
	EnableCompletion bool `yaml:"enable_completion"`

	// StrictSpelling rejects fuzzy or abbreviated spellings matching the
	// whole input as a single syllable.
	StrictSpelling bool `yaml:"strict_spelling"`

	// ExpandSearchLimit caps completion candidates.
	ExpandSearchLimit int `yaml:"expand_search_limit"`

	Correction CorrectionConfig `yaml:"correction"`
}

// CorrectionConfig controls typo correction.
type CorrectionConfig struct {
	Enabled bool             `yaml:"enabled"`
	Method  CorrectionMethod `yaml:"method"`

	// Tolerance bounds the number of edits per syllable. When omitted it is
	// [DefaultTolerance]; an explicit 0 disables correction.
	Tolerance int `yaml:"tolerance"`

	// MaxDistance additionally caps the edit_distance method.
	MaxDistance int `yaml:"max_distance"`
}

// SyllabaryConfig lists the canonical syllables. Inline syllables and the
// lines of File are combined.
type SyllabaryConfig struct {
	Syllables []string `yaml:"syllables"`

	// File holds one syllable per line; blank lines and lines starting with
	// '#' are ignored.
	File string `yaml:"file" env:"SYLLABIFY_SYLLABARY_FILE"`
}

// PrismConfig controls the compiled prism cache.
type PrismConfig struct {
	// Path is where the compiled prism is cached. Empty disables caching.
	Path string `yaml:"path" env:"SYLLABIFY_PRISM_PATH"`
}

// Default returns a Config holding every default. [LoadFromReader] decodes
// on top of it, so values written explicitly in YAML, including zero values
// such as `delimiter: ""` or `tolerance: 0`, are kept.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero-valued fields with their defaults. It is meant
// for configs built in code, where a zero value cannot be told apart from
// an unset one.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = LogInfo
	}
	if c.Speller.Delimiter == "" {
		c.Speller.Delimiter = DefaultDelimiter
	}
	if c.Speller.ExpandSearchLimit == 0 {
		c.Speller.ExpandSearchLimit = DefaultExpandSearchLimit
	}
	if c.Speller.Correction.Method == "" {
		c.Speller.Correction.Method = CorrectionNearSearch
	}
	if c.Speller.Correction.Tolerance == 0 {
		c.Speller.Correction.Tolerance = DefaultTolerance
	}
	if c.Speller.Correction.MaxDistance == 0 {
		c.Speller.Correction.MaxDistance = DefaultMaxDistance
	}
}
