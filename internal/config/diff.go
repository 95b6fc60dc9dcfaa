package config

import "slices"

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	// AlgebraChanged is true if the rule list differs in content or order.
	AlgebraChanged bool

	// SyllabaryChanged is true if the inline syllables or the syllabary
	// file path differ. [Diff] does not read the file; callers holding the
	// loaded syllables refine these fields with [DiffSyllables].
	SyllabaryChanged bool
	SyllablesAdded   []string
	SyllablesRemoved []string

	// SpellerChanged is true if any segmentation option other than the
	// algebra changed.
	SpellerChanged bool

	PrismPathChanged bool

	LogLevelChanged bool
	NewLogLevel     LogLevel
}

// RequiresRebuild reports whether the prism must be rebuilt to apply the diff.
func (d ConfigDiff) RequiresRebuild() bool {
	return d.AlgebraChanged || d.SyllabaryChanged || d.PrismPathChanged
}

// Empty reports whether nothing changed.
func (d ConfigDiff) Empty() bool {
	return !d.RequiresRebuild() && !d.SpellerChanged && !d.LogLevelChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}

	d.AlgebraChanged = !slices.Equal(old.Speller.Algebra, new.Speller.Algebra)

	os, ns := old.Speller, new.Speller
	d.SpellerChanged = os.Delimiter != ns.Delimiter ||
		os.EnableCompletion != ns.EnableCompletion ||
		os.StrictSpelling != ns.StrictSpelling ||
		os.ExpandSearchLimit != ns.ExpandSearchLimit ||
		os.Correction != ns.Correction

	d.SyllablesAdded, d.SyllablesRemoved = DiffSyllables(old.Syllabary.Syllables, new.Syllabary.Syllables)
	d.SyllabaryChanged = len(d.SyllablesAdded) > 0 || len(d.SyllablesRemoved) > 0 ||
		old.Syllabary.File != new.Syllabary.File

	d.PrismPathChanged = old.Prism.Path != new.Prism.Path

	return d
}

// DiffSyllables returns the sorted set differences new-old and old-new.
func DiffSyllables(old, new []string) (added, removed []string) {
	oldSet := make(map[string]struct{}, len(old))
	for _, s := range old {
		oldSet[s] = struct{}{}
	}
	newSet := make(map[string]struct{}, len(new))
	for _, s := range new {
		newSet[s] = struct{}{}
		if _, ok := oldSet[s]; !ok {
			added = append(added, s)
		}
	}
	for _, s := range old {
		if _, ok := newSet[s]; !ok {
			removed = append(removed, s)
		}
	}
	slices.Sort(added)
	added = slices.Compact(added)
	slices.Sort(removed)
	removed = slices.Compact(removed)
	return added, removed
}
