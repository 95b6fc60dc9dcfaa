// Package engine wires configuration, spelling algebra, prism and
// syllabifier into a ready-to-use segmentation engine.
//
// An [Engine] is immutable once built and safe for concurrent use. Applying a
// new configuration produces a new Engine; callers swap it in atomically.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/MrWong99/syllabify/internal/algebra"
	"github.com/MrWong99/syllabify/internal/config"
	"github.com/MrWong99/syllabify/internal/observe"
	"github.com/MrWong99/syllabify/internal/prism"
	"github.com/MrWong99/syllabify/internal/syllabifier"
	"github.com/MrWong99/syllabify/pkg/spelling"
)

// ErrEmptySyllabary is returned by [New] when the configuration yields no
// syllables.
var ErrEmptySyllabary = errors.New("engine: syllabary is empty")

// Engine segments input strings against a compiled prism.
type Engine struct {
	cfg         *config.Config
	syllabary   algebra.Syllabary
	script      *algebra.Script
	prism       *prism.Prism
	syllabifier *syllabifier.Syllabifier

	metrics     *observe.Metrics
	registry    *Registry
	concurrency int
}

// Option configures an [Engine].
type Option func(*Engine)

// WithMetrics sets the metric instruments. The default is
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithRegistry sets the corrector registry. The default is
// [DefaultRegistry].
func WithRegistry(r *Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithConcurrency bounds the goroutines used by [Engine.SegmentAll]. The
// default is GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// New builds an Engine from cfg: it collects the syllabary, expands it
// through the spelling algebra, loads a matching cached prism or builds (and
// caches) a new one, and configures the syllabifier.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (_ *Engine, err error) {
	ctx, span := observe.StartSpan(ctx, "engine.New")
	defer func() { observe.EndSpan(span, err) }()

	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	e.applyDefaults()

	syllables, err := cfg.AllSyllables()
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e.syllabary = algebra.NewSyllabary(syllables...)
	if len(e.syllabary) == 0 {
		return nil, ErrEmptySyllabary
	}
	span.SetAttributes(attribute.Int("syllabify.syllables", len(e.syllabary)))

	if e.script, err = e.buildScript(ctx); err != nil {
		return nil, err
	}
	if e.prism, err = e.acquirePrism(ctx); err != nil {
		return nil, err
	}
	if e.syllabifier, err = e.newSyllabifier(cfg.Speller); err != nil {
		return nil, err
	}

	observe.Logger(ctx).Info("engine ready",
		"syllables", len(e.syllabary),
		"spellings", e.prism.Metadata().NumSpellings,
		"rules", len(cfg.Speller.Algebra),
	)
	return e, nil
}

func (e *Engine) applyDefaults() {
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	if e.registry == nil {
		e.registry = DefaultRegistry()
	}
	if e.concurrency == 0 {
		e.concurrency = runtime.GOMAXPROCS(0)
	}
}

func (e *Engine) buildScript(ctx context.Context) (*algebra.Script, error) {
	script := algebra.NewScriptFromSyllabary(e.syllabary)
	rules := e.cfg.Speller.Algebra
	if len(rules) == 0 {
		return script, nil
	}
	proj := algebra.NewProjection()
	if err := proj.Load(rules); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if !proj.ApplyScript(script) {
		observe.Logger(ctx).Warn("spelling algebra did not change any spelling", "rules", len(rules))
	}
	e.metrics.RecordAlgebraRounds(ctx, proj.Len())
	return script, nil
}

// acquirePrism loads the cached prism when its checksums match the current
// syllabary and rules, otherwise builds a new one and caches it. A cache that
// cannot be written is logged, not fatal.
func (e *Engine) acquirePrism(ctx context.Context) (*prism.Prism, error) {
	start := time.Now()
	log := observe.Logger(ctx)
	path := e.cfg.Prism.Path
	dictSum := prism.SyllabaryChecksum(e.syllabary)
	schemaSum := prism.RulesChecksum(e.cfg.Speller.Algebra)

	if path != "" {
		cached, err := prism.Load(path)
		switch {
		case err == nil:
			meta := cached.Metadata()
			if meta.Format == prism.FormatVersion && meta.DictChecksum == dictSum && meta.SchemaChecksum == schemaSum {
				e.metrics.RecordPrismBuild(ctx, observe.PrismLoaded, time.Since(start))
				log.Debug("prism loaded from cache", "path", path, "metadata", meta.String())
				return cached, nil
			}
			log.Info("prism cache is stale, rebuilding", "path", path)
		case errors.Is(err, fs.ErrNotExist):
			log.Debug("no prism cache yet", "path", path)
		default:
			log.Warn("cannot read prism cache, rebuilding", "path", path, "err", err)
		}
	}

	// Without rules every syllable spells only itself.
	var script *algebra.Script
	if len(e.cfg.Speller.Algebra) > 0 {
		script = e.script
	}
	p := prism.New()
	if err := p.Build(e.syllabary, script, prism.WithSchemaChecksum(schemaSum)); err != nil {
		e.metrics.RecordPrismBuild(ctx, observe.PrismFailed, time.Since(start))
		return nil, fmt.Errorf("engine: build prism: %w", err)
	}
	e.metrics.RecordPrismBuild(ctx, observe.PrismBuilt, time.Since(start))

	if path != "" {
		if err := p.Save(path); err != nil {
			log.Warn("cannot cache prism", "path", path, "err", err)
		}
	}
	return p, nil
}

func (e *Engine) newSyllabifier(sp config.SpellerConfig) (*syllabifier.Syllabifier, error) {
	opts := []syllabifier.Option{
		syllabifier.WithDelimiters(sp.Delimiter),
		syllabifier.WithCompletion(sp.EnableCompletion),
		syllabifier.WithStrictSpelling(sp.StrictSpelling),
		syllabifier.WithExpandSearchLimit(sp.ExpandSearchLimit),
	}
	if sp.Correction.Enabled {
		c, err := e.registry.CreateCorrector(sp.Correction)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		opts = append(opts,
			syllabifier.WithCorrector(c),
			syllabifier.WithTolerance(sp.Correction.Tolerance),
		)
	}
	return syllabifier.New(opts...), nil
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() *config.Config { return e.cfg }

// Syllabary returns the sorted syllable list. Syllable IDs index into it.
func (e *Engine) Syllabary() algebra.Syllabary { return e.syllabary }

// Script returns the spelling script the prism was built from.
func (e *Engine) Script() *algebra.Script { return e.script }

// Prism returns the compiled prism.
func (e *Engine) Prism() *prism.Prism { return e.prism }

// Syllable returns the syllable for id, or "" when id is out of range.
func (e *Engine) Syllable(id spelling.SyllableID) string {
	if id < 0 || int(id) >= len(e.syllabary) {
		return ""
	}
	return e.syllabary[id]
}

// Segment builds the syllable graph of input after NFC normalisation.
func (e *Engine) Segment(ctx context.Context, input string) *syllabifier.SyllableGraph {
	ctx, span := observe.StartSpan(ctx, "engine.Segment",
		trace.WithAttributes(attribute.Int("syllabify.input.length", len(input))),
	)
	defer span.End()

	e.metrics.InflightSegmentations.Add(ctx, 1)
	defer e.metrics.InflightSegmentations.Add(ctx, -1)

	input = norm.NFC.String(input)
	start := time.Now()
	g, _ := e.syllabifier.BuildSyllableGraph(input, e.prism)
	stats := graphStats(g)
	stats.Duration = time.Since(start)
	e.metrics.RecordGraph(ctx, stats)

	span.SetAttributes(
		attribute.Int("syllabify.graph.vertices", stats.Vertices),
		attribute.Int("syllabify.graph.edges", stats.Edges),
		attribute.Bool("syllabify.graph.complete", stats.Complete),
	)
	if !stats.Complete {
		observe.Logger(ctx).Debug("input only partially segmented",
			"input", input,
			"interpreted_length", g.InterpretedLength,
		)
	}
	return g
}

// SegmentAll segments inputs concurrently. The result at index i belongs to
// inputs[i]. It stops early and returns the context's error when ctx is
// cancelled.
func (e *Engine) SegmentAll(ctx context.Context, inputs []string) ([]*syllabifier.SyllableGraph, error) {
	out := make([]*syllabifier.SyllableGraph, len(inputs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.concurrency)
	for i, in := range inputs {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			out[i] = e.Segment(egCtx, in)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Reconfigure returns an Engine sharing this engine's syllabary, script and
// prism with new speller options. Changing the algebra requires a rebuild
// through [New] or [Engine.Apply].
func (e *Engine) Reconfigure(sp config.SpellerConfig) (*Engine, error) {
	if !slices.Equal(sp.Algebra, e.cfg.Speller.Algebra) {
		return nil, errors.New("engine: algebra changed, prism rebuild required")
	}
	cfg := *e.cfg
	cfg.Speller = sp
	next := *e
	next.cfg = &cfg
	s, err := next.newSyllabifier(sp)
	if err != nil {
		return nil, err
	}
	next.syllabifier = s
	return &next, nil
}

// Apply returns an Engine for cfg, rebuilding the prism only when the diff
// against the current configuration requires it. The syllabary part of the
// diff compares the loaded syllables, so edits inside the syllabary file
// count. When nothing relevant changed the receiver itself is returned.
func (e *Engine) Apply(ctx context.Context, cfg *config.Config) (*Engine, config.ConfigDiff, error) {
	d := config.Diff(e.cfg, cfg)
	syllables, err := cfg.AllSyllables()
	if err != nil {
		return nil, d, fmt.Errorf("engine: %w", err)
	}
	d.SyllablesAdded, d.SyllablesRemoved = config.DiffSyllables(e.syllabary, algebra.NewSyllabary(syllables...))
	d.SyllabaryChanged = len(d.SyllablesAdded) > 0 || len(d.SyllablesRemoved) > 0

	switch {
	case d.RequiresRebuild():
		next, err := New(ctx, cfg,
			WithMetrics(e.metrics),
			WithRegistry(e.registry),
			WithConcurrency(e.concurrency),
		)
		return next, d, err
	case d.SpellerChanged:
		next, err := e.Reconfigure(cfg.Speller)
		if err == nil {
			next.cfg = cfg
		}
		return next, d, err
	case d.Empty():
		return e, d, nil
	default:
		next := *e
		next.cfg = cfg
		return &next, d, nil
	}
}

// graphStats counts the interpretations of g by origin.
func graphStats(g *syllabifier.SyllableGraph) observe.GraphStats {
	s := observe.GraphStats{
		Vertices: len(g.Vertices),
		Complete: g.InterpretedLength == g.InputLength,
	}
	for _, ends := range g.Edges {
		s.Edges += len(ends)
		for _, m := range ends {
			for _, props := range m {
				if props.IsCorrection {
					s.Corrections++
				}
				if props.Type == spelling.Completion {
					s.Completions++
				}
			}
		}
	}
	return s
}

// LogValue lets an Engine be logged as a compact group.
func (e *Engine) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("syllables", len(e.syllabary)),
		slog.Int("spellings", e.prism.Metadata().NumSpellings),
		slog.Int("rules", len(e.cfg.Speller.Algebra)),
	)
}
