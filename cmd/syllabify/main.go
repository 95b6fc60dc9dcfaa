// Command syllabify segments strings into known syllables.
//
// Inputs given as arguments are segmented concurrently; without arguments,
// stdin is segmented line by line. With -listen the engine is served over
// HTTP instead.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/MrWong99/syllabify/internal/config"
	"github.com/MrWong99/syllabify/internal/engine"
	"github.com/MrWong99/syllabify/internal/observe"
	"github.com/MrWong99/syllabify/internal/server"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	flags := flag.NewFlagSet("syllabify", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "syllabify.yaml", "path to the YAML configuration file")
	dumpScript := flags.Bool("dump-script", false, "print the expanded spelling script and exit")
	watch := flags.Bool("watch", false, "reload the configuration and syllabary when they change")
	listen := flags.String("listen", "", "serve HTTP on this address instead of segmenting inputs")
	format := flags.String("format", "text", "output format: text or json")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *format != "text" && *format != "json" {
		fmt.Fprintf(stderr, "syllabify: unknown -format %q (want text or json)\n", *format)
		return 2
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(stderr, "syllabify: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(stderr, "syllabify: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	var level slog.LevelVar
	level.Set(slogLevel(cfg.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: &level})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Engine ────────────────────────────────────────────────────────────────
	e, err := engine.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to build engine", "err", err)
		return 1
	}
	slog.Debug("engine built", "engine", e)

	if *dumpScript {
		if err := e.Script().Dump(stdout); err != nil {
			slog.Error("failed to dump script", "err", err)
			return 1
		}
		return 0
	}

	var current atomic.Pointer[engine.Engine]
	current.Store(e)
	var srv *server.Server
	if *listen != "" {
		srv = server.New(e)
	}

	// ── Hot reload ────────────────────────────────────────────────────────────
	if *watch {
		w, err := config.NewWatcher(*configPath, func(_, next *config.Config) {
			ne, d, err := current.Load().Apply(ctx, next)
			if err != nil {
				slog.Error("reload failed, keeping previous engine", "err", err)
				return
			}
			if d.LogLevelChanged {
				level.Set(slogLevel(d.NewLogLevel))
			}
			current.Store(ne)
			if srv != nil {
				srv.SetEngine(ne)
			}
			slog.Info("engine reloaded",
				"rebuilt", d.RequiresRebuild(),
				"syllables_added", len(d.SyllablesAdded),
				"syllables_removed", len(d.SyllablesRemoved),
			)
		})
		if err != nil {
			slog.Error("failed to watch config", "err", err)
			return 1
		}
		defer w.Stop()
	}

	if srv != nil {
		return serve(ctx, *listen, srv)
	}

	out := bufio.NewWriter(stdout)
	defer out.Flush()

	if args := flags.Args(); len(args) > 0 {
		graphs, err := current.Load().SegmentAll(ctx, args)
		if err != nil {
			slog.Error("segmentation aborted", "err", err)
			return 1
		}
		for i, g := range graphs {
			if err := write(out, *format, current.Load().Summarize(args[i], g)); err != nil {
				slog.Error("write failed", "err", err)
				return 1
			}
		}
		return 0
	}

	if err := segmentLines(ctx, stdin, out, *format, &current); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("segmentation failed", "err", err)
		return 1
	}
	return 0
}

// ── Modes ─────────────────────────────────────────────────────────────────────

// serve runs the HTTP server until ctx is cancelled.
func serve(ctx context.Context, addr string, srv *server.Server) int {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	slog.Info("syllabify serving", "addr", addr, "version", version)

	select {
	case err := <-errCh:
		slog.Error("http server error", "err", err)
		return 1
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received, stopping…")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// segmentLines segments each non-empty line of r with the engine current at
// the time the line is read, flushing after every result.
func segmentLines(ctx context.Context, r io.Reader, w *bufio.Writer, format string, current *atomic.Pointer[engine.Engine]) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		e := current.Load()
		if err := write(w, format, e.Summarize(line, e.Segment(ctx, line))); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return sc.Err()
}

func write(w io.Writer, format string, s engine.Segmentation) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(s)
	}
	return s.WriteText(w)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
