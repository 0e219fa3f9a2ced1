package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/deepwiki/internal/config"
	"git.home.luguber.info/inful/deepwiki/internal/daemon"
	"git.home.luguber.info/inful/deepwiki/internal/eventstore"
	"git.home.luguber.info/inful/deepwiki/internal/generator"
	"git.home.luguber.info/inful/deepwiki/internal/logfields"
	"git.home.luguber.info/inful/deepwiki/internal/metrics"
	"git.home.luguber.info/inful/deepwiki/internal/pipeline"
	"git.home.luguber.info/inful/deepwiki/internal/version"
)

var CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"deepwiki.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `help:"Print version and exit"`

	Generate struct {
		DryRun bool `help:"Use the in-process stub generator instead of the configured transport"`
	} `cmd:"" help:"Generate the wiki for the configured repository"`

	Catalogue struct {
	} `cmd:"" help:"Build and write only the catalogue, for inspection"`

	Distill struct {
	} `cmd:"" help:"Rebuild llms.txt and llms-full.txt from existing pages"`

	Guard struct {
	} `cmd:"" help:"Write guarded files (AGENTS.md, CLAUDE.md, root llms.txt) if absent"`

	Events struct {
		RunID string `arg:"" help:"Run identifier to inspect"`
	} `cmd:"" help:"List recorded events for a previous run"`

	Watch struct {
		MetricsAddr string `help:"Expose Prometheus metrics on this address (e.g. :9090)"`
	} `cmd:"" help:"Watch the repository and regenerate on changes"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`
}

func main() {
	ctx := kong.Parse(&CLI, kong.Vars{"version": version.Version})

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	switch ctx.Command() {
	case "generate":
		switch err := runGenerate(CLI.Generate.DryRun); {
		case errors.Is(err, errPageDefects):
			os.Exit(2)
		case err != nil:
			slog.Error("Generation failed", logfields.Error(err))
			os.Exit(1)
		}
	case "catalogue":
		if err := runPartial(func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
			return p.RunCatalogue(ctx)
		}); err != nil {
			slog.Error("Catalogue build failed", logfields.Error(err))
			os.Exit(1)
		}
	case "distill":
		if err := runPartial(func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
			return p.RunDistill(ctx)
		}); err != nil {
			slog.Error("Distillation failed", logfields.Error(err))
			os.Exit(1)
		}
	case "guard":
		if err := runPartial(func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
			return p.RunGuard(ctx)
		}); err != nil {
			slog.Error("Guard writes failed", logfields.Error(err))
			os.Exit(1)
		}
	case "events <run-id>":
		if err := runEvents(CLI.Events.RunID); err != nil {
			slog.Error("Event listing failed", logfields.Error(err))
			os.Exit(1)
		}
	case "watch":
		if err := runWatch(CLI.Watch.MetricsAddr); err != nil {
			slog.Error("Watch mode failed", logfields.Error(err))
			os.Exit(1)
		}
	case "init":
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", logfields.Error(err))
			os.Exit(1)
		}
		slog.Info("Configuration written", logfields.Path(CLI.Config))
	}
}

func runGenerate(dryRun bool) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	if dryRun {
		cfg.Generator.Type = "stub"
	}

	p, cleanup, err := buildPipeline(cfg, metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := p.Run(ctx)
	if err != nil {
		return err
	}
	printReport(report)
	if len(report.DefectivePages()) > 0 {
		return errPageDefects
	}
	return nil
}

// errPageDefects signals a completed run whose pages failed validation; the
// process exits 2 so scripts can tell defects from hard failures.
var errPageDefects = errors.New("run completed with page defects")

// runPartial executes one partial pipeline run (catalogue, distill or guard).
// These stages never call the generator, so no transport is opened.
func runPartial(run func(context.Context, *pipeline.Pipeline) (*pipeline.Report, error)) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	p := pipeline.New(cfg, generator.Stub{}, eventstore.Noop{}, metrics.NoopRecorder{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := run(ctx, p)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

// runEvents prints the persisted events of one run in append order.
func runEvents(runID string) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	if cfg.Output.EventsDB == "" {
		return errors.New("no event store configured; set output.events_db")
	}

	store, err := eventstore.NewSQLiteStore(cfg.Output.EventsDB)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close event store", logfields.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, err := store.GetByRunID(ctx, runID)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Printf("no events recorded for run %s\n", runID)
		return nil
	}
	for _, e := range events {
		fmt.Printf("%s  %-22s", e.Timestamp.Format(time.RFC3339), e.Type)
		for _, k := range sortedMetaKeys(e.Metadata) {
			fmt.Printf(" %s=%s", k, e.Metadata[k])
		}
		if len(e.Payload) > 0 {
			fmt.Printf(" %s", e.Payload)
		}
		fmt.Println()
	}
	return nil
}

func sortedMetaKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runWatch(metricsAddr string) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	var rec metrics.Recorder = metrics.NoopRecorder{}
	if metricsAddr != "" {
		reg := prom.NewRegistry()
		rec = metrics.NewPrometheusRecorder(reg)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			slog.Info("Serving metrics", "addr", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				slog.Error("Metrics server failed", logfields.Error(err))
			}
		}()
	}

	p, cleanup, err := buildPipeline(cfg, rec)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return daemon.New(cfg, p).Run(ctx)
}

// buildPipeline wires generator, event store and recorder per the config.
// The returned cleanup closes whatever was opened.
func buildPipeline(cfg *config.Config, rec metrics.Recorder) (*pipeline.Pipeline, func(), error) {
	var gen generator.Generator
	var closers []func()

	switch cfg.Generator.Type {
	case "stub":
		gen = generator.Stub{}
	default:
		ng, err := generator.NewNATSGenerator(cfg.Generator.NATS)
		if err != nil {
			return nil, nil, err
		}
		gen = ng
		closers = append(closers, ng.Close)
	}

	var store eventstore.Store = eventstore.Noop{}
	if cfg.Output.EventsDB != "" {
		s, err := eventstore.NewSQLiteStore(cfg.Output.EventsDB)
		if err != nil {
			return nil, nil, err
		}
		store = s
		closers = append(closers, func() {
			if err := s.Close(); err != nil {
				slog.Warn("Failed to close event store", logfields.Error(err))
			}
		})
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return pipeline.New(cfg, gen, store, rec), cleanup, nil
}

func printReport(r *pipeline.Report) {
	fmt.Printf("Run %s finished in %s: %d pages\n", r.RunID, r.Duration.Round(time.Millisecond), len(r.Pages))
	for _, pr := range r.Pages {
		status := "ok"
		if !pr.Valid() {
			status = "defects"
		}
		fmt.Printf("  %-50s %-8s tier=%s retries=%d\n", pr.RelPath, status, pr.Tier, pr.Retries)
		for _, d := range pr.Defects {
			if !d.Repaired {
				fmt.Printf("    line %d: %s (%s)\n", d.Line, d.Rule, d.Detail)
			}
		}
	}
	for _, g := range r.Guards {
		fmt.Printf("  guard %-43s %s\n", g.Path, g.Outcome)
	}
	for _, w := range r.Warnings {
		fmt.Printf("  warning: %v\n", w)
	}
}
