// Package pipeline orchestrates a deepwiki run: resolve, scan, catalogue,
// synthesize, postprocess, distill, guard.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/deepwiki/internal/catalogue"
	"git.home.luguber.info/inful/deepwiki/internal/config"
	"git.home.luguber.info/inful/deepwiki/internal/distill"
	"git.home.luguber.info/inful/deepwiki/internal/errors"
	"git.home.luguber.info/inful/deepwiki/internal/eventstore"
	"git.home.luguber.info/inful/deepwiki/internal/generator"
	"git.home.luguber.info/inful/deepwiki/internal/guard"
	"git.home.luguber.info/inful/deepwiki/internal/logfields"
	"git.home.luguber.info/inful/deepwiki/internal/metrics"
	"git.home.luguber.info/inful/deepwiki/internal/postprocess"
	"git.home.luguber.info/inful/deepwiki/internal/repocontext"
	"git.home.luguber.info/inful/deepwiki/internal/scan"
	"git.home.luguber.info/inful/deepwiki/internal/synthesis"
	"git.home.luguber.info/inful/deepwiki/internal/wiki"
)

// State carries mutable state across stages of one run.
type State struct {
	Cfg       *config.Config
	RunID     string
	Repo      *repocontext.Context
	Inventory *scan.Inventory
	Catalogue *catalogue.Catalogue
	// Leaves in catalogue order with their assigned output paths. Sibling
	// order is fixed by the catalogue and preserved verbatim downstream.
	// Paths and Pages are keyed by the qualified leaf path, not the bare
	// slug: leaf slugs repeat across subtrees.
	Leaves []catalogue.QualifiedLeaf
	Paths  map[string]string // qualified leaf path -> output relpath
	Pages  map[string]*wiki.Page
	Report *Report
}

// Pipeline wires the stages to their collaborators. All collaborators are
// injected; the pipeline holds no ambient state.
type Pipeline struct {
	cfg   *config.Config
	gen   generator.Generator
	store eventstore.Store
	rec   metrics.Recorder
}

// New constructs a pipeline. Pass eventstore.Noop and metrics.NoopRecorder
// when persistence or metrics are not configured.
func New(cfg *config.Config, gen generator.Generator, store eventstore.Store, rec metrics.Recorder) *Pipeline {
	return &Pipeline{cfg: cfg, gen: gen, store: store, rec: rec}
}

// Run executes the full pipeline and returns the run report. Per-page
// validation failures are surfaced in the report; only stage-level fatal
// errors abort the run.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	runID := uuid.NewString()
	st := &State{
		Cfg:    p.cfg,
		RunID:  runID,
		Paths:  map[string]string{},
		Pages:  map[string]*wiki.Page{},
		Report: newReport(runID),
	}

	slog.Info("Starting wiki generation", logfields.RunID(runID), logfields.Path(p.cfg.Repository.Path))
	p.appendEvent(ctx, runID, eventstore.TypeRunStarted, nil, nil)
	p.rec.SetSynthesisConcurrency(p.cfg.Synthesis.Parallelism)

	err := runStages(ctx, st, p.rec, []namedStage{
		{"resolve", p.stageResolve},
		{"scan", p.stageScan},
		{"catalogue", p.stageCatalogue},
		{"synthesize", p.stageSynthesize},
		{"write", p.stageWrite},
		{"distill", p.stageDistill},
		{"guard", p.stageGuard},
	})

	st.Report.Duration = time.Since(st.Report.Started)
	p.rec.ObserveRunDuration(st.Report.Duration)
	outcome := "success"
	if err != nil {
		outcome = "failed"
	} else if len(st.Report.Warnings) > 0 || len(st.Report.DefectivePages()) > 0 {
		outcome = "warning"
	}
	p.appendEvent(ctx, runID, eventstore.TypeRunCompleted, nil, map[string]string{"outcome": outcome})
	slog.Info("Run finished", logfields.RunID(runID), "outcome", outcome,
		logfields.DurationMS(float64(st.Report.Duration.Milliseconds())))

	return st.Report, err
}

// RunCatalogue resolves, scans and builds the catalogue, writing only
// catalogue.json. Used by the catalogue subcommand for inspection before a
// full run.
func (p *Pipeline) RunCatalogue(ctx context.Context) (*Report, error) {
	return p.runPartial(ctx, []namedStage{
		{"resolve", p.stageResolve},
		{"scan", p.stageScan},
		{"catalogue", p.stageCatalogue},
		{"write", p.stageWrite},
	})
}

// RunDistill rebuilds llms.txt and llms-full.txt from the pages already on
// disk, without regenerating them.
func (p *Pipeline) RunDistill(ctx context.Context) (*Report, error) {
	return p.runPartial(ctx, []namedStage{
		{"resolve", p.stageResolve},
		{"load", p.stageLoad},
		{"distill", p.stageDistill},
	})
}

// RunGuard writes only the guarded files from the pages already on disk.
func (p *Pipeline) RunGuard(ctx context.Context) (*Report, error) {
	return p.runPartial(ctx, []namedStage{
		{"resolve", p.stageResolve},
		{"load", p.stageLoad},
		{"guard", p.stageGuard},
	})
}

func (p *Pipeline) runPartial(ctx context.Context, stages []namedStage) (*Report, error) {
	runID := uuid.NewString()
	st := &State{
		Cfg:    p.cfg,
		RunID:  runID,
		Paths:  map[string]string{},
		Pages:  map[string]*wiki.Page{},
		Report: newReport(runID),
	}
	err := runStages(ctx, st, p.rec, stages)
	st.Report.Duration = time.Since(st.Report.Started)
	return st.Report, err
}

// stageLoad reads a previously written catalogue and its pages back from the
// output directory, for partial runs that skip synthesis.
func (p *Pipeline) stageLoad(_ context.Context, st *State) error {
	data, err := os.ReadFile(filepath.Join(p.cfg.Output.Dir, "catalogue.json"))
	if err != nil {
		return newFatalStageError("load", fmt.Errorf("read catalogue artifact (run generate first): %w", err))
	}
	cat, err := catalogue.UnmarshalArtifact(data)
	if err != nil {
		return newFatalStageError("load", err)
	}
	st.Catalogue = cat
	st.Leaves = cat.QualifiedLeaves()
	assignPaths(st)

	for _, leaf := range st.Leaves {
		rel, ok := st.Paths[leaf.Path]
		if !ok {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(p.cfg.Output.Dir, filepath.FromSlash(rel)))
		if err != nil {
			continue // missing pages are simply absent from the summary
		}
		fm, body, err := wiki.Parse(raw)
		if err != nil {
			slog.Warn("Skipping unparsable page", logfields.Page(rel), logfields.Error(err))
			continue
		}
		st.Pages[leaf.Path] = &wiki.Page{Slug: leaf.Node.Title, RelPath: rel, Frontmatter: fm, Body: body}
	}
	slog.Info("Loaded existing wiki", "pages", len(st.Pages), "leaves", len(st.Leaves))
	return nil
}

// stageResolve is the required precondition: citation format and branch.
func (p *Pipeline) stageResolve(_ context.Context, st *State) error {
	ov := repocontext.Overrides{
		RemoteURL: p.cfg.Repository.URL,
		Branch:    p.cfg.Repository.Branch,
	}
	if p.cfg.Citations.Format == string(repocontext.FormatLocal) {
		ov.ForceKind = repocontext.FormatLocal
	}
	rc, err := repocontext.Resolve(p.cfg.Repository.Path, ov)
	if err != nil {
		return newFatalStageError("resolve", err)
	}
	st.Repo = rc
	return nil
}

func (p *Pipeline) stageScan(_ context.Context, st *State) error {
	inv, err := scan.Scan(st.Repo.RepoPath)
	if err != nil {
		return newFatalStageError("scan", err)
	}
	slog.Info("Repository scanned", logfields.Files(len(inv.Files)), "relevant", inv.RelevantCount())
	st.Inventory = inv
	return nil
}

func (p *Pipeline) stageCatalogue(_ context.Context, st *State) error {
	cat, err := catalogue.NewBuilder(st.Inventory, st.Repo.Format).Build()
	if err != nil {
		return newFatalStageError("catalogue", err)
	}
	st.Catalogue = cat
	st.Leaves = cat.QualifiedLeaves()
	assignPaths(st)
	slog.Info("Catalogue built", "branches", len(cat.Items), "leaves", len(st.Leaves))
	return nil
}

// assignPaths gives every leaf an output path rooted in its numbered
// top-level branch directory, mirroring catalogue order. The path reuses
// the qualified slug chain, so duplicate leaf slugs in different subtrees
// land in different files.
func assignPaths(st *State) {
	topIndex := map[string]int{}
	for i, top := range st.Catalogue.Items {
		topIndex[top.Title] = i
	}
	for _, leaf := range st.Leaves {
		segs := strings.Split(leaf.Path, "/")
		prefix := fmt.Sprintf("%02d-%s", topIndex[segs[0]]+1, segs[0])
		rest := segs[1:]
		if len(rest) == 0 {
			// A childless top-level branch is its own page.
			rest = []string{segs[0]}
		}
		st.Paths[leaf.Path] = prefix + "/" + strings.Join(rest, "/") + ".md"
	}
}

// stageSynthesize fans out page generation across catalogue leaves with
// bounded parallelism, postprocessing each page as it lands. Leaves are
// mutually independent; results are collected back in catalogue order.
func (p *Pipeline) stageSynthesize(ctx context.Context, st *State) error {
	synth := synthesis.New(p.gen, st.Inventory, st.Repo.Format)

	type outcome struct {
		idx    int
		report PageReport
		page   *wiki.Page
		err    error
	}

	limit := p.cfg.Synthesis.Parallelism
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	results := make([]outcome, len(st.Leaves))
	var wg sync.WaitGroup

	for i, leaf := range st.Leaves {
		wg.Add(1)
		go func(idx int, leaf catalogue.QualifiedLeaf) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			node := leaf.Node
			res, err := synth.Synthesize(ctx, node)
			if err != nil {
				results[idx] = outcome{idx: idx, err: err, report: PageReport{Slug: node.Title}}
				return
			}

			page := res.Page
			page.RelPath = st.Paths[leaf.Path]

			processed, report := postprocess.Process(page.Body)
			page.Body = processed

			pr := PageReport{
				Slug:    node.Title,
				RelPath: page.RelPath,
				Tier:    string(res.Tier),
				Retries: res.Retries,
				Defects: report.Defects,
			}
			for _, w := range res.Warnings {
				pr.Warnings = append(pr.Warnings, w.Error())
			}
			results[idx] = outcome{idx: idx, report: pr, page: page}
		}(i, leaf)
	}
	wg.Wait()

	for _, r := range results {
		if r.err != nil {
			st.Report.Warnings = append(st.Report.Warnings, r.err)
			p.rec.IncPageOutcome("failed")
			slog.Warn("Page synthesis failed", logfields.Node(r.report.Slug), logfields.Error(r.err))
			continue
		}
		st.Pages[st.Leaves[r.idx].Path] = r.page
		st.Report.Pages = append(st.Report.Pages, r.report)

		for i := 0; i < r.report.Retries; i++ {
			p.rec.IncGenerationRetry()
			p.appendEvent(ctx, st.RunID, eventstore.TypeGenerationRetried, nil,
				map[string]string{"node": r.report.Slug})
		}
		payload, _ := json.Marshal(map[string]any{"slug": r.report.Slug, "tier": r.report.Tier})
		p.appendEvent(ctx, st.RunID, eventstore.TypePageSynthesized, payload, nil)

		if r.report.Valid() {
			p.rec.IncPageOutcome("success")
		} else {
			p.rec.IncPageOutcome("defect")
			for _, d := range r.report.Defects {
				if !d.Repaired {
					p.rec.IncValidationFailure(d.Rule)
					st.Report.Warnings = append(st.Report.Warnings,
						errors.FormatDefect(r.report.RelPath, fmt.Sprintf("line %d: %s", d.Line, d.Detail)))
				}
			}
			p.appendEvent(ctx, st.RunID, eventstore.TypePageDefect, nil,
				map[string]string{"node": r.report.Slug})
			slog.Warn("Page has unrepaired defects", logfields.Page(r.report.RelPath),
				"defects", len(r.report.Defects))
		}
	}
	return nil
}

// stageWrite persists the catalogue artifact and all pages. Generated
// artifacts are idempotent overwrites; re-running is always safe.
func (p *Pipeline) stageWrite(_ context.Context, st *State) error {
	outDir := p.cfg.Output.Dir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return newFatalStageError("write", err)
	}

	data, err := st.Catalogue.MarshalArtifact()
	if err != nil {
		return newFatalStageError("write", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "catalogue.json"), data, 0o644); err != nil {
		return newFatalStageError("write", err)
	}

	for _, leaf := range st.Leaves {
		page, ok := st.Pages[leaf.Path]
		if !ok {
			continue
		}
		rendered, err := page.Render()
		if err != nil {
			return newFatalStageError("write", err)
		}
		full := filepath.Join(outDir, filepath.FromSlash(page.RelPath))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return newFatalStageError("write", err)
		}
		if err := os.WriteFile(full, rendered, 0o644); err != nil {
			return newFatalStageError("write", err)
		}
	}
	return nil
}

// stageDistill is a barrier: it reads every finished page and emits the
// summary documents into the output directory.
func (p *Pipeline) stageDistill(_ context.Context, st *State) error {
	doc := distill.New(p.cfg.Site.Title, p.cfg.Site.Summary, st.Pages).Build(st.Catalogue)

	outDir := p.cfg.Output.Dir
	if err := os.WriteFile(filepath.Join(outDir, "llms.txt"), []byte(doc.RenderLinks()), 0o644); err != nil {
		return newFatalStageError("distill", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "llms-full.txt"), []byte(doc.RenderFull()), 0o644); err != nil {
		return newFatalStageError("distill", err)
	}
	return nil
}

// stageGuard writes the guarded files: AGENTS.md/CLAUDE.md and the root
// llms.txt, each under the create-only-if-absent contract.
func (p *Pipeline) stageGuard(ctx context.Context, st *State) error {
	root := st.Repo.RepoPath
	targets := map[string][]byte{}
	if p.cfg.Guards.Agents {
		targets[filepath.Join(root, "AGENTS.md")] = guard.AgentsContent(p.cfg.Site.Title)
	}
	if p.cfg.Guards.Claude {
		targets[filepath.Join(root, "CLAUDE.md")] = guard.AgentsContent(p.cfg.Site.Title)
	}
	doc := distill.New(p.cfg.Site.Title, p.cfg.Site.Summary, st.Pages).Build(st.Catalogue)
	targets[filepath.Join(root, "llms.txt")] = []byte(doc.RenderLinks())

	for _, path := range sortedKeys(targets) {
		res, err := guard.WriteIfAbsent(path, targets[path])
		if err != nil {
			return newWarnStageError("guard", err)
		}
		st.Report.Guards = append(st.Report.Guards, res)
		if res.Outcome == guard.OutcomeSkipped {
			p.appendEvent(ctx, st.RunID, eventstore.TypeGuardSkipped, nil, map[string]string{"path": path})
		}
	}
	return nil
}

func (p *Pipeline) appendEvent(ctx context.Context, runID, eventType string, payload []byte, metadata map[string]string) {
	if err := p.store.Append(ctx, runID, eventType, payload, metadata); err != nil {
		slog.Warn("Failed to append run event", "type", eventType, logfields.Error(err))
	}
}

func sortedKeys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
