// Package synthesis turns catalogue leaves into draft pages via the external
// content generator, enforcing per-tier budgets as acceptance criteria.
package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/deepwiki/internal/catalogue"
	"git.home.luguber.info/inful/deepwiki/internal/citation"
	"git.home.luguber.info/inful/deepwiki/internal/errors"
	"git.home.luguber.info/inful/deepwiki/internal/generator"
	"git.home.luguber.info/inful/deepwiki/internal/logfields"
	"git.home.luguber.info/inful/deepwiki/internal/postprocess"
	"git.home.luguber.info/inful/deepwiki/internal/repocontext"
	"git.home.luguber.info/inful/deepwiki/internal/scan"
	"git.home.luguber.info/inful/deepwiki/internal/wiki"
)

// Result is one synthesized page plus non-fatal acceptance warnings.
type Result struct {
	Page     *wiki.Page
	Tier     Tier
	Warnings []error
	Retries  int
}

// Synthesizer produces pages for catalogue leaves. Safe for concurrent use
// across distinct nodes: it holds no mutable state.
type Synthesizer struct {
	gen    generator.Generator
	inv    *scan.Inventory
	format repocontext.CitationFormat
}

// New returns a synthesizer bound to a generator, inventory and citation
// format.
func New(gen generator.Generator, inv *scan.Inventory, format repocontext.CitationFormat) *Synthesizer {
	return &Synthesizer{gen: gen, inv: inv, format: format}
}

// Synthesize produces the page for one leaf node.
//
// The draft is validated against the tier budget and the distinct-file
// citation floor. A violating draft is re-requested exactly once; after
// that, the citation floor is relaxed to the node's relevant-file count for
// genuinely small nodes, and any remaining violations are returned as
// warnings on the result rather than failing the run.
func (s *Synthesizer) Synthesize(ctx context.Context, node *catalogue.Node) (*Result, error) {
	files := s.relevantFiles(node)
	tier := TierFor(len(files))
	budget := BudgetFor(tier)

	req := generator.Request{
		Slug:     node.Title,
		Prompt:   node.Prompt,
		Format:   string(s.format.Kind),
		Remote:   s.format.Remote,
		Branch:   s.format.Branch,
		Tier:     string(tier),
		MinWords: budget.MinWords,
		MaxWords: budget.MaxWords,
		Diagrams: budget.MinDiagrams,
		Kinds:    budget.MinKinds,
		Files:    sample(files, tier),
	}

	floor := CitationFloor
	if len(files) < floor {
		// Relaxation target for genuinely small nodes; the first pass still
		// asks for the full floor.
		floor = len(files)
	}

	draft, err := s.gen.Generate(ctx, req)
	if err != nil {
		return nil, errors.GeneratorFailed(node.Title, err)
	}

	retries := 0
	violations := checkDraft(draft, budget, CitationFloor)
	missing := missingSourceLines(draft.Body)
	if len(violations) > 0 || len(missing) > 0 {
		slog.Warn("Draft failed acceptance, re-requesting",
			logfields.Node(node.Title), "violations", strings.Join(violations, "; "),
			"diagrams_without_sources", len(missing))
		retries++
		draft, err = s.gen.Generate(ctx, req)
		if err != nil {
			return nil, errors.GeneratorFailed(node.Title, err)
		}
		violations = checkDraft(draft, budget, floor)
		missing = missingSourceLines(draft.Body)
	}

	result := &Result{Tier: tier, Retries: retries}
	for _, v := range violations {
		result.Warnings = append(result.Warnings, errors.BudgetViolation(node.Title, v))
	}
	for _, line := range missing {
		result.Warnings = append(result.Warnings, errors.MissingSources(node.Title, line))
	}

	fm := wiki.Frontmatter{Title: draft.Title, Description: draft.Description}
	if fm.Title == "" {
		fm.Title = node.Name
	}
	if fm.Description == "" {
		fm.Description = fmt.Sprintf("Documentation for %s.", node.Name)
	}

	result.Page = &wiki.Page{
		Slug:        node.Title,
		Frontmatter: fm,
		Body:        draft.Body,
		Citations:   draft.Citations,
	}
	return result, nil
}

// relevantFiles selects the inventory files for a node. A node whose slug
// matches a path segment scopes to those files; top-level nodes see the
// whole relevant inventory.
func (s *Synthesizer) relevantFiles(node *catalogue.Node) []string {
	var scoped []string
	for _, f := range s.inv.Files {
		if f.Class == scan.ClassDocumentation || f.Class == scan.ClassIrrelevant {
			continue
		}
		for _, seg := range strings.Split(f.Path, "/") {
			if catalogue.Slugify(seg) == node.Title {
				scoped = append(scoped, f.Path)
				break
			}
		}
	}
	if len(scoped) > 0 {
		return scoped
	}

	all := make([]string, 0, len(s.inv.Files))
	for _, f := range s.inv.Files {
		if f.Class == scan.ClassDocumentation || f.Class == scan.ClassIrrelevant {
			continue
		}
		all = append(all, f.Path)
	}
	return all
}

// sample restricts large-tier file lists to the priority buckets, capped
// deterministically.
func sample(files []string, tier Tier) []string {
	if tier != TierLarge || len(files) <= sampleCap {
		return files
	}
	priority := []scan.Class{
		scan.ClassEntryPoint,
		scan.ClassDomainModel,
		scan.ClassDataAccess,
		scan.ClassIntegrationEdge,
	}
	var out []string
	for _, cls := range priority {
		for _, p := range files {
			if scan.Classify(p) == cls {
				out = append(out, p)
				if len(out) == sampleCap {
					return out
				}
			}
		}
	}
	// Fill remaining capacity with the rest in path order.
	for _, p := range files {
		if len(out) == sampleCap {
			break
		}
		if cls := scan.Classify(p); cls != scan.ClassEntryPoint && cls != scan.ClassDomainModel &&
			cls != scan.ClassDataAccess && cls != scan.ClassIntegrationEdge {
			out = append(out, p)
		}
	}
	return out
}

// checkDraft validates a draft against the budget and citation floor,
// returning human-readable violations.
func checkDraft(d *generator.Draft, b Budget, citationFloor int) []string {
	var out []string

	if n := len(strings.Fields(d.Body)); n < b.MinWords {
		out = append(out, fmt.Sprintf("word count %d below floor %d", n, b.MinWords))
	}
	count, kinds := countDiagrams(d.Body)
	if count < b.MinDiagrams {
		out = append(out, fmt.Sprintf("diagram count %d below floor %d", count, b.MinDiagrams))
	}
	if kinds < b.MinKinds {
		out = append(out, fmt.Sprintf("diagram kinds %d below floor %d", kinds, b.MinKinds))
	}
	if n := citation.DistinctFiles(d.Citations); n < citationFloor {
		out = append(out, fmt.Sprintf("distinct cited files %d below floor %d", n, citationFloor))
	}
	return out
}

// missingSourceLines reports the lines of diagram blocks lacking a trailing
// sources annotation, using the same detection postprocessing applies.
func missingSourceLines(body string) []int {
	var out []int
	_, rep := postprocess.Process(body)
	for _, d := range rep.Defects {
		if d.Rule == "missing-sources" {
			out = append(out, d.Line)
		}
	}
	return out
}

// countDiagrams counts mermaid fences and distinct diagram kinds (keyed by
// the first word of the diagram body).
func countDiagrams(body string) (count, kinds int) {
	lines := strings.Split(body, "\n")
	seen := map[string]struct{}{}
	inDiagram := false
	expectKind := false
	for _, line := range lines {
		t := strings.TrimSpace(line)
		switch {
		case !inDiagram && (strings.HasPrefix(t, "```mermaid") || strings.HasPrefix(t, "~~~mermaid")):
			inDiagram = true
			expectKind = true
			count++
		case inDiagram && (t == "```" || t == "~~~"):
			inDiagram = false
		case inDiagram && expectKind && t != "":
			if f := strings.Fields(t); len(f) > 0 {
				seen[f[0]] = struct{}{}
			}
			expectKind = false
		}
	}
	return count, len(seen)
}
