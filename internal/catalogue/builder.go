package catalogue

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"git.home.luguber.info/inful/deepwiki/internal/citation"
	"git.home.luguber.info/inful/deepwiki/internal/logfields"
	"git.home.luguber.info/inful/deepwiki/internal/repocontext"
	"git.home.luguber.info/inful/deepwiki/internal/scan"
)

// SmallRepoThreshold is the relevant-file count at or below which the
// catalogue collapses to a single getting-started branch.
const SmallRepoThreshold = 10

// Builder constructs a validated catalogue from a scanned inventory. The
// citation format is injected so every generated prompt carries correctly
// rendered citation seeds.
type Builder struct {
	inv    *scan.Inventory
	format repocontext.CitationFormat
}

// NewBuilder returns a catalogue builder for the inventory.
func NewBuilder(inv *scan.Inventory, format repocontext.CitationFormat) *Builder {
	return &Builder{inv: inv, format: format}
}

// Build produces the catalogue. For repositories with at most
// SmallRepoThreshold relevant files only the getting-started branch is
// emitted, with at most two children and no deep-dive branch. This is a hard
// branch, not a preference.
func (b *Builder) Build() (*Catalogue, error) {
	relevant := b.inv.RelevantCount()

	var cat *Catalogue
	if relevant <= SmallRepoThreshold {
		slog.Info("Small repository short-circuit", logfields.Files(relevant))
		cat = &Catalogue{Items: []*Node{b.buildSmallGettingStarted()}}
	} else {
		cat = &Catalogue{Items: []*Node{
			b.buildGettingStarted(),
			b.buildDeepDive(),
		}}
	}

	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

func (b *Builder) buildSmallGettingStarted() *Node {
	gs := &Node{
		Title:  "getting-started",
		Name:   "Getting Started",
		Prompt: b.prompt("Introduce the project and how to run it", b.seedPaths(3)),
	}
	gs.Children = append(gs.Children, &Node{
		Title:  "overview",
		Name:   "Overview",
		Prompt: b.prompt("Summarize the purpose and shape of this repository", b.seedPaths(3)),
	})
	if cfg := b.inv.ByClass(scan.ClassConfiguration); len(cfg) > 0 {
		gs.Children = append(gs.Children, &Node{
			Title:  "setup",
			Name:   "Setup",
			Prompt: b.prompt("Describe installation and configuration", firstN(cfg, 3)),
		})
	}
	return gs
}

func (b *Builder) buildGettingStarted() *Node {
	gs := &Node{
		Title:  "getting-started",
		Name:   "Getting Started",
		Prompt: b.prompt("Introduce the project and how to use it", b.seedPaths(3)),
	}
	gs.Children = append(gs.Children, &Node{
		Title:  "overview",
		Name:   "Overview",
		Prompt: b.prompt("Summarize the purpose of the project and its major capabilities", b.seedPaths(3)),
	})
	if entries := b.inv.ByClass(scan.ClassEntryPoint); len(entries) > 0 {
		gs.Children = append(gs.Children, &Node{
			Title:  "installation",
			Name:   "Installation",
			Prompt: b.prompt("Describe how to build, install and launch the project", firstN(entries, 3)),
		})
	}
	if cfg := b.inv.ByClass(scan.ClassConfiguration); len(cfg) > 0 {
		gs.Children = append(gs.Children, &Node{
			Title:  "configuration",
			Name:   "Configuration",
			Prompt: b.prompt("Document the configuration surface and defaults", firstN(cfg, 3)),
		})
	}
	return gs
}

func (b *Builder) buildDeepDive() *Node {
	arch := &Node{
		Title:  "architecture",
		Name:   "Architecture",
		Prompt: b.prompt("Explain the overall architecture, its layers and their responsibilities", b.archSeeds()),
	}

	for _, sub := range b.subsystems() {
		arch.Children = append(arch.Children, sub)
	}

	return &Node{
		Title:    "deep-dive",
		Name:     "Deep Dive",
		Prompt:   b.prompt("Provide an in-depth technical walkthrough of the system", b.archSeeds()),
		Children: []*Node{arch},
	}
}

// candidate is a provisional section with its supporting files, used for
// fan-out enforcement.
type candidate struct {
	name  string
	files []string
}

// subsystems groups relevant source files by their leading path segments and
// turns each group into a subsystem node with component children. Fan-out is
// enforced by merging the least-supported candidates first.
func (b *Builder) subsystems() []*Node {
	groups := map[string][]string{}
	for _, f := range b.inv.Files {
		switch f.Class {
		case scan.ClassDocumentation, scan.ClassIrrelevant:
			continue
		}
		groups[subsystemKey(f.Path)] = append(groups[subsystemKey(f.Path)], f.Path)
	}

	cands := make([]candidate, 0, len(groups))
	for name, files := range groups {
		cands = append(cands, candidate{name: name, files: files})
	}
	cands = enforceFanout(cands, MaxFanout)

	nodes := make([]*Node, 0, len(cands))
	for _, c := range cands {
		sub := &Node{
			Title:  Slugify(c.name),
			Name:   displayName(c.name),
			Prompt: b.prompt(fmt.Sprintf("Describe the %s subsystem, its role and key interfaces", c.name), firstN(c.files, 3)),
		}
		for _, comp := range b.components(c) {
			sub.Children = append(sub.Children, comp)
		}
		nodes = append(nodes, sub)
	}
	return nodes
}

// components splits a subsystem's files by their next path segment. Component
// nodes are leaves; key-interface coverage is part of their prompt.
func (b *Builder) components(sub candidate) []*Node {
	groups := map[string][]string{}
	for _, p := range sub.files {
		groups[componentKey(sub.name, p)] = append(groups[componentKey(sub.name, p)], p)
	}
	if len(groups) < 2 {
		return nil // single component collapses into the subsystem page
	}

	cands := make([]candidate, 0, len(groups))
	for name, files := range groups {
		cands = append(cands, candidate{name: name, files: files})
	}
	cands = enforceFanout(cands, MaxFanout)

	nodes := make([]*Node, 0, len(cands))
	for _, c := range cands {
		nodes = append(nodes, &Node{
			Title:  Slugify(c.name),
			Name:   displayName(c.name),
			Prompt: b.prompt(fmt.Sprintf("Document the %s component: responsibilities, key interfaces and collaborators", c.name), firstN(c.files, 3)),
		})
	}
	return nodes
}

// enforceFanout keeps the best-supported candidates and merges the remainder
// into a single combined section. Candidates with fewer supporting files are
// merged first; ties break on name for determinism.
func enforceFanout(cands []candidate, limit int) []candidate {
	sort.Slice(cands, func(i, j int) bool {
		if len(cands[i].files) != len(cands[j].files) {
			return len(cands[i].files) > len(cands[j].files)
		}
		return cands[i].name < cands[j].name
	})
	if len(cands) <= limit {
		// Restore deterministic name order for presentation.
		sort.Slice(cands, func(i, j int) bool { return cands[i].name < cands[j].name })
		return cands
	}

	keep := cands[:limit-1]
	merged := candidate{name: "other"}
	for _, c := range cands[limit-1:] {
		merged.files = append(merged.files, c.files...)
	}
	sort.Strings(merged.files)
	out := append(append([]candidate{}, keep...), merged)
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// prompt renders an instruction with citation seeds in the resolved format.
// Every prompt carries at least one citation; when no seed files exist the
// README (or the first inventory file) anchors the prompt.
func (b *Builder) prompt(instruction string, seeds []string) string {
	if len(seeds) == 0 {
		seeds = b.seedPaths(1)
	}
	rendered := make([]string, 0, len(seeds))
	for _, p := range seeds {
		rendered = append(rendered, b.format.Render(citation.Exact(p, 1)))
	}
	return fmt.Sprintf("%s. Ground every claim in the source; start from: %s.",
		instruction, strings.Join(rendered, ", "))
}

// seedPaths picks up to n representative files: entry points first, then
// architecture signals, then anything relevant.
func (b *Builder) seedPaths(n int) []string {
	var out []string
	for _, cls := range []scan.Class{scan.ClassEntryPoint, scan.ClassArchitecture, scan.ClassDomainModel, scan.ClassSource, scan.ClassConfiguration, scan.ClassIntegrationEdge, scan.ClassDataAccess} {
		for _, p := range b.inv.ByClass(cls) {
			out = append(out, p)
			if len(out) == n {
				return out
			}
		}
	}
	if len(out) == 0 && len(b.inv.Files) > 0 {
		out = append(out, b.inv.Files[0].Path)
	}
	return out
}

func (b *Builder) archSeeds() []string {
	if arch := b.inv.ByClass(scan.ClassArchitecture); len(arch) > 0 {
		return firstN(arch, 3)
	}
	return b.seedPaths(3)
}

func subsystemKey(p string) string {
	parts := strings.Split(p, "/")
	if len(parts) == 1 {
		return "root"
	}
	// Container directories are structural, not subsystems of their own.
	if len(parts) > 2 && (parts[0] == "internal" || parts[0] == "pkg" || parts[0] == "src" || parts[0] == "lib" || parts[0] == "app") {
		return parts[1]
	}
	return parts[0]
}

func componentKey(subsystem, p string) string {
	parts := strings.Split(p, "/")
	for i, seg := range parts[:len(parts)-1] {
		if seg == subsystem && i+1 < len(parts)-1 {
			return parts[i+1]
		}
	}
	return "core"
}

func displayName(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func firstN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
