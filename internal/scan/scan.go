// Package scan walks a source repository and classifies its files for
// catalogue construction and coverage-tier selection.
package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// File is a discovered, classified repository file.
type File struct {
	Path  string // relative to repo root, forward slashes
	Class Class
}

// Inventory is the scan result consumed by the catalogue builder and the
// page synthesizer.
type Inventory struct {
	Root   string
	Files  []File
	README string // root README text, empty when absent
}

var skipDirs = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	".hg":          {},
	".svn":         {},
	"vendor":       {},
	"venv":         {},
	".venv":        {},
	"dist":         {},
	"target":       {},
	"__pycache__":  {},
	".idea":        {},
	".vscode":      {},
}

// SkippedDir reports whether a directory name is excluded from scanning.
// The watch daemon uses the same exclusions when registering watches.
func SkippedDir(name string) bool {
	if _, skip := skipDirs[name]; skip {
		return true
	}
	return strings.HasPrefix(name, ".")
}

// Scan walks root, honoring .gitignore, skipping dot-directories, vendored
// trees, and symlinks, and returns the classified inventory.
func Scan(root string) (*Inventory, error) {
	gi := loadGitignore(root)

	inv := &Inventory{Root: root}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		cls := Classify(rel)
		if cls == ClassIrrelevant {
			return nil
		}
		inv.Files = append(inv.Files, File{Path: rel, Class: cls})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(inv.Files, func(i, j int) bool { return inv.Files[i].Path < inv.Files[j].Path })
	inv.README = readREADME(root)
	return inv, nil
}

// RelevantCount is the file count driving the small-repo short-circuit and
// coverage tiers: every classified file except pure documentation.
func (inv *Inventory) RelevantCount() int {
	n := 0
	for _, f := range inv.Files {
		if f.Class != ClassDocumentation {
			n++
		}
	}
	return n
}

// ByClass returns paths of the given class in stored (sorted) order.
func (inv *Inventory) ByClass(c Class) []string {
	var out []string
	for _, f := range inv.Files {
		if f.Class == c {
			out = append(out, f.Path)
		}
	}
	return out
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

func readREADME(root string) string {
	for _, name := range []string{"README.md", "README.markdown", "README.txt", "README"} {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err == nil {
			return string(data)
		}
	}
	return ""
}
