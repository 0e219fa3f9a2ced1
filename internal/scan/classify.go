package scan

import (
	"path"
	"strings"
)

// Class buckets files by their role in the repository. The buckets double as
// the sampling priority order for large nodes: entry points first, then
// domain models, data access, and integration edges.
type Class string

const (
	ClassEntryPoint      Class = "entry_point"
	ClassDomainModel     Class = "domain_model"
	ClassDataAccess      Class = "data_access"
	ClassIntegrationEdge Class = "integration_edge"
	ClassConfiguration   Class = "configuration"
	ClassDocumentation   Class = "documentation"
	ClassArchitecture    Class = "architecture" // architecture signals: build layout, module wiring
	ClassSource          Class = "source"       // ordinary source files
	ClassIrrelevant      Class = "irrelevant"
)

var sourceExts = map[string]struct{}{
	".go": {}, ".py": {}, ".rb": {}, ".rs": {}, ".java": {}, ".kt": {},
	".ts": {}, ".tsx": {}, ".js": {}, ".jsx": {}, ".c": {}, ".h": {},
	".cpp": {}, ".hpp": {}, ".cs": {}, ".php": {}, ".scala": {}, ".ex": {},
	".exs": {}, ".swift": {},
}

var configNames = map[string]struct{}{
	"go.mod": {}, "go.sum": {}, "package.json": {}, "cargo.toml": {},
	"pyproject.toml": {}, "setup.py": {}, "pom.xml": {}, "build.gradle": {},
	"makefile": {}, "dockerfile": {}, "docker-compose.yml": {},
	"docker-compose.yaml": {}, ".env.example": {},
}

var entryNames = map[string]struct{}{
	"main.go": {}, "main.py": {}, "main.rs": {}, "main.ts": {}, "main.js": {},
	"index.ts": {}, "index.js": {}, "app.py": {}, "server.go": {}, "cli.py": {},
	"manage.py": {}, "program.cs": {},
}

// Classify maps a repo-relative path to its Class using path and extension
// heuristics. Syntax-level analysis is deliberately out of scope.
func Classify(rel string) Class {
	base := strings.ToLower(path.Base(rel))
	ext := strings.ToLower(path.Ext(rel))
	dir := strings.ToLower(path.Dir(rel))

	if _, ok := configNames[base]; ok {
		return ClassConfiguration
	}
	switch ext {
	case ".yaml", ".yml", ".toml", ".ini", ".conf":
		return ClassConfiguration
	case ".md", ".markdown", ".rst", ".adoc", ".txt":
		if base == "architecture.md" || base == "design.md" {
			return ClassArchitecture
		}
		return ClassDocumentation
	}

	if _, ok := sourceExts[ext]; !ok {
		return ClassIrrelevant
	}

	if _, ok := entryNames[base]; ok {
		return ClassEntryPoint
	}
	if strings.HasPrefix(rel, "cmd/") || strings.Contains(dir, "/cmd/") {
		return ClassEntryPoint
	}

	for _, seg := range []string{"model", "models", "domain", "entity", "entities", "types", "schema"} {
		if hasDirSegment(dir, seg) {
			return ClassDomainModel
		}
	}
	for _, seg := range []string{"store", "storage", "repository", "repositories", "db", "dao", "persistence", "migrations", "sql"} {
		if hasDirSegment(dir, seg) {
			return ClassDataAccess
		}
	}
	for _, seg := range []string{"api", "handlers", "handler", "transport", "client", "clients", "rpc", "grpc", "http", "webhook", "queue", "events"} {
		if hasDirSegment(dir, seg) {
			return ClassIntegrationEdge
		}
	}

	return ClassSource
}

func hasDirSegment(dir, seg string) bool {
	if dir == "." {
		return false
	}
	for _, part := range strings.Split(dir, "/") {
		if part == seg {
			return true
		}
	}
	return false
}
