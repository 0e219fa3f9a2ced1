// Package generator defines the content-generator boundary.
//
// The generator is an external collaborator treated as a black box with no
// guaranteed determinism; acceptance checks live in the synthesizer and the
// postprocessor, not here.
package generator

import (
	"context"

	"git.home.luguber.info/inful/deepwiki/internal/citation"
)

// Request carries one page-generation instruction across the boundary.
type Request struct {
	Slug     string `json:"slug"`
	Prompt   string `json:"prompt"`
	Format   string `json:"format"` // "local" or "linked"
	Remote   string `json:"remote,omitempty"`
	Branch   string `json:"branch"`
	Tier     string `json:"tier"`
	MinWords int    `json:"min_words"`
	MaxWords int    `json:"max_words"`
	Diagrams int    `json:"diagrams"` // minimum diagram count
	Kinds    int    `json:"kinds"`    // minimum distinct diagram kinds
	// Files the draft may cite, in sampling priority order.
	Files []string `json:"files"`
}

// Draft is the generator's response for one request.
type Draft struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Body        string              `json:"body"`
	Citations   []citation.Citation `json:"citations"`
}

// Generator produces a page draft for a prompt. Implementations must be safe
// for concurrent use; the synthesizer fans out across catalogue leaves.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Draft, error)
}
