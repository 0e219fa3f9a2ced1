// Package catalogue models and builds the hierarchical table of contents
// that drives page generation.
package catalogue

import (
	"encoding/json"
	"regexp"

	"git.home.luguber.info/inful/deepwiki/internal/errors"
)

// Bounds on the catalogue tree shape.
const (
	MaxDepth  = 4
	MaxFanout = 8
)

// Node is one catalogue entry. Children are exclusively owned by their
// parent: the catalogue is a strict tree with no sharing and no cycles.
type Node struct {
	Title    string  `json:"title"` // slug
	Name     string  `json:"name"`  // display label
	Prompt   string  `json:"prompt"`
	Children []*Node `json:"children"`
}

// Catalogue is the root ordered list of top-level nodes. Built once per run,
// read-only thereafter.
type Catalogue struct {
	Items []*Node `json:"items"`
}

// IsLeaf reports whether the node has no children and therefore gets a page.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Walk visits every node depth-first in stored sibling order.
func (c *Catalogue) Walk(fn func(n *Node, depth int)) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		fn(n, depth)
		for _, ch := range n.Children {
			visit(ch, depth+1)
		}
	}
	for _, n := range c.Items {
		visit(n, 1)
	}
}

// Leaves returns all leaf nodes in stored order.
func (c *Catalogue) Leaves() []*Node {
	var out []*Node
	c.Walk(func(n *Node, _ int) {
		if n.IsLeaf() {
			out = append(out, n)
		}
	})
	return out
}

// QualifiedLeaf pairs a leaf with its slash-joined slug path from the root.
// Leaf slugs may repeat across subtrees (two subsystems can both hold a
// "core" component); the qualified path is unique because sibling slugs
// never collide.
type QualifiedLeaf struct {
	Node *Node
	Path string
}

// QualifiedLeaves returns all leaves in stored order with their qualified
// slug paths.
func (c *Catalogue) QualifiedLeaves() []QualifiedLeaf {
	var out []QualifiedLeaf
	var visit func(n *Node, prefix string)
	visit = func(n *Node, prefix string) {
		path := n.Title
		if prefix != "" {
			path = prefix + "/" + n.Title
		}
		if n.IsLeaf() {
			out = append(out, QualifiedLeaf{Node: n, Path: path})
			return
		}
		for _, ch := range n.Children {
			visit(ch, path)
		}
	}
	for _, n := range c.Items {
		visit(n, "")
	}
	return out
}

// citationRef matches a path:line, path:start-end or path:~Symbol reference
// inside prompt text.
var citationRef = regexp.MustCompile(`[\w./-]+\.\w+:(~\w+|\d+(-\d+)?)`)

// Validate enforces the structural invariants: depth ≤4, fan-out ≤8 per
// node, and a non-empty prompt containing at least one citation on every
// node.
func (c *Catalogue) Validate() error {
	var walk func(n *Node, depth int) error
	walk = func(n *Node, depth int) error {
		if depth > MaxDepth {
			return errors.ValidationFailed(n.Title, "catalogue depth exceeds maximum")
		}
		if len(n.Children) > MaxFanout {
			return errors.ValidationFailed(n.Title, "catalogue fan-out exceeds maximum")
		}
		if n.Prompt == "" {
			return errors.ValidationFailed(n.Title, "node prompt is empty")
		}
		if !citationRef.MatchString(n.Prompt) {
			return errors.ValidationFailed(n.Title, "node prompt carries no citation")
		}
		for _, ch := range n.Children {
			if err := walk(ch, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, n := range c.Items {
		if err := walk(n, 1); err != nil {
			return err
		}
	}
	return nil
}

// MarshalArtifact serializes the catalogue to its JSON artifact form:
// nested {title, name, prompt, children} objects under a root items array.
// Children arrays are emitted even when empty.
func (c *Catalogue) MarshalArtifact() ([]byte, error) {
	c.Walk(func(n *Node, _ int) {
		if n.Children == nil {
			n.Children = []*Node{}
		}
	})
	return json.MarshalIndent(c, "", "  ")
}

// UnmarshalArtifact parses a serialized catalogue artifact.
func UnmarshalArtifact(data []byte) (*Catalogue, error) {
	var c Catalogue
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, errors.SeverityFatal, "parse catalogue artifact")
	}
	return &c, nil
}
