// Package rule implements the static, requirement-gated weight tree.
//
// A Forest is walked depth-first once per resolution. A node whose
// requirements fail prunes its whole subtree; a passing node applies its
// local operations in order and then visits its children in order.
package rule

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/lootweight/internal/game/condition"
	"github.com/cory-johannsen/lootweight/internal/game/modifier"
	"github.com/cory-johannsen/lootweight/internal/game/subject"
	"github.com/cory-johannsen/lootweight/internal/game/weight"
)

// Node is one requirement-gated rule. A parent exclusively owns its children.
type Node struct {
	Name         string
	Requirements []condition.Requirement
	Operations   []modifier.Operation
	Children     []*Node
}

// Child returns the direct child named name.
func (n *Node) Child(name string) (*Node, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Validate checks n and its descendants: names are non-empty, sibling names
// are unique, every operation is valid.
func (n *Node) Validate() error {
	return n.validate(n.Name)
}

func (n *Node) validate(path string) error {
	if n.Name == "" {
		return fmt.Errorf("rule: node under %q has no name", path)
	}
	var errs []error
	for i, op := range n.Operations {
		if err := op.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("rule %s: operation %d: %w", path, i, err))
		}
	}
	seen := make(map[string]bool, len(n.Children))
	for _, c := range n.Children {
		if c == nil {
			errs = append(errs, fmt.Errorf("rule %s: nil child", path))
			continue
		}
		if seen[c.Name] {
			errs = append(errs, fmt.Errorf("rule %s: duplicate child %q", path, c.Name))
			continue
		}
		seen[c.Name] = true
		if err := c.validate(path + "." + c.Name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the number of nodes in the subtree rooted at n.
func (n *Node) Size() int {
	total := 1
	for _, c := range n.Children {
		total += c.Size()
	}
	return total
}

// Forest is the ordered list of top-level rule trees.
//
// Invariant: a Forest is never mutated after it is published in a snapshot.
type Forest struct {
	roots []*Node
}

// NewForest returns a Forest over roots, in order. Nil roots are dropped.
func NewForest(roots ...*Node) *Forest {
	f := &Forest{roots: make([]*Node, 0, len(roots))}
	for _, r := range roots {
		if r != nil {
			f.roots = append(f.roots, r)
		}
	}
	return f
}

// Roots returns the top-level nodes in forest order.
func (f *Forest) Roots() []*Node {
	out := make([]*Node, len(f.roots))
	copy(out, f.roots)
	return out
}

// Root returns the top-level node named name.
func (f *Forest) Root(name string) (*Node, bool) {
	for _, r := range f.roots {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Len returns the number of top-level trees.
func (f *Forest) Len() int { return len(f.roots) }

// ResolveStatic evaluates the subtree rooted at n against w for s.
//
// Precondition: w and n must be non-nil.
// Postcondition: nothing under n is touched when n's requirements fail.
func ResolveStatic(w *weight.Map, s subject.Subject, n *Node, groups modifier.Groups) {
	if !condition.AllSatisfied(s, n.Requirements) {
		return
	}
	for _, op := range n.Operations {
		for _, id := range op.Target.IDs(groups) {
			w.Set(id, op.Fn.Apply(s, w.GetOrDefault(id, 0)))
		}
	}
	for _, c := range n.Children {
		ResolveStatic(w, s, c, groups)
	}
}

// Resolve walks every tree of f in order into w. A nil f is a no-op.
func (f *Forest) Resolve(w *weight.Map, s subject.Subject, groups modifier.Groups) {
	if f == nil {
		return
	}
	for _, r := range f.roots {
		ResolveStatic(w, s, r, groups)
	}
}
