// Package subject defines the runtime context that requirements, formulas,
// and weight modifiers are evaluated against.
package subject

import "sort"

// Subject is the read-only view of whoever a draw is being resolved for.
//
// Implementations MUST be safe for concurrent reads.
type Subject interface {
	// ID returns a stable identifier for the subject.
	ID() string
	// HasTag reports whether the subject carries the named tag
	// (e.g. "rain", "night", "rod:bamboo").
	HasTag(tag string) bool
	// Stat returns a numeric attribute and whether it is present.
	Stat(name string) (float64, bool)
	// Var returns a string attribute and whether it is present.
	Var(name string) (string, bool)
}

// Context is an immutable Subject backed by plain maps.
//
// Invariant: a Context is never mutated after construction; every With*
// method returns a copy.
type Context struct {
	id    string
	tags  map[string]struct{}
	stats map[string]float64
	vars  map[string]string
}

// New returns an empty Context with the given id.
//
// Postcondition: ID() == id; no tags, stats, or vars are set.
func New(id string) *Context {
	return &Context{
		id:    id,
		tags:  map[string]struct{}{},
		stats: map[string]float64{},
		vars:  map[string]string{},
	}
}

func (c *Context) clone() *Context {
	out := New(c.id)
	for k := range c.tags {
		out.tags[k] = struct{}{}
	}
	for k, v := range c.stats {
		out.stats[k] = v
	}
	for k, v := range c.vars {
		out.vars[k] = v
	}
	return out
}

// WithTags returns a copy of c with tags added.
func (c *Context) WithTags(tags ...string) *Context {
	out := c.clone()
	for _, t := range tags {
		out.tags[t] = struct{}{}
	}
	return out
}

// WithStat returns a copy of c with stat name set to v.
func (c *Context) WithStat(name string, v float64) *Context {
	out := c.clone()
	out.stats[name] = v
	return out
}

// WithVar returns a copy of c with var name set to v.
func (c *Context) WithVar(name, v string) *Context {
	out := c.clone()
	out.vars[name] = v
	return out
}

// ID implements Subject.
func (c *Context) ID() string { return c.id }

// HasTag implements Subject.
func (c *Context) HasTag(tag string) bool {
	_, ok := c.tags[tag]
	return ok
}

// Stat implements Subject.
func (c *Context) Stat(name string) (float64, bool) {
	v, ok := c.stats[name]
	return v, ok
}

// Var implements Subject.
func (c *Context) Var(name string) (string, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// Tags returns the subject's tags sorted lexicographically.
func (c *Context) Tags() []string {
	out := make([]string, 0, len(c.tags))
	for t := range c.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
