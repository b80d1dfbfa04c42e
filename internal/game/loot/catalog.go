package loot

import "sort"

// Catalog holds entries by id and group membership in registration order.
//
// Invariant: ids are unique; registration is insert-only.
// Catalog is not safe for concurrent Register. It is filled at load time and
// treated as read-only once published, after which concurrent reads are safe.
type Catalog struct {
	entries map[string]*Entry
	order   []string
	groups  map[string][]string
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		entries: make(map[string]*Entry),
		groups:  make(map[string][]string),
	}
}

// Register adds e and records its group memberships.
//
// Precondition: e must not be nil.
// Postcondition: returns false, leaving the catalog unchanged, if e.ID() is
// already registered.
func (c *Catalog) Register(e *Entry) bool {
	if _, exists := c.entries[e.id]; exists {
		return false
	}
	c.entries[e.id] = e
	c.order = append(c.order, e.id)
	for _, g := range e.groups {
		c.groups[g] = append(c.groups[g], e.id)
	}
	return true
}

// Get returns the entry with id and whether it exists.
func (c *Catalog) Get(id string) (*Entry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// Members returns the ids in group in registration order.
//
// Postcondition: Returns an empty, non-nil slice for an unknown group.
func (c *Catalog) Members(group string) []string {
	ids := c.groups[group]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// HasGroup reports whether any entry is a member of group.
func (c *Catalog) HasGroup(group string) bool {
	_, ok := c.groups[group]
	return ok
}

// Groups returns every group name, sorted.
func (c *Catalog) Groups() []string {
	out := make([]string, 0, len(c.groups))
	for g := range c.groups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.order) }

// All returns every entry in registration order.
func (c *Catalog) All() []*Entry {
	out := make([]*Entry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	return out
}
