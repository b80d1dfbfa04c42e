package modifier

import "fmt"

// Groups resolves a group name to its member entry ids in declaration order.
type Groups interface {
	// Members returns the ordered member ids of group, or an empty slice for
	// an unknown group.
	Members(group string) []string
}

// Target names what an Operation applies to: a single entry id, or every
// member of a group.
type Target struct {
	Name  string
	Group bool
}

// EntryTarget targets the entry with the given id.
func EntryTarget(id string) Target { return Target{Name: id} }

// GroupTarget targets every member of the named group.
func GroupTarget(name string) Target { return Target{Name: name, Group: true} }

// IDs expands t into entry ids. An unknown group, or a nil groups, expands
// to nothing.
func (t Target) IDs(groups Groups) []string {
	if !t.Group {
		return []string{t.Name}
	}
	if groups == nil {
		return nil
	}
	return groups.Members(t.Name)
}

// String renders t as "id" or "@group".
func (t Target) String() string {
	if t.Group {
		return "@" + t.Name
	}
	return t.Name
}

// Operation pairs a Target with the Fn applied to it.
type Operation struct {
	Target Target
	Fn     Fn
}

// Validate reports a missing target name or Fn.
func (o Operation) Validate() error {
	if o.Target.Name == "" {
		return fmt.Errorf("modifier: operation target must not be empty")
	}
	if o.Fn == nil {
		return fmt.Errorf("modifier: operation on %s has no modifier", o.Target)
	}
	return nil
}
