package effect

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/lootweight/internal/game/condition"
	"github.com/cory-johannsen/lootweight/internal/game/formula"
	"github.com/cory-johannsen/lootweight/internal/game/modifier"
	"github.com/cory-johannsen/lootweight/internal/game/subject"
)

// Template is a named, requirement-gated source of effect contributions,
// e.g. a piece of gear, an active buff, or an environmental condition.
//
// Invariant: a Template is immutable once registered in a Library.
type Template struct {
	ID           string
	Requirements []condition.Requirement
	Values       map[Field]formula.Formula
	Gated        []modifier.Operation
	Forced       []modifier.Operation
}

// Validate checks the template invariants.
func (t *Template) Validate() error {
	if t.ID == "" {
		return errors.New("effect: template ID must not be empty")
	}
	for i, op := range t.Gated {
		if err := op.Validate(); err != nil {
			return fmt.Errorf("effect: template %q gated[%d]: %w", t.ID, i, err)
		}
	}
	for i, op := range t.Forced {
		if err := op.Validate(); err != nil {
			return fmt.Errorf("effect: template %q forced[%d]: %w", t.ID, i, err)
		}
	}
	return nil
}

// Applicable reports whether every requirement of t passes for s.
func (t *Template) Applicable(s subject.Subject) bool {
	return condition.AllSatisfied(s, t.Requirements)
}

// Build evaluates t's field formulas for s into a fresh Effect carrying t's
// operations. Requirements are not checked.
func (t *Template) Build(s subject.Subject) *Effect {
	e := New()
	for _, f := range Fields() {
		if v, ok := t.Values[f]; ok {
			e.values[f] = v.Evaluate(s)
		}
	}
	e.AddGated(t.Gated...)
	e.AddForced(t.Forced...)
	return e
}

// Assemble merges, in argument order, the Effect of every template that is
// applicable to s. Nil templates are skipped.
//
// Postcondition: Returns a non-nil Effect; New() when nothing applies.
func Assemble(s subject.Subject, templates ...*Template) *Effect {
	out := New()
	for _, t := range templates {
		if t == nil || !t.Applicable(s) {
			continue
		}
		out = out.Merge(t.Build(s))
	}
	return out
}

// Library holds effect templates by id in registration order.
//
// Library is not safe for concurrent Register; it is populated at load time
// and read-only afterwards.
type Library struct {
	byID  map[string]*Template
	order []string
}

// NewLibrary returns an empty Library.
func NewLibrary() *Library {
	return &Library{byID: make(map[string]*Template)}
}

// Register adds t.
//
// Postcondition: returns error if t is invalid or t.ID is already registered.
func (l *Library) Register(t *Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, exists := l.byID[t.ID]; exists {
		return fmt.Errorf("effect: template %q already registered", t.ID)
	}
	l.byID[t.ID] = t
	l.order = append(l.order, t.ID)
	return nil
}

// Get returns the template with id and whether it exists.
func (l *Library) Get(id string) (*Template, bool) {
	t, ok := l.byID[id]
	return t, ok
}

// Len returns the number of templates.
func (l *Library) Len() int { return len(l.order) }

// IDs returns the template ids in registration order.
func (l *Library) IDs() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Assemble looks up ids and merges the applicable templates in the given
// order. Unknown ids are returned in missing and otherwise ignored.
func (l *Library) Assemble(s subject.Subject, ids ...string) (e *Effect, missing []string) {
	templates := make([]*Template, 0, len(ids))
	for _, id := range ids {
		t, ok := l.byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		templates = append(templates, t)
	}
	return Assemble(s, templates...), missing
}
