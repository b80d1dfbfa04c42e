package effect

import (
	"github.com/cory-johannsen/lootweight/internal/game/modifier"
	"github.com/cory-johannsen/lootweight/internal/game/subject"
	"github.com/cory-johannsen/lootweight/internal/game/weight"
)

// Apply runs the dynamic pass of e against w: every gated operation first,
// then every forced operation, each list in declared order. Group targets
// expand through groups; each member uses its own previous weight.
//
// Gated operations only rewrite ids already in w, so they never make an
// otherwise ineligible entry possible. Forced operations read an absent id
// as 0 and always write it.
//
// Precondition: w must be non-nil. A nil e is a no-op.
func (e *Effect) Apply(w *weight.Map, s subject.Subject, groups modifier.Groups) {
	if e == nil {
		return
	}
	for _, op := range e.gated {
		for _, id := range op.Target.IDs(groups) {
			prev, ok := w.Get(id)
			if !ok {
				continue
			}
			w.Set(id, op.Fn.Apply(s, prev))
		}
	}
	for _, op := range e.forced {
		for _, id := range op.Target.IDs(groups) {
			w.Set(id, op.Fn.Apply(s, w.GetOrDefault(id, 0)))
		}
	}
}
