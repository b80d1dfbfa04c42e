package engine

import (
	"github.com/cory-johannsen/lootweight/internal/game/effect"
	"github.com/cory-johannsen/lootweight/internal/game/loot"
	"github.com/cory-johannsen/lootweight/internal/game/rule"
	"github.com/cory-johannsen/lootweight/internal/game/subject"
	"github.com/cory-johannsen/lootweight/internal/game/weight"
)

// Snapshot pairs a catalog with the rule forest and effect templates loaded
// alongside it.
//
// Invariant: a published Snapshot, and everything it references, is never
// mutated. Reload builds a new Snapshot instead.
type Snapshot struct {
	Catalog *loot.Catalog
	Forest  *rule.Forest
	Effects *effect.Library
	// Version is assigned by Engine.Publish; 0 means never published.
	Version uint64
}

// NewSnapshot returns an unpublished Snapshot. Nil arguments are replaced
// with empty values.
func NewSnapshot(catalog *loot.Catalog, forest *rule.Forest, effects *effect.Library) *Snapshot {
	if catalog == nil {
		catalog = loot.NewCatalog()
	}
	if forest == nil {
		forest = rule.NewForest()
	}
	if effects == nil {
		effects = effect.NewLibrary()
	}
	return &Snapshot{Catalog: catalog, Forest: forest, Effects: effects}
}

// Compute runs the static pass over the whole forest and then applies eff.
// A nil eff skips the dynamic pass.
//
// Postcondition: Returns a fresh map owned by the caller.
func (s *Snapshot) Compute(subj subject.Subject, eff *effect.Effect) *weight.Map {
	w := weight.New()
	s.Forest.Resolve(w, subj, s.Catalog)
	eff.Apply(w, subj, s.Catalog)
	return w
}
