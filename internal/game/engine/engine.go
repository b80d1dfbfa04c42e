// Package engine is the facade that resolves a subject and effect against the
// currently published snapshot and draws at most one entry.
//
// Resolution is pure and lock-free: every call loads the snapshot pointer
// once and runs to completion against it, even if Publish swaps in a newer
// snapshot mid-call.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/cory-johannsen/lootweight/internal/game/effect"
	"github.com/cory-johannsen/lootweight/internal/game/loot"
	"github.com/cory-johannsen/lootweight/internal/game/subject"
	"github.com/cory-johannsen/lootweight/internal/game/weight"
)

// ErrDanglingReference is matched by errors.Is for every DanglingReferenceError.
var ErrDanglingReference = errors.New("engine: dangling reference")

// DanglingReferenceError reports a drawn id with no catalog entry.
type DanglingReferenceError struct {
	ID      string
	Version uint64
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("engine: drawn id %q is not in catalog (snapshot %d)", e.ID, e.Version)
}

// Is reports whether target is ErrDanglingReference.
func (e *DanglingReferenceError) Is(target error) bool { return target == ErrDanglingReference }

// Drawer chooses one id from a weight map.
// *sampler.Sampler satisfies this interface.
type Drawer interface {
	Draw(w *weight.Map) (id string, ok bool)
}

// Engine publishes snapshots and resolves against the current one.
type Engine struct {
	current atomic.Pointer[Snapshot]
	// publishMu orders publishers so versions are stored in increasing order.
	// Readers never take it.
	publishMu sync.Mutex
	version   uint64
}

// New returns an Engine with initial published. A nil initial publishes an
// empty snapshot.
func New(initial *Snapshot) *Engine {
	e := &Engine{}
	if initial == nil {
		initial = NewSnapshot(nil, nil, nil)
	}
	e.Publish(initial)
	return e
}

// Publish makes s the current snapshot and returns the one it replaced.
//
// Precondition: s must be non-nil and must not be mutated afterwards.
// Postcondition: the published value is a shallow copy of s carrying the
// next version number; s itself is not modified.
func (e *Engine) Publish(s *Snapshot) (previous *Snapshot) {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()
	e.version++
	next := *s
	next.Version = e.version
	return e.current.Swap(&next)
}

// Snapshot returns the current snapshot.
func (e *Engine) Snapshot() *Snapshot { return e.current.Load() }

// Version returns the version of the current snapshot.
func (e *Engine) Version() uint64 { return e.current.Load().Version }

// Compute returns the final weight map for subj and eff against the current
// snapshot.
func (e *Engine) Compute(subj subject.Subject, eff *effect.Effect) *weight.Map {
	return e.current.Load().Compute(subj, eff)
}

// PickOne computes weights and draws with d. ok is false when no entry has a
// positive weight.
//
// Postcondition: returns a *DanglingReferenceError if d returns an id the
// snapshot's catalog does not hold.
func (e *Engine) PickOne(subj subject.Subject, eff *effect.Effect, d Drawer) (entry *loot.Entry, ok bool, err error) {
	r, err := e.Resolve(subj, eff, d)
	if err != nil || r.Entry == nil {
		return nil, false, err
	}
	return r.Entry, true, nil
}

// Resolution is the diagnostic record of one resolve call.
type Resolution struct {
	ID              uuid.UUID
	SnapshotVersion uint64
	Weights         *weight.Map
	// Chosen is empty when nothing was eligible.
	Chosen string
	Entry  *loot.Entry
	// Effect is eff merged with the chosen entry's base effect, or eff alone
	// when nothing was chosen.
	Effect *effect.Effect
}

// Resolve is PickOne with the full record of the call.
//
// d supplies only the draw. Random formulas in the snapshot, including the
// chosen entry's wait-time formulas behind Resolution.Effect, read the
// dice.Source their content was compiled with. For a run that replays from
// one seed, compile the content with the same seeded source d draws from.
func (e *Engine) Resolve(subj subject.Subject, eff *effect.Effect, d Drawer) (Resolution, error) {
	snap := e.current.Load()
	w := snap.Compute(subj, eff)
	res := Resolution{
		ID:              uuid.New(),
		SnapshotVersion: snap.Version,
		Weights:         w,
		Effect:          effect.New().Merge(eff),
	}
	id, ok := d.Draw(w)
	if !ok {
		return res, nil
	}
	res.Chosen = id
	entry, found := snap.Catalog.Get(id)
	if !found {
		return res, &DanglingReferenceError{ID: id, Version: snap.Version}
	}
	res.Entry = entry
	res.Effect = res.Effect.Merge(entry.BaseEffect(subj))
	return res, nil
}
