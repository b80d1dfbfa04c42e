// Package loot defines the selectable catalog entries and the catalog that
// indexes them by id and by group.
package loot

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/cory-johannsen/lootweight/internal/game/effect"
	"github.com/cory-johannsen/lootweight/internal/game/formula"
	"github.com/cory-johannsen/lootweight/internal/game/subject"
)

// Type is the closed set of entry kinds.
type Type int

const (
	TypeItem Type = iota
	TypeEntity
	TypeBlock
)

var typeNames = map[Type]string{
	TypeItem:   "item",
	TypeEntity: "entity",
	TypeBlock:  "block",
}

// ParseType returns the Type for name; an empty name is TypeItem.
func ParseType(name string) (Type, error) {
	if name == "" {
		return TypeItem, nil
	}
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("loot: unknown entry type %q", name)
}

// String returns the content name of t.
func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Entry is one selectable outcome.
//
// Invariant: an Entry is never mutated after Build; all accessors return copies.
type Entry struct {
	id                 string
	typ                Type
	nickname           string
	statsKey           string
	groups             []string
	waitTimeAdder      formula.Formula
	waitTimeMultiplier formula.Formula
	customData         map[string]formula.Formula
	disableStats       bool
	showInFinder       bool
	preventGrabbing    bool
	toInventoryChance  formula.Formula
}

// ID returns the unique catalog id.
func (e *Entry) ID() string { return e.id }

// Type returns what the entry spawns as.
func (e *Entry) Type() Type { return e.typ }

// Nickname returns the display name; it defaults to the id.
func (e *Entry) Nickname() string { return e.nickname }

// StatsKey returns the key statistics are recorded under; it defaults to the id.
func (e *Entry) StatsKey() string { return e.statsKey }

// Groups returns a copy of the entry's group names in declared order.
func (e *Entry) Groups() []string { return slices.Clone(e.groups) }

// DisableStats reports whether draws of this entry skip statistics. The
// engine passes this and the two flags below through without reading them.
func (e *Entry) DisableStats() bool { return e.disableStats }

// ShowInFinder reports whether the entry is listed in loot finders.
func (e *Entry) ShowInFinder() bool { return e.showInFinder }

// PreventGrabbing reports whether the drawn entry must not be picked up.
func (e *Entry) PreventGrabbing() bool { return e.preventGrabbing }

// InGroup reports whether e is a member of group.
func (e *Entry) InGroup(group string) bool {
	return slices.Contains(e.groups, group)
}

// BaseEffect evaluates the entry's wait-time formulas for s into an Effect
// that carries only those two scalars.
func (e *Entry) BaseEffect(s subject.Subject) *effect.Effect {
	return effect.New().
		Set(effect.WaitTimeAdder, e.waitTimeAdder.Evaluate(s)).
		Set(effect.WaitTimeMultiplier, e.waitTimeMultiplier.Evaluate(s))
}

// ToInventoryChance evaluates the chance, clamped to [0, 1], that the
// outcome goes straight to the subject's inventory.
func (e *Entry) ToInventoryChance(s subject.Subject) float64 {
	v := e.toInventoryChance.Evaluate(s)
	switch {
	case v < 0 || v != v:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// CustomData evaluates the named custom value for s.
//
// Postcondition: ok is false when the entry declares no such key.
func (e *Entry) CustomData(name string, s subject.Subject) (v float64, ok bool) {
	f, ok := e.customData[name]
	if !ok {
		return 0, false
	}
	return f.Evaluate(s), true
}

// CustomDataKeys returns the declared custom data names, sorted.
func (e *Entry) CustomDataKeys() []string {
	keys := slices.Collect(maps.Keys(e.customData))
	sort.Strings(keys)
	return keys
}

// Builder assembles an Entry. The zero Builder is not usable; call NewBuilder.
type Builder struct {
	e    Entry
	errs []error
}

// NewBuilder starts an Entry with the given id. Nickname and stats key
// default to the id; the wait-time adder defaults to 0 and the multiplier
// and to-inventory chance to 1 and 0.
func NewBuilder(id string) *Builder {
	return &Builder{e: Entry{
		id:                 id,
		customData:         map[string]formula.Formula{},
		waitTimeAdder:      formula.Constant(0),
		waitTimeMultiplier: formula.Constant(1),
		toInventoryChance:  formula.Constant(0),
		showInFinder:       true,
	}}
}

// Type sets the entry type.
func (b *Builder) Type(t Type) *Builder { b.e.typ = t; return b }

// Nickname sets the display name. Empty falls back to the id.
func (b *Builder) Nickname(n string) *Builder { b.e.nickname = n; return b }

// StatsKey sets the statistics key. Empty falls back to the id.
func (b *Builder) StatsKey(k string) *Builder { b.e.statsKey = k; return b }

// DisableStats sets the statistics opt-out flag.
func (b *Builder) DisableStats(v bool) *Builder { b.e.disableStats = v; return b }

// ShowInFinder sets the finder flag; it defaults to true.
func (b *Builder) ShowInFinder(v bool) *Builder { b.e.showInFinder = v; return b }

// PreventGrabbing sets the no-pickup flag.
func (b *Builder) PreventGrabbing(v bool) *Builder { b.e.preventGrabbing = v; return b }

// Groups appends group memberships; duplicates are dropped.
func (b *Builder) Groups(groups ...string) *Builder {
	for _, g := range groups {
		if g == "" {
			b.errs = append(b.errs, errors.New("group name must not be empty"))
			continue
		}
		if !slices.Contains(b.e.groups, g) {
			b.e.groups = append(b.e.groups, g)
		}
	}
	return b
}

// WaitTime sets the base-effect wait-time adder and multiplier. A nil
// formula keeps the default.
func (b *Builder) WaitTime(adder, multiplier formula.Formula) *Builder {
	if adder != nil {
		b.e.waitTimeAdder = adder
	}
	if multiplier != nil {
		b.e.waitTimeMultiplier = multiplier
	}
	return b
}

// ToInventoryChance sets the to-inventory chance formula.
func (b *Builder) ToInventoryChance(f formula.Formula) *Builder {
	if f != nil {
		b.e.toInventoryChance = f
	}
	return b
}

// CustomData sets a named custom value.
func (b *Builder) CustomData(name string, f formula.Formula) *Builder {
	if name == "" || f == nil {
		b.errs = append(b.errs, fmt.Errorf("custom data %q must have a name and a value", name))
		return b
	}
	b.e.customData[name] = f
	return b
}

// Build returns the finished Entry.
//
// Postcondition: Returns an error if the id is empty or any builder call was invalid.
// The Builder must not be reused after Build.
func (b *Builder) Build() (*Entry, error) {
	if b.e.id == "" {
		b.errs = append(b.errs, errors.New("id must not be empty"))
	}
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("loot: building entry %q: %w", b.e.id, errors.Join(b.errs...))
	}
	e := b.e
	if e.nickname == "" {
		e.nickname = e.id
	}
	if e.statsKey == "" {
		e.statsKey = e.id
	}
	e.groups = slices.Clone(b.e.groups)
	e.customData = maps.Clone(b.e.customData)
	return &e, nil
}
