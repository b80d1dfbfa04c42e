// Package effect implements the per-draw modifier bundle built from a
// subject's situational state, and the dynamic pass that applies it on top
// of the statically resolved weights.
package effect

import (
	"fmt"
	"slices"

	"github.com/cory-johannsen/lootweight/internal/game/modifier"
)

// MergeOp is how a scalar field folds when two effects merge.
type MergeOp int

const (
	// Add sums the two values; identity 0.
	Add MergeOp = iota
	// Multiply multiplies the two values; identity 1.
	Multiply
)

// Field names one scalar of an Effect.
type Field int

// Adder fields merge by addition from 0; multiplier fields merge by
// multiplication from 1. MultipleLootChance is an adder.
const (
	WaitTimeAdder Field = iota
	WaitTimeMultiplier
	MultipleLootChance
	SizeAdder
	SizeMultiplier
	DifficultyAdder
	DifficultyMultiplier
	GameTimeAdder
	GameTimeMultiplier

	fieldCount
)

var fields = [fieldCount]struct {
	name string
	op   MergeOp
}{
	WaitTimeAdder:        {"wait-time", Add},
	WaitTimeMultiplier:   {"wait-time-multiplier", Multiply},
	MultipleLootChance:   {"multiple-loot", Add},
	SizeAdder:            {"size", Add},
	SizeMultiplier:       {"size-multiplier", Multiply},
	DifficultyAdder:      {"difficulty", Add},
	DifficultyMultiplier: {"difficulty-multiplier", Multiply},
	GameTimeAdder:        {"game-time", Add},
	GameTimeMultiplier:   {"game-time-multiplier", Multiply},
}

// Fields returns every Field in declaration order.
func Fields() []Field {
	out := make([]Field, fieldCount)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// ParseField returns the Field with the given content name, e.g. "wait-time".
func ParseField(name string) (Field, error) {
	for i, f := range fields {
		if f.name == name {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("effect: unknown field %q", name)
}

// String returns the content name of f.
func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fields[f].name
}

// Op returns the merge operator of f.
func (f Field) Op() MergeOp { return fields[f].op }

// Identity returns the value of f in an empty Effect.
func (f Field) Identity() float64 {
	if f.Op() == Multiply {
		return 1
	}
	return 0
}

// Effect is the dynamic modifier bundle for one draw.
//
// An Effect is created fresh per resolution call and owned by its caller;
// it is not safe for concurrent mutation. Merge never mutates its inputs.
type Effect struct {
	values [fieldCount]float64
	gated  []modifier.Operation
	forced []modifier.Operation
}

// New returns an Effect holding every field's identity and no operations.
func New() *Effect {
	e := &Effect{}
	for _, f := range Fields() {
		e.values[f] = f.Identity()
	}
	return e
}

// Value returns the current value of f.
func (e *Effect) Value(f Field) float64 { return e.values[f] }

// Set overwrites f with v and returns e.
func (e *Effect) Set(f Field, v float64) *Effect {
	e.values[f] = v
	return e
}

// AddGated appends operations that only touch entries already present in the
// weight map.
func (e *Effect) AddGated(ops ...modifier.Operation) *Effect {
	e.gated = append(e.gated, ops...)
	return e
}

// AddForced appends operations that always write, inserting absent entries.
func (e *Effect) AddForced(ops ...modifier.Operation) *Effect {
	e.forced = append(e.forced, ops...)
	return e
}

// Gated returns a copy of the gated operations in order.
func (e *Effect) Gated() []modifier.Operation { return slices.Clone(e.gated) }

// Forced returns a copy of the forced operations in order.
func (e *Effect) Forced() []modifier.Operation { return slices.Clone(e.forced) }

// Merge returns a new Effect whose operation lists are e's followed by
// other's, and whose fields fold e and other with each field's operator.
//
// Postcondition: neither e nor other is modified. A nil other yields a copy of e.
func (e *Effect) Merge(other *Effect) *Effect {
	out := &Effect{
		values: e.values,
		gated:  slices.Clone(e.gated),
		forced: slices.Clone(e.forced),
	}
	if other == nil {
		return out
	}
	for _, f := range Fields() {
		if f.Op() == Multiply {
			out.values[f] *= other.values[f]
		} else {
			out.values[f] += other.values[f]
		}
	}
	out.gated = append(out.gated, other.gated...)
	out.forced = append(out.forced, other.forced...)
	return out
}

// Compose merges effects left to right onto New(). Nil effects are skipped.
func Compose(effects ...*Effect) *Effect {
	out := New()
	for _, e := range effects {
		if e != nil {
			out = out.Merge(e)
		}
	}
	return out
}
