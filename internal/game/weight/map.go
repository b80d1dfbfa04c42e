// Package weight provides the insertion-ordered entry weight map shared by
// the resolver and the sampler.
package weight

import (
	"math"
	"strconv"
	"strings"

	"github.com/iancoleman/orderedmap"
)

// Pair is one entry id with its weight.
type Pair struct {
	ID     string
	Weight float64
}

// Map is an entryId -> weight map that iterates in first-insertion order.
//
// Invariant: every stored weight is finite and >= 0.
// A Map is not safe for concurrent mutation; it is built and consumed by a
// single resolution call.
type Map struct {
	m *orderedmap.OrderedMap
}

// New returns an empty Map.
func New() *Map {
	return &Map{m: orderedmap.New()}
}

// Of builds a Map from pairs, in order. Later duplicates overwrite the weight
// but keep the first position.
func Of(pairs ...Pair) *Map {
	out := New()
	for _, p := range pairs {
		out.Set(p.ID, p.Weight)
	}
	return out
}

// Clamp maps negative and NaN weights to 0 and +Inf to MaxFloat64.
func Clamp(w float64) float64 {
	switch {
	case math.IsNaN(w), w < 0:
		return 0
	case math.IsInf(w, 1):
		return math.MaxFloat64
	}
	return w
}

// Get returns the weight for id and whether id is present.
func (m *Map) Get(id string) (float64, bool) {
	v, ok := m.m.Get(id)
	if !ok {
		return 0, false
	}
	return v.(float64), true
}

// GetOrDefault returns the weight for id, or def when id is absent.
func (m *Map) GetOrDefault(id string, def float64) float64 {
	if w, ok := m.Get(id); ok {
		return w
	}
	return def
}

// Has reports whether id is present.
func (m *Map) Has(id string) bool {
	_, ok := m.m.Get(id)
	return ok
}

// Set stores Clamp(w) for id. A new id is appended to the iteration order;
// an existing id keeps its position.
func (m *Map) Set(id string, w float64) {
	m.m.Set(id, Clamp(w))
}

// Len returns the number of entries, including zero-weight ones.
func (m *Map) Len() int {
	return len(m.m.Keys())
}

// Keys returns the ids in insertion order.
func (m *Map) Keys() []string {
	keys := m.m.Keys()
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// Pairs returns the entries in insertion order.
func (m *Map) Pairs() []Pair {
	keys := m.m.Keys()
	out := make([]Pair, 0, len(keys))
	for _, k := range keys {
		w, _ := m.Get(k)
		out = append(out, Pair{ID: k, Weight: w})
	}
	return out
}

// Total returns the sum of all weights.
func (m *Map) Total() float64 {
	var total float64
	for _, p := range m.Pairs() {
		total += p.Weight
	}
	return total
}

// Clone returns an independent copy with the same order.
func (m *Map) Clone() *Map {
	return Of(m.Pairs()...)
}

// MarshalJSON encodes the map as a JSON object in insertion order.
func (m *Map) MarshalJSON() ([]byte, error) {
	return m.m.MarshalJSON()
}

// String renders the map as "{a: 1, b: 2.5}" in insertion order.
func (m *Map) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, p := range m.Pairs() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.ID)
		b.WriteString(": ")
		b.WriteString(strconv.FormatFloat(p.Weight, 'g', -1, 64))
	}
	b.WriteByte('}')
	return b.String()
}
