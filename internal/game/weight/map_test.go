package weight_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/lootweight/internal/game/weight"
)

func TestMap_PreservesInsertionOrder(t *testing.T) {
	m := weight.New()
	m.Set("c", 1)
	m.Set("a", 2)
	m.Set("b", 3)
	m.Set("a", 9)
	assert.Equal(t, []string{"c", "a", "b"}, m.Keys())
	w, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 9.0, w)
}

func TestMap_ClampsOnSet(t *testing.T) {
	m := weight.New()
	m.Set("neg", -5)
	m.Set("nan", math.NaN())
	m.Set("inf", math.Inf(1))
	assert.Equal(t, 0.0, m.GetOrDefault("neg", -1))
	assert.Equal(t, 0.0, m.GetOrDefault("nan", -1))
	assert.Equal(t, math.MaxFloat64, m.GetOrDefault("inf", -1))
	assert.True(t, m.Has("neg"), "a clamped zero is still present")
}

func TestMap_GetOrDefault_Absent(t *testing.T) {
	m := weight.New()
	assert.Equal(t, 0.0, m.GetOrDefault("x", 0))
	assert.False(t, m.Has("x"))
	_, ok := m.Get("x")
	assert.False(t, ok)
}

func TestMap_CloneIsIndependent(t *testing.T) {
	m := weight.Of(weight.Pair{ID: "a", Weight: 1}, weight.Pair{ID: "b", Weight: 2})
	c := m.Clone()
	c.Set("a", 10)
	c.Set("z", 1)
	assert.Equal(t, 1.0, m.GetOrDefault("a", 0))
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []string{"a", "b", "z"}, c.Keys())
}

func TestMap_MarshalJSON_Ordered(t *testing.T) {
	m := weight.Of(weight.Pair{ID: "b", Weight: 5}, weight.Pair{ID: "a", Weight: 20})
	data, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":5,"a":20}`, string(data))
	assert.Less(t, strings.Index(string(data), `"b"`), strings.Index(string(data), `"a"`))
}

func TestMap_String(t *testing.T) {
	m := weight.Of(weight.Pair{ID: "A", Weight: 20}, weight.Pair{ID: "B", Weight: 2.5})
	assert.Equal(t, "{A: 20, B: 2.5}", m.String())
	assert.Equal(t, "{}", weight.New().String())
}

func TestProperty_Map_AllWeightsNonNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := weight.New()
		n := rapid.IntRange(0, 30).Draw(rt, "n")
		for i := 0; i < n; i++ {
			id := rapid.StringMatching(`[a-e]`).Draw(rt, "id")
			m.Set(id, rapid.Float64().Draw(rt, "w"))
		}
		for _, p := range m.Pairs() {
			assert.GreaterOrEqual(rt, p.Weight, 0.0)
			assert.False(rt, math.IsNaN(p.Weight))
		}
		assert.LessOrEqual(rt, m.Len(), 5)
	})
}
