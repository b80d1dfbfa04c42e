package engine_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/lootweight/internal/game/condition"
	"github.com/cory-johannsen/lootweight/internal/game/dice"
	"github.com/cory-johannsen/lootweight/internal/game/effect"
	"github.com/cory-johannsen/lootweight/internal/game/engine"
	"github.com/cory-johannsen/lootweight/internal/game/formula"
	"github.com/cory-johannsen/lootweight/internal/game/loot"
	"github.com/cory-johannsen/lootweight/internal/game/modifier"
	"github.com/cory-johannsen/lootweight/internal/game/rule"
	"github.com/cory-johannsen/lootweight/internal/game/sampler"
	"github.com/cory-johannsen/lootweight/internal/game/subject"
	"github.com/cory-johannsen/lootweight/internal/game/weight"
)

func op(target modifier.Target, arg string) modifier.Operation {
	fn, err := modifier.ParseArithmetic(arg)
	if err != nil {
		panic(err)
	}
	return modifier.Operation{Target: target, Fn: fn}
}

func catalog(t *testing.T, ids ...string) *loot.Catalog {
	t.Helper()
	c := loot.NewCatalog()
	for _, id := range ids {
		e, err := loot.NewBuilder(id).Groups("all").WaitTime(formula.Constant(2), nil).Build()
		require.NoError(t, err)
		require.True(t, c.Register(e))
	}
	return c
}

// scenario builds a snapshot whose static pass yields {A: 10, B: 5}.
func scenario(t *testing.T) *engine.Snapshot {
	forest := rule.NewForest(&rule.Node{
		Name: "base",
		Operations: []modifier.Operation{
			op(modifier.EntryTarget("A"), "+10"),
			op(modifier.EntryTarget("B"), "+5"),
		},
	})
	return engine.NewSnapshot(catalog(t, "A", "B", "C"), forest, nil)
}

// pick always returns id.
type pick string

func (p pick) Draw(*weight.Map) (string, bool) { return string(p), true }

// drawerFunc adapts a function to engine.Drawer.
type drawerFunc func(*weight.Map) (string, bool)

func (f drawerFunc) Draw(w *weight.Map) (string, bool) { return f(w) }

func TestCompute_GatedAndForcedScenario(t *testing.T) {
	e := engine.New(scenario(t))
	eff := effect.New().
		AddGated(op(modifier.EntryTarget("A"), "*2")).
		AddForced(op(modifier.EntryTarget("C"), "+3"))

	w := e.Compute(subject.New("p"), eff)
	assert.Equal(t, []weight.Pair{{ID: "A", Weight: 20}, {ID: "B", Weight: 5}, {ID: "C", Weight: 3}}, w.Pairs())
}

func TestCompute_NilEffectIsStaticOnly(t *testing.T) {
	e := engine.New(scenario(t))
	w := e.Compute(subject.New("p"), nil)
	assert.Equal(t, []weight.Pair{{ID: "A", Weight: 10}, {ID: "B", Weight: 5}}, w.Pairs())
}

func TestCompute_GroupTargetsUseCatalog(t *testing.T) {
	forest := rule.NewForest(&rule.Node{Name: "r", Operations: []modifier.Operation{op(modifier.GroupTarget("all"), "+1")}})
	e := engine.New(engine.NewSnapshot(catalog(t, "x", "y"), forest, nil))
	w := e.Compute(subject.New("p"), nil)
	assert.Equal(t, []string{"x", "y"}, w.Keys())
}

func TestPickOne_ReturnsEntry(t *testing.T) {
	e := engine.New(scenario(t))
	got, ok, err := e.PickOne(subject.New("p"), nil, sampler.New(dice.NewSeededSource(3)))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, []string{"A", "B"}, got.ID())
}

func TestPickOne_NothingEligible(t *testing.T) {
	e := engine.New(nil)
	got, ok, err := e.PickOne(subject.New("p"), nil, sampler.New(dice.NewSeededSource(1)))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestPickOne_DanglingReference(t *testing.T) {
	e := engine.New(scenario(t))
	_, ok, err := e.PickOne(subject.New("p"), nil, pick("ghost"))
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrDanglingReference))
	var dre *engine.DanglingReferenceError
	require.ErrorAs(t, err, &dre)
	assert.Equal(t, "ghost", dre.ID)

	// The snapshot is still usable.
	got, ok, err := e.PickOne(subject.New("p"), nil, pick("A"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", got.ID())
}

func TestResolve_Record(t *testing.T) {
	e := engine.New(scenario(t))
	eff := effect.New().Set(effect.WaitTimeAdder, 5)
	r, err := e.Resolve(subject.New("p"), eff, pick("B"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.Equal(t, e.Version(), r.SnapshotVersion)
	assert.Equal(t, "B", r.Chosen)
	require.NotNil(t, r.Entry)
	assert.Equal(t, 7.0, r.Effect.Value(effect.WaitTimeAdder))
	assert.Equal(t, 5.0, eff.Value(effect.WaitTimeAdder))
	assert.Equal(t, 2, r.Weights.Len())

	other, err := e.Resolve(subject.New("p"), eff, pick("B"))
	require.NoError(t, err)
	assert.NotEqual(t, r.ID, other.ID)
}

// countingSource wraps a Source and counts Float64 calls.
type countingSource struct {
	dice.Source
	floats int
}

func (c *countingSource) Float64() float64 {
	c.floats++
	return c.Source.Float64()
}

func TestResolve_BaseEffectUsesCompiledSource(t *testing.T) {
	contentSrc := &countingSource{Source: dice.NewSeededSource(3)}
	wait, err := formula.NewCompiler(contentSrc, nil).Compile("1~3")
	require.NoError(t, err)
	entry, err := loot.NewBuilder("A").WaitTime(wait, nil).Build()
	require.NoError(t, err)
	c := loot.NewCatalog()
	require.True(t, c.Register(entry))
	forest := rule.NewForest(&rule.Node{Name: "base", Operations: []modifier.Operation{op(modifier.EntryTarget("A"), "+1")}})
	e := engine.New(engine.NewSnapshot(c, forest, nil))

	drawSrc := &countingSource{Source: dice.NewSeededSource(4)}
	r, err := e.Resolve(subject.New("p"), nil, sampler.New(drawSrc))
	require.NoError(t, err)

	assert.Equal(t, "A", r.Chosen)
	assert.Equal(t, 1, drawSrc.floats, "the drawer rolls once for the draw")
	assert.Equal(t, 1, contentSrc.floats, "the wait-time range rolls on the content source")
	got := r.Effect.Value(effect.WaitTimeAdder)
	assert.GreaterOrEqual(t, got, 1.0)
	assert.LessOrEqual(t, got, 3.0)
}

func TestPublish_VersionsAndPrevious(t *testing.T) {
	first := scenario(t)
	e := engine.New(first)
	assert.Equal(t, uint64(1), e.Version())
	assert.Equal(t, uint64(0), first.Version)

	prev := e.Publish(engine.NewSnapshot(nil, nil, nil))
	assert.Equal(t, uint64(1), prev.Version)
	assert.Same(t, first.Catalog, prev.Catalog)
	assert.Equal(t, uint64(2), e.Version())
	assert.Equal(t, 0, e.Snapshot().Catalog.Len())
}

func TestResolve_SnapshotIsolationAcrossPublish(t *testing.T) {
	oldSnap := scenario(t)
	e := engine.New(oldSnap)

	newForest := rule.NewForest(&rule.Node{Name: "n", Operations: []modifier.Operation{op(modifier.EntryTarget("Z"), "+100")}})
	newSnap := engine.NewSnapshot(catalog(t, "Z"), newForest, nil)

	var published bool
	// Publish from inside the static pass, after the old snapshot was loaded.
	swapper := condition.Func(func(subject.Subject) bool {
		if !published {
			published = true
			e.Publish(newSnap)
		}
		return true
	})
	oldSnap.Forest.Roots()[0].Requirements = []condition.Requirement{swapper}

	r, err := e.Resolve(subject.New("p"), nil, drawerFunc(func(w *weight.Map) (string, bool) {
		return "A", true
	}))
	require.NoError(t, err)
	require.True(t, published)
	assert.Equal(t, uint64(1), r.SnapshotVersion)
	assert.Equal(t, []string{"A", "B"}, r.Weights.Keys())
	require.NotNil(t, r.Entry)
	assert.Equal(t, "A", r.Entry.ID())
	assert.Equal(t, uint64(2), e.Version())

	// A later call sees only the new snapshot.
	_, err = e.Resolve(subject.New("p"), nil, pick("A"))
	assert.ErrorIs(t, err, engine.ErrDanglingReference)
	assert.Equal(t, []string{"Z"}, e.Compute(subject.New("p"), nil).Keys())
}

func TestEngine_ConcurrentResolveAndPublish(t *testing.T) {
	snaps := []*engine.Snapshot{scenario(t), scenario(t)}
	e := engine.New(snaps[0])
	src := dice.NewSeededSource(11)
	s := sampler.New(src)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				w := e.Compute(subject.New("p"), nil)
				if w.Len() != 2 {
					t.Errorf("torn snapshot: %v", w)
					return
				}
				if _, _, err := e.PickOne(subject.New("p"), nil, s); err != nil {
					t.Errorf("pick: %v", err)
					return
				}
			}
		}()
	}
	for i := 0; i < 100; i++ {
		e.Publish(snaps[i%2])
	}
	wg.Wait()
	assert.Equal(t, uint64(101), e.Version())
}
