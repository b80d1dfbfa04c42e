package reload_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/lootweight/internal/content"
	"github.com/cory-johannsen/lootweight/internal/game/dice"
	"github.com/cory-johannsen/lootweight/internal/game/engine"
	"github.com/cory-johannsen/lootweight/internal/reload"
	"github.com/cory-johannsen/lootweight/internal/scripting"
)

func writeEntries(t *testing.T, dir string, ids ...string) {
	t.Helper()
	body := "entries:\n"
	for _, id := range ids {
		body += "  " + id + ": {}\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "entries.yaml"), []byte(body), 0644))
}

func dirLoader(dir string) reload.LoadFunc {
	scripts := scripting.NewManager(scripting.DefaultInstructionLimit, zap.NewNop())
	l := content.NewDefaultLoader(scripts, dice.NewSeededSource(1), zap.NewNop())
	return func() (*engine.Snapshot, error) {
		snap, _, err := l.LoadDir(dir)
		return snap, err
	}
}

func TestReload_PublishesNewSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeEntries(t, dir, "cod")
	eng := engine.New(nil)
	var seen []uint64
	w, err := reload.New(dir, eng, dirLoader(dir), zap.NewNop(),
		reload.OnPublish(func(s *engine.Snapshot) { seen = append(seen, s.Version) }))
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, w.Reload())
	assert.Equal(t, uint64(2), eng.Version())
	assert.Equal(t, 1, eng.Snapshot().Catalog.Len())
	assert.Equal(t, []uint64{2}, seen)
}

func TestReload_FailureKeepsCurrentSnapshot(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	eng := engine.New(nil)
	before := eng.Snapshot()
	w, err := reload.New(t.TempDir(), eng, func() (*engine.Snapshot, error) {
		return nil, errors.New("bad yaml")
	}, zap.New(core))
	require.NoError(t, err)
	defer w.Stop()

	assert.Error(t, w.Reload())
	assert.Same(t, before, eng.Snapshot())
	assert.Equal(t, 1, logs.FilterMessage("content reload failed, keeping current snapshot").Len())
}

func TestReload_NilSnapshotIsError(t *testing.T) {
	eng := engine.New(nil)
	w, err := reload.New(t.TempDir(), eng, func() (*engine.Snapshot, error) { return nil, nil }, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()
	assert.Error(t, w.Reload())
	assert.Equal(t, uint64(1), eng.Version())
}

func TestWatcher_ReloadsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	writeEntries(t, dir, "cod")
	eng := engine.New(nil)
	published := make(chan *engine.Snapshot, 8)
	w, err := reload.New(dir, eng, dirLoader(dir), zap.NewNop(),
		reload.WithDebounce(20*time.Millisecond),
		reload.OnPublish(func(s *engine.Snapshot) {
			select {
			case published <- s:
			default:
			}
		}))
	require.NoError(t, err)

	started := make(chan error, 1)
	go func() { started <- w.Start() }()
	defer func() {
		w.Stop()
		select {
		case err := <-started:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	}()

	// Rewrite until the watch is live and the new content is seen.
	deadline := time.After(5 * time.Second)
	for {
		writeEntries(t, dir, "cod", "salmon")
		select {
		case s := <-published:
			if s.Catalog.Len() == 2 {
				_, ok := eng.Snapshot().Catalog.Get("salmon")
				assert.True(t, ok)
				return
			}
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			t.Fatal("no reload after file change")
		}
	}
}

func TestWatcher_IgnoresNonContentFiles(t *testing.T) {
	dir := t.TempDir()
	eng := engine.New(nil)
	published := make(chan struct{}, 1)
	w, err := reload.New(dir, eng, dirLoader(dir), zap.NewNop(),
		reload.WithDebounce(10*time.Millisecond),
		reload.OnPublish(func(*engine.Snapshot) {
			select {
			case published <- struct{}{}:
			default:
			}
		}))
	require.NoError(t, err)
	go func() { _ = w.Start() }()
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	select {
	case <-published:
		t.Fatal("non-content file triggered a reload")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_StopBeforeStart(t *testing.T) {
	w, err := reload.New(t.TempDir(), engine.New(nil), func() (*engine.Snapshot, error) { return nil, nil }, zap.NewNop())
	require.NoError(t, err)
	w.Stop()
	w.Stop()
}

func TestWatcher_MissingDir(t *testing.T) {
	w, err := reload.New(filepath.Join(t.TempDir(), "absent"), engine.New(nil), func() (*engine.Snapshot, error) { return nil, nil }, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()
	assert.Error(t, w.Start())
	<-w.Done()
}
