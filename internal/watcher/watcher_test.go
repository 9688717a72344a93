package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

const testDebounce = 50 * time.Millisecond

func startWatcher(t *testing.T, path string) (*Watcher, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	w := NewWatcher(path, func(string) { calls.Add(1) }, WithDebounce(testDebounce))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w, &calls
}

func waitFor(t *testing.T, calls *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if calls.Load() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("onChange called %d times, want %d", calls.Load(), want)
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.bvsm")
	_, calls := startWatcher(t, path)

	for i := 0; i < 5; i++ {
		if err := writeFile(path, "chunk"); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, calls, 1)
	time.Sleep(4 * testDebounce)
	if got := calls.Load(); got != 1 {
		t.Errorf("burst of writes produced %d callbacks, want 1", got)
	}
}

func TestWatcher_AtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.bvsm")
	_, calls := startWatcher(t, path)

	tmp := filepath.Join(dir, ".model-tmp")
	if err := writeFile(tmp, "artifact"); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, calls, 1)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	_, calls := startWatcher(t, filepath.Join(dir, "model.bvsm"))

	if err := writeFile(filepath.Join(dir, "catalog.csv"), "title\nx\n"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(4 * testDebounce)
	if got := calls.Load(); got != 0 {
		t.Errorf("unrelated file produced %d callbacks", got)
	}
}

func TestWatcher_RemoveDoesNotNotify(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.bvsm")
	if err := writeFile(path, "artifact"); err != nil {
		t.Fatal(err)
	}
	_, calls := startWatcher(t, path)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	time.Sleep(4 * testDebounce)
	if got := calls.Load(); got != 0 {
		t.Errorf("remove produced %d callbacks", got)
	}
}

func TestWatcher_Start_createsMissingDirectory(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "models", "nested", "model.bvsm")
	w := NewWatcher(path, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("artifact directory should exist after Start: %v", err)
	}
	if w.Path() != path {
		t.Errorf("Path = %q, want %q", w.Path(), path)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "model.bvsm"), nil)
	w.Stop()
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
