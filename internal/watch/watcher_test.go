package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(kind, path string) {
	r.mu.Lock()
	r.events = append(r.events, kind+":"+path)
	r.mu.Unlock()
}

func (r *recorder) has(ev string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == ev {
			return true
		}
	}
	return false
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatcher(t *testing.T) (string, *recorder) {
	t.Helper()
	root := t.TempDir()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rec := &recorder{}
	go Watch(ctx, root, logger, rec.add)
	time.Sleep(100 * time.Millisecond)
	return root, rec
}

func TestWatcher_DocumentLifecycle(t *testing.T) {
	root, rec := startWatcher(t)
	p := filepath.Join(root, "note.md")

	if err := os.WriteFile(p, []byte("# hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool { return rec.has("created:note.md") }, "create not reported")

	if err := os.WriteFile(p, []byte("# changed"), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool { return rec.has("updated:note.md") }, "update not reported")

	if err := os.Remove(p); err != nil {
		t.Fatal(err)
	}
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool { return rec.has("deleted:note.md") }, "delete not reported")
}

func TestWatcher_NewDirectory(t *testing.T) {
	root, rec := startWatcher(t)

	sub := filepath.Join(root, "diagrams")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool { return rec.has("created:diagrams") }, "dir not reported")

	// Give the watcher a moment to add the directory.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(sub, "flow.mmd"), []byte("graph TD"), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool { return rec.has("created:diagrams/flow.mmd") }, "file in new dir not reported")
}

func TestWatcher_IgnoresHiddenAndNonEditableWrites(t *testing.T) {
	root, rec := startWatcher(t)

	_ = os.WriteFile(filepath.Join(root, ".inkpad-tmp-123"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "image.png"), []byte("x"), 0o644)
	time.Sleep(300 * time.Millisecond)

	if rec.has("created:.inkpad-tmp-123") {
		t.Error("temp file reported")
	}
	if rec.has("updated:image.png") {
		t.Error("non-editable write reported as update")
	}
}
