package monitoring

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestArtifactWatcherDetectsChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "iris.json")
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	changed := make(chan struct{}, 16)
	watcher, err := NewArtifactWatcher(path, zap.NewNop(), nil, func() {
		changed <- struct{}{}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	// keep rewriting until the watch is installed and an event lands
	deadline := time.After(10 * time.Second)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-changed:
			return
		case <-ticker.C:
			if err := os.WriteFile(path, []byte(`{"rev":2}`), 0o600); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		case <-deadline:
			t.Fatal("expected artifact change notification")
		}
	}
}

func TestArtifactWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "iris.json")
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	changed := make(chan struct{}, 16)
	watcher, err := NewArtifactWatcher(path, zap.NewNop(), nil, func() {
		changed <- struct{}{}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)
	time.Sleep(300 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-changed:
		t.Fatal("expected no notification for sibling file")
	case <-time.After(1 * time.Second):
	}
}
