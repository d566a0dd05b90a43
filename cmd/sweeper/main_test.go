package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"verifycert-backend/internal/shared/config"
)

func mkdirAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	old := time.Now().Add(-age)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestRunOnceRemovesExpiredWorkspaces(t *testing.T) {
	workDir := t.TempDir()
	mkdirAged(t, filepath.Join(workDir, "batch-old"), 48*time.Hour)
	mkdirAged(t, filepath.Join(workDir, "gen-fresh"), time.Minute)
	mkdirAged(t, filepath.Join(workDir, "unrelated"), 48*time.Hour)

	cfg := config.Config{WorkDir: workDir, ArchiveTTL: 24 * time.Hour}
	if err := run(t.Context(), cfg, true); err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, err := os.Stat(filepath.Join(workDir, "batch-old")); !os.IsNotExist(err) {
		t.Fatalf("expected batch-old to be removed, got %v", err)
	}
	for _, name := range []string{"gen-fresh", "unrelated"} {
		if _, err := os.Stat(filepath.Join(workDir, name)); err != nil {
			t.Fatalf("expected %s to remain: %v", name, err)
		}
	}
}

func TestRunScheduledStopsOnCancel(t *testing.T) {
	workDir := t.TempDir()
	mkdirAged(t, filepath.Join(workDir, "preview-old"), 48*time.Hour)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	cfg := config.Config{WorkDir: workDir, ArchiveTTL: 24 * time.Hour, ArchiveSweepSchedule: "@every 1h"}
	if err := run(ctx, cfg, false); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(workDir, "preview-old")); !os.IsNotExist(err) {
		t.Fatalf("expected preview-old to be removed, got %v", err)
	}
}

func TestRunRejectsBadSchedule(t *testing.T) {
	cfg := config.Config{WorkDir: t.TempDir(), ArchiveSweepSchedule: "whenever"}
	if err := run(t.Context(), cfg, false); err == nil {
		t.Fatal("expected schedule error")
	}
}
