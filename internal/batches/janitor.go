package batches

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"verifycert-backend/internal/shared/telemetry"
)

// workspacePrefixes name the per-request directories that may be orphaned by a crash.
var workspacePrefixes = []string{"batch-", "gen-", "preview-"}

// Janitor prunes expired batch archives and orphaned workspaces under WorkDir.
type Janitor struct {
	WorkDir string
	TTL     time.Duration

	now     func() time.Time
	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewJanitor(workDir string, ttl time.Duration) *Janitor {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Janitor{WorkDir: workDir, TTL: ttl, now: time.Now}
}

// Start runs Sweep on the given cron schedule, e.g. "@every 15m".
func (j *Janitor) Start(schedule string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return errors.New("janitor already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { j.Sweep() }); err != nil {
		return err
	}
	c.Start()
	j.cron = c
	j.running = true
	telemetry.Info("janitor.started", map[string]any{"schedule": schedule, "ttl": j.TTL.String()})
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.running {
		return
	}
	<-j.cron.Stop().Done()
	j.running = false
}

// Sweep deletes archives and workspaces older than TTL and returns how many
// entries were removed.
func (j *Janitor) Sweep() int {
	cutoff := j.now().Add(-j.TTL)
	removed := 0

	archiveDir := filepath.Join(j.WorkDir, archiveDirName)
	if entries, err := os.ReadDir(archiveDir); err == nil {
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
				continue
			}
			if j.removeIfExpired(filepath.Join(archiveDir, e.Name()), e, cutoff) {
				removed++
			}
		}
	}

	if entries, err := os.ReadDir(j.WorkDir); err == nil {
		for _, e := range entries {
			if !e.IsDir() || !isWorkspace(e.Name()) {
				continue
			}
			if j.removeIfExpired(filepath.Join(j.WorkDir, e.Name()), e, cutoff) {
				removed++
			}
		}
	}

	if removed > 0 {
		telemetry.Info("janitor.swept", map[string]any{"removed": removed})
	}
	return removed
}

func (j *Janitor) removeIfExpired(path string, e os.DirEntry, cutoff time.Time) bool {
	info, err := e.Info()
	if err != nil || !info.ModTime().Before(cutoff) {
		return false
	}
	if err := os.RemoveAll(path); err != nil {
		telemetry.Warn("janitor.remove_failed", map[string]any{"path": path, "error": err})
		return false
	}
	return true
}

func isWorkspace(name string) bool {
	for _, prefix := range workspacePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
