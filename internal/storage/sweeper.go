package storage

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const sweepInterval = 10 * time.Minute

// Sweeper removes uploads a crashed or killed process left behind. Request
// cleanup stays the primary guarantee; this only catches leftovers.
type Sweeper struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	stopChan chan struct{}
}

func NewSweeper(dir string, maxAge time.Duration) *Sweeper {
	return &Sweeper{
		dir:      dir,
		maxAge:   maxAge,
		interval: sweepInterval,
		stopChan: make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	if s.maxAge <= 0 {
		return
	}
	go s.loop()
	log.Printf("Temp sweeper started (dir=%s, max age=%s)", s.dir, s.maxAge)
}

func (s *Sweeper) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *Sweeper) loop() {
	// Run on startup as well as by interval.
	s.SweepOnce(time.Now())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case now := <-ticker.C:
			s.SweepOnce(now)
		}
	}
}

// SweepOnce deletes uploads older than maxAge and returns how many were
// removed. Files not named the way TempStore.Save names them are left alone,
// so a shared directory is safe to sweep.
func (s *Sweeper) SweepOnce(now time.Time) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		log.Printf("temp sweeper: failed to read %s: %v", s.dir, err)
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !isUploadName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < s.maxAge {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Printf("temp sweeper: failed to remove %s: %v", path, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Printf("temp sweeper: removed %d stale upload(s)", removed)
	}
	return removed
}

// isUploadName reports whether name is "<uuid><.ext>", the form Save uses.
func isUploadName(name string) bool {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if len(ext) < 2 || len(base) != 36 {
		return false
	}
	if _, err := uuid.Parse(base); err != nil {
		return false
	}
	return isAlnum(strings.ToLower(ext[1:]))
}
