package worker

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/storage"
)

// Janitor periodically removes expired decks and abandoned uploads.
type Janitor struct {
	registry  storage.Registry
	outputDir string
	uploadDir string
	outputTTL time.Duration
	uploadTTL time.Duration
	interval  time.Duration
	stopChan  chan struct{}
	doneChan  chan struct{}
}

func NewJanitor(registry storage.Registry, outputDir, uploadDir string, outputTTL, uploadTTL, interval time.Duration) *Janitor {
	return &Janitor{
		registry:  registry,
		outputDir: outputDir,
		uploadDir: uploadDir,
		outputTTL: outputTTL,
		uploadTTL: uploadTTL,
		interval:  interval,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

func (j *Janitor) Start() {
	go j.run()
	log.Printf("Started janitor (every %s)", j.interval)
}

// Stop blocks until the current sweep, if any, has finished.
func (j *Janitor) Stop() {
	close(j.stopChan)
	<-j.doneChan
}

func (j *Janitor) run() {
	defer close(j.doneChan)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			log.Println("Janitor shutting down")
			return
		case <-ticker.C:
			j.Sweep(context.Background(), time.Now())
		}
	}
}

// Sweep runs one cleanup pass. Files older than their TTL are removed even
// when the registry lost track of them, e.g. after a restart.
func (j *Janitor) Sweep(ctx context.Context, now time.Time) {
	if j.registry != nil {
		if n, err := j.registry.PurgeExpired(ctx, now); err != nil {
			log.Printf("Janitor: registry purge failed: %v", err)
		} else if n > 0 {
			log.Printf("Janitor: purged %d expired outputs", n)
		}
	}

	if n := removeStale(j.outputDir, j.outputTTL, now, func(name string) bool {
		return strings.HasSuffix(strings.ToLower(name), ".pptx")
	}); n > 0 {
		log.Printf("Janitor: removed %d stale output files", n)
	}
	if n := removeStale(j.uploadDir, j.uploadTTL, now, func(string) bool { return true }); n > 0 {
		log.Printf("Janitor: removed %d stale uploads", n)
	}
}

func removeStale(dir string, ttl time.Duration, now time.Time, match func(string) bool) int {
	if dir == "" || ttl <= 0 {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Janitor: failed to read %s: %v", dir, err)
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !match(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || now.Sub(info.ModTime()) < ttl {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			log.Printf("Janitor: failed to remove %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	return removed
}
