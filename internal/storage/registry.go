package storage

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/models"
)

var ErrNotFound = errors.New("output not found")

// Registry tracks generated decks until they expire. Expired entries have
// their file removed from the output directory.
type Registry interface {
	Register(ctx context.Context, rec models.OutputRecord) error
	Lookup(ctx context.Context, filename string) (*models.OutputRecord, error)
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// MemoryRegistry keeps records in process memory.
type MemoryRegistry struct {
	cache     *cache.Cache
	outputDir string
}

func NewMemoryRegistry(outputDir string, ttl, cleanupInterval time.Duration) *MemoryRegistry {
	r := &MemoryRegistry{
		cache:     cache.New(ttl, cleanupInterval),
		outputDir: outputDir,
	}
	r.cache.OnEvicted(func(filename string, _ interface{}) {
		removeOutput(r.outputDir, filename)
	})
	return r
}

func (r *MemoryRegistry) Register(_ context.Context, rec models.OutputRecord) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		ttl = cache.DefaultExpiration
	}
	r.cache.Set(rec.Filename, rec, ttl)
	return nil
}

func (r *MemoryRegistry) Lookup(_ context.Context, filename string) (*models.OutputRecord, error) {
	v, ok := r.cache.Get(filename)
	if !ok {
		return nil, ErrNotFound
	}
	rec := v.(models.OutputRecord)
	return &rec, nil
}

// PurgeExpired evicts against the wall clock; go-cache has no notion of an
// injected time.
func (r *MemoryRegistry) PurgeExpired(_ context.Context, _ time.Time) (int, error) {
	before := r.cache.ItemCount()
	r.cache.DeleteExpired()
	return before - r.cache.ItemCount(), nil
}

func removeOutput(outputDir, filename string) {
	if filename == "" || filename != filepath.Base(filename) {
		return
	}
	err := os.Remove(filepath.Join(outputDir, filename))
	if err != nil && !os.IsNotExist(err) {
		log.Printf("failed to remove expired output %s: %v", filename, err)
		return
	}
	if err == nil {
		log.Printf("Removed expired output %s", filename)
	}
}
