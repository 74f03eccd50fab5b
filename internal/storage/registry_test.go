package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/models"
)

func TestMemoryRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewMemoryRegistry(t.TempDir(), time.Hour, time.Hour)
	ctx := context.Background()

	rec := models.OutputRecord{
		Filename:  "presentation-abc.pptx",
		Title:     "Quarterly Review",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := reg.Register(ctx, rec); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := reg.Lookup(ctx, rec.Filename)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Title != "Quarterly Review" {
		t.Errorf("Expected title to round-trip, got %q", got.Title)
	}

	if _, err := reg.Lookup(ctx, "missing.pptx"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRegistry_PurgeRemovesFiles(t *testing.T) {
	dir := t.TempDir()
	reg := NewMemoryRegistry(dir, time.Hour, time.Hour)
	ctx := context.Background()

	name := "presentation-old.pptx"
	if err := os.WriteFile(filepath.Join(dir, name), []byte("deck"), 0644); err != nil {
		t.Fatal(err)
	}
	reg.Register(ctx, models.OutputRecord{
		Filename:  name,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(20 * time.Millisecond),
	})
	time.Sleep(60 * time.Millisecond)

	n, err := reg.PurgeExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 purged record, got %d", n)
	}
	if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
		t.Errorf("Expected expired output file to be removed, stat err = %v", err)
	}
}

func TestRemoveOutput_IgnoresPaths(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(dir, "keep.pptx")
	if err := os.WriteFile(outside, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "out")
	os.MkdirAll(sub, 0755)

	removeOutput(sub, "../keep.pptx")

	if _, err := os.Stat(outside); err != nil {
		t.Errorf("Expected file outside output dir to survive, got %v", err)
	}
}
