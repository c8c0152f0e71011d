package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bft-labs/mdsync/internal/domain"
)

func TestUploadSessionFile_SaveFindRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	store := NewUploadSessionFile(dir)
	ctx := context.Background()

	if _, ok, err := store.Find(ctx, "fp"); err != nil || ok {
		t.Fatalf("Find() on empty store = %v, %v", ok, err)
	}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	want := domain.UploadSession{
		Fingerprint:   "fp",
		ObjectName:    "posts/abc",
		Bucket:        "media",
		UploadURL:     "https://example.co/upload/1",
		ChunkSize:     6 << 20,
		BytesUploaded: 12 << 20,
		BytesTotal:    20 << 20,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() = %v", err)
	}
	if err := store.Save(ctx, domain.UploadSession{Fingerprint: "other"}); err != nil {
		t.Fatalf("Save() = %v", err)
	}

	// A fresh store over the same directory sees the record.
	got, ok, err := NewUploadSessionFile(dir).Find(ctx, "fp")
	if err != nil || !ok {
		t.Fatalf("Find() = %v, %v", ok, err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("timestamps = %v, %v", got.CreatedAt, got.UpdatedAt)
	}
	got.CreatedAt, got.UpdatedAt = want.CreatedAt, want.UpdatedAt
	if got != want {
		t.Errorf("Find() = %+v, want %+v", got, want)
	}

	if err := store.Remove(ctx, "fp"); err != nil {
		t.Fatalf("Remove() = %v", err)
	}
	if _, ok, _ := store.Find(ctx, "fp"); ok {
		t.Error("session still present after Remove")
	}
	if _, ok, _ := store.Find(ctx, "other"); !ok {
		t.Error("Remove deleted an unrelated session")
	}
	if err := store.Remove(ctx, "unknown"); err != nil {
		t.Errorf("Remove(unknown) = %v", err)
	}

	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(store.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestUploadSessionFile_Corrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, sessionsFileName), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	store := NewUploadSessionFile(dir)
	if _, _, err := store.Find(context.Background(), "fp"); err == nil {
		t.Error("Find() on corrupt file = nil error")
	}
}
