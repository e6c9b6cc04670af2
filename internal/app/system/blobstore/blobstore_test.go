package blobstore_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/ridehub/internal/app/system/blobstore"
	"github.com/dalemusser/waffle/pantry/storage"
)

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"license.pdf":           "license.pdf",
		"my license (1).pdf":    "my_license__1_.pdf",
		"../../etc/passwd":      "passwd",
		`C:\Users\me\photo.jpg`: "photo.jpg",
		"":                      "file",
	}
	for in, want := range cases {
		if got := blobstore.SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}

	long := strings.Repeat("a", 150) + ".png"
	got := blobstore.SanitizeFilename(long)
	if len(got) != 100 || !strings.HasSuffix(got, ".png") {
		t.Errorf("long name not truncated with extension: %q (%d)", got, len(got))
	}
}

func TestNewKey(t *testing.T) {
	now := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	key := blobstore.NewKey("/driver-documents/", "id card.jpg", now)
	if !strings.HasPrefix(key, "driver-documents/2026/03/") {
		t.Fatalf("unexpected prefix: %s", key)
	}
	if !strings.HasSuffix(key, "-id_card.jpg") {
		t.Fatalf("unexpected suffix: %s", key)
	}
	if key == blobstore.NewKey("/driver-documents/", "id card.jpg", now) {
		t.Fatal("keys should be unique")
	}
}

func newLocal(t *testing.T) *storage.Local {
	t.Helper()
	store, err := storage.NewLocal(storage.LocalConfig{BasePath: t.TempDir(), BaseURL: "/files/"})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	return store
}

func TestUpload_LocalAndRemove(t *testing.T) {
	ctx := context.Background()
	store := newLocal(t)

	obj, err := blobstore.Upload(ctx, store, "photos", "me.png", strings.NewReader("png-bytes"), 9, "image/png")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(obj.URL, "/files/photos/") {
		t.Errorf("URL = %q", obj.URL)
	}

	full, err := store.GetFullPath(obj.Key)
	if err != nil {
		t.Fatalf("GetFullPath: %v", err)
	}
	b, err := os.ReadFile(full)
	if err != nil || string(b) != "png-bytes" {
		t.Fatalf("stored content = %q, %v", b, err)
	}

	if err := blobstore.Remove(ctx, store, obj.Key); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := store.Delete(ctx, obj.Key); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Delete after Remove = %v, want ErrNotFound", err)
	}
	if err := blobstore.Remove(ctx, store, obj.Key); err != nil {
		t.Fatalf("Remove of missing key = %v, want nil", err)
	}
}

func TestUpload_RejectsTraversalKeys(t *testing.T) {
	store := newLocal(t)
	if _, err := store.GetFullPath("../../outside.txt"); !errors.Is(err, storage.ErrInvalidPath) {
		t.Fatalf("traversal key = %v, want ErrInvalidPath", err)
	}
	// Upload never produces such a key, whatever the client sends.
	obj, err := blobstore.Upload(context.Background(), store, "docs", "../../etc/passwd", strings.NewReader("x"), 1, "text/plain")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if strings.Contains(obj.Key, "..") {
		t.Fatalf("key escapes root: %s", obj.Key)
	}
}
