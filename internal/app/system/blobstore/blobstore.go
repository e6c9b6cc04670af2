// Package blobstore files uploaded driver documents and profile photos into
// a waffle storage backend under unique, date-bucketed keys.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
)

// LinkExpiry is how long presigned download links stay valid.
const LinkExpiry = time.Hour

// Object describes something written by Upload.
type Object struct {
	Key         string
	URL         string
	FileName    string
	Size        int64
	ContentType string
}

// Upload writes r under a generated key and returns where it landed.
// Keys look like prefix/2026/01/ab12cd34-license.pdf.
func Upload(ctx context.Context, s storage.Store, prefix, filename string, r io.Reader, size int64, contentType string) (Object, error) {
	key := NewKey(prefix, filename, time.Now().UTC())
	if err := s.Put(ctx, key, r, &storage.PutOptions{ContentType: contentType}); err != nil {
		return Object{}, fmt.Errorf("upload %s: %w", key, err)
	}
	u, err := Link(ctx, s, key)
	if err != nil {
		return Object{}, fmt.Errorf("url %s: %w", key, err)
	}
	return Object{Key: key, URL: u, FileName: filename, Size: size, ContentType: contentType}, nil
}

// Link returns a download link for key: presigned where the backend
// supports it, otherwise the backend's public URL.
func Link(ctx context.Context, s storage.Store, key string) (string, error) {
	u, err := s.PresignedURL(ctx, key, &storage.PresignOptions{Expires: LinkExpiry})
	if errors.Is(err, storage.ErrPresignNotSupported) {
		return s.URL(key), nil
	}
	return u, err
}

// Remove deletes key, treating an already missing object as success.
func Remove(ctx context.Context, s storage.Store, key string) error {
	if err := s.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

// NewKey builds a unique, date-bucketed object key.
func NewKey(prefix, filename string, now time.Time) string {
	unique := fmt.Sprintf("%s-%s", uuid.New().String()[:8], SanitizeFilename(filename))
	return path.Join(strings.Trim(prefix, "/"), now.Format("2006/01"), unique)
}

// SanitizeFilename reduces a client-supplied name to a safe base name.
func SanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if filename == "." || filename == "/" {
		filename = ""
	}

	out := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		if allowed(c) {
			out = append(out, c)
		} else {
			out = append(out, '_')
		}
	}

	if len(out) == 0 {
		return "file"
	}
	if len(out) > 100 {
		ext := filepath.Ext(string(out))
		if len(ext) > 0 && len(ext) < 10 {
			out = append(out[:100-len(ext)], ext...)
		} else {
			out = out[:100]
		}
	}
	return string(out)
}

func allowed(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.'
}
