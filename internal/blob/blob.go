// Package blob delivers export files to a destination: a local directory or
// an S3 bucket. Callers that need a single download can Zip several blobs.
package blob

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/roster/internal/core"
)

// Sink stores one blob and returns where it was written.
type Sink interface {
	Put(ctx context.Context, b core.Blob) (location string, err error)
}

// PutAll stores every blob and returns their locations in order. It stops at
// the first failure.
func PutAll(ctx context.Context, sink Sink, blobs []core.Blob) ([]string, error) {
	locations := make([]string, 0, len(blobs))
	for _, b := range blobs {
		loc, err := sink.Put(ctx, b)
		if err != nil {
			return locations, fmt.Errorf("store %s: %w", b.Name, err)
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

// DirSink writes blobs into a directory, creating it if needed.
type DirSink struct {
	Dir string
}

// Put writes through a temporary file and renames it, so readers never see a
// partial export.
func (s DirSink) Put(ctx context.Context, b core.Blob) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(s.Dir, filepath.Base(b.Name))
	tmp, err := os.CreateTemp(s.Dir, ".export-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(b.Data); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

// Zip packs blobs into one archive named name.
func Zip(name string, blobs []core.Blob, modified time.Time) (core.Blob, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, b := range blobs {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     b.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return core.Blob{}, err
		}
		if _, err := w.Write(b.Data); err != nil {
			return core.Blob{}, err
		}
	}
	if err := zw.Close(); err != nil {
		return core.Blob{}, err
	}
	return core.Blob{Name: name, ContentType: "application/zip", Data: buf.Bytes()}, nil
}
