// Package zip packs in-memory files into a single archive.
package zip

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"time"
)

// Entry is one file of an archive.
type Entry struct {
	Name     string
	Modified time.Time
	Data     []byte
}

// Archive writes entries in order. Names must be unique and non-empty.
func Archive(entries []Entry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, errors.New("zip: no entries")
	}
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			return nil, errors.New("zip: entry name is required")
		}
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("zip: duplicate entry %q", e.Name)
		}
		seen[e.Name] = struct{}{}

		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate, Modified: e.Modified}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("zip: create %s: %w", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, fmt.Errorf("zip: write %s: %w", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: close: %w", err)
	}
	return buf.Bytes(), nil
}
