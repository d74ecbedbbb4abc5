package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ResultDir saves generated images into a local directory without ever
// overwriting an earlier file.
type ResultDir struct {
	basePath string
}

// NewResultDir creates basePath when missing.
func NewResultDir(basePath string) (*ResultDir, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &ResultDir{basePath: basePath}, nil
}

func (d *ResultDir) BasePath() string {
	if d == nil {
		return ""
	}
	return d.basePath
}

// Save writes data as <base><ext>, picking <base>-2<ext>, <base>-3<ext> and
// so on when the name is taken. It returns the full path written.
func (d *ResultDir) Save(ctx context.Context, base, contentType string, data []byte) (string, error) {
	if d == nil {
		return "", errors.New("storage: no directory configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, err := sanitizeName(base)
	if err != nil {
		return "", err
	}
	ext := Extension(contentType)

	for i := 1; ; i++ {
		candidate := name + ext
		if i > 1 {
			candidate = name + "-" + strconv.Itoa(i) + ext
		}
		full := filepath.Join(d.basePath, candidate)
		f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("storage: create file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			_ = os.Remove(full)
			return "", fmt.Errorf("storage: write file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("storage: close file: %w", err)
		}
		return full, nil
	}
}

// Extension maps an image content type to a file extension, defaulting to
// .png.
func Extension(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	switch strings.ToLower(strings.TrimSpace(mt)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	return ".png"
}

// sanitizeName keeps a bare file name so results cannot escape the directory.
func sanitizeName(base string) (string, error) {
	base = strings.TrimSpace(strings.ReplaceAll(base, "\\", "/"))
	base = filepath.Base(base)
	if base == "" || base == "." || base == ".." || base == "/" {
		return "", errors.New("storage: invalid name")
	}
	return strings.TrimSuffix(base, filepath.Ext(base)), nil
}
