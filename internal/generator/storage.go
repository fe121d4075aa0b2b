package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type writeCategory string

const (
	categoryPage     writeCategory = "page"
	categoryAsset    writeCategory = "asset"
	categorySitemap  writeCategory = "sitemap"
	categoryRobots   writeCategory = "robots"
	categoryFeed     writeCategory = "feed"
	categoryManifest writeCategory = "manifest"
)

// writeFileRequest describes a file write operation routed through the artifact writer.
type writeFileRequest struct {
	Path        string
	Content     io.Reader
	Size        int64
	Category    writeCategory
	ContentType string
	Checksum    string
	Metadata    map[string]string
}

// ArtifactWriter abstracts output persistence so builds can target the local
// filesystem in production and in-memory sinks in tests.
type ArtifactWriter interface {
	EnsureDir(ctx context.Context, path string) error
	WriteFile(ctx context.Context, req writeFileRequest) error
	ReadFile(ctx context.Context, path string) ([]byte, error)
	RemoveAll(ctx context.Context, path string) error
}

// NewFSWriter returns an ArtifactWriter rooted at the process working
// directory; paths in requests are used verbatim.
func NewFSWriter() ArtifactWriter {
	return fsWriter{}
}

type fsWriter struct{}

func (fsWriter) EnsureDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(path) == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(filepath.FromSlash(path), 0o755); err != nil {
		return fmt.Errorf("generator: ensure dir %s: %w", path, err)
	}
	return nil
}

func (fsWriter) WriteFile(ctx context.Context, req writeFileRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req.Content == nil {
		return errors.New("generator: write requires content reader")
	}
	if strings.TrimSpace(req.Path) == "" {
		return errors.New("generator: write requires path")
	}

	target := filepath.FromSlash(req.Path)
	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("generator: create %s: %w", req.Path, err)
	}
	if _, err := io.Copy(file, req.Content); err != nil {
		file.Close()
		return fmt.Errorf("generator: write %s: %w", req.Path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("generator: close %s: %w", req.Path, err)
	}
	return nil
}

func (fsWriter) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.FromSlash(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("generator: read %s: %w", path, err)
	}
	return data, nil
}

func (fsWriter) RemoveAll(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(path) == "" || path == "." || path == "/" {
		return errors.New("generator: refusing to remove unsafe path")
	}
	if err := os.RemoveAll(filepath.FromSlash(path)); err != nil {
		return fmt.Errorf("generator: remove %s: %w", path, err)
	}
	return nil
}
