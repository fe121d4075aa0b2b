package generator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"strings"
)

type assetCopySummary struct {
	Built   int
	Skipped int
}

// copyAssets mirrors theme assets under assets/ and the static directory at
// the site root. Theme assets go through the theme manager so variant
// overrides resolve; static files are copied verbatim.
func (s *service) copyAssets(
	ctx context.Context,
	writer ArtifactWriter,
	manifest *buildManifest,
	baseDir string,
) (assetCopySummary, map[string]struct{}, error) {
	summary := assetCopySummary{}
	keys := map[string]struct{}{}
	dirCache := map[string]struct{}{}
	if baseDir != "" {
		dirCache[baseDir] = struct{}{}
		if err := writer.EnsureDir(ctx, baseDir); err != nil {
			return summary, keys, err
		}
	}

	if s.deps.Themes != nil && s.deps.Themes.HasTheme() {
		for _, asset := range s.deps.Themes.Assets() {
			reader, err := s.deps.Themes.Open(asset)
			if err != nil {
				return summary, keys, fmt.Errorf("generator: open theme asset %s: %w", asset, err)
			}
			data, err := io.ReadAll(reader)
			reader.Close()
			if err != nil {
				return summary, keys, fmt.Errorf("generator: read theme asset %s: %w", asset, err)
			}
			source := "theme::" + strings.TrimLeft(asset, "/")
			destRel := path.Join("assets", strings.TrimLeft(asset, "/"))
			if err := s.copyAsset(ctx, writer, manifest, dirCache, keys, &summary, source, destRel, baseDir, data); err != nil {
				return summary, keys, err
			}
		}
	}

	staticDir := strings.TrimSpace(s.cfg.StaticDir)
	if staticDir != "" {
		if _, err := os.Stat(staticDir); err != nil {
			if os.IsNotExist(err) {
				return summary, keys, nil
			}
			return summary, keys, fmt.Errorf("generator: stat static dir: %w", err)
		}
		staticFS := os.DirFS(staticDir)
		err := fs.WalkDir(staticFS, ".", func(entryPath string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() {
				return nil
			}
			data, err := fs.ReadFile(staticFS, entryPath)
			if err != nil {
				return err
			}
			source := "static::" + entryPath
			return s.copyAsset(ctx, writer, manifest, dirCache, keys, &summary, source, entryPath, baseDir, data)
		})
		if err != nil {
			return summary, keys, fmt.Errorf("generator: copy static dir: %w", err)
		}
	}

	return summary, keys, nil
}

func (s *service) copyAsset(
	ctx context.Context,
	writer ArtifactWriter,
	manifest *buildManifest,
	dirCache map[string]struct{},
	keys map[string]struct{},
	summary *assetCopySummary,
	source string,
	destRel string,
	baseDir string,
	data []byte,
) error {
	fullPath := joinOutputPath(baseDir, destRel)
	checksum := computeHash(data)
	keys[assetKey(source)] = struct{}{}

	if s.cfg.Incremental && manifest.shouldSkipAsset(source, checksum, fullPath) {
		summary.Skipped++
		return nil
	}
	if err := ensureDir(ctx, writer, dirCache, path.Dir(fullPath)); err != nil {
		return err
	}
	if err := writer.WriteFile(ctx, writeFileRequest{
		Path:        fullPath,
		Content:     bytes.NewReader(data),
		Size:        int64(len(data)),
		Category:    categoryAsset,
		ContentType: detectAssetContentType(destRel),
		Checksum:    checksum,
		Metadata:    map[string]string{"source": source},
	}); err != nil {
		return err
	}
	summary.Built++
	manifest.setAsset(manifestAsset{
		Key:      assetKey(source),
		Source:   source,
		Output:   fullPath,
		Checksum: checksum,
		Size:     int64(len(data)),
		CopiedAt: s.now(),
	})
	return nil
}

func detectAssetContentType(name string) string {
	if contentType := mime.TypeByExtension(path.Ext(name)); contentType != "" {
		return contentType
	}
	return "application/octet-stream"
}
