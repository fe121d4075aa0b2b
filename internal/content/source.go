package content

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/goliatone/go-press/internal/logging"
	"github.com/goliatone/go-press/internal/markdown"
	"github.com/goliatone/go-press/pkg/interfaces"
)

// SourceConfig configures where posts are discovered and how they are matched.
type SourceConfig struct {
	// BasePath is the content directory holding the Markdown posts.
	BasePath string
	// Pattern limits discovery to matching files (defaults to "*.md").
	Pattern string
	// Recursive controls whether sub-directories are traversed.
	Recursive bool
	// Logger receives skip warnings; nil falls back to a no-op logger.
	Logger interfaces.Logger
}

// Source loads the post collection from a content directory. Each document is
// parsed independently: a malformed post is skipped and reported, never
// aborting the rest of the build. Only the directory itself being unreadable
// is fatal.
type Source struct {
	basePath string
	loader   *markdown.Loader
	logger   interfaces.Logger
}

// Diagnostic records a document that was excluded from the site.
type Diagnostic struct {
	Path string
	Err  error
}

// LoadResult carries the parsed posts plus the skipped-document diagnostics.
type LoadResult struct {
	Posts   []*Post
	Skipped []Diagnostic
}

// NewSource validates the content directory and prepares a loader over it.
func NewSource(cfg SourceConfig) (*Source, error) {
	basePath := strings.TrimSpace(cfg.BasePath)
	if basePath == "" {
		return nil, fmt.Errorf("%w: content directory is required", ErrContentDirUnreadable)
	}
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrContentDirUnreadable, basePath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrContentDirUnreadable, basePath)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NoOp()
	}

	return &Source{
		basePath: basePath,
		loader: markdown.NewLoader(os.DirFS(basePath), markdown.LoaderConfig{
			BasePath:  basePath,
			Pattern:   cfg.Pattern,
			Recursive: cfg.Recursive,
		}),
		logger: logger,
	}, nil
}

// NewSourceFS builds a Source over an arbitrary fs.FS, primarily for tests.
func NewSourceFS(filesystem fs.FS, cfg SourceConfig) *Source {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Source{
		basePath: cfg.BasePath,
		loader: markdown.NewLoader(filesystem, markdown.LoaderConfig{
			BasePath:  cfg.BasePath,
			Pattern:   cfg.Pattern,
			Recursive: cfg.Recursive,
		}),
		logger: logger,
	}
}

// LoadPosts walks the content directory and converts every well-formed
// document into a Post. Documents with a missing or malformed front matter
// block, or a filename without a valid date, are collected as diagnostics.
func (s *Source) LoadPosts(ctx context.Context) (*LoadResult, error) {
	result := &LoadResult{}

	skip := func(path string, err error) {
		err = classifyDocumentError(err)
		result.Skipped = append(result.Skipped, Diagnostic{Path: path, Err: err})
		logging.WithPostContext(s.logger, path, "").Warn("skipping document", "error", err)
	}

	docs, err := s.loader.LoadDirectory(ctx, ".", markdown.LoadParams{}, skip)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrContentDirUnreadable, s.basePath, err)
	}

	for _, doc := range docs {
		post, err := PostFromDocument(doc.Document)
		if err != nil {
			skip(doc.Document.FilePath, err)
			continue
		}
		result.Posts = append(result.Posts, post)
	}

	return result, nil
}
