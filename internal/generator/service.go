package generator

import (
	"context"
	"errors"
	"fmt"
	"path"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-press/internal/content"
	"github.com/goliatone/go-press/internal/logging"
	"github.com/goliatone/go-press/internal/themes"
	"github.com/goliatone/go-press/pkg/interfaces"
)

var (
	errRendererRequired = errors.New("generator: template renderer is required")
	errSourceRequired   = errors.New("generator: content source is required")
	errParserRequired   = errors.New("generator: markdown parser is required")
)

// Service describes the static site build contract.
type Service interface {
	Build(ctx context.Context, opts BuildOptions) (*BuildResult, error)
	Clean(ctx context.Context) error
}

// Config captures runtime behaviour toggles for the generator.
type Config struct {
	OutputDir       string
	BaseURL         string
	SiteTitle       string
	SiteDescription string
	SiteAuthor      string
	StaticDir       string
	CleanBuild      bool
	Incremental     bool
	GenerateSitemap bool
	GenerateRobots  bool
	GenerateFeeds   bool
	FeedLimit       int
	Workers         int
	IncludeDrafts   bool
	IncludeFuture   bool
	IndexTemplate   string
	PostTemplate    string
	TagTemplate     string
}

// BuildOptions narrows the scope of a single run.
type BuildOptions struct {
	// Slugs limits post page rendering to the named posts; listings and
	// archives are still produced from the full post set.
	Slugs  []string
	DryRun bool
}

// BuildResult reports aggregated build metadata.
type BuildResult struct {
	BuildID       string
	PagesBuilt    int
	PagesSkipped  int
	AssetsBuilt   int
	AssetsSkipped int
	FeedsBuilt    int
	Posts         int
	Tags          int
	Duration      time.Duration
	Rendered      []RenderedPage
	Diagnostics   []RenderDiagnostic
	Skipped       []content.Diagnostic
	Errors        []error
	DryRun        bool
}

// Dependencies lists the collaborators required by the generator.
type Dependencies struct {
	Source   *content.Source
	Parser   interfaces.MarkdownParser
	Renderer interfaces.TemplateRenderer
	Themes   *themes.Manager
	Writer   ArtifactWriter
	Logger   interfaces.Logger
}

// NewService wires a generator with the provided configuration and dependencies.
func NewService(cfg Config, deps Dependencies) Service {
	if cfg.IndexTemplate == "" {
		cfg.IndexTemplate = "index.html"
	}
	if cfg.PostTemplate == "" {
		cfg.PostTemplate = "post.html"
	}
	if cfg.TagTemplate == "" {
		cfg.TagTemplate = "tag.html"
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	writer := deps.Writer
	if writer == nil {
		writer = NewFSWriter()
	}
	deps.Writer = writer
	return &service{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		now:    time.Now,
	}
}

type service struct {
	cfg    Config
	deps   Dependencies
	logger interfaces.Logger
	now    func() time.Time
}

func (s *service) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.deps.Renderer == nil {
		return nil, errRendererRequired
	}
	if s.deps.Source == nil {
		return nil, errSourceRequired
	}
	if s.deps.Parser == nil {
		return nil, errParserRequired
	}

	start := time.Now()
	buildCtx, err := s.loadContext(ctx, opts)
	if err != nil {
		return nil, err
	}

	logger := logging.WithBuildID(s.logger, buildCtx.BuildID.String())
	logger.Info("build started",
		"posts", len(buildCtx.Posts),
		"tags", len(buildCtx.Tags),
		"pages", len(buildCtx.Pages),
		"dry_run", opts.DryRun,
	)

	result := &BuildResult{
		BuildID:     buildCtx.BuildID.String(),
		Posts:       len(buildCtx.Posts),
		Tags:        len(buildCtx.Tags),
		Skipped:     buildCtx.Skipped,
		DryRun:      opts.DryRun,
		Diagnostics: make([]RenderDiagnostic, 0, len(buildCtx.Pages)),
	}

	siteMeta := SiteMetadata{
		Title:       s.cfg.SiteTitle,
		Description: s.cfg.SiteDescription,
		Author:      s.cfg.SiteAuthor,
		BaseURL:     strings.TrimRight(strings.TrimSpace(s.cfg.BaseURL), "/"),
	}

	baseDir := strings.TrimRight(strings.TrimSpace(s.cfg.OutputDir), "/")
	writer := s.deps.Writer

	if s.cfg.CleanBuild && !opts.DryRun {
		if err := s.Clean(ctx); err != nil {
			return nil, err
		}
	}

	var (
		mu          sync.Mutex
		rendered    = make([]RenderedPage, 0, len(buildCtx.Pages))
		errorsSlice []error
		pageKeys    = map[string]struct{}{}
	)

	manifest := newBuildManifest()
	if s.cfg.Incremental && !s.cfg.CleanBuild {
		loaded, manifestErr := s.loadManifest(ctx, baseDir)
		if manifestErr != nil {
			logger.Warn("manifest unreadable, rebuilding everything", "error", manifestErr)
		} else if loaded != nil {
			manifest = loaded
		}
	}
	// Every planned page counts here, including slug-filtered ones, so the
	// manifest prune below only drops pages that truly left the site.
	renderJobs := make([]*pageJob, 0, len(buildCtx.Pages))
	for _, job := range buildCtx.Pages {
		pageKeys[job.key()] = struct{}{}
		if !job.Filtered {
			renderJobs = append(renderJobs, job)
		}
	}

	collect := func(outcome renderOutcome) {
		mu.Lock()
		defer mu.Unlock()
		result.Diagnostics = append(result.Diagnostics, outcome.diagnostic)
		if outcome.err != nil {
			errorsSlice = append(errorsSlice, outcome.err)
			return
		}
		if outcome.skipped {
			result.PagesSkipped++
			return
		}
		result.PagesBuilt++
		rendered = append(rendered, outcome.page)
	}

	workerCount := s.effectiveWorkerCount(len(renderJobs))
	if workerCount <= 1 || len(renderJobs) <= 1 {
		for _, job := range renderJobs {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			default:
				collect(s.renderPage(ctx, siteMeta, buildCtx, job, manifest, baseDir))
			}
		}
	} else {
		if err := s.renderConcurrently(ctx, siteMeta, buildCtx, renderJobs, workerCount, manifest, baseDir, collect); err != nil {
			errorsSlice = append(errorsSlice, err)
		}
	}

	// Deterministic output regardless of worker scheduling.
	sort.Slice(rendered, func(i, j int) bool {
		return rendered[i].Route < rendered[j].Route
	})

	if opts.DryRun {
		result.Rendered = rendered
		result.Duration = time.Since(start)
		if len(errorsSlice) > 0 {
			result.Errors = append(result.Errors, errorsSlice...)
			return result, errors.Join(errorsSlice...)
		}
		return result, nil
	}

	if err := s.persistPages(ctx, writer, baseDir, rendered); err != nil {
		errorsSlice = append(errorsSlice, err)
	}

	assetSummary, assetKeys, err := s.copyAssets(ctx, writer, manifest, baseDir)
	if err != nil {
		errorsSlice = append(errorsSlice, err)
	} else {
		result.AssetsBuilt += assetSummary.Built
		result.AssetsSkipped += assetSummary.Skipped
	}

	if s.cfg.GenerateSitemap {
		sitemapPages := s.mergeRenderedForSitemap(buildCtx, rendered, manifest)
		if err := s.writeSitemap(ctx, writer, siteMeta, buildCtx, sitemapPages, baseDir); err != nil {
			errorsSlice = append(errorsSlice, err)
		}
	}

	if s.cfg.GenerateRobots {
		if err := s.writeRobots(ctx, writer, siteMeta, baseDir); err != nil {
			errorsSlice = append(errorsSlice, err)
		}
	}

	if s.cfg.GenerateFeeds {
		feeds, err := s.writeFeeds(ctx, writer, siteMeta, buildCtx, baseDir)
		if err != nil {
			errorsSlice = append(errorsSlice, err)
		} else {
			result.FeedsBuilt = feeds
		}
	}

	if len(errorsSlice) == 0 {
		manifest.GeneratedAt = buildCtx.GeneratedAt
		for _, page := range rendered {
			if strings.TrimSpace(page.Checksum) == "" {
				continue
			}
			manifest.setPage(manifestPage{
				Key:          pageKey(pageKind(page.Kind), page.Slug),
				Kind:         page.Kind,
				Slug:         page.Slug,
				Route:        page.Route,
				Output:       page.Output,
				Template:     page.Template,
				Hash:         page.Hash,
				Checksum:     page.Checksum,
				LastModified: page.LastModified,
				RenderedAt:   buildCtx.GeneratedAt,
			})
		}
		// pageKeys spans the whole planned site, so pruning removes only
		// pages whose posts were deleted from the content directory.
		manifest.prunePages(pageKeys)
		manifest.pruneAssets(assetKeys)
		if err := s.persistManifest(ctx, writer, manifest, baseDir); err != nil {
			errorsSlice = append(errorsSlice, err)
		}
	}

	result.Rendered = rendered
	result.Duration = time.Since(start)
	if len(errorsSlice) > 0 {
		result.Errors = append(result.Errors, errorsSlice...)
		logger.Error("build finished with errors",
			"pages_built", result.PagesBuilt, "errors", len(errorsSlice))
		return result, errors.Join(errorsSlice...)
	}
	logger.Info("build finished",
		"pages_built", result.PagesBuilt,
		"pages_skipped", result.PagesSkipped,
		"assets_built", result.AssetsBuilt,
		"feeds_built", result.FeedsBuilt,
		"duration", result.Duration,
	)
	return result, nil
}

// Clean removes the output directory. The manifest goes with it, so the next
// incremental build starts from scratch.
func (s *service) Clean(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	baseDir := strings.TrimRight(strings.TrimSpace(s.cfg.OutputDir), "/")
	if baseDir == "" {
		return errors.New("generator: output directory is required for clean")
	}
	return s.deps.Writer.RemoveAll(ctx, baseDir)
}

func (s *service) renderConcurrently(
	ctx context.Context,
	siteMeta SiteMetadata,
	buildCtx *buildContext,
	renderJobs []*pageJob,
	workers int,
	manifest *buildManifest,
	baseDir string,
	collect func(renderOutcome),
) error {
	jobs := make(chan *pageJob)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
					collect(s.renderPage(ctx, siteMeta, buildCtx, job, manifest, baseDir))
				}
			}
		}()
	}

	for _, job := range renderJobs {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- job:
		}
	}
	close(jobs)
	wg.Wait()
	return nil
}

func (s *service) persistPages(
	ctx context.Context,
	writer ArtifactWriter,
	baseDir string,
	pages []RenderedPage,
) error {
	if len(pages) == 0 {
		return nil
	}
	dirCache := map[string]struct{}{}
	if baseDir != "" {
		dirCache[baseDir] = struct{}{}
		if err := writer.EnsureDir(ctx, baseDir); err != nil {
			return err
		}
	}
	for i := range pages {
		fullPath := joinOutputPath(baseDir, buildOutputPath(pages[i].Route))
		if err := ensureDir(ctx, writer, dirCache, path.Dir(fullPath)); err != nil {
			return err
		}
		checksum := computeHashFromString(pages[i].HTML)
		pages[i].Output = fullPath
		pages[i].Checksum = checksum

		req := writeFileRequest{
			Path:        fullPath,
			Content:     strings.NewReader(pages[i].HTML),
			Size:        int64(len(pages[i].HTML)),
			Category:    categoryPage,
			ContentType: "text/html; charset=utf-8",
			Checksum:    checksum,
			Metadata: map[string]string{
				"kind":     pages[i].Kind,
				"route":    pages[i].Route,
				"template": pages[i].Template,
			},
		}
		if err := writer.WriteFile(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// mergeRenderedForSitemap unions freshly rendered pages with manifest entries
// for pages skipped by the incremental check, so the sitemap always covers the
// whole site.
func (s *service) mergeRenderedForSitemap(
	buildCtx *buildContext,
	rendered []RenderedPage,
	manifest *buildManifest,
) []RenderedPage {
	renderedByKey := make(map[string]RenderedPage, len(rendered))
	for _, page := range rendered {
		renderedByKey[pageKey(pageKind(page.Kind), page.Slug)] = page
	}

	sitemap := make([]RenderedPage, 0, len(buildCtx.Pages))
	for _, job := range buildCtx.Pages {
		key := job.key()
		if page, ok := renderedByKey[key]; ok {
			sitemap = append(sitemap, page)
			continue
		}
		if entry, ok := manifest.lookupPage(key); ok {
			sitemap = append(sitemap, RenderedPage{
				Kind:         entry.Kind,
				Slug:         entry.Slug,
				Route:        entry.Route,
				Output:       entry.Output,
				Template:     entry.Template,
				Hash:         entry.Hash,
				Checksum:     entry.Checksum,
				LastModified: entry.LastModified,
			})
			continue
		}
		sitemap = append(sitemap, RenderedPage{
			Kind:         string(job.Kind),
			Route:        job.Route,
			Template:     job.Template,
			LastModified: job.LastModified,
		})
	}
	return sitemap
}

func (s *service) loadManifest(ctx context.Context, baseDir string) (*buildManifest, error) {
	target := joinOutputPath(baseDir, manifestFileName)
	data, err := s.deps.Writer.ReadFile(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("generator: read manifest: %w", err)
	}
	if len(data) == 0 {
		return newBuildManifest(), nil
	}
	return parseManifest(data)
}

func (s *service) persistManifest(ctx context.Context, writer ArtifactWriter, manifest *buildManifest, baseDir string) error {
	data, err := manifest.marshal()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	target := joinOutputPath(baseDir, manifestFileName)
	if err := ensureDir(ctx, writer, map[string]struct{}{}, path.Dir(target)); err != nil {
		return err
	}
	req := writeFileRequest{
		Path:        target,
		Content:     strings.NewReader(string(data)),
		Size:        int64(len(data)),
		Category:    categoryManifest,
		ContentType: "application/json",
		Checksum:    computeHash(data),
		Metadata: map[string]string{
			"version": strconv.Itoa(manifest.Version),
		},
	}
	return writer.WriteFile(ctx, req)
}

func (s *service) writeSitemap(
	ctx context.Context,
	writer ArtifactWriter,
	siteMeta SiteMetadata,
	buildCtx *buildContext,
	pages []RenderedPage,
	baseDir string,
) error {
	body := buildSitemap(siteMeta.BaseURL, pages, buildCtx.GeneratedAt)
	fullPath := joinOutputPath(baseDir, "sitemap.xml")
	if err := ensureDir(ctx, writer, map[string]struct{}{}, path.Dir(fullPath)); err != nil {
		return err
	}
	return writer.WriteFile(ctx, writeFileRequest{
		Path:        fullPath,
		Content:     strings.NewReader(body),
		Size:        int64(len(body)),
		Category:    categorySitemap,
		ContentType: "application/xml",
		Checksum:    computeHashFromString(body),
		Metadata: map[string]string{
			"generated_at": buildCtx.GeneratedAt.UTC().Format(time.RFC3339),
		},
	})
}

func (s *service) writeRobots(
	ctx context.Context,
	writer ArtifactWriter,
	siteMeta SiteMetadata,
	baseDir string,
) error {
	body := buildRobots(siteMeta.BaseURL, s.cfg.GenerateSitemap)
	fullPath := joinOutputPath(baseDir, "robots.txt")
	if err := ensureDir(ctx, writer, map[string]struct{}{}, path.Dir(fullPath)); err != nil {
		return err
	}
	return writer.WriteFile(ctx, writeFileRequest{
		Path:        fullPath,
		Content:     strings.NewReader(body),
		Size:        int64(len(body)),
		Category:    categoryRobots,
		ContentType: "text/plain; charset=utf-8",
		Checksum:    computeHashFromString(body),
	})
}

func (s *service) effectiveWorkerCount(pageCount int) int {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}
	if pageCount > 0 && workers > pageCount {
		return pageCount
	}
	return workers
}
