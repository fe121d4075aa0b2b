package generator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-press/internal/content"
	"github.com/goliatone/go-press/internal/markdown"
	"github.com/goliatone/go-press/internal/render"
	"github.com/goliatone/go-press/pkg/interfaces"
)

// memWriter keeps build artifacts in memory so tests can assert on output
// without touching the filesystem.
type memWriter struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]struct{}
}

func newMemWriter() *memWriter {
	return &memWriter{
		files: map[string][]byte{},
		dirs:  map[string]struct{}{},
	}
}

func (w *memWriter) EnsureDir(_ context.Context, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dirs[path] = struct{}{}
	return nil
}

func (w *memWriter) WriteFile(_ context.Context, req writeFileRequest) error {
	data, err := io.ReadAll(req.Content)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[req.Path] = data
	return nil
}

func (w *memWriter) ReadFile(_ context.Context, path string) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	data, ok := w.files[path]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (w *memWriter) RemoveAll(_ context.Context, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for name := range w.files {
		if name == path || strings.HasPrefix(name, path+"/") {
			delete(w.files, name)
		}
	}
	return nil
}

func (w *memWriter) content(path string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.files[path])
}

func (w *memWriter) has(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.files[path]
	return ok
}

func (w *memWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.files)
}

func postSource(title, tags string) string {
	var b strings.Builder
	b.WriteString("---\ntitle: ")
	b.WriteString(title)
	b.WriteString("\n")
	if tags != "" {
		b.WriteString("tags:\n")
		for _, tag := range strings.Split(tags, ",") {
			b.WriteString("  - ")
			b.WriteString(tag)
			b.WriteString("\n")
		}
	}
	b.WriteString("---\n\nSome **bold** body for ")
	b.WriteString(title)
	b.WriteString(".\n")
	return b.String()
}

func siteFS() fstest.MapFS {
	modTime := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	return fstest.MapFS{
		"2018-02-08-newer-post.md": {Data: []byte(postSource("Newer Post", "go,testing")), ModTime: modTime},
		"2017-11-08-older-post.md": {Data: []byte(postSource("Older Post", "go")), ModTime: modTime},
		"2019-05-01-draft-post.md": {
			Data:    []byte("---\ntitle: Draft Post\ndraft: true\n---\n\nUnfinished.\n"),
			ModTime: modTime,
		},
		"2099-01-01-future-post.md": {Data: []byte(postSource("Future Post", "")), ModTime: modTime},
		"2020-01-01-malformed.md":   {Data: []byte("no front matter here\n"), ModTime: modTime},
	}
}

func testService(t *testing.T, fsys fstest.MapFS, cfg Config, writer ArtifactWriter) Service {
	t.Helper()
	source := content.NewSourceFS(fsys, content.SourceConfig{BasePath: "."})
	renderer, err := render.New(render.Config{})
	if err != nil {
		t.Fatalf("render.New returned error: %v", err)
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "public"
	}
	if cfg.SiteTitle == "" {
		cfg.SiteTitle = "Test Blog"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://blog.example.com"
	}
	return NewService(cfg, Dependencies{
		Source:   source,
		Parser:   markdown.NewGoldmarkParser(interfaces.ParseOptions{}),
		Renderer: renderer,
		Writer:   writer,
	})
}

func TestBuildProducesCompleteSite(t *testing.T) {
	writer := newMemWriter()
	svc := testService(t, siteFS(), Config{
		GenerateSitemap: true,
		GenerateRobots:  true,
		GenerateFeeds:   true,
	}, writer)

	result, err := svc.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	// Two published posts; draft and future excluded, malformed skipped.
	if result.Posts != 2 {
		t.Fatalf("expected 2 posts, got %d", result.Posts)
	}
	if len(result.Skipped) != 1 {
		t.Fatalf("expected 1 skipped document, got %+v", result.Skipped)
	}
	if !errors.Is(result.Skipped[0].Err, content.ErrMalformedFrontMatter) {
		t.Fatalf("unexpected skip reason: %v", result.Skipped[0].Err)
	}

	// Index, two posts, two tag archives.
	if result.PagesBuilt != 5 {
		t.Fatalf("expected 5 pages, got %d", result.PagesBuilt)
	}

	for _, path := range []string{
		"public/index.html",
		"public/posts/newer-post/index.html",
		"public/posts/older-post/index.html",
		"public/tags/go/index.html",
		"public/tags/testing/index.html",
		"public/sitemap.xml",
		"public/robots.txt",
		"public/feed.xml",
		"public/feed.atom.xml",
		"public/.press-manifest.json",
	} {
		if !writer.has(path) {
			t.Fatalf("missing output %s", path)
		}
	}

	if writer.has("public/posts/draft-post/index.html") {
		t.Fatal("draft post must not be published")
	}
	if writer.has("public/posts/future-post/index.html") {
		t.Fatal("future-dated post must not be published")
	}
}

func TestBuildIndexListsPostsNewestFirst(t *testing.T) {
	writer := newMemWriter()
	svc := testService(t, siteFS(), Config{}, writer)

	if _, err := svc.Build(context.Background(), BuildOptions{}); err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	index := writer.content("public/index.html")
	newer := strings.Index(index, "Newer Post")
	older := strings.Index(index, "Older Post")
	if newer < 0 || older < 0 {
		t.Fatalf("expected both posts in index:\n%s", index)
	}
	if newer > older {
		t.Fatal("index must list newest posts first")
	}
}

func TestBuildRendersMarkdownBody(t *testing.T) {
	writer := newMemWriter()
	svc := testService(t, siteFS(), Config{}, writer)

	if _, err := svc.Build(context.Background(), BuildOptions{}); err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	page := writer.content("public/posts/newer-post/index.html")
	if !strings.Contains(page, "<strong>bold</strong>") {
		t.Fatalf("expected converted Markdown in post page:\n%s", page)
	}
}

func TestBuildFailsOnDuplicateSlugs(t *testing.T) {
	modTime := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	fsys := fstest.MapFS{
		"2020-01-01-same.md": {Data: []byte(postSource("First", "")), ModTime: modTime},
		"2020-02-01-other.md": {
			Data:    []byte("---\ntitle: Second\nslug: same\n---\n\nBody.\n"),
			ModTime: modTime,
		},
	}
	writer := newMemWriter()
	svc := testService(t, fsys, Config{}, writer)

	_, err := svc.Build(context.Background(), BuildOptions{})
	if !errors.Is(err, content.ErrDuplicateSlug) {
		t.Fatalf("expected ErrDuplicateSlug, got %v", err)
	}
	if writer.count() != 0 {
		t.Fatal("no output may be written when the build aborts")
	}
}

func TestBuildDryRunWritesNothing(t *testing.T) {
	writer := newMemWriter()
	svc := testService(t, siteFS(), Config{GenerateFeeds: true}, writer)

	result, err := svc.Build(context.Background(), BuildOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if result.PagesBuilt == 0 {
		t.Fatal("dry run must still render pages")
	}
	if writer.count() != 0 {
		t.Fatalf("dry run wrote %d files", writer.count())
	}
}

func TestBuildIncrementalSkipsUnchangedPages(t *testing.T) {
	writer := newMemWriter()
	fsys := siteFS()
	svc := testService(t, fsys, Config{Incremental: true}, writer)

	first, err := svc.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("first build returned error: %v", err)
	}
	if first.PagesSkipped != 0 {
		t.Fatalf("first build must render everything, skipped %d", first.PagesSkipped)
	}

	second, err := svc.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("second build returned error: %v", err)
	}
	if second.PagesBuilt != 0 {
		t.Fatalf("unchanged site must skip all pages, built %d", second.PagesBuilt)
	}
	if second.PagesSkipped != first.PagesBuilt {
		t.Fatalf("expected %d skips, got %d", first.PagesBuilt, second.PagesSkipped)
	}
}

func TestBuildIncrementalRebuildsChangedPost(t *testing.T) {
	writer := newMemWriter()
	fsys := siteFS()
	svc := testService(t, fsys, Config{Incremental: true}, writer)

	if _, err := svc.Build(context.Background(), BuildOptions{}); err != nil {
		t.Fatalf("first build returned error: %v", err)
	}

	fsys["2018-02-08-newer-post.md"] = &fstest.MapFile{
		Data:    []byte(postSource("Newer Post Edited", "go,testing")),
		ModTime: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
	}

	second, err := svc.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("second build returned error: %v", err)
	}
	// Edited post plus index and both tag archives depend on its checksum.
	if second.PagesBuilt != 4 {
		t.Fatalf("expected 4 rebuilt pages, got %d", second.PagesBuilt)
	}
	if !strings.Contains(writer.content("public/posts/newer-post/index.html"), "Newer Post Edited") {
		t.Fatal("expected updated post content")
	}
}

func TestBuildDeterministicOutput(t *testing.T) {
	writerA := newMemWriter()
	writerB := newMemWriter()

	if _, err := testService(t, siteFS(), Config{Workers: 4}, writerA).Build(context.Background(), BuildOptions{}); err != nil {
		t.Fatalf("build A returned error: %v", err)
	}
	if _, err := testService(t, siteFS(), Config{Workers: 1}, writerB).Build(context.Background(), BuildOptions{}); err != nil {
		t.Fatalf("build B returned error: %v", err)
	}

	for _, path := range []string{
		"public/index.html",
		"public/posts/newer-post/index.html",
		"public/tags/go/index.html",
	} {
		if !bytes.Equal([]byte(writerA.content(path)), []byte(writerB.content(path))) {
			t.Fatalf("output %s differs between worker counts", path)
		}
	}
}

func TestBuildSlugFilter(t *testing.T) {
	writer := newMemWriter()
	svc := testService(t, siteFS(), Config{}, writer)

	if _, err := svc.Build(context.Background(), BuildOptions{Slugs: []string{"newer-post"}}); err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !writer.has("public/posts/newer-post/index.html") {
		t.Fatal("expected filtered post to be written")
	}
	if writer.has("public/posts/older-post/index.html") {
		t.Fatal("unselected post must not be written")
	}
	// Listings still cover the full post set.
	if !strings.Contains(writer.content("public/index.html"), "Older Post") {
		t.Fatal("index must still list all posts")
	}
}

func TestBuildMergesTagSpellingsIntoOneArchive(t *testing.T) {
	modTime := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	fsys := fstest.MapFS{
		"2018-02-08-post-a.md": {Data: []byte(postSource("Post A", "go lang")), ModTime: modTime},
		"2017-11-08-post-b.md": {Data: []byte(postSource("Post B", "Go-Lang")), ModTime: modTime},
	}
	writer := newMemWriter()
	svc := testService(t, fsys, Config{}, writer)

	result, err := svc.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if result.Tags != 1 {
		t.Fatalf("tags = %d, want 1 merged group", result.Tags)
	}

	archive := writer.content("public/tags/go-lang/index.html")
	if archive == "" {
		t.Fatal("missing merged tag archive page")
	}
	if !strings.Contains(archive, "Post A") || !strings.Contains(archive, "Post B") {
		t.Fatalf("archive must list both posts, got:\n%s", archive)
	}
}

func TestBuildSlugFilterKeepsUnselectedPagesInManifestAndSitemap(t *testing.T) {
	writer := newMemWriter()
	svc := testService(t, siteFS(), Config{
		GenerateSitemap: true,
		Incremental:     true,
	}, writer)

	if _, err := svc.Build(context.Background(), BuildOptions{}); err != nil {
		t.Fatalf("full build returned error: %v", err)
	}
	if !strings.Contains(writer.content("public/sitemap.xml"), "/posts/older-post/") {
		t.Fatal("full build sitemap must list older-post")
	}

	if _, err := svc.Build(context.Background(), BuildOptions{Slugs: []string{"newer-post"}}); err != nil {
		t.Fatalf("filtered build returned error: %v", err)
	}

	sitemap := writer.content("public/sitemap.xml")
	if !strings.Contains(sitemap, "/posts/older-post/") {
		t.Fatalf("filtered build dropped older-post from sitemap:\n%s", sitemap)
	}
	if !writer.has("public/posts/older-post/index.html") {
		t.Fatal("older-post page must survive a filtered build")
	}
	manifest := writer.content("public/.press-manifest.json")
	if !strings.Contains(manifest, "post::older-post") {
		t.Fatalf("filtered build pruned older-post from manifest:\n%s", manifest)
	}

	// The next full incremental build sees nothing changed.
	result, err := svc.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("follow-up build returned error: %v", err)
	}
	if result.PagesBuilt != 0 {
		t.Fatalf("follow-up build rebuilt %d pages, want 0", result.PagesBuilt)
	}
}

func TestCleanRemovesOutput(t *testing.T) {
	writer := newMemWriter()
	svc := testService(t, siteFS(), Config{}, writer)

	if _, err := svc.Build(context.Background(), BuildOptions{}); err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if writer.count() == 0 {
		t.Fatal("expected build output")
	}
	if err := svc.Clean(context.Background()); err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if writer.count() != 0 {
		t.Fatalf("expected empty output after clean, %d files remain", writer.count())
	}
}
