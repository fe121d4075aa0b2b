package press_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	press "github.com/goliatone/go-press"
	"github.com/goliatone/go-press/internal/content"
)

func writeSiteFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	contentDir := filepath.Join(root, "content")
	if err := os.MkdirAll(contentDir, 0o755); err != nil {
		t.Fatalf("mkdir content: %v", err)
	}

	posts := map[string]string{
		"2018-02-08-validating-input.md": `---
title: Validating Input
tags:
  - go
  - testing
---

Validation is **not optional** in public handlers.
`,
		"2017-11-08-structured-logging.md": `---
title: Structured Logging
tags:
  - go
---

Log fields beat format strings.
`,
	}
	for name, body := range posts {
		if err := os.WriteFile(filepath.Join(contentDir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write post %s: %v", name, err)
		}
	}

	staticDir := filepath.Join(root, "static")
	if err := os.MkdirAll(filepath.Join(staticDir, "images"), 0o755); err != nil {
		t.Fatalf("mkdir static: %v", err)
	}
	if err := os.WriteFile(filepath.Join(staticDir, "images", "avatar.png"), []byte("png-bytes"), 0o644); err != nil {
		t.Fatalf("write static asset: %v", err)
	}

	return root
}

func fixtureConfig(root string) press.Config {
	cfg := press.DefaultConfig()
	cfg.Site.Title = "Integration Blog"
	cfg.Site.BaseURL = "https://blog.example.com"
	cfg.Content.Dir = filepath.Join(root, "content")
	cfg.Content.StaticDir = filepath.Join(root, "static")
	cfg.Theme.Path = filepath.Join(root, "themes", "missing")
	cfg.Generator.OutputDir = filepath.Join(root, "public")
	cfg.Logging.Provider = "noop"
	return cfg
}

func TestModuleBuildsCompleteSite(t *testing.T) {
	t.Parallel()
	root := writeSiteFixture(t)

	module, err := press.New(fixtureConfig(root))
	if err != nil {
		t.Fatalf("new press module: %v", err)
	}

	result, err := module.Build(context.Background(), press.BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if result.Posts != 2 {
		t.Fatalf("posts = %d, want 2", result.Posts)
	}

	outputDir := filepath.Join(root, "public")
	expected := []string{
		"index.html",
		filepath.Join("posts", "validating-input", "index.html"),
		filepath.Join("posts", "structured-logging", "index.html"),
		filepath.Join("tags", "go", "index.html"),
		filepath.Join("tags", "testing", "index.html"),
		"feed.xml",
		"feed.atom.xml",
		"sitemap.xml",
		"robots.txt",
		filepath.Join("images", "avatar.png"),
	}
	for _, rel := range expected {
		if _, err := os.Stat(filepath.Join(outputDir, rel)); err != nil {
			t.Errorf("missing output file %s: %v", rel, err)
		}
	}

	postHTML, err := os.ReadFile(filepath.Join(outputDir, "posts", "validating-input", "index.html"))
	if err != nil {
		t.Fatalf("read post page: %v", err)
	}
	if !strings.Contains(string(postHTML), "<strong>not optional</strong>") {
		t.Fatal("post body was not rendered through the Markdown parser")
	}
	if !strings.Contains(string(postHTML), "Validating Input") {
		t.Fatal("post title missing from rendered page")
	}

	indexHTML, err := os.ReadFile(filepath.Join(outputDir, "index.html"))
	if err != nil {
		t.Fatalf("read index page: %v", err)
	}
	first := strings.Index(string(indexHTML), "/posts/validating-input/")
	second := strings.Index(string(indexHTML), "/posts/structured-logging/")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("index must list newest post first (positions %d, %d)", first, second)
	}
}

func TestModuleIncrementalRebuildSkipsUnchangedPages(t *testing.T) {
	t.Parallel()
	root := writeSiteFixture(t)

	cfg := fixtureConfig(root)
	cfg.Generator.CleanBuild = false
	cfg.Generator.Incremental = true

	module, err := press.New(cfg)
	if err != nil {
		t.Fatalf("new press module: %v", err)
	}

	if _, err := module.Build(context.Background(), press.BuildOptions{}); err != nil {
		t.Fatalf("first build: %v", err)
	}

	result, err := module.Build(context.Background(), press.BuildOptions{})
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if result.PagesBuilt != 0 {
		t.Fatalf("pages built = %d, want 0 on unchanged rebuild", result.PagesBuilt)
	}
	if result.PagesSkipped == 0 {
		t.Fatal("expected unchanged pages to be skipped")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := press.DefaultConfig()
	cfg.Site.Title = ""
	if _, err := press.New(cfg); err == nil {
		t.Fatal("expected validation error for missing site title")
	}

	cfg = press.DefaultConfig()
	cfg.Content.Dir = filepath.Join(os.TempDir(), "press-missing-content-dir")
	cfg.Logging.Provider = "noop"
	_, err := press.New(cfg)
	if err == nil {
		t.Fatal("expected error for missing content directory")
	}
	if !errors.Is(err, content.ErrContentDirUnreadable) {
		t.Fatalf("error = %v, want ErrContentDirUnreadable", err)
	}
}
