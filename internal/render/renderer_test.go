package render

import (
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-press/internal/generator"
	"github.com/goliatone/go-press/internal/themes"
)

func pageData() generator.TemplateContext {
	date := time.Date(2018, 2, 8, 0, 0, 0, 0, time.UTC)
	post := generator.PostView{
		Title:     "Validating Input",
		Slug:      "validating-input",
		Summary:   "How to validate input",
		Author:    "Jane",
		Date:      date,
		Permalink: "/posts/validating-input/",
		Tags: []generator.TagRef{
			{Name: "dotnet", Slug: "dotnet"},
		},
		Content: template.HTML("<p>Hello <strong>world</strong></p>"),
	}
	return generator.TemplateContext{
		Site: generator.SiteMetadata{
			Title:   "My Blog",
			Author:  "Jane",
			BaseURL: "https://example.com",
		},
		Page: generator.PageContext{
			Kind:  "post",
			Route: post.Permalink,
			Title: post.Title,
			Post:  &post,
			Posts: []generator.PostView{post},
			Tag:   "dotnet",
		},
		Theme: themes.Context{
			CSSVars: map[string]string{"--color-bg": "#fff"},
		},
	}
}

func TestRenderPostTemplate(t *testing.T) {
	renderer, err := New(Config{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	out, err := renderer.RenderTemplate("post.html", pageData())
	if err != nil {
		t.Fatalf("RenderTemplate returned error: %v", err)
	}
	if !strings.Contains(out, "<h1>Validating Input</h1>") {
		t.Fatalf("expected post title, got:\n%s", out)
	}
	if !strings.Contains(out, "<p>Hello <strong>world</strong></p>") {
		t.Fatal("rendered Markdown must be injected without escaping")
	}
	if !strings.Contains(out, `href="https://example.com/tags/dotnet/"`) {
		t.Fatal("expected tag archive link")
	}
	if !strings.Contains(out, "--color-bg: #fff") {
		t.Fatal("expected theme CSS variables in head")
	}
}

func TestRenderIndexTemplate(t *testing.T) {
	renderer, err := New(Config{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	data := pageData()
	data.Page.Kind = "index"
	data.Page.Post = nil
	data.Page.Title = ""

	out, err := renderer.RenderTemplate("index.html", data)
	if err != nil {
		t.Fatalf("RenderTemplate returned error: %v", err)
	}
	if !strings.Contains(out, `href="https://example.com/posts/validating-input/"`) {
		t.Fatal("expected permalink in index listing")
	}
	if !strings.Contains(out, "2018-02-08") {
		t.Fatal("expected machine-readable date")
	}
	if !strings.Contains(out, "<title>My Blog</title>") {
		t.Fatalf("expected bare site title on index, got:\n%s", out)
	}
}

func TestThemeTemplatesOverrideDefaults(t *testing.T) {
	dir := t.TempDir()
	custom := `{{define "post.html"}}custom: {{.Page.Post.Title}}{{end}}`
	if err := os.WriteFile(filepath.Join(dir, "post.html"), []byte(custom), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	renderer, err := New(Config{TemplatesDir: dir})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	out, err := renderer.RenderTemplate("post.html", pageData())
	if err != nil {
		t.Fatalf("RenderTemplate returned error: %v", err)
	}
	if out != "custom: Validating Input" {
		t.Fatalf("expected theme template to win, got %q", out)
	}

	// Untouched templates still come from the embedded set.
	if !renderer.Lookup("index.html") {
		t.Fatal("expected embedded index.html to remain registered")
	}
}

func TestRenderTemplateUnknownName(t *testing.T) {
	renderer, err := New(Config{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := renderer.RenderTemplate("missing.html", pageData()); err == nil {
		t.Fatal("expected error for unknown template")
	}
	if renderer.Lookup("missing.html") {
		t.Fatal("Lookup must not report unknown templates")
	}
}

func TestFormatDateBuiltin(t *testing.T) {
	renderer, err := New(Config{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	out, err := renderer.RenderTemplate("post.html", pageData())
	if err != nil {
		t.Fatalf("RenderTemplate returned error: %v", err)
	}
	if !strings.Contains(out, "February 8, 2018") {
		t.Fatalf("expected human-readable date, got:\n%s", out)
	}
}
