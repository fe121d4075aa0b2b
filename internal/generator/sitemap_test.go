package generator

import (
	"strings"
	"testing"
	"time"
)

func TestBuildSitemapSortedAndDeduplicated(t *testing.T) {
	fallback := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pages := []RenderedPage{
		{Route: "/posts/zulu/", LastModified: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)},
		{Route: "/posts/alpha/"},
		{Route: "/posts/alpha/"},
		{Route: "/"},
	}

	out := buildSitemap("https://blog.example.com/", pages, fallback)

	if strings.Count(out, "<loc>https://blog.example.com/posts/alpha/</loc>") != 1 {
		t.Fatalf("duplicate locations must collapse:\n%s", out)
	}
	if !strings.Contains(out, "<loc>https://blog.example.com/</loc>") {
		t.Fatal("expected root URL entry")
	}

	root := strings.Index(out, "<loc>https://blog.example.com/</loc>")
	alpha := strings.Index(out, "<loc>https://blog.example.com/posts/alpha/</loc>")
	zulu := strings.Index(out, "<loc>https://blog.example.com/posts/zulu/</loc>")
	if !(root < alpha && alpha < zulu) {
		t.Fatalf("entries must sort by location:\n%s", out)
	}

	if !strings.Contains(out, "2023-06-01T00:00:00Z") {
		t.Fatal("expected page modification time")
	}
	if !strings.Contains(out, "2024-01-01T00:00:00Z") {
		t.Fatal("expected fallback time for pages without one")
	}
}

func TestBuildRobots(t *testing.T) {
	out := buildRobots("https://blog.example.com", true)
	if !strings.Contains(out, "User-agent: *") || !strings.Contains(out, "Allow: /") {
		t.Fatalf("unexpected robots body:\n%s", out)
	}
	if !strings.Contains(out, "Sitemap: https://blog.example.com/sitemap.xml") {
		t.Fatal("expected sitemap reference")
	}

	out = buildRobots("", false)
	if strings.Contains(out, "Sitemap:") {
		t.Fatal("sitemap reference must be omitted when disabled")
	}
}
