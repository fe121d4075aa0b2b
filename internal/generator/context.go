package generator

import (
	"html/template"
	"time"

	"github.com/goliatone/go-press/internal/content"
	"github.com/goliatone/go-press/internal/themes"
	"github.com/google/uuid"
)

type pageKind string

const (
	kindIndex pageKind = "index"
	kindPost  pageKind = "post"
	kindTag   pageKind = "tag"
)

// pageJob describes a single output page prior to rendering. Filtered marks
// pages excluded from the current run by a slug filter; they are not rendered
// but still count as part of the site for the manifest and sitemap.
type pageJob struct {
	Kind         pageKind
	Route        string
	Template     string
	Post         *content.Post
	Tag          *content.TagGroup
	Hash         string
	LastModified time.Time
	Filtered     bool
}

func (j *pageJob) key() string {
	switch j.Kind {
	case kindPost:
		if j.Post != nil {
			return pageKey(kindPost, j.Post.Slug)
		}
	case kindTag:
		if j.Tag != nil {
			return pageKey(kindTag, j.Tag.Slug())
		}
	}
	return pageKey(j.Kind, "")
}

// buildContext aggregates everything loaded for a single build run.
type buildContext struct {
	BuildID     uuid.UUID
	GeneratedAt time.Time
	Posts       []*content.Post
	Tags        []content.TagGroup
	Pages       []*pageJob
	Skipped     []content.Diagnostic
}

// SiteMetadata exposes site-wide values to templates.
type SiteMetadata struct {
	Title       string
	Description string
	Author      string
	BaseURL     string
}

// BuildMetadata exposes build provenance to templates.
type BuildMetadata struct {
	ID          string
	GeneratedAt time.Time
	Incremental bool
}

// TagRef is a tag name paired with its archive route segment.
type TagRef struct {
	Name string
	Slug string
}

// PostView is the template-facing projection of a post. Content carries the
// rendered Markdown and is injected without further escaping.
type PostView struct {
	Title     string
	Slug      string
	Summary   string
	Author    string
	Date      time.Time
	Permalink string
	Tags      []TagRef
	Content   template.HTML
	Custom    map[string]any
}

// PageContext describes the page being rendered. Exactly one of Post or Tag
// is set depending on Kind; Posts carries the listing for index and tag pages.
type PageContext struct {
	Kind  string
	Route string
	Title string
	Post  *PostView
	Posts []PostView
	Tag   string
	Tags  []TagRef
}

// TemplateContext is the root object handed to every page template.
type TemplateContext struct {
	Site  SiteMetadata
	Page  PageContext
	Theme themes.Context
	Build BuildMetadata
}

// RenderedPage captures one produced HTML document.
type RenderedPage struct {
	Kind         string
	Slug         string
	Route        string
	Template     string
	HTML         string
	Output       string
	Checksum     string
	Hash         string
	LastModified time.Time
	Duration     time.Duration
}

// RenderDiagnostic reports the outcome of rendering one page.
type RenderDiagnostic struct {
	Kind     string
	Slug     string
	Route    string
	Template string
	Duration time.Duration
	Skipped  bool
	Err      error
}

type renderOutcome struct {
	diagnostic RenderDiagnostic
	page       RenderedPage
	skipped    bool
	err        error
}
