package generator

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/goliatone/go-press/internal/content"
	"github.com/goliatone/go-press/internal/themes"
	"github.com/google/uuid"
)

func (s *service) loadContext(ctx context.Context, opts BuildOptions) (*buildContext, error) {
	buildCtx := &buildContext{
		BuildID:     uuid.New(),
		GeneratedAt: s.now().UTC(),
	}

	loaded, err := s.deps.Source.LoadPosts(ctx)
	if err != nil {
		return nil, err
	}
	buildCtx.Skipped = append(buildCtx.Skipped, loaded.Skipped...)

	posts := make([]*content.Post, 0, len(loaded.Posts))
	for _, post := range loaded.Posts {
		if post.Draft && !s.cfg.IncludeDrafts {
			s.logger.Debug("excluding draft", "source_path", post.SourcePath, "slug", post.Slug)
			continue
		}
		if !s.cfg.IncludeFuture && post.Date.After(buildCtx.GeneratedAt) {
			s.logger.Debug("excluding future-dated post", "source_path", post.SourcePath, "slug", post.Slug)
			continue
		}
		posts = append(posts, post)
	}

	if err := content.ValidateUniqueSlugs(posts); err != nil {
		return nil, err
	}
	content.SortPosts(posts)

	buildCtx.Posts = posts
	buildCtx.Tags = content.Tags(posts)
	buildCtx.Pages = s.planPages(buildCtx, opts)
	return buildCtx, nil
}

// planPages lays out every output page for the run. Post pages come first in
// publication order, then the index and tag archives, which depend on the
// full post set for their listings and hashes.
func (s *service) planPages(ctx *buildContext, opts BuildOptions) []*pageJob {
	only := map[string]struct{}{}
	for _, slug := range opts.Slugs {
		slug = strings.ToLower(strings.TrimSpace(slug))
		if slug != "" {
			only[slug] = struct{}{}
		}
	}

	pages := make([]*pageJob, 0, len(ctx.Posts)+len(ctx.Tags)+1)
	for _, post := range ctx.Posts {
		filtered := false
		if len(only) > 0 {
			_, selected := only[post.Slug]
			filtered = !selected
		}
		tmpl := s.postTemplateFor(post)
		pages = append(pages, &pageJob{
			Kind:         kindPost,
			Route:        post.Permalink(),
			Template:     tmpl,
			Post:         post,
			Hash:         computeHashFromString(string(post.Checksum) + "::" + tmpl),
			LastModified: post.LastModified,
			Filtered:     filtered,
		})
	}

	collectionHash := collectionHash(ctx.Posts)
	pages = append(pages, &pageJob{
		Kind:         kindIndex,
		Route:        "/",
		Template:     s.cfg.IndexTemplate,
		Hash:         computeHashFromString(collectionHash + "::" + s.cfg.IndexTemplate),
		LastModified: newestModification(ctx.Posts),
	})

	for i := range ctx.Tags {
		tag := &ctx.Tags[i]
		pages = append(pages, &pageJob{
			Kind:         kindTag,
			Route:        "/tags/" + tag.Slug() + "/",
			Template:     s.cfg.TagTemplate,
			Tag:          tag,
			Hash:         computeHashFromString(collectionHash + "::" + tag.Slug() + "::" + s.cfg.TagTemplate),
			LastModified: newestModification(tag.Posts),
		})
	}
	return pages
}

func (s *service) postTemplateFor(post *content.Post) string {
	if override := strings.TrimSpace(post.Template); override != "" {
		if lookup, ok := s.deps.Renderer.(interface{ Lookup(string) bool }); !ok || lookup.Lookup(override) {
			return override
		}
		s.logger.Warn("template not found, using default",
			"template", post.Template, "slug", post.Slug)
	}
	return s.cfg.PostTemplate
}

func collectionHash(posts []*content.Post) string {
	var builder strings.Builder
	for _, post := range posts {
		builder.WriteString(post.Slug)
		builder.WriteString("\x00")
		builder.Write(post.Checksum)
		builder.WriteString("\x00")
	}
	return computeHashFromString(builder.String())
}

func newestModification(posts []*content.Post) time.Time {
	var newest time.Time
	for _, post := range posts {
		if post.LastModified.After(newest) {
			newest = post.LastModified
		}
	}
	return newest
}

func (s *service) renderPage(
	ctx context.Context,
	siteMeta SiteMetadata,
	buildCtx *buildContext,
	job *pageJob,
	manifest *buildManifest,
	baseDir string,
) renderOutcome {
	outcome := renderOutcome{
		diagnostic: RenderDiagnostic{
			Kind:     string(job.Kind),
			Route:    job.Route,
			Template: job.Template,
		},
	}
	if job.Post != nil {
		outcome.diagnostic.Slug = job.Post.Slug
	} else if job.Tag != nil {
		outcome.diagnostic.Slug = job.Tag.Slug()
	}

	select {
	case <-ctx.Done():
		outcome.err = ctx.Err()
		outcome.diagnostic.Err = ctx.Err()
		return outcome
	default:
	}

	if s.cfg.Incremental && manifest != nil {
		expectedOutput := joinOutputPath(baseDir, buildOutputPath(job.Route))
		if manifest.shouldSkipPage(job.key(), job.Hash, expectedOutput) {
			outcome.skipped = true
			outcome.diagnostic.Skipped = true
			return outcome
		}
	}

	pageCtx, err := s.pageContext(job, buildCtx)
	if err != nil {
		outcome.err = err
		outcome.diagnostic.Err = err
		return outcome
	}

	templateCtx := TemplateContext{
		Site:  siteMeta,
		Page:  pageCtx,
		Theme: s.themeContext(),
		Build: BuildMetadata{
			ID:          buildCtx.BuildID.String(),
			GeneratedAt: buildCtx.GeneratedAt,
			Incremental: s.cfg.Incremental,
		},
	}

	start := time.Now()
	rendered, err := s.deps.Renderer.RenderTemplate(job.Template, templateCtx)
	duration := time.Since(start)
	outcome.diagnostic.Duration = duration
	if err != nil {
		wrapped := fmt.Errorf("generator: render template %q for %s: %w", job.Template, job.Route, err)
		outcome.err = wrapped
		outcome.diagnostic.Err = wrapped
		return outcome
	}

	outcome.page = RenderedPage{
		Kind:         string(job.Kind),
		Slug:         outcome.diagnostic.Slug,
		Route:        job.Route,
		Template:     job.Template,
		HTML:         rendered,
		Hash:         job.Hash,
		LastModified: job.LastModified,
		Duration:     duration,
	}
	return outcome
}

func (s *service) themeContext() themes.Context {
	if s.deps.Themes == nil {
		return themes.Context{}
	}
	return s.deps.Themes.Context()
}

func (s *service) pageContext(job *pageJob, buildCtx *buildContext) (PageContext, error) {
	switch job.Kind {
	case kindPost:
		view, err := s.postView(job.Post, true)
		if err != nil {
			return PageContext{}, err
		}
		return PageContext{
			Kind:  string(kindPost),
			Route: job.Route,
			Title: view.Title,
			Post:  &view,
			Tags:  view.Tags,
		}, nil
	case kindTag:
		views, err := s.postViews(job.Tag.Posts)
		if err != nil {
			return PageContext{}, err
		}
		return PageContext{
			Kind:  string(kindTag),
			Route: job.Route,
			Title: job.Tag.Name,
			Tag:   job.Tag.Name,
			Posts: views,
			Tags:  allTagRefs(buildCtx.Tags),
		}, nil
	default:
		views, err := s.postViews(buildCtx.Posts)
		if err != nil {
			return PageContext{}, err
		}
		return PageContext{
			Kind:  string(kindIndex),
			Route: job.Route,
			Posts: views,
			Tags:  allTagRefs(buildCtx.Tags),
		}, nil
	}
}

// postView projects a post for templates. Markdown is converted here rather
// than at load time so listing pages never pay for bodies they do not show.
func (s *service) postView(post *content.Post, withContent bool) (PostView, error) {
	view := PostView{
		Title:     post.Title,
		Slug:      post.Slug,
		Summary:   post.Summary,
		Author:    post.Author,
		Date:      post.Date,
		Permalink: post.Permalink(),
		Tags:      tagRefs(post.Tags),
		Custom:    post.Custom,
	}
	if !withContent {
		return view, nil
	}
	html := post.BodyHTML
	if len(html) == 0 {
		rendered, err := s.deps.Parser.Parse(post.Body)
		if err != nil {
			return PostView{}, fmt.Errorf("generator: convert markdown for %s: %w", post.SourcePath, err)
		}
		html = rendered
	}
	view.Content = template.HTML(html)
	return view, nil
}

func (s *service) postViews(posts []*content.Post) ([]PostView, error) {
	views := make([]PostView, 0, len(posts))
	for _, post := range posts {
		view, err := s.postView(post, false)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func tagRefs(names []string) []TagRef {
	refs := make([]TagRef, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		refs = append(refs, TagRef{Name: trimmed, Slug: content.TagSlug(trimmed)})
	}
	return refs
}

func allTagRefs(groups []content.TagGroup) []TagRef {
	refs := make([]TagRef, 0, len(groups))
	for _, group := range groups {
		refs = append(refs, TagRef{Name: group.Name, Slug: group.Slug()})
	}
	return refs
}
