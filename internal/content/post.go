package content

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-press/internal/markdown"
	"github.com/goliatone/go-press/pkg/interfaces"
)

// filenamePattern captures the publication date and slug encoded in a post
// filename, e.g. "2018-02-08-validating-input-in-dotnet.md".
var filenamePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.+)$`)

const filenameDateLayout = "2006-01-02"

// Post is an immutable value object describing a single blog entry. The date
// is derived from the filename convention YYYY-MM-DD-slug; the slug doubles as
// the permalink segment and must be unique across the site.
type Post struct {
	Title        string
	Author       string
	Tags         []string
	Date         time.Time
	Slug         string
	Summary      string
	Template     string
	Draft        bool
	SourcePath   string
	Body         []byte
	BodyHTML     []byte
	Custom       map[string]any
	Checksum     []byte
	LastModified time.Time
}

// Permalink returns the stable output URL path for the post.
func (p *Post) Permalink() string {
	return "/posts/" + p.Slug + "/"
}

// ParsePost converts a raw Markdown document into a Post. The front matter
// block is mandatory; the publication date comes from the filename and the
// slug from the filename remainder unless the front matter overrides it.
// Errors wrap the package sentinels so callers can classify failures.
func ParsePost(sourcePath string, raw []byte, modified time.Time) (*Post, error) {
	date, fileSlug, err := parseFilename(sourcePath)
	if err != nil {
		return nil, &ParseError{Path: sourcePath, Err: err}
	}

	doc, err := markdown.BuildDocument(sourcePath, raw, modified)
	if err != nil {
		return nil, &ParseError{Path: sourcePath, Err: classifyDocumentError(err)}
	}

	post, err := postFromDocument(doc, date, fileSlug)
	if err != nil {
		return nil, &ParseError{Path: sourcePath, Err: err}
	}
	return post, nil
}

// PostFromDocument builds a Post from an already loaded document, deriving
// date and slug from the document's file path.
func PostFromDocument(doc *interfaces.Document) (*Post, error) {
	if doc == nil {
		return nil, errors.New("content: document is nil")
	}
	date, fileSlug, err := parseFilename(doc.FilePath)
	if err != nil {
		return nil, &ParseError{Path: doc.FilePath, Err: err}
	}
	post, err := postFromDocument(doc, date, fileSlug)
	if err != nil {
		return nil, &ParseError{Path: doc.FilePath, Err: err}
	}
	return post, nil
}

func postFromDocument(doc *interfaces.Document, date time.Time, fileSlug string) (*Post, error) {
	meta := doc.FrontMatter

	slugValue := fileSlug
	if override := strings.TrimSpace(meta.Slug); override != "" {
		slugValue = override
	}
	normalized, err := NormalizeSlug(slugValue)
	if err != nil || normalized == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlug, slugValue)
	}

	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = titleFromSlug(normalized)
	}

	return &Post{
		Title:        title,
		Author:       strings.TrimSpace(meta.Author),
		Tags:         append([]string(nil), meta.Tags...),
		Date:         date,
		Slug:         normalized,
		Summary:      strings.TrimSpace(meta.Summary),
		Template:     strings.TrimSpace(meta.Template),
		Draft:        meta.Draft,
		SourcePath:   doc.FilePath,
		Body:         doc.Body,
		Custom:       meta.Custom,
		Checksum:     doc.Checksum,
		LastModified: doc.LastModified,
	}, nil
}

// parseFilename splits a post filename into its embedded publication date and
// slug remainder. The date must be a real calendar date; 2018-02-30 fails.
func parseFilename(sourcePath string) (time.Time, string, error) {
	base := path.Base(strings.TrimSpace(filepathToSlash(sourcePath)))
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}

	match := filenamePattern.FindStringSubmatch(base)
	if match == nil {
		return time.Time{}, "", fmt.Errorf("%w: %q", ErrInvalidDate, base)
	}

	date, err := time.Parse(filenameDateLayout, match[1])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %q", ErrInvalidDate, match[1])
	}
	return date.UTC(), match[2], nil
}

func filepathToSlash(value string) string {
	return strings.ReplaceAll(value, "\\", "/")
}

// classifyDocumentError maps markdown layer failures onto the content error
// taxonomy so callers only need the sentinels in this package.
func classifyDocumentError(err error) error {
	if errors.Is(err, markdown.ErrFrontMatter) {
		return fmt.Errorf("%w: %v", ErrMalformedFrontMatter, err)
	}
	return err
}

func titleFromSlug(slugValue string) string {
	words := strings.Split(slugValue, "-")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// SortPosts orders posts by publication date descending; ties are broken by
// ascending source filename so the ordering is a stable total order.
func SortPosts(posts []*Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].Date.Equal(posts[j].Date) {
			return posts[i].Date.After(posts[j].Date)
		}
		return posts[i].SourcePath < posts[j].SourcePath
	})
}

// ValidateUniqueSlugs rejects post sets where two entries resolve to the same
// permalink. The first conflict found is returned; slugs are compared after
// normalization so the check matches output paths exactly.
func ValidateUniqueSlugs(posts []*Post) error {
	seen := make(map[string]string, len(posts))
	for _, post := range posts {
		if existing, ok := seen[post.Slug]; ok {
			sources := []string{existing, post.SourcePath}
			sort.Strings(sources)
			return &DuplicateSlugError{Slug: post.Slug, Sources: sources}
		}
		seen[post.Slug] = post.SourcePath
	}
	return nil
}

// Tags aggregates the distinct tags across posts, each with the posts carrying
// it in the supplied order. Groups are keyed by the normalized archive slug so
// spellings that share an output route ("go lang", "Go-Lang") merge into one
// archive instead of overwriting each other; the authored casing of the first
// occurrence names the group.
func Tags(posts []*Post) []TagGroup {
	index := map[string]int{}
	var groups []TagGroup
	for _, post := range posts {
		seen := map[string]struct{}{}
		for _, tag := range post.Tags {
			trimmed := strings.TrimSpace(tag)
			if trimmed == "" {
				continue
			}
			key := TagSlug(trimmed)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			pos, ok := index[key]
			if !ok {
				pos = len(groups)
				index[key] = pos
				groups = append(groups, TagGroup{Name: trimmed})
			}
			groups[pos].Posts = append(groups[pos].Posts, post)
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Slug() < groups[j].Slug()
	})
	return groups
}

// TagGroup pairs a tag with the posts that carry it.
type TagGroup struct {
	Name  string
	Posts []*Post
}

// Slug returns the URL-safe permalink segment for the tag archive page.
func (g TagGroup) Slug() string {
	return TagSlug(g.Name)
}

// TagSlug derives the archive route segment for a tag name.
func TagSlug(name string) string {
	normalized, err := NormalizeSlug(name)
	if err != nil || normalized == "" {
		return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
	}
	return normalized
}
