package content

import (
	"errors"
	"testing"
	"time"
)

func postDoc(title, extra string) []byte {
	doc := "---\ntitle: " + title + "\n" + extra + "---\n\nBody text.\n"
	return []byte(doc)
}

func TestParsePostDerivesDateAndSlugFromFilename(t *testing.T) {
	raw := postDoc("Validating input in Asp.Net Core", "tags:\n  - dotnet\n  - security\n")
	post, err := ParsePost("2018-02-08-validating-input-in-asp-net-core.md", raw, time.Time{})
	if err != nil {
		t.Fatalf("ParsePost returned error: %v", err)
	}

	wantDate := time.Date(2018, 2, 8, 0, 0, 0, 0, time.UTC)
	if !post.Date.Equal(wantDate) {
		t.Fatalf("expected date %v, got %v", wantDate, post.Date)
	}
	if post.Slug != "validating-input-in-asp-net-core" {
		t.Fatalf("unexpected slug %q", post.Slug)
	}
	if post.Permalink() != "/posts/validating-input-in-asp-net-core/" {
		t.Fatalf("unexpected permalink %q", post.Permalink())
	}
	if len(post.Tags) != 2 || post.Tags[0] != "dotnet" {
		t.Fatalf("unexpected tags %v", post.Tags)
	}
}

func TestParsePostFrontMatterSlugOverridesFilename(t *testing.T) {
	raw := postDoc("Custom", "slug: custom-permalink\n")
	post, err := ParsePost("2020-01-15-original-name.md", raw, time.Time{})
	if err != nil {
		t.Fatalf("ParsePost returned error: %v", err)
	}
	if post.Slug != "custom-permalink" {
		t.Fatalf("expected front matter slug to win, got %q", post.Slug)
	}
	wantDate := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)
	if !post.Date.Equal(wantDate) {
		t.Fatalf("date must still come from the filename, got %v", post.Date)
	}
}

func TestParsePostTitleFallsBackToSlug(t *testing.T) {
	raw := []byte("---\ndraft: false\n---\n\nBody.\n")
	post, err := ParsePost("2021-06-01-writing-good-tests.md", raw, time.Time{})
	if err != nil {
		t.Fatalf("ParsePost returned error: %v", err)
	}
	if post.Title != "Writing Good Tests" {
		t.Fatalf("unexpected fallback title %q", post.Title)
	}
}

func TestParsePostRejectsInvalidFilenames(t *testing.T) {
	cases := []struct {
		name string
		file string
	}{
		{"no date prefix", "about.md"},
		{"impossible date", "2018-02-30-not-a-real-day.md"},
		{"bad month", "2018-13-01-bad-month.md"},
		{"truncated", "2018-02-post.md"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePost(tc.file, postDoc("T", ""), time.Time{})
			if !errors.Is(err, ErrInvalidDate) {
				t.Fatalf("expected ErrInvalidDate for %s, got %v", tc.file, err)
			}
		})
	}
}

func TestParsePostRejectsMissingFrontMatter(t *testing.T) {
	_, err := ParsePost("2018-02-08-no-meta.md", []byte("# Just markdown\n"), time.Time{})
	if !errors.Is(err, ErrMalformedFrontMatter) {
		t.Fatalf("expected ErrMalformedFrontMatter, got %v", err)
	}
}

func TestParsePostRejectsMalformedFrontMatter(t *testing.T) {
	raw := []byte("---\ntitle: [unclosed\n---\n\nBody.\n")
	_, err := ParsePost("2018-02-08-broken.md", raw, time.Time{})
	if !errors.Is(err, ErrMalformedFrontMatter) {
		t.Fatalf("expected ErrMalformedFrontMatter, got %v", err)
	}
}

func TestSortPostsNewestFirstWithStableTieBreak(t *testing.T) {
	posts := []*Post{
		{Slug: "older", Date: time.Date(2017, 11, 8, 0, 0, 0, 0, time.UTC), SourcePath: "2017-11-08-older.md"},
		{Slug: "newer", Date: time.Date(2018, 2, 8, 0, 0, 0, 0, time.UTC), SourcePath: "2018-02-08-newer.md"},
		{Slug: "tie-b", Date: time.Date(2018, 2, 8, 0, 0, 0, 0, time.UTC), SourcePath: "2018-02-08-tie-b.md"},
		{Slug: "tie-a", Date: time.Date(2018, 2, 8, 0, 0, 0, 0, time.UTC), SourcePath: "2018-02-08-tie-a.md"},
	}
	SortPosts(posts)

	got := []string{posts[0].Slug, posts[1].Slug, posts[2].Slug, posts[3].Slug}
	want := []string{"newer", "tie-a", "tie-b", "older"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order %v, want %v", got, want)
		}
	}
}

func TestValidateUniqueSlugs(t *testing.T) {
	posts := []*Post{
		{Slug: "one", SourcePath: "2020-01-01-one.md"},
		{Slug: "two", SourcePath: "2020-01-02-two.md"},
	}
	if err := ValidateUniqueSlugs(posts); err != nil {
		t.Fatalf("unexpected error for unique slugs: %v", err)
	}

	posts = append(posts, &Post{Slug: "one", SourcePath: "2020-01-03-one-again.md"})
	err := ValidateUniqueSlugs(posts)
	if !errors.Is(err, ErrDuplicateSlug) {
		t.Fatalf("expected ErrDuplicateSlug, got %v", err)
	}
	var dup *DuplicateSlugError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateSlugError, got %T", err)
	}
	if dup.Slug != "one" || len(dup.Sources) != 2 {
		t.Fatalf("unexpected conflict detail: %+v", dup)
	}
}

func TestTagsGroupsCaseInsensitively(t *testing.T) {
	posts := []*Post{
		{Slug: "a", Tags: []string{"Go", "testing"}},
		{Slug: "b", Tags: []string{"go"}},
		{Slug: "c", Tags: []string{"  ", "Testing"}},
	}
	groups := Tags(posts)
	if len(groups) != 2 {
		t.Fatalf("expected 2 tag groups, got %d", len(groups))
	}
	if groups[0].Name != "Go" || len(groups[0].Posts) != 2 {
		t.Fatalf("unexpected first group %q with %d posts", groups[0].Name, len(groups[0].Posts))
	}
	if groups[1].Name != "testing" || len(groups[1].Posts) != 2 {
		t.Fatalf("unexpected second group %q with %d posts", groups[1].Name, len(groups[1].Posts))
	}
}

func TestTagsMergeSpellingsSharingASlug(t *testing.T) {
	posts := []*Post{
		{Slug: "a", Tags: []string{"go lang"}},
		{Slug: "b", Tags: []string{"Go-Lang"}},
		{Slug: "c", Tags: []string{"go lang", "Go-Lang"}},
	}
	groups := Tags(posts)
	if len(groups) != 1 {
		t.Fatalf("expected 1 tag group, got %d", len(groups))
	}
	group := groups[0]
	if group.Slug() != "go-lang" {
		t.Fatalf("group slug = %q, want go-lang", group.Slug())
	}
	if group.Name != "go lang" {
		t.Fatalf("group name = %q, want first-seen spelling", group.Name)
	}
	if len(group.Posts) != 3 {
		t.Fatalf("expected all 3 posts in the group, got %d", len(group.Posts))
	}
	// Post c carries both spellings but must appear once.
	seen := map[string]int{}
	for _, post := range group.Posts {
		seen[post.Slug]++
	}
	if seen["c"] != 1 {
		t.Fatalf("post c appears %d times, want 1", seen["c"])
	}
}

func TestTagSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Go", "go"},
		{"Static Sites", "static-sites"},
		{"unit testing", "unit-testing"},
	}
	for _, tc := range cases {
		if got := TagSlug(tc.in); got != tc.want {
			t.Fatalf("TagSlug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
