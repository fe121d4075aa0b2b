package generator

import "testing"

func TestBuildOutputPath(t *testing.T) {
	cases := []struct {
		route string
		want  string
	}{
		{"/", "index.html"},
		{"", "index.html"},
		{"/posts/hello-world/", "posts/hello-world/index.html"},
		{"posts/hello-world", "posts/hello-world/index.html"},
		{"/tags/go/", "tags/go/index.html"},
		{"  /about/  ", "about/index.html"},
	}
	for _, tc := range cases {
		if got := buildOutputPath(tc.route); got != tc.want {
			t.Fatalf("buildOutputPath(%q) = %q, want %q", tc.route, got, tc.want)
		}
	}
}

func TestJoinOutputPath(t *testing.T) {
	cases := []struct {
		base string
		rel  string
		want string
	}{
		{"public", "index.html", "public/index.html"},
		{"", "/index.html", "index.html"},
		{"public/", "posts/x/index.html", "public/posts/x/index.html"},
		{"/srv/www/public", "sitemap.xml", "/srv/www/public/sitemap.xml"},
	}
	for _, tc := range cases {
		if got := joinOutputPath(tc.base, tc.rel); got != tc.want {
			t.Fatalf("joinOutputPath(%q, %q) = %q, want %q", tc.base, tc.rel, got, tc.want)
		}
	}
}
