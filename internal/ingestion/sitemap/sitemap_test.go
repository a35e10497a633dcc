package sitemap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yungbote/leadchat-backend/internal/ingestion/fetch"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

func TestFilterExcludesBlog(t *testing.T) {
	urls := []string{
		"https://example.com/",
		"https://example.com/blog/first",
		"https://example.com/about",
		"https://example.com/blog/second/page",
		"https://example.com/blogroll",
		"https://example.com/about",
		"https://example.com/post-sitemap.xml",
	}
	got, err := Filter(urls, nil, []string{"/blog/*"}, 0)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	for _, u := range got {
		if strings.Contains(u, "/blog/") {
			t.Fatalf("excluded url survived: %s", u)
		}
	}
	want := []string{"https://example.com/", "https://example.com/about", "https://example.com/blogroll"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestFilterKeepsFirstN(t *testing.T) {
	var urls []string
	for i := 0; i < 20; i++ {
		urls = append(urls, fmt.Sprintf("https://example.com/p/%02d", i))
	}
	got, err := Filter(urls, nil, nil, 5)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5, got %d", len(got))
	}
	for i := range got {
		if got[i] != urls[i] {
			t.Fatalf("position %d: got %s want %s", i, got[i], urls[i])
		}
	}
}

func TestFilterInclude(t *testing.T) {
	got, err := Filter([]string{"https://x/homes/a", "https://x/about", "https://x/homes/b"}, []string{"*/homes/*"}, nil, 10)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 homes, got %v", got)
	}
}

func TestGlobToRegexpEscapesLiterals(t *testing.T) {
	re, err := GlobToRegexp("/a.b?c/*")
	if err != nil {
		t.Fatalf("GlobToRegexp: %v", err)
	}
	if !re.MatchString("https://x/a.b?c/anything") {
		t.Fatalf("literal pattern should match")
	}
	if re.MatchString("https://x/aXb?c/anything") {
		t.Fatalf("'.' must be literal")
	}
}

func TestExtractLocsAndIndex(t *testing.T) {
	doc := `<?xml version="1.0"?><sitemapindex><sitemap><loc> https://x/a.xml </loc></sitemap>` +
		`<sitemap><loc><![CDATA[https://x/b.xml?x=1&amp;y=2]]></loc></sitemap></sitemapindex>`
	locs := ExtractLocs(doc)
	if len(locs) != 2 || locs[0] != "https://x/a.xml" || locs[1] != "https://x/b.xml?x=1&y=2" {
		t.Fatalf("unexpected locs %v", locs)
	}
	if !IsSitemapIndex(doc) {
		t.Fatalf("expected index")
	}
	if IsSitemapIndex(`<urlset><url><loc>https://x/</loc></url></urlset>`) {
		t.Fatalf("urlset is not an index")
	}
}

func TestLooksLikeSitemap(t *testing.T) {
	cases := map[string]bool{
		"https://x/sitemap.xml":          true,
		"https://x/page-sitemap.xml?v=2": true,
		"https://x/sitemap_1.xml.gz":     true,
		"https://x/feed.xml":             false,
		"https://x/sitemap-page":         false,
	}
	for u, want := range cases {
		if got := LooksLikeSitemap(u); got != want {
			t.Fatalf("LooksLikeSitemap(%s)=%v want %v", u, got, want)
		}
	}
}

func TestWalkerExpandsIndexRecursively(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<sitemapindex><sitemap><loc>%s/pages.xml</loc></sitemap><sitemap><loc>%s/posts.xml</loc></sitemap><sitemap><loc>%s/sitemap.xml</loc></sitemap></sitemapindex>`, srv.URL, srv.URL, srv.URL)
	})
	mux.HandleFunc("/pages.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<urlset><url><loc>%s/</loc></url><url><loc>%s/about</loc></url></urlset>`, srv.URL, srv.URL)
	})
	mux.HandleFunc("/posts.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<urlset><url><loc>%s/blog/one</loc></url><url><loc>%s/about</loc></url></urlset>`, srv.URL, srv.URL)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	log := logger.Nop()
	w := NewWalker(log, fetch.New(log, fetch.Config{}, srv.Client()))
	w.Delay = 0

	res, err := w.Expand(context.Background(), srv.URL+"/sitemap.xml", Options{Exclude: []string{"/blog/*"}})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if res.Discovered != 3 {
		t.Fatalf("expected 3 unique pages discovered, got %d", res.Discovered)
	}
	if len(res.URLs) != 2 || res.URLs[0] != srv.URL+"/" || res.URLs[1] != srv.URL+"/about" {
		t.Fatalf("unexpected urls %v", res.URLs)
	}
	if res.Sitemaps != 3 {
		t.Fatalf("expected 3 sitemap documents, got %d", res.Sitemaps)
	}
}

func TestWalkerRootFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	log := logger.Nop()
	w := NewWalker(log, fetch.New(log, fetch.Config{}, srv.Client()))
	if _, err := w.Expand(context.Background(), srv.URL+"/sitemap.xml", Options{}); err == nil {
		t.Fatalf("expected error for missing root sitemap")
	}
}
