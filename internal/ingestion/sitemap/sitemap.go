package sitemap

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/leadchat-backend/internal/ingestion/fetch"
	"github.com/yungbote/leadchat-backend/internal/pkg/httpx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

const (
	DefaultMaxPages = 200
	DefaultMaxDepth = 3
	DefaultDelay    = 100 * time.Millisecond
)

var (
	locRE   = regexp.MustCompile(`(?is)<loc>\s*(.*?)\s*</loc>`)
	indexRE = regexp.MustCompile(`(?i)<sitemapindex[\s>]`)
)

// ExtractLocs returns every <loc> value in document order.
func ExtractLocs(doc string) []string {
	matches := locRE.FindAllStringSubmatch(doc, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		loc := strings.TrimSpace(m[1])
		loc = strings.TrimPrefix(loc, "<![CDATA[")
		loc = strings.TrimSuffix(loc, "]]>")
		loc = strings.TrimSpace(html.UnescapeString(loc))
		if loc != "" {
			out = append(out, loc)
		}
	}
	return out
}

func IsSitemapIndex(doc string) bool {
	return indexRE.MatchString(doc)
}

// LooksLikeSitemap reports whether u points at another sitemap rather than a page.
func LooksLikeSitemap(u string) bool {
	lower := strings.ToLower(u)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	if strings.HasSuffix(lower, ".xml.gz") {
		return true
	}
	if !strings.HasSuffix(lower, ".xml") {
		return false
	}
	return strings.Contains(lower, "sitemap")
}

// GlobToRegexp escapes pattern literally except for '*', which matches any run.
// The result is unanchored.
func GlobToRegexp(pattern string) (*regexp.Regexp, error) {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile(strings.Join(parts, ".*"))
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		re, err := GlobToRegexp(p)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Filter drops sitemap-looking urls, duplicates, urls not matching any include
// pattern (when given) and urls matching an exclude pattern, then keeps the
// first max survivors in input order. max <= 0 means DefaultMaxPages.
func Filter(urls, include, exclude []string, max int) ([]string, error) {
	if max <= 0 {
		max = DefaultMaxPages
	}
	inc, err := compileAll(include)
	if err != nil {
		return nil, err
	}
	exc, err := compileAll(exclude)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, min(len(urls), max))
	for _, u := range urls {
		if len(out) >= max {
			break
		}
		u = strings.TrimSpace(u)
		if u == "" || LooksLikeSitemap(u) {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		if len(inc) > 0 && !matchAny(inc, u) {
			continue
		}
		if matchAny(exc, u) {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out, nil
}

type Options struct {
	Include  []string
	Exclude  []string
	MaxPages int
}

type Result struct {
	BatchID uuid.UUID
	URLs    []string
	// Discovered counts unique page urls before filtering and truncation.
	Discovered int
	Sitemaps   int
}

type Walker struct {
	log      *logger.Logger
	fetcher  fetch.Fetcher
	Delay    time.Duration
	MaxDepth int
}

func NewWalker(log *logger.Logger, fetcher fetch.Fetcher) *Walker {
	return &Walker{
		log:      log.With("component", "SitemapWalker"),
		fetcher:  fetcher,
		Delay:    DefaultDelay,
		MaxDepth: DefaultMaxDepth,
	}
}

// Expand fetches rootURL, follows sitemap indexes depth-first and returns the
// filtered page urls with a new batch id.
func (w *Walker) Expand(ctx context.Context, rootURL string, opts Options) (*Result, error) {
	st := &walkState{visited: map[string]bool{}, pageSeen: map[string]bool{}}
	if err := w.walk(ctx, rootURL, 0, st); err != nil {
		return nil, err
	}
	urls, err := Filter(st.pages, opts.Include, opts.Exclude, opts.MaxPages)
	if err != nil {
		return nil, err
	}
	w.log.Info("Sitemap expanded", "root", rootURL, "sitemaps", st.sitemaps, "discovered", len(st.pages), "kept", len(urls))
	return &Result{
		BatchID:    uuid.New(),
		URLs:       urls,
		Discovered: len(st.pages),
		Sitemaps:   st.sitemaps,
	}, nil
}

type walkState struct {
	visited  map[string]bool
	pageSeen map[string]bool
	pages    []string
	sitemaps int
}

func (w *Walker) walk(ctx context.Context, u string, depth int, st *walkState) error {
	if st.visited[u] {
		return nil
	}
	st.visited[u] = true

	doc, err := w.fetcher.Fetch(ctx, u)
	if err != nil {
		// The root must load; a broken child sitemap only loses its own urls.
		if depth == 0 {
			return fmt.Errorf("fetch sitemap: %w", err)
		}
		w.log.Warn("Child sitemap fetch failed", "url", u, "error", err)
		return nil
	}
	st.sitemaps++
	locs := ExtractLocs(doc.Text)

	if !IsSitemapIndex(doc.Text) {
		for _, loc := range locs {
			if !st.pageSeen[loc] {
				st.pageSeen[loc] = true
				st.pages = append(st.pages, loc)
			}
		}
		return nil
	}
	if depth >= w.MaxDepth {
		w.log.Warn("Sitemap index nesting too deep, skipping", "url", u, "depth", depth)
		return nil
	}
	for i, child := range locs {
		if i > 0 {
			if err := httpx.Sleep(ctx, w.Delay); err != nil {
				return err
			}
		}
		if err := w.walk(ctx, child, depth+1, st); err != nil {
			return err
		}
	}
	return nil
}
