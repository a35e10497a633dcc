package wordpress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

func TestEndpointURL(t *testing.T) {
	cases := map[string]string{
		"homes":                       "https://x.co/wp-json/wp/v2/homes",
		"/homes/":                     "https://x.co/wp-json/wp/v2/homes",
		"custom/v1/lots":              "https://x.co/wp-json/custom/v1/lots",
		"/wp-json/wp/v2/communities":  "https://x.co/wp-json/wp/v2/communities",
		"https://api.x.co/feed/homes": "https://api.x.co/feed/homes",
	}
	for in, want := range cases {
		if got := EndpointURL("https://x.co", in); got != want {
			t.Fatalf("EndpointURL(%q)=%q want %q", in, got, want)
		}
	}
}

func TestNormalizeSiteURL(t *testing.T) {
	got, err := NormalizeSiteURL(" example.com/ ")
	if err != nil || got != "https://example.com" {
		t.Fatalf("got %q err=%v", got, err)
	}
	if _, err := NormalizeSiteURL("ftp://example.com"); err == nil {
		t.Fatalf("expected error for ftp scheme")
	}
}

func TestFetchAllFollowsPages(t *testing.T) {
	var sawAuth, sawModified bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/homes" {
			http.NotFound(w, r)
			return
		}
		if u, p, ok := r.BasicAuth(); ok && u == "admin" && p == "abcdefgh" {
			sawAuth = true
		}
		if r.URL.Query().Get("modified_after") == "2024-01-02T03:04:05" {
			sawModified = true
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		w.Header().Set("X-WP-Total", "3")
		w.Header().Set("X-WP-TotalPages", "2")
		if page == 1 {
			_, _ = w.Write([]byte(`[{"id":1},{"id":2}]`))
			return
		}
		_, _ = w.Write([]byte(`[{"id":3}]`))
	}))
	defer srv.Close()

	c := New(logger.Nop(), Config{MaxRetries: 0}, srv.Client())
	since := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	recs, err := c.FetchAll(context.Background(), srv.URL, Credentials{Username: "admin", AppPassword: "abcd efgh"}, "homes", &since)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if !sawAuth || !sawModified {
		t.Fatalf("auth=%v modified_after=%v", sawAuth, sawModified)
	}
}

func TestFetchPageTypedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"rest_no_route","message":"No route was found"}`))
	}))
	defer srv.Close()

	c := New(logger.Nop(), Config{}, srv.Client())
	_, err := c.FetchPage(context.Background(), srv.URL, Credentials{}, "lots", 1, 1, nil)
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != 404 || he.Code != "rest_no_route" {
		t.Fatalf("expected 404 rest_no_route, got %v", err)
	}
}

func TestPingAndListTypes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wp-json/":
			_, _ = w.Write([]byte(`{"name":"Acme Homes","url":"https://acme.test","namespaces":["wp/v2","acf/v3"]}`))
		case "/wp-json/wp/v2/types":
			_, _ = fmt.Fprint(w, `{"post":{"slug":"post","name":"Posts","rest_base":"posts"},"home":{"name":"Homes","rest_base":"homes"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(logger.Nop(), Config{}, srv.Client())
	info, err := c.Ping(context.Background(), srv.URL, Credentials{})
	if err != nil || info.Name != "Acme Homes" || len(info.Namespaces) != 2 {
		t.Fatalf("Ping: %+v %v", info, err)
	}
	types, err := c.ListTypes(context.Background(), srv.URL, Credentials{})
	if err != nil || len(types) != 2 {
		t.Fatalf("ListTypes: %+v %v", types, err)
	}
	if types[0].Slug != "home" || types[0].RestBase != "homes" {
		t.Fatalf("unexpected first type %+v", types[0])
	}
}
