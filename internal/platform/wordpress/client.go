package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/leadchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/leadchat-backend/internal/pkg/envutil"
	"github.com/yungbote/leadchat-backend/internal/pkg/httpx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

const (
	DefaultPerPage = 100
	maxPages       = 200
	maxBodyBytes   = 20 << 20
)

// Record is one REST item as decoded JSON.
type Record map[string]any

type Credentials struct {
	Username    string
	AppPassword string
}

type SiteInfo struct {
	Name       string   `json:"name"`
	URL        string   `json:"url"`
	Namespaces []string `json:"namespaces"`
}

type PostType struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	RestBase string `json:"rest_base"`
}

type Page struct {
	Records    []Record
	Total      int
	TotalPages int
}

type Client interface {
	Ping(ctx context.Context, siteURL string, creds Credentials) (*SiteInfo, error)
	ListTypes(ctx context.Context, siteURL string, creds Credentials) ([]PostType, error)
	FetchPage(ctx context.Context, siteURL string, creds Credentials, endpoint string, page, perPage int, modifiedAfter *time.Time) (*Page, error)
	FetchAll(ctx context.Context, siteURL string, creds Credentials, endpoint string, modifiedAfter *time.Time) ([]Record, error)
}

type Config struct {
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
}

func ConfigFromEnv() Config {
	return Config{
		Timeout:    envutil.Seconds("WORDPRESS_TIMEOUT_SECONDS", 30*time.Second),
		MaxRetries: envutil.Int("WORDPRESS_MAX_RETRIES", 2),
		UserAgent:  envutil.String("WORDPRESS_USER_AGENT", "LeadChatBot/1.0 (+wordpress-sync)"),
	}
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

func New(log *logger.Logger, cfg Config, httpClient *http.Client) Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "LeadChatBot/1.0 (+wordpress-sync)"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &client{
		log:        log.With("client", "WordPressClient"),
		cfg:        cfg,
		httpClient: httpClient,
	}
}

type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("wordpress http %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("wordpress http %d", e.StatusCode)
}

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

// NormalizeSiteURL trims trailing slashes and defaults the scheme to https.
func NormalizeSiteURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("site url is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("invalid site url %q", raw)
	}
	u.RawQuery, u.Fragment = "", ""
	return strings.TrimRight(u.String(), "/"), nil
}

// EndpointURL resolves a collection reference: an absolute URL, a path under
// /wp-json ("wp/v2/homes"), or a bare rest base ("homes").
func EndpointURL(siteURL, endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	switch {
	case strings.HasPrefix(endpoint, "http://"), strings.HasPrefix(endpoint, "https://"):
		return endpoint
	case strings.HasPrefix(endpoint, "/wp-json/"):
		return siteURL + endpoint
	case strings.Contains(strings.Trim(endpoint, "/"), "/"):
		return siteURL + "/wp-json/" + strings.Trim(endpoint, "/")
	default:
		return siteURL + "/wp-json/wp/v2/" + strings.Trim(endpoint, "/")
	}
}

func (c *client) Ping(ctx context.Context, siteURL string, creds Credentials) (*SiteInfo, error) {
	site, err := NormalizeSiteURL(siteURL)
	if err != nil {
		return nil, err
	}
	var info SiteInfo
	if _, err := c.getJSON(ctx, site+"/wp-json/", creds, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *client) ListTypes(ctx context.Context, siteURL string, creds Credentials) ([]PostType, error) {
	site, err := NormalizeSiteURL(siteURL)
	if err != nil {
		return nil, err
	}
	var raw map[string]PostType
	if _, err := c.getJSON(ctx, site+"/wp-json/wp/v2/types", creds, &raw); err != nil {
		return nil, err
	}
	out := make([]PostType, 0, len(raw))
	for slug, t := range raw {
		if t.Slug == "" {
			t.Slug = slug
		}
		if t.RestBase == "" {
			t.RestBase = t.Slug
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (c *client) FetchPage(ctx context.Context, siteURL string, creds Credentials, endpoint string, page, perPage int, modifiedAfter *time.Time) (*Page, error) {
	site, err := NormalizeSiteURL(siteURL)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > DefaultPerPage {
		perPage = DefaultPerPage
	}
	u, err := url.Parse(EndpointURL(site, endpoint))
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	if modifiedAfter != nil && !modifiedAfter.IsZero() {
		q.Set("modified_after", modifiedAfter.UTC().Format("2006-01-02T15:04:05"))
	}
	u.RawQuery = q.Encode()

	var records []Record
	resp, err := c.getJSON(ctx, u.String(), creds, &records)
	if err != nil {
		return nil, err
	}
	out := &Page{Records: records}
	out.Total, _ = strconv.Atoi(resp.Header.Get("X-WP-Total"))
	out.TotalPages, _ = strconv.Atoi(resp.Header.Get("X-WP-TotalPages"))
	return out, nil
}

func (c *client) FetchAll(ctx context.Context, siteURL string, creds Credentials, endpoint string, modifiedAfter *time.Time) ([]Record, error) {
	var all []Record
	for page := 1; page <= maxPages; page++ {
		p, err := c.FetchPage(ctx, siteURL, creds, endpoint, page, DefaultPerPage, modifiedAfter)
		if err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", endpoint, page, err)
		}
		all = append(all, p.Records...)
		if len(p.Records) == 0 || p.TotalPages == 0 || page >= p.TotalPages {
			return all, nil
		}
	}
	c.log.Warn("WordPress collection truncated", "endpoint", endpoint, "pages", maxPages)
	return all, nil
}

func (c *client) getJSON(ctx context.Context, rawURL string, creds Credentials, out any) (*http.Response, error) {
	backoff := 500 * time.Millisecond
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		resp, err := c.getOnce(ctx, rawURL, creds, out)
		if err == nil {
			return resp, nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return nil, err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("WordPress request retrying", "url", rawURL, "attempt", attempt+1, "sleep", sleepFor.String(), "error", err.Error())
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, errors.New("unreachable retry loop")
}

func (c *client) getOnce(ctx context.Context, rawURL string, creds Credentials, out any) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if creds.Username != "" && creds.AppPassword != "" {
		// Application passwords are shown with spaces; WordPress accepts both forms.
		req.SetBasicAuth(creds.Username, strings.ReplaceAll(creds.AppPassword, " ", ""))
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := httpx.ReadLimited(resp.Body, maxBodyBytes)
	if err != nil {
		return resp, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		he := &HTTPError{StatusCode: resp.StatusCode}
		var wpErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &wpErr) == nil {
			he.Code, he.Message = wpErr.Code, wpErr.Message
		}
		return resp, he
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp, fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return resp, nil
}
