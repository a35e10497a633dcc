package fetch

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/leadchat-backend/internal/ingestion/extractor"
	"github.com/yungbote/leadchat-backend/internal/pkg/httpx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

const (
	DefaultUserAgent = "LeadChatBot/1.0 (+knowledge-ingestion)"
	DefaultMaxBytes  = 10 << 20
)

type Kind string

const (
	KindHTML Kind = "html"
	KindJSON Kind = "json"
	KindXML  Kind = "xml"
	KindText Kind = "text"
	KindPDF  Kind = "pdf"
)

// Document is a fetched URL reduced to text.
type Document struct {
	URL         string
	ContentType string
	Kind        Kind
	Title       string
	Text        string
	PageCount   int
	// Fallback is set when HTML extraction had to use the regex stripper.
	Fallback bool
}

type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *HTTPStatusError) HTTPStatusCode() int { return e.StatusCode }

type UnsupportedContentTypeError struct {
	URL         string
	ContentType string
}

func (e *UnsupportedContentTypeError) Error() string {
	return fmt.Sprintf("fetch %s: unsupported content type %q", e.URL, e.ContentType)
}

type Config struct {
	UserAgent string
	MaxBytes  int64
	Timeout   time.Duration
	// AllowPDF enables the PDF text-layer reader; otherwise PDFs are
	// rejected as unsupported.
	AllowPDF bool
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Document, error)
}

type fetcher struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

func New(log *logger.Logger, cfg Config, client *http.Client) Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &fetcher{log: log.With("client", "Fetcher"), cfg: cfg, http: client}
}

func (f *fetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,text/plain;q=0.7,application/pdf;q=0.6,*/*;q=0.5")

	start := time.Now()
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	body, err := httpx.ReadLimited(resp.Body, f.cfg.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{URL: url, StatusCode: resp.StatusCode}
	}

	ct := resp.Header.Get("Content-Type")
	kind, mediaType := Classify(ct, url, body)
	f.log.Debug("Fetched url", "url", url, "status", resp.StatusCode, "content_type", mediaType, "bytes", len(body), "duration_ms", time.Since(start).Milliseconds())

	doc := &Document{URL: url, ContentType: mediaType, Kind: kind}
	switch kind {
	case KindJSON:
		text, err := extractor.JSON(body)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}
		doc.Text = text
	case KindHTML:
		page := extractor.HTML(string(body))
		doc.Title = page.Title
		doc.Text = page.Text
		doc.Fallback = page.Fallback
	case KindXML, KindText:
		doc.Text = string(body)
	case KindPDF:
		if !f.cfg.AllowPDF {
			return nil, &UnsupportedContentTypeError{URL: url, ContentType: mediaType}
		}
		text, pages, err := extractor.PDF(body)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}
		doc.Text = text
		doc.PageCount = pages
	default:
		return nil, &UnsupportedContentTypeError{URL: url, ContentType: mediaType}
	}
	return doc, nil
}

// Classify maps a Content-Type header to a Kind. When the header is missing
// it falls back to the URL suffix and then to content sniffing.
func Classify(contentType, url string, body []byte) (Kind, string) {
	mediaType := ""
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			mediaType = strings.ToLower(mt)
		} else {
			mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
		}
	}
	if mediaType == "" || mediaType == "application/octet-stream" {
		lower := strings.ToLower(url)
		switch {
		case strings.HasSuffix(lower, ".pdf"):
			mediaType = "application/pdf"
		case strings.HasSuffix(lower, ".xml"):
			mediaType = "application/xml"
		case strings.HasSuffix(lower, ".json"):
			mediaType = "application/json"
		default:
			if len(body) > 0 {
				sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(body))
				mediaType = strings.ToLower(sniffed)
			}
		}
	}
	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return KindJSON, mediaType
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return KindHTML, mediaType
	case mediaType == "application/xml" || mediaType == "text/xml" || strings.HasSuffix(mediaType, "+xml"):
		return KindXML, mediaType
	case mediaType == "text/plain":
		return KindText, mediaType
	case mediaType == "application/pdf":
		return KindPDF, mediaType
	}
	return "", mediaType
}
