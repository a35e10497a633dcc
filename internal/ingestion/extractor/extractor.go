package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// Page is extracted text plus the best title we could find.
type Page struct {
	Title string
	Text  string
	// Fallback is true when the regex stripper produced Text.
	Fallback bool
}

// HTML runs the readability extractor and falls back to tag stripping when it
// fails or returns nothing.
func HTML(raw string) Page {
	p := Page{Title: Title(raw)}
	if text, err := Readable(raw); err == nil && text != "" {
		p.Text = text
		return p
	}
	p.Text = StripTags(raw)
	p.Fallback = true
	return p
}

// JSON pretty-prints a JSON document so it reads as text.
func JSON(raw []byte) (string, error) {
	var out bytes.Buffer
	if err := json.Indent(&out, bytes.TrimSpace(raw), "", "  "); err != nil {
		return "", fmt.Errorf("invalid json: %w", err)
	}
	return out.String(), nil
}

// PDF returns the text layer page by page, pages separated by a blank line.
func PDF(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("pdf reader: %w", err)
	}
	pages = r.NumPage()
	parts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pt, perr := page.GetPlainText(nil)
		if perr != nil {
			return "", pages, fmt.Errorf("pdf page %d: %w", i, perr)
		}
		if pt = NormalizeText(pt); pt != "" {
			parts = append(parts, pt)
		}
	}
	if len(parts) == 0 {
		// Some producers only expose a document-level text stream.
		plain, perr := r.GetPlainText()
		if perr != nil {
			return "", pages, fmt.Errorf("pdf plaintext: %w", perr)
		}
		b, rerr := io.ReadAll(plain)
		if rerr != nil {
			return "", pages, fmt.Errorf("pdf read: %w", rerr)
		}
		return NormalizeText(string(b)), pages, nil
	}
	return strings.Join(parts, "\n\n"), pages, nil
}
