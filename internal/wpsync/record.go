package wpsync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/yungbote/leadchat-backend/internal/ingestion/extractor"
)

// ContentHash fingerprints a record: a 31-based rolling sum over the UTF-16
// code units of its sorted-key JSON, wrapped to int32 and printed as 8 hex
// digits.
func ContentHash(record any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// encoding/json writes map keys in sorted order at every depth.
	if err := enc.Encode(record); err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	raw := strings.TrimSuffix(buf.String(), "\n")
	var h int32
	for _, code := range utf16.Encode([]rune(raw)) {
		h = h*31 + int32(code)
	}
	return fmt.Sprintf("%08x", uint32(h)), nil
}

// Lookup walks a dotted path ("acf.home_price", "title.rendered").
func Lookup(record map[string]any, path string) any {
	var cur any = record
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

// Text renders a value as plain text. Rendered HTML fields lose their markup.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		if strings.ContainsAny(t, "<&") {
			return extractor.StripTags(t)
		}
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return ""
	case map[string]any:
		if r, ok := t["rendered"]; ok {
			return Text(r)
		}
		return ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := Text(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Number parses prices and counts such as "$459,900", "3.5" or "2,100 sq ft".
func Number(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		var b strings.Builder
		seenDigit := false
	scan:
		for _, r := range t {
			switch {
			case r >= '0' && r <= '9':
				b.WriteRune(r)
				seenDigit = true
			case r == '.' && seenDigit:
				b.WriteRune(r)
			case r == ',' || r == '$':
			case r == ' ' && !seenDigit:
			default:
				if seenDigit {
					break scan
				}
			}
		}
		if !seenDigit {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSuffix(b.String(), "."), 64)
		if err != nil {
			return nil
		}
		return &f
	case map[string]any:
		if r, ok := t["rendered"]; ok {
			return Number(r)
		}
	}
	return nil
}

// PostID reads a numeric WordPress id from a value that may be a number, a
// numeric string, a post object or a relationship list.
func PostID(v any) *int64 {
	switch t := v.(type) {
	case float64:
		id := int64(t)
		if id > 0 {
			return &id
		}
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err == nil && id > 0 {
			return &id
		}
	case map[string]any:
		if id := PostID(t["ID"]); id != nil {
			return id
		}
		return PostID(t["id"])
	case []any:
		if len(t) > 0 {
			return PostID(t[0])
		}
	}
	return nil
}

// Modified parses the modified_gmt field, which WordPress writes without a
// zone.
func Modified(record map[string]any) *time.Time {
	raw, _ := record["modified_gmt"].(string)
	if raw == "" {
		return nil
	}
	ts, err := time.ParseInLocation("2006-01-02T15:04:05", raw, time.UTC)
	if err != nil {
		return nil
	}
	return &ts
}
