package extractor

import (
	"html"
	"regexp"
)

var (
	titleTag      = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	ogTitleTag    = regexp.MustCompile(`(?is)<meta[^>]+property=["']og:title["'][^>]*content=["']([^"']*)["']`)
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag   = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	chromeTags    = regexp.MustCompile(`(?is)<(nav|header|footer|aside)[^>]*>.*?</(nav|header|footer|aside)>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements = regexp.MustCompile(`(?i)</?(p|div|h[1-6]|li|ul|ol|tr|table|blockquote|pre|section|article|main)[^>]*>`)
	brTags        = regexp.MustCompile(`(?i)<br\s*/?>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
)

// StripTags is the regex fallback used when the DOM extractor finds nothing.
// It drops script, style, nav, header, footer and aside blocks and every
// remaining tag.
func StripTags(raw string) string {
	s := scriptTag.ReplaceAllString(raw, "")
	s = styleTag.ReplaceAllString(s, "")
	s = noscriptTag.ReplaceAllString(s, "")
	s = headTag.ReplaceAllString(s, "")
	s = chromeTags.ReplaceAllString(s, "")
	s = htmlComments.ReplaceAllString(s, "")
	s = blockElements.ReplaceAllString(s, "\n\n")
	s = brTags.ReplaceAllString(s, "\n")
	s = allTags.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return NormalizeText(s)
}

// Title returns the og:title or <title> of a page, or "".
func Title(raw string) string {
	if m := ogTitleTag.FindStringSubmatch(raw); len(m) > 1 {
		if t := collapseWhitespace(html.UnescapeString(m[1])); t != "" {
			return t
		}
	}
	if m := titleTag.FindStringSubmatch(raw); len(m) > 1 {
		return collapseWhitespace(html.UnescapeString(m[1]))
	}
	return ""
}
