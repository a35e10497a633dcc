package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	DefaultMaxTokens     = 500
	DefaultOverlapTokens = 50
	charsPerToken        = 4
)

var (
	paragraphRE = regexp.MustCompile(`\n\s*\n`)
	sentenceRE  = regexp.MustCompile(`[^.!?]+[.!?]+`)
)

type Options struct {
	MaxTokens     int
	OverlapTokens int
}

type Chunk struct {
	Index      int
	Content    string
	TokenCount int
	// Overlap is the byte length of the prefix copied from the previous chunk.
	Overlap int
}

// EstimateTokens approximates tokens as one per four bytes, rounded up.
func EstimateTokens(s string) int {
	return (len(s) + charsPerToken - 1) / charsPerToken
}

type unit struct {
	text string
	sep  string
}

// Split breaks text into paragraph-first chunks, falling back to sentences for
// paragraphs larger than MaxTokens. Each chunk after the first starts with the
// tail of its predecessor.
func Split(text string, opts Options) []Chunk {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.OverlapTokens < 0 {
		opts.OverlapTokens = 0
	}
	if opts.OverlapTokens >= opts.MaxTokens {
		opts.OverlapTokens = opts.MaxTokens / 10
	}
	maxChars := opts.MaxTokens * charsPerToken

	units := splitUnits(text, opts.MaxTokens)
	if len(units) == 0 {
		return nil
	}

	var (
		chunks  []Chunk
		cur     strings.Builder
		overlap int
		// seeded is set while cur holds nothing but the overlap copied from
		// the previous chunk.
		seeded bool
	)
	emit := func() {
		content := cur.String()
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			Content:    content,
			TokenCount: EstimateTokens(content),
			Overlap:    overlap,
		})
	}
	overlapChars := opts.OverlapTokens * charsPerToken
	queue := units
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		switch {
		case cur.Len() == 0:
			cur.WriteString(u.text)
		case cur.Len()+len(u.sep)+len(u.text) <= maxChars:
			cur.WriteString(u.sep)
			cur.WriteString(u.text)
		case seeded && EstimateTokens(u.text) > opts.MaxTokens && len(sentences(u.text)) == 1:
			// A lone sentence over the budget is the one allowed oversize chunk.
			cur.WriteString(u.sep)
			cur.WriteString(u.text)
		case seeded:
			queue = append(breakUnit(u, maxChars-cur.Len()-len(u.sep)), queue...)
			continue
		default:
			emit()
			seed := tail(chunks[len(chunks)-1].Content, overlapChars)
			cur.Reset()
			cur.WriteString(seed)
			overlap = len(seed)
			seeded = seed != ""
			queue = append([]unit{u}, queue...)
			continue
		}
		seeded = false
	}
	if cur.Len() > 0 {
		emit()
	}
	return chunks
}

func splitUnits(text string, maxTokens int) []unit {
	var out []unit
	for _, para := range paragraphRE.Split(strings.TrimSpace(text), -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if EstimateTokens(para) <= maxTokens {
			out = append(out, unit{text: para, sep: "\n\n"})
			continue
		}
		for i, s := range sentences(para) {
			sep := " "
			if i == 0 {
				sep = "\n\n"
			}
			out = append(out, unit{text: s, sep: sep})
		}
	}
	return out
}

// breakUnit splits u so its first piece fits in room bytes: into sentences
// when it has several, else at the last space that fits.
func breakUnit(u unit, room int) []unit {
	if parts := sentences(u.text); len(parts) > 1 {
		out := make([]unit, len(parts))
		for i, p := range parts {
			sep := " "
			if i == 0 {
				sep = u.sep
			}
			out[i] = unit{text: p, sep: sep}
		}
		return out
	}
	head, rest := cutAt(u.text, room)
	if rest == "" {
		return []unit{{text: head, sep: u.sep}}
	}
	return []unit{{text: head, sep: u.sep}, {text: rest, sep: " "}}
}

// cutAt returns a non-empty head of at most n bytes where possible, preferring
// a whitespace boundary, and the trimmed remainder.
func cutAt(s string, n int) (string, string) {
	if len(s) <= n {
		return s, ""
	}
	i := strings.LastIndexAny(s[:max(n, 0)+1], " \t\n")
	if i <= 0 {
		i = max(n, 1)
		for i < len(s) && !utf8.RuneStart(s[i]) {
			i--
		}
		if i == 0 {
			_, size := utf8.DecodeRuneInString(s)
			i = size
		}
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i:])
}

// sentences splits on terminal punctuation. Trailing text without punctuation
// is kept as a final sentence.
func sentences(para string) []string {
	var out []string
	end := 0
	for _, loc := range sentenceRE.FindAllStringIndex(para, -1) {
		if s := strings.TrimSpace(para[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		end = loc[1]
	}
	if rest := strings.TrimSpace(para[end:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// tail returns at most n trailing bytes of s, cut on a rune boundary and
// stripped of leading whitespace.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return strings.TrimLeft(s, " \t\n")
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return strings.TrimLeft(s[i:], " \t\n")
}
