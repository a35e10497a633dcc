package extractor

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var errNoContent = errors.New("no readable content")

// Readable extracts the main content of an HTML page. It prefers an explicit
// <article>, <main> or role="main" container and otherwise picks the block
// that collects the most paragraph text, penalised by link density.
func Readable(raw string) (string, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return "", err
	}
	pruneNoise(doc)

	root := findLandmark(doc)
	if root == nil {
		root = bestCandidate(doc)
	}
	if root == nil {
		return "", errNoContent
	}
	var b strings.Builder
	renderText(&b, root)
	text := NormalizeText(b.String())
	if text == "" {
		return "", errNoContent
	}
	return text, nil
}

var noiseAtoms = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Aside:    true,
	atom.Form:     true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Head:     true,
}

func pruneNoise(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode || (c.Type == html.ElementNode && (noiseAtoms[c.DataAtom] || isHidden(c))) {
			n.RemoveChild(c)
		} else {
			pruneNoise(c)
		}
		c = next
	}
}

func isHidden(n *html.Node) bool {
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "aria-hidden":
			if a.Val == "true" {
				return true
			}
		case "style":
			v := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
			if strings.Contains(v, "display:none") || strings.Contains(v, "visibility:hidden") {
				return true
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findLandmark(n *html.Node) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode {
			if n.DataAtom == atom.Article || n.DataAtom == atom.Main || attr(n, "role") == "main" {
				if len(strings.TrimSpace(textOf(n))) >= 140 {
					found = n
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return found
}

// bestCandidate scores the parents of every substantial paragraph.
func bestCandidate(doc *html.Node) *html.Node {
	scores := map[*html.Node]float64{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.P || n.DataAtom == atom.Pre || n.DataAtom == atom.Td) {
			text := collapseWhitespace(textOf(n))
			if len(text) >= 25 {
				score := 1 + float64(strings.Count(text, ",")) + minFloat(float64(len(text))/100, 3)
				if p := n.Parent; p != nil {
					scores[p] += score
					if gp := p.Parent; gp != nil {
						scores[gp] += score / 2
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var best *html.Node
	bestScore := 0.0
	for n, s := range scores {
		s *= 1 - linkDensity(n)
		if s > bestScore || (s == bestScore && best != nil && depth(n) > depth(best)) {
			best, bestScore = n, s
		}
	}
	return best
}

func linkDensity(n *html.Node) float64 {
	total := len(collapseWhitespace(textOf(n)))
	if total == 0 {
		return 0
	}
	links := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			links += len(collapseWhitespace(textOf(n)))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return float64(links) / float64(total)
}

func depth(n *html.Node) int {
	d := 0
	for p := n.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

var blockAtoms = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true, atom.Main: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Table: true, atom.Tr: true,
	atom.Blockquote: true, atom.Pre: true, atom.Figure: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
}

// renderText writes the visible text of n, separating block elements with a
// blank line so paragraphs survive into the chunker.
func renderText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(collapseInline(n.Data))
		return
	case html.ElementNode:
		if n.DataAtom == atom.Br {
			b.WriteString("\n")
			return
		}
		if n.DataAtom == atom.Img {
			return
		}
	}
	block := n.Type == html.ElementNode && blockAtoms[n.DataAtom]
	if block {
		b.WriteString("\n\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderText(b, c)
	}
	if block {
		b.WriteString("\n\n")
	}
}

func collapseInline(s string) string {
	if strings.TrimSpace(s) == "" {
		if s == "" {
			return ""
		}
		return " "
	}
	lead := s[0] == ' ' || s[0] == '\n' || s[0] == '\t'
	trail := s[len(s)-1] == ' ' || s[len(s)-1] == '\n' || s[len(s)-1] == '\t'
	out := collapseWhitespace(s)
	if lead {
		out = " " + out
	}
	if trail {
		out += " "
	}
	return out
}
