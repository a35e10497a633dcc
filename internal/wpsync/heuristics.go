package wpsync

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	KindCommunity = "community"
	KindHome      = "home"
	KindUnknown   = "unknown"

	// Below this many distinct keyword hits a collection stays unknown.
	minEvidence = 2
)

//go:embed dictionaries.yaml
var dictionariesYAML []byte

type kindDict struct {
	Slugs    []string `yaml:"slugs"`
	Keywords []string `yaml:"keywords"`
}

type Dictionaries struct {
	Kinds  map[string]kindDict            `yaml:"kinds"`
	Fields map[string]map[string][]string `yaml:"fields"`
}

var defaultDicts = mustLoad(dictionariesYAML)

func mustLoad(raw []byte) *Dictionaries {
	d, err := LoadDictionaries(raw)
	if err != nil {
		panic(err)
	}
	return d
}

func LoadDictionaries(raw []byte) (*Dictionaries, error) {
	var d Dictionaries
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse dictionaries: %w", err)
	}
	if len(d.Kinds) == 0 {
		return nil, fmt.Errorf("dictionaries define no kinds")
	}
	return &d, nil
}

// ProbeSlugs lists the rest bases worth trying before schema sniffing, in
// probe order.
func ProbeSlugs() []string {
	var out []string
	for _, kind := range []string{KindCommunity, KindHome} {
		out = append(out, defaultDicts.Kinds[kind].Slugs...)
	}
	return out
}

// KindForSlug returns the kind a well-known slug implies, or "".
func KindForSlug(slug string) string {
	slug = strings.ToLower(strings.Trim(slug, "/ "))
	for kind, d := range defaultDicts.Kinds {
		for _, s := range d.Slugs {
			if s == slug {
				return kind
			}
		}
	}
	return ""
}

type Classification struct {
	Kind          string              `json:"kind"`
	Confidence    float64             `json:"confidence"`
	Scores        map[string]float64  `json:"scores"`
	MatchedFields map[string][]string `json:"matched_fields"`
}

// ClassifyEndpoint scores sample records against each kind's keywords using
// top-level, acf and meta field names.
func ClassifyEndpoint(samples []map[string]any) Classification {
	fields := fieldNames(samples)
	out := Classification{
		Kind:          KindUnknown,
		Scores:        map[string]float64{},
		MatchedFields: map[string][]string{},
	}
	kinds := make([]string, 0, len(defaultDicts.Kinds))
	for kind := range defaultDicts.Kinds {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	best, second := 0.0, 0.0
	for _, kind := range kinds {
		hits := map[string]bool{}
		var matched []string
		for _, f := range fields {
			for _, kw := range defaultDicts.Kinds[kind].Keywords {
				if keywordMatch(f, kw) {
					hits[kw] = true
					matched = append(matched, f)
					break
				}
			}
		}
		score := float64(len(hits))
		out.Scores[kind] = score
		if len(matched) > 0 {
			out.MatchedFields[kind] = matched
		}
		switch {
		case score > best:
			second = best
			best = score
			out.Kind = kind
		case score > second:
			second = score
		}
	}
	if best < minEvidence || best == second {
		out.Kind = KindUnknown
		return out
	}
	// Share of the evidence, damped until there are a handful of hits.
	damp := best / 5
	if damp > 1 {
		damp = 1
	}
	out.Confidence = round2(best / (best + second) * damp)
	return out
}

type Suggestion struct {
	Field      string  `json:"field"`
	Path       string  `json:"path"`
	Confidence float64 `json:"confidence"`
}

// SuggestMapping proposes a dotted source path per local field of kind,
// looking at the acf object of a sample record first and core post fields
// second. Fields with no candidate are omitted.
func SuggestMapping(kind string, sample map[string]any) []Suggestion {
	targets := defaultDicts.Fields[kind]
	acf, _ := sample["acf"].(map[string]any)
	keys := make([]string, 0, len(acf))
	for k := range acf {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]string, 0, len(targets))
	for f := range targets {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var out []Suggestion
	for _, field := range fields {
		var pick Suggestion
		for _, key := range keys {
			c := aliasScore(strings.ToLower(key), targets[field])
			if c > pick.Confidence || (c == pick.Confidence && c > 0 && len(key) < len(strings.TrimPrefix(pick.Path, "acf."))) {
				pick = Suggestion{Field: field, Path: "acf." + key, Confidence: c}
			}
		}
		if pick.Confidence == 0 {
			if path, c := corePath(field); path != "" {
				pick = Suggestion{Field: field, Path: path, Confidence: c}
			}
		}
		if pick.Confidence > 0 {
			out = append(out, pick)
		}
	}
	return out
}

// MappingFromSuggestions keeps suggestions at or above minConfidence.
func MappingFromSuggestions(s []Suggestion, minConfidence float64) map[string]string {
	out := make(map[string]string, len(s))
	for _, sg := range s {
		if sg.Confidence >= minConfidence {
			out[sg.Field] = sg.Path
		}
	}
	return out
}

func corePath(field string) (string, float64) {
	switch field {
	case "name", "title":
		return "title.rendered", 0.9
	case "description":
		return "content.rendered", 0.6
	case "url":
		return "link", 0.9
	}
	return "", 0
}

func aliasScore(key string, aliases []string) float64 {
	best := 0.0
	for i, alias := range aliases {
		c := 0.0
		switch {
		case key == alias:
			c = 1.0
		case keywordMatch(key, alias):
			c = 0.7
		}
		// Earlier aliases are the more specific ones.
		c -= float64(i) * 0.01
		if c > best {
			best = c
		}
	}
	return round2(best)
}

func keywordMatch(field, kw string) bool {
	if field == kw {
		return true
	}
	if strings.ContainsAny(kw, "_-") {
		return strings.Contains(field, kw)
	}
	for _, seg := range strings.FieldsFunc(field, func(r rune) bool { return r == '_' || r == '-' }) {
		if seg == kw {
			return true
		}
	}
	return false
}

// Present on every post type, so they carry no signal.
var coreFields = map[string]bool{
	"id": true, "date": true, "date_gmt": true, "guid": true, "modified": true,
	"modified_gmt": true, "slug": true, "status": true, "type": true, "link": true,
	"title": true, "content": true, "excerpt": true, "author": true,
	"featured_media": true, "template": true, "class_list": true, "_links": true,
	"comment_status": true, "ping_status": true, "menu_order": true, "parent": true,
}

func fieldNames(samples []map[string]any) []string {
	seen := map[string]bool{}
	var out []string
	add := func(k string) {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, rec := range samples {
		for k, v := range rec {
			if k == "acf" || k == "meta" {
				if m, ok := v.(map[string]any); ok {
					for inner := range m {
						add(inner)
					}
				}
				continue
			}
			if !coreFields[k] {
				add(k)
			}
		}
	}
	sort.Strings(out)
	return out
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
