package wpsync

import (
	"testing"

	"github.com/google/uuid"
)

func homeRecord(id float64, price string) map[string]any {
	return map[string]any{
		"id":           id,
		"slug":         "the-aspen",
		"status":       "publish",
		"modified_gmt": "2024-05-01T10:00:00",
		"title":        map[string]any{"rendered": "The Aspen &#8211; Lot 12"},
		"link":         "https://acme.test/homes/the-aspen",
		"acf": map[string]any{
			"bedrooms":       "4",
			"bathrooms":      3.5,
			"square_footage": "2,450 sq ft",
			"home_price":     price,
			"garage":         2.0,
			"community":      []any{map[string]any{"ID": 77.0}},
		},
	}
}

func TestContentHashIsOrderIndependent(t *testing.T) {
	a := map[string]any{"b": 1.0, "a": map[string]any{"y": "x", "x": "y"}}
	b := map[string]any{"a": map[string]any{"x": "y", "y": "x"}, "b": 1.0}
	ha, err := ContentHash(a)
	if err != nil {
		t.Fatalf("ContentHash: %v", err)
	}
	hb, _ := ContentHash(b)
	if ha != hb || len(ha) != 8 {
		t.Fatalf("hashes differ or malformed: %q %q", ha, hb)
	}
	hc, _ := ContentHash(map[string]any{"b": 2.0, "a": map[string]any{"x": "y", "y": "x"}})
	if hc == ha {
		t.Fatalf("different records share hash %q", ha)
	}
}

func TestContentHashKnownValue(t *testing.T) {
	h, _ := ContentHash(map[string]any{"a": 1})
	var want int32
	for _, c := range `{"a":1}` {
		want = want*31 + int32(c)
	}
	if h != fmtHex(want) {
		t.Fatalf("got %s want %s", h, fmtHex(want))
	}
}

func fmtHex(v int32) string {
	const digits = "0123456789abcdef"
	u := uint32(v)
	out := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		out[i] = digits[u&0xf]
		u >>= 4
	}
	return string(out)
}

func TestClassifyEndpoint(t *testing.T) {
	homes := ClassifyEndpoint([]map[string]any{homeRecord(1, "$450,000")})
	if homes.Kind != KindHome || homes.Confidence <= 0 {
		t.Fatalf("expected home, got %+v", homes)
	}
	communities := ClassifyEndpoint([]map[string]any{{
		"id": 5.0,
		"acf": map[string]any{
			"hoa_fee":         "120",
			"school_district": "North",
			"amenities":       []any{"pool"},
			"price_from":      "$399k",
			"city":            "Boise",
		},
	}})
	if communities.Kind != KindCommunity {
		t.Fatalf("expected community, got %+v", communities)
	}
	if len(communities.MatchedFields[KindCommunity]) == 0 {
		t.Fatalf("expected matched fields, got %+v", communities)
	}
	posts := ClassifyEndpoint([]map[string]any{{"id": 1.0, "status": "publish", "title": map[string]any{"rendered": "Hello"}}})
	if posts.Kind != KindUnknown || posts.Confidence != 0 {
		t.Fatalf("plain posts should be unknown, got %+v", posts)
	}
}

func TestSuggestMapping(t *testing.T) {
	got := MappingFromSuggestions(SuggestMapping(KindHome, homeRecord(1, "1")), AutoMapConfidence)
	want := map[string]string{
		"bedrooms":    "acf.bedrooms",
		"bathrooms":   "acf.bathrooms",
		"square_feet": "acf.square_footage",
		"price":       "acf.home_price",
		"community":   "acf.community",
		"title":       "title.rendered",
		"url":         "link",
	}
	for field, path := range want {
		if got[field] != path {
			t.Fatalf("%s: got %q want %q (all=%v)", field, got[field], path, got)
		}
	}
}

func TestBuildProperty(t *testing.T) {
	rec := homeRecord(42, "$459,900")
	mapping := EffectiveMapping(KindHome, map[string]string{"status": "status"}, rec)
	p, err := BuildProperty(uuid.New(), rec, mapping)
	if err != nil {
		t.Fatalf("BuildProperty: %v", err)
	}
	if p.WPID != 42 || p.Title != "The Aspen – Lot 12" {
		t.Fatalf("unexpected identity %d %q", p.WPID, p.Title)
	}
	if p.Price == nil || *p.Price != 459900 || p.SquareFeet == nil || *p.SquareFeet != 2450 {
		t.Fatalf("unexpected numbers price=%v sqft=%v", p.Price, p.SquareFeet)
	}
	if p.LocationWPID == nil || *p.LocationWPID != 77 {
		t.Fatalf("expected community 77, got %v", p.LocationWPID)
	}
	if p.Status != "publish" || p.WPModifiedAt == nil || p.ContentHash == "" {
		t.Fatalf("unexpected property %+v", p)
	}
}

func TestProbeSlugs(t *testing.T) {
	slugs := ProbeSlugs()
	if len(slugs) == 0 || slugs[0] != "communities" {
		t.Fatalf("unexpected probe order %v", slugs)
	}
	if KindForSlug("/Homes/") != KindHome || KindForSlug("posts") != "" {
		t.Fatalf("KindForSlug mismatch")
	}
}

func TestMappedHashFollowsMapping(t *testing.T) {
	rec := map[string]any{"id": 7.0, "acf": map[string]any{"price": "$300,000", "list_price": "$310,000"}}
	a, err := BuildProperty(uuid.New(), rec, map[string]string{"price": "acf.price"})
	if err != nil {
		t.Fatalf("BuildProperty: %v", err)
	}
	same, _ := BuildProperty(uuid.New(), rec, map[string]string{"price": "acf.price"})
	remapped, _ := BuildProperty(uuid.New(), rec, map[string]string{"price": "acf.list_price"})
	if a.ContentHash != same.ContentHash {
		t.Fatalf("same record and mapping must hash the same")
	}
	if a.ContentHash == remapped.ContentHash {
		t.Fatalf("a new mapping must change the hash")
	}
}
