package wpsync

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/leadchat-backend/internal/domain"
)

// Suggestions below this confidence are not applied without review.
const AutoMapConfidence = 0.7

// EffectiveMapping fills fields the saved mapping leaves empty with confident
// suggestions drawn from sample.
func EffectiveMapping(kind string, saved map[string]string, sample map[string]any) map[string]string {
	out := MappingFromSuggestions(SuggestMapping(kind, sample), AutoMapConfidence)
	for field, path := range saved {
		if path != "" {
			out[field] = path
		}
	}
	return out
}

func RecordID(rec map[string]any) (int64, error) {
	id := PostID(rec["id"])
	if id == nil {
		return 0, fmt.Errorf("record has no numeric id")
	}
	return *id, nil
}

func BuildLocation(agentID uuid.UUID, rec map[string]any, mapping map[string]string) (*types.Location, error) {
	wpID, err := RecordID(rec)
	if err != nil {
		return nil, err
	}
	hash, err := MappedHash(rec, mapping)
	if err != nil {
		return nil, err
	}
	get := func(field string) any { return lookupMapped(rec, mapping, field) }
	loc := &types.Location{
		AgentID:      agentID,
		WPID:         wpID,
		Name:         Text(get("name")),
		Slug:         Text(rec["slug"]),
		Description:  Text(get("description")),
		Address:      Text(get("address")),
		City:         Text(get("city")),
		State:        Text(get("state")),
		Zip:          Text(get("zip")),
		PriceFrom:    Number(get("price_from")),
		URL:          Text(get("url")),
		Attributes:   attributes(rec),
		ContentHash:  hash,
		WPModifiedAt: Modified(rec),
	}
	if loc.Name == "" {
		loc.Name = fmt.Sprintf("Community %d", wpID)
	}
	return loc, nil
}

func BuildProperty(agentID uuid.UUID, rec map[string]any, mapping map[string]string) (*types.Property, error) {
	wpID, err := RecordID(rec)
	if err != nil {
		return nil, err
	}
	hash, err := MappedHash(rec, mapping)
	if err != nil {
		return nil, err
	}
	get := func(field string) any { return lookupMapped(rec, mapping, field) }
	p := &types.Property{
		AgentID:      agentID,
		WPID:         wpID,
		LocationWPID: PostID(get("community")),
		Title:        Text(get("title")),
		Slug:         Text(rec["slug"]),
		Description:  Text(get("description")),
		Address:      Text(get("address")),
		Price:        Number(get("price")),
		Bedrooms:     Number(get("bedrooms")),
		Bathrooms:    Number(get("bathrooms")),
		SquareFeet:   Number(get("square_feet")),
		Status:       Text(get("status")),
		URL:          Text(get("url")),
		Attributes:   attributes(rec),
		ContentHash:  hash,
		WPModifiedAt: Modified(rec),
	}
	if p.Title == "" {
		p.Title = fmt.Sprintf("Home %d", wpID)
	}
	return p, nil
}

// MappedHash fingerprints a record together with the mapping applied to it,
// so a mapping change rewrites rows whose upstream data did not move.
func MappedHash(rec map[string]any, mapping map[string]string) (string, error) {
	return ContentHash(map[string]any{"record": rec, "mapping": mapping})
}

func lookupMapped(rec map[string]any, mapping map[string]string, field string) any {
	path, ok := mapping[field]
	if !ok || path == "" {
		return nil
	}
	return Lookup(rec, path)
}

// attributes keeps the raw acf object so unmapped fields stay queryable.
func attributes(rec map[string]any) datatypes.JSON {
	acf, ok := rec["acf"].(map[string]any)
	if !ok || len(acf) == 0 {
		return nil
	}
	b, err := json.Marshal(acf)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
