package works

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Item is one entry of the works catalog.
type Item struct {
	ID    string
	Title string
	Slug  string
	// MenuOrder is nil when the upstream omits the ordering key.
	MenuOrder  *int
	Excerpt    string
	Categories []Category
	Media      *Media
	Skill      SkillFields
}

// Category is a taxonomy term attached to a work.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Media references the featured image.
type Media struct {
	SourceURL string `json:"sourceUrl"`
	AltText   string `json:"altText"`
}

// SkillFields holds every location the skill descriptor may be stored at. Which
// one is authoritative depends on the resolved Variant.
type SkillFields struct {
	// GroupPresent reports whether the "works" field group object was returned.
	GroupPresent bool
	Nested       Skill
	Direct       Skill
	Meta         []MetaEntry
}

// MetaEntry is one post meta key/value pair.
type MetaEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Order returns the ordering key, treating an absent key as 0.
func (i Item) Order() int {
	if i.MenuOrder == nil {
		return 0
	}
	return *i.MenuOrder
}

// Category returns the first category, if any.
func (i Item) Category() (Category, bool) {
	if len(i.Categories) == 0 {
		return Category{}, false
	}
	return i.Categories[0], true
}

// Route is the detail page path for the item.
func (i Item) Route() string {
	return "/all-works/" + i.Slug
}

// MetaValue returns the first meta value stored under any of keys.
func (i Item) MetaValue(keys ...string) (string, bool) {
	for _, entry := range i.Skill.Meta {
		for _, key := range keys {
			if entry.Key == key {
				return entry.Value, true
			}
		}
	}
	return "", false
}

// Skill is a skill descriptor as returned upstream: a string, a list of strings,
// or null. Defined is set whenever the key was present, even with a null value.
type Skill struct {
	Defined bool
	Values  []string
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Skill) UnmarshalJSON(data []byte) error {
	s.Defined = true
	s.Values = nil

	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		for _, elem := range raw {
			var value string
			if err := json.Unmarshal(elem, &value); err != nil {
				continue
			}
			s.Values = append(s.Values, value)
		}
		return nil
	case len(data) > 0 && data[0] == '"':
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		s.Values = []string{value}
		return nil
	default:
		// ACF returns false for an empty field.
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (s Skill) MarshalJSON() ([]byte, error) {
	if !s.Defined || s.Values == nil {
		return []byte("null"), nil
	}
	return json.Marshal(s.Values)
}

// NewSkill builds a defined skill descriptor.
func NewSkill(values ...string) Skill {
	return Skill{Defined: true, Values: values}
}

func splitMetaSkill(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if strings.HasPrefix(value, "[") {
		var values []string
		if err := json.Unmarshal([]byte(value), &values); err == nil {
			return values
		}
	}
	return []string{value}
}
