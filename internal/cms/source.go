package cms

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/bakushin-github/bakushin.dev/internal/works"
)

const (
	// DefaultPath is the catalog file used when no content API is configured.
	DefaultPath  = "content/works.yaml"
	cursorPrefix = "arrayconnection:"
)

// ErrInvalidCursor is returned for cursors this source did not issue.
var ErrInvalidCursor = errors.New("cms: invalid cursor")

type catalogFile struct {
	// Schema selects where entries expose their skill: nested, direct or meta.
	Schema string      `yaml:"schema"`
	Works  []workEntry `yaml:"works"`
}

type workEntry struct {
	ID         string     `yaml:"id"`
	Title      string     `yaml:"title"`
	Slug       string     `yaml:"slug"`
	MenuOrder  *int       `yaml:"menu_order"`
	Excerpt    string     `yaml:"excerpt"`
	Image      imageEntry `yaml:"image"`
	Categories []string   `yaml:"categories"`
	Skill      []string   `yaml:"skill"`
	Slider     bool       `yaml:"slider"`
}

type imageEntry struct {
	URL string `yaml:"url"`
	Alt string `yaml:"alt"`
}

// Source serves the works catalog from a local YAML file in the same cursor
// pages a WPGraphQL endpoint would return. Excerpts are written in Markdown.
type Source struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	loaded  bool
	schema  works.Variant
	entries []works.Item
}

// NewSource returns a Source reading path; the file is read on first use.
func NewSource(path string, logger *zap.Logger) *Source {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{path: path, logger: logger}
}

// Reload forces the file to be read again on the next request.
func (s *Source) Reload() {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
}

// FetchPage implements works.Source.
func (s *Source) FetchPage(ctx context.Context, req works.PageRequest) (works.Page, error) {
	if err := ctx.Err(); err != nil {
		return works.Page{}, err
	}
	schema, all, err := s.load()
	if err != nil {
		return works.Page{}, err
	}

	items := make([]works.Item, 0, len(all))
	for _, item := range all {
		if slices.Contains(req.ExcludeIDs, item.ID) {
			continue
		}
		items = append(items, shapeFor(item, schema, req.Variant.Effective()))
	}
	if !req.Natural {
		items = works.Order(items)
	}

	offset, err := decodeCursor(req.After)
	if err != nil {
		return works.Page{}, err
	}
	first := req.First
	if first < 1 {
		first = works.DefaultFetchSize
	}
	start := min(offset, len(items))
	end := min(start+first, len(items))

	page := works.Page{
		Items:       items[start:end],
		HasNextPage: end < len(items),
	}
	if end > start {
		page.EndCursor = encodeCursor(end)
	}
	return page, nil
}

// shapeFor keeps only what the works query for requested selects. The skill field
// exists for the file's schema alone, while metaData is selected by every query.
func shapeFor(item works.Item, schema, requested works.Variant) works.Item {
	if schema == requested {
		return item
	}
	item.Skill = works.SkillFields{Meta: item.Skill.Meta}
	return item
}

func (s *Source) load() (works.Variant, []works.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.schema, s.entries, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return works.VariantUnknown, nil, fmt.Errorf("cms: read %s: %w", s.path, err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return works.VariantUnknown, nil, fmt.Errorf("cms: parse %s: %w", s.path, err)
	}

	schema := works.ParseVariant(strings.ToLower(strings.TrimSpace(file.Schema))).Effective()
	items := make([]works.Item, 0, len(file.Works))
	for i, entry := range file.Works {
		item, err := entry.item(schema)
		if err != nil {
			return works.VariantUnknown, nil, fmt.Errorf("cms: %s entry %d: %w", s.path, i, err)
		}
		items = append(items, item)
	}

	s.logger.Debug("cms: loaded local works catalog", zap.String("path", s.path), zap.Int("items", len(items)), zap.Stringer("schema", schema))
	s.schema, s.entries, s.loaded = schema, items, true
	return schema, items, nil
}

func (e workEntry) item(schema works.Variant) (works.Item, error) {
	id := strings.TrimSpace(e.ID)
	if id == "" {
		id = "local:" + e.Slug
	}
	excerpt, err := renderMarkdown(e.Excerpt)
	if err != nil {
		return works.Item{}, err
	}

	item := works.Item{
		ID:        id,
		Title:     e.Title,
		Slug:      strings.TrimSpace(e.Slug),
		MenuOrder: e.MenuOrder,
		Excerpt:   excerpt,
	}
	if e.Image.URL != "" {
		item.Media = &works.Media{SourceURL: e.Image.URL, AltText: e.Image.Alt}
	}
	for _, name := range e.Categories {
		item.Categories = append(item.Categories, works.Category{Name: name, Slug: slugify(name)})
	}

	skill := works.NewSkill(e.Skill...)
	switch schema {
	case works.VariantDirect:
		item.Skill.Direct = skill
	case works.VariantMeta:
		item.Skill.Meta = append(item.Skill.Meta, works.MetaEntry{Key: "skill", Value: strings.Join(e.Skill, ", ")})
	default:
		item.Skill.GroupPresent = true
		item.Skill.Nested = skill
	}
	if e.Slider {
		item.Skill.Meta = append(item.Skill.Meta, works.MetaEntry{Key: "_slider", Value: "1"})
	}
	return item, nil
}

var excerptPolicy = bluemonday.UGCPolicy()

func renderMarkdown(src string) (string, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render excerpt: %w", err)
	}
	return strings.TrimSpace(excerptPolicy.Sanitize(buf.String())), nil
}

func encodeCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCursor, cursor)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(string(raw), cursorPrefix))
	if err != nil || n < 0 || !strings.HasPrefix(string(raw), cursorPrefix) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCursor, cursor)
	}
	return n, nil
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
