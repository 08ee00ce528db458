// Package search provides full-text search across the companion's entities
// using Bleve. Novels, characters, places and notes share a single index
// with type discrimination, fuzzy matching and accent-folded text.
package search

import (
	"strings"

	"github.com/novelcompanionapp/companion-server/internal/domain"
	"github.com/novelcompanionapp/companion-server/internal/normalize"
)

// DocType discriminates entity kinds inside the unified index.
type DocType string

// Document types for the search index.
const (
	DocTypeNovel     DocType = "novel"
	DocTypeCharacter DocType = "character"
	DocTypePlace     DocType = "place"
	DocTypeNote      DocType = "note"
)

// Document is the unified shape every entity is indexed as. Record ids double
// as index ids, so nothing here needs denormalizing: a character document
// carries its own name and description, and the novel filter works off the
// novel_id keyword field.
type Document struct {
	ID      string
	Type    DocType
	NovelID string // empty for novels themselves

	// Name is the primary search target: novel/note title, character/place
	// name.
	Name string

	// Author is set for novels only.
	Author string

	// Description carries the secondary text: character/place descriptions
	// and note content. Indexed, never stored.
	Description string

	// Tags are character tag values for exact filtering.
	Tags []string

	CreatedAt int64 // Unix millis
	UpdatedAt int64 // Unix millis
}

// ToMap lays the document out under the lowercase field names the index
// mapping declares. Bleve would otherwise index Go field names.
func (d *Document) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"type":       string(d.Type),
		"name":       d.Name,
		"folded":     d.foldedText(),
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}

	if d.NovelID != "" {
		m["novel_id"] = d.NovelID
	}
	if d.Author != "" {
		m["author"] = d.Author
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}

	return m
}

// foldedText joins the accent-stripped searchable text into one field, so
// a query for "chloe" reaches a character named "Chloé".
func (d *Document) foldedText() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{d.Name, d.Author, d.Description} {
		if s != "" {
			parts = append(parts, normalize.Fold(s))
		}
	}
	return strings.Join(parts, " ")
}

// NovelToDocument converts a novel for indexing.
func NovelToDocument(n *domain.Novel) *Document {
	return &Document{
		ID:        n.ID,
		Type:      DocTypeNovel,
		Name:      n.Title,
		Author:    n.Author,
		CreatedAt: n.CreatedAt.UnixMilli(),
		UpdatedAt: n.UpdatedAt.UnixMilli(),
	}
}

// CharacterToDocument converts a character for indexing.
func CharacterToDocument(c *domain.Character) *Document {
	tags := make([]string, 0, len(c.Tags))
	for _, tag := range c.Tags {
		tags = append(tags, string(tag))
	}
	return &Document{
		ID:          c.ID,
		Type:        DocTypeCharacter,
		NovelID:     c.NovelID,
		Name:        c.Name,
		Description: c.Description,
		Tags:        tags,
		CreatedAt:   c.CreatedAt.UnixMilli(),
		UpdatedAt:   c.UpdatedAt.UnixMilli(),
	}
}

// PlaceToDocument converts a place for indexing.
func PlaceToDocument(p *domain.Place) *Document {
	return &Document{
		ID:          p.ID,
		Type:        DocTypePlace,
		NovelID:     p.NovelID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt.UnixMilli(),
		UpdatedAt:   p.UpdatedAt.UnixMilli(),
	}
}

// NoteToDocument converts a note for indexing. The note body is searchable
// through the description field.
func NoteToDocument(n *domain.Note) *Document {
	return &Document{
		ID:          n.ID,
		Type:        DocTypeNote,
		NovelID:     n.NovelID,
		Name:        n.Title,
		Description: n.Content,
		CreatedAt:   n.CreatedAt.UnixMilli(),
		UpdatedAt:   n.UpdatedAt.UnixMilli(),
	}
}
