package backup

import (
	"encoding/json/v2"
	"fmt"
	"strconv"
	"time"

	"github.com/novelcompanionapp/companion-server/internal/domain"
	domainerrors "github.com/novelcompanionapp/companion-server/internal/errors"
)

// FormatVersion is the backup document format version. Increment major on
// breaking changes.
const FormatVersion = "1.0"

const (
	filePrefix = "novel-companion-backup-"
	fileExt    = ".json"
)

// ErrInvalidDocument matches any rejected backup document. It carries
// CodeValidation, so errors.Is works against it and against
// errors.ErrValidation alike.
var ErrInvalidDocument = domainerrors.Validation("invalid backup document")

// Millis is a point in time carried as integer epoch milliseconds in JSON.
// Unmarshaling also accepts a numeric string, since some exporters quote
// large numbers.
type Millis struct {
	time.Time
}

// MarshalJSON outputs the time as epoch milliseconds.
func (m Millis) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, m.UnixMilli(), 10), nil
}

// UnmarshalJSON parses epoch milliseconds from a number or numeric string.
func (m *Millis) UnmarshalJSON(data []byte) error {
	var ms int64
	if err := json.Unmarshal(data, &ms); err == nil {
		m.Time = time.UnixMilli(ms)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("parse epoch milliseconds: %w", err)
		}
		m.Time = time.UnixMilli(ms)
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s as epoch milliseconds", string(data))
}

// Document is the complete on-disk backup format: every record of all five
// collections in one JSON object. Image data is inlined as a map from image
// id to its data payload.
type Document struct {
	Version    string              `json:"version"`
	ExportedAt Millis              `json:"exportedAt"`
	Novels     []*domain.Novel     `json:"novels"`
	Characters []*domain.Character `json:"characters"`
	Places     []*domain.Place     `json:"places"`
	Notes      []*domain.Note      `json:"notes"`
	Images     map[string]string   `json:"images"`
}

// EntityCounts summarizes a document for logs and API responses.
type EntityCounts struct {
	Novels     int `json:"novels"`
	Characters int `json:"characters"`
	Places     int `json:"places"`
	Notes      int `json:"notes"`
	Images     int `json:"images"`
}

// Counts tallies the document's contents.
func (d *Document) Counts() EntityCounts {
	return EntityCounts{
		Novels:     len(d.Novels),
		Characters: len(d.Characters),
		Places:     len(d.Places),
		Notes:      len(d.Notes),
		Images:     len(d.Images),
	}
}

// EncodeDocument serializes a document to its file form.
func EncodeDocument(doc *Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode backup document: %w", err)
	}
	return data, nil
}

// DecodeDocument parses and validates a backup document. The boundary check
// is presence of the version and novels fields; anything less is rejected
// before a single write can happen. Deeper structural validation is opt-in
// via ValidateDocument.
func DecodeDocument(data []byte) (*Document, error) {
	var raw struct {
		Version    *string             `json:"version"`
		ExportedAt Millis              `json:"exportedAt"`
		Novels     *[]*domain.Novel    `json:"novels"`
		Characters []*domain.Character `json:"characters"`
		Places     []*domain.Place     `json:"places"`
		Notes      []*domain.Note      `json:"notes"`
		Images     map[string]string   `json:"images"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, ErrInvalidDocument.WithCause(err)
	}
	if raw.Version == nil {
		return nil, domainerrors.Validation("backup document is missing the version field")
	}
	if raw.Novels == nil {
		return nil, domainerrors.Validation("backup document is missing the novels field")
	}

	doc := &Document{
		Version:    *raw.Version,
		ExportedAt: raw.ExportedAt,
		Novels:     *raw.Novels,
		Characters: raw.Characters,
		Places:     raw.Places,
		Notes:      raw.Notes,
		Images:     raw.Images,
	}

	// Absent groups become empty so the document re-encodes with the same
	// shape the exporter produces.
	if doc.Characters == nil {
		doc.Characters = make([]*domain.Character, 0)
	}
	if doc.Places == nil {
		doc.Places = make([]*domain.Place, 0)
	}
	if doc.Notes == nil {
		doc.Notes = make([]*domain.Note, 0)
	}
	if doc.Images == nil {
		doc.Images = make(map[string]string)
	}

	return doc, nil
}

// FileName returns the conventional backup file name for a point in time,
// e.g. novel-companion-backup-2026-08-25.json.
func FileName(t time.Time) string {
	return filePrefix + t.Format(time.DateOnly) + fileExt
}
