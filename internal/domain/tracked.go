// Package domain contains the core entity types for the Novel Companion.
package domain

import "time"

// Tracked provides the common identity and timestamp fields, and gets
// embedded in every entity except images (which are immutable blobs).
type Tracked struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Touch advances the UpdatedAt timestamp. The clock may not tick between
// two rapid successive writes, so Touch always moves UpdatedAt forward to
// keep the recency ordering strict.
func (t *Tracked) Touch() {
	now := time.Now()
	if !now.After(t.UpdatedAt) {
		now = t.UpdatedAt.Add(time.Nanosecond)
	}
	t.UpdatedAt = now
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
// Call this when creating a new entity.
func (t *Tracked) InitTimestamps() {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
}
