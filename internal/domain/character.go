package domain

import "slices"

// Character belongs to exactly one novel and owns its gallery images.
// Links to other characters and places are loose references: the linked
// record may already be gone, and readers tolerate that.
type Character struct {
	Tracked
	NovelID            string   `json:"novelId"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Images             []string `json:"images"`
	Tags               []Tag    `json:"tags"`
	LinkedCharacterIDs []string `json:"linkedCharacterIds"`
	LinkedPlaceIDs     []string `json:"linkedPlaceIds"`
}

// EnsureSlices replaces nil collection fields with empty slices so records
// always serialize as arrays.
func (c *Character) EnsureSlices() {
	if c.Images == nil {
		c.Images = []string{}
	}
	if c.Tags == nil {
		c.Tags = []Tag{}
	}
	if c.LinkedCharacterIDs == nil {
		c.LinkedCharacterIDs = []string{}
	}
	if c.LinkedPlaceIDs == nil {
		c.LinkedPlaceIDs = []string{}
	}
}

// RemoveLinkedCharacter drops the given id from LinkedCharacterIDs.
// Returns true if the list changed.
func (c *Character) RemoveLinkedCharacter(id string) bool {
	before := len(c.LinkedCharacterIDs)
	c.LinkedCharacterIDs = slices.DeleteFunc(c.LinkedCharacterIDs, func(linked string) bool {
		return linked == id
	})
	return len(c.LinkedCharacterIDs) != before
}

// CharacterPatch lists the fields an update may change.
type CharacterPatch struct {
	NovelID            *string   `json:"novelId,omitempty"`
	Name               *string   `json:"name,omitempty"`
	Description        *string   `json:"description,omitempty"`
	Images             *[]string `json:"images,omitempty"`
	Tags               *[]Tag    `json:"tags,omitempty"`
	LinkedCharacterIDs *[]string `json:"linkedCharacterIds,omitempty"`
	LinkedPlaceIDs     *[]string `json:"linkedPlaceIds,omitempty"`
}

// Apply copies the set fields onto the character.
func (p *CharacterPatch) Apply(c *Character) {
	if p.NovelID != nil {
		c.NovelID = *p.NovelID
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Images != nil {
		c.Images = *p.Images
	}
	if p.Tags != nil {
		c.Tags = *p.Tags
	}
	if p.LinkedCharacterIDs != nil {
		c.LinkedCharacterIDs = *p.LinkedCharacterIDs
	}
	if p.LinkedPlaceIDs != nil {
		c.LinkedPlaceIDs = *p.LinkedPlaceIDs
	}
	c.EnsureSlices()
}
