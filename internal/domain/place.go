package domain

// Place belongs to exactly one novel and owns its gallery images.
type Place struct {
	Tracked
	NovelID            string   `json:"novelId"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Images             []string `json:"images"`
	LinkedCharacterIDs []string `json:"linkedCharacterIds"`
}

// EnsureSlices replaces nil collection fields with empty slices.
func (p *Place) EnsureSlices() {
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.LinkedCharacterIDs == nil {
		p.LinkedCharacterIDs = []string{}
	}
}

// PlacePatch lists the fields an update may change.
type PlacePatch struct {
	NovelID            *string   `json:"novelId,omitempty"`
	Name               *string   `json:"name,omitempty"`
	Description        *string   `json:"description,omitempty"`
	Images             *[]string `json:"images,omitempty"`
	LinkedCharacterIDs *[]string `json:"linkedCharacterIds,omitempty"`
}

// Apply copies the set fields onto the place.
func (pp *PlacePatch) Apply(p *Place) {
	if pp.NovelID != nil {
		p.NovelID = *pp.NovelID
	}
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Images != nil {
		p.Images = *pp.Images
	}
	if pp.LinkedCharacterIDs != nil {
		p.LinkedCharacterIDs = *pp.LinkedCharacterIDs
	}
	p.EnsureSlices()
}
