package domain

// Note is free-form text attached to a novel. Notes own no images, so
// deleting one never cascades anywhere.
type Note struct {
	Tracked
	NovelID            string   `json:"novelId"`
	Title              string   `json:"title"`
	Content            string   `json:"content"`
	LinkedCharacterIDs []string `json:"linkedCharacterIds"`
	LinkedPlaceIDs     []string `json:"linkedPlaceIds"`
}

// EnsureSlices replaces nil collection fields with empty slices.
func (n *Note) EnsureSlices() {
	if n.LinkedCharacterIDs == nil {
		n.LinkedCharacterIDs = []string{}
	}
	if n.LinkedPlaceIDs == nil {
		n.LinkedPlaceIDs = []string{}
	}
}

// NotePatch lists the fields an update may change.
type NotePatch struct {
	NovelID            *string   `json:"novelId,omitempty"`
	Title              *string   `json:"title,omitempty"`
	Content            *string   `json:"content,omitempty"`
	LinkedCharacterIDs *[]string `json:"linkedCharacterIds,omitempty"`
	LinkedPlaceIDs     *[]string `json:"linkedPlaceIds,omitempty"`
}

// Apply copies the set fields onto the note.
func (p *NotePatch) Apply(n *Note) {
	if p.NovelID != nil {
		n.NovelID = *p.NovelID
	}
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.LinkedCharacterIDs != nil {
		n.LinkedCharacterIDs = *p.LinkedCharacterIDs
	}
	if p.LinkedPlaceIDs != nil {
		n.LinkedPlaceIDs = *p.LinkedPlaceIDs
	}
	n.EnsureSlices()
}
