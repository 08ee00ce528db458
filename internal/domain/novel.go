package domain

// Novel is the root entity everything else hangs off.
type Novel struct {
	Tracked
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`
	// CoverImage references an image record by id. The cover is a loose
	// reference, not an owned dependent: deleting the novel leaves it behind.
	CoverImage string `json:"coverImage,omitempty"`
}

// NovelPatch lists the fields an update may change. A nil field leaves the
// current value alone; a set pointer overwrites it, empty string included.
type NovelPatch struct {
	Title      *string `json:"title,omitempty"`
	Author     *string `json:"author,omitempty"`
	CoverImage *string `json:"coverImage,omitempty"`
}

// Apply copies the set fields onto the novel. Identity and timestamps are
// untouched here; the caller decides when to Touch.
func (p *NovelPatch) Apply(n *Novel) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Author != nil {
		n.Author = *p.Author
	}
	if p.CoverImage != nil {
		n.CoverImage = *p.CoverImage
	}
}
