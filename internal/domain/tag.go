package domain

import "fmt"

// Tag classifies a character's role in the story.
type Tag string

// The fixed set of character tags. The UI renders these as colored chips,
// so unknown values are rejected at the service boundary.
const (
	TagMC           Tag = "mc"
	TagVillain      Tag = "villain"
	TagAlly         Tag = "ally"
	TagMentor       Tag = "mentor"
	TagLoveInterest Tag = "love-interest"
	TagSide         Tag = "side"
	TagCustom       Tag = "custom"
)

// AllTags returns every valid tag value.
func AllTags() []Tag {
	return []Tag{TagMC, TagVillain, TagAlly, TagMentor, TagLoveInterest, TagSide, TagCustom}
}

// Valid reports whether the tag is one of the known values.
func (t Tag) Valid() bool {
	switch t {
	case TagMC, TagVillain, TagAlly, TagMentor, TagLoveInterest, TagSide, TagCustom:
		return true
	default:
		return false
	}
}

// ValidateTags returns an error naming the first unknown tag, if any.
func ValidateTags(tags []Tag) error {
	for _, t := range tags {
		if !t.Valid() {
			return fmt.Errorf("unknown tag %q", t)
		}
	}
	return nil
}
