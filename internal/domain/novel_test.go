package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/novelcompanionapp/companion-server/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestNovelPatch_Apply(t *testing.T) {
	n := domain.Novel{
		Title:      "Dune",
		Author:     "Frank Herbert",
		CoverImage: "img-cover",
	}

	patch := domain.NovelPatch{Title: strPtr("Dune Messiah")}
	patch.Apply(&n)

	assert.Equal(t, "Dune Messiah", n.Title)
	// Unset fields stay put.
	assert.Equal(t, "Frank Herbert", n.Author)
	assert.Equal(t, "img-cover", n.CoverImage)
}

func TestNovelPatch_ClearsWithEmptyString(t *testing.T) {
	n := domain.Novel{Title: "Dune", Author: "Frank Herbert"}

	patch := domain.NovelPatch{Author: strPtr("")}
	patch.Apply(&n)

	assert.Empty(t, n.Author)
	assert.Equal(t, "Dune", n.Title)
}

func TestNovelPatch_EmptyPatchIsNoop(t *testing.T) {
	n := domain.Novel{Title: "Dune", Author: "Frank Herbert", CoverImage: "img-1"}
	orig := n

	var patch domain.NovelPatch
	patch.Apply(&n)

	assert.Equal(t, orig, n)
}
