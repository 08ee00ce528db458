package id_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelcompanionapp/companion-server/internal/id"
)

func TestGenerate_Prefix(t *testing.T) {
	got, err := id.Generate(id.PrefixNovel)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "nvl-"))
	// prefix + "-" + 21 char nanoid
	assert.Len(t, got, len(id.PrefixNovel)+1+21)
}

func TestGenerate_NoColon(t *testing.T) {
	// Store keys use ':' as a separator, so ids must never contain one.
	for range 100 {
		got, err := id.Generate(id.PrefixCharacter)
		require.NoError(t, err)
		assert.NotContains(t, got[len(id.PrefixCharacter)+1:], ":")
	}
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		got := id.MustGenerate(id.PrefixNote)
		assert.False(t, seen[got], "duplicate id %s", got)
		seen[got] = true
	}
}
