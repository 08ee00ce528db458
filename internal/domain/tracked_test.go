package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/novelcompanionapp/companion-server/internal/domain"
)

func TestInitTimestamps(t *testing.T) {
	var tr domain.Tracked
	before := time.Now()
	tr.InitTimestamps()
	after := time.Now()

	assert.False(t, tr.CreatedAt.Before(before))
	assert.False(t, tr.CreatedAt.After(after))
	assert.Equal(t, tr.CreatedAt, tr.UpdatedAt)
}

func TestTouch_StrictlyAdvances(t *testing.T) {
	var tr domain.Tracked
	tr.InitTimestamps()

	// Even back-to-back touches must strictly advance UpdatedAt,
	// since recency ordering depends on it.
	for range 50 {
		prev := tr.UpdatedAt
		tr.Touch()
		assert.True(t, tr.UpdatedAt.After(prev))
	}
}

func TestTouch_LeavesCreatedAt(t *testing.T) {
	var tr domain.Tracked
	tr.InitTimestamps()
	created := tr.CreatedAt

	tr.Touch()

	assert.Equal(t, created, tr.CreatedAt)
}
