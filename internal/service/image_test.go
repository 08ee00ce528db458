package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/novelcompanionapp/companion-server/internal/errors"
)

func testPNGDataURL(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := range 8 {
		for x := range 8 {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestImageService_SaveGet(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	data := testPNGDataURL(t)
	saved, err := svc.images.Save(ctx, data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(saved.ID, "img-"), "id %q carries the image prefix", saved.ID)
	assert.Equal(t, data, saved.Data)

	got, err := svc.images.Get(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, data, got.Data)
}

func TestImageService_Save_RequiresData(t *testing.T) {
	svc := setupTestServices(t)

	_, err := svc.images.Save(context.Background(), "")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestImageService_Save_UniqueIDs(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for range 20 {
		img, err := svc.images.Save(ctx, "data:image/png;base64,cGl4ZWw=")
		require.NoError(t, err)
		assert.False(t, seen[img.ID], "duplicate id %s", img.ID)
		seen[img.ID] = true
	}
}

func TestImageService_Get_Absent(t *testing.T) {
	svc := setupTestServices(t)

	got, err := svc.images.Get(context.Background(), "img-missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestImageService_Delete(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	saved, err := svc.images.Save(ctx, "data:image/png;base64,cGl4ZWw=")
	require.NoError(t, err)

	require.NoError(t, svc.images.Delete(ctx, saved.ID))

	got, err := svc.images.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Idempotent.
	require.NoError(t, svc.images.Delete(ctx, saved.ID))
}

// Deleting an image leaves referencing entities untouched. References are
// one-way, from entity to image id.
func TestImageService_Delete_LeavesReferences(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	novel := createTestNovel(t, svc, "Dune")
	img := saveTestImage(t, svc, "data:image/png;base64,cGF1bA==")
	character := createTestCharacter(t, svc, CreateCharacterInput{
		NovelID: novel.ID, Name: "Paul", Images: []string{img.ID},
	})

	require.NoError(t, svc.images.Delete(ctx, img.ID))

	got, err := svc.characters.Get(ctx, character.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{img.ID}, got.Images, "the dangling id stays until the owner is edited")
}

func TestImageService_Stat(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	saved, err := svc.images.Save(ctx, testPNGDataURL(t))
	require.NoError(t, err)

	info, err := svc.images.Stat(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "png", info.Format)
	assert.Equal(t, "image/png", info.MIMEType)
	assert.Equal(t, 8, info.Width)
	assert.Equal(t, 8, info.Height)
	assert.NotEmpty(t, info.BlurHash)
}

func TestImageService_Stat_Absent(t *testing.T) {
	svc := setupTestServices(t)

	info, err := svc.images.Stat(context.Background(), "img-missing")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestImageService_Stat_Undecodable(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	saved, err := svc.images.Save(ctx, "data:image/png;base64,bm90YXBuZw==")
	require.NoError(t, err)

	_, err = svc.images.Stat(ctx, saved.ID)
	require.Error(t, err)
}
