package images

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeTestPNG renders a small gradient so the BlurHash has structure to
// encode, and returns the raw PNG bytes.
func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pngDataURL(t *testing.T, width, height int) string {
	t.Helper()
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(encodeTestPNG(t, width, height))
}

func newTestProcessor() *Processor {
	return NewProcessor(slog.New(slog.DiscardHandler))
}

func TestProcessor_Stat(t *testing.T) {
	p := newTestProcessor()

	info, err := p.Stat(pngDataURL(t, 32, 24))
	require.NoError(t, err)

	assert.Equal(t, "png", info.Format)
	assert.Equal(t, "image/png", info.MIMEType)
	assert.Equal(t, 32, info.Width)
	assert.Equal(t, 24, info.Height)
	assert.Positive(t, info.Size)
	assert.NotEmpty(t, info.BlurHash)
}

func TestProcessor_Stat_BareBase64(t *testing.T) {
	p := newTestProcessor()

	raw := encodeTestPNG(t, 8, 8)
	info, err := p.Stat(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)

	assert.Equal(t, "png", info.Format)
	assert.Equal(t, "image/png", info.MIMEType)
	assert.Equal(t, 8, info.Width)
	assert.Equal(t, 8, info.Height)
}

func TestProcessor_Stat_LargeImageResized(t *testing.T) {
	p := newTestProcessor()

	// Larger than the blurhash thumbnail target on both axes.
	info, err := p.Stat(pngDataURL(t, 200, 120))
	require.NoError(t, err)
	assert.Equal(t, 200, info.Width)
	assert.Equal(t, 120, info.Height)
	assert.NotEmpty(t, info.BlurHash)
}

func TestProcessor_Stat_NotAnImage(t *testing.T) {
	p := newTestProcessor()

	payload := base64.StdEncoding.EncodeToString([]byte("definitely not pixels"))
	_, err := p.Stat("data:image/png;base64," + payload)
	assert.Error(t, err)
}

func TestDecodePayload(t *testing.T) {
	t.Run("data URL", func(t *testing.T) {
		payload, mimeType, err := DecodePayload("data:image/webp;base64," +
			base64.StdEncoding.EncodeToString([]byte{1, 2, 3}))
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, payload)
		assert.Equal(t, "image/webp", mimeType)
	})

	t.Run("bare base64 sniffs type", func(t *testing.T) {
		raw := encodeTestPNG(t, 4, 4)
		payload, mimeType, err := DecodePayload(base64.StdEncoding.EncodeToString(raw))
		require.NoError(t, err)
		assert.Equal(t, raw, payload)
		assert.Equal(t, "image/png", mimeType)
	})

	t.Run("rejects non-base64 data URL", func(t *testing.T) {
		_, _, err := DecodePayload("data:text/plain,hello")
		assert.Error(t, err)
	})

	t.Run("rejects data URL without comma", func(t *testing.T) {
		_, _, err := DecodePayload("data:image/png;base64")
		assert.Error(t, err)
	})

	t.Run("rejects invalid base64", func(t *testing.T) {
		_, _, err := DecodePayload("!!not-base64!!")
		assert.Error(t, err)
	})
}

func TestResizeForBlurHash(t *testing.T) {
	t.Run("small image untouched", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 10, 10))
		assert.Equal(t, img.Bounds(), resizeForBlurHash(img).Bounds())
	})

	t.Run("wide image scales to target width", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 640, 160))
		got := resizeForBlurHash(img).Bounds()
		assert.Equal(t, blurHashSize, got.Dx())
		assert.Equal(t, 16, got.Dy())
	})

	t.Run("tall image scales to target height", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 160, 640))
		got := resizeForBlurHash(img).Bounds()
		assert.Equal(t, 16, got.Dx())
		assert.Equal(t, blurHashSize, got.Dy())
	})
}
