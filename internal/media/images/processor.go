// Package images decodes the image payloads stored alongside entities.
// Payloads arrive the way a browser FileReader produces them, as data URLs
// ("data:image/png;base64,...."), though bare base64 is accepted too.
package images

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log/slog"
	"net/http"
	"strings"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Info describes a decoded image payload.
type Info struct {
	Format   string `json:"format"`
	MIMEType string `json:"mimeType"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Size     int    `json:"size"`
	BlurHash string `json:"blurHash,omitempty"`
}

// Processor derives metadata and placeholders from stored image payloads.
type Processor struct {
	logger *slog.Logger
}

// NewProcessor creates a new Processor instance.
func NewProcessor(logger *slog.Logger) *Processor {
	return &Processor{logger: logger}
}

// Stat decodes a payload and reports its format, pixel dimensions, decoded
// size, and BlurHash placeholder. A payload whose dimensions decode but
// whose pixels do not still stats successfully, just without a BlurHash.
func (p *Processor) Stat(data string) (*Info, error) {
	payload, mimeType, err := DecodePayload(data)
	if err != nil {
		return nil, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decode image config: %w", err)
	}

	info := &Info{
		Format:   format,
		MIMEType: mimeType,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Size:     len(payload),
	}

	hash, err := computeBlurHash(payload)
	if err != nil {
		p.logger.Debug("blurhash unavailable", "format", format, "error", err)
	} else {
		info.BlurHash = hash
	}

	return info, nil
}

// DecodePayload splits an image payload into raw bytes and a MIME type.
// Data URLs must carry base64 content; bare strings are decoded as base64
// and sniffed for their type.
func DecodePayload(data string) ([]byte, string, error) {
	if !strings.HasPrefix(data, "data:") {
		payload, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, "", fmt.Errorf("decode base64 payload: %w", err)
		}
		return payload, http.DetectContentType(payload), nil
	}

	meta, encoded, ok := strings.Cut(data, ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URL: no comma separator")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", fmt.Errorf("unsupported data URL encoding: %s", meta)
	}

	mimeType := strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")
	if mimeType == "" {
		mimeType = "text/plain"
	}

	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("decode data URL payload: %w", err)
	}
	return payload, mimeType, nil
}
