package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/novelcompanionapp/companion-server/internal/domain"
	domainerrors "github.com/novelcompanionapp/companion-server/internal/errors"
	"github.com/novelcompanionapp/companion-server/internal/id"
	"github.com/novelcompanionapp/companion-server/internal/media/images"
	"github.com/novelcompanionapp/companion-server/internal/store"
)

// ImageService stores image blobs by id. It keeps no back-references:
// whoever saves an image is responsible for attaching its id to an
// entity's images list or a novel's coverImage.
type ImageService struct {
	store     store.Store
	logger    *slog.Logger
	processor *images.Processor
}

// NewImageService creates a new image service.
func NewImageService(store store.Store, logger *slog.Logger) *ImageService {
	return &ImageService{
		store:     store,
		logger:    logger,
		processor: images.NewProcessor(logger),
	}
}

// Get returns an image by id, or (nil, nil) when absent.
func (s *ImageService) Get(ctx context.Context, imageID string) (*domain.Image, error) {
	return getRecord[domain.Image](ctx, s.store, store.CollectionImages, imageID)
}

// Save stores image data under a fresh id and returns the full record.
func (s *ImageService) Save(ctx context.Context, data string) (*domain.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if data == "" {
		return nil, domainerrors.Validation("image data is required")
	}

	imageID, err := id.Generate(id.PrefixImage)
	if err != nil {
		return nil, fmt.Errorf("generate image ID: %w", err)
	}

	image := &domain.Image{ID: imageID, Data: data}
	raw, err := encodeRecord(image)
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, store.CollectionImages, raw); err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}

	s.logger.Info("image saved", "image_id", imageID, "size", len(data))

	return image, nil
}

// Delete removes an image blob. Deleting an absent image is a no-op.
// Callers must ensure no remaining entity references the id, or reads of
// that reference resolve to a missing image.
func (s *ImageService) Delete(ctx context.Context, imageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, store.CollectionImages, imageID); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}

	s.logger.Info("image deleted", "image_id", imageID)

	return nil
}

// Stat decodes a stored image and returns its format, dimensions, and
// BlurHash placeholder. The metadata is derived on demand and never
// persisted. Absent images return (nil, nil).
func (s *ImageService) Stat(ctx context.Context, imageID string) (*images.Info, error) {
	image, err := s.Get(ctx, imageID)
	if err != nil || image == nil {
		return nil, err
	}

	info, err := s.processor.Stat(image.Data)
	if err != nil {
		return nil, fmt.Errorf("stat image %s: %w", imageID, err)
	}
	return info, nil
}
