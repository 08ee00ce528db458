package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/novelcompanionapp/companion-server/internal/media/images"
)

func (s *Server) registerImageRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:  "uploadImage",
		Method:       http.MethodPost,
		Path:         "/api/v1/images",
		Summary:      "Upload image",
		Description:  "Stores an image payload and returns its ID",
		Tags:         []string{"Images"},
		MaxBodyBytes: MaxImagePayload,
	}, s.handleUploadImage)

	huma.Register(s.api, huma.Operation{
		OperationID: "getImage",
		Method:      http.MethodGet,
		Path:        "/api/v1/images/{id}",
		Summary:     "Get image",
		Description: "Returns a stored image payload by ID",
		Tags:        []string{"Images"},
	}, s.handleGetImage)

	huma.Register(s.api, huma.Operation{
		OperationID: "getImageInfo",
		Method:      http.MethodGet,
		Path:        "/api/v1/images/{id}/info",
		Summary:     "Get image info",
		Description: "Returns format, dimensions, and BlurHash for a stored image",
		Tags:        []string{"Images"},
	}, s.handleGetImageInfo)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteImage",
		Method:      http.MethodDelete,
		Path:        "/api/v1/images/{id}",
		Summary:     "Delete image",
		Description: "Deletes a stored image payload",
		Tags:        []string{"Images"},
	}, s.handleDeleteImage)
}

// === DTOs ===

type UploadImageRequest struct {
	Data string `json:"data" validate:"required" doc:"Image payload, base64 or base64 data URL"`
}

type UploadImageInput struct {
	Body UploadImageRequest
}

type ImageUploadResponse struct {
	ID   string `json:"id" doc:"Image ID"`
	Size int    `json:"size" doc:"Stored payload length"`
}

type ImageUploadOutput struct {
	Body ImageUploadResponse
}

type GetImageInput struct {
	ID string `path:"id" doc:"Image ID"`
}

type ImageDataResponse struct {
	ID   string `json:"id" doc:"Image ID"`
	Data string `json:"data" doc:"Image payload as stored"`
}

type ImageDataOutput struct {
	Body ImageDataResponse
}

type ImageInfoResponse struct {
	ID       string `json:"id" doc:"Image ID"`
	Format   string `json:"format" doc:"Decoded image format (png, jpeg, webp, gif)"`
	MIMEType string `json:"mimeType" doc:"MIME type"`
	Width    int    `json:"width" doc:"Width in pixels"`
	Height   int    `json:"height" doc:"Height in pixels"`
	Size     int    `json:"size" doc:"Decoded payload size in bytes"`
	BlurHash string `json:"blurHash,omitempty" doc:"BlurHash placeholder string"`
}

type ImageInfoOutput struct {
	Body ImageInfoResponse
}

type DeleteImageInput struct {
	ID string `path:"id" doc:"Image ID"`
}

// === Handlers ===

func (s *Server) handleUploadImage(ctx context.Context, input *UploadImageInput) (*ImageUploadOutput, error) {
	image, err := s.services.Image.Save(ctx, input.Body.Data)
	if err != nil {
		return nil, err
	}

	return &ImageUploadOutput{Body: ImageUploadResponse{
		ID:   image.ID,
		Size: len(image.Data),
	}}, nil
}

func (s *Server) handleGetImage(ctx context.Context, input *GetImageInput) (*ImageDataOutput, error) {
	image, err := s.services.Image.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if image == nil {
		return nil, huma.Error404NotFound("image not found")
	}

	return &ImageDataOutput{Body: ImageDataResponse{ID: image.ID, Data: image.Data}}, nil
}

func (s *Server) handleGetImageInfo(ctx context.Context, input *GetImageInput) (*ImageInfoOutput, error) {
	info, err := s.services.Image.Stat(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, huma.Error404NotFound("image not found")
	}

	return &ImageInfoOutput{Body: ImageInfoResponse{
		ID:       input.ID,
		Format:   info.Format,
		MIMEType: info.MIMEType,
		Width:    info.Width,
		Height:   info.Height,
		Size:     info.Size,
		BlurHash: info.BlurHash,
	}}, nil
}

func (s *Server) handleDeleteImage(ctx context.Context, input *DeleteImageInput) (*MessageOutput, error) {
	if err := s.services.Image.Delete(ctx, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Image deleted"}}, nil
}

// handleServeImage streams the decoded bytes of a stored image so the UI
// can point <img> tags straight at /images/{id}. It bypasses the envelope;
// browsers expect a body of pixels, not JSON.
func (s *Server) handleServeImage(w http.ResponseWriter, r *http.Request) {
	imageID := chi.URLParam(r, "id")
	if imageID == "" {
		http.Error(w, "image id required", http.StatusBadRequest)
		return
	}

	// Save dialogs may append an extension; generated ids never contain dots.
	if i := strings.IndexByte(imageID, '.'); i >= 0 {
		imageID = imageID[:i]
	}

	image, err := s.services.Image.Get(r.Context(), imageID)
	if err != nil {
		s.logger.Error("failed to load image", "image_id", imageID, "error", err)
		http.Error(w, "failed to load image", http.StatusInternalServerError)
		return
	}
	if image == nil {
		http.Error(w, "image not found", http.StatusNotFound)
		return
	}

	raw, mimeType, err := images.DecodePayload(image.Data)
	if err != nil {
		s.logger.Error("failed to decode image payload", "image_id", imageID, "error", err)
		http.Error(w, "image payload unreadable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", CacheOneDay)
	w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	w.Write(raw)
}
