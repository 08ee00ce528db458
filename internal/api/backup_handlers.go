package api

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/novelcompanionapp/companion-server/internal/backup"
	domainerrors "github.com/novelcompanionapp/companion-server/internal/errors"
)

func (s *Server) registerBackupRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createBackup",
		Method:      http.MethodPost,
		Path:        "/api/v1/backups",
		Summary:     "Create backup",
		Description: "Exports the whole workspace into a new backup file",
		Tags:        []string{"Backups"},
	}, s.handleCreateBackup)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBackups",
		Method:      http.MethodGet,
		Path:        "/api/v1/backups",
		Summary:     "List backups",
		Description: "Lists all backup files, newest first",
		Tags:        []string{"Backups"},
	}, s.handleListBackups)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBackup",
		Method:      http.MethodGet,
		Path:        "/api/v1/backups/{id}",
		Summary:     "Get backup details",
		Description: "Returns details of a specific backup file",
		Tags:        []string{"Backups"},
	}, s.handleGetBackup)

	huma.Register(s.api, huma.Operation{
		OperationID: "downloadBackup",
		Method:      http.MethodGet,
		Path:        "/api/v1/backups/{id}/download",
		Summary:     "Download backup",
		Description: "Downloads a backup file as an attachment",
		Tags:        []string{"Backups"},
	}, s.handleDownloadBackup)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBackup",
		Method:      http.MethodDelete,
		Path:        "/api/v1/backups/{id}",
		Summary:     "Delete backup",
		Description: "Deletes a backup file",
		Tags:        []string{"Backups"},
	}, s.handleDeleteBackup)

	huma.Register(s.api, huma.Operation{
		OperationID: "restoreBackup",
		Method:      http.MethodPost,
		Path:        "/api/v1/backups/{id}/restore",
		Summary:     "Restore backup",
		Description: "Restores the workspace from a backup file",
		Tags:        []string{"Backups"},
	}, s.handleRestoreBackup)

	huma.Register(s.api, huma.Operation{
		OperationID:  "validateBackup",
		Method:       http.MethodPost,
		Path:         "/api/v1/backups/validate",
		Summary:      "Validate backup document",
		Description:  "Runs the full schema over an uploaded backup document without importing it",
		Tags:         []string{"Backups"},
		MaxBodyBytes: MaxBackupUpload,
	}, s.handleValidateBackup)

	huma.Register(s.api, huma.Operation{
		OperationID:  "importBackup",
		Method:       http.MethodPost,
		Path:         "/api/v1/backups/import",
		Summary:      "Import backup document",
		Description:  "Imports an uploaded backup document into the workspace",
		Tags:         []string{"Backups"},
		MaxBodyBytes: MaxBackupUpload,
	}, s.handleImportBackup)
}

// === DTOs ===

// BackupResponse represents a backup file in API responses.
type BackupResponse struct {
	ID        string               `json:"id" doc:"Backup identifier"`
	Name      string               `json:"name" doc:"Backup file name"`
	Path      string               `json:"path" doc:"Backup file path on the server"`
	Size      int64                `json:"size" doc:"Backup file size in bytes"`
	CreatedAt time.Time            `json:"createdAt" doc:"When the backup was created"`
	Checksum  string               `json:"checksum,omitempty" doc:"SHA-256 checksum"`
	Counts    *backup.EntityCounts `json:"counts,omitempty" doc:"Entity counts in the backup"`
}

type BackupOutput struct {
	Body BackupResponse
}

type ListBackupsResponse struct {
	Backups []BackupResponse `json:"backups" doc:"List of backups"`
}

type ListBackupsOutput struct {
	Body ListBackupsResponse
}

type GetBackupInput struct {
	ID string `path:"id" doc:"Backup identifier"`
}

type DownloadBackupInput struct {
	ID string `path:"id" doc:"Backup identifier"`
}

type DeleteBackupInput struct {
	ID string `path:"id" doc:"Backup identifier"`
}

// RestoreBackupRequest is the request body for restoring from a backup.
type RestoreBackupRequest struct {
	Mode string `json:"mode" enum:"overwrite,merge" doc:"Restore mode: overwrite wipes current data first, merge overlays it"`
}

type RestoreBackupInput struct {
	ID   string `path:"id" doc:"Backup identifier"`
	Body RestoreBackupRequest
}

// RestoreBackupResponse is the API response for restore operations.
type RestoreBackupResponse struct {
	RestoreID string              `json:"restoreId" doc:"Correlation ID for this restore"`
	Mode      string              `json:"mode" doc:"Mode the restore ran with"`
	Counts    backup.EntityCounts `json:"counts" doc:"Entities written by the restore"`
}

type RestoreBackupOutput struct {
	Body RestoreBackupResponse
}

// ValidateBackupInput carries a raw backup document as the request body.
type ValidateBackupInput struct {
	RawBody []byte
}

// ValidationResponse is the API response for backup document validation.
type ValidationResponse struct {
	Valid   bool                 `json:"valid" doc:"Whether the document passed validation"`
	Version string               `json:"version,omitempty" doc:"Document format version"`
	Counts  *backup.EntityCounts `json:"counts,omitempty" doc:"Entity counts in the document"`
	Errors  []string             `json:"errors,omitempty" doc:"Validation errors"`
}

type ValidateBackupOutput struct {
	Body ValidationResponse
}

// ImportBackupInput carries a raw backup document plus the import mode.
type ImportBackupInput struct {
	Mode    string `query:"mode" enum:"overwrite,merge" default:"merge" doc:"Import mode (default merge)"`
	RawBody []byte
}

// ImportBackupResponse is the API response for document imports.
type ImportBackupResponse struct {
	Mode   string              `json:"mode" doc:"Mode the import ran with"`
	Counts backup.EntityCounts `json:"counts" doc:"Entities written by the import"`
}

type ImportBackupOutput struct {
	Body ImportBackupResponse
}

// === Handlers ===

func (s *Server) handleCreateBackup(ctx context.Context, _ *struct{}) (*BackupOutput, error) {
	info, err := s.services.Backup.Create(ctx)
	if err != nil {
		return nil, err
	}

	return &BackupOutput{Body: mapBackupResponse(info)}, nil
}

func (s *Server) handleListBackups(ctx context.Context, _ *struct{}) (*ListBackupsOutput, error) {
	backups, err := s.services.Backup.List(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]BackupResponse, len(backups))
	for i := range backups {
		resp[i] = mapBackupResponse(&backups[i])
	}

	return &ListBackupsOutput{Body: ListBackupsResponse{Backups: resp}}, nil
}

func (s *Server) handleGetBackup(ctx context.Context, input *GetBackupInput) (*BackupOutput, error) {
	info, err := s.services.Backup.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &BackupOutput{Body: mapBackupResponse(info)}, nil
}

func (s *Server) handleDownloadBackup(ctx context.Context, input *DownloadBackupInput) (*huma.StreamResponse, error) {
	info, err := s.services.Backup.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(info.Path)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to open backup file", err)
	}

	return &huma.StreamResponse{
		Body: func(ctx huma.Context) {
			ctx.SetHeader("Content-Type", "application/json")
			ctx.SetHeader("Content-Disposition", "attachment; filename=\""+info.Name+"\"")
			io.Copy(ctx.BodyWriter(), f)
			f.Close()
		},
	}, nil
}

func (s *Server) handleDeleteBackup(ctx context.Context, input *DeleteBackupInput) (*MessageOutput, error) {
	if err := s.services.Backup.Delete(ctx, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Backup deleted"}}, nil
}

func (s *Server) handleRestoreBackup(ctx context.Context, input *RestoreBackupInput) (*RestoreBackupOutput, error) {
	restoreID := uuid.NewString()

	s.logger.Info("restore requested",
		"restore_id", restoreID,
		"backup_id", input.ID,
		"mode", input.Body.Mode,
	)

	result, err := s.services.Backup.Restore(ctx, input.ID, backup.Mode(input.Body.Mode))
	if err != nil {
		s.logger.Error("restore failed", "restore_id", restoreID, "backup_id", input.ID, "error", err)
		return nil, err
	}

	s.logger.Info("restore completed",
		"restore_id", restoreID,
		"backup_id", input.ID,
		"novels", result.Counts.Novels,
		"images", result.Counts.Images,
	)

	return &RestoreBackupOutput{Body: RestoreBackupResponse{
		RestoreID: restoreID,
		Mode:      string(result.Mode),
		Counts:    result.Counts,
	}}, nil
}

func (s *Server) handleValidateBackup(ctx context.Context, input *ValidateBackupInput) (*ValidateBackupOutput, error) {
	if err := backup.ValidateDocument(input.RawBody); err != nil {
		return &ValidateBackupOutput{Body: ValidationResponse{
			Valid:  false,
			Errors: validationMessages(err),
		}}, nil
	}

	doc, err := backup.DecodeDocument(input.RawBody)
	if err != nil {
		return &ValidateBackupOutput{Body: ValidationResponse{
			Valid:  false,
			Errors: validationMessages(err),
		}}, nil
	}

	counts := doc.Counts()
	return &ValidateBackupOutput{Body: ValidationResponse{
		Valid:   true,
		Version: doc.Version,
		Counts:  &counts,
	}}, nil
}

func (s *Server) handleImportBackup(ctx context.Context, input *ImportBackupInput) (*ImportBackupOutput, error) {
	doc, err := backup.DecodeDocument(input.RawBody)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Backup.Import(ctx, doc, backup.Mode(input.Mode))
	if err != nil {
		return nil, err
	}

	return &ImportBackupOutput{Body: ImportBackupResponse{
		Mode:   string(result.Mode),
		Counts: result.Counts,
	}}, nil
}

// === Mappers ===

func mapBackupResponse(info *backup.Info) BackupResponse {
	return BackupResponse{
		ID:        info.ID,
		Name:      info.Name,
		Path:      info.Path,
		Size:      info.Size,
		CreatedAt: info.CreatedAt,
		Checksum:  info.Checksum,
		Counts:    info.Counts,
	}
}

// validationMessages flattens a validation error into display strings for
// the validate endpoint, which reports failures in its body rather than as
// an error status.
func validationMessages(err error) []string {
	var domainErr *domainerrors.Error
	if domainerrors.As(err, &domainErr) {
		if msgs, ok := domainErr.Details.([]string); ok && len(msgs) > 0 {
			return msgs
		}
		return []string{domainErr.Message}
	}
	return []string{err.Error()}
}
