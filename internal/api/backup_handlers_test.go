package api

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelcompanionapp/companion-server/internal/backup"
	"github.com/novelcompanionapp/companion-server/internal/service"
	"github.com/novelcompanionapp/companion-server/internal/store"
)

// backupTestServer wraps the API server for backup testing.
type backupTestServer struct {
	*Server
	api       humatest.TestAPI
	backupDir string
	cleanup   func()
}

// setupBackupTestServer creates a test server with only the backup routes.
// The novel service is wired for seeding and verifying store contents.
func setupBackupTestServer(t *testing.T) *backupTestServer {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "companion-backup-test-*")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	st, err := store.Open(filepath.Join(tmpDir, "db"), logger)
	require.NoError(t, err)

	backupDir := filepath.Join(tmpDir, "backups")

	services := &Services{
		Novel:  service.NewNovelService(st, logger),
		Backup: backup.NewService(st, backupDir, logger),
	}

	router := chi.NewRouter()

	humaConfig := huma.DefaultConfig("Novel Companion API Test", "1.0.0")
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		store:    st,
		services: services,
		router:   router,
		api:      api,
		logger:   logger,
	}

	s.registerBackupRoutes()

	testAPI := humatest.Wrap(t, api)

	cleanup := func() {
		_ = st.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return &backupTestServer{Server: s, api: testAPI, backupDir: backupDir, cleanup: cleanup}
}

// createBackupViaAPI seeds one novel and creates a backup through the API.
func createBackupViaAPI(t *testing.T, ts *backupTestServer) BackupResponse {
	t.Helper()

	_, err := ts.services.Novel.Create(context.Background(), service.CreateNovelInput{
		Title:  "The Starlit Sea",
		Author: "Mira Voss",
	})
	require.NoError(t, err)

	resp := ts.api.Post("/api/v1/backups")
	require.Equal(t, http.StatusOK, resp.Code, "Create backup failed: %s", resp.Body.String())

	var envelope testEnvelope[BackupResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)

	return envelope.Data
}

// === Tests ===

func TestCreateBackup_Success(t *testing.T) {
	ts := setupBackupTestServer(t)
	defer ts.cleanup()

	created := createBackupViaAPI(t, ts)

	assert.NotEmpty(t, created.ID)
	assert.True(t, strings.HasPrefix(created.Name, "novel-companion-backup-"))
	assert.True(t, strings.HasSuffix(created.Name, ".json"))
	assert.Positive(t, created.Size)
	assert.Len(t, created.Checksum, 64)
	require.NotNil(t, created.Counts)
	assert.Equal(t, 1, created.Counts.Novels)
	assert.FileExists(t, created.Path)
}

func TestListBackups_NewestFirst(t *testing.T) {
	ts := setupBackupTestServer(t)
	defer ts.cleanup()

	created := createBackupViaAPI(t, ts)

	// Drop an older file straight into the directory. Listing works off
	// directory contents, so out-of-band files show up too.
	oldPath := filepath.Join(ts.backupDir, "novel-companion-backup-2020-01-01.json")
	require.NoError(t, os.WriteFile(oldPath, []byte("{}"), 0o644))
	oldTime := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(oldPath, oldTime, oldTime))

	resp := ts.api.Get("/api/v1/backups")
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[ListBackupsResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	require.Len(t, envelope.Data.Backups, 2)
	assert.Equal(t, created.ID, envelope.Data.Backups[0].ID)
	assert.Equal(t, "novel-companion-backup-2020-01-01", envelope.Data.Backups[1].ID)
}

func TestGetBackup_Success(t *testing.T) {
	ts := setupBackupTestServer(t)
	defer ts.cleanup()

	created := createBackupViaAPI(t, ts)

	resp := ts.api.Get("/api/v1/backups/" + created.ID)
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[BackupResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.Equal(t, created.ID, envelope.Data.ID)
	assert.Equal(t, created.Name, envelope.Data.Name)
	assert.Equal(t, created.Size, envelope.Data.Size)
}

func TestGetBackup_NotFound(t *testing.T) {
	ts := setupBackupTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Get("/api/v1/backups/novel-companion-backup-1999-01-01")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDownloadBackup_Attachment(t *testing.T) {
	ts := setupBackupTestServer(t)
	defer ts.cleanup()

	created := createBackupViaAPI(t, ts)

	resp := ts.api.Get("/api/v1/backups/" + created.ID + "/download")
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="`+created.Name+`"`, resp.Header().Get("Content-Disposition"))

	// The download is the raw document, not an envelope.
	var doc map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &doc))
	assert.Contains(t, doc, "version")
	assert.Len(t, doc["novels"], 1)
}

func TestDeleteBackup_RemovesFile(t *testing.T) {
	ts := setupBackupTestServer(t)
	defer ts.cleanup()

	created := createBackupViaAPI(t, ts)

	resp := ts.api.Delete("/api/v1/backups/" + created.ID)
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[MessageResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "Backup deleted", envelope.Data.Message)
	assert.NoFileExists(t, created.Path)

	// Unlike entity deletes, a second delete has no file to remove.
	resp = ts.api.Delete("/api/v1/backups/" + created.ID)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRestoreBackup_Overwrite(t *testing.T) {
	ts := setupBackupTestServer(t)
	defer ts.cleanup()

	ctx := context.Background()
	novel, err := ts.services.Novel.Create(ctx, service.CreateNovelInput{
		Title:  "The Starlit Sea",
		Author: "Mira Voss",
	})
	require.NoError(t, err)

	createResp := ts.api.Post("/api/v1/backups")
	require.Equal(t, http.StatusOK, createResp.Code)
	var createEnvelope testEnvelope[BackupResponse]
	require.NoError(t, json.Unmarshal(createResp.Body.Bytes(), &createEnvelope))

	require.NoError(t, ts.services.Novel.Delete(ctx, novel.ID))

	resp := ts.api.Post("/api/v1/backups/"+createEnvelope.Data.ID+"/restore", map[string]any{
		"mode": "overwrite",
	})
	require.Equal(t, http.StatusOK, resp.Code, "Restore failed: %s", resp.Body.String())

	var envelope testEnvelope[RestoreBackupResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.NotEmpty(t, envelope.Data.RestoreID)
	assert.Equal(t, "overwrite", envelope.Data.Mode)
	assert.Equal(t, 1, envelope.Data.Counts.Novels)

	restored, err := ts.services.Novel.Get(ctx, novel.ID)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, "The Starlit Sea", restored.Title)
}

func TestRestoreBackup_InvalidMode(t *testing.T) {
	ts := setupBackupTestServer(t)
	defer ts.cleanup()

	created := createBackupViaAPI(t, ts)

	resp := ts.api.Post("/api/v1/backups/"+created.ID+"/restore", map[string]any{
		"mode": "sideways",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = ts.api.Post("/api/v1/backups/"+created.ID+"/restore", map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestRestoreBackup_NotFound(t *testing.T) {
	ts := setupBackupTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Post("/api/v1/backups/novel-companion-backup-1999-01-01/restore", map[string]any{
		"mode": "overwrite",
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestValidateBackup_ValidDocument(t *testing.T) {
	ts := setupBackupTestServer(t)
	defer ts.cleanup()

	created := createBackupViaAPI(t, ts)
	raw, err := os.ReadFile(created.Path)
	require.NoError(t, err)

	resp := ts.api.Post("/api/v1/backups/validate", bytes.NewReader(raw))
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[ValidationResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.True(t, envelope.Data.Valid)
	assert.NotEmpty(t, envelope.Data.Version)
	require.NotNil(t, envelope.Data.Counts)
	assert.Equal(t, 1, envelope.Data.Counts.Novels)
	assert.Empty(t, envelope.Data.Errors)
}

func TestValidateBackup_InvalidDocument(t *testing.T) {
	ts := setupBackupTestServer(t)
	defer ts.cleanup()

	// Well-formed JSON missing every required field. Validation failures
	// come back in the body with a 200, not as an error status.
	resp := ts.api.Post("/api/v1/backups/validate", strings.NewReader("{}"))
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[ValidationResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.False(t, envelope.Data.Valid)
	assert.NotEmpty(t, envelope.Data.Errors)
}

func TestValidateBackup_MalformedJSON(t *testing.T) {
	ts := setupBackupTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Post("/api/v1/backups/validate", strings.NewReader("{not json"))
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[ValidationResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.False(t, envelope.Data.Valid)
	assert.NotEmpty(t, envelope.Data.Errors)
}

func TestImportBackup_Overwrite(t *testing.T) {
	ts := setupBackupTestServer(t)
	defer ts.cleanup()

	ctx := context.Background()
	created := createBackupViaAPI(t, ts)
	raw, err := os.ReadFile(created.Path)
	require.NoError(t, err)

	novels, err := ts.services.Novel.List(ctx)
	require.NoError(t, err)
	require.Len(t, novels, 1)
	require.NoError(t, ts.services.Novel.Delete(ctx, novels[0].ID))

	resp := ts.api.Post("/api/v1/backups/import?mode=overwrite", bytes.NewReader(raw))
	require.Equal(t, http.StatusOK, resp.Code, "Import failed: %s", resp.Body.String())

	var envelope testEnvelope[ImportBackupResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.Equal(t, "overwrite", envelope.Data.Mode)
	assert.Equal(t, 1, envelope.Data.Counts.Novels)

	novels, err = ts.services.Novel.List(ctx)
	require.NoError(t, err)
	assert.Len(t, novels, 1)
}

func TestImportBackup_DefaultsToMerge(t *testing.T) {
	ts := setupBackupTestServer(t)
	defer ts.cleanup()

	ctx := context.Background()
	created := createBackupViaAPI(t, ts)
	raw, err := os.ReadFile(created.Path)
	require.NoError(t, err)

	// A novel created after the export must survive a merge import.
	_, err = ts.services.Novel.Create(ctx, service.CreateNovelInput{Title: "Crown of Cinders"})
	require.NoError(t, err)

	resp := ts.api.Post("/api/v1/backups/import", bytes.NewReader(raw))
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[ImportBackupResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "merge", envelope.Data.Mode)

	novels, err := ts.services.Novel.List(ctx)
	require.NoError(t, err)
	assert.Len(t, novels, 2)
}

func TestImportBackup_InvalidMode(t *testing.T) {
	ts := setupBackupTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Post("/api/v1/backups/import?mode=sideways", strings.NewReader("{}"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}
