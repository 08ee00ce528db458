// Package backup serializes the full datastore to a single versioned JSON
// document and restores it, plus the backups directory management around
// that codec.
package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	domainerrors "github.com/novelcompanionapp/companion-server/internal/errors"
	"github.com/novelcompanionapp/companion-server/internal/sse"
	"github.com/novelcompanionapp/companion-server/internal/store"
)

// ErrBackupNotFound indicates the requested backup file does not exist.
var ErrBackupNotFound = domainerrors.NotFound("backup not found")

// EventEmitter broadcasts backup lifecycle events.
type EventEmitter interface {
	Emit(event any)
}

type noopEmitter struct{}

func (noopEmitter) Emit(event any) {}

// Info describes a backup file in the backups directory.
type Info struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Path      string        `json:"path"`
	Size      int64         `json:"size"`
	CreatedAt time.Time     `json:"createdAt"`
	Checksum  string        `json:"checksum,omitempty"`
	Counts    *EntityCounts `json:"counts,omitempty"`
}

// Service manages the backups directory: creating export files, listing and
// deleting them, and restoring the store from one.
type Service struct {
	store     store.Store
	backupDir string
	logger    *slog.Logger
	emitter   EventEmitter
	exporter  *Exporter
	importer  *Importer
}

// NewService creates a backup service rooted at backupDir.
func NewService(s store.Store, backupDir string, logger *slog.Logger) *Service {
	return &Service{
		store:     s,
		backupDir: backupDir,
		logger:    logger,
		emitter:   noopEmitter{},
		exporter:  NewExporter(s, logger),
		importer:  NewImporter(s, logger),
	}
}

// SetEventEmitter sets the emitter used to broadcast restore completions.
// File create/delete events come from the directory watcher, which sees the
// service's own writes and out-of-band changes alike.
func (s *Service) SetEventEmitter(emitter EventEmitter) {
	s.emitter = emitter
}

// Export produces a backup document without writing it anywhere.
func (s *Service) Export(ctx context.Context) (*Document, error) {
	return s.exporter.Export(ctx)
}

// Import applies an already-decoded document to the store.
func (s *Service) Import(ctx context.Context, doc *Document, mode Mode) (*ImportResult, error) {
	return s.importer.Import(ctx, doc, mode)
}

// Create exports the store to a file in the backups directory under the
// conventional name for today. The file is written to a temp path and
// renamed into place, so a partial write never surfaces as a backup. A
// second backup on the same day replaces the first.
func (s *Service) Create(ctx context.Context) (*Info, error) {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	doc, err := s.exporter.Export(ctx)
	if err != nil {
		return nil, err
	}
	data, err := EncodeDocument(doc)
	if err != nil {
		return nil, err
	}

	name := FileName(time.Now())
	path := filepath.Join(s.backupDir, name)
	tmpPath := path + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write backup file: %w", err)
	}
	defer os.Remove(tmpPath)
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, fmt.Errorf("rename backup file: %w", err)
	}

	checksum := sha256.Sum256(data)
	counts := doc.Counts()

	s.logger.Info("backup created",
		"name", name,
		"size", len(data),
		"checksum", hex.EncodeToString(checksum[:]),
	)

	return &Info{
		ID:        strings.TrimSuffix(name, fileExt),
		Name:      name,
		Path:      path,
		Size:      int64(len(data)),
		CreatedAt: time.Now(),
		Checksum:  hex.EncodeToString(checksum[:]),
		Counts:    &counts,
	}, nil
}

// List returns every backup file in the directory, newest first.
func (s *Service) List(ctx context.Context) ([]Info, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			ID:        strings.TrimSuffix(entry.Name(), fileExt),
			Name:      entry.Name(),
			Path:      filepath.Join(s.backupDir, entry.Name()),
			Size:      fi.Size(),
			CreatedAt: fi.ModTime(),
		})
	}

	slices.SortFunc(backups, func(a, b Info) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return backups, nil
}

// Get returns a backup by id, or ErrBackupNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Info, error) {
	path, err := s.resolve(id)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBackupNotFound
		}
		return nil, fmt.Errorf("stat backup: %w", err)
	}

	return &Info{
		ID:        id,
		Name:      id + fileExt,
		Path:      path,
		Size:      fi.Size(),
		CreatedAt: fi.ModTime(),
	}, nil
}

// Delete removes a backup file. The directory watcher reports the removal.
func (s *Service) Delete(ctx context.Context, id string) error {
	info, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := os.Remove(info.Path); err != nil {
		return fmt.Errorf("delete backup: %w", err)
	}

	s.logger.Info("backup deleted", "name", info.Name)

	return nil
}

// Restore reads a backup file, decodes and validates it, and imports it with
// the requested mode.
func (s *Service) Restore(ctx context.Context, id string, mode Mode) (*ImportResult, error) {
	info, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(info.Path)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	doc, err := DecodeDocument(data)
	if err != nil {
		return nil, err
	}

	result, err := s.importer.Import(ctx, doc, mode)
	if err != nil {
		return nil, err
	}

	s.logger.Info("backup restored", "name", info.Name, "mode", mode)
	s.emitter.Emit(sse.NewBackupRestoredEvent(info.Name, string(mode)))

	return result, nil
}

// GetPath returns the file path a backup id resolves to.
func (s *Service) GetPath(id string) string {
	return filepath.Join(s.backupDir, id+fileExt)
}

// resolve maps a backup id to its file path, rejecting ids that would escape
// the backups directory.
func (s *Service) resolve(id string) (string, error) {
	if id == "" || id != filepath.Base(id) {
		return "", ErrBackupNotFound
	}
	return filepath.Join(s.backupDir, id+fileExt), nil
}
