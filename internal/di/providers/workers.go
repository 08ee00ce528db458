package providers

import (
	"github.com/samber/do/v2"

	"github.com/novelcompanionapp/companion-server/internal/backup"
	"github.com/novelcompanionapp/companion-server/internal/config"
	"github.com/novelcompanionapp/companion-server/internal/logger"
)

// BackupWatcherHandle wraps the backup directory watcher with shutdown capability.
type BackupWatcherHandle struct {
	*backup.Watcher
}

// Shutdown implements do.Shutdownable.
func (h *BackupWatcherHandle) Shutdown() error {
	return h.Close()
}

// ProvideBackupWatcher provides the watcher that mirrors backup directory
// changes to SSE clients, including files added or removed outside the API.
func ProvideBackupWatcher(i do.Injector) (*BackupWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	w, err := backup.NewWatcher(cfg.Storage.BackupPath, sseHandle.Manager, log.Logger)
	if err != nil {
		return nil, err
	}

	if err := w.Start(); err != nil {
		return nil, err
	}

	log.Info("Backup watcher started", "path", cfg.Storage.BackupPath)

	return &BackupWatcherHandle{Watcher: w}, nil
}
