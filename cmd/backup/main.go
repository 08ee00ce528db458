// Package main provides an offline backup tool for the database.
//
// It runs the same export, validation, and restore paths as the API, which
// is useful when the server is down or before a risky migration.
//
// Usage:
//
//	DB_PATH=~/NovelCompanion/data/db go run ./cmd/backup create
//	DB_PATH=~/NovelCompanion/data/db go run ./cmd/backup list
//	go run ./cmd/backup validate <file>
//	DB_PATH=~/NovelCompanion/data/db go run ./cmd/backup restore --mode overwrite <backup-id>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/novelcompanionapp/companion-server/internal/backup"
	domainerrors "github.com/novelcompanionapp/companion-server/internal/errors"
	"github.com/novelcompanionapp/companion-server/internal/store"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: backup <create|list|validate|restore> [args]")
	fmt.Fprintln(os.Stderr, "  create                      Write a new backup file")
	fmt.Fprintln(os.Stderr, "  list                        List backup files, newest first")
	fmt.Fprintln(os.Stderr, "  validate <file>             Check a backup file against the document schema")
	fmt.Fprintln(os.Stderr, "  restore [--mode MODE] <id>  Restore a backup (merge or overwrite, default merge)")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]

	// validate works on a plain file and needs no database
	if cmd == "validate" {
		runValidate(os.Args[2:])
		return
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/NovelCompanion/data/db")
	}
	backupPath := os.Getenv("BACKUP_PATH")
	if backupPath == "" {
		backupPath = os.ExpandEnv("$HOME/NovelCompanion/data/backups")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	s, err := store.Open(dbPath, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	svc := backup.NewService(s, backupPath, logger)
	ctx := context.Background()

	switch cmd {
	case "create":
		runCreate(ctx, svc)
	case "list":
		runList(ctx, svc)
	case "restore":
		runRestore(ctx, svc, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func runCreate(ctx context.Context, svc *backup.Service) {
	info, err := svc.Create(ctx)
	if err != nil {
		log.Fatalf("Backup failed: %v", err)
	}

	fmt.Printf("Created backup: %s\n", info.Name)
	fmt.Printf("  Path: %s\n", info.Path)
	fmt.Printf("  Size: %d bytes\n", info.Size)
	fmt.Printf("  Checksum: %s\n", info.Checksum)
	if info.Counts != nil {
		printCounts("  ", *info.Counts)
	}
}

func runList(ctx context.Context, svc *backup.Service) {
	infos, err := svc.List(ctx)
	if err != nil {
		log.Fatalf("Failed to list backups: %v", err)
	}

	if len(infos) == 0 {
		fmt.Println("No backups found")
		return
	}

	for _, info := range infos {
		fmt.Printf("%s  %10d bytes  %s\n", info.CreatedAt.Format("2006-01-02 15:04:05"), info.Size, info.ID)
	}
}

func runValidate(args []string) {
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatalf("Failed to read file: %v", err)
	}

	if err := backup.ValidateDocument(data); err != nil {
		fmt.Printf("INVALID: %v\n", err)
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) && domainErr.Details != nil {
			if details, ok := domainErr.Details.([]string); ok {
				for _, d := range details {
					fmt.Printf("  - %s\n", d)
				}
			}
		}
		os.Exit(1)
	}

	doc, err := backup.DecodeDocument(data)
	if err != nil {
		fmt.Printf("INVALID: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Valid backup document (format %s)\n", doc.Version)
	printCounts("  ", doc.Counts())
}

func runRestore(ctx context.Context, svc *backup.Service, args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	mode := fs.String("mode", string(backup.ModeMerge), "Restore mode: merge or overwrite")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	id := fs.Arg(0)

	restoreMode := backup.Mode(*mode)
	if !restoreMode.Valid() {
		log.Fatalf("Invalid mode %q (must be merge or overwrite)", *mode)
	}

	if restoreMode == backup.ModeOverwrite {
		fmt.Println("Overwrite mode replaces ALL existing records.")
	}

	result, err := svc.Restore(ctx, id, restoreMode)
	if err != nil {
		log.Fatalf("Restore failed: %v", err)
	}

	fmt.Printf("Restored backup %s (%s mode)\n", id, result.Mode)
	printCounts("  ", result.Counts)
}

func printCounts(indent string, counts backup.EntityCounts) {
	fmt.Printf("%sNovels: %d\n", indent, counts.Novels)
	fmt.Printf("%sCharacters: %d\n", indent, counts.Characters)
	fmt.Printf("%sPlaces: %d\n", indent, counts.Places)
	fmt.Printf("%sNotes: %d\n", indent, counts.Notes)
	fmt.Printf("%sImages: %d\n", indent, counts.Images)
}
