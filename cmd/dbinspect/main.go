// Package main provides a read-only inspection tool for the database.
//
// It walks every collection, prints a per-novel breakdown of dependent
// records, and flags dependents whose novel no longer exists.
//
// Usage:
//
//	DB_PATH=~/NovelCompanion/data/db go run ./cmd/dbinspect
package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/novelcompanionapp/companion-server/internal/domain"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/NovelCompanion/data/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	collections := []string{"novels", "characters", "places", "notes", "images"}

	novels := map[string]*domain.Novel{}
	counts := map[string]int{}
	byNovel := map[string]map[string]int{}

	err = db.View(func(txn *badger.Txn) error {
		for _, collection := range collections {
			prefix := []byte(collection + ":")

			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = prefix
			it := txn.NewIterator(iterOpts)

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				item := it.Item()
				key := string(item.Key())

				// Skip index entries
				if strings.Contains(key, ":idx:") {
					continue
				}

				counts[collection]++

				err := item.Value(func(val []byte) error {
					switch collection {
					case "novels":
						var novel domain.Novel
						if err := json.Unmarshal(val, &novel); err != nil {
							return err
						}
						novels[novel.ID] = &novel
					case "characters", "places", "notes":
						var ref struct {
							NovelID string `json:"novelId"`
						}
						if err := json.Unmarshal(val, &ref); err != nil {
							return err
						}
						if byNovel[ref.NovelID] == nil {
							byNovel[ref.NovelID] = map[string]int{}
						}
						byNovel[ref.NovelID][collection]++
					}
					return nil
				})
				if err != nil {
					log.Printf("Error reading %s: %v", key, err)
				}
			}
			it.Close()
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating database: %v", err)
	}

	// Per-novel breakdown, ordered by title for stable output
	ids := make([]string, 0, len(novels))
	for id := range novels {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		return strings.Compare(novels[a].Title, novels[b].Title)
	})

	for _, id := range ids {
		novel := novels[id]
		deps := byNovel[id]
		fmt.Printf("Novel: %s\n", novel.Title)
		fmt.Printf("  ID: %s\n", novel.ID)
		if novel.Author != "" {
			fmt.Printf("  Author: %s\n", novel.Author)
		}
		fmt.Printf("  Characters: %d\n", deps["characters"])
		fmt.Printf("  Places: %d\n", deps["places"])
		fmt.Printf("  Notes: %d\n", deps["notes"])
		fmt.Printf("  Updated: %s\n", novel.UpdatedAt.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}

	// Dependents pointing at a novel that no longer exists indicate an
	// interrupted cascade delete.
	orphaned := 0
	for novelID, deps := range byNovel {
		if _, ok := novels[novelID]; ok {
			continue
		}
		for collection, n := range deps {
			fmt.Printf("ORPHANED: %d %s reference missing novel %s\n", n, collection, novelID)
			orphaned += n
		}
	}
	if orphaned > 0 {
		fmt.Println()
	}

	fmt.Println("=== Summary ===")
	fmt.Printf("Novels: %d\n", counts["novels"])
	fmt.Printf("Characters: %d\n", counts["characters"])
	fmt.Printf("Places: %d\n", counts["places"])
	fmt.Printf("Notes: %d\n", counts["notes"])
	fmt.Printf("Images: %d\n", counts["images"])
	fmt.Printf("Orphaned records: %d\n", orphaned)
}
