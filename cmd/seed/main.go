// Package main provides a tool to seed the database with sample writing data.
//
// This creates a few novels with characters, places, and notes so the API and
// search features have something to serve during development. The server
// rebuilds the search index on its next start when the index is empty.
//
// Usage:
//
//	DB_PATH=~/NovelCompanion/data/db go run ./cmd/seed
//	DB_PATH=~/NovelCompanion/data/db go run ./cmd/seed --wipe  # Clear existing records first
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/novelcompanionapp/companion-server/internal/domain"
	"github.com/novelcompanionapp/companion-server/internal/service"
	"github.com/novelcompanionapp/companion-server/internal/store"
)

var wipe = flag.Bool("wipe", false, "Clear existing records before seeding")

type seedCharacter struct {
	name        string
	description string
	tags        []domain.Tag
}

type seedPlace struct {
	name        string
	description string
	linked      []string // character names to link
}

type seedNote struct {
	title   string
	content string
}

type seedNovel struct {
	title      string
	author     string
	characters []seedCharacter
	places     []seedPlace
	notes      []seedNote
}

var seedNovels = []seedNovel{
	{
		title:  "The Lighthouse at World's End",
		author: "E. M. Calloway",
		characters: []seedCharacter{
			{
				name:        "Wren Calder",
				description: "Last keeper of the Meridian Light. Stubborn, salt-stained, and certain the sea is hiding something from her.",
				tags:        []domain.Tag{domain.TagMC},
			},
			{
				name:        "Brother Aldous",
				description: "A cartographer-monk who maps coastlines that no longer exist. Taught Wren to read the old charts.",
				tags:        []domain.Tag{domain.TagMentor},
			},
			{
				name:        "The Undertow",
				description: "Whatever speaks from beneath the shoals. It wants the light extinguished.",
				tags:        []domain.Tag{domain.TagVillain},
			},
			{
				name:        "Petra Voss",
				description: "Salvage diver running cargo between the drowned towns. Owes Wren a debt she pretends to resent.",
				tags:        []domain.Tag{domain.TagAlly, domain.TagLoveInterest},
			},
		},
		places: []seedPlace{
			{
				name:        "Meridian Light",
				description: "The last working lighthouse on the broken coast. Its lens was ground from a single piece of storm glass.",
				linked:      []string{"Wren Calder"},
			},
			{
				name:        "The Drowned Parish",
				description: "A village swallowed by the tide a generation ago. At low water the church bell still shows.",
			},
		},
		notes: []seedNote{
			{
				title:   "Chapter 1 opening",
				content: "Start with the night the light goes out for exactly nine seconds. Wren counts them. Nobody believes her.",
			},
			{
				title:   "Rules for the Undertow",
				content: "It cannot cross running fresh water. It speaks only through drowned things. It remembers every keeper by name.",
			},
		},
	},
	{
		title:  "Ashes of the Summer Court",
		author: "Priya Nair",
		characters: []seedCharacter{
			{
				name:        "Ilsabet Thorne",
				description: "Heir to a burned throne, raised in exile among the hedge-witches of the border wood.",
				tags:        []domain.Tag{domain.TagMC},
			},
			{
				name:        "Lord Cassian Vael",
				description: "The usurper's spymaster. Charming at dinner, lethal after it.",
				tags:        []domain.Tag{domain.TagVillain},
			},
			{
				name:        "Old Maren",
				description: "Hedge-witch who took Ilsabet in. Trades prophecy for honey and never gives a straight answer.",
				tags:        []domain.Tag{domain.TagMentor, domain.TagSide},
			},
		},
		places: []seedPlace{
			{
				name:        "The Cinder Palace",
				description: "The old Summer Court seat, still smoldering twenty years after the coup. Nothing grows within the walls.",
			},
			{
				name:        "Border Wood",
				description: "Half-wild forest where the old court's survivors hide. The paths rearrange for strangers.",
				linked:      []string{"Ilsabet Thorne", "Old Maren"},
			},
		},
		notes: []seedNote{
			{
				title:   "Act 2 turn",
				content: "Ilsabet learns the coup was paid for with Summer Court gold. Someone inside the family wanted the fire.",
			},
		},
	},
}

func main() {
	flag.Parse()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/NovelCompanion/data/db")
	}

	fmt.Printf("Opening database at: %s\n", dbPath)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	s, err := store.Open(dbPath, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	if *wipe {
		fmt.Println("Wiping existing records...")
		for _, c := range store.AllCollections() {
			if err := s.Clear(ctx, c); err != nil {
				log.Fatalf("Failed to clear %s: %v", c, err)
			}
		}
	}

	novelService := service.NewNovelService(s, logger)
	characterService := service.NewCharacterService(s, logger)
	placeService := service.NewPlaceService(s, logger)
	noteService := service.NewNoteService(s, logger)

	novelsCreated := 0
	recordsCreated := 0

	for _, sn := range seedNovels {
		novel, err := novelService.Create(ctx, service.CreateNovelInput{
			Title:  sn.title,
			Author: sn.author,
		})
		if err != nil {
			log.Printf("Failed to create novel %q: %v", sn.title, err)
			continue
		}
		novelsCreated++
		recordsCreated++
		fmt.Printf("\nCreated novel: %s (%s)\n", novel.Title, novel.ID)

		// Characters first so places can link to them by id
		characterIDs := make(map[string]string, len(sn.characters))
		for _, sc := range sn.characters {
			character, err := characterService.Create(ctx, service.CreateCharacterInput{
				NovelID:     novel.ID,
				Name:        sc.name,
				Description: sc.description,
				Tags:        sc.tags,
			})
			if err != nil {
				log.Printf("  Failed to create character %q: %v", sc.name, err)
				continue
			}
			characterIDs[sc.name] = character.ID
			recordsCreated++
			fmt.Printf("  Character: %s\n", character.Name)
		}

		for _, sp := range sn.places {
			var linked []string
			for _, name := range sp.linked {
				if id, ok := characterIDs[name]; ok {
					linked = append(linked, id)
				}
			}
			place, err := placeService.Create(ctx, service.CreatePlaceInput{
				NovelID:            novel.ID,
				Name:               sp.name,
				Description:        sp.description,
				LinkedCharacterIDs: linked,
			})
			if err != nil {
				log.Printf("  Failed to create place %q: %v", sp.name, err)
				continue
			}
			recordsCreated++
			fmt.Printf("  Place: %s\n", place.Name)
		}

		for _, snote := range sn.notes {
			note, err := noteService.Create(ctx, service.CreateNoteInput{
				NovelID: novel.ID,
				Title:   snote.title,
				Content: snote.content,
			})
			if err != nil {
				log.Printf("  Failed to create note %q: %v", snote.title, err)
				continue
			}
			recordsCreated++
			fmt.Printf("  Note: %s\n", note.Title)
		}
	}

	fmt.Printf("\nSeeded %d novels, %d records total\n", novelsCreated, recordsCreated)
	fmt.Println("Seeding complete!")
}
