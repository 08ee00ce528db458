// Package sse implements Server-Sent Events for pushing library changes to
// connected clients as they happen.
package sse

import (
	"time"

	"github.com/novelcompanionapp/companion-server/internal/domain"
)

// EventType represents the type of SSE event.
type EventType string

const (
	// EventNovelCreated represents a novel creation event.
	EventNovelCreated EventType = "novel.created"
	// EventNovelUpdated represents a novel update event.
	EventNovelUpdated EventType = "novel.updated"
	// EventNovelDeleted represents a novel deletion event.
	EventNovelDeleted EventType = "novel.deleted"

	// EventCharacterCreated represents a character creation event.
	EventCharacterCreated EventType = "character.created"
	// EventCharacterUpdated represents a character update event.
	EventCharacterUpdated EventType = "character.updated"
	// EventCharacterDeleted represents a character deletion event.
	EventCharacterDeleted EventType = "character.deleted"

	// EventPlaceCreated represents a place creation event.
	EventPlaceCreated EventType = "place.created"
	// EventPlaceUpdated represents a place update event.
	EventPlaceUpdated EventType = "place.updated"
	// EventPlaceDeleted represents a place deletion event.
	EventPlaceDeleted EventType = "place.deleted"

	// EventNoteCreated represents a note creation event.
	EventNoteCreated EventType = "note.created"
	// EventNoteUpdated represents a note update event.
	EventNoteUpdated EventType = "note.updated"
	// EventNoteDeleted represents a note deletion event.
	EventNoteDeleted EventType = "note.deleted"

	// EventBackupCreated represents a new backup file appearing on disk.
	EventBackupCreated EventType = "backup.created"
	// EventBackupDeleted represents a backup file being removed.
	EventBackupDeleted EventType = "backup.deleted"
	// EventBackupRestored represents a completed restore from a backup.
	EventBackupRestored EventType = "backup.restored"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct
// deserialization on the client.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// NovelEventData is the data payload for novel create/update events.
type NovelEventData struct {
	Novel *domain.Novel `json:"novel"`
}

// NovelDeletedEventData is the data payload for novel delete events. The
// counts cover the dependents removed by the cascade.
type NovelDeletedEventData struct {
	DeletedAt         time.Time `json:"deletedAt"`
	NovelID           string    `json:"novelId"`
	CharactersRemoved int       `json:"charactersRemoved"`
	PlacesRemoved     int       `json:"placesRemoved"`
	NotesRemoved      int       `json:"notesRemoved"`
	ImagesRemoved     int       `json:"imagesRemoved"`
}

// CharacterEventData is the data payload for character create/update events.
type CharacterEventData struct {
	Character *domain.Character `json:"character"`
}

// CharacterDeletedEventData is the data payload for character delete events.
type CharacterDeletedEventData struct {
	DeletedAt   time.Time `json:"deletedAt"`
	CharacterID string    `json:"characterId"`
	NovelID     string    `json:"novelId"`
}

// PlaceEventData is the data payload for place create/update events.
type PlaceEventData struct {
	Place *domain.Place `json:"place"`
}

// PlaceDeletedEventData is the data payload for place delete events.
type PlaceDeletedEventData struct {
	DeletedAt time.Time `json:"deletedAt"`
	PlaceID   string    `json:"placeId"`
	NovelID   string    `json:"novelId"`
}

// NoteEventData is the data payload for note create/update events.
type NoteEventData struct {
	Note *domain.Note `json:"note"`
}

// NoteDeletedEventData is the data payload for note delete events.
type NoteDeletedEventData struct {
	DeletedAt time.Time `json:"deletedAt"`
	NoteID    string    `json:"noteId"`
	NovelID   string    `json:"novelId"`
}

// BackupEventData is the data payload for backup file events.
type BackupEventData struct {
	Name string `json:"name"`
}

// BackupRestoredEventData is the data payload for restore completion events.
type BackupRestoredEventData struct {
	RestoredAt time.Time `json:"restoredAt"`
	Name       string    `json:"name"`
	Mode       string    `json:"mode"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"serverTime"`
}

// NewNovelCreatedEvent creates a novel.created event.
func NewNovelCreatedEvent(novel *domain.Novel) Event {
	return Event{
		Type:      EventNovelCreated,
		Data:      NovelEventData{Novel: novel},
		Timestamp: time.Now(),
	}
}

// NewNovelUpdatedEvent creates a novel.updated event.
func NewNovelUpdatedEvent(novel *domain.Novel) Event {
	return Event{
		Type:      EventNovelUpdated,
		Data:      NovelEventData{Novel: novel},
		Timestamp: time.Now(),
	}
}

// NewNovelDeletedEvent creates a novel.deleted event carrying the cascade
// counts.
func NewNovelDeletedEvent(novelID string, characters, places, notes, images int) Event {
	return Event{
		Type: EventNovelDeleted,
		Data: NovelDeletedEventData{
			NovelID:           novelID,
			DeletedAt:         time.Now(),
			CharactersRemoved: characters,
			PlacesRemoved:     places,
			NotesRemoved:      notes,
			ImagesRemoved:     images,
		},
		Timestamp: time.Now(),
	}
}

// NewCharacterCreatedEvent creates a character.created event.
func NewCharacterCreatedEvent(character *domain.Character) Event {
	return Event{
		Type:      EventCharacterCreated,
		Data:      CharacterEventData{Character: character},
		Timestamp: time.Now(),
	}
}

// NewCharacterUpdatedEvent creates a character.updated event.
func NewCharacterUpdatedEvent(character *domain.Character) Event {
	return Event{
		Type:      EventCharacterUpdated,
		Data:      CharacterEventData{Character: character},
		Timestamp: time.Now(),
	}
}

// NewCharacterDeletedEvent creates a character.deleted event.
func NewCharacterDeletedEvent(characterID, novelID string) Event {
	return Event{
		Type: EventCharacterDeleted,
		Data: CharacterDeletedEventData{
			CharacterID: characterID,
			NovelID:     novelID,
			DeletedAt:   time.Now(),
		},
		Timestamp: time.Now(),
	}
}

// NewPlaceCreatedEvent creates a place.created event.
func NewPlaceCreatedEvent(place *domain.Place) Event {
	return Event{
		Type:      EventPlaceCreated,
		Data:      PlaceEventData{Place: place},
		Timestamp: time.Now(),
	}
}

// NewPlaceUpdatedEvent creates a place.updated event.
func NewPlaceUpdatedEvent(place *domain.Place) Event {
	return Event{
		Type:      EventPlaceUpdated,
		Data:      PlaceEventData{Place: place},
		Timestamp: time.Now(),
	}
}

// NewPlaceDeletedEvent creates a place.deleted event.
func NewPlaceDeletedEvent(placeID, novelID string) Event {
	return Event{
		Type: EventPlaceDeleted,
		Data: PlaceDeletedEventData{
			PlaceID:   placeID,
			NovelID:   novelID,
			DeletedAt: time.Now(),
		},
		Timestamp: time.Now(),
	}
}

// NewNoteCreatedEvent creates a note.created event.
func NewNoteCreatedEvent(note *domain.Note) Event {
	return Event{
		Type:      EventNoteCreated,
		Data:      NoteEventData{Note: note},
		Timestamp: time.Now(),
	}
}

// NewNoteUpdatedEvent creates a note.updated event.
func NewNoteUpdatedEvent(note *domain.Note) Event {
	return Event{
		Type:      EventNoteUpdated,
		Data:      NoteEventData{Note: note},
		Timestamp: time.Now(),
	}
}

// NewNoteDeletedEvent creates a note.deleted event.
func NewNoteDeletedEvent(noteID, novelID string) Event {
	return Event{
		Type: EventNoteDeleted,
		Data: NoteDeletedEventData{
			NoteID:    noteID,
			NovelID:   novelID,
			DeletedAt: time.Now(),
		},
		Timestamp: time.Now(),
	}
}

// NewBackupCreatedEvent creates a backup.created event.
func NewBackupCreatedEvent(name string) Event {
	return Event{
		Type:      EventBackupCreated,
		Data:      BackupEventData{Name: name},
		Timestamp: time.Now(),
	}
}

// NewBackupDeletedEvent creates a backup.deleted event.
func NewBackupDeletedEvent(name string) Event {
	return Event{
		Type:      EventBackupDeleted,
		Data:      BackupEventData{Name: name},
		Timestamp: time.Now(),
	}
}

// NewBackupRestoredEvent creates a backup.restored event.
func NewBackupRestoredEvent(name, mode string) Event {
	return Event{
		Type: EventBackupRestored,
		Data: BackupRestoredEventData{
			Name:       name,
			Mode:       mode,
			RestoredAt: time.Now(),
		},
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type: EventHeartbeat,
		Data: HeartbeatEventData{
			ServerTime: time.Now(),
		},
		Timestamp: time.Now(),
	}
}
