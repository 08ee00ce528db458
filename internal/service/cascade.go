package service

import (
	"encoding/json/v2"
	"errors"

	"github.com/novelcompanionapp/companion-server/internal/store"
)

// cascadeRule describes what records of a collection own. Owned resources
// are removed together with their owner; loose references (a novel's cover
// image, linked ids) are not ownership edges and are never followed here.
type cascadeRule struct {
	// children are collections whose by-novel index groups dependents
	// under the deleted record's id.
	children []store.Collection
	// ownsImages marks records whose images list holds exclusively-owned
	// blobs.
	ownsImages bool
}

// ownershipGraph declares the ownership edges walked on delete:
// novels own their characters, places, and notes; characters and places own
// the images they list. Notes own nothing, and a novel's cover image stays
// behind because it is a reference, not a dependent.
var ownershipGraph = map[store.Collection]cascadeRule{
	store.CollectionNovels: {
		children: []store.Collection{
			store.CollectionCharacters,
			store.CollectionPlaces,
			store.CollectionNotes,
		},
	},
	store.CollectionCharacters: {ownsImages: true},
	store.CollectionPlaces:     {ownsImages: true},
	store.CollectionNotes:      {},
}

// cascadeResult reports what a cascade removed, so callers can emit events
// and fix up the search index after the transaction commits.
type cascadeResult struct {
	Deleted map[store.Collection][]string
	Images  int
}

func (r *cascadeResult) count(c store.Collection) int {
	return len(r.Deleted[c])
}

// cascadeDelete removes the record and everything it owns inside tx,
// walking the ownership graph depth-first. Returns nil when the record is
// absent, so deletes stay idempotent.
func cascadeDelete(tx store.Txn, c store.Collection, id string) (*cascadeResult, error) {
	raw, err := tx.Get(c, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	res := &cascadeResult{Deleted: make(map[store.Collection][]string)}
	if err := cascadeRecord(tx, c, id, raw, res); err != nil {
		return nil, err
	}
	return res, nil
}

func cascadeRecord(tx store.Txn, c store.Collection, id string, record []byte, res *cascadeResult) error {
	rule := ownershipGraph[c]

	for _, child := range rule.children {
		rows, err := tx.List(child, store.IndexByNovel, id)
		if err != nil {
			return err
		}
		for _, row := range rows {
			meta, probeErr := store.ProbeRecord(row)
			if probeErr != nil {
				return probeErr
			}
			if err := cascadeRecord(tx, child, meta.ID, row, res); err != nil {
				return err
			}
		}
	}

	if rule.ownsImages {
		for _, imageID := range recordImages(record) {
			if err := tx.Delete(store.CollectionImages, imageID); err != nil {
				return err
			}
			res.Images++
		}
	}

	if err := tx.Delete(c, id); err != nil {
		return err
	}
	res.Deleted[c] = append(res.Deleted[c], id)
	return nil
}

// recordImages peeks the images list from a raw record. Records without
// one yield nothing.
func recordImages(record []byte) []string {
	var probe struct {
		Images []string `json:"images"`
	}
	if err := json.Unmarshal(record, &probe); err != nil {
		return nil
	}
	return probe.Images
}
