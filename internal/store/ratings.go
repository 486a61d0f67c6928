package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	appLog "confplan/internal/log"
	"confplan/internal/model"
)

// ratingDoc is one entry of the user-maintained rating file, keyed by
// speaker slug:
//
//	{ "jane-doe": { "tier": "S", "note": "great live demos" } }
type ratingDoc struct {
	Tier string `json:"tier"`
	Note string `json:"note"`
}

// LoadRatings reads the curated speaker rating file. The file is user
// territory: sync never writes it, and it is merged into loaded snapshots
// read-only. A missing file is an empty map; entries with unknown tiers are
// skipped with a warning rather than failing the load.
func LoadRatings(path string) (map[string]model.SpeakerRating, error) {
	out := make(map[string]model.SpeakerRating)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return out, fmt.Errorf("store: read ratings: %w", err)
	}

	var raw map[string]ratingDoc
	if err := json.Unmarshal(data, &raw); err != nil {
		return out, fmt.Errorf("store: decode ratings: %w", err)
	}

	for slug, doc := range raw {
		tier := model.RatingTier(doc.Tier)
		if !tier.Valid() {
			appLog.Warn("skipping rating with unknown tier", "speaker", slug, "tier", doc.Tier)
			continue
		}
		out[slug] = model.SpeakerRating{Tier: tier, Note: doc.Note}
	}
	return out, nil
}

// MergeRatings attaches ratings to matching speakers in place. Slugs with no
// matching speaker are ignored; the rating file may legitimately reference
// speakers from earlier editions.
func MergeRatings(snap *model.Snapshot, ratings map[string]model.SpeakerRating) {
	if len(ratings) == 0 {
		return
	}
	for i := range snap.Speakers {
		if r, ok := ratings[snap.Speakers[i].Slug]; ok {
			rc := r
			snap.Speakers[i].Rating = &rc
		}
	}
}
