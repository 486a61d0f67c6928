package store

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"confplan/internal/model"
)

// fallbackData is a read-only snapshot shipped with the binary, used when no
// sync has ever run. Same logical schema as the database; it is decoded
// straight into the entity model without going through reconciliation.
//
//go:embed fallback.json
var fallbackData []byte

type fallbackDoc struct {
	FetchedAt string            `json:"fetched_at"`
	Tracks    []fallbackTrack   `json:"tracks"`
	Speakers  []fallbackSpeaker `json:"speakers"`
	Sessions  []fallbackSession `json:"sessions"`
	Events    []fallbackEvent   `json:"special_events"`
}

type fallbackTrack struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type fallbackSpeaker struct {
	Slug     string         `json:"slug"`
	Name     string         `json:"name"`
	Company  string         `json:"company"`
	Country  string         `json:"country"`
	Bio      string         `json:"bio"`
	PhotoURL string         `json:"photo_url"`
	Links    []fallbackLink `json:"links"`
}

type fallbackLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type fallbackSession struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Abstract    string   `json:"abstract"`
	Day         string   `json:"day"`
	Start       string   `json:"start"`
	DurationMin int      `json:"duration_min"`
	Room        string   `json:"room"`
	Language    string   `json:"language"`
	Level       string   `json:"level"`
	Keynote     bool     `json:"keynote"`
	Speakers    []string `json:"speakers"`
	Tracks      []string `json:"tracks"`
}

type fallbackEvent struct {
	Day   string `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
	Name  string `json:"name"`
}

// FallbackSnapshot decodes the bundled dataset.
func FallbackSnapshot() (*model.Snapshot, error) {
	var doc fallbackDoc
	if err := json.Unmarshal(fallbackData, &doc); err != nil {
		return nil, fmt.Errorf("store: decode bundled snapshot: %w", err)
	}

	snap := &model.Snapshot{}
	if doc.FetchedAt != "" {
		t, err := time.Parse(time.RFC3339, doc.FetchedAt)
		if err != nil {
			return nil, fmt.Errorf("store: bundled fetched_at: %w", err)
		}
		snap.FetchedAt = t
	}

	for _, t := range doc.Tracks {
		snap.Tracks = append(snap.Tracks, model.Track{ID: t.ID, Name: t.Name})
	}
	for _, sp := range doc.Speakers {
		speaker := model.Speaker{
			Slug:     sp.Slug,
			Name:     sp.Name,
			Company:  sp.Company,
			Country:  sp.Country,
			Bio:      sp.Bio,
			PhotoURL: sp.PhotoURL,
		}
		for _, l := range sp.Links {
			speaker.Links = append(speaker.Links, model.SocialLink{Label: l.Label, URL: l.URL})
		}
		snap.Speakers = append(snap.Speakers, speaker)
	}
	for _, s := range doc.Sessions {
		start, err := time.Parse(time.RFC3339, s.Start)
		if err != nil {
			return nil, fmt.Errorf("store: bundled session %q start: %w", s.ID, err)
		}
		snap.Sessions = append(snap.Sessions, model.Session{
			ID:       s.ID,
			Title:    s.Title,
			Abstract: s.Abstract,
			Slot: model.TimeSlot{
				Day:      s.Day,
				Start:    start,
				Duration: time.Duration(s.DurationMin) * time.Minute,
			},
			Room:         s.Room,
			Language:     s.Language,
			Level:        s.Level,
			Keynote:      s.Keynote,
			SpeakerSlugs: s.Speakers,
			Tracks:       s.Tracks,
		})
	}
	for _, ev := range doc.Events {
		snap.SpecialEvents = append(snap.SpecialEvents, model.SpecialEvent{
			Day: ev.Day, Start: ev.Start, End: ev.End, Name: ev.Name,
		})
	}

	snap.Sort()
	return snap, nil
}
