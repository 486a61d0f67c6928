package model

import (
	"sort"
	"time"
)

// Track is a conference track (topic grouping). Tracks are immutable once
// loaded; sessions reference them by ID and a session may carry several.
type Track struct {
	// ID is the slug of the display name, e.g. "machine-learning".
	ID   string
	Name string
}

// SocialLink is a labeled URL on a speaker profile. Order is preserved as
// discovered on the profile page.
type SocialLink struct {
	Label string
	URL   string
}

// RatingTier is a curated speaker quality tier.
type RatingTier string

const (
	TierS RatingTier = "S"
	TierA RatingTier = "A"
	TierB RatingTier = "B"
	TierC RatingTier = "C"
)

var tierStars = map[RatingTier]string{
	TierS: "★★★★★",
	TierA: "★★★★",
	TierB: "★★★",
	TierC: "★★",
}

var tierBadges = map[RatingTier]string{
	TierS: "Exceptional",
	TierA: "Excellent",
	TierB: "Good",
	TierC: "Average",
}

// Valid reports whether t is one of the known tiers.
func (t RatingTier) Valid() bool {
	_, ok := tierStars[t]
	return ok
}

// SpeakerRating is a user-curated quality rating, keyed by speaker slug in a
// separate file. It is merged into loaded snapshots read-only; sync never
// writes it.
type SpeakerRating struct {
	Tier RatingTier
	Note string
}

// Display returns a short formatted rating like "S ★★★★★".
func (r SpeakerRating) Display() string {
	return string(r.Tier) + " " + tierStars[r.Tier]
}

// Badge returns a human-readable tier label like "Exceptional".
func (r SpeakerRating) Badge() string {
	return tierBadges[r.Tier]
}

// Speaker is a conference speaker profile. Slug is the stable identifier;
// sessions reference speakers by slug only.
type Speaker struct {
	Slug     string
	Name     string
	Company  string
	Country  string
	Bio      string
	PhotoURL string
	Links    []SocialLink

	// Partial marks a stub built from grid data alone because the profile
	// fetch exhausted its retries. Bio/company/links are absent.
	Partial bool

	// Rating is merged in at load time from the user rating file, never
	// persisted with the snapshot. Nil when the speaker is unrated.
	Rating *SpeakerRating
}

// TimeSlot places a session on the conference calendar. Start carries the
// full date, so slots on different days never compare as overlapping.
// End is always Start+Duration; slots never cross a day boundary.
type TimeSlot struct {
	// Day is the ISO calendar date ("2006-01-02") of Start.
	Day      string
	Start    time.Time
	Duration time.Duration
}

// End returns the slot's end timestamp.
func (s TimeSlot) End() time.Time {
	return s.Start.Add(s.Duration)
}

// Overlaps reports whether two slots overlap under strict inequality:
// back-to-back slots (one ends exactly when the other starts) do not overlap.
func (s TimeSlot) Overlaps(o TimeSlot) bool {
	return s.Start.Before(o.End()) && o.Start.Before(s.End())
}

// Session is one schedulable conference session. ID is the source site's own
// identifier and is stable across re-syncs.
type Session struct {
	ID       string
	Title    string
	Abstract string
	Slot     TimeSlot
	Room     string
	Language string
	Level    string
	Keynote  bool

	// SpeakerSlugs are ordered weak references into Snapshot.Speakers.
	SpeakerSlugs []string
	// Tracks are track IDs, unordered set semantics.
	Tracks []string

	// Partial marks a session whose detail fetch exhausted its retries.
	// Grid data proves it exists and is schedulable; the abstract is absent.
	Partial bool
}

// SpecialEvent is a non-session schedule row (lunch, networking). Special
// events are displayed only; they never join conflict detection or export.
type SpecialEvent struct {
	Day   string
	Start string
	End   string
	Name  string
}

// Snapshot is one complete, internally consistent schedule dataset produced
// by a sync run. After reconciliation every speaker and track reference held
// by a session resolves within the snapshot.
type Snapshot struct {
	FetchedAt     time.Time
	Tracks        []Track
	Speakers      []Speaker
	Sessions      []Session
	SpecialEvents []SpecialEvent
}

// SessionByID returns the session with the given ID, or nil.
func (s *Snapshot) SessionByID(id string) *Session {
	for i := range s.Sessions {
		if s.Sessions[i].ID == id {
			return &s.Sessions[i]
		}
	}
	return nil
}

// SpeakerBySlug returns the speaker with the given slug, or nil.
func (s *Snapshot) SpeakerBySlug(slug string) *Speaker {
	for i := range s.Speakers {
		if s.Speakers[i].Slug == slug {
			return &s.Speakers[i]
		}
	}
	return nil
}

// TrackByID returns the track with the given ID, or nil.
func (s *Snapshot) TrackByID(id string) *Track {
	for i := range s.Tracks {
		if s.Tracks[i].ID == id {
			return &s.Tracks[i]
		}
	}
	return nil
}

// Days returns the distinct session days in ascending order.
func (s *Snapshot) Days() []string {
	seen := make(map[string]bool)
	days := make([]string, 0, 4)
	for _, sess := range s.Sessions {
		if sess.Slot.Day != "" && !seen[sess.Slot.Day] {
			seen[sess.Slot.Day] = true
			days = append(days, sess.Slot.Day)
		}
	}
	sort.Strings(days)
	return days
}

// Sort orders the snapshot into its canonical form: sessions by day, start
// time, then ID; speakers by slug; tracks by ID. Reconciliation relies on
// this for deterministic, repeatable output.
func (s *Snapshot) Sort() {
	SortSessions(s.Sessions)
	sort.SliceStable(s.Speakers, func(i, j int) bool {
		return s.Speakers[i].Slug < s.Speakers[j].Slug
	})
	sort.SliceStable(s.Tracks, func(i, j int) bool {
		return s.Tracks[i].ID < s.Tracks[j].ID
	})
	sort.SliceStable(s.SpecialEvents, func(i, j int) bool {
		a, b := s.SpecialEvents[i], s.SpecialEvents[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Start < b.Start
	})
}

// SortSessions orders sessions by day, start time, then ID in place.
func SortSessions(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if a.Slot.Day != b.Slot.Day {
			return a.Slot.Day < b.Slot.Day
		}
		if !a.Slot.Start.Equal(b.Slot.Start) {
			return a.Slot.Start.Before(b.Slot.Start)
		}
		return a.ID < b.ID
	})
}
