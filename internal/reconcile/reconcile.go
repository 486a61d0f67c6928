// Package reconcile merges the three raw scrape batches into one consistent
// schedule snapshot. It is deterministic and idempotent: reconciling the
// same batches twice yields identical snapshots, entity for entity, in the
// same order.
package reconcile

import (
	"fmt"
	"sort"
	"time"

	appLog "confplan/internal/log"
	"confplan/internal/model"
	"confplan/internal/scrape"
)

// Options carries the environment needed to turn raw labels into entities.
type Options struct {
	// Location is the timezone the schedule is published in. Session
	// timestamps are built here so different-day sessions can never overlap.
	Location *time.Location

	// Year resolves day labels that omit it ("February 25").
	Year int

	// WeekStart is the first day of the edition, used to resolve day labels
	// that carry only a weekday name ("Wednesday"). Zero disables the
	// weekday fallback.
	WeekStart time.Time

	// DefaultDuration is used when the grid omits a session's end time.
	DefaultDuration time.Duration
}

// Report summarizes degraded-but-included entities. Partial entities are an
// item-level condition, not an error; the sync still succeeds.
type Report struct {
	// PartialSessions lists sessions included from grid data alone because
	// their detail fetch exhausted retries (abstract absent).
	PartialSessions []string

	// StubSpeakers lists speakers included as slug+name stubs because their
	// profile fetch exhausted retries.
	StubSpeakers []string
}

// CollisionError reports two distinct speaker names normalizing to the same
// slug. This is a hard reconciliation error: merging them silently would
// corrupt session references.
type CollisionError struct {
	Slug  string
	NameA string
	NameB string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("reconcile: speaker slug collision %q: %q vs %q", e.Slug, e.NameA, e.NameB)
}

// Reconcile builds a candidate snapshot from the three raw batches.
//
// Tracks and speakers are built first, then sessions are resolved against
// them in a single pass, so cross-phase references never depend on fetch
// order. A session whose detail fetch failed is still included from grid
// data (flagged partial) and a referenced speaker whose profile fetch failed
// becomes a stub: the grid already proved both exist.
func Reconcile(grid scrape.GridBatch, details scrape.DetailBatch, speakers scrape.SpeakerBatch, opts Options) (*model.Snapshot, *Report, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = 45 * time.Minute
	}

	report := &Report{}

	detailByID := make(map[string]scrape.DetailRecord, len(details.Records))
	for _, d := range details.Records {
		detailByID[d.SessionID] = d
	}
	profileBySlug := make(map[string]scrape.SpeakerRecord, len(speakers.Records))
	for _, p := range speakers.Records {
		profileBySlug[p.Slug] = p
	}

	// Resolve every grid speaker reference to a slug, deriving one from the
	// display name when the grid carried no profile link. Distinct names
	// mapping to one slug is a hard error.
	nameBySlug := make(map[string]string)
	slugsForRecord := make(map[string][]string, len(grid.Sessions))
	for _, rec := range grid.Sessions {
		for _, ref := range rec.Speakers {
			slug := ref.Slug
			if slug == "" {
				slug = model.Slugify(ref.Name)
			}
			if slug == "" {
				continue
			}
			if prev, ok := nameBySlug[slug]; ok {
				if prev != "" && ref.Name != "" && prev != ref.Name {
					return nil, nil, &CollisionError{Slug: slug, NameA: prev, NameB: ref.Name}
				}
				if prev == "" {
					nameBySlug[slug] = ref.Name
				}
			} else {
				nameBySlug[slug] = ref.Name
			}
			slugsForRecord[rec.SessionID] = appendUnique(slugsForRecord[rec.SessionID], slug)
		}
	}

	// Company/bio scraped off session pages enrich speakers whose own
	// profile page is thin. First session wins, like the source renders it.
	companyBySlug := make(map[string]string)
	bioBySlug := make(map[string]string)
	for _, rec := range grid.Sessions {
		refs := slugsForRecord[rec.SessionID]
		if len(refs) == 0 {
			continue
		}
		d, ok := detailByID[rec.SessionID]
		if !ok {
			continue
		}
		if d.SpeakerCompany != "" && companyBySlug[refs[0]] == "" {
			companyBySlug[refs[0]] = d.SpeakerCompany
		}
		if d.SpeakerBio != "" && bioBySlug[refs[0]] == "" {
			bioBySlug[refs[0]] = d.SpeakerBio
		}
	}

	snap := &model.Snapshot{FetchedAt: grid.FetchedAt}

	// Tracks: union of raw grid labels, keyed by slug. The first label seen
	// for a slug supplies the display name.
	trackNameByID := make(map[string]string)
	for _, rec := range grid.Sessions {
		for _, label := range rec.Tracks {
			id := model.Slugify(label)
			if id == "" {
				continue
			}
			if _, ok := trackNameByID[id]; !ok {
				trackNameByID[id] = label
			}
		}
	}
	for id, name := range trackNameByID {
		snap.Tracks = append(snap.Tracks, model.Track{ID: id, Name: name})
	}

	// Speakers: full profiles where phase 3 delivered one, stubs otherwise.
	for slug, gridName := range nameBySlug {
		sp := model.Speaker{Slug: slug, Name: gridName}
		if p, ok := profileBySlug[slug]; ok {
			if p.Name != "" {
				sp.Name = p.Name
			}
			sp.Country = p.Country
			sp.Bio = p.Bio
			sp.PhotoURL = p.PhotoURL
			if p.Twitter != "" {
				sp.Links = append(sp.Links, model.SocialLink{Label: "twitter", URL: p.Twitter})
			}
		} else {
			sp.Partial = true
			report.StubSpeakers = append(report.StubSpeakers, slug)
		}
		if sp.Company == "" {
			sp.Company = companyBySlug[slug]
		}
		if sp.Bio == "" {
			sp.Bio = bioBySlug[slug]
		}
		snap.Speakers = append(snap.Speakers, sp)
	}

	// Sessions: grid record is the backbone, detail record the enrichment.
	for _, rec := range grid.Sessions {
		sess, err := buildSession(rec, detailByID, slugsForRecord[rec.SessionID], opts)
		if err != nil {
			return nil, nil, err
		}
		if sess.Partial {
			report.PartialSessions = append(report.PartialSessions, sess.ID)
		}
		snap.Sessions = append(snap.Sessions, sess)
	}

	for _, ev := range grid.Events {
		snap.SpecialEvents = append(snap.SpecialEvents, model.SpecialEvent{
			Day:   ev.Day,
			Start: ev.StartTime,
			End:   ev.EndTime,
			Name:  ev.Name,
		})
	}

	if err := validateRefs(snap); err != nil {
		return nil, nil, err
	}

	snap.Sort()
	sort.Strings(report.PartialSessions)
	sort.Strings(report.StubSpeakers)

	appLog.Info("reconcile done",
		"sessions", len(snap.Sessions),
		"speakers", len(snap.Speakers),
		"tracks", len(snap.Tracks),
		"partial_sessions", len(report.PartialSessions),
		"stub_speakers", len(report.StubSpeakers),
	)
	return snap, report, nil
}

func buildSession(rec scrape.GridRecord, detailByID map[string]scrape.DetailRecord, speakerSlugs []string, opts Options) (model.Session, error) {
	day, err := parseDayLabel(rec.Day, opts.Year, opts.WeekStart, opts.Location)
	if err != nil {
		return model.Session{}, fmt.Errorf("session %q: %w", rec.SessionID, err)
	}
	h, m, err := parseClock(rec.StartTime)
	if err != nil {
		return model.Session{}, fmt.Errorf("session %q: %w", rec.SessionID, err)
	}
	start := day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)

	// End times are sometimes absent from the grid; fall back to the default
	// duration rather than rejecting a schedulable session.
	duration := opts.DefaultDuration
	if rec.EndTime != "" {
		if eh, em, eerr := parseClock(rec.EndTime); eerr == nil {
			end := day.Add(time.Duration(eh)*time.Hour + time.Duration(em)*time.Minute)
			if end.After(start) {
				duration = end.Sub(start)
			}
		}
	}

	sess := model.Session{
		ID:           rec.SessionID,
		Title:        rec.Title,
		Room:         rec.Room,
		Keynote:      rec.Keynote,
		SpeakerSlugs: speakerSlugs,
		Slot: model.TimeSlot{
			Day:      day.Format("2006-01-02"),
			Start:    start,
			Duration: duration,
		},
	}

	for _, label := range rec.Tracks {
		if id := model.Slugify(label); id != "" {
			sess.Tracks = appendUnique(sess.Tracks, id)
		}
	}

	if d, ok := detailByID[rec.SessionID]; ok {
		sess.Abstract = d.Abstract
		sess.Language = d.Language
		sess.Level = d.Level
	} else {
		// Detail fetch failed or never ran for this ID: keep the session on
		// grid data alone. Availability over completeness.
		sess.Partial = true
	}

	return sess, nil
}

// validateRefs checks the snapshot invariant that every speaker and track
// reference held by a session resolves. Construction guarantees this; an
// unresolved reference here is a bug surfaced loudly instead of a silent
// drop downstream.
func validateRefs(snap *model.Snapshot) error {
	speakers := make(map[string]bool, len(snap.Speakers))
	for _, sp := range snap.Speakers {
		speakers[sp.Slug] = true
	}
	tracks := make(map[string]bool, len(snap.Tracks))
	for _, t := range snap.Tracks {
		tracks[t.ID] = true
	}

	for _, sess := range snap.Sessions {
		for _, slug := range sess.SpeakerSlugs {
			if !speakers[slug] {
				return fmt.Errorf("reconcile: session %q references unknown speaker %q", sess.ID, slug)
			}
		}
		for _, id := range sess.Tracks {
			if !tracks[id] {
				return fmt.Errorf("reconcile: session %q references unknown track %q", sess.ID, id)
			}
		}
	}
	return nil
}

func appendUnique(s []string, v string) []string {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}
