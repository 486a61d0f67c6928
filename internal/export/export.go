// Package export serializes the personal calendar into an iCalendar
// document. Conflicting sessions are annotated, never excluded; dangling
// selection entries are reported to the caller instead of vanishing.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ical "github.com/arran4/golang-ical"

	appLog "confplan/internal/log"
	"confplan/internal/conflict"
	"confplan/internal/model"
)

const prodID = "-//confplan//conference planner//EN"

// Result is one export run: the serialized calendar plus everything the
// user needs to know about what is and is not in it.
type Result struct {
	Calendar   string
	EventCount int

	// Dangling lists selected session IDs missing from the snapshot. They
	// are omitted from the document but must be surfaced to the user.
	Dangling []string
}

// Build renders the selection against the snapshot. Every selected session
// that exists becomes one VEVENT with title, start/end from its time slot,
// the room as location, and a description carrying speakers, tracks, the
// abstract, and any overlap warnings.
func Build(sel *model.Selection, snap *model.Snapshot) (*Result, error) {
	if sel == nil || snap == nil {
		return nil, errors.New("export: selection and snapshot are required")
	}

	selected, dangling := sel.Sessions(snap)
	overlaps := conflict.ByID(conflict.Find(selected))

	// Deterministic document order: day, start, ID.
	sort.SliceStable(selected, func(i, j int) bool {
		a, b := selected[i], selected[j]
		if a.Slot.Day != b.Slot.Day {
			return a.Slot.Day < b.Slot.Day
		}
		if !a.Slot.Start.Equal(b.Slot.Start) {
			return a.Slot.Start.Before(b.Slot.Start)
		}
		return a.ID < b.ID
	})

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)
	cal.SetCalscale("GREGORIAN")

	for _, sess := range selected {
		ev := cal.AddEvent(sess.ID + "@confplan")
		ev.SetDtStampTime(snap.FetchedAt)
		ev.SetStartAt(sess.Slot.Start)
		ev.SetEndAt(sess.Slot.End())
		ev.SetSummary(sess.Title)
		if sess.Room != "" {
			ev.SetLocation(sess.Room)
		}
		ev.SetDescription(description(sess, snap, overlaps[sess.ID]))
	}

	res := &Result{
		Calendar:   cal.Serialize(),
		EventCount: len(selected),
		Dangling:   dangling,
	}
	appLog.Info("export built", "events", res.EventCount, "dangling", len(res.Dangling))
	return res, nil
}

func description(sess model.Session, snap *model.Snapshot, overlapping []model.Session) string {
	var parts []string

	if names := speakerNames(sess, snap); names != "" {
		parts = append(parts, "Speakers: "+names)
	}
	if names := trackNames(sess, snap); names != "" {
		parts = append(parts, "Tracks: "+names)
	}
	for _, other := range overlapping {
		parts = append(parts, fmt.Sprintf("CONFLICT: overlaps with %q (%s-%s)",
			other.Title,
			other.Slot.Start.Format("15:04"),
			other.Slot.End().Format("15:04"),
		))
	}
	if sess.Abstract != "" {
		parts = append(parts, "", sess.Abstract)
	}

	return strings.Join(parts, "\n")
}

func speakerNames(sess model.Session, snap *model.Snapshot) string {
	var names []string
	for _, slug := range sess.SpeakerSlugs {
		if sp := snap.SpeakerBySlug(slug); sp != nil && sp.Name != "" {
			names = append(names, sp.Name)
		} else {
			names = append(names, slug)
		}
	}
	return strings.Join(names, ", ")
}

func trackNames(sess model.Session, snap *model.Snapshot) string {
	var names []string
	for _, id := range sess.Tracks {
		if t := snap.TrackByID(id); t != nil {
			names = append(names, t.Name)
		} else {
			names = append(names, id)
		}
	}
	return strings.Join(names, ", ")
}

// WriteFile writes the calendar to its well-known path, overwriting any
// previous export.
func WriteFile(path string, res *Result) error {
	if res == nil {
		return errors.New("export: result is nil")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: create export dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(res.Calendar), 0o644); err != nil {
		return fmt.Errorf("export: write calendar file: %w", err)
	}
	return nil
}
