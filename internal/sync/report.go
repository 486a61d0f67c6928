package sync

import (
	"fmt"
	"strings"
	"time"

	"confplan/internal/scrape"
)

// Report aggregates everything a sync run wants to tell the user at the
// end: snapshot size, per-item failures, degraded entities, and personal
// calendar entries orphaned by the new snapshot.
type Report struct {
	StartedAt time.Time
	Duration  time.Duration

	Sessions      int
	Speakers      int
	Tracks        int
	SpecialEvents int

	DetailFailures  []scrape.ItemFailure
	SpeakerFailures []scrape.ItemFailure
	PartialSessions []string
	StubSpeakers    []string

	// Dangling lists selected session IDs absent from the new snapshot.
	Dangling []string
}

// FailedItems returns the total number of items that exhausted retries.
func (r *Report) FailedItems() int {
	return len(r.DetailFailures) + len(r.SpeakerFailures)
}

// Summary renders the report as human-readable lines for the CLI.
func (r *Report) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Synced %d sessions, %d speakers, %d tracks in %s.\n",
		r.Sessions, r.Speakers, r.Tracks, r.Duration.Round(time.Second))

	if n := r.FailedItems(); n > 0 {
		fmt.Fprintf(&b, "%d item(s) failed after retries:\n", n)
		for _, f := range r.DetailFailures {
			fmt.Fprintf(&b, "  session %s: %s (%d attempts)\n", f.ID, f.Err, f.Attempts)
		}
		for _, f := range r.SpeakerFailures {
			fmt.Fprintf(&b, "  speaker %s: %s (%d attempts)\n", f.ID, f.Err, f.Attempts)
		}
	}
	if len(r.PartialSessions) > 0 {
		fmt.Fprintf(&b, "Partial sessions (no abstract): %s\n", strings.Join(r.PartialSessions, ", "))
	}
	if len(r.StubSpeakers) > 0 {
		fmt.Fprintf(&b, "Stub speakers (no profile): %s\n", strings.Join(r.StubSpeakers, ", "))
	}
	if len(r.Dangling) > 0 {
		fmt.Fprintf(&b, "Selected sessions no longer in the schedule: %s\n", strings.Join(r.Dangling, ", "))
	}

	return strings.TrimRight(b.String(), "\n")
}
