package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confplan/internal/scrape"
)

var montreal = func() *time.Location {
	loc, err := time.LoadLocation("America/Montreal")
	if err != nil {
		panic(err)
	}
	return loc
}()

func testOptions() Options {
	return Options{
		Location:        montreal,
		Year:            2026,
		WeekStart:       time.Date(2026, 2, 23, 0, 0, 0, 0, montreal),
		DefaultDuration: 45 * time.Minute,
	}
}

func fullBatches() (scrape.GridBatch, scrape.DetailBatch, scrape.SpeakerBatch) {
	grid := scrape.GridBatch{
		FetchedAt: time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC),
		Sessions: []scrape.GridRecord{
			{
				SessionID: "go-sync", Title: "Synchronizing the World",
				Day: "Wednesday, February 25", StartTime: "9:00", EndTime: "9:45",
				Room: "Salon A",
				Speakers: []scrape.SpeakerRef{
					{Slug: "marina-kovacs", Name: "Marina Kovacs"},
				},
				Tracks: []string{"Go", "Backend"},
			},
			{
				SessionID: "keynote-open", Title: "Opening Keynote",
				Day: "Wednesday, February 25", StartTime: "8:00",
				Room:    "Grand Salon",
				Keynote: true,
				Speakers: []scrape.SpeakerRef{
					{Slug: "thomas-leroux", Name: "Thomas Leroux"},
				},
			},
		},
		Events: []scrape.EventRecord{
			{Day: "Wednesday, February 25", StartTime: "12:00", EndTime: "13:30", Name: "Lunch"},
		},
	}
	details := scrape.DetailBatch{
		Records: []scrape.DetailRecord{
			{
				SessionID: "go-sync", Abstract: "Three phases, one snapshot.",
				Language: "English", Level: "Intermediate",
				SpeakerCompany: "Kovacs Consulting",
			},
			{SessionID: "keynote-open", Abstract: "Welcome.", Language: "English"},
		},
	}
	speakers := scrape.SpeakerBatch{
		Records: []scrape.SpeakerRecord{
			{
				Slug: "marina-kovacs", Name: "Marina Kovacs",
				Country: "Hungary", Bio: "Distributed systems engineer.",
				Twitter: "https://twitter.com/marinak",
			},
			{Slug: "thomas-leroux", Name: "Thomas Leroux", Country: "France"},
		},
	}
	return grid, details, speakers
}

func TestReconcileFullBatches(t *testing.T) {
	grid, details, speakers := fullBatches()

	snap, report, err := Reconcile(grid, details, speakers, testOptions())
	require.NoError(t, err)
	assert.Empty(t, report.PartialSessions)
	assert.Empty(t, report.StubSpeakers)

	require.Len(t, snap.Sessions, 2)
	// Canonical order: day, then start time.
	assert.Equal(t, "keynote-open", snap.Sessions[0].ID)
	assert.True(t, snap.Sessions[0].Keynote)

	sess := snap.SessionByID("go-sync")
	require.NotNil(t, sess)
	assert.Equal(t, "Three phases, one snapshot.", sess.Abstract)
	assert.Equal(t, "Intermediate", sess.Level)
	assert.Equal(t, "2026-02-25", sess.Slot.Day)
	assert.Equal(t, "09:00", sess.Slot.Start.Format("15:04"))
	assert.Equal(t, 45*time.Minute, sess.Slot.Duration)
	assert.Equal(t, montreal, sess.Slot.Start.Location())
	assert.Equal(t, []string{"go", "backend"}, sess.Tracks)
	assert.False(t, sess.Partial)

	sp := snap.SpeakerBySlug("marina-kovacs")
	require.NotNil(t, sp)
	assert.Equal(t, "Hungary", sp.Country)
	assert.Equal(t, "Kovacs Consulting", sp.Company, "company enriched from session page")
	require.Len(t, sp.Links, 1)
	assert.Equal(t, "twitter", sp.Links[0].Label)

	require.Len(t, snap.Tracks, 2)
	assert.Equal(t, "backend", snap.Tracks[0].ID)
	assert.Equal(t, "Backend", snap.Tracks[0].Name)

	require.Len(t, snap.SpecialEvents, 1)
	assert.Equal(t, "Lunch", snap.SpecialEvents[0].Name)
}

func TestReconcileIsIdempotent(t *testing.T) {
	grid, details, speakers := fullBatches()

	a, _, err := Reconcile(grid, details, speakers, testOptions())
	require.NoError(t, err)
	b, _, err := Reconcile(grid, details, speakers, testOptions())
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestReconcileMissingDetailYieldsPartialSession(t *testing.T) {
	grid, details, speakers := fullBatches()
	details.Records = details.Records[1:] // drop go-sync detail
	details.Failures = []scrape.ItemFailure{{ID: "go-sync", Attempts: 3, Err: "timeout"}}

	snap, report, err := Reconcile(grid, details, speakers, testOptions())
	require.NoError(t, err)

	sess := snap.SessionByID("go-sync")
	require.NotNil(t, sess)
	assert.True(t, sess.Partial)
	assert.Empty(t, sess.Abstract)
	assert.Equal(t, "Synchronizing the World", sess.Title, "grid data kept")
	assert.Equal(t, []string{"go-sync"}, report.PartialSessions)
}

func TestReconcileMissingProfileYieldsStubSpeaker(t *testing.T) {
	grid, details, speakers := fullBatches()
	speakers.Records = speakers.Records[:1] // drop thomas-leroux profile

	snap, report, err := Reconcile(grid, details, speakers, testOptions())
	require.NoError(t, err)

	sp := snap.SpeakerBySlug("thomas-leroux")
	require.NotNil(t, sp)
	assert.True(t, sp.Partial)
	assert.Equal(t, "Thomas Leroux", sp.Name, "grid display name kept")
	assert.Equal(t, []string{"thomas-leroux"}, report.StubSpeakers)

	// The stub still satisfies the session's reference.
	sess := snap.SessionByID("keynote-open")
	require.NotNil(t, sess)
	assert.Equal(t, []string{"thomas-leroux"}, sess.SpeakerSlugs)
}

func TestReconcileSlugCollision(t *testing.T) {
	grid, details, speakers := fullBatches()
	grid.Sessions[0].Speakers = []scrape.SpeakerRef{{Name: "Jane Doe"}}
	grid.Sessions[1].Speakers = []scrape.SpeakerRef{{Name: "Jane  Doe."}}

	_, _, err := Reconcile(grid, details, speakers, testOptions())
	var collision *CollisionError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, "jane-doe", collision.Slug)
}

func TestReconcileDefaultDurationWhenEndMissing(t *testing.T) {
	grid, details, speakers := fullBatches()

	snap, _, err := Reconcile(grid, details, speakers, testOptions())
	require.NoError(t, err)

	sess := snap.SessionByID("keynote-open")
	require.NotNil(t, sess)
	assert.Equal(t, 45*time.Minute, sess.Slot.Duration)
}

func TestReconcileUnparseableDayIsHardError(t *testing.T) {
	grid, details, speakers := fullBatches()
	grid.Sessions[0].Day = "Someday"

	_, _, err := Reconcile(grid, details, speakers, testOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "go-sync")
}

func TestReconcileSameClockDifferentDaysNeverOverlap(t *testing.T) {
	grid, details, speakers := fullBatches()
	grid.Sessions[1].Day = "Thursday, February 26"
	grid.Sessions[1].StartTime = "9:00"
	grid.Sessions[1].EndTime = "9:45"

	snap, _, err := Reconcile(grid, details, speakers, testOptions())
	require.NoError(t, err)

	a := snap.SessionByID("go-sync")
	b := snap.SessionByID("keynote-open")
	assert.False(t, a.Slot.Overlaps(b.Slot))
}

func TestParseDayLabel(t *testing.T) {
	weekStart := time.Date(2026, 2, 23, 0, 0, 0, 0, montreal) // a Monday

	got, err := parseDayLabel("Wednesday (2026-02-25)", 2026, weekStart, montreal)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-25", got.Format("2006-01-02"))

	got, err = parseDayLabel("Wednesday, February 25", 2026, weekStart, montreal)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-25", got.Format("2006-01-02"))

	_, err = parseDayLabel("Day 3", 2026, weekStart, montreal)
	require.Error(t, err)
}

func TestParseDayLabelBareWeekday(t *testing.T) {
	weekStart := time.Date(2026, 2, 23, 0, 0, 0, 0, montreal) // a Monday

	cases := map[string]string{
		"Monday":    "2026-02-23",
		"Wednesday": "2026-02-25",
		"friday":    "2026-02-27",
	}
	for label, want := range cases {
		got, err := parseDayLabel(label, 2026, weekStart, montreal)
		require.NoError(t, err, label)
		assert.Equal(t, want, got.Format("2006-01-02"), label)
	}

	// Without a configured start date a bare weekday is unresolvable.
	_, err := parseDayLabel("Wednesday", 2026, time.Time{}, montreal)
	require.Error(t, err)
}

func TestReconcileResolvesBareWeekdayHeadings(t *testing.T) {
	grid, details, speakers := fullBatches()
	grid.Sessions[0].Day = "Wednesday"
	grid.Sessions[1].Day = "Thursday"

	snap, _, err := Reconcile(grid, details, speakers, testOptions())
	require.NoError(t, err)
	assert.Equal(t, "2026-02-25", snap.SessionByID("go-sync").Slot.Day)
	assert.Equal(t, "2026-02-26", snap.SessionByID("keynote-open").Slot.Day)
}

func TestParseClock(t *testing.T) {
	h, m, err := parseClock("9:05")
	require.NoError(t, err)
	assert.Equal(t, 9, h)
	assert.Equal(t, 5, m)

	_, _, err = parseClock("25:00")
	require.Error(t, err)
	_, _, err = parseClock("around nine")
	require.Error(t, err)
}

func TestReconcileSnapshotSatisfiesReferenceInvariant(t *testing.T) {
	grid, details, speakers := fullBatches()
	speakers.Records = nil // every speaker becomes a stub

	snap, _, err := Reconcile(grid, details, speakers, testOptions())
	require.NoError(t, err)

	for _, sess := range snap.Sessions {
		for _, slug := range sess.SpeakerSlugs {
			assert.NotNil(t, snap.SpeakerBySlug(slug), "session %s speaker %s", sess.ID, slug)
		}
		for _, id := range sess.Tracks {
			assert.NotNil(t, snap.TrackByID(id), "session %s track %s", sess.ID, id)
		}
	}
}
