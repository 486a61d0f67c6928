package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchHref(t *testing.T) {
	assert.Equal(t, "abc-123", matchHref(sessionHrefRe, "/en/2026/session/abc-123"))
	assert.Equal(t, "abc-123", matchHref(sessionHrefRe, "/en/2026/session/abc-123?ref=grid"))
	assert.Equal(t, "jane-doe", matchHref(speakerHrefRe, "https://confoo.ca/en/2026/speaker/jane-doe#bio"))
	assert.Equal(t, "", matchHref(sessionHrefRe, "/en/2026/speakers"))
}

func TestTimeKey(t *testing.T) {
	assert.Equal(t, "09:00", timeKey("9:00"))
	assert.Equal(t, "10:30", timeKey("10:30"))
	assert.Less(t, timeKey("9:00"), timeKey("10:00"))
}

func TestMergeGridSessionsCollapsesMultiSlot(t *testing.T) {
	raw := []gridEvalSession{
		{
			Href: "/session/training-1", Title: "All-day training",
			Day: "February 23", StartTime: "13:00", EndTime: "17:00",
			Room: "A", Tracks: []string{"Workshops"},
		},
		{
			Href: "/session/training-1", Title: "All-day training",
			Day: "February 23", StartTime: "9:00", EndTime: "12:00",
			Room: "A", Tracks: []string{"Workshops", "Hands-on"},
			Speakers: []gridEvalSpeaker{{Href: "/speaker/jane-doe", Name: "Jane Doe"}},
		},
	}

	out := mergeGridSessions(raw)
	require.Len(t, out, 1)

	rec := out[0]
	assert.Equal(t, "training-1", rec.SessionID)
	assert.Equal(t, "9:00", rec.StartTime)
	assert.Equal(t, "17:00", rec.EndTime)
	assert.Equal(t, []string{"Workshops", "Hands-on"}, rec.Tracks)
	require.Len(t, rec.Speakers, 1)
	assert.Equal(t, SpeakerRef{Slug: "jane-doe", Name: "Jane Doe"}, rec.Speakers[0])
}

func TestMergeGridSessionsDeterministicOrder(t *testing.T) {
	raw := []gridEvalSession{
		{Href: "/session/b", Day: "February 25", StartTime: "10:00"},
		{Href: "/session/a", Day: "February 25", StartTime: "9:00"},
		{Href: "/session/c", Day: "February 24", StartTime: "15:00"},
		{Href: "/schedule", Day: "February 24"}, // no session id, dropped
	}

	out := mergeGridSessions(raw)
	require.Len(t, out, 3)
	assert.Equal(t, "c", out[0].SessionID)
	assert.Equal(t, "a", out[1].SessionID)
	assert.Equal(t, "b", out[2].SessionID)
}

func TestGridBatchSpeakerSlugs(t *testing.T) {
	batch := GridBatch{Sessions: []GridRecord{
		{SessionID: "a", Speakers: []SpeakerRef{{Slug: "zoe"}, {Slug: "ada"}}},
		{SessionID: "b", Speakers: []SpeakerRef{{Slug: "ada"}, {Name: "No Link"}}},
	}}
	assert.Equal(t, []string{"ada", "zoe"}, batch.SpeakerSlugs())
	assert.Equal(t, []string{"a", "b"}, batch.SessionIDs())
}
