package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confplan/internal/config"
	"confplan/internal/model"
	"confplan/internal/scrape"
	"confplan/internal/store"
)

// fakeFetcher serves canned batches and records phase order.
type fakeFetcher struct {
	grid     scrape.GridBatch
	details  scrape.DetailBatch
	speakers scrape.SpeakerBatch

	gridErr error

	calls []string
}

func (f *fakeFetcher) FetchGrid(ctx context.Context) (scrape.GridBatch, error) {
	f.calls = append(f.calls, "grid")
	return f.grid, f.gridErr
}

func (f *fakeFetcher) FetchDetails(ctx context.Context, ids []string) (scrape.DetailBatch, error) {
	f.calls = append(f.calls, "details")
	return f.details, nil
}

func (f *fakeFetcher) FetchSpeakers(ctx context.Context, slugs []string) (scrape.SpeakerBatch, error) {
	f.calls = append(f.calls, "speakers")
	return f.speakers, nil
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	return cfg
}

func testFetcher() *fakeFetcher {
	return &fakeFetcher{
		grid: scrape.GridBatch{
			FetchedAt: time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC),
			Sessions: []scrape.GridRecord{
				{
					SessionID: "go-sync", Title: "Synchronizing the World",
					Day: "Wednesday, February 25", StartTime: "9:00", EndTime: "9:45",
					Room:     "Salon A",
					Speakers: []scrape.SpeakerRef{{Slug: "marina-kovacs", Name: "Marina Kovacs"}},
					Tracks:   []string{"Go"},
				},
				{
					SessionID: "deep-dive", Title: "A Deep Dive",
					Day: "Thursday, February 26", StartTime: "10:00", EndTime: "11:00",
					Room:     "Salon B",
					Speakers: []scrape.SpeakerRef{{Slug: "thomas-leroux", Name: "Thomas Leroux"}},
				},
			},
		},
		details: scrape.DetailBatch{
			Records: []scrape.DetailRecord{
				{SessionID: "go-sync", Abstract: "Three phases.", Language: "English"},
			},
			Failures: []scrape.ItemFailure{{ID: "deep-dive", Attempts: 4, Err: "timeout"}},
		},
		speakers: scrape.SpeakerBatch{
			Records: []scrape.SpeakerRecord{
				{Slug: "marina-kovacs", Name: "Marina Kovacs", Country: "Hungary"},
			},
			Failures: []scrape.ItemFailure{{ID: "thomas-leroux", Attempts: 4, Err: "timeout"}},
		},
	}
}

func TestRunFullPipeline(t *testing.T) {
	cfg := testConfig(t)
	st := store.New(cfg.DataDir)
	fetcher := testFetcher()

	report, err := New(cfg, st, fetcher).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"grid", "details", "speakers"}, fetcher.calls, "strict phase order")
	assert.Equal(t, 2, report.Sessions)
	assert.Equal(t, 2, report.Speakers)
	assert.Equal(t, 1, report.Tracks)
	assert.Equal(t, 2, report.FailedItems())
	assert.Equal(t, []string{"deep-dive"}, report.PartialSessions)
	assert.Equal(t, []string{"thomas-leroux"}, report.StubSpeakers)

	snap, err := st.LoadSnapshot()
	require.NoError(t, err)
	require.NotNil(t, snap.SessionByID("deep-dive"))
	assert.True(t, snap.SessionByID("deep-dive").Partial)
	assert.True(t, snap.SpeakerBySlug("thomas-leroux").Partial)
}

func TestRunEmptyGridPreservesSnapshot(t *testing.T) {
	cfg := testConfig(t)
	st := store.New(cfg.DataDir)

	_, err := New(cfg, st, testFetcher()).Run(context.Background())
	require.NoError(t, err)

	empty := testFetcher()
	empty.grid = scrape.GridBatch{}
	_, err = New(cfg, st, empty).Run(context.Background())
	require.ErrorIs(t, err, ErrEmptyGrid)

	snap, err := st.LoadSnapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Sessions, 2, "prior snapshot must survive an empty grid")
}

func TestRunReconcileErrorPreservesSnapshot(t *testing.T) {
	cfg := testConfig(t)
	st := store.New(cfg.DataDir)

	_, err := New(cfg, st, testFetcher()).Run(context.Background())
	require.NoError(t, err)

	bad := testFetcher()
	bad.grid.Sessions[0].Day = "Someday" // unparseable, reconciliation hard error
	_, err = New(cfg, st, bad).Run(context.Background())
	require.Error(t, err)

	snap, err := st.LoadSnapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Sessions, 2, "prior snapshot must survive a failed reconcile")
}

func TestRunGridFailureAborts(t *testing.T) {
	cfg := testConfig(t)
	fetcher := testFetcher()
	fetcher.gridErr = errors.New("browser crashed")

	_, err := New(cfg, store.New(cfg.DataDir), fetcher).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"grid"}, fetcher.calls, "later phases must not start")
}

func TestRunLockContention(t *testing.T) {
	cfg := testConfig(t)

	held := flock.New(cfg.LockPath())
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	_, err = New(cfg, store.New(cfg.DataDir), testFetcher()).Run(context.Background())
	require.ErrorIs(t, err, ErrSyncInProgress)
}

func TestRunReportsDanglingSelection(t *testing.T) {
	cfg := testConfig(t)
	st := store.New(cfg.DataDir)

	sel := model.NewSelection([]string{"go-sync", "cancelled-talk"})
	require.NoError(t, st.SaveSelection(sel))

	report, err := New(cfg, st, testFetcher()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"cancelled-talk"}, report.Dangling)

	// The selection document itself is never rewritten by sync.
	after, err := st.LoadSelection()
	require.NoError(t, err)
	assert.Equal(t, sel.IDs(), after.IDs())
}

func TestReportFailedItems(t *testing.T) {
	r := &Report{
		DetailFailures:  []scrape.ItemFailure{{ID: "a"}, {ID: "b"}},
		SpeakerFailures: []scrape.ItemFailure{{ID: "c"}},
	}
	assert.Equal(t, 3, r.FailedItems())
	assert.Zero(t, (&Report{}).FailedItems())
}

func TestReportSummary(t *testing.T) {
	r := &Report{
		Sessions: 2, Speakers: 2, Tracks: 1,
		Duration:        1500 * time.Millisecond,
		DetailFailures:  []scrape.ItemFailure{{ID: "deep-dive", Attempts: 4, Err: "timeout"}},
		PartialSessions: []string{"deep-dive"},
		Dangling:        []string{"cancelled-talk"},
	}
	s := r.Summary()
	assert.Contains(t, s, "Synced 2 sessions, 2 speakers, 1 tracks")
	assert.Contains(t, s, "session deep-dive: timeout (4 attempts)")
	assert.Contains(t, s, "Partial sessions (no abstract): deep-dive")
	assert.Contains(t, s, "cancelled-talk")
}
