// Package sync orchestrates a full schedule rebuild: three fetch phases in
// strict order, reconciliation, then an atomic snapshot replace. Only one
// sync may run at a time; all item-level failures are aggregated into one
// end-of-run report.
package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"

	"confplan/internal/config"
	appLog "confplan/internal/log"
	"confplan/internal/reconcile"
	"confplan/internal/scrape"
	"confplan/internal/store"
)

// ErrSyncInProgress is returned when another sync holds the lock. The second
// attempt fails fast instead of racing on the store.
var ErrSyncInProgress = errors.New("sync: another sync is already running")

// ErrEmptyGrid is returned when the grid phase finds no sessions at all.
// The site layout probably changed, and overwriting good data with nothing
// would be worse than failing.
var ErrEmptyGrid = errors.New("sync: schedule grid yielded no sessions, keeping existing snapshot")

// Fetcher is the phase contract of the scraper; a fake implementation
// stands in during tests.
type Fetcher interface {
	FetchGrid(ctx context.Context) (scrape.GridBatch, error)
	FetchDetails(ctx context.Context, sessionIDs []string) (scrape.DetailBatch, error)
	FetchSpeakers(ctx context.Context, slugs []string) (scrape.SpeakerBatch, error)
}

// Syncer runs the sync pipeline against a store.
type Syncer struct {
	cfg     *config.Config
	store   *store.Store
	fetcher Fetcher
}

// New creates a Syncer.
func New(cfg *config.Config, st *store.Store, fetcher Fetcher) *Syncer {
	return &Syncer{cfg: cfg, store: st, fetcher: fetcher}
}

// Run executes one full sync. On success the new snapshot has replaced the
// persisted one and the report aggregates every partial failure. On error,
// including operator cancellation, the previously persisted snapshot is
// untouched.
func (s *Syncer) Run(ctx context.Context) (*Report, error) {
	if err := os.MkdirAll(s.cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("sync: create data dir: %w", err)
	}

	lock := flock.New(s.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("sync: acquire lock: %w", err)
	}
	if !locked {
		return nil, ErrSyncInProgress
	}
	defer lock.Unlock()

	started := time.Now()
	appLog.Info("sync starting", "schedule", s.cfg.ScheduleURL())

	// Phase 1: the grid discovers every session and speaker identifier; the
	// later phases depend on it, so a grid failure aborts the sync.
	grid, err := s.fetcher.FetchGrid(ctx)
	if err != nil {
		return nil, err
	}
	if len(grid.Sessions) == 0 {
		return nil, ErrEmptyGrid
	}

	// Phase 2: per-session details. Item failures are recorded in the
	// batch; only cancellation aborts.
	details, err := s.fetcher.FetchDetails(ctx, grid.SessionIDs())
	if err != nil {
		return nil, err
	}

	// Phase 3: speaker profiles for the de-duplicated slug set discovered
	// so far. Must not start before phase 2 fully drained, which the
	// fetcher contract guarantees.
	speakers, err := s.fetcher.FetchSpeakers(ctx, grid.SpeakerSlugs())
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("sync: load timezone %q: %w", s.cfg.Timezone, err)
	}

	var weekStart time.Time
	if s.cfg.StartDate != "" {
		weekStart, err = time.ParseInLocation("2006-01-02", s.cfg.StartDate, loc)
		if err != nil {
			return nil, fmt.Errorf("sync: parse start date %q: %w", s.cfg.StartDate, err)
		}
	}

	snap, recReport, err := reconcile.Reconcile(grid, details, speakers, reconcile.Options{
		Location:        loc,
		Year:            s.cfg.Year,
		WeekStart:       weekStart,
		DefaultDuration: time.Duration(s.cfg.SessionMinutes) * time.Minute,
	})
	if err != nil {
		// Hard reconciliation error: abort, prior snapshot untouched.
		return nil, err
	}

	if err := s.store.SaveSnapshot(snap); err != nil {
		return nil, err
	}

	report := &Report{
		StartedAt:       started,
		Duration:        time.Since(started),
		Sessions:        len(snap.Sessions),
		Speakers:        len(snap.Speakers),
		Tracks:          len(snap.Tracks),
		SpecialEvents:   len(snap.SpecialEvents),
		DetailFailures:  details.Failures,
		SpeakerFailures: speakers.Failures,
		PartialSessions: recReport.PartialSessions,
		StubSpeakers:    recReport.StubSpeakers,
	}

	// Re-syncs can orphan previously selected sessions; surface them so the
	// user can decide, never drop them.
	if sel, serr := s.store.LoadSelection(); serr == nil {
		report.Dangling = store.DanglingRefs(snap, sel)
	} else {
		appLog.Warn("could not check personal calendar for dangling entries", "err", serr)
	}

	appLog.Info("sync complete",
		"sessions", report.Sessions,
		"speakers", report.Speakers,
		"failed_items", len(report.DetailFailures)+len(report.SpeakerFailures),
		"took", report.Duration.Round(time.Second),
	)
	return report, nil
}
