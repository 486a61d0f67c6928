// Package scrape retrieves the three raw schedule data sources from the
// conference site with a headless Chromium: the day-by-day grid, per-session
// detail pages, and per-speaker profile pages.
//
// The three phases run strictly in order because the detail and speaker
// phases need the identifiers discovered in the grid phase. Each phase
// produces an immutable, timestamped batch of raw records; phases never
// mutate each other's output. Item-level failures inside a phase are retried
// with backoff up to a bound and then recorded, never aborting the phase.
package scrape

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/chromedp/chromedp"

	"confplan/internal/config"
	appLog "confplan/internal/log"
)

// Timeouts for a single page load inside a phase.
const (
	gridTimeout = 30 * time.Second
	itemTimeout = 15 * time.Second
)

// SpeakerRef is a raw speaker reference as it appears in the grid: the slug
// from the profile link plus the display name, not yet normalized.
type SpeakerRef struct {
	Slug string
	Name string
}

// GridRecord is one session occurrence from the schedule grid.
type GridRecord struct {
	SessionID string
	Title     string
	Day       string // raw day label as printed above the grid
	StartTime string // "9:00"
	EndTime   string // "9:45", may be empty
	Room      string
	Speakers  []SpeakerRef
	Keynote   bool
	Tracks    []string // raw track labels
}

// EventRecord is a non-session grid row (lunch, networking).
type EventRecord struct {
	Day       string
	StartTime string
	EndTime   string
	Name      string
}

// GridBatch is the immutable output of the grid phase.
type GridBatch struct {
	FetchedAt time.Time
	Sessions  []GridRecord
	Events    []EventRecord
}

// SessionIDs returns the session identifiers discovered by the grid phase,
// in record order.
func (b GridBatch) SessionIDs() []string {
	ids := make([]string, 0, len(b.Sessions))
	for _, r := range b.Sessions {
		ids = append(ids, r.SessionID)
	}
	return ids
}

// SpeakerSlugs returns the de-duplicated speaker slugs referenced by the
// grid, sorted.
func (b GridBatch) SpeakerSlugs() []string {
	seen := make(map[string]bool)
	var slugs []string
	for _, r := range b.Sessions {
		for _, sp := range r.Speakers {
			if sp.Slug != "" && !seen[sp.Slug] {
				seen[sp.Slug] = true
				slugs = append(slugs, sp.Slug)
			}
		}
	}
	sort.Strings(slugs)
	return slugs
}

// DetailRecord is the raw output of one session detail page.
type DetailRecord struct {
	SessionID string
	Abstract  string
	Language  string
	Level     string

	// Speaker bits that only appear on the session page; used to enrich
	// thin speaker profiles during reconciliation.
	SpeakerCompany string
	SpeakerBio     string
}

// SpeakerRecord is the raw output of one speaker profile page.
type SpeakerRecord struct {
	Slug     string
	Name     string
	Country  string
	Bio      string
	PhotoURL string
	Twitter  string
}

// ItemFailure records a single item that exhausted its retries. It surfaces
// in the sync report; the phase itself still succeeds.
type ItemFailure struct {
	ID       string
	Attempts int
	Err      string
}

// DetailBatch is the immutable output of the detail phase.
type DetailBatch struct {
	FetchedAt time.Time
	Records   []DetailRecord
	Failures  []ItemFailure
}

// SpeakerBatch is the immutable output of the speaker phase.
type SpeakerBatch struct {
	FetchedAt time.Time
	Records   []SpeakerRecord
	Failures  []ItemFailure
}

// Scraper drives a single headless Chromium instance. Each page fetch runs
// in its own tab so the detail and speaker phases can fan out across a
// bounded worker pool.
type Scraper struct {
	cfg         *config.Config
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// New creates a Scraper whose browser lifetime is bound to ctx. Close must
// be called to tear the browser down.
func New(ctx context.Context, cfg *config.Config) *Scraper {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	return &Scraper{
		cfg:         cfg,
		allocCtx:    allocCtx,
		allocCancel: cancel,
	}
}

// Close shuts the browser down.
func (s *Scraper) Close() {
	s.allocCancel()
}

// runTab opens a fresh tab, runs the given actions with a timeout, and
// closes the tab again. Tab contexts descend from the allocator context, so
// canceling the context passed to New tears down in-flight page loads too.
func (s *Scraper) runTab(timeout time.Duration, actions ...chromedp.Action) error {
	tabCtx, cancelTab := chromedp.NewContext(s.allocCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()

	return chromedp.Run(tabCtx, actions...)
}

// withRetry runs op with bounded exponential backoff. Context cancellation
// stops retrying immediately; any other error is considered transient.
// attempts is incremented once per try so exhausted items can report how
// hard they were tried.
func (s *Scraper) withRetry(ctx context.Context, attempts *int, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = 30 * time.Second

	return backoff.Retry(func() error {
		*attempts++
		err := op()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(s.cfg.RetryMax)), ctx))
}

// forEachItem fans ids out over the configured worker pool, calling handle
// for each. It returns once every item has reached a terminal state (the
// phase boundary is a hard synchronization point) or the context is done.
func (s *Scraper) forEachItem(ctx context.Context, ids []string, handle func(id string)) error {
	jobs := make(chan string)
	var wg sync.WaitGroup

	delay := time.Duration(s.cfg.PolitenessMS) * time.Millisecond
	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				handle(id)
				if delay > 0 {
					select {
					case <-time.After(delay):
					case <-ctx.Done():
					}
				}
			}
		}()
	}

feed:
	for _, id := range ids {
		select {
		case jobs <- id:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		appLog.Warn("item fetch loop canceled", "pending", len(ids))
		return err
	}
	return nil
}
