// Package store persists the reconciled schedule snapshot in a SQLite file
// and the user's personal calendar in a separate JSON document. The two have
// independent lifecycles: snapshot sync never touches the calendar, and the
// calendar survives re-syncs by session identifier.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	appLog "confplan/internal/log"
	"confplan/internal/model"
)

// ErrNoSnapshot is returned by LoadSnapshot when no sync has ever completed.
var ErrNoSnapshot = errors.New("store: no snapshot has been persisted")

// Store manages the on-disk data directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir. The directory is created lazily on the
// first write.
func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) dbPath() string        { return filepath.Join(s.dir, "schedule.db") }
func (s *Store) dbTempPath() string    { return filepath.Join(s.dir, "schedule.db.tmp") }
func (s *Store) selectionPath() string { return filepath.Join(s.dir, "my_calendar.json") }
func (s *Store) ratingsPath() string   { return filepath.Join(s.dir, "speaker_ratings.json") }

// SaveSnapshot atomically replaces the persisted schedule: the snapshot is
// written to a temporary database in the same directory and renamed over the
// live path only after every insert committed. Readers never observe an
// intermediate state, and a failure (or an operator abort) leaves the prior
// snapshot untouched.
func (s *Store) SaveSnapshot(snap *model.Snapshot) (err error) {
	if snap == nil {
		return errors.New("store: snapshot is nil")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("store: create data dir: %w", err)
	}

	// A leftover temp database from a crashed sync must not corrupt this
	// one; start clean.
	tmp := s.dbTempPath()
	_ = os.Remove(tmp)
	defer os.Remove(tmp)

	db, err := sql.Open("sqlite", tmp)
	if err != nil {
		return fmt.Errorf("store: open temp database: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("store: close temp database: %w", cerr)
		}
		if err == nil {
			err = os.Rename(tmp, s.dbPath())
		}
	}()

	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("store: enable foreign keys: %w", err)
	}
	if _, err = db.Exec(schema); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err = insertSnapshot(tx, snap); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit snapshot: %w", err)
	}

	appLog.Info("snapshot saved",
		"sessions", len(snap.Sessions),
		"speakers", len(snap.Speakers),
		"tracks", len(snap.Tracks),
	)
	return nil
}

func insertSnapshot(tx *sql.Tx, snap *model.Snapshot) error {
	for _, t := range snap.Tracks {
		if _, err := tx.Exec(`INSERT INTO tracks (id, name) VALUES (?, ?)`, t.ID, t.Name); err != nil {
			return fmt.Errorf("store: insert track %q: %w", t.ID, err)
		}
	}

	for _, sp := range snap.Speakers {
		links, err := json.Marshal(sp.Links)
		if err != nil {
			return fmt.Errorf("store: encode links for %q: %w", sp.Slug, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO speakers (slug, name, company, country, bio, photo_url, links, partial)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sp.Slug, sp.Name, sp.Company, sp.Country, sp.Bio, sp.PhotoURL, string(links), boolToInt(sp.Partial),
		); err != nil {
			return fmt.Errorf("store: insert speaker %q: %w", sp.Slug, err)
		}
	}

	for _, sess := range snap.Sessions {
		if _, err := tx.Exec(
			`INSERT INTO sessions (id, title, abstract, day, start_at, duration_min, room, language, level, keynote, partial)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sess.ID, sess.Title, sess.Abstract,
			sess.Slot.Day, sess.Slot.Start.Format(time.RFC3339), int(sess.Slot.Duration.Minutes()),
			sess.Room, sess.Language, sess.Level, boolToInt(sess.Keynote), boolToInt(sess.Partial),
		); err != nil {
			return fmt.Errorf("store: insert session %q: %w", sess.ID, err)
		}
		for pos, slug := range sess.SpeakerSlugs {
			if _, err := tx.Exec(
				`INSERT INTO session_speakers (session_id, speaker_slug, position) VALUES (?, ?, ?)`,
				sess.ID, slug, pos,
			); err != nil {
				return fmt.Errorf("store: insert speaker ref %q -> %q: %w", sess.ID, slug, err)
			}
		}
		for _, trackID := range sess.Tracks {
			if _, err := tx.Exec(
				`INSERT INTO session_tracks (session_id, track_id) VALUES (?, ?)`,
				sess.ID, trackID,
			); err != nil {
				return fmt.Errorf("store: insert track ref %q -> %q: %w", sess.ID, trackID, err)
			}
		}
	}

	for _, ev := range snap.SpecialEvents {
		if _, err := tx.Exec(
			`INSERT INTO special_events (day, start_at, end_at, name) VALUES (?, ?, ?, ?)`,
			ev.Day, ev.Start, ev.End, ev.Name,
		); err != nil {
			return fmt.Errorf("store: insert special event %q: %w", ev.Name, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO sync_meta (key, value) VALUES ('fetched_at', ?)`,
		snap.FetchedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("store: insert sync meta: %w", err)
	}
	return nil
}

// LoadSnapshot reads the persisted snapshot. ErrNoSnapshot means no sync has
// ever completed; callers fall back to the bundled dataset.
func (s *Store) LoadSnapshot() (*model.Snapshot, error) {
	path := s.dbPath()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("store: stat database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	defer db.Close()

	snap := &model.Snapshot{}

	if err := queryMeta(db, snap); err != nil {
		return nil, err
	}
	if err := queryTracks(db, snap); err != nil {
		return nil, err
	}
	if err := querySpeakers(db, snap); err != nil {
		return nil, err
	}
	if err := querySessions(db, snap); err != nil {
		return nil, err
	}
	if err := querySpecialEvents(db, snap); err != nil {
		return nil, err
	}

	return snap, nil
}

func queryMeta(db *sql.DB, snap *model.Snapshot) error {
	var raw string
	err := db.QueryRow(`SELECT value FROM sync_meta WHERE key = 'fetched_at'`).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("store: read sync meta: %w", err)
	}
	t, perr := time.Parse(time.RFC3339, raw)
	if perr != nil {
		return fmt.Errorf("store: parse fetched_at: %w", perr)
	}
	snap.FetchedAt = t
	return nil
}

func queryTracks(db *sql.DB, snap *model.Snapshot) error {
	rows, err := db.Query(`SELECT id, name FROM tracks ORDER BY id`)
	if err != nil {
		return fmt.Errorf("store: query tracks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t model.Track
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return fmt.Errorf("store: scan track: %w", err)
		}
		snap.Tracks = append(snap.Tracks, t)
	}
	return rows.Err()
}

func querySpeakers(db *sql.DB, snap *model.Snapshot) error {
	rows, err := db.Query(
		`SELECT slug, name, company, country, bio, photo_url, links, partial FROM speakers ORDER BY slug`)
	if err != nil {
		return fmt.Errorf("store: query speakers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sp model.Speaker
		var links string
		var partial int
		if err := rows.Scan(&sp.Slug, &sp.Name, &sp.Company, &sp.Country, &sp.Bio, &sp.PhotoURL, &links, &partial); err != nil {
			return fmt.Errorf("store: scan speaker: %w", err)
		}
		if err := json.Unmarshal([]byte(links), &sp.Links); err != nil {
			return fmt.Errorf("store: decode links for %q: %w", sp.Slug, err)
		}
		sp.Partial = partial != 0
		snap.Speakers = append(snap.Speakers, sp)
	}
	return rows.Err()
}

func querySessions(db *sql.DB, snap *model.Snapshot) error {
	rows, err := db.Query(
		`SELECT id, title, abstract, day, start_at, duration_min, room, language, level, keynote, partial
		 FROM sessions ORDER BY day, start_at, id`)
	if err != nil {
		return fmt.Errorf("store: query sessions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sess model.Session
		var startRaw string
		var durationMin, keynote, partial int
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.Abstract, &sess.Slot.Day, &startRaw, &durationMin,
			&sess.Room, &sess.Language, &sess.Level, &keynote, &partial); err != nil {
			return fmt.Errorf("store: scan session: %w", err)
		}
		start, perr := time.Parse(time.RFC3339, startRaw)
		if perr != nil {
			return fmt.Errorf("store: parse start for %q: %w", sess.ID, perr)
		}
		sess.Slot.Start = start
		sess.Slot.Duration = time.Duration(durationMin) * time.Minute
		sess.Keynote = keynote != 0
		sess.Partial = partial != 0
		snap.Sessions = append(snap.Sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	return queryRefs(db, snap)
}

func queryRefs(db *sql.DB, snap *model.Snapshot) error {
	byID := make(map[string]*model.Session, len(snap.Sessions))
	for i := range snap.Sessions {
		byID[snap.Sessions[i].ID] = &snap.Sessions[i]
	}

	spRows, err := db.Query(
		`SELECT session_id, speaker_slug FROM session_speakers ORDER BY session_id, position`)
	if err != nil {
		return fmt.Errorf("store: query speaker refs: %w", err)
	}
	defer spRows.Close()
	for spRows.Next() {
		var sessID, slug string
		if err := spRows.Scan(&sessID, &slug); err != nil {
			return fmt.Errorf("store: scan speaker ref: %w", err)
		}
		if sess, ok := byID[sessID]; ok {
			sess.SpeakerSlugs = append(sess.SpeakerSlugs, slug)
		}
	}
	if err := spRows.Err(); err != nil {
		return err
	}

	trRows, err := db.Query(
		`SELECT session_id, track_id FROM session_tracks ORDER BY session_id, track_id`)
	if err != nil {
		return fmt.Errorf("store: query track refs: %w", err)
	}
	defer trRows.Close()
	for trRows.Next() {
		var sessID, trackID string
		if err := trRows.Scan(&sessID, &trackID); err != nil {
			return fmt.Errorf("store: scan track ref: %w", err)
		}
		if sess, ok := byID[sessID]; ok {
			sess.Tracks = append(sess.Tracks, trackID)
		}
	}
	return trRows.Err()
}

func querySpecialEvents(db *sql.DB, snap *model.Snapshot) error {
	rows, err := db.Query(`SELECT day, start_at, end_at, name FROM special_events ORDER BY day, start_at`)
	if err != nil {
		return fmt.Errorf("store: query special events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ev model.SpecialEvent
		if err := rows.Scan(&ev.Day, &ev.Start, &ev.End, &ev.Name); err != nil {
			return fmt.Errorf("store: scan special event: %w", err)
		}
		snap.SpecialEvents = append(snap.SpecialEvents, ev)
	}
	return rows.Err()
}

// Load resolves the active snapshot: the persisted database when a sync has
// completed, the bundled fallback otherwise. User ratings are merged in
// read-only either way; source names the origin ("database" or "bundled").
func (s *Store) Load() (snap *model.Snapshot, source string, err error) {
	snap, err = s.LoadSnapshot()
	source = "database"
	if errors.Is(err, ErrNoSnapshot) {
		snap, err = FallbackSnapshot()
		source = "bundled"
	}
	if err != nil {
		return nil, "", err
	}

	ratings, rerr := LoadRatings(s.ratingsPath())
	if rerr != nil {
		appLog.Warn("rating file unreadable, continuing unrated", "err", rerr)
	}
	MergeRatings(snap, ratings)

	return snap, source, nil
}

// DanglingRefs returns the selected session identifiers that no longer exist
// in the snapshot, in selection order. A pure function: selections are never
// validated at write time, only surfaced at use time.
func DanglingRefs(snap *model.Snapshot, sel *model.Selection) []string {
	var missing []string
	for _, id := range sel.IDs() {
		if snap.SessionByID(id) == nil {
			missing = append(missing, id)
		}
	}
	return missing
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
