package store

// schema mirrors the entity model. The snapshot database is rebuilt
// wholesale on every successful sync; foreign keys enforce that every
// session reference resolves within the stored snapshot.
const schema = `
CREATE TABLE tracks (
    id   TEXT PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE speakers (
    slug      TEXT PRIMARY KEY,
    name      TEXT NOT NULL,
    company   TEXT NOT NULL DEFAULT '',
    country   TEXT NOT NULL DEFAULT '',
    bio       TEXT NOT NULL DEFAULT '',
    photo_url TEXT NOT NULL DEFAULT '',
    links     TEXT NOT NULL DEFAULT '[]',
    partial   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE sessions (
    id           TEXT PRIMARY KEY,
    title        TEXT NOT NULL,
    abstract     TEXT NOT NULL DEFAULT '',
    day          TEXT NOT NULL,
    start_at     TEXT NOT NULL,
    duration_min INTEGER NOT NULL,
    room         TEXT NOT NULL DEFAULT '',
    language     TEXT NOT NULL DEFAULT '',
    level        TEXT NOT NULL DEFAULT '',
    keynote      INTEGER NOT NULL DEFAULT 0,
    partial      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE session_speakers (
    session_id   TEXT NOT NULL REFERENCES sessions(id),
    speaker_slug TEXT NOT NULL REFERENCES speakers(slug),
    position     INTEGER NOT NULL,
    PRIMARY KEY (session_id, speaker_slug)
);

CREATE TABLE session_tracks (
    session_id TEXT NOT NULL REFERENCES sessions(id),
    track_id   TEXT NOT NULL REFERENCES tracks(id),
    PRIMARY KEY (session_id, track_id)
);

CREATE TABLE special_events (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    day      TEXT NOT NULL DEFAULT '',
    start_at TEXT NOT NULL DEFAULT '',
    end_at   TEXT NOT NULL DEFAULT '',
    name     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE sync_meta (
    key   TEXT PRIMARY KEY,
    value TEXT
);
`
