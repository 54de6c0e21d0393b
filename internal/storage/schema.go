package storage

const schema = `
PRAGMA foreign_keys = ON;

-- The 'people' table stores each learner and their language pair.
CREATE TABLE IF NOT EXISTS people (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    speak TEXT NOT NULL,
    learn TEXT NOT NULL
);

-- The 'sources' table tracks where a person's cards come from, either a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    person_id INTEGER NOT NULL,
    path TEXT NOT NULL,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned DATETIME,

    UNIQUE(person_id, path),
    FOREIGN KEY(person_id) REFERENCES people(id) ON DELETE CASCADE
);

-- The 'cards' table stores every card with its leveling state.
CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    person_id INTEGER NOT NULL,
    hash TEXT NOT NULL,
    input_word TEXT NOT NULL,
    translation TEXT NOT NULL,
    level INTEGER NOT NULL DEFAULT 0,
    repetition_count INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    source_id INTEGER,

    UNIQUE(person_id, hash),
    FOREIGN KEY(person_id) REFERENCES people(id) ON DELETE CASCADE,
    FOREIGN KEY(source_id) REFERENCES sources(id) ON DELETE SET NULL
);

-- The 'reviews' table is an append-only log of review outcomes.
CREATE TABLE IF NOT EXISTS reviews (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id INTEGER NOT NULL,
    outcome TEXT NOT NULL,
    level INTEGER NOT NULL,
    reviewed_at DATETIME NOT NULL,

    FOREIGN KEY(card_id) REFERENCES cards(id) ON DELETE CASCADE
);
`
