package storage

const schema = `
-- Named collections of question/answer pairs.
CREATE TABLE IF NOT EXISTS qa_sets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

-- The pairs of a set, kept in insertion order by position.
CREATE TABLE IF NOT EXISTS qa_pairs (
    id TEXT PRIMARY KEY,
    set_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    question TEXT NOT NULL,
    answer TEXT NOT NULL DEFAULT '',
    difficulty TEXT NOT NULL DEFAULT '',
    search_query TEXT NOT NULL DEFAULT '',

    FOREIGN KEY(set_id) REFERENCES qa_sets(id)
);

CREATE INDEX IF NOT EXISTS qa_pairs_set_position ON qa_pairs(set_id, position);

-- Generated answers keyed by the hash of the normalized question.
CREATE TABLE IF NOT EXISTS answers (
    hash TEXT PRIMARY KEY,
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    search_query TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL
);

-- Exam paper sources, either a local directory or a git repository, and the set they feed.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL,
    set_name TEXT NOT NULL,
    last_scanned DATETIME
);
`
