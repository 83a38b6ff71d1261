// ABOUTME: SQLite schema for the local vector store
// ABOUTME: One row per collection and one row per point, vectors stored as BLOBs
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- Collections (dimension fixed at creation)
CREATE TABLE IF NOT EXISTS collections (
    name TEXT PRIMARY KEY,
    dimension INTEGER NOT NULL CHECK (dimension > 0),
    distance TEXT NOT NULL DEFAULT 'Cosine',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Points (chunk embeddings plus payload)
CREATE TABLE IF NOT EXISTS points (
    collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
    id TEXT NOT NULL,
    vector BLOB NOT NULL,
    path TEXT NOT NULL,
    start_line INTEGER NOT NULL,
    end_line INTEGER NOT NULL,
    preview TEXT,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_points_path ON points(collection, path);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 1
