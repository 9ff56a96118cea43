package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "nodes: URI-addressed knowledge nodes",
		SQL: `
CREATE TABLE nodes (
    uri        TEXT PRIMARY KEY,
    node_type  TEXT NOT NULL CHECK (node_type IN ('concept', 'resource', 'directory')),
    name       TEXT,
    content    TEXT,
    metadata   TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX idx_nodes_type ON nodes(node_type);
`,
	},
	{
		Version:     2,
		Description: "relations: typed weighted edges between nodes",
		SQL: `
CREATE TABLE relations (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    source_uri    TEXT NOT NULL,
    target_uri    TEXT NOT NULL,
    relation_type TEXT NOT NULL,
    weight        REAL NOT NULL DEFAULT 1.0 CHECK (weight >= 0),
    metadata      TEXT,
    created_at    INTEGER NOT NULL,

    FOREIGN KEY (source_uri) REFERENCES nodes(uri) ON DELETE CASCADE,
    FOREIGN KEY (target_uri) REFERENCES nodes(uri) ON DELETE CASCADE,
    UNIQUE(source_uri, target_uri, relation_type)
);

CREATE INDEX idx_relations_source ON relations(source_uri);
CREATE INDEX idx_relations_target ON relations(target_uri);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
