package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Relation is a directed, typed, weighted edge between two node URIs. The
// (source, target, type) triple is unique; the weight is the traversal cost
// contributed by the edge.
type Relation struct {
	ID           int64          `json:"id"`
	SourceURI    string         `json:"source_uri"`
	TargetURI    string         `json:"target_uri"`
	RelationType string         `json:"relation_type"`
	Weight       float64        `json:"weight"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    int64          `json:"created_at"`
}

// AddRelation inserts a relation. A second insert of the same
// (source, target, type) triple is a silent no-op: the first weight and
// metadata written win, even if the new call supplies different values.
func (db *DB) AddRelation(rel *Relation) error {
	now := time.Now().UnixMilli()
	meta, err := marshalMeta(rel.Metadata)
	if err != nil {
		return err
	}

	result, err := db.Exec(`
		INSERT INTO relations (source_uri, target_uri, relation_type, weight, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_uri, target_uri, relation_type) DO NOTHING
	`, rel.SourceURI, rel.TargetURI, rel.RelationType, rel.Weight, meta, now)
	if err != nil {
		return fmt.Errorf("add relation %s -[%s]-> %s: %w", rel.SourceURI, rel.RelationType, rel.TargetURI, err)
	}

	if n, _ := result.RowsAffected(); n > 0 {
		id, _ := result.LastInsertId()
		rel.ID = id
		rel.CreatedAt = now
	}
	return nil
}

// DeleteRelation removes a relation by its identity. No-op if absent.
func (db *DB) DeleteRelation(id int64) error {
	_, err := db.Exec("DELETE FROM relations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete relation %d: %w", id, err)
	}
	return nil
}

// DeleteRelationByKey removes the relation matching the unique
// (source, target, type) triple. No-op if absent.
func (db *DB) DeleteRelationByKey(sourceURI, targetURI, relationType string) error {
	_, err := db.Exec(`
		DELETE FROM relations
		WHERE source_uri = ? AND target_uri = ? AND relation_type = ?
	`, sourceURI, targetURI, relationType)
	if err != nil {
		return fmt.Errorf("delete relation %s -[%s]-> %s: %w", sourceURI, relationType, targetURI, err)
	}
	return nil
}

// GetRelations returns relations filtered by source and/or target URI. An
// empty string leaves that filter off; both empty returns every relation,
// which callers should avoid on large graphs.
func (db *DB) GetRelations(sourceURI, targetURI string) ([]Relation, error) {
	query := `
		SELECT id, source_uri, target_uri, relation_type, weight, metadata, created_at
		FROM relations`
	var conditions []string
	var args []any

	if sourceURI != "" {
		conditions = append(conditions, "source_uri = ?")
		args = append(args, sourceURI)
	}
	if targetURI != "" {
		conditions = append(conditions, "target_uri = ?")
		args = append(args, targetURI)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("get relations: %w", err)
	}
	defer rows.Close()
	return scanRelations(rows)
}

// GetRelationsForNode returns all relations where the URI is either endpoint.
func (db *DB) GetRelationsForNode(uri string) ([]Relation, error) {
	rows, err := db.Query(`
		SELECT id, source_uri, target_uri, relation_type, weight, metadata, created_at
		FROM relations
		WHERE source_uri = ? OR target_uri = ?
		ORDER BY id
	`, uri, uri)
	if err != nil {
		return nil, fmt.Errorf("get relations for %s: %w", uri, err)
	}
	defer rows.Close()
	return scanRelations(rows)
}

// GetRelationsAmong returns only relations whose both endpoints are in the
// given URI set. Used to render a bounded subgraph without a full scan.
func (db *DB) GetRelationsAmong(uris []string) ([]Relation, error) {
	if len(uris) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(uris)), ",")
	args := make([]any, 0, len(uris)*2)
	for _, u := range uris {
		args = append(args, u)
	}
	for _, u := range uris {
		args = append(args, u)
	}

	rows, err := db.Query(fmt.Sprintf(`
		SELECT id, source_uri, target_uri, relation_type, weight, metadata, created_at
		FROM relations
		WHERE source_uri IN (%s) AND target_uri IN (%s)
		ORDER BY id
	`, placeholders, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("get relations among: %w", err)
	}
	defer rows.Close()
	return scanRelations(rows)
}

// CountRelations returns the total number of relations in the graph.
func (db *DB) CountRelations() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM relations").Scan(&count)
	return count, err
}

// AllRelations returns every relation, ordered by identity. Same caveat as
// AllNodes.
func (db *DB) AllRelations() ([]Relation, error) {
	rows, err := db.Query(`
		SELECT id, source_uri, target_uri, relation_type, weight, metadata, created_at
		FROM relations ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("all relations: %w", err)
	}
	defer rows.Close()
	return scanRelations(rows)
}

func scanRelations(rows *sql.Rows) ([]Relation, error) {
	var rels []Relation
	for rows.Next() {
		var r Relation
		var meta sql.NullString
		if err := rows.Scan(&r.ID, &r.SourceURI, &r.TargetURI, &r.RelationType, &r.Weight, &meta, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		r.Metadata = unmarshalMeta(meta)
		rels = append(rels, r)
	}
	return rels, rows.Err()
}
