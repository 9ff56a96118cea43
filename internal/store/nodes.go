package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// NodeType classifies a node. Concepts carry free-text content; resources and
// directories are references into the workspace file tree.
type NodeType string

const (
	NodeConcept   NodeType = "concept"
	NodeResource  NodeType = "resource"
	NodeDirectory NodeType = "directory"
)

// Node is a URI-addressed vertex in the knowledge graph. The URI is the
// primary key; its scheme indicates the kind (concept://, file://, dir://).
type Node struct {
	URI       string         `json:"uri"`
	NodeType  NodeType       `json:"node_type"`
	Name      string         `json:"name,omitempty"`
	Content   string         `json:"content,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt int64          `json:"created_at"`
	UpdatedAt int64          `json:"updated_at"`
}

func marshalMeta(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return string(b), nil
}

func unmarshalMeta(s sql.NullString) map[string]any {
	if !s.Valid || s.String == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil
	}
	return m
}

// UpsertNode inserts a node, or fully replaces the mutable fields of an
// existing node with the same URI. created_at is preserved on replace;
// updated_at is always bumped.
func (db *DB) UpsertNode(node *Node) error {
	now := time.Now().UnixMilli()
	meta, err := marshalMeta(node.Metadata)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO nodes (uri, node_type, name, content, metadata, created_at, updated_at)
		VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?)
		ON CONFLICT(uri) DO UPDATE SET
			node_type  = excluded.node_type,
			name       = excluded.name,
			content    = excluded.content,
			metadata   = excluded.metadata,
			updated_at = excluded.updated_at
	`, node.URI, string(node.NodeType), node.Name, node.Content, meta, now, now)
	if err != nil {
		return fmt.Errorf("upsert node %s: %w", node.URI, err)
	}

	node.UpdatedAt = now
	if node.CreatedAt == 0 {
		node.CreatedAt = now
	}
	return nil
}

// GetNode returns the node with the given URI, or nil if not found.
func (db *DB) GetNode(uri string) (*Node, error) {
	var n Node
	var nodeType string
	var name, content, meta sql.NullString
	err := db.QueryRow(`
		SELECT uri, node_type, name, content, metadata, created_at, updated_at
		FROM nodes WHERE uri = ?
	`, uri).Scan(&n.URI, &nodeType, &name, &content, &meta, &n.CreatedAt, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get node %s: %w", uri, err)
	}
	n.NodeType = NodeType(nodeType)
	n.Name = name.String
	n.Content = content.String
	n.Metadata = unmarshalMeta(meta)
	return &n, nil
}

// UpdateNode replaces the mutable fields of an existing node. If no node with
// the URI exists this is a no-op; callers that need create-or-update semantics
// use UpsertNode instead.
func (db *DB) UpdateNode(node *Node) error {
	now := time.Now().UnixMilli()
	meta, err := marshalMeta(node.Metadata)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		UPDATE nodes
		SET node_type = ?, name = NULLIF(?, ''), content = NULLIF(?, ''), metadata = ?, updated_at = ?
		WHERE uri = ?
	`, string(node.NodeType), node.Name, node.Content, meta, now, node.URI)
	if err != nil {
		return fmt.Errorf("update node %s: %w", node.URI, err)
	}
	node.UpdatedAt = now
	return nil
}

// DeleteNode removes a node and, via the cascade constraint, every relation
// that references it as source or target. Deleting a missing URI is a no-op.
func (db *DB) DeleteNode(uri string) error {
	_, err := db.Exec("DELETE FROM nodes WHERE uri = ?", uri)
	if err != nil {
		return fmt.Errorf("delete node %s: %w", uri, err)
	}
	return nil
}

// RenameNode atomically rewrites a node's URI and every relation endpoint
// that referenced the old URI. Fails with ErrDuplicateURI if the target URI
// is already taken. Foreign key checks are deferred to commit so the node and
// its relations can be rewritten in either order within the transaction.
func (db *DB) RenameNode(oldURI, newURI string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin rename: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("PRAGMA defer_foreign_keys = ON"); err != nil {
		return fmt.Errorf("defer foreign keys: %w", err)
	}

	var exists int
	if err := tx.QueryRow("SELECT COUNT(*) FROM nodes WHERE uri = ?", newURI).Scan(&exists); err != nil {
		return fmt.Errorf("check rename target: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("rename %s to %s: %w", oldURI, newURI, ErrDuplicateURI)
	}

	if _, err := tx.Exec("UPDATE nodes SET uri = ? WHERE uri = ?", newURI, oldURI); err != nil {
		return fmt.Errorf("rename node: %w", err)
	}
	if _, err := tx.Exec("UPDATE relations SET source_uri = ? WHERE source_uri = ?", newURI, oldURI); err != nil {
		return fmt.Errorf("rename relation sources: %w", err)
	}
	if _, err := tx.Exec("UPDATE relations SET target_uri = ? WHERE target_uri = ?", newURI, oldURI); err != nil {
		return fmt.Errorf("rename relation targets: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rename: %w", err)
	}
	return nil
}

// CountNodes returns the total number of nodes in the graph.
func (db *DB) CountNodes() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM nodes").Scan(&count)
	return count, err
}

// Clear transactionally deletes all relations and all nodes.
func (db *DB) Clear() error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM relations"); err != nil {
		return fmt.Errorf("clear relations: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM nodes"); err != nil {
		return fmt.Errorf("clear nodes: %w", err)
	}
	return tx.Commit()
}

// AllNodes returns every node in the graph, ordered by URI. Intended for
// small graphs (CLI display, visualization) — large graphs should use
// filtered queries.
func (db *DB) AllNodes() ([]Node, error) {
	rows, err := db.Query(`
		SELECT uri, node_type, name, content, metadata, created_at, updated_at
		FROM nodes ORDER BY uri
	`)
	if err != nil {
		return nil, fmt.Errorf("all nodes: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

func scanNodes(rows *sql.Rows) ([]Node, error) {
	var nodes []Node
	for rows.Next() {
		var n Node
		var nodeType string
		var name, content, meta sql.NullString
		if err := rows.Scan(&n.URI, &nodeType, &name, &content, &meta, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.NodeType = NodeType(nodeType)
		n.Name = name.String
		n.Content = content.String
		n.Metadata = unmarshalMeta(meta)
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}
