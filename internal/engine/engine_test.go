package engine

import (
	"path/filepath"
	"testing"

	"github.com/knowledge-engine/ke/internal/active"
	"github.com/knowledge-engine/ke/internal/store"
)

func testEngine(t *testing.T) (*Engine, *store.DB, *active.Context) {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := active.New(filepath.Join(t.TempDir(), "context.json"), 100)
	return New(db, ctx), db, ctx
}

func addTestNode(t *testing.T, db *store.DB, uri string) {
	t.Helper()
	if err := db.UpsertNode(&store.Node{URI: uri, NodeType: store.NodeConcept, Name: uri}); err != nil {
		t.Fatalf("UpsertNode %s: %v", uri, err)
	}
}

func link(t *testing.T, db *store.DB, src, tgt, relType string, weight float64) {
	t.Helper()
	if err := db.AddRelation(&store.Relation{
		SourceURI: src, TargetURI: tgt, RelationType: relType, Weight: weight,
	}); err != nil {
		t.Fatalf("AddRelation %s->%s: %v", src, tgt, err)
	}
}
