package active

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/knowledge-engine/ke/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testCtx(t *testing.T, maxSize int) *Context {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "context.json"), maxSize)
}

func addNode(t *testing.T, db *store.DB, uri string) *store.Node {
	t.Helper()
	node := &store.Node{URI: uri, NodeType: store.NodeConcept, Name: uri}
	if err := db.UpsertNode(node); err != nil {
		t.Fatalf("UpsertNode %s: %v", uri, err)
	}
	return node
}

func TestAddAndLen(t *testing.T) {
	db := testDB(t)
	c := testCtx(t, 10)

	admitted, err := c.Add(addNode(t, db, "concept://a"), false)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !admitted {
		t.Error("expected admission")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestEvictionOldestFirst(t *testing.T) {
	db := testDB(t)
	c := testCtx(t, 3)

	for _, uri := range []string{"concept://a", "concept://b", "concept://c"} {
		if _, err := c.Add(addNode(t, db, uri), false); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	// Touch a so b becomes the oldest.
	if _, err := c.Get("concept://a", db); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if _, err := c.Add(addNode(t, db, "concept://d"), false); err != nil {
		t.Fatalf("Add: %v", err)
	}

	want := []string{"concept://c", "concept://a", "concept://d"}
	if got := c.URIs(); !reflect.DeepEqual(got, want) {
		t.Errorf("URIs = %v, want %v", got, want)
	}
}

func TestProtectedNeverEvicted(t *testing.T) {
	db := testDB(t)
	c := testCtx(t, 2)

	if _, err := c.Add(addNode(t, db, "concept://pinned"), true); err != nil {
		t.Fatalf("Add protected: %v", err)
	}
	for _, uri := range []string{"concept://a", "concept://b", "concept://c"} {
		if _, err := c.Add(addNode(t, db, uri), false); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	uris := c.URIs()
	found := false
	for _, u := range uris {
		if u == "concept://pinned" {
			found = true
		}
	}
	if !found {
		t.Errorf("pinned entry evicted; resident = %v", uris)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestProtectedInsertMayExceedCapacity(t *testing.T) {
	db := testDB(t)
	c := testCtx(t, 2)

	for i, uri := range []string{"concept://a", "concept://b", "concept://c"} {
		admitted, err := c.Add(addNode(t, db, uri), true)
		if err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
		if !admitted {
			t.Errorf("protected insert %d not admitted", i)
		}
	}

	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3 (protected inserts overflow)", c.Len())
	}
}

func TestUnprotectedInsertDroppedWhenFullOfProtected(t *testing.T) {
	db := testDB(t)
	c := testCtx(t, 2)

	c.Add(addNode(t, db, "concept://p1"), true)
	c.Add(addNode(t, db, "concept://p2"), true)

	admitted, err := c.Add(addNode(t, db, "concept://x"), false)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if admitted {
		t.Error("expected silent drop")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestGetFetchesAndPromotes(t *testing.T) {
	db := testDB(t)
	c := testCtx(t, 10)
	addNode(t, db, "concept://a")

	node, err := c.Get("concept://a", db)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if node == nil || node.URI != "concept://a" {
		t.Fatalf("Get returned %+v", node)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1 (Get inserts)", c.Len())
	}

	missing, err := c.Get("concept://nope", db)
	if err != nil {
		t.Fatalf("Get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing node, got %+v", missing)
	}
}

func TestClearKeepsProtected(t *testing.T) {
	db := testDB(t)
	c := testCtx(t, 10)

	c.Add(addNode(t, db, "concept://pinned"), true)
	c.Add(addNode(t, db, "concept://a"), false)
	c.Add(addNode(t, db, "concept://b"), false)

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	want := []string{"concept://pinned"}
	if got := c.URIs(); !reflect.DeepEqual(got, want) {
		t.Errorf("URIs = %v, want %v", got, want)
	}
	if !c.IsProtected("concept://pinned") {
		t.Error("protected set lost on Clear")
	}
}

func TestForceClearDropsEverything(t *testing.T) {
	db := testDB(t)
	c := testCtx(t, 10)

	c.Add(addNode(t, db, "concept://pinned"), true)
	c.Add(addNode(t, db, "concept://a"), false)

	if err := c.ForceClear(); err != nil {
		t.Fatalf("ForceClear: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
	if c.IsProtected("concept://pinned") {
		t.Error("protected set survived ForceClear")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	db := testDB(t)
	path := filepath.Join(t.TempDir(), "context.json")

	c := New(path, 10)
	c.Add(addNode(t, db, "concept://a"), false)
	c.Add(addNode(t, db, "concept://pinned"), true)

	// Fresh instance from the same file: URIs restore as placeholders.
	c2 := New(path, 10)
	want := []string{"concept://a", "concept://pinned"}
	if got := c2.URIs(); !reflect.DeepEqual(got, want) {
		t.Errorf("restored URIs = %v, want %v", got, want)
	}
	if !c2.IsProtected("concept://pinned") {
		t.Error("protected set not restored")
	}

	// Placeholders resolve through the store on demand.
	node, err := c2.Get("concept://a", db)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if node == nil || node.Name != "concept://a" {
		t.Errorf("resolved node = %+v", node)
	}
}

func TestLoadLegacyArrayFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context.json")
	if err := os.WriteFile(path, []byte(`["concept://a","concept://b"]`), 0644); err != nil {
		t.Fatal(err)
	}

	c := New(path, 10)
	want := []string{"concept://a", "concept://b"}
	if got := c.URIs(); !reflect.DeepEqual(got, want) {
		t.Errorf("URIs = %v, want %v", got, want)
	}
	if c.IsProtected("concept://a") {
		t.Error("legacy format has no protected set")
	}
}

func TestLoadCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	c := New(path, 10)
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0 for corrupt state", c.Len())
	}
}

func TestListNodesResolvesPlaceholders(t *testing.T) {
	db := testDB(t)
	path := filepath.Join(t.TempDir(), "context.json")

	c := New(path, 10)
	c.Add(addNode(t, db, "concept://a"), false)
	c.Add(addNode(t, db, "concept://b"), false)

	c2 := New(path, 10)
	// Drop b from the store: its placeholder cannot resolve.
	if err := db.DeleteNode("concept://b"); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}

	nodes, err := c2.ListNodes(db)
	if err != nil {
		t.Fatalf("ListNodes: %v", err)
	}
	if len(nodes) != 1 || nodes[0].URI != "concept://a" {
		t.Errorf("ListNodes = %+v, want just concept://a", nodes)
	}
}

func TestRemoveProtectedURIMakesEvictable(t *testing.T) {
	db := testDB(t)
	c := testCtx(t, 1)

	c.Add(addNode(t, db, "concept://pinned"), true)
	if err := c.RemoveProtectedURI("concept://pinned"); err != nil {
		t.Fatalf("RemoveProtectedURI: %v", err)
	}

	admitted, err := c.Add(addNode(t, db, "concept://a"), false)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !admitted {
		t.Error("expected admission after unprotecting the only entry")
	}
	want := []string{"concept://a"}
	if got := c.URIs(); !reflect.DeepEqual(got, want) {
		t.Errorf("URIs = %v, want %v", got, want)
	}
}
