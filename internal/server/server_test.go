package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/knowledge-engine/ke/internal/active"
	"github.com/knowledge-engine/ke/internal/engine"
	"github.com/knowledge-engine/ke/internal/store"
)

func testServer(t *testing.T) (*Server, *store.DB, *active.Context) {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := active.New(filepath.Join(t.TempDir(), "context.json"), 100)
	eng := engine.New(db, ctx)
	return New(db, ctx, eng, "testws", "test"), db, ctx
}

func seedGraph(t *testing.T, db *store.DB, ctx *active.Context) {
	t.Helper()
	for _, uri := range []string{"concept://a", "concept://b"} {
		node := &store.Node{URI: uri, NodeType: store.NodeConcept, Name: uri}
		if err := db.UpsertNode(node); err != nil {
			t.Fatalf("UpsertNode: %v", err)
		}
		if _, err := ctx.Add(node, false); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := db.AddRelation(&store.Relation{
		SourceURI: "concept://a", TargetURI: "concept://b", RelationType: "references", Weight: 0.4,
	}); err != nil {
		t.Fatalf("AddRelation: %v", err)
	}
}

func getJSON(t *testing.T, srv *Server, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s response: %v", path, err)
	}
	return w.Code, body
}

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t)

	code, body := getJSON(t, srv, "/api/health")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["workspace_id"] != "testws" {
		t.Errorf("workspace_id = %v", body["workspace_id"])
	}
	if body["db"] != true {
		t.Errorf("db = %v", body["db"])
	}
}

func TestGraph(t *testing.T) {
	srv, db, ctx := testServer(t)
	seedGraph(t, db, ctx)

	code, body := getJSON(t, srv, "/api/graph")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}

	nodes := body["nodes"].([]any)
	if len(nodes) != 2 {
		t.Errorf("nodes = %d, want 2", len(nodes))
	}
	relations := body["relations"].([]any)
	if len(relations) != 1 {
		t.Errorf("relations = %d, want 1", len(relations))
	}
	stats := body["stats"].(map[string]any)
	if stats["total_nodes"].(float64) != 2 {
		t.Errorf("total_nodes = %v", stats["total_nodes"])
	}
}

func TestGraphEmpty(t *testing.T) {
	srv, _, _ := testServer(t)

	code, body := getJSON(t, srv, "/api/graph")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if nodes, ok := body["nodes"].([]any); !ok || len(nodes) != 0 {
		t.Errorf("nodes = %v, want empty array (not null)", body["nodes"])
	}
	if rels, ok := body["relations"].([]any); !ok || len(rels) != 0 {
		t.Errorf("relations = %v, want empty array (not null)", body["relations"])
	}
}

func TestNavigate(t *testing.T) {
	srv, db, ctx := testServer(t)
	seedGraph(t, db, ctx)

	req := httptest.NewRequest("POST", "/api/navigate",
		strings.NewReader(`{"uri":"concept://a","max_cost":1.0}`))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
}

func TestNavigateMissingStart(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest("POST", "/api/navigate",
		strings.NewReader(`{"uri":"concept://nope"}`))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestNavigateBadRequest(t *testing.T) {
	srv, _, _ := testServer(t)

	for _, payload := range []string{"{not json", `{"max_cost":1.0}`} {
		req := httptest.NewRequest("POST", "/api/navigate", strings.NewReader(payload))
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("payload %q: status = %d, want 400", payload, w.Code)
		}
	}
}

func TestNode(t *testing.T) {
	srv, db, ctx := testServer(t)
	seedGraph(t, db, ctx)

	code, body := getJSON(t, srv, "/api/node/concept://a")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	node := body["node"].(map[string]any)
	if node["uri"] != "concept://a" {
		t.Errorf("uri = %v", node["uri"])
	}
	if body["relation_count"].(float64) != 1 {
		t.Errorf("relation_count = %v", body["relation_count"])
	}
}

func TestNodeMissing(t *testing.T) {
	srv, _, _ := testServer(t)

	code, _ := getJSON(t, srv, "/api/node/concept://nope")
	if code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
}

func TestStats(t *testing.T) {
	srv, db, ctx := testServer(t)
	seedGraph(t, db, ctx)

	code, body := getJSON(t, srv, "/api/stats")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["total_nodes"].(float64) != 2 {
		t.Errorf("total_nodes = %v", body["total_nodes"])
	}
	if body["active_nodes"].(float64) != 2 {
		t.Errorf("active_nodes = %v", body["active_nodes"])
	}
	if body["workspace_id"] != "testws" {
		t.Errorf("workspace_id = %v", body["workspace_id"])
	}
}
