package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/knowledge-engine/ke/internal/store"
)

// graphPayload is the bounded subgraph the frontend renders: the active
// context nodes plus only the relations among them.
func (s *Server) graphPayload() (map[string]any, error) {
	nodes, err := s.ctx.ListNodes(s.db)
	if err != nil {
		return nil, err
	}

	uris := make([]string, len(nodes))
	for i, n := range nodes {
		uris[i] = n.URI
	}
	relations, err := s.db.GetRelationsAmong(uris)
	if err != nil {
		return nil, err
	}

	totalNodes, err := s.db.CountNodes()
	if err != nil {
		return nil, err
	}
	totalRelations, err := s.db.CountRelations()
	if err != nil {
		return nil, err
	}

	if nodes == nil {
		nodes = []*store.Node{}
	}
	if relations == nil {
		relations = []store.Relation{}
	}

	return map[string]any{
		"nodes":     nodes,
		"relations": relations,
		"stats": map[string]any{
			"total_nodes":      totalNodes,
			"total_relations":  totalRelations,
			"active_nodes":     len(nodes),
			"active_relations": len(relations),
		},
	}, nil
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	payload, err := s.graphPayload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URI     string   `json:"uri"`
		MaxCost *float64 `json:"max_cost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.URI == "" {
		writeError(w, http.StatusBadRequest, "uri required")
		return
	}
	maxCost := 1.0
	if req.MaxCost != nil {
		maxCost = *req.MaxCost
	}

	before := s.ctx.Len()
	nodes, err := s.engine.Traverse(req.URI, maxCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(nodes) == 0 {
		writeError(w, http.StatusNotFound, "start node not found for traversal")
		return
	}
	added := s.ctx.Len() - before

	// Push the refreshed subgraph to every visualization client.
	if payload, err := s.graphPayload(); err == nil {
		s.hub.broadcast(wsMessage{Type: "graph_update", Data: payload})
	}
	s.hub.broadcast(wsMessage{Type: "navigation_complete", Data: map[string]any{
		"uri":         req.URI,
		"nodes_added": added,
	}})

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     fmt.Sprintf("traversal from %q complete, %d new nodes in context", req.URI, added),
		"nodes_added": added,
	})
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	uri := chi.URLParam(r, "*")

	node, err := s.db.GetNode(uri)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if node == nil {
		writeError(w, http.StatusNotFound, "node not found: "+uri)
		return
	}

	relations, err := s.db.GetRelationsForNode(uri)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if relations == nil {
		relations = []store.Relation{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"node":           node,
		"relations":      relations,
		"relation_count": len(relations),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	totalNodes, err := s.db.CountNodes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	totalRelations, err := s.db.CountRelations()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	nodes, err := s.ctx.ListNodes(s.db)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	uris := make([]string, len(nodes))
	for i, n := range nodes {
		uris[i] = n.URI
	}
	activeRelations, err := s.db.GetRelationsAmong(uris)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_nodes":      totalNodes,
		"total_relations":  totalRelations,
		"active_nodes":     len(nodes),
		"active_relations": len(activeRelations),
		"workspace_id":     s.workspaceID,
	})
}
