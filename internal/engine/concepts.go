package engine

import (
	"github.com/knowledge-engine/ke/internal/store"
)

// AddConcept creates (or replaces) a concept node and derives its reference
// relations from markdown links in the content.
func (e *Engine) AddConcept(uri, name, content string) (*store.Node, error) {
	node := &store.Node{
		URI:      uri,
		NodeType: store.NodeConcept,
		Name:     name,
		Content:  content,
	}
	if err := e.db.UpsertNode(node); err != nil {
		return nil, err
	}
	if _, err := e.RefreshConceptLinks(uri, content); err != nil {
		return nil, err
	}
	return node, nil
}

// GetConcept returns the node at uri, or nil if absent.
func (e *Engine) GetConcept(uri string) (*store.Node, error) {
	return e.db.GetNode(uri)
}

// UpdateConcept replaces the name and content of an existing concept and
// re-derives its reference relations. Returns nil if the URI does not exist.
func (e *Engine) UpdateConcept(uri, name, content string) (*store.Node, error) {
	node, err := e.db.GetNode(uri)
	if err != nil || node == nil {
		return nil, err
	}
	node.Name = name
	node.Content = content
	if err := e.db.UpdateNode(node); err != nil {
		return nil, err
	}
	if _, err := e.RefreshConceptLinks(uri, content); err != nil {
		return nil, err
	}
	return node, nil
}

// DeleteConcept removes a concept node and all relations touching it.
// Returns false if the URI is absent or is not a concept.
func (e *Engine) DeleteConcept(uri string) (bool, error) {
	node, err := e.db.GetNode(uri)
	if err != nil {
		return false, err
	}
	if node == nil || node.NodeType != store.NodeConcept {
		return false, nil
	}
	if err := e.db.DeleteNode(uri); err != nil {
		return false, err
	}
	return true, nil
}

// MoveConcept renames a concept, rewriting every relation endpoint. Returns
// false without error if the source is absent or not a concept; a taken
// target URI surfaces store.ErrDuplicateURI.
func (e *Engine) MoveConcept(oldURI, newURI string) (bool, error) {
	node, err := e.db.GetNode(oldURI)
	if err != nil {
		return false, err
	}
	if node == nil || node.NodeType != store.NodeConcept {
		return false, nil
	}
	if err := e.db.RenameNode(oldURI, newURI); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteResource removes a resource or directory node. Returns false if the
// URI is absent or is a concept.
func (e *Engine) DeleteResource(uri string) (bool, error) {
	node, err := e.db.GetNode(uri)
	if err != nil {
		return false, err
	}
	if node == nil || node.NodeType == store.NodeConcept {
		return false, nil
	}
	if err := e.db.DeleteNode(uri); err != nil {
		return false, err
	}
	return true, nil
}

// LinkNodes creates a relation between two nodes. A duplicate
// (source, target, type) triple is a silent no-op; the returned relation has
// ID zero in that case.
func (e *Engine) LinkNodes(sourceURI, targetURI, relationType string, weight float64) (*store.Relation, error) {
	rel := &store.Relation{
		SourceURI:    sourceURI,
		TargetURI:    targetURI,
		RelationType: relationType,
		Weight:       weight,
	}
	if err := e.db.AddRelation(rel); err != nil {
		return nil, err
	}
	return rel, nil
}

// UnlinkNodes removes the relation matching the (source, target, type)
// triple. No-op if absent.
func (e *Engine) UnlinkNodes(sourceURI, targetURI, relationType string) error {
	return e.db.DeleteRelationByKey(sourceURI, targetURI, relationType)
}

// RelationsForNode returns all incoming and outgoing relations for a node.
func (e *Engine) RelationsForNode(uri string) ([]store.Relation, error) {
	return e.db.GetRelationsForNode(uri)
}
