package active

import (
	"fmt"

	"github.com/knowledge-engine/ke/internal/store"
)

// RootDirURI is the workspace root directory node created by the bootstrap
// scanner and referenced by the canonical project concepts.
const RootDirURI = "dir://."

// rootConcept describes one canonical workspace concept seeded by
// InitializeWithRootNodes.
type rootConcept struct {
	suffix  string
	name    string
	content string
}

var rootConcepts = []rootConcept{
	{"architecture", "Architecture", "How the project is structured and why."},
	{"conventions", "Conventions", "Coding and naming conventions used across the project."},
	{"goals", "Goals", "What the project is trying to achieve."},
}

func seedMeta() map[string]any {
	return map[string]any{"auto_generated": true, "source": "root_init"}
}

// ensureNode creates the node if it does not exist yet. Existing nodes are
// left untouched so repeated initialization does not clobber user edits.
func ensureNode(db *store.DB, node *store.Node) error {
	existing, err := db.GetNode(node.URI)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return db.UpsertNode(node)
}

// InitializeWithRootNodes wipes the active context and rebuilds the canonical
// initial working set for a workspace: a project root concept, its
// sub-concepts, and the workspace root directory, all cached as protected
// entries. Store-side, missing canonical nodes are created idempotently along
// with the bidirectional relations linking them. This is the bootstrap entry
// point used once per workspace activation.
func (c *Context) InitializeWithRootNodes(db *store.DB, workspaceID string) error {
	if err := c.ForceClear(); err != nil {
		return err
	}

	projectURI := fmt.Sprintf("concept://%s/project", workspaceID)

	if err := ensureNode(db, &store.Node{
		URI:      RootDirURI,
		NodeType: store.NodeDirectory,
		Name:     ".",
		Metadata: seedMeta(),
	}); err != nil {
		return fmt.Errorf("seed root dir: %w", err)
	}

	if err := ensureNode(db, &store.Node{
		URI:      projectURI,
		NodeType: store.NodeConcept,
		Name:     "Project Root",
		Content:  fmt.Sprintf("Root concept for the %s project.", workspaceID),
		Metadata: seedMeta(),
	}); err != nil {
		return fmt.Errorf("seed project concept: %w", err)
	}

	// Project <-> root directory.
	for _, rel := range []store.Relation{
		{SourceURI: projectURI, TargetURI: RootDirURI, RelationType: "describes", Weight: 0.2, Metadata: seedMeta()},
		{SourceURI: RootDirURI, TargetURI: projectURI, RelationType: "described_by", Weight: 0.2, Metadata: seedMeta()},
	} {
		if err := db.AddRelation(&rel); err != nil {
			return err
		}
	}

	protectedURIs := []string{RootDirURI, projectURI}

	for _, rc := range rootConcepts {
		uri := fmt.Sprintf("%s/%s", projectURI, rc.suffix)
		if err := ensureNode(db, &store.Node{
			URI:      uri,
			NodeType: store.NodeConcept,
			Name:     rc.name,
			Content:  rc.content,
			Metadata: seedMeta(),
		}); err != nil {
			return fmt.Errorf("seed concept %s: %w", uri, err)
		}

		for _, rel := range []store.Relation{
			{SourceURI: projectURI, TargetURI: uri, RelationType: "contains", Weight: 0.1, Metadata: seedMeta()},
			{SourceURI: uri, TargetURI: projectURI, RelationType: "part_of", Weight: 0.1, Metadata: seedMeta()},
		} {
			if err := db.AddRelation(&rel); err != nil {
				return err
			}
		}
		protectedURIs = append(protectedURIs, uri)
	}

	for _, uri := range protectedURIs {
		node, err := db.GetNode(uri)
		if err != nil {
			return err
		}
		if node == nil {
			continue
		}
		if _, err := c.Add(node, true); err != nil {
			return err
		}
	}
	return nil
}
