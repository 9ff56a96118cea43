package engine

import (
	"regexp"

	"github.com/knowledge-engine/ke/internal/store"
)

// conceptLinkPattern matches markdown-style concept references of the form
// [label](concept://uri).
var conceptLinkPattern = regexp.MustCompile(`\[[^\]]*\]\((concept://[^)\s]+)\)`)

// referenceWeight is the fixed traversal cost of an auto-derived reference.
const referenceWeight = 0.3

func referenceMeta() map[string]any {
	return map[string]any{"auto_generated": true, "source": "markdown_link"}
}

// isAutoReference reports whether a relation was created by the link deriver,
// as opposed to a "references" edge the user created by hand.
func isAutoReference(rel store.Relation) bool {
	if rel.RelationType != "references" {
		return false
	}
	auto, _ := rel.Metadata["auto_generated"].(bool)
	source, _ := rel.Metadata["source"].(string)
	return auto && source == "markdown_link"
}

// RefreshConceptLinks synchronizes the auto-derived "references" relations of
// a concept with the concept:// links embedded in its content. Existing
// auto-derived relations sourced at the URI are deleted, then every link
// whose target exists as a node is recreated — an idempotent full refresh,
// not an incremental diff. Links to nonexistent targets are skipped; there is
// no forward declaration. Returns the number of relations created.
func (e *Engine) RefreshConceptLinks(uri, content string) (int, error) {
	existing, err := e.db.GetRelations(uri, "")
	if err != nil {
		return 0, err
	}
	for _, rel := range existing {
		if isAutoReference(rel) {
			if err := e.db.DeleteRelation(rel.ID); err != nil {
				return 0, err
			}
		}
	}

	created := 0
	for _, match := range conceptLinkPattern.FindAllStringSubmatch(content, -1) {
		target := match[1]

		node, err := e.db.GetNode(target)
		if err != nil {
			return created, err
		}
		if node == nil {
			continue
		}

		rel := store.Relation{
			SourceURI:    uri,
			TargetURI:    target,
			RelationType: "references",
			Weight:       referenceWeight,
			Metadata:     referenceMeta(),
		}
		if err := e.db.AddRelation(&rel); err != nil {
			return created, err
		}
		if rel.ID != 0 {
			created++
		}
	}
	return created, nil
}
