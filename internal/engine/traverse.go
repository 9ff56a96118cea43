package engine

import (
	"github.com/knowledge-engine/ke/internal/store"
)

// maxTraversalSteps bounds the total number of queue pops per traversal.
// Cost-improvement-gated re-enqueue guarantees termination on its own, but a
// graph dense with near-zero-weight edges can relax the same nodes many
// times before converging; the step bound caps that.
const maxTraversalSteps = 10000

type queueItem struct {
	uri  string
	cost float64
}

// Traverse explores the graph outward from startURI, following relations in
// either direction and accumulating edge weight as cost, up to maxCost.
// Every visited node is resolved through the active context, so traversal
// populates the cache as a side effect (and may evict unrelated entries).
//
// The returned order is visitation order from a FIFO work queue, not
// ascending-cost order: this is a cost-bounded reachability search, not a
// shortest-path search. A node found later via a cheaper path is re-relaxed
// but keeps its first-visit position in the output.
func (e *Engine) Traverse(startURI string, maxCost float64) ([]*store.Node, error) {
	start, err := e.db.GetNode(startURI)
	if err != nil {
		return nil, err
	}
	if start == nil {
		return nil, nil
	}

	queue := []queueItem{{uri: startURI, cost: 0}}
	bestCost := map[string]float64{startURI: 0}
	emitted := make(map[string]bool)

	var visited []*store.Node
	steps := 0

	for len(queue) > 0 {
		steps++
		if steps > maxTraversalSteps {
			break
		}

		item := queue[0]
		queue = queue[1:]

		node, err := e.ctx.Get(item.uri, e.db)
		if err != nil {
			return nil, err
		}
		if node != nil && !emitted[node.URI] {
			emitted[node.URI] = true
			visited = append(visited, node)
		}

		rels, err := e.db.GetRelationsForNode(item.uri)
		if err != nil {
			return nil, err
		}

		for _, rel := range rels {
			neighbor := rel.TargetURI
			if rel.SourceURI != item.uri {
				neighbor = rel.SourceURI
			}

			newCost := item.cost + rel.Weight
			if newCost > maxCost {
				continue
			}
			if prev, seen := bestCost[neighbor]; !seen || newCost < prev {
				bestCost[neighbor] = newCost
				queue = append(queue, queueItem{uri: neighbor, cost: newCost})
			}
		}
	}

	return visited, nil
}
