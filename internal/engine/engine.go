// Package engine ties the graph store and the active context together: it
// hosts the weighted traversal, the concept-level operations, the markdown
// link deriver, and the workspace bootstrap scanner.
package engine

import (
	"github.com/knowledge-engine/ke/internal/active"
	"github.com/knowledge-engine/ke/internal/store"
)

// Engine exposes the knowledge engine operations over a store and an active
// context. Both are injected; the engine owns neither.
type Engine struct {
	db  *store.DB
	ctx *active.Context
}

// New creates an Engine over the given store and active context.
func New(db *store.DB, ctx *active.Context) *Engine {
	return &Engine{db: db, ctx: ctx}
}

// Store returns the underlying graph store.
func (e *Engine) Store() *store.DB { return e.db }

// Context returns the active context.
func (e *Engine) Context() *active.Context { return e.ctx }
