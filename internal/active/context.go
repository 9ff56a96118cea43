// Package active implements the active context: a bounded, recency-ordered
// working set of knowledge nodes layered over the graph store. Entries may be
// unresolved placeholders (URI known, node not yet loaded) so the cache can
// be rehydrated lazily from its persisted state file after a restart.
package active

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/knowledge-engine/ke/internal/store"
)

// DefaultMaxSize is the default capacity of the active context.
const DefaultMaxSize = 100

// slot is one cache entry. A nil node means the URI is resident but not yet
// resolved against the store.
type slot struct {
	node *store.Node
}

// Context is the active context cache. All operations are guarded by one
// mutex: the persisted state file is rewritten wholesale on every mutation,
// so concurrent read-modify-persist sequences must not interleave.
type Context struct {
	mu        sync.Mutex
	path      string
	maxSize   int
	order     []string // resident URIs, oldest first
	slots     map[string]slot
	protected map[string]bool
}

// stateFile is the persisted cache state. The legacy format was a bare JSON
// array of URIs; Load accepts both.
type stateFile struct {
	Nodes         []string `json:"nodes"`
	ProtectedURIs []string `json:"protected_uris"`
}

// New creates a Context backed by the state file at path. Prior state is
// loaded as unresolved placeholders; a missing, corrupt, or legacy-format
// file never fails — the cache degrades to empty instead.
func New(path string, maxSize int) *Context {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	c := &Context{
		path:      path,
		maxSize:   maxSize,
		slots:     make(map[string]slot),
		protected: make(map[string]bool),
	}
	c.load()
	return c
}

func (c *Context) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}

	var state stateFile
	if err := json.Unmarshal(data, &state); err != nil {
		// Legacy format: a bare array of URIs.
		var uris []string
		if err := json.Unmarshal(data, &uris); err != nil {
			return
		}
		state.Nodes = uris
	}

	for _, uri := range state.Nodes {
		if _, ok := c.slots[uri]; ok {
			continue
		}
		c.order = append(c.order, uri)
		c.slots[uri] = slot{}
	}
	for _, uri := range state.ProtectedURIs {
		c.protected[uri] = true
	}
}

// save writes the cache state as one atomic full rewrite (temp file +
// rename). Write failures propagate: silently losing pinning state is a
// correctness hazard, unlike the tolerated corrupt-read case.
func (c *Context) save() error {
	state := stateFile{
		Nodes:         append([]string{}, c.order...),
		ProtectedURIs: make([]string, 0, len(c.protected)),
	}
	for uri := range c.protected {
		state.ProtectedURIs = append(state.ProtectedURIs, uri)
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal context state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("create context dir: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write context state: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace context state: %w", err)
	}
	return nil
}

// promote moves a resident URI to the most-recent position.
func (c *Context) promote(uri string) {
	for i, u := range c.order {
		if u == uri {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, uri)
			return
		}
	}
}

// remove drops a URI from residency (not from the protected set).
func (c *Context) remove(uri string) {
	for i, u := range c.order {
		if u == uri {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	delete(c.slots, uri)
}

func (c *Context) oldestUnprotected() (string, bool) {
	for _, uri := range c.order {
		if !c.protected[uri] {
			return uri, true
		}
	}
	return "", false
}

// admit makes a resolved node resident, evicting the oldest non-protected
// entries as needed. Returns false if the node could not be admitted: the
// cache is at capacity and everything resident is protected. Protected
// inserts may exceed maxSize — capacity is a soft bound for them.
func (c *Context) admit(node *store.Node, protected bool) bool {
	if protected {
		c.protected[node.URI] = true
	}

	if _, ok := c.slots[node.URI]; ok {
		c.slots[node.URI] = slot{node: node}
		c.promote(node.URI)
		return true
	}

	for len(c.order) >= c.maxSize {
		victim, ok := c.oldestUnprotected()
		if !ok {
			break
		}
		c.remove(victim)
	}

	if len(c.order) >= c.maxSize && !c.protected[node.URI] {
		return false
	}

	c.order = append(c.order, node.URI)
	c.slots[node.URI] = slot{node: node}
	return true
}

// Get returns the node for uri, promoting it to most-recent. Resident
// unresolved entries are resolved through the store; absent URIs are fetched
// from the store and inserted (subject to eviction — under capacity pressure
// the node is still returned even if it was not admitted). Returns (nil, nil)
// if the store has no such node.
func (c *Context) Get(uri string, db *store.DB) (*store.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.slots[uri]; ok {
		if s.node != nil {
			c.promote(uri)
			if err := c.save(); err != nil {
				return nil, err
			}
			return s.node, nil
		}

		node, err := db.GetNode(uri)
		if err != nil {
			return nil, err
		}
		if node == nil {
			// Resolution failure leaves the slot unresolved.
			return nil, nil
		}
		c.slots[uri] = slot{node: node}
		c.promote(uri)
		if err := c.save(); err != nil {
			return nil, err
		}
		return node, nil
	}

	node, err := db.GetNode(uri)
	if err != nil || node == nil {
		return nil, err
	}
	c.admit(node, false)
	if err := c.save(); err != nil {
		return nil, err
	}
	return node, nil
}

// Add makes a node resident. With protected set, the URI joins the protected
// set first and the insert may exceed capacity. Returns whether the node is
// resident after the call: a non-protected insert into a cache full of
// protected entries is silently dropped and reports false.
func (c *Context) Add(node *store.Node, protected bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	admitted := c.admit(node, protected)
	if err := c.save(); err != nil {
		return admitted, err
	}
	return admitted, nil
}

// IsProtected reports whether the URI is in the protected set. Protection is
// independent of residency.
func (c *Context) IsProtected(uri string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.protected[uri]
}

// AddProtectedURI adds a URI to the protected set.
func (c *Context) AddProtectedURI(uri string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.protected[uri] = true
	return c.save()
}

// RemoveProtectedURI removes a URI from the protected set, making it
// evictable again.
func (c *Context) RemoveProtectedURI(uri string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.protected, uri)
	return c.save()
}

// Clear removes all resident entries except protected ones.
func (c *Context) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var kept []string
	for _, uri := range c.order {
		if c.protected[uri] {
			kept = append(kept, uri)
		} else {
			delete(c.slots, uri)
		}
	}
	c.order = kept
	return c.save()
}

// ForceClear removes everything, including the protected set itself.
func (c *Context) ForceClear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order = nil
	c.slots = make(map[string]slot)
	c.protected = make(map[string]bool)
	return c.save()
}

// ListNodes returns all resolved nodes in recency order (oldest first),
// resolving unresolved placeholders against the store as a side effect.
// Entries the store no longer knows are omitted and left unresolved.
func (c *Context) ListNodes(db *store.DB) ([]*store.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var nodes []*store.Node
	for _, uri := range c.order {
		s := c.slots[uri]
		if s.node == nil {
			node, err := db.GetNode(uri)
			if err != nil {
				return nil, err
			}
			if node == nil {
				continue
			}
			c.slots[uri] = slot{node: node}
			s.node = node
		}
		nodes = append(nodes, s.node)
	}
	return nodes, nil
}

// URIs returns the resident URIs in recency order (oldest first).
func (c *Context) URIs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.order...)
}

// Len returns the resident entry count.
func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}
