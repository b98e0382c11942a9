package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
)

// documentCache holds the last loaded document until the watcher reports
// a change to the history file.
type documentCache struct {
	store core.HistoryStore

	mu       sync.RWMutex
	doc      *core.HistoryDocument
	etag     string
	disabled bool
	// gen advances on every Invalidate; a load that started before one
	// must not repopulate the cache.
	gen uint64
}

func newDocumentCache(store core.HistoryStore) *documentCache {
	return &documentCache{store: store}
}

// Get returns the document and its ETag. Callers must not modify it.
func (c *documentCache) Get(ctx context.Context) (*core.HistoryDocument, string, error) {
	c.mu.RLock()
	if c.doc != nil && !c.disabled {
		doc, etag := c.doc, c.etag
		c.mu.RUnlock()
		return doc, etag, nil
	}
	gen := c.gen
	c.mu.RUnlock()

	doc, err := c.store.Load(ctx)
	if err != nil {
		return nil, "", err
	}
	etag := documentETag(doc)

	c.mu.Lock()
	if !c.disabled && c.gen == gen {
		c.doc, c.etag = doc, etag
	}
	c.mu.Unlock()
	return doc, etag, nil
}

func (c *documentCache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.doc, c.etag = nil, ""
	c.mu.Unlock()
}

func (c *documentCache) Disable() {
	c.mu.Lock()
	c.disabled = true
	c.gen++
	c.doc, c.etag = nil, ""
	c.mu.Unlock()
}

func documentETag(doc *core.HistoryDocument) string {
	return fmt.Sprintf(`"v%d-%d"`, doc.Len(), doc.UpdatedAt.UnixNano())
}
