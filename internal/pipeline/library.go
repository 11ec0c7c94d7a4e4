package pipeline

import (
	"sort"
	"sync"
	"time"

	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/dgallion1/docsplit/internal/index"
)

// Entry is a processed document kept in memory for retrieval.
type Entry struct {
	DocID       string
	Filename    string
	ContentHash string
	Document    *doctree.Document
	Chunks      *doctree.ChunkSet
	Index       index.Indexer
	CreatedAt   time.Time
}

// EntrySummary describes an entry without its payload.
type EntrySummary struct {
	DocID          string                 `json:"doc_id"`
	Filename       string                 `json:"filename"`
	ContentHash    string                 `json:"content_hash"`
	ChunkingMethod doctree.ChunkingMethod `json:"chunking_method"`
	Sections       int                    `json:"sections"`
	Chunks         int                    `json:"chunks"`
	CreatedAt      time.Time              `json:"created_at"`
}

func (e *Entry) Summary() EntrySummary {
	s := EntrySummary{
		DocID:       e.DocID,
		Filename:    e.Filename,
		ContentHash: e.ContentHash,
		CreatedAt:   e.CreatedAt,
	}
	if e.Document != nil {
		s.Sections = e.Document.Len()
	}
	if e.Chunks != nil {
		s.ChunkingMethod = e.Chunks.Method
		s.Chunks = e.Chunks.Len()
	}
	return s
}

// Library holds processed documents by ID and by content hash.
type Library struct {
	mu     sync.RWMutex
	docs   map[string]*Entry
	byHash map[string]string
}

func NewLibrary() *Library {
	return &Library{
		docs:   make(map[string]*Entry),
		byHash: make(map[string]string),
	}
}

// Put adds or replaces an entry.
func (l *Library) Put(e *Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if old, ok := l.docs[e.DocID]; ok && old.ContentHash != e.ContentHash {
		delete(l.byHash, old.ContentHash)
	}
	l.docs[e.DocID] = e
	if e.ContentHash != "" {
		l.byHash[e.ContentHash] = e.DocID
	}
}

func (l *Library) Get(docID string) *Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.docs[docID]
}

// FindByHash returns the ID of the document with the given content hash.
func (l *Library) FindByHash(hash string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.byHash[hash]
	return id, ok
}

// Delete removes an entry and reports whether it existed.
func (l *Library) Delete(docID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.docs[docID]
	if !ok {
		return false
	}
	delete(l.docs, docID)
	if l.byHash[e.ContentHash] == docID {
		delete(l.byHash, e.ContentHash)
	}
	return true
}

// List returns summaries of all entries, newest first.
func (l *Library) List() []EntrySummary {
	l.mu.RLock()
	out := make([]EntrySummary, 0, len(l.docs))
	for _, e := range l.docs {
		out = append(out, e.Summary())
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].DocID < out[j].DocID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.docs)
}
