package pathstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgallion1/docsplit/internal/doctree"
)

// ErrNotFound is returned when a document has no stored node.
var ErrNotFound = errors.New("pathstore: document not found")

// DefaultPrefix roots every key written by a DocumentStore.
const DefaultPrefix = "docsplit"

// DocumentMeta summarizes a stored document.
type DocumentMeta struct {
	DocID          string                 `json:"doc_id"`
	Filename       string                 `json:"filename"`
	ContentHash    string                 `json:"content_hash"`
	ChunkingMethod doctree.ChunkingMethod `json:"chunking_method"`
	Sections       int                    `json:"sections"`
	Chunks         int                    `json:"chunks"`
	CreatedAt      time.Time              `json:"created_at"`
}

// DocumentStore keeps parsed documents and chunk sets under
// <prefix>/documents/<doc_id>/{meta,sections,chunks} and a content hash
// index under <prefix>/by_hash/<hash>/<doc_id>.
type DocumentStore struct {
	client *Client
	prefix string
}

func NewDocumentStore(c *Client, prefix string) *DocumentStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &DocumentStore{client: c, prefix: strings.Trim(prefix, "/")}
}

func (s *DocumentStore) docPrefix(docID string) string {
	return fmt.Sprintf("%s/documents/%s", s.prefix, docID)
}

func (s *DocumentStore) hashPrefix(hash string) string {
	return fmt.Sprintf("%s/by_hash/%s", s.prefix, hash)
}

func (s *DocumentStore) source(docID string) string {
	return "docsplit:" + docID
}

// Save writes the sections, the chunk set, the meta node and the hash index
// entry. The meta node is written after the payload so a listed document is
// always loadable.
func (s *DocumentStore) Save(ctx context.Context, meta DocumentMeta, doc *doctree.Document, set *doctree.ChunkSet) error {
	prefix := s.docPrefix(meta.DocID)
	src := s.source(meta.DocID)

	if err := s.client.PutNode(ctx, prefix+"/sections", NodeRequest{
		Value:      doc,
		MemoryType: "semantic",
		Salience:   0.3,
		Source:     src,
	}); err != nil {
		return fmt.Errorf("store sections: %w", err)
	}
	if err := s.client.PutNode(ctx, prefix+"/chunks", NodeRequest{
		Value:      set,
		MemoryType: "semantic",
		Salience:   0.5,
		Source:     src,
	}); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	if err := s.client.PutNode(ctx, prefix+"/meta", NodeRequest{
		Value:      meta,
		MemoryType: "metacognitive",
		Salience:   0.5,
		Source:     src,
	}); err != nil {
		return fmt.Errorf("store meta: %w", err)
	}
	if meta.ContentHash != "" {
		err := s.client.PutNode(ctx, s.hashPrefix(meta.ContentHash)+"/"+meta.DocID, NodeRequest{
			Value: map[string]any{
				"filename":   meta.Filename,
				"created_at": meta.CreatedAt.Format(time.RFC3339),
			},
			MemoryType: "metacognitive",
			Salience:   0.1,
			Source:     src,
		})
		if err != nil {
			return fmt.Errorf("store hash index: %w", err)
		}
	}
	return nil
}

// FindByHash returns the ID of a document already stored with the given
// content hash.
func (s *DocumentStore) FindByHash(ctx context.Context, hash string) (string, bool, error) {
	children, err := s.client.ListChildren(ctx, s.hashPrefix(hash), 1)
	if err != nil {
		return "", false, err
	}
	if len(children) == 0 {
		return "", false, nil
	}
	return lastSegment(children[0].Key), true, nil
}

// Meta loads the meta node of a document.
func (s *DocumentStore) Meta(ctx context.Context, docID string) (*DocumentMeta, error) {
	var meta DocumentMeta
	if err := s.load(ctx, s.docPrefix(docID)+"/meta", &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ChunkSet loads the stored chunk set of a document.
func (s *DocumentStore) ChunkSet(ctx context.Context, docID string) (*doctree.ChunkSet, error) {
	var set doctree.ChunkSet
	if err := s.load(ctx, s.docPrefix(docID)+"/chunks", &set); err != nil {
		return nil, err
	}
	return &set, nil
}

// Document loads the stored section tree of a document.
func (s *DocumentStore) Document(ctx context.Context, docID string) (*doctree.Document, error) {
	var doc doctree.Document
	if err := s.load(ctx, s.docPrefix(docID)+"/sections", &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns the meta of every stored document, newest first.
func (s *DocumentStore) List(ctx context.Context, limit int) ([]DocumentMeta, error) {
	children, err := s.client.ListChildren(ctx, s.prefix+"/documents", limit)
	if err != nil {
		return nil, err
	}
	var out []DocumentMeta
	for _, child := range children {
		if lastSegment(child.Key) != "meta" {
			continue
		}
		var meta DocumentMeta
		if err := child.Decode(&meta); err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes a document and its hash index entry. Deleting an unknown
// document is not an error.
func (s *DocumentStore) Delete(ctx context.Context, docID string) error {
	meta, err := s.Meta(ctx, docID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if meta != nil && meta.ContentHash != "" {
		if err := s.client.DeleteNode(ctx, s.hashPrefix(meta.ContentHash)+"/"+docID, false); err != nil {
			return err
		}
	}
	return s.client.DeleteNode(ctx, s.docPrefix(docID), true)
}

func (s *DocumentStore) load(ctx context.Context, key string, v any) error {
	node, err := s.client.GetNode(ctx, key)
	if err != nil {
		return err
	}
	if node == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return node.Decode(v)
}

// lastSegment returns the final component of a key path. The service reports
// keys with either '/' or '.' separators.
func lastSegment(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '/' || r == '.' })
	if len(parts) == 0 {
		return key
	}
	return parts[len(parts)-1]
}
