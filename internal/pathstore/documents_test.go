package pathstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/docsplit/internal/doctree"
)

// fakeServer is an in-memory pathstore. Listed keys are reported with '.'
// separators like the real service.
type fakeServer struct {
	mu    sync.Mutex
	nodes map[string]json.RawMessage
	auth  []string
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	fs := &fakeServer{nodes: make(map[string]json.RawMessage)}
	srv := httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(srv.Close)
	return fs, srv
}

func (f *fakeServer) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))

	key := strings.TrimPrefix(r.URL.Path, "/kv/")
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(key, "/*"):
		prefix := strings.TrimSuffix(key, "*")
		var keys []string
		for k := range f.nodes {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		type node struct {
			Key   string          `json:"key_path"`
			Value json.RawMessage `json:"value"`
		}
		nodes := []node{}
		for _, k := range keys {
			nodes = append(nodes, node{Key: strings.ReplaceAll(k, "/", "."), Value: f.nodes[k]})
		}
		json.NewEncoder(w).Encode(map[string]any{"nodes": nodes})
	case r.Method == http.MethodGet:
		v, ok := f.nodes[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"key_path": key, "value": v})
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.nodes[key] = req.Value
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodDelete:
		if r.URL.Query().Get("children") == "true" {
			for k := range f.nodes {
				if k == key || strings.HasPrefix(k, key+"/") {
					delete(f.nodes, k)
				}
			}
		} else {
			delete(f.nodes, key)
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func sampleDocument(t *testing.T) (*doctree.Document, *doctree.ChunkSet) {
	t.Helper()
	var doc doctree.Document
	root, err := doc.Append(1, "Guide", "Intro text.", doctree.NoParent)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := doc.Append(2, "Install", "Run it.", root); err != nil {
		t.Fatal(err)
	}
	set := &doctree.ChunkSet{
		Method: doctree.MethodParagraph,
		Chunks: []doctree.Chunk{
			{ID: "c1", SectionID: doc.Sections[0].ID, Text: "Intro text."},
			{ID: "c2", SectionID: doc.Sections[1].ID, Text: "Run it."},
		},
	}
	return &doc, set
}

func TestDocumentStore_SaveAndLoad(t *testing.T) {
	fs, srv := newFakeServer(t)
	store := NewDocumentStore(NewClient(srv.URL, "secret"), "")
	doc, set := sampleDocument(t)
	ctx := context.Background()

	meta := DocumentMeta{
		DocID:          "doc1",
		Filename:       "guide.md",
		ContentHash:    "abc",
		ChunkingMethod: set.Method,
		Sections:       doc.Len(),
		Chunks:         set.Len(),
		CreatedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := store.Save(ctx, meta, doc, set); err != nil {
		t.Fatalf("save: %v", err)
	}

	gotSet, err := store.ChunkSet(ctx, "doc1")
	if err != nil {
		t.Fatalf("chunk set: %v", err)
	}
	if gotSet.Method != doctree.MethodParagraph || gotSet.Len() != 2 || gotSet.Chunks[1].Text != "Run it." {
		t.Errorf("expected stored chunk set back, got %+v", gotSet)
	}

	gotDoc, err := store.Document(ctx, "doc1")
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if gotDoc.Text() != doc.Text() {
		t.Errorf("expected %q, got %q", doc.Text(), gotDoc.Text())
	}

	gotMeta, err := store.Meta(ctx, "doc1")
	if err != nil {
		t.Fatalf("meta: %v", err)
	}
	if gotMeta.Filename != "guide.md" || gotMeta.Chunks != 2 || !gotMeta.CreatedAt.Equal(meta.CreatedAt) {
		t.Errorf("expected meta %+v, got %+v", meta, gotMeta)
	}

	for _, a := range fs.auth {
		if a != "Bearer secret" {
			t.Fatalf("expected bearer auth on every request, got %q", a)
		}
	}
}

func TestDocumentStore_FindByHash(t *testing.T) {
	_, srv := newFakeServer(t)
	store := NewDocumentStore(NewClient(srv.URL, "k"), "tenant")
	doc, set := sampleDocument(t)
	ctx := context.Background()

	if _, found, err := store.FindByHash(ctx, "h1"); err != nil || found {
		t.Fatalf("expected no match before save, got found=%v err=%v", found, err)
	}
	if err := store.Save(ctx, DocumentMeta{DocID: "d42", ContentHash: "h1"}, doc, set); err != nil {
		t.Fatal(err)
	}
	id, found, err := store.FindByHash(ctx, "h1")
	if err != nil || !found {
		t.Fatalf("expected match, got found=%v err=%v", found, err)
	}
	if id != "d42" {
		t.Errorf("expected doc id %q, got %q", "d42", id)
	}
}

func TestDocumentStore_ListAndDelete(t *testing.T) {
	_, srv := newFakeServer(t)
	store := NewDocumentStore(NewClient(srv.URL, "k"), "")
	doc, set := sampleDocument(t)
	ctx := context.Background()

	older := DocumentMeta{DocID: "a", ContentHash: "ha", CreatedAt: time.Unix(100, 0).UTC()}
	newer := DocumentMeta{DocID: "b", ContentHash: "hb", CreatedAt: time.Unix(200, 0).UTC()}
	for _, m := range []DocumentMeta{older, newer} {
		if err := store.Save(ctx, m, doc, set); err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].DocID != "b" || list[1].DocID != "a" {
		t.Fatalf("expected [b a], got %+v", list)
	}

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.ChunkSet(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, found, _ := store.FindByHash(ctx, "ha"); found {
		t.Error("expected hash index entry to be deleted")
	}
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Errorf("expected deleting unknown document to succeed, got %v", err)
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	err := c.PutNode(context.Background(), "x", NodeRequest{Value: 1})
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Errorf("expected status 500 error, got %v", err)
	}
	if _, err := c.GetNode(context.Background(), "x"); err == nil {
		t.Error("expected error from GetNode")
	}
}

func TestLastSegment(t *testing.T) {
	tests := map[string]string{
		"docsplit.by_hash.h.doc1":   "doc1",
		"docsplit/documents/a/meta": "meta",
		"plain":                     "plain",
	}
	for in, want := range tests {
		if got := lastSegment(in); got != want {
			t.Errorf("lastSegment(%q): expected %q, got %q", in, want, got)
		}
	}
}
