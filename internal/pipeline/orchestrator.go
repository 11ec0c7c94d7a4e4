package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docsplit/internal/chunker"
	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/dgallion1/docsplit/internal/index"
	"github.com/dgallion1/docsplit/internal/llm"
	"github.com/dgallion1/docsplit/internal/parser"
	"github.com/dgallion1/docsplit/internal/pathstore"
	"github.com/dgallion1/docsplit/internal/sentence"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrDocumentNotFound is returned for a document ID that is neither in
	// memory nor in the remote store.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrStopped is returned by Submit once Stop has been called.
	ErrStopped = errors.New("pipeline stopped")
)

// Orchestrator manages the document ingestion pipeline.
type Orchestrator struct {
	jobs     *JobStore
	queue    chan *Job
	library  *Library
	store    *pathstore.DocumentStore
	model    *sentence.Model
	newIndex func() index.Indexer
	chat     llm.Chat
	indexSem *semaphore.Weighted
	log      *slog.Logger
	cfg      config.Config

	// backoff is replaced in tests.
	backoff func(attempt int) time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards stopped and every send on queue, so Submit never races the
	// close in Stop.
	mu      sync.Mutex
	stopped bool
}

// NewOrchestrator wires the pipeline. store may be nil, in which case
// documents live only in memory. newIndex builds an empty index per document.
func NewOrchestrator(cfg config.Config, model *sentence.Model, newIndex func() index.Indexer, store *pathstore.DocumentStore, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:     NewJobStore(cfg.JobTTL),
		queue:    make(chan *Job, cfg.MaxQueueSize),
		library:  NewLibrary(),
		store:    store,
		model:    model,
		newIndex: newIndex,
		indexSem: semaphore.NewWeighted(int64(max(cfg.MaxConcurrentEmbed, 1))),
		log:      log,
		cfg:      cfg,
		backoff:  jitteredBackoff,
	}
}

func (o *Orchestrator) newWorker() *Worker {
	return &Worker{
		log: o.log,
		parseOpts: parser.Options{
			NormalizeMarkdown: o.cfg.Parser.NormalizeMarkdown,
			PDFFallback:       o.cfg.Parser.PDFFallbackPdftotext,
		},
		model:    o.model,
		newIndex: o.newIndex,
		library:  o.library,
		store:    o.store,
		indexSem: o.indexSem,
		backoff:  o.backoff,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := o.newWorker()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a new job for processing. It fails with ErrStopped after
// Stop, and marks the job failed when the queue is full.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		job.SetStatus(StatusFailed, "stopped")
		return ErrStopped
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// NewJob builds a queued job for an upload using the configured chunking
// defaults. An empty docID is derived from the upload's content hash.
func (o *Orchestrator) NewJob(filename, docID string, data []byte) *Job {
	if docID == "" {
		docID = ContentHashHex(data)[:16]
	}
	now := time.Now()
	job := &Job{
		ID:        NewJobID(),
		DocID:     docID,
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		Chunking:  o.cfg.Chunking(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	job.SetFileData(data)
	return job
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Documents lists the documents held in memory.
func (o *Orchestrator) Documents() []EntrySummary {
	return o.library.List()
}

// StoredDocuments lists documents from the remote store, or nil when none is
// configured.
func (o *Orchestrator) StoredDocuments(ctx context.Context) ([]pathstore.DocumentMeta, error) {
	if o.store == nil {
		return nil, nil
	}
	return o.store.List(ctx, 500)
}

// Entry returns the processed document, loading it from the remote store
// and re-indexing it when it is not in memory.
func (o *Orchestrator) Entry(ctx context.Context, docID string) (*Entry, error) {
	if e := o.library.Get(docID); e != nil {
		return e, nil
	}
	if o.store == nil {
		return nil, ErrDocumentNotFound
	}

	meta, err := o.store.Meta(ctx, docID)
	if errors.Is(err, pathstore.ErrNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	doc, err := o.store.Document(ctx, docID)
	if err != nil {
		return nil, err
	}
	set, err := o.store.ChunkSet(ctx, docID)
	if err != nil {
		return nil, err
	}
	idx, err := o.newWorker().buildIndex(ctx, set, o.log.With("doc_id", docID))
	if err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}

	e := &Entry{
		DocID:       docID,
		Filename:    meta.Filename,
		ContentHash: meta.ContentHash,
		Document:    doc,
		Chunks:      set,
		Index:       idx,
		CreatedAt:   meta.CreatedAt,
	}
	o.library.Put(e)
	return e, nil
}

// Search runs a ranked query against one document's index.
func (o *Orchestrator) Search(ctx context.Context, docID, query string, k int) (*index.SearchResult, error) {
	e, err := o.Entry(ctx, docID)
	if err != nil {
		return nil, err
	}
	return e.Index.Search(ctx, query, k)
}

// Delete removes a document from memory and from the remote store.
func (o *Orchestrator) Delete(ctx context.Context, docID string) (bool, error) {
	found := o.library.Delete(docID)
	if o.store != nil {
		if _, err := o.store.Meta(ctx, docID); err == nil {
			found = true
		}
		if err := o.store.Delete(ctx, docID); err != nil {
			return found, err
		}
	}
	return found, nil
}

// ChunkingDefaults returns the configured chunking parameters.
func (o *Orchestrator) ChunkingDefaults() chunker.Config {
	return o.cfg.Chunking()
}

// Chunk runs the parse and chunk phases synchronously on markdown text, for
// callers that want the chunk set without queuing a job.
func (o *Orchestrator) Chunk(text string, cfg chunker.Config) (*doctree.Document, *doctree.ChunkSet, error) {
	ch, err := chunker.New(cfg, o.model)
	if err != nil {
		return nil, nil, err
	}
	doc, err := parser.ParseSections(text)
	if err != nil {
		return nil, nil, err
	}
	return doc, ch.Chunk(doc), nil
}
