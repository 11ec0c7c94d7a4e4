package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/docsplit/internal/chunker"
	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/dgallion1/docsplit/internal/embed"
	"github.com/dgallion1/docsplit/internal/index"
	"github.com/dgallion1/docsplit/internal/llm"
	"github.com/dgallion1/docsplit/internal/parser"
	"github.com/dgallion1/docsplit/internal/pathstore"
	"github.com/dgallion1/docsplit/internal/sentence"
	"golang.org/x/sync/semaphore"
)

// Worker processes a single document job.
type Worker struct {
	log       *slog.Logger
	parseOpts parser.Options
	model     *sentence.Model
	newIndex  func() index.Indexer
	library   *Library
	store     *pathstore.DocumentStore
	indexSem  *semaphore.Weighted
	backoff   func(attempt int) time.Duration
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	doc, err := w.parse(job)
	job.releaseFileData()
	if err != nil {
		var serr *parser.StructureError
		if errors.As(err, &serr) {
			log.Warn("malformed document structure", "kind", serr.Kind.String(), "line", serr.Line, "error", err)
		} else {
			log.Error("parse failed", "error", err)
		}
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.SetTotalSections(doc.Len())

	// The hash covers the reconstructed text, so byte-level differences that
	// parse to the same sections count as duplicates.
	hash := ContentHashHex([]byte(doc.Text()))
	job.SetContentHash(hash)

	// Phase 1.5: Dedup check
	if !job.Force {
		existing, dup, err := w.checkDuplicate(ctx, hash)
		if err != nil {
			log.Warn("dedup check failed, proceeding", "error", err)
		} else if dup && existing != job.DocID {
			log.Info("duplicate document, skipping", "existing_doc_id", existing)
			job.AddError(fmt.Sprintf("duplicate of %s", existing))
			job.SetStatus(StatusDupSkipped, "dedup")
			return
		}
	}

	// Phase 2: Chunk
	job.SetStatus(StatusChunking, "chunking")
	ch, err := chunker.New(job.Chunking, w.model)
	if err != nil {
		log.Error("invalid chunking configuration", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "chunking")
		return
	}
	set := ch.Chunk(doc)
	job.SetTotalChunks(set.Len())
	log.Info("chunked document", "sections", doc.Len(), "chunks", set.Len(), "method", string(set.Method))

	if set.Len() == 0 {
		log.Warn("no chunks produced")
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "chunking")
		return
	}

	// Phase 3: Index
	job.SetStatus(StatusIndexing, "indexing")
	idx, err := w.buildIndex(ctx, set, log)
	if err != nil {
		log.Error("indexing failed", "error", err)
		job.AddError(fmt.Sprintf("index: %s", err))
		job.SetStatus(StatusFailed, "indexing")
		return
	}
	job.SetChunksIndexed(set.Len())

	// Phase 4: Store
	job.SetStatus(StatusStoring, "storing")
	entry := &Entry{
		DocID:       job.DocID,
		Filename:    job.Filename,
		ContentHash: hash,
		Document:    doc,
		Chunks:      set,
		Index:       idx,
		CreatedAt:   job.CreatedAt,
	}
	w.library.Put(entry)

	if w.store != nil {
		meta := pathstore.DocumentMeta(entry.Summary())
		if err := w.store.Save(ctx, meta, doc, set); err != nil {
			// The document stays searchable from memory.
			log.Error("pathstore write failed", "error", err)
			job.AddError(fmt.Sprintf("store: %s", err))
		}
	}

	log.Info("document ready", "chunks", set.Len())
	job.SetStatus(StatusCompleted, "done")
}

func (w *Worker) parse(job *Job) (*doctree.Document, error) {
	p, err := parser.ForFile(job.Filename, w.parseOpts)
	if err != nil {
		return nil, err
	}
	return p.Parse(bytes.NewReader(job.FileData()), job.Filename)
}

// checkDuplicate looks the content hash up in memory first, then in the
// remote store when one is configured.
func (w *Worker) checkDuplicate(ctx context.Context, hash string) (string, bool, error) {
	if id, ok := w.library.FindByHash(hash); ok {
		return id, true, nil
	}
	if w.store == nil {
		return "", false, nil
	}
	return w.store.FindByHash(ctx, hash)
}

// buildIndex creates an index over set, retrying transient embedding
// failures with backoff. Index builds share a semaphore so concurrent jobs
// stay under the provider's rate limits.
func (w *Worker) buildIndex(ctx context.Context, set *doctree.ChunkSet, log *slog.Logger) (index.Indexer, error) {
	var idx index.Indexer
	err := retryTransient(ctx, w.backoff, log.With("phase", "indexing"), func() error {
		idx = w.newIndex()
		if err := w.indexSem.Acquire(ctx, 1); err != nil {
			return err
		}
		defer w.indexSem.Release(1)
		return idx.Create(ctx, set)
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// maxAttempts bounds calls to a provider that keeps answering 429 or 5xx.
const maxAttempts = 3

// retryTransient runs fn until it succeeds, fails with a non-transient error
// or has been tried maxAttempts times. wait gives the pause after each
// failed attempt.
func retryTransient(ctx context.Context, wait func(attempt int) time.Duration, log *slog.Logger, fn func() error) error {
	var err error
	for attempt := range maxAttempts {
		if err = fn(); err == nil || !transient(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			break
		}
		log.Warn("transient provider error, retrying", "attempt", attempt+1, "error", err)
		select {
		case <-time.After(wait(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", maxAttempts, err)
}

// transient reports whether err is a throttled or failed provider call that
// may succeed when repeated.
func transient(err error) bool {
	var embedErr *embed.RetryableError
	var chatErr *llm.RetryableError
	return errors.As(err, &embedErr) || errors.As(err, &chatErr)
}

// jitteredBackoff waits 1s, 2s, 4s and so on, capped at 30s, plus up to half
// again at random so workers that failed together do not retry together.
func jitteredBackoff(attempt int) time.Duration {
	base := min(time.Second<<min(attempt, 5), 30*time.Second)
	return base + rand.N(base/2)
}
