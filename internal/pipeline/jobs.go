package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/dgallion1/docsplit/internal/chunker"
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusChunking   JobStatus = "chunking"
	StatusIndexing   JobStatus = "indexing"
	StatusStoring    JobStatus = "storing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Terminal reports whether no further transitions follow s.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusDupSkipped:
		return true
	}
	return false
}

// Progress tracks the pipeline counters exposed by the status endpoint.
type Progress struct {
	TotalSections int      `json:"total_sections"`
	TotalChunks   int      `json:"total_chunks"`
	ChunksIndexed int      `json:"chunks_indexed"`
	Errors        []string `json:"errors"`
}

// Job is one uploaded document moving through parse, chunk, index and store.
type Job struct {
	mu sync.Mutex

	ID          string
	DocID       string
	Status      JobStatus
	Phase       string
	Filename    string
	ContentHash string
	Chunking    chunker.Config
	Force       bool // ingest even when the content hash is already known
	Progress    Progress
	CreatedAt   time.Time
	UpdatedAt   time.Time

	fileData []byte
}

// JobSnapshot is an immutable copy of a job's state for API responses.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	DocID       string    `json:"doc_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash,omitempty"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.Progress.Errors))
	copy(errs, j.Progress.Errors)
	p := j.Progress
	p.Errors = errs
	return JobSnapshot{
		ID:          j.ID,
		DocID:       j.DocID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		ContentHash: j.ContentHash,
		Progress:    p,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

func (j *Job) SetStatus(s JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = s
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// CurrentStatus reads the status under the job lock.
func (j *Job) CurrentStatus() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status
}

func (j *Job) SetContentHash(h string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = h
}

func (j *Job) AddError(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Errors = append(j.Progress.Errors, msg)
	j.UpdatedAt = time.Now()
}

func (j *Job) SetTotalSections(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalSections = n
}

func (j *Job) SetTotalChunks(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalChunks = n
}

func (j *Job) SetChunksIndexed(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ChunksIndexed = n
	j.UpdatedAt = time.Now()
}

// SetFileData attaches the raw upload. It is released once parsing is done.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

func (j *Job) releaseFileData() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
}

// JobStore is an in-memory store of jobs, expiring finished ones after a TTL.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(j *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
}

func (s *JobStore) Get(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Cleanup removes jobs whose last update is older than the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-s.ttl)
	for id, j := range s.jobs {
		j.mu.Lock()
		expired := j.UpdatedAt.Before(cutoff)
		j.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// ContentHashHex returns the hex SHA-256 of data.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
