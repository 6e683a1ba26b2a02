// Package domain holds the core entities and ports of the screening pipeline.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrInputMissing      = errors.New("input missing")
	ErrParseFailure      = errors.New("parse failure")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamTransient = errors.New("upstream transient")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrStorageFailure    = errors.New("storage failure")
	ErrConfigMissing     = errors.New("config missing")
	ErrInternal          = errors.New("internal error")
)

// Stage enumerates the ordered pipeline stages a candidate goes through.
type Stage string

const (
	StageTextExtract Stage = "TEXT_EXTRACT"
	StageLLMExtract  Stage = "LLM_EXTRACT"
	StageEmbed       Stage = "EMBED"
	StageScore       Stage = "SCORE"
	StageExplain     Stage = "EXPLAIN"
)

// Next returns the successor stage, if any. Ordering per candidate is enforced
// solely by enqueueing the successor after the current stage completes.
func (s Stage) Next() (Stage, bool) {
	switch s {
	case StageTextExtract:
		return StageLLMExtract, true
	case StageLLMExtract:
		return StageEmbed, true
	case StageEmbed:
		return StageScore, true
	case StageScore:
		return StageExplain, true
	default:
		return "", false
	}
}

// Valid reports whether s is one of the five known stages.
func (s Stage) Valid() bool {
	switch s {
	case StageTextExtract, StageLLMExtract, StageEmbed, StageScore, StageExplain:
		return true
	}
	return false
}

// QueueStatus enumerates queue item states.
type QueueStatus string

const (
	QueueReady   QueueStatus = "READY"
	QueueRunning QueueStatus = "RUNNING"
	QueueDone    QueueStatus = "DONE"
	QueueFailed  QueueStatus = "FAILED"
)

// QueueItem is one durable stage attempt for one candidate.
// Invariants: QueueID is never reused; Attempts only grows; DONE and FAILED
// are terminal from the driver's view (FAILED may be re-readied via Retry).
type QueueItem struct {
	QueueID     string
	CandidateID string
	Stage       Stage
	Status      QueueStatus
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CandidateStatus is the coarse candidate projection maintained by the pipeline.
type CandidateStatus string

const (
	CandidateNew        CandidateStatus = "NEW"
	CandidateProcessing CandidateStatus = "PROCESSING"
	CandidateDone       CandidateStatus = "DONE"
	CandidateError      CandidateStatus = "ERROR"
)

// Candidate is the screening subject. JobID references the posting being
// screened against.
type Candidate struct {
	CandidateID  string
	JobID        string
	DisplayName  string
	Status       CandidateStatus
	ErrorMessage string
	SubmittedAt  time.Time
}

// DocumentType enumerates uploaded document kinds.
const (
	DocumentTypeResume = "resume"
	DocumentTypeCV     = "cv"
)

// Document is an uploaded candidate file. ObjectURI points at the raw bytes;
// TextURI is set by the text-extract stage.
type Document struct {
	DocumentID       string
	CandidateID      string
	Type             string
	OriginalFilename string
	ObjectURI        string
	TextURI          string
	CreatedAt        time.Time
}

// JobPosting is the read-only job description a candidate is screened against.
type JobPosting struct {
	JobID      string
	Title      string
	JobTextRaw string
	CreatedAt  time.Time
}

// EmbeddingKind enumerates embedding record kinds.
type EmbeddingKind string

const (
	EmbeddingCandidateSummary EmbeddingKind = "candidate_summary"
	EmbeddingNiceReq          EmbeddingKind = "nice_req"
)

// Embedding is one stored vector. CANDIDATE_SUMMARY has no RefID and is unique
// per candidate; NICE_REQ carries the nice requirement id in RefID.
type Embedding struct {
	EmbeddingID string
	CandidateID string
	Kind        EmbeddingKind
	RefID       string
	Vector      []float32
	CreatedAt   time.Time
}

// Score holds the four sub-scores in [0,1] and the composite in [0,100],
// together with the config version used so the number stays auditable.
type Score struct {
	CandidateID        string
	MustScore          float64
	NiceScore          float64
	YearScore          float64
	RoleScore          float64
	TotalFit0100       int
	MustGaps           []string
	ScoreConfigVersion int
	ComputedAt         time.Time
}

// ScoreConfig is an immutable tuning snapshot; new tuning creates a new version.
type ScoreConfig struct {
	Version        int
	Weights        Weights
	MustCapEnabled bool
	MustCapValue   int
	NiceTopN       int
	RoleDistance   map[string]map[string]float64
	CreatedAt      time.Time
}

// Weights are the non-negative composite weights per sub-score.
type Weights struct {
	Must float64 `json:"must" yaml:"must"`
	Nice float64 `json:"nice" yaml:"nice"`
	Year float64 `json:"year" yaml:"year"`
	Role float64 `json:"role" yaml:"role"`
}

// Explanation is the bounded human-readable rationale for a score.
type Explanation struct {
	CandidateID string
	Summary     string   `json:"summary"`
	Strengths   []string `json:"strengths"`
	Concerns    []string `json:"concerns"`
	Unknowns    []string `json:"unknowns"`
	MustGaps    []string `json:"must_gaps"`
	CreatedAt   time.Time
}

// Repositories (ports)

// QueueRepository is the durable FIFO-per-stage work queue. LeaseNext must be
// atomic across concurrent workers (row lock with skip-locked semantics).
type QueueRepository interface {
	Enqueue(ctx Context, candidateID string, stage Stage) (string, error)
	LeaseNext(ctx Context) (QueueItem, bool, error)
	Complete(ctx Context, queueID string) error
	Fail(ctx Context, queueID, errMsg string) error
	Retry(ctx Context, queueID string) error
	Get(ctx Context, queueID string) (QueueItem, error)
	ListFailed(ctx Context, limit int) ([]QueueItem, error)
	ResetStuckRunning(ctx Context, olderThan time.Time) (int64, error)
}

type CandidateRepository interface {
	Get(ctx Context, candidateID string) (Candidate, error)
	UpdateStatus(ctx Context, candidateID string, status CandidateStatus, errMsg string) error
}

type DocumentRepository interface {
	ListByCandidate(ctx Context, candidateID string) ([]Document, error)
	SetTextURI(ctx Context, documentID, textURI string) error
}

type JobRepository interface {
	Get(ctx Context, jobID string) (JobPosting, error)
}

type ExtractionRepository interface {
	Upsert(ctx Context, e Extraction) error
	Get(ctx Context, candidateID string) (Extraction, error)
}

type EmbeddingRepository interface {
	// Replace atomically deletes all embeddings for the candidate and inserts
	// the given set.
	Replace(ctx Context, candidateID string, embs []Embedding) error
	ListByCandidate(ctx Context, candidateID string) ([]Embedding, error)
}

type ScoreRepository interface {
	Upsert(ctx Context, s Score) error
	Get(ctx Context, candidateID string) (Score, error)
}

type ScoreConfigRepository interface {
	Latest(ctx Context) (ScoreConfig, error)
	Create(ctx Context, c ScoreConfig) (int, error)
}

type ExplanationRepository interface {
	Upsert(ctx Context, e Explanation) error
	Get(ctx Context, candidateID string) (Explanation, error)
}

// Storage (port). URIs are relative paths under raw/, text/ and evidence/;
// the adapter maps them onto the backing store. WriteRaw is the ingestion
// seam: upload tooling stores the original document through it and records
// the returned URI on the documents row.
type Storage interface {
	ReadRaw(ctx Context, uri string) ([]byte, error)
	WriteRaw(ctx Context, originalFilename string, content []byte) (string, error)
	ReadText(ctx Context, uri string) (string, error)
	WriteText(ctx Context, candidateID, content string) (string, error)
	WriteEvidence(ctx Context, candidateID, content string) (string, error)
}

// AIClient (port)

type AIClient interface {
	// ExtractJSON requests a chat completion in JSON output mode and returns
	// the raw message content.
	ExtractJSON(ctx Context, systemPrompt, userPrompt string) (string, error)
	// Embed returns one vector per input text, in input order.
	Embed(ctx Context, texts []string) ([][]float32, error)
}

// TextExtractor (port)
// Extract converts raw document bytes into plain text. Implementations may
// call external services (e.g. Tika) or use local libraries.
type TextExtractor interface {
	Extract(ctx Context, fileName string, content []byte) (string, error)
}

// Context is an alias so the domain does not take a hard dependency on the
// standard context package in signatures; adapters pass context.Context through.
type Context = context.Context
