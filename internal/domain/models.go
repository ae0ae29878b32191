package domain

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

// SourceKind identifies which backend produced a comment.
type SourceKind string

const (
	SourceYouTube SourceKind = "youtube"
	SourceReddit  SourceKind = "reddit"
)

// Comment is the unified record for a single comment from any source.
type Comment struct {
	Source      SourceKind `json:"source"`
	Fingerprint string     `json:"fingerprint"`
	Text        string     `json:"text"`
	Author      string     `json:"author"`
	Likes       int        `json:"likes"`
	PublishedAt time.Time  `json:"published_at"`
	OriginID    string     `json:"origin_id"`    // video or post id
	OriginTitle string     `json:"origin_title"` // video or post title
	Variant     string     `json:"variant,omitempty"`
}

// MinCommentLength filters out trivial comments before dedup.
const MinCommentLength = 3

// NewFingerprint derives the dedup identity for a comment. Two records with
// equal fingerprints are duplicates regardless of which fetch produced them.
func NewFingerprint(text, author string, source SourceKind) string {
	norm := strings.ToLower(strings.Join(strings.Fields(text), " "))
	h := sha1.New()
	h.Write([]byte(norm))
	h.Write([]byte{0})
	h.Write([]byte(author))
	h.Write([]byte{0})
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// Collector defines the interface for fetching comments from one source.
// Implementations enforce their own per-call timeout and item cap and return
// typed *FetchError failures so callers can route retries.
type Collector interface {
	Source() SourceKind
	Fetch(ctx context.Context, query string, limit int) ([]Comment, error)
}

// MeteredCollector is implemented by sources that attribute each call to a
// credential from a rotating pool.
type MeteredCollector interface {
	Collector
	// FetchWithKey behaves like Fetch and additionally reports the ID of
	// the key that served, or last attempted, the call.
	FetchWithKey(ctx context.Context, query string, limit int) ([]Comment, string, error)
}

// TaskStatus tracks a fetch task through its lifecycle.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// FetchTask is one (query variant, source) fetch unit. The scheduler owns it
// until it reaches a terminal status; after that it is read-only.
type FetchTask struct {
	Variant  string     `json:"variant"`
	Source   SourceKind `json:"source"`
	KeyID    string     `json:"key_id,omitempty"`
	Attempts int        `json:"attempts"`
	Status   TaskStatus `json:"status"`
}

// TaskFailure records why a task ended without data.
type TaskFailure struct {
	Variant  string     `json:"variant"`
	Source   SourceKind `json:"source"`
	Attempts int        `json:"attempts"`
	Reason   string     `json:"reason"`
}

// Progress is a point-in-time view of a running aggregation.
type Progress struct {
	Accepted       int `json:"accepted"`
	Target         int `json:"target"`
	TasksCompleted int `json:"tasks_completed"`
	TasksTotal     int `json:"tasks_total"`
}

// RunResult is the final, immutable outcome of one search run. The caller
// always receives one, even when zero comments were accepted.
type RunResult struct {
	Query         string             `json:"query"`
	Variants      []string           `json:"variants"`
	Accepted      []Comment          `json:"accepted"`
	BySource      map[SourceKind]int `json:"by_source"`
	ByVariant     map[string]int     `json:"by_variant"`
	Failures      []TaskFailure      `json:"failures"`
	TasksTotal    int                `json:"tasks_total"`
	TasksDone     int                `json:"tasks_done"`
	TargetReached bool               `json:"target_reached"`
	Elapsed       time.Duration      `json:"elapsed"`
	StartedAt     time.Time          `json:"started_at"`
}
