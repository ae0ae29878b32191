package aggregator

import (
	"sync"

	"github.com/HamzaaAkmal/Get-Opinion/internal/domain"
)

// Delta reports what one Ingest call changed. TargetReached is safe to act on
// immediately from any goroutine.
type Delta struct {
	Accepted      int
	TargetReached bool
}

// Aggregator merges per-task comment batches into one deduplicated,
// target-bounded collection. Ingest is the only mutation point; batches are
// admitted atomically and trimmed at the target, never dropped whole.
type Aggregator struct {
	mu         sync.Mutex
	seen       map[string]struct{}
	accepted   []domain.Comment
	target     int
	tasksDone  int
	tasksTotal int
}

func New(target, tasksTotal int) *Aggregator {
	return &Aggregator{
		seen:       make(map[string]struct{}),
		target:     target,
		tasksTotal: tasksTotal,
	}
}

// Ingest records one completed task and admits its batch. Records already
// seen are skipped; once the target is reached the rest of the batch is
// dropped. Calls after the target is reached are harmless no-ops for the
// records but still count the task as done.
func (a *Aggregator) Ingest(task *domain.FetchTask, comments []domain.Comment) Delta {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.tasksDone++

	var added int
	for _, c := range comments {
		if len(a.accepted) >= a.target {
			break
		}
		fp := c.Fingerprint
		if fp == "" {
			fp = domain.NewFingerprint(c.Text, c.Author, c.Source)
		}
		if _, dup := a.seen[fp]; dup {
			continue
		}
		a.seen[fp] = struct{}{}
		c.Fingerprint = fp
		a.accepted = append(a.accepted, c)
		added++
	}

	return Delta{Accepted: added, TargetReached: len(a.accepted) >= a.target}
}

// Progress is queryable at any time; the critical section only copies four
// ints so it never blocks ingestion for long.
func (a *Aggregator) Progress() domain.Progress {
	a.mu.Lock()
	defer a.mu.Unlock()

	return domain.Progress{
		Accepted:       len(a.accepted),
		Target:         a.target,
		TasksCompleted: a.tasksDone,
		TasksTotal:     a.tasksTotal,
	}
}

// Accepted returns a copy of the accepted records in admission order.
func (a *Aggregator) Accepted() []domain.Comment {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]domain.Comment, len(a.accepted))
	copy(out, a.accepted)
	return out
}
