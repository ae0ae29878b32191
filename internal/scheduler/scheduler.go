package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/HamzaaAkmal/Get-Opinion/internal/domain"
)

// Outcome is one completed task and whatever it produced. Tasks arrive here
// only in a terminal status and are read-only from then on.
type Outcome struct {
	Task     *domain.FetchTask
	Comments []domain.Comment
	Err      error
}

// maxAttempts bounds in-worker retries for timeout/transient failures.
const maxAttempts = 2

// Scheduler fans query variants out across sources with a bounded worker
// pool and streams outcomes as they complete.
type Scheduler struct {
	sources        []domain.Collector
	maxConcurrency int
	perFetchLimit  int
	logger         *slog.Logger
}

func New(sources []domain.Collector, maxConcurrency, perFetchLimit int, logger *slog.Logger) *Scheduler {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		sources:        sources,
		maxConcurrency: maxConcurrency,
		perFetchLimit:  perFetchLimit,
		logger:         logger,
	}
}

// SourceCount returns how many sources each variant fans out to.
func (s *Scheduler) SourceCount() int { return len(s.sources) }

// Run builds the variant×source task universe up front and executes it with
// at most maxConcurrency tasks in flight. The returned channel yields each
// outcome as soon as its task finishes and closes once no more will come.
//
// Cancelling ctx stops new tasks from launching; tasks already running finish
// or time out on their own per-call budget.
func (s *Scheduler) Run(ctx context.Context, variants []string) <-chan Outcome {
	tasks := s.buildTasks(variants)

	jobs := make(chan *domain.FetchTask)
	// Buffered to the task universe so stragglers finishing after the
	// consumer stopped draining never block a worker.
	out := make(chan Outcome, len(tasks))

	workers := s.maxConcurrency
	if workers > len(tasks) {
		workers = len(tasks)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range jobs {
				if ctx.Err() != nil {
					return
				}
				out <- s.runTask(ctx, task)
			}
		}()
	}

	// Feed in FIFO order; stop feeding on cancellation.
	go func() {
		defer close(jobs)
		for _, task := range tasks {
			select {
			case jobs <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

func (s *Scheduler) buildTasks(variants []string) []*domain.FetchTask {
	tasks := make([]*domain.FetchTask, 0, len(variants)*len(s.sources))
	for _, v := range variants {
		for _, src := range s.sources {
			tasks = append(tasks, &domain.FetchTask{
				Variant: v,
				Source:  src.Source(),
				Status:  domain.TaskPending,
			})
		}
	}
	return tasks
}

func (s *Scheduler) runTask(ctx context.Context, task *domain.FetchTask) Outcome {
	task.Status = domain.TaskRunning

	src := s.sourceFor(task.Source)

	// The stop signal must not hard-kill in-flight I/O: each attempt gets a
	// context that survives run cancellation, bounded by the client's own
	// per-call timeout.
	callCtx := context.WithoutCancel(ctx)

	metered, _ := src.(domain.MeteredCollector)

	var (
		comments []domain.Comment
		err      error
	)
	for task.Attempts < maxAttempts {
		task.Attempts++
		if metered != nil {
			comments, task.KeyID, err = metered.FetchWithKey(callCtx, task.Variant, s.perFetchLimit)
		} else {
			comments, err = src.Fetch(callCtx, task.Variant, s.perFetchLimit)
		}
		if err == nil || !domain.Retryable(err) {
			break
		}
		s.logger.Warn("fetch attempt failed, retrying",
			"variant", task.Variant, "source", task.Source, "attempt", task.Attempts, "err", err)
	}

	if err != nil {
		task.Status = domain.TaskFailed
		s.logger.Error("task failed",
			"variant", task.Variant, "source", task.Source, "attempts", task.Attempts, "err", err)
		return Outcome{Task: task, Err: err}
	}

	task.Status = domain.TaskSucceeded
	for i := range comments {
		comments[i].Variant = task.Variant
	}
	s.logger.Info("task completed",
		"variant", task.Variant, "source", task.Source, "comments", len(comments))
	return Outcome{Task: task, Comments: comments}
}

func (s *Scheduler) sourceFor(kind domain.SourceKind) domain.Collector {
	for _, src := range s.sources {
		if src.Source() == kind {
			return src
		}
	}
	// buildTasks only emits kinds taken from s.sources.
	panic("scheduler: unknown source kind " + string(kind))
}
