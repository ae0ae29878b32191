package aggregator

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HamzaaAkmal/Get-Opinion/internal/domain"
)

func task(variant string, source domain.SourceKind) *domain.FetchTask {
	return &domain.FetchTask{Variant: variant, Source: source, Status: domain.TaskSucceeded}
}

func comments(source domain.SourceKind, texts ...string) []domain.Comment {
	out := make([]domain.Comment, 0, len(texts))
	for _, text := range texts {
		out = append(out, domain.Comment{
			Source:      source,
			Fingerprint: domain.NewFingerprint(text, "author", source),
			Text:        text,
			Author:      "author",
		})
	}
	return out
}

func TestIngestDeduplicatesAcrossTasks(t *testing.T) {
	t.Parallel()

	agg := New(10, 2)

	d1 := agg.Ingest(task("a", domain.SourceYouTube), comments(domain.SourceYouTube, "hello", "world"))
	assert.Equal(t, 2, d1.Accepted)

	// Same fingerprints from a different task add at most zero.
	d2 := agg.Ingest(task("b", domain.SourceYouTube), comments(domain.SourceYouTube, "hello", "world"))
	assert.Equal(t, 0, d2.Accepted)

	assert.Equal(t, 2, agg.Progress().Accepted)
}

func TestIngestTrimsBatchAtTarget(t *testing.T) {
	t.Parallel()

	agg := New(3, 1)

	delta := agg.Ingest(task("a", domain.SourceReddit),
		comments(domain.SourceReddit, "one", "two", "three", "four", "five"))

	assert.Equal(t, 3, delta.Accepted)
	assert.True(t, delta.TargetReached)
	assert.Len(t, agg.Accepted(), 3)
}

func TestIngestAfterTargetIsNoOp(t *testing.T) {
	t.Parallel()

	agg := New(2, 3)

	agg.Ingest(task("a", domain.SourceReddit), comments(domain.SourceReddit, "one", "two"))
	delta := agg.Ingest(task("b", domain.SourceReddit), comments(domain.SourceReddit, "three"))

	assert.Equal(t, 0, delta.Accepted)
	assert.True(t, delta.TargetReached)
	assert.Len(t, agg.Accepted(), 2)
	// The task still counts toward completion.
	assert.Equal(t, 2, agg.Progress().TasksCompleted)
}

func TestIngestComputesMissingFingerprints(t *testing.T) {
	t.Parallel()

	agg := New(10, 1)

	delta := agg.Ingest(task("a", domain.SourceYouTube), []domain.Comment{
		{Source: domain.SourceYouTube, Text: "some opinion", Author: "alice"},
		{Source: domain.SourceYouTube, Text: "Some  OPINION", Author: "alice"},
	})

	assert.Equal(t, 1, delta.Accepted)
	require.Len(t, agg.Accepted(), 1)
	assert.NotEmpty(t, agg.Accepted()[0].Fingerprint)
}

func TestAcceptedNeverExceedsTarget(t *testing.T) {
	t.Parallel()

	const target = 50
	agg := New(target, 20)

	for i := 0; i < 20; i++ {
		batch := make([]domain.Comment, 10)
		for j := range batch {
			text := fmt.Sprintf("comment %d-%d", i, j)
			batch[j] = domain.Comment{
				Source:      domain.SourceReddit,
				Fingerprint: domain.NewFingerprint(text, "a", domain.SourceReddit),
				Text:        text,
			}
		}
		agg.Ingest(task(fmt.Sprint(i), domain.SourceReddit), batch)
	}

	assert.Len(t, agg.Accepted(), target)
	assert.Equal(t, 20, agg.Progress().TasksCompleted)
}

func TestConcurrentIngestKeepsInvariant(t *testing.T) {
	t.Parallel()

	const (
		workers = 8
		target  = 200
	)
	agg := New(target, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			batch := make([]domain.Comment, 100)
			for j := range batch {
				// Half the space overlaps across workers.
				text := fmt.Sprintf("comment %d", (w%2)*100+j)
				batch[j] = domain.Comment{
					Source:      domain.SourceYouTube,
					Fingerprint: domain.NewFingerprint(text, "a", domain.SourceYouTube),
					Text:        text,
				}
			}
			agg.Ingest(task(fmt.Sprint(w), domain.SourceYouTube), batch)
		}(w)
	}
	wg.Wait()

	accepted := agg.Accepted()
	assert.Equal(t, target, len(accepted))

	seen := make(map[string]bool)
	for _, c := range accepted {
		assert.False(t, seen[c.Fingerprint], "duplicate fingerprint accepted")
		seen[c.Fingerprint] = true
	}
	assert.Equal(t, workers, agg.Progress().TasksCompleted)
}
