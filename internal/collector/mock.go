package collector

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/HamzaaAkmal/Get-Opinion/internal/domain"
)

// MockClient implements Collector but returns fake data.
type MockClient struct {
	Kind domain.SourceKind
}

func NewMockClient(kind domain.SourceKind) *MockClient {
	return &MockClient{Kind: kind}
}

func (mc *MockClient) Source() domain.SourceKind { return mc.Kind }

func (mc *MockClient) Fetch(ctx context.Context, query string, limit int) ([]domain.Comment, error) {
	// Simulate network latency (nice for testing concurrency)
	select {
	case <-time.After(200 * time.Millisecond):
	case <-ctx.Done():
		return nil, domain.NewFetchError(domain.ErrTimeout, mc.Kind, ctx.Err())
	}

	var comments []domain.Comment
	for i := 0; i < limit; i++ {
		text := fmt.Sprintf("Simulated opinion #%d about %q", i, query)
		comments = append(comments, domain.Comment{
			Source:      mc.Kind,
			Fingerprint: domain.NewFingerprint(text, "simulated_user", mc.Kind),
			Text:        text,
			Author:      "simulated_user",
			Likes:       rand.Intn(500),
			PublishedAt: time.Now().UTC(),
			OriginID:    fmt.Sprintf("mock_%s_%d", mc.Kind, i),
			OriginTitle: "Simulated discussion thread",
		})
	}
	return comments, nil
}
