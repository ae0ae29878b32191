package collector

import (
	"github.com/HamzaaAkmal/Get-Opinion/internal/domain"
)

// The collector package holds the domain.Collector implementations: the
// quota-metered YouTube client, both Reddit variants, and a mock for offline
// runs.

// keep drops trivial comments before they reach the aggregator.
func keep(text string) bool {
	return len(text) >= domain.MinCommentLength
}
