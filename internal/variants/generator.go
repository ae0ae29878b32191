package variants

import (
	"context"
	"fmt"
	"strings"
)

// Generator expands one raw query into an ordered list of search variants.
// Implementations may fail; the orchestrator degrades to the raw query alone.
type Generator interface {
	Generate(ctx context.Context, rawQuery string, count int) ([]string, error)
}

// defaultPatterns are the proven high-yield shapes for opinion-heavy
// discussions. %s is replaced with the raw query.
var defaultPatterns = []string{
	"%s controversy",
	"%s debate",
	"%s opinions",
	"%s discussion",
	"%s reviews",
	"why %s",
	"best %s",
	"worst %s",
	"%s explained",
	"%s truth",
}

// StaticGenerator derives variants from fixed patterns. It never fails, which
// makes it both the offline default and the fallback behind the AI generator.
type StaticGenerator struct {
	patterns []string
}

// NewStaticGenerator uses the given patterns, or the built-in set when none
// are provided. Patterns must contain a %s placeholder.
func NewStaticGenerator(patterns []string) *StaticGenerator {
	valid := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if strings.Contains(p, "%s") {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		valid = defaultPatterns
	}
	return &StaticGenerator{patterns: valid}
}

// Generate returns the raw query first, then patterned variants, capped at
// count.
func (g *StaticGenerator) Generate(_ context.Context, rawQuery string, count int) ([]string, error) {
	rawQuery = strings.TrimSpace(rawQuery)
	if count < 1 {
		count = 1
	}

	out := []string{rawQuery}
	for _, p := range g.patterns {
		if len(out) >= count {
			break
		}
		out = append(out, fmt.Sprintf(p, rawQuery))
	}
	return out, nil
}

// Dedupe drops repeated variants while preserving order. Generators are not
// trusted to return unique strings.
func Dedupe(vs []string) []string {
	seen := make(map[string]struct{}, len(vs))
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
