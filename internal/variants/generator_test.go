package variants

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticGeneratorRawQueryFirst(t *testing.T) {
	t.Parallel()

	g := NewStaticGenerator(nil)

	got, err := g.Generate(context.Background(), "iphone 17", 4)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "iphone 17", got[0])
	assert.Equal(t, "iphone 17 controversy", got[1])
	assert.Equal(t, "iphone 17 debate", got[2])
	assert.Equal(t, "iphone 17 opinions", got[3])
}

func TestStaticGeneratorCustomPatterns(t *testing.T) {
	t.Parallel()

	g := NewStaticGenerator([]string{"is %s overrated", "no placeholder here", "%s pros and cons"})

	got, err := g.Generate(context.Background(), "rust", 10)
	require.NoError(t, err)
	// The pattern without a placeholder is dropped at construction.
	assert.Equal(t, []string{"rust", "is rust overrated", "rust pros and cons"}, got)
}

func TestStaticGeneratorCountFloor(t *testing.T) {
	t.Parallel()

	g := NewStaticGenerator(nil)

	got, err := g.Generate(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"q"}, got)
}

func TestStaticGeneratorAllPatternsInvalid(t *testing.T) {
	t.Parallel()

	g := NewStaticGenerator([]string{"broken", "also broken"})

	got, err := g.Generate(context.Background(), "topic", 3)
	require.NoError(t, err)
	// Falls back to the built-in patterns.
	assert.Equal(t, []string{"topic", "topic controversy", "topic debate"}, got)
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	got := Dedupe([]string{"Go generics", "go generics", "  ", "go performance", "Go generics "})
	assert.Equal(t, []string{"Go generics", "go performance"}, got)
}

func TestParseQueryLines(t *testing.T) {
	t.Parallel()

	text := "1. \"tesla build quality\"\n2) tesla autopilot debate\n- tesla resale value\n\n* tesla vs rivals\ntesla autopilot debate"

	got := ParseQueryLines(text, 10)
	assert.Equal(t, []string{
		"tesla build quality",
		"tesla autopilot debate",
		"tesla resale value",
		"tesla vs rivals",
	}, got)
}

func TestParseQueryLinesCap(t *testing.T) {
	t.Parallel()

	got := ParseQueryLines("a1\nb2\nc3", 2)
	assert.Equal(t, []string{"a1", "b2"}, got)
}

func TestNewLLMGeneratorRequiresKey(t *testing.T) {
	t.Parallel()

	g := NewLLMGenerator("")
	_, err := g.Generate(context.Background(), "q", 5)
	assert.ErrorContains(t, err, "api key")
}
