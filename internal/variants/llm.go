package variants

import (
	"context"
	"fmt"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

const generatorSystemPrompt = `You generate search queries for collecting public opinions.
Given a topic, produce diverse query variations that surface discussion-heavy
content: controversies, debates, reviews, questions people actually argue about.
Return only the queries, one per line, no numbering and no commentary.`

// LLMGenerator asks an Anthropic model for query variations.
type LLMGenerator struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
}

func NewLLMGenerator(apiKey string) *LLMGenerator {
	return &LLMGenerator{
		apiKey:      apiKey,
		model:       "claude-3-5-haiku-latest",
		maxTokens:   1024,
		temperature: 0.8,
	}
}

func (g *LLMGenerator) Generate(_ context.Context, rawQuery string, count int) ([]string, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("no generator api key configured")
	}
	if count < 1 {
		count = 1
	}

	userPrompt := fmt.Sprintf("Topic: %q\nGenerate %d query variations.", rawQuery, count)
	settings := types.RequestSettings{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	}

	response, err := anthropic.PromptWithSettings(generatorSystemPrompt, userPrompt, "", g.apiKey, settings)
	if err != nil {
		return nil, fmt.Errorf("variant generation failed: %w", err)
	}
	if len(response.Content) == 0 {
		return nil, fmt.Errorf("no content in generator response")
	}

	queries := ParseQueryLines(response.Content[0].Text, count)
	if len(queries) == 0 {
		return nil, fmt.Errorf("generator returned no usable queries")
	}
	return queries, nil
}

// ParseQueryLines extracts up to count queries from model output, stripping
// list markers and quotes the model tends to add anyway.
func ParseQueryLines(text string, count int) []string {
	var queries []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.-*) ")
		line = strings.Trim(line, `"'`)
		if line == "" {
			continue
		}
		queries = append(queries, line)
		if len(queries) >= count {
			break
		}
	}
	return Dedupe(queries)
}
