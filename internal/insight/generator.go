package insight

import (
	"context"
	"fmt"

	"jobmate/coach-service/internal/llm"
)

// GenerateFunc performs the external generation call for one industry and
// returns its raw decoded output. Normalization is applied by the caller.
type GenerateFunc func(ctx context.Context) (map[string]any, error)

// Generator produces raw insight output for an industry.
type Generator interface {
	Generate(ctx context.Context, industry string) (map[string]any, error)
}

// LLMGenerator asks a text-generation model for an industry analysis.
type LLMGenerator struct {
	client llm.Client
}

// NewLLMGenerator returns a Generator backed by client.
func NewLLMGenerator(client llm.Client) *LLMGenerator {
	return &LLMGenerator{client: client}
}

// Generate prompts the model and runs the permissive parse stage.
func (g *LLMGenerator) Generate(ctx context.Context, industry string) (map[string]any, error) {
	text, err := g.client.GenerateText(ctx, Prompt(industry))
	if err != nil {
		return nil, err
	}
	return ParseRaw(text)
}

// For adapts a Generator to the GenerateFunc for one industry.
func For(g Generator, industry string) GenerateFunc {
	return func(ctx context.Context) (map[string]any, error) {
		return g.Generate(ctx, industry)
	}
}

// Prompt is the industry analysis request sent to the model.
func Prompt(industry string) string {
	return fmt.Sprintf(`Analyze the current state of the %s industry and return VALID JSON ONLY, in this format:
{
  "salaryRanges": [
    { "role": "string", "min": number, "max": number, "median": number }
  ],
  "growthRate": number,
  "demandLevel": "High" | "Medium" | "Low",
  "topSkills": ["skill1", "skill2"],
  "marketOutlook": "Positive" | "Neutral" | "Negative",
  "keyTrends": ["trend1", "trend2"],
  "recommendedSkills": ["skill1", "skill2"]
}
Include at least 5 common roles in salaryRanges, at least 5 skills and 5 trends.
growthRate is a percentage. No markdown. No comments. JSON only.`, industry)
}
