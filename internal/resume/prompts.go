package resume

import "fmt"

func improvePrompt(section, industry, current string) string {
	audience := "a professional"
	if industry != "" {
		audience = fmt.Sprintf("a %s professional", industry)
	}
	return fmt.Sprintf(`You are a senior professional resume writer and ATS optimization expert.

Rewrite the following %s for %s to be impactful, results-driven and aligned with modern industry standards.

CURRENT CONTENT:
%q

GOALS:
- Use strong, varied action verbs.
- Quantify achievements with metrics (%%, $, time, scale) wherever realistic.
- Emphasize relevant technical and domain-specific skills.
- Work industry keywords in naturally so the text passes ATS screening.
- Focus on outcomes and impact, not duties.
- Remove filler words and redundancy.

FORMAT:
- Output exactly ONE concise paragraph.
- No bullet points, headings, explanations or commentary.

Return ONLY the rewritten paragraph.`, section, audience, current)
}
