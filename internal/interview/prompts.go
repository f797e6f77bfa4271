package interview

import (
	"fmt"
	"strings"

	"jobmate/coach-service/internal/model"
)

func quizPrompt(industry string, skills []string) string {
	expertise := ""
	if len(skills) > 0 {
		expertise = " with expertise in " + strings.Join(skills, ", ")
	}
	return fmt.Sprintf(`Generate exactly %d high-quality technical interview questions for a %s professional%s.

Requirements:
- Each question must be multiple choice.
- Provide exactly %d options per question.
- Options must be plausible and non-repetitive.
- The correct answer must be one of the %d options.
- Explanations should be concise and technically accurate (1-2 sentences).
- Avoid overly simple questions unless they are fundamental to the domain.

Return ONLY valid JSON, with no text before or after it, in this structure:
{
  "questions": [
    {
      "question": "string",
      "options": ["string", "string", "string", "string"],
      "correctAnswer": "string",
      "explanation": "string"
    }
  ]
}`, QuestionCount, industry, expertise, OptionCount, OptionCount)
}

func tipPrompt(industry string, wrong []model.QuestionResult) string {
	parts := make([]string, 0, len(wrong))
	for _, q := range wrong {
		parts = append(parts, fmt.Sprintf("Question: %q\nCorrect Answer: %q\nUser Answer: %q", q.Question, q.Answer, q.UserAnswer))
	}
	return fmt.Sprintf(`The user answered some %s technical interview questions incorrectly.

Here are the questions they got wrong:
%s

Using only the knowledge gaps these mistakes suggest, write a concise improvement tip.
Focus on the underlying skill or concept to strengthen. Do not restate the mistakes
or the question text. Keep it encouraging and actionable, 1-2 sentences, plain text only.`,
		industry, strings.Join(parts, "\n\n"))
}
