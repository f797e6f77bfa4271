package llm

import (
	"regexp"
	"strings"
)

// fenceRe matches markdown code-fence markers with an optional language tag
// (```json, ```JSON, ```).
var fenceRe = regexp.MustCompile("```[A-Za-z0-9_-]*")

// StripFences removes code-fence markup around model output and trims it.
func StripFences(text string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
}

// ExtractJSON returns the JSON object embedded in model output: fences are
// stripped and, when the text carries prose around the object, only the
// outermost {...} span is kept. If no braces are present the stripped text
// is returned unchanged so the caller's decoder reports the error.
func ExtractJSON(text string) string {
	s := StripFences(text)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
