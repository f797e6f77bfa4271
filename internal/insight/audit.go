package insight

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// rawSchema is the shape the generation prompt asks for. Audit checks
// against it to report degradation; Normalize never depends on it.
const rawSchema = `{
  "type": "object",
  "required": ["salaryRanges", "growthRate", "demandLevel", "marketOutlook",
               "topSkills", "keyTrends", "recommendedSkills"],
  "properties": {
    "salaryRanges": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["role", "min", "max", "median"],
        "properties": {
          "role":   {"type": "string", "minLength": 1},
          "min":    {"type": "number"},
          "max":    {"type": "number"},
          "median": {"type": "number"}
        }
      }
    },
    "growthRate":        {"type": "number"},
    "demandLevel":       {"type": "string", "pattern": "^(?i:high|medium|low)$"},
    "marketOutlook":     {"type": "string", "pattern": "^(?i:positive|neutral|negative)$"},
    "topSkills":         {"type": "array", "items": {"type": "string"}},
    "keyTrends":         {"type": "array", "items": {"type": "string"}},
    "recommendedSkills": {"type": "array", "items": {"type": "string"}}
  }
}`

var auditSchema = mustSchema(rawSchema)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("insight: invalid audit schema: %v", err))
	}
	return s
}

// Audit lists every way raw deviates from the requested shape. An empty
// result means Normalize will not need to coerce or default anything.
// Field names are matched with the same case-folding Normalize uses.
func Audit(raw any) []string {
	obj, ok := raw.(map[string]any)
	if !ok {
		return []string{fmt.Sprintf("(root): expected object, got %T", raw)}
	}

	res, err := auditSchema.Validate(gojsonschema.NewGoLoader(canonicalize(obj)))
	if err != nil {
		return []string{fmt.Sprintf("(root): %v", err)}
	}
	if res.Valid() {
		return nil
	}
	issues := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		issues = append(issues, e.String())
	}
	return issues
}

// canonicalize re-keys the known fields of obj under their canonical names
// and drops everything else.
func canonicalize(obj map[string]any) map[string]any {
	out := make(map[string]any, len(canonicalFields))
	for _, name := range canonicalFields {
		if v := lookup(obj, name); v != nil {
			out[name] = v
		}
	}
	return out
}

// DegradedError rejects generated output that needed coercion when strict
// validation is on.
type DegradedError struct {
	Issues []string
}

func (e *DegradedError) Error() string {
	return "generated insight failed validation: " + strings.Join(e.Issues, "; ")
}
