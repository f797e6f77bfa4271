package insight_test

import (
	"encoding/json"
	"errors"
	"testing"

	"jobmate/coach-service/internal/insight"
)

func TestParseRaw_AcceptsObjects(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"bare", `{"growthRate": 5}`},
		{"json fence", "```json\n{\"growthRate\": 5}\n```"},
		{"plain fence", "```\n{\"growthRate\": 5}\n```"},
		{"prose around", "Here is the analysis:\n{\"growthRate\": 5}\nHope this helps."},
		{"padded", "  \n{\"growthRate\": 5}\n\t"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obj, err := insight.ParseRaw(tc.text)
			if err != nil {
				t.Fatalf("ParseRaw: %v", err)
			}
			if got, ok := obj["growthRate"].(json.Number); !ok || got.String() != "5" {
				t.Errorf("growthRate = %#v, want json.Number(5)", obj["growthRate"])
			}
		})
	}
}

func TestParseRaw_RejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"only fences", "```json\n```"},
		{"prose", "I cannot help with that."},
		{"array", `[1, 2, 3]`},
		{"truncated", `{"growthRate": 5, "topSkills": ["Go"`},
		{"two objects", `{"a": 1} {"b": 2}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := insight.ParseRaw(tc.text)
			if !errors.Is(err, insight.ErrMalformedOutput) {
				t.Errorf("ParseRaw(%q) error = %v, want ErrMalformedOutput", tc.text, err)
			}
		})
	}
}
