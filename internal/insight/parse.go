package insight

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"jobmate/coach-service/internal/llm"
)

// ErrMalformedOutput is returned when generated text holds no JSON object.
var ErrMalformedOutput = errors.New("generated text is not a JSON object")

// ParseRaw is the permissive first parsing stage: it strips code fences,
// isolates the outermost JSON object and decodes it into a generic map.
// Numbers are kept as json.Number so Normalize sees the exact text.
func ParseRaw(text string) (map[string]any, error) {
	body := llm.ExtractJSON(text)
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: empty output", ErrMalformedOutput)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformedOutput)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrMalformedOutput, v)
	}
	return obj, nil
}
