package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedResponse matches every *ParseError.
var ErrMalformedResponse = errors.New("malformed LLM response")

// ParseError describes model output that could not be turned into the
// expected payload. It is never retried by the pipeline: the response is
// kept (truncated) for diagnosis instead.
type ParseError struct {
	// Expected is "array" or "object".
	Expected string
	// Excerpt is the start of the raw response.
	Excerpt string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed LLM response: expected JSON %s: %v", e.Expected, e.Cause)
	}
	return fmt.Sprintf("malformed LLM response: expected JSON %s", e.Expected)
}

// Is makes errors.Is(err, ErrMalformedResponse) hold for any ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

const parseExcerptLength = 200

// thinkTagPattern matches <think>...</think> blocks reasoning models prepend.
var thinkTagPattern = regexp.MustCompile(`(?s)^\s*<think>.*?</think>\s*`)

// fencedJSONPattern matches the first ```json fenced block.
var fencedJSONPattern = regexp.MustCompile("(?s)```json\\s*\\n?(.*?)```")

// ParseArray decodes a JSON array from a model response.
// The whole response is tried first, then the first ```json fenced block.
// On failure it returns an empty, non-nil slice and a *ParseError.
func ParseArray[T any](raw string) ([]T, error) {
	return ParseArrayWithSchema[T](raw, nil)
}

// ParseArrayWithSchema is ParseArray with the decoded document also checked
// against schema. A schema mismatch is a parse failure.
func ParseArrayWithSchema[T any](raw string, schema *Schema) ([]T, error) {
	var out []T
	if err := parseInto(raw, "array", '[', schema, &out); err != nil {
		return []T{}, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// ParseObject decodes a JSON object from a model response with the same
// fallbacks as ParseArray. On failure it returns the zero value and a *ParseError.
func ParseObject[T any](raw string) (T, error) {
	return ParseObjectWithSchema[T](raw, nil)
}

// ParseObjectWithSchema is ParseObject with a schema check.
func ParseObjectWithSchema[T any](raw string, schema *Schema) (T, error) {
	var out T
	if err := parseInto(raw, "object", '{', schema, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func parseInto(raw, expected string, open byte, schema *Schema, target any) error {
	cleaned := strings.TrimSpace(thinkTagPattern.ReplaceAllString(raw, ""))

	candidates := []string{cleaned}
	if m := fencedJSONPattern.FindStringSubmatch(cleaned); len(m) == 2 {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}

	var lastErr error
	for _, candidate := range candidates {
		doc := []byte(candidate)
		if len(doc) == 0 || doc[0] != open {
			lastErr = fmt.Errorf("response is not a JSON %s", expected)
			continue
		}
		if !json.Valid(doc) {
			lastErr = fmt.Errorf("invalid JSON")
			continue
		}
		if schema != nil {
			if err := schema.Validate(doc); err != nil {
				return &ParseError{Expected: expected, Excerpt: excerpt(raw), Cause: err}
			}
		}
		dec := json.NewDecoder(bytes.NewReader(doc))
		if err := dec.Decode(target); err != nil {
			lastErr = fmt.Errorf("decode: %w", err)
			continue
		}
		return nil
	}

	return &ParseError{Expected: expected, Excerpt: excerpt(raw), Cause: lastErr}
}

func excerpt(raw string) string {
	if len(raw) <= parseExcerptLength {
		return raw
	}
	return raw[:parseExcerptLength] + "..."
}
