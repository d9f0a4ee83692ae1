package grading

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// CheckAnswer compares a raw learner answer against the question's key.
// Returns true if the answer is correct. It never panics and is
// deterministic: malformed JSON and unknown widget types are simply wrong.
//
// Comparison rules:
//   - MCQ, TRUE_FALSE, YES_NO: trimmed scalar equality. Booleans and numbers
//     compare by their JSON text, so true matches "true".
//   - MCM: set equality (both sides sorted).
//   - ORDERING, FILL_BLANKS: exact sequence equality. Items are not trimmed
//     and keep their JSON type, so 1 does not match "1".
//   - MATCHING: deep equality of key to value maps.
func CheckAnswer(q Question, raw json.RawMessage) bool {
	switch q.WidgetType {
	case WidgetMCQ, WidgetTrueFalse, WidgetYesNo:
		want, err := scalar(q.CorrectAnswer)
		if err != nil {
			return false
		}
		got, err := scalar(raw)
		if err != nil {
			return false
		}
		return got == want

	case WidgetMCM:
		want, err := sequence(q.CorrectAnswer)
		if err != nil {
			return false
		}
		got, err := sequence(raw)
		if err != nil {
			return false
		}
		slices.Sort(want)
		slices.Sort(got)
		return slices.Equal(got, want)

	case WidgetOrdering, WidgetFillBlanks:
		want, err := sequence(q.CorrectAnswer)
		if err != nil {
			return false
		}
		got, err := sequence(raw)
		if err != nil {
			return false
		}
		return slices.Equal(got, want)

	case WidgetMatching:
		want, err := mapping(q.CorrectAnswer)
		if err != nil {
			return false
		}
		got, err := mapping(raw)
		if err != nil {
			return false
		}
		return cmp.Equal(got, want)

	default:
		return false
	}
}

func decode(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("empty answer")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after answer")
	}
	return v, nil
}

// scalar renders a JSON string, number or boolean as trimmed text.
func scalar(raw json.RawMessage) (string, error) {
	v, err := decode(raw)
	if err != nil {
		return "", err
	}
	return render(v)
}

func render(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", fmt.Errorf("not a scalar: %T", v)
	}
}

// sequence decodes a JSON array of scalars, keying each item on its
// canonical JSON text.
func sequence(raw json.RawMessage) ([]string, error) {
	v, err := decode(raw)
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("not an array: %T", v)
	}
	out := make([]string, len(items))
	for i, it := range items {
		s, err := literal(it)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// literal renders a scalar as JSON text without normalizing it.
func literal(v any) (string, error) {
	switch t := v.(type) {
	case string:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", fmt.Errorf("not a scalar: %T", v)
	}
}

// mapping decodes a JSON object, keeping nested values as decoded.
func mapping(raw json.RawMessage) (map[string]any, error) {
	v, err := decode(raw)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("not an object: %T", v)
	}
	return m, nil
}
