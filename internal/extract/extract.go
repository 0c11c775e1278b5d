// Package extract locates and parses a JSON value embedded in generated text.
package extract

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrUnparsable is returned when no JSON value of the expected root type
// can be recovered from the text.
var ErrUnparsable = errors.New("unparsable generation output")

// Root is the JSON type a schema expects at its top level.
type Root int

const (
	RootObject Root = iota
	RootArray
)

func (r Root) String() string {
	if r == RootArray {
		return "array"
	}
	return "object"
}

func (r Root) brackets() (byte, byte) {
	if r == RootArray {
		return '[', ']'
	}
	return '{', '}'
}

// Extract strips code fences, attempts a direct parse and then falls back to
// the span between the first opening and last closing bracket of the root
// type. The parsed value is returned only when its root type matches.
func Extract(text string, root Root) (any, error) {
	s := StripFences(text)
	if v, err := decode(s); err == nil {
		if matches(v, root) {
			return v, nil
		}
		return nil, ErrUnparsable
	}
	open, close := root.brackets()
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end <= start {
		return nil, ErrUnparsable
	}
	v, err := decode(s[start : end+1])
	if err != nil || !matches(v, root) {
		return nil, ErrUnparsable
	}
	return v, nil
}

// StripFences removes a byte order mark, surrounding whitespace and a
// markdown code fence (``` or ```json) around the payload.
func StripFences(text string) string {
	s := strings.TrimPrefix(text, "\ufeff")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(strings.TrimPrefix(s, "```"), "json")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func decode(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func matches(v any, root Root) bool {
	switch v.(type) {
	case map[string]any:
		return root == RootObject
	case []any:
		return root == RootArray
	default:
		return false
	}
}
