// Package jsonpath provides helpers to access and mutate values inside
// nested documents (map[string]any / []any) using dotted paths with
// optional list indices, for example: contacts.phones[0].number.
package jsonpath

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrTypeMismatch reports an intermediate node whose shape does not match
// the next path segment (a scalar where a list index is expected, etc.).
type ErrTypeMismatch struct {
	Segment string
	Want    string
}

func (e *ErrTypeMismatch) Error() string {
	return fmt.Sprintf("expected %s at segment %q", e.Want, e.Segment)
}

// Token is one parsed path segment: a map key with an optional list index.
type Token struct {
	Key   string
	Index int // -1 when the segment carries no index
}

var segmentRe = regexp.MustCompile(`^([^.\[]+)(?:\[(\d+)\])?$`)

// Parse splits a dotted path into tokens.
func Parse(path string) ([]Token, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}
	segments := strings.Split(path, ".")
	tokens := make([]Token, 0, len(segments))
	for _, segment := range segments {
		match := segmentRe.FindStringSubmatch(segment)
		if match == nil {
			return nil, fmt.Errorf("invalid path segment: %q", segment)
		}
		token := Token{Key: match[1], Index: -1}
		if match[2] != "" {
			idx, err := strconv.Atoi(match[2])
			if err != nil {
				return nil, fmt.Errorf("invalid index in segment %q: %w", segment, err)
			}
			token.Index = idx
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// Get returns the value at path inside doc. The boolean reports whether the
// full path resolved; missing keys, bad indices and shape mismatches all
// report false rather than an error.
func Get(doc any, path string) (any, bool) {
	tokens, err := Parse(path)
	if err != nil {
		return nil, false
	}
	current := doc
	for _, token := range tokens {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		value, ok := obj[token.Key]
		if !ok {
			return nil, false
		}
		current = value
		if token.Index >= 0 {
			list, ok := current.([]any)
			if !ok || token.Index >= len(list) {
				return nil, false
			}
			current = list[token.Index]
		}
	}
	return current, true
}

// GetDefault returns the value at path, or def when the path is absent.
func GetDefault(doc any, path string, def any) any {
	if value, ok := Get(doc, path); ok {
		return value
	}
	return def
}

// Set writes value at path inside doc, creating intermediate maps and
// lists as needed. Lists are padded with nils up to the target index.
func Set(doc map[string]any, path string, value any) error {
	tokens, err := Parse(path)
	if err != nil {
		return err
	}
	var current any = doc
	for i, token := range tokens {
		last := i == len(tokens)-1
		obj, ok := current.(map[string]any)
		if !ok {
			return &ErrTypeMismatch{Segment: token.Key, Want: "object"}
		}
		if last {
			if token.Index < 0 {
				obj[token.Key] = value
				return nil
			}
			list, err := listAt(obj, token.Key)
			if err != nil {
				return err
			}
			for len(list) <= token.Index {
				list = append(list, nil)
			}
			list[token.Index] = value
			obj[token.Key] = list
			return nil
		}

		if token.Index < 0 {
			child, ok := obj[token.Key]
			if !ok || child == nil {
				child = map[string]any{}
				obj[token.Key] = child
			}
			if _, ok := child.(map[string]any); !ok {
				return &ErrTypeMismatch{Segment: token.Key, Want: "object"}
			}
			current = child
			continue
		}

		list, err := listAt(obj, token.Key)
		if err != nil {
			return err
		}
		for len(list) <= token.Index {
			list = append(list, map[string]any{})
		}
		if _, ok := list[token.Index].(map[string]any); !ok {
			list[token.Index] = map[string]any{}
		}
		obj[token.Key] = list
		current = list[token.Index]
	}
	return nil
}

func listAt(obj map[string]any, key string) ([]any, error) {
	child, ok := obj[key]
	if !ok || child == nil {
		return []any{}, nil
	}
	list, ok := child.([]any)
	if !ok {
		return nil, &ErrTypeMismatch{Segment: key, Want: "list"}
	}
	return list, nil
}

// Delete removes the leaf at path if present. Missing ancestors are a
// silent no-op.
func Delete(doc map[string]any, path string) {
	tokens, err := Parse(path)
	if err != nil {
		return
	}
	var current any = doc
	for i, token := range tokens {
		obj, ok := current.(map[string]any)
		if !ok {
			return
		}
		last := i == len(tokens)-1
		if last {
			if token.Index < 0 {
				delete(obj, token.Key)
				return
			}
			list, ok := obj[token.Key].([]any)
			if !ok || token.Index >= len(list) {
				return
			}
			obj[token.Key] = append(list[:token.Index], list[token.Index+1:]...)
			return
		}
		child, ok := obj[token.Key]
		if !ok {
			return
		}
		current = child
		if token.Index >= 0 {
			list, ok := current.([]any)
			if !ok || token.Index >= len(list) {
				return
			}
			current = list[token.Index]
		}
	}
}

// Leaves returns dotted paths for every leaf (non-container) node in doc.
// Map keys are visited in sorted order and list entries in index order, so
// the output is deterministic for a given document.
func Leaves(doc any) []string {
	var out []string
	collectLeaves(doc, "", &out)
	return out
}

func collectLeaves(node any, prefix string, out *[]string) {
	switch typed := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			collectLeaves(typed[key], next, out)
		}
	case []any:
		for idx, value := range typed {
			next := fmt.Sprintf("%s[%d]", prefix, idx)
			if prefix == "" {
				next = fmt.Sprintf("[%d]", idx)
			}
			collectLeaves(value, next, out)
		}
	default:
		if prefix != "" {
			*out = append(*out, prefix)
		}
	}
}
