// Package jsonpatch implements the add/remove/replace subset of RFC6902
// JSON Patch over generic documents, plus diff and inverse helpers used by
// the review and bulk-operation workflows.
package jsonpatch

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Op is a single RFC6902 operation.
type Op struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// PatchError reports an operation that could not be applied.
type PatchError struct {
	Index int
	Op    Op
	Cause string
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("patch op %d (%s %s): %s", e.Index, e.Op.Op, e.Op.Path, e.Cause)
}

// ErrUnsupportedOp reports an op kind outside add/remove/replace.
type ErrUnsupportedOp struct {
	Kind string
}

func (e *ErrUnsupportedOp) Error() string {
	return fmt.Sprintf("unsupported patch operation: %q", e.Kind)
}

// ParseOps decodes a raw JSON value into an operation list, rejecting
// payloads that are not arrays of objects with an "op" and "path".
func ParseOps(raw json.RawMessage) ([]Op, error) {
	var ops []Op
	if err := json.Unmarshal(raw, &ops); err != nil {
		return nil, fmt.Errorf("patch must be a list of operations: %w", err)
	}
	for i, op := range ops {
		if op.Op == "" || op.Path == "" {
			return nil, fmt.Errorf("patch op %d is missing op or path", i)
		}
	}
	return ops, nil
}

// Apply runs ops against doc in order and returns the patched document.
// The input document is never mutated.
func Apply(doc any, ops []Op) (any, error) {
	result := deepCopy(doc)
	for i, op := range ops {
		var err error
		result, err = applyOne(result, op)
		if err != nil {
			if _, ok := err.(*ErrUnsupportedOp); ok {
				return nil, err
			}
			return nil, &PatchError{Index: i, Op: op, Cause: err.Error()}
		}
	}
	return result, nil
}

func applyOne(doc any, op Op) (any, error) {
	pointer, err := parsePointer(op.Path)
	if err != nil {
		return nil, err
	}
	switch op.Op {
	case "add":
		return pointerSet(doc, pointer, op.Value, true)
	case "replace":
		if _, err := pointerGet(doc, pointer); err != nil {
			return nil, err
		}
		return pointerSet(doc, pointer, op.Value, false)
	case "remove":
		return pointerRemove(doc, pointer)
	default:
		return nil, &ErrUnsupportedOp{Kind: op.Op}
	}
}

// Diff computes an op list transforming source into target such that
// Apply(source, Diff(source, target)) equals target.
func Diff(source, target any) []Op {
	var ops []Op
	diffValue("", source, target, &ops)
	return ops
}

func diffValue(pointer string, source, target any, ops *[]Op) {
	srcMap, srcIsMap := source.(map[string]any)
	tgtMap, tgtIsMap := target.(map[string]any)
	if srcIsMap && tgtIsMap {
		diffMaps(pointer, srcMap, tgtMap, ops)
		return
	}

	srcList, srcIsList := source.([]any)
	tgtList, tgtIsList := target.([]any)
	if srcIsList && tgtIsList {
		diffLists(pointer, srcList, tgtList, ops)
		return
	}

	if !equalValues(source, target) {
		*ops = append(*ops, Op{Op: "replace", Path: pointer, Value: target})
	}
}

func diffMaps(pointer string, source, target map[string]any, ops *[]Op) {
	keys := make([]string, 0, len(source)+len(target))
	seen := map[string]bool{}
	for key := range source {
		keys = append(keys, key)
		seen[key] = true
	}
	for key := range target {
		if !seen[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		child := pointer + "/" + escapeToken(key)
		srcValue, inSource := source[key]
		tgtValue, inTarget := target[key]
		switch {
		case inSource && !inTarget:
			*ops = append(*ops, Op{Op: "remove", Path: child})
		case !inSource && inTarget:
			*ops = append(*ops, Op{Op: "add", Path: child, Value: tgtValue})
		default:
			diffValue(child, srcValue, tgtValue, ops)
		}
	}
}

func diffLists(pointer string, source, target []any, ops *[]Op) {
	common := len(source)
	if len(target) < common {
		common = len(target)
	}
	for i := 0; i < common; i++ {
		diffValue(fmt.Sprintf("%s/%d", pointer, i), source[i], target[i], ops)
	}
	// Remove surplus source entries from the tail so indices stay valid.
	for i := len(source) - 1; i >= common; i-- {
		*ops = append(*ops, Op{Op: "remove", Path: fmt.Sprintf("%s/%d", pointer, i)})
	}
	for i := common; i < len(target); i++ {
		*ops = append(*ops, Op{Op: "add", Path: fmt.Sprintf("%s/%d", pointer, i), Value: target[i]})
	}
}

// Inverse builds the op list that reverts ops when applied to
// Apply(source, ops). It replays ops against a working copy of source,
// recording the displaced value before each mutation.
func Inverse(ops []Op, source any) ([]Op, error) {
	doc := deepCopy(source)
	inverse := make([]Op, 0, len(ops))
	for i, op := range ops {
		pointer, err := parsePointer(op.Path)
		if err != nil {
			return nil, &PatchError{Index: i, Op: op, Cause: err.Error()}
		}
		var undo Op
		switch op.Op {
		case "add":
			undo = Op{Op: "remove", Path: op.Path}
		case "remove":
			old, err := pointerGet(doc, pointer)
			if err != nil {
				return nil, &PatchError{Index: i, Op: op, Cause: err.Error()}
			}
			undo = Op{Op: "add", Path: op.Path, Value: old}
		case "replace":
			old, err := pointerGet(doc, pointer)
			if err != nil {
				return nil, &PatchError{Index: i, Op: op, Cause: err.Error()}
			}
			undo = Op{Op: "replace", Path: op.Path, Value: old}
		default:
			return nil, &ErrUnsupportedOp{Kind: op.Op}
		}
		doc, err = applyOne(doc, op)
		if err != nil {
			return nil, &PatchError{Index: i, Op: op, Cause: err.Error()}
		}
		inverse = append([]Op{undo}, inverse...)
	}
	return inverse, nil
}

// --- JSON pointer plumbing -------------------------------------------------

func parsePointer(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("empty pointer")
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("pointer must start with '/': %q", path)
	}
	raw := strings.Split(path[1:], "/")
	tokens := make([]string, len(raw))
	for i, token := range raw {
		token = strings.ReplaceAll(token, "~1", "/")
		token = strings.ReplaceAll(token, "~0", "~")
		tokens[i] = token
	}
	return tokens, nil
}

func escapeToken(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

func pointerGet(doc any, tokens []string) (any, error) {
	current := doc
	for _, token := range tokens {
		switch typed := current.(type) {
		case map[string]any:
			value, ok := typed[token]
			if !ok {
				return nil, fmt.Errorf("member %q not found", token)
			}
			current = value
		case []any:
			idx, err := listIndex(token, len(typed))
			if err != nil {
				return nil, err
			}
			current = typed[idx]
		default:
			return nil, fmt.Errorf("cannot traverse %q through a scalar", token)
		}
	}
	return current, nil
}

func pointerSet(doc any, tokens []string, value any, insert bool) (any, error) {
	if len(tokens) == 0 {
		return deepCopy(value), nil
	}
	head, rest := tokens[0], tokens[1:]
	switch typed := doc.(type) {
	case map[string]any:
		if len(rest) == 0 {
			typed[head] = deepCopy(value)
			return typed, nil
		}
		child, ok := typed[head]
		if !ok {
			return nil, fmt.Errorf("member %q not found", head)
		}
		updated, err := pointerSet(child, rest, value, insert)
		if err != nil {
			return nil, err
		}
		typed[head] = updated
		return typed, nil
	case []any:
		if len(rest) == 0 && insert {
			if head == "-" {
				return append(typed, deepCopy(value)), nil
			}
			idx, err := listIndex(head, len(typed)+1)
			if err != nil {
				return nil, err
			}
			typed = append(typed, nil)
			copy(typed[idx+1:], typed[idx:])
			typed[idx] = deepCopy(value)
			return typed, nil
		}
		idx, err := listIndex(head, len(typed))
		if err != nil {
			return nil, err
		}
		if len(rest) == 0 {
			typed[idx] = deepCopy(value)
			return typed, nil
		}
		updated, err := pointerSet(typed[idx], rest, value, insert)
		if err != nil {
			return nil, err
		}
		typed[idx] = updated
		return typed, nil
	default:
		return nil, fmt.Errorf("cannot set %q inside a scalar", head)
	}
}

func pointerRemove(doc any, tokens []string) (any, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("cannot remove the whole document")
	}
	head, rest := tokens[0], tokens[1:]
	switch typed := doc.(type) {
	case map[string]any:
		if len(rest) == 0 {
			if _, ok := typed[head]; !ok {
				return nil, fmt.Errorf("member %q not found", head)
			}
			delete(typed, head)
			return typed, nil
		}
		child, ok := typed[head]
		if !ok {
			return nil, fmt.Errorf("member %q not found", head)
		}
		updated, err := pointerRemove(child, rest)
		if err != nil {
			return nil, err
		}
		typed[head] = updated
		return typed, nil
	case []any:
		idx, err := listIndex(head, len(typed))
		if err != nil {
			return nil, err
		}
		if len(rest) == 0 {
			return append(typed[:idx], typed[idx+1:]...), nil
		}
		updated, err := pointerRemove(typed[idx], rest)
		if err != nil {
			return nil, err
		}
		typed[idx] = updated
		return typed, nil
	default:
		return nil, fmt.Errorf("cannot remove %q from a scalar", head)
	}
}

func listIndex(token string, length int) (int, error) {
	idx, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("invalid array index %q", token)
	}
	if idx < 0 || idx >= length {
		return 0, fmt.Errorf("array index %d out of range", idx)
	}
	return idx, nil
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, child := range typed {
			out[key] = deepCopy(child)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, child := range typed {
			out[i] = deepCopy(child)
		}
		return out
	default:
		return typed
	}
}

func equalValues(a, b any) bool {
	aJSON, errA := json.Marshal(a)
	bJSON, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aJSON) == string(bJSON)
}
