package jsonpath

import (
	"errors"
	"reflect"
	"testing"
)

func TestGetNestedValues(t *testing.T) {
	doc := map[string]any{
		"service": map[string]any{
			"name": "Food Pantry",
			"contacts": map[string]any{
				"phones": []any{
					map[string]any{"number": "555-0100"},
					map[string]any{"number": "555-0101"},
				},
			},
		},
	}

	value, ok := Get(doc, "service.name")
	if !ok || value != "Food Pantry" {
		t.Fatalf("expected service.name, got %v (ok=%v)", value, ok)
	}

	value, ok = Get(doc, "service.contacts.phones[1].number")
	if !ok || value != "555-0101" {
		t.Fatalf("expected second phone number, got %v (ok=%v)", value, ok)
	}
}

func TestGetMissingPathsNeverError(t *testing.T) {
	doc := map[string]any{"service": map[string]any{"name": "X"}}

	cases := []string{
		"service.url",
		"organization.name",
		"service.name.deeper",
		"service.phones[0]",
		"",
	}
	for _, path := range cases {
		if _, ok := Get(doc, path); ok {
			t.Fatalf("path %q should not resolve", path)
		}
	}

	if got := GetDefault(doc, "service.url", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %v", got)
	}
}

func TestSetCreatesIntermediates(t *testing.T) {
	doc := map[string]any{}
	if err := Set(doc, "service.contacts.phones[1].number", "555-0199"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	value, ok := Get(doc, "service.contacts.phones[1].number")
	if !ok || value != "555-0199" {
		t.Fatalf("expected value after set, got %v (ok=%v)", value, ok)
	}
	// Index 0 was padded in.
	if _, ok := Get(doc, "service.contacts.phones[0]"); !ok {
		t.Fatal("expected padded entry at index 0")
	}
}

func TestSetTypeMismatch(t *testing.T) {
	doc := map[string]any{"service": map[string]any{"name": "X"}}
	err := Set(doc, "service.name.deeper", "v")
	var mismatch *ErrTypeMismatch
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}

	doc = map[string]any{"service": map[string]any{"phones": "not-a-list"}}
	err = Set(doc, "service.phones[0]", "v")
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected list mismatch, got %v", err)
	}
}

func TestDeleteIsSilentOnMissingAncestors(t *testing.T) {
	doc := map[string]any{"service": map[string]any{"name": "X", "url": "http://x"}}

	Delete(doc, "service.url")
	if _, ok := Get(doc, "service.url"); ok {
		t.Fatal("expected service.url removed")
	}

	// No panic, no effect.
	Delete(doc, "organization.name")
	Delete(doc, "service.phones[3]")
	if _, ok := Get(doc, "service.name"); !ok {
		t.Fatal("unrelated field must survive")
	}
}

func TestLeaves(t *testing.T) {
	doc := map[string]any{
		"service": map[string]any{
			"name":   "X",
			"phones": []any{map[string]any{"number": "1"}, "raw"},
		},
		"sensitive": false,
	}

	got := Leaves(doc)
	want := []string{"sensitive", "service.name", "service.phones[0].number", "service.phones[1]"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("leaves mismatch:\n got %v\nwant %v", got, want)
	}

	if got := Leaves(map[string]any{}); len(got) != 0 {
		t.Fatalf("empty document must yield no leaves, got %v", got)
	}
}

func TestLeavesOrderIsDeterministic(t *testing.T) {
	doc := map[string]any{
		"zeta":  1.0,
		"alpha": map[string]any{"b": 1.0, "a": 2.0},
	}
	want := []string{"alpha.a", "alpha.b", "zeta"}
	for i := 0; i < 20; i++ {
		if got := Leaves(doc); !reflect.DeepEqual(got, want) {
			t.Fatalf("run %d: leaves must enumerate in sorted key order:\n got %v\nwant %v", i, got, want)
		}
	}
}
