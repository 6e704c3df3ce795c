package versioning

import (
	"reflect"
	"testing"
)

func TestBuildETagMap(t *testing.T) {
	etags := BuildETagMap(map[string]int{"service.url": 3, "service.name": 1})
	want := map[string]string{"service.url": "v3", "service.name": "v1"}
	if !reflect.DeepEqual(etags, want) {
		t.Fatalf("etag map mismatch: %v", etags)
	}
}

func TestResourceETagStability(t *testing.T) {
	a := ResourceETag(map[string]int{"service.url": 1, "service.name": 2})
	b := ResourceETag(map[string]int{"service.name": 2, "service.url": 1})
	if a != b {
		t.Fatalf("etag must not depend on map order: %s vs %s", a, b)
	}
	if a == "" || a[:3] != `W/"` {
		t.Fatalf("expected weak etag token, got %q", a)
	}
}

func TestResourceETagSensitivity(t *testing.T) {
	base := ResourceETag(map[string]int{"service.url": 1, "service.name": 2})

	bumped := ResourceETag(map[string]int{"service.url": 2, "service.name": 2})
	if bumped == base {
		t.Fatal("bumping a version must change the etag")
	}

	added := ResourceETag(map[string]int{"service.url": 1, "service.name": 2, "service.email": 1})
	if added == base {
		t.Fatal("tracking a new field must change the etag")
	}

	if ResourceETag(map[string]int{"service.name": 2, "service.url": 1}) != base {
		t.Fatal("unchanged versions must reproduce the identical etag")
	}
}

func TestAssertVersions(t *testing.T) {
	current := map[string]int{"service.url": 2, "service.name": 1}

	if got := AssertVersions(current, map[string]int{"service.url": 2}); len(got) != 0 {
		t.Fatalf("matching assertion must pass, got %v", got)
	}

	got := AssertVersions(current, map[string]int{"service.url": 1, "service.name": 1, "service.email": 3})
	want := []string{"service.email", "service.url"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("mismatch list wrong: got %v want %v", got, want)
	}

	// A field never written asserts as 0.
	if got := AssertVersions(current, map[string]int{"service.email": 0}); len(got) != 0 {
		t.Fatalf("asserting 0 for untracked field must pass, got %v", got)
	}
}
