package jobs

import (
	"regexp"
	"testing"
)

var idPattern = regexp.MustCompile(`^mockup_\d{14}_\d{1,4}$`)

func TestNewIDFormat(t *testing.T) {
	id := NewID("mockup")
	if !idPattern.MatchString(id) {
		t.Fatalf("id %q does not match expected pattern", id)
	}
}

func TestNewIDEmptyPrefix(t *testing.T) {
	id := NewID("")
	if id == "" {
		t.Fatal("expected non-empty id")
	}
	if !regexp.MustCompile(`^job_\d{14}_\d{1,4}$`).MatchString(id) {
		t.Fatalf("id %q missing default prefix", id)
	}
}

func TestNewIDBurstDistinct(t *testing.T) {
	// Same-millisecond launches must still get distinct ids.
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID("mockup")
		if seen[id] {
			t.Fatalf("duplicate id in burst: %s", id)
		}
		seen[id] = true
	}
}
