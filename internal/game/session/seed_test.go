package session

import "testing"

func TestFixedSeed(t *testing.T) {
	if got := fixedSeed(1337, 0); got != 1337 {
		t.Errorf("turn 0 uses the base seed, got %d", got)
	}
	if got := fixedSeed(1337, 1); got != 1337 {
		t.Errorf("turn 1 uses the base seed, got %d", got)
	}
	if got := fixedSeed(1337, 3); got != 4011 {
		t.Errorf("expected base*turn, got %d", got)
	}
}

func TestGeneratedSeed(t *testing.T) {
	a := generatedSeed("campus", "s1", 1)
	if b := generatedSeed("campus", "s1", 1); a != b {
		t.Error("same triple must hash identically")
	}
	if b := generatedSeed("campus", "s1", 2); a == b {
		t.Error("different turns must diverge")
	}
	if b := generatedSeed("campus", "s2", 1); a == b {
		t.Error("different sessions must diverge")
	}
	if b := generatedSeed("other", "s1", 1); a == b {
		t.Error("different games must diverge")
	}
	// The NUL separator keeps shifted field boundaries apart.
	if generatedSeed("ab", "c", 1) == generatedSeed("a", "bc", 1) {
		t.Error("field boundaries must not collide")
	}
}
