package session

import (
	"errors"
	"testing"
)

func TestRegistryLifecycle(t *testing.T) {
	reg := NewRegistry()

	rt, initial, err := reg.Create(Options{Def: campusDef()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rt.ID() == "" {
		t.Error("expected a generated session id")
	}
	if initial == nil || len(initial.Choices) == 0 {
		t.Errorf("expected initial choices from session start, got %+v", initial)
	}

	got, err := reg.Get(rt.ID())
	if err != nil || got != rt {
		t.Fatalf("expected same runtime back, got %v, %v", got, err)
	}

	reg.Remove(rt.ID())
	if _, err := reg.Get(rt.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after remove, got %v", err)
	}
}

func TestRegistryCreateWithID(t *testing.T) {
	reg := NewRegistry()

	rt, _, err := reg.CreateWithID("replay-7", Options{Def: campusDef()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rt.ID() != "replay-7" {
		t.Errorf("expected caller-chosen id, got %q", rt.ID())
	}

	if _, err := reg.Get("replay-7"); err != nil {
		t.Errorf("expected session registered, got %v", err)
	}
}

func TestRegistryCreateRequiresDefinition(t *testing.T) {
	reg := NewRegistry()
	if _, _, err := reg.Create(Options{}); err == nil {
		t.Fatal("expected error without a game definition")
	}
}
