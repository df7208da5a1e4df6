package game

import (
	"fmt"
	"reflect"
	"testing"

	"storyengine/internal/content"
)

func stateDef() *content.GameDefinition {
	return &content.GameDefinition{
		Meta: content.Meta{ID: "g", StartNode: "intro", StartLocation: "quad"},
		Time: content.TimeConfig{StartDay: 1, Start: "08:00"},
		Meters: []content.MeterDef{
			{ID: "energy", Min: 0, Max: 100, Default: 80},
			{ID: "focus", Min: 0, Max: 100, Default: 50, PlayerOnly: true},
		},
		Flags: []content.FlagDef{
			{ID: "met", Type: "bool", Default: false},
			{ID: "visits", Type: "number", Default: 3},
			{ID: "mood", Type: "string", Default: "calm"},
		},
		Items: []content.Item{{ID: "coffee", Stackable: true}},
		Outfits: []content.Outfit{
			{ID: "casual", Layers: []string{"top", "bottom"}},
		},
		Characters: []content.Character{
			{ID: "alex", Outfit: "casual",
				Meters:    map[string]float64{"energy": 60},
				Inventory: map[string]int{"coffee": 1},
			},
		},
		Zones: []content.Zone{
			{ID: "campus", Discovered: true},
			{ID: "downtown"},
		},
		Locations: []content.Location{
			{ID: "quad", Zone: "campus", Discovered: true, Items: map[string]int{"coffee": 2}},
			{ID: "library", Zone: "campus"},
		},
		Nodes: []content.Node{{ID: "intro"}},
		Arcs:  []content.Arc{{ID: "friendship"}},
	}
}

func TestNewStateDefaults(t *testing.T) {
	idx := content.NewIndex(stateDef())
	s := NewState(idx)

	if s.CurrentNode != "intro" || s.CurrentLocation != "quad" || s.CurrentZone != "campus" {
		t.Errorf("unexpected start position %q/%q/%q", s.CurrentNode, s.CurrentLocation, s.CurrentZone)
	}
	if s.Time.Day != 1 || s.Time.TimeHHMM != "08:00" {
		t.Errorf("unexpected start time %+v", s.Time)
	}
	if got := s.MeterValue(PlayerID, "energy"); got != 80 {
		t.Errorf("expected player energy 80, got %v", got)
	}
	if got := s.MeterValue("alex", "energy"); got != 60 {
		t.Errorf("expected character override 60, got %v", got)
	}
	if _, ok := s.Meters["alex"]["focus"]; ok {
		t.Error("player-only meter must not be seeded on characters")
	}
	if s.Flags["met"] != false || s.Flags["visits"] != float64(3) || s.Flags["mood"] != "calm" {
		t.Errorf("unexpected flag defaults %v", s.Flags)
	}
	if got := s.ItemCount("alex", "coffee"); got != 1 {
		t.Errorf("expected alex to start with coffee, got %d", got)
	}
	if got := s.LocationItems["quad"]["coffee"]; got != 2 {
		t.Errorf("expected quad stocked with coffee, got %d", got)
	}
	cs := s.ClothingStates["alex"]
	if cs.CurrentOutfit != "casual" || cs.Layers["top"] != "intact" {
		t.Errorf("unexpected clothing state %+v", cs)
	}
	if !s.Discovered("quad") || !s.Discovered("campus") || s.Discovered("library") {
		t.Error("unexpected initial discovery set")
	}
	if s.Arcs["friendship"] == nil || s.Arcs["friendship"].Stage != "" {
		t.Errorf("expected empty arc state, got %+v", s.Arcs["friendship"])
	}
	if len(s.PresentCharacters) != 1 || s.PresentCharacters[0] != PlayerID {
		t.Errorf("expected only the player present, got %v", s.PresentCharacters)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	idx := content.NewIndex(stateDef())
	s := NewState(idx)

	two := 2
	s.TurnCount = 9
	s.CurrentNode = "intro"
	s.Flags["met"] = true
	s.Flags["visits"] = float64(4)
	s.Meters[PlayerID]["energy"] = 42.5
	s.Inventory[PlayerID]["coffee"] = 3
	s.Modifiers["alex"] = []Modifier{{ID: "relaxed", Duration: &two}}
	s.Arcs["friendship"].Stage = "met"
	s.Arcs["friendship"].History = []string{"met"}
	s.CompletedMilestones = []string{"met"}
	s.Cooldowns["patrol"] = 2
	s.DiscoveredLocations = append(s.DiscoveredLocations, "library")
	s.UnlockedActions = []string{"flirt"}
	s.AddNarrative("The quad is quiet.")
	s.AddMemory("Alex likes coffee.")
	s.RecordEvent("welcome")

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	restored, err := Restore(snap)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if !reflect.DeepEqual(s, restored) {
		t.Fatalf("round trip diverged:\n got %+v\nwant %+v", restored, s)
	}
}

func TestRestoreEmptySnapshot(t *testing.T) {
	restored, err := Restore(map[string]any{})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	// All maps must be usable after restore.
	restored.Flags["x"] = true
	restored.Cooldowns["y"] = 1
	restored.Meters[PlayerID] = map[string]float64{"energy": 1}
}

func TestRecordEventUnique(t *testing.T) {
	idx := content.NewIndex(stateDef())
	s := NewState(idx)

	s.RecordEvent("welcome")
	s.RecordEvent("welcome")
	if len(s.EventsHistory) != 1 {
		t.Errorf("expected single history entry, got %v", s.EventsHistory)
	}
	if !s.EventFired("welcome") || s.EventFired("other") {
		t.Error("unexpected EventFired results")
	}
}

func TestNarrativeHistoryBounded(t *testing.T) {
	idx := content.NewIndex(stateDef())
	s := NewState(idx)

	for i := 0; i < NarrativeHistoryCap+5; i++ {
		s.AddNarrative(fmt.Sprintf("entry %d", i))
	}
	if len(s.NarrativeHistory) != NarrativeHistoryCap {
		t.Fatalf("expected history capped at %d, got %d", NarrativeHistoryCap, len(s.NarrativeHistory))
	}
	if s.NarrativeHistory[0] != "entry 5" {
		t.Errorf("expected oldest entries evicted, got %q", s.NarrativeHistory[0])
	}
}

func TestUnlockedKinds(t *testing.T) {
	idx := content.NewIndex(stateDef())
	s := NewState(idx)

	s.UnlockedOutfits = []string{"formal"}
	if !s.Unlocked("outfits", "formal") {
		t.Error("expected formal unlocked")
	}
	if s.Unlocked("actions", "formal") || s.Unlocked("wardrobe", "formal") {
		t.Error("unlock sets must not bleed across kinds")
	}
}
