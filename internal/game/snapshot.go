package game

import (
	"encoding/json"
	"fmt"
)

// Snapshot serializes the state to a plain mapping. Together with Restore it
// forms the session save contract: a round trip preserves every field.
func (s *State) Snapshot() (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot state: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return out, nil
}

// Restore rebuilds a state from a snapshot mapping.
func Restore(snapshot map[string]any) (*State, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to restore state: %w", err)
	}
	s.ensureMaps()
	return &s, nil
}

// ensureMaps replaces nil maps with empty ones so restored states mutate
// safely.
func (s *State) ensureMaps() {
	if s.Meters == nil {
		s.Meters = map[string]map[string]float64{}
	}
	if s.Flags == nil {
		s.Flags = map[string]any{}
	}
	if s.Inventory == nil {
		s.Inventory = map[string]map[string]int{}
	}
	if s.LocationItems == nil {
		s.LocationItems = map[string]map[string]int{}
	}
	if s.ClothingStates == nil {
		s.ClothingStates = map[string]ClothingState{}
	}
	if s.Modifiers == nil {
		s.Modifiers = map[string][]Modifier{}
	}
	if s.Arcs == nil {
		s.Arcs = map[string]*ArcState{}
	}
	if s.Cooldowns == nil {
		s.Cooldowns = map[string]int{}
	}
}
