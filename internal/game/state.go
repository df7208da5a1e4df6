// Package game holds the mutable per-session state the engine resolves turns
// against. One State exists per session and is owned by it exclusively;
// static definitions stay in content and are never copied here.
package game

import (
	"storyengine/internal/content"
)

// PlayerID is the reserved owner id for the player in meters, inventory and
// presence.
const PlayerID = "player"

// Bounds for the rolling narrative logs. Events history is an append-only
// unique list so once-per-game checks stay valid for the whole session.
const (
	NarrativeHistoryCap = 50
	MemoryLogCap        = 100
)

// Clock is the in-game time. Day is 1-based and TimeHHMM wraps mod 1440.
type Clock struct {
	Day      int    `json:"day"`
	Slot     string `json:"slot"`
	TimeHHMM string `json:"time_hhmm"`
	Weekday  string `json:"weekday,omitempty"`
}

// ClothingState tracks a character's current outfit and per-layer state.
type ClothingState struct {
	CurrentOutfit string            `json:"current_outfit"`
	Layers        map[string]string `json:"layers"` // "intact", "displaced" or "removed"
}

// Modifier is an active overlay on a character. A nil duration is permanent
// until explicitly removed.
type Modifier struct {
	ID       string `json:"id"`
	Duration *int   `json:"duration"`
}

// ArcState is the progression of one arc: the current stage (empty until the
// first transition) and every stage entered so far.
type ArcState struct {
	Stage   string   `json:"stage"`
	History []string `json:"history"`
}

// State is the full mutable game state. Every mutation goes through the
// effect resolver or the clock; conditions, choices and discovery only read.
type State struct {
	TurnCount       int    `json:"turn_count"`
	CurrentNode     string `json:"current_node"`
	CurrentLocation string `json:"current_location"`
	CurrentZone     string `json:"current_zone"`
	Time            Clock  `json:"time"`

	Meters        map[string]map[string]float64 `json:"meters"`    // owner -> meter -> value
	Flags         map[string]any                `json:"flags"`     // typed by static flag schema
	Inventory     map[string]map[string]int     `json:"inventory"` // owner -> item -> count
	LocationItems map[string]map[string]int     `json:"location_items"`

	ClothingStates map[string]ClothingState `json:"clothing_states"`
	Modifiers      map[string][]Modifier    `json:"modifiers"`

	Arcs                map[string]*ArcState `json:"arcs"`
	CompletedMilestones []string             `json:"completed_milestones"`
	Cooldowns           map[string]int       `json:"cooldowns"`

	DiscoveredLocations []string `json:"discovered_locations"`
	DiscoveredZones     []string `json:"discovered_zones"`
	PresentCharacters   []string `json:"present_characters"`

	UnlockedActions []string `json:"unlocked_actions"`
	UnlockedOutfits []string `json:"unlocked_outfits"`
	UnlockedEndings []string `json:"unlocked_endings"`

	NarrativeHistory []string `json:"narrative_history"`
	MemoryLog        []string `json:"memory_log"`
	EventsHistory    []string `json:"events_history"`
}

// NewState builds the session-start state from definition defaults.
func NewState(idx *content.Index) *State {
	def := idx.Def
	s := &State{
		CurrentNode:     def.Meta.StartNode,
		CurrentLocation: def.Meta.StartLocation,
		Time:            Clock{Day: def.Time.StartDay, TimeHHMM: def.Time.Start},
		Meters:          map[string]map[string]float64{},
		Flags:           map[string]any{},
		Inventory:       map[string]map[string]int{PlayerID: {}},
		LocationItems:   map[string]map[string]int{},
		ClothingStates:  map[string]ClothingState{},
		Modifiers:       map[string][]Modifier{},
		Arcs:            map[string]*ArcState{},
		Cooldowns:       map[string]int{},
	}

	if loc, ok := idx.Location(def.Meta.StartLocation); ok {
		s.CurrentZone = loc.Zone
	}

	playerMeters := map[string]float64{}
	for _, m := range def.Meters {
		playerMeters[m.ID] = m.Default
	}
	s.Meters[PlayerID] = playerMeters

	for _, f := range def.Flags {
		s.Flags[f.ID] = normalizeFlagValue(f.Default)
	}

	for _, c := range def.Characters {
		meters := map[string]float64{}
		for _, m := range def.Meters {
			if m.PlayerOnly {
				continue
			}
			meters[m.ID] = m.Default
		}
		for id, v := range c.Meters {
			meters[id] = v
		}
		s.Meters[c.ID] = meters

		inv := map[string]int{}
		for id, n := range c.Inventory {
			inv[id] = n
		}
		s.Inventory[c.ID] = inv

		cs := ClothingState{CurrentOutfit: c.Outfit, Layers: map[string]string{}}
		if outfit, ok := idx.Outfit(c.Outfit); ok {
			for _, layer := range outfit.Layers {
				cs.Layers[layer] = "intact"
			}
		}
		s.ClothingStates[c.ID] = cs
		s.Modifiers[c.ID] = []Modifier{}
	}

	for _, a := range def.Arcs {
		s.Arcs[a.ID] = &ArcState{}
	}

	for _, l := range def.Locations {
		items := map[string]int{}
		for id, n := range l.Items {
			items[id] = n
		}
		s.LocationItems[l.ID] = items
		if l.Discovered {
			s.DiscoveredLocations = append(s.DiscoveredLocations, l.ID)
		}
	}
	for _, z := range def.Zones {
		if z.Discovered {
			s.DiscoveredZones = append(s.DiscoveredZones, z.ID)
		}
	}

	s.PresentCharacters = []string{PlayerID}
	return s
}

// Flag numbers always live as float64 so snapshots round-trip losslessly
// through JSON.
func normalizeFlagValue(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case float64, bool, string, nil:
		return v
	default:
		return v
	}
}

// MeterValue returns an owner's meter value, zero if absent.
func (s *State) MeterValue(owner, meter string) float64 {
	if owned, ok := s.Meters[owner]; ok {
		return owned[meter]
	}
	return 0
}

// ItemCount returns how many of an item an owner carries.
func (s *State) ItemCount(owner, item string) int {
	if inv, ok := s.Inventory[owner]; ok {
		return inv[item]
	}
	return 0
}

// HasItem reports whether an owner carries at least one of an item.
func (s *State) HasItem(owner, item string) bool {
	return s.ItemCount(owner, item) > 0
}

// IsPresent reports whether a character is at the player's location this turn.
func (s *State) IsPresent(characterID string) bool {
	for _, id := range s.PresentCharacters {
		if id == characterID {
			return true
		}
	}
	return false
}

// Discovered reports whether a location or zone id has been revealed.
func (s *State) Discovered(id string) bool {
	return contains(s.DiscoveredLocations, id) || contains(s.DiscoveredZones, id)
}

// Unlocked reports whether an id is in the named unlocked set.
func (s *State) Unlocked(kind, id string) bool {
	switch kind {
	case "actions":
		return contains(s.UnlockedActions, id)
	case "outfits":
		return contains(s.UnlockedOutfits, id)
	case "endings":
		return contains(s.UnlockedEndings, id)
	default:
		return false
	}
}

// HasModifier reports whether a character has an active modifier.
func (s *State) HasModifier(characterID, modifierID string) bool {
	for _, m := range s.Modifiers[characterID] {
		if m.ID == modifierID {
			return true
		}
	}
	return false
}

// EventFired reports whether an event has ever fired this session.
func (s *State) EventFired(eventID string) bool {
	return contains(s.EventsHistory, eventID)
}

// RecordEvent appends an event id to the history exactly once.
func (s *State) RecordEvent(eventID string) {
	if !s.EventFired(eventID) {
		s.EventsHistory = append(s.EventsHistory, eventID)
	}
}

// MilestoneReached reports whether a stage id is in the completed set.
func (s *State) MilestoneReached(stageID string) bool {
	return contains(s.CompletedMilestones, stageID)
}

// AddNarrative appends to the rolling narrative history, evicting the oldest
// entries past the cap.
func (s *State) AddNarrative(entry string) {
	s.NarrativeHistory = appendBounded(s.NarrativeHistory, entry, NarrativeHistoryCap)
}

// AddMemory appends to the rolling memory log.
func (s *State) AddMemory(entry string) {
	s.MemoryLog = appendBounded(s.MemoryLog, entry, MemoryLogCap)
}

func appendBounded(log []string, entry string, cap int) []string {
	log = append(log, entry)
	if len(log) > cap {
		log = log[len(log)-cap:]
	}
	return log
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
