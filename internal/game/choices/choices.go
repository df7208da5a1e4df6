// Package choices derives the player-visible surface of a turn: the choice
// list, newly discovered places and which characters are present. Everything
// here reads state; nothing mutates it except the discovery and presence
// refreshes, which only touch their own monotonic fields.
package choices

import (
	"storyengine/internal/content"
	"storyengine/internal/debug"
	"storyengine/internal/game"
	"storyengine/internal/game/expr"
)

// Option is a single player-visible choice.
type Option struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Source string `json:"source"` // "node", "event", "movement" or "action"
	Goto   string `json:"goto,omitempty"`
	Target string `json:"target,omitempty"` // movement destination
}

type Builder struct {
	state *game.State
	idx   *content.Index
	eval  *expr.Evaluator
	log   *debug.Logger
}

func NewBuilder(state *game.State, idx *content.Index, eval *expr.Evaluator, log *debug.Logger) *Builder {
	return &Builder{state: state, idx: idx, eval: eval, log: log}
}

// Build assembles node choices, this turn's event choices, movement options
// and unlocked dynamic actions, each individually gated by its condition.
func (b *Builder) Build(eventChoices []content.Choice) []Option {
	var options []Option

	if node, ok := b.idx.Node(b.state.CurrentNode); ok {
		for i := range node.Choices {
			c := &node.Choices[i]
			if !b.eval.Evaluate(c.When) {
				continue
			}
			options = append(options, Option{ID: c.ID, Label: c.Label, Source: "node", Goto: c.Goto})
		}
	}

	for i := range eventChoices {
		c := &eventChoices[i]
		if !b.eval.Evaluate(c.When) {
			continue
		}
		options = append(options, Option{ID: c.ID, Label: c.Label, Source: "event", Goto: c.Goto})
	}

	if loc, ok := b.idx.Location(b.state.CurrentLocation); ok {
		for _, conn := range loc.Connections {
			dest, ok := b.idx.Location(conn)
			if !ok {
				continue
			}
			options = append(options, Option{
				ID:     "move_" + dest.ID,
				Label:  "Go to " + dest.Name,
				Source: "movement",
				Target: dest.ID,
			})
		}
	}

	for _, actionID := range b.state.UnlockedActions {
		action, ok := b.idx.Action(actionID)
		if !ok {
			b.log.Printf("unlocked action %q has no definition", actionID)
			continue
		}
		if !b.eval.Evaluate(action.When) {
			continue
		}
		options = append(options, Option{ID: action.ID, Label: action.Label, Source: "action"})
	}

	return options
}

// Discovery reveals locations and zones whose discover conditions hold.
// Reveals are monotonic for the life of the session.
type Discovery struct {
	state *game.State
	idx   *content.Index
	eval  *expr.Evaluator
}

func NewDiscovery(state *game.State, idx *content.Index, eval *expr.Evaluator) *Discovery {
	return &Discovery{state: state, idx: idx, eval: eval}
}

// Refresh scans discover conditions and returns any newly revealed ids.
func (d *Discovery) Refresh() []string {
	var revealed []string
	for i := range d.idx.Def.Locations {
		loc := &d.idx.Def.Locations[i]
		if loc.DiscoverWhen == nil || d.state.Discovered(loc.ID) {
			continue
		}
		if d.eval.Evaluate(loc.DiscoverWhen) {
			d.state.DiscoveredLocations = append(d.state.DiscoveredLocations, loc.ID)
			revealed = append(revealed, loc.ID)
		}
	}
	for i := range d.idx.Def.Zones {
		zone := &d.idx.Def.Zones[i]
		if zone.DiscoverWhen == nil || d.state.Discovered(zone.ID) {
			continue
		}
		if d.eval.Evaluate(zone.DiscoverWhen) {
			d.state.DiscoveredZones = append(d.state.DiscoveredZones, zone.ID)
			revealed = append(revealed, zone.ID)
		}
	}
	return revealed
}

// Presence recomputes which characters share the player's location from
// their schedules. The player is always present.
type Presence struct {
	state *game.State
	idx   *content.Index
	eval  *expr.Evaluator
}

func NewPresence(state *game.State, idx *content.Index, eval *expr.Evaluator) *Presence {
	return &Presence{state: state, idx: idx, eval: eval}
}

// Refresh rebuilds present_characters in declared character order.
func (p *Presence) Refresh() {
	present := []string{game.PlayerID}
	for i := range p.idx.Def.Characters {
		c := &p.idx.Def.Characters[i]
		if p.scheduledHere(c) {
			present = append(present, c.ID)
		}
	}
	p.state.PresentCharacters = present
}

func (p *Presence) scheduledHere(c *content.Character) bool {
	for i := range c.Schedule {
		entry := &c.Schedule[i]
		if entry.Location != p.state.CurrentLocation {
			continue
		}
		if entry.Slot != "" && entry.Slot != p.state.Time.Slot {
			continue
		}
		if !p.eval.Evaluate(entry.When) {
			continue
		}
		return true
	}
	return false
}
