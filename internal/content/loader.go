package content

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a game definition from a YAML file. The returned
// definition is fully cross-reference checked; the engine trusts every goto,
// meter, item and location id it contains.
func Load(path string) (*GameDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a game definition from YAML bytes.
func Parse(data []byte) (*GameDefinition, error) {
	var def GameDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse game file: %w", err)
	}
	def.normalize()
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *GameDefinition) normalize() {
	if d.Time.StartDay < 1 {
		d.Time.StartDay = 1
	}
	if d.Time.Start == "" {
		d.Time.Start = "08:00"
	}
	if d.DefaultMinutes <= 0 {
		d.DefaultMinutes = 5
	}
	for i := range d.Events {
		// Omitted probability means the event fires whenever eligible; an
		// authored 0 stays 0 and never fires.
		if d.Events[i].Probability == nil {
			p := 100.0
			d.Events[i].Probability = &p
		}
	}
}

// Validate checks cross-references between sections. It is a load-time
// gate: the resolver downgrades any id that still fails to resolve at play
// time to a logged no-op.
func (d *GameDefinition) Validate() error {
	idx := NewIndex(d)

	if _, ok := idx.Node(d.Meta.StartNode); !ok {
		return fmt.Errorf("start_node %q not defined", d.Meta.StartNode)
	}
	if _, ok := idx.Location(d.Meta.StartLocation); !ok {
		return fmt.Errorf("start_location %q not defined", d.Meta.StartLocation)
	}
	for _, n := range d.Nodes {
		for _, c := range n.Choices {
			if c.Goto != "" {
				if _, ok := idx.Node(c.Goto); !ok {
					return fmt.Errorf("node %q choice %q: goto target %q not defined", n.ID, c.ID, c.Goto)
				}
			}
		}
	}
	for _, l := range d.Locations {
		for _, conn := range l.Connections {
			if _, ok := idx.Location(conn); !ok {
				return fmt.Errorf("location %q connects to undefined location %q", l.ID, conn)
			}
		}
		if l.Zone != "" {
			if _, ok := idx.Zone(l.Zone); !ok {
				return fmt.Errorf("location %q references undefined zone %q", l.ID, l.Zone)
			}
		}
	}
	for _, c := range d.Characters {
		for meterID := range c.Meters {
			if _, ok := idx.Meter(meterID); !ok {
				return fmt.Errorf("character %q references undefined meter %q", c.ID, meterID)
			}
		}
		for _, entry := range c.Schedule {
			if entry.Location != "" {
				if _, ok := idx.Location(entry.Location); !ok {
					return fmt.Errorf("character %q schedule references undefined location %q", c.ID, entry.Location)
				}
			}
		}
	}
	for _, ev := range d.Events {
		if ev.Location != "" {
			if _, ok := idx.Location(ev.Location); !ok {
				return fmt.Errorf("event %q scoped to undefined location %q", ev.ID, ev.Location)
			}
		}
	}
	return nil
}

// Index is the lookup surface over an immutable GameDefinition. All maps
// point into the definition's own slices.
type Index struct {
	Def *GameDefinition

	meters     map[string]*MeterDef
	flags      map[string]*FlagDef
	items      map[string]*Item
	modifiers  map[string]*ModifierDef
	outfits    map[string]*Outfit
	characters map[string]*Character
	zones      map[string]*Zone
	locations  map[string]*Location
	nodes      map[string]*Node
	events     map[string]*Event
	arcs       map[string]*Arc
	actions    map[string]*ActionDef
}

func NewIndex(def *GameDefinition) *Index {
	idx := &Index{
		Def:        def,
		meters:     make(map[string]*MeterDef, len(def.Meters)),
		flags:      make(map[string]*FlagDef, len(def.Flags)),
		items:      make(map[string]*Item, len(def.Items)),
		modifiers:  make(map[string]*ModifierDef, len(def.Modifiers)),
		outfits:    make(map[string]*Outfit, len(def.Outfits)),
		characters: make(map[string]*Character, len(def.Characters)),
		zones:      make(map[string]*Zone, len(def.Zones)),
		locations:  make(map[string]*Location, len(def.Locations)),
		nodes:      make(map[string]*Node, len(def.Nodes)),
		events:     make(map[string]*Event, len(def.Events)),
		arcs:       make(map[string]*Arc, len(def.Arcs)),
		actions:    make(map[string]*ActionDef, len(def.Actions)),
	}
	for i := range def.Meters {
		idx.meters[def.Meters[i].ID] = &def.Meters[i]
	}
	for i := range def.Flags {
		idx.flags[def.Flags[i].ID] = &def.Flags[i]
	}
	for i := range def.Items {
		idx.items[def.Items[i].ID] = &def.Items[i]
	}
	for i := range def.Modifiers {
		idx.modifiers[def.Modifiers[i].ID] = &def.Modifiers[i]
	}
	for i := range def.Outfits {
		idx.outfits[def.Outfits[i].ID] = &def.Outfits[i]
	}
	for i := range def.Characters {
		idx.characters[def.Characters[i].ID] = &def.Characters[i]
	}
	for i := range def.Zones {
		idx.zones[def.Zones[i].ID] = &def.Zones[i]
	}
	for i := range def.Locations {
		idx.locations[def.Locations[i].ID] = &def.Locations[i]
	}
	for i := range def.Nodes {
		idx.nodes[def.Nodes[i].ID] = &def.Nodes[i]
	}
	for i := range def.Events {
		idx.events[def.Events[i].ID] = &def.Events[i]
	}
	for i := range def.Arcs {
		idx.arcs[def.Arcs[i].ID] = &def.Arcs[i]
	}
	for i := range def.Actions {
		idx.actions[def.Actions[i].ID] = &def.Actions[i]
	}
	return idx
}

func (i *Index) Meter(id string) (*MeterDef, bool)       { m, ok := i.meters[id]; return m, ok }
func (i *Index) Flag(id string) (*FlagDef, bool)         { f, ok := i.flags[id]; return f, ok }
func (i *Index) Item(id string) (*Item, bool)            { it, ok := i.items[id]; return it, ok }
func (i *Index) Modifier(id string) (*ModifierDef, bool) { m, ok := i.modifiers[id]; return m, ok }
func (i *Index) Outfit(id string) (*Outfit, bool)        { o, ok := i.outfits[id]; return o, ok }
func (i *Index) Character(id string) (*Character, bool)  { c, ok := i.characters[id]; return c, ok }
func (i *Index) Zone(id string) (*Zone, bool)            { z, ok := i.zones[id]; return z, ok }
func (i *Index) Location(id string) (*Location, bool)    { l, ok := i.locations[id]; return l, ok }
func (i *Index) Node(id string) (*Node, bool)            { n, ok := i.nodes[id]; return n, ok }
func (i *Index) Event(id string) (*Event, bool)          { e, ok := i.events[id]; return e, ok }
func (i *Index) Arc(id string) (*Arc, bool)              { a, ok := i.arcs[id]; return a, ok }
func (i *Index) Action(id string) (*ActionDef, bool)     { a, ok := i.actions[id]; return a, ok }

// ActionMinutes resolves the time cost of an action category, with an
// explicit minutes override taking precedence.
func (i *Index) ActionMinutes(category string, override int) int {
	if override > 0 {
		return override
	}
	if cost, ok := i.Def.ActionCosts[category]; ok {
		return cost
	}
	return i.Def.DefaultMinutes
}
