// Package content holds the static game definition: the declarative world,
// characters, items, nodes, events and arcs that a session plays against.
// Definitions are immutable after load; the engine looks them up through Index.
package content

// Meta identifies a game and its starting position.
type Meta struct {
	ID            string `yaml:"id"`
	Title         string `yaml:"title"`
	Version       string `yaml:"version"`
	Author        string `yaml:"author"`
	StartNode     string `yaml:"start_node"`
	StartLocation string `yaml:"start_location"`
}

// MeterDef is a bounded numeric stat template. Decay fields are applied by the
// clock as ordinary meter_change effects on slot/day boundaries.
type MeterDef struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	Min          float64 `yaml:"min"`
	Max          float64 `yaml:"max"`
	Default      float64 `yaml:"default"`
	DecayPerSlot float64 `yaml:"decay_per_slot"`
	DecayPerDay  float64 `yaml:"decay_per_day"`
	PlayerOnly   bool    `yaml:"player_only"`
}

// FlagDef declares a named fact and fixes its type. Writes to undeclared
// flags are silently dropped by the resolver.
type FlagDef struct {
	ID      string `yaml:"id"`
	Type    string `yaml:"type"` // "bool", "number" or "string"
	Default any    `yaml:"default"`
}

// Item is a carryable or wearable object. Non-stackable items clamp to
// at most one per owner.
type Item struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Stackable  bool     `yaml:"stackable"`
	Consumable bool     `yaml:"consumable"`
	Price      float64  `yaml:"price"`
	Layer      string   `yaml:"layer"` // clothing layer this item occupies, if wearable
	OnGet      []Effect `yaml:"on_get"`
	OnLost     []Effect `yaml:"on_lost"`
	OnUse      []Effect `yaml:"on_use"`
}

// ModifierDef is a temporary overlay on a character. Modifiers sharing an
// exclusive group evict each other on apply.
type ModifierDef struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Group           string   `yaml:"group"`
	Exclusive       bool     `yaml:"exclusive"`
	DefaultDuration *int     `yaml:"duration"`
	OnEnter         []Effect `yaml:"on_enter"`
	OnExit          []Effect `yaml:"on_exit"`
}

// ScheduleEntry places a character at a location during a slot. An empty slot
// matches every slot; When further gates the entry.
type ScheduleEntry struct {
	Slot     string     `yaml:"slot"`
	Location string     `yaml:"location"`
	When     *Condition `yaml:"when"`
}

type Character struct {
	ID        string             `yaml:"id"`
	Name      string             `yaml:"name"`
	Meters    map[string]float64 `yaml:"meters"` // starting overrides, keyed by meter id
	Inventory map[string]int     `yaml:"inventory"`
	Outfit    string             `yaml:"outfit"`
	Schedule  []ScheduleEntry    `yaml:"schedule"`
}

type Location struct {
	ID           string         `yaml:"id"`
	Zone         string         `yaml:"zone"`
	Name         string         `yaml:"name"`
	Privacy      string         `yaml:"privacy"` // "public", "semi" or "private"
	Connections  []string       `yaml:"connections"`
	Items        map[string]int `yaml:"items"`
	Discovered   bool           `yaml:"discovered"`
	DiscoverWhen *Condition     `yaml:"discover_when"`
}

type Zone struct {
	ID           string     `yaml:"id"`
	Name         string     `yaml:"name"`
	Discovered   bool       `yaml:"discovered"`
	DiscoverWhen *Condition `yaml:"discover_when"`
}

// Outfit names the clothing layers a character wears while it is current.
type Outfit struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Layers []string `yaml:"layers"`
}

// Choice is a player-selectable option, on nodes, events or as an unlocked
// action.
type Choice struct {
	ID      string     `yaml:"id"`
	Label   string     `yaml:"label"`
	When    *Condition `yaml:"when"`
	Effects []Effect   `yaml:"effects"`
	Goto    string     `yaml:"goto"`
	Minutes int        `yaml:"minutes"` // explicit time cost; overrides category lookup
}

// Node is a position in the story graph. Type "ending" is terminal: no
// further actions are accepted there.
type Node struct {
	ID      string   `yaml:"id"`
	Title   string   `yaml:"title"`
	Type    string   `yaml:"type"` // "scene", "hub" or "ending"
	Beats   []string `yaml:"beats"`
	Choices []Choice `yaml:"choices"`
	OnEnter []Effect `yaml:"on_enter"`
}

// Event is authored content that can fire outside the node flow. Probability
// below 100 places the event in the per-turn random pool; omitted means the
// event fires whenever eligible, while an explicit 0 never fires.
type Event struct {
	ID          string      `yaml:"id"`
	Title       string      `yaml:"title"`
	Location    string      `yaml:"location"` // scope: only eligible here, if set
	Probability *float64    `yaml:"probability"`
	Cooldown    int         `yaml:"cooldown"` // turns before the event may fire again
	OncePerGame bool        `yaml:"once_per_game"`
	When        *Condition  `yaml:"when"`
	WhenAll     []Condition `yaml:"when_all"`
	WhenAny     []Condition `yaml:"when_any"`
	Beats       []string    `yaml:"beats"`
	Choices     []Choice    `yaml:"choices"`
	OnEnter     []Effect    `yaml:"on_enter"`
}

// Stage is a milestone within an arc. Stages advance first-match in declared
// order; authors express precedence through ordering.
type Stage struct {
	ID          string     `yaml:"id"`
	When        *Condition `yaml:"when"`
	OncePerGame bool       `yaml:"once_per_game"`
	OnEnter     []Effect   `yaml:"on_enter"`
	OnExit      []Effect   `yaml:"on_exit"`
}

type Arc struct {
	ID     string  `yaml:"id"`
	Title  string  `yaml:"title"`
	Stages []Stage `yaml:"stages"`
}

// ActionDef is a dynamic action that becomes available once unlocked.
type ActionDef struct {
	ID       string     `yaml:"id"`
	Label    string     `yaml:"label"`
	Category string     `yaml:"category"`
	Minutes  int        `yaml:"minutes"`
	When     *Condition `yaml:"when"`
	Effects  []Effect   `yaml:"effects"`
}

// SlotWindow is a named window of in-game time in minutes since midnight.
// Windows where Start > End span midnight.
type SlotWindow struct {
	ID    string `yaml:"id"`
	Start string `yaml:"start"` // "HH:MM"
	End   string `yaml:"end"`   // "HH:MM", exclusive
}

type TimeConfig struct {
	StartDay   int          `yaml:"start_day"`
	Start      string       `yaml:"start"` // "HH:MM"
	Weekdays   []string     `yaml:"weekdays"`
	Slots      []SlotWindow `yaml:"slots"`
	OnDayEnd   []Effect     `yaml:"on_day_end"`
	OnDayStart []Effect     `yaml:"on_day_start"`
}

// GameDefinition is the root of a loaded game. Slices keep authored order,
// which is semantically meaningful for events (random-pool walk) and arc
// stages (first-match advancement).
type GameDefinition struct {
	Meta            Meta           `yaml:"meta"`
	Time            TimeConfig     `yaml:"time"`
	DeltaCapPerTurn float64        `yaml:"delta_cap_per_turn"` // 0 disables the cap
	ActionCosts     map[string]int `yaml:"action_costs"`
	DefaultMinutes  int            `yaml:"default_minutes"`

	Meters     []MeterDef    `yaml:"meters"`
	Flags      []FlagDef     `yaml:"flags"`
	Items      []Item        `yaml:"items"`
	Modifiers  []ModifierDef `yaml:"modifiers"`
	Outfits    []Outfit      `yaml:"outfits"`
	Characters []Character   `yaml:"characters"`
	Zones      []Zone        `yaml:"zones"`
	Locations  []Location    `yaml:"locations"`
	Nodes      []Node        `yaml:"nodes"`
	Events     []Event       `yaml:"events"`
	Arcs       []Arc         `yaml:"arcs"`
	Actions    []ActionDef   `yaml:"actions"`
}
