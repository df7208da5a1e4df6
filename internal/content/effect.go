package content

// Effect kinds understood by the resolver. Anything else parses into an
// effect the resolver logs and skips.
const (
	EffectMeterChange     = "meter_change"
	EffectFlagSet         = "flag_set"
	EffectInventoryAdd    = "inventory_add"
	EffectInventoryRemove = "inventory_remove"
	EffectInventoryTake   = "inventory_take"
	EffectInventoryDrop   = "inventory_drop"
	EffectApplyModifier   = "apply_modifier"
	EffectRemoveModifier  = "remove_modifier"
	EffectClothingSet     = "clothing_set"
	EffectOutfitChange    = "outfit_change"
	EffectGotoNode        = "goto_node"
	EffectMoveTo          = "move_to"
	EffectDiscover        = "discover"
	EffectConditional     = "conditional"
	EffectRandom          = "random"
	EffectUnlock          = "unlock"
	EffectLock            = "lock"
	EffectAdvanceTime     = "advance_time"
)

// Meter operations for meter_change.
const (
	OpAdd      = "add"
	OpSubtract = "subtract"
	OpMultiply = "multiply"
	OpDivide   = "divide"
	OpSet      = "set"
)

// RandomBranch is one weighted outcome of a random effect.
type RandomBranch struct {
	Name    string   `yaml:"name" json:"name"`
	Weight  float64  `yaml:"weight" json:"weight"`
	Effects []Effect `yaml:"effects" json:"effects"`
}

// Effect is a single declarative state mutation, a tagged union discriminated
// by Type. Only the fields relevant to a given Type are populated; the
// resolver checks When immediately before applying, against already-mutated
// state from earlier effects in the same batch.
type Effect struct {
	Type string     `yaml:"type" json:"type"`
	When *Condition `yaml:"when,omitempty" json:"-"`

	// meter_change
	Owner string `yaml:"owner,omitempty" json:"owner,omitempty"` // defaults to "player"
	Meter string `yaml:"meter,omitempty" json:"meter,omitempty"`
	Op    string `yaml:"op,omitempty" json:"op,omitempty"`
	Value any    `yaml:"value,omitempty" json:"value,omitempty"` // number for meters, any for flags

	// flag_set
	Flag string `yaml:"flag,omitempty" json:"flag,omitempty"`

	// inventory_*
	Item     string `yaml:"item,omitempty" json:"item,omitempty"`
	Count    int    `yaml:"count,omitempty" json:"count,omitempty"`
	Location string `yaml:"location,omitempty" json:"location,omitempty"` // take/drop counterpart

	// apply_modifier / remove_modifier
	Modifier  string `yaml:"modifier,omitempty" json:"modifier,omitempty"`
	Character string `yaml:"character,omitempty" json:"character,omitempty"`
	Duration  *int   `yaml:"duration,omitempty" json:"duration,omitempty"`

	// clothing_set / outfit_change
	Layer  string `yaml:"layer,omitempty" json:"layer,omitempty"`
	State  string `yaml:"state,omitempty" json:"state,omitempty"` // intact, displaced or removed
	Outfit string `yaml:"outfit,omitempty" json:"outfit,omitempty"`

	// goto_node
	Node string `yaml:"node,omitempty" json:"node,omitempty"`

	// advance_time
	Minutes int `yaml:"minutes,omitempty" json:"minutes,omitempty"`

	// unlock / lock
	Kind string `yaml:"kind,omitempty" json:"kind,omitempty"` // "actions", "outfits" or "endings"
	ID   string `yaml:"id,omitempty" json:"id,omitempty"`

	// conditional / random
	Then      []Effect       `yaml:"then,omitempty" json:"then,omitempty"`
	Otherwise []Effect       `yaml:"otherwise,omitempty" json:"otherwise,omitempty"`
	Branches  []RandomBranch `yaml:"branches,omitempty" json:"branches,omitempty"`
}

// NumValue coerces Value to a float64 for meter math. Non-numeric values
// report false.
func (e Effect) NumValue() (float64, bool) {
	switch v := e.Value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
