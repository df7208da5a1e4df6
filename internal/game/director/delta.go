package director

import "storyengine/internal/content"

// StateDelta is the structured result of checking a turn's narration. Every
// field maps one-to-one onto an authored effect, so applying a delta goes
// through the same resolver as everything else.
type StateDelta struct {
	Meters      []MeterOp     `json:"meters,omitempty"`
	Inventory   []InventoryOp `json:"inventory,omitempty"`
	Flags       []FlagOp      `json:"flags,omitempty"`
	Clothing    []ClothingOp  `json:"clothing,omitempty"`
	Discoveries []string      `json:"discoveries,omitempty"`
	Modifiers   []ModifierOp  `json:"modifiers,omitempty"`
	Memory      []string      `json:"memory,omitempty"`
}

type MeterOp struct {
	Owner string  `json:"owner"`
	Meter string  `json:"meter"`
	Op    string  `json:"op"`
	Value float64 `json:"value"`
}

type InventoryOp struct {
	Owner  string `json:"owner"`
	Item   string `json:"item"`
	Action string `json:"action"` // add or remove
	Count  int    `json:"count"`
}

type FlagOp struct {
	Flag  string `json:"flag"`
	Value any    `json:"value"`
}

type ClothingOp struct {
	Character string `json:"character"`
	Layer     string `json:"layer"`
	State     string `json:"state"`
}

type ModifierOp struct {
	Character string `json:"character"`
	Modifier  string `json:"modifier"`
	Action    string `json:"action"` // apply or remove
	Duration  *int   `json:"duration,omitempty"`
}

func (d *StateDelta) IsEmpty() bool {
	if d == nil {
		return true
	}
	return len(d.Meters) == 0 && len(d.Inventory) == 0 && len(d.Flags) == 0 &&
		len(d.Clothing) == 0 && len(d.Discoveries) == 0 && len(d.Modifiers) == 0 &&
		len(d.Memory) == 0
}

// Effects converts the delta into authored-effect form. The caller applies
// the whole slice or nothing, so a rejected delta never half-lands.
func (d *StateDelta) Effects() []content.Effect {
	if d.IsEmpty() {
		return nil
	}

	var effects []content.Effect
	for _, m := range d.Meters {
		op := m.Op
		if op == "" {
			op = content.OpAdd
		}
		effects = append(effects, content.Effect{
			Type:  content.EffectMeterChange,
			Owner: m.Owner,
			Meter: m.Meter,
			Op:    op,
			Value: m.Value,
		})
	}
	for _, inv := range d.Inventory {
		kind := content.EffectInventoryAdd
		if inv.Action == "remove" {
			kind = content.EffectInventoryRemove
		}
		count := inv.Count
		if count <= 0 {
			count = 1
		}
		effects = append(effects, content.Effect{
			Type:  kind,
			Owner: inv.Owner,
			Item:  inv.Item,
			Count: count,
		})
	}
	for _, f := range d.Flags {
		effects = append(effects, content.Effect{
			Type:  content.EffectFlagSet,
			Flag:  f.Flag,
			Value: f.Value,
		})
	}
	for _, c := range d.Clothing {
		effects = append(effects, content.Effect{
			Type:      content.EffectClothingSet,
			Character: c.Character,
			Layer:     c.Layer,
			State:     c.State,
		})
	}
	for _, id := range d.Discoveries {
		effects = append(effects, content.Effect{
			Type: content.EffectDiscover,
			ID:   id,
		})
	}
	for _, m := range d.Modifiers {
		kind := content.EffectApplyModifier
		if m.Action == "remove" {
			kind = content.EffectRemoveModifier
		}
		effects = append(effects, content.Effect{
			Type:      kind,
			Character: m.Character,
			Modifier:  m.Modifier,
			Duration:  m.Duration,
		})
	}
	return effects
}
