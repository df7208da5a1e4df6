package director

import (
	"context"
	"testing"

	"storyengine/internal/content"
)

func TestStateDeltaIsEmpty(t *testing.T) {
	var nilDelta *StateDelta
	if !nilDelta.IsEmpty() {
		t.Error("nil delta is empty")
	}
	if !(&StateDelta{}).IsEmpty() {
		t.Error("zero delta is empty")
	}
	if (&StateDelta{Memory: []string{"x"}}).IsEmpty() {
		t.Error("delta with memory is not empty")
	}
}

func TestStateDeltaEffects(t *testing.T) {
	two := 2
	d := &StateDelta{
		Meters:      []MeterOp{{Owner: "player", Meter: "energy", Value: 5}},
		Inventory:   []InventoryOp{{Owner: "player", Item: "coffee", Action: "remove", Count: 0}},
		Flags:       []FlagOp{{Flag: "met_alex", Value: true}},
		Clothing:    []ClothingOp{{Character: "alex", Layer: "top", State: "displaced"}},
		Discoveries: []string{"cellar"},
		Modifiers:   []ModifierOp{{Character: "alex", Modifier: "relaxed", Action: "apply", Duration: &two}},
	}

	effects := d.Effects()
	if len(effects) != 6 {
		t.Fatalf("expected 6 effects, got %d", len(effects))
	}

	if e := effects[0]; e.Type != content.EffectMeterChange || e.Op != content.OpAdd {
		t.Errorf("expected meter op to default to add, got %+v", e)
	}
	if e := effects[1]; e.Type != content.EffectInventoryRemove || e.Count != 1 {
		t.Errorf("expected remove with count defaulted to 1, got %+v", e)
	}
	if e := effects[2]; e.Type != content.EffectFlagSet || e.Flag != "met_alex" {
		t.Errorf("unexpected flag effect %+v", e)
	}
	if e := effects[3]; e.Type != content.EffectClothingSet || e.Layer != "top" {
		t.Errorf("unexpected clothing effect %+v", e)
	}
	if e := effects[4]; e.Type != content.EffectDiscover || e.ID != "cellar" {
		t.Errorf("unexpected discover effect %+v", e)
	}
	if e := effects[5]; e.Type != content.EffectApplyModifier || e.Duration == nil || *e.Duration != 2 {
		t.Errorf("unexpected modifier effect %+v", e)
	}

	if (&StateDelta{}).Effects() != nil {
		t.Error("empty delta converts to no effects")
	}
}

func TestMockDefaults(t *testing.T) {
	m := &Mock{}

	var chunks []string
	prose, err := m.Narrate(context.Background(), TurnContext{}, func(c string) {
		chunks = append(chunks, c)
	})
	if err != nil {
		t.Fatalf("narrate: %v", err)
	}
	if prose != "Time passes." {
		t.Errorf("expected default prose, got %q", prose)
	}
	if len(chunks) != 1 || chunks[0] != prose {
		t.Errorf("expected prose streamed once, got %v", chunks)
	}

	delta, err := m.ExtractDelta(context.Background(), TurnContext{}, prose)
	if err != nil {
		t.Fatalf("extract delta: %v", err)
	}
	if !delta.IsEmpty() {
		t.Errorf("expected empty delta, got %+v", delta)
	}
}
