package choices

import (
	"testing"

	"storyengine/internal/content"
	"storyengine/internal/debug"
	"storyengine/internal/game"
	"storyengine/internal/game/expr"
)

func choicesDef() *content.GameDefinition {
	return &content.GameDefinition{
		Meta: content.Meta{ID: "g", StartNode: "hub", StartLocation: "quad"},
		Time: content.TimeConfig{StartDay: 1, Start: "08:00"},
		Flags: []content.FlagDef{
			{ID: "met_alex", Type: "bool", Default: false},
			{ID: "rumor_heard", Type: "bool", Default: false},
		},
		Characters: []content.Character{
			{ID: "alex", Name: "Alex", Schedule: []content.ScheduleEntry{
				{Location: "quad", Slot: "morning"},
			}},
			{ID: "sam", Name: "Sam", Schedule: []content.ScheduleEntry{
				{Location: "quad", When: &content.Condition{Expr: "flags.met_alex"}},
			}},
		},
		Zones: []content.Zone{{ID: "campus", Discovered: true}},
		Locations: []content.Location{
			{ID: "quad", Zone: "campus", Name: "The Quad", Discovered: true, Connections: []string{"library"}},
			{ID: "library", Zone: "campus", Name: "Library", Discovered: true, Connections: []string{"quad"}},
			{ID: "cellar", Zone: "campus", Name: "Cellar",
				DiscoverWhen: &content.Condition{Expr: "flags.rumor_heard"}},
		},
		Nodes: []content.Node{
			{ID: "hub", Type: "hub", Choices: []content.Choice{
				{ID: "chat", Label: "Chat"},
				{ID: "confide", Label: "Confide", When: &content.Condition{Expr: "flags.met_alex"}},
			}},
		},
		Actions: []content.ActionDef{
			{ID: "study", Label: "Study"},
		},
	}
}

func newFixture(t *testing.T) (*game.State, *Builder, *Discovery, *Presence) {
	t.Helper()
	idx := content.NewIndex(choicesDef())
	state := game.NewState(idx)
	eval := expr.NewEvaluator(state, idx, debug.NewLogger(false))
	log := debug.NewLogger(false)
	return state, NewBuilder(state, idx, eval, log), NewDiscovery(state, idx, eval), NewPresence(state, idx, eval)
}

func TestBuildGatesNodeChoices(t *testing.T) {
	state, builder, _, _ := newFixture(t)

	ids := optionIDs(builder.Build(nil))
	if !ids["chat"] || ids["confide"] {
		t.Errorf("expected only ungated choices, got %v", ids)
	}

	state.Flags["met_alex"] = true
	ids = optionIDs(builder.Build(nil))
	if !ids["confide"] {
		t.Errorf("expected gated choice once its condition holds, got %v", ids)
	}
}

func TestBuildIncludesEventChoicesAndMovement(t *testing.T) {
	_, builder, _, _ := newFixture(t)

	options := builder.Build([]content.Choice{{ID: "wave", Label: "Wave back"}})

	var wave, move *Option
	for i := range options {
		switch options[i].ID {
		case "wave":
			wave = &options[i]
		case "move_library":
			move = &options[i]
		}
	}
	if wave == nil || wave.Source != "event" {
		t.Errorf("expected event choice, got %+v", options)
	}
	if move == nil || move.Source != "movement" || move.Target != "library" {
		t.Errorf("expected movement option to library, got %+v", options)
	}
}

func TestBuildIncludesUnlockedActions(t *testing.T) {
	state, builder, _, _ := newFixture(t)

	if ids := optionIDs(builder.Build(nil)); ids["study"] {
		t.Error("locked action must not be offered")
	}
	state.UnlockedActions = []string{"study"}
	ids := optionIDs(builder.Build(nil))
	if !ids["study"] {
		t.Errorf("expected unlocked action offered, got %v", ids)
	}
}

func TestDiscoveryIsMonotonic(t *testing.T) {
	state, _, discovery, _ := newFixture(t)

	if revealed := discovery.Refresh(); len(revealed) != 0 {
		t.Fatalf("expected nothing revealed yet, got %v", revealed)
	}

	state.Flags["rumor_heard"] = true
	revealed := discovery.Refresh()
	if len(revealed) != 1 || revealed[0] != "cellar" {
		t.Fatalf("expected cellar revealed, got %v", revealed)
	}
	if !state.Discovered("cellar") {
		t.Error("expected cellar discovered")
	}

	// A second pass reveals nothing new even though the condition still holds.
	if revealed := discovery.Refresh(); len(revealed) != 0 {
		t.Errorf("expected no re-reveal, got %v", revealed)
	}
}

func TestPresenceFollowsSchedules(t *testing.T) {
	state, _, _, presence := newFixture(t)
	state.Time.Slot = "morning"

	presence.Refresh()
	if !state.IsPresent(game.PlayerID) {
		t.Error("the player is always present")
	}
	if !state.IsPresent("alex") {
		t.Error("alex is scheduled on the quad in the morning")
	}
	if state.IsPresent("sam") {
		t.Error("sam's schedule is gated on an unmet flag")
	}

	// Slot mismatch drops alex; the condition flag admits sam.
	state.Time.Slot = "evening"
	state.Flags["met_alex"] = true
	presence.Refresh()
	if state.IsPresent("alex") {
		t.Error("alex is not scheduled for the evening")
	}
	if !state.IsPresent("sam") {
		t.Error("sam's slotless entry matches every slot once the flag holds")
	}

	state.CurrentLocation = "library"
	presence.Refresh()
	if state.IsPresent("sam") {
		t.Error("nobody is scheduled at the library")
	}
}

func optionIDs(options []Option) map[string]bool {
	ids := map[string]bool{}
	for _, o := range options {
		ids[o.ID] = true
	}
	return ids
}
