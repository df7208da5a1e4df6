package clock

import (
	"testing"

	"storyengine/internal/content"
	"storyengine/internal/debug"
	"storyengine/internal/game"
	"storyengine/internal/game/effects"
	"storyengine/internal/game/expr"
)

func clockDef() *content.GameDefinition {
	return &content.GameDefinition{
		Meta: content.Meta{ID: "g", StartNode: "intro", StartLocation: "room"},
		Time: content.TimeConfig{
			StartDay: 1,
			Start:    "08:00",
			Weekdays: []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"},
			Slots: []content.SlotWindow{
				{ID: "morning", Start: "06:00", End: "12:00"},
				{ID: "afternoon", Start: "12:00", End: "18:00"},
				{ID: "evening", Start: "18:00", End: "23:00"},
				{ID: "night", Start: "23:00", End: "06:00"},
			},
			OnDayEnd: []content.Effect{
				{Type: content.EffectMeterChange, Meter: "day_ends", Op: content.OpAdd, Value: 1},
			},
			OnDayStart: []content.Effect{
				{Type: content.EffectMeterChange, Meter: "day_starts", Op: content.OpAdd, Value: 1},
			},
		},
		Meters: []content.MeterDef{
			{ID: "day_ends", Min: 0, Max: 100, Default: 0},
			{ID: "day_starts", Min: 0, Max: 100, Default: 0},
			{ID: "energy", Min: 0, Max: 100, Default: 50, DecayPerSlot: -10, DecayPerDay: -20},
		},
		Characters: []content.Character{{ID: "alex"}},
		Locations:  []content.Location{{ID: "room", Discovered: true}},
		Nodes:      []content.Node{{ID: "intro"}},
	}
}

func newTestClock(t *testing.T, def *content.GameDefinition) (*game.State, *Service, *effects.Resolver) {
	t.Helper()
	idx := content.NewIndex(def)
	state := game.NewState(idx)
	log := debug.NewLogger(false)
	eval := expr.NewEvaluator(state, idx, log)
	resolver := effects.NewResolver(state, idx, eval, log)
	resolver.BeginTurn()
	svc := New(state, idx, resolver, log)
	resolver.BindClock(svc)
	return state, svc, resolver
}

func TestNewResolvesInitialSlot(t *testing.T) {
	state, _, _ := newTestClock(t, clockDef())
	if state.Time.Slot != "morning" {
		t.Errorf("expected 08:00 to resolve to morning, got %q", state.Time.Slot)
	}
	if state.Time.Weekday != "mon" {
		t.Errorf("expected day 1 to be mon, got %q", state.Time.Weekday)
	}
}

func TestAdvanceWithinDay(t *testing.T) {
	state, svc, _ := newTestClock(t, clockDef())

	res := svc.AdvanceMinutes(30)
	if state.Time.TimeHHMM != "08:30" || res.DayAdvanced || res.SlotAdvanced {
		t.Errorf("expected 08:30 same slot, got %q %+v", state.Time.TimeHHMM, res)
	}

	res = svc.AdvanceMinutes(240)
	if state.Time.TimeHHMM != "12:30" || !res.SlotAdvanced {
		t.Errorf("expected slot change at 12:30, got %q %+v", state.Time.TimeHHMM, res)
	}
	if state.Time.Slot != "afternoon" {
		t.Errorf("expected afternoon, got %q", state.Time.Slot)
	}
}

func TestAdvancePastMidnight(t *testing.T) {
	def := clockDef()
	def.Time.Start = "23:50"
	state, svc, _ := newTestClock(t, def)

	res := svc.AdvanceMinutes(20)
	if !res.DayAdvanced {
		t.Fatal("expected day boundary crossed")
	}
	if state.Time.Day != 2 {
		t.Errorf("expected day 2, got %d", state.Time.Day)
	}
	if state.Time.TimeHHMM != "00:10" {
		t.Errorf("expected 00:10, got %q", state.Time.TimeHHMM)
	}
	if got := state.MeterValue(game.PlayerID, "day_ends"); got != 1 {
		t.Errorf("expected day-end hook exactly once, got %v", got)
	}
	if got := state.MeterValue(game.PlayerID, "day_starts"); got != 1 {
		t.Errorf("expected day-start hook exactly once, got %v", got)
	}
	if state.Time.Weekday != "tue" {
		t.Errorf("expected tue after rollover, got %q", state.Time.Weekday)
	}
	// 00:10 sits inside the midnight-spanning night window.
	if state.Time.Slot != "night" {
		t.Errorf("expected night slot, got %q", state.Time.Slot)
	}
}

func TestDayStartHookReadsNewDayClock(t *testing.T) {
	def := clockDef()
	def.Time.Start = "23:50"
	// The guard only holds if the hook runs against the wrapped clock.
	def.Time.OnDayStart = []content.Effect{{
		Type: content.EffectMeterChange, Meter: "day_starts", Op: content.OpAdd, Value: 1,
		When: &content.Condition{Expr: "time.time_hhmm == '00:10' and time.weekday == 'tue'"},
	}}
	state, svc, _ := newTestClock(t, def)

	svc.AdvanceMinutes(20)
	if got := state.MeterValue(game.PlayerID, "day_starts"); got != 1 {
		t.Errorf("expected day-start hook to see the new day's time and weekday, got %v", got)
	}
	if got := state.MeterValue(game.PlayerID, "day_ends"); got != 1 {
		t.Errorf("expected day-end hook unaffected, got %v", got)
	}
}

func TestAdvanceMultipleDays(t *testing.T) {
	state, svc, _ := newTestClock(t, clockDef())

	res := svc.AdvanceMinutes(2 * 1440)
	if !res.DayAdvanced || state.Time.Day != 3 {
		t.Errorf("expected day 3, got %d", state.Time.Day)
	}
	if got := state.MeterValue(game.PlayerID, "day_ends"); got != 2 {
		t.Errorf("expected two day-end hooks, got %v", got)
	}
	if state.Time.TimeHHMM != "08:00" {
		t.Errorf("expected 08:00, got %q", state.Time.TimeHHMM)
	}
}

func TestSlotRetainedWhenNoWindowMatches(t *testing.T) {
	def := clockDef()
	def.Time.Slots = []content.SlotWindow{{ID: "morning", Start: "06:00", End: "12:00"}}
	state, svc, _ := newTestClock(t, def)

	res := svc.AdvanceMinutes(300) // 13:00, outside every window
	if state.Time.Slot != "morning" {
		t.Errorf("expected slot retained, got %q", state.Time.Slot)
	}
	if res.SlotAdvanced {
		t.Error("retained slot must not report an advance")
	}
}

func TestApplyMeterDynamics(t *testing.T) {
	state, svc, _ := newTestClock(t, clockDef())

	svc.ApplyMeterDynamics(false, false)
	if got := state.MeterValue(game.PlayerID, "energy"); got != 50 {
		t.Errorf("expected no decay without a boundary, got %v", got)
	}

	svc.ApplyMeterDynamics(false, true)
	if got := state.MeterValue(game.PlayerID, "energy"); got != 40 {
		t.Errorf("expected slot decay -10, got %v", got)
	}
	if got := state.MeterValue("alex", "energy"); got != 40 {
		t.Errorf("expected character decay too, got %v", got)
	}

	svc.ApplyMeterDynamics(true, true)
	if got := state.MeterValue(game.PlayerID, "energy"); got != 10 {
		t.Errorf("expected slot and day decay together, got %v", got)
	}
}

func TestDecayClampsAtBounds(t *testing.T) {
	def := clockDef()
	def.Meters[2].Default = 5
	state, svc, _ := newTestClock(t, def)

	svc.ApplyMeterDynamics(false, true)
	if got := state.MeterValue(game.PlayerID, "energy"); got != 0 {
		t.Errorf("expected decay clamped to min, got %v", got)
	}
}

func TestAdvanceTimeEffectDelegates(t *testing.T) {
	state, _, resolver := newTestClock(t, clockDef())

	resolver.Apply([]content.Effect{{Type: content.EffectAdvanceTime, Minutes: 90}})
	if state.Time.TimeHHMM != "09:30" {
		t.Errorf("expected advance_time to move the clock to 09:30, got %q", state.Time.TimeHHMM)
	}
}

func TestParseAndFormatHHMM(t *testing.T) {
	tests := []struct {
		in      string
		minutes int
		ok      bool
	}{
		{"00:00", 0, true},
		{"08:30", 510, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"noon", 0, false},
		{"8", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseHHMM(tt.in)
		if tt.ok && (err != nil || got != tt.minutes) {
			t.Errorf("ParseHHMM(%q) = %d, %v, want %d", tt.in, got, err, tt.minutes)
		}
		if !tt.ok && err == nil {
			t.Errorf("ParseHHMM(%q) should fail", tt.in)
		}
	}

	if got := FormatHHMM(510); got != "08:30" {
		t.Errorf("FormatHHMM(510) = %q", got)
	}
	if got := FormatHHMM(1440 + 10); got != "00:10" {
		t.Errorf("FormatHHMM wraps past midnight, got %q", got)
	}
	if got := FormatHHMM(-10); got != "23:50" {
		t.Errorf("FormatHHMM handles negatives, got %q", got)
	}
}
