// Package session orchestrates turns: one Runtime owns one session's state
// and sequences seeding, validation, effect resolution, AI narration, time,
// events and choice building in a fixed order. Turn N always derives the same
// RNG seed, so replaying an action sequence reproduces the session exactly.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storyengine/internal/content"
	"storyengine/internal/debug"
	"storyengine/internal/game"
	"storyengine/internal/game/choices"
	"storyengine/internal/game/clock"
	"storyengine/internal/game/director"
	"storyengine/internal/game/effects"
	"storyengine/internal/game/events"
	"storyengine/internal/game/expr"
	"storyengine/internal/logging"
)

// The meter that buy/sell actions settle against.
const moneyMeter = "money"

// Action is one player input. Type selects the dispatch path; the remaining
// fields qualify it.
type Action struct {
	Type     string `json:"type"` // choice, move, use, give, take, drop, buy, sell, wait, do
	Text     string `json:"text,omitempty"`
	Target   string `json:"target,omitempty"`
	ItemID   string `json:"item_id,omitempty"`
	ChoiceID string `json:"choice_id,omitempty"`
}

// TurnResult is the complete outcome of one resolved turn.
type TurnResult struct {
	SessionID         string           `json:"session_id"`
	Narrative         string           `json:"narrative"`
	Choices           []choices.Option `json:"choices"`
	StateSummary      map[string]any   `json:"state_summary"`
	ActionSummary     string           `json:"action_summary"`
	EventsFired       []string         `json:"events_fired"`
	MilestonesReached []string         `json:"milestones_reached"`
	TimeAdvanced      bool             `json:"time_advanced"`
	LocationChanged   bool             `json:"location_changed"`
	RNGSeed           int64            `json:"rng_seed"`
}

// Options configures a new session runtime.
type Options struct {
	Def       *content.GameDefinition
	Writer    director.Writer
	Checker   director.Checker
	Log       *debug.Logger
	Turns     *logging.TurnLogger // optional persistence
	SeedMode  string              // SeedModeFixed or SeedModeGenerated
	BaseSeed  int64
	AITimeout time.Duration
}

// Runtime is one live session. All turn processing for a session is
// serialized through its mutex; distinct sessions share nothing mutable.
type Runtime struct {
	mu sync.Mutex

	id    string
	state *game.State
	idx   *content.Index

	eval      *expr.Evaluator
	resolver  *effects.Resolver
	clock     *clock.Service
	pipeline  *events.Pipeline
	builder   *choices.Builder
	discovery *choices.Discovery
	presence  *choices.Presence

	writer  director.Writer
	checker director.Checker
	log     *debug.Logger
	turns   *logging.TurnLogger
	tracer  trace.Tracer

	seedMode  string
	baseSeed  int64
	aiTimeout time.Duration

	// event choices offered on the previous turn, still selectable this turn
	lastEventChoices []content.Choice
}

func New(sessionID string, opts Options) (*Runtime, error) {
	if opts.Def == nil {
		return nil, fmt.Errorf("session %s: game definition is required", sessionID)
	}
	if opts.Log == nil {
		opts.Log = debug.NewLogger(false)
	}
	seedMode := opts.SeedMode
	if seedMode == "" {
		seedMode = SeedModeGenerated
	}

	idx := content.NewIndex(opts.Def)
	state := game.NewState(idx)
	eval := expr.NewEvaluator(state, idx, opts.Log)
	resolver := effects.NewResolver(state, idx, eval, opts.Log)
	clk := clock.New(state, idx, resolver, opts.Log)
	resolver.BindClock(clk)

	r := &Runtime{
		id:        sessionID,
		state:     state,
		idx:       idx,
		eval:      eval,
		resolver:  resolver,
		clock:     clk,
		pipeline:  events.NewPipeline(state, idx, eval, resolver, opts.Log),
		builder:   choices.NewBuilder(state, idx, eval, opts.Log),
		discovery: choices.NewDiscovery(state, idx, eval),
		presence:  choices.NewPresence(state, idx, eval),
		writer:    opts.Writer,
		checker:   opts.Checker,
		log:       opts.Log,
		turns:     opts.Turns,
		tracer:    otel.Tracer("session"),
		seedMode:  seedMode,
		baseSeed:  opts.BaseSeed,
		aiTimeout: opts.AITimeout,
	}
	return r, nil
}

func (r *Runtime) ID() string { return r.id }

// State exposes the session state for read-only callers such as the MCP
// surface. Mutation outside a turn is undefined behavior.
func (r *Runtime) State() *game.State { return r.state }

// Start initializes the session: the start node's entry effects run, presence
// and discovery refresh, and the opening choices are built. No turn is
// consumed.
func (r *Runtime) Start() *TurnResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	seed := r.turnSeed(0)
	r.eval.Reseed(seed)
	r.resolver.BeginTurn()

	var beats []string
	if node, ok := r.idx.Node(r.state.CurrentNode); ok {
		beats = append(beats, node.Beats...)
		r.resolver.Apply(node.OnEnter)
	}
	r.presence.Refresh()
	r.discovery.Refresh()

	narrative := strings.Join(beats, "\n")
	if narrative != "" {
		r.state.AddNarrative(narrative)
	}

	return &TurnResult{
		SessionID:     r.id,
		Narrative:     narrative,
		Choices:       r.builder.Build(nil),
		StateSummary:  r.stateSummary(),
		ActionSummary: "session started",
		RNGSeed:       seed,
	}
}

// ProcessAction resolves one full turn. Validation failures reject the action
// before any mutation.
func (r *Runtime) ProcessAction(ctx context.Context, action Action) (*TurnResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processTurn(ctx, action, nil)
}

// actionPlan is the validated, not-yet-applied outcome of dispatching an
// action. Building the plan performs no mutation, which is what makes
// rejection free of partial effects.
type actionPlan struct {
	summary  string
	minutes  int
	effects  []content.Effect
	gotoNode string
}

func (r *Runtime) processTurn(ctx context.Context, action Action, onChunk func(string)) (*TurnResult, error) {
	turn := r.state.TurnCount + 1
	seed := r.turnSeed(turn)

	ctx, span := r.tracer.Start(ctx, "turn", trace.WithAttributes(
		attribute.String("session.id", r.id),
		attribute.Int("turn", turn),
		attribute.Int64("rng_seed", seed),
		attribute.String("action.type", action.Type),
	))
	defer span.End()

	r.eval.Reseed(seed)
	r.resolver.BeginTurn()
	r.log.Printf("turn %d seed %d action %s", turn, seed, action.Type)

	plan, err := r.plan(action)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	prevLocation := r.state.CurrentLocation

	// Deterministic action effects.
	var beats []string
	r.resolver.Apply(plan.effects)
	if plan.gotoNode != "" {
		r.resolver.Apply([]content.Effect{{Type: content.EffectGotoNode, Node: plan.gotoNode}})
		if node, ok := r.idx.Node(r.state.CurrentNode); ok && node.ID == plan.gotoNode {
			beats = append(beats, node.Beats...)
			r.resolver.Apply(node.OnEnter)
		}
	}

	// AI narration and state-delta extraction. The delta goes through the
	// resolver as one batch; a failed or unparseable response degrades to a
	// fallback line and no delta.
	prose, aiUsed := r.narrate(ctx, action, plan, beats, onChunk)

	// Time, decay and modifier durations.
	clockResult := r.clock.AdvanceMinutes(plan.minutes)
	r.clock.ApplyMeterDynamics(clockResult.DayAdvanced, clockResult.SlotAdvanced)
	r.resolver.TickModifiers()

	// Events and arcs.
	evResult := r.pipeline.ProcessEvents()
	milestones := r.pipeline.ProcessArcs()
	beats = append(beats, evResult.Narratives...)

	r.presence.Refresh()
	r.discovery.Refresh()
	r.pipeline.DecrementCooldowns()

	options := r.builder.Build(evResult.Choices)
	r.lastEventChoices = evResult.Choices

	narrative := prose
	if len(beats) > 0 {
		if narrative != "" {
			narrative += "\n"
		}
		narrative += strings.Join(beats, "\n")
	}
	r.state.AddNarrative(narrative)
	r.state.TurnCount++

	result := &TurnResult{
		SessionID:         r.id,
		Narrative:         narrative,
		Choices:           options,
		StateSummary:      r.stateSummary(),
		ActionSummary:     plan.summary,
		EventsFired:       evResult.EventsFired,
		MilestonesReached: milestones,
		TimeAdvanced:      plan.minutes > 0,
		LocationChanged:   r.state.CurrentLocation != prevLocation,
		RNGSeed:           seed,
	}

	r.persistTurn(turn, seed, plan.summary, narrative, result.EventsFired, aiUsed)
	return result, nil
}

func (r *Runtime) turnSeed(turn int) int64 {
	if r.seedMode == SeedModeFixed {
		return fixedSeed(r.baseSeed, turn)
	}
	return generatedSeed(r.idx.Def.Meta.ID, r.id, turn)
}

// plan validates the action against current state and resolves it into
// effects without applying anything.
func (r *Runtime) plan(action Action) (*actionPlan, error) {
	if node, ok := r.idx.Node(r.state.CurrentNode); ok && node.Type == "ending" {
		return nil, ErrTerminalNode
	}

	switch action.Type {
	case "choice":
		return r.planChoice(action)
	case "move":
		return r.planMove(action)
	case "use":
		return r.planUse(action)
	case "give":
		return r.planGive(action)
	case "take":
		return r.planTake(action)
	case "drop":
		return r.planDrop(action)
	case "buy":
		return r.planBuy(action)
	case "sell":
		return r.planSell(action)
	case "wait":
		return &actionPlan{
			summary: "wait",
			minutes: r.idx.ActionMinutes("wait", 0),
		}, nil
	case "do":
		if strings.TrimSpace(action.Text) == "" {
			return nil, fmt.Errorf("%w: do requires text", ErrInvalidAction)
		}
		return &actionPlan{
			summary: action.Text,
			minutes: r.idx.ActionMinutes("do", 0),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized type %q", ErrInvalidAction, action.Type)
	}
}

func (r *Runtime) planChoice(action Action) (*actionPlan, error) {
	if action.ChoiceID == "" {
		return nil, fmt.Errorf("%w: choice requires choice_id", ErrInvalidAction)
	}

	if c := r.findChoice(action.ChoiceID); c != nil {
		if !r.eval.Evaluate(c.When) {
			return nil, fmt.Errorf("%w: choice %q is not available", ErrInvalidAction, action.ChoiceID)
		}
		return &actionPlan{
			summary:  "choice " + action.ChoiceID,
			minutes:  r.idx.ActionMinutes("choice", c.Minutes),
			effects:  c.Effects,
			gotoNode: c.Goto,
		}, nil
	}

	if def, ok := r.idx.Action(action.ChoiceID); ok && r.state.Unlocked("actions", def.ID) {
		if !r.eval.Evaluate(def.When) {
			return nil, fmt.Errorf("%w: action %q is not available", ErrInvalidAction, def.ID)
		}
		return &actionPlan{
			summary: "action " + def.ID,
			minutes: r.idx.ActionMinutes(def.Category, def.Minutes),
			effects: def.Effects,
		}, nil
	}

	return nil, fmt.Errorf("%w: choice %q", ErrUnknownTarget, action.ChoiceID)
}

// findChoice searches the current node's choices, then the event choices
// carried over from the previous turn.
func (r *Runtime) findChoice(id string) *content.Choice {
	if node, ok := r.idx.Node(r.state.CurrentNode); ok {
		for i := range node.Choices {
			if node.Choices[i].ID == id {
				return &node.Choices[i]
			}
		}
	}
	for i := range r.lastEventChoices {
		if r.lastEventChoices[i].ID == id {
			return &r.lastEventChoices[i]
		}
	}
	return nil
}

func (r *Runtime) planMove(action Action) (*actionPlan, error) {
	if _, ok := r.idx.Location(action.Target); !ok {
		return nil, fmt.Errorf("%w: location %q", ErrUnknownTarget, action.Target)
	}
	current, ok := r.idx.Location(r.state.CurrentLocation)
	if !ok || !containsID(current.Connections, action.Target) {
		return nil, fmt.Errorf("%w: %q is not reachable from %q", ErrInvalidAction, action.Target, r.state.CurrentLocation)
	}
	return &actionPlan{
		summary: "move " + action.Target,
		minutes: r.idx.ActionMinutes("move", 0),
		effects: []content.Effect{{Type: content.EffectMoveTo, Location: action.Target}},
	}, nil
}

func (r *Runtime) planUse(action Action) (*actionPlan, error) {
	item, ok := r.idx.Item(action.ItemID)
	if !ok {
		return nil, fmt.Errorf("%w: item %q", ErrUnknownTarget, action.ItemID)
	}
	if !r.state.HasItem(game.PlayerID, item.ID) {
		return nil, fmt.Errorf("%w: not carrying %q", ErrInvalidAction, item.ID)
	}
	effects := append([]content.Effect{}, item.OnUse...)
	if item.Consumable {
		effects = append(effects, content.Effect{Type: content.EffectInventoryRemove, Item: item.ID, Count: 1})
	}
	return &actionPlan{
		summary: "use " + item.ID,
		minutes: r.idx.ActionMinutes("use", 0),
		effects: effects,
	}, nil
}

func (r *Runtime) planGive(action Action) (*actionPlan, error) {
	item, ok := r.idx.Item(action.ItemID)
	if !ok {
		return nil, fmt.Errorf("%w: item %q", ErrUnknownTarget, action.ItemID)
	}
	if _, ok := r.idx.Character(action.Target); !ok {
		return nil, fmt.Errorf("%w: character %q", ErrUnknownTarget, action.Target)
	}
	if !r.state.IsPresent(action.Target) {
		return nil, fmt.Errorf("%w: %q is not here", ErrInvalidAction, action.Target)
	}
	if !r.state.HasItem(game.PlayerID, item.ID) {
		return nil, fmt.Errorf("%w: not carrying %q", ErrInvalidAction, item.ID)
	}
	return &actionPlan{
		summary: "give " + item.ID + " to " + action.Target,
		minutes: r.idx.ActionMinutes("give", 0),
		effects: []content.Effect{
			{Type: content.EffectInventoryRemove, Owner: game.PlayerID, Item: item.ID, Count: 1},
			{Type: content.EffectInventoryAdd, Owner: action.Target, Item: item.ID, Count: 1},
		},
	}, nil
}

func (r *Runtime) planTake(action Action) (*actionPlan, error) {
	item, ok := r.idx.Item(action.ItemID)
	if !ok {
		return nil, fmt.Errorf("%w: item %q", ErrUnknownTarget, action.ItemID)
	}
	if r.state.LocationItems[r.state.CurrentLocation][item.ID] <= 0 {
		return nil, fmt.Errorf("%w: no %q here", ErrInvalidAction, item.ID)
	}
	return &actionPlan{
		summary: "take " + item.ID,
		minutes: r.idx.ActionMinutes("take", 0),
		effects: []content.Effect{{Type: content.EffectInventoryTake, Item: item.ID, Count: 1}},
	}, nil
}

func (r *Runtime) planDrop(action Action) (*actionPlan, error) {
	item, ok := r.idx.Item(action.ItemID)
	if !ok {
		return nil, fmt.Errorf("%w: item %q", ErrUnknownTarget, action.ItemID)
	}
	if !r.state.HasItem(game.PlayerID, item.ID) {
		return nil, fmt.Errorf("%w: not carrying %q", ErrInvalidAction, item.ID)
	}
	return &actionPlan{
		summary: "drop " + item.ID,
		minutes: r.idx.ActionMinutes("drop", 0),
		effects: []content.Effect{{Type: content.EffectInventoryDrop, Item: item.ID, Count: 1}},
	}, nil
}

func (r *Runtime) planBuy(action Action) (*actionPlan, error) {
	item, ok := r.idx.Item(action.ItemID)
	if !ok {
		return nil, fmt.Errorf("%w: item %q", ErrUnknownTarget, action.ItemID)
	}
	if item.Price <= 0 {
		return nil, fmt.Errorf("%w: %q is not for sale", ErrInvalidAction, item.ID)
	}
	if r.state.MeterValue(game.PlayerID, moneyMeter) < item.Price {
		return nil, fmt.Errorf("%w: %q costs %.0f", ErrInsufficientFunds, item.ID, item.Price)
	}
	return &actionPlan{
		summary: "buy " + item.ID,
		minutes: r.idx.ActionMinutes("buy", 0),
		effects: []content.Effect{
			{Type: content.EffectMeterChange, Owner: game.PlayerID, Meter: moneyMeter, Op: content.OpSubtract, Value: item.Price},
			{Type: content.EffectInventoryAdd, Owner: game.PlayerID, Item: item.ID, Count: 1},
		},
	}, nil
}

func (r *Runtime) planSell(action Action) (*actionPlan, error) {
	item, ok := r.idx.Item(action.ItemID)
	if !ok {
		return nil, fmt.Errorf("%w: item %q", ErrUnknownTarget, action.ItemID)
	}
	if !r.state.HasItem(game.PlayerID, item.ID) {
		return nil, fmt.Errorf("%w: not carrying %q", ErrInvalidAction, item.ID)
	}
	if item.Price <= 0 {
		return nil, fmt.Errorf("%w: %q has no sale value", ErrInvalidAction, item.ID)
	}
	return &actionPlan{
		summary: "sell " + item.ID,
		minutes: r.idx.ActionMinutes("sell", 0),
		effects: []content.Effect{
			{Type: content.EffectInventoryRemove, Owner: game.PlayerID, Item: item.ID, Count: 1},
			{Type: content.EffectMeterChange, Owner: game.PlayerID, Meter: moneyMeter, Op: content.OpAdd, Value: item.Price},
		},
	}, nil
}

// narrate runs the writer and checker. Any failure degrades to a fallback
// line and an empty delta so the deterministic core is unaffected.
func (r *Runtime) narrate(ctx context.Context, action Action, plan *actionPlan, beats []string, onChunk func(string)) (string, bool) {
	if r.writer == nil {
		prose := fallbackNarration(plan.summary)
		if onChunk != nil {
			onChunk(prose)
		}
		return prose, false
	}

	if r.aiTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.aiTimeout)
		defer cancel()
	}

	tc := r.turnContext(plan.summary, beats)
	prose, err := r.writer.Narrate(ctx, tc, onChunk)
	if err != nil {
		r.log.Printf("writer failed, using fallback: %v", err)
		prose = fallbackNarration(plan.summary)
		if onChunk != nil {
			onChunk(prose)
		}
		return prose, false
	}

	if r.checker != nil {
		delta, err := r.checker.ExtractDelta(ctx, tc, prose)
		if err != nil {
			r.log.Printf("checker failed, applying empty delta: %v", err)
		} else if !delta.IsEmpty() {
			r.resolver.Apply(delta.Effects())
			for _, m := range delta.Memory {
				r.state.AddMemory(m)
			}
		}
	}
	return prose, true
}

func (r *Runtime) turnContext(summary string, beats []string) director.TurnContext {
	nodeTitle := r.state.CurrentNode
	if node, ok := r.idx.Node(r.state.CurrentNode); ok && node.Title != "" {
		nodeTitle = node.Title
	}
	locationName := r.state.CurrentLocation
	if loc, ok := r.idx.Location(r.state.CurrentLocation); ok && loc.Name != "" {
		locationName = loc.Name
	}
	return director.TurnContext{
		SessionID:         r.id,
		NodeTitle:         nodeTitle,
		LocationName:      locationName,
		Action:            summary,
		Beats:             beats,
		NarrativeHistory:  tail(r.state.NarrativeHistory, 5),
		MemoryLog:         r.state.MemoryLog,
		PresentCharacters: r.state.PresentCharacters,
	}
}

func (r *Runtime) stateSummary() map[string]any {
	playerMeters := map[string]float64{}
	for id, v := range r.state.Meters[game.PlayerID] {
		playerMeters[id] = v
	}
	return map[string]any{
		"node":       r.state.CurrentNode,
		"location":   r.state.CurrentLocation,
		"zone":       r.state.CurrentZone,
		"turn_count": r.state.TurnCount,
		"time": map[string]any{
			"day":       r.state.Time.Day,
			"slot":      r.state.Time.Slot,
			"time_hhmm": r.state.Time.TimeHHMM,
			"weekday":   r.state.Time.Weekday,
		},
		"meters":  playerMeters,
		"present": append([]string{}, r.state.PresentCharacters...),
	}
}

func (r *Runtime) persistTurn(turn int, seed int64, summary, narrative string, eventsFired []string, aiUsed bool) {
	if r.turns == nil {
		return
	}
	snapshot, err := r.state.Snapshot()
	if err != nil {
		r.log.Printf("turn snapshot failed, logging without state: %v", err)
		snapshot = map[string]any{}
	}
	meta := logging.TurnMetadata{AIUsed: aiUsed}
	if err := r.turns.LogTurn(r.id, turn, seed, summary, narrative, eventsFired, snapshot, meta); err != nil {
		r.log.Printf("turn log write failed: %v", err)
	}
}

func fallbackNarration(summary string) string {
	if summary == "" {
		return "The moment passes quietly."
	}
	return fmt.Sprintf("You %s. The moment passes quietly.", summary)
}

func tail(entries []string, n int) []string {
	if len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}

func containsID(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
