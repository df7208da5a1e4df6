// Package effects applies ordered lists of declarative effects to game
// state. Every mutation in the engine funnels through the Resolver, including
// meter decay from the clock and the AI checker's structured deltas, so
// clamping and per-turn caps hold no matter who produced the effect.
package effects

import (
	"sort"

	"storyengine/internal/content"
	"storyengine/internal/debug"
	"storyengine/internal/game"
	"storyengine/internal/game/expr"
)

// Hook effects (item on_get/on_lost, modifier on_enter/on_exit) re-enter the
// resolver recursively. The depth cap catches authored cycles such as an item
// whose pickup hook removes and re-adds itself.
const maxHookDepth = 8

// TimeAdvancer is the clock dependency for advance_time effects. Bound after
// construction because the clock itself applies decay through the resolver.
type TimeAdvancer interface {
	Advance(minutes int)
}

// Resolver applies effect batches in strict list order. Guards are checked
// immediately before each effect against current state, so later effects in
// a batch observe earlier ones. Malformed effects are logged and skipped;
// a bad authored effect never aborts a turn.
type Resolver struct {
	state *game.State
	idx   *content.Index
	eval  *expr.Evaluator
	log   *debug.Logger
	clock TimeAdvancer

	deltaCap   float64
	turnDeltas map[string]float64
	depth      int
}

func NewResolver(state *game.State, idx *content.Index, eval *expr.Evaluator, log *debug.Logger) *Resolver {
	return &Resolver{
		state:      state,
		idx:        idx,
		eval:       eval,
		log:        log,
		deltaCap:   idx.Def.DeltaCapPerTurn,
		turnDeltas: map[string]float64{},
	}
}

// BindClock wires the time service in after both sides exist.
func (r *Resolver) BindClock(clock TimeAdvancer) {
	r.clock = clock
}

// BeginTurn resets the per-turn delta cap accumulators.
func (r *Resolver) BeginTurn() {
	r.turnDeltas = map[string]float64{}
}

// Apply runs an ordered effect batch against the state.
func (r *Resolver) Apply(effects []content.Effect) {
	for i := range effects {
		r.applyOne(&effects[i])
	}
}

func (r *Resolver) applyOne(e *content.Effect) {
	// conditional owns its when as the branch selector rather than a guard.
	if e.Type == content.EffectConditional {
		if r.eval.Evaluate(e.When) {
			r.Apply(e.Then)
		} else {
			r.Apply(e.Otherwise)
		}
		return
	}

	if !r.eval.Evaluate(e.When) {
		return
	}

	switch e.Type {
	case content.EffectMeterChange:
		r.meterChange(e)
	case content.EffectFlagSet:
		r.flagSet(e)
	case content.EffectInventoryAdd:
		r.inventoryAdd(owner(e), e.Item, countOrOne(e))
	case content.EffectInventoryRemove:
		r.inventoryRemove(owner(e), e.Item, countOrOne(e))
	case content.EffectInventoryTake:
		r.inventoryTake(e)
	case content.EffectInventoryDrop:
		r.inventoryDrop(e)
	case content.EffectApplyModifier:
		r.applyModifier(e)
	case content.EffectRemoveModifier:
		r.removeModifier(character(e), e.Modifier)
	case content.EffectClothingSet:
		r.clothingSet(e)
	case content.EffectOutfitChange:
		r.outfitChange(e)
	case content.EffectGotoNode:
		r.gotoNode(e.Node)
	case content.EffectMoveTo:
		r.moveTo(e.Location)
	case content.EffectDiscover:
		r.discover(e.ID)
	case content.EffectRandom:
		r.random(e)
	case content.EffectUnlock:
		r.unlock(e.Kind, e.ID)
	case content.EffectLock:
		r.lock(e.Kind, e.ID)
	case content.EffectAdvanceTime:
		if r.clock != nil && e.Minutes > 0 {
			r.clock.Advance(e.Minutes)
		}
	default:
		r.log.Printf("skipping unsupported effect type %q", e.Type)
	}
}

func owner(e *content.Effect) string {
	if e.Owner != "" {
		return e.Owner
	}
	return game.PlayerID
}

func character(e *content.Effect) string {
	if e.Character != "" {
		return e.Character
	}
	return game.PlayerID
}

func countOrOne(e *content.Effect) int {
	if e.Count > 0 {
		return e.Count
	}
	return 1
}

// meterChange applies op(current, value) clamped to the meter's declared
// bounds, then trims the applied delta so the net per-turn change for this
// (owner, meter) never exceeds the configured cap.
func (r *Resolver) meterChange(e *content.Effect) {
	def, ok := r.idx.Meter(e.Meter)
	if !ok {
		r.log.Printf("skipping meter_change for unknown meter %q", e.Meter)
		return
	}
	value, ok := e.NumValue()
	if !ok {
		r.log.Printf("skipping meter_change for %q: non-numeric value %v", e.Meter, e.Value)
		return
	}

	own := owner(e)
	owned, ok := r.state.Meters[own]
	if !ok {
		r.log.Printf("skipping meter_change for unknown owner %q", own)
		return
	}
	current := owned[e.Meter]

	var next float64
	switch e.Op {
	case content.OpAdd, "":
		next = current + value
	case content.OpSubtract:
		next = current - value
	case content.OpMultiply:
		next = current * value
	case content.OpDivide:
		if value == 0 {
			return
		}
		next = current / value
	case content.OpSet:
		next = value
	default:
		r.log.Printf("skipping meter_change with unknown op %q", e.Op)
		return
	}

	next = clamp(next, def.Min, def.Max)
	delta := next - current

	if r.deltaCap > 0 && delta != 0 {
		key := own + "\x00" + e.Meter
		used := r.turnDeltas[key]
		remaining := r.deltaCap - abs(used)
		if remaining <= 0 {
			r.log.Printf("meter %s.%s delta cap reached, dropping change", own, e.Meter)
			return
		}
		if abs(delta) > remaining {
			if delta > 0 {
				delta = remaining
			} else {
				delta = -remaining
			}
			next = clamp(current+delta, def.Min, def.Max)
			delta = next - current
		}
		r.turnDeltas[key] = used + delta
	}

	owned[e.Meter] = next
}

// flagSet writes a declared flag; unknown ids are dropped by policy so
// validated content keeps playing through stray references.
func (r *Resolver) flagSet(e *content.Effect) {
	def, ok := r.idx.Flag(e.Flag)
	if !ok {
		r.log.Printf("ignoring flag_set for undeclared flag %q", e.Flag)
		return
	}
	value := e.Value
	switch def.Type {
	case "number":
		if f, ok := e.NumValue(); ok {
			value = f
		} else {
			r.log.Printf("skipping flag_set %q: expected number, got %v", e.Flag, e.Value)
			return
		}
	case "bool":
		if _, ok := value.(bool); !ok {
			r.log.Printf("skipping flag_set %q: expected bool, got %v", e.Flag, e.Value)
			return
		}
	case "string":
		if _, ok := value.(string); !ok {
			r.log.Printf("skipping flag_set %q: expected string, got %v", e.Flag, e.Value)
			return
		}
	default:
		// Untyped flags still store numerics as float64 so snapshots
		// round-trip bit for bit.
		if f, ok := e.NumValue(); ok {
			value = f
		}
	}
	r.state.Flags[e.Flag] = value
}

func (r *Resolver) inventoryAdd(own, itemID string, count int) {
	item, ok := r.idx.Item(itemID)
	if !ok {
		r.log.Printf("skipping inventory_add for unknown item %q", itemID)
		return
	}
	inv := r.state.Inventory[own]
	if inv == nil {
		inv = map[string]int{}
		r.state.Inventory[own] = inv
	}
	before := inv[itemID]
	next := before + count
	if !item.Stackable && next > 1 {
		next = 1
	}
	if next == before {
		return
	}
	inv[itemID] = next
	r.runHooks(item.OnGet)
}

func (r *Resolver) inventoryRemove(own, itemID string, count int) {
	item, ok := r.idx.Item(itemID)
	if !ok {
		r.log.Printf("skipping inventory_remove for unknown item %q", itemID)
		return
	}
	inv := r.state.Inventory[own]
	if inv == nil {
		return
	}
	before := inv[itemID]
	next := before - count
	if next < 0 {
		next = 0
	}
	if next == before {
		return
	}
	if next == 0 {
		delete(inv, itemID)
	} else {
		inv[itemID] = next
	}
	r.runHooks(item.OnLost)
}

// inventoryTake transfers from a location's inventory to an owner, bounded by
// what the location holds.
func (r *Resolver) inventoryTake(e *content.Effect) {
	locID := e.Location
	if locID == "" {
		locID = r.state.CurrentLocation
	}
	items := r.state.LocationItems[locID]
	if items == nil {
		return
	}
	available := items[e.Item]
	count := countOrOne(e)
	if count > available {
		count = available
	}
	if count <= 0 {
		return
	}
	if available-count == 0 {
		delete(items, e.Item)
	} else {
		items[e.Item] = available - count
	}
	r.inventoryAdd(owner(e), e.Item, count)
}

// inventoryDrop transfers from an owner to a location's inventory.
func (r *Resolver) inventoryDrop(e *content.Effect) {
	own := owner(e)
	held := r.state.ItemCount(own, e.Item)
	count := countOrOne(e)
	if count > held {
		count = held
	}
	if count <= 0 {
		return
	}
	locID := e.Location
	if locID == "" {
		locID = r.state.CurrentLocation
	}
	items := r.state.LocationItems[locID]
	if items == nil {
		items = map[string]int{}
		r.state.LocationItems[locID] = items
	}
	r.inventoryRemove(own, e.Item, count)
	items[e.Item] += count
}

// applyModifier adds an overlay, evicting exclusive-group peers first. Entry
// and exit hooks dispatch back through the resolver.
func (r *Resolver) applyModifier(e *content.Effect) {
	def, ok := r.idx.Modifier(e.Modifier)
	if !ok {
		r.log.Printf("skipping apply_modifier for unknown modifier %q", e.Modifier)
		return
	}
	char := character(e)

	if def.Exclusive && def.Group != "" {
		for _, active := range append([]game.Modifier(nil), r.state.Modifiers[char]...) {
			if active.ID == def.ID {
				continue
			}
			if other, ok := r.idx.Modifier(active.ID); ok && other.Group == def.Group {
				r.removeModifier(char, active.ID)
			}
		}
	}

	duration := e.Duration
	if duration == nil {
		duration = def.DefaultDuration
	}
	var copied *int
	if duration != nil {
		v := *duration
		copied = &v
	}

	for i, active := range r.state.Modifiers[char] {
		if active.ID == def.ID {
			// Re-applying refreshes the duration without re-firing entry hooks.
			r.state.Modifiers[char][i].Duration = copied
			return
		}
	}

	r.state.Modifiers[char] = append(r.state.Modifiers[char], game.Modifier{ID: def.ID, Duration: copied})
	r.runHooks(def.OnEnter)
}

func (r *Resolver) removeModifier(char, modifierID string) {
	active := r.state.Modifiers[char]
	for i, m := range active {
		if m.ID == modifierID {
			r.state.Modifiers[char] = append(active[:i:i], active[i+1:]...)
			if def, ok := r.idx.Modifier(modifierID); ok {
				r.runHooks(def.OnExit)
			}
			return
		}
	}
}

// TickModifiers decrements finite durations once per turn and removes any
// that reach zero, firing exit hooks. Characters tick in a fixed order
// (player first, then declared order) to keep turns reproducible.
func (r *Resolver) TickModifiers() {
	for _, char := range r.tickOrder() {
		active := r.state.Modifiers[char]
		var expired []string
		for i := range active {
			if active[i].Duration == nil {
				continue
			}
			*active[i].Duration = *active[i].Duration - 1
			if *active[i].Duration <= 0 {
				expired = append(expired, active[i].ID)
			}
		}
		for _, id := range expired {
			r.removeModifier(char, id)
		}
	}
}

func (r *Resolver) tickOrder() []string {
	order := []string{game.PlayerID}
	seen := map[string]bool{game.PlayerID: true}
	for _, c := range r.idx.Def.Characters {
		order = append(order, c.ID)
		seen[c.ID] = true
	}
	// Owners outside the declared cast (AI-introduced) sort last, by id.
	var extra []string
	for char := range r.state.Modifiers {
		if !seen[char] {
			extra = append(extra, char)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}

func (r *Resolver) clothingSet(e *content.Effect) {
	char := character(e)
	cs, ok := r.state.ClothingStates[char]
	if !ok {
		return
	}
	if _, ok := cs.Layers[e.Layer]; !ok {
		r.log.Printf("ignoring clothing_set for unknown layer %q on %q", e.Layer, char)
		return
	}
	switch e.State {
	case "intact", "displaced", "removed":
		cs.Layers[e.Layer] = e.State
	default:
		r.log.Printf("ignoring clothing_set with invalid state %q", e.State)
	}
}

func (r *Resolver) outfitChange(e *content.Effect) {
	outfit, ok := r.idx.Outfit(e.Outfit)
	if !ok {
		r.log.Printf("ignoring outfit_change to unknown outfit %q", e.Outfit)
		return
	}
	char := character(e)
	cs := game.ClothingState{CurrentOutfit: outfit.ID, Layers: map[string]string{}}
	for _, layer := range outfit.Layers {
		cs.Layers[layer] = "intact"
	}
	r.state.ClothingStates[char] = cs
}

func (r *Resolver) gotoNode(nodeID string) {
	if _, ok := r.idx.Node(nodeID); !ok {
		r.log.Printf("ignoring goto_node to unknown node %q", nodeID)
		return
	}
	r.state.CurrentNode = nodeID
}

func (r *Resolver) moveTo(locationID string) {
	loc, ok := r.idx.Location(locationID)
	if !ok {
		r.log.Printf("ignoring move_to unknown location %q", locationID)
		return
	}
	r.state.CurrentLocation = loc.ID
	r.state.CurrentZone = loc.Zone
	r.discover(loc.ID)
	if loc.Zone != "" {
		r.discover(loc.Zone)
	}
}

// discover reveals a location or zone id. Discovery is monotonic: ids are
// never retracted within a session.
func (r *Resolver) discover(id string) {
	if _, ok := r.idx.Location(id); ok {
		if !r.state.Discovered(id) {
			r.state.DiscoveredLocations = append(r.state.DiscoveredLocations, id)
		}
		return
	}
	if _, ok := r.idx.Zone(id); ok {
		if !r.state.Discovered(id) {
			r.state.DiscoveredZones = append(r.state.DiscoveredZones, id)
		}
		return
	}
	r.log.Printf("ignoring discover for unknown id %q", id)
}

// random picks one weighted branch with a single uniform draw. Non-positive
// total weight selects nothing.
func (r *Resolver) random(e *content.Effect) {
	var total float64
	for _, b := range e.Branches {
		if b.Weight > 0 {
			total += b.Weight
		}
	}
	if total <= 0 {
		return
	}
	roll := r.eval.Rand().Float64() * total
	var cumulative float64
	for _, b := range e.Branches {
		if b.Weight <= 0 {
			continue
		}
		cumulative += b.Weight
		if roll <= cumulative {
			r.Apply(b.Effects)
			return
		}
	}
}

func (r *Resolver) unlock(kind, id string) {
	switch kind {
	case "actions":
		r.state.UnlockedActions = appendUnique(r.state.UnlockedActions, id)
	case "outfits":
		r.state.UnlockedOutfits = appendUnique(r.state.UnlockedOutfits, id)
	case "endings":
		r.state.UnlockedEndings = appendUnique(r.state.UnlockedEndings, id)
	default:
		r.log.Printf("ignoring unlock with unknown kind %q", kind)
	}
}

func (r *Resolver) lock(kind, id string) {
	switch kind {
	case "actions":
		r.state.UnlockedActions = remove(r.state.UnlockedActions, id)
	case "outfits":
		r.state.UnlockedOutfits = remove(r.state.UnlockedOutfits, id)
	case "endings":
		r.state.UnlockedEndings = remove(r.state.UnlockedEndings, id)
	default:
		r.log.Printf("ignoring lock with unknown kind %q", kind)
	}
}

func (r *Resolver) runHooks(hooks []content.Effect) {
	if len(hooks) == 0 {
		return
	}
	if r.depth >= maxHookDepth {
		r.log.Printf("hook recursion depth %d exceeded, dropping hook effects", maxHookDepth)
		return
	}
	r.depth++
	r.Apply(hooks)
	r.depth--
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func appendUnique(list []string, id string) []string {
	for _, v := range list {
		if v == id {
			return list
		}
	}
	return append(list, id)
}

func remove(list []string, id string) []string {
	for i, v := range list {
		if v == id {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
