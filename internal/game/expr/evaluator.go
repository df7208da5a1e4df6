package expr

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"storyengine/internal/content"
	"storyengine/internal/debug"
	"storyengine/internal/game"
)

// Evaluator evaluates authored conditions against a state snapshot. It never
// returns an error to callers: parse and eval failures are logged and read as
// false, so bad content degrades instead of halting a turn.
//
// Given the same state, expression and seed, Evaluate always produces the
// same result. Reseed is called once per turn by the session runtime so
// rand() draws replay deterministically.
type Evaluator struct {
	state *game.State
	idx   *content.Index
	rng   *rand.Rand
	log   *debug.Logger
	cache map[string]node
}

func NewEvaluator(state *game.State, idx *content.Index, log *debug.Logger) *Evaluator {
	return &Evaluator{
		state: state,
		idx:   idx,
		rng:   rand.New(rand.NewSource(1)),
		log:   log,
		cache: map[string]node{},
	}
}

// Reseed resets the deterministic random source for a new turn.
func (e *Evaluator) Reseed(seed int64) {
	e.rng = rand.New(rand.NewSource(seed))
}

// Rand exposes the per-turn random source; the resolver and event pipeline
// share it so a turn consumes a single deterministic draw sequence.
func (e *Evaluator) Rand() *rand.Rand {
	return e.rng
}

// Evaluate resolves a condition to a boolean. Nil and zero conditions are
// always true.
func (e *Evaluator) Evaluate(c *content.Condition) bool {
	if c.IsZero() {
		return true
	}
	switch {
	case len(c.All) > 0:
		for i := range c.All {
			if !e.Evaluate(&c.All[i]) {
				return false
			}
		}
		return true
	case len(c.Any) > 0:
		for i := range c.Any {
			if e.Evaluate(&c.Any[i]) {
				return true
			}
		}
		return false
	case c.Not != nil:
		return !e.Evaluate(c.Not)
	default:
		return e.EvaluateExpr(c.Expr)
	}
}

// EvaluateAll is the AND of a condition list; empty is vacuously true.
func (e *Evaluator) EvaluateAll(conds []content.Condition) bool {
	for i := range conds {
		if !e.Evaluate(&conds[i]) {
			return false
		}
	}
	return true
}

// EvaluateAny is the OR of a condition list; empty is vacuously true.
func (e *Evaluator) EvaluateAny(conds []content.Condition) bool {
	if len(conds) == 0 {
		return true
	}
	for i := range conds {
		if e.Evaluate(&conds[i]) {
			return true
		}
	}
	return false
}

// EvaluateConditions combines the three authored condition slots: when,
// when_all and when_any. Each absent group is vacuously true.
func (e *Evaluator) EvaluateConditions(when *content.Condition, whenAll, whenAny []content.Condition) bool {
	return e.Evaluate(when) && e.EvaluateAll(whenAll) && e.EvaluateAny(whenAny)
}

// EvaluateExpr evaluates a bare expression string in boolean context.
func (e *Evaluator) EvaluateExpr(input string) bool {
	if input == "" {
		return true
	}
	n, err := e.compile(input)
	if err != nil {
		e.log.Printf("condition parse failed, treating as false: %q: %v", input, err)
		return false
	}
	v, err := e.eval(n)
	if err != nil {
		e.log.Printf("condition eval failed, treating as false: %q: %v", input, err)
		return false
	}
	return truthy(v)
}

func (e *Evaluator) compile(input string) (node, error) {
	if n, ok := e.cache[input]; ok {
		return n, nil
	}
	n, err := parse(input)
	if err != nil {
		return nil, err
	}
	e.cache[input] = n
	return n, nil
}

func (e *Evaluator) eval(n node) (any, error) {
	switch t := n.(type) {
	case litNode:
		return t.value, nil
	case pathNode:
		// Missing paths read as absent, not as errors.
		v, _ := e.resolvePath(t.parts)
		return v, nil
	case listNode:
		out := make([]any, 0, len(t.elems))
		for _, elem := range t.elems {
			v, err := e.eval(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case notNode:
		v, err := e.eval(t.operand)
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	case binNode:
		return e.evalBinary(t)
	case callNode:
		return e.evalCall(t)
	default:
		return nil, fmt.Errorf("unsupported node %T", n)
	}
}

func (e *Evaluator) evalBinary(n binNode) (any, error) {
	switch n.op {
	case "and":
		left, err := e.eval(n.left)
		if err != nil {
			return nil, err
		}
		if !truthy(left) {
			return false, nil
		}
		right, err := e.eval(n.right)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	case "or":
		left, err := e.eval(n.left)
		if err != nil {
			return nil, err
		}
		if truthy(left) {
			return true, nil
		}
		right, err := e.eval(n.right)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	}

	left, err := e.eval(n.left)
	if err != nil {
		return nil, err
	}
	right, err := e.eval(n.right)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "==":
		return valuesEqual(left, right), nil
	case "!=":
		return !valuesEqual(left, right), nil
	case "<", "<=", ">", ">=":
		return compareOrdered(n.op, left, right)
	case "in":
		return member(left, right), nil
	case "not in":
		return !member(left, right), nil
	default:
		return nil, fmt.Errorf("unsupported operator %q", n.op)
	}
}

func (e *Evaluator) evalCall(n callNode) (any, error) {
	args := make([]any, 0, len(n.args))
	// get() receives its path argument unevaluated when authored as a path.
	if n.name == "get" {
		return e.evalGet(n)
	}
	for _, arg := range n.args {
		v, err := e.eval(arg)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	switch n.name {
	case "has":
		owner, item := game.PlayerID, ""
		switch len(args) {
		case 1:
			item = asString(args[0])
		case 2:
			owner, item = asString(args[0]), asString(args[1])
		default:
			return nil, fmt.Errorf("has() takes 1 or 2 arguments")
		}
		return e.state.HasItem(owner, item), nil
	case "npc_present":
		if len(args) != 1 {
			return nil, fmt.Errorf("npc_present() takes 1 argument")
		}
		return e.state.IsPresent(asString(args[0])), nil
	case "discovered":
		if len(args) != 1 {
			return nil, fmt.Errorf("discovered() takes 1 argument")
		}
		return e.state.Discovered(asString(args[0])), nil
	case "wears":
		if len(args) != 2 {
			return nil, fmt.Errorf("wears() takes 2 arguments")
		}
		return e.wears(asString(args[0]), asString(args[1])), nil
	case "has_outfit":
		if len(args) != 2 {
			return nil, fmt.Errorf("has_outfit() takes 2 arguments")
		}
		owner, outfit := asString(args[0]), asString(args[1])
		if cs, ok := e.state.ClothingStates[owner]; ok && cs.CurrentOutfit == outfit {
			return true, nil
		}
		return e.state.Unlocked("outfits", outfit), nil
	case "unlocked":
		if len(args) != 2 {
			return nil, fmt.Errorf("unlocked() takes 2 arguments")
		}
		return e.state.Unlocked(asString(args[0]), asString(args[1])), nil
	case "rand":
		if len(args) != 1 {
			return nil, fmt.Errorf("rand() takes 1 argument")
		}
		p, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("rand() needs a numeric probability")
		}
		if p <= 0 {
			return false, nil
		}
		if p >= 1 {
			return true, nil
		}
		return e.rng.Float64() < p, nil
	default:
		return nil, fmt.Errorf("unknown function %q", n.name)
	}
}

// evalGet implements get(path, default): the two-argument lookup that
// substitutes its default for any unresolvable path.
func (e *Evaluator) evalGet(n callNode) (any, error) {
	if len(n.args) != 2 {
		return nil, fmt.Errorf("get() takes 2 arguments")
	}
	def, err := e.eval(n.args[1])
	if err != nil {
		return nil, err
	}
	var parts []string
	switch arg := n.args[0].(type) {
	case pathNode:
		parts = arg.parts
	case litNode:
		s, ok := arg.value.(string)
		if !ok {
			return def, nil
		}
		parts = splitPath(s)
	default:
		return def, nil
	}
	if v, ok := e.resolvePath(parts); ok {
		return v, nil
	}
	return def, nil
}

// wears reports whether an item's clothing layer is on the owner's current
// outfit and not removed.
func (e *Evaluator) wears(owner, item string) bool {
	it, ok := e.idx.Item(item)
	if !ok || it.Layer == "" {
		return false
	}
	cs, ok := e.state.ClothingStates[owner]
	if !ok {
		return false
	}
	layerState, ok := cs.Layers[it.Layer]
	if !ok {
		return false
	}
	return layerState != "removed"
}

// resolvePath walks a dotted path into the state sections the language
// exposes. The second return is false when the path does not resolve.
func (e *Evaluator) resolvePath(parts []string) (any, bool) {
	if len(parts) == 0 {
		return nil, false
	}
	switch parts[0] {
	case "meters":
		if len(parts) != 3 {
			return nil, false
		}
		owned, ok := e.state.Meters[parts[1]]
		if !ok {
			return nil, false
		}
		v, ok := owned[parts[2]]
		return v, ok
	case "flags":
		if len(parts) != 2 {
			return nil, false
		}
		v, ok := e.state.Flags[parts[1]]
		return v, ok
	case "inventory":
		if len(parts) != 3 {
			return nil, false
		}
		inv, ok := e.state.Inventory[parts[1]]
		if !ok {
			return nil, false
		}
		return float64(inv[parts[2]]), true
	case "cooldowns":
		if len(parts) != 2 {
			return nil, false
		}
		return float64(e.state.Cooldowns[parts[1]]), true
	case "arcs":
		if len(parts) == 3 && parts[2] == "stage" {
			if arc, ok := e.state.Arcs[parts[1]]; ok {
				return arc.Stage, true
			}
		}
		return nil, false
	case "time":
		if len(parts) != 2 {
			return nil, false
		}
		switch parts[1] {
		case "day":
			return float64(e.state.Time.Day), true
		case "slot":
			return e.state.Time.Slot, true
		case "time_hhmm":
			return e.state.Time.TimeHHMM, true
		case "weekday":
			return e.state.Time.Weekday, true
		}
		return nil, false
	case "location":
		loc, ok := e.idx.Location(e.state.CurrentLocation)
		if len(parts) == 1 {
			return e.state.CurrentLocation, true
		}
		if !ok {
			return nil, false
		}
		switch parts[1] {
		case "id":
			return loc.ID, true
		case "zone":
			return loc.Zone, true
		case "privacy":
			return loc.Privacy, true
		}
		return nil, false
	case "zone":
		return e.state.CurrentZone, true
	case "node":
		if len(parts) == 1 {
			return e.state.CurrentNode, true
		}
		n, ok := e.idx.Node(e.state.CurrentNode)
		if !ok {
			return nil, false
		}
		switch parts[1] {
		case "id":
			return n.ID, true
		case "type":
			return n.Type, true
		}
		return nil, false
	case "turn_count":
		return float64(e.state.TurnCount), true
	default:
		return nil, false
	}
}

func splitPath(s string) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '.' {
			if i > start {
				parts = append(parts, s[start:i])
			}
			start = i + 1
		}
	}
	return parts
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	default:
		return false
	}
}

func valuesEqual(a, b any) bool {
	if af, aok := asNumber(a); aok {
		if bf, bok := asNumber(b); bok {
			return af == bf
		}
	}
	return a == b
}

func compareOrdered(op string, a, b any) (any, error) {
	if af, aok := asNumber(a); aok {
		if bf, bok := asNumber(b); bok {
			return applyOrder(op, compareFloats(af, bf)), nil
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return applyOrder(op, compareStrings(as, bs)), nil
	}
	return nil, fmt.Errorf("cannot order %T against %T", a, b)
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func applyOrder(op string, cmp int) bool {
	switch op {
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	default:
		return cmp >= 0
	}
}

func member(needle, haystack any) bool {
	switch h := haystack.(type) {
	case []any:
		for _, v := range h {
			if valuesEqual(needle, v) {
				return true
			}
		}
		return false
	case string:
		return asString(needle) != "" && strings.Contains(h, asString(needle))
	default:
		return false
	}
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
