// Package events runs the per-turn trigger pipeline: authored events with
// cooldown, scope and probability gating, and multi-stage arc progression.
package events

import (
	"storyengine/internal/content"
	"storyengine/internal/debug"
	"storyengine/internal/game"
	"storyengine/internal/game/effects"
	"storyengine/internal/game/expr"
)

// Result aggregates what fired during one ProcessEvents pass.
type Result struct {
	EventsFired []string
	Narratives  []string
	Choices     []content.Choice
}

type Pipeline struct {
	state    *game.State
	idx      *content.Index
	eval     *expr.Evaluator
	resolver *effects.Resolver
	log      *debug.Logger
}

func NewPipeline(state *game.State, idx *content.Index, eval *expr.Evaluator, resolver *effects.Resolver, log *debug.Logger) *Pipeline {
	return &Pipeline{state: state, idx: idx, eval: eval, resolver: resolver, log: log}
}

// ProcessEvents evaluates every authored event for this turn. Eligible
// events with probability below 100 enter a random pool from which at most
// one fires, chosen by a single cumulative-weight draw; all other eligible
// events fire unconditionally in declared order.
func (p *Pipeline) ProcessEvents() Result {
	var result Result
	var pool []*content.Event

	for i := range p.idx.Def.Events {
		ev := &p.idx.Def.Events[i]
		if ev.OncePerGame && p.state.EventFired(ev.ID) {
			continue
		}
		if p.state.Cooldowns[ev.ID] > 0 {
			continue
		}
		if ev.Location != "" && ev.Location != p.state.CurrentLocation {
			continue
		}
		if !p.eval.EvaluateConditions(ev.When, ev.WhenAll, ev.WhenAny) {
			continue
		}
		if probability(ev) < 100 {
			pool = append(pool, ev)
			continue
		}
		p.fire(ev, &result)
	}

	if chosen := p.drawFromPool(pool); chosen != nil {
		p.fire(chosen, &result)
	}

	return result
}

// drawFromPool selects at most one event by walking cumulative probability
// weights against a single uniform draw. Non-positive weights never win.
func (p *Pipeline) drawFromPool(pool []*content.Event) *content.Event {
	var total float64
	for _, ev := range pool {
		if w := probability(ev); w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return nil
	}
	roll := p.eval.Rand().Float64() * total
	var cumulative float64
	for _, ev := range pool {
		w := probability(ev)
		if w <= 0 {
			continue
		}
		cumulative += w
		if roll <= cumulative {
			return ev
		}
	}
	return nil
}

// probability reads an event's weight, treating an unset field as certain.
func probability(ev *content.Event) float64 {
	if ev.Probability == nil {
		return 100
	}
	return *ev.Probability
}

func (p *Pipeline) fire(ev *content.Event, result *Result) {
	p.log.Printf("event fired: %s", ev.ID)
	p.state.RecordEvent(ev.ID)
	result.EventsFired = append(result.EventsFired, ev.ID)
	result.Narratives = append(result.Narratives, ev.Beats...)
	result.Choices = append(result.Choices, ev.Choices...)
	p.resolver.Apply(ev.OnEnter)
	if ev.Cooldown > 0 {
		p.state.Cooldowns[ev.ID] = ev.Cooldown
	}
}

// ProcessArcs advances each arc at most one stage per turn. Stages are
// scanned in declared order and the first whose condition holds wins;
// authors express precedence through ordering. Re-matching the current
// stage is a stable fixed point and fires nothing.
func (p *Pipeline) ProcessArcs() []string {
	var milestones []string

	for ai := range p.idx.Def.Arcs {
		arc := &p.idx.Def.Arcs[ai]
		arcState, ok := p.state.Arcs[arc.ID]
		if !ok {
			arcState = &game.ArcState{}
			p.state.Arcs[arc.ID] = arcState
		}

		for si := range arc.Stages {
			stage := &arc.Stages[si]
			if stage.OncePerGame && p.state.MilestoneReached(stage.ID) {
				continue
			}
			if !p.eval.Evaluate(stage.When) {
				continue
			}
			if arcState.Stage == stage.ID {
				break
			}

			p.log.Printf("arc %s: stage %q -> %q", arc.ID, arcState.Stage, stage.ID)
			if prev := p.findStage(arc, arcState.Stage); prev != nil {
				p.resolver.Apply(prev.OnExit)
			}
			p.resolver.Apply(stage.OnEnter)

			if !p.state.MilestoneReached(stage.ID) {
				p.state.CompletedMilestones = append(p.state.CompletedMilestones, stage.ID)
			}
			arcState.History = append(arcState.History, stage.ID)
			arcState.Stage = stage.ID
			milestones = append(milestones, stage.ID)
			break
		}
	}

	return milestones
}

func (p *Pipeline) findStage(arc *content.Arc, stageID string) *content.Stage {
	if stageID == "" {
		return nil
	}
	for i := range arc.Stages {
		if arc.Stages[i].ID == stageID {
			return &arc.Stages[i]
		}
	}
	return nil
}

// DecrementCooldowns ticks every active cooldown down by one turn and drops
// entries that reach zero, keeping the map sparse.
func (p *Pipeline) DecrementCooldowns() {
	for id, remaining := range p.state.Cooldowns {
		remaining--
		if remaining <= 0 {
			delete(p.state.Cooldowns, id)
		} else {
			p.state.Cooldowns[id] = remaining
		}
	}
}
