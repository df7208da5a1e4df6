// Package clock advances in-game time: minute arithmetic with day rollover,
// slot window resolution and boundary-driven meter decay. Decay is applied
// through the effect resolver so it obeys the same clamp and cap rules as
// authored effects.
package clock

import (
	"fmt"
	"strconv"
	"strings"

	"storyengine/internal/content"
	"storyengine/internal/debug"
	"storyengine/internal/game"
	"storyengine/internal/game/effects"
)

// Result reports what a single advance crossed.
type Result struct {
	Minutes      int
	SlotAdvanced bool
	DayAdvanced  bool
}

type window struct {
	id    string
	start int
	end   int // exclusive; start > end means the window spans midnight
}

type Service struct {
	state    *game.State
	idx      *content.Index
	resolver *effects.Resolver
	log      *debug.Logger
	windows  []window
}

func New(state *game.State, idx *content.Index, resolver *effects.Resolver, log *debug.Logger) *Service {
	s := &Service{state: state, idx: idx, resolver: resolver, log: log}
	for _, w := range idx.Def.Time.Slots {
		start, err1 := ParseHHMM(w.Start)
		end, err2 := ParseHHMM(w.End)
		if err1 != nil || err2 != nil {
			log.Printf("ignoring slot %q with bad window %q-%q", w.ID, w.Start, w.End)
			continue
		}
		s.windows = append(s.windows, window{id: w.ID, start: start, end: end})
	}
	if state.Time.Slot == "" {
		if minutes, err := ParseHHMM(state.Time.TimeHHMM); err == nil {
			if id, ok := s.slotAt(minutes); ok {
				state.Time.Slot = id
			}
		}
	}
	s.updateWeekday()
	return s
}

// Advance satisfies the resolver's TimeAdvancer so advance_time effects can
// delegate here.
func (s *Service) Advance(minutes int) {
	s.AdvanceMinutes(minutes)
}

// AdvanceMinutes moves the clock forward. On a day boundary the day-end hook
// fires before the wrap and the day-start hook after, so authors can close
// out a day against its own date. The slot is recomputed from the configured
// windows; when none matches, the previous slot is retained.
func (s *Service) AdvanceMinutes(minutes int) Result {
	if minutes < 0 {
		minutes = 0
	}
	current, err := ParseHHMM(s.state.Time.TimeHHMM)
	if err != nil {
		s.log.Printf("clock state %q unreadable, resetting to 00:00", s.state.Time.TimeHHMM)
		current = 0
	}
	prevSlot := s.state.Time.Slot

	total := current + minutes
	dayAdvanced := false
	for total >= minutesPerDay {
		// Day-end runs against the old day's clock; the wrapped time and
		// weekday are written before day-start so its effects read the new day.
		s.resolver.Apply(s.idx.Def.Time.OnDayEnd)
		total -= minutesPerDay
		s.state.Time.Day++
		dayAdvanced = true
		s.state.Time.TimeHHMM = FormatHHMM(total)
		s.updateWeekday()
		s.resolver.Apply(s.idx.Def.Time.OnDayStart)
	}

	s.state.Time.TimeHHMM = FormatHHMM(total)
	s.updateWeekday()

	if id, ok := s.slotAt(total); ok {
		s.state.Time.Slot = id
	}
	slotAdvanced := s.state.Time.Slot != prevSlot

	return Result{Minutes: minutes, SlotAdvanced: slotAdvanced, DayAdvanced: dayAdvanced}
}

// ApplyMeterDynamics applies per-slot and per-day decay for every owner that
// carries a decaying meter. Both kinds fire on the same call when both
// boundaries were crossed. Owner order is fixed (player, then characters in
// declared order) to keep turns reproducible.
func (s *Service) ApplyMeterDynamics(dayAdvanced, slotAdvanced bool) {
	if !dayAdvanced && !slotAdvanced {
		return
	}
	owners := []string{game.PlayerID}
	for _, c := range s.idx.Def.Characters {
		owners = append(owners, c.ID)
	}
	for _, m := range s.idx.Def.Meters {
		for _, own := range owners {
			owned, ok := s.state.Meters[own]
			if !ok {
				continue
			}
			if _, ok := owned[m.ID]; !ok {
				continue
			}
			if slotAdvanced && m.DecayPerSlot != 0 {
				s.resolver.Apply([]content.Effect{{
					Type: content.EffectMeterChange, Owner: own, Meter: m.ID,
					Op: content.OpAdd, Value: m.DecayPerSlot,
				}})
			}
			if dayAdvanced && m.DecayPerDay != 0 {
				s.resolver.Apply([]content.Effect{{
					Type: content.EffectMeterChange, Owner: own, Meter: m.ID,
					Op: content.OpAdd, Value: m.DecayPerDay,
				}})
			}
		}
	}
}

const minutesPerDay = 1440

// slotAt returns the first configured window containing the given minute.
func (s *Service) slotAt(minutes int) (string, bool) {
	for _, w := range s.windows {
		if w.start <= w.end {
			if minutes >= w.start && minutes < w.end {
				return w.id, true
			}
		} else if minutes >= w.start || minutes < w.end {
			return w.id, true
		}
	}
	return "", false
}

func (s *Service) updateWeekday() {
	days := s.idx.Def.Time.Weekdays
	if len(days) == 0 {
		return
	}
	s.state.Time.Weekday = days[(s.state.Time.Day-1)%len(days)]
}

// ParseHHMM converts "HH:MM" to minutes since midnight.
func ParseHHMM(v string) (int, error) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q", v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", v)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", v)
	}
	return h*60 + m, nil
}

// FormatHHMM converts minutes since midnight back to "HH:MM".
func FormatHHMM(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
