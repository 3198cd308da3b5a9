package scheduling

import (
	"fmt"
	"math"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

// secondHours is one second in hours. Lessons are placed at second
// resolution, so a smaller remainder cannot be booked.
const secondHours = 1.0 / 3600

// ModuleBudget tracks the hours a module assignment still needs in one run.
type ModuleBudget struct {
	Assignment models.ModuleAssignment
	Remaining  float64
	// Usage counts the days this module was placed on during the run.
	Usage int
}

// ID returns the module assignment id.
func (b *ModuleBudget) ID() string { return b.Assignment.ID }

// PreferredChunk is the block size that avoids an awkward one hour tail.
func (b *ModuleBudget) PreferredChunk() float64 { return PreferredChunk(b.Remaining) }

// PreferredChunk returns remaining below 3 hours; otherwise 4 when remaining
// mod 3 is 1, 2 when it is 2, else 3.
func PreferredChunk(remaining float64) float64 {
	if remaining < 3 {
		return math.Max(remaining, 0)
	}
	rem := math.Mod(remaining, 3)
	switch {
	case math.Abs(rem-1) < hoursEpsilon:
		return 4
	case math.Abs(rem-2) < hoursEpsilon:
		return 2
	default:
		return 3
	}
}

// State is the transient per-run scheduling state: remaining hours and usage
// per module plus the modules placed on the previous working day.
type State struct {
	budgets []*ModuleBudget
	byID    map[string]*ModuleBudget
	lastDay map[string]bool
}

// NewState seeds remaining hours as planned minus already scheduled hours,
// keeping curriculum order. Sub-second remainders count as finished.
func NewState(assignments []models.ModuleAssignment) *State {
	s := &State{
		budgets: make([]*ModuleBudget, 0, len(assignments)),
		byID:    make(map[string]*ModuleBudget, len(assignments)),
		lastDay: map[string]bool{},
	}
	for _, a := range assignments {
		remaining := a.PlannedHours - a.ScheduledHours
		if remaining < secondHours {
			remaining = 0
		}
		b := &ModuleBudget{Assignment: a, Remaining: remaining}
		s.budgets = append(s.budgets, b)
		s.byID[a.ID] = b
	}
	return s
}

// Budget returns the tracker for a module, or nil.
func (s *State) Budget(id string) *ModuleBudget { return s.byID[id] }

// Remaining returns the hours still to schedule for a module.
func (s *State) Remaining(id string) float64 {
	if b := s.byID[id]; b != nil {
		return b.Remaining
	}
	return 0
}

// ActivePool returns up to limit unfinished modules in curriculum order.
func (s *State) ActivePool(limit int) []*ModuleBudget {
	pool := make([]*ModuleBudget, 0, limit)
	for _, b := range s.budgets {
		if len(pool) == limit {
			break
		}
		if b.Remaining > hoursEpsilon {
			pool = append(pool, b)
		}
	}
	return pool
}

// Unfinished returns every module with hours left, in curriculum order.
func (s *State) Unfinished() []*ModuleBudget {
	return s.ActivePool(len(s.budgets))
}

// Done reports whether every module reached its planned hours.
func (s *State) Done() bool {
	return len(s.ActivePool(1)) == 0
}

// Commit books hours against a module. Callers cap hours at Remaining first.
func (s *State) Commit(id string, hours float64) error {
	b := s.byID[id]
	if b == nil {
		return fmt.Errorf("unknown module assignment %s", id)
	}
	if hours <= 0 {
		return fmt.Errorf("non-positive hours %.2f for module %s", hours, id)
	}
	if hours > b.Remaining+hoursEpsilon {
		return fmt.Errorf("module %s has %.2f hours left, cannot commit %.2f", id, b.Remaining, hours)
	}
	b.Remaining -= hours
	if b.Remaining < secondHours {
		b.Remaining = 0
	}
	b.Usage++
	return nil
}

// UsedYesterday reports whether the module was placed on the previous working day.
func (s *State) UsedYesterday(id string) bool { return s.lastDay[id] }

// EndDay records the modules placed today for the next day's bias.
func (s *State) EndDay(used []string) {
	s.lastDay = make(map[string]bool, len(used))
	for _, id := range used {
		s.lastDay[id] = true
	}
}

// RemainingByModule snapshots remaining hours for every module with hours left.
func (s *State) RemainingByModule() map[string]float64 {
	out := make(map[string]float64)
	for _, b := range s.budgets {
		if b.Remaining > hoursEpsilon {
			out[b.ID()] = b.Remaining
		}
	}
	return out
}
