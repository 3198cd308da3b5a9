package scheduling

import (
	"fmt"
	"math/rand"
	"sort"
)

// Candidate is one arrangement to try for a day: a single module or an ordered pair.
type Candidate struct {
	First  *ModuleBudget
	Second *ModuleBudget
	Score  float64
}

// Key identifies the candidate in logs.
func (c Candidate) Key() string {
	if c.Second == nil {
		return c.First.ID()
	}
	return fmt.Sprintf("%s+%s", c.First.ID(), c.Second.ID())
}

const (
	freshModuleBonus  = 10.0
	usagePenalty      = 0.5
	nearlyDoneBonus   = 5.0
	nearlyDoneHours   = 10.0
	singleModuleBias  = -10.0
	tieScoreTolerance = 1.0
)

// BuildCandidates scores one single-module candidate per pool member and one
// ordered pair for every two distinct members.
func BuildCandidates(pool []*ModuleBudget, state *State) []Candidate {
	candidates := make([]Candidate, 0, len(pool)*len(pool))
	for _, a := range pool {
		single := singleModuleBias - usagePenalty*float64(a.Usage)
		if a.Remaining < nearlyDoneHours {
			single += nearlyDoneBonus
		}
		candidates = append(candidates, Candidate{First: a, Score: single})

		for _, b := range pool {
			if a == b {
				continue
			}
			var score float64
			if !state.UsedYesterday(a.ID()) {
				score += freshModuleBonus
			}
			if !state.UsedYesterday(b.ID()) {
				score += freshModuleBonus
			}
			score -= usagePenalty * float64(a.Usage)
			score -= usagePenalty * float64(b.Usage)
			if a.Remaining < nearlyDoneHours {
				score += nearlyDoneBonus
			}
			candidates = append(candidates, Candidate{First: a, Second: b, Score: score})
		}
	}
	return candidates
}

// Rank sorts candidates by score descending. Runs of candidates within one
// point of the run's best score are shuffled with rng; a nil rng keeps the
// stable order.
func Rank(candidates []Candidate, rng *rand.Rand) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if rng == nil {
		return
	}
	for i := 0; i < len(candidates); {
		j := i + 1
		for j < len(candidates) && candidates[i].Score-candidates[j].Score < tieScoreTolerance {
			j++
		}
		group := candidates[i:j]
		rng.Shuffle(len(group), func(a, b int) { group[a], group[b] = group[b], group[a] })
		i = j
	}
}

// Placement is the set of segments one module receives in a day plan.
type Placement struct {
	Module   *ModuleBudget
	Segments []Interval
}

// Hours returns the hours covered by the placement.
func (p Placement) Hours() float64 { return TotalHours(p.Segments) }

// DayPlan is the tentative arrangement produced for a candidate.
type DayPlan struct {
	Candidate  Candidate
	Placements []Placement
}

// Segments flattens all placements in day order.
func (p DayPlan) Segments() []Interval {
	var out []Interval
	for _, pl := range p.Placements {
		out = append(out, pl.Segments...)
	}
	return out
}

// Empty reports whether the plan places nothing.
func (p DayPlan) Empty() bool {
	for _, pl := range p.Placements {
		if len(pl.Segments) > 0 {
			return false
		}
	}
	return true
}

// PlanDay sizes the candidate's blocks against the daily budget and lays them
// out from the start of the work window, longer block first.
//
// A single module fills min(remaining, budget). A pair gives the first module
// its preferred chunk and the second whatever budget is left, capped at its
// remaining hours.
func PlanDay(c Candidate, w DayWindow, budget float64) DayPlan {
	first, second := c.First, c.Second
	var dur1, dur2 float64
	if second == nil {
		dur1 = minHours(first.Remaining, budget)
	} else {
		dur1 = minHours(first.PreferredChunk(), budget)
		dur2 = minHours(budget-dur1, second.Remaining)
		if dur2 < hoursEpsilon {
			dur2 = 0
		}
		if dur2 > dur1 {
			first, second = second, first
			dur1, dur2 = dur2, dur1
		}
	}

	plan := DayPlan{Candidate: Candidate{First: first, Second: second, Score: c.Score}}
	cursor := w.WorkStart
	for _, step := range []struct {
		module *ModuleBudget
		hours  float64
	}{{first, dur1}, {second, dur2}} {
		if step.module == nil || step.hours <= 0 {
			continue
		}
		res := Split(cursor, step.hours, w)
		if len(res.Segments) == 0 {
			break
		}
		plan.Placements = append(plan.Placements, Placement{Module: step.module, Segments: res.Segments})
		cursor = res.Next
	}
	return plan
}

func minHours(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
