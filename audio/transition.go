package audio

import "sort"

// transitionPlan is the computed diff between the live module-key set and a
// target mood's module list. It exists only for the duration of one SetMood
// call and the deferred cleanups it schedules.
type transitionPlan struct {
	stop []string // live, not in target: fade out, then dispose
	keep []string // live and in target: ramp parameters
	add  []string // in target, not live: construct and start
}

// planTransition diffs the current keys against the target module list.
// Output slices are sorted so transitions are deterministic.
func planTransition(current []string, target []ModuleDial) transitionPlan {
	live := make(map[string]bool, len(current))
	for _, k := range current {
		live[k] = true
	}
	want := make(map[string]bool, len(target))
	for _, d := range target {
		want[d.Key] = true
	}

	var plan transitionPlan
	for _, k := range current {
		if want[k] {
			plan.keep = append(plan.keep, k)
		} else {
			plan.stop = append(plan.stop, k)
		}
	}
	for _, d := range target {
		if !live[d.Key] {
			plan.add = append(plan.add, d.Key)
		}
	}
	sort.Strings(plan.stop)
	sort.Strings(plan.keep)
	sort.Strings(plan.add)
	return plan
}
