package audio

import (
	"reflect"
	"testing"
)

func TestPlanTransition_Diff(t *testing.T) {
	current := []string{"a", "b", "c"}
	target := []ModuleDial{{Key: "b"}, {Key: "c"}, {Key: "d"}}

	plan := planTransition(current, target)

	if !reflect.DeepEqual(plan.stop, []string{"a"}) {
		t.Errorf("stop = %v, want [a]", plan.stop)
	}
	if !reflect.DeepEqual(plan.keep, []string{"b", "c"}) {
		t.Errorf("keep = %v, want [b c]", plan.keep)
	}
	if !reflect.DeepEqual(plan.add, []string{"d"}) {
		t.Errorf("add = %v, want [d]", plan.add)
	}
}

func TestPlanTransition_EmptyToFull(t *testing.T) {
	plan := planTransition(nil, []ModuleDial{{Key: "pad"}, {Key: "drone"}})
	if len(plan.stop) != 0 || len(plan.keep) != 0 {
		t.Errorf("stop=%v keep=%v, want empty", plan.stop, plan.keep)
	}
	if !reflect.DeepEqual(plan.add, []string{"drone", "pad"}) {
		t.Errorf("add = %v, want sorted [drone pad]", plan.add)
	}
}

func TestPlanTransition_FullToEmpty(t *testing.T) {
	plan := planTransition([]string{"pad", "drone"}, nil)
	if !reflect.DeepEqual(plan.stop, []string{"drone", "pad"}) {
		t.Errorf("stop = %v, want sorted [drone pad]", plan.stop)
	}
	if len(plan.keep) != 0 || len(plan.add) != 0 {
		t.Errorf("keep=%v add=%v, want empty", plan.keep, plan.add)
	}
}

func TestPlanTransition_Identical(t *testing.T) {
	plan := planTransition([]string{"pad"}, []ModuleDial{{Key: "pad"}})
	if len(plan.stop) != 0 || len(plan.add) != 0 {
		t.Errorf("stop=%v add=%v for identical sets", plan.stop, plan.add)
	}
	if !reflect.DeepEqual(plan.keep, []string{"pad"}) {
		t.Errorf("keep = %v, want [pad]", plan.keep)
	}
}
