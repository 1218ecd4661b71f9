package engine

import "brandpulse/internal/model"

// matchesTrigger is the cheap pre-filter applied before any condition
// evaluation. Empty platform/type/view sets mean "match all".
func matchesTrigger(w *model.Workflow, in *model.Interaction) bool {
	if len(w.Platforms) > 0 && !containsPlatform(w.Platforms, in.Platform) {
		return false
	}
	if len(w.InteractionTypes) > 0 && !containsType(w.InteractionTypes, in.Type) {
		return false
	}
	if len(w.ViewIDs) > 0 && !intersects(w.ViewIDs, in.ViewIDs) {
		return false
	}
	return true
}

func containsPlatform(set []model.Platform, p model.Platform) bool {
	for _, s := range set {
		if s == p {
			return true
		}
	}
	return false
}

func containsType(set []model.InteractionType, t model.InteractionType) bool {
	for _, s := range set {
		if s == t {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
