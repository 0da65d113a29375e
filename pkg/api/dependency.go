package api

// DependencyStrategy returns the workflow-mode strategy: an action becomes
// eligible as soon as every dependency named for it in deps has completed,
// and independent branches fan out concurrently. Actions missing from deps
// have no dependencies and start immediately.
//
// The strategy self-terminates: once every action in the set has completed
// it calls rc.Stop. Initial and next scheduling are the same computation, so
// any start hint in the dispatch arguments is ignored.
func DependencyStrategy(deps map[string][]string) Strategy {
	if deps == nil {
		deps = map[string][]string{}
	}
	return &dependencyStrategy{deps: deps}
}

type dependencyStrategy struct {
	deps map[string][]string
}

func (s *dependencyStrategy) InitialActions(actions []*Action, rc *RunContext) []*Action {
	return s.NextActions(actions, rc)
}

func (s *dependencyStrategy) NextActions(actions []*Action, rc *RunContext) []*Action {
	if rc.CompletedCount() == len(actions) {
		rc.Stop()
		return nil
	}

	completed := make(map[string]struct{})
	for _, name := range rc.Completed() {
		completed[name] = struct{}{}
	}

	var ready []*Action
	for _, a := range actions {
		// "Already started" is a hard exclusion in dependency mode; an
		// action runs at most once per run.
		if rc.HasStarted(a.Name) {
			continue
		}
		if depsMet(s.deps[a.Name], completed) {
			ready = append(ready, a)
		}
	}
	return ready
}

func depsMet(deps []string, completed map[string]struct{}) bool {
	for _, d := range deps {
		if _, ok := completed[d]; !ok {
			return false
		}
	}
	return true
}
