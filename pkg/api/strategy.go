package api

// Strategy decides which actions a run executes and in what order. The
// engine calls InitialActions once per run and NextActions after every
// action completion (and after an Update arriving while the run idles).
//
// Returning an empty slice is not an error: the run simply idles, waiting
// for conditions, until Update makes an action eligible or a caller (or an
// action hook) invokes Stop or Cancel.
type Strategy interface {
	// InitialActions returns the first batch to schedule.
	InitialActions(actions []*Action, rc *RunContext) []*Action

	// NextActions returns the actions to schedule after a completion.
	// Implementations may call rc.Stop to terminate the run.
	NextActions(actions []*Action, rc *RunContext) []*Action
}

// ContextSeeder is an optional Strategy extension that derives per-run
// context from the dispatch arguments before the first cascade.
type ContextSeeder interface {
	SeedContext(args []any) ContextSeed
}

// ContextSeed is the strategy-derived portion of a fresh RunContext.
type ContextSeed struct {
	// Start names the action the run should begin at, if the strategy
	// honors start hints.
	Start string

	// Conditions are merged into the run's condition set.
	Conditions map[string]any
}

// findAction returns the action with the given name, or nil.
func findAction(actions []*Action, name string) *Action {
	for _, a := range actions {
		if a.Name == name {
			return a
		}
	}
	return nil
}
