package cascata

import (
	"fmt"

	"github.com/petrijr/cascata/pkg/api"
)

// ProcessBuilder provides a fluent API for defining processes:
//
//	proc := cascata.New("provision-host").
//	    Action("allocate", allocate).
//	    Action("configure", configure).
//	    Action("register", register).
//	    Dependencies(map[string][]string{
//	        "configure": {"allocate"},
//	        "register":  {"configure"},
//	    })
//
//	if err := proc.Register(engine); err != nil {
//	    log.Fatal(err)
//	}
//
//	results, err := cascata.Run(ctx, engine, proc.Name(), input)
type ProcessBuilder struct {
	def api.ProcessDefinition
}

// New creates a new process builder with the given name.
func New(name string) *ProcessBuilder {
	return &ProcessBuilder{
		def: api.ProcessDefinition{
			Name:    name,
			Actions: make([]*api.Action, 0),
		},
	}
}

// Name returns the process name.
func (b *ProcessBuilder) Name() string {
	return b.def.Name
}

// Definition returns the underlying ProcessDefinition.
// Typically used when interacting with lower-level APIs.
func (b *ProcessBuilder) Definition() ProcessDefinition {
	return b.def
}

// Action appends an action whose only configured hook is Execute.
func (b *ProcessBuilder) Action(name string, fn ExecFunc) *ProcessBuilder {
	if name == "" {
		panic("cascata: action name must not be empty")
	}
	if fn == nil {
		panic(fmt.Sprintf("cascata: action %q has nil function", name))
	}
	b.def.Actions = append(b.def.Actions, api.NewAction(name, fn))
	return b
}

// ActionSpec appends a fully-specified action. Use this for actions that
// need hooks beyond Execute, or template defaults:
//
//	b.ActionSpec(&cascata.Action{
//	    Name:     "charge",
//	    Execute:  charge,
//	    Retry:    retryTwice,
//	    Rollback: refund,
//	    Defaults: map[string]any{"attempts": 0},
//	})
func (b *ProcessBuilder) ActionSpec(a *Action) *ProcessBuilder {
	if a == nil || a.Name == "" {
		panic("cascata: action spec requires a name")
	}
	b.def.Actions = append(b.def.Actions, a)
	return b
}

// Dependencies configures workflow mode: actions run as soon as the named
// dependencies have completed, independent branches concurrently, and the
// run resolves once every action has finished.
func (b *ProcessBuilder) Dependencies(deps map[string][]string) *ProcessBuilder {
	b.def.Strategy = api.DependencyStrategy(deps)
	return b
}

// Transitions configures state-machine mode: one current action at a time,
// the next chosen by the first rule matching the current conditions. The run
// only ends via Stop, Cancel, or an unrecovered failure.
func (b *ProcessBuilder) Transitions(rules ...Rule) *ProcessBuilder {
	b.def.Strategy = api.TransitionStrategy(rules...)
	return b
}

// Strategy configures a custom scheduling strategy.
func (b *ProcessBuilder) Strategy(s api.Strategy) *ProcessBuilder {
	b.def.Strategy = s
	return b
}

// Register registers the built process with the given engine.
func (b *ProcessBuilder) Register(eng Engine) error {
	return eng.RegisterProcess(b.def)
}

// MustRegister is like Register but panics on error.
// Useful for initialization in main().
func (b *ProcessBuilder) MustRegister(eng Engine) {
	if err := b.Register(eng); err != nil {
		panic(err)
	}
}
