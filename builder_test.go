package cascata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProcessBuilder_DependencyProcess(t *testing.T) {
	t.Parallel()

	proc := New("provision").
		Action("allocate", func(ctx context.Context, ec *ExecContext) (any, error) {
			return "host-1", nil
		}).
		Action("configure", func(ctx context.Context, ec *ExecContext) (any, error) {
			host, _ := ec.Result("allocate")
			return "configured " + host.(string), nil
		}).
		Dependencies(map[string][]string{
			"configure": {"allocate"},
		})

	require.Equal(t, "provision", proc.Name())

	eng := NewEngine()
	require.NoError(t, proc.Register(eng))

	results, err := Run(context.Background(), eng, "provision")
	require.NoError(t, err)
	require.Equal(t, Results{
		"allocate":  "host-1",
		"configure": "configured host-1",
	}, results)
}

func TestProcessBuilder_TransitionProcess(t *testing.T) {
	t.Parallel()

	eng := NewEngine()
	New("ticket").
		Action("open", func(ctx context.Context, ec *ExecContext) (any, error) {
			return "opened", nil
		}).
		Action("close", func(ctx context.Context, ec *ExecContext) (any, error) {
			ec.Stop()
			return nil, nil
		}).
		Transitions(
			T("open", "close"),
		).
		MustRegister(eng)

	results, err := Run(context.Background(), eng, "ticket")
	require.NoError(t, err)
	require.Equal(t, Results{"open": "opened"}, results)
}

func TestProcessBuilder_ActionSpecHooks(t *testing.T) {
	t.Parallel()

	calls := 0
	eng := NewEngine()
	New("flaky").
		ActionSpec(&Action{
			Name: "charge",
			Execute: func(ctx context.Context, ec *ExecContext) (any, error) {
				calls++
				if calls < 3 {
					return nil, errors.New("declined")
				}
				return "charged", nil
			},
			Retry: RetryLimit(5),
		}).
		Dependencies(nil).
		MustRegister(eng)

	results, err := Run(context.Background(), eng, "flaky")
	require.NoError(t, err)
	require.Equal(t, Results{"charge": "charged"}, results)
	require.Equal(t, 3, calls)
}

func TestProcessBuilder_Panics(t *testing.T) {
	t.Parallel()

	noop := func(ctx context.Context, ec *ExecContext) (any, error) { return nil, nil }

	require.Panics(t, func() { New("p").Action("", noop) })
	require.Panics(t, func() { New("p").Action("a", nil) })
	require.Panics(t, func() { New("p").ActionSpec(nil) })
	require.Panics(t, func() { New("p").ActionSpec(&Action{}) })

	eng := NewEngine()
	New("dup").Dependencies(nil).MustRegister(eng)
	require.Panics(t, func() { New("dup").Dependencies(nil).MustRegister(eng) })
}

func TestProcessBuilder_DefinitionExposesActions(t *testing.T) {
	t.Parallel()

	def := New("p").
		Action("a", func(ctx context.Context, ec *ExecContext) (any, error) { return nil, nil }).
		Dependencies(nil).
		Definition()

	require.Equal(t, "p", def.Name)
	require.Len(t, def.Actions, 1)
	require.NotNil(t, def.Strategy)
}
