package query_test

import (
	"testing"

	"github.com/jt05610/tapn"
	"github.com/jt05610/tapn/clock"
	"github.com/jt05610/tapn/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNet(t *testing.T) *tapn.Net {
	t.Helper()
	ready := tapn.NewPlace("ready", tapn.NoInvariant)
	done := tapn.NewPlace("done-list", tapn.NoInvariant)
	work := tapn.NewTransition("work")
	net, err := tapn.New("q", []*tapn.Place{ready, done}, []*tapn.Transition{work}, []tapn.Arc{
		tapn.NewInputArc(ready, work, tapn.Closed(1, 2), 1),
		tapn.NewOutputArc(work, done, 1),
	})
	require.NoError(t, err)
	return net
}

func TestParse(t *testing.T) {
	net := testNet(t)
	cases := []struct {
		src   string
		quant query.Quantifier
		bound query.Bound
	}{
		{"EF ready == 2", query.EF, query.Bound{}},
		{"AG ready <= 3", query.AG, query.Bound{}},
		{"PF[<=10.5] deadlock", query.PF, query.Bound{Kind: query.TimeBound, Time: 10.5}},
		{"PG[# <= 20] tokens(\"done-list\") < 2", query.PG, query.Bound{Kind: query.StepBound, Steps: 20}},
	}
	for _, c := range cases {
		q, err := query.Parse(c.src, net)
		require.NoError(t, err, c.src)
		assert.Equal(t, c.quant, q.Quantifier)
		assert.Equal(t, c.bound, q.Bound)
	}
	for _, bad := range []string{"", "XF ready > 0", "PF ready > 0", "EF[<=3] ready > 0", "EF", "EF ready +", "EF ready", "PF[>=2] ready > 0", "PF[<=x] ready > 0"} {
		_, err := query.Parse(bad, net)
		assert.ErrorIs(t, err, query.ErrSyntax, bad)
	}
}

func TestEvaluator_Goal(t *testing.T) {
	net := testNet(t)
	ready, _ := net.Place("ready")
	ev := query.NewEvaluator(net)
	m, err := tapn.NewMarking(net, map[int][]int{ready.Index: {0, 0}})
	require.NoError(t, err)

	ef, err := query.Parse("EF ready == 2 && tokens(\"done-list\") == 0", net)
	require.NoError(t, err)
	r := ev.Goal(ef, query.Discrete(net, m, tapn.Inf))
	require.NoError(t, r.Err)
	assert.True(t, r.Value)

	ag, err := query.Parse("AG ready == 2", net)
	require.NoError(t, err)
	r = ev.Goal(ag, query.Discrete(net, m, tapn.Inf))
	require.NoError(t, r.Err)
	assert.False(t, r.Value, "the marking satisfies the invariant so it is not a goal")

	bad, err := query.Parse("EF tokens(\"missing\") > 0", net)
	require.NoError(t, err)
	r = ev.Goal(bad, query.Discrete(net, m, tapn.Inf))
	assert.Error(t, r.Err)
}

func TestEvaluator_Deadlock(t *testing.T) {
	net := testNet(t)
	ready, _ := net.Place("ready")
	ev := query.NewEvaluator(net)
	q, err := query.Parse("EF deadlock", net)
	require.NoError(t, err)
	assert.True(t, q.Predicate.UsesDeadlock())
	require.NoError(t, query.CheckSupported(q, net))

	m, err := tapn.NewMarking(net, map[int][]int{ready.Index: {0}})
	require.NoError(t, err)
	assert.True(t, ev.Goal(q, query.Discrete(net, m, 0)).Value, "time cannot pass")
	assert.False(t, ev.Goal(q, query.Discrete(net, m, 2)).Value, "work is enabled until the bound")
	assert.True(t, ev.Goal(q, query.Discrete(net, m, tapn.Inf)).Value, "the token outgrows the guard of work")
	assert.True(t, m.Deadlocked, "the last check is kept on the marking")

	rm := tapn.NewRealMarking(net, m, clock.New(3))
	rm.Deadlocked = true
	assert.True(t, ev.Goal(q, query.Real(rm)).Value)
}

func TestCheckSupported(t *testing.T) {
	p := tapn.NewPlace("p", tapn.NoInvariant)
	orphan := tapn.NewTransition("orphan")
	net, err := tapn.New("orphans", []*tapn.Place{p}, []*tapn.Transition{orphan}, nil)
	require.NoError(t, err)
	q, err := query.Parse("EF deadlock || p > 0", net)
	require.NoError(t, err)
	assert.ErrorIs(t, query.CheckSupported(q, net), query.ErrUnsupported)
	q, err = query.Parse("EF p > 0", net)
	require.NoError(t, err)
	assert.NoError(t, query.CheckSupported(q, net))
	assert.Equal(t, "EF p > 0", q.String())
}
