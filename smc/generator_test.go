package smc

import (
	"math"
	"testing"

	"github.com/jt05610/tapn"
	"github.com/jt05610/tapn/clock"
	"github.com/jt05610/tapn/distribution"
	"github.com/jt05610/tapn/interval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testClock = clock.New(5)

func realMarking(t *testing.T, net *tapn.Net, placement map[int][]int) *tapn.RealMarking {
	t.Helper()
	m, err := tapn.NewMarking(net, placement)
	require.NoError(t, err)
	return tapn.NewRealMarking(net, m, testClock)
}

func TestArcFiringDates(t *testing.T) {
	net, err := tapn.New("empty", nil, nil, nil)
	require.NoError(t, err)
	g := NewRunGenerator(net, testClock, 1)
	iv := tapn.Closed(1, 3)
	cases := []struct {
		name   string
		weight int
		tokens []tapn.RealToken
		want   interval.Set
	}{
		{"shared age", 1, []tapn.RealToken{{Age: testClock.FromInt(0), Count: 2}}, interval.Set{{Lower: 1, Upper: 3}}},
		{"two ages", 1, []tapn.RealToken{{Age: testClock.FromInt(0), Count: 1}, {Age: testClock.FromInt(1), Count: 1}}, interval.Set{{Lower: 0, Upper: 3}}},
		{"window", 2, []tapn.RealToken{{Age: testClock.FromInt(0), Count: 1}, {Age: testClock.FromInt(1), Count: 1}}, interval.Set{{Lower: 1, Upper: 2}}},
		{"too few", 3, []tapn.RealToken{{Age: testClock.FromInt(0), Count: 2}}, nil},
		{"too old", 1, []tapn.RealToken{{Age: testClock.FromInt(5), Count: 1}}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, g.arcFiringDates(iv, tc.weight, tc.tokens))
		})
	}
	unbounded := g.arcFiringDates(tapn.AtLeast(2), 1, []tapn.RealToken{{Age: testClock.FromFloat(0.5), Count: 1}})
	require.Len(t, unbounded, 1)
	assert.Equal(t, 1.5, unbounded[0].Lower)
	assert.True(t, math.IsInf(unbounded[0].Upper, 1))
}

func TestEnabledAtDelayOne(t *testing.T) {
	p := tapn.NewPlace("p", tapn.NoInvariant)
	tr := tapn.NewTransition("t")
	net, err := tapn.New("delay", []*tapn.Place{p}, []*tapn.Transition{tr}, []tapn.Arc{
		tapn.NewInputArc(p, tr, tapn.Closed(1, 3), 1),
	})
	require.NoError(t, err)
	g := NewRunGenerator(net, testClock, 1)
	g.Prepare(realMarking(t, net, map[int][]int{0: {0, 0}}))

	assert.Equal(t, interval.Set{{Lower: 1, Upper: 3}}, g.Interval(tr))
	assert.True(t, math.IsInf(g.dates[tr.Index], 1), "not enabled at delay 0")

	m := g.Next()
	require.NotNil(t, m)
	assert.Nil(t, m.GeneratedBy)
	assert.Equal(t, 0, g.RunSteps())
	assert.Equal(t, 1.0, g.RunDelay())
	assert.Equal(t, interval.Set{{Lower: 0, Upper: 2}}, g.Interval(tr))
	assert.False(t, math.IsInf(g.dates[tr.Index], 1), "sampled once enabled")
}

func TestInfiniteWeightWins(t *testing.T) {
	p := tapn.NewPlace("p", tapn.NoInvariant)
	pa := tapn.NewPlace("pa", tapn.NoInvariant)
	pb := tapn.NewPlace("pb", tapn.NoInvariant)
	a := tapn.NewTransition("a").WithWeight(math.Inf(1)).WithDistribution(distribution.Constant{Value: 1})
	b := tapn.NewTransition("b").WithWeight(10).WithDistribution(distribution.Constant{Value: 1})
	net, err := tapn.New("priority", []*tapn.Place{p, pa, pb}, []*tapn.Transition{a, b}, []tapn.Arc{
		tapn.NewInputArc(p, a, tapn.Any, 1),
		tapn.NewOutputArc(a, pa, 1),
		tapn.NewInputArc(p, b, tapn.Any, 1),
		tapn.NewOutputArc(b, pb, 1),
	})
	require.NoError(t, err)
	g := NewRunGenerator(net, testClock, 1)
	g.Prepare(realMarking(t, net, map[int][]int{0: {0}}))
	for seed := uint64(0); seed < 50; seed++ {
		g.Reseed(seed)
		g.Reset()
		m := g.Next()
		require.NotNil(t, m)
		assert.Same(t, a, m.GeneratedBy)
		assert.Equal(t, 1, m.Count(pa.Index))
	}
	assert.Equal(t, []int{50, 0}, g.TransitionStatistics())
}

func TestSampleBeyondIntervalIsMaximal(t *testing.T) {
	p := tapn.NewPlace("p", tapn.NoInvariant)
	q := tapn.NewPlace("q", tapn.NoInvariant)
	tr := tapn.NewTransition("t").WithDistribution(distribution.Constant{Value: 5})
	net, err := tapn.New("late", []*tapn.Place{p, q}, []*tapn.Transition{tr}, []tapn.Arc{
		tapn.NewInputArc(p, tr, tapn.Closed(0, 2), 1),
		tapn.NewOutputArc(tr, q, 1),
	})
	require.NoError(t, err)
	g := NewRunGenerator(net, testClock, 1)
	g.Prepare(realMarking(t, net, map[int][]int{0: {0}}))

	m := g.Next()
	require.NotNil(t, m, "time passes to the end of the interval")
	assert.Equal(t, 2.0, g.RunDelay())
	assert.Nil(t, g.Next())
	assert.True(t, g.ReachedEnd())
	assert.Equal(t, 0, g.RunSteps())
}

func TestTransportKeepsAge(t *testing.T) {
	p := tapn.NewPlace("p", tapn.NoInvariant)
	q := tapn.NewPlace("q", tapn.TimeInvariant{Bound: 3})
	tr := tapn.NewTransition("t").WithDistribution(distribution.Constant{Value: 0.5})
	net, err := tapn.New("transport", []*tapn.Place{p, q}, []*tapn.Transition{tr}, []tapn.Arc{
		tapn.NewTransportArc(p, tr, q, tapn.Any, 1),
	})
	require.NoError(t, err)
	g := NewRunGenerator(net, testClock, 1).WithTrace(true)
	g.Prepare(realMarking(t, net, map[int][]int{0: {0, 0}}))
	m := g.Next()
	require.NotNil(t, m)
	assert.Equal(t, 2, m.Size())
	require.Len(t, m.TokensIn(q), 1)
	assert.Equal(t, 0.5, testClock.ToFloat(m.TokensIn(q)[0].Age))

	trace := g.Trace()
	require.Len(t, trace, 2)
	assert.Equal(t, 2, trace[0].Count(p.Index))
	assert.Equal(t, 0.5, testClock.ToFloat(trace[0].PreviousDelay))
	assert.Same(t, tr, trace[1].GeneratedBy)
}

func TestDatesAreNonNegative(t *testing.T) {
	a := tapn.NewPlace("a", tapn.TimeInvariant{Bound: 4})
	b := tapn.NewPlace("b", tapn.NoInvariant)
	c := tapn.NewPlace("c", tapn.NoInvariant)
	move := tapn.NewTransition("move").WithDistribution(distribution.Exponential{Rate: 2})
	finish := tapn.NewTransition("finish").WithDistribution(distribution.Uniform{Min: 0, Max: 3})
	renew := tapn.NewTransition("renew").WithDistribution(distribution.Exponential{Rate: 0.5})
	back := tapn.NewTransition("back").WithDistribution(distribution.Constant{Value: 1})
	net, err := tapn.New("pipeline", []*tapn.Place{a, b, c}, []*tapn.Transition{move, finish, renew, back}, []tapn.Arc{
		tapn.NewTransportArc(a, move, b, tapn.Closed(1, 2), 1),
		tapn.NewInputArc(b, finish, tapn.Closed(3, 5), 1),
		tapn.NewOutputArc(finish, c, 1),
		tapn.NewInputArc(a, renew, tapn.Any, 1),
		tapn.NewOutputArc(renew, a, 1),
		tapn.NewInhibitorArc(c, renew, 2),
		tapn.NewInputArc(c, back, tapn.AtLeast(1), 1),
		tapn.NewOutputArc(back, a, 1),
	})
	require.NoError(t, err)
	g := NewRunGenerator(net, testClock, 3)
	g.Prepare(realMarking(t, net, map[int][]int{0: {0, 0}}))
	for seed := uint64(0); seed < 20; seed++ {
		g.Reseed(seed)
		g.Reset()
		last := 0.0
		for i := 0; i < 100; i++ {
			m := g.Next()
			if m == nil {
				break
			}
			assert.Equal(t, 2, m.Size())
			assert.GreaterOrEqual(t, g.RunDelay(), last)
			last = g.RunDelay()
			for _, tr := range net.Transitions {
				assert.GreaterOrEqual(t, g.dates[tr.Index], 0.0)
				for _, iv := range g.Interval(tr) {
					assert.GreaterOrEqual(t, iv.Lower, 0.0)
					assert.LessOrEqual(t, iv.Lower, iv.Upper)
				}
			}
		}
	}
}

func TestCopyIsReproducible(t *testing.T) {
	p := tapn.NewPlace("p", tapn.NoInvariant)
	q := tapn.NewPlace("q", tapn.NoInvariant)
	tr := tapn.NewTransition("t").WithDistribution(distribution.Exponential{Rate: 1})
	back := tapn.NewTransition("back").WithDistribution(distribution.Exponential{Rate: 3})
	net, err := tapn.New("cycle", []*tapn.Place{p, q}, []*tapn.Transition{tr, back}, []tapn.Arc{
		tapn.NewInputArc(p, tr, tapn.Any, 1),
		tapn.NewOutputArc(tr, q, 1),
		tapn.NewInputArc(q, back, tapn.Any, 1),
		tapn.NewOutputArc(back, p, 1),
	})
	require.NoError(t, err)
	g := NewRunGenerator(net, testClock, 1)
	g.Prepare(realMarking(t, net, map[int][]int{0: {0, 0, 0}}))
	c := g.Copy(99)

	run := func(g *RunGenerator) []float64 {
		g.Reseed(7)
		g.Reset()
		var delays []float64
		for i := 0; i < 20; i++ {
			require.NotNil(t, g.Next())
			delays = append(delays, g.RunDelay())
		}
		return delays
	}
	assert.Equal(t, run(g), run(c))
	assert.Equal(t, 20, c.RunSteps())
}

func TestDeadlockFlag(t *testing.T) {
	p := tapn.NewPlace("p", tapn.NoInvariant)
	q := tapn.NewPlace("q", tapn.NoInvariant)
	tr := tapn.NewTransition("t")
	net, err := tapn.New("once", []*tapn.Place{p, q}, []*tapn.Transition{tr}, []tapn.Arc{
		tapn.NewInputArc(p, tr, tapn.Any, 1),
		tapn.NewOutputArc(tr, q, 1),
	})
	require.NoError(t, err)
	g := NewRunGenerator(net, testClock, 1)
	g.Prepare(realMarking(t, net, map[int][]int{0: {0}}))
	assert.False(t, g.Marking().Deadlocked)
	m := g.Next()
	require.NotNil(t, m)
	assert.True(t, m.Deadlocked)
	assert.Nil(t, g.Next())

	g.Prepare(realMarking(t, net, map[int][]int{1: {0}}))
	assert.True(t, g.Marking().Deadlocked)
}
