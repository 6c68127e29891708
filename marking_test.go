package tapn_test

import (
	"testing"

	"github.com/jt05610/tapn"
	"github.com/jt05610/tapn/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoPlaces has a place "a" with max constant 2 and an untimed place "b".
func twoPlaces(t *testing.T) (*tapn.Net, *tapn.Place, *tapn.Place) {
	t.Helper()
	a := tapn.NewPlace("a", tapn.TimeInvariant{Bound: 2})
	b := tapn.NewPlace("b", tapn.NoInvariant)
	tr := tapn.NewTransition("t")
	net, err := tapn.New("two", []*tapn.Place{a, b}, []*tapn.Transition{tr}, []tapn.Arc{
		tapn.NewInputArc(a, tr, tapn.Closed(1, 2), 1),
		tapn.NewOutputArc(tr, b, 1),
	})
	require.NoError(t, err)
	return net, a, b
}

func assertSorted(t *testing.T, m *tapn.Marking) {
	t.Helper()
	for i, pt := range m.Places {
		if i > 0 {
			assert.Less(t, m.Places[i-1].Place.Index, pt.Place.Index)
		}
		assert.NotEmpty(t, pt.Tokens)
		for j := 1; j < len(pt.Tokens); j++ {
			assert.Less(t, pt.Tokens[j-1].Age, pt.Tokens[j].Age)
		}
		for _, tok := range pt.Tokens {
			assert.Positive(t, tok.Count)
		}
	}
}

func TestMarking_AddRemove(t *testing.T) {
	_, a, b := twoPlaces(t)
	m := &tapn.Marking{}
	m.AddToken(b, 0, 1)
	m.AddToken(a, 3, 1)
	m.AddToken(a, 1, 2)
	m.AddToken(a, 3, 1)
	m.AddToken(a, 2, 0)
	assertSorted(t, m)
	assert.Equal(t, tapn.TokenList{{Age: 1, Count: 2}, {Age: 3, Count: 2}}, m.TokensIn(a))
	assert.Equal(t, 5, m.Size())

	require.NoError(t, m.RemoveToken(a, 1, 2))
	assertSorted(t, m)
	assert.ErrorIs(t, m.RemoveToken(a, 1, 1), tapn.ErrTokenNotFound)
	assert.ErrorIs(t, m.RemoveToken(a, 3, 3), tapn.ErrTokenNotFound)
	require.NoError(t, m.RemoveToken(b, 0, 1))
	assert.Len(t, m.Places, 1, "empty places are dropped")
	assert.ErrorIs(t, m.RemoveToken(b, 0, 1), tapn.ErrTokenNotFound)
	assertSorted(t, m)
}

func TestMarking_CutIsIdempotent(t *testing.T) {
	_, a, b := twoPlaces(t)
	m := &tapn.Marking{}
	m.AddToken(a, 1, 1)
	m.AddToken(a, 3, 1)
	m.AddToken(a, 5, 1)
	m.AddToken(b, 4, 2)
	m.Cut()
	assert.Equal(t, tapn.TokenList{{Age: 1, Count: 1}, {Age: 3, Count: 2}}, m.TokensIn(a))
	assert.Equal(t, tapn.TokenList{{Age: 0, Count: 2}}, m.TokensIn(b))
	once := m.Clone()
	m.Cut()
	assert.True(t, once.Equal(m))
	assert.Equal(t, 4, m.Size())
}

func TestMarking_MakeBase(t *testing.T) {
	_, a, b := twoPlaces(t)
	m := &tapn.Marking{}
	m.AddToken(a, 2, 1)
	m.AddToken(a, 3, 1)
	m.AddToken(b, 0, 1)
	m.Cut()
	// b is untimed: its tokens sit at the overflow age 0 and do not count.
	assert.Equal(t, 2, m.Youngest())
	assert.Equal(t, 2, m.MakeBase())
	assert.Equal(t, tapn.TokenList{{Age: 0, Count: 1}, {Age: 3, Count: 1}}, m.TokensIn(a))
	assert.Equal(t, 0, m.MakeBase())

	other := &tapn.Marking{}
	other.AddToken(a, 1, 1)
	other.AddToken(a, 7, 1)
	other.AddToken(b, 9, 1)
	other.Cut()
	assert.Equal(t, 1, other.MakeBase())
	assert.True(t, m.Equal(other))
	assert.Equal(t, m.AppendKey(nil), other.AppendKey(nil))
}

func TestMarking_AvailableDelay(t *testing.T) {
	_, a, b := twoPlaces(t)
	m := &tapn.Marking{}
	m.AddToken(b, 0, 1)
	assert.Equal(t, tapn.Inf, m.AvailableDelay())
	m.AddToken(a, 1, 1)
	assert.Equal(t, 1, m.AvailableDelay())
	m.DeltaAge(2)
	assert.Equal(t, 0, m.AvailableDelay())
}

func TestMarking_Enables(t *testing.T) {
	net, a, _ := twoPlaces(t)
	tr := net.Transitions[0]
	m, err := tapn.NewMarking(net, map[int][]int{a.Index: {0}})
	require.NoError(t, err)
	assert.False(t, m.Enables(tr))
	assert.Empty(t, m.Enabled(net))
	m.DeltaAge(1)
	assert.True(t, m.Enables(tr))
	assert.False(t, m.CanDeadlock(net, 0))
	m.DeltaAge(2)
	assert.False(t, m.Enables(tr))
	assert.True(t, m.CanDeadlock(net, tapn.Inf))

	_, err = tapn.NewMarking(net, map[int][]int{5: {0}})
	assert.ErrorIs(t, err, tapn.ErrUnknownPlace)
}

func TestMarking_CanDeadlock(t *testing.T) {
	net, a, _ := twoPlaces(t)
	m, err := tapn.NewMarking(net, map[int][]int{a.Index: {0}})
	require.NoError(t, err)
	assert.True(t, m.CanDeadlock(net, 0), "t is not enabled and time cannot pass")
	assert.False(t, m.CanDeadlock(net, 1), "t is enabled at the end of the window")
	assert.False(t, m.CanDeadlock(net, m.AvailableDelay()))

	p := tapn.NewPlace("p", tapn.NoInvariant)
	loop := tapn.NewTransition("loop")
	net, err = tapn.New("loop", []*tapn.Place{p}, []*tapn.Transition{loop}, []tapn.Arc{
		tapn.NewInputArc(p, loop, tapn.Closed(0, 0), 1),
		tapn.NewOutputArc(loop, p, 1),
	})
	require.NoError(t, err)
	m, err = tapn.NewMarking(net, map[int][]int{p.Index: {0}})
	require.NoError(t, err)
	assert.True(t, m.Enables(loop))
	assert.False(t, m.CanDeadlock(net, 0))
	assert.True(t, m.CanDeadlock(net, tapn.Inf), "waiting one unit disables loop for good")
}

func TestMarking_Inhibitor(t *testing.T) {
	p := tapn.NewPlace("p", tapn.NoInvariant)
	block := tapn.NewPlace("block", tapn.NoInvariant)
	tr := tapn.NewTransition("t").WithUrgency(true)
	net, err := tapn.New("inhib", []*tapn.Place{p, block}, []*tapn.Transition{tr}, []tapn.Arc{
		tapn.NewInputArc(p, tr, tapn.Any, 1),
		tapn.NewInhibitorArc(block, tr, 2),
	})
	require.NoError(t, err)
	m, err := tapn.NewMarking(net, map[int][]int{0: {0}, 1: {0}})
	require.NoError(t, err)
	assert.True(t, m.Enables(tr))
	assert.True(t, m.UrgentEnabled(net))
	m.AddToken(block, 0, 1)
	assert.False(t, m.Enables(tr))
	assert.False(t, m.UrgentEnabled(net))
}

func TestRealMarking(t *testing.T) {
	net, a, b := twoPlaces(t)
	base, err := tapn.NewMarking(net, map[int][]int{a.Index: {0, 0}})
	require.NoError(t, err)
	c := clock.New(3)
	m := tapn.NewRealMarking(net, base, c)
	assert.Equal(t, 2, m.Size())
	assert.Equal(t, c.FromInt(2), m.AvailableDelay())
	assert.False(t, m.Enables(net.Transitions[0]))

	m.DeltaAge(c.FromFloat(1.25))
	assert.True(t, m.Enables(net.Transitions[0]))
	assert.Equal(t, c.FromFloat(0.75), m.AvailableDelay())
	assert.Equal(t, c.FromFloat(1.25), m.TotalAge)

	clone := m.Clone()
	require.True(t, clone.RemoveToken(a, c.FromFloat(1.25), 1))
	clone.AddToken(b, 0, 1)
	assert.Equal(t, 2, m.Count(a.Index), "clone does not share tokens")
	assert.Equal(t, 1, clone.Count(b.Index))
	assert.False(t, clone.RemoveToken(a, 0, 1))

	img := clone.Image()
	assert.Equal(t, tapn.TokenList{{Age: 0, Count: 1}}, img.TokensIn(a))
	assert.Equal(t, 2, img.Size())
}
