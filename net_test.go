package tapn_test

import (
	"fmt"
	"testing"

	"github.com/jt05610/tapn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ExampleNew builds a net where a token must wait at least one time unit in "ready" before it is
// moved to "done".
func ExampleNew() {
	ready := tapn.NewPlace("ready", tapn.TimeInvariant{Bound: 3})
	done := tapn.NewPlace("done", tapn.NoInvariant)
	move := tapn.NewTransition("move")
	net, err := tapn.New("example",
		[]*tapn.Place{ready, done},
		[]*tapn.Transition{move},
		[]tapn.Arc{
			tapn.NewInputArc(ready, move, tapn.AtLeast(1), 1),
			tapn.NewOutputArc(move, done, 1),
		},
	)
	if err != nil {
		panic(err)
	}
	m, err := tapn.NewMarking(net, map[int][]int{ready.Index: {0}})
	if err != nil {
		panic(err)
	}
	fmt.Println(m, m.Enables(move), m.AvailableDelay())
	m.DeltaAge(1)
	fmt.Println(m, m.Enables(move))
	// Output:
	// {ready: (0,1)} false 3
	// {ready: (1,1)} true
}

func TestNew_MaxConstants(t *testing.T) {
	a := tapn.NewPlace("a", tapn.NoInvariant)
	b := tapn.NewPlace("b", tapn.TimeInvariant{Bound: 7})
	c := tapn.NewPlace("c", tapn.NoInvariant)
	d := tapn.NewPlace("d", tapn.NoInvariant)
	move := tapn.NewTransition("move")
	eat := tapn.NewTransition("eat")
	net, err := tapn.New("mc",
		[]*tapn.Place{a, b, c, d},
		[]*tapn.Transition{move, eat},
		[]tapn.Arc{
			tapn.NewTransportArc(a, move, b, tapn.Closed(0, 2), 1),
			tapn.NewInputArc(c, eat, tapn.AtLeast(4), 1),
			tapn.NewInputArc(d, eat, tapn.Any, 1),
			tapn.NewOutputArc(eat, d, 1),
		},
	)
	require.NoError(t, err)
	assert.Equal(t, 7, a.MaxConstant(), "transport source inherits the destination invariant")
	assert.Equal(t, 7, b.MaxConstant())
	assert.Equal(t, 4, c.MaxConstant())
	assert.Equal(t, -1, d.MaxConstant())
	assert.Equal(t, 7, net.MaxConstant())
	assert.False(t, move.UntimedPostset())
	assert.True(t, eat.UntimedPostset())
	assert.Equal(t, 0, a.Index)
	assert.Equal(t, 1, eat.Index)
	assert.NotNil(t, eat.Distribution)
	assert.Equal(t, "uniform(0, 1)", eat.Distribution.String())
}

func TestNew_Errors(t *testing.T) {
	p := tapn.NewPlace("p", tapn.NoInvariant)
	q := tapn.NewPlace("p", tapn.NoInvariant)
	tr := tapn.NewTransition("t")
	_, err := tapn.New("dup", []*tapn.Place{p, q}, []*tapn.Transition{tr}, nil)
	assert.ErrorIs(t, err, tapn.ErrDuplicateName)

	stranger := tapn.NewPlace("stranger", tapn.NoInvariant)
	_, err = tapn.New("foreign", []*tapn.Place{p}, []*tapn.Transition{tr},
		[]tapn.Arc{tapn.NewOutputArc(tr, stranger, 1)})
	assert.ErrorIs(t, err, tapn.ErrForeignNode)

	_, err = tapn.New("weight", []*tapn.Place{p}, []*tapn.Transition{tr},
		[]tapn.Arc{tapn.NewInputArc(p, tr, tapn.Any, 0)})
	assert.ErrorIs(t, err, tapn.ErrInvalidArc)
}

func TestNet_Lookup(t *testing.T) {
	p := tapn.NewPlace("p", tapn.NoInvariant)
	used := tapn.NewTransition("used")
	orphan := tapn.NewTransition("orphan")
	net, err := tapn.New("lookup", []*tapn.Place{p}, []*tapn.Transition{used, orphan},
		[]tapn.Arc{tapn.NewOutputArc(used, p, 1)})
	require.NoError(t, err)
	got, ok := net.Place("p")
	assert.True(t, ok)
	assert.Same(t, p, got)
	_, ok = net.Transition("missing")
	assert.False(t, ok)
	assert.Equal(t, []*tapn.Transition{orphan}, net.OrphanTransitions())
	assert.Equal(t, 0, net.MaxConstant())
	assert.Len(t, p.OutputArcs(), 1)
	assert.Len(t, used.Postset(), 1)
}
