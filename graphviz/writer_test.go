package graphviz_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jt05610/tapn"
	"github.com/jt05610/tapn/examples"
	"github.com/jt05610/tapn/graphviz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeline(t *testing.T) (*tapn.Net, *tapn.Marking) {
	t.Helper()
	a := tapn.NewPlace("a", tapn.TimeInvariant{Bound: 4})
	b := tapn.NewPlace("b", tapn.NoInvariant)
	c := tapn.NewPlace("c", tapn.NoInvariant)
	move := tapn.NewTransition("move")
	finish := tapn.NewTransition("finish")
	renew := tapn.NewTransition("renew").WithUrgency(true)
	net, err := tapn.New("pipeline", []*tapn.Place{a, b, c}, []*tapn.Transition{move, finish, renew}, []tapn.Arc{
		tapn.NewTransportArc(a, move, b, tapn.Closed(1, 2), 1),
		tapn.NewInputArc(b, finish, tapn.Closed(3, 5), 1),
		tapn.NewOutputArc(finish, c, 2),
		tapn.NewInputArc(a, renew, tapn.Any, 1),
		tapn.NewOutputArc(renew, a, 1),
		tapn.NewInhibitorArc(c, renew, 1),
	})
	require.NoError(t, err)
	m, err := tapn.NewMarking(net, map[int][]int{0: {0, 0}})
	require.NoError(t, err)
	return net, m
}

func TestWriter_Flush(t *testing.T) {
	net, m := pipeline(t)
	buf := new(bytes.Buffer)
	w := graphviz.New(&graphviz.Config{Font: graphviz.Helvetica})
	require.NoError(t, w.Flush(buf, net, m))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "digraph"))
	assert.Contains(t, out, "odot")
	assert.Contains(t, out, "dashed")
	assert.Contains(t, out, "[3,5]")
}

func TestE2E(t *testing.T) {
	net, m := pipeline(t)
	buf := new(bytes.Buffer)
	w := graphviz.New(&graphviz.Config{Font: graphviz.Helvetica, RankDir: graphviz.TopToBottom})
	require.NoError(t, w.Flush(buf, net, m))

	read, err := graphviz.Loader().Load(buf)
	require.NoError(t, err)
	require.Len(t, read.Places, len(net.Places))
	require.Len(t, read.Transitions, len(net.Transitions))
	assert.Len(t, read.Arcs, len(net.Arcs))
	for i, p := range net.Places {
		assert.Equal(t, p.Name, read.Places[i].Name)
		assert.Equal(t, p.Invariant, read.Places[i].Invariant)
	}
	for i, tr := range net.Transitions {
		got := read.Transitions[i]
		assert.Equal(t, tr.Name, got.Name)
		assert.Equal(t, tr.Urgent, got.Urgent)
		assert.Len(t, got.Preset(), len(tr.Preset()))
		assert.Len(t, got.Postset(), len(tr.Postset()))
		assert.Len(t, got.TransportArcs(), len(tr.TransportArcs()))
		assert.Len(t, got.InhibitorArcs(), len(tr.InhibitorArcs()))
	}
	move, ok := read.Transition("move")
	require.True(t, ok)
	require.Len(t, move.TransportArcs(), 1)
	assert.Equal(t, tapn.Closed(1, 2), move.TransportArcs()[0].Interval)
	finish, _ := read.Transition("finish")
	assert.Equal(t, 2, finish.Postset()[0].Weight)
	assert.Equal(t, net.MaxConstant(), read.MaxConstant())
}

func TestPump(t *testing.T) {
	pump := examples.NewPump()
	buf := new(bytes.Buffer)
	require.NoError(t, graphviz.New(&graphviz.Config{}).Flush(buf, pump.Net, pump.Initial))
	read, err := graphviz.Loader().Load(buf)
	require.NoError(t, err)
	assert.Equal(t, "pump", read.Name)
	raise, ok := read.Transition("Raise")
	require.True(t, ok)
	assert.True(t, raise.Urgent)
	start, _ := read.Transition("Start")
	require.Len(t, start.InhibitorArcs(), 1)
	assert.Equal(t, "Clogged", start.InhibitorArcs()[0].Place.Name)
}
