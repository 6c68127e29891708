package yaml_test

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/jt05610/tapn"
	"github.com/jt05610/tapn/distribution"
	pf "github.com/jt05610/tapn/petrifile"
	"github.com/jt05610/tapn/petrifile/v1/yaml"
	"github.com/jt05610/tapn/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T) *pf.Model {
	t.Helper()
	in, err := os.Open("testdata/pipeline.yaml")
	require.NoError(t, err)
	defer in.Close()
	m, err := (&yaml.Service{}).Load(context.Background(), in)
	require.NoError(t, err)
	return m
}

func TestService_Load(t *testing.T) {
	m := load(t)
	net := m.Net
	assert.Equal(t, "pipeline", net.Name)
	require.Len(t, net.Places, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{net.Places[0].Name, net.Places[1].Name, net.Places[2].Name})
	assert.Equal(t, tapn.TimeInvariant{Bound: 4}, net.Places[0].Invariant)
	require.Len(t, net.Transitions, 3)
	assert.Equal(t, "move", net.Transitions[0].Name)

	move, ok := net.Transition("move")
	require.True(t, ok)
	require.Len(t, move.TransportArcs(), 1)
	assert.Equal(t, tapn.Closed(1, 2), move.TransportArcs()[0].Interval)
	assert.Equal(t, distribution.Uniform{Min: 1, Max: 2}, move.Distribution)

	finish, _ := net.Transition("finish")
	assert.Equal(t, 2.0, finish.Weight)
	assert.True(t, finish.Urgent)
	require.Len(t, finish.Postset(), 1)
	assert.Equal(t, 1, finish.Postset()[0].Weight)

	renew, _ := net.Transition("renew")
	assert.False(t, renew.Urgent)
	assert.Equal(t, distribution.Exponential{Rate: 0.5}, renew.Distribution)
	assert.Equal(t, tapn.Any, renew.Preset()[0].Interval)
	require.Len(t, renew.InhibitorArcs(), 1)

	assert.Equal(t, 2, m.Initial.Count(0))
	require.Len(t, m.Queries, 3)
	assert.Equal(t, query.EF, m.Queries[0].Quantifier)
	assert.Equal(t, query.PF, m.Queries[2].Quantifier)
	assert.Equal(t, 20.0, m.Queries[2].Bound.Time)
}

func TestService_SaveRoundTrip(t *testing.T) {
	m := load(t)
	s := &yaml.Service{}
	var first bytes.Buffer
	require.NoError(t, s.Save(context.Background(), &first, m))
	out := first.String()
	assert.True(t, strings.HasPrefix(out, "petri: v1\n"))
	assert.Less(t, strings.Index(out, "  a:"), strings.Index(out, "  b:"), "place order is kept")
	assert.Contains(t, out, "uniform(1, 2)")

	again, err := s.Load(context.Background(), bytes.NewReader(first.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, m.Initial.String(), again.Initial.String())
	assert.Equal(t, len(m.Net.Arcs), len(again.Net.Arcs))

	var second bytes.Buffer
	require.NoError(t, s.Save(context.Background(), &second, again))
	assert.Equal(t, out, second.String())
}

func TestService_LoadErrors(t *testing.T) {
	cases := map[string]string{
		"version":  "petri: v9\nname: x\nplaces: {}\ntransitions: {}\n",
		"place":    "name: x\nplaces:\n  p: {}\ntransitions:\n  t:\n    inputs: [q]\n",
		"interval": "name: x\nplaces:\n  p: {}\ntransitions:\n  t:\n    inputs:\n      - place: p\n        interval: \"[3,1]\"\n",
		"query":    "name: x\nplaces:\n  p: {}\ntransitions: {}\nqueries:\n  - EF q == 1\n",
		"weight":   "name: x\nplaces:\n  p: {}\ntransitions:\n  t:\n    outputs:\n      - place: p\n        weight: -1\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := (&yaml.Service{}).Load(context.Background(), strings.NewReader(src))
			assert.Error(t, err)
		})
	}
}
