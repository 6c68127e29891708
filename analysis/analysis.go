// Package analysis provides structural analysis of timed-arc Petri nets that ignores time.
package analysis

import (
	"github.com/jt05610/tapn"
	"gonum.org/v1/gonum/mat"
)

type Net struct {
	*tapn.Net
	incidence *mat.Dense
}

func New(net *tapn.Net) *Net {
	return &Net{Net: net}
}

// FiringVector is the row vector selecting transition t.
func (net *Net) FiringVector(t int) *mat.Dense {
	v := make([]float64, len(net.Transitions))
	v[t] = 1
	return mat.NewDense(1, len(net.Transitions), v)
}

// Incidence is the transitions × places matrix of token count changes. Transport arcs move
// tokens, so they count against their source and for their destination.
func (net *Net) Incidence() *mat.Dense {
	if net.incidence != nil {
		return net.incidence
	}
	m := len(net.Places)
	n := len(net.Transitions)
	d := make([]float64, m*n)
	for i, t := range net.Transitions {
		row := d[i*m : (i+1)*m]
		for _, a := range t.Preset() {
			row[a.Place.Index] -= float64(a.Weight)
		}
		for _, a := range t.Postset() {
			row[a.Place.Index] += float64(a.Weight)
		}
		for _, a := range t.TransportArcs() {
			row[a.Source.Index] -= float64(a.Weight)
			row[a.Destination.Index] += float64(a.Weight)
		}
	}
	net.incidence = mat.NewDense(n, m, d)
	return net.incidence
}

// TokenDelta is the change in the total number of tokens when t fires.
func (net *Net) TokenDelta(t *tapn.Transition) int {
	return int(mat.Sum(net.Incidence().RowView(t.Index)))
}

// MaxGrowth is the largest TokenDelta over all transitions.
func (net *Net) MaxGrowth() int {
	growth := 0
	for i, t := range net.Transitions {
		d := net.TokenDelta(t)
		if i == 0 || d > growth {
			growth = d
		}
	}
	return growth
}

// Counts is the number of tokens in each place, indexed like the places of the net.
type Counts []float64

// CountsOf forgets the ages of the tokens of m.
func CountsOf(net *tapn.Net, m *tapn.Marking) Counts {
	c := make(Counts, len(net.Places))
	for _, pt := range m.Places {
		c[pt.Place.Index] = float64(pt.Tokens.Size())
	}
	return c
}

// Next returns the token counts after firing t from c, ignoring enabledness.
func (net *Net) Next(c Counts, t *tapn.Transition) Counts {
	s := mat.NewDense(1, len(c), append([]float64(nil), c...))
	var step mat.Dense
	step.Mul(net.FiringVector(t.Index), net.Incidence())
	var out mat.Dense
	out.Add(s, &step)
	return mat.Row(nil, 0, &out)
}

// Conservative reports whether every transition preserves the number of tokens, in which case no
// firing can exceed a k-bound the initial marking respects.
func (net *Net) Conservative() bool {
	for _, t := range net.Transitions {
		if net.TokenDelta(t) != 0 {
			return false
		}
	}
	return true
}
