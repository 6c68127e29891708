package discrete

import (
	"fmt"

	"github.com/jt05610/tapn"
)

// slot is one arc consuming tokens from a place.
type slot struct {
	place    *tapn.Place
	interval tapn.TimeInterval
	weight   int
	dest     *tapn.Place
}

type moved struct {
	dest  *tapn.Place
	age   int
	count int
}

// Generator enumerates the successors of a marking by transition firing. Every distinct choice of
// token ages for the consuming arcs gives one successor.
type Generator struct {
	net   *tapn.Net
	slots [][]slot
}

func NewGenerator(net *tapn.Net) *Generator {
	g := &Generator{net: net, slots: make([][]slot, len(net.Transitions))}
	for _, t := range net.Transitions {
		for _, a := range t.Preset() {
			g.slots[t.Index] = append(g.slots[t.Index], slot{place: a.Place, interval: a.Interval, weight: a.Weight})
		}
		for _, a := range t.TransportArcs() {
			g.slots[t.Index] = append(g.slots[t.Index], slot{place: a.Source, interval: a.Interval, weight: a.Weight, dest: a.Destination})
		}
	}
	return g
}

// Fire calls yield with every marking reached by firing t in m, without delay. It stops early and
// returns false when yield does.
func (g *Generator) Fire(m *tapn.Marking, t *tapn.Transition, yield func(*tapn.Marking) bool) bool {
	if !m.Enables(t) {
		return true
	}
	return g.consume(m, t, g.slots[t.Index], nil, yield)
}

func (g *Generator) consume(m *tapn.Marking, t *tapn.Transition, slots []slot, moves []moved, yield func(*tapn.Marking) bool) bool {
	if len(slots) == 0 {
		child := m.Clone()
		for _, mv := range moves {
			child.AddToken(mv.dest, mv.age, mv.count)
		}
		for _, a := range t.Postset() {
			child.AddToken(a.Place, 0, a.Weight)
		}
		child.GeneratedBy = t
		return yield(child)
	}
	s := slots[0]
	var eligible []tapn.Token
	for _, tok := range m.TokensIn(s.place) {
		if s.interval.Contains(tok.Age) && (s.dest == nil || s.dest.Invariant.Allows(tok.Age)) {
			eligible = append(eligible, tok)
		}
	}
	return choose(eligible, s.weight, nil, func(pick []tapn.Token) bool {
		next := m.Clone()
		mv := moves[:len(moves):len(moves)]
		for _, p := range pick {
			if err := next.RemoveToken(s.place, p.Age, p.Count); err != nil {
				panic(fmt.Sprintf("firing %s: %v", t, err))
			}
			if s.dest != nil {
				mv = append(mv, moved{dest: s.dest, age: p.Age, count: p.Count})
			}
		}
		return g.consume(next, t, slots[1:], mv, yield)
	})
}

// choose enumerates the ways of taking need tokens out of groups.
func choose(groups []tapn.Token, need int, pick []tapn.Token, yield func([]tapn.Token) bool) bool {
	if need == 0 {
		return yield(pick)
	}
	available := 0
	for _, g := range groups {
		available += g.Count
	}
	if available < need {
		return true
	}
	g := groups[0]
	for c := min(need, g.Count); c >= 0; c-- {
		p := pick
		if c > 0 {
			p = append(pick[:len(pick):len(pick)], tapn.Token{Age: g.Age, Count: c})
		}
		if !choose(groups[1:], need-c, p, yield) {
			return false
		}
	}
	return true
}
