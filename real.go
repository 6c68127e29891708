package tapn

import (
	"sort"
	"strconv"
	"strings"

	"github.com/jt05610/tapn/clock"
)

// RealToken stands for Count tokens of a real-valued age.
type RealToken struct {
	Age   clock.Value
	Count int
}

type RealPlace struct {
	Place  *Place
	Tokens []RealToken
}

// Size is the number of tokens in the place.
func (p *RealPlace) Size() int {
	n := 0
	for _, t := range p.Tokens {
		n += t.Count
	}
	return n
}

func (p *RealPlace) Empty() bool { return len(p.Tokens) == 0 }

func (p *RealPlace) add(age clock.Value, count int) {
	i := sort.Search(len(p.Tokens), func(i int) bool { return p.Tokens[i].Age >= age })
	if i < len(p.Tokens) && p.Tokens[i].Age == age {
		p.Tokens[i].Count += count
		return
	}
	p.Tokens = append(p.Tokens, RealToken{})
	copy(p.Tokens[i+1:], p.Tokens[i:])
	p.Tokens[i] = RealToken{Age: age, Count: count}
}

// availableDelay is Infinity for an empty place or a place without invariant.
func (p *RealPlace) availableDelay(c clock.Clock) clock.Value {
	if p.Empty() || !p.Place.Invariant.Finite() {
		return clock.Infinity
	}
	return clock.Sub(c.FromInt(int64(p.Place.Invariant.Bound)), p.Tokens[len(p.Tokens)-1].Age)
}

// RealMarking is a marking with continuous ages, used to generate stochastic runs. Every place of
// the net has an entry, at its index.
type RealMarking struct {
	Places      []RealPlace
	GeneratedBy *Transition
	// PreviousDelay is the time spent in this marking before it was left.
	PreviousDelay clock.Value
	// TotalAge is the time elapsed since the start of the run.
	TotalAge   clock.Value
	Deadlocked bool
	Clock      clock.Clock
}

// NewRealMarking lifts a discrete marking into continuous time.
func NewRealMarking(net *Net, base *Marking, c clock.Clock) *RealMarking {
	m := &RealMarking{
		Places: make([]RealPlace, len(net.Places)),
		Clock:  c,
	}
	for i, p := range net.Places {
		m.Places[i].Place = p
	}
	if base == nil {
		return m
	}
	for _, pt := range base.Places {
		rp := &m.Places[pt.Place.Index]
		for _, t := range pt.Tokens {
			rp.Tokens = append(rp.Tokens, RealToken{Age: c.FromInt(int64(t.Age)), Count: t.Count})
		}
	}
	return m
}

func (m *RealMarking) Clone() *RealMarking {
	c := *m
	c.Places = make([]RealPlace, len(m.Places))
	for i, p := range m.Places {
		c.Places[i] = RealPlace{Place: p.Place, Tokens: append([]RealToken(nil), p.Tokens...)}
	}
	return &c
}

// Count is the number of tokens in the place with the given index.
func (m *RealMarking) Count(idx int) int {
	if idx < 0 || idx >= len(m.Places) {
		return 0
	}
	return m.Places[idx].Size()
}

func (m *RealMarking) Size() int {
	n := 0
	for i := range m.Places {
		n += m.Places[i].Size()
	}
	return n
}

func (m *RealMarking) TokensIn(p *Place) []RealToken {
	return m.Places[p.Index].Tokens
}

func (m *RealMarking) AddToken(p *Place, age clock.Value, count int) {
	if count <= 0 {
		return
	}
	m.Places[p.Index].add(age, count)
}

// RemoveToken removes count tokens of exactly the given age.
func (m *RealMarking) RemoveToken(p *Place, age clock.Value, count int) bool {
	rp := &m.Places[p.Index]
	for i, t := range rp.Tokens {
		if t.Age != age {
			continue
		}
		if t.Count < count {
			return false
		}
		rp.Tokens[i].Count -= count
		if rp.Tokens[i].Count == 0 {
			rp.Tokens = append(rp.Tokens[:i], rp.Tokens[i+1:]...)
		}
		return true
	}
	return false
}

// DeltaAge lets d time pass.
func (m *RealMarking) DeltaAge(d clock.Value) {
	for i := range m.Places {
		for j := range m.Places[i].Tokens {
			m.Places[i].Tokens[j].Age = clock.Add(m.Places[i].Tokens[j].Age, d)
		}
	}
	m.PreviousDelay = clock.Add(m.PreviousDelay, d)
	m.TotalAge = clock.Add(m.TotalAge, d)
}

// AvailableDelay is the largest delay the invariants allow, or clock.Infinity.
func (m *RealMarking) AvailableDelay() clock.Value {
	delay := clock.Infinity
	for i := range m.Places {
		delay = clock.Min(delay, m.Places[i].availableDelay(m.Clock))
	}
	return delay
}

// Enables reports whether t can fire now. Interval bounds are treated as closed.
func (m *RealMarking) Enables(t *Transition) bool {
	for _, a := range t.inhibitors {
		if m.Count(a.Place.Index) >= a.Weight {
			return false
		}
	}
	for _, a := range t.preset {
		n := 0
		for _, tok := range m.Places[a.Place.Index].Tokens {
			if a.Interval.ContainsReal(m.Clock.ToFloat(tok.Age)) {
				n += tok.Count
			}
		}
		if n < a.Weight {
			return false
		}
	}
	for _, a := range t.transports {
		n := 0
		for _, tok := range m.Places[a.Source.Index].Tokens {
			age := m.Clock.ToFloat(tok.Age)
			if a.Interval.ContainsReal(age) && a.Destination.Invariant.AllowsReal(age) {
				n += tok.Count
			}
		}
		if n < a.Weight {
			return false
		}
	}
	return true
}

// Image is the discrete marking with the same token counts, all aged 0.
func (m *RealMarking) Image() *Marking {
	img := &Marking{GeneratedBy: m.GeneratedBy, Deadlocked: m.Deadlocked}
	for i := range m.Places {
		if n := m.Places[i].Size(); n > 0 {
			img.Places = append(img.Places, PlaceTokens{Place: m.Places[i].Place, Tokens: TokenList{{Age: 0, Count: n}}})
		}
	}
	return img
}

func (m *RealMarking) String() string {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	for i := range m.Places {
		if m.Places[i].Empty() {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(m.Places[i].Place.Name)
		b.WriteString(":")
		for _, t := range m.Places[i].Tokens {
			b.WriteString(" (")
			b.WriteString(m.Clock.Format(t.Age))
			b.WriteByte(',')
			b.WriteString(strconv.Itoa(t.Count))
			b.WriteByte(')')
		}
	}
	b.WriteByte('}')
	return b.String()
}
