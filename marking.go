package tapn

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jt05610/tapn/trace"
)

var (
	ErrTokenNotFound = errors.New("token not found")
	ErrUnknownPlace  = errors.New("unknown place")
)

// Marking is a discrete timed marking. Places are ordered by index and places without tokens are
// omitted.
type Marking struct {
	Places      []PlaceTokens
	Parent      trace.ID
	GeneratedBy *Transition
	// Deadlocked is the outcome of the last deadlock check made on the marking.
	Deadlocked  bool
}

// NewMarking builds a root marking from a placement of token ages per place index.
func NewMarking(net *Net, initial map[int][]int) (*Marking, error) {
	m := &Marking{Parent: trace.None}
	for idx, ages := range initial {
		if idx < 0 || idx >= len(net.Places) {
			return nil, fmt.Errorf("%w: index %d", ErrUnknownPlace, idx)
		}
		for _, age := range ages {
			if age < 0 {
				return nil, fmt.Errorf("negative token age %d in %s", age, net.Places[idx])
			}
			m.AddToken(net.Places[idx], age, 1)
		}
	}
	return m, nil
}

func (m *Marking) find(idx int) (int, bool) {
	i := sort.Search(len(m.Places), func(i int) bool { return m.Places[i].Place.Index >= idx })
	return i, i < len(m.Places) && m.Places[i].Place.Index == idx
}

func (m *Marking) Clone() *Marking {
	c := &Marking{
		Places:      make([]PlaceTokens, len(m.Places)),
		Parent:      m.Parent,
		GeneratedBy: m.GeneratedBy,
		Deadlocked:  m.Deadlocked,
	}
	for i, pt := range m.Places {
		c.Places[i] = PlaceTokens{Place: pt.Place, Tokens: append(TokenList(nil), pt.Tokens...)}
	}
	return c
}

// TokensIn returns the tokens of p. The list must not be modified.
func (m *Marking) TokensIn(p *Place) TokenList {
	if i, ok := m.find(p.Index); ok {
		return m.Places[i].Tokens
	}
	return nil
}

// Count is the number of tokens in the place with the given index.
func (m *Marking) Count(idx int) int {
	if i, ok := m.find(idx); ok {
		return m.Places[i].Tokens.Size()
	}
	return 0
}

// Size is the total number of tokens.
func (m *Marking) Size() int {
	n := 0
	for _, pt := range m.Places {
		n += pt.Tokens.Size()
	}
	return n
}

func (m *Marking) AddToken(p *Place, age, count int) {
	if count <= 0 {
		return
	}
	i, ok := m.find(p.Index)
	if ok {
		m.Places[i].Tokens = m.Places[i].Tokens.Add(age, count)
		return
	}
	m.Places = append(m.Places, PlaceTokens{})
	copy(m.Places[i+1:], m.Places[i:])
	m.Places[i] = PlaceTokens{Place: p, Tokens: TokenList{{Age: age, Count: count}}}
}

func (m *Marking) RemoveToken(p *Place, age, count int) error {
	i, ok := m.find(p.Index)
	if !ok {
		return fmt.Errorf("%w: %s is empty", ErrTokenNotFound, p)
	}
	tokens, ok := m.Places[i].Tokens.Remove(age, count)
	if !ok {
		return fmt.Errorf("%w: %d of age %d in %s", ErrTokenNotFound, count, age, p)
	}
	if len(tokens) == 0 {
		m.Places = append(m.Places[:i], m.Places[i+1:]...)
		return nil
	}
	m.Places[i].Tokens = tokens
	return nil
}

// DeltaAge makes every token d units older.
func (m *Marking) DeltaAge(d int) {
	for _, pt := range m.Places {
		for i := range pt.Tokens {
			pt.Tokens[i].Age += d
		}
	}
}

// AvailableDelay is the largest delay allowed by the invariants of the marked places, or Inf.
func (m *Marking) AvailableDelay() int {
	delay := Inf
	for _, pt := range m.Places {
		if !pt.Place.Invariant.Finite() {
			continue
		}
		d := pt.Place.Invariant.Last() - pt.Tokens.Oldest()
		if d < delay {
			delay = d
		}
	}
	if delay < 0 {
		return 0
	}
	return delay
}

// Cut collapses the ages above each place's max constant into a single overflow age.
func (m *Marking) Cut() {
	for i := range m.Places {
		pt := &m.Places[i]
		mc := pt.Place.MaxConstant()
		for j, t := range pt.Tokens {
			if t.Age <= mc {
				continue
			}
			overflow := pt.Tokens[j:].Size()
			pt.Tokens = append(pt.Tokens[:j], Token{Age: mc + 1, Count: overflow})
			break
		}
	}
}

// Youngest is the smallest age among tokens that have not overflowed, or 0.
func (m *Marking) Youngest() int {
	youngest := Inf
	for _, pt := range m.Places {
		age := pt.Tokens[0].Age
		if age <= pt.Place.MaxConstant() && age < youngest {
			youngest = age
		}
	}
	if youngest == Inf {
		return 0
	}
	return youngest
}

// MakeBase normalizes a cut marking by making its youngest non-overflow token age 0. It returns
// the subtracted amount.
func (m *Marking) MakeBase() int {
	youngest := m.Youngest()
	if youngest == 0 {
		return 0
	}
	for _, pt := range m.Places {
		overflow := pt.Place.MaxConstant() + 1
		for i := range pt.Tokens {
			if pt.Tokens[i].Age != overflow {
				pt.Tokens[i].Age -= youngest
			}
		}
	}
	return youngest
}

// Enables reports whether t can fire without delay.
func (m *Marking) Enables(t *Transition) bool {
	for _, a := range t.inhibitors {
		if m.Count(a.Place.Index) >= a.Weight {
			return false
		}
	}
	for _, a := range t.preset {
		if m.TokensIn(a.Place).CountIn(a.Interval) < a.Weight {
			return false
		}
	}
	for _, a := range t.transports {
		n := 0
		for _, tok := range m.TokensIn(a.Source) {
			if a.Interval.Contains(tok.Age) && a.Destination.Invariant.Allows(tok.Age) {
				n += tok.Count
			}
		}
		if n < a.Weight {
			return false
		}
	}
	return true
}

// Enabled lists the transitions of net that m enables.
func (m *Marking) Enabled(net *Net) []*Transition {
	var enabled []*Transition
	for _, t := range net.Transitions {
		if m.Enables(t) {
			enabled = append(enabled, t)
		}
	}
	return enabled
}

// UrgentEnabled reports whether an urgent transition is enabled, which forbids delaying.
func (m *Marking) UrgentEnabled(net *Net) bool {
	for _, t := range net.Transitions {
		if t.Urgent && m.Enables(t) {
			return true
		}
	}
	return false
}

// CanDeadlock reports whether some delay d <= maxDelay reaches a marking where no transition is
// enabled at any delay in [d, maxDelay]. Enabledness does not change past the net's max constant,
// and every such window ends at the same bound, so only the end of the window is checked.
func (m *Marking) CanDeadlock(net *Net, maxDelay int) bool {
	horizon := min(maxDelay, net.MaxConstant()+1)
	late := m.Clone()
	late.DeltaAge(horizon)
	for _, t := range net.Transitions {
		if late.Enables(t) {
			return false
		}
	}
	return true
}

// Equal compares the place and token sequences of both markings.
func (m *Marking) Equal(o *Marking) bool {
	if len(m.Places) != len(o.Places) {
		return false
	}
	for i, pt := range m.Places {
		op := o.Places[i]
		if pt.Place.Index != op.Place.Index || len(pt.Tokens) != len(op.Tokens) {
			return false
		}
		for j, t := range pt.Tokens {
			if t != op.Tokens[j] {
				return false
			}
		}
	}
	return true
}

// AppendKey appends a canonical binary encoding of the token placement to buf. Two markings have
// the same key exactly when they are Equal.
func (m *Marking) AppendKey(buf []byte) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(m.Places)))
	for _, pt := range m.Places {
		buf = binary.AppendUvarint(buf, uint64(pt.Place.Index))
		buf = binary.AppendUvarint(buf, uint64(len(pt.Tokens)))
		for _, t := range pt.Tokens {
			buf = binary.AppendUvarint(buf, uint64(t.Age))
			buf = binary.AppendUvarint(buf, uint64(t.Count))
		}
	}
	return buf
}

func (m *Marking) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, pt := range m.Places {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pt.Place.Name)
		b.WriteString(": ")
		b.WriteString(pt.Tokens.String())
	}
	b.WriteByte('}')
	return b.String()
}
