package tapn

import (
	"errors"
	"fmt"

	"github.com/jt05610/tapn/distribution"
)

var (
	ErrDuplicateName = errors.New("duplicate node name")
	ErrForeignNode   = errors.New("arc references a node outside the net")
	ErrInvalidArc    = errors.New("invalid arc")
)

// Net is a timed-arc Petri net. It is immutable once built by New and may be shared between
// goroutines.
type Net struct {
	ID          string
	Name        string
	Places      []*Place
	Transitions []*Transition
	Arcs        []Arc

	places      map[string]*Place
	transitions map[string]*Transition
	maxConstant int
}

// New links the arcs to their nodes, indexes places and transitions in the given order and
// computes the max constants used to cut markings.
func New(name string, places []*Place, transitions []*Transition, arcs []Arc) (*Net, error) {
	net := &Net{
		ID:          ID(),
		Name:        name,
		Places:      places,
		Transitions: transitions,
		Arcs:        arcs,
		places:      make(map[string]*Place, len(places)),
		transitions: make(map[string]*Transition, len(transitions)),
	}
	for i, p := range places {
		if _, ok := net.places[p.Name]; ok {
			return nil, fmt.Errorf("%w: place %s", ErrDuplicateName, p.Name)
		}
		p.Index = i
		net.places[p.Name] = p
	}
	for i, t := range transitions {
		if _, ok := net.transitions[t.Name]; ok {
			return nil, fmt.Errorf("%w: transition %s", ErrDuplicateName, t.Name)
		}
		t.Index = i
		if t.Distribution == nil {
			t.Distribution = distribution.Default()
		}
		net.transitions[t.Name] = t
	}
	for _, a := range arcs {
		if err := net.link(a); err != nil {
			return nil, err
		}
	}
	net.computeMaxConstants()
	return net, nil
}

func (net *Net) owns(nodes ...Node) bool {
	for _, n := range nodes {
		switch n := n.(type) {
		case *Place:
			if n == nil || net.places[n.Name] != n {
				return false
			}
		case *Transition:
			if n == nil || net.transitions[n.Name] != n {
				return false
			}
		}
	}
	return true
}

func (net *Net) link(a Arc) error {
	switch a := a.(type) {
	case *InputArc:
		if !net.owns(a.Place, a.Transition) {
			return fmt.Errorf("%w: %s", ErrForeignNode, a)
		}
		if a.Weight < 1 || a.Interval.Empty() {
			return fmt.Errorf("%w: %s", ErrInvalidArc, a)
		}
		a.Place.inputs = append(a.Place.inputs, a)
		a.Transition.preset = append(a.Transition.preset, a)
	case *OutputArc:
		if !net.owns(a.Place, a.Transition) {
			return fmt.Errorf("%w: %s", ErrForeignNode, a)
		}
		if a.Weight < 1 {
			return fmt.Errorf("%w: %s", ErrInvalidArc, a)
		}
		a.Place.outputs = append(a.Place.outputs, a)
		a.Transition.postset = append(a.Transition.postset, a)
	case *TransportArc:
		if !net.owns(a.Source, a.Destination, a.Transition) {
			return fmt.Errorf("%w: %s", ErrForeignNode, a)
		}
		if a.Weight < 1 || a.Interval.Empty() {
			return fmt.Errorf("%w: %s", ErrInvalidArc, a)
		}
		a.Source.transports = append(a.Source.transports, a)
		a.Destination.arriving = append(a.Destination.arriving, a)
		a.Transition.transports = append(a.Transition.transports, a)
	case *InhibitorArc:
		if !net.owns(a.Place, a.Transition) {
			return fmt.Errorf("%w: %s", ErrForeignNode, a)
		}
		if a.Weight < 1 {
			return fmt.Errorf("%w: %s", ErrInvalidArc, a)
		}
		a.Place.inhibitors = append(a.Place.inhibitors, a)
		a.Transition.inhibitors = append(a.Transition.inhibitors, a)
	default:
		return fmt.Errorf("%w: unsupported arc type %T", ErrInvalidArc, a)
	}
	return nil
}

// intervalConstant is the largest age an interval can tell apart, -1 for [0,inf).
func intervalConstant(iv TimeInterval) int {
	if !iv.Unbounded() {
		return iv.Upper
	}
	if iv.Lower == 0 && !iv.LowerStrict {
		return -1
	}
	return iv.Lower
}

func (net *Net) computeMaxConstants() {
	for _, p := range net.Places {
		mc := -1
		if p.Invariant.Finite() {
			mc = p.Invariant.Bound
		}
		for _, a := range p.inputs {
			mc = max(mc, intervalConstant(a.Interval))
		}
		for _, a := range p.transports {
			mc = max(mc, intervalConstant(a.Interval))
		}
		p.maxConstant = mc
	}
	// transported tokens keep their age, so the source must distinguish every age the
	// destination does.
	for changed := true; changed; {
		changed = false
		for _, p := range net.Places {
			for _, a := range p.transports {
				mc := a.Destination.maxConstant
				if a.Destination.Invariant.Finite() {
					mc = max(mc, a.Destination.Invariant.Bound)
				}
				if mc > p.maxConstant {
					p.maxConstant = mc
					changed = true
				}
			}
		}
	}
	net.maxConstant = 0
	for _, p := range net.Places {
		net.maxConstant = max(net.maxConstant, p.maxConstant)
	}
	for _, t := range net.Transitions {
		t.untimedPostset = len(t.transports) == 0
		for _, a := range t.postset {
			if !a.Place.Untimed() {
				t.untimedPostset = false
			}
		}
	}
}

// MaxConstant is the largest max constant of any place, at least 0.
func (net *Net) MaxConstant() int { return net.maxConstant }

func (net *Net) Place(name string) (*Place, bool) {
	p, ok := net.places[name]
	return p, ok
}

func (net *Net) Transition(name string) (*Transition, bool) {
	t, ok := net.transitions[name]
	return t, ok
}

// OrphanTransitions lists transitions without any arc.
func (net *Net) OrphanTransitions() []*Transition {
	var orphans []*Transition
	for _, t := range net.Transitions {
		if len(t.preset)+len(t.postset)+len(t.transports)+len(t.inhibitors) == 0 {
			orphans = append(orphans, t)
		}
	}
	return orphans
}

func (net *Net) String() string { return net.Name }
