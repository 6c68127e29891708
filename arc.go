package tapn

import "fmt"

type ArcKind int

const (
	Input ArcKind = iota
	Output
	Transport
	Inhibitor
)

func (k ArcKind) String() string {
	switch k {
	case Input:
		return "input"
	case Output:
		return "output"
	case Transport:
		return "transport"
	case Inhibitor:
		return "inhibitor"
	}
	return "unknown"
}

// Arc connects a place and a transition.
type Arc interface {
	Kind() ArcKind
	String() string
}

// InputArc consumes Weight tokens whose ages lie in Interval.
type InputArc struct {
	Place      *Place
	Transition *Transition
	Interval   TimeInterval
	Weight     int
}

func NewInputArc(p *Place, t *Transition, interval TimeInterval, weight int) *InputArc {
	return &InputArc{Place: p, Transition: t, Interval: interval, Weight: weight}
}

func (a *InputArc) Kind() ArcKind { return Input }

func (a *InputArc) String() string {
	return fmt.Sprintf("%s -%s/%d-> %s", a.Place, a.Interval, a.Weight, a.Transition)
}

// OutputArc produces Weight fresh tokens of age 0.
type OutputArc struct {
	Transition *Transition
	Place      *Place
	Weight     int
}

func NewOutputArc(t *Transition, p *Place, weight int) *OutputArc {
	return &OutputArc{Transition: t, Place: p, Weight: weight}
}

func (a *OutputArc) Kind() ArcKind { return Output }

func (a *OutputArc) String() string {
	return fmt.Sprintf("%s -%d-> %s", a.Transition, a.Weight, a.Place)
}

// TransportArc moves Weight tokens from Source to Destination keeping their age.
type TransportArc struct {
	Source      *Place
	Transition  *Transition
	Destination *Place
	Interval    TimeInterval
	Weight      int
}

func NewTransportArc(src *Place, t *Transition, dst *Place, interval TimeInterval, weight int) *TransportArc {
	return &TransportArc{Source: src, Transition: t, Destination: dst, Interval: interval, Weight: weight}
}

func (a *TransportArc) Kind() ArcKind { return Transport }

func (a *TransportArc) String() string {
	return fmt.Sprintf("%s =%s/%d=> %s => %s", a.Source, a.Interval, a.Weight, a.Transition, a.Destination)
}

// InhibitorArc disables its transition while Place holds at least Weight tokens.
type InhibitorArc struct {
	Place      *Place
	Transition *Transition
	Weight     int
}

func NewInhibitorArc(p *Place, t *Transition, weight int) *InhibitorArc {
	return &InhibitorArc{Place: p, Transition: t, Weight: weight}
}

func (a *InhibitorArc) Kind() ArcKind { return Inhibitor }

func (a *InhibitorArc) String() string {
	return fmt.Sprintf("%s -o%d %s", a.Place, a.Weight, a.Transition)
}
