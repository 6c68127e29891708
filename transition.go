package tapn

import (
	"math"

	"golang.org/x/exp/rand"
)

var _ Node = (*Transition)(nil)

// Distribution samples the firing delay of a stochastic transition.
type Distribution interface {
	Sample(rng *rand.Rand) float64
	String() string
}

// Transition consumes and produces tokens. Urgent transitions forbid time from passing while they
// are enabled.
type Transition struct {
	ID           string
	Name         string
	Index        int
	Urgent       bool
	Weight       float64
	Distribution Distribution

	preset         []*InputArc
	postset        []*OutputArc
	transports     []*TransportArc
	inhibitors     []*InhibitorArc
	untimedPostset bool
}

func NewTransition(name string) *Transition {
	return &Transition{
		ID:     ID(),
		Name:   name,
		Index:  -1,
		Weight: 1,
	}
}

// WithWeight sets the weight used to break ties between transitions firing at the same instant.
// math.Inf(1) gives the transition priority over all finite weights.
func (t *Transition) WithWeight(w float64) *Transition {
	t.Weight = w
	return t
}

func (t *Transition) WithDistribution(d Distribution) *Transition {
	t.Distribution = d
	return t
}

func (t *Transition) WithUrgency(urgent bool) *Transition {
	t.Urgent = urgent
	return t
}

func (t *Transition) Kind() NodeKind { return TransitionNode }

func (t *Transition) String() string { return t.Name }

// InfiniteWeight reports whether the transition always wins a tie.
func (t *Transition) InfiniteWeight() bool { return math.IsInf(t.Weight, 1) }

// Preset returns the input arcs of the transition.
func (t *Transition) Preset() []*InputArc { return t.preset }

func (t *Transition) Postset() []*OutputArc { return t.postset }

func (t *Transition) TransportArcs() []*TransportArc { return t.transports }

func (t *Transition) InhibitorArcs() []*InhibitorArc { return t.inhibitors }

// PresetSize counts input and transport arcs.
func (t *Transition) PresetSize() int { return len(t.preset) + len(t.transports) }

// UntimedPostset reports whether the ages of the tokens this transition produces are never
// observed. Such a transition only needs to be fired at the earliest possible delay.
func (t *Transition) UntimedPostset() bool { return t.untimedPostset }
