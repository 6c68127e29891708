package tapn

var _ Node = (*Place)(nil)

// Place holds timed tokens. The age of every token must satisfy the invariant.
type Place struct {
	ID        string
	Name      string
	Index     int
	Invariant TimeInvariant

	maxConstant int
	inputs      []*InputArc
	transports  []*TransportArc
	inhibitors  []*InhibitorArc
	outputs     []*OutputArc
	arriving    []*TransportArc
}

func NewPlace(name string, invariant TimeInvariant) *Place {
	return &Place{
		ID:          ID(),
		Name:        name,
		Index:       -1,
		Invariant:   invariant,
		maxConstant: -1,
	}
}

func (p *Place) Kind() NodeKind { return PlaceNode }

func (p *Place) String() string { return p.Name }

// MaxConstant is the largest age that can be distinguished in this place, or -1 when ages never
// matter.
func (p *Place) MaxConstant() int { return p.maxConstant }

// Untimed reports whether token ages in this place are irrelevant.
func (p *Place) Untimed() bool { return p.maxConstant == -1 }

// InputArcs are the arcs consuming from this place.
func (p *Place) InputArcs() []*InputArc { return p.inputs }

// TransportArcs are the transport arcs whose source is this place.
func (p *Place) TransportArcs() []*TransportArc { return p.transports }

func (p *Place) InhibitorArcs() []*InhibitorArc { return p.inhibitors }

// OutputArcs are the arcs producing into this place.
func (p *Place) OutputArcs() []*OutputArc { return p.outputs }

// ArrivingTransports are the transport arcs whose destination is this place.
func (p *Place) ArrivingTransports() []*TransportArc { return p.arriving }
