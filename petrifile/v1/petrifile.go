package petrifile

import (
	"fmt"

	"github.com/jt05610/tapn"
	"github.com/jt05610/tapn/distribution"
	pf "github.com/jt05610/tapn/petrifile"
	"github.com/jt05610/tapn/query"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Ordered is a YAML mapping that keeps its keys in file order. Places and transitions are indexed
// in that order.
type Ordered[T any] struct {
	Keys   []string
	Values map[string]T
}

func (o *Ordered[T]) Set(key string, value T) {
	if o.Values == nil {
		o.Values = make(map[string]T)
	}
	if _, ok := o.Values[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.Values[key] = value
}

func (o *Ordered[T]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var value T
		if err := node.Content[i+1].Decode(&value); err != nil {
			return err
		}
		if _, ok := o.Values[node.Content[i].Value]; ok {
			return fmt.Errorf("line %d: duplicate key %q", node.Content[i].Line, node.Content[i].Value)
		}
		o.Set(node.Content[i].Value, value)
	}
	return nil
}

func (o Ordered[T]) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range o.Keys {
		var value yaml.Node
		if err := value.Encode(o.Values[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &value)
	}
	return node, nil
}

type Place struct {
	Invariant string `yaml:"invariant,omitempty"`
	Tokens    []int  `yaml:"tokens,omitempty"`
}

// Arc connects a transition to a place. Written as a bare place name it has weight 1 and, for
// inputs, the interval [0,inf).
type Arc struct {
	Place    string `yaml:"place"`
	Interval string `yaml:"interval,omitempty"`
	Weight   int    `yaml:"weight,omitempty"`
}

func (a *Arc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		a.Place = node.Value
		return nil
	}
	type plain Arc
	return node.Decode((*plain)(a))
}

func (a Arc) MarshalYAML() (interface{}, error) {
	if a.Interval == "" && a.Weight <= 1 {
		return a.Place, nil
	}
	type plain Arc
	return plain(a), nil
}

func (a Arc) weight() int {
	if a.Weight == 0 {
		return 1
	}
	return a.Weight
}

func (a Arc) interval() (tapn.TimeInterval, error) {
	if a.Interval == "" {
		return tapn.Any, nil
	}
	return tapn.ParseInterval(a.Interval)
}

type Transport struct {
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Interval string `yaml:"interval,omitempty"`
	Weight   int    `yaml:"weight,omitempty"`
}

// Delay is a distribution written either as a mapping or as "exponential(0.5)".
type Delay struct {
	distribution.Spec
}

func (d *Delay) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return node.Decode(&d.Spec)
	}
	dist, err := distribution.Parse(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	d.Spec = distribution.SpecOf(dist)
	return nil
}

func (d Delay) MarshalYAML() (interface{}, error) {
	dist, err := d.Build()
	if err != nil {
		return nil, err
	}
	return dist.String(), nil
}

// Transition lists the arcs of a transition. An infinite weight is written .inf.
type Transition struct {
	Urgent       bool               `yaml:"urgent,omitempty"`
	Weight       *float64           `yaml:"weight,omitempty"`
	Distribution *Delay             `yaml:"distribution,omitempty"`
	Inputs       []Arc              `yaml:"inputs,omitempty"`
	Outputs      []Arc              `yaml:"outputs,omitempty"`
	Transports   []Transport        `yaml:"transports,omitempty"`
	Inhibitors   []Arc              `yaml:"inhibitors,omitempty"`
}

// Petrifile is the v1 document.
type Petrifile struct {
	Petri       pf.Version          `yaml:"petri"`
	Name        string              `yaml:"name"`
	Places      Ordered[Place]      `yaml:"places"`
	Transitions Ordered[Transition] `yaml:"transitions"`
	Queries     []string            `yaml:"queries,omitempty"`
}

func (p *Petrifile) place(name string, net map[string]*tapn.Place) (*tapn.Place, error) {
	pl, ok := net[name]
	if !ok {
		return nil, errors.Errorf("unknown place %q", name)
	}
	return pl, nil
}

// Model builds the net, the initial marking and the queries.
func (p *Petrifile) Model() (*pf.Model, error) {
	if p.Petri != "" && p.Petri != pf.V1 {
		return nil, errors.Errorf("unsupported petrifile version %q", p.Petri)
	}
	places := make([]*tapn.Place, 0, len(p.Places.Keys))
	byName := make(map[string]*tapn.Place, len(p.Places.Keys))
	for _, name := range p.Places.Keys {
		inv, err := tapn.ParseInvariant(p.Places.Values[name].Invariant)
		if err != nil {
			return nil, errors.Wrapf(err, "place %s", name)
		}
		pl := tapn.NewPlace(name, inv)
		places = append(places, pl)
		byName[name] = pl
	}
	var (
		transitions = make([]*tapn.Transition, 0, len(p.Transitions.Keys))
		arcs        []tapn.Arc
	)
	for _, name := range p.Transitions.Keys {
		spec := p.Transitions.Values[name]
		t := tapn.NewTransition(name).WithUrgency(spec.Urgent)
		if spec.Weight != nil {
			t = t.WithWeight(*spec.Weight)
		}
		if spec.Distribution != nil {
			d, err := spec.Distribution.Build()
			if err != nil {
				return nil, errors.Wrapf(err, "transition %s", name)
			}
			t = t.WithDistribution(d)
		}
		transitions = append(transitions, t)
		ta, err := p.transitionArcs(t, spec, byName)
		if err != nil {
			return nil, errors.Wrapf(err, "transition %s", name)
		}
		arcs = append(arcs, ta...)
	}
	net, err := tapn.New(p.Name, places, transitions, arcs)
	if err != nil {
		return nil, errors.Wrap(err, "build net")
	}
	initial := make(map[int][]int)
	for _, pl := range places {
		if tokens := p.Places.Values[pl.Name].Tokens; len(tokens) > 0 {
			initial[pl.Index] = tokens
		}
	}
	m, err := tapn.NewMarking(net, initial)
	if err != nil {
		return nil, errors.Wrap(err, "initial marking")
	}
	model := &pf.Model{Net: net, Initial: m}
	for _, src := range p.Queries {
		q, err := query.Parse(src, net)
		if err != nil {
			return nil, errors.Wrapf(err, "query %q", src)
		}
		model.Queries = append(model.Queries, q)
	}
	return model, nil
}

func (p *Petrifile) transitionArcs(t *tapn.Transition, spec Transition, places map[string]*tapn.Place) ([]tapn.Arc, error) {
	var arcs []tapn.Arc
	for _, a := range spec.Inputs {
		pl, err := p.place(a.Place, places)
		if err != nil {
			return nil, err
		}
		iv, err := a.interval()
		if err != nil {
			return nil, err
		}
		arcs = append(arcs, tapn.NewInputArc(pl, t, iv, a.weight()))
	}
	for _, a := range spec.Outputs {
		pl, err := p.place(a.Place, places)
		if err != nil {
			return nil, err
		}
		arcs = append(arcs, tapn.NewOutputArc(t, pl, a.weight()))
	}
	for _, a := range spec.Transports {
		src, err := p.place(a.From, places)
		if err != nil {
			return nil, err
		}
		dst, err := p.place(a.To, places)
		if err != nil {
			return nil, err
		}
		iv, err := Arc{Interval: a.Interval}.interval()
		if err != nil {
			return nil, err
		}
		arcs = append(arcs, tapn.NewTransportArc(src, t, dst, iv, Arc{Weight: a.Weight}.weight()))
	}
	for _, a := range spec.Inhibitors {
		pl, err := p.place(a.Place, places)
		if err != nil {
			return nil, err
		}
		arcs = append(arcs, tapn.NewInhibitorArc(pl, t, a.weight()))
	}
	return arcs, nil
}

func intervalString(iv tapn.TimeInterval) string {
	if iv == tapn.Any {
		return ""
	}
	return iv.String()
}

// FromModel is the inverse of Model.
func FromModel(m *pf.Model) *Petrifile {
	f := &Petrifile{Petri: pf.V1, Name: m.Net.Name}
	for _, pl := range m.Net.Places {
		spec := Place{}
		if pl.Invariant.Finite() {
			spec.Invariant = pl.Invariant.String()
		}
		if m.Initial != nil {
			for _, tok := range m.Initial.TokensIn(pl) {
				for i := 0; i < tok.Count; i++ {
					spec.Tokens = append(spec.Tokens, tok.Age)
				}
			}
		}
		f.Places.Set(pl.Name, spec)
	}
	for _, t := range m.Net.Transitions {
		spec := Transition{Urgent: t.Urgent}
		if t.Weight != 1 {
			w := t.Weight
			spec.Weight = &w
		}
		if ds := distribution.SpecOf(t.Distribution); ds != distribution.SpecOf(distribution.Default()) {
			spec.Distribution = &Delay{Spec: ds}
		}
		for _, a := range t.Preset() {
			spec.Inputs = append(spec.Inputs, Arc{Place: a.Place.Name, Interval: intervalString(a.Interval), Weight: a.Weight})
		}
		for _, a := range t.Postset() {
			spec.Outputs = append(spec.Outputs, Arc{Place: a.Place.Name, Weight: a.Weight})
		}
		for _, a := range t.TransportArcs() {
			spec.Transports = append(spec.Transports, Transport{
				From:     a.Source.Name,
				To:       a.Destination.Name,
				Interval: intervalString(a.Interval),
				Weight:   a.Weight,
			})
		}
		for _, a := range t.InhibitorArcs() {
			spec.Inhibitors = append(spec.Inhibitors, Arc{Place: a.Place.Name, Weight: a.Weight})
		}
		f.Transitions.Set(t.Name, spec)
	}
	for _, q := range m.Queries {
		f.Queries = append(f.Queries, q.String())
	}
	return f
}
