package graphviz

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/jt05610/tapn"
)

// Writer renders a net, and optionally a marking, with places as circles and transitions as
// boxes. Transport arcs are dashed and inhibitor arcs end in a circle. The comment attribute of
// every node and edge keeps what Reader needs to rebuild the net.
type Writer struct {
	*Config
	g       *cgraph.Graph
	mapping map[tapn.Node]*cgraph.Node
}

func (w *Writer) writePlace(i int, p *tapn.Place, m *tapn.Marking) error {
	name := fmt.Sprintf("p%d", i)
	node, err := w.g.CreateNode(name)
	if err != nil {
		return err
	}
	node.SetShape(cgraph.CircleShape)
	label := p.Name
	if m != nil {
		if tokens := m.TokensIn(p); len(tokens) > 0 {
			label += `\n` + tokens.String()
		}
	}
	node.SetLabel(label)
	if p.Invariant.Finite() {
		node.Set("xlabel", p.Invariant.String())
	}
	node.Set("comment", p.Name)
	node.Set("fontname", string(w.Font))
	w.mapping[p] = node
	return nil
}

func (w *Writer) writeTransition(i int, t *tapn.Transition) error {
	name := fmt.Sprintf("t%d", i)
	node, err := w.g.CreateNode(name)
	if err != nil {
		return err
	}
	w.mapping[t] = node
	node.SetShape(cgraph.BoxShape)
	node.SetLabel(t.Name)
	if t.Urgent {
		node.Set("style", "bold")
	}
	node.Set("comment", t.Name)
	node.Set("fontname", string(w.Font))
	return nil
}

func arcLabel(iv *tapn.TimeInterval, weight int) string {
	var parts []string
	if iv != nil && *iv != tapn.Any {
		parts = append(parts, iv.String())
	}
	if weight > 1 {
		parts = append(parts, "x"+strconv.Itoa(weight))
	}
	return strings.Join(parts, " ")
}

func (w *Writer) edge(name string, src, dst tapn.Node, label, comment string) (*cgraph.Edge, error) {
	e, err := w.g.CreateEdge(name, w.mapping[src], w.mapping[dst])
	if err != nil {
		return nil, err
	}
	if label != "" {
		e.SetLabel(label)
	}
	e.Set("comment", comment)
	e.Set("fontname", string(w.Font))
	return e, nil
}

func (w *Writer) writeArc(i int, a tapn.Arc) error {
	name := fmt.Sprintf("a%d", i)
	switch a := a.(type) {
	case *tapn.InputArc:
		_, err := w.edge(name, a.Place, a.Transition, arcLabel(&a.Interval, a.Weight),
			fmt.Sprintf("input %s %d", a.Interval, a.Weight))
		return err
	case *tapn.OutputArc:
		_, err := w.edge(name, a.Transition, a.Place, arcLabel(nil, a.Weight),
			fmt.Sprintf("output %d", a.Weight))
		return err
	case *tapn.InhibitorArc:
		e, err := w.edge(name, a.Place, a.Transition, arcLabel(nil, a.Weight),
			fmt.Sprintf("inhibitor %d", a.Weight))
		if err != nil {
			return err
		}
		e.Set("arrowhead", "odot")
		return nil
	case *tapn.TransportArc:
		in, err := w.edge(name+"s", a.Source, a.Transition, arcLabel(&a.Interval, a.Weight),
			fmt.Sprintf("transport %d %s %d", i, a.Interval, a.Weight))
		if err != nil {
			return err
		}
		out, err := w.edge(name+"d", a.Transition, a.Destination, "", fmt.Sprintf("transport %d", i))
		if err != nil {
			return err
		}
		in.Set("style", "dashed")
		out.Set("style", "dashed")
		return nil
	}
	return fmt.Errorf("unsupported arc %T", a)
}

// Flush renders net in the configured format. m may be nil.
func (w *Writer) Flush(out io.Writer, net *tapn.Net, m *tapn.Marking) error {
	graph := graphviz.New()
	defer func() {
		_ = graph.Close()
	}()
	name := w.Name
	if name == "" {
		name = net.Name
	}
	g, err := graph.Graph(graphviz.Name(name))
	if err != nil {
		return err
	}
	defer func() {
		_ = g.Close()
	}()
	g.SetRankDir(cgraph.RankDir(w.RankDir))
	w.g = g
	clear(w.mapping)
	for i, p := range net.Places {
		if err := w.writePlace(i, p, m); err != nil {
			return err
		}
	}
	for i, t := range net.Transitions {
		if err := w.writeTransition(i, t); err != nil {
			return err
		}
	}
	for i, a := range net.Arcs {
		if err := w.writeArc(i, a); err != nil {
			return err
		}
	}
	return graph.Render(w.g, w.Format, out)
}

type Font string

func (f Font) Or(other Font) Font {
	return f + "," + other
}

const (
	Helvetica  Font = "Helvetica"
	Arial      Font = "Arial"
	Roboto     Font = "Roboto"
	Montserrat Font = "Montserrat"
	SansSerif  Font = "sans-serif"
	Serif      Font = "Serif"
	Times      Font = "Times"
)

type RankDir string

const (
	LeftToRight RankDir = "LR"
	RightToLeft RankDir = "RL"
	TopToBottom RankDir = "TB"
	BottomToTop RankDir = "BT"
)

// Config sets how nets are drawn. The graph is named after the net when Name is empty.
type Config struct {
	Name string
	Font
	RankDir
	Format graphviz.Format
}

func New(config *Config) *Writer {
	if config.Format == "" {
		config.Format = graphviz.XDOT
	}
	if config.RankDir == "" {
		config.RankDir = LeftToRight
	}
	return &Writer{
		Config:  config,
		mapping: make(map[tapn.Node]*cgraph.Node),
	}
}
