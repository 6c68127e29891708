package graphviz

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz/cgraph"
	"github.com/jt05610/tapn"
)

// Reader rebuilds a net from a graph produced by Writer.
type Reader struct {
	mapping     map[string]tapn.Node
	g           *cgraph.Graph
	places      []*tapn.Place
	transitions []*tapn.Transition
	arcs        []tapn.Arc
	transports  map[int]*transportHalf
	order       []int
}

type transportHalf struct {
	src, dst *tapn.Place
	t        *tapn.Transition
	interval tapn.TimeInterval
	weight   int
}

func (r *Reader) readNode(node *cgraph.Node) error {
	name := node.Get("comment")
	if name == "" {
		name = node.Get("label")
	}
	switch node.Get("shape") {
	case string(cgraph.CircleShape):
		inv, err := tapn.ParseInvariant(node.Get("xlabel"))
		if err != nil {
			return err
		}
		p := tapn.NewPlace(name, inv)
		r.places = append(r.places, p)
		r.mapping[node.Name()] = p
	case string(cgraph.BoxShape):
		t := tapn.NewTransition(name).WithUrgency(node.Get("style") == "bold")
		r.transitions = append(r.transitions, t)
		r.mapping[node.Name()] = t
	}
	return nil
}

func parseWeight(s string) (int, error) {
	w, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid arc weight %q", s)
	}
	return w, nil
}

func (r *Reader) readEdge(src, dst tapn.Node, comment string) error {
	fields := strings.Fields(comment)
	if len(fields) == 0 {
		return fmt.Errorf("edge %s -> %s has no arc description", src, dst)
	}
	place, _ := src.(*tapn.Place)
	trans, _ := dst.(*tapn.Transition)
	switch {
	case fields[0] == "input" && len(fields) == 3 && place != nil && trans != nil:
		iv, err := tapn.ParseInterval(fields[1])
		if err != nil {
			return err
		}
		w, err := parseWeight(fields[2])
		if err != nil {
			return err
		}
		r.arcs = append(r.arcs, tapn.NewInputArc(place, trans, iv, w))
	case fields[0] == "inhibitor" && len(fields) == 2 && place != nil && trans != nil:
		w, err := parseWeight(fields[1])
		if err != nil {
			return err
		}
		r.arcs = append(r.arcs, tapn.NewInhibitorArc(place, trans, w))
	case fields[0] == "output" && len(fields) == 2:
		t, ok := src.(*tapn.Transition)
		p, ok2 := dst.(*tapn.Place)
		if !ok || !ok2 {
			return fmt.Errorf("output arc %s -> %s", src, dst)
		}
		w, err := parseWeight(fields[1])
		if err != nil {
			return err
		}
		r.arcs = append(r.arcs, tapn.NewOutputArc(t, p, w))
	case fields[0] == "transport" && len(fields) >= 2:
		k, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("invalid transport arc %q", comment)
		}
		half, ok := r.transports[k]
		if !ok {
			half = &transportHalf{}
			r.transports[k] = half
			r.order = append(r.order, k)
		}
		if len(fields) == 4 && place != nil && trans != nil {
			if half.interval, err = tapn.ParseInterval(fields[2]); err != nil {
				return err
			}
			if half.weight, err = parseWeight(fields[3]); err != nil {
				return err
			}
			half.src, half.t = place, trans
			return nil
		}
		p, ok := dst.(*tapn.Place)
		if !ok {
			return fmt.Errorf("transport arc %s -> %s", src, dst)
		}
		half.dst = p
	default:
		return fmt.Errorf("unknown arc %q between %s and %s", comment, src, dst)
	}
	return nil
}

func (r *Reader) Load(reader io.Reader) (*tapn.Net, error) {
	bytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	r.g, err = cgraph.ParseBytes(bytes)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = r.g.Close()
	}()
	for node := r.g.FirstNode(); node != nil; node = r.g.NextNode(node) {
		if err := r.readNode(node); err != nil {
			return nil, err
		}
	}
	for n := r.g.FirstNode(); n != nil; n = r.g.NextNode(n) {
		for edge := r.g.FirstOut(n); edge != nil; edge = r.g.NextOut(edge) {
			src, dst := r.mapping[n.Name()], r.mapping[edge.Node().Name()]
			if src == nil || dst == nil {
				return nil, fmt.Errorf("edge %s between unknown nodes", edge.Name())
			}
			if err := r.readEdge(src, dst, edge.Get("comment")); err != nil {
				return nil, err
			}
		}
	}
	for _, k := range r.order {
		half := r.transports[k]
		if half.src == nil || half.dst == nil {
			return nil, fmt.Errorf("transport arc %d is missing a half", k)
		}
		r.arcs = append(r.arcs, tapn.NewTransportArc(half.src, half.t, half.dst, half.interval, half.weight))
	}
	return tapn.New(r.g.Name(), r.places, r.transitions, r.arcs)
}

func Loader() *Reader {
	return &Reader{
		mapping:     make(map[string]tapn.Node),
		places:      make([]*tapn.Place, 0),
		transitions: make([]*tapn.Transition, 0),
		arcs:        make([]tapn.Arc, 0),
		transports:  make(map[int]*transportHalf),
	}
}
