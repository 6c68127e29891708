// Package query parses and evaluates reachability and probabilistic queries.
//
// A query is a quantifier followed by a predicate over the marking:
//
//	EF ready >= 2 && done == 0
//	AG tokens("buffer") <= 3
//	PF[<=10] deadlock
//	PG[#<=50] !error
//
// Place names are bound to their token count. tokens(name) looks up places whose name is not a
// valid identifier, and deadlock holds when no transition can fire any more.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
	"github.com/jt05610/tapn"
)

var (
	ErrSyntax      = errors.New("query syntax error")
	ErrUnsupported = errors.New("unsupported query")
)

type Quantifier int

const (
	EF Quantifier = iota
	AG
	PF
	PG
)

var quantifierNames = map[Quantifier]string{EF: "EF", AG: "AG", PF: "PF", PG: "PG"}

func (q Quantifier) String() string { return quantifierNames[q] }

// Probabilistic reports whether the quantifier is answered by simulation.
func (q Quantifier) Probabilistic() bool { return q == PF || q == PG }

// Universal quantifiers hold when no run reaches a marking violating the predicate.
func (q Quantifier) Universal() bool { return q == AG || q == PG }

type BoundKind int

const (
	NoBound BoundKind = iota
	TimeBound
	StepBound
)

// Bound limits the runs of a probabilistic query.
type Bound struct {
	Kind  BoundKind
	Time  float64
	Steps int
}

func (b Bound) String() string {
	switch b.Kind {
	case TimeBound:
		return "[<=" + strconv.FormatFloat(b.Time, 'g', -1, 64) + "]"
	case StepBound:
		return "[#<=" + strconv.Itoa(b.Steps) + "]"
	}
	return ""
}

type Query struct {
	Quantifier Quantifier
	Bound      Bound
	Predicate  *Predicate
}

// Predicate is a compiled boolean expression over a marking.
type Predicate struct {
	Source   string
	program  *vm.Program
	deadlock bool
}

// UsesDeadlock reports whether the predicate mentions the deadlock proposition.
func (p *Predicate) UsesDeadlock() bool { return p.deadlock }

func (q *Query) String() string {
	return q.Quantifier.String() + q.Bound.String() + " " + q.Predicate.Source
}

// Parse reads a query against the places of net.
func Parse(src string, net *tapn.Net) (*Query, error) {
	src = strings.TrimSpace(src)
	if len(src) < 2 {
		return nil, fmt.Errorf("%w: %q", ErrSyntax, src)
	}
	q := &Query{}
	switch strings.ToUpper(src[:2]) {
	case "EF":
		q.Quantifier = EF
	case "AG":
		q.Quantifier = AG
	case "PF":
		q.Quantifier = PF
	case "PG":
		q.Quantifier = PG
	default:
		return nil, fmt.Errorf("%w: unknown quantifier in %q", ErrSyntax, src)
	}
	rest := strings.TrimSpace(src[2:])
	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated bound in %q", ErrSyntax, src)
		}
		b, err := parseBound(rest[1:end])
		if err != nil {
			return nil, err
		}
		q.Bound = b
		rest = strings.TrimSpace(rest[end+1:])
	}
	if q.Quantifier.Probabilistic() && q.Bound.Kind == NoBound {
		return nil, fmt.Errorf("%w: %s requires a time or step bound", ErrSyntax, q.Quantifier)
	}
	if !q.Quantifier.Probabilistic() && q.Bound.Kind != NoBound {
		return nil, fmt.Errorf("%w: %s does not take a bound", ErrSyntax, q.Quantifier)
	}
	p, err := Compile(rest, net)
	if err != nil {
		return nil, err
	}
	q.Predicate = p
	return q, nil
}

func parseBound(s string) (Bound, error) {
	s = strings.ReplaceAll(s, " ", "")
	steps := strings.HasPrefix(s, "#")
	s = strings.TrimPrefix(s, "#")
	if !strings.HasPrefix(s, "<=") {
		return Bound{}, fmt.Errorf("%w: bound %q must be <=", ErrSyntax, s)
	}
	s = s[2:]
	if steps {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return Bound{}, fmt.Errorf("%w: invalid step bound %q", ErrSyntax, s)
		}
		return Bound{Kind: StepBound, Steps: n}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return Bound{}, fmt.Errorf("%w: invalid time bound %q", ErrSyntax, s)
	}
	return Bound{Kind: TimeBound, Time: f}, nil
}

type deadlockFinder struct {
	found bool
}

func (d *deadlockFinder) Visit(node *ast.Node) {
	if id, ok := (*node).(*ast.IdentifierNode); ok && id.Value == "deadlock" {
		d.found = true
	}
}

// Compile type checks a predicate against the places of net.
func Compile(src string, net *tapn.Net) (*Predicate, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: empty predicate", ErrSyntax)
	}
	tree, err := parser.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	finder := &deadlockFinder{}
	ast.Walk(&tree.Node, finder)
	program, err := expr.Compile(src, expr.Env(newEnv(net)), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return &Predicate{Source: src, program: program, deadlock: finder.found}, nil
}

// CheckSupported rejects queries the engines cannot answer on net. The discrete engines ignore
// orphan transitions, which changes the meaning of deadlock.
func CheckSupported(q *Query, net *tapn.Net) error {
	if !q.Quantifier.Probabilistic() && q.Predicate.UsesDeadlock() && len(net.OrphanTransitions()) > 0 {
		return fmt.Errorf("%w: the net has orphan transitions and the query a deadlock proposition", ErrUnsupported)
	}
	return nil
}
