package query

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/jt05610/tapn"
)

// Result is the outcome of evaluating a query on one marking.
type Result struct {
	Value bool
	Err   error
}

type Visitor interface {
	VisitQuery(q *Query, r *Result)
	VisitPredicate(p *Predicate, r *Result)
}

func (q *Query) Accept(v Visitor, r *Result) { v.VisitQuery(q, r) }

func (p *Predicate) Accept(v Visitor, r *Result) { v.VisitPredicate(p, r) }

// State is the view of a marking a predicate is evaluated on.
type State interface {
	Count(idx int) int
	Deadlock() bool
}

type discreteState struct {
	net      *tapn.Net
	marking  *tapn.Marking
	maxDelay int
}

func (s discreteState) Count(idx int) int { return s.marking.Count(idx) }

func (s discreteState) Deadlock() bool {
	s.marking.Deadlocked = s.marking.CanDeadlock(s.net, s.maxDelay)
	return s.marking.Deadlocked
}

// Discrete views a discrete marking that may still be delayed by up to maxDelay.
func Discrete(net *tapn.Net, m *tapn.Marking, maxDelay int) State {
	return discreteState{net: net, marking: m, maxDelay: maxDelay}
}

type realState struct {
	marking *tapn.RealMarking
}

func (s realState) Count(idx int) int { return s.marking.Count(idx) }

func (s realState) Deadlock() bool { return s.marking.Deadlocked }

// Real views a marking of a stochastic run.
func Real(m *tapn.RealMarking) State {
	return realState{marking: m}
}

func newEnv(net *tapn.Net) map[string]any {
	env := make(map[string]any, len(net.Places)+2)
	for _, p := range net.Places {
		env[p.Name] = 0
	}
	env["deadlock"] = false
	env["tokens"] = func(name string) (int, error) { return 0, nil }
	return env
}

// Evaluator answers whether a marking is a goal of the query: a marking satisfying the predicate
// for EF and PF, a marking violating it for AG and PG. It is not safe for concurrent use.
type Evaluator struct {
	net   *tapn.Net
	env   map[string]any
	state State
}

func NewEvaluator(net *tapn.Net) *Evaluator {
	e := &Evaluator{net: net, env: newEnv(net)}
	e.env["tokens"] = func(name string) (int, error) {
		p, ok := e.net.Place(name)
		if !ok {
			return 0, fmt.Errorf("unknown place %q", name)
		}
		return e.state.Count(p.Index), nil
	}
	return e
}

// Goal evaluates q on s.
func (e *Evaluator) Goal(q *Query, s State) Result {
	e.state = s
	var r Result
	q.Accept(e, &r)
	return r
}

func (e *Evaluator) VisitQuery(q *Query, r *Result) {
	q.Predicate.Accept(e, r)
	if r.Err == nil && q.Quantifier.Universal() {
		r.Value = !r.Value
	}
}

func (e *Evaluator) VisitPredicate(p *Predicate, r *Result) {
	for _, pl := range e.net.Places {
		e.env[pl.Name] = e.state.Count(pl.Index)
	}
	e.env["deadlock"] = p.deadlock && e.state.Deadlock()
	out, err := expr.Run(p.program, e.env)
	if err != nil {
		r.Err = err
		return
	}
	r.Value = out.(bool)
}
