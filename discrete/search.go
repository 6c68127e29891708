// Package discrete answers EF and AG queries by exhaustive exploration of the discretized state
// space of a timed-arc Petri net.
package discrete

import (
	"context"
	"errors"
	"fmt"

	"github.com/jt05610/tapn"
	"github.com/jt05610/tapn/analysis"
	"github.com/jt05610/tapn/pwlist"
	"github.com/jt05610/tapn/query"
	"github.com/jt05610/tapn/trace"
	"go.uber.org/zap"
)

var (
	ErrBudgetExhausted = errors.New("search budget exhausted")
	ErrUnsupported     = errors.New("unsupported verification")

	errUrgentDarts = fmt.Errorf("%w: time darts cannot handle urgent transitions", ErrUnsupported)
)

// Stats counts the work done by a search.
type Stats struct {
	Discovered int
	Explored   int
	Stored     int
	// Discarded counts firings dropped for exceeding the k-bound, once per marking or dart that
	// enables the transition, plus an initial marking that already exceeds it.
	Discarded int
	// MaxTokens is the largest marking met, including discarded ones.
	MaxTokens int
}

func (s Stats) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("discovered", s.Discovered),
		zap.Int("explored", s.Explored),
		zap.Int("stored", s.Stored),
		zap.Int("discarded", s.Discarded),
		zap.Int("maxTokens", s.MaxTokens),
	}
}

// Step is one step of a trace. Delay is the time elapsed before Transition fired, or the delay
// step itself when Transition is nil.
type Step struct {
	Delay      int
	Transition *tapn.Transition
	Marking    *tapn.Marking
}

func (s Step) String() string {
	suffix := ""
	if s.Marking.Deadlocked {
		suffix = " (deadlock)"
	}
	if s.Transition == nil {
		return fmt.Sprintf("delay %d -> %s%s", s.Delay, s.Marking, suffix)
	}
	return fmt.Sprintf("delay %d, fire %s -> %s%s", s.Delay, s.Transition, s.Marking, suffix)
}

// Result is the answer of a search.
type Result struct {
	Satisfied bool
	// Complete is false when the search stopped before settling the query.
	Complete bool
	Stats    Stats
	Trace    []Step
}

type settings struct {
	kBound    int
	strategy  pwlist.Strategy
	backend   pwlist.Backend
	dir       string
	seed      uint64
	trace     bool
	timeDarts bool
	logger    *zap.Logger
}

func defaults() settings {
	return settings{
		kBound:    5,
		strategy:  pwlist.BFS,
		backend:   pwlist.Hash,
		timeDarts: true,
		logger:    zap.NewNop(),
	}
}

type Option func(*settings)

// WithKBound sets the largest number of tokens a stored marking may hold.
func WithKBound(k int) Option {
	return func(s *settings) { s.kBound = k }
}

func WithStrategy(strategy pwlist.Strategy, seed uint64) Option {
	return func(s *settings) { s.strategy, s.seed = strategy, seed }
}

// WithStore selects the dart store. dir is only used by the badger backend; empty means in
// memory.
func WithStore(backend pwlist.Backend, dir string) Option {
	return func(s *settings) { s.backend, s.dir = backend, dir }
}

// WithTrace records the steps leading to the marking that settles the query.
func WithTrace(enabled bool) Option {
	return func(s *settings) { s.trace = enabled }
}

// WithTimeDarts selects the time-dart search in Verify.
func WithTimeDarts(enabled bool) Option {
	return func(s *settings) { s.timeDarts = enabled }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// engine holds what both searches share.
type engine struct {
	net       *tapn.Net
	query     *query.Query
	eval      *query.Evaluator
	gen       *Generator
	structure *analysis.Net
	settings
	stats  Stats
	steps  *trace.Arena[Step]
	goal   trace.ID
	active []*tapn.Transition
}

func newEngine(net *tapn.Net, q *query.Query, opts []Option) (*engine, error) {
	if q.Quantifier.Probabilistic() {
		return nil, fmt.Errorf("%w: %s queries need the stochastic engine", ErrUnsupported, q.Quantifier)
	}
	if err := query.CheckSupported(q, net); err != nil {
		return nil, err
	}
	e := &engine{
		net:       net,
		query:     q,
		eval:      query.NewEvaluator(net),
		gen:       NewGenerator(net),
		structure: analysis.New(net),
		settings:  defaults(),
		goal:      trace.None,
	}
	for _, opt := range opts {
		opt(&e.settings)
	}
	if e.kBound < 1 {
		return nil, fmt.Errorf("k-bound must be positive, got %d", e.kBound)
	}
	if e.trace {
		e.steps = trace.NewArena[Step]()
	}
	for _, t := range net.Transitions {
		if t.PresetSize()+len(t.Postset())+len(t.InhibitorArcs()) > 0 {
			e.active = append(e.active, t)
		}
	}
	return e, nil
}

func (e *engine) seen(size int) {
	if size > e.stats.MaxTokens {
		e.stats.MaxTokens = size
	}
}

// exceeds reports whether every firing of t from a marking of the given size breaks the k-bound.
// Callers only ask for transitions they are about to fire.
func (e *engine) exceeds(size int, t *tapn.Transition) bool {
	after := size + e.structure.TokenDelta(t)
	if after <= e.kBound {
		return false
	}
	e.seen(after)
	e.stats.Discarded++
	e.logger.Debug("k-bound exceeded", zap.String("transition", t.Name), zap.Int("tokens", after))
	return true
}

func (e *engine) isGoal(m *tapn.Marking, maxDelay int) (bool, error) {
	r := e.eval.Goal(e.query, query.Discrete(e.net, m, maxDelay))
	if r.Err != nil {
		return false, fmt.Errorf("evaluate %s: %w", e.query, r.Err)
	}
	return r.Value, nil
}

func (e *engine) record(parent trace.ID, step Step) trace.ID {
	if e.steps == nil {
		return trace.None
	}
	return e.steps.Add(parent, step)
}

func (e *engine) result(found, complete bool) *Result {
	r := &Result{
		Satisfied: found != e.query.Quantifier.Universal(),
		Complete:  complete || found,
		Stats:     e.stats,
	}
	if found && e.steps != nil {
		r.Trace = e.steps.Path(e.goal)
	}
	return r
}

func (e *engine) interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBudgetExhausted, err)
	}
	return nil
}

// Searcher is implemented by both search algorithms.
type Searcher interface {
	Run(ctx context.Context) (*Result, error)
}

func hasUrgent(net *tapn.Net) bool {
	for _, t := range net.Transitions {
		if t.Urgent {
			return true
		}
	}
	return false
}

// New picks the time-dart search unless disabled or the net has urgent transitions, which only the
// plain search handles.
func New(net *tapn.Net, initial *tapn.Marking, q *query.Query, opts ...Option) (Searcher, error) {
	s := defaults()
	for _, opt := range opts {
		opt(&s)
	}
	if s.timeDarts && !hasUrgent(net) {
		return NewTimeDartSearch(net, initial, q, opts...)
	}
	if s.timeDarts {
		s.logger.Info("urgent transitions present, using the plain search")
	}
	return NewReachabilitySearch(net, initial, q, opts...)
}

// Verify answers q from initial.
func Verify(ctx context.Context, net *tapn.Net, initial *tapn.Marking, q *query.Query, opts ...Option) (*Result, error) {
	s, err := New(net, initial, q, opts...)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx)
}
