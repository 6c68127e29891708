package discrete

import (
	"context"

	"github.com/jt05610/tapn"
	"github.com/jt05610/tapn/pwlist"
	"github.com/jt05610/tapn/query"
	"github.com/jt05610/tapn/trace"
	"go.uber.org/zap"
)

// TimeDartSearch explores base markings only. A dart stands for every marking reached from its
// base by some delay in its window, so markings differing only by a delay are explored once.
type TimeDartSearch struct {
	*engine
	initial *tapn.Marking
	store   pwlist.DartStore
}

func NewTimeDartSearch(net *tapn.Net, initial *tapn.Marking, q *query.Query, opts ...Option) (*TimeDartSearch, error) {
	e, err := newEngine(net, q, opts)
	if err != nil {
		return nil, err
	}
	if hasUrgent(net) {
		return nil, errUrgentDarts
	}
	store, err := pwlist.NewDartStore(e.backend, e.strategy, e.seed, e.dir)
	if err != nil {
		return nil, err
	}
	return &TimeDartSearch{engine: e, initial: initial, store: store}, nil
}

// Run explores until a goal marking is found or every dart is passed. The store is closed when Run
// returns.
func (s *TimeDartSearch) Run(ctx context.Context) (res *Result, err error) {
	defer func() {
		if cerr := s.store.Close(); err == nil {
			err = cerr
		}
	}()
	s.logger.Info("time dart search started", zap.String("net", s.net.Name), zap.Stringer("query", s.query))
	root := s.initial.Clone()
	root.GeneratedBy = nil
	found, err := s.handleSuccessor(root, trace.None, 0)
	if err != nil || found {
		return s.finish(found, true), err
	}
	for s.store.HasWaiting() {
		if err := s.interrupted(ctx); err != nil {
			return s.finish(false, false), err
		}
		dart, window, err := s.store.Next()
		if err != nil {
			return s.finish(false, false), err
		}
		s.stats.Explored++
		found, err := s.explore(dart, window)
		if err != nil || found {
			return s.finish(found, true), err
		}
	}
	return s.finish(false, true), nil
}

func (s *TimeDartSearch) finish(found, complete bool) *Result {
	s.stats.Discovered = s.store.Discovered()
	s.stats.Stored = s.store.Size()
	s.logger.Info("time dart search finished", append(s.stats.Fields(), zap.Bool("goal", found))...)
	return s.result(found, complete)
}

func (s *TimeDartSearch) explore(dart *pwlist.Dart, window pwlist.Window) (bool, error) {
	base := dart.Base
	size := base.Size()
	offset := s.traceOffset(dart.Trace)
	for _, t := range s.active {
		first, last := CalculateStart(t, base)
		if first == -1 {
			continue
		}
		start := max(window.Waiting, first)
		end := min(window.Passed-1, last)
		if start > end {
			continue
		}
		stop := start
		if !t.UntimedPostset() {
			stop = min(max(start, CalculateStop(base)), end)
		}
		for n := start; n <= stop; n++ {
			delayed := base.Clone()
			delayed.DeltaAge(n)
			if !delayed.Enables(t) {
				continue
			}
			if s.exceeds(size, t) {
				break
			}
			var (
				found bool
				err   error
			)
			s.gen.Fire(delayed, t, func(child *tapn.Marking) bool {
				found, err = s.handleSuccessor(child, dart.Trace, n-offset)
				return !found && err == nil
			})
			if err != nil || found {
				return found, err
			}
		}
	}
	return false, nil
}

// traceOffset is the delay from the base of a dart to the marking recorded at its trace step.
func (s *TimeDartSearch) traceOffset(id trace.ID) int {
	if s.steps == nil {
		return 0
	}
	step, ok := s.steps.Get(id)
	if !ok {
		return 0
	}
	return step.Marking.Youngest()
}

// handleSuccessor stores the dart of m and evaluates the query on m.
func (s *TimeDartSearch) handleSuccessor(m *tapn.Marking, parent trace.ID, delay int) (bool, error) {
	m.Parent = parent
	m.Cut()
	maxDelay := m.AvailableDelay()
	size := m.Size()
	s.seen(size)
	if size > s.kBound {
		s.stats.Discarded++
		return false, nil
	}
	base := m.Clone()
	youngest := base.MakeBase()
	dart, added, err := s.store.Add(base, youngest, trace.None)
	if err != nil || !added {
		return false, err
	}
	if maxDelay > s.net.MaxConstant() {
		maxDelay = s.net.MaxConstant() + 1
	}
	step := s.record(parent, Step{Delay: delay, Transition: m.GeneratedBy, Marking: m})
	if step != trace.None && dart != nil {
		dart.Trace = step
	}
	found, err := s.isGoal(m, maxDelay)
	if found {
		s.goal = step
	}
	return found, err
}
