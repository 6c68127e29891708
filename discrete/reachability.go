package discrete

import (
	"context"

	"github.com/jt05610/tapn"
	"github.com/jt05610/tapn/pwlist"
	"github.com/jt05610/tapn/query"
	"github.com/jt05610/tapn/trace"
	"go.uber.org/zap"
)

// ReachabilitySearch explores cut markings one time unit at a time.
type ReachabilitySearch struct {
	*engine
	initial *tapn.Marking
	store   *pwlist.MarkingStore
	ids     map[*tapn.Marking]trace.ID
}

func NewReachabilitySearch(net *tapn.Net, initial *tapn.Marking, q *query.Query, opts ...Option) (*ReachabilitySearch, error) {
	e, err := newEngine(net, q, opts)
	if err != nil {
		return nil, err
	}
	waiting := pwlist.NewWaitingList[*tapn.Marking](e.strategy, e.seed)
	s := &ReachabilitySearch{engine: e, initial: initial, store: pwlist.NewMarkingStore(waiting)}
	if e.trace {
		s.ids = make(map[*tapn.Marking]trace.ID)
	}
	return s, nil
}

func (s *ReachabilitySearch) Run(ctx context.Context) (*Result, error) {
	s.logger.Info("reachability search started", zap.String("net", s.net.Name), zap.Stringer("query", s.query))
	root := s.initial.Clone()
	root.GeneratedBy = nil
	found, err := s.add(root, trace.None, 0)
	if err != nil || found {
		return s.finish(found, true), err
	}
	for s.store.HasWaiting() {
		if err := s.interrupted(ctx); err != nil {
			return s.finish(false, false), err
		}
		m, _ := s.store.Next()
		found, err := s.expand(m)
		if err != nil || found {
			return s.finish(found, true), err
		}
	}
	return s.finish(false, true), nil
}

func (s *ReachabilitySearch) finish(found, complete bool) *Result {
	s.stats.Discovered = s.store.Discovered()
	s.stats.Explored = s.store.Explored()
	s.stats.Stored = s.store.Size()
	s.logger.Info("reachability search finished", append(s.stats.Fields(), zap.Bool("goal", found))...)
	return s.result(found, complete)
}

func (s *ReachabilitySearch) expand(m *tapn.Marking) (bool, error) {
	self := trace.None
	if s.ids != nil {
		self = s.ids[m]
		delete(s.ids, m)
	}
	urgent := false
	size := m.Size()
	for _, t := range s.active {
		if !m.Enables(t) {
			continue
		}
		urgent = urgent || t.Urgent
		if s.exceeds(size, t) {
			continue
		}
		var (
			found bool
			err   error
		)
		s.gen.Fire(m, t, func(child *tapn.Marking) bool {
			found, err = s.add(child, self, 0)
			return !found && err == nil
		})
		if err != nil || found {
			return found, err
		}
	}
	if urgent || m.AvailableDelay() < 1 {
		return false, nil
	}
	delayed := m.Clone()
	delayed.DeltaAge(1)
	delayed.GeneratedBy = nil
	return s.add(delayed, self, 1)
}

// add stores the cut of m.
func (s *ReachabilitySearch) add(m *tapn.Marking, parent trace.ID, delay int) (bool, error) {
	m.Cut()
	size := m.Size()
	s.seen(size)
	if size > s.kBound {
		s.stats.Discarded++
		return false, nil
	}
	if !s.store.Add(m) {
		return false, nil
	}
	m.Parent = parent
	step := s.record(parent, Step{Delay: delay, Transition: m.GeneratedBy, Marking: m})
	if s.ids != nil {
		s.ids[m] = step
	}
	found, err := s.isGoal(m, m.AvailableDelay())
	if found {
		s.goal = step
	}
	return found, err
}
