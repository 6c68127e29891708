// Package smc generates random timed runs of a net and estimates the probability of bounded
// queries from them.
package smc

import (
	"fmt"
	"math"

	"github.com/jt05610/tapn"
	"github.com/jt05610/tapn/clock"
	"github.com/jt05610/tapn/interval"
	"golang.org/x/exp/rand"
)

var inf = math.Inf(1)

// RunGenerator produces one run per Reset. Every transition keeps the set of delays at which it
// may fire and, once enabled, a sampled firing date. The transition with the earliest date within
// its interval fires next.
//
// A RunGenerator is not safe for concurrent use. Use Copy to get one per goroutine.
type RunGenerator struct {
	net    *tapn.Net
	clock  clock.Clock
	rng    *rand.Rand
	record bool

	origin         *tapn.RealMarking
	originRaw      []interval.Set
	originMaxDelay float64

	parent *tapn.RealMarking
	// raw ignores invariants; intervals is raw intersected with [0, maxDelay].
	raw       []interval.Set
	intervals []interval.Set
	dates     []float64
	maxDelay  float64
	modified  []int
	seen      []bool
	winners   []int

	maximal   bool
	totalTime clock.Value
	steps     int
	stats     []int
	trace     []*tapn.RealMarking
}

func NewRunGenerator(net *tapn.Net, c clock.Clock, seed uint64) *RunGenerator {
	n := len(net.Transitions)
	return &RunGenerator{
		net:       net,
		clock:     c,
		rng:       rand.New(rand.NewSource(seed)),
		raw:       make([]interval.Set, n),
		intervals: make([]interval.Set, n),
		dates:     make([]float64, n),
		seen:      make([]bool, n),
		stats:     make([]int, n),
	}
}

// WithTrace keeps the markings of every run for Trace.
func (g *RunGenerator) WithTrace(enabled bool) *RunGenerator {
	g.record = enabled
	return g
}

// Prepare computes the firing intervals of initial and resets the generator to it.
func (g *RunGenerator) Prepare(initial *tapn.RealMarking) {
	g.origin = initial.Clone()
	g.origin.GeneratedBy = nil
	g.parent = g.origin
	g.originRaw = make([]interval.Set, len(g.net.Transitions))
	for _, t := range g.net.Transitions {
		g.originRaw[t.Index] = g.transitionFiringDates(t)
	}
	g.originMaxDelay = g.toFloat(g.origin.AvailableDelay())
	deadlocked := true
	for _, set := range g.originRaw {
		if !window(set, g.originMaxDelay).Empty() {
			deadlocked = false
			break
		}
	}
	g.origin.Deadlocked = deadlocked
	g.parent = nil
	g.Reset()
}

// Reseed restarts the random stream. The dates sampled by the last Reset are kept.
func (g *RunGenerator) Reseed(seed uint64) {
	g.rng.Seed(seed)
}

// Reset starts a new run from the prepared marking.
func (g *RunGenerator) Reset() {
	g.parent = g.origin.Clone()
	g.trace = g.trace[:0]
	g.maximal = false
	g.totalTime = 0
	g.steps = 0
	g.modified = g.modified[:0]
	g.maxDelay = g.originMaxDelay
	for i := range g.raw {
		g.raw[i] = append(g.raw[i][:0], g.originRaw[i]...)
		g.intervals[i] = window(g.raw[i], g.maxDelay)
		g.dates[i] = inf
		if enabledNow(g.intervals[i]) {
			g.dates[i] = g.sample(g.net.Transitions[i])
		}
	}
}

// Copy returns a generator prepared with the same initial marking, drawing from its own random
// stream. Statistics are not copied.
func (g *RunGenerator) Copy(seed uint64) *RunGenerator {
	c := NewRunGenerator(g.net, g.clock, seed).WithTrace(g.record)
	c.origin = g.origin.Clone()
	c.originRaw = make([]interval.Set, len(g.originRaw))
	for i, set := range g.originRaw {
		c.originRaw[i] = set.Clone()
	}
	c.originMaxDelay = g.originMaxDelay
	c.Reset()
	return c
}

// Next lets time pass until the winning transition fires and returns the new marking. It returns
// nil when no transition can ever fire again; the run is then maximal. Without a winner, time
// passes to the next interval boundary and the delayed marking is returned.
func (g *RunGenerator) Next() *tapn.RealMarking {
	winner, date := g.winner()
	if math.IsInf(date, 1) {
		g.maximal = true
		return nil
	}
	delay := g.clock.FromFloat(date)
	g.parent.DeltaAge(delay)
	g.totalTime = clock.Add(g.totalTime, delay)
	g.modified = g.modified[:0]
	if winner != nil {
		g.steps++
		g.stats[winner.Index]++
		g.dates[winner.Index] = inf
		child := g.fire(winner)
		child.GeneratedBy = winner
		child.PreviousDelay = 0
		if g.record {
			g.trace = append(g.trace, g.parent)
		}
		g.parent = child
	}
	elapsed := g.clock.ToFloat(delay)
	for i := range g.raw {
		g.raw[i] = g.raw[i].DeltaPositive(-elapsed)
		if !math.IsInf(g.dates[i], 1) {
			g.dates[i] = math.Max(0, g.dates[i]-elapsed)
		}
	}
	g.refresh()
	return g.parent
}

// refresh recomputes the intervals of the transitions reading a modified place and samples a date
// for the transitions enabled from now on.
func (g *RunGenerator) refresh() {
	g.maxDelay = g.toFloat(g.parent.AvailableDelay())
	clear(g.seen)
	for _, idx := range g.modified {
		p := g.net.Places[idx]
		for _, a := range p.InputArcs() {
			g.recompute(a.Transition)
		}
		for _, a := range p.InhibitorArcs() {
			g.recompute(a.Transition)
		}
		for _, a := range p.TransportArcs() {
			g.recompute(a.Transition)
		}
	}
	deadlocked := true
	for i := range g.raw {
		g.intervals[i] = window(g.raw[i], g.maxDelay)
		deadlocked = deadlocked && g.intervals[i].Empty()
		switch {
		case !enabledNow(g.intervals[i]):
			g.dates[i] = inf
		case math.IsInf(g.dates[i], 1):
			g.dates[i] = g.sample(g.net.Transitions[i])
		}
	}
	g.parent.Deadlocked = deadlocked
}

func (g *RunGenerator) recompute(t *tapn.Transition) {
	if g.seen[t.Index] {
		return
	}
	g.seen[t.Index] = true
	g.raw[t.Index] = g.transitionFiringDates(t)
}

// winner returns the transition to fire and the delay before it fires. The transition is nil when
// the delay only reaches an interval boundary.
func (g *RunGenerator) winner() (*tapn.Transition, float64) {
	g.winners = g.winners[:0]
	dateMin := inf
	for i, set := range g.intervals {
		if set.Empty() {
			continue
		}
		first := set[0]
		date := inf
		if first.Lower > 0 {
			date = first.Lower
		} else if first.Upper > 0 {
			date = first.Upper
		}
		if date < dateMin {
			dateMin = date
			g.winners = g.winners[:0]
		}
		date = g.dates[i]
		if math.IsInf(date, 1) || date > first.Upper {
			continue
		}
		if date < dateMin {
			dateMin = date
			g.winners = g.winners[:0]
		}
		if date == dateMin {
			g.winners = append(g.winners, i)
		}
	}
	switch len(g.winners) {
	case 0:
		return nil, dateMin
	case 1:
		return g.net.Transitions[g.winners[0]], dateMin
	}
	return g.chooseWeighted(g.winners), dateMin
}

// chooseWeighted breaks a tie. Transitions of infinite weight always win.
func (g *RunGenerator) chooseWeighted(candidates []int) *tapn.Transition {
	var (
		total    float64
		infinite []int
	)
	for _, c := range candidates {
		t := g.net.Transitions[c]
		if t.InfiniteWeight() {
			infinite = append(infinite, c)
			continue
		}
		total += t.Weight
	}
	if len(infinite) > 0 {
		return g.net.Transitions[infinite[g.rng.Intn(len(infinite))]]
	}
	if total == 0 {
		return g.net.Transitions[candidates[g.rng.Intn(len(candidates))]]
	}
	w := g.rng.Float64() * total
	for _, c := range candidates {
		t := g.net.Transitions[c]
		w -= t.Weight
		if w <= 0 {
			return t
		}
	}
	return g.net.Transitions[candidates[0]]
}

// transitionFiringDates is the set of delays from the current marking after which t is enabled,
// ignoring invariants.
func (g *RunGenerator) transitionFiringDates(t *tapn.Transition) interval.Set {
	for _, a := range t.InhibitorArcs() {
		if g.parent.Count(a.Place.Index) >= a.Weight {
			return nil
		}
	}
	dates := interval.Set{interval.Unbounded}
	for _, a := range t.Preset() {
		tokens := g.parent.TokensIn(a.Place)
		if len(tokens) == 0 {
			return nil
		}
		dates = interval.Intersection(dates, g.arcFiringDates(a.Interval, a.Weight, tokens))
		if dates.Empty() {
			return nil
		}
	}
	for _, a := range t.TransportArcs() {
		tokens := g.parent.TokensIn(a.Source)
		if len(tokens) == 0 {
			return nil
		}
		iv := a.Interval
		if inv := a.Destination.Invariant; inv.Finite() && inv.Bound < iv.Upper {
			iv.Upper, iv.UpperStrict = inv.Bound, inv.Strict
		}
		dates = interval.Intersection(dates, g.arcFiringDates(iv, a.Weight, tokens))
		if dates.Empty() {
			return nil
		}
	}
	return dates
}

// arcFiringDates is the set of delays after which weight tokens of the sorted list are in iv.
// Windows of consecutive tokens are tried from the youngest on; when the remaining tokens cannot
// cover the weight the dates found so far are returned.
func (g *RunGenerator) arcFiringDates(iv tapn.TimeInterval, weight int, tokens []tapn.RealToken) interval.Set {
	upper := inf
	if !iv.Unbounded() {
		upper = float64(iv.Upper)
	}
	arc := interval.New(float64(iv.Lower), upper)
	var dates interval.Set
	for i := range tokens {
		j, count := i, tokens[i].Count
		for count < weight && j+1 < len(tokens) {
			j++
			count += tokens[j].Count
		}
		if count < weight {
			break
		}
		w := interval.Intersect(g.remainingForToken(arc, tokens[i]), g.remainingForToken(arc, tokens[j]))
		dates = dates.Add(w)
	}
	return dates
}

func (g *RunGenerator) remainingForToken(arc interval.Interval, tok tapn.RealToken) interval.Interval {
	return arc.Delta(-g.clock.ToFloat(tok.Age)).Positive()
}

// fire consumes the tokens of t from a copy of the current marking, picking tokens at random among
// those the arcs accept, and produces its outputs.
func (g *RunGenerator) fire(t *tapn.Transition) *tapn.RealMarking {
	child := g.parent.Clone()
	for _, a := range t.Preset() {
		iv := a.Interval
		g.consume(child, t, a.Place, nil, a.Weight, func(age float64) bool {
			return iv.ContainsReal(age)
		})
		g.modified = append(g.modified, a.Place.Index)
	}
	for _, a := range t.TransportArcs() {
		iv, inv := a.Interval, a.Destination.Invariant
		g.consume(child, t, a.Source, a.Destination, a.Weight, func(age float64) bool {
			return iv.ContainsReal(age) && inv.AllowsReal(age)
		})
		g.modified = append(g.modified, a.Source.Index, a.Destination.Index)
	}
	for _, a := range t.Postset() {
		child.AddToken(a.Place, 0, a.Weight)
		g.modified = append(g.modified, a.Place.Index)
	}
	return child
}

// consume removes weight accepted tokens of p one at a time, starting each search at a random
// position. Removed tokens move to dest when it is not nil.
func (g *RunGenerator) consume(m *tapn.RealMarking, t *tapn.Transition, p, dest *tapn.Place, weight int, accept func(float64) bool) {
	remaining := weight
	tokens := m.TokensIn(p)
	if len(tokens) == 0 {
		panic(fmt.Sprintf("firing %s: %s is empty", t, p))
	}
	idx := g.rng.Intn(len(tokens))
	for tested := 0; remaining > 0 && tested < len(tokens); {
		tok := tokens[idx]
		if !accept(g.clock.ToFloat(tok.Age)) {
			idx = (idx + 1) % len(tokens)
			tested++
			continue
		}
		m.RemoveToken(p, tok.Age, 1)
		if dest != nil {
			m.AddToken(dest, tok.Age, 1)
		}
		remaining--
		tokens = m.TokensIn(p)
		if remaining > 0 && len(tokens) > 0 {
			idx = g.rng.Intn(len(tokens))
			tested = 0
		}
	}
	if remaining > 0 {
		panic(fmt.Sprintf("firing %s: %d tokens of %s missing", t, remaining, p))
	}
}

func (g *RunGenerator) sample(t *tapn.Transition) float64 {
	d := t.Distribution.Sample(g.rng)
	if math.IsNaN(d) || d < 0 {
		d = 0
	}
	return g.clock.Round(d)
}

func (g *RunGenerator) toFloat(v clock.Value) float64 {
	return g.clock.ToFloat(v)
}

// ReachedEnd reports whether the last call to Next found the run maximal.
func (g *RunGenerator) ReachedEnd() bool { return g.maximal }

// RunDelay is the time elapsed in the current run.
func (g *RunGenerator) RunDelay() float64 { return g.clock.ToFloat(g.totalTime) }

// RunSteps is the number of transitions fired in the current run.
func (g *RunGenerator) RunSteps() int { return g.steps }

// Marking is the current marking of the run. It must not be modified.
func (g *RunGenerator) Marking() *tapn.RealMarking { return g.parent }

// Interval returns the delays after which t may fire from the current marking.
func (g *RunGenerator) Interval(t *tapn.Transition) interval.Set { return g.intervals[t.Index].Clone() }

// TransitionStatistics counts the firings of every transition, by index, over all runs since the
// generator was created.
func (g *RunGenerator) TransitionStatistics() []int {
	return append([]int(nil), g.stats...)
}

// Trace returns the markings of the current run, oldest first. Each marking carries the delay
// spent in it before the next transition fired. It is empty unless WithTrace was set.
func (g *RunGenerator) Trace() []*tapn.RealMarking {
	if !g.record {
		return nil
	}
	out := make([]*tapn.RealMarking, 0, len(g.trace)+1)
	out = append(out, g.trace...)
	return append(out, g.parent.Clone())
}

func enabledNow(set interval.Set) bool {
	return !set.Empty() && set[0].Lower == 0
}

// window restricts set to [0, maxDelay] without modifying it.
func window(set interval.Set, maxDelay float64) interval.Set {
	if set.Empty() {
		return nil
	}
	return interval.Intersection(set, interval.Set{interval.New(0, maxDelay)})
}
