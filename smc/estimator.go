package smc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jt05610/tapn"
	"github.com/jt05610/tapn/clock"
	"github.com/jt05610/tapn/query"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrUnsupported     = errors.New("unsupported estimation")
	ErrBudgetExhausted = errors.New("run budget exhausted")
)

// ChernoffHoeffding is the number of runs after which the estimated probability is within width of
// the real one with the given confidence.
func ChernoffHoeffding(confidence, width float64) int {
	return int(math.Ceil(math.Log(2/(1-confidence)) / (2 * width * width)))
}

type settings struct {
	runs       int
	confidence float64
	width      float64
	workers    int
	seed       uint64
	precision  uint32
	traces     int
	kBound     int
	logger     *zap.Logger
}

func defaults() settings {
	return settings{
		confidence: 0.95,
		width:      0.05,
		workers:    runtime.NumCPU(),
		seed:       uint64(time.Now().UnixNano()),
		precision:  5,
		logger:     zap.NewNop(),
	}
}

type Option func(*settings)

// WithRuns fixes the number of runs instead of deriving it from the confidence and width.
func WithRuns(n int) Option {
	return func(s *settings) { s.runs = n }
}

func WithConfidence(confidence, width float64) Option {
	return func(s *settings) { s.confidence, s.width = confidence, width }
}

func WithWorkers(n int) Option {
	return func(s *settings) { s.workers = n }
}

// WithSeed sets the master seed. Run i uses seed+i, so a batch is reproducible whatever the
// number of workers.
func WithSeed(seed uint64) Option {
	return func(s *settings) { s.seed = seed }
}

// WithPrecision sets the number of decimal digits of the clock.
func WithPrecision(digits uint32) Option {
	return func(s *settings) { s.precision = digits }
}

// WithTraces keeps the markings of the first n runs that reach a goal marking: a witness for PF, a
// counterexample for PG.
func WithTraces(n int) Option {
	return func(s *settings) { s.traces = n }
}

// WithKBound abandons runs reaching a marking with more than k tokens. 0 disables the bound.
func WithKBound(k int) Option {
	return func(s *settings) { s.kBound = k }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// RunStats describes a category of runs.
type RunStats struct {
	Count       int
	MeanSteps   float64
	StdDevSteps float64
	MeanDelay   float64
	StdDevDelay float64
	MaxDelay    float64
}

// Summary is the outcome of a batch of runs.
type Summary struct {
	ID    uuid.UUID
	Query string
	// Runs counts the completed runs, Discarded the runs abandoned at the k-bound.
	Runs        int
	Requested   int
	Discarded   int
	Satisfied   int
	Probability float64
	Confidence  float64
	Width       float64
	Valid       RunStats
	Violating   RunStats
	// Cumulative[n] is the fraction of runs that reached a goal marking within n steps.
	Cumulative []float64
	Firings    map[string]int
	MaxTokens  int
	Traces     [][]*tapn.RealMarking
	Duration   time.Duration
}

func (s *Summary) Fields() []zap.Field {
	return []zap.Field{
		zap.Stringer("batch", s.ID),
		zap.String("query", s.Query),
		zap.Int("runs", s.Runs),
		zap.Int("discarded", s.Discarded),
		zap.Int("satisfied", s.Satisfied),
		zap.Float64("probability", s.Probability),
		zap.Float64("width", s.Width),
		zap.Int("maxTokens", s.MaxTokens),
		zap.Duration("duration", s.Duration),
	}
}

func (s *Summary) String() string {
	return fmt.Sprintf("P(%s) in [%.4f, %.4f] with confidence %g (%d runs)",
		s.Query, math.Max(0, s.Probability-s.Width), math.Min(1, s.Probability+s.Width), s.Confidence, s.Runs)
}

// Estimator estimates the probability of a PF or PG query by running independent simulations in
// parallel.
type Estimator struct {
	net     *tapn.Net
	initial *tapn.Marking
	query   *query.Query
	settings
}

func NewEstimator(net *tapn.Net, initial *tapn.Marking, q *query.Query, opts ...Option) (*Estimator, error) {
	if !q.Quantifier.Probabilistic() {
		return nil, fmt.Errorf("%w: %s queries need the discrete engine", ErrUnsupported, q.Quantifier)
	}
	e := &Estimator{net: net, initial: initial, query: q, settings: defaults()}
	for _, opt := range opts {
		opt(&e.settings)
	}
	if e.runs <= 0 && (e.confidence <= 0 || e.confidence >= 1 || e.width <= 0 || e.width >= 1) {
		return nil, fmt.Errorf("confidence and width must be in (0, 1), got %g and %g", e.confidence, e.width)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	return e, nil
}

// Runs is the number of runs Estimate performs.
func (e *Estimator) Runs() int {
	if e.runs > 0 {
		return e.runs
	}
	return ChernoffHoeffding(e.confidence, e.width)
}

// Estimate performs the runs. When ctx ends first, the summary of the completed runs is returned
// with an error wrapping ErrBudgetExhausted.
func (e *Estimator) Estimate(ctx context.Context) (*Summary, error) {
	start := time.Now()
	runs := e.Runs()
	id := uuid.New()
	log := e.logger.With(zap.Stringer("batch", id))
	workers := min(e.workers, runs)
	log.Info("smc batch started", zap.Stringer("query", e.query), zap.Int("runs", runs), zap.Int("workers", workers))

	c := clock.New(e.precision)
	base := NewRunGenerator(e.net, c, e.seed).WithTrace(e.traces > 0)
	base.Prepare(tapn.NewRealMarking(e.net, e.initial, c))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	col := newCollector(e.traces)
	jobs := make(chan int, workers*2)
	gens := make([]*RunGenerator, workers)
	var (
		wg      sync.WaitGroup
		errOnce sync.Once
		runErr  error
	)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		gens[w] = base.Copy(e.seed)
		go func(gen *RunGenerator) {
			defer wg.Done()
			eval := query.NewEvaluator(e.net)
			for {
				select {
				case <-runCtx.Done():
					return
				case i, ok := <-jobs:
					if !ok {
						return
					}
					gen.Reseed(e.seed + uint64(i))
					o, err := execute(gen, eval, e.query, e.kBound)
					if err != nil {
						errOnce.Do(func() {
							runErr = err
							cancel()
						})
						return
					}
					col.add(o)
				}
			}
		}(gens[w])
	}

feed:
	for i := 0; i < runs; i++ {
		select {
		case <-runCtx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	s := col.summary(e.net, gens)
	s.ID = id
	s.Query = e.query.String()
	s.Requested = runs
	s.Confidence = e.confidence
	s.Width = e.width
	s.Duration = time.Since(start)
	if runErr != nil {
		return s, runErr
	}
	if err := ctx.Err(); err != nil {
		log.Warn("smc batch interrupted", zap.Int("completed", s.Runs), zap.Error(err))
		return s, fmt.Errorf("%w: %v", ErrBudgetExhausted, err)
	}
	log.Info("smc batch finished", s.Fields()...)
	return s, nil
}

type outcome struct {
	satisfied bool
	discarded bool
	// goalStep is the number of steps before the goal marking, or -1.
	goalStep  int
	steps     int
	delay     float64
	maxTokens int
	trace     []*tapn.RealMarking
}

// execute performs one run from the prepared marking and checks it against q.
func execute(gen *RunGenerator, eval *query.Evaluator, q *query.Query, kBound int) (outcome, error) {
	gen.Reset()
	o := outcome{goalStep: -1}
	found := false
	for m := gen.Marking(); m != nil; m = gen.Next() {
		if q.Bound.Kind == query.TimeBound && gen.RunDelay() > q.Bound.Time {
			break
		}
		if q.Bound.Kind == query.StepBound && gen.RunSteps() > q.Bound.Steps {
			break
		}
		size := m.Size()
		o.maxTokens = max(o.maxTokens, size)
		if kBound > 0 && size > kBound {
			o.discarded = true
			break
		}
		r := eval.Goal(q, query.Real(m))
		if r.Err != nil {
			return o, fmt.Errorf("evaluate %s: %w", q, r.Err)
		}
		if r.Value {
			found = true
			o.goalStep = gen.RunSteps()
			break
		}
	}
	o.satisfied = found != q.Quantifier.Universal()
	o.steps = gen.RunSteps()
	o.delay = gen.RunDelay()
	if found {
		o.trace = gen.Trace()
	}
	return o, nil
}

// collector merges the outcomes of the workers.
type collector struct {
	mu           sync.Mutex
	maxTraces    int
	traces       [][]*tapn.RealMarking
	validSteps   []float64
	validDelays  []float64
	violSteps    []float64
	violDelays   []float64
	goalsPerStep []float64
	discarded    int
	maxTokens    int
}

func newCollector(maxTraces int) *collector {
	return &collector{maxTraces: maxTraces}
}

func (c *collector) add(o outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxTokens = max(c.maxTokens, o.maxTokens)
	if o.discarded {
		c.discarded++
		return
	}
	if o.satisfied {
		c.validSteps = append(c.validSteps, float64(o.steps))
		c.validDelays = append(c.validDelays, o.delay)
	} else {
		c.violSteps = append(c.violSteps, float64(o.steps))
		c.violDelays = append(c.violDelays, o.delay)
	}
	if o.trace != nil && len(c.traces) < c.maxTraces {
		c.traces = append(c.traces, o.trace)
	}
	if o.goalStep >= 0 {
		for len(c.goalsPerStep) <= o.goalStep {
			c.goalsPerStep = append(c.goalsPerStep, 0)
		}
		c.goalsPerStep[o.goalStep]++
	}
}

func (c *collector) summary(net *tapn.Net, gens []*RunGenerator) *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := &Summary{
		Satisfied: len(c.validSteps),
		Runs:      len(c.validSteps) + len(c.violSteps),
		Discarded: c.discarded,
		Valid:     runStats(c.validSteps, c.validDelays),
		Violating: runStats(c.violSteps, c.violDelays),
		MaxTokens: c.maxTokens,
		Traces:    c.traces,
		Firings:   make(map[string]int, len(net.Transitions)),
	}
	if s.Runs > 0 {
		s.Probability = float64(s.Satisfied) / float64(s.Runs)
		s.Cumulative = make([]float64, len(c.goalsPerStep))
		floats.CumSum(s.Cumulative, c.goalsPerStep)
		floats.Scale(1/float64(s.Runs), s.Cumulative)
	}
	for _, g := range gens {
		for i, n := range g.TransitionStatistics() {
			s.Firings[net.Transitions[i].Name] += n
		}
	}
	return s
}

func runStats(steps, delays []float64) RunStats {
	r := RunStats{Count: len(steps)}
	switch len(steps) {
	case 0:
		return r
	case 1:
		r.MeanSteps, r.MeanDelay, r.MaxDelay = steps[0], delays[0], delays[0]
		return r
	}
	r.MeanSteps, r.StdDevSteps = stat.MeanStdDev(steps, nil)
	r.MeanDelay, r.StdDevDelay = stat.MeanStdDev(delays, nil)
	r.MaxDelay = floats.Max(delays)
	return r
}
