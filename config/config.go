// Package config gathers the verification options from the environment.
package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/jt05610/tapn/discrete"
	"github.com/jt05610/tapn/pwlist"
	"github.com/jt05610/tapn/smc"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrInvalid = errors.New("invalid option")

// Options configures both engines and the result sinks.
type Options struct {
	KBound     int
	Precision  uint32
	Runs       int
	Confidence float64
	Width      float64
	Workers    int
	Seed       uint64
	Trace      bool
	MaxTraces  int
	Strategy   pwlist.Strategy
	Store      pwlist.Backend
	StoreDir   string
	TimeDarts  bool
	// Timeout bounds each verification; 0 means none.
	Timeout time.Duration

	AMQPURI      string
	AMQPExchange string
}

func Default() *Options {
	return &Options{
		KBound:     5,
		Precision:  5,
		Confidence: 0.95,
		Width:      0.05,
		Workers:    runtime.NumCPU(),
		Seed:       uint64(time.Now().UnixNano()),
		MaxTraces:  1,
		Strategy:   pwlist.BFS,
		Store:      pwlist.Hash,
		TimeDarts:  true,
	}
}

// Load reads the given .env files, or ./.env when none is given, then the TAPN_* variables.
// A missing default .env file is not an error.
func Load(files ...string) (*Options, error) {
	if err := godotenv.Load(files...); err != nil {
		if len(files) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return nil, pkgerrors.Wrap(err, "load .env")
		}
	}
	o := Default()
	if err := o.fromEnv(); err != nil {
		return nil, err
	}
	return o, nil
}

type lookup struct {
	err error
}

func (l *lookup) intVar(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok && l.err == nil {
		n, err := strconv.Atoi(v)
		if err != nil {
			l.err = pkgerrors.Wrapf(err, "parse %s", key)
			return
		}
		*dst = n
	}
}

func (l *lookup) uintVar(key string, bits int, set func(uint64)) {
	if v, ok := os.LookupEnv(key); ok && l.err == nil {
		n, err := strconv.ParseUint(v, 10, bits)
		if err != nil {
			l.err = pkgerrors.Wrapf(err, "parse %s", key)
			return
		}
		set(n)
	}
}

func (l *lookup) floatVar(key string, dst *float64) {
	if v, ok := os.LookupEnv(key); ok && l.err == nil {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			l.err = pkgerrors.Wrapf(err, "parse %s", key)
			return
		}
		*dst = f
	}
}

func (l *lookup) boolVar(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok && l.err == nil {
		b, err := strconv.ParseBool(v)
		if err != nil {
			l.err = pkgerrors.Wrapf(err, "parse %s", key)
			return
		}
		*dst = b
	}
}

func (l *lookup) durationVar(key string, dst *time.Duration) {
	if v, ok := os.LookupEnv(key); ok && l.err == nil {
		d, err := time.ParseDuration(v)
		if err != nil {
			l.err = pkgerrors.Wrapf(err, "parse %s", key)
			return
		}
		*dst = d
	}
}

func (l *lookup) stringVar(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func (o *Options) fromEnv() error {
	var (
		l                 lookup
		strategy, backend = string(o.Strategy), string(o.Store)
	)
	l.intVar("TAPN_K_BOUND", &o.KBound)
	l.uintVar("TAPN_PRECISION", 32, func(n uint64) { o.Precision = uint32(n) })
	l.intVar("TAPN_RUNS", &o.Runs)
	l.floatVar("TAPN_CONFIDENCE", &o.Confidence)
	l.floatVar("TAPN_WIDTH", &o.Width)
	l.intVar("TAPN_WORKERS", &o.Workers)
	l.uintVar("TAPN_SEED", 64, func(n uint64) { o.Seed = n })
	l.boolVar("TAPN_TRACE", &o.Trace)
	l.intVar("TAPN_MAX_TRACES", &o.MaxTraces)
	l.boolVar("TAPN_TIME_DARTS", &o.TimeDarts)
	l.durationVar("TAPN_TIMEOUT", &o.Timeout)
	l.stringVar("TAPN_STRATEGY", &strategy)
	l.stringVar("TAPN_STORE", &backend)
	l.stringVar("TAPN_STORE_DIR", &o.StoreDir)
	l.stringVar("TAPN_AMQP_URI", &o.AMQPURI)
	l.stringVar("TAPN_AMQP_EXCHANGE", &o.AMQPExchange)
	o.Strategy, o.Store = pwlist.Strategy(strategy), pwlist.Backend(backend)
	return l.err
}

func (o *Options) Validate() error {
	switch {
	case o.KBound < 1:
		return pkgerrors.Wrapf(ErrInvalid, "k-bound must be positive, got %d", o.KBound)
	case o.Precision > 10:
		return pkgerrors.Wrapf(ErrInvalid, "precision must be at most 10 digits, got %d", o.Precision)
	case o.Runs < 0:
		return pkgerrors.Wrapf(ErrInvalid, "runs must not be negative, got %d", o.Runs)
	case o.Confidence <= 0 || o.Confidence >= 1:
		return pkgerrors.Wrapf(ErrInvalid, "confidence must be in (0, 1), got %g", o.Confidence)
	case o.Width <= 0 || o.Width >= 1:
		return pkgerrors.Wrapf(ErrInvalid, "width must be in (0, 1), got %g", o.Width)
	case o.Timeout < 0:
		return pkgerrors.Wrapf(ErrInvalid, "timeout must not be negative, got %s", o.Timeout)
	case o.MaxTraces < 0:
		return pkgerrors.Wrapf(ErrInvalid, "max traces must not be negative, got %d", o.MaxTraces)
	}
	if _, err := pwlist.ParseStrategy(string(o.Strategy)); err != nil {
		return pkgerrors.Wrap(ErrInvalid, err.Error())
	}
	if _, err := pwlist.ParseBackend(string(o.Store)); err != nil {
		return pkgerrors.Wrap(ErrInvalid, err.Error())
	}
	return nil
}

// WithDeadline applies Timeout to ctx.
func (o *Options) WithDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.Timeout)
}

// Discrete is the option list of the discrete engines.
func (o *Options) Discrete(logger *zap.Logger) []discrete.Option {
	return []discrete.Option{
		discrete.WithKBound(o.KBound),
		discrete.WithStrategy(o.Strategy, o.Seed),
		discrete.WithStore(o.Store, o.StoreDir),
		discrete.WithTrace(o.Trace),
		discrete.WithTimeDarts(o.TimeDarts),
		discrete.WithLogger(logger),
	}
}

// SMC is the option list of the estimator. The k-bound only applies there when set explicitly.
func (o *Options) SMC(logger *zap.Logger, kBound int) []smc.Option {
	opts := []smc.Option{
		smc.WithConfidence(o.Confidence, o.Width),
		smc.WithWorkers(o.Workers),
		smc.WithSeed(o.Seed),
		smc.WithPrecision(o.Precision),
		smc.WithKBound(kBound),
		smc.WithLogger(logger),
	}
	if o.Runs > 0 {
		opts = append(opts, smc.WithRuns(o.Runs))
	}
	if o.Trace {
		opts = append(opts, smc.WithTraces(o.MaxTraces))
	}
	return opts
}
