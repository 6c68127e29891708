// Package sink publishes verification reports.
package sink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jt05610/tapn/discrete"
	"github.com/jt05610/tapn/smc"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Engine string

const (
	Discrete Engine = "discrete"
	SMC      Engine = "smc"
)

// Report is the outcome of one query. Stats is set for discrete verification, Estimate for SMC.
type Report struct {
	ID        uuid.UUID         `json:"id"`
	Net       string            `json:"net"`
	Query     string            `json:"query"`
	Engine    Engine            `json:"engine"`
	Satisfied bool              `json:"satisfied"`
	Complete  bool              `json:"complete"`
	Stats     *discrete.Stats   `json:"stats,omitempty"`
	Estimate  *Estimate         `json:"estimate,omitempty"`
	Firings   map[string]int    `json:"firings,omitempty"`
	Duration  time.Duration     `json:"duration"`
	Labels    map[string]string `json:"labels,omitempty"`
}

type Estimate struct {
	Batch       uuid.UUID `json:"batch"`
	Runs        int       `json:"runs"`
	Discarded   int       `json:"discarded"`
	Probability float64   `json:"probability"`
	Confidence  float64   `json:"confidence"`
	Width       float64   `json:"width"`
	MaxTokens   int       `json:"maxTokens"`
}

func NewReport(net, query string) *Report {
	return &Report{ID: uuid.New(), Net: net, Query: query}
}

func (r *Report) WithResult(res *discrete.Result, d time.Duration) *Report {
	r.Engine = Discrete
	r.Satisfied = res.Satisfied
	r.Complete = res.Complete
	stats := res.Stats
	r.Stats = &stats
	r.Duration = d
	return r
}

// WithSummary records an estimate. The query counts as satisfied when the probability is above
// one half.
func (r *Report) WithSummary(s *smc.Summary) *Report {
	r.Engine = SMC
	r.Satisfied = s.Probability > 0.5
	r.Complete = s.Runs+s.Discarded == s.Requested
	r.Estimate = &Estimate{
		Batch:       s.ID,
		Runs:        s.Runs,
		Discarded:   s.Discarded,
		Probability: s.Probability,
		Confidence:  s.Confidence,
		Width:       s.Width,
		MaxTokens:   s.MaxTokens,
	}
	r.Firings = s.Firings
	r.Duration = s.Duration
	return r
}

func (r *Report) Fields() []zap.Field {
	fields := []zap.Field{
		zap.Stringer("report", r.ID),
		zap.String("net", r.Net),
		zap.String("query", r.Query),
		zap.String("engine", string(r.Engine)),
		zap.Bool("satisfied", r.Satisfied),
		zap.Bool("complete", r.Complete),
		zap.Duration("duration", r.Duration),
	}
	if r.Stats != nil {
		fields = append(fields, r.Stats.Fields()...)
	}
	if r.Estimate != nil {
		fields = append(fields,
			zap.Int("runs", r.Estimate.Runs),
			zap.Float64("probability", r.Estimate.Probability),
			zap.Float64("width", r.Estimate.Width),
		)
	}
	return fields
}

type Sink interface {
	Publish(ctx context.Context, r *Report) error
	Close() error
}

// Logger writes reports to a zap logger.
type Logger struct {
	*zap.Logger
}

func (l Logger) Publish(_ context.Context, r *Report) error {
	l.Info("verification finished", r.Fields()...)
	return nil
}

func (l Logger) Close() error {
	_ = l.Sync()
	return nil
}

// Publisher is implemented by *amqp.Channel.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQP publishes reports as JSON to an exchange, routed by "report.<engine>".
type AMQP struct {
	ch       Publisher
	exchange string
	logger   *zap.Logger
}

func NewAMQP(ch Publisher, exchange string, logger *zap.Logger) *AMQP {
	return &AMQP{ch: ch, exchange: exchange, logger: logger}
}

// Dial opens a channel on uri and declares a topic exchange.
func Dial(uri, exchange string, logger *zap.Logger) (*AMQP, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, errors.Wrap(err, "dial amqp")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "declare exchange %s", exchange)
	}
	return NewAMQP(&channel{Channel: ch, conn: conn}, exchange, logger), nil
}

type channel struct {
	*amqp.Channel
	conn *amqp.Connection
}

func (c *channel) Close() error {
	if err := c.Channel.Close(); err != nil {
		return err
	}
	return c.conn.Close()
}

func (a *AMQP) Publish(ctx context.Context, r *Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encode report")
	}
	key := "report." + string(r.Engine)
	err = a.ch.PublishWithContext(ctx, a.exchange, key, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: r.ID.String(),
		Timestamp:     time.Now(),
		Body:          body,
	})
	if err != nil {
		a.logger.Error("publish report", zap.Stringer("report", r.ID), zap.Error(err))
		return errors.Wrapf(err, "publish to %s", a.exchange)
	}
	return nil
}

func (a *AMQP) Close() error {
	return a.ch.Close()
}

// Multi publishes to every sink and returns the first error.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, r *Report) error {
	var first error
	for _, s := range m {
		if err := s.Publish(ctx, r); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
