// Package distribution provides the firing-time distributions of stochastic transitions.
// Every sample is a non-negative delay.
package distribution

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

type Distribution interface {
	Sample(rng *rand.Rand) float64
	String() string
}

var (
	ErrUnknown   = errors.New("unknown distribution")
	ErrParameter = errors.New("invalid distribution parameter")
)

// Default is used for transitions without an explicit distribution.
func Default() Distribution {
	return Uniform{Min: 0, Max: 1}
}

type Constant struct {
	Value float64
}

func (d Constant) Sample(_ *rand.Rand) float64 { return d.Value }

func (d Constant) String() string { return fmt.Sprintf("constant(%g)", d.Value) }

type Uniform struct {
	Min, Max float64
}

func (d Uniform) Sample(rng *rand.Rand) float64 {
	if d.Min == d.Max {
		return d.Min
	}
	return distuv.Uniform{Min: d.Min, Max: d.Max, Src: rng}.Rand()
}

func (d Uniform) String() string { return fmt.Sprintf("uniform(%g, %g)", d.Min, d.Max) }

type Exponential struct {
	Rate float64
}

func (d Exponential) Sample(rng *rand.Rand) float64 {
	return distuv.Exponential{Rate: d.Rate, Src: rng}.Rand()
}

func (d Exponential) String() string { return fmt.Sprintf("exponential(%g)", d.Rate) }

// Normal is truncated at 0.
type Normal struct {
	Mean, StdDev float64
}

func (d Normal) Sample(rng *rand.Rand) float64 {
	return math.Max(0, distuv.Normal{Mu: d.Mean, Sigma: d.StdDev, Src: rng}.Rand())
}

func (d Normal) String() string { return fmt.Sprintf("normal(%g, %g)", d.Mean, d.StdDev) }

type Gamma struct {
	Shape, Scale float64
}

func (d Gamma) Sample(rng *rand.Rand) float64 {
	return distuv.Gamma{Alpha: d.Shape, Beta: 1 / d.Scale, Src: rng}.Rand()
}

func (d Gamma) String() string { return fmt.Sprintf("gamma(%g, %g)", d.Shape, d.Scale) }

// Erlang is a gamma distribution with an integral shape.
type Erlang struct {
	Shape int
	Scale float64
}

func (d Erlang) Sample(rng *rand.Rand) float64 {
	return Gamma{Shape: float64(d.Shape), Scale: d.Scale}.Sample(rng)
}

func (d Erlang) String() string { return fmt.Sprintf("erlang(%d, %g)", d.Shape, d.Scale) }

type Triangular struct {
	Min, Mode, Max float64
}

func (d Triangular) Sample(rng *rand.Rand) float64 {
	if d.Min == d.Max {
		return d.Min
	}
	return distuv.NewTriangle(d.Min, d.Max, d.Mode, rng).Rand()
}

func (d Triangular) String() string {
	return fmt.Sprintf("triangular(%g, %g, %g)", d.Min, d.Mode, d.Max)
}

type LogNormal struct {
	Mu, Sigma float64
}

func (d LogNormal) Sample(rng *rand.Rand) float64 {
	return distuv.LogNormal{Mu: d.Mu, Sigma: d.Sigma, Src: rng}.Rand()
}

func (d LogNormal) String() string { return fmt.Sprintf("lognormal(%g, %g)", d.Mu, d.Sigma) }

// Spec is the serialized form of a distribution.
type Spec struct {
	Type   string  `yaml:"type" json:"type"`
	Value  float64 `yaml:"value,omitempty" json:"value,omitempty"`
	Min    float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max    float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Mode   float64 `yaml:"mode,omitempty" json:"mode,omitempty"`
	Rate   float64 `yaml:"rate,omitempty" json:"rate,omitempty"`
	Mean   float64 `yaml:"mean,omitempty" json:"mean,omitempty"`
	StdDev float64 `yaml:"stddev,omitempty" json:"stddev,omitempty"`
	Shape  float64 `yaml:"shape,omitempty" json:"shape,omitempty"`
	Scale  float64 `yaml:"scale,omitempty" json:"scale,omitempty"`
	Mu     float64 `yaml:"mu,omitempty" json:"mu,omitempty"`
	Sigma  float64 `yaml:"sigma,omitempty" json:"sigma,omitempty"`
}

func invalid(kind, msg string) error {
	return fmt.Errorf("%w: %s %s", ErrParameter, kind, msg)
}

// Build validates the spec and returns the distribution it describes.
func (s Spec) Build() (Distribution, error) {
	kind := strings.ToLower(strings.TrimSpace(s.Type))
	switch kind {
	case "", "default":
		return Default(), nil
	case "constant", "dirac":
		if s.Value < 0 {
			return nil, invalid(kind, "value must be non-negative")
		}
		return Constant{Value: s.Value}, nil
	case "uniform":
		if s.Min < 0 || s.Max < s.Min {
			return nil, invalid(kind, "requires 0 <= min <= max")
		}
		return Uniform{Min: s.Min, Max: s.Max}, nil
	case "exponential":
		if s.Rate <= 0 {
			return nil, invalid(kind, "rate must be positive")
		}
		return Exponential{Rate: s.Rate}, nil
	case "normal", "gaussian":
		if s.StdDev <= 0 {
			return nil, invalid(kind, "stddev must be positive")
		}
		return Normal{Mean: s.Mean, StdDev: s.StdDev}, nil
	case "gamma":
		if s.Shape <= 0 || s.Scale <= 0 {
			return nil, invalid(kind, "shape and scale must be positive")
		}
		return Gamma{Shape: s.Shape, Scale: s.Scale}, nil
	case "erlang":
		if s.Shape < 1 || s.Shape != math.Trunc(s.Shape) || s.Scale <= 0 {
			return nil, invalid(kind, "shape must be a positive integer and scale positive")
		}
		return Erlang{Shape: int(s.Shape), Scale: s.Scale}, nil
	case "triangular":
		if s.Min < 0 || s.Mode < s.Min || s.Max < s.Mode {
			return nil, invalid(kind, "requires 0 <= min <= mode <= max")
		}
		return Triangular{Min: s.Min, Mode: s.Mode, Max: s.Max}, nil
	case "lognormal":
		if s.Sigma <= 0 {
			return nil, invalid(kind, "sigma must be positive")
		}
		return LogNormal{Mu: s.Mu, Sigma: s.Sigma}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknown, s.Type)
}

// SpecOf is the inverse of Spec.Build for the distributions of this package. Other
// implementations give the default spec.
func SpecOf(d Distribution) Spec {
	switch d := d.(type) {
	case Constant:
		return Spec{Type: "constant", Value: d.Value}
	case Uniform:
		return Spec{Type: "uniform", Min: d.Min, Max: d.Max}
	case Exponential:
		return Spec{Type: "exponential", Rate: d.Rate}
	case Normal:
		return Spec{Type: "normal", Mean: d.Mean, StdDev: d.StdDev}
	case Gamma:
		return Spec{Type: "gamma", Shape: d.Shape, Scale: d.Scale}
	case Erlang:
		return Spec{Type: "erlang", Shape: float64(d.Shape), Scale: d.Scale}
	case Triangular:
		return Spec{Type: "triangular", Min: d.Min, Mode: d.Mode, Max: d.Max}
	case LogNormal:
		return Spec{Type: "lognormal", Mu: d.Mu, Sigma: d.Sigma}
	}
	return Spec{Type: "default"}
}

var params = map[string][]func(*Spec) *float64{
	"constant":    {func(s *Spec) *float64 { return &s.Value }},
	"dirac":       {func(s *Spec) *float64 { return &s.Value }},
	"uniform":     {func(s *Spec) *float64 { return &s.Min }, func(s *Spec) *float64 { return &s.Max }},
	"exponential": {func(s *Spec) *float64 { return &s.Rate }},
	"normal":      {func(s *Spec) *float64 { return &s.Mean }, func(s *Spec) *float64 { return &s.StdDev }},
	"gaussian":    {func(s *Spec) *float64 { return &s.Mean }, func(s *Spec) *float64 { return &s.StdDev }},
	"gamma":       {func(s *Spec) *float64 { return &s.Shape }, func(s *Spec) *float64 { return &s.Scale }},
	"erlang":      {func(s *Spec) *float64 { return &s.Shape }, func(s *Spec) *float64 { return &s.Scale }},
	"triangular": {
		func(s *Spec) *float64 { return &s.Min },
		func(s *Spec) *float64 { return &s.Mode },
		func(s *Spec) *float64 { return &s.Max },
	},
	"lognormal": {func(s *Spec) *float64 { return &s.Mu }, func(s *Spec) *float64 { return &s.Sigma }},
}

// Parse reads the form printed by String, e.g. "uniform(1, 3)".
func Parse(src string) (Distribution, error) {
	src = strings.TrimSpace(src)
	open := strings.IndexByte(src, '(')
	if open < 0 || !strings.HasSuffix(src, ")") {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, src)
	}
	kind := strings.ToLower(strings.TrimSpace(src[:open]))
	fields, ok := params[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, kind)
	}
	args := strings.Split(src[open+1:len(src)-1], ",")
	if len(args) != len(fields) {
		return nil, invalid(kind, fmt.Sprintf("takes %d parameters, got %d", len(fields), len(args)))
	}
	spec := Spec{Type: kind}
	for i, arg := range args {
		f, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
		if err != nil {
			return nil, invalid(kind, fmt.Sprintf("parameter %q is not a number", arg))
		}
		*fields[i](&spec) = f
	}
	return spec.Build()
}
