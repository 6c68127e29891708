// Package clock implements the fixed-point clock values used by the stochastic engine.
//
// A Value counts time in units of 10^-precision. The largest representable value stands for
// an infinite amount of time and absorbs additions and subtractions.
package clock

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// MaxPrecision is the number of decimal digits used when a precision of 0 is requested.
const MaxPrecision = 10

type Value uint64

const Infinity Value = math.MaxUint64

var maxValue = decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(Infinity)), 0)

// Clock converts between clock values and floating point delays.
type Clock struct {
	precision int32
}

func New(precision uint32) Clock {
	if precision == 0 || precision > MaxPrecision {
		precision = MaxPrecision
	}
	return Clock{precision: int32(precision)}
}

func (c Clock) Precision() uint32 {
	if c.precision == 0 {
		return MaxPrecision
	}
	return uint32(c.precision)
}

func (c Clock) shift() int32 {
	return int32(c.Precision())
}

func (c Clock) fromDecimal(d decimal.Decimal) Value {
	d = d.Shift(c.shift()).Round(0)
	if d.Sign() <= 0 {
		return 0
	}
	if d.GreaterThanOrEqual(maxValue) {
		return Infinity
	}
	return Value(d.BigInt().Uint64())
}

// FromFloat rounds f to the clock precision. Negative values clamp to 0.
func (c Clock) FromFloat(f float64) Value {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if math.IsInf(f, 1) {
		return Infinity
	}
	return c.fromDecimal(decimal.NewFromFloat(f))
}

func (c Clock) FromInt(i int64) Value {
	if i <= 0 {
		return 0
	}
	return c.fromDecimal(decimal.NewFromInt(i))
}

func (c Clock) ToFloat(v Value) float64 {
	if v == Infinity {
		return math.Inf(1)
	}
	f, _ := c.decimal(v).Float64()
	return f
}

func (c Clock) decimal(v Value) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(v)), -c.shift())
}

// Round quantizes f to the clock precision.
func (c Clock) Round(f float64) float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return f
	}
	if f < 0 {
		return -c.ToFloat(c.FromFloat(-f))
	}
	return c.ToFloat(c.FromFloat(f))
}

func (c Clock) Format(v Value) string {
	if v == Infinity {
		return "inf"
	}
	return c.decimal(v).String()
}

// Add saturates at Infinity.
func Add(a, b Value) Value {
	if a == Infinity || b == Infinity {
		return Infinity
	}
	s := a + b
	if s < a {
		return Infinity
	}
	return s
}

// Sub floors at 0. Infinity minus any finite value is Infinity.
func Sub(a, b Value) Value {
	if a == Infinity {
		return Infinity
	}
	if b >= a {
		return 0
	}
	return a - b
}

func Min(a, b Value) Value {
	if a < b {
		return a
	}
	return b
}
