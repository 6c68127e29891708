package tapn

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Inf is used as the upper bound of an unbounded interval and as the bound of a place without
// an invariant.
const Inf = math.MaxInt32

// TimeInterval constrains the age of tokens consumed through an arc.
type TimeInterval struct {
	Lower       int
	Upper       int
	LowerStrict bool
	UpperStrict bool
}

// Closed returns the interval [lower, upper].
func Closed(lower, upper int) TimeInterval {
	return TimeInterval{Lower: lower, Upper: upper}
}

// AtLeast returns the interval [lower, inf).
func AtLeast(lower int) TimeInterval {
	return TimeInterval{Lower: lower, Upper: Inf, UpperStrict: true}
}

// Any is the interval [0, inf).
var Any = AtLeast(0)

func (i TimeInterval) Unbounded() bool {
	return i.Upper == Inf
}

// First is the smallest integer age contained in the interval.
func (i TimeInterval) First() int {
	if i.LowerStrict {
		return i.Lower + 1
	}
	return i.Lower
}

// Last is the largest integer age contained in the interval, or Inf.
func (i TimeInterval) Last() int {
	if i.Unbounded() {
		return Inf
	}
	if i.UpperStrict {
		return i.Upper - 1
	}
	return i.Upper
}

func (i TimeInterval) Contains(age int) bool {
	return age >= i.First() && (i.Unbounded() || age <= i.Last())
}

// ContainsReal ignores strictness. Used by the stochastic engine where boundary instants have
// probability zero.
func (i TimeInterval) ContainsReal(age float64) bool {
	if age < float64(i.Lower) {
		return false
	}
	return i.Unbounded() || age <= float64(i.Upper)
}

// Empty reports whether no integer age satisfies the interval.
func (i TimeInterval) Empty() bool {
	return !i.Unbounded() && i.First() > i.Last()
}

func (i TimeInterval) String() string {
	var b strings.Builder
	if i.LowerStrict {
		b.WriteByte('(')
	} else {
		b.WriteByte('[')
	}
	b.WriteString(strconv.Itoa(i.Lower))
	b.WriteByte(',')
	if i.Unbounded() {
		b.WriteString("inf)")
		return b.String()
	}
	b.WriteString(strconv.Itoa(i.Upper))
	if i.UpperStrict {
		b.WriteByte(')')
	} else {
		b.WriteByte(']')
	}
	return b.String()
}

// ParseInterval parses intervals written as "[1,3]", "(0,5]" or "[2,inf)".
func ParseInterval(s string) (TimeInterval, error) {
	s = strings.TrimSpace(s)
	if len(s) < 5 {
		return TimeInterval{}, fmt.Errorf("invalid interval %q", s)
	}
	var iv TimeInterval
	switch s[0] {
	case '[':
	case '(':
		iv.LowerStrict = true
	default:
		return TimeInterval{}, fmt.Errorf("invalid interval %q: expected [ or (", s)
	}
	switch s[len(s)-1] {
	case ']':
	case ')':
		iv.UpperStrict = true
	default:
		return TimeInterval{}, fmt.Errorf("invalid interval %q: expected ] or )", s)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 2 {
		return TimeInterval{}, fmt.Errorf("invalid interval %q", s)
	}
	lower, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || lower < 0 {
		return TimeInterval{}, fmt.Errorf("invalid lower bound in %q", s)
	}
	iv.Lower = lower
	up := strings.TrimSpace(parts[1])
	if up == "inf" || up == "∞" {
		if !iv.UpperStrict {
			return TimeInterval{}, fmt.Errorf("invalid interval %q: infinite bound must be open", s)
		}
		iv.Upper = Inf
		return iv, nil
	}
	upper, err := strconv.Atoi(up)
	if err != nil {
		return TimeInterval{}, fmt.Errorf("invalid upper bound in %q", s)
	}
	iv.Upper = upper
	if upper < lower {
		return TimeInterval{}, fmt.Errorf("invalid interval %q: upper bound below lower bound", s)
	}
	return iv, nil
}

// TimeInvariant bounds the age of every token in a place.
type TimeInvariant struct {
	Bound  int
	Strict bool
}

// NoInvariant does not constrain token ages.
var NoInvariant = TimeInvariant{Bound: Inf, Strict: true}

func (i TimeInvariant) Finite() bool {
	return i.Bound != Inf
}

// Last is the oldest integer age the invariant allows, or Inf.
func (i TimeInvariant) Last() int {
	if !i.Finite() {
		return Inf
	}
	if i.Strict {
		return i.Bound - 1
	}
	return i.Bound
}

func (i TimeInvariant) Allows(age int) bool {
	return !i.Finite() || age <= i.Last()
}

// AllowsReal ignores strictness, like TimeInterval.ContainsReal.
func (i TimeInvariant) AllowsReal(age float64) bool {
	return !i.Finite() || age <= float64(i.Bound)
}

func (i TimeInvariant) String() string {
	if !i.Finite() {
		return "<= inf"
	}
	if i.Strict {
		return "< " + strconv.Itoa(i.Bound)
	}
	return "<= " + strconv.Itoa(i.Bound)
}

// ParseInvariant parses invariants written as "<= 5", "< 3" or "<= inf".
func ParseInvariant(s string) (TimeInvariant, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoInvariant, nil
	}
	var inv TimeInvariant
	switch {
	case strings.HasPrefix(s, "<="):
		s = strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, "<"):
		inv.Strict = true
		s = strings.TrimSpace(s[1:])
	default:
		return TimeInvariant{}, fmt.Errorf("invalid invariant %q", s)
	}
	if s == "inf" || s == "∞" {
		return NoInvariant, nil
	}
	b, err := strconv.Atoi(s)
	if err != nil || b < 0 {
		return TimeInvariant{}, fmt.Errorf("invalid invariant bound %q", s)
	}
	inv.Bound = b
	return inv, nil
}
