// Package interval implements closed real intervals and unions of them, used to compute the delays
// at which a transition may fire in continuous time.
package interval

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Interval is the closed interval [Lower, Upper]. Upper may be +Inf.
type Interval struct {
	Lower, Upper float64
}

// Unbounded is [0, +Inf).
var Unbounded = Interval{Lower: 0, Upper: math.Inf(1)}

func New(lower, upper float64) Interval {
	return Interval{Lower: lower, Upper: upper}
}

func (i Interval) Empty() bool {
	return i.Lower > i.Upper
}

func (i Interval) Contains(x float64) bool {
	return x >= i.Lower && x <= i.Upper
}

// Delta shifts both bounds by x.
func (i Interval) Delta(x float64) Interval {
	return Interval{Lower: i.Lower + x, Upper: i.Upper + x}
}

// Positive clips the interval to [0, +Inf).
func (i Interval) Positive() Interval {
	if i.Lower < 0 {
		i.Lower = 0
	}
	return i
}

func Intersect(a, b Interval) Interval {
	return Interval{Lower: math.Max(a.Lower, b.Lower), Upper: math.Min(a.Upper, b.Upper)}
}

func (i Interval) String() string {
	if math.IsInf(i.Upper, 1) {
		return fmt.Sprintf("[%g,inf)", i.Lower)
	}
	return fmt.Sprintf("[%g,%g]", i.Lower, i.Upper)
}

// Set is a union of intervals, kept sorted and pairwise disjoint. The zero value is empty.
type Set []Interval

// Add returns the union of s and i.
func (s Set) Add(i Interval) Set {
	if i.Empty() {
		return s
	}
	at := sort.Search(len(s), func(k int) bool { return s[k].Upper >= i.Lower })
	end := at
	for end < len(s) && s[end].Lower <= i.Upper {
		i.Lower = math.Min(i.Lower, s[end].Lower)
		i.Upper = math.Max(i.Upper, s[end].Upper)
		end++
	}
	out := make(Set, 0, len(s)-(end-at)+1)
	out = append(out, s[:at]...)
	out = append(out, i)
	return append(out, s[end:]...)
}

// Intersection returns the intervals contained in both sets.
func Intersection(a, b Set) Set {
	var out Set
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if x := Intersect(a[i], b[j]); !x.Empty() {
			out = append(out, x)
		}
		if a[i].Upper < b[j].Upper {
			i++
		} else {
			j++
		}
	}
	return out
}

// DeltaPositive shifts every interval by x and clips the result to [0, +Inf), dropping the
// intervals that fall entirely below 0.
func (s Set) DeltaPositive(x float64) Set {
	out := s[:0]
	for _, i := range s {
		i = i.Delta(x)
		if i.Upper < 0 {
			continue
		}
		out = append(out, i.Positive())
	}
	return out
}

func (s Set) Empty() bool { return len(s) == 0 }

func (s Set) Contains(x float64) bool {
	for _, i := range s {
		if i.Contains(x) {
			return true
		}
	}
	return false
}

func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	return append(Set(nil), s...)
}

func (s Set) String() string {
	parts := make([]string, len(s))
	for k, i := range s {
		parts[k] = i.String()
	}
	return "{" + strings.Join(parts, " ") + "}"
}
