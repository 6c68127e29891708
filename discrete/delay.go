package discrete

import (
	"math"

	"github.com/jt05610/tapn"
	"github.com/jt05610/tapn/interval"
)

func toReal(i int) float64 {
	if i >= tapn.Inf {
		return math.Inf(1)
	}
	return float64(i)
}

func toInt(f float64) int {
	if math.IsInf(f, 1) || f >= tapn.Inf {
		return tapn.Inf
	}
	return int(f)
}

// arcDelays is the set of delays after which weight tokens of the list have ages in
// [first, last]. Tokens are sorted, so it is enough to try consecutive groups.
func arcDelays(first, last, weight int, tokens tapn.TokenList) interval.Set {
	var delays interval.Set
	for i := range tokens {
		j, count := i, tokens[i].Count
		for count < weight && j+1 < len(tokens) {
			j++
			count += tokens[j].Count
		}
		if count < weight {
			break
		}
		lo := max(0, first-tokens[i].Age)
		hi := tapn.Inf
		if last != tapn.Inf {
			hi = last - tokens[j].Age
		}
		if hi >= lo {
			delays = delays.Add(interval.New(toReal(lo), toReal(hi)))
		}
	}
	return delays
}

// CalculateStart returns the smallest and largest delay from m after which t may be enabled, or
// -1, -1 when no delay enables it. Delays between the two are not all guaranteed to enable t.
func CalculateStart(t *tapn.Transition, m *tapn.Marking) (int, int) {
	for _, a := range t.InhibitorArcs() {
		if m.Count(a.Place.Index) >= a.Weight {
			return -1, -1
		}
	}
	window := interval.Set{interval.New(0, toReal(m.AvailableDelay()))}
	for _, a := range t.Preset() {
		window = interval.Intersection(window, arcDelays(a.Interval.First(), a.Interval.Last(), a.Weight, m.TokensIn(a.Place)))
		if window.Empty() {
			return -1, -1
		}
	}
	for _, a := range t.TransportArcs() {
		last := min(a.Interval.Last(), a.Destination.Invariant.Last())
		window = interval.Intersection(window, arcDelays(a.Interval.First(), last, a.Weight, m.TokensIn(a.Source)))
		if window.Empty() {
			return -1, -1
		}
	}
	return toInt(window[0].Lower), toInt(window[len(window)-1].Upper)
}

// CalculateStop is the delay after which every token of m has passed its place's max constant.
// Larger delays give the same cut markings.
func CalculateStop(m *tapn.Marking) int {
	stop := 0
	for _, pt := range m.Places {
		mc := pt.Place.MaxConstant()
		for _, tok := range pt.Tokens {
			if tok.Age <= mc {
				stop = max(stop, mc+1-tok.Age)
			}
		}
	}
	return stop
}
