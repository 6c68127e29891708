package pwlist

import (
	"fmt"

	"github.com/cespare/xxhash"
	"github.com/jt05610/tapn"
	"github.com/jt05610/tapn/trace"
)

// Dart is a time dart: a base marking together with the delays [Waiting, Passed) whose successors
// still have to be explored. Delays from Passed on are already explored.
type Dart struct {
	ID      uint64
	Base    *tapn.Marking
	Waiting int
	Passed  int
	Trace   trace.ID
}

// Window is the part of a dart handed out for exploration.
type Window struct {
	Waiting int
	Passed  int
}

// DartStore is the passed/waiting list of the time-dart search.
type DartStore interface {
	// Add records that base is reachable after a delay of youngest from its canonical form. It
	// reports whether this widened the known window.
	Add(base *tapn.Marking, youngest int, step trace.ID) (*Dart, bool, error)
	// Next pops a waiting dart and marks its window as passed.
	Next() (*Dart, Window, error)
	HasWaiting() bool
	Size() int
	Discovered() int
	Close() error
}

// Backend selects a DartStore implementation.
type Backend string

const (
	Hash   Backend = "hash"
	Badger Backend = "badger"
)

func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case Hash, Badger:
		return Backend(s), nil
	case "":
		return Hash, nil
	}
	return "", fmt.Errorf("unknown store backend %q", s)
}

// widen applies the rediscovery rule to a dart window. It returns whether the window changed and
// whether the dart has to be queued again.
func widen(waiting, passed, youngest int) (newWaiting int, changed, requeue bool) {
	if youngest >= waiting {
		return waiting, false, false
	}
	requeue = waiting >= passed && youngest < passed
	return youngest, true, requeue
}

func fingerprint(key []byte) uint64 {
	return xxhash.Sum64(key)
}

// HashStore keeps darts in memory, bucketed by the fingerprint of their base marking.
type HashStore struct {
	waiting    WaitingList[*Dart]
	darts      map[uint64][]*Dart
	stored     int
	discovered int
	key        []byte
}

func NewHashStore(waiting WaitingList[*Dart]) *HashStore {
	return &HashStore{
		waiting: waiting,
		darts:   make(map[uint64][]*Dart, 1024),
	}
}

func (s *HashStore) Add(base *tapn.Marking, youngest int, step trace.ID) (*Dart, bool, error) {
	s.discovered++
	s.key = base.AppendKey(s.key[:0])
	h := fingerprint(s.key)
	for _, d := range s.darts[h] {
		if !d.Base.Equal(base) {
			continue
		}
		waiting, changed, requeue := widen(d.Waiting, d.Passed, youngest)
		if !changed {
			return d, false, nil
		}
		d.Waiting = waiting
		d.Trace = step
		if requeue {
			s.waiting.Push(d)
		}
		return d, true, nil
	}
	d := &Dart{
		ID:      uint64(s.stored),
		Base:    base,
		Waiting: youngest,
		Passed:  tapn.Inf,
		Trace:   step,
	}
	s.darts[h] = append(s.darts[h], d)
	s.stored++
	s.waiting.Push(d)
	return d, true, nil
}

func (s *HashStore) Next() (*Dart, Window, error) {
	d, ok := s.waiting.Pop()
	if !ok {
		return nil, Window{}, ErrEmpty
	}
	w := Window{Waiting: d.Waiting, Passed: d.Passed}
	d.Passed = d.Waiting
	return d, w, nil
}

func (s *HashStore) HasWaiting() bool { return s.waiting.Len() > 0 }

func (s *HashStore) Size() int { return s.stored }

func (s *HashStore) Discovered() int { return s.discovered }

func (s *HashStore) Close() error { return nil }
