package pwlist

import (
	"errors"

	"github.com/jt05610/tapn"
)

var ErrEmpty = errors.New("waiting list is empty")

// NewDartStore builds the store selected by backend. dir is only used by Badger.
func NewDartStore(backend Backend, strategy Strategy, seed uint64, dir string) (DartStore, error) {
	waiting := NewWaitingList[*Dart](strategy, seed)
	if backend == Badger {
		return OpenBadger(dir, waiting)
	}
	return NewHashStore(waiting), nil
}

// MarkingStore is the passed/waiting list of the plain reachability search. Markings are stored
// cut but not normalized.
type MarkingStore struct {
	waiting    WaitingList[*tapn.Marking]
	passed     map[uint64][]*tapn.Marking
	stored     int
	explored   int
	discovered int
	key        []byte
}

func NewMarkingStore(waiting WaitingList[*tapn.Marking]) *MarkingStore {
	return &MarkingStore{
		waiting: waiting,
		passed:  make(map[uint64][]*tapn.Marking, 1024),
	}
}

// Add stores m and queues it for exploration unless an equal marking was stored before.
func (s *MarkingStore) Add(m *tapn.Marking) bool {
	s.discovered++
	s.key = m.AppendKey(s.key[:0])
	h := fingerprint(s.key)
	for _, o := range s.passed[h] {
		if o.Equal(m) {
			return false
		}
	}
	s.passed[h] = append(s.passed[h], m)
	s.stored++
	s.waiting.Push(m)
	return true
}

func (s *MarkingStore) Next() (*tapn.Marking, bool) {
	m, ok := s.waiting.Pop()
	if ok {
		s.explored++
	}
	return m, ok
}

func (s *MarkingStore) HasWaiting() bool { return s.waiting.Len() > 0 }

func (s *MarkingStore) Size() int { return s.stored }

func (s *MarkingStore) Explored() int { return s.explored }

func (s *MarkingStore) Discovered() int { return s.discovered }
