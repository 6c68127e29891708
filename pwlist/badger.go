package pwlist

import (
	"encoding/binary"

	"github.com/dgraph-io/badger/v2"
	"github.com/jt05610/tapn"
	"github.com/jt05610/tapn/trace"
	"github.com/pkg/errors"
)

var dartPrefix = []byte("dart/")

type record struct {
	id      uint64
	waiting int
	passed  int
	trace   trace.ID
}

func (r record) encode() []byte {
	buf := make([]byte, 0, 4*binary.MaxVarintLen64)
	buf = binary.AppendUvarint(buf, r.id)
	buf = binary.AppendVarint(buf, int64(r.waiting))
	buf = binary.AppendVarint(buf, int64(r.passed))
	return binary.AppendVarint(buf, int64(r.trace))
}

func decodeRecord(buf []byte) (record, error) {
	var r record
	var fields [3]int64
	id, n := binary.Uvarint(buf)
	if n <= 0 {
		return r, errors.New("corrupt dart record")
	}
	r.id = id
	buf = buf[n:]
	for i := range fields {
		v, n := binary.Varint(buf)
		if n <= 0 {
			return r, errors.New("corrupt dart record")
		}
		fields[i] = v
		buf = buf[n:]
	}
	r.waiting, r.passed, r.trace = int(fields[0]), int(fields[1]), trace.ID(fields[2])
	return r, nil
}

// BadgerStore keeps the passed list in a badger database. Only waiting darts stay in memory.
type BadgerStore struct {
	db         *badger.DB
	waiting    WaitingList[*Dart]
	live       map[uint64]*Dart
	stored     int
	discovered int
}

// OpenBadger opens a store in dir, or in memory when dir is empty.
func OpenBadger(dir string, waiting WaitingList[*Dart]) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger store")
	}
	return &BadgerStore{
		db:      db,
		waiting: waiting,
		live:    make(map[uint64]*Dart),
	}, nil
}

func dartKey(m *tapn.Marking) []byte {
	return m.AppendKey(append([]byte(nil), dartPrefix...))
}

func readRecord(item *badger.Item) (record, error) {
	var rec record
	err := item.Value(func(val []byte) error {
		var err error
		rec, err = decodeRecord(val)
		return err
	})
	return rec, err
}

func (d *Dart) record() record {
	return record{id: d.ID, waiting: d.Waiting, passed: d.Passed, trace: d.Trace}
}

func (s *BadgerStore) Add(base *tapn.Marking, youngest int, step trace.ID) (*Dart, bool, error) {
	s.discovered++
	key := dartKey(base)
	var (
		dart    *Dart
		added   bool
		created bool
		push    bool
	)
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			dart = &Dart{
				ID:      uint64(s.stored),
				Base:    base,
				Waiting: youngest,
				Passed:  tapn.Inf,
				Trace:   step,
			}
			added, created, push = true, true, true
			return txn.Set(key, dart.record().encode())
		}
		if err != nil {
			return err
		}
		rec, err := readRecord(item)
		if err != nil {
			return err
		}
		live, isLive := s.live[rec.id]
		if isLive {
			dart = live
		} else {
			dart = &Dart{ID: rec.id, Base: base, Waiting: rec.waiting, Passed: rec.passed, Trace: rec.trace}
		}
		waiting, changed, requeue := widen(dart.Waiting, dart.Passed, youngest)
		if !changed {
			return nil
		}
		dart.Waiting, dart.Trace = waiting, step
		added = true
		push = requeue && !isLive
		return txn.Set(key, dart.record().encode())
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "add dart")
	}
	if created {
		s.stored++
	}
	if push {
		s.live[dart.ID] = dart
		s.waiting.Push(dart)
	}
	return dart, added, nil
}

func (s *BadgerStore) Next() (*Dart, Window, error) {
	d, ok := s.waiting.Pop()
	if !ok {
		return nil, Window{}, ErrEmpty
	}
	w := Window{Waiting: d.Waiting, Passed: d.Passed}
	d.Passed = d.Waiting
	delete(s.live, d.ID)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(dartKey(d.Base), d.record().encode())
	})
	if err != nil {
		return nil, Window{}, errors.Wrap(err, "mark dart passed")
	}
	return d, w, nil
}

func (s *BadgerStore) HasWaiting() bool { return s.waiting.Len() > 0 }

func (s *BadgerStore) Size() int { return s.stored }

func (s *BadgerStore) Discovered() int { return s.discovered }

func (s *BadgerStore) Close() error {
	return errors.Wrap(s.db.Close(), "close badger store")
}
