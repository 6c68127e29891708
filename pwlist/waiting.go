// Package pwlist holds the passed/waiting lists of the discrete exploration engines.
package pwlist

import (
	"fmt"
	"sync"

	"golang.org/x/exp/rand"
)

// Strategy selects the order in which waiting states are explored.
type Strategy string

const (
	BFS    Strategy = "bfs"
	DFS    Strategy = "dfs"
	Random Strategy = "random"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case BFS, DFS, Random:
		return Strategy(s), nil
	case "":
		return BFS, nil
	}
	return "", fmt.Errorf("unknown search strategy %q", s)
}

type WaitingList[T any] interface {
	Push(value T)
	Pop() (T, bool)
	Len() int
}

// NewWaitingList returns a list for strategy. The seed is only used by Random.
func NewWaitingList[T any](strategy Strategy, seed uint64) WaitingList[T] {
	switch strategy {
	case DFS:
		return NewStack[T]()
	case Random:
		return NewRandom[T](seed)
	}
	return NewQueue[T]()
}

// Queue is a first-in-first-out list.
type Queue[T any] struct {
	Values []T
	head   int
	mu     sync.Mutex
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{Values: make([]T, 0, 64)}
}

func (q *Queue[T]) Push(value T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Values = append(q.Values, value)
}

func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if q.head == len(q.Values) {
		return zero, false
	}
	v := q.Values[q.head]
	q.Values[q.head] = zero
	q.head++
	// reclaim the consumed prefix once it dominates the buffer
	if q.head > 1024 && q.head*2 > len(q.Values) {
		q.Values = append(q.Values[:0], q.Values[q.head:]...)
		q.head = 0
	}
	return v, true
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.Values) - q.head
}

// Stack is a last-in-first-out list.
type Stack[T any] struct {
	Values []T
	mu     sync.Mutex
}

func NewStack[T any]() *Stack[T] {
	return &Stack[T]{Values: make([]T, 0, 64)}
}

func (s *Stack[T]) Push(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Values = append(s.Values, value)
}

func (s *Stack[T]) Pop() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if len(s.Values) == 0 {
		return zero, false
	}
	v := s.Values[len(s.Values)-1]
	s.Values[len(s.Values)-1] = zero
	s.Values = s.Values[:len(s.Values)-1]
	return v, true
}

func (s *Stack[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Values)
}

// RandomList pops a uniformly chosen element.
type RandomList[T any] struct {
	Values []T
	rng    *rand.Rand
	mu     sync.Mutex
}

func NewRandom[T any](seed uint64) *RandomList[T] {
	return &RandomList[T]{rng: rand.New(rand.NewSource(seed))}
}

func (r *RandomList[T]) Push(value T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Values = append(r.Values, value)
}

func (r *RandomList[T]) Pop() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	n := len(r.Values)
	if n == 0 {
		return zero, false
	}
	i := r.rng.Intn(n)
	v := r.Values[i]
	r.Values[i] = r.Values[n-1]
	r.Values[n-1] = zero
	r.Values = r.Values[:n-1]
	return v, true
}

func (r *RandomList[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Values)
}
