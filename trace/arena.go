// Package trace stores the steps of explored executions in an arena. Steps refer to their
// predecessor by generation id instead of by pointer, so pruning markings never leaves a
// dangling parent link.
package trace

// ID addresses a step in an Arena.
type ID int32

// None is the parent of a root step.
const None ID = -1

type node[T any] struct {
	parent ID
	step   T
}

type Arena[T any] struct {
	nodes []node[T]
}

func NewArena[T any]() *Arena[T] {
	return &Arena[T]{nodes: make([]node[T], 0, 64)}
}

// Add records a step reached from parent and returns its id.
func (a *Arena[T]) Add(parent ID, step T) ID {
	a.nodes = append(a.nodes, node[T]{parent: parent, step: step})
	return ID(len(a.nodes) - 1)
}

func (a *Arena[T]) Get(id ID) (T, bool) {
	var zero T
	if id < 0 || int(id) >= len(a.nodes) {
		return zero, false
	}
	return a.nodes[id].step, true
}

func (a *Arena[T]) Parent(id ID) ID {
	if id < 0 || int(id) >= len(a.nodes) {
		return None
	}
	return a.nodes[id].parent
}

// Path returns the steps from the root to id, oldest first.
func (a *Arena[T]) Path(id ID) []T {
	var rev []T
	for id != None && int(id) < len(a.nodes) {
		rev = append(rev, a.nodes[id].step)
		id = a.nodes[id].parent
	}
	path := make([]T, len(rev))
	for i := range rev {
		path[i] = rev[len(rev)-1-i]
	}
	return path
}

func (a *Arena[T]) Len() int {
	return len(a.nodes)
}
