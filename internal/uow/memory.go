package uow

import (
	"context"
	"sync"
)

type memoryScopeKey struct{}

type memoryScope struct {
	undo []func()
}

func (s *memoryScope) rollback() {
	for i := len(s.undo) - 1; i >= 0; i-- {
		s.undo[i]()
	}
	s.undo = nil
}

// Memory serializes scopes behind one mutex and rolls back through an undo
// journal that in-memory stores append to with OnRollback.
type Memory struct {
	mu sync.Mutex
}

// NewMemory builds an in-memory unit of work for tests and development.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(memoryScopeKey{}).(*memoryScope); ok {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	scope := &memoryScope{}
	defer func() {
		if r := recover(); r != nil {
			scope.rollback()
			panic(r)
		}
	}()

	if err = fn(context.WithValue(ctx, memoryScopeKey{}, scope)); err != nil {
		scope.rollback()
		return err
	}
	return nil
}

// OnRollback registers fn to run if the memory scope carried by ctx fails.
// Outside a scope it does nothing.
func OnRollback(ctx context.Context, fn func()) {
	if scope, ok := ctx.Value(memoryScopeKey{}).(*memoryScope); ok {
		scope.undo = append(scope.undo, fn)
	}
}
