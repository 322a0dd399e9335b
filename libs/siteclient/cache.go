package siteclient

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

const flightKey = "load"

// slot holds the last successfully fetched value of one resource. Concurrent
// loads share a single fetch and a failed fetch leaves the slot empty.
// Values are copied with clone on the way in and out, so callers never hold
// memory the slot keeps.
type slot[T any] struct {
	mu     sync.RWMutex
	value  T
	loaded bool
	gen    uint64
	clone  func(T) T

	group singleflight.Group
	subs  subscribers[T]
}

// newSlot builds an empty slot. A nil clone is only valid for value types.
func newSlot[T any](clone func(T) T) *slot[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &slot[T]{
		clone: clone,
		subs:  subscribers[T]{fns: map[uint64]*subscription[T]{}, clone: clone},
	}
}

func (s *slot[T]) cached() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		var zero T
		return zero, false
	}
	return s.clone(s.value), true
}

// get returns the cached value or joins the in-flight fetch. The fetch runs
// detached from ctx so a caller that gives up does not fail the others; it
// only stops waiting.
func (s *slot[T]) get(ctx context.Context, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := s.cached(); ok {
		return v, nil
	}

	ch := s.group.DoChan(flightKey, func() (any, error) {
		if v, ok := s.cached(); ok {
			return v, nil
		}
		s.mu.RLock()
		gen := s.gen
		s.mu.RUnlock()

		v, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		// a reset or set during the fetch makes this result stale
		if s.gen == gen {
			s.value, s.loaded = s.clone(v), true
		}
		s.mu.Unlock()
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		// every waiter gets its own copy of the shared result
		return s.clone(res.Val.(T)), nil
	}
}

func (s *slot[T]) set(v T) {
	v = s.clone(v)
	s.mu.Lock()
	s.value, s.loaded = v, true
	s.gen++
	s.mu.Unlock()
}

func (s *slot[T]) invalidate() {
	s.mu.Lock()
	var zero T
	s.value, s.loaded = zero, false
	s.gen++
	s.mu.Unlock()
	s.group.Forget(flightKey)
}

type subscription[T any] struct {
	mu     sync.Mutex
	fn     func(T)
	active bool
}

type subscribers[T any] struct {
	mu    sync.Mutex
	next  uint64
	fns   map[uint64]*subscription[T]
	clone func(T) T
}

// add registers fn. Once the returned cancel func returns, fn is never
// called again. cancel must not be called from inside fn.
func (s *subscribers[T]) add(fn func(T)) (cancel func()) {
	sub := &subscription[T]{fn: fn, active: true}
	s.mu.Lock()
	id := s.next
	s.next++
	s.fns[id] = sub
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
			sub.mu.Lock()
			sub.active = false
			sub.mu.Unlock()
		})
	}
}

func (s *subscribers[T]) notify(v T) {
	s.mu.Lock()
	subs := make([]*subscription[T], 0, len(s.fns))
	for _, sub := range s.fns {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.mu.Lock()
		if sub.active {
			sub.fn(s.clone(v))
		}
		sub.mu.Unlock()
	}
}

func (s *subscribers[T]) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}
