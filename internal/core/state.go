package core

import "sync"

// State holds one value and fans every change out to subscribers.
// Subscribers get the latest value only: a slow reader skips intermediate values.
type State[T any] struct {
	mu     sync.Mutex
	val    T
	subs   map[int]chan T
	nextID int
	closed bool
}

func NewState[T any](initial T) *State[T] {
	return &State[T]{val: initial, subs: make(map[int]chan T)}
}

func (s *State[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.val
}

func (s *State[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.val = v
	s.publishLocked()
}

// Update applies fn to the current value atomically and publishes the result.
func (s *State[T]) Update(fn func(T) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.val = fn(s.val)
	s.publishLocked()
	return s.val
}

// Subscribe returns a channel primed with the current value.
// The returned func unsubscribes and closes the channel.
func (s *State[T]) Subscribe() (<-chan T, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan T, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	ch <- s.val
	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Close ends every subscription. Later Set calls only update the value.
func (s *State[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *State[T]) publishLocked() {
	for _, ch := range s.subs {
		select {
		case ch <- s.val:
			continue
		default:
		}
		// drop the stale value the reader has not taken yet
		select {
		case <-ch:
		default:
		}
		ch <- s.val
	}
}
