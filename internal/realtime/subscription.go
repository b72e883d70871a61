package realtime

import "sync"

// subscription delivers values to fn on its own goroutine. Only the latest
// undelivered value is kept; a newer offer replaces a pending one.
type subscription[T any] struct {
	fn   func(T)
	slot chan T
	done chan struct{}
	once sync.Once
}

func newSubscription[T any](fn func(T)) *subscription[T] {
	s := &subscription[T]{
		fn:   fn,
		slot: make(chan T, 1),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *subscription[T]) run() {
	for {
		select {
		case <-s.done:
			return
		case v := <-s.slot:
			select {
			case <-s.done:
				return
			default:
			}
			s.fn(v)
		}
	}
}

// offer must not be called concurrently for the same subscription.
func (s *subscription[T]) offer(v T) {
	for {
		select {
		case s.slot <- v:
			return
		default:
		}
		select {
		case <-s.slot:
		default:
		}
	}
}

func (s *subscription[T]) close() {
	s.once.Do(func() { close(s.done) })
}
