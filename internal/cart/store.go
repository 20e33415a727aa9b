package cart

import (
	"context"
	"sync"
	"time"
)

// Persister pushes a cart snapshot to durable storage.
type Persister interface {
	Persist(ctx context.Context, c Cart) error
}

type PersisterFunc func(ctx context.Context, c Cart) error

func (f PersisterFunc) Persist(ctx context.Context, c Cart) error {
	return f(ctx, c)
}

// Store owns the current cart snapshot of one user. Dispatch updates the
// snapshot synchronously and schedules an asynchronous persist. A failed
// persist is reported to onError and never rolls the snapshot back.
//
// Persists are coalesced: a burst of dispatches results in at least one
// persist of the latest snapshot, never in an older snapshot overwriting a
// newer one.
type Store struct {
	mu      sync.Mutex
	current Cart

	persister      Persister
	onError        func(error)
	persistTimeout time.Duration

	dirty   chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

type StoreOption func(*Store)

func WithPersistTimeout(d time.Duration) StoreOption {
	return func(s *Store) { s.persistTimeout = d }
}

func WithErrorHandler(fn func(error)) StoreOption {
	return func(s *Store) { s.onError = fn }
}

func NewStore(initial Cart, persister Persister, opts ...StoreOption) *Store {
	s := &Store{
		current:        initial,
		persister:      persister,
		onError:        func(error) {},
		persistTimeout: 10 * time.Second,
		dirty:          make(chan struct{}, 1),
		done:           make(chan struct{}),
		stopped:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.loop()
	return s
}

func (s *Store) Snapshot() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Dispatch reduces action into the current snapshot and returns the new one.
func (s *Store) Dispatch(action Action) (Cart, error) {
	s.mu.Lock()
	cur := s.current
	next, err := Reduce(cur, action)
	if err != nil {
		s.mu.Unlock()
		return cur, err
	}
	s.current = next
	s.mu.Unlock()

	select {
	case s.dirty <- struct{}{}:
	default:
	}
	return next, nil
}

// Close flushes a pending persist and stops the background worker.
func (s *Store) Close() {
	s.once.Do(func() { close(s.done) })
	<-s.stopped
}

func (s *Store) loop() {
	defer close(s.stopped)
	for {
		select {
		case <-s.dirty:
			s.persist()
		case <-s.done:
			select {
			case <-s.dirty:
				s.persist()
			default:
			}
			return
		}
	}
}

func (s *Store) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	if err := s.persister.Persist(ctx, s.Snapshot()); err != nil {
		s.onError(err)
	}
}
