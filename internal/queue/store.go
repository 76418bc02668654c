package queue

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const subscriberBuffer = 16

// Store owns the [State] of one player session. All mutation goes through [Store.Dispatch].
type Store struct {
	mu      sync.Mutex
	state   State
	reducer Reducer
	subs    []chan State
	closed  bool

	id     string
	logger *log.Logger
}

type StoreOption func(*Store)

// WithReducer replaces the default reducer, typically to inject a seeded [Rand].
func WithReducer(r Reducer) StoreOption {
	return func(s *Store) { s.reducer = r }
}

func WithLogger(l *log.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a session store starting at initial.
func NewStore(initial State, opts ...StoreOption) *Store {
	s := &Store{state: initial, id: uuid.New().String()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	s.logger = s.logger.With("session", s.id)
	return s
}

// ID is the session identifier used in log lines.
func (s *Store) ID() string {
	return s.id
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies intents in order and notifies subscribers once with the resulting state.
func (s *Store) Dispatch(intents ...Intent) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.state
	}

	for _, in := range intents {
		s.state = s.reducer.Reduce(s.state, in)
		s.logger.Debug("dispatch", "intent", in.Name(), "cursor", s.state.Cursor, "playing", s.state.IsPlaying)
	}

	for _, ch := range s.subs {
		select {
		case ch <- s.state:
		default:
			// Subscriber is behind: drop its oldest state so the latest one is always delivered.
			select {
			case <-ch:
			default:
			}
			ch <- s.state
		}
	}
	return s.state
}

// Subscribe returns a channel receiving the state after every dispatch. Slow receivers miss intermediate
// states but always receive the latest one.
func (s *Store) Subscribe() <-chan State {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch
	}
	s.subs = append(s.subs, ch)
	return ch
}

func (s *Store) Unsubscribe(ch <-chan State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subs {
		if sub == ch {
			close(sub)
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// Close ends the session. Later dispatches are ignored and subscriber channels are closed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}
