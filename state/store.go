package state

import (
	"sync"
	"time"
)

// Store serializes all state transitions through a single writer path and
// hands out immutable snapshots. Consumers subscribe for change
// notifications instead of sharing the state object.
type Store struct {
	mu    sync.RWMutex
	state State
	now   func() time.Time

	watcherMu   sync.Mutex
	watchers    map[int]chan struct{}
	nextWatcher int
}

// NewStore returns a store over an empty state using the wall clock.
func NewStore() *Store {
	return &Store{
		state:    NewState(),
		now:      time.Now,
		watchers: make(map[int]chan struct{}),
	}
}

// NewStoreWithClock returns a store whose poll stamps come from the given
// clock. Tests inject a fake clock here.
func NewStoreWithClock(now func() time.Time) *Store {
	store := NewStore()
	if now != nil {
		store.now = now
	}
	return store
}

// Dispatch applies one action. Actions that stamp a poll time and carry a
// zero At are stamped with the store clock first.
func (st *Store) Dispatch(action Action) {
	switch a := action.(type) {
	case SetConversations:
		if a.At.IsZero() {
			a.At = st.now()
		}
		action = a
	case SetMessages:
		if a.At.IsZero() {
			a.At = st.now()
		}
		action = a
	}

	st.mu.Lock()
	st.state = Reduce(st.state, action)
	st.mu.Unlock()

	st.notify()
}

// Snapshot returns the current state. The snapshot shares message slices with
// the store; callers must treat it as read-only.
func (st *Store) Snapshot() State {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return clone(st.state)
}

// Subscribe registers a change notification channel and returns it with an
// unsubscribe function. Notifications are coalesced: a slow consumer sees at
// least one signal after any burst of dispatches.
func (st *Store) Subscribe() (<-chan struct{}, func()) {
	st.watcherMu.Lock()
	id := st.nextWatcher
	st.nextWatcher++
	ch := make(chan struct{}, 1)
	st.watchers[id] = ch
	st.watcherMu.Unlock()

	return ch, func() {
		st.watcherMu.Lock()
		delete(st.watchers, id)
		st.watcherMu.Unlock()
	}
}

func (st *Store) notify() {
	st.watcherMu.Lock()
	defer st.watcherMu.Unlock()
	for _, ch := range st.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
