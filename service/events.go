package service

import (
	"sync"

	"khabarchat/models"
)

// NewMessageFunc observes a message pushed from a live transport.
type NewMessageFunc func(message models.Message)

// StatusUpdateFunc observes a message status change pushed from a live
// transport.
type StatusUpdateFunc func(messageID int64, status string)

// registry holds callbacks for push-delivered events. No push transport is
// wired in this repo, so nothing emits through it; the subscribe/unsubscribe
// contract exists so one can be added without changing consumers. Polling
// results must keep flowing through the fetch path, never through here, or a
// message would be delivered twice.
type registry struct {
	mu            sync.Mutex
	nextID        int
	newMessage    map[int]NewMessageFunc
	statusUpdates map[int]StatusUpdateFunc
}

func newRegistry() *registry {
	return &registry{
		newMessage:    make(map[int]NewMessageFunc),
		statusUpdates: make(map[int]StatusUpdateFunc),
	}
}

// OnNewMessage registers a callback for push-delivered messages and returns
// its unregister function.
func (s *Service) OnNewMessage(fn NewMessageFunc) func() {
	r := s.registry
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.newMessage[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.newMessage, id)
		r.mu.Unlock()
	}
}

// OnMessageStatusUpdate registers a callback for push-delivered status
// changes and returns its unregister function.
func (s *Service) OnMessageStatusUpdate(fn StatusUpdateFunc) func() {
	r := s.registry
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.statusUpdates[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.statusUpdates, id)
		r.mu.Unlock()
	}
}

func (r *registry) emitNewMessage(message models.Message) {
	r.mu.Lock()
	callbacks := make([]NewMessageFunc, 0, len(r.newMessage))
	for _, fn := range r.newMessage {
		callbacks = append(callbacks, fn)
	}
	r.mu.Unlock()

	for _, fn := range callbacks {
		fn(message)
	}
}

func (r *registry) emitStatusUpdate(messageID int64, status string) {
	r.mu.Lock()
	callbacks := make([]StatusUpdateFunc, 0, len(r.statusUpdates))
	for _, fn := range r.statusUpdates {
		callbacks = append(callbacks, fn)
	}
	r.mu.Unlock()

	for _, fn := range callbacks {
		fn(messageID, status)
	}
}
