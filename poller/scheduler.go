// Package poller drives the two fixed-interval refresh loops: one for the
// conversation list, one for the active conversation's message history.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"khabarchat/service"
	"khabarchat/state"
)

const (
	// DefaultConversationInterval is the conversation list refresh period.
	DefaultConversationInterval = 30 * time.Second
	// DefaultMessageInterval is the active-conversation refresh period.
	DefaultMessageInterval = 5 * time.Second
)

// Fetcher is the service surface the scheduler polls through.
// *service.Service satisfies it.
type Fetcher interface {
	GetConversations(ctx context.Context, sortKey string) service.ConversationsResult
	GetMessages(ctx context.Context, counterpartID int64) service.MessagesResult
}

// Config tunes a Scheduler. Zero-value fields fall back to defaults.
type Config struct {
	ConversationInterval time.Duration
	MessageInterval      time.Duration
	SortKey              string

	// now is test-injectable.
	now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.ConversationInterval <= 0 {
		c.ConversationInterval = DefaultConversationInterval
	}
	if c.MessageInterval <= 0 {
		c.MessageInterval = DefaultMessageInterval
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

type refreshRequest struct {
	ctx  context.Context
	done chan struct{}
}

// Scheduler owns the two polling loops. Each tick is gated by the store's
// last successful poll stamp, so a manual refresh that landed between ticks
// suppresses the next timer-driven fetch. A failed fetch records the error in
// the store and the loop simply tries again on its next tick.
type Scheduler struct {
	cfg    Config
	svc    Fetcher
	store  *state.Store
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once

	refreshConversations chan refreshRequest
	refreshMessages      chan refreshRequest
}

// NewScheduler creates a stopped scheduler over a service and store.
func NewScheduler(svc Fetcher, store *state.Store, cfg Config) *Scheduler {
	return &Scheduler{
		cfg:                  cfg.withDefaults(),
		svc:                  svc,
		store:                store,
		refreshConversations: make(chan refreshRequest),
		refreshMessages:      make(chan refreshRequest),
	}
}

// Start launches both polling loops.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.ctx, s.cancel = context.WithCancel(context.Background())
		s.wg.Add(2)
		go s.conversationLoop()
		go s.messageLoop()
	})
}

// Stop tears both loops down. In-flight fetches are not cancelled; a late
// response still lands in the store, where nothing renders it.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
	})
}

// RefreshConversations forces an immediate conversation list fetch,
// bypassing the poll gate. The next timer tick is gated against the stamp
// this refresh leaves behind.
func (s *Scheduler) RefreshConversations(ctx context.Context) error {
	return s.requestRefresh(ctx, s.refreshConversations)
}

// RefreshMessages forces an immediate fetch for the active conversation.
// A no-op when no conversation is active.
func (s *Scheduler) RefreshMessages(ctx context.Context) error {
	return s.requestRefresh(ctx, s.refreshMessages)
}

func (s *Scheduler) requestRefresh(ctx context.Context, requests chan refreshRequest) error {
	if s.ctx == nil {
		return errors.New("scheduler is not started")
	}

	req := refreshRequest{ctx: ctx, done: make(chan struct{})}

	select {
	case requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return errors.New("scheduler is stopped")
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return errors.New("scheduler is stopped")
	}
}

func (s *Scheduler) conversationLoop() {
	defer s.wg.Done()

	// Prime the list immediately; the store starts with a zero poll stamp so
	// the gate lets this through.
	s.pollConversations(s.ctx, false)

	ticker := time.NewTicker(s.cfg.ConversationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.pollConversations(s.ctx, false)
		case req := <-s.refreshConversations:
			s.pollConversations(req.ctx, true)
			close(req.done)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) messageLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.MessageInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.pollActiveMessages(s.ctx, false)
		case req := <-s.refreshMessages:
			s.pollActiveMessages(req.ctx, true)
			close(req.done)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) pollConversations(ctx context.Context, force bool) {
	snapshot := s.store.Snapshot()
	if !force && s.cfg.now().Sub(snapshot.LastPoll.Conversations) < s.cfg.ConversationInterval {
		return
	}

	s.store.Dispatch(state.SetConversationsLoading{Loading: true})

	result := s.svc.GetConversations(ctx, s.cfg.SortKey)
	if !result.Success {
		s.store.Dispatch(state.SetError{Err: result.Error})
		s.store.Dispatch(state.SetConversationsLoading{Loading: false})
		return
	}

	s.store.Dispatch(state.SetConversations{Conversations: result.Conversations, At: s.cfg.now()})
}

func (s *Scheduler) pollActiveMessages(ctx context.Context, force bool) {
	snapshot := s.store.Snapshot()
	if snapshot.Active == nil {
		// The timer keeps ticking harmlessly until a conversation is opened.
		return
	}
	counterpartID := snapshot.Active.UserID

	if !force && s.cfg.now().Sub(snapshot.LastPoll.Messages[counterpartID]) < s.cfg.MessageInterval {
		return
	}

	s.store.Dispatch(state.SetMessagesLoading{CounterpartID: counterpartID, Loading: true})

	result := s.svc.GetMessages(ctx, counterpartID)
	if !result.Success {
		s.store.Dispatch(state.SetError{Err: result.Error})
		s.store.Dispatch(state.SetMessagesLoading{CounterpartID: counterpartID, Loading: false})
		return
	}

	s.store.Dispatch(state.SetMessages{CounterpartID: counterpartID, Messages: result.Messages, At: s.cfg.now()})
}
