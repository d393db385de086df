package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"khabarchat/models"
	"khabarchat/service"
	"khabarchat/state"
)

type fakeFetcher struct {
	conversationCalls atomic.Int32
	messageCalls      atomic.Int32
	conversations     []models.Conversation
	messages          []models.Message
	failWith          string
}

func (f *fakeFetcher) GetConversations(ctx context.Context, sortKey string) service.ConversationsResult {
	f.conversationCalls.Add(1)
	if f.failWith != "" {
		return service.ConversationsResult{Result: service.Result{Error: f.failWith}}
	}
	return service.ConversationsResult{
		Result:        service.Result{Success: true},
		Conversations: f.conversations,
		Count:         len(f.conversations),
	}
}

func (f *fakeFetcher) GetMessages(ctx context.Context, counterpartID int64) service.MessagesResult {
	f.messageCalls.Add(1)
	if f.failWith != "" {
		return service.MessagesResult{Result: service.Result{Error: f.failWith}}
	}
	return service.MessagesResult{
		Result:   service.Result{Success: true},
		Messages: f.messages,
		Count:    len(f.messages),
	}
}

func waitForCondition(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before timeout %s", timeout)
}

func TestPollGateSuppressesFetchWithinInterval(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{}
	store := state.NewStore()
	scheduler := NewScheduler(fetcher, store, Config{
		ConversationInterval: 30 * time.Second,
		now:                  func() time.Time { return now },
	})

	// A fetch completed 10s ago; a tick arriving now must not refetch.
	store.Dispatch(state.SetConversations{At: now.Add(-10 * time.Second)})

	scheduler.pollConversations(context.Background(), false)

	if got := fetcher.conversationCalls.Load(); got != 0 {
		t.Fatalf("expected gated tick to issue no fetch, got %d calls", got)
	}

	// Once the interval has elapsed the same tick path fetches.
	now = now.Add(30 * time.Second)
	scheduler.pollConversations(context.Background(), false)

	if got := fetcher.conversationCalls.Load(); got != 1 {
		t.Fatalf("expected exactly one fetch after interval elapsed, got %d", got)
	}
}

func TestMessageLoopNoFetchWithoutActiveConversation(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := state.NewStore()
	scheduler := NewScheduler(fetcher, store, Config{})

	scheduler.pollActiveMessages(context.Background(), false)

	if got := fetcher.messageCalls.Load(); got != 0 {
		t.Fatalf("expected no fetch without an active conversation, got %d", got)
	}
}

func TestMessageLoopGatesPerCounterpart(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{messages: []models.Message{{ID: 1}}}
	store := state.NewStore()
	scheduler := NewScheduler(fetcher, store, Config{
		MessageInterval: 5 * time.Second,
		now:             func() time.Time { return now },
	})

	store.Dispatch(state.SetActiveConversation{Conversation: &models.Conversation{UserID: 2}})
	store.Dispatch(state.SetMessages{CounterpartID: 2, At: now.Add(-time.Second)})

	scheduler.pollActiveMessages(context.Background(), false)
	if got := fetcher.messageCalls.Load(); got != 0 {
		t.Fatalf("expected fresh counterpart stamp to gate the tick, got %d calls", got)
	}

	// Switching to a counterpart with no stamp re-arms the loop immediately.
	store.Dispatch(state.SetActiveConversation{Conversation: &models.Conversation{UserID: 3}})

	scheduler.pollActiveMessages(context.Background(), false)
	if got := fetcher.messageCalls.Load(); got != 1 {
		t.Fatalf("expected fetch for newly active counterpart, got %d calls", got)
	}
	if got := store.Snapshot().Messages[3]; len(got) != 1 {
		t.Fatalf("expected fetched messages in counterpart 3 bucket, got %+v", got)
	}
}

func TestFetchFailureSetsErrorAndLoopSurvives(t *testing.T) {
	fetcher := &fakeFetcher{failWith: "Failed to get conversations"}
	store := state.NewStore()
	scheduler := NewScheduler(fetcher, store, Config{
		ConversationInterval: 10 * time.Millisecond,
	})

	scheduler.Start()
	defer scheduler.Stop()

	waitForCondition(t, 2*time.Second, func() bool {
		return fetcher.conversationCalls.Load() >= 2
	})

	snapshot := store.Snapshot()
	if snapshot.Err != "Failed to get conversations" {
		t.Fatalf("expected error recorded in store, got %q", snapshot.Err)
	}
	if snapshot.Loading.Conversations {
		t.Fatalf("expected loading flag cleared after failed fetch")
	}
}

func TestBackgroundLoopsPollAndStopCleanly(t *testing.T) {
	fetcher := &fakeFetcher{
		conversations: []models.Conversation{{UserID: 2, Email: "reader@example.com"}},
		messages:      []models.Message{{ID: 1, SenderID: 2, RecipientID: 1, Content: "hi"}},
	}
	store := state.NewStore()
	store.Dispatch(state.SetActiveConversation{Conversation: &models.Conversation{UserID: 2}})

	scheduler := NewScheduler(fetcher, store, Config{
		ConversationInterval: 10 * time.Millisecond,
		MessageInterval:      10 * time.Millisecond,
	})
	scheduler.Start()

	waitForCondition(t, 2*time.Second, func() bool {
		snapshot := store.Snapshot()
		return len(snapshot.Conversations) == 1 && len(snapshot.Messages[2]) == 1
	})

	scheduler.Stop()
	callsAfterStop := fetcher.conversationCalls.Load()
	time.Sleep(50 * time.Millisecond)
	if fetcher.conversationCalls.Load() != callsAfterStop {
		t.Fatalf("expected no fetches after Stop")
	}
}

func TestManualRefreshBypassesGateAndRestampsPoll(t *testing.T) {
	fetcher := &fakeFetcher{conversations: []models.Conversation{{UserID: 2}}}
	store := state.NewStore()
	scheduler := NewScheduler(fetcher, store, Config{
		ConversationInterval: time.Hour,
	})
	scheduler.Start()
	defer scheduler.Stop()

	// The priming fetch stamped lastPoll; a manual refresh must still fetch.
	waitForCondition(t, 2*time.Second, func() bool {
		return fetcher.conversationCalls.Load() == 1
	})

	if err := scheduler.RefreshConversations(context.Background()); err != nil {
		t.Fatalf("RefreshConversations failed: %v", err)
	}
	if got := fetcher.conversationCalls.Load(); got != 2 {
		t.Fatalf("expected manual refresh to fetch, got %d calls", got)
	}
	if store.Snapshot().LastPoll.Conversations.IsZero() {
		t.Fatalf("expected manual refresh to stamp the poll time")
	}
}

func TestRefreshBeforeStartFails(t *testing.T) {
	scheduler := NewScheduler(&fakeFetcher{}, state.NewStore(), Config{})
	if err := scheduler.RefreshConversations(context.Background()); err == nil {
		t.Fatalf("expected error for refresh before Start")
	}
}
