package state

import (
	"time"

	"khabarchat/models"
)

// State is the complete messaging view state. It is only ever replaced
// wholesale by Reduce; consumers treat every snapshot as immutable.
type State struct {
	Conversations []models.Conversation
	Active        *models.Conversation
	Messages      map[int64][]models.Message
	Loading       Loading
	Err           string
	LastPoll      PollTimes
}

// Loading tracks in-flight fetch flags.
type Loading struct {
	Conversations bool
	Messages      map[int64]bool
}

// PollTimes records the last successful poll per fetch path. The polling
// scheduler gates its ticks against these stamps.
type PollTimes struct {
	Conversations time.Time
	Messages      map[int64]time.Time
}

// NewState returns an empty state with initialized maps.
func NewState() State {
	return State{
		Messages: make(map[int64][]models.Message),
		Loading:  Loading{Messages: make(map[int64]bool)},
		LastPoll: PollTimes{Messages: make(map[int64]time.Time)},
	}
}

// Action is one state transition input for Reduce.
type Action interface {
	isAction()
}

// SetConversations replaces the conversation list, clears its loading flag,
// and stamps the conversation poll time.
type SetConversations struct {
	Conversations []models.Conversation
	At            time.Time
}

// SetActiveConversation replaces the active conversation. It does not touch
// message buckets; the caller triggers the fetch separately.
type SetActiveConversation struct {
	Conversation *models.Conversation
}

// SetMessages replaces one counterpart's message bucket wholesale with the
// authoritative history from a poll, clears its loading flag, and stamps its
// poll time. This is the only transition allowed to shrink a bucket.
type SetMessages struct {
	CounterpartID int64
	Messages      []models.Message
	At            time.Time
}

// AddMessage appends one message to a counterpart bucket (creating it if
// absent) and refreshes the matching conversation preview. Used for the
// optimistic local echo of a just-sent message.
type AddMessage struct {
	CounterpartID int64
	Message       models.Message
}

// UpdateMessageStatus patches the status of the message with the given ID
// wherever it is loaded. Idempotent.
type UpdateMessageStatus struct {
	MessageID int64
	Status    string
}

// SetConversationsLoading sets the conversation list loading flag.
type SetConversationsLoading struct {
	Loading bool
}

// SetMessagesLoading sets one counterpart's message loading flag.
type SetMessagesLoading struct {
	CounterpartID int64
	Loading       bool
}

// SetError replaces the last-error string. An empty string clears it.
type SetError struct {
	Err string
}

func (SetConversations) isAction()        {}
func (SetActiveConversation) isAction()   {}
func (SetMessages) isAction()             {}
func (AddMessage) isAction()              {}
func (UpdateMessageStatus) isAction()     {}
func (SetConversationsLoading) isAction() {}
func (SetMessagesLoading) isAction()      {}
func (SetError) isAction()                {}

// Reduce applies one action to a state snapshot and returns the next state.
// It is pure and total: the input state and everything reachable from it is
// left untouched, and unknown or ill-targeted actions fall through to a copy
// of the current state.
func Reduce(s State, action Action) State {
	switch a := action.(type) {
	case SetConversations:
		next := clone(s)
		next.Conversations = append([]models.Conversation(nil), a.Conversations...)
		next.Loading.Conversations = false
		next.LastPoll.Conversations = a.At
		return next

	case SetActiveConversation:
		next := clone(s)
		if a.Conversation == nil {
			next.Active = nil
		} else {
			conv := *a.Conversation
			next.Active = &conv
		}
		return next

	case SetMessages:
		next := clone(s)
		next.Messages[a.CounterpartID] = append([]models.Message(nil), a.Messages...)
		next.Loading.Messages[a.CounterpartID] = false
		next.LastPoll.Messages[a.CounterpartID] = a.At
		return next

	case AddMessage:
		next := clone(s)
		bucket := next.Messages[a.CounterpartID]
		next.Messages[a.CounterpartID] = append(append([]models.Message(nil), bucket...), a.Message)
		for i := range next.Conversations {
			if next.Conversations[i].UserID == a.CounterpartID {
				patched := append([]models.Conversation(nil), next.Conversations...)
				patched[i].LastMessage = a.Message.Content
				patched[i].LastMessageTime = a.Message.CreatedAt
				patched[i].LastSenderID = a.Message.SenderID
				next.Conversations = patched
				break
			}
		}
		return next

	case UpdateMessageStatus:
		next := clone(s)
		for counterpartID, bucket := range next.Messages {
			for i := range bucket {
				if bucket[i].ID == a.MessageID {
					patched := append([]models.Message(nil), bucket...)
					patched[i].Status = a.Status
					next.Messages[counterpartID] = patched
				}
			}
		}
		return next

	case SetConversationsLoading:
		next := clone(s)
		next.Loading.Conversations = a.Loading
		return next

	case SetMessagesLoading:
		next := clone(s)
		next.Loading.Messages[a.CounterpartID] = a.Loading
		return next

	case SetError:
		next := clone(s)
		next.Err = a.Err
		return next

	default:
		return clone(s)
	}
}

// clone copies the state one level deep: top-level maps are fresh, message
// slices are shared until a transition replaces them (copy-on-write).
func clone(s State) State {
	next := s

	next.Messages = make(map[int64][]models.Message, len(s.Messages))
	for id, bucket := range s.Messages {
		next.Messages[id] = bucket
	}

	next.Loading.Messages = make(map[int64]bool, len(s.Loading.Messages))
	for id, loading := range s.Loading.Messages {
		next.Loading.Messages[id] = loading
	}

	next.LastPoll.Messages = make(map[int64]time.Time, len(s.LastPoll.Messages))
	for id, at := range s.LastPoll.Messages {
		next.LastPoll.Messages[id] = at
	}

	if s.Active != nil {
		active := *s.Active
		next.Active = &active
	}

	return next
}
