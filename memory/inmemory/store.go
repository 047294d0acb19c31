package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/KamdynS/go-swarm/memory"
)

// ConversationStore implements memory.ConversationStore in process memory.
type ConversationStore struct {
	mu          sync.RWMutex
	data        map[string][]memory.Message
	maxMessages int
}

// NewConversationStore creates a store keeping at most maxMessages per
// session; zero keeps everything.
func NewConversationStore(maxMessages int) *ConversationStore {
	return &ConversationStore{
		data:        make(map[string][]memory.Message),
		maxMessages: maxMessages,
	}
}

func (cs *ConversationStore) AppendMessages(ctx context.Context, sessionID string, msgs ...memory.Message) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	all := append(cs.data[sessionID], msgs...)
	cs.data[sessionID] = append([]memory.Message(nil), memory.Tail(all, cs.maxMessages)...)
	return nil
}

func (cs *ConversationStore) GetMessages(ctx context.Context, sessionID string) ([]memory.Message, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return append([]memory.Message{}, cs.data[sessionID]...), nil
}

func (cs *ConversationStore) ClearSession(ctx context.Context, sessionID string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.data, sessionID)
	return nil
}

func (cs *ConversationStore) Sessions(ctx context.Context) ([]string, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	ids := make([]string, 0, len(cs.data))
	for id := range cs.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

var _ memory.ConversationStore = (*ConversationStore)(nil)
