// Package memorytest holds the behaviour every memory.ConversationStore
// must show.
package memorytest

import (
	"context"
	"testing"

	"github.com/KamdynS/go-swarm/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory builds a fresh store keeping at most maxMessages per session.
type Factory func(t *testing.T, maxMessages int) memory.ConversationStore

// RunConversationContract exercises a store built by makeStore.
func RunConversationContract(t *testing.T, makeStore Factory) {
	t.Run("append and read", func(t *testing.T) {
		ctx := context.Background()
		cs := makeStore(t, 0)

		require.NoError(t, cs.AppendMessages(ctx, "s1", memory.NewMessage("user", "hello")))
		require.NoError(t, cs.AppendMessages(ctx, "s1", memory.NewMessage("assistant", "hi")))
		require.NoError(t, cs.AppendMessages(ctx, "s2", memory.Message{Role: "user", Content: "other", Meta: map[string]string{"k": "v"}}))

		msgs, err := cs.GetMessages(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "user", msgs[0].Role)
		assert.Equal(t, "hi", msgs[1].Content)
		assert.NotZero(t, msgs[0].Timestamp)

		other, err := cs.GetMessages(ctx, "s2")
		require.NoError(t, err)
		assert.Equal(t, "v", other[0].Meta["k"])

		ids, err := cs.Sessions(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"s1", "s2"}, ids)
	})

	t.Run("unknown session is empty", func(t *testing.T) {
		msgs, err := makeStore(t, 0).GetMessages(context.Background(), "nope")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("clear session", func(t *testing.T) {
		ctx := context.Background()
		cs := makeStore(t, 0)
		require.NoError(t, cs.AppendMessages(ctx, "s1", memory.NewMessage("user", "x")))
		require.NoError(t, cs.ClearSession(ctx, "s1"))
		msgs, err := cs.GetMessages(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("window", func(t *testing.T) {
		ctx := context.Background()
		cs := makeStore(t, 3)
		for _, c := range []string{"1", "2", "3", "4", "5"} {
			require.NoError(t, cs.AppendMessages(ctx, "s", memory.NewMessage("user", c)))
		}
		msgs, err := cs.GetMessages(ctx, "s")
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, "3", msgs[0].Content)
		assert.Equal(t, "5", msgs[2].Content)
	})
}
