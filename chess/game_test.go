package chess

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/KamdynS/go-swarm/llm/llmtest"
	obs "github.com/KamdynS/go-swarm/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptTurn scripts one player turn: list moves, play mv, explain.
func scriptTurn(m *llmtest.MockClient, mv string) {
	m.AddToolCall("get_legal_moves", nil).
		AddToolCall("make_move", map[string]string{"move": mv}).
		AddResponse("I played " + mv)
}

type memArchive struct{ recs []Record }

func (a *memArchive) SaveGame(ctx context.Context, rec Record) error {
	a.recs = append(a.recs, rec)
	return nil
}

func TestProcessQueryFormatsTurn(t *testing.T) {
	model := llmtest.NewMockClient()
	scriptTurn(model, "e2e4")
	r, err := NewRouter(RouterConfig{Model: model})
	require.NoError(t, err)

	out, err := r.ProcessQuery(context.Background(), "It's White's turn.")
	require.NoError(t, err)
	want := "🔵 White's turn:\nI played e2e4\n\nBoard after move:\n```\n" + r.Board().String() + "\n```"
	assert.Equal(t, want, out)
	assert.Equal(t, Black, r.Board().Turn())

	calls := model.Calls()
	require.Len(t, calls, 3)
	assert.Contains(t, calls[0].SystemPrompt, "You are playing chess as White")
	assert.Contains(t, calls[0].Messages[0].Content, "It's your turn as White.")
	assert.Equal(t, "Legal moves: ", calls[1].Messages[2].Content[:len("Legal moves: ")])
	assert.Equal(t, "Moved Pawn from e2 to e4", calls[2].Messages[4].Content)

	scriptTurn(model, "e7e5")
	out, err = r.ProcessQuery(context.Background(), "It's Black's turn.")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "🔴 Black's turn:\nI played e7e5"))
}

func TestProcessQueryIllegalMoveKeepsBoard(t *testing.T) {
	model := llmtest.NewMockClient().
		AddToolCall("make_move", map[string]string{"move": "e2e5"}).
		AddResponse("oops")
	r, err := NewRouter(RouterConfig{Model: model})
	require.NoError(t, err)

	_, err = r.ProcessQuery(context.Background(), "It's White's turn.")
	require.NoError(t, err)
	assert.Equal(t, White, r.Board().Turn())
	assert.Equal(t, IllegalMove, model.Calls()[1].Messages[2].Content)
}

func TestProcessQueryTraced(t *testing.T) {
	tracer := obs.NewDefaultTracer()
	prev := obs.TracerImpl
	obs.SetTracer(tracer)
	t.Cleanup(func() { obs.SetTracer(prev) })

	model := llmtest.NewMockClient()
	scriptTurn(model, "d2d4")
	r, err := NewRouter(RouterConfig{Model: model})
	require.NoError(t, err)

	out, err := r.ProcessQuery(context.Background(), "It's White's turn.")
	require.NoError(t, err)

	span, ok := tracer.Find("chess_turn")
	require.True(t, ok)
	assert.Equal(t, "It's White's turn.", span.Attributes[obs.AttrInputValue])
	assert.Equal(t, out, span.Attributes[obs.AttrOutputValue])
	assert.Equal(t, "CHAIN", span.Attributes[obs.AttrSpanKind])
}

func TestGameFoolsMate(t *testing.T) {
	model := llmtest.NewMockClient()
	for _, mv := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		scriptTurn(model, mv)
	}
	r, err := NewRouter(RouterConfig{Model: model})
	require.NoError(t, err)
	archive := &memArchive{}

	entries := NewGame(r, WithArchive(archive)).Transcript(context.Background())
	require.Len(t, entries, 6)
	assert.Equal(t, "Game Start", entries[0].Prompt)
	assert.True(t, strings.HasPrefix(entries[0].Reply, "Initial board state:\n```\nr n b q k b n r"))
	assert.Equal(t, "It's White's turn.", entries[1].Prompt)
	assert.Equal(t, "It's Black's turn.", entries[4].Prompt)
	assert.Equal(t, "Game Over", entries[5].Prompt)
	assert.True(t, strings.HasPrefix(entries[5].Reply, "Black wins by checkmate!\n\nFinal board state:\n```\n"))
	assert.Zero(t, model.Remaining())

	require.Len(t, archive.recs, 1)
	assert.Equal(t, "0-1", archive.recs[0].Result)
	assert.Equal(t, []string{"f2f3", "e7e5", "g2g4", "d8h4"}, archive.recs[0].Moves)
}

func TestGameStalemate(t *testing.T) {
	board, err := NewBoardFromFEN(stalemateSetup)
	require.NoError(t, err)
	model := llmtest.NewMockClient()
	scriptTurn(model, "f5f7")
	r, err := NewRouter(RouterConfig{Model: model, Board: board})
	require.NoError(t, err)

	entries := NewGame(r).Transcript(context.Background())
	require.Len(t, entries, 3)
	assert.True(t, strings.HasPrefix(entries[2].Reply, "Draw by stalemate!"))
}

func TestGameStopsOnError(t *testing.T) {
	model := llmtest.NewMockClient().AddError(errors.New("provider down"))
	r, err := NewRouter(RouterConfig{Model: model})
	require.NoError(t, err)

	entries := NewGame(r).Transcript(context.Background())
	require.Len(t, entries, 2)
	assert.Equal(t, "Game Over", entries[1].Prompt)
	assert.True(t, strings.HasPrefix(entries[1].Reply, "Game ended unexpectedly."))
}

func TestGamePlyLimit(t *testing.T) {
	// the fallback reply never moves, so only the ply limit ends the game
	model := llmtest.NewMockClient()
	r, err := NewRouter(RouterConfig{Model: model})
	require.NoError(t, err)

	entries := NewGame(r, WithMaxPlies(3)).Transcript(context.Background())
	require.Len(t, entries, 5)
	assert.Contains(t, entries[1].Reply, "Default mock response")
	assert.True(t, strings.HasPrefix(entries[4].Reply, "Game ended unexpectedly."))
}

func TestGameEarlyBreak(t *testing.T) {
	model := llmtest.NewMockClient()
	r, err := NewRouter(RouterConfig{Model: model})
	require.NoError(t, err)

	n := 0
	for range NewGame(r).Play(context.Background()) {
		n++
		break
	}
	assert.Equal(t, 1, n)
	assert.Empty(t, model.Calls())
}

func TestProcessQueryMissingResponse(t *testing.T) {
	model := llmtest.NewMockClient().AddNoResponse().AddNoResponse()
	r, err := NewRouter(RouterConfig{Model: model})
	require.NoError(t, err)

	out, err := r.ProcessQuery(context.Background(), "It's White's turn.")
	require.NoError(t, err)
	assert.Equal(t, "Error: No response from White player", out)
	assert.Equal(t, White, r.Board().Turn())

	// a silent player does not end the game
	entries := NewGame(r, WithMaxPlies(1)).Transcript(context.Background())
	require.Len(t, entries, 3)
	assert.Equal(t, "Error: No response from White player", entries[1].Reply)
}
