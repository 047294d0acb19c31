package chess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stalemateSetup = "7k/8/6K1/5Q2/8/8/8/8 w - - 0 1"

func TestMakeMoveTwice(t *testing.T) {
	b := NewBoard()
	assert.Equal(t, "Moved Pawn from e2 to e4", b.MakeMove("e2e4"))
	fen := b.FEN()
	assert.Equal(t, IllegalMove, b.MakeMove("e2e4"))
	assert.Equal(t, fen, b.FEN(), "an illegal move must leave the board unchanged")
	assert.Equal(t, []string{"e2e4"}, b.History())
}

func TestLegalMoveFlipsTurn(t *testing.T) {
	b := NewBoard()
	assert.Equal(t, White, b.Turn())
	assert.Len(t, b.LegalMoves(), 20)
	assert.Contains(t, b.LegalMoves(), "g1f3")

	assert.Equal(t, "Moved Knight from g1 to f3", b.MakeMove("g1f3"))
	assert.Equal(t, Black, b.Turn())
	assert.Contains(t, b.LegalMoves(), "e7e5")
	assert.NotContains(t, b.LegalMoves(), "g1f3")
}

func TestMakeMoveRejectsGarbage(t *testing.T) {
	b := NewBoard()
	fen := b.FEN()
	for _, mv := range []string{"", "e2", "e2e4e5q", "zz99", "e2e5", "e1e2"} {
		got := b.MakeMove(mv)
		assert.Contains(t, got, IllegalMove, mv)
	}
	assert.Equal(t, fen, b.FEN())
	assert.Empty(t, b.History())
}

func TestBoardString(t *testing.T) {
	want := "r n b q k b n r\n" +
		"p p p p p p p p\n" +
		". . . . . . . .\n" +
		". . . . . . . .\n" +
		". . . . . . . .\n" +
		". . . . . . . .\n" +
		"P P P P P P P P\n" +
		"R N B Q K B N R"
	assert.Equal(t, want, NewBoard().String())
}

func TestCheckmateStatus(t *testing.T) {
	b := NewBoard()
	for _, mv := range []string{"f2f3", "e7e5", "g2g4"} {
		require.Contains(t, b.MakeMove(mv), "Moved")
		assert.False(t, b.IsGameOver())
	}
	assert.Equal(t, "Moved Queen from d8 to h4", b.MakeMove("d8h4"))
	require.True(t, b.IsGameOver())
	st := b.Status()
	assert.Equal(t, Black, st.Winner)
	assert.Equal(t, "checkmate", st.Method)
	assert.Equal(t, "Black wins by checkmate!", st.Summary())
}

func TestStalemateStatus(t *testing.T) {
	b, err := NewBoardFromFEN(stalemateSetup)
	require.NoError(t, err)
	assert.False(t, b.IsGameOver())
	assert.Equal(t, "Moved Queen from f5 to f7", b.MakeMove("f5f7"))
	require.True(t, b.IsGameOver())
	assert.Empty(t, b.LegalMoves())
	assert.Equal(t, "Draw by stalemate!", b.Status().Summary())
}

func TestStatusSummaryUnfinished(t *testing.T) {
	assert.Equal(t, "Game ended unexpectedly.", NewBoard().Status().Summary())
	assert.Equal(t, "Draw by insufficient material!", Status{Over: true, Method: "insufficient material"}.Summary())
}

func TestNewBoardFromFENInvalid(t *testing.T) {
	_, err := NewBoardFromFEN("not a fen")
	assert.Error(t, err)
}
