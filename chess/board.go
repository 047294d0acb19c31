// Package chess runs the autonomous two-agent chess demo on top of the
// notnil/chess rules engine.
package chess

import (
	"fmt"
	"regexp"
	"strings"

	engine "github.com/notnil/chess"
)

// Color is the side to move.
type Color string

const (
	White Color = "White"
	Black Color = "Black"
)

// IllegalMove is the result text of a rejected move.
const IllegalMove = "Illegal move attempted"

var uciPattern = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)

// Board is the game state shared by both players for one game. It is only
// mutated by MakeMove, and only with legal moves.
type Board struct {
	game *engine.Game
}

// NewBoard returns a board in the standard starting position.
func NewBoard() *Board {
	return &Board{game: engine.NewGame()}
}

// NewBoardFromFEN returns a board set up from a FEN record.
func NewBoardFromFEN(fen string) (*Board, error) {
	opt, err := engine.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return &Board{game: engine.NewGame(opt)}, nil
}

// LegalMoves lists the moves available to the side to move in UCI notation.
func (b *Board) LegalMoves() []string {
	moves := b.game.ValidMoves()
	out := make([]string, 0, len(moves))
	for _, m := range moves {
		out = append(out, m.String())
	}
	return out
}

// MakeMove applies a UCI move such as "e2e4" or "e7e8q". A move that does not
// parse or is not currently legal leaves the board unchanged.
func (b *Board) MakeMove(uci string) string {
	uci = strings.ToLower(strings.TrimSpace(uci))
	if !uciPattern.MatchString(uci) {
		return fmt.Sprintf("%s: %q is not a UCI move such as e2e4 or e7e8q", IllegalMove, uci)
	}
	pos := b.game.Position()
	var legal *engine.Move
	for _, m := range b.game.ValidMoves() {
		if m.String() == uci {
			legal = m
			break
		}
	}
	if legal == nil {
		return IllegalMove
	}
	piece := pieceName(pos.Board().Piece(legal.S1()).Type())
	if err := b.game.Move(legal); err != nil {
		return IllegalMove
	}
	return fmt.Sprintf("Moved %s from %s to %s", piece, legal.S1(), legal.S2())
}

// Turn reports the side to move.
func (b *Board) Turn() Color {
	if b.game.Position().Turn() == engine.Black {
		return Black
	}
	return White
}

// FEN encodes the current position.
func (b *Board) FEN() string { return b.game.Position().String() }

// History lists the moves played so far in UCI notation.
func (b *Board) History() []string {
	moves := b.game.Moves()
	out := make([]string, 0, len(moves))
	for _, m := range moves {
		out = append(out, m.String())
	}
	return out
}

// IsGameOver reports whether the engine has decided the game.
func (b *Board) IsGameOver() bool { return b.game.Outcome() != engine.NoOutcome }

// String draws the board from White's side, rank 8 first. White pieces are
// upper case and empty squares are dots.
func (b *Board) String() string {
	board := b.game.Position().Board()
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		for file := 0; file < 8; file++ {
			if file > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteByte(pieceLetter(board.Piece(engine.Square(rank*8 + file))))
		}
		if rank > 0 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Status describes how the game stands.
type Status struct {
	Over bool
	// Winner is empty unless the game ended decisively.
	Winner Color
	// Method is how the game ended, e.g. "checkmate" or "stalemate".
	Method string
}

// Status reads the result from the engine.
func (b *Board) Status() Status {
	s := Status{Over: b.IsGameOver()}
	if !s.Over {
		return s
	}
	switch b.game.Outcome() {
	case engine.WhiteWon:
		s.Winner = White
	case engine.BlackWon:
		s.Winner = Black
	}
	s.Method = methodName(b.game.Method())
	return s
}

// Summary is the closing line of a game.
func (s Status) Summary() string {
	switch {
	case !s.Over:
		return "Game ended unexpectedly."
	case s.Winner != "":
		return fmt.Sprintf("%s wins by %s!", s.Winner, s.Method)
	default:
		return fmt.Sprintf("Draw by %s!", s.Method)
	}
}

func methodName(m engine.Method) string {
	switch m {
	case engine.Checkmate:
		return "checkmate"
	case engine.Resignation:
		return "resignation"
	case engine.DrawOffer:
		return "agreement"
	case engine.Stalemate:
		return "stalemate"
	case engine.ThreefoldRepetition:
		return "threefold repetition"
	case engine.FivefoldRepetition:
		return "fivefold repetition"
	case engine.FiftyMoveRule:
		return "fifty-move rule"
	case engine.SeventyFiveMoveRule:
		return "seventy-five-move rule"
	case engine.InsufficientMaterial:
		return "insufficient material"
	default:
		return "unknown reason"
	}
}

func pieceName(t engine.PieceType) string {
	switch t {
	case engine.King:
		return "King"
	case engine.Queen:
		return "Queen"
	case engine.Rook:
		return "Rook"
	case engine.Bishop:
		return "Bishop"
	case engine.Knight:
		return "Knight"
	case engine.Pawn:
		return "Pawn"
	default:
		return "Piece"
	}
}

func pieceLetter(p engine.Piece) byte {
	var c byte
	switch p.Type() {
	case engine.King:
		c = 'k'
	case engine.Queen:
		c = 'q'
	case engine.Rook:
		c = 'r'
	case engine.Bishop:
		c = 'b'
	case engine.Knight:
		c = 'n'
	case engine.Pawn:
		c = 'p'
	default:
		return '.'
	}
	if p.Color() == engine.White {
		c -= 'a' - 'A'
	}
	return c
}
