package chess

import (
	"context"
	"fmt"
	"iter"

	"github.com/rs/zerolog/log"
)

// Transcript is one exchange of the game log: the prompt that started a
// step and what came back.
type Transcript struct {
	Prompt string `json:"prompt"`
	Reply  string `json:"reply"`
}

// Record is a finished game.
type Record struct {
	Result   string // "1-0", "0-1", "1/2-1/2" or "*"
	Method   string
	Summary  string
	Moves    []string
	FinalFEN string
}

// Archive stores finished games.
type Archive interface {
	SaveGame(ctx context.Context, rec Record) error
}

// DefaultMaxPlies bounds a game when no limit is configured.
const DefaultMaxPlies = 200

// Game plays White against Black until the engine declares the game over.
type Game struct {
	router   *Router
	maxPlies int
	archive  Archive
}

// GameOption configures a Game.
type GameOption func(*Game)

// WithMaxPlies bounds the number of player turns.
func WithMaxPlies(n int) GameOption {
	return func(g *Game) {
		if n > 0 {
			g.maxPlies = n
		}
	}
}

// WithArchive stores the finished game.
func WithArchive(a Archive) GameOption {
	return func(g *Game) { g.archive = a }
}

// NewGame creates a game driven by router.
func NewGame(router *Router, opts ...GameOption) *Game {
	g := &Game{router: router, maxPlies: DefaultMaxPlies}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Play yields the initial board, every player turn and a closing summary.
// A failing turn is logged and ends the game early; the summary is still
// yielded.
func (g *Game) Play(ctx context.Context) iter.Seq[Transcript] {
	return func(yield func(Transcript) bool) {
		board := g.router.Board()
		logger := log.With().Str("component", "chess").Logger()
		logger.Info().Str("fen", board.FEN()).Msg("starting new chess game")

		if !yield(Transcript{Prompt: "Game Start", Reply: fmt.Sprintf("Initial board state:\n```\n%s\n```", board)}) {
			return
		}

		plies := 0
		for !board.IsGameOver() {
			if plies >= g.maxPlies {
				logger.Warn().Int("plies", plies).Msg("ply limit reached")
				break
			}
			prompt := fmt.Sprintf("It's %s's turn.", board.Turn())
			logger.Info().Int("move", plies+1).Msg(prompt)

			reply, err := g.router.ProcessQuery(ctx, prompt)
			if err != nil {
				logger.Error().Err(err).Msg("error processing move")
				break
			}
			plies++
			if !yield(Transcript{Prompt: prompt, Reply: reply}) {
				return
			}
		}

		status := board.Status()
		final := fmt.Sprintf("%s\n\nFinal board state:\n```\n%s\n```", status.Summary(), board)
		logger.Info().Str("result", status.Summary()).Int("plies", plies).Msg("game over")
		g.save(ctx, board, status)
		yield(Transcript{Prompt: "Game Over", Reply: final})
	}
}

// Transcript plays the whole game and collects every entry.
func (g *Game) Transcript(ctx context.Context) []Transcript {
	var out []Transcript
	for t := range g.Play(ctx) {
		out = append(out, t)
	}
	return out
}

func (g *Game) save(ctx context.Context, board *Board, status Status) {
	if g.archive == nil {
		return
	}
	rec := Record{
		Result:   result(status),
		Method:   status.Method,
		Summary:  status.Summary(),
		Moves:    board.History(),
		FinalFEN: board.FEN(),
	}
	if err := g.archive.SaveGame(context.WithoutCancel(ctx), rec); err != nil {
		log.Warn().Err(err).Msg("failed to archive chess game")
	}
}

func result(s Status) string {
	switch {
	case !s.Over:
		return "*"
	case s.Winner == White:
		return "1-0"
	case s.Winner == Black:
		return "0-1"
	default:
		return "1/2-1/2"
	}
}
