package chess

import (
	"context"
	"errors"
	"fmt"

	"github.com/KamdynS/go-swarm/agent/core"
	"github.com/KamdynS/go-swarm/llm"
	obs "github.com/KamdynS/go-swarm/observability"
)

const playerInstructions = `You are playing chess as %s. On your turn:
1. First call get_legal_moves() to see available moves
2. Choose one of these legal moves
3. Execute your chosen move using make_move(move)
4. Moves should be in UCI format (e.g., '%s', '%s')
Always make a move when it's your turn. Be decisive.`

const turnPrompt = "It's your turn as %s.\nCurrent board state:\n```\n%s\n```\n\nMake your move by:\n1. Check legal moves\n2. Choose and execute a move\n3. Explain your choice briefly"

// RouterConfig configures NewRouter.
type RouterConfig struct {
	Model llm.Client
	// Board defaults to the starting position.
	Board *Board
	// PlayerModel overrides the client's default model for both players.
	PlayerModel string
	// MaxTurns bounds the model calls of one player turn.
	MaxTurns int
}

// Router hands each turn to the White or Black player agent according to the
// side to move.
type Router struct {
	board  *Board
	runner *core.Runner
	white  *core.Agent
	black  *core.Agent
}

// NewRouter builds the two player agents around a shared board.
func NewRouter(cfg RouterConfig) (*Router, error) {
	if cfg.Model == nil {
		return nil, errors.New("chess: model is required")
	}
	board := cfg.Board
	if board == nil {
		board = NewBoard()
	}
	white, err := player(White, cfg.PlayerModel, "e2e4", "g1f3")
	if err != nil {
		return nil, err
	}
	black, err := player(Black, cfg.PlayerModel, "e7e5", "b8c6")
	if err != nil {
		return nil, err
	}
	runner, err := core.NewRunner(core.RunnerConfig{
		Model:    cfg.Model,
		Agents:   []*core.Agent{white, black},
		MaxTurns: cfg.MaxTurns,
	})
	if err != nil {
		return nil, err
	}
	return &Router{board: board, runner: runner, white: white, black: black}, nil
}

func player(c Color, model, ex1, ex2 string) (*core.Agent, error) {
	a, err := core.NewAgent(string(c)+" Player", fmt.Sprintf(playerInstructions, c, ex1, ex2),
		LegalMovesTool(), MakeMoveTool())
	if err != nil {
		return nil, err
	}
	if model != "" {
		a = a.WithModel(model)
	}
	return a, nil
}

// Board returns the board the router plays on.
func (r *Router) Board() *Board { return r.board }

// ProcessQuery plays one turn for the side to move and reports the player's
// explanation together with the board after the move.
func (r *Router) ProcessQuery(ctx context.Context, query string) (string, error) {
	return obs.Trace(ctx, "chess_turn", obs.SpanKindChain, query, func(ctx context.Context) (string, error) {
		color := r.board.Turn()
		agent := r.white
		if color == Black {
			agent = r.black
		}
		msg := llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf(turnPrompt, color, r.board)}

		resp, err := r.runner.Run(ctx, core.RunRequest{
			Agent:    agent.Name(),
			Messages: []llm.Message{msg},
			State:    r.board,
		})
		if errors.Is(err, core.ErrNoResponse) {
			return fmt.Sprintf("Error: No response from %s player", color), nil
		}
		if err != nil {
			return "", fmt.Errorf("%s player: %w", color, err)
		}

		indicator := "🔵"
		if color == Black {
			indicator = "🔴"
		}
		reply := resp.Messages[len(resp.Messages)-1].Content
		return fmt.Sprintf("%s %s's turn:\n%s\n\nBoard after move:\n```\n%s\n```", indicator, color, reply, r.board), nil
	}, obs.WithAttribute(obs.AttrAgentName, string(r.board.Turn())+" Player"))
}
