package chess

import (
	"context"
	"strings"

	"github.com/KamdynS/go-swarm/tools"
)

type noArgs struct{}

// MoveArgs are the arguments of make_move.
type MoveArgs struct {
	Move string `json:"move" validate:"required" jsonschema:"description=Move in UCI format such as e2e4 or g1f3"`
}

// LegalMovesTool lists the legal moves of the board passed as run state.
func LegalMovesTool() tools.Tool {
	return tools.NewStateFunc("get_legal_moves", "Returns a list of legal moves in UCI format",
		func(ctx context.Context, b *Board, _ noArgs) (tools.Result, error) {
			return tools.Text("Legal moves: " + strings.Join(b.LegalMoves(), ", ")), nil
		})
}

// MakeMoveTool plays a move on the board passed as run state.
func MakeMoveTool() tools.Tool {
	return tools.NewStateFunc("make_move", "Execute a chess move in UCI format",
		func(ctx context.Context, b *Board, args MoveArgs) (tools.Result, error) {
			return tools.Text(b.MakeMove(args.Move)), nil
		})
}
