package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/KamdynS/go-swarm/chess"
	"github.com/KamdynS/go-swarm/database"
	"github.com/spf13/cobra"
)

func newChessCmd() *cobra.Command {
	var maxPlies int
	cmd := &cobra.Command{
		Use:   "chess",
		Short: "Let two LLM players play a game of chess",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max-plies") {
				cfg.Chess.MaxPlies = maxPlies
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := newApp(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			game, err := a.newGame()
			if err != nil {
				return err
			}
			printGame(ctx, game, cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().IntVar(&maxPlies, "max-plies", 200, "Stop after this many player turns; overrides chess.max_plies")
	cmd.AddCommand(newChessGamesCmd())
	return cmd
}

func printGame(ctx context.Context, game *chess.Game, out io.Writer) {
	for entry := range game.Play(ctx) {
		fmt.Fprintf(out, "== %s ==\n%s\n\n", entry.Prompt, entry.Reply)
	}
}

func newChessGamesCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "games",
		Short: "List recently archived games",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := database.New(&cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer db.Close()
			if err := db.AutoMigrate(); err != nil {
				return err
			}

			games, err := db.RecentGames(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PLAYED\tRESULT\tPLIES\tSUMMARY")
			for _, g := range games {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", g.CreatedAt.Format("2006-01-02 15:04"), g.Result, g.Plies, g.Summary)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of games to list")
	return cmd
}
