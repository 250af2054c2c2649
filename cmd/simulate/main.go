// Command simulate plays batches of in-process games with the memory
// strategy and prints how many moves each difficulty takes on average.
// Games run on a manual clock, so a batch of thousands finishes in seconds.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/memory-match-game/game/autoplay"
	"github.com/wricardo/memory-match-game/game/config"
	"github.com/wricardo/memory-match-game/game/engine"
)

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "average the moves a perfect-memory player needs per difficulty",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "games", Aliases: []string{"n"}, Value: 1000, Usage: "games per difficulty"},
			&cli.StringFlag{Name: "difficulty", Aliases: []string{"d"}, Usage: "simulate only this difficulty"},
			&cli.IntFlag{Name: "seed", Value: 1, Usage: "seed of the first game's shuffle"},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "settings file for symbols and reveal delay"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.NewManager(cmd.String("config"))
			if err != nil {
				return err
			}

			difficulties := engine.Difficulties()
			if name := cmd.String("difficulty"); name != "" {
				d, err := engine.ParseDifficulty(name)
				if err != nil {
					return err
				}
				difficulties = []engine.Difficulty{d}
			}

			sim := autoplay.SimulationConfig{
				Games:         cmd.Int("games"),
				Seed:          uint64(cmd.Int("seed")),
				RevealDelay:   cfg.Settings().Game.RevealDelay,
				EngineOptions: cfg.EngineOptions(),
				Logger:        zerolog.Nop(),
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DIFFICULTY\tPAIRS\tGAMES\tAVG MOVES\tMIN\tMAX\tAVG TIME")
			for _, d := range difficulties {
				stats, err := autoplay.Simulate(ctx, d, sim)
				if err != nil {
					return fmt.Errorf("%s: %w", d, err)
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%d\t%d\t%.1fs\n",
					d, d.PairCount(), stats.Games, stats.AvgMoves, stats.MinMoves, stats.MaxMoves, stats.AvgSeconds)
			}
			return w.Flush()
		},
	}
}
