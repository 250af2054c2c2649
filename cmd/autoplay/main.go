// Command autoplay plays memory match games against a running server
// through its REST API, using a perfect-memory strategy.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/memory-match-game/game/autoplay"
)

func main() {
	if err := newCommand(os.Stdout, os.Stderr).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "autoplay: %v\n", err)
		os.Exit(1)
	}
}

func newCommand(out, logOut io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "autoplay",
		Usage: "play memory match games over the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "game server URL"},
			&cli.StringFlag{Name: "difficulty", Aliases: []string{"d"}, Usage: "difficulty of a new session (server default if empty)"},
			&cli.StringFlag{Name: "continue", Usage: "play an existing session by ID instead of creating one"},
			&cli.IntFlag{Name: "games", Aliases: []string{"n"}, Value: 1, Usage: "games to play, restarting the board between them"},
			&cli.DurationFlag{Name: "timeout", Value: 5 * time.Minute, Usage: "overall time limit"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log every flip"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			level := zerolog.InfoLevel
			if cmd.Bool("verbose") {
				level = zerolog.DebugLevel
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: logOut, TimeFormat: time.Kitchen}).
				Level(level).With().Timestamp().Logger()

			ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
			defer cancel()

			client := autoplay.NewClient(cmd.String("url"))
			if id := cmd.String("continue"); id != "" {
				client.UseSession(id)
			} else {
				info, err := client.CreateSession(ctx, cmd.String("difficulty"))
				if err != nil {
					return err
				}
				logger.Info().Str("session", info.ID).Str("difficulty", string(info.Difficulty)).Msg("session created")
			}

			games := cmd.Int("games")
			total := 0
			for i := 1; i <= games; i++ {
				if i > 1 {
					if _, err := client.Restart(ctx); err != nil {
						return err
					}
				}
				result, err := autoplay.Play(ctx, client, autoplay.NewStrategy(), logger)
				if err != nil {
					return err
				}
				total += result.Moves
				fmt.Fprintf(out, "game %d: %s won in %d moves (%s)\n", i, result.Difficulty, result.Moves, result.Elapsed)
			}
			if games > 1 {
				fmt.Fprintf(out, "average: %.2f moves over %d games\n", float64(total)/float64(games), games)
			}
			fmt.Fprintf(out, "session: %s\n", client.SessionID())
			return nil
		},
	}
}
