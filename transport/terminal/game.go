package terminal

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wricardo/memory-match-game/game/engine"
)

const help = `Commands:
  <number>            flip a card (cards are numbered from 0)
  restart             deal a new board
  easy|medium|hard    deal a new board at that difficulty
  help                show this message
  quit                leave the game
`

// Game reads player commands and applies them to an engine whose
// presenter is the same Presenter
type Game struct {
	engine    engine.Engine
	presenter *Presenter
	logger    zerolog.Logger
}

// Option configures a Game
type Option func(*Game)

// WithLogger sets the logger for rejected input and engine errors
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Game) {
		g.logger = logger
	}
}

// NewGame creates a terminal game
func NewGame(e engine.Engine, p *Presenter, opts ...Option) *Game {
	g := &Game{
		engine:    e,
		presenter: p,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run processes commands from in until quit, end of input or ctx is done
func (g *Game) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	g.presenter.Printf("%s> ", help)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			quit, err := g.Handle(line)
			if err != nil {
				return err
			}
			if quit {
				g.presenter.Printf("Bye!\n")
				return nil
			}
			g.presenter.Printf("> ")
		}
	}
}

// Handle applies one command. It reports quit for the quit command and
// returns an error only when the engine can no longer be used.
func (g *Game) Handle(line string) (quit bool, err error) {
	cmd := strings.ToLower(strings.TrimSpace(line))
	switch cmd {
	case "":
		return false, nil
	case "q", "quit", "exit":
		return true, nil
	case "h", "help", "?":
		g.presenter.Printf("%s", help)
		return false, nil
	case "r", "restart":
		return false, g.check(g.engine.Restart())
	}

	if d, err := engine.ParseDifficulty(cmd); err == nil {
		return false, g.check(g.engine.Initialize(d))
	}

	id, err := strconv.Atoi(cmd)
	if err != nil {
		g.logger.Debug().Str("input", line).Msg("unrecognized command")
		g.presenter.Printf("Unknown command %q. Type help for commands.\n", line)
		return false, nil
	}

	outcome, err := g.engine.SelectCard(id)
	if errors.Is(err, engine.ErrUnknownCard) {
		g.presenter.Printf("There is no card %d.\n", id)
		return false, nil
	}
	if err := g.check(err); err != nil {
		return false, err
	}

	switch outcome {
	case engine.OutcomeBusy:
		g.presenter.Printf("Wait for the pair to turn.\n")
	case engine.OutcomeAlreadyRevealed:
		g.presenter.Printf("Card %d is already face up.\n", id)
	case engine.OutcomeAlreadyMatched:
		g.presenter.Printf("Card %d is already matched.\n", id)
	case engine.OutcomeGameOver:
		g.presenter.Printf("The game is over. Type restart to play again.\n")
	}
	return false, nil
}

func (g *Game) check(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, engine.ErrEngineClosed) {
		return err
	}
	g.logger.Warn().Err(err).Msg("command failed")
	g.presenter.Printf("Error: %v\n", err)
	return nil
}
