// Package terminal plays the memory match game in a text terminal.
//
// Presenter implements engine.Presenter and draws the board as a grid where
// [??] is a face-down card, [ 7] a face-up card and ( 7) a matched card.
// Game reads commands line by line: a card number flips that card, restart
// deals a new board, easy, medium or hard changes the difficulty and quit
// leaves.
//
//	p := terminal.NewPresenter(os.Stdout)
//	e, _ := engine.NewEngine(engine.Medium, engine.WithPresenter(p))
//	err := terminal.NewGame(e, p).Run(ctx, os.Stdin)
package terminal
