package terminal

import (
	"fmt"
	"io"
	"sync"

	"github.com/wricardo/memory-match-game/game/engine"
)

// Presenter draws the game as text. It is safe for concurrent use; the
// engine calls it from timer goroutines while the input loop writes prompts.
type Presenter struct {
	mu         sync.Mutex
	out        io.Writer
	cards      []engine.Card
	difficulty engine.Difficulty
	resolving  []engine.CardState
	moves      int
	pairs      int
	elapsed    string
}

// NewPresenter creates a presenter writing to out
func NewPresenter(out io.Writer) *Presenter {
	return &Presenter{out: out, elapsed: engine.FormatElapsed(0)}
}

// Printf writes a line of output under the presenter's lock
func (p *Presenter) Printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *Presenter) RenderBoard(cards []engine.Card) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cards = append(p.cards[:0], cards...)
	p.difficulty = difficultyFor(len(cards))
	p.resolving = p.resolving[:0]
	fmt.Fprintf(p.out, "\nNew %s board: %d pairs\n", p.difficulty.Label(), len(cards)/2)
	p.drawLocked()
}

func (p *Presenter) RenderCardState(id int, state engine.CardState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id < 0 || id >= len(p.cards) {
		return
	}
	p.cards[id].State = state

	if state == engine.Revealed {
		p.drawLocked()
		return
	}

	// resolution reports both cards of a pair back to back
	p.resolving = append(p.resolving, state)
	if len(p.resolving) < engine.MaxSelection {
		return
	}
	if p.resolving[0] == engine.Matched {
		fmt.Fprintln(p.out, "Match!")
	} else {
		fmt.Fprintln(p.out, "No match.")
	}
	p.resolving = p.resolving[:0]
	p.drawLocked()
}

func (p *Presenter) UpdateStats(moves, matchedPairs int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moves, p.pairs = moves, matchedPairs
}

// UpdateTimerDisplay only records the time; it is printed with the board
func (p *Presenter) UpdateTimerDisplay(elapsed string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elapsed = elapsed
}

func (p *Presenter) ShowCompletion(elapsed string, moves int, difficultyLabel string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\nYou won! %s board cleared in %s with %d moves.\n", difficultyLabel, elapsed, moves)
	fmt.Fprintln(p.out, "Type restart, easy, medium or hard to play again.")
}

func (p *Presenter) drawLocked() {
	fmt.Fprintf(p.out, "Moves: %d  Pairs: %d/%d  Time: %s\n",
		p.moves, p.pairs, len(p.cards)/2, p.elapsed)
	fmt.Fprint(p.out, engine.FormatBoard(p.cards, p.difficulty))
}

// difficultyFor finds the tier dealing n cards
func difficultyFor(n int) engine.Difficulty {
	for _, d := range engine.Difficulties() {
		if d.CardCount() == n {
			return d
		}
	}
	return ""
}
