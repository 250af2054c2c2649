package engine

import (
	"fmt"
	"strings"
	"time"
)

// Presenter receives display instructions from the engine. Calls are made
// while the engine holds its lock, so implementations must not call back
// into the same engine synchronously.
type Presenter interface {
	// RenderBoard shows a full board after (re)initialization
	RenderBoard(cards []Card)
	// RenderCardState updates a single card after a flip, match or revert
	RenderCardState(id int, state CardState)
	UpdateStats(moves, matchedPairs int)
	UpdateTimerDisplay(elapsed string)
	ShowCompletion(elapsed string, moves int, difficultyLabel string)
}

// NopPresenter discards every instruction
type NopPresenter struct{}

func (NopPresenter) RenderBoard([]Card) {}
func (NopPresenter) RenderCardState(int, CardState) {}
func (NopPresenter) UpdateStats(int, int) {}
func (NopPresenter) UpdateTimerDisplay(string) {}
func (NopPresenter) ShowCompletion(string, int, string) {}

// MultiPresenter fans every instruction out to each presenter in order
type MultiPresenter []Presenter

func (m MultiPresenter) RenderBoard(cards []Card) {
	for _, p := range m {
		p.RenderBoard(append([]Card(nil), cards...))
	}
}

func (m MultiPresenter) RenderCardState(id int, state CardState) {
	for _, p := range m {
		p.RenderCardState(id, state)
	}
}

func (m MultiPresenter) UpdateStats(moves, matchedPairs int) {
	for _, p := range m {
		p.UpdateStats(moves, matchedPairs)
	}
}

func (m MultiPresenter) UpdateTimerDisplay(elapsed string) {
	for _, p := range m {
		p.UpdateTimerDisplay(elapsed)
	}
}

func (m MultiPresenter) ShowCompletion(elapsed string, moves int, difficultyLabel string) {
	for _, p := range m {
		p.ShowCompletion(elapsed, moves, difficultyLabel)
	}
}

// FormatElapsed renders a duration as MM:SS, truncating to whole seconds
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// FormatBoard draws cards as a text grid: [??] hidden, [ 7] face up, ( 7) matched.
// Rows wrap at the difficulty's column count.
func FormatBoard(cards []Card, d Difficulty) string {
	columns, _ := d.Layout()
	if columns == 0 {
		columns = 4
	}

	var b strings.Builder
	for i, c := range cards {
		switch c.State {
		case Matched:
			fmt.Fprintf(&b, "(%2s)", c.Symbol)
		case Revealed:
			fmt.Fprintf(&b, "[%2s]", c.Symbol)
		default:
			b.WriteString("[??]")
		}
		if (i+1)%columns == 0 || i == len(cards)-1 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	return b.String()
}
