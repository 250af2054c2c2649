package engine

import (
	"fmt"
	"math/rand/v2"
)

// Source supplies uniform random integers in [0, n)
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// NewSeededSource returns a deterministic Source, mainly for tests and simulations
func NewSeededSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// ValidateSymbols checks that an alphabet has SymbolCount distinct, non-empty symbols
func ValidateSymbols(symbols []string) error {
	if len(symbols) != SymbolCount {
		return fmt.Errorf("symbols: expected %d, got %d", SymbolCount, len(symbols))
	}
	seen := make(map[string]bool, len(symbols))
	for i, s := range symbols {
		if s == "" {
			return fmt.Errorf("symbols: entry %d is empty", i)
		}
		if seen[s] {
			return fmt.Errorf("symbols: duplicate symbol %q", s)
		}
		seen[s] = true
	}
	return nil
}

// NewBoard builds a shuffled board for the difficulty: the first PairCount
// symbols, each placed twice
func NewBoard(d Difficulty, symbols []string, src Source) ([]Card, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDifficulty, d)
	}
	pairs := d.PairCount()
	if len(symbols) < pairs {
		return nil, fmt.Errorf("board needs %d symbols, have %d", pairs, len(symbols))
	}

	deck := make([]string, 0, 2*pairs)
	deck = append(deck, symbols[:pairs]...)
	deck = append(deck, symbols[:pairs]...)
	Shuffle(deck, src)

	cards := make([]Card, len(deck))
	for i, symbol := range deck {
		cards[i] = Card{ID: i, Symbol: symbol, State: Hidden}
	}
	return cards, nil
}

// Shuffle permutes items in place with Fisher-Yates
func Shuffle[T any](items []T, src Source) {
	if src == nil {
		src = globalSource{}
	}
	for i := len(items) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// CountByState counts cards in the given state
func CountByState(cards []Card, state CardState) int {
	count := 0
	for _, c := range cards {
		if c.State == state {
			count++
		}
	}
	return count
}
