package autoplay

import (
	"sort"

	"github.com/wricardo/memory-match-game/game/engine"
)

// Strategy plays with perfect memory. It remembers every symbol it has seen,
// plays a known pair when one exists and otherwise explores unseen cards.
type Strategy struct {
	seen    map[int]string // card id -> symbol observed face up
	matched map[int]bool
}

// NewStrategy creates a strategy with an empty memory
func NewStrategy() *Strategy {
	s := &Strategy{}
	s.Forget()
	return s
}

// Forget clears the memory, for use after a new board is dealt
func (s *Strategy) Forget() {
	s.seen = make(map[int]string)
	s.matched = make(map[int]bool)
}

// Observe records the symbols of face-up and matched cards in a masked state
func (s *Strategy) Observe(state *engine.GameState) {
	for _, c := range state.Cards {
		if c.Symbol != "" && c.State != engine.Hidden {
			s.seen[c.ID] = c.Symbol
		}
		if c.State == engine.Matched {
			s.matched[c.ID] = true
		}
	}
}

// ObserveMove records both symbols of a resolved pair, which are hidden
// again by the time a mismatch is observed
func (s *Strategy) ObserveMove(move engine.MoveHistoryEntry) {
	s.seen[move.FirstCard] = move.FirstSymbol
	s.seen[move.SecondCard] = move.SecondSymbol
	if move.Matched {
		s.matched[move.FirstCard] = true
		s.matched[move.SecondCard] = true
	}
}

// Known returns how many cards the strategy has seen
func (s *Strategy) Known() int {
	return len(s.seen)
}

// Next picks the card to flip. It reports false when no hidden card is left.
func (s *Strategy) Next(state *engine.GameState) (int, bool) {
	hidden := hiddenCards(state)
	if len(hidden) == 0 {
		return 0, false
	}

	if len(state.Selection) == 1 {
		first := state.Selection[0]
		symbol := s.seen[first]
		if symbol == "" && first >= 0 && first < len(state.Cards) {
			symbol = state.Cards[first].Symbol
		}
		for _, id := range hidden {
			if id != first && s.seen[id] == symbol && symbol != "" {
				return id, true
			}
		}
		if id, ok := s.firstUnseen(hidden, first); ok {
			return id, true
		}
		for _, id := range hidden {
			if id != first {
				return id, true
			}
		}
		return 0, false
	}

	if id, ok := s.knownPair(hidden); ok {
		return id, true
	}
	if id, ok := s.firstUnseen(hidden, -1); ok {
		return id, true
	}
	return hidden[0], true
}

// knownPair returns the first card of a remembered, unmatched pair
func (s *Strategy) knownPair(hidden []int) (int, bool) {
	bySymbol := make(map[string][]int)
	for _, id := range hidden {
		if symbol, ok := s.seen[id]; ok && !s.matched[id] {
			bySymbol[symbol] = append(bySymbol[symbol], id)
		}
	}
	best := -1
	for _, ids := range bySymbol {
		if len(ids) >= 2 && (best == -1 || ids[0] < best) {
			best = ids[0]
		}
	}
	return best, best != -1
}

func (s *Strategy) firstUnseen(hidden []int, skip int) (int, bool) {
	for _, id := range hidden {
		if id == skip {
			continue
		}
		if _, ok := s.seen[id]; !ok {
			return id, true
		}
	}
	return 0, false
}

// hiddenCards lists face-down card ids in ascending order
func hiddenCards(state *engine.GameState) []int {
	var ids []int
	for _, c := range state.Cards {
		if c.State == engine.Hidden {
			ids = append(ids, c.ID)
		}
	}
	sort.Ints(ids)
	return ids
}
