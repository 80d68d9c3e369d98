package games

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/models"
)

const (
	deckSize = 52
	handSize = 5
)

type HandRank int

const (
	HighCard HandRank = iota
	JacksOrBetter
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var handNames = [...]string{
	"nothing", "jacks_or_better", "two_pair", "three_of_a_kind", "straight",
	"flush", "full_house", "four_of_a_kind", "straight_flush", "royal_flush",
}

func (h HandRank) String() string {
	if h < 0 || int(h) >= len(handNames) {
		return "unknown"
	}
	return handNames[h]
}

// Card ranks run 1 (ace) to 13 (king); suits 0 to 3.
type Card struct {
	Rank int `json:"number"`
	Suit int `json:"suit"`
}

func cardAt(i int) Card {
	return Card{Rank: i%13 + 1, Suit: i / 13}
}

func (c Card) index() int {
	return c.Suit*13 + c.Rank - 1
}

// Poker is jacks-or-better video poker: one deal, one draw.
type Poker struct {
	info
	payouts [len(handNames)]decimal.Decimal
}

func newPoker(base info, payouts []string) (*Poker, error) {
	if len(payouts) != len(handNames) {
		return nil, fmt.Errorf("poker needs %d payouts, got %d", len(handNames), len(payouts))
	}
	p := &Poker{info: base}
	for i, s := range payouts {
		d, err := coef(s, "payouts")
		if err != nil {
			return nil, err
		}
		p.payouts[i] = d
	}
	return p, nil
}

type PokerState struct {
	Hand       [handSize]Card  `json:"cards_in_hand"`
	Rank       string          `json:"rank"`
	Multiplier decimal.Decimal `json:"current_multiplier"`
}

type pokerContinueData struct {
	ToReplace []bool `json:"to_replace"`
}

type pokerDeal struct {
	game *Poker
}

type pokerDraw struct {
	game    *Poker
	state   PokerState
	replace []bool
}

func (g *Poker) Decode(data json.RawMessage) (Round, error) {
	var d struct{}
	if err := decode(data, &d); err != nil {
		return nil, err
	}
	return &pokerDeal{game: g}, nil
}

func (g *Poker) DecodeContinue(state, data json.RawMessage) (Round, error) {
	var st PokerState
	if err := decodeState(state, &st); err != nil {
		return nil, err
	}
	var seen [deckSize]bool
	for _, c := range st.Hand {
		if c.Rank < 1 || c.Rank > 13 || c.Suit < 0 || c.Suit > 3 || seen[c.index()] {
			return nil, models.Validationf("invalid hand in game state")
		}
		seen[c.index()] = true
	}

	var d pokerContinueData
	if err := decode(data, &d); err != nil {
		return nil, err
	}
	replace := d.ToReplace
	if replace == nil {
		replace = make([]bool, handSize)
	}
	if len(replace) != handSize {
		return nil, models.Validationf("to_replace must have exactly %d entries", handSize)
	}
	return &pokerDraw{game: g, state: st, replace: replace}, nil
}

func (r *pokerDeal) Resolve(s *fairness.Stream) (Outcome, error) {
	perm := s.Perm(deckSize)
	var st PokerState
	for i := range st.Hand {
		st.Hand[i] = cardAt(perm[i])
	}
	return r.game.outcome(st, false)
}

// Resolve shuffles the cards not in hand and replaces the flagged positions
// from the top of that shuffle.
func (r *pokerDraw) Resolve(s *fairness.Stream) (Outcome, error) {
	st := r.state

	var inHand [deckSize]bool
	for _, c := range st.Hand {
		inHand[c.index()] = true
	}
	rest := make([]int, 0, deckSize-handSize)
	for i := 0; i < deckSize; i++ {
		if !inHand[i] {
			rest = append(rest, i)
		}
	}

	perm := s.Perm(len(rest))
	next := 0
	for i, swap := range r.replace {
		if swap {
			st.Hand[i] = cardAt(rest[perm[next]])
			next++
		}
	}
	return r.game.outcome(st, true)
}

func (g *Poker) outcome(st PokerState, finished bool) (Outcome, error) {
	rank := Evaluate(st.Hand)
	mult := g.payouts[rank]
	st.Rank = rank.String()
	st.Multiplier = mult

	raw, err := encode(map[string]any{"cards_in_hand": st.Hand, "rank": st.Rank})
	if err != nil {
		return Outcome{}, err
	}
	state, err := encode(st)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Raw: raw, Multiplier: mult, Finished: finished, State: state}
	if finished {
		out.Credit = mult
	}
	return out, nil
}

func (g *Poker) Cashout(state json.RawMessage) (decimal.Decimal, error) {
	var st PokerState
	if err := decodeState(state, &st); err != nil {
		return decimal.Zero, err
	}
	return g.payouts[Evaluate(st.Hand)], nil
}

func (g *Poker) Forfeit(state json.RawMessage) decimal.Decimal {
	mult, err := g.Cashout(state)
	if err != nil {
		return decimal.Zero
	}
	return mult
}

// Evaluate ranks a five card hand.
func Evaluate(hand [handSize]Card) HandRank {
	counts := make(map[int]int, handSize)
	flush := true
	for i, c := range hand {
		counts[c.Rank]++
		if i > 0 && c.Suit != hand[0].Suit {
			flush = false
		}
	}

	groups := make([]int, 0, len(counts))
	for _, n := range counts {
		groups = append(groups, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(groups)))

	straight, aceHigh := false, false
	if len(counts) == handSize {
		ranks := make([]int, 0, handSize)
		for r := range counts {
			ranks = append(ranks, r)
		}
		sort.Ints(ranks)
		switch {
		case ranks[4]-ranks[0] == 4:
			straight = true
		case ranks[0] == 1 && ranks[1] == 10 && ranks[4] == 13:
			straight, aceHigh = true, true
		}
	}

	switch {
	case straight && flush && aceHigh:
		return RoyalFlush
	case straight && flush:
		return StraightFlush
	case groups[0] == 4:
		return FourOfAKind
	case groups[0] == 3 && groups[1] == 2:
		return FullHouse
	case flush:
		return Flush
	case straight:
		return Straight
	case groups[0] == 3:
		return ThreeOfAKind
	case groups[0] == 2 && groups[1] == 2:
		return TwoPair
	case groups[0] == 2:
		for r, n := range counts {
			if n == 2 && (r == 1 || r >= 11) {
				return JacksOrBetter
			}
		}
	}
	return HighCard
}
