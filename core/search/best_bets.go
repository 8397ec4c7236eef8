package search

import "sort"

// BestBetType is the bet type of exact query matches. A matching exact
// bet overrides every stemmed bet of the same query.
const BestBetType = "exact"

// Bet is one best bet entry stored for a query.
type Bet struct {
	// Type is "exact" or "stemmed".
	Type  string
	Best  []RankedLink
	Worst []string
}

// RankedLink is a link promoted to a position, 1 being the top.
type RankedLink struct {
	Link     string `json:"link"`
	Position int    `json:"position"`
}

// BestBets are the links promoted and demoted for one query.
type BestBets struct {
	// Positions maps a position to the links promoted to it.
	Positions map[int][]string
	Worst     []string
}

func (b BestBets) Empty() bool {
	return len(b.Positions) == 0 && len(b.Worst) == 0
}

// SortedPositions returns the promoted positions, top first.
func (b BestBets) SortedPositions() []int {
	positions := make([]int, 0, len(b.Positions))
	for pos := range b.Positions {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	return positions
}

// CombineBets merges the bets matching a query. When an exact bet matched
// only its links are used. A link promoted more than once keeps its best
// position.
func CombineBets(bets []Bet) BestBets {
	var best []RankedLink
	var worst []string

	exact := -1
	for i, bet := range bets {
		if bet.Type == BestBetType {
			exact = i
			break
		}
	}
	if exact >= 0 {
		best, worst = bets[exact].Best, bets[exact].Worst
	} else {
		for _, bet := range bets {
			best = append(best, bet.Best...)
			worst = append(worst, bet.Worst...)
		}
	}

	return BestBets{
		Positions: groupByPosition(best),
		Worst:     uniqueLinks(worst),
	}
}

func groupByPosition(links []RankedLink) map[int][]string {
	sorted := append([]RankedLink(nil), links...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Position != sorted[j].Position {
			return sorted[i].Position < sorted[j].Position
		}
		return sorted[i].Link < sorted[j].Link
	})

	positions := make(map[int][]string)
	seen := make(map[string]struct{}, len(sorted))
	for _, rl := range sorted {
		if _, ok := seen[rl.Link]; ok {
			continue
		}
		seen[rl.Link] = struct{}{}
		positions[rl.Position] = append(positions[rl.Position], rl.Link)
	}
	return positions
}

func uniqueLinks(links []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(links))
	for _, l := range links {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
