package services

import "github.com/grandebingo/bingo90-backend/models"

// AccumulatedThreshold is the ball count at or below which a full card is
// tagged ACCUMULATED instead of BINGO.
const AccumulatedThreshold = 40

type WinnerCandidate struct {
	Prize  models.PrizeType
	CardID string
}

// CheckWinners evaluates every card against the drawn balls for the active
// prize step. Pure: no state is touched. Candidates come back in card slice
// order; ranking and tie-breaking belong to the caller.
func CheckWinners(cards []models.Card, drawnBalls []int, step models.PrizeType) []WinnerCandidate {
	drawnSet := make(map[int]bool, len(drawnBalls))
	for _, b := range drawnBalls {
		drawnSet[b] = true
	}

	var winners []WinnerCandidate
	for _, card := range cards {
		switch step {
		case models.PrizeQuadra:
			if hasLineMatch(card.Grid, drawnSet, 4) {
				winners = append(winners, WinnerCandidate{Prize: models.PrizeQuadra, CardID: card.ID})
			}
		case models.PrizeQuina:
			if hasLineMatch(card.Grid, drawnSet, 5) {
				winners = append(winners, WinnerCandidate{Prize: models.PrizeQuina, CardID: card.ID})
			}
		case models.PrizeBingo, models.PrizeAccumulated:
			if markedCount(card, drawnSet) == NumbersPerCard {
				prize := models.PrizeBingo
				if len(drawnBalls) <= AccumulatedThreshold {
					prize = models.PrizeAccumulated
				}
				winners = append(winners, WinnerCandidate{Prize: prize, CardID: card.ID})
			}
		}
	}
	return winners
}

// CardScore ranks cards for presentation only. Full-card steps score by
// marked count; line steps weight the best row heavily so near-lines sort
// ahead of scattered marks.
func CardScore(card models.Card, step models.PrizeType, drawnSet map[int]bool) int {
	total := markedCount(card, drawnSet)
	if step == models.PrizeBingo || step == models.PrizeAccumulated {
		return total
	}

	best := 0
	for _, row := range card.Grid {
		line := 0
		for _, n := range row {
			if n != 0 && drawnSet[n] {
				line++
			}
		}
		if line > best {
			best = line
		}
	}
	return best*100 + total
}

func hasLineMatch(grid [][]int, drawnSet map[int]bool, want int) bool {
	for _, row := range grid {
		matches := 0
		for _, n := range row {
			if n != 0 && drawnSet[n] {
				matches++
			}
		}
		if matches >= want {
			return true
		}
	}
	return false
}

func markedCount(card models.Card, drawnSet map[int]bool) int {
	count := 0
	for _, n := range card.Numbers {
		if drawnSet[n] {
			count++
		}
	}
	return count
}
