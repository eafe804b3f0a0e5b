package services

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/grandebingo/bingo90-backend/models"
)

const (
	BingoMaxBalls  = 90
	CardRows       = 3
	CardCols       = 9
	NumbersPerCard = 15
	CardsPerSeries = 6
	numbersPerRow  = 5
)

var cardSuffixes = [CardsPerSeries]string{"A", "B", "C", "D", "E", "F"}

func FormatSeriesID(n int) string  { return fmt.Sprintf("%09d", n) }
func FormatPackageID(n int) string { return fmt.Sprintf("PAC%09dA", n) }

// GenerateSeries produces one series of 6 cards for a user. The 90-number
// pool is shuffled and split into six chunks of 15, so across the series
// every number appears on exactly one card.
func GenerateSeries(userID string, seriesIndex int, packageID string) (models.Series, []models.Card) {
	pool := make([]int, BingoMaxBalls)
	for i := range pool {
		pool[i] = i + 1
	}
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return buildSeries(pool, userID, seriesIndex, packageID)
}

func buildSeries(pool []int, userID string, seriesIndex int, packageID string) (models.Series, []models.Card) {
	seriesID := FormatSeriesID(seriesIndex)
	now := time.Now()

	cards := make([]models.Card, 0, CardsPerSeries)
	cardIDs := make([]string, 0, CardsPerSeries)
	for c := 0; c < CardsPerSeries; c++ {
		numbers := append([]int(nil), pool[c*NumbersPerCard:(c+1)*NumbersPerCard]...)
		sort.Ints(numbers)

		card := models.Card{
			ID:         seriesID + cardSuffixes[c],
			SeriesID:   seriesID,
			CardSuffix: cardSuffixes[c],
			UserID:     userID,
			Numbers:    numbers,
			Grid:       buildGrid(numbers),
			Marked:     []int{},
			WonPrizes:  []models.PrizeType{},
			CreatedAt:  now,
		}
		cards = append(cards, card)
		cardIDs = append(cardIDs, card.ID)
	}

	series := models.Series{
		ID:        seriesID,
		PackageID: packageID,
		UserID:    userID,
		CardIDs:   cardIDs,
		CreatedAt: now,
	}
	return series, cards
}

// buildGrid lays 15 sorted numbers on a 3x9 grid, five per row. A number's
// target column is its tens bucket (1-9 -> 0, 80-90 -> 8); when the cell is
// taken the scan continues circularly until a free cell is found. Crowded
// decades can push a number out of its natural column, which no prize rule
// depends on.
func buildGrid(numbers []int) [][]int {
	grid := make([][]int, CardRows)
	for r := range grid {
		grid[r] = make([]int, CardCols)
	}
	for r := 0; r < CardRows; r++ {
		for _, n := range numbers[r*numbersPerRow : (r+1)*numbersPerRow] {
			col := n / 10
			if col > CardCols-1 {
				col = CardCols - 1
			}
			for grid[r][col] != 0 {
				col = (col + 1) % CardCols
			}
			grid[r][col] = n
		}
	}
	return grid
}
