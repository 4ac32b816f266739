// Package score rates a listing as a deal from its title and price.
package score

const (
	baseScore = 50.0

	positiveBonus    = 10.0
	negativePenalty  = 20.0
	electronicsBonus = 15.0

	minScore = 0.0
	maxScore = 100.0
)

var (
	positive    = NewKeywordSet(PositiveKeywords)
	negative    = NewKeywordSet(NegativeKeywords)
	electronics = NewKeywordSet(ElectronicsKeywords)
)

// Estimate returns a deal score in [0, 100]. Condition keywords add or
// subtract per match, the price tier applies once, and electronics
// titles get a single boost regardless of how many terms match.
func Estimate(title string, price float64) float64 {
	s := baseScore

	s += positiveBonus * float64(positive.Count(title))
	s -= negativePenalty * float64(negative.Count(title))
	s += priceAdjustment(price)

	if electronics.Any(title) {
		s += electronicsBonus
	}

	return clamp(s)
}

// priceAdjustment rewards cheap listings and penalizes expensive ones.
// A zero price means "not listed" and gets no adjustment.
func priceAdjustment(price float64) float64 {
	switch {
	case price > 0 && price < 50:
		return 20
	case price >= 50 && price < 200:
		return 15
	case price >= 200 && price < 500:
		return 10
	case price > 2000:
		return -10
	}
	return 0
}

func clamp(s float64) float64 {
	if s < minScore {
		return minScore
	}
	if s > maxScore {
		return maxScore
	}
	return s
}
