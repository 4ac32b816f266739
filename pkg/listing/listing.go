package listing

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// MaxTitleLength is the longest title kept, in characters.
const MaxTitleLength = 255

var (
	ErrEmptyID         = errors.New("listing id is empty")
	ErrEmptyTitle      = errors.New("listing title is empty")
	ErrInvalidPrice    = errors.New("listing price must be a non-negative number")
	ErrScoreOutOfRange = errors.New("deal score must be within [0, 100]")
	ErrUnknownCategory = errors.New("unknown listing category")
)

// Category is one of the fixed listing categories.
type Category string

const (
	Electronics Category = "electronics"
	Furniture   Category = "furniture"
	General     Category = "general"
	Automotive  Category = "automotive"
)

// Categories returns the fixed category list in display order.
func Categories() []Category {
	return []Category{Electronics, Furniture, General, Automotive}
}

// ParseCategory maps a stored or configured name to a Category.
// An empty name is treated as General.
func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return General, nil
	}
	for _, c := range Categories() {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Listing is a scored classified ad as persisted by the store.
type Listing struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Price     float64   `json:"price" db:"price"`
	Category  Category  `json:"category" db:"category"`
	DealScore float64   `json:"deal_score" db:"deal_score"`
	URL       string    `json:"url" db:"url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// New validates its inputs and returns a Listing with the title trimmed
// and truncated to MaxTitleLength. Timestamps are left for the store to set.
func New(id, title string, price float64, category Category, dealScore float64, url string) (Listing, error) {
	if strings.TrimSpace(id) == "" {
		return Listing{}, ErrEmptyID
	}

	title = TruncateTitle(strings.TrimSpace(title))
	if title == "" {
		return Listing{}, ErrEmptyTitle
	}

	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return Listing{}, fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}

	if dealScore < 0 || dealScore > 100 || math.IsNaN(dealScore) {
		return Listing{}, fmt.Errorf("%w: %v", ErrScoreOutOfRange, dealScore)
	}

	cat, err := ParseCategory(string(category))
	if err != nil {
		return Listing{}, err
	}

	return Listing{
		ID:        id,
		Title:     title,
		Price:     price,
		Category:  cat,
		DealScore: dealScore,
		URL:       url,
	}, nil
}

// BuildID joins market, category and source id into the listing key.
func BuildID(market string, category Category, sourceID string) string {
	return fmt.Sprintf("%s_%s_%s", market, category, sourceID)
}

// TruncateTitle cuts s to MaxTitleLength characters.
func TruncateTitle(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxTitleLength {
		return s
	}
	return string(runes[:MaxTitleLength])
}
