// Package craigslist fetches Craigslist search pages and extracts scored listings from them.
package craigslist

import (
	"fmt"

	"github.com/dealio/dealio/pkg/listing"
)

// DefaultUserAgent identifies requests as a desktop browser.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Category pairs a listing category with its Craigslist search code.
type Category struct {
	Name listing.Category `yaml:"name"`
	Code string           `yaml:"code"`
}

// DefaultMarkets are the city sub-sites searched by default.
func DefaultMarkets() []string {
	return []string{
		"newyork", "losangeles", "chicago", "houston", "phoenix",
		"philadelphia", "sanantonio", "sandiego", "dallas", "sanjose",
	}
}

// DefaultCategories maps each listing category to its search code.
func DefaultCategories() []Category {
	return []Category{
		{Name: listing.Electronics, Code: "ela"},
		{Name: listing.Furniture, Code: "fua"},
		{Name: listing.General, Code: "sss"},
		{Name: listing.Automotive, Code: "cta"},
	}
}

// BaseURL is the root of a market's sub-site.
func BaseURL(market string) string {
	return fmt.Sprintf("https://%s.craigslist.org", market)
}

// SearchURL is the first page of search results for a category code.
func SearchURL(market, code string) string {
	return fmt.Sprintf("%s/search/%s", BaseURL(market), code)
}

// FeedURL is the RSS variant of SearchURL.
func FeedURL(market, code string) string {
	return SearchURL(market, code) + "?format=rss"
}
