package craigslist

import (
	"iter"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/dealio/dealio/internal/logger"
	"github.com/dealio/dealio/pkg/listing"
	"github.com/dealio/dealio/pkg/score"
)

// titlePriceRegexp captures the "$450" suffix feed titles carry.
var titlePriceRegexp = regexp.MustCompile(`\s*\$\s*([\d,]+(?:\.\d+)?)\s*$`)

// FeedExtractor parses the RSS variant of a search page (see FeedURL).
type FeedExtractor struct {
	parser *gofeed.Parser
	logger logger.Logger
}

// NewFeedExtractor creates a FeedExtractor.
func NewFeedExtractor(log logger.Logger) *FeedExtractor {
	return &FeedExtractor{parser: gofeed.NewParser(), logger: log}
}

func (e *FeedExtractor) Extract(market string, category listing.Category, document string) iter.Seq[listing.Listing] {
	return func(yield func(listing.Listing) bool) {
		if strings.TrimSpace(document) == "" {
			return
		}

		log := e.logger.With(logger.String("market", market), logger.String("category", string(category)))

		feed, err := e.parser.ParseString(document)
		if err != nil {
			log.Warn("parse search feed", logger.Error(err))
			return
		}
		if len(feed.Items) == 0 {
			log.Warn("no items found")
			return
		}

		for i, entry := range feed.Items {
			l, err := feedItem(market, category, entry)
			if err != nil {
				log.Warn("skipping feed item", logger.Int("index", i), logger.Error(err))
				continue
			}
			if !yield(l) {
				return
			}
		}
	}
}

func feedItem(market string, category listing.Category, entry *gofeed.Item) (listing.Listing, error) {
	title, price := splitTitlePrice(entry.Title)
	if title == "" {
		return listing.Listing{}, errNoTitle
	}

	link := entry.Link
	if link == "" && len(entry.Links) > 0 {
		link = entry.Links[0]
	}
	link = ResolveURL(market, link)

	sourceID := IDFromURL(link)
	if sourceID == "" {
		sourceID = IDFromURL(entry.GUID)
	}
	if sourceID == "" {
		sourceID = FallbackID(title, price)
	}

	return listing.New(
		listing.BuildID(market, category, sourceID),
		title,
		price,
		category,
		score.Estimate(title, price),
		link,
	)
}

// splitTitlePrice separates a trailing "$1,200" from a feed title.
func splitTitlePrice(raw string) (string, float64) {
	raw = strings.TrimSpace(raw)
	m := titlePriceRegexp.FindStringSubmatchIndex(raw)
	if m == nil {
		return raw, 0
	}
	return strings.TrimSpace(raw[:m[0]]), ParsePrice(raw[m[2]:m[3]])
}
