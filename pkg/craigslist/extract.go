package craigslist

import (
	"errors"
	"iter"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealio/dealio/internal/logger"
	"github.com/dealio/dealio/pkg/listing"
	"github.com/dealio/dealio/pkg/score"
)

var errNoTitle = errors.New("item has no title")

// Extractor turns one fetched page into listings. The sequence is lazy:
// items are converted as they are pulled.
type Extractor interface {
	Extract(market string, category listing.Category, document string) iter.Seq[listing.Listing]
}

// Layout describes the selectors of one version of the search results page.
type Layout struct {
	Name   string
	Items  string
	Titles []string // tried in order
	Price  string
	Link   string // "" means the title element carries the href
}

// DefaultLayouts lists result page layouts, oldest first.
var DefaultLayouts = []Layout{
	{
		Name:   "result-info",
		Items:  ".result-info",
		Titles: []string{".result-title", "a.result-title-link"},
		Price:  ".result-price",
	},
	{
		Name:   "result-row",
		Items:  "li.result-row",
		Titles: []string{".result-title", "a.result-title-link"},
		Price:  ".result-price",
	},
	{
		Name:   "static",
		Items:  "li.cl-static-search-result",
		Titles: []string{".title"},
		Price:  ".price",
		Link:   "a",
	},
}

// HTMLExtractor parses search result pages with goquery.
type HTMLExtractor struct {
	layouts []Layout
	logger  logger.Logger
}

// NewHTMLExtractor uses DefaultLayouts when none are given.
func NewHTMLExtractor(log logger.Logger, layouts ...Layout) *HTMLExtractor {
	if len(layouts) == 0 {
		layouts = DefaultLayouts
	}
	return &HTMLExtractor{layouts: layouts, logger: log}
}

func (e *HTMLExtractor) Extract(market string, category listing.Category, document string) iter.Seq[listing.Listing] {
	return func(yield func(listing.Listing) bool) {
		if strings.TrimSpace(document) == "" {
			return
		}

		log := e.logger.With(logger.String("market", market), logger.String("category", string(category)))

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
		if err != nil {
			log.Warn("parse search page", logger.Error(err))
			return
		}

		items, layout, ok := e.selectItems(doc)
		if !ok {
			log.Warn("no items found")
			return
		}
		log.Debug("selected items", logger.String("layout", layout.Name), logger.Int("items", items.Length()))

		for i := range items.Nodes {
			l, err := parseItem(market, category, layout, items.Eq(i))
			if err != nil {
				if errors.Is(err, errNoTitle) {
					log.Debug("skipping item without title", logger.Int("index", i))
				} else {
					log.Warn("skipping item", logger.Int("index", i), logger.Error(err))
				}
				continue
			}
			if !yield(l) {
				return
			}
		}
	}
}

// selectItems returns the items of the first layout that matches anything.
func (e *HTMLExtractor) selectItems(doc *goquery.Document) (*goquery.Selection, Layout, bool) {
	for _, layout := range e.layouts {
		items := doc.Find(layout.Items)
		if items.Length() > 0 {
			return items, layout, true
		}
	}
	return nil, Layout{}, false
}

func parseItem(market string, category listing.Category, layout Layout, item *goquery.Selection) (listing.Listing, error) {
	titleEl := firstMatch(item, layout.Titles)
	if titleEl == nil {
		return listing.Listing{}, errNoTitle
	}
	title := strings.TrimSpace(titleEl.Text())
	if title == "" {
		return listing.Listing{}, errNoTitle
	}

	price := ParsePrice(item.Find(layout.Price).First().Text())

	linkEl := titleEl
	if layout.Link != "" {
		linkEl = item.Find(layout.Link).First()
	}
	href, _ := linkEl.Attr("href")
	link := ResolveURL(market, href)

	sourceID := postID(item)
	if sourceID == "" {
		sourceID = IDFromURL(link)
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

func firstMatch(item *goquery.Selection, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if found := item.Find(sel).First(); found.Length() > 0 {
			return found
		}
	}
	return nil
}

// postID reads data-pid from the item or, failing that, its parent.
func postID(item *goquery.Selection) string {
	if pid := strings.TrimSpace(item.AttrOr("data-pid", "")); pid != "" {
		return pid
	}
	return strings.TrimSpace(item.Parent().AttrOr("data-pid", ""))
}

// ParsePrice strips "$" and thousands separators. Anything unparseable,
// negative, or non-finite is 0.
func ParsePrice(raw string) float64 {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(raw))
	price, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	if err != nil || price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0
	}
	return price
}
