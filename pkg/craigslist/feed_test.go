package craigslist

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealio/dealio/internal/logger"
	"github.com/dealio/dealio/pkg/listing"
)

const searchFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>craigslist | electronics in chicago</title>
  <link>https://chicago.craigslist.org/search/ela</link>
  <item>
    <title>Sealed New iPhone $45</title>
    <link>https://chicago.craigslist.org/chc/ele/d/chicago-sealed-iphone/7712345678.html</link>
  </item>
  <item>
    <title>Dell monitor &#x0024;1,200</title>
    <link>/chc/ele/d/chicago-dell-monitor/7711111111.html</link>
  </item>
  <item>
    <title>Speaker set</title>
    <guid>https://chicago.craigslist.org/chc/ele/d/chicago-speakers/7722222222.html</guid>
  </item>
  <item>
    <title>  </title>
  </item>
</channel>
</rss>`

func TestFeedExtractor(t *testing.T) {
	e := NewFeedExtractor(logger.NewNop())
	got := slices.Collect(e.Extract("chicago", listing.Electronics, searchFeed))
	require.Len(t, got, 3)

	assert.Equal(t, "chicago_electronics_7712345678", got[0].ID)
	assert.Equal(t, "Sealed New iPhone", got[0].Title)
	assert.Equal(t, 45.0, got[0].Price)
	assert.Equal(t, 100.0, got[0].DealScore)

	assert.Equal(t, "chicago_electronics_7711111111", got[1].ID)
	assert.Equal(t, 1200.0, got[1].Price)
	assert.Equal(t, "https://chicago.craigslist.org/chc/ele/d/chicago-dell-monitor/7711111111.html", got[1].URL)

	assert.Equal(t, "chicago_electronics_7722222222", got[2].ID)
	assert.Equal(t, 0.0, got[2].Price)
}

func TestFeedExtractorInvalidDocuments(t *testing.T) {
	e := NewFeedExtractor(logger.NewNop())

	assert.Empty(t, slices.Collect(e.Extract("chicago", listing.General, "")))
	assert.Empty(t, slices.Collect(e.Extract("chicago", listing.General, "<html><body>nope</body></html>")))
	assert.Empty(t, slices.Collect(e.Extract("chicago", listing.General,
		`<?xml version="1.0"?><rss version="2.0"><channel><title>x</title></channel></rss>`)))
}

func TestSplitTitlePrice(t *testing.T) {
	tests := []struct {
		raw       string
		wantTitle string
		wantPrice float64
	}{
		{"Oak table $150", "Oak table", 150},
		{"Honda Civic $4,500", "Honda Civic", 4500},
		{"Desk lamp $ 12.50 ", "Desk lamp", 12.5},
		{"Free couch", "Free couch", 0},
		{"", "", 0},
	}

	for _, tt := range tests {
		title, price := splitTitlePrice(tt.raw)
		assert.Equal(t, tt.wantTitle, title, tt.raw)
		assert.Equal(t, tt.wantPrice, price, tt.raw)
	}
}
