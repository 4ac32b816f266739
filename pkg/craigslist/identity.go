package craigslist

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// UnknownIDPrefix marks source ids derived from content instead of the page.
// Such ids collide for ads sharing title and price, and change when either
// changes, so a re-scraped ad can land under a new id.
const UnknownIDPrefix = "unknown_"

// FallbackID hashes title and price into a source id.
func FallbackID(title string, price float64) string {
	sum := sha256.Sum256([]byte(title + strconv.FormatFloat(price, 'f', -1, 64)))
	return UnknownIDPrefix + hex.EncodeToString(sum[:8])
}

// IDFromURL returns the post id from a listing URL such as
// https://chicago.craigslist.org/chc/ele/d/chicago-ipad/7712345678.html.
// It returns "" for URLs without a /d/ segment.
func IDFromURL(raw string) string {
	if !strings.Contains(raw, "/d/") {
		return ""
	}

	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}

	base := path.Base(p)
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	if base == "" || base == "/" || base == "d" {
		return ""
	}
	return base
}

// ResolveURL makes href absolute against the market's sub-site.
func ResolveURL(market, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}

	base, err := url.Parse(BaseURL(market))
	if err != nil {
		return BaseURL(market) + href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return BaseURL(market) + href
	}
	return base.ResolveReference(ref).String()
}
