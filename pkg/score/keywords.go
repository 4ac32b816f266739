package score

import "strings"

// PositiveKeywords signal a listing in good condition.
var PositiveKeywords = []string{
	"new", "mint", "excellent", "perfect", "unused", "sealed", "original",
}

// NegativeKeywords signal a damaged or incomplete item.
var NegativeKeywords = []string{
	"broken", "damaged", "parts", "repair", "cracked",
}

// ElectronicsKeywords mark listings that get the electronics boost.
var ElectronicsKeywords = []string{
	"iphone", "macbook", "laptop", "phone", "computer",
}

// KeywordSet matches lowercase keywords as substrings of a text.
type KeywordSet struct {
	keywords []string
}

// NewKeywordSet lowercases the keywords for case-insensitive matching.
func NewKeywordSet(keywords []string) *KeywordSet {
	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}
	return &KeywordSet{keywords: lowered}
}

// Count returns how many keywords occur in text. Each keyword counts once.
func (k *KeywordSet) Count(text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, kw := range k.keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

// Any reports whether at least one keyword occurs in text.
func (k *KeywordSet) Any(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range k.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
