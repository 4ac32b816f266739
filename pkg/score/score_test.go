package score

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		title string
		price float64
		want  float64
	}{
		{"Sealed New iPhone", 45, 100},
		{"Broken cracked laptop for parts", 3000, 0},
		{"Desk", 0, 50},
		{"Desk", 49.99, 70},
		{"Desk", 50, 65},
		{"Desk", 199.99, 65},
		{"Desk", 200, 60},
		{"Desk", 499, 60},
		{"Desk", 500, 50},
		{"Desk", 2000, 50},
		{"Desk", 2000.01, 40},
		{"Mint condition couch", 100, 75},
		{"Car needs repair", 3000, 20},
		{"Phone and computer bundle", 600, 65},
		{"iPhone 12", 600, 65},
		{"Renewed sofa", 600, 60},
		{"Original sealed unused perfect mint excellent new", 45, 100},
		{"broken damaged parts repair cracked", 600, 0},
	}

	for _, tt := range tests {
		got := Estimate(tt.title, tt.price)
		assert.Equal(t, tt.want, got, "Estimate(%q, %.2f)", tt.title, tt.price)
	}
}

func TestEstimateIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, Estimate("sealed macbook", 300), Estimate("SEALED MacBook", 300))
}

func TestEstimateAlwaysInRange(t *testing.T) {
	titles := []string{
		"",
		"new mint excellent perfect unused sealed original iphone",
		"broken damaged parts repair cracked",
		"Broken new laptop",
		"ordinary chair",
	}
	prices := []float64{
		-100, 0, 0.01, 25, 50, 150, 350, 750, 2500, 1e12,
		math.NaN(), math.Inf(1), math.Inf(-1),
	}

	for _, title := range titles {
		for _, price := range prices {
			got := Estimate(title, price)
			if got < 0 || got > 100 || math.IsNaN(got) {
				t.Errorf("Estimate(%q, %v) = %v; want value in [0, 100]", title, price, got)
			}
		}
	}
}

func TestKeywordSet(t *testing.T) {
	set := NewKeywordSet([]string{"New", "mint"})

	assert.Equal(t, 2, set.Count("Brand NEW in mint shape"))
	assert.Equal(t, 1, set.Count("new new new"))
	assert.Equal(t, 0, set.Count("old"))
	assert.True(t, set.Any("MINT"))
	assert.False(t, set.Any("worn"))
}
