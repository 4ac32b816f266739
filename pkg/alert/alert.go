// Package alert pushes hot deals to chat and webhook destinations.
package alert

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/dealio/dealio/pkg/listing"
)

// MaxListed caps the listings carried by one notification.
const MaxListed = 5

const defaultTimeout = 10 * time.Second

// Notification is the data sent to alert destinations.
type Notification struct {
	RunID    string            `json:"run_id"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Score    float64           `json:"score"`
	Listings []listing.Listing `json:"listings"`
}

// NewDealNotification summarizes hot deals found by a run. The best
// MaxListed deals are kept, highest score first and cheapest among ties.
func NewDealNotification(runID string, deals []listing.Listing, threshold float64) *Notification {
	sorted := slices.Clone(deals)
	slices.SortStableFunc(sorted, func(a, b listing.Listing) int {
		if c := cmp.Compare(b.DealScore, a.DealScore); c != 0 {
			return c
		}
		return cmp.Compare(a.Price, b.Price)
	})

	n := &Notification{
		RunID: runID,
		Title: fmt.Sprintf("%d hot deals found", len(deals)),
		Body:  fmt.Sprintf("Listings scoring %.0f or more in the latest scrape.", threshold),
	}
	if len(sorted) > 0 {
		n.Score = sorted[0].DealScore
	}
	if len(sorted) > MaxListed {
		sorted = sorted[:MaxListed]
	}
	n.Listings = sorted
	return n
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return m != nil && len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func postJSON(ctx context.Context, client *http.Client, url string, body []byte, header http.Header) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func formatPrice(p float64) string {
	if p == 0 {
		return "price n/a"
	}
	return fmt.Sprintf("$%.0f", p)
}
