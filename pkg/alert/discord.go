package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Discord sends notifications via Discord webhook.
type Discord struct {
	client     *http.Client
	webhookURL string
	now        func() time.Time
}

// NewDiscord creates a new Discord notifier.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		client:     &http.Client{Timeout: defaultTimeout},
		webhookURL: webhookURL,
		now:        time.Now,
	}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(ctx context.Context, n *Notification) error {
	links := make([]string, 0, len(n.Listings))
	for _, l := range n.Listings {
		links = append(links, fmt.Sprintf("• [%s](%s) %s [%s, %.0f]", l.Title, l.URL, formatPrice(l.Price), l.Category, l.DealScore))
	}

	embed := map[string]any{
		"title":       fmt.Sprintf("🔥 %s", n.Title),
		"description": fmt.Sprintf("**Top score:** %.1f\n\n%s\n\n%s", n.Score, n.Body, strings.Join(links, "\n")),
		"color":       0x2ECC71,
		"timestamp":   d.now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(map[string]any{"embeds": []map[string]any{embed}})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	status, err := postJSON(ctx, d.client, d.webhookURL, body, nil)
	if err != nil {
		return fmt.Errorf("send discord webhook: %w", err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("discord webhook status %d", status)
	}
	return nil
}
