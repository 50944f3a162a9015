// Package advisor is the HTTP client of the external grouping advisor. The
// advisor receives the pending pool and answers with suggested groups of drop
// IDs; the engine treats them as hints and validates every group itself.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/model/kernel"
)

// DefaultTimeout bounds one advisor call.
const DefaultTimeout = 5 * time.Second

const groupingsPath = "/v1/groupings"

type point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type dropPayload struct {
	ID       string    `json:"id"`
	Pickup   point     `json:"pickup"`
	Delivery point     `json:"delivery"`
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
	Weight   float64   `json:"weight"`
	Volume   float64   `json:"volume"`
	Value    float64   `json:"value"`
	Tier     string    `json:"tier"`
	Priority int       `json:"priority"`
}

type groupingsRequest struct {
	Drops []dropPayload `json:"drops"`
}

type groupingsResponse struct {
	Groups [][]string `json:"groups"`
}

// Client implements ports.AdvisorService over HTTP+JSON.
type Client struct {
	session *http.Client
	url     string
	timeout time.Duration
}

// NewClient creates a client for the advisor at baseURL. A non-positive timeout
// falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("advisor url is empty")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		session: &http.Client{},
		url:     baseURL + groupingsPath,
		timeout: timeout,
	}, nil
}

// SuggestGroupings posts the drops and returns the suggested groups. IDs the
// advisor returns in a malformed form are dropped from their group.
func (c *Client) SuggestGroupings(ctx context.Context, drops []*drop.Drop) ([][]kernel.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(groupingsRequest{Drops: toPayload(drops)})
	if err != nil {
		return nil, fmt.Errorf("encode advisor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.session.Do(req)
	if err != nil {
		return nil, fmt.Errorf("advisor request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("advisor: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var body groupingsResponse
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode advisor response: %w", err)
	}

	groups := make([][]kernel.UUID, 0, len(body.Groups))
	for _, raw := range body.Groups {
		group := make([]kernel.UUID, 0, len(raw))
		for _, s := range raw {
			id, parseErr := kernel.UUIDFromString(s)
			if parseErr != nil {
				continue
			}
			group = append(group, id)
		}
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}

	return groups, nil
}

func toPayload(drops []*drop.Drop) []dropPayload {
	out := make([]dropPayload, 0, len(drops))
	for _, d := range drops {
		out = append(out, dropPayload{
			ID:       d.ID().String(),
			Pickup:   point{Lat: d.Pickup().Lat(), Lng: d.Pickup().Lng()},
			Delivery: point{Lat: d.Delivery().Lat(), Lng: d.Delivery().Lng()},
			Earliest: d.Earliest(),
			Latest:   d.Latest(),
			Weight:   d.Weight(),
			Volume:   d.Volume(),
			Value:    d.Value(),
			Tier:     d.Tier().String(),
			Priority: d.Priority(),
		})
	}
	return out
}
