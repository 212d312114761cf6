// Package orders is the HTTP client for the ordering backend. The
// support engine only reads order state; orders are placed elsewhere.
package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/resto-ai/support-engine/internal/tool"
	"github.com/resto-ai/support-engine/pkg/logger"
)

// Client looks up orders in the ordering backend over HTTP.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates an order lookup client.
func NewClient(baseURL, apiToken string, log *logger.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: log,
	}
}

// LookupOrder fetches an order snapshot by its order number.
func (c *Client) LookupOrder(ctx context.Context, orderNumber string) (*tool.Order, error) {
	url := fmt.Sprintf("%s/api/orders/%s", c.baseURL, orderNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("order backend unreachable",
			zap.String("order_number", orderNumber), zap.Error(err))
		return nil, fmt.Errorf("order backend unavailable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("order %s does not exist", orderNumber)
	default:
		return nil, fmt.Errorf("order backend returned %d", resp.StatusCode)
	}

	var order tool.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	return &order, nil
}
