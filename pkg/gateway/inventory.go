// Package gateway holds the HTTP clients for the inventory and product
// services. Both forward the caller's bearer credential unmodified.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"orderhub/pkg/order"
	"orderhub/pkg/otel"
)

// InventoryClient calls the inventory service to read and reduce stock.
type InventoryClient struct {
	client  *http.Client
	baseURL string
}

// NewInventoryClient creates a client against the given base URL. A nil
// http.Client falls back to http.DefaultClient.
func NewInventoryClient(baseURL string, client *http.Client) *InventoryClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &InventoryClient{client: client, baseURL: baseURL}
}

var _ order.StockGateway = (*InventoryClient)(nil)

// stockEntry is one inventory record for a product. Deployments that track
// stock per warehouse return several entries; their quantities are summed.
type stockEntry struct {
	Quantity int `json:"quantity"`
}

// AvailableQuantity returns the current stock for a product. The upstream
// answers either a JSON array of stock entries or a bare integer; an empty
// body counts as zero stock rather than an error.
func (c *InventoryClient) AvailableQuantity(ctx context.Context, productID, token string) (int, error) {
	ctx, span := otel.AddSpan(ctx, "gateway.AvailableQuantity",
		attribute.String("product_id", productID))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+productID, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("inventory service: %w: %w", order.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("inventory service returned %s: %w", resp.Status, order.ErrUpstream)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("inventory service: %w: %w", order.ErrUpstream, err)
	}
	return parseQuantity(body)
}

// DecreaseStock re-reads the current quantity, verifies it covers the
// requested amount and writes the reduced absolute quantity back. The check
// here is independent of any availability check done earlier; stock may have
// moved in between.
func (c *InventoryClient) DecreaseStock(ctx context.Context, productID string, quantity int, token string) error {
	ctx, span := otel.AddSpan(ctx, "gateway.DecreaseStock",
		attribute.String("product_id", productID),
		attribute.Int("quantity", quantity))
	defer span.End()

	current, err := c.AvailableQuantity(ctx, productID, token)
	if err != nil {
		return err
	}
	if current < quantity {
		return &order.InsufficientStockError{ProductID: productID}
	}

	payload, err := json.Marshal(struct {
		ProductID   string `json:"productId"`
		NewQuantity int    `json:"newQuantity"`
	}{ProductID: productID, NewQuantity: current - quantity})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("inventory service: %w: %w", order.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("inventory service returned %s: %w", resp.Status, order.ErrUpstream)
	}
	return nil
}

func parseQuantity(body []byte) (int, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return 0, nil
	}
	if body[0] == '[' {
		var entries []stockEntry
		if err := json.Unmarshal(body, &entries); err != nil {
			return 0, fmt.Errorf("decoding inventory response: %w", err)
		}
		total := 0
		for _, e := range entries {
			total += e.Quantity
		}
		return total, nil
	}
	var q int
	if err := json.Unmarshal(body, &q); err != nil {
		return 0, fmt.Errorf("decoding inventory response: %w", err)
	}
	return q, nil
}
