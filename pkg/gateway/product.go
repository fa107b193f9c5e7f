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

// ProductClient resolves unit prices from the product service.
type ProductClient struct {
	client  *http.Client
	baseURL string
}

// NewProductClient creates a client against the given base URL. A nil
// http.Client falls back to http.DefaultClient.
func NewProductClient(baseURL string, client *http.Client) *ProductClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &ProductClient{client: client, baseURL: baseURL}
}

var _ order.PriceGateway = (*ProductClient)(nil)

// UnitPrice returns the current unit price for a product. Unlike the stock
// read, an absent value here is a hard failure: an order cannot be priced
// without it.
func (c *ProductClient) UnitPrice(ctx context.Context, productID, token string) (float64, error) {
	ctx, span := otel.AddSpan(ctx, "gateway.UnitPrice",
		attribute.String("product_id", productID))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+productID+"/price", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("product service: %w: %w", order.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("product price GET failed for productId=%s: %s: %w",
			productID, resp.Status, order.ErrUpstream)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("product service: %w: %w", order.ErrUpstream, err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return 0, fmt.Errorf("product price GET failed for productId=%s: empty body: %w",
			productID, order.ErrUpstream)
	}

	var price float64
	if err := json.Unmarshal(body, &price); err != nil {
		return 0, fmt.Errorf("decoding price response: %w", err)
	}
	if price < 0 {
		return 0, fmt.Errorf("product service returned negative price for productId=%s: %w",
			productID, order.ErrUpstream)
	}
	return price, nil
}
