package upstox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/trogers1052/stock-screener/internal/models"
)

type placeOrderPayload struct {
	Quantity          int     `json:"quantity"`
	Product           string  `json:"product"`
	Validity          string  `json:"validity"`
	Price             float64 `json:"price"`
	Tag               string  `json:"tag"`
	InstrumentToken   string  `json:"instrument_token"`
	OrderType         string  `json:"order_type"`
	TransactionType   string  `json:"transaction_type"`
	DisclosedQuantity int     `json:"disclosed_quantity"`
	TriggerPrice      float64 `json:"trigger_price"`
	IsAMO             bool    `json:"is_amo"`
}

// PlaceOrder submits a day order and returns the upstream order id
func (c *Client) PlaceOrder(ctx context.Context, order models.OrderRequest) (string, error) {
	payload := placeOrderPayload{
		Quantity:        order.Quantity,
		Product:         order.Product,
		Validity:        "DAY",
		Price:           order.Price,
		Tag:             orderTag,
		InstrumentToken: order.InstrumentKey,
		OrderType:       order.OrderType,
		TransactionType: order.TransactionType,
		TriggerPrice:    order.TriggerPrice,
	}
	if payload.Product == "" {
		payload.Product = "D"
	}
	if payload.OrderType == "" {
		payload.OrderType = "MARKET"
	}

	data, err := c.do(ctx, c.httpClient, http.MethodPost, "/v2/order/place", nil, payload)
	if err != nil {
		return "", err
	}

	var placed struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(data, &placed); err != nil {
		return "", fmt.Errorf("failed to decode order response: %w", err)
	}
	return placed.OrderID, nil
}

// OrderDetails returns the upstream record of one order
func (c *Client) OrderDetails(ctx context.Context, orderID string) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("order_id", orderID)
	return c.get(ctx, c.httpClient, "/v2/order/details", query)
}

// OrderBook returns all of today's orders
func (c *Client) OrderBook(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, c.httpClient, "/v2/order/retrieve-all", nil)
}

// Positions returns the account's short-term positions
func (c *Client) Positions(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, c.httpClient, "/v2/portfolio/short-term-positions", nil)
}

// Profile returns the authenticated user's profile; a successful call is
// how a token is validated
func (c *Client) Profile(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, c.httpClient, "/v2/user/profile", nil)
}
