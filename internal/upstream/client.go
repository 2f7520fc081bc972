// Package upstream wraps the warehouse and order REST service this admin
// backend fronts. Every call carries the caller's context and a bearer token;
// payload shapes follow the remote service's conventions, which are uneven
// (some lists arrive enveloped, some bare).
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"stockdesk/backend/internal/domain"
)

var (
	ErrUnavailable      = errors.New("upstream unavailable")
	ErrNotFound         = errors.New("upstream resource not found")
	ErrRejected         = errors.New("upstream rejected the request")
	ErrMalformedPayload = errors.New("upstream returned a malformed payload")
)

// TokenSource supplies the bearer token attached to every upstream request.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource around a fixed credential.
type StaticToken string

func (t StaticToken) Token() (string, error) {
	if t == "" {
		return "", errors.New("upstream token not configured")
	}
	return string(t), nil
}

// API is the slice of the remote service the rest of the backend consumes.
type API interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	WarehouseNames(ctx context.Context) ([]string, error)
	WarehouseDetails(ctx context.Context) ([]domain.Warehouse, error)
	Clients(ctx context.Context) ([]domain.Client, error)
	InventoryItems(ctx context.Context) ([]domain.Item, error)
	SubmitTransfer(ctx context.Context, transfer domain.TransferRequest) error
	CreateOrder(ctx context.Context, order domain.CreateOrderRequest) (domain.CreateOrderResponse, error)
	OrderSummaries(ctx context.Context) ([]domain.OrderSummary, error)
	Order(ctx context.Context, orderID string) (domain.Order, error)
	UpdateDeliveryStatus(ctx context.Context, orderID string, status domain.DeliveryStatus, items []domain.ReturnLine) error
}

type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var payload struct {
		Categories []domain.Category `json:"categories"`
	}
	if err := c.get(ctx, "/api/categories", &payload); err != nil {
		return nil, err
	}
	return payload.Categories, nil
}

func (c *Client) WarehouseNames(ctx context.Context) ([]string, error) {
	var payload struct {
		Data []string `json:"data"`
	}
	if err := c.get(ctx, "/api/warehouses/names", &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

func (c *Client) WarehouseDetails(ctx context.Context) ([]domain.Warehouse, error) {
	var payload struct {
		Data []domain.Warehouse `json:"data"`
	}
	if err := c.get(ctx, "/api/warehouses/details", &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// Clients returns the registered client firms. This endpoint answers with a
// bare array, unlike the enveloped warehouse endpoints.
func (c *Client) Clients(ctx context.Context) ([]domain.Client, error) {
	var clients []domain.Client
	if err := c.get(ctx, "/api/clients", &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

func (c *Client) InventoryItems(ctx context.Context) ([]domain.Item, error) {
	var payload struct {
		Data []domain.Item `json:"data"`
	}
	if err := c.get(ctx, "/api/items", &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

func (c *Client) SubmitTransfer(ctx context.Context, transfer domain.TransferRequest) error {
	return c.send(ctx, http.MethodPost, "/api/inventory/transfers", transfer, nil)
}

func (c *Client) CreateOrder(ctx context.Context, order domain.CreateOrderRequest) (domain.CreateOrderResponse, error) {
	var created domain.CreateOrderResponse
	if err := c.send(ctx, http.MethodPost, "/api/orders", order, &created); err != nil {
		return domain.CreateOrderResponse{}, err
	}
	return created, nil
}

// OrderSummaries lists every order for the status table. The remote service
// answers this endpoint with a bare array; anything else counts as malformed
// rather than as an empty list.
func (c *Client) OrderSummaries(ctx context.Context) ([]domain.OrderSummary, error) {
	raw, err := c.getRaw(ctx, "/api/orders/status")
	if err != nil {
		return nil, err
	}
	var summaries []domain.OrderSummary
	if err := json.Unmarshal(raw, &summaries); err != nil {
		return nil, fmt.Errorf("%w: order status list is not an array", ErrMalformedPayload)
	}
	return summaries, nil
}

func (c *Client) Order(ctx context.Context, orderID string) (domain.Order, error) {
	var order domain.Order
	if err := c.get(ctx, "/api/orders/"+url.PathEscape(orderID), &order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (c *Client) UpdateDeliveryStatus(ctx context.Context, orderID string, status domain.DeliveryStatus, items []domain.ReturnLine) error {
	body := struct {
		DeliveredStatus domain.DeliveryStatus `json:"deliveredStatus"`
		Items           []domain.ReturnLine   `json:"items,omitempty"`
	}{DeliveredStatus: status, Items: items}
	return c.send(ctx, http.MethodPut, "/api/orders/"+url.PathEscape(orderID)+"/delivery-status", body, nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	raw, err := c.getRaw(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	return nil
}
