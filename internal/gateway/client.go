// Package gateway предоставляет клиент внешнего платёжного шлюза.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Client инкапсулирует HTTP-взаимодействие с платёжным шлюзом.
type Client struct {
	baseURL       string
	clientID      string
	clientSecret  string
	webhookSecret []byte
	httpClient    *retryablehttp.Client
}

// CustomerDetails содержит данные плательщика для создания заказа.
type CustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

// OrderSession описывает созданный заказ шлюза и платёжную сессию.
type OrderSession struct {
	GatewayOrderID   string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id"`
}

// OrderStatus описывает состояние заказа по данным шлюза.
type OrderStatus struct {
	GatewayOrderID string   `json:"order_id"`
	Status         string   `json:"order_status"`
	Amount         int64    `json:"order_amount"`
	Tags           []string `json:"order_tags,omitempty"`
}

type createOrderRequest struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     int64           `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails CustomerDetails `json:"customer_details"`
	ReturnURL       string          `json:"return_url,omitempty"`
	NotifyURL       string          `json:"notify_url,omitempty"`
}

// NewClient создаёт клиент платёжного шлюза по указанному адресу.
func NewClient(baseURL, clientID, clientSecret, webhookSecret string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 3 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = 5 * time.Second

	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		clientID:      clientID,
		clientSecret:  clientSecret,
		webhookSecret: []byte(webhookSecret),
		httpClient:    rc,
	}
}

// CreateOrder создаёт заказ в шлюзе и возвращает платёжную сессию.
func (c *Client) CreateOrder(ctx context.Context, orderID string, amount int64, currency string, customer CustomerDetails, returnURL, notifyURL string) (*OrderSession, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("gateway client not configured")
	}

	body, err := json.Marshal(createOrderRequest{
		OrderID:         orderID,
		OrderAmount:     amount,
		OrderCurrency:   currency,
		CustomerDetails: customer,
		ReturnURL:       returnURL,
		NotifyURL:       notifyURL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pg/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setAuthHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var session OrderSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &session, nil
}

// GetOrderStatus запрашивает состояние заказа в шлюзе.
func (c *Client) GetOrderStatus(ctx context.Context, gatewayOrderID string) (*OrderStatus, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("gateway client not configured")
	}

	url := fmt.Sprintf("%s/pg/orders/%s", c.baseURL, gatewayOrderID)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var status OrderStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &status, nil
}

func (c *Client) setAuthHeaders(req *retryablehttp.Request) {
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-client-secret", c.clientSecret)
}

// VerifyWebhookSignature проверяет подпись вебхука: base64 от HMAC-SHA256
// по конкатенации временной метки и сырого тела запроса. Сравнение
// выполняется за постоянное время.
func (c *Client) VerifyWebhookSignature(timestamp string, rawBody []byte, signature string) bool {
	if len(c.webhookSecret) == 0 || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, c.webhookSecret)
	mac.Write([]byte(timestamp))
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
