// Package mailer предоставляет клиент сервиса транзакционных писем.
// Отправка выполняется по принципу best-effort: ошибки не распространяются.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Client инкапсулирует HTTP-взаимодействие с сервисом рассылки.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type sendRequest struct {
	To           string         `json:"to"`
	Subject      string         `json:"subject"`
	TemplateID   string         `json:"template_id"`
	TemplateData map[string]any `json:"template_data,omitempty"`
}

// NewClient создаёт клиент сервиса рассылки по указанному адресу.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Send отправляет письмо по шаблону. Возвращает false при любой ошибке,
// включая исчерпание повторов; вызывающая сторона решает лишь, логировать ли это.
func (c *Client) Send(ctx context.Context, to, subject, templateID string, data map[string]any) bool {
	if c == nil || c.baseURL == "" || to == "" {
		return false
	}

	body, err := json.Marshal(sendRequest{
		To:           to,
		Subject:      subject,
		TemplateID:   templateID,
		TemplateData: data,
	})
	if err != nil {
		return false
	}

	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/send", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("mailer status: %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
			return fmt.Errorf("mailer status: %d", resp.StatusCode)
		}
		return nil
	})

	return err == nil
}
