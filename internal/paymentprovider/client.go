// Package paymentprovider: клиент платёжного провайдера: создание сессии оплаты
// и проверка подписи вебхуков.
package paymentprovider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/magabrotheeeer/portrait-studio/internal/common"
)

const maxErrorBody = 4 << 10

// Client обращается к API провайдера по секретному ключу.
type Client struct {
	secretKey  string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент провайдера.
func NewClient(apiURL, secretKey string) *Client {
	return &Client{
		secretKey:  secretKey,
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, form url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.secretKey, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

// CreateCheckoutSession создаёт сессию оплаты одного пакета кредитов.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutSessionRequest) (CheckoutSession, error) {
	const op = "paymentprovider.CreateCheckoutSession"
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price]", params.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	form.Set("client_reference_id", params.UserUID)
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}
	form.Set("metadata[user_uid]", params.UserUID)
	form.Set("metadata[price_id]", params.PriceID)

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/checkout/sessions", form)
	if err != nil {
		return CheckoutSession{}, &common.GatewayError{Op: op, Message: err.Error()}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CheckoutSession{}, &common.GatewayError{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return CheckoutSession{}, &common.GatewayError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return CheckoutSession{}, &common.GatewayError{Op: op, StatusCode: resp.StatusCode, Message: "decode response: " + err.Error()}
	}
	return session, nil
}

func errorMessage(raw []byte, status string) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return status
}
