// Package replicate: HTTP-клиент внешнего API обучения и генерации: модели,
// загрузка файлов, задачи обучения и предсказания.
package replicate

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

	"github.com/magabrotheeeer/portrait-studio/internal/common"
)

// Ошибки, которые вызывающий код различает через errors.Is.
var (
	// ErrAlreadyExists: модель с таким именем уже создана (HTTP 409).
	ErrAlreadyExists = fmt.Errorf("replicate: %w", common.ErrAlreadyExists)
	// ErrVersionNotFound: у модели ещё нет опубликованной версии.
	ErrVersionNotFound = fmt.Errorf("replicate: model version: %w", common.ErrNotFound)
)

const maxErrorBody = 4 << 10

// Client обращается к API по токену.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient создаёт клиент. baseURL без завершающего слэша, например https://api.replicate.com.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return nil, err
		}
		r = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do выполняет запрос и декодирует ответ в out. Ответ вне 2xx превращается в *common.GatewayError.
func (c *Client) do(op string, req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &common.GatewayError{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &common.GatewayError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &common.GatewayError{Op: op, StatusCode: resp.StatusCode, Message: "decode response: " + err.Error()}
	}
	return nil
}

// errorMessage достаёт detail/title из тела ошибки, иначе возвращает статус.
func errorMessage(raw []byte, status string) string {
	var body struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.Detail != "":
			return body.Detail
		case body.Title != "":
			return body.Title
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return status
}

// IsStatus сообщает, что err: ответ API с указанным HTTP-кодом.
func IsStatus(err error, code int) bool {
	var gwErr *common.GatewayError
	return errors.As(err, &gwErr) && gwErr.StatusCode == code
}
