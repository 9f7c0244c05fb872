package replicate

import (
	"context"
	"net/http"
	"net/url"
)

// CreateModel создаёт модель-назначение для обучения.
// Если модель уже существует, возвращается ErrAlreadyExists.
func (c *Client) CreateModel(ctx context.Context, in CreateModelRequest) error {
	const op = "replicate.CreateModel"
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/models", in)
	if err != nil {
		return &gatewayRequestError{op: op, err: err}
	}
	if err := c.do(op, req, nil); err != nil {
		if IsStatus(err, http.StatusConflict) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetLatestVersion возвращает ID последней версии модели owner/name.
func (c *Client) GetLatestVersion(ctx context.Context, owner, name string) (string, error) {
	const op = "replicate.GetLatestVersion"
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/models/"+url.PathEscape(owner)+"/"+url.PathEscape(name), nil)
	if err != nil {
		return "", &gatewayRequestError{op: op, err: err}
	}
	var m Model
	if err := c.do(op, req, &m); err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return "", ErrVersionNotFound
		}
		return "", err
	}
	if m.LatestVersion == nil || m.LatestVersion.ID == "" {
		return "", ErrVersionNotFound
	}
	return m.LatestVersion.ID, nil
}
