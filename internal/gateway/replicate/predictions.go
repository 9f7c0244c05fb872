package replicate

import (
	"context"
	"net/http"
	"net/url"
)

// CreatePrediction запускает генерацию на версии version и возвращает ID предсказания.
func (c *Client) CreatePrediction(ctx context.Context, version string, in PredictionInput) (string, error) {
	const op = "replicate.CreatePrediction"
	body := struct {
		Version string          `json:"version"`
		Input   PredictionInput `json:"input"`
	}{Version: version, Input: in}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/predictions", body)
	if err != nil {
		return "", &gatewayRequestError{op: op, err: err}
	}
	var p Prediction
	if err := c.do(op, req, &p); err != nil {
		return "", err
	}
	if p.ID == "" {
		return "", newGatewayError(op, "response has no prediction id")
	}
	return p.ID, nil
}

// GetPrediction возвращает состояние генерации.
func (c *Client) GetPrediction(ctx context.Context, id string) (Prediction, error) {
	const op = "replicate.GetPrediction"
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/predictions/"+url.PathEscape(id), nil)
	if err != nil {
		return Prediction{}, &gatewayRequestError{op: op, err: err}
	}
	var p Prediction
	if err := c.do(op, req, &p); err != nil {
		return Prediction{}, err
	}
	return p, nil
}
