package replicate

import (
	"context"
	"net/http"
	"net/url"
)

// CreateTraining запускает обучение и возвращает ID задачи.
func (c *Client) CreateTraining(ctx context.Context, in CreateTrainingRequest) (string, error) {
	const op = "replicate.CreateTraining"
	path := "/v1/models/" + url.PathEscape(in.TrainerOwner) + "/" + url.PathEscape(in.TrainerName) +
		"/versions/" + url.PathEscape(in.TrainerVersion) + "/trainings"
	req, err := c.newRequest(ctx, http.MethodPost, path, in)
	if err != nil {
		return "", &gatewayRequestError{op: op, err: err}
	}
	var t Training
	if err := c.do(op, req, &t); err != nil {
		return "", err
	}
	if t.ID == "" {
		return "", newGatewayError(op, "response has no training id")
	}
	return t.ID, nil
}

// GetTraining возвращает текущее состояние задачи обучения.
func (c *Client) GetTraining(ctx context.Context, id string) (Training, error) {
	const op = "replicate.GetTraining"
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/trainings/"+url.PathEscape(id), nil)
	if err != nil {
		return Training{}, &gatewayRequestError{op: op, err: err}
	}
	var t Training
	if err := c.do(op, req, &t); err != nil {
		return Training{}, err
	}
	return t, nil
}
