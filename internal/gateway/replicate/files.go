package replicate

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
)

// UploadFile загружает архив через multipart-поле "content" и возвращает ссылку на него.
// Тело передаётся потоком, файл целиком в память не читается.
func (c *Client) UploadFile(ctx context.Context, filename string, content io.Reader) (string, error) {
	const op = "replicate.UploadFile"

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("content", filename)
		if err == nil {
			_, err = io.Copy(part, content)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/files", pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return "", &gatewayRequestError{op: op, err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var f File
	if err := c.do(op, req, &f); err != nil {
		_ = pr.CloseWithError(err)
		return "", err
	}
	if f.URLs.Get == "" {
		return "", newGatewayError(op, "response has no urls.get")
	}
	return f.URLs.Get, nil
}
