// Package blobstore перекладывает готовые изображения из временного хранилища
// провайдера в собственный S3-совместимый бакет.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/portrait-studio/internal/config"
)

// MaxImageBytes верхняя граница размера скачиваемого изображения.
const MaxImageBytes = 32 << 20

// ErrTooLarge возвращается, если источник больше MaxImageBytes.
var ErrTooLarge = errors.New("image exceeds size limit")

// Uploader часть s3.Client, которой пользуется Store.
type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store кладёт объекты в бакет и отдаёт их публичные адреса.
type Store struct {
	client        Uploader
	httpClient    *http.Client
	bucket        string
	publicBaseURL string
	now           func() time.Time
}

// New создаёт Store поверх s3.Client со статическими ключами.
func New(ctx context.Context, cfg config.S3, httpClient *http.Client) (*Store, error) {
	const op = "blobstore.New"
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewWithClient(client, httpClient, cfg.Bucket, cfg.PublicBaseURL), nil
}

// NewWithClient собирает Store из готового клиента.
func NewWithClient(client Uploader, httpClient *http.Client, bucket, publicBaseURL string) *Store {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Store{
		client:        client,
		httpClient:    httpClient,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           time.Now,
	}
}

// Put загружает объект и возвращает его публичный URL.
func (s *Store) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	const op = "blobstore.Put"
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return s.publicBaseURL + "/" + key, nil
}

// Rehost скачивает изображение по sourceURL и сохраняет его под ключом пользователя.
// JPEG и PNG перекодируются, чтобы отбросить метаданные; прочие форматы сохраняются как есть.
func (s *Store) Rehost(ctx context.Context, userUID, sourceURL string) (string, error) {
	const op = "blobstore.Rehost"
	data, err := s.fetch(ctx, sourceURL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	contentType := http.DetectContentType(data)
	data, ext, err := normalize(data, contentType)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	d := s.now().UTC()
	key := fmt.Sprintf("images/%s/%d/%02d/%s%s", userUID, d.Year(), d.Month(), uuid.New(), ext)
	url, err := s.Put(ctx, key, contentType, data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return url, nil
}

func (s *Store) fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, sourceURL)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxImageBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

func normalize(data []byte, contentType string) ([]byte, string, error) {
	switch contentType {
	case "image/jpeg", "image/png":
	case "image/webp":
		return data, ".webp", nil
	default:
		return data, "", nil
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	default:
		format = "jpeg"
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95})
	}
	if err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}
	ext := ".png"
	if format == "jpeg" {
		ext = ".jpg"
	}
	return buf.Bytes(), ext, nil
}
