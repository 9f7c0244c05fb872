package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/portrait-studio/internal/models"
)

// CreateGeneratedImage добавляет изображение в историю пользователя и возвращает его ID.
func (s *Storage) CreateGeneratedImage(ctx context.Context, img models.GeneratedImage) (int64, error) {
	const op = "storage.CreateGeneratedImage"
	query := `INSERT INTO generated_images (user_uid, url, prompt, model_name, created_at)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	var id int64
	if err := s.db.QueryRowContext(ctx, query, img.UserUID, img.URL, img.Prompt, img.ModelName, img.CreatedAt).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// ListGeneratedImages возвращает изображения пользователя в порядке создания.
func (s *Storage) ListGeneratedImages(ctx context.Context, userUID string, limit, offset int) ([]models.GeneratedImage, error) {
	const op = "storage.ListGeneratedImages"
	query := `SELECT id, user_uid, url, prompt, model_name, created_at
			  FROM generated_images
			  WHERE user_uid = $1
			  ORDER BY created_at, id
			  LIMIT $2 OFFSET $3`
	rows, err := s.db.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	images := make([]models.GeneratedImage, 0)
	for rows.Next() {
		var img models.GeneratedImage
		if err := rows.Scan(&img.ID, &img.UserUID, &img.URL, &img.Prompt, &img.ModelName, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return images, nil
}
