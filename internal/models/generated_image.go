package models

import "time"

// GeneratedImage: результат успешной генерации. После создания не изменяется.
type GeneratedImage struct {
	ID        int64     `json:"id"`
	UserUID   string    `json:"-"`
	URL       string    `json:"url"`
	Prompt    string    `json:"prompt"`
	ModelName string    `json:"model_name"`
	CreatedAt time.Time `json:"created_at"`
}
