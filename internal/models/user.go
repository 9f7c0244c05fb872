// Package models содержит доменные структуры сервиса: пользователя с балансом кредитов,
// задачи обучения моделей, сгенерированные изображения и платёжные события.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	UUID              string    // Уникальный идентификатор пользователя
	Email             string    // Электронная почта (уникальная)
	PasswordHash      string    // Хэш пароля пользователя
	TrainingCredits   int       // Кредиты на обучение моделей
	GenerationCredits int       // Кредиты на генерацию изображений
	CreatedAt         time.Time // Дата регистрации
}

// Credits: текущий баланс пользователя по обоим типам кредитов.
type Credits struct {
	ModelTrainingCredits   int `json:"model_training_credits"`
	ImageGenerationCredits int `json:"image_generation_credits"`
}

// Credits возвращает баланс пользователя.
func (u *User) Credits() Credits {
	return Credits{
		ModelTrainingCredits:   u.TrainingCredits,
		ImageGenerationCredits: u.GenerationCredits,
	}
}
