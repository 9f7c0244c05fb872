// Package common содержит доменные ошибки, общие для сервисов, хранилища и HTTP-слоя.
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientCredit: у пользователя закончились кредиты нужного типа.
	ErrInsufficientCredit = errors.New("insufficient credit")
	// ErrValidation: некорректная форма входных данных (например, количество фото).
	ErrValidation = errors.New("validation error")
	// ErrNotFound: неизвестная модель, задача или пользователь.
	ErrNotFound = errors.New("not found")
	// ErrNotReady: модель ещё не обучена.
	ErrNotReady = errors.New("model is not ready")
	// ErrGateway: внешний провайдер вернул ошибку или недоступен.
	ErrGateway = errors.New("gateway error")
	// ErrTrainingFailed: провайдер сообщил о терминальной ошибке обучения.
	ErrTrainingFailed = errors.New("training failed")
	// ErrGenerationFailed: провайдер сообщил о терминальной ошибке генерации.
	ErrGenerationFailed = errors.New("generation failed")

	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSignature   = errors.New("invalid signature")
)

// GatewayError описывает ответ внешнего провайдера с ошибкой.
// errors.Is(err, ErrGateway) истинно для любого GatewayError.
type GatewayError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: gateway unreachable: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: gateway returned %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return ErrGateway
}
