// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/portrait-studio/internal/common"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status: статус запроса ("OK" или "Error").
// Поле Code: машинный код ошибки, например "insufficient_credit".
// Поле Details: подробности ошибки внешнего провайдера.
type Response struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse: структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status  string `json:"status" example:"Error"`
	Error   string `json:"error" example:"invalid request body"`
	Code    string `json:"code,omitempty" example:"insufficient_credit"`
	Details string `json:"details,omitempty"`
}

const (
	// StatusOK: значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError: значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// Машинные коды ошибок.
const (
	CodeInsufficientCredit = "insufficient_credit"
	CodeValidation         = "validation_error"
	CodeNotFound           = "not_found"
	CodeNotReady           = "not_ready"
	CodeConflict           = "already_exists"
	CodeUnauthorized       = "unauthorized"
	CodeGateway            = "gateway_error"
	CodeGenerationFailed   = "generation_failed"
	CodeTrainingFailed     = "training_failed"
	CodeInternal           = "internal_error"
)

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}

// ErrorWithCode возвращает Response с ошибкой, машинным кодом и подробностями.
func ErrorWithCode(code, msg, details string) Response {
	return Response{
		Status:  StatusError,
		Error:   msg,
		Code:    code,
		Details: details,
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s characters", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s characters", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
		Code:   CodeValidation,
	}
}

// FromError сопоставляет доменную ошибку HTTP-статусу и телу ответа.
// Текст внутренних ошибок наружу не отдаётся.
func FromError(err error) (int, Response) {
	var gwErr *common.GatewayError
	switch {
	case errors.Is(err, common.ErrInsufficientCredit):
		return http.StatusPaymentRequired, ErrorWithCode(CodeInsufficientCredit, "insufficient credit", "")
	case errors.Is(err, common.ErrValidation):
		return http.StatusUnprocessableEntity, ErrorWithCode(CodeValidation, validationMessage(err), "")
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, ErrorWithCode(CodeNotFound, "not found", "")
	case errors.Is(err, common.ErrTrainingFailed):
		return http.StatusConflict, ErrorWithCode(CodeTrainingFailed, "model training failed", "")
	case errors.Is(err, common.ErrNotReady):
		return http.StatusConflict, ErrorWithCode(CodeNotReady, "model is not ready", "")
	case errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict, ErrorWithCode(CodeConflict, "already exists", "")
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorWithCode(CodeUnauthorized, "invalid credentials", "")
	case errors.Is(err, common.ErrInvalidSignature):
		return http.StatusBadRequest, ErrorWithCode(CodeUnauthorized, "invalid signature", "")
	case errors.Is(err, common.ErrGenerationFailed):
		return http.StatusBadGateway, ErrorWithCode(CodeGenerationFailed, "generation failed", err.Error())
	case errors.As(err, &gwErr):
		return http.StatusBadGateway, ErrorWithCode(CodeGateway, "external service error", gwErr.Message)
	case errors.Is(err, common.ErrGateway):
		return http.StatusBadGateway, ErrorWithCode(CodeGateway, "external service error", "")
	default:
		return http.StatusInternalServerError, ErrorWithCode(CodeInternal, "internal error", "")
	}
}

// RenderError пишет ответ с ошибкой, статус выбирается по FromError.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := FromError(err)
	render.Status(r, status)
	render.JSON(w, r, resp)
}

// validationMessage возвращает текст после "validation error: ",
// op-префиксы сервисов клиенту не нужны.
func validationMessage(err error) string {
	prefix := common.ErrValidation.Error() + ": "
	msg := err.Error()
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return common.ErrValidation.Error()
}
