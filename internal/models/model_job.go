package models

import "time"

// JobStatus: состояние задачи обучения.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusTraining  JobStatus = "training"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal сообщает, что дальнейших переходов из статуса не будет.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

func (s JobStatus) rank() int {
	switch s {
	case JobStatusPending:
		return 0
	case JobStatusTraining:
		return 1
	case JobStatusSucceeded, JobStatusFailed:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo проверяет, что переход монотонен: pending -> training -> {succeeded | failed}.
// Терминальный статус никогда не перезаписывается, повтор текущего статуса переходом не считается.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s.IsTerminal() || next.rank() < 0 {
		return false
	}
	return next.rank() > s.rank()
}

// ModelJob: запись о задаче обучения персональной модели.
type ModelJob struct {
	JobID      string    `json:"model_id"`              // Идентификатор задачи, выданный провайдером
	UserUID    string    `json:"-"`                     // Владелец
	Name       string    `json:"name"`                  // Глобально уникальное имя модели у провайдера
	CustomName *string   `json:"custom_name,omitempty"` // Отображаемое имя, задаётся пользователем
	Status     JobStatus `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
