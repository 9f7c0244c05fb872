package models

// TrainingFinishedEvent публикуется в очередь уведомлений, когда обучение дошло до терминального статуса.
type TrainingFinishedEvent struct {
	UserUID   string    `json:"user_uid"`
	Email     string    `json:"email"`
	JobID     string    `json:"job_id"`
	ModelName string    `json:"model_name"`
	Status    JobStatus `json:"status"`
}

// CreditsToppedUpEvent публикуется после начисления кредитов по оплате.
type CreditsToppedUpEvent struct {
	UserUID           string `json:"user_uid"`
	Email             string `json:"email"`
	PackName          string `json:"pack_name"`
	TrainingCredits   int    `json:"training_credits"`
	GenerationCredits int    `json:"generation_credits"`
}
