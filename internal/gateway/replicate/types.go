package replicate

import (
	"encoding/json"
	"strings"
	"time"
)

// Статусы задач обучения и предсказаний на стороне API.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// CreateModelRequest: тело POST /v1/models.
type CreateModelRequest struct {
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Visibility  string `json:"visibility"`
	Hardware    string `json:"hardware"`
}

// Model: описание модели, нужное сервису.
type Model struct {
	Owner         string   `json:"owner"`
	Name          string   `json:"name"`
	LatestVersion *Version `json:"latest_version"`
}

// Version: опубликованная версия модели.
type Version struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// File: загруженный файл.
type File struct {
	ID   string `json:"id"`
	URLs struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// TrainingInput: гиперпараметры LoRA-тренера.
type TrainingInput struct {
	InputImages         string  `json:"input_images"`
	TriggerWord         string  `json:"trigger_word"`
	Steps               int     `json:"steps"`
	LoraRank            int     `json:"lora_rank"`
	Optimizer           string  `json:"optimizer"`
	BatchSize           int     `json:"batch_size"`
	Resolution          string  `json:"resolution"`
	Autocaption         bool    `json:"autocaption"`
	LearningRate        float64 `json:"learning_rate"`
	CaptionDropoutRate  float64 `json:"caption_dropout_rate"`
	CacheLatentsToDisk  bool    `json:"cache_latents_to_disk"`
	WandbProject        string  `json:"wandb_project,omitempty"`
	WandbSaveInterval   int     `json:"wandb_save_interval,omitempty"`
	WandbSampleInterval int     `json:"wandb_sample_interval,omitempty"`
}

// CreateTrainingRequest: задача обучения базовой версии тренера с публикацией в destination.
type CreateTrainingRequest struct {
	TrainerOwner   string        `json:"-"`
	TrainerName    string        `json:"-"`
	TrainerVersion string        `json:"-"`
	Destination    string        `json:"destination"`
	Input          TrainingInput `json:"input"`
}

// Training: состояние задачи обучения.
type Training struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Logs        string          `json:"logs"`
	Metrics     map[string]any  `json:"metrics"`
	Error       json.RawMessage `json:"error"`
	CompletedAt *time.Time      `json:"completed_at"`
}

// ErrorText возвращает текст ошибки задачи или пустую строку.
func (t Training) ErrorText() string {
	return rawText(t.Error)
}

// PredictionInput: параметры генерации изображения.
type PredictionInput struct {
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt,omitempty"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
}

// Prediction: состояние генерации.
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
}

// Outputs нормализует output: API отдаёт либо строку, либо массив строк.
func (p Prediction) Outputs() []string {
	if len(p.Output) == 0 {
		return nil
	}
	var many []string
	if err := json.Unmarshal(p.Output, &many); err == nil {
		return many
	}
	var one string
	if err := json.Unmarshal(p.Output, &one); err == nil && one != "" {
		return []string{one}
	}
	return nil
}

// ErrorText возвращает текст ошибки генерации или пустую строку.
func (p Prediction) ErrorText() string {
	return rawText(p.Error)
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
