// Package generation генерирует изображения по промпту на обученной модели пользователя.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/magabrotheeeer/portrait-studio/internal/common"
	"github.com/magabrotheeeer/portrait-studio/internal/gateway/replicate"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/sl"
	"github.com/magabrotheeeer/portrait-studio/internal/metrics"
	"github.com/magabrotheeeer/portrait-studio/internal/models"
)

// Фиксированные параметры генерации.
const (
	NegativePrompt    = "blurry, distorted, low quality, low resolution"
	NumInferenceSteps = 28
	GuidanceScale     = 3.5
	MaxPromptLength   = 2000

	defaultRehostTimeout = 30 * time.Second
)

// Gateway: часть API провайдера для генерации.
type Gateway interface {
	GetLatestVersion(ctx context.Context, owner, name string) (string, error)
	CreatePrediction(ctx context.Context, version string, in replicate.PredictionInput) (string, error)
	GetPrediction(ctx context.Context, id string) (replicate.Prediction, error)
}

// Ledger списывает кредит генерации вместе с сохранением изображения.
type Ledger interface {
	HasGenerationCredit(ctx context.Context, userUID string) (bool, error)
	CommitGeneration(ctx context.Context, img models.GeneratedImage) (models.GeneratedImage, error)
}

// Jobs ищет задачу обучения пользователя.
type Jobs interface {
	GetModelJob(ctx context.Context, userUID, jobID string) (models.ModelJob, error)
}

// Cache хранит идентификаторы версий моделей.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Rehoster перекладывает результат в собственное хранилище.
type Rehoster interface {
	Rehost(ctx context.Context, userUID, sourceURL string) (string, error)
}

// Config: параметры генерации.
type Config struct {
	Owner         string
	PollInterval  time.Duration
	Timeout       time.Duration
	RehostTimeout time.Duration
	VersionTTL    time.Duration
}

// Result: итог генерации: сохранённое изображение и все ссылки на результаты.
type Result struct {
	Image   models.GeneratedImage `json:"image"`
	Outputs []string              `json:"outputs"`
}

// Service: оркестратор генерации.
type Service struct {
	log      *slog.Logger
	gateway  Gateway
	ledger   Ledger
	jobs     Jobs
	cache    Cache
	rehoster Rehoster
	metrics  *metrics.Metrics
	cfg      Config
	now      func() time.Time
}

// New создаёт оркестратор. cache и rehoster могут быть nil.
func New(log *slog.Logger, gateway Gateway, ledger Ledger, jobs Jobs, cache Cache, rehoster Rehoster, m *metrics.Metrics, cfg Config) *Service {
	return &Service{
		log:      log,
		gateway:  gateway,
		ledger:   ledger,
		jobs:     jobs,
		cache:    cache,
		rehoster: rehoster,
		metrics:  m,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Generate создаёт изображение по prompt на модели modelID пользователя.
//
// Кредит списывается только после успешного завершения генерации, вместе с
// сохранением изображения. Отказ провайдера или пустой результат дают
// common.ErrGenerationFailed без списания.
func (s *Service) Generate(ctx context.Context, userUID, modelID, prompt string) (Result, error) {
	const op = "generation.Generate"
	log := s.log.With(sl.Op(op), slog.String("user_uid", userUID), slog.String("model_id", modelID))

	ok, err := s.ledger.HasGenerationCredit(ctx, userUID)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		s.metrics.Generations.WithLabelValues(metrics.OutcomeRejected).Inc()
		return Result{}, fmt.Errorf("%s: %w", op, common.ErrInsufficientCredit)
	}

	job, err := s.jobs.GetModelJob(ctx, userUID, modelID)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	switch job.Status {
	case models.JobStatusSucceeded:
	case models.JobStatusFailed:
		return Result{}, fmt.Errorf("%s: %w: %w", op, common.ErrNotReady, common.ErrTrainingFailed)
	default:
		return Result{}, fmt.Errorf("%s: model is %s: %w", op, job.Status, common.ErrNotReady)
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" || utf8.RuneCountInString(prompt) > MaxPromptLength {
		return Result{}, fmt.Errorf("%s: %w: prompt must be 1 to %d characters", op, common.ErrValidation, MaxPromptLength)
	}

	predictionID, err := s.createPrediction(ctx, job.Name, replicate.PredictionInput{
		Prompt:            prompt,
		NegativePrompt:    NegativePrompt,
		NumInferenceSteps: NumInferenceSteps,
		GuidanceScale:     GuidanceScale,
	})
	if err != nil {
		s.metrics.Generations.WithLabelValues(metrics.OutcomeFailed).Inc()
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	log = log.With(slog.String("prediction_id", predictionID))

	// Генерация уже запущена: дальше работаем независимо от клиента.
	// Timeout ограничивает только ожидание результата.
	detached := context.WithoutCancel(ctx)
	waitCtx, cancel := context.WithTimeout(detached, s.cfg.Timeout)
	outputs, err := s.wait(waitCtx, predictionID)
	cancel()
	if err != nil {
		s.metrics.Generations.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.Warn("generation failed", sl.Err(err))
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	outputs = s.rehost(detached, log, userUID, outputs)

	img, err := s.ledger.CommitGeneration(detached, models.GeneratedImage{
		UserUID:   userUID,
		URL:       outputs[0],
		Prompt:    prompt,
		ModelName: job.Name,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		s.metrics.Generations.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.Error("image generated but not recorded", sl.Err(err))
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.Generations.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.metrics.CreditsDebited.WithLabelValues("generation").Inc()
	log.Info("image generated", slog.Int64("image_id", img.ID))
	return Result{Image: img, Outputs: outputs}, nil
}

// createPrediction запускает генерацию на последней версии модели. Если провайдер
// не принял версию из кеша, ключ сбрасывается: следующий запрос возьмёт свежую версию.
func (s *Service) createPrediction(ctx context.Context, name string, in replicate.PredictionInput) (string, error) {
	version, cached, err := s.latestVersion(ctx, name)
	if err != nil {
		return "", err
	}
	id, err := s.gateway.CreatePrediction(ctx, version, in)
	if err != nil && cached && staleVersion(err) {
		key := s.versionKey(name)
		s.log.Warn("cached model version rejected",
			slog.String("key", key), slog.String("version", version), sl.Err(err))
		if err := s.cache.Invalidate(context.WithoutCancel(ctx), key); err != nil {
			s.log.Warn("failed to drop cached model version", slog.String("key", key), sl.Err(err))
		}
	}
	return id, err
}

// staleVersion: провайдер не знает версию или не принимает её.
func staleVersion(err error) bool {
	var gwErr *common.GatewayError
	if !errors.As(err, &gwErr) {
		return false
	}
	return gwErr.StatusCode == http.StatusNotFound || gwErr.StatusCode == http.StatusUnprocessableEntity
}

func (s *Service) versionKey(name string) string {
	return "model_version:" + s.cfg.Owner + "/" + name
}

// latestVersion возвращает версию модели и признак того, что она взята из кеша.
func (s *Service) latestVersion(ctx context.Context, name string) (string, bool, error) {
	if s.cache != nil {
		key := s.versionKey(name)
		var version string
		found, err := s.cache.Get(ctx, key, &version)
		if err != nil {
			s.log.Warn("version cache read failed", slog.String("key", key), sl.Err(err))
		}
		if found && version != "" {
			return version, true, nil
		}
	}
	version, err := s.fetchVersion(ctx, name)
	return version, false, err
}

func (s *Service) fetchVersion(ctx context.Context, name string) (string, error) {
	key := s.versionKey(name)
	version, err := s.gateway.GetLatestVersion(ctx, s.cfg.Owner, name)
	if err != nil {
		return "", err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, version, s.cfg.VersionTTL); err != nil {
			s.log.Warn("failed to cache model version", slog.String("key", key), sl.Err(err))
		}
	}
	return version, nil
}

// wait опрашивает предсказание с интервалом PollInterval до терминального статуса.
func (s *Service) wait(ctx context.Context, id string) ([]string, error) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("timed out after %s: %w", s.cfg.Timeout, common.ErrGenerationFailed)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}

		p, err := s.gateway.GetPrediction(ctx, id)
		if err != nil {
			return nil, err
		}
		switch p.Status {
		case replicate.StatusSucceeded:
			outputs := p.Outputs()
			if len(outputs) == 0 {
				return nil, fmt.Errorf("empty output: %w", common.ErrGenerationFailed)
			}
			return outputs, nil
		case replicate.StatusFailed, replicate.StatusCanceled:
			msg := p.ErrorText()
			if msg == "" {
				msg = p.Status
			}
			return nil, fmt.Errorf("%s: %w", msg, common.ErrGenerationFailed)
		}
	}
}

// rehost перекладывает результаты в своё хранилище не дольше RehostTimeout.
// При сбое остаётся ссылка провайдера.
func (s *Service) rehost(ctx context.Context, log *slog.Logger, userUID string, outputs []string) []string {
	if s.rehoster == nil {
		return outputs
	}
	timeout := s.cfg.RehostTimeout
	if timeout <= 0 {
		timeout = defaultRehostTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	hosted := make([]string, len(outputs))
	for i, src := range outputs {
		url, err := s.rehoster.Rehost(ctx, userUID, src)
		if err != nil {
			log.Warn("rehost failed, keeping provider url", slog.String("url", src), sl.Err(err))
			url = src
		}
		hosted[i] = url
	}
	return hosted
}
