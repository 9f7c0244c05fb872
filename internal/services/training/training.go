// Package training принимает фотографии пользователя и запускает обучение персональной модели.
package training

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/portrait-studio/internal/common"
	"github.com/magabrotheeeer/portrait-studio/internal/gateway/replicate"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/sl"
	"github.com/magabrotheeeer/portrait-studio/internal/metrics"
	"github.com/magabrotheeeer/portrait-studio/internal/models"
)

// Ограничения на количество фотографий в одной задаче.
const (
	MinImages = 1
	MaxImages = 20
)

// TriggerWord: слово, которым модель обозначает пользователя в промптах.
const TriggerWord = "USER"

// Gateway: часть API провайдера, нужная для запуска обучения.
type Gateway interface {
	CreateModel(ctx context.Context, in replicate.CreateModelRequest) error
	UploadFile(ctx context.Context, filename string, content io.Reader) (string, error)
	CreateTraining(ctx context.Context, in replicate.CreateTrainingRequest) (string, error)
}

// Ledger списывает кредит обучения вместе с сохранением задачи.
type Ledger interface {
	HasTrainingCredit(ctx context.Context, userUID string) (bool, error)
	CommitTraining(ctx context.Context, job models.ModelJob) error
}

// Upload: одна загруженная фотография. Open вызывается один раз при подготовке архива.
type Upload struct {
	Filename    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// Config: параметры провайдера для обучения.
type Config struct {
	Owner          string // Владелец создаваемых моделей
	Hardware       string
	TrainerOwner   string
	TrainerName    string
	TrainerVersion string
	TempDir        string // Каталог для временных файлов, пусто: системный
}

// Service: оркестратор обучения.
type Service struct {
	log     *slog.Logger
	gateway Gateway
	ledger  Ledger
	metrics *metrics.Metrics
	cfg     Config
	now     func() time.Time
	suffix  func() (string, error)
}

// New создаёт оркестратор обучения.
func New(log *slog.Logger, gateway Gateway, ledger Ledger, m *metrics.Metrics, cfg Config) *Service {
	return &Service{
		log:     log,
		gateway: gateway,
		ledger:  ledger,
		metrics: m,
		cfg:     cfg,
		now:     time.Now,
		suffix:  randomSuffix,
	}
}

// Submit запускает обучение по фотографиям uploads.
//
// Порядок: проверка кредита, проверка количества фото, создание модели у провайдера,
// упаковка фото в архив и его загрузка, запуск обучения, затем в одной транзакции
// списание кредита и сохранение задачи со статусом pending. Ошибка до запуска
// обучения ничего не списывает и задачу не создаёт. Временные файлы удаляются всегда.
func (s *Service) Submit(ctx context.Context, userUID string, uploads []Upload) (models.ModelJob, error) {
	const op = "training.Submit"
	log := s.log.With(sl.Op(op), slog.String("user_uid", userUID))

	ok, err := s.ledger.HasTrainingCredit(ctx, userUID)
	if err != nil {
		return models.ModelJob{}, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		s.metrics.TrainingSubmissions.WithLabelValues(metrics.OutcomeRejected).Inc()
		return models.ModelJob{}, fmt.Errorf("%s: %w", op, common.ErrInsufficientCredit)
	}
	if err := validateUploads(uploads); err != nil {
		s.metrics.TrainingSubmissions.WithLabelValues(metrics.OutcomeRejected).Inc()
		return models.ModelJob{}, fmt.Errorf("%s: %w", op, err)
	}

	createdAt := s.now().UTC()
	name, err := s.modelName(createdAt)
	if err != nil {
		return models.ModelJob{}, fmt.Errorf("%s: %w", op, err)
	}
	log = log.With(slog.String("model_name", name))

	jobID, err := s.submit(ctx, name, uploads)
	if err != nil {
		s.metrics.TrainingSubmissions.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.Error("training submission failed", sl.Err(err))
		return models.ModelJob{}, fmt.Errorf("%s: %w", op, err)
	}

	job := models.ModelJob{
		JobID:     jobID,
		UserUID:   userUID,
		Name:      name,
		Status:    models.JobStatusPending,
		CreatedAt: createdAt,
	}
	// Обучение уже запущено у провайдера, обрыв клиента не должен потерять запись о нём.
	if err := s.ledger.CommitTraining(context.WithoutCancel(ctx), job); err != nil {
		s.metrics.TrainingSubmissions.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.Error("training submitted but not recorded", slog.String("job_id", jobID), sl.Err(err))
		return models.ModelJob{}, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.TrainingSubmissions.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.metrics.CreditsDebited.WithLabelValues("training").Inc()
	log.Info("training submitted", slog.String("job_id", jobID), slog.Int("images", len(uploads)))
	return job, nil
}

func (s *Service) submit(ctx context.Context, name string, uploads []Upload) (string, error) {
	err := s.gateway.CreateModel(ctx, replicate.CreateModelRequest{
		Owner:       s.cfg.Owner,
		Name:        name,
		Description: "A fine-tuned FLUX model",
		Visibility:  "private",
		Hardware:    s.cfg.Hardware,
	})
	if err != nil && !errors.Is(err, replicate.ErrAlreadyExists) {
		return "", err
	}

	workDir, err := newWorkDir(s.cfg.TempDir)
	if err != nil {
		return "", err
	}
	defer workDir.Remove(s.log)

	archive, err := workDir.Pack(name, uploads)
	if err != nil {
		return "", err
	}
	f, err := workDir.Open(archive)
	if err != nil {
		return "", err
	}
	defer f.Close()

	inputRef, err := s.gateway.UploadFile(ctx, name+".zip", f)
	if err != nil {
		return "", err
	}

	return s.gateway.CreateTraining(ctx, replicate.CreateTrainingRequest{
		TrainerOwner:   s.cfg.TrainerOwner,
		TrainerName:    s.cfg.TrainerName,
		TrainerVersion: s.cfg.TrainerVersion,
		Destination:    s.cfg.Owner + "/" + name,
		Input:          defaultTrainingInput(inputRef),
	})
}

func defaultTrainingInput(inputRef string) replicate.TrainingInput {
	return replicate.TrainingInput{
		InputImages:         inputRef,
		TriggerWord:         TriggerWord,
		Steps:               1000,
		LoraRank:            16,
		Optimizer:           "adamw8bit",
		BatchSize:           1,
		Resolution:          "512,768,1024",
		Autocaption:         true,
		LearningRate:        0.0004,
		CaptionDropoutRate:  0.05,
		CacheLatentsToDisk:  false,
		WandbProject:        "flux_train_replicate",
		WandbSaveInterval:   100,
		WandbSampleInterval: 100,
	}
}

func validateUploads(uploads []Upload) error {
	if len(uploads) < MinImages || len(uploads) > MaxImages {
		return fmt.Errorf("%w: expected %d to %d images, got %d", common.ErrValidation, MinImages, MaxImages, len(uploads))
	}
	for _, u := range uploads {
		if u.Open == nil {
			return fmt.Errorf("%w: image %q has no content", common.ErrValidation, u.Filename)
		}
		if u.ContentType != "" && !strings.HasPrefix(u.ContentType, "image/") {
			return fmt.Errorf("%w: %q is not an image", common.ErrValidation, u.Filename)
		}
	}
	return nil
}

// modelName строит имя вида fluxmodel-20250301t101500123z-a1b2c3.
// Метка времени даёт порядок, случайный суффикс исключает коллизии в одну миллисекунду.
func (s *Service) modelName(t time.Time) (string, error) {
	suffix, err := s.suffix()
	if err != nil {
		return "", fmt.Errorf("model name suffix: %w", err)
	}
	stamp := t.Format("20060102T150405.000Z")
	stamp = strings.ReplaceAll(stamp, ".", "")
	return strings.ToLower("fluxmodel-" + stamp + "-" + suffix), nil
}

func randomSuffix() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
