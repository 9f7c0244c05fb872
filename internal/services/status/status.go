// Package status опрашивает провайдера о ходе обучения и продвигает статус задачи
// по автомату pending -> training -> {succeeded | failed}.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/portrait-studio/internal/gateway/replicate"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/sl"
	"github.com/magabrotheeeer/portrait-studio/internal/metrics"
	"github.com/magabrotheeeer/portrait-studio/internal/models"
	"github.com/magabrotheeeer/portrait-studio/internal/rabbitmq"
)

// RetryAfter: рекомендуемая пауза клиента между опросами незавершённой задачи.
const RetryAfter = 5 * time.Second

var progressRe = regexp.MustCompile(`(\d+)%\|`)

// Gateway читает состояние обучения у провайдера.
type Gateway interface {
	GetTraining(ctx context.Context, id string) (replicate.Training, error)
}

// Repository: хранилище задач обучения.
type Repository interface {
	GetModelJob(ctx context.Context, userUID, jobID string) (models.ModelJob, error)
	ListModelJobs(ctx context.Context, userUID string) ([]models.ModelJob, error)
	ListActiveModelJobs(ctx context.Context, userUID string) ([]models.ModelJob, error)
	UpdateModelJobStatus(ctx context.Context, jobID string, from, to models.JobStatus) (bool, error)
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// Publisher отправляет уведомление в брокер.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Result: ответ на опрос статуса.
type Result struct {
	JobID         string           `json:"model_id"`
	Status        models.JobStatus `json:"status"`
	Progress      int              `json:"progress"`
	LatestLogLine string           `json:"latest_log_line"`
	Metrics       map[string]any   `json:"metrics,omitempty"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	Error         string           `json:"error,omitempty"`
	RetryAfter    time.Duration    `json:"-"`
}

// Service: опросчик статуса.
type Service struct {
	log       *slog.Logger
	gateway   Gateway
	repo      Repository
	publisher Publisher
	metrics   *metrics.Metrics
}

// New создаёт опросчик. publisher может быть nil, тогда уведомления не отправляются.
func New(log *slog.Logger, gateway Gateway, repo Repository, publisher Publisher, m *metrics.Metrics) *Service {
	return &Service{log: log, gateway: gateway, repo: repo, publisher: publisher, metrics: m}
}

// Poll запрашивает у провайдера состояние задачи пользователя и при допустимом переходе
// сохраняет новый статус. Чужая или неизвестная задача: common.ErrNotFound.
func (s *Service) Poll(ctx context.Context, userUID, jobID string) (Result, error) {
	const op = "status.Poll"
	job, err := s.repo.GetModelJob(ctx, userUID, jobID)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	res, err := s.poll(ctx, job)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// RefreshAll обновляет статусы всех незавершённых задач пользователя и возвращает
// полный список задач. Сбой опроса отдельной задачи не прерывает обновление остальных.
func (s *Service) RefreshAll(ctx context.Context, userUID string) ([]models.ModelJob, error) {
	const op = "status.RefreshAll"
	active, err := s.repo.ListActiveModelJobs(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, job := range active {
		if _, err := s.poll(ctx, job); err != nil {
			s.log.Warn("failed to refresh job status",
				sl.Op(op), slog.String("job_id", job.JobID), sl.Err(err))
		}
	}
	jobs, err := s.repo.ListModelJobs(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return jobs, nil
}

func (s *Service) poll(ctx context.Context, job models.ModelJob) (Result, error) {
	training, err := s.gateway.GetTraining(ctx, job.JobID)
	if err != nil {
		if job.Status.IsTerminal() {
			// Итог уже известен, подробности от провайдера необязательны.
			return Result{JobID: job.JobID, Status: job.Status}, nil
		}
		return Result{}, err
	}

	line := LatestLogLine(training.Logs)
	res := Result{
		JobID:         job.JobID,
		Status:        job.Status,
		Progress:      Progress(line),
		LatestLogLine: line,
		Metrics:       training.Metrics,
		CompletedAt:   training.CompletedAt,
		Error:         training.ErrorText(),
	}

	if next, ok := MapStatus(training.Status); ok && job.Status.CanTransitionTo(next) {
		status, err := s.advance(ctx, job, next)
		if err != nil {
			return Result{}, err
		}
		res.Status = status
	}
	if !res.Status.IsTerminal() {
		res.RetryAfter = RetryAfter
	}
	return res, nil
}

// advance сохраняет переход и возвращает статус, фактически записанный в базе.
func (s *Service) advance(ctx context.Context, job models.ModelJob, next models.JobStatus) (models.JobStatus, error) {
	applied, err := s.repo.UpdateModelJobStatus(ctx, job.JobID, job.Status, next)
	if err != nil {
		return "", err
	}
	if !applied {
		current, err := s.repo.GetModelJob(ctx, job.UserUID, job.JobID)
		if err != nil {
			return "", err
		}
		return current.Status, nil
	}

	s.log.Info("job status changed",
		slog.String("job_id", job.JobID), slog.String("from", string(job.Status)), slog.String("to", string(next)))
	if next.IsTerminal() {
		s.metrics.TrainingFinished.WithLabelValues(string(next)).Inc()
		s.notify(context.WithoutCancel(ctx), job, next)
	}
	return next, nil
}

func (s *Service) notify(ctx context.Context, job models.ModelJob, status models.JobStatus) {
	if s.publisher == nil {
		return
	}
	log := s.log.With(slog.String("job_id", job.JobID))
	user, err := s.repo.GetUser(ctx, job.UserUID)
	if err != nil {
		log.Warn("skip training notification", sl.Err(err))
		return
	}
	event := models.TrainingFinishedEvent{
		UserUID:   job.UserUID,
		Email:     user.Email,
		JobID:     job.JobID,
		ModelName: job.Name,
		Status:    status,
	}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingTrainingFinished, event); err != nil {
		log.Warn("failed to publish training notification", sl.Err(err))
	}
}

// MapStatus переводит статус провайдера в статус задачи.
func MapStatus(gatewayStatus string) (models.JobStatus, bool) {
	switch gatewayStatus {
	case replicate.StatusStarting:
		return models.JobStatusPending, true
	case replicate.StatusProcessing:
		return models.JobStatusTraining, true
	case replicate.StatusSucceeded:
		return models.JobStatusSucceeded, true
	case replicate.StatusFailed, replicate.StatusCanceled:
		return models.JobStatusFailed, true
	default:
		return "", false
	}
}

// LatestLogLine возвращает последнюю завершённую строку лога: предпоследний элемент
// после разбиения по переводу строки, хвост без перевода строки ещё пишется.
func LatestLogLine(logs string) string {
	lines := strings.Split(logs, "\n")
	if len(lines) < 2 {
		return ""
	}
	return strings.TrimRight(lines[len(lines)-2], "\r")
}

// Progress извлекает процент из строки прогресс-бара вида " 42%|####  |". Без совпадения 0.
func Progress(line string) int {
	m := progressRe.FindStringSubmatch(line)
	if m == nil {
		return 0
	}
	p, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return min(p, 100)
}

// AutoSelect возвращает единственную успешно обученную модель, если она ровно одна.
func AutoSelect(jobs []models.ModelJob) *models.ModelJob {
	var selected *models.ModelJob
	for i := range jobs {
		if jobs[i].Status != models.JobStatusSucceeded {
			continue
		}
		if selected != nil {
			return nil
		}
		selected = &jobs[i]
	}
	return selected
}
