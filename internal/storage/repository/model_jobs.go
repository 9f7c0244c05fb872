package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/portrait-studio/internal/common"
	"github.com/magabrotheeeer/portrait-studio/internal/models"
)

// CreateModelJob добавляет запись о задаче обучения.
func (s *Storage) CreateModelJob(ctx context.Context, job models.ModelJob) error {
	const op = "storage.CreateModelJob"
	query := `INSERT INTO model_jobs (job_id, user_uid, name, custom_name, status, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.db.ExecContext(ctx, query, job.JobID, job.UserUID, job.Name, job.CustomName, job.Status, job.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, common.ErrAlreadyExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

const selectModelJob = `SELECT job_id, user_uid, name, custom_name, status, created_at
			  FROM model_jobs`

type scanner interface {
	Scan(dest ...any) error
}

func scanModelJob(row scanner) (models.ModelJob, error) {
	var (
		job        models.ModelJob
		customName sql.NullString
	)
	if err := row.Scan(&job.JobID, &job.UserUID, &job.Name, &customName, &job.Status, &job.CreatedAt); err != nil {
		return models.ModelJob{}, err
	}
	if customName.Valid {
		job.CustomName = &customName.String
	}
	return job, nil
}

// ListModelJobs возвращает задачи пользователя в порядке создания.
func (s *Storage) ListModelJobs(ctx context.Context, userUID string) ([]models.ModelJob, error) {
	const op = "storage.ListModelJobs"
	return s.listModelJobs(ctx, op, selectModelJob+` WHERE user_uid = $1 ORDER BY created_at, job_id`, userUID)
}

// ListActiveModelJobs возвращает нетерминальные задачи пользователя.
func (s *Storage) ListActiveModelJobs(ctx context.Context, userUID string) ([]models.ModelJob, error) {
	const op = "storage.ListActiveModelJobs"
	return s.listModelJobs(ctx, op,
		selectModelJob+` WHERE user_uid = $1 AND status IN ('pending', 'training') ORDER BY created_at, job_id`, userUID)
}

func (s *Storage) listModelJobs(ctx context.Context, op, query string, args ...any) ([]models.ModelJob, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	jobs := make([]models.ModelJob, 0)
	for rows.Next() {
		job, err := scanModelJob(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return jobs, nil
}

// GetModelJob возвращает задачу пользователя. Чужая задача не видна: common.ErrNotFound.
func (s *Storage) GetModelJob(ctx context.Context, userUID, jobID string) (models.ModelJob, error) {
	const op = "storage.GetModelJob"
	job, err := scanModelJob(s.db.QueryRowContext(ctx, selectModelJob+` WHERE user_uid = $1 AND job_id = $2`, userUID, jobID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ModelJob{}, fmt.Errorf("%s: %w", op, common.ErrNotFound)
		}
		return models.ModelJob{}, fmt.Errorf("%s: %w", op, err)
	}
	return job, nil
}

// UpdateModelJobStatus меняет статус с from на to, только если в базе всё ещё from.
// Возвращает false, если запись уже изменил кто-то другой.
func (s *Storage) UpdateModelJobStatus(ctx context.Context, jobID string, from, to models.JobStatus) (bool, error) {
	const op = "storage.UpdateModelJobStatus"
	query := `UPDATE model_jobs
			  SET status = $3
			  WHERE job_id = $1 AND status = $2`
	res, err := s.db.ExecContext(ctx, query, jobID, from, to)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}

// RenameModelJob задаёт отображаемое имя модели.
func (s *Storage) RenameModelJob(ctx context.Context, userUID, jobID, customName string) error {
	const op = "storage.RenameModelJob"
	query := `UPDATE model_jobs
			  SET custom_name = $3
			  WHERE user_uid = $1 AND job_id = $2`
	res, err := s.db.ExecContext(ctx, query, userUID, jobID, customName)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}
	return nil
}
