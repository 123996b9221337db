package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rehabplan/rehab-planner-api/internal/models"
)

// ScheduleRunRepository persists completed scheduling runs and their
// assignment rows.
type ScheduleRunRepository struct {
	db *sqlx.DB
}

// NewScheduleRunRepository constructs the repository.
func NewScheduleRunRepository(db *sqlx.DB) *ScheduleRunRepository {
	return &ScheduleRunRepository{db: db}
}

// Save writes the run header and its assignments in one transaction.
func (r *ScheduleRunRepository) Save(ctx context.Context, run *models.ScheduleRun, assignments []models.RunAssignment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule run transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertRun = `INSERT INTO schedule_runs (id, run_date, assignment_count, unscheduled_ids, created_at)
VALUES ($1, $2, $3, $4, $5)`
	if _, err = tx.ExecContext(ctx, insertRun, run.ID, run.Date, run.AssignmentCount, run.UnscheduledIDs, run.CreatedAt); err != nil {
		return fmt.Errorf("insert schedule run: %w", err)
	}

	const insertAssignment = `INSERT INTO schedule_assignments (run_id, patient_id, therapist_id, timeslot, duration_minutes)
VALUES ($1, $2, $3, $4, $5)`
	for _, a := range assignments {
		if _, err = tx.ExecContext(ctx, insertAssignment, a.RunID, a.PatientID, a.TherapistID, a.Timeslot, a.DurationMinutes); err != nil {
			return fmt.Errorf("insert schedule assignment: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule run: %w", err)
	}
	return nil
}

// FindByID loads a run header and its assignment rows.
func (r *ScheduleRunRepository) FindByID(ctx context.Context, id string) (*models.ScheduleRun, []models.RunAssignment, error) {
	const runQuery = `SELECT id, run_date, assignment_count, unscheduled_ids, created_at
FROM schedule_runs WHERE id = $1`
	var run models.ScheduleRun
	if err := r.db.GetContext(ctx, &run, runQuery, id); err != nil {
		return nil, nil, fmt.Errorf("get schedule run: %w", err)
	}

	const assignmentsQuery = `SELECT run_id, patient_id, therapist_id, timeslot, duration_minutes
FROM schedule_assignments WHERE run_id = $1 ORDER BY timeslot, therapist_id`
	var assignments []models.RunAssignment
	if err := r.db.SelectContext(ctx, &assignments, assignmentsQuery, id); err != nil {
		return nil, nil, fmt.Errorf("list schedule assignments: %w", err)
	}
	return &run, assignments, nil
}

// ListByDate returns run headers for one target date, newest first.
func (r *ScheduleRunRepository) ListByDate(ctx context.Context, date string) ([]models.ScheduleRun, error) {
	const query = `SELECT id, run_date, assignment_count, unscheduled_ids, created_at
FROM schedule_runs WHERE run_date = $1 ORDER BY created_at DESC`
	var runs []models.ScheduleRun
	if err := r.db.SelectContext(ctx, &runs, query, date); err != nil {
		return nil, fmt.Errorf("list schedule runs: %w", err)
	}
	return runs, nil
}

// DeleteOlderThan removes runs created before the cutoff; assignment rows go
// with them via ON DELETE CASCADE.
func (r *ScheduleRunRepository) DeleteOlderThan(ctx context.Context, cutoff string) (int64, error) {
	const query = `DELETE FROM schedule_runs WHERE created_at < $1`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old schedule runs: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted schedule runs: %w", err)
	}
	return affected, nil
}
