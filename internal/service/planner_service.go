package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rehabplan/rehab-planner-api/internal/dto"
	"github.com/rehabplan/rehab-planner-api/internal/models"
	"github.com/rehabplan/rehab-planner-api/internal/schedule"
	appErrors "github.com/rehabplan/rehab-planner-api/pkg/errors"
)

// ScheduleRunArchive stores completed runs for audit and serves the run
// history. A nil archive is allowed; runs then live in memory only and the
// history endpoints report that persistence is disabled.
type ScheduleRunArchive interface {
	Save(ctx context.Context, run *models.ScheduleRun, assignments []models.RunAssignment) error
	FindByID(ctx context.Context, id string) (*models.ScheduleRun, []models.RunAssignment, error)
	ListByDate(ctx context.Context, date string) ([]models.ScheduleRun, error)
}

type runObserver interface {
	ObserveRun(duration time.Duration, assignments, unscheduled int)
}

// PlannerConfig governs run lifecycle and assigner behaviour.
type PlannerConfig struct {
	AllowRepeatTherapist bool
	RunTTL               time.Duration
	RequirementRules     []string
	DefaultMinutes       int
}

// PlannerService orchestrates the scheduling pipeline: normalization, matrix
// construction, greedy assignment and validation, with per-run session state.
type PlannerService struct {
	normalizer *NormalizerService
	builder    *schedule.Builder
	assigner   *schedule.Assigner
	repo       ScheduleRunArchive
	redis      *redis.Client
	metrics    runObserver
	validator  *validator.Validate
	logger     *zap.Logger
	store      *runStore
	ttl        time.Duration
}

// NewPlannerService wires the planner pipeline. repo, redisClient and metrics
// may be nil; runs then live only in the in-process store.
func NewPlannerService(
	normalizer *NormalizerService,
	repo ScheduleRunArchive,
	redisClient *redis.Client,
	metrics runObserver,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg PlannerConfig,
) *PlannerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 2 * time.Hour
	}
	if cfg.DefaultMinutes <= 0 {
		cfg.DefaultMinutes = schedule.DefaultRequirementMinutes
	}
	if normalizer == nil {
		normalizer = NewNormalizerService(logger)
	}
	return &PlannerService{
		normalizer: normalizer,
		builder:    schedule.NewBuilder(parseRequirementRules(cfg.RequirementRules), cfg.DefaultMinutes),
		assigner:   schedule.NewAssigner(schedule.AssignerOptions{AllowRepeatTherapistPerPatient: cfg.AllowRepeatTherapist}),
		repo:       repo,
		redis:      redisClient,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		store:      newRunStore(cfg.RunTTL),
		ttl:        cfg.RunTTL,
	}
}

// BuildMatrices normalizes the raw records, derives the constraint matrices
// and opens a new run around them.
func (s *PlannerService) BuildMatrices(ctx context.Context, req dto.BuildMatricesRequest) (*dto.BuildMatricesResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid build matrices payload")
	}

	therapists, err := s.normalizer.NormalizeTherapists(req.Therapists)
	if err != nil {
		return nil, err
	}
	patients, err := s.normalizer.NormalizePatients(req.Patients)
	if err != nil {
		return nil, err
	}
	shifts, err := s.normalizer.ResolveShifts(req.Date, req.Shifts)
	if err != nil {
		return nil, err
	}

	run := plannerRun{
		ID:        uuid.NewString(),
		Date:      req.Date,
		Matrices:  s.builder.BuildMatrices(therapists, patients, shifts),
		CreatedAt: time.Now().UTC(),
	}
	s.store.Save(run)
	s.mirrorRun(ctx, run)

	s.logger.Info("constraint matrices built",
		zap.String("runId", run.ID),
		zap.String("date", run.Date),
		zap.Int("patients", len(patients)),
		zap.Int("therapists", len(therapists)))

	return &dto.BuildMatricesResponse{
		RunID:     run.ID,
		Date:      run.Date,
		Matrices:  run.Matrices,
		ExpiresAt: run.CreatedAt.Add(s.ttl),
	}, nil
}

// GetMatrices returns a stored run's matrices.
func (s *PlannerService) GetMatrices(ctx context.Context, runID string) (*models.ConstraintMatrices, error) {
	run, err := s.loadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return run.Matrices, nil
}

// PatchAvailability flips one cell of a run's matrices so the next scheduling
// pass sees the edit. Availability cells only accept 0 or 1.
func (s *PlannerService) PatchAvailability(ctx context.Context, runID string, req dto.PatchMatrixRequest) (*models.ConstraintMatrices, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid matrix patch payload")
	}

	run, err := s.loadRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	// Edit a copy and swap it in whole, so a concurrent scheduling pass
	// reading the stored matrices never sees a half-applied patch.
	matrices := run.Matrices.Clone()

	var target [][]int
	switch req.Matrix {
	case "patient_availability":
		target = matrices.PatientAvailability
	case "therapist_availability":
		target = matrices.TherapistAvailability
	case "compatibility":
		target = matrices.Compatibility
	}
	if req.Matrix != "compatibility" && req.Value > 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "availability cells accept 0 or 1")
	}
	if req.Matrix == "compatibility" && req.Value != 0 && (req.Value < schedule.ScoreFloor || req.Value > schedule.ScoreCeiling) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("compatibility cells accept 0 or %d-%d", schedule.ScoreFloor, schedule.ScoreCeiling))
	}
	if req.Row >= len(target) || req.Col >= len(target[0]) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("cell (%d,%d) outside %s bounds", req.Row, req.Col, req.Matrix))
	}

	target[req.Row][req.Col] = req.Value
	run.Matrices = matrices
	s.store.Save(*run)
	s.mirrorRun(ctx, *run)
	return matrices, nil
}

// ScheduleRun executes the greedy pass over a stored run's matrices. Each
// call produces a brand-new schedule; earlier ones are replaced, not patched.
func (s *PlannerService) ScheduleRun(ctx context.Context, runID string) (*dto.ScheduleResponse, error) {
	run, err := s.loadRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	result := s.runAssigner(run.Matrices, run.Date)
	run.Schedule = result.Schedule
	s.store.Save(*run)
	s.mirrorRun(ctx, *run)
	s.persistRun(ctx, runID, result.Schedule)

	result.RunID = runID
	return result, nil
}

// ScheduleStateless runs the assigner over caller-supplied matrices without
// touching the run store.
func (s *PlannerService) ScheduleStateless(ctx context.Context, req dto.ScheduleRequest) (*dto.ScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if err := checkMatricesShape(req.Matrices); err != nil {
		return nil, err
	}
	return s.runAssigner(req.Matrices, req.Date), nil
}

// Validate re-checks a schedule against matrices. Violations are data.
func (s *PlannerService) Validate(ctx context.Context, req dto.ValidateRequest) (models.ValidationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.ValidationResult{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid validate payload")
	}
	if err := checkMatricesShape(req.Matrices); err != nil {
		return models.ValidationResult{}, err
	}
	return schedule.Validate(req.Schedule, req.Matrices), nil
}

// ScheduledRun exposes a run's schedule and matrices for export rendering.
func (s *PlannerService) ScheduledRun(ctx context.Context, runID string) (*models.Schedule, *models.ConstraintMatrices, error) {
	run, err := s.loadRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	if run.Schedule == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "run has no schedule yet")
	}
	return run.Schedule, run.Matrices, nil
}

// RunHistory lists persisted runs for one target date, newest first.
func (s *PlannerService) RunHistory(ctx context.Context, date string) ([]models.ScheduleRun, error) {
	if s.repo == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "run history requires persistence to be enabled")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}
	runs, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule runs")
	}
	return runs, nil
}

// ArchivedRun loads one persisted run with its assignment rows.
func (s *PlannerService) ArchivedRun(ctx context.Context, runID string) (*models.ScheduleRun, []models.RunAssignment, error) {
	if s.repo == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "run history requires persistence to be enabled")
	}
	if runID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "run id is required")
	}
	run, assignments, err := s.repo.FindByID(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "run not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule run")
	}
	return run, assignments, nil
}

func (s *PlannerService) runAssigner(m *models.ConstraintMatrices, date string) *dto.ScheduleResponse {
	started := time.Now()
	sched := s.assigner.Schedule(m)
	sched.Date = date
	elapsed := time.Since(started)

	if s.metrics != nil {
		s.metrics.ObserveRun(elapsed, len(sched.Assignments), len(sched.UnscheduledPatients))
	}
	s.logger.Info("schedule produced",
		zap.String("date", date),
		zap.Int("assignments", len(sched.Assignments)),
		zap.Int("unscheduled", len(sched.UnscheduledPatients)),
		zap.Duration("elapsed", elapsed))

	return &dto.ScheduleResponse{
		Schedule:   sched,
		Validation: schedule.Validate(sched, m),
	}
}

func (s *PlannerService) loadRun(ctx context.Context, runID string) (*plannerRun, error) {
	if runID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "run id is required")
	}
	if run, ok := s.store.Get(runID); ok {
		return &run, nil
	}
	if run, ok := s.restoreRun(ctx, runID); ok {
		s.store.Save(run)
		return &run, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "run not found or expired")
}

// persistRun writes a completed run through the repository. Persistence is
// best effort; a storage fault must not fail the scheduling request.
func (s *PlannerService) persistRun(ctx context.Context, runID string, sched *models.Schedule) {
	if s.repo == nil {
		return
	}
	record := &models.ScheduleRun{
		ID:              runID,
		Date:            sched.Date,
		AssignmentCount: len(sched.Assignments),
		UnscheduledIDs:  strings.Join(sched.UnscheduledPatients, ","),
		CreatedAt:       time.Now().UTC(),
	}
	assignments := make([]models.RunAssignment, 0, len(sched.Assignments))
	for _, a := range sched.Assignments {
		assignments = append(assignments, models.RunAssignment{
			RunID:           runID,
			PatientID:       a.PatientID,
			TherapistID:     a.TherapistID,
			Timeslot:        a.Timeslot,
			DurationMinutes: a.DurationMinutes,
		})
	}
	if err := s.repo.Save(ctx, record, assignments); err != nil {
		s.logger.Warn("failed to persist schedule run", zap.String("runId", runID), zap.Error(err))
	}
}

// mirrorRun copies the run into Redis so it survives a process restart. The
// in-process store stays the source of truth.
func (s *PlannerService) mirrorRun(ctx context.Context, run plannerRun) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(run)
	if err != nil {
		s.logger.Warn("failed to encode run for cache", zap.String("runId", run.ID), zap.Error(err))
		return
	}
	if err := s.redis.Set(ctx, runCacheKey(run.ID), payload, s.ttl).Err(); err != nil {
		s.logger.Warn("failed to mirror run to cache", zap.String("runId", run.ID), zap.Error(err))
	}
}

func (s *PlannerService) restoreRun(ctx context.Context, runID string) (plannerRun, bool) {
	if s.redis == nil {
		return plannerRun{}, false
	}
	payload, err := s.redis.Get(ctx, runCacheKey(runID)).Bytes()
	if err != nil {
		return plannerRun{}, false
	}
	var run plannerRun
	if err := json.Unmarshal(payload, &run); err != nil {
		s.logger.Warn("failed to decode cached run", zap.String("runId", runID), zap.Error(err))
		return plannerRun{}, false
	}
	return run, true
}

func runCacheKey(runID string) string {
	return "planner:run:" + runID
}

// parseRequirementRules turns "marker=minutes" entries into rules, skipping
// anything malformed.
func parseRequirementRules(raw []string) []schedule.RequirementRule {
	if len(raw) == 0 {
		return nil
	}
	rules := make([]schedule.RequirementRule, 0, len(raw))
	for _, entry := range raw {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		marker := strings.TrimSpace(parts[0])
		var minutes int
		if _, err := fmt.Sscanf(strings.TrimSpace(parts[1]), "%d", &minutes); err != nil || marker == "" || minutes <= 0 {
			continue
		}
		rules = append(rules, schedule.RequirementRule{Marker: marker, Minutes: minutes})
	}
	if len(rules) == 0 {
		return nil
	}
	return rules
}

func checkMatricesShape(m *models.ConstraintMatrices) error {
	patients := len(m.PatientIDs)
	therapists := len(m.TherapistIDs)
	slots := len(m.Timeslots)
	if patients == 0 || therapists == 0 || slots == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "matrices require patient, therapist and timeslot id lists")
	}
	if len(m.PatientAvailability) != patients || len(m.Requirements) != patients || len(m.Compatibility) != patients {
		return appErrors.Clone(appErrors.ErrValidation, "patient-indexed matrices do not match patient_ids")
	}
	if len(m.TherapistAvailability) != therapists {
		return appErrors.Clone(appErrors.ErrValidation, "therapist_availability does not match therapist_ids")
	}
	for _, row := range m.PatientAvailability {
		if len(row) != slots {
			return appErrors.Clone(appErrors.ErrValidation, "patient_availability row width does not match timeslots")
		}
	}
	for _, row := range m.TherapistAvailability {
		if len(row) != slots {
			return appErrors.Clone(appErrors.ErrValidation, "therapist_availability row width does not match timeslots")
		}
	}
	for _, row := range m.Compatibility {
		if len(row) != therapists {
			return appErrors.Clone(appErrors.ErrValidation, "compatibility row width does not match therapist_ids")
		}
	}
	return nil
}

// --- Run store ---

// plannerRun is the session state of one scheduling run.
type plannerRun struct {
	ID        string                     `json:"id"`
	Date      string                     `json:"date"`
	Matrices  *models.ConstraintMatrices `json:"matrices"`
	Schedule  *models.Schedule           `json:"schedule,omitempty"`
	CreatedAt time.Time                  `json:"created_at"`
}

type runStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]plannerRun
}

func newRunStore(ttl time.Duration) *runStore {
	return &runStore{
		ttl:   ttl,
		items: make(map[string]plannerRun),
	}
}

func (s *runStore) Save(run plannerRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[run.ID] = run
}

func (s *runStore) Get(id string) (plannerRun, bool) {
	s.mu.RLock()
	run, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return plannerRun{}, false
	}
	if time.Since(run.CreatedAt) > s.ttl {
		s.Delete(id)
		return plannerRun{}, false
	}
	return run, true
}

func (s *runStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
