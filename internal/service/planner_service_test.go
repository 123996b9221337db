package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehabplan/rehab-planner-api/internal/dto"
	"github.com/rehabplan/rehab-planner-api/internal/models"
	"github.com/rehabplan/rehab-planner-api/internal/schedule"
	appErrors "github.com/rehabplan/rehab-planner-api/pkg/errors"
)

type fakeRunRepo struct {
	savedRun         *models.ScheduleRun
	savedAssignments []models.RunAssignment
	err              error
}

func (f *fakeRunRepo) Save(ctx context.Context, run *models.ScheduleRun, assignments []models.RunAssignment) error {
	if f.err != nil {
		return f.err
	}
	f.savedRun = run
	f.savedAssignments = assignments
	return nil
}

func (f *fakeRunRepo) FindByID(ctx context.Context, id string) (*models.ScheduleRun, []models.RunAssignment, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	if f.savedRun == nil || f.savedRun.ID != id {
		return nil, nil, sql.ErrNoRows
	}
	return f.savedRun, f.savedAssignments, nil
}

func (f *fakeRunRepo) ListByDate(ctx context.Context, date string) ([]models.ScheduleRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.savedRun == nil || f.savedRun.Date != date {
		return nil, nil
	}
	return []models.ScheduleRun{*f.savedRun}, nil
}

type fakeRunObserver struct {
	runs        int
	assignments int
	unscheduled int
}

func (f *fakeRunObserver) ObserveRun(duration time.Duration, assignments, unscheduled int) {
	f.runs++
	f.assignments += assignments
	f.unscheduled += unscheduled
}

func newTestPlanner(repo ScheduleRunArchive, metrics runObserver) *PlannerService {
	return NewPlannerService(nil, repo, nil, metrics, nil, nil, PlannerConfig{
		AllowRepeatTherapist: true,
		RunTTL:               time.Hour,
	})
}

func buildRequestFixture() dto.BuildMatricesRequest {
	return dto.BuildMatricesRequest{
		Date: "2026-04-04",
		Therapists: []dto.TherapistInput{
			{ID: "T001", Name: "山田", Gender: "M", Ward: "3階東病棟"},
			{ID: "T002", Name: "佐藤", Gender: "F", Ward: "4階西病棟"},
		},
		Patients: []dto.PatientInput{
			{ID: "P001", Name: "田中", Ward: "3階東病棟", PrimaryTherapist: "山田", TherapyCategory: "運動器"},
			{ID: "P002", Name: "鈴木", Ward: "4階西病棟", TherapyCategory: "脳血管疾患"},
		},
		Shifts: []dto.ShiftRowInput{
			{TherapistName: "山田", Codes: map[string]string{"4_(土)": "○"}},
			{TherapistName: "佐藤", Codes: map[string]string{"4_(土)": "○"}},
		},
	}
}

func TestPlannerBuildMatricesOpensRun(t *testing.T) {
	svc := newTestPlanner(nil, nil)

	resp, err := svc.BuildMatrices(context.Background(), buildRequestFixture())
	require.NoError(t, err)

	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, "2026-04-04", resp.Date)
	require.NotNil(t, resp.Matrices)
	assert.Equal(t, []string{"P001", "P002"}, resp.Matrices.PatientIDs)
	assert.Equal(t, []string{"T001", "T002"}, resp.Matrices.TherapistIDs)
	assert.Equal(t, []int{120, 180}, resp.Matrices.Requirements)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	stored, err := svc.GetMatrices(context.Background(), resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, resp.Matrices, stored)
}

func TestPlannerBuildMatricesRejectsUnknownWard(t *testing.T) {
	svc := newTestPlanner(nil, nil)
	req := buildRequestFixture()
	req.Patients[0].Ward = "別館病棟"

	_, err := svc.BuildMatrices(context.Background(), req)

	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConstraintInput.Code, appErr.Code)
}

func TestPlannerGetMatricesUnknownRun(t *testing.T) {
	svc := newTestPlanner(nil, nil)

	_, err := svc.GetMatrices(context.Background(), "missing-run")

	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestPlannerPatchAvailabilityFlipsBit(t *testing.T) {
	svc := newTestPlanner(nil, nil)
	built, err := svc.BuildMatrices(context.Background(), buildRequestFixture())
	require.NoError(t, err)

	patched, err := svc.PatchAvailability(context.Background(), built.RunID, dto.PatchMatrixRequest{
		Matrix: "patient_availability",
		Row:    0,
		Col:    0,
		Value:  0,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, patched.PatientAvailability[0][0])

	stored, err := svc.GetMatrices(context.Background(), built.RunID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.PatientAvailability[0][0])
}

func TestPlannerPatchAvailabilityRejectsOutOfBounds(t *testing.T) {
	svc := newTestPlanner(nil, nil)
	built, err := svc.BuildMatrices(context.Background(), buildRequestFixture())
	require.NoError(t, err)

	_, err = svc.PatchAvailability(context.Background(), built.RunID, dto.PatchMatrixRequest{
		Matrix: "therapist_availability",
		Row:    99,
		Col:    0,
		Value:  1,
	})

	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestPlannerPatchAvailabilityRejectsNonBinaryValue(t *testing.T) {
	svc := newTestPlanner(nil, nil)
	built, err := svc.BuildMatrices(context.Background(), buildRequestFixture())
	require.NoError(t, err)

	_, err = svc.PatchAvailability(context.Background(), built.RunID, dto.PatchMatrixRequest{
		Matrix: "patient_availability",
		Row:    0,
		Col:    0,
		Value:  5,
	})

	require.Error(t, err)
}

func TestPlannerPatchCompatibilityEnforcesScoreRange(t *testing.T) {
	svc := newTestPlanner(nil, nil)
	built, err := svc.BuildMatrices(context.Background(), buildRequestFixture())
	require.NoError(t, err)

	patch := func(value int) error {
		_, err := svc.PatchAvailability(context.Background(), built.RunID, dto.PatchMatrixRequest{
			Matrix: "compatibility",
			Row:    0,
			Col:    1,
			Value:  value,
		})
		return err
	}

	require.NoError(t, patch(0), "zero forbids the pairing")
	require.NoError(t, patch(schedule.ScoreCeiling))

	for _, value := range []int{7, schedule.ScoreFloor - 1, schedule.ScoreCeiling + 1, 999} {
		err := patch(value)
		require.Error(t, err)
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	}
}

func TestPlannerPatchAvailabilityLeavesEarlierSnapshotsAlone(t *testing.T) {
	svc := newTestPlanner(nil, nil)
	built, err := svc.BuildMatrices(context.Background(), buildRequestFixture())
	require.NoError(t, err)
	require.Equal(t, 1, built.Matrices.PatientAvailability[0][0])

	patched, err := svc.PatchAvailability(context.Background(), built.RunID, dto.PatchMatrixRequest{
		Matrix: "patient_availability",
		Row:    0,
		Col:    0,
		Value:  0,
	})
	require.NoError(t, err)

	// The patch swaps in a fresh copy; matrices handed out earlier keep
	// their values even while another request is reading them.
	assert.Equal(t, 1, built.Matrices.PatientAvailability[0][0])
	assert.Equal(t, 0, patched.PatientAvailability[0][0])
}

func TestPlannerScheduleRunProducesAndPersists(t *testing.T) {
	repo := &fakeRunRepo{}
	metrics := &fakeRunObserver{}
	svc := newTestPlanner(repo, metrics)

	built, err := svc.BuildMatrices(context.Background(), buildRequestFixture())
	require.NoError(t, err)

	resp, err := svc.ScheduleRun(context.Background(), built.RunID)
	require.NoError(t, err)

	assert.Equal(t, built.RunID, resp.RunID)
	require.NotNil(t, resp.Schedule)
	assert.Equal(t, "2026-04-04", resp.Schedule.Date)
	// Two patients, two full-day therapists: 6 + 9 slots, all satisfiable.
	assert.Len(t, resp.Schedule.Assignments, 15)
	assert.Empty(t, resp.Schedule.UnscheduledPatients)
	assert.True(t, resp.Validation.Valid)

	require.NotNil(t, repo.savedRun)
	assert.Equal(t, built.RunID, repo.savedRun.ID)
	assert.Equal(t, 15, repo.savedRun.AssignmentCount)
	assert.Len(t, repo.savedAssignments, 15)

	assert.Equal(t, 1, metrics.runs)
	assert.Equal(t, 15, metrics.assignments)
}

func TestPlannerRunHistoryServesPersistedRuns(t *testing.T) {
	repo := &fakeRunRepo{}
	svc := newTestPlanner(repo, nil)

	built, err := svc.BuildMatrices(context.Background(), buildRequestFixture())
	require.NoError(t, err)
	_, err = svc.ScheduleRun(context.Background(), built.RunID)
	require.NoError(t, err)

	runs, err := svc.RunHistory(context.Background(), "2026-04-04")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, built.RunID, runs[0].ID)
	assert.Equal(t, 15, runs[0].AssignmentCount)

	run, assignments, err := svc.ArchivedRun(context.Background(), built.RunID)
	require.NoError(t, err)
	assert.Equal(t, built.RunID, run.ID)
	assert.Len(t, assignments, 15)
}

func TestPlannerRunHistoryRejectsBadDate(t *testing.T) {
	svc := newTestPlanner(&fakeRunRepo{}, nil)

	_, err := svc.RunHistory(context.Background(), "04-04-2026")

	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestPlannerArchivedRunNotFound(t *testing.T) {
	svc := newTestPlanner(&fakeRunRepo{}, nil)

	_, _, err := svc.ArchivedRun(context.Background(), "missing-run")

	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestPlannerRunHistoryWithoutPersistence(t *testing.T) {
	svc := newTestPlanner(nil, nil)

	_, err := svc.RunHistory(context.Background(), "2026-04-04")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)

	_, _, err = svc.ArchivedRun(context.Background(), "run-1")
	require.Error(t, err)
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestPlannerScheduleRunSurvivesRepositoryFault(t *testing.T) {
	repo := &fakeRunRepo{err: assert.AnError}
	svc := newTestPlanner(repo, nil)

	built, err := svc.BuildMatrices(context.Background(), buildRequestFixture())
	require.NoError(t, err)

	resp, err := svc.ScheduleRun(context.Background(), built.RunID)
	require.NoError(t, err)
	assert.NotNil(t, resp.Schedule)
}

func TestPlannerEditedMatricesChangeNextRun(t *testing.T) {
	svc := newTestPlanner(nil, nil)
	built, err := svc.BuildMatrices(context.Background(), buildRequestFixture())
	require.NoError(t, err)

	first, err := svc.ScheduleRun(context.Background(), built.RunID)
	require.NoError(t, err)
	assert.Empty(t, first.Schedule.UnscheduledPatients)

	// Strike P002's afternoon: 9 open slots remain against a 9-slot
	// requirement, so the patient still fits exactly.
	for col := 9; col < schedule.SlotCount; col++ {
		_, err = svc.PatchAvailability(context.Background(), built.RunID, dto.PatchMatrixRequest{
			Matrix: "patient_availability",
			Row:    1,
			Col:    col,
			Value:  0,
		})
		require.NoError(t, err)
	}

	second, err := svc.ScheduleRun(context.Background(), built.RunID)
	require.NoError(t, err)
	assert.Empty(t, second.Schedule.UnscheduledPatients)
	for _, a := range second.Schedule.Assignments {
		if a.PatientID != "P002" {
			continue
		}
		start, _, ok := schedule.SlotStart(a.Timeslot)
		require.True(t, ok)
		assert.Less(t, start, 12, "P002 assigned into struck afternoon at %s", a.Timeslot)
	}
}

func TestPlannerScheduleStateless(t *testing.T) {
	svc := newTestPlanner(nil, nil)

	timeslots := schedule.Timeslots()
	avail := make([]int, len(timeslots))
	for i := range avail {
		avail[i] = 1
	}
	m := &models.ConstraintMatrices{
		PatientAvailability:   [][]int{append([]int(nil), avail...)},
		TherapistAvailability: [][]int{append([]int(nil), avail...)},
		Compatibility:         [][]int{{100}},
		Requirements:          []int{120},
		PatientIDs:            []string{"P001"},
		TherapistIDs:          []string{"T001"},
		Timeslots:             timeslots,
	}

	resp, err := svc.ScheduleStateless(context.Background(), dto.ScheduleRequest{Date: "2026-04-04", Matrices: m})
	require.NoError(t, err)
	assert.Empty(t, resp.RunID)
	assert.Len(t, resp.Schedule.Assignments, 6)
}

func TestPlannerScheduleStatelessRejectsRaggedMatrices(t *testing.T) {
	svc := newTestPlanner(nil, nil)

	m := &models.ConstraintMatrices{
		PatientAvailability:   [][]int{{1, 1}},
		TherapistAvailability: [][]int{{1, 1}},
		Compatibility:         [][]int{{100}},
		Requirements:          []int{120},
		PatientIDs:            []string{"P001"},
		TherapistIDs:          []string{"T001"},
		Timeslots:             schedule.Timeslots(),
	}

	_, err := svc.ScheduleStateless(context.Background(), dto.ScheduleRequest{Matrices: m})

	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestPlannerValidateReportsTamperedSchedule(t *testing.T) {
	svc := newTestPlanner(nil, nil)
	built, err := svc.BuildMatrices(context.Background(), buildRequestFixture())
	require.NoError(t, err)

	run, err := svc.ScheduleRun(context.Background(), built.RunID)
	require.NoError(t, err)

	tampered := &models.Schedule{
		Date:        run.Schedule.Date,
		Assignments: run.Schedule.Assignments[:1],
	}

	result, err := svc.Validate(context.Background(), dto.ValidateRequest{
		Schedule: tampered,
		Matrices: built.Matrices,
	})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Violations)
}

func TestParseRequirementRules(t *testing.T) {
	rules := parseRequirementRules([]string{"脳血管=180", "呼吸器=160", "garbage", "x=-5"})

	require.Len(t, rules, 2)
	assert.Equal(t, schedule.RequirementRule{Marker: "脳血管", Minutes: 180}, rules[0])
	assert.Equal(t, schedule.RequirementRule{Marker: "呼吸器", Minutes: 160}, rules[1])

	assert.Nil(t, parseRequirementRules(nil))
	assert.Nil(t, parseRequirementRules([]string{"broken"}))
}
