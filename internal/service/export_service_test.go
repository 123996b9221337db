package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehabplan/rehab-planner-api/internal/models"
	"github.com/rehabplan/rehab-planner-api/internal/schedule"
	appErrors "github.com/rehabplan/rehab-planner-api/pkg/errors"
	"github.com/rehabplan/rehab-planner-api/pkg/storage"
)

type fakeRunSource struct {
	schedule *models.Schedule
	matrices *models.ConstraintMatrices
	err      error
}

func (f *fakeRunSource) ScheduledRun(ctx context.Context, runID string) (*models.Schedule, *models.ConstraintMatrices, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.schedule, f.matrices, nil
}

func newTestExportService(t *testing.T, source scheduledRunSource) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewExportService(source, store, signer, nil)
}

func exportFixture() *fakeRunSource {
	return &fakeRunSource{
		schedule: &models.Schedule{
			Date: "2026-04-04",
			Assignments: []models.Assignment{
				{PatientID: "P001", TherapistID: "T001", Timeslot: "09:00-09:20", DurationMinutes: 20},
				{PatientID: "P002", TherapistID: "T002", Timeslot: "09:00-09:20", DurationMinutes: 20},
				{PatientID: "P001", TherapistID: "T001", Timeslot: "09:20-09:40", DurationMinutes: 20},
			},
			UnscheduledPatients: []string{},
		},
		matrices: &models.ConstraintMatrices{
			PatientIDs:   []string{"P001", "P002"},
			TherapistIDs: []string{"T001", "T002"},
			Timeslots:    schedule.Timeslots(),
		},
	}
}

func TestExportScheduleCSVListRoundTrip(t *testing.T) {
	svc := newTestExportService(t, exportFixture())

	resp, err := svc.ExportSchedule(context.Background(), "run-1", "csv", "list")
	require.NoError(t, err)
	assert.Equal(t, "run-1/schedule_2026-04-04_list.csv", resp.FileName)
	assert.NotEmpty(t, resp.Token)

	filename, content, err := svc.Download(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.FileName, filename)

	text := string(content)
	assert.True(t, strings.HasPrefix(text, "patient,therapist,timeslot,minutes"))
	assert.Contains(t, text, "P001,T001,09:00-09:20,20")
}

func TestExportScheduleTherapistGrid(t *testing.T) {
	svc := newTestExportService(t, exportFixture())

	resp, err := svc.ExportSchedule(context.Background(), "run-1", "csv", "therapists")
	require.NoError(t, err)

	_, content, err := svc.Download(resp.Token)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	// Header plus one row per therapist.
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id,09:00-09:20,"))
	assert.True(t, strings.HasPrefix(lines[1], "T001,P001,P001,"))
	assert.True(t, strings.HasPrefix(lines[2], "T002,P002,,"))
}

func TestExportSchedulePatientGridPDF(t *testing.T) {
	svc := newTestExportService(t, exportFixture())

	resp, err := svc.ExportSchedule(context.Background(), "run-1", "pdf", "patients")
	require.NoError(t, err)
	assert.Equal(t, "run-1/schedule_2026-04-04_patients.pdf", resp.FileName)

	_, content, err := svc.Download(resp.Token)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "%PDF"))
}

func TestExportScheduleRejectsBadFormat(t *testing.T) {
	svc := newTestExportService(t, exportFixture())

	_, err := svc.ExportSchedule(context.Background(), "run-1", "xlsx", "list")

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestExportScheduleRejectsBadView(t *testing.T) {
	svc := newTestExportService(t, exportFixture())

	_, err := svc.ExportSchedule(context.Background(), "run-1", "csv", "wards")

	require.Error(t, err)
}

func TestExportSchedulePropagatesMissingRun(t *testing.T) {
	svc := newTestExportService(t, &fakeRunSource{err: appErrors.Clone(appErrors.ErrNotFound, "run not found or expired")})

	_, err := svc.ExportSchedule(context.Background(), "run-x", "csv", "list")

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestExportDownloadRejectsTamperedToken(t *testing.T) {
	svc := newTestExportService(t, exportFixture())

	resp, err := svc.ExportSchedule(context.Background(), "run-1", "csv", "list")
	require.NoError(t, err)

	_, _, err = svc.Download(resp.Token + "x")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}
