package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rehabplan/rehab-planner-api/internal/dto"
	"github.com/rehabplan/rehab-planner-api/internal/models"
	appErrors "github.com/rehabplan/rehab-planner-api/pkg/errors"
	"github.com/rehabplan/rehab-planner-api/pkg/export"
	"github.com/rehabplan/rehab-planner-api/pkg/storage"
)

type scheduledRunSource interface {
	ScheduledRun(ctx context.Context, runID string) (*models.Schedule, *models.ConstraintMatrices, error)
}

// ExportService renders schedules to downloadable CSV/PDF files: a flat
// assignment list plus patient-by-slot and therapist-by-slot grids.
type ExportService struct {
	source  scheduledRunSource
	storage *storage.LocalStorage
	signer  *storage.SignedURLSigner
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService wires render and storage dependencies.
func NewExportService(source scheduledRunSource, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		source:  source,
		storage: store,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// ExportSchedule renders a run's schedule in the requested format and view,
// stores the file and hands back a signed download token.
func (s *ExportService) ExportSchedule(ctx context.Context, runID, format, view string) (*dto.ExportResponse, error) {
	if view == "" {
		view = "list"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if view != "list" && view != "patients" && view != "therapists" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "view must be list, patients or therapists")
	}

	sched, matrices, err := s.source.ScheduledRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	var dataset export.Dataset
	switch view {
	case "list":
		dataset = assignmentDataset(sched)
	case "patients":
		dataset = gridDataset(sched, matrices.PatientIDs, matrices.Timeslots, func(a models.Assignment) (string, string) {
			return a.PatientID, a.TherapistID
		})
	case "therapists":
		dataset = gridDataset(sched, matrices.TherapistIDs, matrices.Timeslots, func(a models.Assignment) (string, string) {
			return a.TherapistID, a.PatientID
		})
	}

	var content []byte
	switch format {
	case "csv":
		content, err = s.csv.Render(dataset)
	case "pdf":
		content, err = s.pdf.Render(dataset, fmt.Sprintf("Rehab schedule %s (%s)", sched.Date, view))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule export")
	}

	filename := fmt.Sprintf("%s/schedule_%s_%s.%s", runID, sched.Date, view, format)
	if _, err := s.storage.Save(filename, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store schedule export")
	}

	token, expiresAt, err := s.signer.Generate(runID, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	s.logger.Info("schedule exported",
		zap.String("runId", runID),
		zap.String("file", filename),
		zap.Time("expiresAt", expiresAt))

	return &dto.ExportResponse{
		FileName:  filename,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Download validates a signed token and returns the stored file.
func (s *ExportService) Download(token string) (string, []byte, error) {
	_, filename, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	content, err := s.storage.Read(filename)
	if err != nil {
		return "", nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer exists")
	}
	return filename, content, nil
}

// CleanupExpired removes export files past the given age.
func (s *ExportService) CleanupExpired(ttl time.Duration) (int, error) {
	deleted, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clean up exports")
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
	return len(deleted), nil
}

func assignmentDataset(s *models.Schedule) export.Dataset {
	rows := make([][]string, 0, len(s.Assignments))
	for _, a := range s.Assignments {
		rows = append(rows, []string{a.PatientID, a.TherapistID, a.Timeslot, fmt.Sprintf("%d", a.DurationMinutes)})
	}
	return export.Dataset{
		Headers: []string{"patient", "therapist", "timeslot", "minutes"},
		Rows:    rows,
	}
}

// gridDataset pivots assignments into one row per entity and one column per
// timeslot, cell holding the counterpart's id.
func gridDataset(s *models.Schedule, rowIDs, timeslots []string, split func(models.Assignment) (rowID, cell string)) export.Dataset {
	slotIndex := make(map[string]int, len(timeslots))
	for i, label := range timeslots {
		slotIndex[label] = i
	}
	rowIndex := make(map[string]int, len(rowIDs))
	for i, id := range rowIDs {
		rowIndex[id] = i
	}

	rows := make([][]string, len(rowIDs))
	for i, id := range rowIDs {
		row := make([]string, len(timeslots)+1)
		row[0] = id
		rows[i] = row
	}
	for _, a := range s.Assignments {
		rowID, cell := split(a)
		r, okRow := rowIndex[rowID]
		c, okCol := slotIndex[a.Timeslot]
		if !okRow || !okCol {
			continue
		}
		rows[r][c+1] = cell
	}

	headers := make([]string, 0, len(timeslots)+1)
	headers = append(headers, "id")
	headers = append(headers, timeslots...)
	return export.Dataset{Headers: headers, Rows: rows}
}
