package dto

import (
	"time"

	"github.com/rehabplan/rehab-planner-api/internal/models"
)

// TherapistInput is one staff roster row before normalization. Ward comes in
// as the Japanese ward name from the roster sheet.
type TherapistInput struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Gender    string `json:"gender"`
	Ward      string `json:"ward" validate:"required"`
	Exclusive string `json:"exclusive"`
}

// PatientInput is one prescription row before normalization.
type PatientInput struct {
	ID               string `json:"id" validate:"required"`
	Name             string `json:"name"`
	Ward             string `json:"ward" validate:"required"`
	PrimaryTherapist string `json:"primary_therapist"`
	TherapyCategory  string `json:"therapy_category"`
	BathingTime      string `json:"bathing_time"`
	ExcretionTime    string `json:"excretion_time"`
	ReservedTime     string `json:"reserved_time"`
}

// ShiftRowInput is one therapist row of the monthly shift table. Codes maps
// the sheet's day-column labels to shift codes; the column for the target
// date is resolved during normalization.
type ShiftRowInput struct {
	TherapistName string            `json:"therapist_name" validate:"required"`
	Codes         map[string]string `json:"codes"`
}

// BuildMatricesRequest carries the parsed input records for one target date.
type BuildMatricesRequest struct {
	Date       string           `json:"date" validate:"required,datetime=2006-01-02"`
	Therapists []TherapistInput `json:"therapists" validate:"required,min=1,dive"`
	Patients   []PatientInput   `json:"patients" validate:"required,min=1,dive"`
	Shifts     []ShiftRowInput  `json:"shifts" validate:"required,min=1,dive"`
}

// BuildMatricesResponse returns the stored run and its constraint matrices.
type BuildMatricesResponse struct {
	RunID     string                     `json:"run_id"`
	Date      string                     `json:"date"`
	Matrices  *models.ConstraintMatrices `json:"matrices"`
	ExpiresAt time.Time                  `json:"expires_at"`
}

// PatchMatrixRequest flips one cell of a stored run's matrices.
type PatchMatrixRequest struct {
	Matrix string `json:"matrix" validate:"required,oneof=patient_availability therapist_availability compatibility"`
	Row    int    `json:"row" validate:"gte=0"`
	Col    int    `json:"col" validate:"gte=0"`
	Value  int    `json:"value" validate:"gte=0"`
}

// ScheduleRequest carries caller-supplied matrices for a stateless run.
type ScheduleRequest struct {
	Date     string                     `json:"date"`
	Matrices *models.ConstraintMatrices `json:"matrices" validate:"required"`
}

// ScheduleResponse returns the produced schedule and its validation report.
type ScheduleResponse struct {
	RunID      string                  `json:"run_id,omitempty"`
	Schedule   *models.Schedule        `json:"schedule"`
	Validation models.ValidationResult `json:"validation"`
}

// ValidateRequest re-checks an (optionally hand-edited) schedule against
// matrices.
type ValidateRequest struct {
	Schedule *models.Schedule           `json:"schedule" validate:"required"`
	Matrices *models.ConstraintMatrices `json:"matrices" validate:"required"`
}

// ArchivedRunResponse is one persisted run with its assignment rows.
type ArchivedRunResponse struct {
	Run         *models.ScheduleRun    `json:"run"`
	Assignments []models.RunAssignment `json:"assignments"`
}

// ExportResponse points at a rendered schedule file.
type ExportResponse struct {
	FileName  string    `json:"file_name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
