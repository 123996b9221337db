package models

import "time"

// SlotMinutes is the fixed length of one schedulable slot.
const SlotMinutes = 20

// Assignment is one patient-therapist-timeslot booking. Immutable once made.
type Assignment struct {
	PatientID       string `json:"patient_id" db:"patient_id"`
	TherapistID     string `json:"therapist_id" db:"therapist_id"`
	Timeslot        string `json:"timeslot" db:"timeslot"`
	DurationMinutes int    `json:"duration_minutes" db:"duration_minutes"`
}

// Schedule is the outcome of one scheduling run. A later run on edited
// matrices produces a brand-new Schedule; an existing one is never patched.
type Schedule struct {
	Date        string       `json:"date"`
	Assignments []Assignment `json:"assignments"`
	// UnscheduledPatients lists every patient whose assigned minutes fell
	// short of their requirement. Falling short is an expected outcome, not a
	// failure of the run.
	UnscheduledPatients []string `json:"unscheduled_patients"`
}

// AssignedMinutes sums assigned minutes per patient.
func (s *Schedule) AssignedMinutes() map[string]int {
	totals := make(map[string]int)
	for _, a := range s.Assignments {
		totals[a.PatientID] += a.DurationMinutes
	}
	return totals
}

// ScheduleRun is the persisted record of a completed run.
type ScheduleRun struct {
	ID              string    `json:"id" db:"id"`
	Date            string    `json:"date" db:"run_date"`
	AssignmentCount int       `json:"assignment_count" db:"assignment_count"`
	UnscheduledIDs  string    `json:"unscheduled_ids" db:"unscheduled_ids"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// RunAssignment is one persisted assignment row belonging to a ScheduleRun.
type RunAssignment struct {
	RunID           string `json:"run_id" db:"run_id"`
	PatientID       string `json:"patient_id" db:"patient_id"`
	TherapistID     string `json:"therapist_id" db:"therapist_id"`
	Timeslot        string `json:"timeslot" db:"timeslot"`
	DurationMinutes int    `json:"duration_minutes" db:"duration_minutes"`
}
