package schedule

import (
	"fmt"

	"github.com/rehabplan/rehab-planner-api/internal/models"
)

// Validate independently re-checks a schedule against the matrices it was
// built from: per-patient minute totals, therapist double-booking and patient
// double-slot. It is a pure read-only pass, safe to run on externally edited
// schedules, and never fails itself; findings come back as data.
func Validate(s *models.Schedule, m *models.ConstraintMatrices) models.ValidationResult {
	violations := make([]string, 0)

	totals := s.AssignedMinutes()
	for i, patientID := range m.PatientIDs {
		required := m.Requirements[i]
		if actual := totals[patientID]; actual < required {
			violations = append(violations, fmt.Sprintf("patient %s: needs %dmin, got %dmin", patientID, required, actual))
		}
	}

	type booking struct{ id, slot string }
	therapistSeen := make(map[booking]bool)
	patientSeen := make(map[booking]bool)
	for _, a := range s.Assignments {
		tb := booking{a.TherapistID, a.Timeslot}
		if therapistSeen[tb] {
			violations = append(violations, fmt.Sprintf("double booking: therapist %s at %s", a.TherapistID, a.Timeslot))
		}
		therapistSeen[tb] = true

		pb := booking{a.PatientID, a.Timeslot}
		if patientSeen[pb] {
			violations = append(violations, fmt.Sprintf("double booking: patient %s at %s", a.PatientID, a.Timeslot))
		}
		patientSeen[pb] = true
	}

	return models.ValidationResult{
		Valid:      len(violations) == 0,
		Violations: violations,
	}
}
