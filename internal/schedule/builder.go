package schedule

import "github.com/rehabplan/rehab-planner-api/internal/models"

// Builder assembles the four constraint matrices from normalized records.
type Builder struct {
	rules    []RequirementRule
	fallback int
}

// NewBuilder constructs a Builder; nil rules fall back to the default
// category table.
func NewBuilder(rules []RequirementRule, fallbackMinutes int) *Builder {
	if rules == nil {
		rules = DefaultRequirementRules()
	}
	return &Builder{rules: rules, fallback: fallbackMinutes}
}

// BuildMatrices derives all four matrices plus the id lists that index them.
// Inputs must already be normalized; this stage itself cannot fail.
func (b *Builder) BuildMatrices(therapists []models.Therapist, patients []models.Patient, shifts []models.ShiftEntry) *models.ConstraintMatrices {
	timeslots := Timeslots()

	patientIDs := make([]string, len(patients))
	for i, p := range patients {
		patientIDs[i] = p.ID
	}
	therapistIDs := make([]string, len(therapists))
	for i, t := range therapists {
		therapistIDs[i] = t.ID
	}

	return &models.ConstraintMatrices{
		PatientAvailability:   BuildPatientAvailability(patients, timeslots),
		TherapistAvailability: BuildTherapistAvailability(therapists, shifts, timeslots),
		Compatibility:         BuildCompatibility(patients, therapists),
		Requirements:          BuildRequirements(patients, b.rules, b.fallback),
		PatientIDs:            patientIDs,
		TherapistIDs:          therapistIDs,
		Timeslots:             timeslots,
	}
}
