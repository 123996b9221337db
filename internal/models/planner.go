package models

// Therapist represents a rehabilitation staff member eligible for assignment.
type Therapist struct {
	ID     string `json:"id" validate:"required"`
	Name   string `json:"name" validate:"required"`
	Gender string `json:"gender"`
	Ward   string `json:"ward"`
	// Exclusive restricts the therapist to patients of their own ward.
	Exclusive bool `json:"exclusive"`
}

// Patient represents one prescription row: a patient needing therapy on the
// target date.
type Patient struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
	Ward string `json:"ward"`
	// PrimaryTherapist holds the designated therapist's name as written in the
	// prescription sheet; it is resolved to an ID during matrix construction.
	PrimaryTherapist string `json:"primary_therapist"`
	// TherapyCategory drives the required-minutes rule (算定区分).
	TherapyCategory string `json:"therapy_category"`
	// Blocked-time annotations, free-form ("金・14:30", "10:00-11:00", ...).
	BathingTime   string `json:"bathing_time"`
	ExcretionTime string `json:"excretion_time"`
	ReservedTime  string `json:"reserved_time"`
}

// ShiftEntry pairs a therapist name with the shift code for the target date.
type ShiftEntry struct {
	TherapistName string `json:"therapist_name" validate:"required"`
	// Code is one of the roster codes: full day, morning only, afternoon only.
	Code string `json:"code"`
}

// BlockedAnnotations returns the patient's blocked-time fields in the fixed
// order they appear in the prescription sheet.
func (p Patient) BlockedAnnotations() []string {
	return []string{p.BathingTime, p.ExcretionTime, p.ReservedTime}
}
