package models

// ConstraintMatrices bundles the four constraint inputs of a scheduling run
// together with the id lists that index their rows and columns. The whole
// structure serializes to plain arrays so an external layer can persist it,
// flip individual availability bits and re-submit it for another run.
type ConstraintMatrices struct {
	// PatientAvailability is patients×slots; 1 = schedulable.
	PatientAvailability [][]int `json:"patient_availability"`
	// TherapistAvailability is therapists×slots; 1 = on shift and free.
	TherapistAvailability [][]int `json:"therapist_availability"`
	// Compatibility is patients×therapists; 0 = forbidden pairing.
	Compatibility [][]int `json:"compatibility"`
	// Requirements holds required minutes per patient.
	Requirements []int `json:"requirements"`

	PatientIDs   []string `json:"patient_ids"`
	TherapistIDs []string `json:"therapist_ids"`
	Timeslots    []string `json:"timeslots"`
}

// Clone deep-copies the matrices. The assigner mutates availability in place,
// so every run works on its own copy and the stored matrices stay pristine.
func (m *ConstraintMatrices) Clone() *ConstraintMatrices {
	clone := &ConstraintMatrices{
		PatientAvailability:   cloneMatrix(m.PatientAvailability),
		TherapistAvailability: cloneMatrix(m.TherapistAvailability),
		Compatibility:         cloneMatrix(m.Compatibility),
		Requirements:          append([]int(nil), m.Requirements...),
		PatientIDs:            append([]string(nil), m.PatientIDs...),
		TherapistIDs:          append([]string(nil), m.TherapistIDs...),
		Timeslots:             append([]string(nil), m.Timeslots...),
	}
	return clone
}

func cloneMatrix(src [][]int) [][]int {
	if src == nil {
		return nil
	}
	dst := make([][]int, len(src))
	for i, row := range src {
		dst[i] = append([]int(nil), row...)
	}
	return dst
}

// ValidationResult reports the findings of a schedule re-check. Violations are
// data, not errors: validation itself never fails.
type ValidationResult struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations"`
}
