package schedule

import "github.com/rehabplan/rehab-planner-api/internal/models"

// Compatibility scoring constants. The primary therapist always dominates the
// patient's row; a non-primary pairing tops out at 80.
const (
	scorePrimary     = 100
	scoreBase        = 20
	scoreSameWard    = 20
	scoreGenderMatch = 40
)

// ScoreFloor and ScoreCeiling bound the non-zero compatibility range; zero
// marks a forbidden pairing.
const (
	ScoreFloor   = scoreBase
	ScoreCeiling = scorePrimary
)

// BuildCompatibility derives the patients×therapists score matrix. Scores are
// static for the whole run; workload balancing happens in the assigner, not
// here.
func BuildCompatibility(patients []models.Patient, therapists []models.Therapist) [][]int {
	idByName := make(map[string]string, len(therapists))
	byID := make(map[string]models.Therapist, len(therapists))
	for _, t := range therapists {
		idByName[t.Name] = t.ID
		byID[t.ID] = t
	}

	matrix := make([][]int, len(patients))
	for i, patient := range patients {
		row := make([]int, len(therapists))

		primaryID := idByName[patient.PrimaryTherapist]
		primaryGender := ""
		if primary, ok := byID[primaryID]; ok {
			primaryGender = primary.Gender
		}

		for j, therapist := range therapists {
			if primaryID != "" && therapist.ID == primaryID {
				row[j] = scorePrimary
				continue
			}
			if therapist.Exclusive && therapist.Ward != patient.Ward {
				row[j] = 0
				continue
			}

			score := scoreBase
			if therapist.Ward == patient.Ward {
				score += scoreSameWard
			}
			if primaryGender != "" && therapist.Gender == primaryGender {
				score += scoreGenderMatch
			}
			row[j] = score
		}
		matrix[i] = row
	}
	return matrix
}
