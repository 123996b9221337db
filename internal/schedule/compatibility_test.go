package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehabplan/rehab-planner-api/internal/models"
)

func TestBuildCompatibilityPrimaryTherapist(t *testing.T) {
	therapists := []models.Therapist{
		{ID: "T001", Name: "山田", Gender: "F", Ward: "4W"},
		{ID: "T002", Name: "佐藤", Gender: "M", Ward: "3E"},
	}
	patients := []models.Patient{
		{ID: "P001", Ward: "3E", PrimaryTherapist: "山田"},
	}

	matrix := BuildCompatibility(patients, therapists)
	require.Len(t, matrix, 1)
	assert.Equal(t, 100, matrix[0][0])
}

func TestBuildCompatibilityExclusiveBlocksOtherWard(t *testing.T) {
	therapists := []models.Therapist{
		{ID: "T001", Name: "山田", Gender: "F", Ward: "4W", Exclusive: true},
	}
	patients := []models.Patient{
		{ID: "P001", Ward: "3E"},
	}

	matrix := BuildCompatibility(patients, therapists)
	assert.Equal(t, 0, matrix[0][0])
}

func TestBuildCompatibilityAdditiveScore(t *testing.T) {
	therapists := []models.Therapist{
		{ID: "T001", Name: "山田", Gender: "F", Ward: "3E"}, // primary
		{ID: "T002", Name: "佐藤", Gender: "F", Ward: "3E"}, // same ward + gender match
		{ID: "T003", Name: "鈴木", Gender: "M", Ward: "3E"}, // same ward only
		{ID: "T004", Name: "田中", Gender: "F", Ward: "5W"}, // gender match only
		{ID: "T005", Name: "高橋", Gender: "M", Ward: "5W"}, // base only
	}
	patients := []models.Patient{
		{ID: "P001", Ward: "3E", PrimaryTherapist: "山田"},
	}

	matrix := BuildCompatibility(patients, therapists)
	assert.Equal(t, []int{100, 80, 40, 60, 20}, matrix[0])
}

func TestBuildCompatibilityNoGenderBonusWithoutResolvablePrimary(t *testing.T) {
	therapists := []models.Therapist{
		{ID: "T001", Name: "山田", Gender: "F", Ward: "3E"},
	}
	patients := []models.Patient{
		{ID: "P001", Ward: "3E", PrimaryTherapist: "存在しない"},
	}

	matrix := BuildCompatibility(patients, therapists)
	assert.Equal(t, 40, matrix[0][0])
}

// The primary therapist's score must always be the row maximum: a non-primary
// pairing tops out at 80.
func TestBuildCompatibilityPrimaryDominance(t *testing.T) {
	therapists := []models.Therapist{
		{ID: "T001", Name: "山田", Gender: "F", Ward: "3E"},
		{ID: "T002", Name: "佐藤", Gender: "F", Ward: "3E"},
		{ID: "T003", Name: "鈴木", Gender: "F", Ward: "3E"},
	}
	patients := []models.Patient{
		{ID: "P001", Ward: "3E", PrimaryTherapist: "佐藤"},
		{ID: "P002", Ward: "3E", PrimaryTherapist: "鈴木"},
	}

	matrix := BuildCompatibility(patients, therapists)
	for i, patient := range patients {
		maxScore, primaryScore := 0, 0
		for j, therapist := range therapists {
			if matrix[i][j] > maxScore {
				maxScore = matrix[i][j]
			}
			if therapist.Name == patient.PrimaryTherapist {
				primaryScore = matrix[i][j]
			}
		}
		assert.Equal(t, 100, primaryScore)
		assert.Equal(t, maxScore, primaryScore)
	}
}
