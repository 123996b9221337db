package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehabplan/rehab-planner-api/internal/models"
)

func TestBuildMatricesShapes(t *testing.T) {
	therapists := []models.Therapist{
		{ID: "T001", Name: "山田", Gender: "M", Ward: "3E"},
		{ID: "T002", Name: "佐藤", Gender: "F", Ward: "4W"},
	}
	patients := []models.Patient{
		{ID: "P001", Name: "田中", Ward: "3E", TherapyCategory: "脳血管疾患"},
		{ID: "P002", Name: "鈴木", Ward: "4W", TherapyCategory: "運動器"},
		{ID: "P003", Name: "高橋", Ward: "3E"},
	}
	shifts := []models.ShiftEntry{
		{TherapistName: "山田", Code: "○"},
		{TherapistName: "佐藤", Code: "PN"},
	}

	m := NewBuilder(nil, DefaultRequirementMinutes).BuildMatrices(therapists, patients, shifts)

	require.Len(t, m.PatientAvailability, 3)
	require.Len(t, m.TherapistAvailability, 2)
	require.Len(t, m.Compatibility, 3)
	require.Len(t, m.Compatibility[0], 2)
	assert.Equal(t, []int{180, 120, 120}, m.Requirements)
	assert.Equal(t, []string{"P001", "P002", "P003"}, m.PatientIDs)
	assert.Equal(t, []string{"T001", "T002"}, m.TherapistIDs)
	assert.Equal(t, Timeslots(), m.Timeslots)
}

func TestExclusiveTherapistNeverCrossesWards(t *testing.T) {
	therapists := []models.Therapist{
		{ID: "T001", Name: "山田", Gender: "M", Ward: "4W", Exclusive: true},
		{ID: "T002", Name: "佐藤", Gender: "F", Ward: "3E"},
	}
	patients := []models.Patient{
		{ID: "P001", Name: "田中", Ward: "3E"},
		{ID: "P002", Name: "鈴木", Ward: "4W"},
	}
	shifts := []models.ShiftEntry{
		{TherapistName: "山田", Code: "○"},
		{TherapistName: "佐藤", Code: "○"},
	}

	m := NewBuilder(nil, DefaultRequirementMinutes).BuildMatrices(therapists, patients, shifts)
	s := newTestAssigner().Schedule(m)

	require.NotEmpty(t, s.Assignments)
	for _, a := range s.Assignments {
		if a.PatientID == "P001" {
			assert.NotEqual(t, "T001", a.TherapistID, "ward-exclusive therapist assigned outside their ward")
		}
	}
}

func TestBuildMatricesEndToEnd(t *testing.T) {
	therapists := []models.Therapist{
		{ID: "T001", Name: "山田", Gender: "M", Ward: "3E"},
	}
	patients := []models.Patient{
		{ID: "P001", Name: "田中", Ward: "3E", PrimaryTherapist: "山田", BathingTime: "10:00", TherapyCategory: "運動器"},
	}
	shifts := []models.ShiftEntry{
		{TherapistName: "山田", Code: "○"},
	}

	m := NewBuilder(nil, DefaultRequirementMinutes).BuildMatrices(therapists, patients, shifts)
	s := newTestAssigner().Schedule(m)

	require.Len(t, s.Assignments, 6)
	assert.Empty(t, s.UnscheduledPatients)
	for _, a := range s.Assignments {
		assert.Equal(t, "T001", a.TherapistID)
		start, _, ok := SlotStart(a.Timeslot)
		require.True(t, ok)
		// Bathing at 10:00 blocks the 10:00-11:00 hour.
		assert.False(t, start == 10, "assignment landed in blocked bathing hour at %s", a.Timeslot)
	}

	result := Validate(s, m)
	assert.True(t, result.Valid)
}
