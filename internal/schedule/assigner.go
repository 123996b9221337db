package schedule

import (
	"sort"

	"github.com/rehabplan/rehab-planner-api/internal/models"
)

const (
	// sentinelCost marks a forbidden slot/therapist cell: the therapist is off
	// shift, already booked, or the pairing is incompatible.
	sentinelCost = 1000
	// workloadPenaltyStep is added to a therapist's cells for every slot they
	// have already been given during the current run, spreading work across
	// the team.
	workloadPenaltyStep = 5
)

// AssignerOptions tune the greedy engine.
type AssignerOptions struct {
	// AllowRepeatTherapistPerPatient keeps a therapist selectable for the rest
	// of a patient's slots after an assignment. When false the therapist's
	// column is struck from that patient's cost matrix as well, forcing every
	// slot of the patient onto a different therapist.
	AllowRepeatTherapistPerPatient bool
}

// Assigner produces a Schedule from constraint matrices using a deterministic
// greedy heuristic: most-demanding patients first, cheapest slot/therapist
// cell next, no backtracking.
type Assigner struct {
	opts AssignerOptions
}

// NewAssigner builds an Assigner with the given options.
func NewAssigner(opts AssignerOptions) *Assigner {
	return &Assigner{opts: opts}
}

// patientOutcome is the per-patient result of one assignment pass. A shortfall
// is an expected outcome, not an error: partial assignments are kept.
type patientOutcome struct {
	assignments []models.Assignment
	complete    bool
}

// Schedule runs the greedy pass over a private copy of the availability
// matrices and returns a new Schedule. Two calls with identical matrices
// produce identical assignment sets.
func (a *Assigner) Schedule(m *models.ConstraintMatrices) *models.Schedule {
	patientAvail := cloneRows(m.PatientAvailability)
	therapistAvail := cloneRows(m.TherapistAvailability)
	workload := make([]int, len(m.TherapistIDs))

	schedule := &models.Schedule{
		Assignments:         make([]models.Assignment, 0),
		UnscheduledPatients: make([]string, 0),
	}

	for _, p := range patientOrder(m.Requirements) {
		outcome := a.assignPatient(p, m, patientAvail, therapistAvail, workload)
		schedule.Assignments = append(schedule.Assignments, outcome.assignments...)
		if !outcome.complete {
			schedule.UnscheduledPatients = append(schedule.UnscheduledPatients, m.PatientIDs[p])
		}
	}

	return schedule
}

// patientOrder sorts patient indices by descending required slots, ties kept
// in input order. The heuristic has no backtracking, so the most constrained
// patients must be placed while capacity is still plentiful.
func patientOrder(requirements []int) []int {
	order := make([]int, len(requirements))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return requirements[order[a]] > requirements[order[b]]
	})
	return order
}

func (a *Assigner) assignPatient(p int, m *models.ConstraintMatrices, patientAvail, therapistAvail [][]int, workload []int) patientOutcome {
	required := RequiredSlots(m.Requirements[p])
	if required <= 0 {
		return patientOutcome{complete: true}
	}

	var availSlots []int
	for j, open := range patientAvail[p] {
		if open == 1 {
			availSlots = append(availSlots, j)
		}
	}
	if len(availSlots) < required {
		// Not enough room left in the day; nothing is attempted.
		return patientOutcome{}
	}

	cost := a.buildCostMatrix(p, availSlots, m, therapistAvail, workload)

	outcome := patientOutcome{}
	for assigned := 0; assigned < required; assigned++ {
		row, col, ok := argmin(cost)
		if !ok {
			// No compatible therapist remains for the rest of the
			// requirement. Assignments already made stay in place.
			return outcome
		}

		slot := availSlots[row]
		outcome.assignments = append(outcome.assignments, models.Assignment{
			PatientID:       m.PatientIDs[p],
			TherapistID:     m.TherapistIDs[col],
			Timeslot:        m.Timeslots[slot],
			DurationMinutes: models.SlotMinutes,
		})

		patientAvail[p][slot] = 0
		therapistAvail[col][slot] = 0
		workload[col]++

		for t := range cost[row] {
			cost[row][t] = sentinelCost
		}
		if !a.opts.AllowRepeatTherapistPerPatient {
			for r := range cost {
				cost[r][col] = sentinelCost
			}
		}
	}

	outcome.complete = true
	return outcome
}

// buildCostMatrix lays out (patient's available slots)×(all therapists).
// Lower is better: high compatibility pulls the cost down, accumulated
// workload pushes it up.
func (a *Assigner) buildCostMatrix(p int, availSlots []int, m *models.ConstraintMatrices, therapistAvail [][]int, workload []int) [][]int {
	cost := make([][]int, len(availSlots))
	for i, slot := range availSlots {
		row := make([]int, len(m.TherapistIDs))
		for t := range row {
			compat := m.Compatibility[p][t]
			if therapistAvail[t][slot] == 1 && compat > 0 {
				row[t] = -compat + workloadPenaltyStep*workload[t]
			} else {
				row[t] = sentinelCost
			}
		}
		cost[i] = row
	}
	return cost
}

// argmin scans the cost matrix in row-major order and returns the first cell
// holding the minimum. The fixed scan order is what makes tie-breaking, and
// therefore the whole run, deterministic.
func argmin(cost [][]int) (row, col int, ok bool) {
	best := sentinelCost
	for r := range cost {
		for c := range cost[r] {
			if cost[r][c] < best {
				best = cost[r][c]
				row, col = r, c
			}
		}
	}
	return row, col, best < sentinelCost
}

func cloneRows(src [][]int) [][]int {
	dst := make([][]int, len(src))
	for i, row := range src {
		dst[i] = append([]int(nil), row...)
	}
	return dst
}
