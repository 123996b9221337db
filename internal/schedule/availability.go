package schedule

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/rehabplan/rehab-planner-api/internal/models"
)

// Shift codes as they appear in the roster sheet.
const (
	ShiftFullDay   = "○"
	ShiftAfternoon = "AN" // 12:45-17:30
	ShiftMorning   = "PN" // 8:45-12:00
)

var timePattern = regexp.MustCompile(`(\d{1,2}):(\d{2})`)

// BuildPatientAvailability derives the patients×slots matrix. Every patient
// starts fully available; each blocked-time annotation removes the slots whose
// start falls inside the blocked window. Annotations that cannot be parsed
// contribute no exclusions.
func BuildPatientAvailability(patients []models.Patient, timeslots []string) [][]int {
	matrix := make([][]int, len(patients))
	for i, patient := range patients {
		row := make([]int, len(timeslots))
		for j := range row {
			row[j] = 1
		}
		for _, annotation := range patient.BlockedAnnotations() {
			for _, j := range blockedSlotIndices(annotation, timeslots) {
				row[j] = 0
			}
		}
		matrix[i] = row
	}
	return matrix
}

// blockedSlotIndices parses one blocked-time annotation and returns the
// indices of slots whose start time falls within [start, end). A single time
// is treated as a one-hour block; a leading day-of-week token before the
// "・" delimiter is ignored.
func blockedSlotIndices(annotation string, timeslots []string) []int {
	annotation = strings.TrimSpace(annotation)
	if annotation == "" {
		return nil
	}

	// Strip the day token before width folding: Narrow turns the full-width
	// middle dot into its half-width form, which the split would miss.
	parts := strings.Split(strings.ReplaceAll(annotation, "･", "・"), "・")

	// Prescription sheets mix full-width and half-width digits and colons.
	timePart := width.Narrow.String(parts[len(parts)-1])

	matches := timePattern.FindAllStringSubmatch(timePart, -1)
	if len(matches) == 0 {
		return nil
	}

	startH, startM := atoiPair(matches[0])
	var endH, endM int
	if len(matches) >= 2 {
		endH, endM = atoiPair(matches[1])
	} else {
		endH, endM = startH+1, startM
	}

	var blocked []int
	for j, slot := range timeslots {
		h, m, ok := SlotStart(slot)
		if !ok {
			continue
		}
		if afterOrAt(h, m, startH, startM) && before(h, m, endH, endM) {
			blocked = append(blocked, j)
		}
	}
	return blocked
}

// BuildTherapistAvailability derives the therapists×slots matrix from shift
// entries. Therapists start fully unavailable; a missing or unrecognized
// shift code leaves them that way for the whole day.
func BuildTherapistAvailability(therapists []models.Therapist, shifts []models.ShiftEntry, timeslots []string) [][]int {
	codeByName := make(map[string]string, len(shifts))
	for _, entry := range shifts {
		codeByName[entry.TherapistName] = entry.Code
	}

	matrix := make([][]int, len(therapists))
	for i, therapist := range therapists {
		row := make([]int, len(timeslots))
		code, ok := codeByName[therapist.Name]
		if ok {
			for j, slot := range timeslots {
				if shiftCovers(code, slot) {
					row[j] = 1
				}
			}
		}
		matrix[i] = row
	}
	return matrix
}

// shiftCovers reports whether a shift code makes the given slot workable.
func shiftCovers(code, timeslot string) bool {
	code = strings.TrimSpace(code)
	switch code {
	case "":
		return false
	case ShiftFullDay, "〇": // both circle glyphs occur in the rosters
		return true
	}

	hour, _, ok := SlotStart(timeslot)
	if !ok {
		return false
	}

	switch code {
	case ShiftAfternoon:
		return hour >= 13
	case ShiftMorning:
		return hour < 12
	}
	return false
}

func atoiPair(match []string) (int, int) {
	h, _ := strconv.Atoi(match[1])
	m, _ := strconv.Atoi(match[2])
	return h, m
}

func afterOrAt(h, m, refH, refM int) bool {
	return h > refH || (h == refH && m >= refM)
}

func before(h, m, refH, refM int) bool {
	return h < refH || (h == refH && m < refM)
}
