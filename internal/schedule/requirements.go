package schedule

import (
	"strings"

	"github.com/rehabplan/rehab-planner-api/internal/models"
)

// RequirementRule maps a therapy-category substring to required minutes.
type RequirementRule struct {
	Marker  string
	Minutes int
}

// DefaultRequirementRules reflect the department's billing categories:
// cerebrovascular patients get 180 minutes, everyone else 120.
func DefaultRequirementRules() []RequirementRule {
	return []RequirementRule{{Marker: "脳血管", Minutes: 180}}
}

// DefaultRequirementMinutes is the fallback when no rule matches.
const DefaultRequirementMinutes = 120

// BuildRequirements derives the required-minutes vector. Rules are checked in
// order; the first marker contained in the patient's category wins.
func BuildRequirements(patients []models.Patient, rules []RequirementRule, fallback int) []int {
	if fallback <= 0 {
		fallback = DefaultRequirementMinutes
	}
	requirements := make([]int, len(patients))
	for i, patient := range patients {
		requirements[i] = fallback
		for _, rule := range rules {
			if rule.Marker != "" && strings.Contains(patient.TherapyCategory, rule.Marker) {
				requirements[i] = rule.Minutes
				break
			}
		}
	}
	return requirements
}

// RequiredSlots converts required minutes to a slot count.
func RequiredSlots(minutes int) int {
	return minutes / models.SlotMinutes
}
