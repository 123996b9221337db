package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rehabplan/rehab-planner-api/internal/dto"
	"github.com/rehabplan/rehab-planner-api/internal/models"
	appErrors "github.com/rehabplan/rehab-planner-api/pkg/errors"
)

// wardNames maps the ward names used on the hospital sheets to the short
// codes the compatibility scorer works with. The former 3階新病棟 merged into
// the west ward.
var wardNames = map[string]string{
	"3階東病棟": "3E",
	"3階西病棟": "3W",
	"3階新病棟": "3W",
	"4階東病棟": "4E",
	"4階西病棟": "4W",
	"5階東病棟": "5E",
	"5階西病棟": "5W",
}

// NormalizerService converts raw sheet records into the canonical models the
// matrix builder consumes. Failures here are fatal to the whole build: there
// is no sensible partial fallback for an unknown ward or an unresolvable
// shift column.
type NormalizerService struct {
	logger *zap.Logger
}

// NewNormalizerService constructs a NormalizerService.
func NewNormalizerService(logger *zap.Logger) *NormalizerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NormalizerService{logger: logger}
}

// NormalizeTherapists maps ward names and the exclusivity mark.
func (s *NormalizerService) NormalizeTherapists(inputs []dto.TherapistInput) ([]models.Therapist, error) {
	result := make([]models.Therapist, 0, len(inputs))
	for _, in := range inputs {
		ward, err := s.resolveWard(in.Ward)
		if err != nil {
			return nil, err
		}
		result = append(result, models.Therapist{
			ID:        in.ID,
			Name:      strings.TrimSpace(in.Name),
			Gender:    strings.TrimSpace(in.Gender),
			Ward:      ward,
			Exclusive: isAffirmativeMark(in.Exclusive),
		})
	}
	return result, nil
}

// NormalizePatients maps ward names and passes annotations through untouched;
// annotation parsing is the availability builder's job and fails open there.
func (s *NormalizerService) NormalizePatients(inputs []dto.PatientInput) ([]models.Patient, error) {
	result := make([]models.Patient, 0, len(inputs))
	for _, in := range inputs {
		ward, err := s.resolveWard(in.Ward)
		if err != nil {
			return nil, err
		}
		result = append(result, models.Patient{
			ID:               in.ID,
			Name:             strings.TrimSpace(in.Name),
			Ward:             ward,
			PrimaryTherapist: strings.TrimSpace(in.PrimaryTherapist),
			TherapyCategory:  in.TherapyCategory,
			BathingTime:      in.BathingTime,
			ExcretionTime:    in.ExcretionTime,
			ReservedTime:     in.ReservedTime,
		})
	}
	return result, nil
}

// ResolveShifts picks each therapist's shift code for the target date out of
// the monthly table. The sheet labels day columns with a day-of-month prefix
// ("4_..." or " 4_..."); a row without that column cannot be resolved.
func (s *NormalizerService) ResolveShifts(date string, rows []dto.ShiftRowInput) ([]models.ShiftEntry, error) {
	day, err := dayOfMonth(date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrConstraintInput, fmt.Sprintf("invalid target date %q", date))
	}

	prefixes := []string{
		fmt.Sprintf("%d_", day),
		fmt.Sprintf(" %d_", day),
	}

	result := make([]models.ShiftEntry, 0, len(rows))
	for _, row := range rows {
		code, ok := lookupDayColumn(row.Codes, prefixes)
		if !ok {
			s.logger.Error("shift table misses the target date column",
				zap.String("therapist", row.TherapistName),
				zap.Int("day", day))
			return nil, appErrors.Clone(appErrors.ErrConstraintInput,
				fmt.Sprintf("shift table has no column for day %d (therapist %s)", day, row.TherapistName))
		}
		result = append(result, models.ShiftEntry{
			TherapistName: strings.TrimSpace(row.TherapistName),
			Code:          strings.TrimSpace(code),
		})
	}
	return result, nil
}

func (s *NormalizerService) resolveWard(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if code, ok := wardNames[name]; ok {
		return code, nil
	}
	s.logger.Error("unmapped ward name", zap.String("ward", name))
	return "", appErrors.Clone(appErrors.ErrConstraintInput, fmt.Sprintf("unknown ward name: %s", name))
}

// isAffirmativeMark accepts both circle codepoints the sheets use.
func isAffirmativeMark(raw string) bool {
	mark := strings.TrimSpace(raw)
	return mark == "○" || mark == "〇"
}

func dayOfMonth(date string) (int, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, err
	}
	return t.Day(), nil
}

// lookupDayColumn scans column labels in sorted order so resolution stays
// deterministic when a sheet carries duplicate-looking labels.
func lookupDayColumn(codes map[string]string, prefixes []string) (string, bool) {
	labels := make([]string, 0, len(codes))
	for label := range codes {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		for _, prefix := range prefixes {
			if strings.HasPrefix(label, prefix) {
				return codes[label], true
			}
		}
	}
	return "", false
}
