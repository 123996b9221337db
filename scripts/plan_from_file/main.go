// Command plan_from_file runs a full scheduling pass offline against a JSON
// input file, without the HTTP server. Useful for replaying a day's roster
// while tuning requirement rules.
//
//	go run ./scripts/plan_from_file -input day.json -rules "脳血管=180"
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/rehabplan/rehab-planner-api/internal/dto"
	"github.com/rehabplan/rehab-planner-api/internal/schedule"
	"github.com/rehabplan/rehab-planner-api/internal/service"
)

func main() {
	var (
		inputPath   string
		rulesFlag   string
		minutes     int
		allowRepeat bool
		asJSON      bool
	)

	flag.StringVar(&inputPath, "input", "", "Path to a JSON file with date, therapists, patients and shifts")
	flag.StringVar(&rulesFlag, "rules", "", "Comma-separated requirement rules, e.g. 脳血管=180")
	flag.IntVar(&minutes, "minutes", schedule.DefaultRequirementMinutes, "Fallback required minutes per patient")
	flag.BoolVar(&allowRepeat, "allow-repeat", true, "Allow the same therapist to take several slots of one patient")
	flag.BoolVar(&asJSON, "json", false, "Print the schedule as JSON instead of a table")
	flag.Parse()

	if inputPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	raw, err := os.ReadFile(inputPath)
	if err != nil {
		log.Fatalf("failed to read input: %v", err)
	}
	var req dto.BuildMatricesRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		log.Fatalf("failed to parse input: %v", err)
	}

	var rules []string
	if rulesFlag != "" {
		rules = strings.Split(rulesFlag, ",")
	}
	planner := service.NewPlannerService(nil, nil, nil, nil, nil, zap.NewNop(), service.PlannerConfig{
		AllowRepeatTherapist: allowRepeat,
		RequirementRules:     rules,
		DefaultMinutes:       minutes,
	})

	ctx := context.Background()
	built, err := planner.BuildMatrices(ctx, req)
	if err != nil {
		log.Fatalf("failed to build constraint matrices: %v", err)
	}
	resp, err := planner.ScheduleRun(ctx, built.RunID)
	if err != nil {
		log.Fatalf("scheduling failed: %v", err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			log.Fatalf("failed to encode schedule: %v", err)
		}
		return
	}

	fmt.Printf("schedule for %s: %d assignments\n", resp.Schedule.Date, len(resp.Schedule.Assignments))
	for _, a := range resp.Schedule.Assignments {
		fmt.Printf("  %-12s %-10s -> %s (%dmin)\n", a.Timeslot, a.PatientID, a.TherapistID, a.DurationMinutes)
	}
	if len(resp.Schedule.UnscheduledPatients) > 0 {
		fmt.Printf("unscheduled: %s\n", strings.Join(resp.Schedule.UnscheduledPatients, ", "))
	}
	if !resp.Validation.Valid {
		fmt.Println("validation violations:")
		for _, v := range resp.Validation.Violations {
			fmt.Printf("  %s\n", v)
		}
		os.Exit(1)
	}
}
