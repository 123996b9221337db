// Package schedule implements the constraint-matrix construction and the
// deterministic greedy assignment engine for daily therapy planning. All code
// in this package is pure computation over in-memory structures: no I/O, no
// logging, no shared state between runs.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// SlotCount is the fixed number of schedulable slots per day: nine 20-minute
// slots in the morning block and nine in the afternoon block.
const SlotCount = 18

// Timeslots returns the ordered slot labels for one day. The grid never
// varies per run; callers share the returned slice read-only.
func Timeslots() []string {
	slots := make([]string, 0, SlotCount)
	slots = append(slots, block(9, 0, 9)...)
	slots = append(slots, block(13, 0, 9)...)
	return slots
}

func block(startHour, startMinute, n int) []string {
	labels := make([]string, 0, n)
	h, m := startHour, startMinute
	for i := 0; i < n; i++ {
		nh, nm := h, m+20
		if nm >= 60 {
			nh, nm = h+1, nm-60
		}
		labels = append(labels, fmt.Sprintf("%02d:%02d-%02d:%02d", h, m, nh, nm))
		h, m = nh, nm
	}
	return labels
}

// SlotStart returns the start hour and minute of a slot label.
func SlotStart(label string) (hour, minute int, ok bool) {
	start, _, found := strings.Cut(label, "-")
	if !found {
		return 0, 0, false
	}
	hh, mm, found := strings.Cut(start, ":")
	if !found {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(mm)
	if err != nil {
		return 0, 0, false
	}
	return hour, minute, true
}
