// Package report derives attendance statistics from a roster and its records.
// Everything here is a pure function of its inputs except Engine, which pulls
// the current snapshot from an attendance.Service.
package report

import (
	"math"
	"sort"

	"rollcall/internal/attendance"
)

// AllClasses is the class filter that matches every class.
const AllClasses = "all"

// DayStats summarizes one date across the whole roster.
type DayStats struct {
	Present        int `json:"present"`
	Absent         int `json:"absent"`
	Late           int `json:"late"`
	TotalStudents  int `json:"totalStudents"`
	AttendanceRate int `json:"attendanceRate"`
}

// Filter selects the records and students a Report covers. From and To are
// inclusive YYYY-MM-DD bounds.
type Filter struct {
	From  string
	To    string
	Class string
}

// StudentStats is one row of a Report.
type StudentStats struct {
	Student        attendance.Student `json:"student"`
	Present        int                `json:"present"`
	Absent         int                `json:"absent"`
	Late           int                `json:"late"`
	Total          int                `json:"total"`
	AttendanceRate int                `json:"attendanceRate"`
}

// Overall aggregates a Report across students.
type Overall struct {
	TotalStudents     int `json:"totalStudents"`
	TotalDays         int `json:"totalDays"`
	TotalPresent      int `json:"totalPresent"`
	TotalAbsent       int `json:"totalAbsent"`
	TotalLate         int `json:"totalLate"`
	AverageAttendance int `json:"averageAttendance"`
}

// Report is the per-student and overall breakdown for a Filter.
type Report struct {
	Filter     Filter         `json:"-"`
	PerStudent []StudentStats `json:"perStudent"`
	Overall    Overall        `json:"overall"`
}

// percent rounds num*100/den half away from zero, or returns 0 when den is 0.
// Scaling before dividing keeps exact halves exact.
func percent(num, den int) int {
	if den == 0 {
		return 0
	}
	return int(math.Round(float64(num*100) / float64(den)))
}

// StatsForDate counts the marks recorded on date. The rate is present over
// the full roster size, so unmarked students count against it.
func StatsForDate(students []attendance.Student, records []attendance.Record, date string) DayStats {
	stats := DayStats{TotalStudents: len(students)}
	for _, rec := range records {
		if rec.Date != date {
			continue
		}
		switch rec.Status {
		case attendance.StatusPresent:
			stats.Present++
		case attendance.StatusAbsent:
			stats.Absent++
		case attendance.StatusLate:
			stats.Late++
		}
	}
	stats.AttendanceRate = percent(stats.Present, stats.TotalStudents)
	return stats
}

func (f Filter) matchesClass(class string) bool {
	return f.Class == "" || f.Class == AllClasses || f.Class == class
}

// Build produces the report for f. Students outside the class filter are
// dropped; every remaining student gets a row even with no records.
func Build(students []attendance.Student, records []attendance.Record, f Filter) Report {
	rows := make([]StudentStats, 0, len(students))
	index := make(map[string]int, len(students))
	for _, st := range students {
		if !f.matchesClass(st.Class) {
			continue
		}
		index[st.ID] = len(rows)
		rows = append(rows, StudentStats{Student: st})
	}

	days := make(map[string]struct{})
	for _, rec := range records {
		if rec.Date < f.From || rec.Date > f.To {
			continue
		}
		i, ok := index[rec.StudentID]
		if !ok {
			continue
		}
		days[rec.Date] = struct{}{}
		switch rec.Status {
		case attendance.StatusPresent:
			rows[i].Present++
		case attendance.StatusAbsent:
			rows[i].Absent++
		case attendance.StatusLate:
			rows[i].Late++
		}
	}

	overall := Overall{TotalStudents: len(rows), TotalDays: len(days)}
	rateSum := 0
	for i := range rows {
		r := &rows[i]
		r.Total = r.Present + r.Absent + r.Late
		r.AttendanceRate = percent(r.Present, r.Total)
		overall.TotalPresent += r.Present
		overall.TotalAbsent += r.Absent
		overall.TotalLate += r.Late
		rateSum += r.AttendanceRate
	}
	if len(rows) > 0 {
		overall.AverageAttendance = int(math.Round(float64(rateSum) / float64(len(rows))))
	}

	return Report{Filter: f, PerStudent: rows, Overall: overall}
}

// Classes returns the distinct class labels of students, sorted.
func Classes(students []attendance.Student) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, st := range students {
		if _, ok := seen[st.Class]; ok {
			continue
		}
		seen[st.Class] = struct{}{}
		out = append(out, st.Class)
	}
	sort.Strings(out)
	return out
}

// Band buckets an attendance rate for display.
type Band string

const (
	BandGood    Band = "good"
	BandWarning Band = "warning"
	BandPoor    Band = "poor"
)

// RateBand returns good at 90 and above, warning at 75 and above, poor otherwise.
func RateBand(rate int) Band {
	switch {
	case rate >= 90:
		return BandGood
	case rate >= 75:
		return BandWarning
	default:
		return BandPoor
	}
}
