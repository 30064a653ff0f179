package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/store"
)

func student(id, class string) attendance.Student {
	return attendance.Student{ID: id, Name: "Name " + id, StudentID: "ST-" + id, Class: class}
}

func mark(studentID, date string, status attendance.Status) attendance.Record {
	return attendance.Record{ID: studentID + date, StudentID: studentID, Date: date, Status: status}
}

func TestStatsForDateEmptyRoster(t *testing.T) {
	stats := StatsForDate(nil, nil, "2025-03-14")
	assert.Equal(t, DayStats{}, stats)
}

func TestStatsForDateScenario(t *testing.T) {
	students := []attendance.Student{student("a", "10-A"), student("b", "10-A"), student("c", "10-A"), student("d", "10-B")}
	records := []attendance.Record{
		mark("a", "2025-03-14", attendance.StatusPresent),
		mark("b", "2025-03-14", attendance.StatusPresent),
		mark("c", "2025-03-14", attendance.StatusAbsent),
		mark("d", "2025-03-13", attendance.StatusLate),
	}
	assert.Equal(t, DayStats{Present: 2, Absent: 1, Late: 0, TotalStudents: 4, AttendanceRate: 50}, StatsForDate(students, records, "2025-03-14"))
}

func TestPercentRounding(t *testing.T) {
	tests := []struct {
		num, den, want int
	}{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{3, 40, 8},
		{1, 200, 1},
		{5, 5, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, percent(tt.num, tt.den), "%d/%d", tt.num, tt.den)
	}
}

func TestBuildEmptyRange(t *testing.T) {
	students := []attendance.Student{student("a", "10-A"), student("b", "10-B")}
	records := []attendance.Record{mark("a", "2025-01-02", attendance.StatusPresent)}

	r := Build(students, records, Filter{From: "2025-03-01", To: "2025-03-31", Class: AllClasses})
	assert.Equal(t, Overall{TotalStudents: 2}, r.Overall)
	require.Len(t, r.PerStudent, 2)
	for _, row := range r.PerStudent {
		assert.Zero(t, row.Total)
		assert.Zero(t, row.AttendanceRate)
	}
}

func TestBuildNoStudents(t *testing.T) {
	r := Build(nil, nil, Filter{From: "2025-03-01", To: "2025-03-31", Class: AllClasses})
	assert.Empty(t, r.PerStudent)
	assert.Equal(t, Overall{}, r.Overall)
}

func TestBuildRangeAndClass(t *testing.T) {
	students := []attendance.Student{student("a", "10-A"), student("b", "10-A"), student("c", "10-B")}
	records := []attendance.Record{
		mark("a", "2025-02-28", attendance.StatusAbsent), // before range
		mark("a", "2025-03-01", attendance.StatusPresent),
		mark("a", "2025-03-02", attendance.StatusPresent),
		mark("a", "2025-03-03", attendance.StatusLate),
		mark("b", "2025-03-03", attendance.StatusAbsent),
		mark("c", "2025-03-04", attendance.StatusPresent),
		mark("a", "2025-03-05", attendance.StatusPresent), // after range
	}
	f := Filter{From: "2025-03-01", To: "2025-03-04", Class: "10-A"}

	r := Build(students, records, f)
	require.Len(t, r.PerStudent, 2)
	assert.Equal(t, StudentStats{Student: students[0], Present: 2, Late: 1, Total: 3, AttendanceRate: 67}, r.PerStudent[0])
	assert.Equal(t, StudentStats{Student: students[1], Absent: 1, Total: 1, AttendanceRate: 0}, r.PerStudent[1])
	assert.Equal(t, Overall{
		TotalStudents:     2,
		TotalDays:         3,
		TotalPresent:      2,
		TotalAbsent:       1,
		TotalLate:         1,
		AverageAttendance: 34, // round((67 + 0) / 2)
	}, r.Overall)

	all := Build(students, records, Filter{From: f.From, To: f.To, Class: AllClasses})
	assert.Equal(t, 3, all.Overall.TotalStudents)
	assert.Equal(t, 4, all.Overall.TotalDays)
	assert.Equal(t, 3, all.Overall.TotalPresent)
}

func TestBuildIgnoresRecordsOfUnknownStudents(t *testing.T) {
	students := []attendance.Student{student("a", "10-A")}
	records := []attendance.Record{mark("ghost", "2025-03-01", attendance.StatusPresent)}
	r := Build(students, records, Filter{From: "2025-03-01", To: "2025-03-01", Class: AllClasses})
	assert.Zero(t, r.Overall.TotalDays)
	assert.Zero(t, r.Overall.TotalPresent)
}

func TestClassesAndBands(t *testing.T) {
	students := []attendance.Student{student("a", "10-B"), student("b", "10-A"), student("c", "10-B")}
	assert.Equal(t, []string{"10-A", "10-B"}, Classes(students))
	assert.Equal(t, []string{}, Classes(nil))

	assert.Equal(t, BandGood, RateBand(90))
	assert.Equal(t, BandWarning, RateBand(89))
	assert.Equal(t, BandWarning, RateBand(75))
	assert.Equal(t, BandPoor, RateBand(74))
}

func TestWriteCSV(t *testing.T) {
	r := Report{PerStudent: []StudentStats{
		{Student: attendance.Student{Name: "Alice Johnson", StudentID: "ST001", Class: "10-A"}, Present: 2, Late: 1, Total: 3, AttendanceRate: 67},
		{Student: attendance.Student{Name: "Smith, Bob", StudentID: "ST002", Class: "10-A"}, Absent: 1, Total: 1},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, r))
	assert.Equal(t,
		"Student Name,Student ID,Class,Present,Absent,Late,Total Days,Attendance Rate (%)\n"+
			"Alice Johnson,ST001,10-A,2,0,1,3,67\n"+
			"\"Smith, Bob\",ST002,10-A,0,1,0,1,0\n",
		buf.String())
}

func TestFileNameAndDefaultFilter(t *testing.T) {
	f := DefaultFilter(time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, Filter{From: "2025-03-01", To: "2025-03-31", Class: AllClasses}, f)
	assert.Equal(t, "attendance-report-2025-03-01-to-2025-03-31.csv", FileName(f))

	west := time.FixedZone("UTC-5", -5*60*60)
	late := DefaultFilter(time.Date(2025, 3, 30, 21, 0, 0, 0, west))
	assert.Equal(t, "2025-03-31", late.To, "dates follow UTC")
	assert.Equal(t, "2025-03-01", late.From)
}

func TestEngineScenario(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	sessions := auth.NewSessions(kv, auth.Options{})
	svc := attendance.NewService(attendance.NewRepository(kv, attendance.DefaultKeys, zerolog.Nop(), nil), sessions, zerolog.Nop())
	engine := NewEngine(svc)

	assert.Equal(t, DayStats{}, engine.Today(ctx), "no session reads as empty")

	_, err := sessions.SignIn(ctx, "teacher@school.edu", "pw")
	require.NoError(t, err)
	n, err := svc.SeedSamples(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	today := svc.Today()
	students := svc.ListStudents(ctx)
	statuses := []attendance.Status{attendance.StatusPresent, attendance.StatusPresent, attendance.StatusAbsent}
	for i, status := range statuses {
		_, err := svc.MarkAttendance(ctx, students[i].ID, today, status, "")
		require.NoError(t, err)
	}

	assert.Equal(t, DayStats{Present: 2, Absent: 1, Late: 0, TotalStudents: 4, AttendanceRate: 50}, engine.Today(ctx))
	assert.Equal(t, []string{"10-A", "10-B"}, engine.Classes(ctx))

	r := engine.Report(ctx, Filter{From: today, To: today, Class: AllClasses})
	assert.Equal(t, 4, r.Overall.TotalStudents)
	assert.Equal(t, 1, r.Overall.TotalDays)
	assert.Equal(t, 50, r.Overall.AverageAttendance)
}
