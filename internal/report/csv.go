package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

var csvHeader = []string{"Student Name", "Student ID", "Class", "Present", "Absent", "Late", "Total Days", "Attendance Rate (%)"}

// WriteCSV writes the header and one row per student of r.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, s := range r.PerStudent {
		row := []string{
			s.Student.Name,
			s.Student.StudentID,
			s.Student.Class,
			strconv.Itoa(s.Present),
			strconv.Itoa(s.Absent),
			strconv.Itoa(s.Late),
			strconv.Itoa(s.Total),
			strconv.Itoa(s.AttendanceRate),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileName is the suggested download name for a report over f.
func FileName(f Filter) string {
	return "attendance-report-" + f.From + "-to-" + f.To + ".csv"
}
