package attendance

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used for Record.Date and Student.JoinDate.
const DateLayout = "2006-01-02"

// Status is an attendance mark.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusPresent, StatusAbsent, StatusLate}

// Valid returns true when the status is a supported value.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	default:
		return false
	}
}

// Student is a roster entry owned by one teacher.
type Student struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	StudentID string `json:"studentId"`
	Class     string `json:"class"`
	JoinDate  string `json:"joinDate"`
	OwnerID   string `json:"teacherId"`
}

// Record is one student's attendance on one date.
type Record struct {
	ID        string `json:"id"`
	StudentID string `json:"studentId"`
	OwnerID   string `json:"teacherId"`
	Date      string `json:"date"`
	Status    Status `json:"status"`
	Notes     string `json:"notes,omitempty"`
}

// StudentInput carries the fields of a new student. Email defaults to
// <studentId>@school.edu and JoinDate to today when left empty.
type StudentInput struct {
	Name      string `validate:"required"`
	Email     string `validate:"omitempty,email"`
	StudentID string `validate:"required"`
	Class     string `validate:"required"`
	JoinDate  string `validate:"omitempty,datetime=2006-01-02"`
}

// StudentPatch is a partial update; nil fields are left untouched.
type StudentPatch struct {
	Name      *string
	Email     *string
	StudentID *string
	Class     *string
	JoinDate  *string
}

func (p StudentPatch) apply(st Student) Student {
	if p.Name != nil {
		st.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		st.Email = strings.TrimSpace(*p.Email)
	}
	if p.StudentID != nil {
		st.StudentID = strings.TrimSpace(*p.StudentID)
	}
	if p.Class != nil {
		st.Class = strings.TrimSpace(*p.Class)
	}
	if p.JoinDate != nil {
		st.JoinDate = strings.TrimSpace(*p.JoinDate)
	}
	return st
}

func (in StudentInput) normalize(now time.Time) StudentInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.Class = strings.TrimSpace(in.Class)
	in.JoinDate = strings.TrimSpace(in.JoinDate)
	if in.Email == "" && in.StudentID != "" {
		in.Email = in.StudentID + "@school.edu"
	}
	if in.JoinDate == "" {
		in.JoinDate = now.Format(DateLayout)
	}
	return in
}

func inputOf(st Student) StudentInput {
	return StudentInput{Name: st.Name, Email: st.Email, StudentID: st.StudentID, Class: st.Class, JoinDate: st.JoinDate}
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	t, err := time.Parse(DateLayout, s)
	return err == nil && t.Format(DateLayout) == s
}
