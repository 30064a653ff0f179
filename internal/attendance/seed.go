package attendance

import (
	"context"
	"strings"
)

var sampleStudents = []StudentInput{
	{Name: "Alice Johnson", Email: "alice.johnson@school.edu", StudentID: "ST001", Class: "10-A", JoinDate: "2024-01-15"},
	{Name: "Bob Smith", Email: "bob.smith@school.edu", StudentID: "ST002", Class: "10-A", JoinDate: "2024-01-16"},
	{Name: "Carol Davis", Email: "carol.davis@school.edu", StudentID: "ST003", Class: "10-B", JoinDate: "2024-01-17"},
	{Name: "David Wilson", Email: "david.wilson@school.edu", StudentID: "ST004", Class: "10-A", JoinDate: "2024-01-18"},
}

// SeedSamples fills an empty roster with four sample students and reports how
// many were added. A roster with any students is left alone.
func (s *Service) SeedSamples(ctx context.Context) (int, error) {
	if _, err := s.owners.CurrentOwnerID(ctx); err != nil {
		return 0, err
	}
	if len(s.ListStudents(ctx)) > 0 {
		return 0, nil
	}
	added := 0
	for _, in := range sampleStudents {
		if _, err := s.AddStudent(ctx, in); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// SearchStudents keeps students whose name, roster code or class contains term,
// ignoring case. An empty term keeps everyone.
func SearchStudents(students []Student, term string) []Student {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return students
	}
	out := []Student{}
	for _, st := range students {
		if strings.Contains(strings.ToLower(st.Name), term) ||
			strings.Contains(strings.ToLower(st.StudentID), term) ||
			strings.Contains(strings.ToLower(st.Class), term) {
			out = append(out, st)
		}
	}
	return out
}
