package attendance

import (
	"errors"
	"fmt"
)

var (
	// ErrPersistence matches any failure to read or write a stored collection.
	ErrPersistence = errors.New("persistence failed")
	// ErrUnknownStudent is returned when marking attendance for a student the owner does not have.
	ErrUnknownStudent = errors.New("unknown student")
	// ErrDuplicateStudentID is returned when a roster code is already used by another of the owner's students.
	ErrDuplicateStudentID = errors.New("student id already in use")
	// ErrInvalidStudent wraps field validation failures.
	ErrInvalidStudent = errors.New("invalid student")
	ErrInvalidStatus  = errors.New("invalid attendance status")
	ErrInvalidDate    = errors.New("invalid date, want YYYY-MM-DD")
)

// PersistenceError describes a failed collection read or write.
type PersistenceError struct {
	Collection string
	Op         string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrPersistence) true for every PersistenceError.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
