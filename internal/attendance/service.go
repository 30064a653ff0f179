package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"rollcall/internal/metrics"
)

// OwnerResolver yields the id of the signed-in user.
type OwnerResolver interface {
	CurrentOwnerID(ctx context.Context) (string, error)
}

// Service exposes the roster and attendance operations scoped to the current owner.
type Service struct {
	repo     *Repository
	owners   OwnerResolver
	validate *validator.Validate
	metrics  *metrics.Store
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository, owners OwnerResolver, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		owners:   owners,
		validate: validator.New(),
		metrics:  repo.metrics,
		log:      log,
		now:      time.Now,
	}
}

// Today returns the current UTC date as YYYY-MM-DD.
func (s *Service) Today() string {
	return s.now().UTC().Format(DateLayout)
}

// ListStudents returns the owner's students in storage order. Missing sessions
// and unreadable storage both yield an empty list.
func (s *Service) ListStudents(ctx context.Context) []Student {
	owner, err := s.owners.CurrentOwnerID(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("listing students without a session")
		return []Student{}
	}
	students, err := s.repo.Students(ctx, owner)
	if err != nil || students == nil {
		return []Student{}
	}
	return students
}

// GetStudent looks up one of the owner's students by id.
func (s *Service) GetStudent(ctx context.Context, id string) (Student, bool) {
	for _, st := range s.ListStudents(ctx) {
		if st.ID == id {
			return st, true
		}
	}
	return Student{}, false
}

// ListRecords returns the owner's attendance records, empty on any failure.
func (s *Service) ListRecords(ctx context.Context) []Record {
	owner, err := s.owners.CurrentOwnerID(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("listing attendance without a session")
		return []Record{}
	}
	records, err := s.repo.Records(ctx, owner)
	if err != nil || records == nil {
		return []Record{}
	}
	return records
}

// RecordsByDate returns the owner's records for one date.
func (s *Service) RecordsByDate(ctx context.Context, date string) []Record {
	out := []Record{}
	for _, rec := range s.ListRecords(ctx) {
		if rec.Date == date {
			out = append(out, rec)
		}
	}
	return out
}

// RecordsByStudent returns the owner's records for one student.
func (s *Service) RecordsByStudent(ctx context.Context, studentID string) []Record {
	out := []Record{}
	for _, rec := range s.ListRecords(ctx) {
		if rec.StudentID == studentID {
			out = append(out, rec)
		}
	}
	return out
}

// AddStudent validates in and appends a new student for the current owner.
// When only the final write fails, the built student is returned together
// with an error matching ErrPersistence.
func (s *Service) AddStudent(ctx context.Context, in StudentInput) (Student, error) {
	owner, err := s.owners.CurrentOwnerID(ctx)
	if err != nil {
		return Student{}, err
	}
	in = in.normalize(s.now().UTC())
	if err := s.validate.Struct(in); err != nil {
		return Student{}, fmt.Errorf("%w: %v", ErrInvalidStudent, err)
	}

	st := Student{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     in.Email,
		StudentID: in.StudentID,
		Class:     in.Class,
		JoinDate:  in.JoinDate,
		OwnerID:   owner,
	}
	err = s.repo.UpdateStudents(ctx, owner, func(students []Student) ([]Student, error) {
		if rosterCodeTaken(students, st.StudentID, "") {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStudentID, st.StudentID)
		}
		return append(students, st), nil
	})
	if err != nil {
		if isWriteFailure(err) {
			return st, err
		}
		return Student{}, err
	}
	return st, nil
}

// UpdateStudent merges patch into the owner's student with the given id.
// Unknown ids, including other owners' students, are ignored.
func (s *Service) UpdateStudent(ctx context.Context, id string, patch StudentPatch) error {
	owner, err := s.owners.CurrentOwnerID(ctx)
	if err != nil {
		return err
	}
	return s.repo.UpdateStudents(ctx, owner, func(students []Student) ([]Student, error) {
		for i, st := range students {
			if st.ID != id {
				continue
			}
			merged := patch.apply(st)
			if merged.Email == "" {
				merged.Email = merged.StudentID + "@school.edu"
			}
			if err := s.validate.Struct(inputOf(merged)); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidStudent, err)
			}
			if merged.StudentID != st.StudentID && rosterCodeTaken(students, merged.StudentID, st.ID) {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateStudentID, merged.StudentID)
			}
			students[i] = merged
			return students, nil
		}
		return nil, errUnchanged
	})
}

// DeleteStudent removes the student and every attendance record referencing it.
// Both writes are attempted; a failed second write does not undo the first.
func (s *Service) DeleteStudent(ctx context.Context, id string) error {
	owner, err := s.owners.CurrentOwnerID(ctx)
	if err != nil {
		return err
	}

	var result *multierror.Error
	err = s.repo.UpdateStudents(ctx, owner, func(students []Student) ([]Student, error) {
		kept := students[:0]
		for _, st := range students {
			if st.ID != id {
				kept = append(kept, st)
			}
		}
		if len(kept) == len(students) {
			return nil, errUnchanged
		}
		return kept, nil
	})
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("delete student: %w", err))
	}

	err = s.repo.UpdateRecords(ctx, owner, func(records []Record) ([]Record, error) {
		kept := records[:0]
		for _, rec := range records {
			if rec.StudentID != id {
				kept = append(kept, rec)
			}
		}
		if len(kept) == len(records) {
			return nil, errUnchanged
		}
		return kept, nil
	})
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("delete attendance: %w", err))
	}
	return result.ErrorOrNil()
}

// MarkAttendance upserts the record for (studentID, date). An existing record
// keeps its id and has its status and notes replaced.
func (s *Service) MarkAttendance(ctx context.Context, studentID, date string, status Status, notes string) (Record, error) {
	owner, err := s.owners.CurrentOwnerID(ctx)
	if err != nil {
		return Record{}, err
	}
	if !status.Valid() {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if !ValidDate(date) {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	rec := Record{StudentID: studentID, OwnerID: owner, Date: date, Status: status, Notes: notes}
	created := false
	err = s.repo.UpdateRecords(ctx, owner, func(records []Record) ([]Record, error) {
		students, err := s.repo.Students(ctx, owner)
		if err != nil {
			return nil, err
		}
		if !hasStudent(students, studentID) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownStudent, studentID)
		}
		for i, existing := range records {
			if existing.StudentID == studentID && existing.Date == date {
				rec.ID = existing.ID
				records[i] = rec
				return records, nil
			}
		}
		rec.ID = uuid.NewString()
		created = true
		return append(records, rec), nil
	})
	if err != nil {
		if isWriteFailure(err) {
			return rec, err
		}
		return Record{}, err
	}
	s.metrics.Marked(created)
	return rec, nil
}

func isWriteFailure(err error) bool {
	var perr *PersistenceError
	return errors.As(err, &perr) && perr.Op == "write"
}

func rosterCodeTaken(students []Student, code, exceptID string) bool {
	for _, st := range students {
		if st.ID != exceptID && strings.EqualFold(st.StudentID, code) {
			return true
		}
	}
	return false
}

func hasStudent(students []Student, id string) bool {
	for _, st := range students {
		if st.ID == id {
			return true
		}
	}
	return false
}
