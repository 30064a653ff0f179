package attendance

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Sheet holds one day's attendance while it is being edited. It starts from
// the stored records for the date; Save writes every marked student back
// through MarkAttendance, so saving twice is harmless.
type Sheet struct {
	svc    *Service
	date   string
	status map[string]Status
	notes  map[string]string
}

// OpenSheet loads the owner's existing records for date.
func OpenSheet(ctx context.Context, svc *Service, date string) (*Sheet, error) {
	if !ValidDate(date) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	sh := &Sheet{
		svc:    svc,
		date:   date,
		status: make(map[string]Status),
		notes:  make(map[string]string),
	}
	for _, rec := range svc.RecordsByDate(ctx, date) {
		sh.status[rec.StudentID] = rec.Status
		if rec.Notes != "" {
			sh.notes[rec.StudentID] = rec.Notes
		}
	}
	return sh, nil
}

// Date returns the sheet's date.
func (sh *Sheet) Date() string { return sh.date }

// Set marks a student. It does not persist until Save.
func (sh *Sheet) Set(studentID string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	sh.status[studentID] = status
	return nil
}

// SetNote attaches a note to a student; an empty note clears it.
func (sh *Sheet) SetNote(studentID, note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		delete(sh.notes, studentID)
		return
	}
	sh.notes[studentID] = note
}

// Status returns the student's current mark, if any.
func (sh *Sheet) Status(studentID string) (Status, bool) {
	st, ok := sh.status[studentID]
	return st, ok
}

// Note returns the student's current note.
func (sh *Sheet) Note(studentID string) string { return sh.notes[studentID] }

// Count returns how many students currently hold status.
func (sh *Sheet) Count(status Status) int {
	n := 0
	for _, st := range sh.status {
		if st == status {
			n++
		}
	}
	return n
}

// UnsavedNotes returns, sorted, the students holding a note but no status.
// Save skips their notes.
func (sh *Sheet) UnsavedNotes() []string {
	var ids []string
	for id := range sh.notes {
		if _, ok := sh.status[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Save persists every marked student. Notes without a status are not saved.
// Failures are collected; marks that succeeded stay written.
func (sh *Sheet) Save(ctx context.Context) error {
	ids := make([]string, 0, len(sh.status))
	for id := range sh.status {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var result *multierror.Error
	for _, id := range ids {
		if _, err := sh.svc.MarkAttendance(ctx, id, sh.date, sh.status[id], sh.notes[id]); err != nil {
			result = multierror.Append(result, fmt.Errorf("student %s: %w", id, err))
		}
	}
	return result.ErrorOrNil()
}
