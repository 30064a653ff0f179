package report

import (
	"context"
	"time"

	"rollcall/internal/attendance"
)

// Engine runs the report functions against the signed-in owner's current data.
type Engine struct {
	svc *attendance.Service
}

// NewEngine binds an engine to svc.
func NewEngine(svc *attendance.Service) *Engine {
	return &Engine{svc: svc}
}

// StatsForDate reports on one date.
func (e *Engine) StatsForDate(ctx context.Context, date string) DayStats {
	return StatsForDate(e.svc.ListStudents(ctx), e.svc.ListRecords(ctx), date)
}

// Today reports on the current date.
func (e *Engine) Today(ctx context.Context) DayStats {
	return e.StatsForDate(ctx, e.svc.Today())
}

// Report builds the range report for f.
func (e *Engine) Report(ctx context.Context, f Filter) Report {
	return Build(e.svc.ListStudents(ctx), e.svc.ListRecords(ctx), f)
}

// Classes lists the owner's classes.
func (e *Engine) Classes(ctx context.Context) []string {
	return Classes(e.svc.ListStudents(ctx))
}

// DefaultFilter covers the 30 UTC days up to and including today, all classes.
func DefaultFilter(today time.Time) Filter {
	today = today.UTC()
	return Filter{
		From:  today.AddDate(0, 0, -30).Format(attendance.DateLayout),
		To:    today.Format(attendance.DateLayout),
		Class: AllClasses,
	}
}
