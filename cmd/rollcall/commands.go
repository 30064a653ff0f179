package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/report"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "rollcall",
		Short:         "Keep a class roster and its daily attendance",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.log.Debug().Str("command", cmd.Name()).Msg("running")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(
		newSignUpCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoAmICmd(a),
		newSeedCmd(a),
		newStudentsCmd(a),
		newAddStudentCmd(a),
		newUpdateStudentCmd(a),
		newDeleteStudentCmd(a),
		newMarkCmd(a),
		newSheetCmd(a),
		newStatsCmd(a),
		newReportCmd(a),
		newClassesCmd(a),
	)
	return root
}

func newSignUpCmd(a *app) *cobra.Command {
	var in auth.SignUpInput
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := a.sessions.SignUp(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s <%s>\n", id.Name, id.Email)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.FullName, "name", "", "full name")
	f.StringVar(&in.Email, "email", "", "email address")
	f.StringVar(&in.SchoolName, "school", "", "school name")
	f.StringVar(&in.Password, "password", "", "password, at least 6 characters")
	f.StringVar(&in.ConfirmPassword, "confirm", "", "password again")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := a.sessions.SignIn(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s <%s>\n", id.Name, id.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.sessions.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newWhoAmICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := a.sessions.Current(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", id.Name, id.Email, id.ID)
			return nil
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Add the sample roster when it is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.svc.SeedSamples(cmd.Context())
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "roster already has students; nothing seeded")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d students\n", n)
			return nil
		},
	}
}

func newStudentsCmd(a *app) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "students",
		Short: "List students, optionally filtered with -q",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			students := attendance.SearchStudents(a.svc.ListStudents(cmd.Context()), query)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "STUDENT ID\tNAME\tCLASS\tEMAIL\tJOINED\tID")
			for _, st := range students {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", st.StudentID, st.Name, st.Class, st.Email, st.JoinDate, st.ID)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by name, student id or class")
	return cmd
}

func newAddStudentCmd(a *app) *cobra.Command {
	var in attendance.StudentInput
	cmd := &cobra.Command{
		Use:   "add-student",
		Short: "Add a student to the roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.svc.AddStudent(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s %s (%s)\n", st.StudentID, st.Name, st.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "full name")
	f.StringVar(&in.Email, "email", "", "email (default <id>@school.edu)")
	f.StringVar(&in.StudentID, "id", "", "roster code, e.g. ST005")
	f.StringVar(&in.Class, "class", "", "class label")
	f.StringVar(&in.JoinDate, "joined", "", "join date YYYY-MM-DD (default today)")
	return cmd
}

func newUpdateStudentCmd(a *app) *cobra.Command {
	var ref, name, email, code, class, joined string
	cmd := &cobra.Command{
		Use:   "update-student",
		Short: "Change fields of a student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var patch attendance.StudentPatch
			f := cmd.Flags()
			if f.Changed("name") {
				patch.Name = &name
			}
			if f.Changed("email") {
				patch.Email = &email
			}
			if f.Changed("id") {
				patch.StudentID = &code
			}
			if f.Changed("class") {
				patch.Class = &class
			}
			if f.Changed("joined") {
				patch.JoinDate = &joined
			}

			st, err := resolveStudent(cmd.Context(), a, ref)
			if err != nil {
				return err
			}
			if err := a.svc.UpdateStudent(cmd.Context(), st.ID, patch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", st.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&ref, "student", "", "student id or roster code")
	f.StringVar(&name, "name", "", "full name")
	f.StringVar(&email, "email", "", "email")
	f.StringVar(&code, "id", "", "roster code")
	f.StringVar(&class, "class", "", "class label")
	f.StringVar(&joined, "joined", "", "join date YYYY-MM-DD")
	return cmd
}

func newDeleteStudentCmd(a *app) *cobra.Command {
	var ref string
	cmd := &cobra.Command{
		Use:   "delete-student",
		Short: "Remove a student and their attendance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := resolveStudent(cmd.Context(), a, ref)
			if err != nil {
				return err
			}
			if err := a.svc.DeleteStudent(cmd.Context(), st.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", st.StudentID, st.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&ref, "student", "", "student id or roster code")
	return cmd
}

func newMarkCmd(a *app) *cobra.Command {
	var ref, date, status, notes string
	cmd := &cobra.Command{
		Use:   "mark",
		Short: "Mark one student for a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := resolveStudent(cmd.Context(), a, ref)
			if err != nil {
				return err
			}
			rec, err := a.svc.MarkAttendance(cmd.Context(), st.ID, date, parseStatus(status), strings.TrimSpace(notes))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", rec.Date, st.StudentID, rec.Status)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&ref, "student", "", "student id or roster code")
	f.StringVar(&date, "date", a.svc.Today(), "date YYYY-MM-DD")
	f.StringVar(&status, "status", string(attendance.StatusPresent), "present, absent or late")
	f.StringVar(&notes, "notes", "", "optional note")
	return cmd
}

func newSheetCmd(a *app) *cobra.Command {
	var date string
	var sets, notes []string
	cmd := &cobra.Command{
		Use:   "sheet",
		Short: "Show or edit a day's attendance sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sheet, err := attendance.OpenSheet(ctx, a.svc, date)
			if err != nil {
				return err
			}
			codes := make(map[string]string)
			for _, kv := range sets {
				st, status, err := resolveAssignment(ctx, a, kv)
				if err != nil {
					return err
				}
				if err := sheet.Set(st.ID, parseStatus(status)); err != nil {
					return err
				}
			}
			for _, kv := range notes {
				st, note, err := resolveAssignment(ctx, a, kv)
				if err != nil {
					return err
				}
				codes[st.ID] = st.StudentID
				sheet.SetNote(st.ID, note)
			}
			if len(sets)+len(notes) > 0 {
				if err := sheet.Save(ctx); err != nil {
					return err
				}
			}
			for _, id := range sheet.UnsavedNotes() {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: note for %s not saved: no status\n", codes[id])
			}
			return printSheet(cmd.OutOrStdout(), sheet, a.svc.ListStudents(ctx))
		},
	}
	f := cmd.Flags()
	f.StringVar(&date, "date", a.svc.Today(), "date YYYY-MM-DD")
	f.StringArrayVar(&sets, "set", nil, "mark a student, code=status (repeatable)")
	f.StringArrayVar(&notes, "note", nil, "note for a student, code=text (repeatable)")
	return cmd
}

func printSheet(out io.Writer, sheet *attendance.Sheet, students []attendance.Student) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Attendance for %s\n", sheet.Date())
	fmt.Fprintln(tw, "STUDENT ID\tNAME\tCLASS\tSTATUS\tNOTES")
	for _, st := range students {
		mark := "-"
		if status, ok := sheet.Status(st.ID); ok {
			mark = string(status)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", st.StudentID, st.Name, st.Class, mark, sheet.Note(st.ID))
	}
	fmt.Fprintf(tw, "present %d, absent %d, late %d\n",
		sheet.Count(attendance.StatusPresent), sheet.Count(attendance.StatusAbsent), sheet.Count(attendance.StatusLate))
	return tw.Flush()
}

func newStatsCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize one date (default today)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !attendance.ValidDate(date) {
				return fmt.Errorf("%w: %q", attendance.ErrInvalidDate, date)
			}
			s := a.engine.StatsForDate(cmd.Context(), date)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d students, present %d, absent %d, late %d, rate %d%% (%s)\n",
				date, s.TotalStudents, s.Present, s.Absent, s.Late, s.AttendanceRate, report.RateBand(s.AttendanceRate))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", a.svc.Today(), "date YYYY-MM-DD")
	return cmd
}

func newReportCmd(a *app) *cobra.Command {
	def := report.DefaultFilter(time.Now())
	var f report.Filter
	var csvPath string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Per-student report for a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !attendance.ValidDate(f.From) || !attendance.ValidDate(f.To) {
				return fmt.Errorf("%w: %q to %q", attendance.ErrInvalidDate, f.From, f.To)
			}
			r := a.engine.Report(cmd.Context(), f)
			out := cmd.OutOrStdout()
			switch csvPath {
			case "":
				return printReport(out, r)
			case "-":
				return report.WriteCSV(out, r)
			default:
				path := csvPath
				if path == "auto" {
					path = report.FileName(f)
				}
				return writeCSVFile(path, r, out)
			}
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.From, "from", def.From, "first date YYYY-MM-DD")
	flags.StringVar(&f.To, "to", def.To, "last date YYYY-MM-DD")
	flags.StringVar(&f.Class, "class", report.AllClasses, `class label or "all"`)
	flags.StringVar(&csvPath, "csv", "", `write CSV to this path, "-" for stdout, "auto" for the default file name`)
	return cmd
}

func writeCSVFile(path string, r report.Report, out io.Writer) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	if err := report.WriteCSV(file, r); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", path)
	return nil
}

func printReport(out io.Writer, r report.Report) error {
	o := r.Overall
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Report %s to %s, class %s\n", r.Filter.From, r.Filter.To, r.Filter.Class)
	fmt.Fprintf(tw, "students %d, days %d, present %d, absent %d, late %d, average %d%%\n",
		o.TotalStudents, o.TotalDays, o.TotalPresent, o.TotalAbsent, o.TotalLate, o.AverageAttendance)
	fmt.Fprintln(tw, "STUDENT ID\tNAME\tCLASS\tPRESENT\tABSENT\tLATE\tTOTAL\tRATE")
	for _, row := range r.PerStudent {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d%% %s\n",
			row.Student.StudentID, row.Student.Name, row.Student.Class,
			row.Present, row.Absent, row.Late, row.Total, row.AttendanceRate, report.RateBand(row.AttendanceRate))
	}
	return tw.Flush()
}

func newClassesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "List class labels in the roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, c := range a.engine.Classes(cmd.Context()) {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}

var errNoStudent = errors.New("no such student")

func parseStatus(s string) attendance.Status {
	return attendance.Status(strings.ToLower(strings.TrimSpace(s)))
}

// resolveAssignment splits a code=value flag and resolves the code.
func resolveAssignment(ctx context.Context, a *app, kv string) (attendance.Student, string, error) {
	ref, value, ok := strings.Cut(kv, "=")
	if !ok {
		return attendance.Student{}, "", fmt.Errorf("expected code=value, got %q", kv)
	}
	st, err := resolveStudent(ctx, a, ref)
	return st, value, err
}

// resolveStudent finds a student by internal id or, ignoring case, roster code.
func resolveStudent(ctx context.Context, a *app, ref string) (attendance.Student, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return attendance.Student{}, fmt.Errorf("%w: --student is required", errNoStudent)
	}
	if _, err := a.sessions.CurrentOwnerID(ctx); err != nil {
		return attendance.Student{}, err
	}
	for _, st := range a.svc.ListStudents(ctx) {
		if st.ID == ref || strings.EqualFold(st.StudentID, ref) {
			return st, nil
		}
	}
	return attendance.Student{}, fmt.Errorf("%w: %s", errNoStudent, ref)
}
