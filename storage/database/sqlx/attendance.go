package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-attendance/core/attendance"
)

// ErrUnknownStudent is returned when a batch names a student outside of the class section.
var ErrUnknownStudent = errors.New("student does not belong to this class section")

type Student struct {
	ID         string `db:"id"`
	RollNumber string `db:"roll_number"`
	Name       string `db:"name"`
	ClassName  string `db:"class_name"`
	Section    string `db:"section"`
}

type rosterRow struct {
	SubjectID       string `db:"subject_id"`
	RollNumber      string `db:"roll_number"`
	Name            string `db:"name"`
	CommittedStatus string `db:"committed_status"`
}

type periodDefinitionRow struct {
	Period      int    `db:"period"`
	StartTime   string `db:"start_time"`
	EndTime     string `db:"end_time"`
	Subject     string `db:"subject"`
	TeacherName string `db:"teacher_name"`
}

type periodRecordRow struct {
	SubjectID string `db:"subject_id"`
	Date      string `db:"date"`
	Period    int    `db:"period"`
	Subject   string `db:"subject"`
	Status    string `db:"status"`
}

// AttendanceRepository is the attendance.Backend of the database roster driver.
// Queries are written with `?` placeholders and rebound for the connected engine.
type AttendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Backend = (*AttendanceRepository)(nil)

func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const (
	rosterQuery = `
		SELECT s.id AS subject_id, s.roll_number, s.name, COALESCE(a.status, '') AS committed_status
		FROM student s
		LEFT JOIN attendance a ON a.student_id = s.id AND a.date = ? AND a.period = ?
		WHERE s.class_name = ? AND s.section = ?
		ORDER BY s.id`

	classStudentIDsQuery = `SELECT id FROM student WHERE class_name = ? AND section = ?`

	upsertAttendanceQuery = `
		INSERT INTO attendance (student_id, date, period, status, remarks)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (student_id, date, period) DO UPDATE SET status = excluded.status, remarks = excluded.remarks`

	periodDefinitionsQuery = `
		SELECT period, start_time, end_time, subject, teacher_name
		FROM period_definition
		WHERE class_name = ? AND section = ?
		ORDER BY period`

	periodRecordsQuery = `
		SELECT a.student_id AS subject_id, a.date, a.period, COALESCE(p.subject, '') AS subject, a.status
		FROM attendance a
		JOIN student s ON s.id = a.student_id
		LEFT JOIN period_definition p ON p.class_name = s.class_name AND p.section = s.section AND p.period = a.period
		WHERE s.class_name = ? AND s.section = ? AND a.period > 0`

	insertStudentQuery = `
		INSERT INTO student (id, roll_number, name, class_name, section)
		VALUES (:id, :roll_number, :name, :class_name, :section)`

	upsertPeriodDefinitionQuery = `
		INSERT INTO period_definition (class_name, section, period, start_time, end_time, subject, teacher_name)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (class_name, section, period) DO UPDATE SET
			start_time = excluded.start_time, end_time = excluded.end_time,
			subject = excluded.subject, teacher_name = excluded.teacher_name`
)

func (repo *AttendanceRepository) FetchRoster(ctx context.Context, key attendance.SelectionKey) ([]attendance.RosterEntry, error) {
	var rows []rosterRow
	q := repo.db.Rebind(rosterQuery)
	if err := repo.db.SelectContext(ctx, &rows, q, key.Date, key.Period, key.ClassName, key.Section); err != nil {
		return nil, errors.Wrap(err, "selecting roster")
	}
	entries := make([]attendance.RosterEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, attendance.RosterEntry{
			SubjectID:       r.SubjectID,
			RollNumber:      r.RollNumber,
			Name:            r.Name,
			CommittedStatus: attendance.Status(r.CommittedStatus),
		})
	}
	return entries, nil
}

// CommitAttendance upserts the whole batch in a single transaction.
func (repo *AttendanceRepository) CommitAttendance(ctx context.Context, req attendance.CommitRequest) (res attendance.CommitResult, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return res, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var ids []string
	if err = tx.SelectContext(ctx, &ids, tx.Rebind(classStudentIDsQuery), req.Key.ClassName, req.Key.Section); err != nil {
		return res, errors.Wrap(err, "selecting class students")
	}
	inClass := make(map[string]bool, len(ids))
	for _, id := range ids {
		inClass[id] = true
	}

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(upsertAttendanceQuery))
	if err != nil {
		return res, errors.Wrap(err, "preparing upsert")
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range req.Records {
		if !inClass[r.SubjectID] {
			err = errors.Wrap(ErrUnknownStudent, r.SubjectID)
			return res, err
		}
		if !r.Status.Valid() {
			err = errors.Wrapf(attendance.ErrInvalidStatus, "%s: %q", r.SubjectID, r.Status)
			return res, err
		}
		if _, err = stmt.ExecContext(ctx, r.SubjectID, req.Key.Date, req.Key.Period, string(r.Status), r.Remarks); err != nil {
			return res, errors.Wrapf(err, "saving attendance of %s", r.SubjectID)
		}
	}

	if err = tx.Commit(); err != nil {
		return res, errors.Wrap(err, "committing transaction")
	}
	return attendance.CommitResult{Success: true, SavedCount: len(req.Records)}, nil
}

func (repo *AttendanceRepository) PeriodDefinitions(ctx context.Context, class attendance.ClassRef) ([]attendance.PeriodDefinition, error) {
	var rows []periodDefinitionRow
	q := repo.db.Rebind(periodDefinitionsQuery)
	if err := repo.db.SelectContext(ctx, &rows, q, class.ClassName, class.Section); err != nil {
		return nil, errors.Wrap(err, "selecting period definitions")
	}
	defs := make([]attendance.PeriodDefinition, 0, len(rows))
	for _, r := range rows {
		defs = append(defs, attendance.PeriodDefinition(r))
	}
	return defs, nil
}

func (repo *AttendanceRepository) PeriodRecords(ctx context.Context, q attendance.PeriodRecordQuery) ([]attendance.PeriodRecord, error) {
	query := periodRecordsQuery
	args := []interface{}{q.ClassName, q.Section}
	if q.From != "" {
		query += " AND a.date >= ?"
		args = append(args, q.From)
	}
	if q.To != "" {
		query += " AND a.date <= ?"
		args = append(args, q.To)
	}
	query += " ORDER BY a.date, a.period, a.student_id"

	var rows []periodRecordRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "selecting period records")
	}
	records := make([]attendance.PeriodRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, attendance.PeriodRecord{
			SubjectID: r.SubjectID,
			Date:      r.Date,
			Period:    r.Period,
			Subject:   r.Subject,
			Status:    attendance.Status(r.Status),
		})
	}
	return records, nil
}

func (repo *AttendanceRepository) SubjectPeriodSummary(ctx context.Context, class attendance.ClassRef) ([]attendance.SubjectPeriodSummary, error) {
	records, err := repo.PeriodRecords(ctx, attendance.PeriodRecordQuery{ClassRef: class})
	if err != nil {
		return nil, err
	}
	return attendance.AggregateStudentSummaries(records), nil
}

// CreateStudents enrolls students in a single transaction.
func (repo *AttendanceRepository) CreateStudents(ctx context.Context, students ...Student) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	for _, s := range students {
		if _, err = tx.NamedExecContext(ctx, insertStudentQuery, s); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "creating student %s", s.ID)
		}
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// SavePeriodDefinitions creates or updates the timetable slots of a class section.
func (repo *AttendanceRepository) SavePeriodDefinitions(ctx context.Context, class attendance.ClassRef, defs ...attendance.PeriodDefinition) error {
	q := repo.db.Rebind(upsertPeriodDefinitionQuery)
	for _, d := range defs {
		_, err := repo.db.ExecContext(ctx, q, class.ClassName, class.Section, d.Period, d.StartTime, d.EndTime, d.Subject, d.TeacherName)
		if err != nil {
			return errors.Wrapf(err, "saving period %d", d.Period)
		}
	}
	return nil
}

// CountRecords returns the number of attendance rows, mostly useful to tests and the admin CLI.
func (repo *AttendanceRepository) CountRecords(ctx context.Context) (int, error) {
	var n int
	err := repo.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM attendance")
	return n, errors.Wrap(err, "counting attendance records")
}
