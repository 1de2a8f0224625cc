// Package memdb is an in-memory attendance.Backend, used by the memory roster driver and in tests.
package memdb

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-attendance/core/attendance"
)

// ErrUnknownStudent is returned when a batch names a student outside of the class section.
var ErrUnknownStudent = errors.New("student does not belong to this class section")

type Student struct {
	ID         string
	RollNumber string
	Name       string
	ClassName  string
	Section    string
}

type (
	markKey struct {
		studentID string
		date      string
		period    int
	}

	mark struct {
		status  attendance.Status
		remarks string
	}

	DB struct {
		sync.RWMutex
		students map[string]Student
		marks    map[markKey]mark
		periods  map[attendance.ClassRef][]attendance.PeriodDefinition

		// failure injection
		fetchErr  error
		commitErr error
		reject    bool
		commits   int
	}
)

var _ attendance.Backend = (*DB)(nil)

func Open() *DB {
	return &DB{
		students: make(map[string]Student),
		marks:    make(map[markKey]mark),
		periods:  make(map[attendance.ClassRef][]attendance.PeriodDefinition),
	}
}

func (db *DB) AddStudents(students ...Student) {
	db.Lock()
	defer db.Unlock()
	for _, s := range students {
		db.students[s.ID] = s
	}
}

// SetPeriods replaces the timetable of a class section.
func (db *DB) SetPeriods(class attendance.ClassRef, defs ...attendance.PeriodDefinition) {
	db.Lock()
	defer db.Unlock()
	db.periods[class] = append([]attendance.PeriodDefinition(nil), defs...)
}

// Mark records a status as if it had been committed earlier.
func (db *DB) Mark(key attendance.SelectionKey, studentID string, status attendance.Status) {
	db.Lock()
	defer db.Unlock()
	db.marks[markKey{studentID, key.Date, key.Period}] = mark{status: status}
}

// FailFetches makes every read (rosters, timetables, history) fail with err until called with nil.
func (db *DB) FailFetches(err error) {
	db.Lock()
	defer db.Unlock()
	db.fetchErr = err
}

// FailCommits makes every commit fail with err until called with nil.
func (db *DB) FailCommits(err error) {
	db.Lock()
	defer db.Unlock()
	db.commitErr = err
}

// RejectCommits makes commits answer {success: false}.
func (db *DB) RejectCommits(reject bool) {
	db.Lock()
	defer db.Unlock()
	db.reject = reject
}

// Commits returns the number of batches received, failed ones included.
func (db *DB) Commits() int {
	db.RLock()
	defer db.RUnlock()
	return db.commits
}

func (db *DB) classStudents(class attendance.ClassRef) []Student {
	students := make([]Student, 0)
	for _, s := range db.students {
		if s.ClassName == class.ClassName && s.Section == class.Section {
			students = append(students, s)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students
}

func (db *DB) FetchRoster(ctx context.Context, key attendance.SelectionKey) ([]attendance.RosterEntry, error) {
	db.RLock()
	defer db.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if db.fetchErr != nil {
		return nil, db.fetchErr
	}

	students := db.classStudents(attendance.ClassRef{ClassName: key.ClassName, Section: key.Section})
	entries := make([]attendance.RosterEntry, 0, len(students))
	for _, s := range students {
		e := attendance.RosterEntry{SubjectID: s.ID, RollNumber: s.RollNumber, Name: s.Name}
		if m, ok := db.marks[markKey{s.ID, key.Date, key.Period}]; ok {
			e.CommittedStatus = m.status
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// CommitAttendance upserts the whole batch, or nothing when a record is invalid.
func (db *DB) CommitAttendance(ctx context.Context, req attendance.CommitRequest) (attendance.CommitResult, error) {
	db.Lock()
	defer db.Unlock()

	db.commits++
	if err := ctx.Err(); err != nil {
		return attendance.CommitResult{}, err
	}
	if db.commitErr != nil {
		return attendance.CommitResult{}, db.commitErr
	}
	if db.reject {
		return attendance.CommitResult{Success: false}, nil
	}

	for _, r := range req.Records {
		s, ok := db.students[r.SubjectID]
		if !ok || s.ClassName != req.Key.ClassName || s.Section != req.Key.Section {
			return attendance.CommitResult{}, errors.Wrap(ErrUnknownStudent, r.SubjectID)
		}
		if !r.Status.Valid() {
			return attendance.CommitResult{}, errors.Wrapf(attendance.ErrInvalidStatus, "%s: %q", r.SubjectID, r.Status)
		}
	}
	for _, r := range req.Records {
		db.marks[markKey{r.SubjectID, req.Key.Date, req.Key.Period}] = mark{status: r.Status, remarks: r.Remarks}
	}
	return attendance.CommitResult{Success: true, SavedCount: len(req.Records)}, nil
}

func (db *DB) PeriodDefinitions(_ context.Context, class attendance.ClassRef) ([]attendance.PeriodDefinition, error) {
	db.RLock()
	defer db.RUnlock()
	if db.fetchErr != nil {
		return nil, db.fetchErr
	}
	return append([]attendance.PeriodDefinition{}, db.periods[class]...), nil
}

func (db *DB) periodRecords(q attendance.PeriodRecordQuery) []attendance.PeriodRecord {
	subjects := make(map[int]string)
	for _, def := range db.periods[q.ClassRef] {
		subjects[def.Period] = def.Subject
	}
	inClass := make(map[string]bool)
	for _, s := range db.classStudents(q.ClassRef) {
		inClass[s.ID] = true
	}

	records := make([]attendance.PeriodRecord, 0)
	for k, m := range db.marks {
		if k.period == 0 || !inClass[k.studentID] {
			continue
		}
		if (q.From != "" && k.date < q.From) || (q.To != "" && k.date > q.To) {
			continue
		}
		records = append(records, attendance.PeriodRecord{
			SubjectID: k.studentID,
			Date:      k.date,
			Period:    k.period,
			Subject:   subjects[k.period],
			Status:    m.status,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		return a.SubjectID < b.SubjectID
	})
	return records
}

func (db *DB) PeriodRecords(_ context.Context, q attendance.PeriodRecordQuery) ([]attendance.PeriodRecord, error) {
	db.RLock()
	defer db.RUnlock()
	if db.fetchErr != nil {
		return nil, db.fetchErr
	}
	return db.periodRecords(q), nil
}

func (db *DB) SubjectPeriodSummary(_ context.Context, class attendance.ClassRef) ([]attendance.SubjectPeriodSummary, error) {
	db.RLock()
	defer db.RUnlock()
	if db.fetchErr != nil {
		return nil, db.fetchErr
	}
	return attendance.AggregateStudentSummaries(db.periodRecords(attendance.PeriodRecordQuery{ClassRef: class})), nil
}
