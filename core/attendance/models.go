package attendance

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-attendance/core"
)

// SelectionKey addresses a roster: a class section on a date, optionally narrowed to a period.
// Period 0 denotes whole-day attendance.
type SelectionKey struct {
	Date      string `json:"date" query:"date" validate:"required,isodate"`
	ClassName string `json:"class_name" query:"class_name" validate:"required"`
	Section   string `json:"section" query:"section" validate:"required"`
	Period    int    `json:"period,omitempty" query:"period" validate:"gte=0,lte=24"`
}

func (k SelectionKey) IsPeriod() bool { return k.Period > 0 }

func (k SelectionKey) String() string {
	if k.IsPeriod() {
		return fmt.Sprintf("%s %s/%s period %d", k.Date, k.ClassName, k.Section, k.Period)
	}
	return fmt.Sprintf("%s %s/%s", k.Date, k.ClassName, k.Section)
}

// Clean normalizes user input in place.
func (k *SelectionKey) Clean() {
	k.Date = core.CleanString(k.Date)
	k.ClassName = core.CleanString(k.ClassName)
	k.Section = core.CleanString(k.Section)
}

func (k *SelectionKey) Validate(validate *validator.Validate) error {
	k.Clean()
	return validate.Struct(k)
}

// ClassRef addresses a class section regardless of date.
type ClassRef struct {
	ClassName string `json:"class_name" query:"class_name" validate:"required"`
	Section   string `json:"section" query:"section" validate:"required"`
}

func (ref *ClassRef) Validate(validate *validator.Validate) error {
	ref.ClassName = core.CleanString(ref.ClassName)
	ref.Section = core.CleanString(ref.Section)
	return validate.Struct(ref)
}

// PeriodRecordQuery filters historical period attendance of a class section. Empty bounds are open.
type PeriodRecordQuery struct {
	ClassRef
	From string `json:"from,omitempty" query:"from" validate:"omitempty,isodate"`
	To   string `json:"to,omitempty" query:"to" validate:"omitempty,isodate"`
}

func (q *PeriodRecordQuery) Validate(validate *validator.Validate) error {
	q.ClassName = core.CleanString(q.ClassName)
	q.Section = core.CleanString(q.Section)
	q.From = core.CleanString(q.From)
	q.To = core.CleanString(q.To)
	if err := validate.Struct(q); err != nil {
		return err
	}
	if q.From != "" && q.To != "" && q.From > q.To {
		return core.NewFieldValidationError("from", "must not be after to")
	}
	return nil
}

// RosterEntry is one trackable student under a SelectionKey.
type RosterEntry struct {
	SubjectID       string `json:"subject_id"`
	RollNumber      string `json:"roll_number"`
	Name            string `json:"name"`
	CommittedStatus Status `json:"committed_status"`
	HasRecord       bool   `json:"has_record"` // false: nothing persisted yet for this selection
}

// MergedEntry is a RosterEntry with its pending edit applied.
type MergedEntry struct {
	RosterEntry
	Status  Status `json:"status"`
	Pending bool   `json:"pending"`
}

// AggregateCounts are derived per-status totals over a merged view. Every status is always present in ByStatus.
type AggregateCounts struct {
	Total    int
	ByStatus map[Status]int
}

func newAggregateCounts() AggregateCounts {
	counts := AggregateCounts{ByStatus: make(map[Status]int, len(cycleOrder))}
	for _, s := range cycleOrder {
		counts.ByStatus[s] = 0
	}
	return counts
}

func (c AggregateCounts) Count(s Status) int { return c.ByStatus[s] }

// MarshalJSON flattens counts into {"total": n, "present": n, "absent": n, ...}.
func (c AggregateCounts) MarshalJSON() ([]byte, error) {
	flat := make(map[string]int, len(cycleOrder)+1)
	flat["total"] = c.Total
	for _, s := range cycleOrder {
		flat[string(s)] = c.ByStatus[s]
	}
	return json.Marshal(flat)
}

type CommitRecord struct {
	SubjectID string `json:"subject_id"`
	Status    Status `json:"status"`
	Remarks   string `json:"remarks,omitempty"`
}

// CommitRequest is the full roster of a selection with its effective statuses.
type CommitRequest struct {
	Key     SelectionKey   `json:"key"`
	Records []CommitRecord `json:"records"`
}

type CommitResult struct {
	Success    bool `json:"success"`
	SavedCount int  `json:"saved_count"`
}

// PeriodDefinition is one slot of a class section timetable.
type PeriodDefinition struct {
	Period      int    `json:"period"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Subject     string `json:"subject,omitempty"`
	TeacherName string `json:"teacher_name,omitempty"`
}

// PeriodRecord is a historical period-scoped attendance record.
type PeriodRecord struct {
	SubjectID string `json:"subject_id"`
	Date      string `json:"date"`
	Period    int    `json:"period"`
	Subject   string `json:"subject"` // taught subject, e.g. "Mathematics"
	Status    Status `json:"status"`
}

type SubjectBreakdown struct {
	Subject    string `json:"subject"`
	Attended   int    `json:"attended"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

// SubjectPeriodSummary is a student's period attendance, overall and per taught subject.
type SubjectPeriodSummary struct {
	SubjectID       string             `json:"subject_id"`
	TotalPeriods    int                `json:"total_periods"`
	AttendedPeriods int                `json:"attended_periods"`
	SubjectWise     []SubjectBreakdown `json:"subject_wise"`
}
