package attendance

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-attendance/core"
)

// Breakdown is the per taught subject attendance of a class section over a date range.
type Breakdown struct {
	Subjects []SubjectBreakdown `json:"subjects"`
	Average  *int               `json:"average"` // nil when no subject has any recorded period
}

type Service struct {
	backend  Backend
	validate *validator.Validate
	logger   core.Logger
}

func NewService(backend Backend, validate *validator.Validate, logger core.Logger) *Service {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Service{backend: backend, validate: validate, logger: logger}
}

// NewSession returns a new idle marking Session for operator.
func (svc *Service) NewSession(operator core.Operator) *Session {
	return NewSession(svc.backend, svc.validate, svc.logger, operator)
}

// PeriodDefinitions returns the timetable of a class section, ordered by period.
func (svc *Service) PeriodDefinitions(ctx context.Context, class ClassRef) ([]PeriodDefinition, error) {
	if err := class.Validate(svc.validate); err != nil {
		return nil, err
	}
	defs, err := svc.backend.PeriodDefinitions(ctx, class)
	if err != nil {
		return nil, errors.Wrap(err, "fetching period definitions")
	}
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Period < defs[j].Period })
	return defs, nil
}

// SubjectPeriodSummary returns the period attendance of every student of a class section.
// Subject percentages are recomputed and subjects without any recorded period are left out.
func (svc *Service) SubjectPeriodSummary(ctx context.Context, class ClassRef) ([]SubjectPeriodSummary, error) {
	if err := class.Validate(svc.validate); err != nil {
		return nil, err
	}
	summaries, err := svc.backend.SubjectPeriodSummary(ctx, class)
	if err != nil {
		return nil, errors.Wrap(err, "fetching subject period summary")
	}
	for i, sm := range summaries {
		subjects := make([]SubjectBreakdown, 0, len(sm.SubjectWise))
		for _, sw := range sm.SubjectWise {
			if b, ok := NewSubjectBreakdown(sw.Subject, sw.Attended, sw.Total); ok {
				subjects = append(subjects, b)
			}
		}
		summaries[i].SubjectWise = subjects
	}
	return summaries, nil
}

// Breakdown aggregates the historical period records of a class section by taught subject.
func (svc *Service) Breakdown(ctx context.Context, q PeriodRecordQuery) (Breakdown, error) {
	if err := q.Validate(svc.validate); err != nil {
		return Breakdown{}, err
	}
	records, err := svc.backend.PeriodRecords(ctx, q)
	if err != nil {
		return Breakdown{}, errors.Wrap(err, "fetching period records")
	}

	bd := Breakdown{Subjects: AggregateSubjectBreakdown(records)}
	if avg, ok := AveragePercentage(bd.Subjects); ok {
		bd.Average = &avg
	}
	return bd, nil
}
