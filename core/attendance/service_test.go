package attendance

import (
	"context"
	"reflect"
	"testing"

	"github.com/trezcool/masomo-attendance/core"
)

type fakeHistory struct {
	*fakeBackend
	defs      []PeriodDefinition
	summaries []SubjectPeriodSummary
	records   []PeriodRecord
	lastQuery PeriodRecordQuery
}

func (fh *fakeHistory) PeriodDefinitions(context.Context, ClassRef) ([]PeriodDefinition, error) {
	return fh.defs, nil
}

func (fh *fakeHistory) SubjectPeriodSummary(context.Context, ClassRef) ([]SubjectPeriodSummary, error) {
	return fh.summaries, nil
}

func (fh *fakeHistory) PeriodRecords(_ context.Context, q PeriodRecordQuery) ([]PeriodRecord, error) {
	fh.lastQuery = q
	return fh.records, nil
}

func TestService_PeriodDefinitions(t *testing.T) {
	fh := &fakeHistory{fakeBackend: newFakeBackend(), defs: []PeriodDefinition{
		{Period: 3, StartTime: "10:00", EndTime: "10:45"},
		{Period: 1, StartTime: "08:00", EndTime: "08:45"},
		{Period: 2, StartTime: "09:00", EndTime: "09:45"},
	}}
	svc := NewService(fh, newValidate(), nil)

	defs, err := svc.PeriodDefinitions(ctx, ClassRef{ClassName: " 6 ", Section: "A"})
	if err != nil {
		t.Fatalf("PeriodDefinitions() error = %v", err)
	}
	for i, d := range defs {
		if d.Period != i+1 {
			t.Errorf("defs[%d].Period = %d; want %d", i, d.Period, i+1)
		}
	}

	if _, err := svc.PeriodDefinitions(ctx, ClassRef{ClassName: "6"}); err == nil {
		t.Error("PeriodDefinitions() without section should fail")
	}
}

func TestService_SubjectPeriodSummary(t *testing.T) {
	fh := &fakeHistory{fakeBackend: newFakeBackend(), summaries: []SubjectPeriodSummary{{
		SubjectID: "s1", TotalPeriods: 8, AttendedPeriods: 6,
		SubjectWise: []SubjectBreakdown{
			{Subject: "Maths", Attended: 6, Total: 8, Percentage: 12},
			{Subject: "Art", Attended: 0, Total: 0, Percentage: 0},
		},
	}}}
	svc := NewService(fh, newValidate(), nil)

	got, err := svc.SubjectPeriodSummary(ctx, ClassRef{ClassName: "6", Section: "A"})
	if err != nil {
		t.Fatalf("SubjectPeriodSummary() error = %v", err)
	}
	want := []SubjectBreakdown{{Subject: "Maths", Attended: 6, Total: 8, Percentage: 75}}
	if !reflect.DeepEqual(got[0].SubjectWise, want) {
		t.Errorf("SubjectWise = %+v; want %+v", got[0].SubjectWise, want)
	}
}

func TestService_Breakdown(t *testing.T) {
	tests := []struct {
		name        string
		query       PeriodRecordQuery
		records     []PeriodRecord
		wantAverage int
		wantNoAvg   bool
		wantErr     bool
	}{
		{
			name:        "some records",
			query:       PeriodRecordQuery{ClassRef: ClassRef{ClassName: "6", Section: "A"}, From: "2026-10-01", To: "2026-10-31"},
			records:     periodRecords(),
			wantAverage: 63,
		},
		{
			name:      "no records",
			query:     PeriodRecordQuery{ClassRef: ClassRef{ClassName: "6", Section: "A"}},
			wantNoAvg: true,
		},
		{
			name:    "inverted range",
			query:   PeriodRecordQuery{ClassRef: ClassRef{ClassName: "6", Section: "A"}, From: "2026-10-31", To: "2026-10-01"},
			wantErr: true,
		},
		{
			name:    "bad date",
			query:   PeriodRecordQuery{ClassRef: ClassRef{ClassName: "6", Section: "A"}, From: "yesterday"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fh := &fakeHistory{fakeBackend: newFakeBackend(), records: tt.records}
			svc := NewService(fh, newValidate(), nil)

			bd, err := svc.Breakdown(ctx, tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Breakdown() error = %v; wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.wantNoAvg {
				if bd.Average != nil || len(bd.Subjects) != 0 {
					t.Errorf("Breakdown() = %+v; want nothing", bd)
				}
				return
			}
			if bd.Average == nil || *bd.Average != tt.wantAverage {
				t.Errorf("Breakdown().Average = %v; want %d", bd.Average, tt.wantAverage)
			}
			if fh.lastQuery != tt.query {
				t.Errorf("backend query = %+v; want %+v", fh.lastQuery, tt.query)
			}
		})
	}
}

func TestService_Breakdown_rangeError(t *testing.T) {
	svc := NewService(&fakeHistory{fakeBackend: newFakeBackend()}, newValidate(), nil)
	_, err := svc.Breakdown(ctx, PeriodRecordQuery{ClassRef: ClassRef{ClassName: "6", Section: "A"}, From: "2026-10-31", To: "2026-10-01"})
	verr, ok := err.(*core.ValidationError)
	if !ok || verr.Fields[0].Field != "from" {
		t.Errorf("Breakdown() error = %#v; want a validation error on from", err)
	}
}

func TestMarkRequest_Validate(t *testing.T) {
	validate := newValidate()
	tests := []struct {
		in      Status
		want    Status
		wantErr bool
	}{
		{in: " Late ", want: StatusLate},
		{in: "HALF_DAY", want: StatusHalfDay},
		{in: "", wantErr: true},
		{in: "holiday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			mr := MarkRequest{Status: tt.in}
			err := mr.Validate(validate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v; wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && mr.Status != tt.want {
				t.Errorf("Status = %q; want %q", mr.Status, tt.want)
			}
		})
	}
}
