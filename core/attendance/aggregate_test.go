package attendance

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestAggregate(t *testing.T) {
	view := []MergedEntry{
		{Status: StatusPresent},
		{Status: StatusPresent},
		{Status: StatusHalfDay},
		{Status: "on_leave"},
	}
	got := Aggregate(view)
	if got.Total != 4 {
		t.Errorf("Total = %d; want 4", got.Total)
	}
	if got.Count(StatusPresent) != 3 || got.Count(StatusHalfDay) != 1 {
		t.Errorf("ByStatus = %v", got.ByStatus)
	}
	if _, ok := got.ByStatus[StatusExcused]; !ok {
		t.Error("statuses without entries should still be counted")
	}
}

func TestAggregateCounts_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Aggregate([]MergedEntry{{Status: StatusLate}}))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"absent":0,"excused":0,"half_day":0,"late":1,"present":0,"total":1}`
	if string(data) != want {
		t.Errorf("MarshalJSON() = %s; want %s", data, want)
	}
}

func TestNewSubjectBreakdown(t *testing.T) {
	tests := []struct {
		name     string
		attended int
		total    int
		want     int
		wantOK   bool
	}{
		{name: "6 of 8", attended: 6, total: 8, want: 75, wantOK: true},
		{name: "rounds half up", attended: 1, total: 8, want: 13, wantOK: true},
		{name: "rounds down", attended: 1, total: 3, want: 33, wantOK: true},
		{name: "all", attended: 4, total: 4, want: 100, wantOK: true},
		{name: "none attended", attended: 0, total: 5, want: 0, wantOK: true},
		{name: "nothing recorded", attended: 0, total: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NewSubjectBreakdown("Maths", tt.attended, tt.total)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v; want %v", ok, tt.wantOK)
			}
			if ok && got.Percentage != tt.want {
				t.Errorf("Percentage = %d; want %d", got.Percentage, tt.want)
			}
		})
	}
}

func periodRecords() []PeriodRecord {
	var records []PeriodRecord
	add := func(id, subject string, statuses ...Status) {
		for i, s := range statuses {
			records = append(records, PeriodRecord{SubjectID: id, Date: "2026-10-01", Period: i + 1, Subject: subject, Status: s})
		}
	}
	add("s1", "Maths", StatusPresent, StatusPresent, StatusLate, StatusAbsent)
	add("s2", "Maths", StatusPresent, StatusHalfDay, StatusPresent, StatusLate)
	add("s1", "English", StatusExcused, StatusPresent)
	add("s2", "", StatusAbsent)
	return records
}

func TestAggregateSubjectBreakdown(t *testing.T) {
	got := AggregateSubjectBreakdown(periodRecords())
	want := []SubjectBreakdown{
		{Subject: "English", Attended: 1, Total: 2, Percentage: 50},
		{Subject: "Maths", Attended: 6, Total: 8, Percentage: 75},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AggregateSubjectBreakdown() = %+v; want %+v", got, want)
	}

	avg, ok := AveragePercentage(got)
	if !ok || avg != 63 {
		t.Errorf("AveragePercentage() = %d, %v; want 63, true", avg, ok)
	}
}

func TestAveragePercentage_none(t *testing.T) {
	if _, ok := AveragePercentage(nil); ok {
		t.Error("AveragePercentage(nil) should not be ok")
	}
	if _, ok := AveragePercentage([]SubjectBreakdown{{Subject: "Art"}}); ok {
		t.Error("subjects without recorded periods should not be averaged")
	}
}

func TestAggregateStudentSummaries(t *testing.T) {
	got := AggregateStudentSummaries(periodRecords())
	want := []SubjectPeriodSummary{
		{
			SubjectID: "s1", TotalPeriods: 6, AttendedPeriods: 4,
			SubjectWise: []SubjectBreakdown{
				{Subject: "English", Attended: 1, Total: 2, Percentage: 50},
				{Subject: "Maths", Attended: 3, Total: 4, Percentage: 75},
			},
		},
		{
			SubjectID: "s2", TotalPeriods: 5, AttendedPeriods: 3,
			SubjectWise: []SubjectBreakdown{
				{Subject: "Maths", Attended: 3, Total: 4, Percentage: 75},
			},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AggregateStudentSummaries() =\n%+v\nwant\n%+v", got, want)
	}
}
