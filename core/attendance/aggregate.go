package attendance

import (
	"math"
	"sort"
)

// Aggregate counts the merged view per status. The counts always sum up to Total.
func Aggregate(view []MergedEntry) AggregateCounts {
	counts := newAggregateCounts()
	counts.Total = len(view)
	for _, me := range view {
		st, _ := resolveStatus(me.Status)
		counts.ByStatus[st]++
	}
	return counts
}

// NewSubjectBreakdown computes the attendance percentage of a taught subject.
// ok is false when no period was recorded: such subjects are left out of breakdowns.
func NewSubjectBreakdown(subject string, attended, total int) (SubjectBreakdown, bool) {
	if total <= 0 {
		return SubjectBreakdown{}, false
	}
	return SubjectBreakdown{
		Subject:    subject,
		Attended:   attended,
		Total:      total,
		Percentage: percentage(attended, total),
	}, true
}

func percentage(attended, total int) int {
	return int(math.Round(100 * float64(attended) / float64(total)))
}

type tally struct{ attended, total int }

func (t *tally) add(s Status) {
	t.total++
	if s.Attended() {
		t.attended++
	}
}

func breakdowns(bySubject map[string]*tally) []SubjectBreakdown {
	names := make([]string, 0, len(bySubject))
	for name := range bySubject {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]SubjectBreakdown, 0, len(names))
	for _, name := range names {
		t := bySubject[name]
		if b, ok := NewSubjectBreakdown(name, t.attended, t.total); ok {
			out = append(out, b)
		}
	}
	return out
}

// AggregateSubjectBreakdown groups period records by taught subject, sorted by subject name.
// Records without a taught subject are ignored.
func AggregateSubjectBreakdown(records []PeriodRecord) []SubjectBreakdown {
	bySubject := make(map[string]*tally)
	for _, r := range records {
		if r.Subject == "" {
			continue
		}
		t, ok := bySubject[r.Subject]
		if !ok {
			t = new(tally)
			bySubject[r.Subject] = t
		}
		t.add(r.Status)
	}
	return breakdowns(bySubject)
}

// AveragePercentage is the mean percentage of the given subjects; ok is false when there are none.
func AveragePercentage(subjects []SubjectBreakdown) (avg int, ok bool) {
	var sum, n int
	for _, b := range subjects {
		if b.Total <= 0 {
			continue
		}
		sum += b.Percentage
		n++
	}
	if n == 0 {
		return 0, false
	}
	return int(math.Round(float64(sum) / float64(n))), true
}

// AggregateStudentSummaries computes, per student, the overall & per taught subject period attendance.
// Students are sorted by id.
func AggregateStudentSummaries(records []PeriodRecord) []SubjectPeriodSummary {
	type student struct {
		overall   tally
		bySubject map[string]*tally
	}
	students := make(map[string]*student)
	for _, r := range records {
		st, ok := students[r.SubjectID]
		if !ok {
			st = &student{bySubject: make(map[string]*tally)}
			students[r.SubjectID] = st
		}
		st.overall.add(r.Status)
		if r.Subject == "" {
			continue
		}
		t, ok := st.bySubject[r.Subject]
		if !ok {
			t = new(tally)
			st.bySubject[r.Subject] = t
		}
		t.add(r.Status)
	}

	ids := make([]string, 0, len(students))
	for id := range students {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	summaries := make([]SubjectPeriodSummary, 0, len(ids))
	for _, id := range ids {
		st := students[id]
		summaries = append(summaries, SubjectPeriodSummary{
			SubjectID:       id,
			TotalPeriods:    st.overall.total,
			AttendedPeriods: st.overall.attended,
			SubjectWise:     breakdowns(st.bySubject),
		})
	}
	return summaries
}
