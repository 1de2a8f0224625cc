package attendance

import (
	"reflect"
	"testing"
)

func TestNormalizeRoster(t *testing.T) {
	entries := []RosterEntry{
		{SubjectID: "s3", RollNumber: "10", Name: "Kabila", CommittedStatus: StatusLate},
		{SubjectID: "s1", RollNumber: "2", Name: "Lumumba"},
		{SubjectID: "s3", RollNumber: "1", Name: "Kabila (dup)", CommittedStatus: StatusAbsent},
		{SubjectID: "s4", RollNumber: "B2", Name: "Mulele", CommittedStatus: "on_leave"},
		{SubjectID: "s2", RollNumber: "9", Name: "Kasa-Vubu", CommittedStatus: StatusExcused},
		{SubjectID: "s5", RollNumber: "A7", Name: "Tshombe", CommittedStatus: StatusAbsent},
	}

	got := NormalizeRoster(entries, nil)
	want := []RosterEntry{
		{SubjectID: "s1", RollNumber: "2", Name: "Lumumba", CommittedStatus: StatusPresent},
		{SubjectID: "s2", RollNumber: "9", Name: "Kasa-Vubu", CommittedStatus: StatusExcused, HasRecord: true},
		{SubjectID: "s3", RollNumber: "10", Name: "Kabila", CommittedStatus: StatusLate, HasRecord: true},
		{SubjectID: "s5", RollNumber: "A7", Name: "Tshombe", CommittedStatus: StatusAbsent, HasRecord: true},
		{SubjectID: "s4", RollNumber: "B2", Name: "Mulele", CommittedStatus: StatusPresent, HasRecord: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeRoster() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestNormalizeRoster_empty(t *testing.T) {
	if got := NormalizeRoster(nil, nil); got == nil || len(got) != 0 {
		t.Errorf("NormalizeRoster(nil) = %#v; want empty roster", got)
	}
}

func TestNormalizeRoster_doesNotTouchInput(t *testing.T) {
	entries := []RosterEntry{
		{SubjectID: "b", RollNumber: "2"},
		{SubjectID: "a", RollNumber: "1"},
	}
	_ = NormalizeRoster(entries, nil)
	if entries[0].SubjectID != "b" || entries[0].CommittedStatus != "" {
		t.Errorf("NormalizeRoster() mutated its input: %+v", entries)
	}
}
