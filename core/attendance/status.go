package attendance

import "github.com/pkg/errors"

// Status is the attendance state of one student within a selection.
type Status string

// Statuses, in cycle order.
const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusHalfDay Status = "half_day"
	StatusExcused Status = "excused"
)

// DefaultStatus is what a student resolves to when nothing was ever recorded.
const DefaultStatus = StatusPresent

var (
	cycleOrder = [...]Status{StatusPresent, StatusAbsent, StatusLate, StatusHalfDay, StatusExcused}

	statusIndex = func() map[Status]int {
		idx := make(map[Status]int, len(cycleOrder))
		for i, s := range cycleOrder {
			idx[s] = i
		}
		return idx
	}()
)

// Statuses returns all statuses in cycle order.
func Statuses() []Status {
	all := make([]Status, len(cycleOrder))
	copy(all, cycleOrder[:])
	return all
}

// ParseStatus returns the Status named `s`.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", errors.Wrapf(ErrInvalidStatus, "%q", s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	_, ok := statusIndex[s]
	return ok
}

// Attended reports whether the status counts as attended in period breakdowns.
func (s Status) Attended() bool {
	return s == StatusPresent || s == StatusLate
}

func (s Status) String() string { return string(s) }

// NextStatus returns the status following `current` in cycle order, wrapping after the last one.
// Unrecognized statuses (legacy or corrupted data) restart the cycle at DefaultStatus.
func NextStatus(current Status) Status {
	i, ok := statusIndex[current]
	if !ok {
		return DefaultStatus
	}
	return cycleOrder[(i+1)%len(cycleOrder)]
}

// resolveStatus maps a committed status to the one the engine works with.
func resolveStatus(s Status) (st Status, known bool) {
	if s.Valid() {
		return s, true
	}
	return DefaultStatus, s == ""
}
