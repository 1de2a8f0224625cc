package attendance

import (
	"sort"
	"strconv"

	"github.com/trezcool/masomo-attendance/core"
)

// NormalizeRoster returns the working set of a fetched roster:
// duplicated students keep their first occurrence, entries are sorted by roll number
// and every committed status resolves to a known one.
// Unknown committed statuses are reported to logger (which may be nil).
func NormalizeRoster(entries []RosterEntry, logger core.Logger) []RosterEntry {
	seen := make(map[string]struct{}, len(entries))
	roster := make([]RosterEntry, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.SubjectID]; dup {
			if logger != nil {
				logger.Warn("duplicate roster entry dropped", map[string]interface{}{"subject_id": e.SubjectID})
			}
			continue
		}
		seen[e.SubjectID] = struct{}{}

		st, known := resolveStatus(e.CommittedStatus)
		if !known && logger != nil {
			logger.Warn("unknown committed status resolved to "+string(st), map[string]interface{}{
				"subject_id": e.SubjectID,
				"status":     string(e.CommittedStatus),
			})
		}
		e.HasRecord = e.CommittedStatus != ""
		e.CommittedStatus = st
		roster = append(roster, e)
	}

	sort.SliceStable(roster, func(i, j int) bool {
		return rollNumberLess(roster[i].RollNumber, roster[j].RollNumber)
	})
	return roster
}

// rollNumberLess orders numeric roll numbers numerically, before any non-numeric ones.
func rollNumberLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
