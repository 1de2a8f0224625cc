package attendance

import "github.com/pkg/errors"

// Overlay maps student ids to their pending status.
type Overlay map[string]Status

func (o Overlay) IsDirty() bool { return len(o) > 0 }

func (o Overlay) Clone() Overlay {
	c := make(Overlay, len(o))
	for id, s := range o {
		c[id] = s
	}
	return c
}

func (o Overlay) Equal(other Overlay) bool {
	if len(o) != len(other) {
		return false
	}
	for id, s := range o {
		if os, ok := other[id]; !ok || os != s {
			return false
		}
	}
	return true
}

// Sheet is a committed roster with an Overlay of pending edits layered on top.
// The merged view is always derived from both, never stored.
// A Sheet is not safe for concurrent use; Session serializes access to it.
type Sheet struct {
	entries []RosterEntry
	index   map[string]int
	overlay Overlay
}

// NewSheet returns a clean Sheet over `entries`, which are expected to be normalized (see NormalizeRoster).
func NewSheet(entries []RosterEntry) *Sheet {
	sh := &Sheet{
		entries: make([]RosterEntry, len(entries)),
		index:   make(map[string]int, len(entries)),
		overlay: make(Overlay),
	}
	copy(sh.entries, entries)
	for i, e := range sh.entries {
		sh.index[e.SubjectID] = i
	}
	return sh
}

func (sh *Sheet) Len() int { return len(sh.entries) }

// Entries returns a copy of the committed roster.
func (sh *Sheet) Entries() []RosterEntry {
	entries := make([]RosterEntry, len(sh.entries))
	copy(entries, sh.entries)
	return entries
}

// Effective returns the status a student currently resolves to.
func (sh *Sheet) Effective(subjectID string) (Status, bool) {
	i, ok := sh.index[subjectID]
	if !ok {
		return "", false
	}
	if s, ok := sh.overlay[subjectID]; ok {
		return s, true
	}
	return sh.entries[i].CommittedStatus, true
}

// Cycle advances a student to the status following its effective one. Each call is a transition.
func (sh *Sheet) Cycle(subjectID string) (Status, error) {
	current, ok := sh.Effective(subjectID)
	if !ok {
		return "", errors.Wrap(ErrUnknownSubject, subjectID)
	}
	next := NextStatus(current)
	sh.overlay[subjectID] = next
	return next, nil
}

// Set marks a single student with status.
func (sh *Sheet) Set(subjectID string, status Status) error {
	if !status.Valid() {
		return errors.Wrapf(ErrInvalidStatus, "%q", status)
	}
	if _, ok := sh.index[subjectID]; !ok {
		return errors.Wrap(ErrUnknownSubject, subjectID)
	}
	sh.overlay[subjectID] = status
	return nil
}

// SetAll marks every student of the roster with status, overriding any prior edit.
func (sh *Sheet) SetAll(status Status) error {
	if !status.Valid() {
		return errors.Wrapf(ErrInvalidStatus, "%q", status)
	}
	for _, e := range sh.entries {
		sh.overlay[e.SubjectID] = status
	}
	return nil
}

// Reset discards every pending edit.
func (sh *Sheet) Reset() {
	sh.overlay = make(Overlay)
}

func (sh *Sheet) IsDirty() bool { return sh.overlay.IsDirty() }

// Overlay returns a copy of the pending edits.
func (sh *Sheet) Overlay() Overlay { return sh.overlay.Clone() }

// View derives the merged view, in roster order.
func (sh *Sheet) View() []MergedEntry {
	view := make([]MergedEntry, 0, len(sh.entries))
	for _, e := range sh.entries {
		me := MergedEntry{RosterEntry: e, Status: e.CommittedStatus}
		if s, ok := sh.overlay[e.SubjectID]; ok {
			me.Status = s
			me.Pending = true
		}
		view = append(view, me)
	}
	return view
}

func (sh *Sheet) Counts() AggregateCounts { return Aggregate(sh.View()) }

// CommitRecords lists every student with its effective status: the whole roster is resent on commit.
func (sh *Sheet) CommitRecords() []CommitRecord {
	records := make([]CommitRecord, 0, len(sh.entries))
	for _, me := range sh.View() {
		records = append(records, CommitRecord{SubjectID: me.SubjectID, Status: me.Status})
	}
	return records
}

// MarkCommitted makes `records` the committed state.
// Pending edits equal to what was committed are dropped; later edits stay pending.
func (sh *Sheet) MarkCommitted(records []CommitRecord) {
	for _, r := range records {
		i, ok := sh.index[r.SubjectID]
		if !ok {
			continue
		}
		sh.entries[i].CommittedStatus = r.Status
		sh.entries[i].HasRecord = true
		if s, ok := sh.overlay[r.SubjectID]; ok && s == r.Status {
			delete(sh.overlay, r.SubjectID)
		}
	}
}
