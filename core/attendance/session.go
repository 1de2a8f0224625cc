package attendance

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-attendance/core"
)

// State is the loading/saving status of a Session, as shown to the operator.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateSaving
	StateError
)

var stateNames = [...]string{"idle", "loading", "ready", "saving", "error"}

func (st State) String() string {
	if st < 0 || int(st) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[st]
}

func (st State) MarshalJSON() ([]byte, error) { return json.Marshal(st.String()) }

// Snapshot is a consistent read of a Session.
type Snapshot struct {
	Key     *SelectionKey   `json:"key"`
	State   State           `json:"state"`
	Error   string          `json:"error,omitempty"`
	Dirty   bool            `json:"dirty"`
	Entries []MergedEntry   `json:"entries"`
	Counts  AggregateCounts `json:"counts"`
}

// Session is the attendance-marking engine of one operator: a single active SelectionKey,
// its committed roster and the pending edits on top of it.
//
// Changing the selection always discards pending edits before the new roster is fetched.
// Every fetch & commit is tagged with the selection generation it was issued under:
// results arriving after the selection changed are dropped.
// At most one commit per SelectionKey is in flight, across selection changes.
// A Session is safe for concurrent use; network calls never run under its lock.
type Session struct {
	backend  RosterBackend
	validate *validator.Validate
	logger   core.Logger
	operator core.Operator

	mu       sync.Mutex
	key      SelectionKey
	selected bool
	gen      uint64
	state    State
	err      error
	sheet    *Sheet // nil until the roster of key is loaded
	inFlight map[SelectionKey]struct{}
}

// NewSession returns an idle Session. `validate` must have been set up with core.InitValidators.
func NewSession(backend RosterBackend, validate *validator.Validate, logger core.Logger, operator ...core.Operator) *Session {
	if logger == nil {
		logger = nopLogger{}
	}
	s := &Session{
		backend:  backend,
		validate: validate,
		logger:   logger,
		inFlight: make(map[SelectionKey]struct{}),
	}
	if len(operator) > 0 {
		s.operator = operator[0]
	}
	return s
}

// Select makes key the active selection: pending edits are discarded, then its roster is fetched.
// Selecting the key which is already loaded changes nothing.
func (s *Session) Select(ctx context.Context, key SelectionKey) error {
	if err := key.Validate(s.validate); err != nil {
		return err
	}

	s.mu.Lock()
	if s.selected && s.key == key && s.sheet != nil {
		s.mu.Unlock()
		return nil
	}
	gen := s.switchTo(key)
	s.mu.Unlock()

	return s.load(ctx, key, gen)
}

// Reload discards pending edits and fetches the roster of the active selection again.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	if !s.selected {
		s.mu.Unlock()
		return ErrNoSelection
	}
	key := s.key
	gen := s.switchTo(key)
	s.mu.Unlock()

	return s.load(ctx, key, gen)
}

// switchTo is the single place where pending edits are dropped on selection change.
// s.mu must be held.
func (s *Session) switchTo(key SelectionKey) uint64 {
	if s.sheet != nil && s.sheet.IsDirty() {
		s.logger.Info("discarding unsaved attendance edits", s.logFields(map[string]interface{}{
			"pending": len(s.sheet.overlay),
		}), s.operator)
	}
	s.gen++
	s.key = key
	s.selected = true
	s.sheet = nil
	s.state = StateLoading
	s.err = nil
	return s.gen
}

func (s *Session) load(ctx context.Context, key SelectionKey, gen uint64) error {
	entries, err := s.backend.FetchRoster(ctx, key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		s.logger.Debug("dropping stale roster", map[string]interface{}{"key": key.String()}, s.operator)
		return errors.Wrap(ErrSelectionChanged, key.String())
	}
	if err != nil {
		ferr := &FetchError{Key: key, Err: err}
		s.state = StateError
		s.err = ferr
		s.logger.Warn("fetching roster failed", ferr, s.logFields(nil), s.operator)
		return ferr
	}

	s.sheet = NewSheet(NormalizeRoster(entries, s.logger))
	s.state = StateReady
	if _, busy := s.inFlight[key]; busy { // issued before a reload of the same key
		s.state = StateSaving
	}
	return nil
}

func (s *Session) logFields(extra map[string]interface{}) map[string]interface{} {
	fields := map[string]interface{}{"key": s.key.String()}
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}

func (s *Session) loadedSheet() (*Sheet, error) {
	if s.sheet == nil {
		return nil, ErrNoSelection
	}
	return s.sheet, nil
}

// Cycle advances a student to its next status and returns it.
func (s *Session) Cycle(subjectID string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sheet, err := s.loadedSheet()
	if err != nil {
		return "", err
	}
	return sheet.Cycle(subjectID)
}

// Set marks a single student with status.
func (s *Session) Set(subjectID string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sheet, err := s.loadedSheet()
	if err != nil {
		return err
	}
	return sheet.Set(subjectID, status)
}

// SetAll marks every student of the roster with status.
func (s *Session) SetAll(status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sheet, err := s.loadedSheet()
	if err != nil {
		return err
	}
	return sheet.SetAll(status)
}

// Reset discards pending edits, reverting the view to the committed roster.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sheet == nil {
		return
	}
	s.sheet.Reset()
	if s.state == StateError { // a failed save has nothing left to retry
		s.state = StateReady
		s.err = nil
	}
}

// Commit saves the effective status of every student of the roster as a single batch.
// On failure pending edits are kept as they were so the save can be retried.
func (s *Session) Commit(ctx context.Context) (CommitResult, error) {
	s.mu.Lock()
	sheet, err := s.loadedSheet()
	if err != nil {
		s.mu.Unlock()
		return CommitResult{}, err
	}
	if _, busy := s.inFlight[s.key]; busy {
		s.mu.Unlock()
		return CommitResult{}, ErrCommitInFlight
	}
	if sheet.Len() == 0 {
		s.mu.Unlock()
		return CommitResult{Success: true}, nil
	}
	req := CommitRequest{Key: s.key, Records: sheet.CommitRecords()}
	gen := s.gen
	s.inFlight[req.Key] = struct{}{}
	s.state = StateSaving
	s.mu.Unlock()

	res, err := s.send(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, req.Key) // whatever the generation
	if gen != s.gen {
		if s.key == req.Key && s.state == StateSaving {
			s.state = StateReady
		}
		s.logger.Warn("dropping result of a save issued for a previous selection", map[string]interface{}{
			"key":     req.Key.String(),
			"success": err == nil && res.Success,
		}, s.operator)
		return res, errors.Wrap(ErrSelectionChanged, req.Key.String())
	}

	if err != nil || !res.Success {
		cerr := &CommitError{Key: req.Key, Err: err, Result: res}
		s.state = StateError
		s.err = cerr
		s.logger.Error("saving attendance failed", cerr, s.logFields(nil), s.operator)
		return res, cerr
	}

	s.sheet.MarkCommitted(req.Records)
	s.state = StateReady
	s.err = nil
	s.logger.Info("attendance saved", s.logFields(map[string]interface{}{
		"records":     len(req.Records),
		"saved_count": res.SavedCount,
	}), s.operator)
	return res, nil
}

// send submits req. The caller releases req.Key once the answer is handled;
// send releases it itself when the backend panics.
func (s *Session) send(ctx context.Context, req CommitRequest) (res CommitResult, err error) {
	answered := false
	defer func() {
		if !answered {
			s.mu.Lock()
			delete(s.inFlight, req.Key)
			s.mu.Unlock()
		}
	}()
	res, err = s.backend.CommitAttendance(ctx, req)
	answered = true
	return res, err
}

// Key returns the active selection.
func (s *Session) Key() (SelectionKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key, s.selected
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error which put the Session in StateError.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sheet != nil && s.sheet.IsDirty()
}

// View returns the merged view of the loaded roster (nil when none is loaded).
func (s *Session) View() []MergedEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sheet == nil {
		return nil
	}
	return s.sheet.View()
}

func (s *Session) Counts() AggregateCounts {
	return Aggregate(s.View())
}

// Overlay returns a copy of the pending edits.
func (s *Session) Overlay() Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sheet == nil {
		return make(Overlay)
	}
	return s.sheet.Overlay()
}

// Committed returns the committed roster (nil when none is loaded).
func (s *Session) Committed() []RosterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sheet == nil {
		return nil
	}
	return s.sheet.Entries()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{State: s.state, Entries: []MergedEntry{}}
	if s.selected {
		key := s.key
		snap.Key = &key
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	if s.sheet != nil {
		snap.Dirty = s.sheet.IsDirty()
		snap.Entries = s.sheet.View()
	}
	snap.Counts = Aggregate(snap.Entries)
	return snap
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}
