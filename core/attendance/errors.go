package attendance

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrFetchFailed      = errors.New("roster could not be retrieved")
	ErrCommitFailed     = errors.New("attendance could not be saved")
	ErrCommitInFlight   = errors.New("a save is already in progress")
	ErrSelectionChanged = errors.New("selection changed while the request was in flight")
	ErrNoSelection      = errors.New("no roster loaded")
	ErrUnknownSubject   = errors.New("student not found in roster")
	ErrInvalidStatus    = errors.New("invalid attendance status")
)

// FetchError is returned when the roster of Key could not be retrieved. It matches ErrFetchFailed.
type FetchError struct {
	Key SelectionKey
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%v (%s): %v", ErrFetchFailed, e.Key, e.Err)
}

func (e *FetchError) Unwrap() error        { return e.Err }
func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

// CommitError is returned when a batch for Key was rejected or never reached the service.
// It matches ErrCommitFailed.
type CommitError struct {
	Key    SelectionKey
	Err    error
	Result CommitResult
}

func (e *CommitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v (%s): rejected by the service", ErrCommitFailed, e.Key)
	}
	return fmt.Sprintf("%v (%s): %v", ErrCommitFailed, e.Key, e.Err)
}

func (e *CommitError) Unwrap() error        { return e.Err }
func (e *CommitError) Is(target error) bool { return target == ErrCommitFailed }
