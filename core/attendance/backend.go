package attendance

import "context"

type (
	// RosterBackend is the remote roster/attendance service as seen by a Session.
	RosterBackend interface {
		// FetchRoster returns the committed state of every student trackable under key.
		FetchRoster(ctx context.Context, key SelectionKey) ([]RosterEntry, error)
		// CommitAttendance saves a full roster batch as a single operation.
		CommitAttendance(ctx context.Context, req CommitRequest) (CommitResult, error)
	}

	// Backend adds the read-only timetable & history queries to RosterBackend.
	Backend interface {
		RosterBackend

		PeriodDefinitions(ctx context.Context, class ClassRef) ([]PeriodDefinition, error)
		SubjectPeriodSummary(ctx context.Context, class ClassRef) ([]SubjectPeriodSummary, error)
		PeriodRecords(ctx context.Context, q PeriodRecordQuery) ([]PeriodRecord, error)
	}
)
