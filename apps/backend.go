package apps

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-attendance/core"
	"github.com/trezcool/masomo-attendance/core/attendance"
	"github.com/trezcool/masomo-attendance/services/rosterapi"
	"github.com/trezcool/masomo-attendance/storage/database"
	sqlxrepos "github.com/trezcool/masomo-attendance/storage/database/sqlx"
	memdb "github.com/trezcool/masomo-attendance/storage/memory"
)

// Backend is the attendance.Backend selected by the roster driver, along with the resources it holds.
type Backend struct {
	attendance.Backend
	Client *rosterapi.Client // http driver only
	close  func() error
}

func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// NewBackend sets up the backend of the configured roster driver.
// The database driver creates the database & schema when they do not exist yet.
func NewBackend(ctx context.Context, conf *core.Config) (*Backend, error) {
	switch conf.Roster.Driver {
	case core.RosterDriverHTTP:
		client := rosterapi.NewClient(conf)
		return &Backend{Backend: client, Client: client}, nil

	case core.RosterDriverDatabase:
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, errors.Wrap(err, "creating database")
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.CreateSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Backend{Backend: sqlxrepos.NewAttendanceRepository(db), close: db.Close}, nil

	case core.RosterDriverMemory:
		db := memdb.Open()
		memdb.Seed(db)
		return &Backend{Backend: db}, nil

	default:
		return nil, NewArgumentError(fmt.Sprintf("unknown roster driver %q", conf.Roster.Driver))
	}
}
