package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/trezcool/masomo-attendance/core"
)

// engines
const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

// MemoryPath opens a private in-memory sqlite database.
const MemoryPath = ":memory:"

var pingBackoff = 100 * time.Millisecond

func init() {
	sqlx.BindDriver(EngineSQLite, sqlx.QUESTION)
}

func openPostgres(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   EnginePostgres,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return sqlx.Open(EnginePostgres, u.String())
}

func openSQLite(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open(EngineSQLite, path)
	if err != nil {
		return nil, err
	}
	// a :memory: database only lives as long as its connection
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "enabling foreign keys")
	}
	return db, nil
}

// Open connects to the configured database engine and waits for it to be ready.
func Open(conf *core.Config) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch conf.Database.Engine {
	case EnginePostgres:
		db, err = openPostgres(conf.Database.Name, false, conf)
	case EngineSQLite:
		db, err = openSQLite(conf.Database.Path)
	default:
		return nil, errors.Errorf("unsupported database engine %q", conf.Database.Engine)
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * pingBackoff)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func exists(db *sqlx.DB, query, name string) (bool, error) {
	var found bool
	rows, err := db.Query(query, name)
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err = rows.Scan(&found); err != nil {
			return false, err
		}
	}
	return found, rows.Err()
}

func createAppUser(db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}
	found, err := exists(db, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", conf.Database.User, conf.Database.Password)
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sqlx.DB, conf *core.Config) error {
	found, err := exists(db, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.Exec(fmt.Sprintf("CREATE DATABASE %s", conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the Postgres app user & database. sqlite databases are created on open.
func CreateIfNotExist(conf *core.Config) error {
	if conf.Database.Engine != EnginePostgres {
		return nil
	}

	// connect as admin
	admin, err := openPostgres("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = admin.Close() }()
	if err = ping(admin.DB); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(admin, conf); err != nil {
		return err
	}

	// create DB as app user
	db, err := openPostgres("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()
	return createDB(db, conf)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS student (
		id          TEXT PRIMARY KEY,
		roll_number TEXT NOT NULL,
		name        TEXT NOT NULL,
		class_name  TEXT NOT NULL,
		section     TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS student_class_idx ON student (class_name, section)`,
	`CREATE TABLE IF NOT EXISTS period_definition (
		class_name   TEXT NOT NULL,
		section      TEXT NOT NULL,
		period       INTEGER NOT NULL,
		start_time   TEXT NOT NULL,
		end_time     TEXT NOT NULL,
		subject      TEXT NOT NULL DEFAULT '',
		teacher_name TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (class_name, section, period)
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		student_id TEXT NOT NULL REFERENCES student (id) ON DELETE CASCADE,
		date       TEXT NOT NULL,
		period     INTEGER NOT NULL DEFAULT 0,
		status     TEXT NOT NULL,
		remarks    TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (student_id, date, period)
	)`,
}

// CreateSchema creates the attendance tables when they do not exist yet.
func CreateSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "creating schema")
		}
	}
	return nil
}
