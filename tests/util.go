package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/masomo-attendance/core"
	"github.com/trezcool/masomo-attendance/core/attendance"
	"github.com/trezcool/masomo-attendance/storage/database"
	sqlxrepos "github.com/trezcool/masomo-attendance/storage/database/sqlx"
)

// NewConfig returns a config suited to tests: memory roster driver, in-memory sqlite.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:   "Masomo",
		Env:       "TEST",
		TestMode:  true,
		SecretKey: "test-secret",
		LogLevel:  "error",
		Server: core.ServerConfig{
			Host:               "localhost",
			Address:            ":0",
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: time.Hour,
			MaxSessions:        8,
			DisableReqLogs:     true,
		},
		Roster: core.RosterConfig{
			Driver:   core.RosterDriverMemory,
			Timeout:  5 * time.Second,
			TokenTTL: time.Minute,
		},
		Database: core.DatabaseConfig{
			Engine: database.EngineSQLite,
			Path:   database.MemoryPath,
		},
	}
}

// NewValidator returns a validator set up with every custom tag & translation.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate, translator
}

// PrepareDB opens a fresh in-memory sqlite database with the attendance schema.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(NewConfig())
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// CreateStudents enrolls n students in class, with ids "<class>-<section>-<i>" and roll numbers 1..n.
func CreateStudents(t *testing.T, repo *sqlxrepos.AttendanceRepository, class attendance.ClassRef, n int) []sqlxrepos.Student {
	t.Helper()
	students := make([]sqlxrepos.Student, 0, n)
	for i := 1; i <= n; i++ {
		students = append(students, sqlxrepos.Student{
			ID:         fmt.Sprintf("%s-%s-%02d", class.ClassName, class.Section, i),
			RollNumber: fmt.Sprint(i),
			Name:       fmt.Sprintf("Student %d", i),
			ClassName:  class.ClassName,
			Section:    class.Section,
		})
	}
	if err := repo.CreateStudents(context.Background(), students...); err != nil {
		t.Fatalf("CreateStudents() failed: %v", err)
	}
	return students
}

// NopLogger discards everything.
type NopLogger struct{}

var _ core.Logger = NopLogger{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}
