package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-attendance/core"
)

func newTestLogger() (*RollbarLogger, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	l := NewRollbarLogger(log, &core.Config{Env: "TEST"})
	l.Enable(false)
	return l, hook
}

func TestRollbarLogger_fields(t *testing.T) {
	l, hook := newTestLogger()
	op := core.Operator{ID: "42", Username: "mwalimu", Email: "mwalimu@masomo.cd"}
	err := errors.New("timeout")

	l.Warn("saving attendance failed", err, map[string]interface{}{"key": "2026-10-12 6/A"}, op)

	entry := hook.LastEntry()
	if assert.NotNil(t, entry) {
		assert.Equal(t, logrus.WarnLevel, entry.Level)
		assert.Equal(t, "saving attendance failed", entry.Message)
		assert.Equal(t, err, entry.Data[logrus.ErrorKey])
		assert.Equal(t, "2026-10-12 6/A", entry.Data["key"])
		assert.Equal(t, "mwalimu", entry.Data["operator"])
	}
}

func TestRollbarLogger_WithComponent(t *testing.T) {
	l, hook := newTestLogger()
	backendLogger := l.WithComponent("backend")

	backendLogger.Info("roster fetched")
	assert.Equal(t, "backend", hook.LastEntry().Data["component"])

	l.Info("attendance saved")
	_, tagged := hook.LastEntry().Data["component"]
	assert.False(t, tagged)
}

func TestRollbarLogger_levels(t *testing.T) {
	l, hook := newTestLogger()
	l.Debug("d")
	l.Info("i")
	l.Error("e")

	levels := make([]logrus.Level, 0, 3)
	for _, e := range hook.AllEntries() {
		levels = append(levels, e.Level)
	}
	assert.Equal(t, []logrus.Level{logrus.DebugLevel, logrus.InfoLevel, logrus.ErrorLevel}, levels)
}

func TestRollbarLogger_prepare(t *testing.T) {
	l, _ := newTestLogger()
	op := core.Operator{Username: "a"}
	other := core.Operator{Username: "b"}

	rbArgs, entry := l.prepare("msg", []interface{}{op, "extra", other})
	assert.Equal(t, []interface{}{"msg", "extra"}, rbArgs)
	assert.Equal(t, "a", entry.Data["operator"])
}

func TestNewLogrus(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  logrus.Level
	}{
		{name: "debug", level: "DEBUG", want: logrus.DebugLevel},
		{name: "warn", level: "warn", want: logrus.WarnLevel},
		{name: "invalid", level: "loud", want: logrus.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := NewLogrus(&core.Config{LogLevel: tt.level})
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}
