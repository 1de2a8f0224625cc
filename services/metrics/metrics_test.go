package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-attendance/core/attendance"
	memdb "github.com/trezcool/masomo-attendance/storage/memory"
)

var (
	ctx = context.Background()
	key = attendance.SelectionKey{Date: "2026-10-12", ClassName: "6", Section: "A"}
)

func TestCollector_Instrument(t *testing.T) {
	db := memdb.Open()
	memdb.Seed(db)
	c := NewCollector()
	backend := c.Instrument(db)

	_, err := backend.FetchRoster(ctx, key)
	assert.NoError(t, err)
	db.FailFetches(errors.New("down"))
	_, err = backend.FetchRoster(ctx, key)
	assert.Error(t, err)

	req := attendance.CommitRequest{Key: key, Records: []attendance.CommitRecord{
		{SubjectID: "stu-001", Status: attendance.StatusPresent},
		{SubjectID: "stu-002", Status: attendance.StatusLate},
	}}
	_, err = backend.CommitAttendance(ctx, req)
	assert.NoError(t, err)
	db.RejectCommits(true)
	_, _ = backend.CommitAttendance(ctx, req)
	db.RejectCommits(false)
	db.FailCommits(errors.New("timeout"))
	_, _ = backend.CommitAttendance(ctx, req)

	_, _ = backend.PeriodDefinitions(ctx, attendance.ClassRef{ClassName: "6", Section: "A"})
	c.StaleResult()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{name: "fetch ok", got: testutil.ToFloat64(c.fetches.WithLabelValues(resultOK)), want: 1},
		{name: "fetch error", got: testutil.ToFloat64(c.fetches.WithLabelValues(resultError)), want: 1},
		{name: "commit ok", got: testutil.ToFloat64(c.commits.WithLabelValues(resultOK)), want: 1},
		{name: "commit rejected", got: testutil.ToFloat64(c.commits.WithLabelValues(resultRejected)), want: 1},
		{name: "commit error", got: testutil.ToFloat64(c.commits.WithLabelValues(resultError)), want: 1},
		{name: "saved records", got: testutil.ToFloat64(c.saved), want: 2},
		{name: "stale results", got: testutil.ToFloat64(c.conflicts), want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}

	assert.Equal(t, 3, testutil.CollectAndCount(c.latency), "one latency series per operation")
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.StaleResult()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "masomo_attendance_stale_results_total 1"))
}
