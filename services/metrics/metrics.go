// Package metrics instruments attendance backends with Prometheus collectors.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/masomo-attendance/core/attendance"
)

const namespace = "masomo_attendance"

// results
const (
	resultOK       = "ok"
	resultError    = "error"
	resultRejected = "rejected"
)

type Collector struct {
	registry  *prometheus.Registry
	fetches   *prometheus.CounterVec
	commits   *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	saved     prometheus.Counter
	conflicts prometheus.Counter
}

// NewCollector returns a Collector registered on its own registry, along with the Go & process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roster_fetches_total",
			Help:      "Roster fetches by result.",
		}, []string{"result"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Attendance batches submitted by result.",
		}, []string{"result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Backend call latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		saved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saved_records_total",
			Help:      "Attendance records saved by the backend.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_total",
			Help:      "Fetch or commit results dropped because the selection changed.",
		}),
	}
	c.registry.MustRegister(
		c.fetches, c.commits, c.latency, c.saved, c.conflicts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// StaleResult records a result dropped by a session guard.
func (c *Collector) StaleResult() { c.conflicts.Inc() }

func (c *Collector) observe(op string, start time.Time) {
	c.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Instrument wraps backend so that every call is counted & timed.
func (c *Collector) Instrument(backend attendance.Backend) attendance.Backend {
	return &instrumented{next: backend, c: c}
}

type instrumented struct {
	next attendance.Backend
	c    *Collector
}

func (ib *instrumented) FetchRoster(ctx context.Context, key attendance.SelectionKey) ([]attendance.RosterEntry, error) {
	defer ib.c.observe("fetch_roster", time.Now())
	entries, err := ib.next.FetchRoster(ctx, key)
	if err != nil {
		ib.c.fetches.WithLabelValues(resultError).Inc()
		return nil, err
	}
	ib.c.fetches.WithLabelValues(resultOK).Inc()
	return entries, nil
}

func (ib *instrumented) CommitAttendance(ctx context.Context, req attendance.CommitRequest) (attendance.CommitResult, error) {
	defer ib.c.observe("commit_attendance", time.Now())
	res, err := ib.next.CommitAttendance(ctx, req)
	switch {
	case err != nil:
		ib.c.commits.WithLabelValues(resultError).Inc()
	case !res.Success:
		ib.c.commits.WithLabelValues(resultRejected).Inc()
	default:
		ib.c.commits.WithLabelValues(resultOK).Inc()
		ib.c.saved.Add(float64(res.SavedCount))
	}
	return res, err
}

func (ib *instrumented) PeriodDefinitions(ctx context.Context, class attendance.ClassRef) ([]attendance.PeriodDefinition, error) {
	defer ib.c.observe("period_definitions", time.Now())
	return ib.next.PeriodDefinitions(ctx, class)
}

func (ib *instrumented) SubjectPeriodSummary(ctx context.Context, class attendance.ClassRef) ([]attendance.SubjectPeriodSummary, error) {
	defer ib.c.observe("subject_period_summary", time.Now())
	return ib.next.SubjectPeriodSummary(ctx, class)
}

func (ib *instrumented) PeriodRecords(ctx context.Context, q attendance.PeriodRecordQuery) ([]attendance.PeriodRecord, error) {
	defer ib.c.observe("period_records", time.Now())
	return ib.next.PeriodRecords(ctx, q)
}
