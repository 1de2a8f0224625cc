package rosterapi

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-attendance/core"
	"github.com/trezcool/masomo-attendance/core/attendance"
)

var ctx = context.Background()

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conf := &core.Config{AppName: "masomo", SecretKey: "s3cr3t"}
	conf.Roster.BaseURL = srv.URL + "/api/"
	conf.Roster.Timeout = 5 * time.Second
	conf.Roster.TokenTTL = time.Minute
	conf.Roster.Token = token
	return NewClient(conf)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestClient_FetchRoster(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/roster", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2026-10-12", q.Get("date"))
		assert.Equal(t, "6", q.Get("className"))
		assert.Equal(t, "A", q.Get("section"))
		assert.Equal(t, "3", q.Get("period"))
		assert.Equal(t, "Bearer static", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(requestIDHeader))

		writeJSON(w, http.StatusOK, `[
			{"subjectId": "s1", "rollNumber": 7, "name": "Amani", "committedStatus": "late"},
			{"subjectId": "s2", "rollNumber": "A2", "name": "Baraka"}
		]`)
	}, "static")

	got, err := client.FetchRoster(ctx, attendance.SelectionKey{Date: "2026-10-12", ClassName: "6", Section: "A", Period: 3})
	if assert.NoError(t, err) {
		assert.Equal(t, []attendance.RosterEntry{
			{SubjectID: "s1", RollNumber: "7", Name: "Amani", CommittedStatus: attendance.StatusLate},
			{SubjectID: "s2", RollNumber: "A2", Name: "Baraka"},
		}, got)
	}
}

func TestClient_FetchRoster_wholeDay(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hasPeriod := r.URL.Query()["period"]
		assert.False(t, hasPeriod)
		writeJSON(w, http.StatusOK, `[]`)
	}, "static")

	got, err := client.FetchRoster(ctx, attendance.SelectionKey{Date: "2026-10-12", ClassName: "6", Section: "A"})
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestClient_errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr func(error) bool
	}{
		{
			name:   "server error",
			status: http.StatusServiceUnavailable,
			body:   `{"message": "down for maintenance"}`,
			wantErr: func(err error) bool {
				serr, ok := errors.Cause(err).(*StatusError)
				return ok && serr.StatusCode == http.StatusServiceUnavailable
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `{"subjectId":`,
			wantErr: func(err error) bool {
				_, ok := errors.Cause(err).(*json.SyntaxError)
				return ok
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}, "static")

			_, err := client.FetchRoster(ctx, attendance.SelectionKey{Date: "2026-10-12", ClassName: "6", Section: "A"})
			if !tt.wantErr(err) {
				t.Errorf("FetchRoster() error = %#v", err)
			}
		})
	}
}

func TestClient_CommitAttendance(t *testing.T) {
	var idempotencyKeys []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/attendance", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		idempotencyKeys = append(idempotencyKeys, r.Header.Get(idempotencyKeyHeader))

		body, _ := ioutil.ReadAll(r.Body)
		assert.JSONEq(t, `{
			"date": "2026-10-12", "className": "6", "section": "A",
			"records": [
				{"subjectId": "s1", "status": "present"},
				{"subjectId": "s2", "status": "excused", "remarks": "sick note"}
			]
		}`, string(body))

		writeJSON(w, http.StatusOK, `{"success": true, "savedCount": 2}`)
	}, "static")

	req := attendance.CommitRequest{
		Key: attendance.SelectionKey{Date: "2026-10-12", ClassName: "6", Section: "A"},
		Records: []attendance.CommitRecord{
			{SubjectID: "s1", Status: attendance.StatusPresent},
			{SubjectID: "s2", Status: attendance.StatusExcused, Remarks: "sick note"},
		},
	}
	for i := 0; i < 2; i++ {
		res, err := client.CommitAttendance(ctx, req)
		if assert.NoError(t, err) {
			assert.Equal(t, attendance.CommitResult{Success: true, SavedCount: 2}, res)
		}
	}
	if assert.Len(t, idempotencyKeys, 2) {
		assert.NotEmpty(t, idempotencyKeys[0])
		assert.NotEqual(t, idempotencyKeys[0], idempotencyKeys[1])
	}
}

func TestClient_serviceToken(t *testing.T) {
	fixed := time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	var auth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `[]`)
	}, "")

	_, err := client.PeriodDefinitions(ctx, attendance.ClassRef{ClassName: "6", Section: "A"})
	assert.NoError(t, err)

	claims := jwt.StandardClaims{}
	parser := jwt.Parser{SkipClaimsValidation: true}
	token, err := parser.ParseWithClaims(auth[len("Bearer "):], &claims, func(*jwt.Token) (interface{}, error) {
		return []byte("s3cr3t"), nil
	})
	if assert.NoError(t, err) {
		assert.Equal(t, jwt.SigningMethodHS256, token.Method)
		assert.Equal(t, "masomo", claims.Issuer)
		assert.Equal(t, tokenSubject, claims.Subject)
		assert.Equal(t, fixed.Add(time.Minute).Unix(), claims.ExpiresAt)
	}

	assert.False(t, client.HasToken())
	client.SetToken("typed-in")
	assert.True(t, client.HasToken())
}

func TestClient_history(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/period-definitions":
			writeJSON(w, http.StatusOK, `[{"period": 1, "startTime": "08:00", "endTime": "08:45", "subject": "Maths", "teacherName": "Mwamba"}]`)
		case "/api/subject-period-summary":
			writeJSON(w, http.StatusOK, `[{"subjectId": "s1", "totalPeriods": 8, "attendedPeriods": 6,
				"subjectWise": [{"subject": "Maths", "attended": 6, "total": 8, "percentage": 75}]}]`)
		case "/api/period-attendance":
			assert.Equal(t, "2026-10-01", r.URL.Query().Get("from"))
			assert.Empty(t, r.URL.Query().Get("to"))
			writeJSON(w, http.StatusOK, `[{"subjectId": "s1", "date": "2026-10-01", "period": 1, "subject": "Maths", "status": "late"}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, "static")
	class := attendance.ClassRef{ClassName: "6", Section: "A"}

	defs, err := client.PeriodDefinitions(ctx, class)
	if assert.NoError(t, err) {
		assert.Equal(t, []attendance.PeriodDefinition{
			{Period: 1, StartTime: "08:00", EndTime: "08:45", Subject: "Maths", TeacherName: "Mwamba"},
		}, defs)
	}

	summaries, err := client.SubjectPeriodSummary(ctx, class)
	if assert.NoError(t, err) && assert.Len(t, summaries, 1) {
		assert.Equal(t, 6, summaries[0].AttendedPeriods)
		assert.Equal(t, []attendance.SubjectBreakdown{{Subject: "Maths", Attended: 6, Total: 8, Percentage: 75}}, summaries[0].SubjectWise)
	}

	records, err := client.PeriodRecords(ctx, attendance.PeriodRecordQuery{ClassRef: class, From: "2026-10-01"})
	if assert.NoError(t, err) {
		assert.Equal(t, []attendance.PeriodRecord{
			{SubjectID: "s1", Date: "2026-10-01", Period: 1, Subject: "Maths", Status: attendance.StatusLate},
		}, records)
	}
}
