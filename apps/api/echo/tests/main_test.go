package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	. "github.com/trezcool/masomo-attendance/apps/api/echo"
	"github.com/trezcool/masomo-attendance/core"
	"github.com/trezcool/masomo-attendance/core/attendance"
	"github.com/trezcool/masomo-attendance/services/metrics"
	memdb "github.com/trezcool/masomo-attendance/storage/memory"
	"github.com/trezcool/masomo-attendance/tests"
)

var (
	ctxBg = context.Background()

	errMissingToken = httpErr{Error: "missing or malformed jwt"}

	teacher   = core.Operator{ID: "op-1", Username: "mwalimu", Email: "mwalimu@masomo.cd"}
	assistant = core.Operator{ID: "op-2", Username: "msaidizi", Email: "msaidizi@masomo.cd"}
)

type testApp struct {
	server *Server
	db     *memdb.DB
	conf   *core.Config
}

func setup(t *testing.T) *testApp {
	t.Helper()
	conf := testutil.NewConfig()
	validate, translator := testutil.NewValidator()
	logger := testutil.NopLogger{}

	db := memdb.Open()
	memdb.Seed(db)
	collector := metrics.NewCollector()
	svc := attendance.NewService(collector.Instrument(db), validate, logger)

	sessions, err := NewSessionRegistry(conf, svc, logger)
	if err != nil {
		t.Fatalf("NewSessionRegistry(): %v", err)
	}

	server := NewServer(Deps{
		Config:     conf,
		Logger:     logger,
		Service:    svc,
		Sessions:   sessions,
		Metrics:    collector,
		Validate:   validate,
		Translator: translator,
	})
	return &testApp{server: server, db: db, conf: conf}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do sends an authenticated request and decodes the response into out (when not nil).
func (app *testApp) do(t *testing.T, method, path, token string, body []byte, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req, rec := newAuthRequest(method, path, token, body)
	app.server.ServeHTTP(rec, req)
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decoding %s %s response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec
}

func getToken(t *testing.T, conf *core.Config, op core.Operator) string {
	token, err := GenerateToken(GetOperatorClaims(op, conf), conf)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
