// Package rosterapi implements attendance.Backend over the school records REST service.
package rosterapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/masomo-attendance/core"
	"github.com/trezcool/masomo-attendance/core/attendance"
)

const (
	requestIDHeader      = "X-Request-Id"
	idempotencyKeyHeader = "Idempotency-Key"
	tokenSubject         = "attendance-engine"
)

var (
	// mockable funcs
	newID = uuid.NewString
	now   = time.Now
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, strings.TrimSpace(e.Body))
}

type Client struct {
	http    rest.Client
	baseURL string
	issuer  string
	secret  []byte
	ttl     time.Duration

	mu    sync.Mutex
	token string
}

var _ attendance.Backend = (*Client)(nil)

func NewClient(conf *core.Config) *Client {
	return &Client{
		http:    rest.Client{HTTPClient: &http.Client{Timeout: conf.Roster.Timeout}},
		baseURL: strings.TrimRight(conf.Roster.BaseURL, "/"),
		issuer:  conf.AppName,
		secret:  []byte(conf.SecretKey),
		ttl:     conf.Roster.TokenTTL,
		token:   conf.Roster.Token,
	}
}

// SetToken sets the static bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) HasToken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != ""
}

// bearer returns the static token, or mints a short-lived service JWT when there is none.
func (c *Client) bearer() (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}

	iat := now().UTC()
	claims := jwt.StandardClaims{
		Issuer:    c.issuer,
		Subject:   tokenSubject,
		IssuedAt:  iat.Unix(),
		ExpiresAt: iat.Add(c.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing service token")
	}
	return signed, nil
}

func (c *Client) send(ctx context.Context, method rest.Method, path string, params map[string]string, body interface{}, out interface{}, headers ...map[string]string) error {
	token, err := c.bearer()
	if err != nil {
		return err
	}

	req := rest.Request{
		Method:  method,
		BaseURL: c.baseURL + path,
		Headers: map[string]string{
			"Accept":        "application/json",
			"Authorization": "Bearer " + token,
			requestIDHeader: newID(),
		},
		QueryParams: params,
	}
	for _, h := range headers {
		for k, v := range h {
			req.Headers[k] = v
		}
	}
	if body != nil {
		if req.Body, err = json.Marshal(body); err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		req.Headers["Content-Type"] = "application/json"
	}

	resp, err := c.http.SendWithContext(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: string(method), Path: path, StatusCode: resp.StatusCode, Body: resp.Body}
	}
	if out == nil || resp.Body == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(resp.Body), out); err != nil {
		return errors.Wrapf(err, "decoding %s %s response", method, path)
	}
	return nil
}

func (c *Client) FetchRoster(ctx context.Context, key attendance.SelectionKey) ([]attendance.RosterEntry, error) {
	var dtos []rosterEntryDTO
	if err := c.send(ctx, rest.Get, "/roster", keyParams(key), nil, &dtos); err != nil {
		return nil, err
	}
	entries := make([]attendance.RosterEntry, 0, len(dtos))
	for _, dto := range dtos {
		entries = append(entries, dto.toEntry())
	}
	return entries, nil
}

// CommitAttendance posts the batch with a fresh Idempotency-Key.
func (c *Client) CommitAttendance(ctx context.Context, req attendance.CommitRequest) (attendance.CommitResult, error) {
	var res commitResultDTO
	err := c.send(ctx, rest.Post, "/attendance", nil, newCommitRequestDTO(req), &res, map[string]string{
		idempotencyKeyHeader: newID(),
	})
	if err != nil {
		return attendance.CommitResult{}, err
	}
	return attendance.CommitResult{Success: res.Success, SavedCount: res.SavedCount}, nil
}

func (c *Client) PeriodDefinitions(ctx context.Context, class attendance.ClassRef) ([]attendance.PeriodDefinition, error) {
	var dtos []periodDefinitionDTO
	if err := c.send(ctx, rest.Get, "/period-definitions", classParams(class), nil, &dtos); err != nil {
		return nil, err
	}
	defs := make([]attendance.PeriodDefinition, 0, len(dtos))
	for _, dto := range dtos {
		defs = append(defs, attendance.PeriodDefinition(dto))
	}
	return defs, nil
}

func (c *Client) SubjectPeriodSummary(ctx context.Context, class attendance.ClassRef) ([]attendance.SubjectPeriodSummary, error) {
	var dtos []subjectPeriodSummaryDTO
	if err := c.send(ctx, rest.Get, "/subject-period-summary", classParams(class), nil, &dtos); err != nil {
		return nil, err
	}
	summaries := make([]attendance.SubjectPeriodSummary, 0, len(dtos))
	for _, dto := range dtos {
		sm := attendance.SubjectPeriodSummary{
			SubjectID:       dto.SubjectID,
			TotalPeriods:    dto.TotalPeriods,
			AttendedPeriods: dto.AttendedPeriods,
			SubjectWise:     make([]attendance.SubjectBreakdown, 0, len(dto.SubjectWise)),
		}
		for _, sw := range dto.SubjectWise {
			sm.SubjectWise = append(sm.SubjectWise, attendance.SubjectBreakdown(sw))
		}
		summaries = append(summaries, sm)
	}
	return summaries, nil
}

func (c *Client) PeriodRecords(ctx context.Context, q attendance.PeriodRecordQuery) ([]attendance.PeriodRecord, error) {
	params := classParams(q.ClassRef)
	if q.From != "" {
		params["from"] = q.From
	}
	if q.To != "" {
		params["to"] = q.To
	}
	var dtos []periodRecordDTO
	if err := c.send(ctx, rest.Get, "/period-attendance", params, nil, &dtos); err != nil {
		return nil, err
	}
	records := make([]attendance.PeriodRecord, 0, len(dtos))
	for _, dto := range dtos {
		records = append(records, attendance.PeriodRecord{
			SubjectID: dto.SubjectID,
			Date:      dto.Date,
			Period:    dto.Period,
			Subject:   dto.Subject,
			Status:    attendance.Status(dto.Status),
		})
	}
	return records, nil
}
