// Package gateway is the client for the institute's remote attendance REST
// service. It is constructed explicitly and injected into the view-models so
// tests can substitute a fake without process-wide state.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"studentmonitor/internal/telemetry"
)

// Client calls the remote data gateway with static basic-auth credentials.
type Client struct {
	BaseURL  string
	Username string
	Password string
	HTTP     *http.Client
}

// New creates a client. The credential pair is fixed for the process lifetime;
// the core never requests or renews credentials.
func New(baseURL, username, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL:  baseURL,
		Username: username,
		Password: password,
		HTTP:     &http.Client{Timeout: timeout},
	}
}

// AttendanceHistory fetches attendance records for a date window. The body is
// decoded leniently; shape problems surface through the aggregation layer.
func (c *Client) AttendanceHistory(ctx context.Context, q AttendanceQuery) (AttendanceHistory, error) {
	params := url.Values{}
	params.Set("start_date", q.StartDate)
	params.Set("end_date", q.EndDate)
	if q.RoomNumber != "" {
		params.Set("room_number", q.RoomNumber)
	}
	if q.FullName != "" {
		params.Set("full_name", q.FullName)
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(q.PerPage))
	}

	var out AttendanceHistory
	if err := c.get(ctx, "attendance", "/attendance", params, &out); err != nil {
		return AttendanceHistory{}, err
	}
	return out, nil
}

// DashboardAttendance fetches the server-computed rolling counts.
func (c *Client) DashboardAttendance(ctx context.Context) (DashboardAttendance, error) {
	var out DashboardAttendance
	if err := c.get(ctx, "attendance_dashboard", "/attendance/dashboard", nil, &out); err != nil {
		return DashboardAttendance{}, err
	}
	return out, nil
}

// Trainers fetches the full trainer list.
func (c *Client) Trainers(ctx context.Context) ([]Trainer, error) {
	var out struct {
		Trainers []Trainer `json:"trainers"`
	}
	if err := c.get(ctx, "trainers", "/trainers", nil, &out); err != nil {
		return nil, err
	}
	if out.Trainers == nil {
		return nil, &ShapeError{Endpoint: "trainers", Detail: "missing trainers collection"}
	}
	return out.Trainers, nil
}

// SearchTrainers fetches trainers matching a query.
func (c *Client) SearchTrainers(ctx context.Context, query string) ([]Trainer, error) {
	params := url.Values{}
	params.Set("query", query)
	var out struct {
		Trainers []Trainer `json:"trainers"`
	}
	if err := c.get(ctx, "search_trainers", "/search/trainers", params, &out); err != nil {
		return nil, err
	}
	if out.Trainers == nil {
		return nil, &ShapeError{Endpoint: "search_trainers", Detail: "missing trainers collection"}
	}
	return out.Trainers, nil
}

// SearchUsers performs a student search. The response shape is gateway-defined
// and nothing downstream consumes it yet, so the raw body is returned as-is.
func (c *Client) SearchUsers(ctx context.Context, query string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("query", query)
	var out json.RawMessage
	if err := c.get(ctx, "search_users", "/search/users", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CourseHoldRequests fetches hold requests with the given status.
func (c *Client) CourseHoldRequests(ctx context.Context, status string) ([]HoldRequest, error) {
	params := url.Values{}
	params.Set("status", status)
	var out struct {
		HoldRequests []HoldRequest `json:"hold_requests"`
	}
	if err := c.get(ctx, "course_hold", "/course-hold", params, &out); err != nil {
		return nil, err
	}
	if out.HoldRequests == nil {
		return nil, &ShapeError{Endpoint: "course_hold", Detail: "missing hold_requests collection"}
	}
	return out.HoldRequests, nil
}

// Users fetches the students assigned to a trainer.
func (c *Client) Users(ctx context.Context, trainerID int64) ([]Student, error) {
	params := url.Values{}
	params.Set("trainer_id", strconv.FormatInt(trainerID, 10))
	var out struct {
		Users []Student `json:"users"`
	}
	if err := c.get(ctx, "users", "/users", params, &out); err != nil {
		return nil, err
	}
	if out.Users == nil {
		return nil, &ShapeError{Endpoint: "users", Detail: "missing users collection"}
	}
	return out.Users, nil
}

// Courses fetches the course reference list.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	var out struct {
		Courses []Course `json:"courses"`
	}
	if err := c.get(ctx, "courses", "/courses", nil, &out); err != nil {
		return nil, err
	}
	if out.Courses == nil {
		return nil, &ShapeError{Endpoint: "courses", Detail: "missing courses collection"}
	}
	return out.Courses, nil
}

// Coordinators fetches the coordinator reference list.
func (c *Client) Coordinators(ctx context.Context) ([]Coordinator, error) {
	var out struct {
		Coordinators []Coordinator `json:"coordinators"`
	}
	if err := c.get(ctx, "coordinators", "/coordinators", nil, &out); err != nil {
		return nil, err
	}
	if out.Coordinators == nil {
		return nil, &ShapeError{Endpoint: "coordinators", Detail: "missing coordinators collection"}
	}
	return out.Coordinators, nil
}

// UpdateUser persists a single field edit. Any 2xx means success; the response
// body is gateway-defined and ignored.
func (c *Client) UpdateUser(ctx context.Context, userID int64, field, value string) error {
	path := fmt.Sprintf("/users/%d", userID)
	return c.post(ctx, "update_user", path, map[string]string{field: value})
}

// UpdateUserMetadata persists arbitrary metadata for a user.
func (c *Client) UpdateUserMetadata(ctx context.Context, userID int64, metadata map[string]interface{}) error {
	path := fmt.Sprintf("/users/%d/metadata", userID)
	return c.post(ctx, "update_user_metadata", path, metadata)
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out interface{}) error {
	u := c.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	return c.do(endpoint, req, out)
}

func (c *Client) post(ctx context.Context, endpoint, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(endpoint, req, nil)
}

func (c *Client) do(endpoint string, req *http.Request, out interface{}) error {
	req.SetBasicAuth(c.Username, c.Password)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		telemetry.ObserveGatewayRequest(endpoint, telemetry.OutcomeTransportError, time.Since(start))
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		telemetry.ObserveGatewayRequest(endpoint, telemetry.OutcomeTransportError, time.Since(start))
		return &TransportError{Endpoint: endpoint, Status: resp.StatusCode}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			if typeErr, ok := err.(*json.UnmarshalTypeError); ok {
				telemetry.ObserveGatewayRequest(endpoint, telemetry.OutcomeShapeError, time.Since(start))
				return &ShapeError{Endpoint: endpoint, Detail: fmt.Sprintf("field %s is not %s", typeErr.Field, typeErr.Type)}
			}
			telemetry.ObserveGatewayRequest(endpoint, telemetry.OutcomeTransportError, time.Since(start))
			return &TransportError{Endpoint: endpoint, Err: fmt.Errorf("decode response: %w", err)}
		}
	}

	telemetry.ObserveGatewayRequest(endpoint, telemetry.OutcomeOK, time.Since(start))
	return nil
}
