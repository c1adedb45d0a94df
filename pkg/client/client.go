// Package client is a Go SDK for the assessment engine API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

// Client is a Go SDK for the assessment engine API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new assessment engine client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a failed API call. Reason carries the rule that was violated,
// e.g. too_many_modules or stale_catalog_data.
type APIError struct {
	StatusCode int
	Code       string
	Reason     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("API error %d: %s (%s) - %s", e.StatusCode, e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("API error %d: %s - %s", e.StatusCode, e.Code, e.Message)
}

// ReasonOf returns the rule reason of an API error, or "" for other errors
func ReasonOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Reason
	}
	return ""
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"error"`
}

// Catalog

// ListOccupations returns the occupation catalog
func (c *Client) ListOccupations(ctx context.Context) ([]*models.Occupation, error) {
	var data struct {
		Occupations []*models.Occupation `json:"occupations"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/occupations", nil, &data); err != nil {
		return nil, err
	}
	return data.Occupations, nil
}

// GetOccupation returns one occupation with its levels, modules and papers
func (c *Client) GetOccupation(ctx context.Context, id string) (*models.Occupation, error) {
	var occ models.Occupation
	if err := c.call(ctx, http.MethodGet, "/api/v1/occupations/"+url.PathEscape(id), nil, &occ); err != nil {
		return nil, err
	}
	return &occ, nil
}

// ListSeries returns the assessment series
func (c *Client) ListSeries(ctx context.Context) ([]*models.AssessmentSeries, error) {
	var data struct {
		Series []*models.AssessmentSeries `json:"series"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/series", nil, &data); err != nil {
		return nil, err
	}
	return data.Series, nil
}

// Marksheet downloads the marksheet workbook of a series
func (c *Client) Marksheet(ctx context.Context, seriesID string) ([]byte, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/series/"+url.PathEscape(seriesID)+"/marksheet", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, decodeError(resp.StatusCode, body)
	}
	return body, nil
}

// Candidates

// ListOptions selects a page of the candidate list
type ListOptions struct {
	Filters  models.CandidateFilters
	Page     int
	PageSize int
}

// CreateCandidate registers a candidate
func (c *Client) CreateCandidate(ctx context.Context, req models.CreateCandidateRequest) (*models.Candidate, error) {
	var candidate models.Candidate
	if err := c.call(ctx, http.MethodPost, "/api/v1/candidates", req, &candidate); err != nil {
		return nil, err
	}
	return &candidate, nil
}

// GetCandidate retrieves a candidate by ID
func (c *Client) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	var candidate models.Candidate
	if err := c.call(ctx, http.MethodGet, "/api/v1/candidates/"+url.PathEscape(id), nil, &candidate); err != nil {
		return nil, err
	}
	return &candidate, nil
}

// ListCandidates returns one page of candidates and the total match count
func (c *Client) ListCandidates(ctx context.Context, opts ListOptions) (*models.CandidatePage, error) {
	q := url.Values{}
	setQuery(q, "search", opts.Filters.Search)
	setQuery(q, "occupation_id", opts.Filters.OccupationID)
	setQuery(q, "center_id", opts.Filters.CenterID)
	setQuery(q, "registration_category", string(opts.Filters.RegistrationCategory))
	setQuery(q, "assessment_series", opts.Filters.SeriesID)
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(opts.PageSize))
	}

	path := "/api/v1/candidates"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page models.CandidatePage
	if err := c.call(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Enrollment

// EnrollmentOptions returns what a candidate may be enrolled under
func (c *Client) EnrollmentOptions(ctx context.Context, candidateID string) (*models.EnrollmentOptions, error) {
	var opts models.EnrollmentOptions
	if err := c.call(ctx, http.MethodGet, "/api/v1/candidates/"+url.PathEscape(candidateID)+"/enrollment-options", nil, &opts); err != nil {
		return nil, err
	}
	return &opts, nil
}

// QuoteFee validates a selection and prices it
func (c *Client) QuoteFee(ctx context.Context, candidateID string, req models.FeeQuoteRequest) (*models.FeeQuote, error) {
	var quote models.FeeQuote
	if err := c.call(ctx, http.MethodPost, "/api/v1/candidates/"+url.PathEscape(candidateID)+"/fee-quote", req, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// Enroll enrolls a candidate into an assessment series
func (c *Client) Enroll(ctx context.Context, candidateID string, req models.EnrollRequest) (*models.Enrollment, error) {
	var e models.Enrollment
	if err := c.call(ctx, http.MethodPost, "/api/v1/candidates/"+url.PathEscape(candidateID)+"/enroll", req, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEnrollments returns the enrollments of a candidate
func (c *Client) ListEnrollments(ctx context.Context, candidateID string) ([]*models.Enrollment, error) {
	var data struct {
		Enrollments []*models.Enrollment `json:"enrollments"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/candidates/"+url.PathEscape(candidateID)+"/enrollments", nil, &data); err != nil {
		return nil, err
	}
	return data.Enrollments, nil
}

// ClearEnrollment deletes an enrollment and its results
func (c *Client) ClearEnrollment(ctx context.Context, enrollmentID string) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/enrollments/"+url.PathEscape(enrollmentID), nil, nil)
}

// Bulk

// BulkSelection resolves what a bulk action would target. A select-all
// selection carries a confirmation token to pass back with the action.
func (c *Client) BulkSelection(ctx context.Context, req models.BulkSelectionRequest) (*models.BulkSelection, error) {
	var sel models.BulkSelection
	if err := c.call(ctx, http.MethodPost, "/api/v1/candidates/bulk-selection", req, &sel); err != nil {
		return nil, err
	}
	return &sel, nil
}

// BulkEnroll enrolls every targeted candidate with one composition
func (c *Client) BulkEnroll(ctx context.Context, req models.BulkEnrollRequest) (*models.BulkEnrollResult, error) {
	var res models.BulkEnrollResult
	if err := c.call(ctx, http.MethodPost, "/api/v1/candidates/bulk-enroll", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ChangeCenter moves the targeted candidates to another assessment center
func (c *Client) ChangeCenter(ctx context.Context, req models.ChangeCenterRequest) (*models.BulkOperationResult, error) {
	var res models.BulkOperationResult
	if err := c.call(ctx, http.MethodPost, "/api/v1/candidates/bulk-change-center", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ChangeSeries moves the targeted candidates' enrollments to another series
func (c *Client) ChangeSeries(ctx context.Context, req models.ChangeSeriesRequest) (*models.BulkOperationResult, error) {
	var res models.BulkOperationResult
	if err := c.call(ctx, http.MethodPost, "/api/v1/candidates/bulk-change-series", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Results

// Results returns the graded results of an enrollment. Marks are nil when
// the API key may not read marks.
func (c *Client) Results(ctx context.Context, enrollmentID string) ([]*models.GradedResult, error) {
	return c.results(ctx, http.MethodGet, enrollmentID, nil)
}

// AddResults records new results; existing rows are rejected
func (c *Client) AddResults(ctx context.Context, enrollmentID string, req models.ResultsRequest) ([]*models.GradedResult, error) {
	return c.results(ctx, http.MethodPost, enrollmentID, req)
}

// UpdateResults records results, replacing existing rows
func (c *Client) UpdateResults(ctx context.Context, enrollmentID string, req models.ResultsRequest) ([]*models.GradedResult, error) {
	return c.results(ctx, http.MethodPut, enrollmentID, req)
}

func (c *Client) results(ctx context.Context, method, enrollmentID string, req any) ([]*models.GradedResult, error) {
	var data struct {
		Results []*models.GradedResult `json:"results"`
	}
	if err := c.call(ctx, method, "/api/v1/enrollments/"+url.PathEscape(enrollmentID)+"/results", req, &data); err != nil {
		return nil, err
	}
	return data.Results, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// call sends req as JSON and decodes the envelope's data into out
func (c *Client) call(ctx context.Context, method, path string, req, out any) error {
	var body io.Reader
	if req != nil {
		payload, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, respBody)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !env.Success {
		return decodeError(resp.StatusCode, respBody)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func decodeError(status int, body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return &APIError{StatusCode: status, Code: "http_error", Message: string(body)}
	}
	return &APIError{
		StatusCode: status,
		Code:       env.Error.Code,
		Reason:     env.Error.Reason,
		Message:    env.Error.Message,
	}
}

func setQuery(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
