package catalog

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/tidwall/gjson"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

// SchemaVersion is the only remote catalog document version understood
const SchemaVersion = 1

// RemoteSource reads occupations from an external catalog service. Documents
// look like
//
//	{"schema_version": 1, "occupation": {...}}
//	{"schema_version": 1, "occupations": [{...}, ...]}
//
// with one fixed field name per concept.
type RemoteSource struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// RemoteOption configures a RemoteSource
type RemoteOption func(*RemoteSource)

// WithToken sets the bearer token sent to the catalog service
func WithToken(token string) RemoteOption {
	return func(r *RemoteSource) {
		r.token = token
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) RemoteOption {
	return func(r *RemoteSource) {
		r.httpClient = client
	}
}

// NewRemoteSource creates a source for the catalog service at baseURL
func NewRemoteSource(baseURL string, opts ...RemoteOption) *RemoteSource {
	r := &RemoteSource{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
				TLSHandshakeTimeout: 2 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOccupation fetches one occupation; nil, nil when the service has none
func (r *RemoteSource) GetOccupation(ctx context.Context, id string) (*models.Occupation, error) {
	body, status, err := r.fetch(ctx, "/occupations/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	doc, err := checkSchema(body)
	if err != nil {
		return nil, err
	}
	occ, err := ParseOccupation(doc.Get("occupation"))
	if err != nil {
		return nil, err
	}
	return occ, nil
}

// ListOccupations fetches every occupation
func (r *RemoteSource) ListOccupations(ctx context.Context) ([]*models.Occupation, error) {
	body, status, err := r.fetch(ctx, "/occupations")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("catalog service has no occupations endpoint")
	}

	doc, err := checkSchema(body)
	if err != nil {
		return nil, err
	}

	var result []*models.Occupation
	var parseErr error
	doc.Get("occupations").ForEach(func(_, value gjson.Result) bool {
		occ, err := ParseOccupation(value)
		if err != nil {
			parseErr = err
			return false
		}
		result = append(result, occ)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return result, nil
}

// fetch performs a GET and returns the body for 200 and 404 responses
func (r *RemoteSource) fetch(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, resp.StatusCode, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("catalog request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read catalog response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func checkSchema(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("catalog response is not valid JSON")
	}
	doc := gjson.ParseBytes(body)
	if v := doc.Get("schema_version"); !v.Exists() || v.Int() != SchemaVersion {
		return gjson.Result{}, fmt.Errorf("unsupported catalog schema_version %s", v.Raw)
	}
	return doc, nil
}

// ParseOccupation converts one occupation JSON object into the model and
// prepares it
func ParseOccupation(v gjson.Result) (*models.Occupation, error) {
	if !v.IsObject() {
		return nil, fmt.Errorf("occupation is not an object")
	}

	occ := &models.Occupation{
		ID:              v.Get("id").String(),
		Code:            v.Get("code").String(),
		Name:            v.Get("name").String(),
		Category:        models.OccupationCategory(v.Get("category").String()),
		SupportsModular: v.Get("supports_modular").Bool(),
	}

	for _, m := range v.Get("modules").Array() {
		occ.Modules = append(occ.Modules, parseModule(m))
	}

	for _, lv := range v.Get("levels").Array() {
		level := &models.OccupationLevel{
			ID:            lv.Get("id").String(),
			Name:          lv.Get("name").String(),
			StructureType: models.StructureType(lv.Get("structure_type").String()),
			Modular:       lv.Get("modular").Bool(),
		}

		fees := lv.Get("fees")
		var err error
		if level.FormalFee, err = parseFeeValue("formal", fees.Get("formal")); err != nil {
			return nil, err
		}
		if level.ModularFeeSingleModule, err = parseFeeValue("modular_single_module", fees.Get("modular_single_module")); err != nil {
			return nil, err
		}
		if level.ModularFeeDoubleModule, err = parseFeeValue("modular_double_module", fees.Get("modular_double_module")); err != nil {
			return nil, err
		}
		if level.WorkersPASPerPaperFee, err = parseFeeValue("workers_pas_per_paper", fees.Get("workers_pas_per_paper")); err != nil {
			return nil, err
		}

		for _, m := range lv.Get("modules").Array() {
			level.Modules = append(level.Modules, parseModule(m))
		}
		occ.Levels = append(occ.Levels, level)
	}

	if err := Prepare(occ); err != nil {
		return nil, err
	}
	return occ, nil
}

func parseModule(v gjson.Result) *models.Module {
	m := &models.Module{
		ID:   v.Get("id").String(),
		Code: v.Get("code").String(),
		Name: v.Get("name").String(),
	}
	for _, p := range v.Get("papers").Array() {
		m.Papers = append(m.Papers, &models.Paper{
			ID:   p.Get("id").String(),
			Code: p.Get("code").String(),
			Name: p.Get("name").String(),
			Type: models.AssessmentType(p.Get("type").String()),
		})
	}
	return m
}

// parseFeeValue accepts a JSON number or numeric string. Absent and null
// mean undefined.
func parseFeeValue(field string, v gjson.Result) (*apd.Decimal, error) {
	switch v.Type {
	case gjson.Null:
		return nil, nil
	case gjson.Number:
		return parseFee(field, v.Raw)
	case gjson.String:
		return parseFee(field, v.Str)
	}
	return nil, fmt.Errorf("invalid %s fee %s", field, v.Raw)
}
