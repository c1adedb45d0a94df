package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Pool exposes the connection pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// --- Candidates ---

const candidateColumns = `id, reg_no, full_name, occupation_id, registration_category, center_id, created_at`

// CreateCandidate inserts a candidate
func (r *PostgresRepository) CreateCandidate(ctx context.Context, c *models.Candidate) error {
	query := `
		INSERT INTO candidates (` + candidateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.RegNo,
		c.FullName,
		c.OccupationID,
		string(c.RegistrationCategory),
		c.CenterID,
		c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create candidate: %w", err)
	}

	return nil
}

// GetCandidate retrieves a candidate by ID
func (r *PostgresRepository) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = $1`

	c, err := scanCandidate(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return c, nil
}

// GetCandidates retrieves candidates by ID in the order given. Unknown ids are skipped.
func (r *PostgresRepository) GetCandidates(ctx context.Context, ids []string) ([]*models.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidates: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*models.Candidate, len(ids))
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}

	result := make([]*models.Candidate, 0, len(byID))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			result = append(result, c)
			delete(byID, id)
		}
	}
	return result, nil
}

// ListCandidates returns one page of candidates matching filters and the
// total number of matches
func (r *PostgresRepository) ListCandidates(ctx context.Context, filters models.CandidateFilters, limit, offset int) ([]*models.Candidate, int, error) {
	where, args := candidateWhere(filters)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM candidates`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count candidates: %w", err)
	}

	query := `SELECT ` + candidateColumns + ` FROM candidates` + where + ` ORDER BY created_at DESC, id`
	argNum := len(args) + 1

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, limit)
		argNum++
	}

	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*models.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating candidates: %w", err)
	}

	return candidates, total, nil
}

// ResolveTarget returns the ids a bulk target addresses
func (r *PostgresRepository) ResolveTarget(ctx context.Context, target models.BulkTarget) ([]string, error) {
	if target.Kind == models.TargetExplicit {
		candidates, err := r.GetCandidates(ctx, target.IDs)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(candidates))
		for _, c := range candidates {
			ids = append(ids, c.ID)
		}
		return ids, nil
	}

	where, args := candidateWhere(target.Filters)
	rows, err := r.pool.Query(ctx, `SELECT id FROM candidates`+where+` ORDER BY created_at DESC, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan candidate id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ChangeCenter moves candidates to another assessment center
func (r *PostgresRepository) ChangeCenter(ctx context.Context, candidateIDs []string, centerID string) (int, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE candidates SET center_id = $1 WHERE id = ANY($2)`, centerID, candidateIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to change center: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes s match literally inside a LIKE pattern
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// candidateWhere builds the WHERE clause shared by list, count and bulk resolution
func candidateWhere(filters models.CandidateFilters) (string, []any) {
	where := " WHERE 1=1"
	args := make([]any, 0)
	argNum := 1

	if filters.Search != "" {
		where += fmt.Sprintf(` AND (reg_no ILIKE $%d ESCAPE '\' OR full_name ILIKE $%d ESCAPE '\')`, argNum, argNum)
		args = append(args, "%"+escapeLike(filters.Search)+"%")
		argNum++
	}

	if filters.OccupationID != "" {
		where += fmt.Sprintf(" AND occupation_id = $%d", argNum)
		args = append(args, filters.OccupationID)
		argNum++
	}

	if filters.CenterID != "" {
		where += fmt.Sprintf(" AND center_id = $%d", argNum)
		args = append(args, filters.CenterID)
		argNum++
	}

	if filters.RegistrationCategory != "" {
		where += fmt.Sprintf(" AND registration_category = $%d", argNum)
		args = append(args, string(filters.RegistrationCategory))
		argNum++
	}

	if filters.SeriesID != "" {
		where += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM enrollments e WHERE e.candidate_id = candidates.id AND e.series_id = $%d)", argNum)
		args = append(args, filters.SeriesID)
	}

	return where, args
}

func scanCandidate(row pgx.Row) (*models.Candidate, error) {
	var c models.Candidate
	var category string

	err := row.Scan(
		&c.ID,
		&c.RegNo,
		&c.FullName,
		&c.OccupationID,
		&category,
		&c.CenterID,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.RegistrationCategory = models.RegistrationCategory(category)
	return &c, nil
}

// --- Assessment series ---

// GetSeries retrieves an assessment series by ID
func (r *PostgresRepository) GetSeries(ctx context.Context, id string) (*models.AssessmentSeries, error) {
	query := `SELECT id, name, start_date, end_date, is_current FROM assessment_series WHERE id = $1`

	var s models.AssessmentSeries
	err := r.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.StartDate, &s.EndDate, &s.IsCurrent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get series: %w", err)
	}
	return &s, nil
}

// ListSeries returns all assessment series, most recent first
func (r *PostgresRepository) ListSeries(ctx context.Context) ([]*models.AssessmentSeries, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, start_date, end_date, is_current
		FROM assessment_series
		ORDER BY start_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	defer rows.Close()

	var series []*models.AssessmentSeries
	for rows.Next() {
		var s models.AssessmentSeries
		if err := rows.Scan(&s.ID, &s.Name, &s.StartDate, &s.EndDate, &s.IsCurrent); err != nil {
			return nil, fmt.Errorf("failed to scan series: %w", err)
		}
		series = append(series, &s)
	}
	return series, rows.Err()
}

// --- Enrollments ---

const enrollmentColumns = `id, candidate_id, series_id, registration_category, occupation_id, level_id,
	module_ids, paper_ids, fee::text, catalog_version, created_at`

// CreateEnrollments inserts enrollments in one transaction. A duplicate
// (candidate, series) pair aborts the whole batch with ErrConflict.
func (r *PostgresRepository) CreateEnrollments(ctx context.Context, enrollments []*models.Enrollment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO enrollments (id, candidate_id, series_id, registration_category, occupation_id, level_id,
			module_ids, paper_ids, fee, catalog_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::text::numeric, $10, $11)
	`

	for _, e := range enrollments {
		moduleJSON, err := json.Marshal(nonNil(e.ModuleIDs))
		if err != nil {
			return fmt.Errorf("failed to marshal modules: %w", err)
		}
		paperJSON, err := json.Marshal(nonNil(e.PaperIDs))
		if err != nil {
			return fmt.Errorf("failed to marshal papers: %w", err)
		}
		if e.Fee == nil {
			return fmt.Errorf("enrollment %s has no fee", e.ID)
		}

		_, err = tx.Exec(ctx, query,
			e.ID,
			e.CandidateID,
			e.SeriesID,
			string(e.Category),
			e.OccupationID,
			nullString(e.LevelID),
			moduleJSON,
			paperJSON,
			e.Fee.String(),
			e.CatalogVersion,
			e.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrConflict
			}
			return fmt.Errorf("failed to create enrollment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit enrollments: %w", err)
	}
	return nil
}

// GetEnrollment retrieves an enrollment by ID
func (r *PostgresRepository) GetEnrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`

	e, err := scanEnrollment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return e, nil
}

// ListEnrollments returns a candidate's enrollments, newest first
func (r *PostgresRepository) ListEnrollments(ctx context.Context, candidateID string) ([]*models.Enrollment, error) {
	return r.queryEnrollments(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE candidate_id = $1 ORDER BY created_at DESC`, candidateID)
}

// ListSeriesEnrollments returns all enrollments of a series
func (r *PostgresRepository) ListSeriesEnrollments(ctx context.Context, seriesID string) ([]*models.Enrollment, error) {
	return r.queryEnrollments(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE series_id = $1 ORDER BY occupation_id, created_at`, seriesID)
}

// EnrolledCandidates reports which of the candidates already have an enrollment in the series
func (r *PostgresRepository) EnrolledCandidates(ctx context.Context, seriesID string, candidateIDs []string) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT candidate_id FROM enrollments WHERE series_id = $1 AND candidate_id = ANY($2)`,
		seriesID, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollments: %w", err)
	}
	defer rows.Close()

	enrolled := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan candidate id: %w", err)
		}
		enrolled[id] = true
	}
	return enrolled, rows.Err()
}

// ChangeSeries moves enrollments between series. Candidates already enrolled
// in the target series are left where they are.
func (r *PostgresRepository) ChangeSeries(ctx context.Context, candidateIDs []string, fromSeriesID, toSeriesID string) (int, error) {
	query := `
		UPDATE enrollments SET series_id = $1
		WHERE series_id = $2
		  AND candidate_id = ANY($3)
		  AND NOT EXISTS (
			SELECT 1 FROM enrollments e2
			WHERE e2.candidate_id = enrollments.candidate_id AND e2.series_id = $1
		  )
	`
	tag, err := r.pool.Exec(ctx, query, toSeriesID, fromSeriesID, candidateIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to change series: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteEnrollment deletes an enrollment and its results
func (r *PostgresRepository) DeleteEnrollment(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM results WHERE enrollment_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete results: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM enrollments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) queryEnrollments(ctx context.Context, query string, args ...any) ([]*models.Enrollment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []*models.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enrollments: %w", err)
	}
	return enrollments, nil
}

func scanEnrollment(row pgx.Row) (*models.Enrollment, error) {
	var e models.Enrollment
	var category, fee string
	var levelID sql.NullString
	var moduleJSON, paperJSON []byte

	err := row.Scan(
		&e.ID,
		&e.CandidateID,
		&e.SeriesID,
		&category,
		&e.OccupationID,
		&levelID,
		&moduleJSON,
		&paperJSON,
		&fee,
		&e.CatalogVersion,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Category = models.RegistrationCategory(category)
	e.LevelID = levelID.String

	if err := json.Unmarshal(moduleJSON, &e.ModuleIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal modules: %w", err)
	}
	if err := json.Unmarshal(paperJSON, &e.PaperIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal papers: %w", err)
	}

	d, _, err := apd.NewFromString(fee)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fee %q: %w", fee, err)
	}
	e.Fee = d

	return &e, nil
}

// --- Results ---

// UpsertResults inserts results or replaces the mark of existing ones
func (r *PostgresRepository) UpsertResults(ctx context.Context, enrollmentID string, results []*models.Result) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO results (id, enrollment_id, module_id, paper_id, type, mark, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::float8, $7, $7)
		ON CONFLICT (enrollment_id, module_id, paper_id, type)
		DO UPDATE SET mark = EXCLUDED.mark, updated_at = EXCLUDED.updated_at
	`

	for _, res := range results {
		_, err := tx.Exec(ctx, query,
			res.ID,
			enrollmentID,
			res.ModuleID,
			res.PaperID,
			string(res.Type),
			res.Mark,
			res.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert result: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

// ListResults returns the results of an enrollment
func (r *PostgresRepository) ListResults(ctx context.Context, enrollmentID string) ([]*models.Result, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, enrollment_id, module_id, paper_id, type, mark::float8, created_at, updated_at
		FROM results
		WHERE enrollment_id = $1
		ORDER BY module_id, paper_id, type
	`, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []*models.Result
	for rows.Next() {
		var res models.Result
		var typ string
		var mark sql.NullFloat64

		if err := rows.Scan(&res.ID, &res.EnrollmentID, &res.ModuleID, &res.PaperID, &typ, &mark, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		res.Type = models.AssessmentType(typ)
		if mark.Valid {
			m := mark.Float64
			res.Mark = &m
		}
		results = append(results, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return results, nil
}

// --- API Clients ---

// GetClientByApiKey retrieves an API client by its key
func (r *PostgresRepository) GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error) {
	query := `
		SELECT id, name, api_key, role, center_id, is_active, created_at, last_used_at, permissions, metadata
		FROM api_clients
		WHERE api_key = $1
	`

	var client models.ApiClient
	var centerID sql.NullString
	var lastUsedAt sql.NullTime
	var permissionsJSON, metadataJSON []byte

	err := r.pool.QueryRow(ctx, query, apiKey).Scan(
		&client.ID,
		&client.Name,
		&client.ApiKey,
		&client.Role,
		&centerID,
		&client.IsActive,
		&client.CreatedAt,
		&lastUsedAt,
		&permissionsJSON,
		&metadataJSON,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get api client: %w", err)
	}

	client.CenterID = centerID.String
	if lastUsedAt.Valid {
		client.LastUsedAt = &lastUsedAt.Time
	}

	if permissionsJSON != nil {
		if err := json.Unmarshal(permissionsJSON, &client.Permissions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
		}
	}

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &client.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &client, nil
}

// UpdateClientLastUsed records when an API key was last used
func (r *PostgresRepository) UpdateClientLastUsed(ctx context.Context, apiKey string) error {
	_, err := r.pool.Exec(ctx, `UPDATE api_clients SET last_used_at = NOW() WHERE api_key = $1`, apiKey)
	if err != nil {
		return fmt.Errorf("failed to update client last used: %w", err)
	}
	return nil
}

// --- Helper functions ---

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
