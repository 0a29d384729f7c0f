package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/marathon/internal/domain"
)

//go:embed schema.sql
var schema string

// Repository provides Postgres-backed persistence for running logs, marathons
// and applications. Daily records are stored as one JSONB array per user so a
// merge replaces the whole array in a single statement.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Migrate creates the tables if they do not exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// FindRunningLog implements domain.RunningLogStore.
func (r *Repository) FindRunningLog(ctx context.Context, userID string) (*domain.UserRunningLog, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT daily_data FROM user_running_data WHERE user_id=$1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	log := domain.UserRunningLog{UserID: userID, DailyData: []domain.DailyRecord{}}
	if err := json.Unmarshal(raw, &log.DailyData); err != nil {
		return nil, fmt.Errorf("decode daily_data for %q: %w", userID, err)
	}
	return &log, nil
}

// InsertRunningLog implements domain.RunningLogStore.
func (r *Repository) InsertRunningLog(ctx context.Context, log domain.UserRunningLog) error {
	raw, err := encodeRecords(log.DailyData)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO user_running_data (user_id, daily_data) VALUES ($1, $2)`, log.UserID, raw)
	return err
}

// ReplaceDailyData implements domain.RunningLogStore.
func (r *Repository) ReplaceDailyData(ctx context.Context, userID string, dailyData []domain.DailyRecord) error {
	raw, err := encodeRecords(dailyData)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `UPDATE user_running_data SET daily_data=$2, updated_at=now() WHERE user_id=$1`, userID, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("running log for %q disappeared before update", userID)
	}
	return nil
}

const marathonColumns = `marathon_id, title, location, running_distance, description, image,
        start_registration_date, end_registration_date, marathon_start_date, email, registration_count, created_at`

// ListMarathons implements domain.MarathonStore.
func (r *Repository) ListMarathons(ctx context.Context, filter domain.MarathonFilter) ([]domain.Marathon, error) {
	var (
		args    []any
		clauses []string
	)
	if filter.Email != "" {
		args = append(args, filter.Email)
		clauses = append(clauses, fmt.Sprintf("email=$%d", len(args)))
	}

	query := `SELECT ` + marathonColumns + ` FROM marathons`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, marathon_id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Marathon, 0)
	for rows.Next() {
		m, err := scanMarathon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetMarathon implements domain.MarathonStore.
func (r *Repository) GetMarathon(ctx context.Context, id string) (*domain.Marathon, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	row := r.pool.QueryRow(ctx, `SELECT `+marathonColumns+` FROM marathons WHERE marathon_id=$1`, id)
	m, err := scanMarathon(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// InsertMarathon implements domain.MarathonStore.
func (r *Repository) InsertMarathon(ctx context.Context, m domain.Marathon) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `INSERT INTO marathons (`+marathonColumns+`)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		id,
		m.Title,
		m.Location,
		m.RunningDistance,
		m.Description,
		m.Image,
		m.StartRegistrationDate,
		m.EndRegistrationDate,
		m.MarathonStartDate,
		m.Email,
		m.RegistrationCount,
		m.CreatedAt,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateMarathon implements domain.MarathonStore. The row is locked, patched
// in memory and written back only when a field actually changed.
func (r *Repository) UpdateMarathon(ctx context.Context, id string, patch domain.MarathonPatch) (res domain.UpdateResult, err error) {
	if _, perr := uuid.Parse(id); perr != nil {
		return domain.UpdateResult{}, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.UpdateResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	current, err := scanMarathon(tx.QueryRow(ctx, `SELECT `+marathonColumns+` FROM marathons WHERE marathon_id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		err = nil
		return domain.UpdateResult{}, tx.Rollback(ctx)
	}
	if err != nil {
		return domain.UpdateResult{}, err
	}

	updated := current
	patch.Apply(&updated)
	res.MatchedCount = 1
	if updated != current {
		_, err = tx.Exec(ctx, `UPDATE marathons SET title=$2, location=$3, running_distance=$4, description=$5, image=$6,
            start_registration_date=$7, end_registration_date=$8, marathon_start_date=$9 WHERE marathon_id=$1`,
			id,
			updated.Title,
			updated.Location,
			updated.RunningDistance,
			updated.Description,
			updated.Image,
			updated.StartRegistrationDate,
			updated.EndRegistrationDate,
			updated.MarathonStartDate,
		)
		if err != nil {
			return domain.UpdateResult{}, err
		}
		res.ModifiedCount = 1
	}

	if err = tx.Commit(ctx); err != nil {
		return domain.UpdateResult{}, err
	}
	return res, nil
}

// DeleteMarathon implements domain.MarathonStore.
func (r *Repository) DeleteMarathon(ctx context.Context, id string) (int64, error) {
	if _, err := uuid.Parse(id); err != nil {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM marathons WHERE marathon_id=$1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// IncrementRegistrationCount implements domain.MarathonStore.
func (r *Repository) IncrementRegistrationCount(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	tag, err := r.pool.Exec(ctx, `UPDATE marathons SET registration_count = registration_count + 1 WHERE marathon_id=$1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListApplications implements domain.ApplicationStore.
func (r *Repository) ListApplications(ctx context.Context, filter domain.ApplicationFilter) ([]domain.Application, error) {
	var (
		args    []any
		clauses []string
	)
	if filter.Email != "" {
		args = append(args, filter.Email)
		clauses = append(clauses, fmt.Sprintf("email=$%d", len(args)))
	}
	if filter.Title != "" {
		args = append(args, regexp.QuoteMeta(filter.Title))
		clauses = append(clauses, fmt.Sprintf("title ~* $%d", len(args)))
	}

	query := `SELECT application_id, marathon_id, title, marathon_start_date, email, first_name, last_name,
        contact_number, additional_info, register_count, created_at FROM applications`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY seq"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Application, 0)
	for rows.Next() {
		var a domain.Application
		if err := rows.Scan(&a.ID, &a.MarathonID, &a.Title, &a.MarathonStartDate, &a.Email, &a.FirstName, &a.LastName,
			&a.ContactNumber, &a.AdditionalInfo, &a.RegisterCount, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// InsertApplication implements domain.ApplicationStore.
func (r *Repository) InsertApplication(ctx context.Context, a domain.Application) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `INSERT INTO applications (application_id, marathon_id, title, marathon_start_date, email,
        first_name, last_name, contact_number, additional_info, register_count, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		id,
		a.MarathonID,
		a.Title,
		a.MarathonStartDate,
		a.Email,
		a.FirstName,
		a.LastName,
		a.ContactNumber,
		a.AdditionalInfo,
		a.RegisterCount,
		a.CreatedAt,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func scanMarathon(row pgx.Row) (domain.Marathon, error) {
	var m domain.Marathon
	err := row.Scan(
		&m.ID,
		&m.Title,
		&m.Location,
		&m.RunningDistance,
		&m.Description,
		&m.Image,
		&m.StartRegistrationDate,
		&m.EndRegistrationDate,
		&m.MarathonStartDate,
		&m.Email,
		&m.RegistrationCount,
		&m.CreatedAt,
	)
	return m, err
}

func encodeRecords(records []domain.DailyRecord) ([]byte, error) {
	if records == nil {
		records = []domain.DailyRecord{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode daily_data: %w", err)
	}
	return raw, nil
}
