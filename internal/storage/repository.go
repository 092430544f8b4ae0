package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	findProjectSQL = `SELECT id, symbol, name, contract_address, network, website_url, created_at
    FROM crypto_projects_rated
    WHERE contract_address = $1
      AND network = $2
    LIMIT 1;`

	insertAdmissionSQL = `INSERT INTO admission_log (
        symbol,
        contract_address,
        network,
        outcome,
        detail,
        liquidity_usd,
        project_id
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    RETURNING id, created_at;`

	listRecentAdmissionsSQL = `SELECT
        id,
        symbol,
        contract_address,
        network,
        outcome,
        detail,
        liquidity_usd,
        project_id,
        created_at
    FROM admission_log
    ORDER BY created_at DESC
    LIMIT $1;`
)

// ProjectStore exposes lookups over admitted token records.
type ProjectStore interface {
	FindProject(ctx context.Context, contractAddress, network string) (*Project, error)
}

// AdmissionLogStore records admission attempts for auditing.
type AdmissionLogStore interface {
	InsertAdmission(ctx context.Context, record AdmissionRecord) (AdmissionRecord, error)
	ListRecentAdmissions(ctx context.Context, limit int) ([]AdmissionRecord, error)
}

// Store aggregates access to projects and the admission audit log.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// FindProject looks up an admitted record by normalized (address, network).
// Absence is (nil, nil), not an error.
func (s *Store) FindProject(ctx context.Context, contractAddress, network string) (*Project, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var project Project
	row := pool.QueryRow(ctx, findProjectSQL, contractAddress, network)
	if scanErr := row.Scan(
		&project.ID,
		&project.Symbol,
		&project.Name,
		&project.ContractAddress,
		&project.Network,
		&project.WebsiteURL,
		&project.CreatedAt,
	); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find project: %w", scanErr)
	}
	return &project, nil
}

// InsertAdmission persists one admission attempt.
func (s *Store) InsertAdmission(ctx context.Context, record AdmissionRecord) (AdmissionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AdmissionRecord{}, err
	}

	var detail interface{}
	if record.Detail != nil {
		detail = *record.Detail
	}
	var projectID interface{}
	if record.ProjectID != nil {
		projectID = *record.ProjectID
	}

	row := pool.QueryRow(ctx, insertAdmissionSQL,
		record.Symbol,
		record.ContractAddress,
		record.Network,
		record.Outcome,
		detail,
		record.LiquidityUSD.String(),
		projectID,
	)
	if scanErr := row.Scan(&record.ID, &record.CreatedAt); scanErr != nil {
		return AdmissionRecord{}, fmt.Errorf("insert admission: %w", scanErr)
	}
	return record, nil
}

// ListRecentAdmissions lists the most recent admission attempts.
func (s *Store) ListRecentAdmissions(ctx context.Context, limit int) ([]AdmissionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAdmissionsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent admissions: %w", queryErr)
	}
	defer rows.Close()

	records := make([]AdmissionRecord, 0, limit)
	for rows.Next() {
		record, scanErr := scanAdmission(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func scanAdmission(rows pgx.Rows) (AdmissionRecord, error) {
	var (
		record       AdmissionRecord
		detail       sql.NullString
		liquidityStr string
		projectID    sql.NullInt64
	)

	if err := rows.Scan(
		&record.ID,
		&record.Symbol,
		&record.ContractAddress,
		&record.Network,
		&record.Outcome,
		&detail,
		&liquidityStr,
		&projectID,
		&record.CreatedAt,
	); err != nil {
		return AdmissionRecord{}, err
	}

	liquidity, err := decimal.NewFromString(liquidityStr)
	if err != nil {
		return AdmissionRecord{}, fmt.Errorf("parse liquidity: %w", err)
	}
	record.LiquidityUSD = liquidity

	if detail.Valid {
		value := detail.String
		record.Detail = &value
	}
	if projectID.Valid {
		value := projectID.Int64
		record.ProjectID = &value
	}
	return record, nil
}
