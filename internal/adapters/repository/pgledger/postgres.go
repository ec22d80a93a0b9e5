// Package pgledger stores deployment records in PostgreSQL so several
// operators or CI jobs can share one ledger.
package pgledger

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trebuchet-org/treb-deploy/internal/domain"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

//go:embed schema.sql
var schema string

// Ledger is a DeploymentLedger backed by a pgx connection pool
type Ledger struct {
	pool *pgxpool.Pool
}

var _ usecase.DeploymentLedger = (*Ledger)(nil)

// Connect opens a pool for dsn, verifies it and creates the tables if needed
func Connect(ctx context.Context, dsn string) (*Ledger, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create connection pool: %v", domain.ErrStorage, err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %v", domain.ErrStorage, err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to create schema: %v", domain.ErrStorage, err)
	}

	return &Ledger{pool: pool}, nil
}

// Close closes the connection pool.
func (l *Ledger) Close() {
	if l.pool != nil {
		l.pool.Close()
	}
}

// Get retrieves the current record for network/contractID
func (l *Ledger) Get(ctx context.Context, network, contractID string) (*models.DeploymentRecord, error) {
	query := `SELECT record FROM deployment_records WHERE network = $1 AND contract_id = $2`

	var raw []byte
	err := l.pool.QueryRow(ctx, query, network, contractID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return decode(raw)
}

// Put upserts record under a row lock, failing with ErrConflict on a stale revision
func (l *Ledger) Put(ctx context.Context, record *models.DeploymentRecord) error {
	next := record.Clone()
	next.Revision++
	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("%w: failed to encode record: %v", domain.ErrStorage, err)
	}

	err = pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		var current int64
		err := tx.QueryRow(ctx,
			`SELECT revision FROM deployment_records WHERE network = $1 AND contract_id = $2 FOR UPDATE`,
			record.Network, record.ContractID,
		).Scan(&current)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		if current != record.Revision {
			return fmt.Errorf("%w: %s is at revision %d, write was based on %d",
				domain.ErrConflict, record.Key(), current, record.Revision)
		}

		// a concurrent first insert loses the ON CONFLICT race and is reported as a conflict
		tag, err := tx.Exec(ctx, `
			INSERT INTO deployment_records (network, contract_id, status, revision, record, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (network, contract_id) DO UPDATE
			SET status = EXCLUDED.status, revision = EXCLUDED.revision,
			    record = EXCLUDED.record, updated_at = EXCLUDED.updated_at
			WHERE deployment_records.revision = $7`,
			next.Network, next.ContractID, string(next.Status), next.Revision, raw, next.UpdatedAt, record.Revision,
		)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s was written concurrently", domain.ErrConflict, record.Key())
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO deployment_history (network, contract_id, revision, record)
			VALUES ($1, $2, $3, $4)`,
			next.Network, next.ContractID, next.Revision, raw,
		); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrStorage) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	record.Revision = next.Revision
	return nil
}

// List returns the records of a network, or of every network when network is empty
func (l *Ledger) List(ctx context.Context, network string) ([]*models.DeploymentRecord, error) {
	query := `SELECT record FROM deployment_records WHERE ($1 = '' OR network = $1) ORDER BY network, contract_id`
	return l.query(ctx, query, network)
}

// History returns every revision of network/contractID, oldest first
func (l *Ledger) History(ctx context.Context, network, contractID string) ([]*models.DeploymentRecord, error) {
	query := `SELECT record FROM deployment_history WHERE network = $1 AND contract_id = $2 ORDER BY revision`
	return l.query(ctx, query, network, contractID)
}

func (l *Ledger) query(ctx context.Context, query string, args ...any) ([]*models.DeploymentRecord, error) {
	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var records []*models.DeploymentRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		record, err := decode(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return records, nil
}

func decode(raw []byte) (*models.DeploymentRecord, error) {
	var record models.DeploymentRecord
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("%w: corrupt record: %v", domain.ErrStorage, err)
	}
	return &record, nil
}
