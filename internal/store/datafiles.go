// Package store provides the persistence layer for the datafile revision
// archive, backed by PostgreSQL through the pgx driver. The archive keeps
// every revision the poller ever saw, so an incident can be traced back to
// the exact document that was live at the time.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check to verify that PostgresArchive implements DatafileArchive.
var _ DatafileArchive = (*PostgresArchive)(nil)

// ErrRevisionNotFound is returned when no archived revision exists for a key.
var ErrRevisionNotFound = errors.New("datafile revision not found")

// DatafileRevision mirrors the 'datafile_revisions' table.
type DatafileRevision struct {
	ID        int64     `db:"id"`
	SDKKey    string    `db:"sdk_key"`
	Revision  string    `db:"revision"`
	Payload   []byte    `db:"payload"`
	FetchedAt time.Time `db:"fetched_at"`
	CreatedAt time.Time `db:"created_at"`
}

// DatafileArchive defines the interface for revision persistence.
// Using an interface allows wiring a nil archive when no database is
// configured and mocking in tests.
type DatafileArchive interface {
	// SaveRevision archives a payload. Saving an already-archived
	// (sdk_key, revision) pair is a no-op, so the poller can call it on
	// every update without tracking what it has archived before.
	SaveRevision(ctx context.Context, rev *DatafileRevision) error

	// LatestRevision returns the most recently archived revision for the
	// SDK key, or ErrRevisionNotFound.
	LatestRevision(ctx context.Context, sdkKey string) (*DatafileRevision, error)

	// ListRevisions retrieves a paginated revision history (newest first)
	// and the total number of archived revisions for the key. Payloads are
	// not included in listings.
	ListRevisions(ctx context.Context, sdkKey string, limit, offset int) ([]*DatafileRevision, int64, error)
}

// PostgresArchive is the DatafileArchive implementation backed by PostgreSQL.
type PostgresArchive struct {
	db *pgxpool.Pool
}

// NewPostgresArchive creates a new archive instance with the given pool.
func NewPostgresArchive(db *pgxpool.Pool) *PostgresArchive {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &PostgresArchive{db: db}
}

// SaveRevision inserts a revision row, ignoring duplicates.
func (a *PostgresArchive) SaveRevision(ctx context.Context, rev *DatafileRevision) error {
	query := `
		INSERT INTO datafile_revisions (sdk_key, revision, payload, fetched_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (sdk_key, revision) DO NOTHING
		RETURNING id, created_at
	`

	err := a.db.QueryRow(ctx, query,
		rev.SDKKey,
		rev.Revision,
		rev.Payload,
		rev.FetchedAt,
	).Scan(&rev.ID, &rev.CreatedAt)

	if err != nil {
		// DO NOTHING suppresses the RETURNING row; the revision was
		// already archived and that is fine.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return fmt.Errorf("failed to archive revision %q for %q (code %s): %w",
				rev.Revision, rev.SDKKey, pgErr.Code, err)
		}
		return fmt.Errorf("failed to archive revision: %w", err)
	}

	return nil
}

// LatestRevision fetches the newest archived revision including its payload.
func (a *PostgresArchive) LatestRevision(ctx context.Context, sdkKey string) (*DatafileRevision, error) {
	query := `
		SELECT id, sdk_key, revision, payload, fetched_at, created_at
		FROM datafile_revisions
		WHERE sdk_key = $1
		ORDER BY id DESC
		LIMIT 1
	`

	var rev DatafileRevision
	err := a.db.QueryRow(ctx, query, sdkKey).Scan(
		&rev.ID,
		&rev.SDKKey,
		&rev.Revision,
		&rev.Payload,
		&rev.FetchedAt,
		&rev.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRevisionNotFound
		}
		return nil, fmt.Errorf("failed to fetch latest revision for %q: %w", sdkKey, err)
	}

	return &rev, nil
}

// ListRevisions retrieves a page of revision metadata plus the total count.
func (a *PostgresArchive) ListRevisions(ctx context.Context, sdkKey string, limit, offset int) ([]*DatafileRevision, int64, error) {
	var total int64
	countQuery := `SELECT count(*) FROM datafile_revisions WHERE sdk_key = $1`

	if err := a.db.QueryRow(ctx, countQuery, sdkKey).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count revisions: %w", err)
	}

	// Save the second query when there is nothing to page through.
	if total == 0 {
		return []*DatafileRevision{}, 0, nil
	}

	query := `
		SELECT id, sdk_key, revision, fetched_at, created_at
		FROM datafile_revisions
		WHERE sdk_key = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := a.db.Query(ctx, query, sdkKey, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list revisions: %w", err)
	}
	defer rows.Close()

	revisions := make([]*DatafileRevision, 0, limit)
	for rows.Next() {
		var rev DatafileRevision
		if err := rows.Scan(
			&rev.ID,
			&rev.SDKKey,
			&rev.Revision,
			&rev.FetchedAt,
			&rev.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan revision row: %w", err)
		}
		revisions = append(revisions, &rev)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	return revisions, total, nil
}
