package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"passgate/internal/registry/models"
	"passgate/pkg/platform/sentinel"
	txcontext "passgate/pkg/platform/tx"
)

// Postgres persists the registry tables in PostgreSQL. Writes issued inside
// a registry transaction pick up the *sql.Tx from context, so a whole
// operation commits or rolls back as one unit.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) AllocateID(ctx context.Context) (models.PassID, error) {
	var next uint64
	err := s.execer(ctx).QueryRowContext(ctx,
		`UPDATE registry_counter SET next_id = next_id + 1 RETURNING next_id`,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("allocate pass id: %w", err)
	}
	return models.PassID(next), nil
}

func (s *Postgres) Counter(ctx context.Context) (uint64, error) {
	var counter uint64
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT next_id FROM registry_counter`,
	).Scan(&counter)
	if err != nil {
		return 0, fmt.Errorf("read registry counter: %w", err)
	}
	return counter, nil
}

func (s *Postgres) PutMetadata(ctx context.Context, id models.PassID, text string) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`INSERT INTO pass_metadata (pass_id, metadata) VALUES ($1, $2)
		 ON CONFLICT (pass_id) DO NOTHING`,
		int64(id), text,
	)
	if err != nil {
		return fmt.Errorf("put pass metadata: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("put pass metadata: %w", err)
	}
	if affected == 0 {
		// Metadata is write-once.
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) Metadata(ctx context.Context, id models.PassID) (string, error) {
	var text string
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT metadata FROM pass_metadata WHERE pass_id = $1`, int64(id),
	).Scan(&text)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("find pass metadata: %w", err)
	}
	return text, nil
}

func (s *Postgres) Owner(ctx context.Context, id models.PassID) (models.Identity, error) {
	var owner string
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT owner FROM pass_owners WHERE pass_id = $1`, int64(id),
	).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("find pass owner: %w", err)
	}
	return models.Identity(owner), nil
}

func (s *Postgres) SetOwner(ctx context.Context, id models.PassID, owner models.Identity) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`INSERT INTO pass_owners (pass_id, owner) VALUES ($1, $2)
		 ON CONFLICT (pass_id) DO UPDATE SET owner = EXCLUDED.owner`,
		int64(id), string(owner),
	)
	if err != nil {
		return fmt.Errorf("set pass owner: %w", err)
	}
	return nil
}

func (s *Postgres) DeleteOwner(ctx context.Context, id models.PassID) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM pass_owners WHERE pass_id = $1`, int64(id),
	)
	if err != nil {
		return fmt.Errorf("delete pass owner: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete pass owner: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) IsRevoked(ctx context.Context, id models.PassID) (bool, error) {
	var revoked bool
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT revoked FROM pass_revocations WHERE pass_id = $1`, int64(id),
	).Scan(&revoked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Absence means not revoked.
			return false, nil
		}
		return false, fmt.Errorf("check pass revocation: %w", err)
	}
	return revoked, nil
}

func (s *Postgres) SetRevoked(ctx context.Context, id models.PassID, revoked bool) error {
	var err error
	if revoked {
		_, err = s.execer(ctx).ExecContext(ctx,
			`INSERT INTO pass_revocations (pass_id, revoked) VALUES ($1, TRUE)
			 ON CONFLICT (pass_id) DO UPDATE SET revoked = TRUE`,
			int64(id),
		)
	} else {
		_, err = s.execer(ctx).ExecContext(ctx,
			`DELETE FROM pass_revocations WHERE pass_id = $1`, int64(id),
		)
	}
	if err != nil {
		return fmt.Errorf("set pass revocation: %w", err)
	}
	return nil
}

func (s *Postgres) BulkRecord(ctx context.Context, id models.PassID) (string, error) {
	var record string
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT record FROM pass_bulk_records WHERE pass_id = $1`, int64(id),
	).Scan(&record)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("find bulk record: %w", err)
	}
	return record, nil
}
