package shares

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andrejsk/clouddrive/internal/common"
	"github.com/andrejsk/clouddrive/internal/dbx"
	"github.com/andrejsk/clouddrive/internal/server/models"
)

// pgUniqueViolation is the PostgreSQL error code for a unique constraint
// violation, the authoritative Conflict signal for share-name claims.
const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.ShareRecord) error {

	query :=
		`INSERT INTO shares (share_name, owner_id, item_name, item_type, source_tag, is_featured)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		rec.ShareName, rec.OwnerID, rec.ItemName, rec.ItemType, rec.SourceTag, rec.IsFeatured).Scan(&rec.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("share name %q: %w", rec.ShareName, common.ErrConflict)
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByName(ctx context.Context, shareName string) (*models.ShareRecord, error) {
	query :=
		`SELECT share_name, owner_id, item_name, item_type, source_tag, is_featured, views, created_at
		 FROM shares
		 WHERE share_name = $1
		 `

	rec := &models.ShareRecord{}
	err := r.db.QueryRowContext(ctx, query, shareName).Scan(
		&rec.ShareName, &rec.OwnerID, &rec.ItemName, &rec.ItemType,
		&rec.SourceTag, &rec.IsFeatured, &rec.Views, &rec.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rec, nil
}

func (r *PostgresRepository) GetByOwnerItem(ctx context.Context, ownerID, itemName string) (*models.ShareRecord, error) {
	query :=
		`SELECT share_name, owner_id, item_name, item_type, source_tag, is_featured, views, created_at
		 FROM shares
		 WHERE owner_id = $1 AND item_name = $2
		 `

	rec := &models.ShareRecord{}
	err := r.db.QueryRowContext(ctx, query, ownerID, itemName).Scan(
		&rec.ShareName, &rec.OwnerID, &rec.ItemName, &rec.ItemType,
		&rec.SourceTag, &rec.IsFeatured, &rec.Views, &rec.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rec, nil
}

func (r *PostgresRepository) Rename(ctx context.Context, ownerID, oldName, newName string) error {
	query :=
		`UPDATE shares SET share_name = $1
		 WHERE share_name = $2 AND owner_id = $3
		 `

	res, err := r.db.ExecContext(ctx, query, newName, oldName, ownerID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("share name %q: %w", newName, common.ErrConflict)
		}
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, shareName string) error {
	query :=
		`DELETE FROM shares
		 WHERE share_name = $1 AND owner_id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, shareName, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}

func (r *PostgresRepository) IncrementViews(ctx context.Context, shareName string) (int64, error) {
	query :=
		`UPDATE shares SET views = views + 1
		 WHERE share_name = $1
		 RETURNING views
		 `

	var views int64
	err := r.db.QueryRowContext(ctx, query, shareName).Scan(&views)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}

	return views, nil
}

func (r *PostgresRepository) SetFeatured(ctx context.Context, ownerID, shareName string, featured bool) error {
	query :=
		`UPDATE shares SET is_featured = $1
		 WHERE share_name = $2 AND owner_id = $3
		 `

	res, err := r.db.ExecContext(ctx, query, featured, shareName, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.ShareRecord, error) {
	query :=
		`SELECT share_name, owner_id, item_name, item_type, source_tag, is_featured, views, created_at
		 FROM shares
		 WHERE owner_id = $1
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanShareRows(rows)
}

func (r *PostgresRepository) ListFeatured(ctx context.Context, limit int) ([]*models.ShareRecord, error) {
	query :=
		`SELECT share_name, owner_id, item_name, item_type, source_tag, is_featured, views, created_at
		 FROM shares
		 WHERE is_featured
		 ORDER BY views DESC
		 LIMIT $1
		 `

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanShareRows(rows)
}

func scanShareRows(rows *sql.Rows) ([]*models.ShareRecord, error) {
	var recs []*models.ShareRecord
	for rows.Next() {
		rec := &models.ShareRecord{}
		err := rows.Scan(
			&rec.ShareName, &rec.OwnerID, &rec.ItemName, &rec.ItemType,
			&rec.SourceTag, &rec.IsFeatured, &rec.Views, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return recs, nil
}
