// Package fileversions stores the version ledger in PostgreSQL.
package fileversions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/clouddrive/internal/common"
	"github.com/dmitrijs2005/clouddrive/internal/dbx"
	"github.com/dmitrijs2005/clouddrive/internal/server/models"
)

const versionColumns = `id, owner_id, file_node_id, version_no, bucket, storage_key, size_bytes, mime_type, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(row scanner) (*models.FileVersion, error) {
	var (
		v        models.FileVersion
		mimeType sql.NullString
	)
	if err := row.Scan(&v.ID, &v.OwnerID, &v.FileNodeID, &v.VersionNo, &v.Bucket, &v.StorageKey,
		&v.SizeBytes, &mimeType, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.MimeType = mimeType.String
	return &v, nil
}

// Create appends v to the ledger and fills its ID and CreatedAt.
func (r *PostgresRepository) Create(ctx context.Context, v *models.FileVersion) error {
	query := `INSERT INTO file_versions
		(owner_id, file_node_id, version_no, bucket, storage_key, size_bytes, mime_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	mimeType := sql.NullString{String: v.MimeType, Valid: v.MimeType != ""}
	err := r.db.QueryRowContext(ctx, query,
		v.OwnerID, v.FileNodeID, v.VersionNo, v.Bucket, v.StorageKey, v.SizeBytes, mimeType,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert file version: %w", err)
	}
	return nil
}

func (r *PostgresRepository) one(ctx context.Context, query string, args ...any) (*models.FileVersion, error) {
	v, err := scanVersion(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select file version: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) Get(ctx context.Context, ownerID, fileNodeID int64, versionNo int32) (*models.FileVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM file_versions
		WHERE owner_id = $1 AND file_node_id = $2 AND version_no = $3`
	return r.one(ctx, query, ownerID, fileNodeID, versionNo)
}

func (r *PostgresRepository) Latest(ctx context.Context, ownerID, fileNodeID int64) (*models.FileVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM file_versions
		WHERE owner_id = $1 AND file_node_id = $2
		ORDER BY version_no DESC
		LIMIT 1`
	return r.one(ctx, query, ownerID, fileNodeID)
}

func (r *PostgresRepository) List(ctx context.Context, ownerID, fileNodeID int64) ([]*models.FileVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM file_versions
		WHERE owner_id = $1 AND file_node_id = $2
		ORDER BY version_no DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID, fileNodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to select file versions: %w", err)
	}
	defer rows.Close()

	var result []*models.FileVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
