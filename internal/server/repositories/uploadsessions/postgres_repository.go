// Package uploadsessions stores upload session state in PostgreSQL.
package uploadsessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/clouddrive/internal/common"
	"github.com/dmitrijs2005/clouddrive/internal/dbx"
	"github.com/dmitrijs2005/clouddrive/internal/server/models"
)

const sessionColumns = `id, owner_id, file_node_id, version_no, status, bucket, storage_key, upload_id,
	part_size, total_size, mime_type, expires_at, created_at, updated_at, completed_at, aborted_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanSession(row *sql.Row) (*models.UploadSession, error) {
	var (
		s           models.UploadSession
		status      string
		mimeType    sql.NullString
		completedAt sql.NullTime
		abortedAt   sql.NullTime
	)
	err := row.Scan(&s.ID, &s.OwnerID, &s.FileNodeID, &s.VersionNo, &status, &s.Bucket, &s.StorageKey, &s.UploadID,
		&s.PartSize, &s.TotalSize, &mimeType, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt, &completedAt, &abortedAt)
	if err != nil {
		return nil, err
	}
	s.Status = models.UploadStatus(status)
	s.MimeType = mimeType.String
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	if abortedAt.Valid {
		t := abortedAt.Time
		s.AbortedAt = &t
	}
	return &s, nil
}

func (r *PostgresRepository) NextVersionNo(ctx context.Context, ownerID, fileNodeID int64) (int32, error) {
	query := `SELECT COALESCE(MAX(version_no), 0) + 1 FROM (
			SELECT version_no FROM upload_sessions WHERE owner_id = $1 AND file_node_id = $2
			UNION ALL
			SELECT version_no FROM file_versions WHERE owner_id = $1 AND file_node_id = $2
		) v`

	var next int32
	if err := r.db.QueryRowContext(ctx, query, ownerID, fileNodeID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to reserve version: %w", err)
	}
	return next, nil
}

// Create inserts s and fills its ID and timestamps. A session already
// holding the same version number yields common.ErrAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, s *models.UploadSession) error {
	query := `INSERT INTO upload_sessions
		(owner_id, file_node_id, version_no, status, bucket, storage_key, upload_id, part_size, total_size, mime_type, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	mimeType := sql.NullString{String: s.MimeType, Valid: s.MimeType != ""}
	err := r.db.QueryRowContext(ctx, query,
		s.OwnerID, s.FileNodeID, s.VersionNo, string(s.Status), s.Bucket, s.StorageKey, s.UploadID,
		s.PartSize, s.TotalSize, mimeType, s.ExpiresAt,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert upload session: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, ownerID, id int64) (*models.UploadSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM upload_sessions WHERE id = $1 AND owner_id = $2`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select upload session: %w", err)
	}
	return s, nil
}

// Transition is a single conditional UPDATE; when the session is no longer
// in status from it returns common.ErrVersionConflict.
func (r *PostgresRepository) Transition(ctx context.Context, ownerID, id int64, from, to models.UploadStatus, at time.Time) (*models.UploadSession, error) {
	query := `UPDATE upload_sessions
		SET status = $4,
			updated_at = $5,
			completed_at = CASE WHEN $4::text = 'COMPLETED' THEN $5 ELSE completed_at END,
			aborted_at = CASE WHEN $4::text = 'ABORTED' THEN $5 ELSE aborted_at END
		WHERE id = $1 AND owner_id = $2 AND status = $3
		RETURNING ` + sessionColumns

	s, err := scanSession(r.db.QueryRowContext(ctx, query, id, ownerID, string(from), string(to), at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrVersionConflict
		}
		return nil, fmt.Errorf("failed to update upload session: %w", err)
	}
	return s, nil
}
