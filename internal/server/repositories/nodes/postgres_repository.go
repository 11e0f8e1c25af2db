// Package nodes stores the namespace tree in PostgreSQL.
package nodes

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

const nodeColumns = `id, owner_id, type, parent_id, name, is_root, created_at, updated_at, deleted_at, row_version`

// subtreeCTE expands the live descendant closure of $1 (inclusive) for owner $2.
const subtreeCTE = `
	WITH RECURSIVE subtree AS (
		SELECT id FROM nodes
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
		UNION ALL
		SELECT n.id FROM nodes n
		JOIN subtree s ON n.parent_id = s.id
		WHERE n.owner_id = $2 AND n.deleted_at IS NULL
	)`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row scanner) (*models.Node, error) {
	var (
		n         models.Node
		nodeType  string
		parentID  sql.NullInt64
		deletedAt sql.NullTime
	)
	if err := row.Scan(&n.ID, &n.OwnerID, &nodeType, &parentID, &n.Name, &n.IsRoot,
		&n.CreatedAt, &n.UpdatedAt, &deletedAt, &n.RowVersion); err != nil {
		return nil, err
	}
	n.Type = models.NodeType(nodeType)
	if parentID.Valid {
		p := parentID.Int64
		n.ParentID = &p
	}
	if deletedAt.Valid {
		d := deletedAt.Time
		n.DeletedAt = &d
	}
	return &n, nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, op string, query string, args ...any) (*models.Node, error) {
	n, err := scanNode(r.db.QueryRowContext(ctx, query, args...))
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, common.ErrNotFound
	case dbx.IsUniqueViolation(err):
		return nil, common.ErrAlreadyExists
	default:
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
}

func (r *PostgresRepository) queryMany(ctx context.Context, op string, query string, args ...any) ([]*models.Node, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetLive returns a live node of ownerID or common.ErrNotFound.
func (r *PostgresRepository) GetLive(ctx context.Context, ownerID, id int64) (*models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`
	return r.queryOne(ctx, "select node", query, id, ownerID)
}

// GetRoot returns the owner's live root or common.ErrNotFound.
func (r *PostgresRepository) GetRoot(ctx context.Context, ownerID int64) (*models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes
		WHERE owner_id = $1 AND is_root AND deleted_at IS NULL`
	return r.queryOne(ctx, "select root", query, ownerID)
}

// InsertRoot creates the owner's root folder. A concurrent winner surfaces
// as common.ErrAlreadyExists through the one-live-root-per-owner index.
func (r *PostgresRepository) InsertRoot(ctx context.Context, ownerID int64) (*models.Node, error) {
	query := `INSERT INTO nodes (owner_id, type, parent_id, name, is_root)
		VALUES ($1, 'FOLDER', NULL, $2, TRUE)
		RETURNING ` + nodeColumns
	return r.queryOne(ctx, "insert root", query, ownerID, models.RootName)
}

// Insert creates a non-root node. A live sibling with the same name yields
// common.ErrAlreadyExists.
func (r *PostgresRepository) Insert(ctx context.Context, ownerID, parentID int64, name string, nodeType models.NodeType) (*models.Node, error) {
	query := `INSERT INTO nodes (owner_id, type, parent_id, name, is_root)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING ` + nodeColumns
	return r.queryOne(ctx, "insert node", query, ownerID, string(nodeType), parentID, name)
}

// ListChildren returns up to limit live children of parentID ordered by
// (created_at, id), strictly after the given position when one is set.
func (r *PostgresRepository) ListChildren(ctx context.Context, ownerID, parentID int64, after *Position, limit int) ([]*models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes
		WHERE owner_id = $1 AND parent_id = $2 AND deleted_at IS NULL
			AND ($3::timestamptz IS NULL OR (created_at, id) > ($3::timestamptz, $4::bigint))
		ORDER BY created_at ASC, id ASC
		LIMIT $5`

	var (
		afterCreatedAt any
		afterID        int64
	)
	if after != nil {
		afterCreatedAt = after.CreatedAt
		afterID = after.ID
	}
	return r.queryMany(ctx, "select children", query, ownerID, parentID, afterCreatedAt, afterID, limit)
}

// conditional runs an UPDATE ... RETURNING guarded by an optional expected
// row version. When nothing matched it reports common.ErrVersionConflict if
// a version was supplied and common.ErrNotFound otherwise.
func (r *PostgresRepository) conditional(ctx context.Context, op, query string, expectedRowVersion *int64, args ...any) (*models.Node, error) {
	var expected any
	if expectedRowVersion != nil {
		expected = *expectedRowVersion
	}
	n, err := r.queryOne(ctx, op, query, append(args, expected)...)
	if errors.Is(err, common.ErrNotFound) && expectedRowVersion != nil {
		return nil, common.ErrVersionConflict
	}
	return n, err
}

// Rename sets a new name and bumps row_version by one in a single statement.
func (r *PostgresRepository) Rename(ctx context.Context, ownerID, id int64, name string, expectedRowVersion *int64) (*models.Node, error) {
	query := `UPDATE nodes
		SET name = $3, row_version = row_version + 1, updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL AND NOT is_root
			AND ($4::bigint IS NULL OR row_version = $4::bigint)
		RETURNING ` + nodeColumns
	return r.conditional(ctx, "rename node", query, expectedRowVersion, id, ownerID, name)
}

// Move reparents the node and bumps row_version by one in a single statement.
func (r *PostgresRepository) Move(ctx context.Context, ownerID, id, newParentID int64, expectedRowVersion *int64) (*models.Node, error) {
	query := `UPDATE nodes
		SET parent_id = $3, row_version = row_version + 1, updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL AND NOT is_root
			AND ($4::bigint IS NULL OR row_version = $4::bigint)
		RETURNING ` + nodeColumns
	return r.conditional(ctx, "move node", query, expectedRowVersion, id, ownerID, newParentID)
}

// IsDescendant reports whether candidateID lies in the live descendant
// closure of ancestorID (the ancestor itself included).
func (r *PostgresRepository) IsDescendant(ctx context.Context, ownerID, ancestorID, candidateID int64) (bool, error) {
	query := subtreeCTE + `
	SELECT EXISTS (SELECT 1 FROM subtree WHERE id = $3)`

	var found bool
	if err := r.db.QueryRowContext(ctx, query, ancestorID, ownerID, candidateID).Scan(&found); err != nil {
		return false, fmt.Errorf("failed to check descendants: %w", err)
	}
	return found, nil
}

// SoftDelete marks a single non-root node deleted.
func (r *PostgresRepository) SoftDelete(ctx context.Context, ownerID, id int64, at time.Time) (*models.Node, error) {
	query := `UPDATE nodes
		SET deleted_at = $3, updated_at = $3, row_version = row_version + 1
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL AND NOT is_root
		RETURNING ` + nodeColumns
	return r.queryOne(ctx, "delete node", query, id, ownerID, at)
}

// SoftDeleteSubtree marks the node and its whole live descendant closure
// deleted with one shared timestamp in a single statement.
func (r *PostgresRepository) SoftDeleteSubtree(ctx context.Context, ownerID, id int64, at time.Time) ([]*models.Node, error) {
	query := subtreeCTE + `
	UPDATE nodes
	SET deleted_at = $3, updated_at = $3, row_version = row_version + 1
	WHERE id IN (SELECT id FROM subtree) AND NOT is_root
	RETURNING ` + nodeColumns
	return r.queryMany(ctx, "delete subtree", query, id, ownerID, at)
}
