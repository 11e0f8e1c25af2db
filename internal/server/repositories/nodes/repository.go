package nodes

import (
	"context"
	"time"

	"github.com/dmitrijs2005/clouddrive/internal/server/models"
)

// Position is the (created_at, id) ordering key of a child listing.
type Position struct {
	CreatedAt time.Time
	ID        int64
}

// Repository persists the per-owner node tree. Lookups only return live
// (not soft-deleted) nodes owned by ownerID.
type Repository interface {
	GetLive(ctx context.Context, ownerID, id int64) (*models.Node, error)
	GetRoot(ctx context.Context, ownerID int64) (*models.Node, error)
	InsertRoot(ctx context.Context, ownerID int64) (*models.Node, error)
	Insert(ctx context.Context, ownerID, parentID int64, name string, nodeType models.NodeType) (*models.Node, error)
	ListChildren(ctx context.Context, ownerID, parentID int64, after *Position, limit int) ([]*models.Node, error)
	Rename(ctx context.Context, ownerID, id int64, name string, expectedRowVersion *int64) (*models.Node, error)
	Move(ctx context.Context, ownerID, id, newParentID int64, expectedRowVersion *int64) (*models.Node, error)
	IsDescendant(ctx context.Context, ownerID, ancestorID, candidateID int64) (bool, error)
	SoftDelete(ctx context.Context, ownerID, id int64, at time.Time) (*models.Node, error)
	SoftDeleteSubtree(ctx context.Context, ownerID, id int64, at time.Time) ([]*models.Node, error)
}
