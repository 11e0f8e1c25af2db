package fileversions

import (
	"context"

	"github.com/dmitrijs2005/clouddrive/internal/server/models"
)

// Repository is the append-only ledger of completed file versions.
type Repository interface {
	Create(ctx context.Context, v *models.FileVersion) error
	Get(ctx context.Context, ownerID, fileNodeID int64, versionNo int32) (*models.FileVersion, error)
	Latest(ctx context.Context, ownerID, fileNodeID int64) (*models.FileVersion, error)
	// List returns versions ordered by version number, newest first.
	List(ctx context.Context, ownerID, fileNodeID int64) ([]*models.FileVersion, error)
}
