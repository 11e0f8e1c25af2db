package uploadsessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/clouddrive/internal/server/models"
)

// Repository persists multipart upload sessions.
type Repository interface {
	// NextVersionNo returns 1 + the highest version number reserved by any
	// session or recorded in the version ledger for the file node.
	NextVersionNo(ctx context.Context, ownerID, fileNodeID int64) (int32, error)
	Create(ctx context.Context, s *models.UploadSession) error
	Get(ctx context.Context, ownerID, id int64) (*models.UploadSession, error)
	// Transition moves a session from one status to another only if it is
	// still in the expected status.
	Transition(ctx context.Context, ownerID, id int64, from, to models.UploadStatus, at time.Time) (*models.UploadSession, error)
}
