package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/clouddrive/internal/common"
	"github.com/dmitrijs2005/clouddrive/internal/server/models"
	"github.com/dmitrijs2005/clouddrive/internal/server/repositories/repomanager"
)

// Download is a presigned URL for one stored version.
type Download struct {
	Version          *models.FileVersion
	URL              string
	ExpiresInSeconds int64
}

// FileService reads the version ledger of file nodes.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       ObjectStore
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, store ObjectStore) *FileService {
	return &FileService{db: db, repomanager: m, store: store}
}

// ListVersions returns the file's versions, newest first.
func (s *FileService) ListVersions(ctx context.Context, ownerID, fileNodeID int64) ([]*models.FileVersion, error) {
	if _, err := assertFileNode(ctx, s.repomanager.Nodes(s.db), ownerID, fileNodeID); err != nil {
		return nil, err
	}
	versions, err := s.repomanager.FileVersions(s.db).List(ctx, ownerID, fileNodeID)
	if err != nil {
		return nil, err
	}
	if versions == nil {
		versions = []*models.FileVersion{}
	}
	return versions, nil
}

func (s *FileService) DownloadLatest(ctx context.Context, ownerID, fileNodeID int64) (*Download, error) {
	if _, err := assertFileNode(ctx, s.repomanager.Nodes(s.db), ownerID, fileNodeID); err != nil {
		return nil, err
	}
	v, err := s.repomanager.FileVersions(s.db).Latest(ctx, ownerID, fileNodeID)
	if err != nil {
		return nil, notFound(err, "file has no versions")
	}
	return s.presign(ctx, v)
}

func (s *FileService) DownloadVersion(ctx context.Context, ownerID, fileNodeID int64, versionNo int32) (*Download, error) {
	if versionNo < 1 {
		return nil, fmt.Errorf("%w: versionNo must be >= 1", common.ErrInvalidArgument)
	}
	if _, err := assertFileNode(ctx, s.repomanager.Nodes(s.db), ownerID, fileNodeID); err != nil {
		return nil, err
	}
	v, err := s.repomanager.FileVersions(s.db).Get(ctx, ownerID, fileNodeID, versionNo)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("version %d not found", versionNo))
	}
	return s.presign(ctx, v)
}

func (s *FileService) presign(ctx context.Context, v *models.FileVersion) (*Download, error) {
	url, err := s.store.PresignGetObject(ctx, v.Bucket, v.StorageKey)
	if err != nil {
		return nil, err
	}
	return &Download{
		Version:          v,
		URL:              url,
		ExpiresInSeconds: int64(s.store.PresignExpires() / time.Second),
	}, nil
}
