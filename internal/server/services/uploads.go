package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/clouddrive/internal/common"
	"github.com/dmitrijs2005/clouddrive/internal/dbx"
	"github.com/dmitrijs2005/clouddrive/internal/logging"
	sc "github.com/dmitrijs2005/clouddrive/internal/server/config"
	"github.com/dmitrijs2005/clouddrive/internal/server/models"
	"github.com/dmitrijs2005/clouddrive/internal/server/repositories/repomanager"
)

// MaxParts is the S3 limit on parts per multipart upload.
const MaxParts = 10000

// MaxTotalSize is the largest object S3 accepts (5 TiB).
const MaxTotalSize int64 = 5 << 40

// ObjectStore is the multipart-capable blob store holding file content.
type ObjectStore interface {
	CreateMultipartUpload(ctx context.Context, bucket, key, mimeType string) (string, error)
	PresignUploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32) (string, error)
	CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []models.CompletedPart) error
	AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error
	PresignGetObject(ctx context.Context, bucket, key string) (string, error)
	PresignExpires() time.Duration
}

// StorageKey is the object key for a version of a file node.
func StorageKey(ownerID, fileNodeID int64, versionNo int32) string {
	return fmt.Sprintf("owners/%d/nodes/%d/versions/%d", ownerID, fileNodeID, versionNo)
}

// ChoosePartSize starts from defaultPartSize (at least sc.MinPartSize) and
// doubles it until the upload fits in MaxParts parts.
func ChoosePartSize(totalSize, defaultPartSize int64) int64 {
	partSize := defaultPartSize
	if partSize < sc.MinPartSize {
		partSize = sc.MinPartSize
	}
	for models.PartCount(totalSize, partSize) > MaxParts {
		partSize *= 2
	}
	return partSize
}

// PartURL is a presigned URL for uploading a single part.
type PartURL struct {
	URL              string
	PartNumber       int32
	ExpiresInSeconds int64
}

// CompleteResult carries the ledger entry of a completed upload.
type CompleteResult struct {
	Version          *models.FileVersion
	AlreadyCompleted bool
}

// AbortResult reports the aborted session.
type AbortResult struct {
	Session        *models.UploadSession
	AlreadyAborted bool
}

// UploadService drives upload sessions through their lifecycle and records
// completed content in the version ledger.
type UploadService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       ObjectStore
	bucket      string
	partSize    int64
	ttl         time.Duration
	log         logging.Logger
}

func NewUploadService(db *sql.DB, m repomanager.RepositoryManager, store ObjectStore, cfg *sc.Config, log logging.Logger) *UploadService {
	return &UploadService{
		db:          db,
		repomanager: m,
		store:       store,
		bucket:      cfg.S3Bucket,
		partSize:    cfg.DefaultPartSize,
		ttl:         cfg.UploadSessionTTL,
		log:         log.With("module", "uploads"),
	}
}

func (s *UploadService) loadSession(ctx context.Context, db dbx.DBTX, ownerID, sessionID int64) (*models.UploadSession, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if err := validateID("sessionId", sessionID); err != nil {
		return nil, err
	}
	session, err := s.repomanager.UploadSessions(db).Get(ctx, ownerID, sessionID)
	if err != nil {
		return nil, notFound(err, "upload session not found")
	}
	return session, nil
}

// Initiate reserves the next version number of a file node and opens a
// multipart upload for it.
func (s *UploadService) Initiate(ctx context.Context, ownerID, fileNodeID, totalSize int64, mimeType string) (*models.UploadSession, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if totalSize < 0 {
		return nil, fmt.Errorf("%w: totalSize must be non-negative", common.ErrInvalidArgument)
	}
	if totalSize > MaxTotalSize {
		return nil, fmt.Errorf("%w: totalSize must not exceed %d bytes", common.ErrInvalidArgument, MaxTotalSize)
	}
	partSize := ChoosePartSize(totalSize, s.partSize)

	var (
		session  *models.UploadSession
		uploadID string
		key      string
	)
	err := inSerializableTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := assertFileNode(ctx, s.repomanager.Nodes(tx), ownerID, fileNodeID); err != nil {
			return err
		}

		sessions := s.repomanager.UploadSessions(tx)
		versionNo, err := sessions.NextVersionNo(ctx, ownerID, fileNodeID)
		if err != nil {
			return err
		}

		key = StorageKey(ownerID, fileNodeID, versionNo)
		uploadID, err = s.store.CreateMultipartUpload(ctx, s.bucket, key, mimeType)
		if err != nil {
			return err
		}

		t := now()
		candidate := &models.UploadSession{
			OwnerID:    ownerID,
			FileNodeID: fileNodeID,
			VersionNo:  versionNo,
			Status:     models.UploadStatusUploading,
			Bucket:     s.bucket,
			StorageKey: key,
			UploadID:   uploadID,
			PartSize:   partSize,
			TotalSize:  totalSize,
			MimeType:   mimeType,
			ExpiresAt:  t.Add(s.ttl),
		}
		if err := sessions.Create(ctx, candidate); err != nil {
			if errors.Is(err, common.ErrAlreadyExists) {
				return fmt.Errorf("%w: version %d is already reserved, retry", common.ErrConflict, versionNo)
			}
			return err
		}
		session = candidate
		return nil
	})
	if err != nil {
		if uploadID != "" {
			s.abortOrphan(ctx, key, uploadID)
		}
		return nil, err
	}

	s.log.Info(ctx, "upload initiated", "owner_id", ownerID, "session_id", session.ID,
		"file_node_id", fileNodeID, "version_no", session.VersionNo, "total_parts", session.TotalParts())
	return session, nil
}

// abortOrphan releases a multipart upload whose session was never stored.
func (s *UploadService) abortOrphan(ctx context.Context, key, uploadID string) {
	if err := s.store.AbortMultipartUpload(context.WithoutCancel(ctx), s.bucket, key, uploadID); err != nil {
		s.log.Warn(ctx, "failed to abort orphaned multipart upload", "key", key, "upload_id", uploadID, "error", err)
	}
}

func (s *UploadService) GetSession(ctx context.Context, ownerID, sessionID int64) (*models.UploadSession, error) {
	return s.loadSession(ctx, s.db, ownerID, sessionID)
}

// GetPartURL presigns an upload URL for one part of an active session.
func (s *UploadService) GetPartURL(ctx context.Context, ownerID, sessionID int64, partNumber int32) (*PartURL, error) {
	session, err := s.loadSession(ctx, s.db, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	switch {
	case session.Status != models.UploadStatusUploading:
		return nil, fmt.Errorf("%w: upload session is %s", common.ErrInvalidArgument, session.Status)
	case session.Expired(now()):
		return nil, fmt.Errorf("%w: upload session expired", common.ErrInvalidArgument)
	case partNumber < 1 || partNumber > session.TotalParts():
		return nil, fmt.Errorf("%w: partNumber must be between 1 and %d", common.ErrInvalidArgument, session.TotalParts())
	}

	url, err := s.store.PresignUploadPart(ctx, session.Bucket, session.StorageKey, session.UploadID, partNumber)
	if err != nil {
		return nil, err
	}
	return &PartURL{
		URL:              url,
		PartNumber:       partNumber,
		ExpiresInSeconds: int64(s.store.PresignExpires() / time.Second),
	}, nil
}

func validateParts(parts []models.CompletedPart) error {
	if len(parts) == 0 {
		return fmt.Errorf("%w: parts must not be empty", common.ErrInvalidArgument)
	}
	seen := make(map[int32]struct{}, len(parts))
	for _, p := range parts {
		if p.PartNumber < 1 {
			return fmt.Errorf("%w: partNumber must be >= 1", common.ErrInvalidArgument)
		}
		if p.ETag == "" {
			return fmt.Errorf("%w: etag is required for part %d", common.ErrInvalidArgument, p.PartNumber)
		}
		if _, dup := seen[p.PartNumber]; dup {
			return fmt.Errorf("%w: duplicate partNumber %d", common.ErrInvalidArgument, p.PartNumber)
		}
		seen[p.PartNumber] = struct{}{}
	}
	return nil
}

// Complete assembles the uploaded parts and appends the version to the
// ledger. Completing an already completed session returns its ledger entry.
func (s *UploadService) Complete(ctx context.Context, ownerID, sessionID int64, parts []models.CompletedPart) (*CompleteResult, error) {
	if err := validateParts(parts); err != nil {
		return nil, err
	}

	var result *CompleteResult
	err := inSerializableTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		session, err := s.loadSession(ctx, tx, ownerID, sessionID)
		if err != nil {
			return err
		}
		sessions := s.repomanager.UploadSessions(tx)
		versions := s.repomanager.FileVersions(tx)

		switch session.Status {
		case models.UploadStatusCompleted:
			v, err := versions.Get(ctx, ownerID, session.FileNodeID, session.VersionNo)
			if errors.Is(err, common.ErrNotFound) {
				return fmt.Errorf("%w: completed session %d has no version entry", common.ErrInternal, session.ID)
			}
			if err != nil {
				return err
			}
			result = &CompleteResult{Version: v, AlreadyCompleted: true}
			return nil
		case models.UploadStatusAborted:
			return fmt.Errorf("%w: upload session was aborted", common.ErrInvalidArgument)
		case models.UploadStatusFinalizing:
			return fmt.Errorf("%w: upload session is being finalized", common.ErrConflict)
		}

		t := now()
		if session.Expired(t) {
			return fmt.Errorf("%w: upload session expired", common.ErrInvalidArgument)
		}

		if _, err := sessions.Transition(ctx, ownerID, session.ID, models.UploadStatusUploading, models.UploadStatusFinalizing, t); err != nil {
			if errors.Is(err, common.ErrVersionConflict) {
				return fmt.Errorf("%w: upload session changed concurrently, retry", common.ErrConflict)
			}
			return err
		}

		if err := s.store.CompleteMultipartUpload(ctx, session.Bucket, session.StorageKey, session.UploadID, parts); err != nil {
			return err
		}

		v := &models.FileVersion{
			OwnerID:    ownerID,
			FileNodeID: session.FileNodeID,
			VersionNo:  session.VersionNo,
			Bucket:     session.Bucket,
			StorageKey: session.StorageKey,
			SizeBytes:  session.TotalSize,
			MimeType:   session.MimeType,
		}
		if err := versions.Create(ctx, v); err != nil {
			if errors.Is(err, common.ErrAlreadyExists) {
				return fmt.Errorf("%w: version %d already recorded", common.ErrInternal, session.VersionNo)
			}
			return err
		}

		if _, err := sessions.Transition(ctx, ownerID, session.ID, models.UploadStatusFinalizing, models.UploadStatusCompleted, t); err != nil {
			if errors.Is(err, common.ErrVersionConflict) {
				return fmt.Errorf("%w: upload session changed concurrently, retry", common.ErrConflict)
			}
			return err
		}
		result = &CompleteResult{Version: v}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyCompleted {
		s.log.Info(ctx, "upload completed", "owner_id", ownerID, "session_id", sessionID,
			"file_node_id", result.Version.FileNodeID, "version_no", result.Version.VersionNo)
	}
	return result, nil
}

// Abort cancels an active session and releases its multipart upload.
// Aborting an aborted session is a no-op.
func (s *UploadService) Abort(ctx context.Context, ownerID, sessionID int64) (*AbortResult, error) {
	session, err := s.loadSession(ctx, s.db, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	switch session.Status {
	case models.UploadStatusAborted:
		return &AbortResult{Session: session, AlreadyAborted: true}, nil
	case models.UploadStatusCompleted:
		return nil, fmt.Errorf("%w: upload session already completed", common.ErrInvalidArgument)
	case models.UploadStatusFinalizing:
		return nil, fmt.Errorf("%w: upload session is being finalized", common.ErrConflict)
	}

	if err := s.store.AbortMultipartUpload(ctx, session.Bucket, session.StorageKey, session.UploadID); err != nil {
		return nil, err
	}

	aborted, err := s.repomanager.UploadSessions(s.db).Transition(ctx, ownerID, sessionID,
		models.UploadStatusUploading, models.UploadStatusAborted, now())
	if err != nil {
		if errors.Is(err, common.ErrVersionConflict) {
			return nil, fmt.Errorf("%w: upload session changed concurrently", common.ErrConflict)
		}
		return nil, err
	}
	s.log.Info(ctx, "upload aborted", "owner_id", ownerID, "session_id", sessionID)
	return &AbortResult{Session: aborted}, nil
}
