package models

import (
	"math"
	"time"
)

// UploadStatus is the lifecycle state of an UploadSession.
//
//	UPLOADING -> FINALIZING -> COMPLETED
//	UPLOADING -> ABORTED
type UploadStatus string

const (
	UploadStatusUploading  UploadStatus = "UPLOADING"
	UploadStatusFinalizing UploadStatus = "FINALIZING"
	UploadStatusCompleted  UploadStatus = "COMPLETED"
	UploadStatusAborted    UploadStatus = "ABORTED"
)

// Terminal reports whether no further transition is allowed.
func (s UploadStatus) Terminal() bool {
	return s == UploadStatusCompleted || s == UploadStatusAborted
}

// UploadSession tracks one in-progress multipart upload of a new version
// of a file node.
type UploadSession struct {
	ID         int64
	OwnerID    int64
	FileNodeID int64
	// VersionNo is reserved when the session is created.
	VersionNo int32
	Status    UploadStatus

	Bucket     string
	StorageKey string
	// UploadID is the object store's multipart upload id.
	UploadID string

	PartSize  int64
	TotalSize int64
	MimeType  string

	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
	AbortedAt   *time.Time
}

// TotalParts is the number of parts the client is expected to upload.
// An empty upload still consists of one (empty) part.
func (s *UploadSession) TotalParts() int32 {
	return TotalParts(s.TotalSize, s.PartSize)
}

// Expired reports whether the session no longer accepts parts at now.
func (s *UploadSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// PartCount returns max(1, ceil(totalSize/partSize)) without overflowing
// for any int64 input.
func PartCount(totalSize, partSize int64) int64 {
	if partSize <= 0 || totalSize <= 0 {
		return 1
	}
	n := totalSize / partSize
	if totalSize%partSize != 0 {
		n++
	}
	return n
}

// TotalParts is PartCount narrowed to int32, saturating at math.MaxInt32.
func TotalParts(totalSize, partSize int64) int32 {
	n := PartCount(totalSize, partSize)
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(n)
}
