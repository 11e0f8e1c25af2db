package models

import "time"

// FileVersion is an immutable ledger entry for a completed upload.
type FileVersion struct {
	ID         int64
	OwnerID    int64
	FileNodeID int64
	VersionNo  int32
	Bucket     string
	StorageKey string
	SizeBytes  int64
	MimeType   string
	CreatedAt  time.Time
}

// CompletedPart is a client-reported part of a multipart upload.
type CompletedPart struct {
	PartNumber int32
	ETag       string
}
