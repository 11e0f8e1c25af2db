package grpc

// Identifiers and byte sizes travel as decimal strings.

type NodeMessage struct {
	ID         string  `json:"id"`
	OwnerID    string  `json:"ownerId"`
	Type       string  `json:"type"`
	ParentID   *string `json:"parentId"`
	Name       string  `json:"name"`
	IsRoot     bool    `json:"isRoot"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
	DeletedAt  *string `json:"deletedAt"`
	RowVersion string  `json:"rowVersion"`
}

type NodeResponse struct {
	Node NodeMessage `json:"node"`
}

type GetRootRequest struct{}

type GetNodeRequest struct {
	NodeID string `json:"nodeId" validate:"required,number"`
}

type CreateNodeRequest struct {
	ParentID string `json:"parentId" validate:"required,number"`
	Name     string `json:"name" validate:"min=1,max=255"`
}

type ListChildrenRequest struct {
	FolderID string `json:"folderId" validate:"required,number"`
	Limit    int    `json:"limit" validate:"omitempty,min=1,max=200"`
	Cursor   string `json:"cursor"`
}

type ListChildrenResponse struct {
	Items      []NodeMessage `json:"items"`
	NextCursor *string       `json:"nextCursor"`
}

type RenameNodeRequest struct {
	NodeID             string  `json:"nodeId" validate:"required,number"`
	Name               string  `json:"name" validate:"min=1,max=255"`
	ExpectedRowVersion *string `json:"expectedRowVersion" validate:"omitempty,number"`
}

type MoveNodeRequest struct {
	NodeID             string  `json:"nodeId" validate:"required,number"`
	NewParentID        string  `json:"newParentId" validate:"required,number"`
	ExpectedRowVersion *string `json:"expectedRowVersion" validate:"omitempty,number"`
}

type DeleteNodeRequest struct {
	NodeID string `json:"nodeId" validate:"required,number"`
	// Cascade defaults to true.
	Cascade *bool `json:"cascade"`
}

type DeleteNodeResponse struct {
	Deleted []NodeMessage `json:"deleted"`
}

type UploadSessionMessage struct {
	SessionID  string `json:"sessionId"`
	FileNodeID string `json:"fileNodeId"`
	VersionNo  int32  `json:"versionNo"`
	Status     string `json:"status"`
	PartSize   string `json:"partSize"`
	TotalSize  string `json:"totalSize"`
	TotalParts int32  `json:"totalParts"`
	MimeType   string `json:"mimeType,omitempty"`
	ExpiresAt  string `json:"expiresAt"`
}

type InitiateUploadRequest struct {
	FileNodeID string `json:"fileNodeId" validate:"required,number"`
	TotalSize  string `json:"totalSize" validate:"required,number"`
	MimeType   string `json:"mimeType" validate:"omitempty,max=255"`
}

type GetUploadSessionRequest struct {
	SessionID string `json:"sessionId" validate:"required,number"`
}

type GetPartURLRequest struct {
	SessionID  string `json:"sessionId" validate:"required,number"`
	PartNumber int32  `json:"partNumber" validate:"min=1"`
}

type PartURLResponse struct {
	URL              string `json:"url"`
	PartNumber       int32  `json:"partNumber"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

type PartMessage struct {
	PartNumber int32  `json:"partNumber" validate:"min=1"`
	ETag       string `json:"etag" validate:"required"`
}

type CompleteUploadRequest struct {
	SessionID string        `json:"sessionId" validate:"required,number"`
	Parts     []PartMessage `json:"parts" validate:"required,min=1,dive"`
}

type FileVersionMessage struct {
	FileNodeID string `json:"fileNodeId"`
	VersionNo  int32  `json:"versionNo"`
	SizeBytes  string `json:"sizeBytes"`
	MimeType   string `json:"mimeType,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

type CompleteUploadResponse struct {
	SessionID        string             `json:"sessionId"`
	Version          FileVersionMessage `json:"version"`
	AlreadyCompleted bool               `json:"alreadyCompleted"`
}

type AbortUploadRequest struct {
	SessionID string `json:"sessionId" validate:"required,number"`
}

type AbortUploadResponse struct {
	SessionID      string `json:"sessionId"`
	Status         string `json:"status"`
	AlreadyAborted bool   `json:"alreadyAborted"`
}

type FileRequest struct {
	FileNodeID string `json:"fileNodeId" validate:"required,number"`
}

type ListVersionsResponse struct {
	Versions []FileVersionMessage `json:"versions"`
}

type DownloadVersionRequest struct {
	FileNodeID string `json:"fileNodeId" validate:"required,number"`
	VersionNo  int32  `json:"versionNo" validate:"min=1"`
}

type DownloadResponse struct {
	URL              string             `json:"url"`
	ExpiresInSeconds int64              `json:"expiresInSeconds"`
	Version          FileVersionMessage `json:"version"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}
