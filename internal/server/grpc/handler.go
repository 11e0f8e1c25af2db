package grpc

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/clouddrive/internal/common"
	"github.com/dmitrijs2005/clouddrive/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// begin returns the authenticated owner and validates req.
func (s *GRPCServer) begin(ctx context.Context, req any) (int64, error) {
	ownerID, ok := OwnerIDFromContext(ctx)
	if !ok {
		return 0, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	if err := s.validate.Struct(req); err != nil {
		return 0, status.Error(codes.InvalidArgument, err.Error())
	}
	return ownerID, nil
}

func (s *GRPCServer) nodeResponse(ctx context.Context, n *models.Node, err error) (*NodeResponse, error) {
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &NodeResponse{Node: toNodeMessage(n)}, nil
}

func (s *GRPCServer) GetRoot(ctx context.Context, req *GetRootRequest) (*NodeResponse, error) {
	ownerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	n, err := s.nodes.GetOrCreateRoot(ctx, ownerID)
	return s.nodeResponse(ctx, n, err)
}

func (s *GRPCServer) GetNode(ctx context.Context, req *GetNodeRequest) (*NodeResponse, error) {
	ownerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	id, err := parseID("nodeId", req.NodeID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	n, err := s.nodes.GetNode(ctx, ownerID, id)
	return s.nodeResponse(ctx, n, err)
}

func (s *GRPCServer) createNode(ctx context.Context, req *CreateNodeRequest, nodeType models.NodeType) (*NodeResponse, error) {
	ownerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	parentID, err := parseID("parentId", req.ParentID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	n, err := s.nodes.CreateChild(ctx, ownerID, parentID, req.Name, nodeType)
	return s.nodeResponse(ctx, n, err)
}

func (s *GRPCServer) CreateFolder(ctx context.Context, req *CreateNodeRequest) (*NodeResponse, error) {
	return s.createNode(ctx, req, models.NodeTypeFolder)
}

func (s *GRPCServer) CreateFile(ctx context.Context, req *CreateNodeRequest) (*NodeResponse, error) {
	return s.createNode(ctx, req, models.NodeTypeFile)
}

func (s *GRPCServer) ListChildren(ctx context.Context, req *ListChildrenRequest) (*ListChildrenResponse, error) {
	ownerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	folderID, err := parseID("folderId", req.FolderID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	page, err := s.nodes.ListChildren(ctx, ownerID, folderID, req.Limit, req.Cursor)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	resp := &ListChildrenResponse{Items: toNodeMessages(page.Items)}
	if page.NextCursor != "" {
		next := page.NextCursor
		resp.NextCursor = &next
	}
	return resp, nil
}

func (s *GRPCServer) RenameNode(ctx context.Context, req *RenameNodeRequest) (*NodeResponse, error) {
	ownerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	id, err := parseID("nodeId", req.NodeID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	expected, err := parseOptionalVersion(req.ExpectedRowVersion)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	n, err := s.nodes.Rename(ctx, ownerID, id, req.Name, expected)
	return s.nodeResponse(ctx, n, err)
}

func (s *GRPCServer) MoveNode(ctx context.Context, req *MoveNodeRequest) (*NodeResponse, error) {
	ownerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	id, err := parseID("nodeId", req.NodeID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	parentID, err := parseID("newParentId", req.NewParentID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	expected, err := parseOptionalVersion(req.ExpectedRowVersion)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	n, err := s.nodes.Move(ctx, ownerID, id, parentID, expected)
	return s.nodeResponse(ctx, n, err)
}

func (s *GRPCServer) DeleteNode(ctx context.Context, req *DeleteNodeRequest) (*DeleteNodeResponse, error) {
	ownerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	id, err := parseID("nodeId", req.NodeID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	cascade := true
	if req.Cascade != nil {
		cascade = *req.Cascade
	}
	deleted, err := s.nodes.SoftDelete(ctx, ownerID, id, cascade)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &DeleteNodeResponse{Deleted: toNodeMessages(deleted)}, nil
}

func (s *GRPCServer) InitiateUpload(ctx context.Context, req *InitiateUploadRequest) (*UploadSessionMessage, error) {
	ownerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	fileNodeID, err := parseID("fileNodeId", req.FileNodeID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	totalSize, err := strconv.ParseInt(req.TotalSize, 10, 64)
	if err != nil {
		return nil, s.toStatus(ctx, fmt.Errorf("%w: totalSize must be a non-negative decimal integer", common.ErrInvalidArgument))
	}
	session, err := s.uploads.Initiate(ctx, ownerID, fileNodeID, totalSize, req.MimeType)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toSessionMessage(session), nil
}

func (s *GRPCServer) GetUploadSession(ctx context.Context, req *GetUploadSessionRequest) (*UploadSessionMessage, error) {
	ownerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	sessionID, err := parseID("sessionId", req.SessionID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	session, err := s.uploads.GetSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toSessionMessage(session), nil
}

func (s *GRPCServer) GetPartURL(ctx context.Context, req *GetPartURLRequest) (*PartURLResponse, error) {
	ownerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	sessionID, err := parseID("sessionId", req.SessionID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	part, err := s.uploads.GetPartURL(ctx, ownerID, sessionID, req.PartNumber)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &PartURLResponse{URL: part.URL, PartNumber: part.PartNumber, ExpiresInSeconds: part.ExpiresInSeconds}, nil
}

func (s *GRPCServer) CompleteUpload(ctx context.Context, req *CompleteUploadRequest) (*CompleteUploadResponse, error) {
	ownerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	sessionID, err := parseID("sessionId", req.SessionID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	parts := make([]models.CompletedPart, 0, len(req.Parts))
	for _, p := range req.Parts {
		parts = append(parts, models.CompletedPart{PartNumber: p.PartNumber, ETag: p.ETag})
	}
	res, err := s.uploads.Complete(ctx, ownerID, sessionID, parts)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &CompleteUploadResponse{
		SessionID:        req.SessionID,
		Version:          toVersionMessage(res.Version),
		AlreadyCompleted: res.AlreadyCompleted,
	}, nil
}

func (s *GRPCServer) AbortUpload(ctx context.Context, req *AbortUploadRequest) (*AbortUploadResponse, error) {
	ownerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	sessionID, err := parseID("sessionId", req.SessionID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	res, err := s.uploads.Abort(ctx, ownerID, sessionID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &AbortUploadResponse{
		SessionID:      req.SessionID,
		Status:         string(res.Session.Status),
		AlreadyAborted: res.AlreadyAborted,
	}, nil
}

func (s *GRPCServer) ListVersions(ctx context.Context, req *FileRequest) (*ListVersionsResponse, error) {
	ownerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	fileNodeID, err := parseID("fileNodeId", req.FileNodeID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	versions, err := s.files.ListVersions(ctx, ownerID, fileNodeID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	resp := &ListVersionsResponse{Versions: make([]FileVersionMessage, 0, len(versions))}
	for _, v := range versions {
		resp.Versions = append(resp.Versions, toVersionMessage(v))
	}
	return resp, nil
}

func (s *GRPCServer) DownloadLatest(ctx context.Context, req *FileRequest) (*DownloadResponse, error) {
	ownerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	fileNodeID, err := parseID("fileNodeId", req.FileNodeID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	d, err := s.files.DownloadLatest(ctx, ownerID, fileNodeID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &DownloadResponse{URL: d.URL, ExpiresInSeconds: d.ExpiresInSeconds, Version: toVersionMessage(d.Version)}, nil
}

func (s *GRPCServer) DownloadVersion(ctx context.Context, req *DownloadVersionRequest) (*DownloadResponse, error) {
	ownerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	fileNodeID, err := parseID("fileNodeId", req.FileNodeID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	d, err := s.files.DownloadVersion(ctx, ownerID, fileNodeID, req.VersionNo)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &DownloadResponse{URL: d.URL, ExpiresInSeconds: d.ExpiresInSeconds, Version: toVersionMessage(d.Version)}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *PingRequest) (*PingResponse, error) {
	return &PingResponse{Status: "OK"}, nil
}
