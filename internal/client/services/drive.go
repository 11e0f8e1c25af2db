// Package services implements the client-side drive workflows on top of the
// Drive gRPC API and presigned object-store URLs.
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/clouddrive/internal/netx"
	gs "github.com/dmitrijs2005/clouddrive/internal/server/grpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// listPageSize is the page size used when walking a folder.
const listPageSize = 200

// maxParts is the object store limit on parts per upload.
const maxParts = 10000

// Invoker calls a Drive method by its short name.
type Invoker interface {
	Invoke(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error
}

type DriveService struct {
	api         Invoker
	http        *http.Client
	concurrency int
}

func NewDriveService(api Invoker, httpClient *http.Client, concurrency int) *DriveService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &DriveService{api: api, http: httpClient, concurrency: concurrency}
}

func (s *DriveService) node(ctx context.Context, method string, req any) (*gs.NodeMessage, error) {
	var resp gs.NodeResponse
	if err := s.api.Invoke(ctx, method, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Node, nil
}

func (s *DriveService) Root(ctx context.Context) (*gs.NodeMessage, error) {
	return s.node(ctx, "GetRoot", &gs.GetRootRequest{})
}

func (s *DriveService) Stat(ctx context.Context, id string) (*gs.NodeMessage, error) {
	return s.node(ctx, "GetNode", &gs.GetNodeRequest{NodeID: id})
}

func (s *DriveService) Mkdir(ctx context.Context, parentID, name string) (*gs.NodeMessage, error) {
	return s.node(ctx, "CreateFolder", &gs.CreateNodeRequest{ParentID: parentID, Name: name})
}

func (s *DriveService) Touch(ctx context.Context, parentID, name string) (*gs.NodeMessage, error) {
	return s.node(ctx, "CreateFile", &gs.CreateNodeRequest{ParentID: parentID, Name: name})
}

func (s *DriveService) Rename(ctx context.Context, id, name string) (*gs.NodeMessage, error) {
	return s.node(ctx, "RenameNode", &gs.RenameNodeRequest{NodeID: id, Name: name})
}

func (s *DriveService) Move(ctx context.Context, id, newParentID string) (*gs.NodeMessage, error) {
	return s.node(ctx, "MoveNode", &gs.MoveNodeRequest{NodeID: id, NewParentID: newParentID})
}

func (s *DriveService) Remove(ctx context.Context, id string, cascade bool) ([]gs.NodeMessage, error) {
	var resp gs.DeleteNodeResponse
	if err := s.api.Invoke(ctx, "DeleteNode", &gs.DeleteNodeRequest{NodeID: id, Cascade: &cascade}, &resp); err != nil {
		return nil, err
	}
	return resp.Deleted, nil
}

// List returns every live child of folderID, following page cursors.
func (s *DriveService) List(ctx context.Context, folderID string) ([]gs.NodeMessage, error) {
	items := make([]gs.NodeMessage, 0)
	req := &gs.ListChildrenRequest{FolderID: folderID, Limit: listPageSize}

	for {
		var resp gs.ListChildrenResponse
		if err := s.api.Invoke(ctx, "ListChildren", req, &resp); err != nil {
			return nil, err
		}
		items = append(items, resp.Items...)
		if resp.NextCursor == nil {
			return items, nil
		}
		req.Cursor = *resp.NextCursor
	}
}

func (s *DriveService) Versions(ctx context.Context, fileNodeID string) ([]gs.FileVersionMessage, error) {
	var resp gs.ListVersionsResponse
	if err := s.api.Invoke(ctx, "ListVersions", &gs.FileRequest{FileNodeID: fileNodeID}, &resp); err != nil {
		return nil, err
	}
	return resp.Versions, nil
}

// Upload sends size bytes of r as a new version of fileNodeID. Parts go
// straight to the object store through presigned URLs; the session is
// aborted if any step fails.
func (s *DriveService) Upload(ctx context.Context, fileNodeID string, r io.ReaderAt, size int64, mimeType string) (*gs.CompleteUploadResponse, error) {
	var session gs.UploadSessionMessage
	req := &gs.InitiateUploadRequest{FileNodeID: fileNodeID, TotalSize: strconv.FormatInt(size, 10), MimeType: mimeType}
	if err := s.api.Invoke(ctx, "InitiateUpload", req, &session); err != nil {
		return nil, err
	}

	parts, err := s.uploadParts(ctx, &session, r, size)
	if err != nil {
		s.abort(ctx, session.SessionID)
		return nil, err
	}

	var done gs.CompleteUploadResponse
	if err := s.api.Invoke(ctx, "CompleteUpload", &gs.CompleteUploadRequest{SessionID: session.SessionID, Parts: parts}, &done); err != nil {
		return nil, err
	}
	return &done, nil
}

func (s *DriveService) uploadParts(ctx context.Context, session *gs.UploadSessionMessage, r io.ReaderAt, size int64) ([]gs.PartMessage, error) {
	partSize, err := strconv.ParseInt(session.PartSize, 10, 64)
	if err != nil || partSize <= 0 {
		return nil, fmt.Errorf("server returned invalid part size %q", session.PartSize)
	}
	if session.TotalParts < 1 || session.TotalParts > maxParts {
		return nil, fmt.Errorf("server returned invalid part count %d", session.TotalParts)
	}

	parts := make([]gs.PartMessage, session.TotalParts)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range parts {
		partNumber := int32(i + 1)
		offset := int64(i) * partSize
		length := min(partSize, size-offset)

		g.Go(func() error {
			body, err := io.ReadAll(io.NewSectionReader(r, offset, length))
			if err != nil {
				return fmt.Errorf("read part %d: %w", partNumber, err)
			}

			var url gs.PartURLResponse
			if err := s.api.Invoke(gctx, "GetPartURL", &gs.GetPartURLRequest{SessionID: session.SessionID, PartNumber: partNumber}, &url); err != nil {
				return err
			}

			etag, err := netx.PutPart(gctx, s.http, url.URL, body)
			if err != nil {
				return fmt.Errorf("part %d: %w", partNumber, err)
			}

			parts[i] = gs.PartMessage{PartNumber: partNumber, ETag: etag}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

func (s *DriveService) abort(ctx context.Context, sessionID string) {
	var resp gs.AbortUploadResponse
	_ = s.api.Invoke(context.WithoutCancel(ctx), "AbortUpload", &gs.AbortUploadRequest{SessionID: sessionID}, &resp)
}

// Download writes a version of fileNodeID to w. versionNo 0 means latest.
func (s *DriveService) Download(ctx context.Context, fileNodeID string, versionNo int32, w io.Writer) (*gs.DownloadResponse, int64, error) {
	var resp gs.DownloadResponse
	var err error
	if versionNo == 0 {
		err = s.api.Invoke(ctx, "DownloadLatest", &gs.FileRequest{FileNodeID: fileNodeID}, &resp)
	} else {
		err = s.api.Invoke(ctx, "DownloadVersion", &gs.DownloadVersionRequest{FileNodeID: fileNodeID, VersionNo: versionNo}, &resp)
	}
	if err != nil {
		return nil, 0, err
	}

	n, err := netx.Download(ctx, s.http, resp.URL, w)
	if err != nil {
		return nil, 0, err
	}
	return &resp, n, nil
}
