package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/clouddrive/internal/logging"
	"github.com/dmitrijs2005/clouddrive/internal/server/models"
	"github.com/dmitrijs2005/clouddrive/internal/server/services"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

var t0 = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func node(id int64, parent int64, name string, typ models.NodeType) *models.Node {
	n := &models.Node{ID: id, OwnerID: 7, Type: typ, Name: name, CreatedAt: t0, UpdatedAt: t0, RowVersion: 1}
	if parent == 0 {
		n.IsRoot = true
	} else {
		n.ParentID = &parent
	}
	return n
}

// fakeNodes records the last call and returns canned results.
type fakeNodes struct {
	NodeService

	gotOwner    int64
	gotType     models.NodeType
	gotCascade  bool
	gotExpected *int64
	gotLimit    int
	gotCursor   string

	page *services.ChildrenPage
	err  error
}

func (f *fakeNodes) GetOrCreateRoot(ctx context.Context, ownerID int64) (*models.Node, error) {
	f.gotOwner = ownerID
	if f.err != nil {
		return nil, f.err
	}
	return node(1, 0, models.RootName, models.NodeTypeFolder), nil
}

func (f *fakeNodes) GetNode(ctx context.Context, ownerID, id int64) (*models.Node, error) {
	f.gotOwner = ownerID
	if f.err != nil {
		return nil, f.err
	}
	return node(id, 1, "n", models.NodeTypeFile), nil
}

func (f *fakeNodes) CreateChild(ctx context.Context, ownerID, parentID int64, name string, t models.NodeType) (*models.Node, error) {
	f.gotOwner, f.gotType = ownerID, t
	if f.err != nil {
		return nil, f.err
	}
	return node(10, parentID, name, t), nil
}

func (f *fakeNodes) ListChildren(ctx context.Context, ownerID, folderID int64, limit int, cursor string) (*services.ChildrenPage, error) {
	f.gotOwner, f.gotLimit, f.gotCursor = ownerID, limit, cursor
	return f.page, f.err
}

func (f *fakeNodes) Rename(ctx context.Context, ownerID, id int64, newName string, expected *int64) (*models.Node, error) {
	f.gotOwner, f.gotExpected = ownerID, expected
	if f.err != nil {
		return nil, f.err
	}
	n := node(id, 1, newName, models.NodeTypeFile)
	n.RowVersion = 2
	return n, nil
}

func (f *fakeNodes) Move(ctx context.Context, ownerID, id, newParentID int64, expected *int64) (*models.Node, error) {
	f.gotOwner, f.gotExpected = ownerID, expected
	if f.err != nil {
		return nil, f.err
	}
	return node(id, newParentID, "m", models.NodeTypeFolder), nil
}

func (f *fakeNodes) SoftDelete(ctx context.Context, ownerID, id int64, cascade bool) ([]*models.Node, error) {
	f.gotOwner, f.gotCascade = ownerID, cascade
	if f.err != nil {
		return nil, f.err
	}
	d := node(id, 1, "d", models.NodeTypeFolder)
	at := t0.Add(time.Hour)
	d.DeletedAt = &at
	return []*models.Node{d}, nil
}

type fakeUploads struct {
	UploadService

	gotSize  int64
	gotParts []models.CompletedPart
	err      error
}

func session() *models.UploadSession {
	return &models.UploadSession{
		ID: 3, OwnerID: 7, FileNodeID: 2, VersionNo: 1, Status: models.UploadStatusUploading,
		PartSize: 8388608, TotalSize: 20000000, ExpiresAt: t0.Add(2 * time.Hour),
	}
}

func (f *fakeUploads) Initiate(ctx context.Context, ownerID, fileNodeID, totalSize int64, mimeType string) (*models.UploadSession, error) {
	f.gotSize = totalSize
	if f.err != nil {
		return nil, f.err
	}
	return session(), nil
}

func (f *fakeUploads) GetSession(ctx context.Context, ownerID, sessionID int64) (*models.UploadSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return session(), nil
}

func (f *fakeUploads) GetPartURL(ctx context.Context, ownerID, sessionID int64, partNumber int32) (*services.PartURL, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.PartURL{URL: "https://s3/part", PartNumber: partNumber, ExpiresInSeconds: 900}, nil
}

func (f *fakeUploads) Complete(ctx context.Context, ownerID, sessionID int64, parts []models.CompletedPart) (*services.CompleteResult, error) {
	f.gotParts = parts
	if f.err != nil {
		return nil, f.err
	}
	return &services.CompleteResult{Version: &models.FileVersion{FileNodeID: 2, VersionNo: 1, SizeBytes: 20000000, CreatedAt: t0}}, nil
}

func (f *fakeUploads) Abort(ctx context.Context, ownerID, sessionID int64) (*services.AbortResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := session()
	s.Status = models.UploadStatusAborted
	return &services.AbortResult{Session: s, AlreadyAborted: true}, nil
}

type fakeFiles struct {
	FileService
	err error
}

func (f *fakeFiles) ListVersions(ctx context.Context, ownerID, fileNodeID int64) ([]*models.FileVersion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*models.FileVersion{
		{FileNodeID: fileNodeID, VersionNo: 2, SizeBytes: 5, CreatedAt: t0},
		{FileNodeID: fileNodeID, VersionNo: 1, SizeBytes: 3, CreatedAt: t0},
	}, nil
}

func (f *fakeFiles) DownloadLatest(ctx context.Context, ownerID, fileNodeID int64) (*services.Download, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.Download{URL: "https://s3/get", ExpiresInSeconds: 900,
		Version: &models.FileVersion{FileNodeID: fileNodeID, VersionNo: 2, CreatedAt: t0}}, nil
}

func (f *fakeFiles) DownloadVersion(ctx context.Context, ownerID, fileNodeID int64, versionNo int32) (*services.Download, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.Download{URL: "https://s3/get", ExpiresInSeconds: 900,
		Version: &models.FileVersion{FileNodeID: fileNodeID, VersionNo: versionNo, CreatedAt: t0}}, nil
}

type testDeps struct {
	nodes   *fakeNodes
	uploads *fakeUploads
	files   *fakeFiles
}

func newTestServer(secret string) (*GRPCServer, *testDeps) {
	d := &testDeps{nodes: &fakeNodes{}, uploads: &fakeUploads{}, files: &fakeFiles{}}
	return NewGRPCServer("127.0.0.1:0", nopLogger{}, secret, d.nodes, d.uploads, d.files), d
}

func withOwner(ownerID int64) context.Context {
	return context.WithValue(context.Background(), ownerIDKey, ownerID)
}
